package domain

import "time"

// Category описывает категорию товара
type Category struct {
	ID        int64
	Slug      string
	Name      string
	CreatedAt time.Time
}

func NewCategory(slug, name string) *Category {
	return &Category{
		Slug: slug,
		Name: name,
	}
}
