package converter

import (
	"strings"

	"github.com/DRSN-tech/market-crawler/internal/domain"
)

// ProductConverter преобразует Product между domain и моделью PostgreSQL.
type ProductConverter struct{}

func (ProductConverter) ToModel(entity *domain.Product) *ProductModel {
	return &ProductModel{
		ID:              entity.ID,
		Title:           entity.Title,
		NormalizedTitle: domain.NormalizeTitle(entity.Title),
		CategoryID:      entity.CategoryID,
		LowestPrice:     entity.LowestPrice,
		HighestPrice:    entity.HighestPrice,
		Enabled:         entity.Enabled,
		Description:     entity.Description,
		Images:          nonNil(entity.Images),
		CreatedAt:       entity.CreatedAt,
		UpdatedAt:       entity.UpdatedAt,
	}
}

func (ProductConverter) ToEntity(model *ProductModel) *domain.Product {
	return &domain.Product{
		ID:           model.ID,
		Title:        model.Title,
		CategoryID:   model.CategoryID,
		LowestPrice:  model.LowestPrice,
		HighestPrice: model.HighestPrice,
		Enabled:      model.Enabled,
		Description:  model.Description,
		Images:       model.Images,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

// CategoryConverter преобразует Category между domain и моделью PostgreSQL.
type CategoryConverter struct{}

func (CategoryConverter) ToEntity(model *CategoryModel) *domain.Category {
	return &domain.Category{
		ID:        model.ID,
		Slug:      model.Slug,
		Name:      model.Name,
		CreatedAt: model.CreatedAt,
	}
}

// SourceProductConverter преобразует SourceProduct между domain и моделью PostgreSQL.
type SourceProductConverter struct{}

func (SourceProductConverter) ToModel(entity *domain.SourceProduct) *SourceProductModel {
	return &SourceProductModel{
		ID:            entity.ID,
		SourceID:      int16(entity.Source),
		ProductID:     entity.ProductID,
		ExternalID:    entity.ExternalID,
		Price:         entity.Price,
		OriginalPrice: entity.OriginalPrice,
		Enabled:       entity.Enabled,
		UpdatedAt:     entity.UpdatedAt,
	}
}

func (SourceProductConverter) ToEntity(model *SourceProductModel) *domain.SourceProduct {
	return &domain.SourceProduct{
		ID:            model.ID,
		Source:        domain.Source(model.SourceID),
		ProductID:     model.ProductID,
		ExternalID:    model.ExternalID,
		Price:         model.Price,
		OriginalPrice: model.OriginalPrice,
		Enabled:       model.Enabled,
		UpdatedAt:     model.UpdatedAt,
	}
}

func PriceHistoryToEntity(model *PriceHistoryModel) *domain.PriceHistoryEntry {
	return &domain.PriceHistoryEntry{
		ID:         model.ID,
		ProductID:  model.ProductID,
		Source:     domain.Source(model.SourceID),
		ExternalID: model.ExternalID,
		Price:      model.Price,
		CreatedAt:  model.CreatedAt,
	}
}

func ExchangeRateToEntity(model *ExchangeRateModel) *domain.ExchangeRate {
	return &domain.ExchangeRate{
		Currency:  domain.Currency(strings.TrimSpace(model.Currency)),
		Rate:      model.Rate,
		UpdatedAt: model.UpdatedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
