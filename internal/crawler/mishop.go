package crawler

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/DRSN-tech/market-crawler/internal/domain"
	"github.com/DRSN-tech/market-crawler/pkg/e"
	"github.com/PuerkitoBio/goquery"
)

var mishopDescriptionRe = regexp.MustCompile(`(?s)<!--\s*description\s*-->(.*?)<!--\s*/description\s*-->`)

// mishopCategories — разделы каталога и их адреса.
var mishopCategories = map[string][]string{
	"smartphones": {"/ru/catalog/smartphones/page/{page}/"},
	"tablets":     {"/ru/catalog/tablets/page/{page}/"},
	"wearables":   {"/ru/catalog/smart-watches/page/{page}/", "/ru/catalog/fitness-bracelets/page/{page}/"},
}

// Mishop разбирает разметку магазина mi-shop.
type Mishop struct {
	base *url.URL
}

func NewMishop(baseURL string) (*Mishop, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, e.Wrap("NewMishop", err)
	}
	return &Mishop{base: base}, nil
}

func (m *Mishop) Source() domain.Source     { return domain.SourceMishop }
func (m *Mishop) Currency() domain.Currency { return domain.CurrencyRUB }

func (m *Mishop) Categories() []string {
	return sortedKeys(mishopCategories)
}

func (m *Mishop) PageURLs(category string) ([]string, error) {
	return templates(m.base, mishopCategories, category)
}

func (m *Mishop) DetailURL(externalID string) string {
	return m.base.String() + "/ru/product/" + url.PathEscape(externalID) + "/"
}

func (m *Mishop) ExtractListing(doc *goquery.Document) ([]domain.LocalProduct, error) {
	var (
		products []domain.LocalProduct
		errs     []error
	)
	doc.Find(".product-card").Each(func(i int, s *goquery.Selection) {
		p, err := m.card(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("card %d: %w", i, err))
			return
		}
		products = append(products, *p)
	})
	return products, errors.Join(errs...)
}

func (m *Mishop) card(s *goquery.Selection) (*domain.LocalProduct, error) {
	id := strings.TrimSpace(s.AttrOr("data-product-id", ""))
	if id == "" {
		return nil, fmt.Errorf("%w: data-product-id", e.ErrNodeNotFound)
	}

	title := collapseSpaces(s.Find(".product-card__title").First().Text())
	if title == "" {
		return nil, fmt.Errorf("%w: title of %s", e.ErrNodeNotFound, id)
	}

	price, err := ParsePrice(s.Find(".product-card__price-new, .product-card__price").First().Text())
	if err != nil {
		return nil, fmt.Errorf("price of %s: %w", id, err)
	}

	available, err := Availability(s, ".product-card__buy", ".product-card__unavailable")
	if err != nil {
		return nil, fmt.Errorf("availability of %s: %w", id, err)
	}

	href := s.Find("a.product-card__link").AttrOr("href", "")
	link := m.DetailURL(id)
	if u, err := url.Parse(href); err == nil && href != "" {
		link = m.base.ResolveReference(u).String()
	}

	return &domain.LocalProduct{
		ExternalID:    id,
		Title:         title,
		URL:           link,
		Price:         price,
		OriginalPrice: optionalPrice(s.Find(".product-card__price-old")),
		Available:     available,
		Images:        ImageURLs(s.Find(".product-card__image img"), m.base),
	}, nil
}

func (m *Mishop) ExtractDetail(doc *goquery.Document, externalID string) (*domain.AdditionalInfo, error) {
	root := doc.Find(".product-detail").First()
	if root.Length() == 0 {
		return nil, fmt.Errorf("%w: product %s", e.ErrNodeNotFound, externalID)
	}

	info := &domain.AdditionalInfo{
		Description:     Description(root.Find(".product-detail__description"), mishopDescriptionRe),
		Images:          ImageURLs(root.Find(".product-gallery img"), m.base),
		Characteristics: characteristics(root.Find(".specs__row"), ".specs__name", ".specs__value"),
	}
	if available, err := Availability(root, ".product-detail__buy", ".product-detail__unavailable"); err == nil {
		info.Available = &available
	}
	return info, nil
}
