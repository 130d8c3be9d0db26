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

var pitergsmDescriptionRe = regexp.MustCompile(`(?s)<div[^>]*class="[^"]*detail-text[^"]*"[^>]*>(.*?)</div>`)

var pitergsmCategories = map[string][]string{
	"smartphones": {
		"/catalog/phones/apple/?PAGEN_1={page}",
		"/catalog/phones/xiaomi/?PAGEN_1={page}",
		"/catalog/phones/samsung/?PAGEN_1={page}",
	},
	"tablets": {"/catalog/tablets/?PAGEN_1={page}"},
}

// Pitergsm разбирает разметку магазина PiterGSM.
type Pitergsm struct {
	base *url.URL
}

func NewPitergsm(baseURL string) (*Pitergsm, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, e.Wrap("NewPitergsm", err)
	}
	return &Pitergsm{base: base}, nil
}

func (p *Pitergsm) Source() domain.Source     { return domain.SourcePitergsm }
func (p *Pitergsm) Currency() domain.Currency { return domain.CurrencyRUB }

func (p *Pitergsm) Categories() []string {
	return sortedKeys(pitergsmCategories)
}

func (p *Pitergsm) PageURLs(category string) ([]string, error) {
	return templates(p.base, pitergsmCategories, category)
}

func (p *Pitergsm) DetailURL(externalID string) string {
	return p.base.String() + "/catalog/item/" + url.PathEscape(externalID) + "/"
}

func (p *Pitergsm) ExtractListing(doc *goquery.Document) ([]domain.LocalProduct, error) {
	var (
		products []domain.LocalProduct
		errs     []error
	)
	doc.Find(".prod-card").Each(func(i int, s *goquery.Selection) {
		lp, err := p.card(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("card %d: %w", i, err))
			return
		}
		products = append(products, *lp)
	})
	return products, errors.Join(errs...)
}

func (p *Pitergsm) card(s *goquery.Selection) (*domain.LocalProduct, error) {
	id := strings.TrimSpace(s.AttrOr("data-id", ""))
	if id == "" {
		return nil, fmt.Errorf("%w: data-id", e.ErrNodeNotFound)
	}

	link := s.Find("a.prod-card__title").First()
	title := collapseSpaces(link.Text())
	if title == "" {
		return nil, fmt.Errorf("%w: title of %s", e.ErrNodeNotFound, id)
	}

	price, err := ParsePrice(s.Find(".prod-card__price .price-current").First().Text())
	if err != nil {
		return nil, fmt.Errorf("price of %s: %w", id, err)
	}

	available, err := Availability(s, ".btn-buy", ".prod-card__not-available")
	if err != nil {
		return nil, fmt.Errorf("availability of %s: %w", id, err)
	}

	detail := p.DetailURL(id)
	if href, ok := link.Attr("href"); ok {
		if u, err := url.Parse(href); err == nil {
			detail = p.base.ResolveReference(u).String()
		}
	}

	return &domain.LocalProduct{
		ExternalID:    id,
		Title:         title,
		URL:           detail,
		Price:         price,
		OriginalPrice: optionalPrice(s.Find(".prod-card__price .price-old")),
		Available:     available,
		Description:   collapseSpaces(s.Find(".prod-card__preview-text").Text()),
		Images:        ImageURLs(s.Find(".prod-card__img img"), p.base),
	}, nil
}

func (p *Pitergsm) ExtractDetail(doc *goquery.Document, externalID string) (*domain.AdditionalInfo, error) {
	root := doc.Find(".product-page").First()
	if root.Length() == 0 {
		return nil, fmt.Errorf("%w: product %s", e.ErrNodeNotFound, externalID)
	}

	info := &domain.AdditionalInfo{
		Description:     Description(root.Find(".product-page__description"), pitergsmDescriptionRe),
		Images:          ImageURLs(root.Find(".product-slider img"), p.base),
		Characteristics: characteristics(root.Find("table.char-table tr"), "th, .char-name", "td, .char-value"),
	}
	if available, err := Availability(root, ".btn-buy", ".product-page__not-available"); err == nil {
		info.Available = &available
	}
	return info, nil
}
