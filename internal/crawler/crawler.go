package crawler

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/DRSN-tech/market-crawler/internal/cfg"
	"github.com/DRSN-tech/market-crawler/internal/domain"
	"github.com/DRSN-tech/market-crawler/pkg/e"
	"github.com/PuerkitoBio/goquery"
)

// PagePlaceholder подставляется в шаблон адреса страницы листинга.
const PagePlaceholder = "{page}"

// Crawler превращает разметку одного маркетплейса в нормализованные записи.
type Crawler interface {
	Source() domain.Source
	Currency() domain.Currency
	Categories() []string
	// PageURLs возвращает шаблоны адресов листинга категории с PagePlaceholder.
	PageURLs(category string) ([]string, error)
	// ExtractListing возвращает карточки страницы. Ошибка не отменяет уже
	// разобранные карточки: она объединяет причины пропуска отдельных карточек.
	ExtractListing(doc *goquery.Document) ([]domain.LocalProduct, error)
	// ExtractDetail возвращает e.ErrNodeNotFound, если на странице нет карточки товара.
	ExtractDetail(doc *goquery.Document, externalID string) (*domain.AdditionalInfo, error)
	DetailURL(externalID string) string
}

// PageURL подставляет номер страницы в шаблон.
func PageURL(template string, page int) string {
	return strings.ReplaceAll(template, PagePlaceholder, strconv.Itoa(page))
}

// New создаёт краулер из закрытого набора источников.
func New(source domain.Source, cfg *cfg.CrawlerCfg) (Crawler, error) {
	switch source {
	case domain.SourceMishop:
		return NewMishop(cfg.MishopBaseURL)
	case domain.SourcePitergsm:
		return NewPitergsm(cfg.PitergsmBaseURL)
	}
	return nil, fmt.Errorf("%w: %d", e.ErrUnknownSource, int16(source))
}

// Registry хранит краулеры, включённые в конфигурации.
type Registry map[domain.Source]Crawler

func NewRegistry(cfg *cfg.CrawlerCfg) (Registry, error) {
	reg := make(Registry, len(cfg.EnabledSources))
	for _, name := range cfg.EnabledSources {
		source, err := domain.ParseSource(name)
		if err != nil {
			return nil, err
		}
		c, err := New(source, cfg)
		if err != nil {
			return nil, err
		}
		reg[source] = c
	}
	return reg, nil
}

func (r Registry) Get(source domain.Source) (Crawler, error) {
	c, ok := r[source]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not enabled", e.ErrUnknownSource, source)
	}
	return c, nil
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func templates(base *url.URL, categories map[string][]string, category string) ([]string, error) {
	paths, ok := categories[category]
	if !ok {
		return nil, fmt.Errorf("%w: category %q", e.ErrNotFound, category)
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, base.String()+p)
	}
	return out, nil
}
