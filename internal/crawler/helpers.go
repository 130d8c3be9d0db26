package crawler

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/DRSN-tech/market-crawler/internal/domain"
	"github.com/DRSN-tech/market-crawler/pkg/e"
	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

// imageAttrs — атрибуты с адресом картинки: основной и атрибуты ленивой загрузки.
var imageAttrs = []string{"src", "data-src", "data-lazy", "data-original"}

var priceCleanRe = regexp.MustCompile(`[^\d.,]`)

// ImageURLs собирает абсолютные адреса картинок. Если основной атрибут пуст
// или содержит заглушку, берётся первый валидный атрибут ленивой загрузки.
func ImageURLs(sel *goquery.Selection, base *url.URL) []string {
	seen := make(map[string]struct{})
	var out []string
	sel.Each(func(_ int, img *goquery.Selection) {
		for _, attr := range imageAttrs {
			raw, ok := img.Attr(attr)
			if !ok {
				continue
			}
			u, ok := validImageURL(raw, base)
			if !ok {
				continue
			}
			if _, dup := seen[u]; !dup {
				seen[u] = struct{}{}
				out = append(out, u)
			}
			return
		}
	})
	return out
}

func validImageURL(raw string, base *url.URL) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "data:") || strings.Contains(raw, "placeholder") {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" || u.Path == "" || u.Path == "/" {
		return "", false
	}
	return u.String(), true
}

// Availability определяет наличие по паре маркеров «купить» / «нет в наличии».
// Если нет ни одного маркера, возвращается e.ErrAvailabilityUnknown.
// Если есть оба, товар считается недоступным.
func Availability(sel *goquery.Selection, buySelector, unavailableSelector string) (bool, error) {
	buy := sel.Find(buySelector).Length() > 0
	unavailable := sel.Find(unavailableSelector).Length() > 0
	switch {
	case !buy && !unavailable:
		return false, e.ErrAvailabilityUnknown
	case unavailable:
		return false, nil
	}
	return true, nil
}

// Description достаёт текст описания по первой группе выражения re из
// внутренней разметки блока. Если группа не нашлась, берётся текст всего блока.
func Description(sel *goquery.Selection, re *regexp.Regexp) string {
	if sel.Length() == 0 {
		return ""
	}
	if re != nil {
		if inner, err := sel.Html(); err == nil {
			if m := re.FindStringSubmatch(inner); len(m) > 1 {
				if text := markupText(m[1]); text != "" {
					return text
				}
			}
		}
	}
	return collapseSpaces(sel.Text())
}

func markupText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	return collapseSpaces(doc.Text())
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ParsePrice разбирает цену вида "12 990 ₽" или "1 299,90 руб.".
func ParsePrice(text string) (decimal.Decimal, error) {
	clean := strings.Trim(priceCleanRe.ReplaceAllString(text, ""), ".,")
	clean = strings.ReplaceAll(clean, ",", ".")
	if clean == "" {
		return decimal.Zero, fmt.Errorf("%w: price %q", e.ErrUnparsableValue, text)
	}
	price, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: price %q", e.ErrUnparsableValue, text)
	}
	return price, nil
}

// optionalPrice возвращает невалидный NullDecimal, если узла цены нет.
func optionalPrice(sel *goquery.Selection) decimal.NullDecimal {
	if sel.Length() == 0 {
		return decimal.NullDecimal{}
	}
	p, err := ParsePrice(sel.First().Text())
	if err != nil || p.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(p)
}

// characteristics собирает пары «подпись/значение» из строк таблицы.
func characteristics(rows *goquery.Selection, labelSelector, valueSelector string) []domain.RawCharacteristic {
	var out []domain.RawCharacteristic
	rows.Each(func(_ int, row *goquery.Selection) {
		label := collapseSpaces(row.Find(labelSelector).First().Text())
		value := collapseSpaces(row.Find(valueSelector).First().Text())
		if label != "" && value != "" {
			out = append(out, domain.RawCharacteristic{Label: label, Value: value})
		}
	})
	return out
}
