package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/DRSN-tech/market-crawler/pkg/e"
)

var (
	thousandsRe    = regexp.MustCompile(`(\d) (\d{3})\b`)
	decimalCommaRe = regexp.MustCompile(`(\d),(\d)`)
	numberRe       = regexp.MustCompile(`\d+(?:\.\d+)?`)
	delimiterRe    = regexp.MustCompile(`\s*[,;/]\s*|\s+and\s+|\s+и\s+`)
	spaceReplacer  = strings.NewReplacer("\u00a0", " ", "\u202f", " ", "\t", " ", "\n", " ", "\r", " ")
)

// normalizeLabel приводит название характеристики к ключу таблицы правил.
func normalizeLabel(label string) string {
	label = strings.ToLower(spaceReplacer.Replace(label))
	label = strings.Join(strings.Fields(label), " ")
	label = decimalCommaRe.ReplaceAllString(label, "$1.$2")
	return strings.TrimSpace(strings.TrimRight(label, ":"))
}

// cleanText схлопывает пробелы, сохраняя регистр: строковые значения хранятся как есть.
func cleanText(text string) string {
	return strings.Join(strings.Fields(spaceReplacer.Replace(text)), " ")
}

// normalizeText убирает неразрывные пробелы, разделители тысяч и десятичные запятые.
func normalizeText(text string) string {
	text = strings.ToLower(spaceReplacer.Replace(text))
	text = strings.Join(strings.Fields(text), " ")
	for {
		next := thousandsRe.ReplaceAllString(text, "$1$2")
		if next == text {
			break
		}
		text = next
	}
	return decimalCommaRe.ReplaceAllString(text, "$1.$2")
}

// firstNumber возвращает первое число в тексте. Для версий вида 17.1.2 остаётся 17.1,
// для "2400x1080" и "64MP+8MP" — первый компонент.
func firstNumber(text string) (float64, error) {
	m := numberRe.FindString(text)
	if m == "" {
		return 0, e.ErrUnparsableValue
	}
	return strconv.ParseFloat(m, 64)
}

// unit — множитель для значения, записанного в другой единице измерения.
type unit struct {
	suffix string
	mul    float64
	div    float64
}

func applyUnits(v float64, text string, units []unit) float64 {
	for _, u := range units {
		if strings.Contains(text, u.suffix) {
			return v * u.mul / u.div
		}
	}
	return v
}

func roundFloat(v float64) float64 {
	const precision = 10000
	return math.Round(v*precision) / precision
}

// splitValues делит многозначное поле на отдельные токены.
func splitValues(text string) []string {
	parts := delimiterRe.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
