package domain

import (
	"fmt"

	"github.com/DRSN-tech/market-crawler/pkg/e"
)

// Source — закрытое перечисление поддерживаемых маркетплейсов.
// Значения сохраняются в БД и не должны перенумеровываться.
type Source int16

const (
	SourceMishop   Source = 1
	SourcePitergsm Source = 2
)

var sourceNames = map[Source]string{
	SourceMishop:   "mishop",
	SourcePitergsm: "pitergsm",
}

// Sources возвращает все известные источники в порядке их идентификаторов.
func Sources() []Source {
	return []Source{SourceMishop, SourcePitergsm}
}

func (s Source) String() string {
	if name, ok := sourceNames[s]; ok {
		return name
	}
	return fmt.Sprintf("source(%d)", int16(s))
}

// ParseSource ищет источник по имени.
func ParseSource(name string) (Source, error) {
	for s, n := range sourceNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", e.ErrUnknownSource, name)
}

func (s Source) MarshalText() ([]byte, error) {
	if _, ok := sourceNames[s]; !ok {
		return nil, fmt.Errorf("%w: %d", e.ErrUnknownSource, int16(s))
	}
	return []byte(s.String()), nil
}

func (s *Source) UnmarshalText(b []byte) error {
	parsed, err := ParseSource(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
