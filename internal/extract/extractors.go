package extract

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/DRSN-tech/market-crawler/internal/characteristic"
	"github.com/DRSN-tech/market-crawler/pkg/e"
)

// Extractor превращает нормализованный текст значения в типизированные значения.
// Может вернуть часть значений вместе с ошибкой для остальных токенов.
type Extractor func(target characteristic.ID, text string) ([]characteristic.Value, error)

func floatOf(units ...unit) Extractor {
	return func(target characteristic.ID, text string) ([]characteristic.Value, error) {
		v, err := firstNumber(text)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", err, text)
		}
		val, err := characteristic.NewFloat(target, roundFloat(applyUnits(v, text, units)))
		if err != nil {
			return nil, err
		}
		return []characteristic.Value{val}, nil
	}
}

func intOf(units ...unit) Extractor {
	return func(target characteristic.ID, text string) ([]characteristic.Value, error) {
		v, err := firstNumber(text)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", err, text)
		}
		v = roundFloat(applyUnits(v, text, units))
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("%w: %q is not integral", e.ErrUnparsableValue, text)
		}
		val, err := characteristic.NewInt(target, int64(v))
		if err != nil {
			return nil, err
		}
		return []characteristic.Value{val}, nil
	}
}

func stringOf() Extractor {
	return func(target characteristic.ID, text string) ([]characteristic.Value, error) {
		val, err := characteristic.NewString(target, text)
		if err != nil {
			return nil, err
		}
		return []characteristic.Value{val}, nil
	}
}

// enumOf сопоставляет токены закрытому списку значений. Для Multi-характеристик
// значение предварительно делится на токены, неизвестные токены отбрасываются с ошибкой.
func enumOf() Extractor {
	return func(target characteristic.ID, text string) ([]characteristic.Value, error) {
		d, ok := characteristic.Lookup(target)
		if !ok {
			return nil, fmt.Errorf("%w: %d", e.ErrUnknownCharacteristic, target)
		}

		tokens := []string{text}
		if d.Multi {
			tokens = splitValues(applyIdioms(text))
		}

		var (
			out  []characteristic.Value
			errs []error
		)
		for _, token := range tokens {
			canonical, ok := resolveEnum(d, token)
			if !ok {
				errs = append(errs, fmt.Errorf("%w: %s=%q", e.ErrUnknownEnumValue, d.Slug, token))
				continue
			}
			val, err := characteristic.NewEnum(target, canonical)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			out = append(out, val)
		}
		return out, errors.Join(errs...)
	}
}

// resolveEnum ищет токен целиком, затем по отдельным словам.
func resolveEnum(d characteristic.Definition, token string) (string, bool) {
	lookup := func(s string) (string, bool) {
		if v, ok := enumSynonyms[d.ID][s]; ok {
			return v, true
		}
		for _, v := range d.Values {
			if strings.ToLower(v) == s {
				return v, true
			}
		}
		return "", false
	}

	if v, ok := lookup(token); ok {
		return v, true
	}
	for _, word := range strings.Fields(token) {
		if v, ok := lookup(strings.Trim(word, "()[].")); ok {
			return v, true
		}
	}
	return "", false
}

// enumWithVersion дополнительно извлекает версию в отдельную Float-характеристику,
// например "Android 14" даёт OperatingSystem=Android и OSVersion=14.
func enumWithVersion(version characteristic.ID) Extractor {
	base := enumOf()
	versionOf := floatOf()
	return func(target characteristic.ID, text string) ([]characteristic.Value, error) {
		out, err := base(target, text)
		if err != nil {
			return nil, err
		}
		if v, verr := versionOf(version, text); verr == nil {
			out = append(out, v...)
		}
		return out, nil
	}
}

// boolOf разбирает да/нет. При presence любое другое непустое значение считается наличием.
func boolOf(presence bool) Extractor {
	return func(target characteristic.ID, text string) ([]characteristic.Value, error) {
		flag, ok := parseBool(text)
		if !ok {
			if !presence || text == "" {
				return nil, fmt.Errorf("%w: %q", e.ErrUnparsableValue, text)
			}
			flag = true
		}
		val, err := characteristic.NewBool(target, flag)
		if err != nil {
			return nil, err
		}
		return []characteristic.Value{val}, nil
	}
}

func parseBool(text string) (bool, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false, false
	}
	first := strings.Trim(fields[0], ".,;:!")
	if first == "" {
		first = fields[0]
	}
	if _, ok := negativeWords[first]; ok {
		return false, true
	}
	if _, ok := positiveWords[first]; ok {
		return true, true
	}
	return false, false
}

// flagList разбирает список технологий: каждый известный токен выставляет свой флаг.
// target не используется, поскольку один список заполняет несколько характеристик.
func flagList() Extractor {
	return func(_ characteristic.ID, text string) ([]characteristic.Value, error) {
		var (
			out  []characteristic.Value
			errs []error
		)
		for _, token := range splitValues(applyIdioms(text)) {
			vals, err := flagToken(token)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			out = append(out, vals...)
		}
		return out, errors.Join(errs...)
	}
}

func flagToken(token string) ([]characteristic.Value, error) {
	if _, ok := ignoredTokens[token]; ok {
		return nil, nil
	}
	if id, ok := flagSynonyms[token]; ok {
		v, err := characteristic.NewBool(id, true)
		return []characteristic.Value{v}, err
	}

	words := strings.Fields(token)
	if len(words) > 0 {
		if id, ok := versionedFlags[words[0]]; ok {
			if len(words) == 1 {
				return nil, nil
			}
			return floatOf()(id, strings.Join(words[1:], " "))
		}
		if id, ok := flagSynonyms[words[0]]; ok {
			v, err := characteristic.NewBool(id, true)
			return []characteristic.Value{v}, err
		}
		if waterRatingRe.MatchString(words[0]) {
			v, err := characteristic.NewBool(characteristic.WaterResistance, true)
			return []characteristic.Value{v}, err
		}
	}
	return nil, fmt.Errorf("%w: technology %q", e.ErrUnknownEnumValue, token)
}
