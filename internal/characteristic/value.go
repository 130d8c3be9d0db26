package characteristic

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/DRSN-tech/market-crawler/pkg/e"
)

// Value — типизированное значение конкретной характеристики.
// Реализации: FloatValue, IntValue, StringValue, EnumValue, BoolValue.
type Value interface {
	CharacteristicID() ID
	Kind() Kind
	// Key — нормализованное представление, по которому значение интернируется.
	Key() string
	sealed()
}

type FloatValue struct {
	ID    ID
	Value float64
}

type IntValue struct {
	ID    ID
	Value int64
}

type StringValue struct {
	ID    ID
	Value string
}

type EnumValue struct {
	ID    ID
	Value string
}

type BoolValue struct {
	ID    ID
	Value bool
}

func (v FloatValue) CharacteristicID() ID  { return v.ID }
func (v IntValue) CharacteristicID() ID    { return v.ID }
func (v StringValue) CharacteristicID() ID { return v.ID }
func (v EnumValue) CharacteristicID() ID   { return v.ID }
func (v BoolValue) CharacteristicID() ID   { return v.ID }

func (FloatValue) Kind() Kind  { return KindFloat }
func (IntValue) Kind() Kind    { return KindInt }
func (StringValue) Kind() Kind { return KindString }
func (EnumValue) Kind() Kind   { return KindEnum }
func (BoolValue) Kind() Kind   { return KindBool }

func (v FloatValue) Key() string  { return strconv.FormatFloat(v.Value, 'f', -1, 64) }
func (v IntValue) Key() string    { return strconv.FormatInt(v.Value, 10) }
func (v StringValue) Key() string { return strings.ToLower(strings.Join(strings.Fields(v.Value), " ")) }
func (v EnumValue) Key() string   { return v.Value }
func (v BoolValue) Key() string   { return strconv.FormatInt(v.IntID(), 10) }

// IntID — для Int значение само является идентификатором значения.
func (v IntValue) IntID() int64 { return v.Value }

// IntID хранит флаг так же, как Int: 0 или 1.
func (v BoolValue) IntID() int64 {
	if v.Value {
		return 1
	}
	return 0
}

func (FloatValue) sealed()  {}
func (IntValue) sealed()    {}
func (StringValue) sealed() {}
func (EnumValue) sealed()   {}
func (BoolValue) sealed()   {}

func expect(id ID, kind Kind) (Definition, error) {
	d, ok := Lookup(id)
	if !ok {
		return Definition{}, fmt.Errorf("%w: %d", e.ErrUnknownCharacteristic, id)
	}
	if d.Kind != kind {
		return Definition{}, fmt.Errorf("%w: %s is %s, not %s", e.ErrUnknownCharacteristic, d.Slug, d.Kind, kind)
	}
	return d, nil
}

func NewFloat(id ID, v float64) (Value, error) {
	if _, err := expect(id, KindFloat); err != nil {
		return nil, err
	}
	return FloatValue{ID: id, Value: v}, nil
}

func NewInt(id ID, v int64) (Value, error) {
	if _, err := expect(id, KindInt); err != nil {
		return nil, err
	}
	return IntValue{ID: id, Value: v}, nil
}

func NewString(id ID, v string) (Value, error) {
	if _, err := expect(id, KindString); err != nil {
		return nil, err
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, fmt.Errorf("%w: empty %s", e.ErrUnparsableValue, id)
	}
	return StringValue{ID: id, Value: v}, nil
}

// NewEnum принимает только значение из закрытого списка определения.
func NewEnum(id ID, v string) (Value, error) {
	d, err := expect(id, KindEnum)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(d.Values, v) {
		return nil, fmt.Errorf("%w: %s=%q", e.ErrUnknownEnumValue, d.Slug, v)
	}
	return EnumValue{ID: id, Value: v}, nil
}

func NewBool(id ID, v bool) (Value, error) {
	if _, err := expect(id, KindBool); err != nil {
		return nil, err
	}
	return BoolValue{ID: id, Value: v}, nil
}
