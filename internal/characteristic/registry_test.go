package characteristic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRegistry(t *testing.T) {
	require.NoError(t, Validate())
	assert.Len(t, Definitions(), len(allIDs))
}

func TestIDsAreStable(t *testing.T) {
	// Номера сохранены в БД: тест фиксирует их значения.
	cases := map[ID]int16{
		CPUFrequency:    1,
		BatteryCapacity: 20,
		Model:           40,
		Color:           60,
		AudioCodecs:     64,
		NFC:             80,
		Jack35:          88,
	}
	for id, want := range cases {
		assert.Equal(t, want, int16(id), id.String())
	}

	d, ok := Lookup(CPUFrequency)
	require.True(t, ok)
	assert.Equal(t, "cpu_frequency", d.Slug)
	assert.Equal(t, KindFloat, d.Kind)
}

func TestValidateDetectsBrokenTables(t *testing.T) {
	tests := []struct {
		name string
		ids  []ID
		defs []Definition
	}{
		{
			name: "missing definition",
			ids:  []ID{1, 2},
			defs: []Definition{{ID: 1, Slug: "a", Kind: KindInt}},
		},
		{
			name: "duplicate id",
			ids:  []ID{1},
			defs: []Definition{{ID: 1, Slug: "a", Kind: KindInt}, {ID: 1, Slug: "b", Kind: KindInt}},
		},
		{
			name: "duplicate slug",
			ids:  []ID{1, 2},
			defs: []Definition{{ID: 1, Slug: "a", Kind: KindInt}, {ID: 2, Slug: "a", Kind: KindInt}},
		},
		{
			name: "undeclared id",
			ids:  []ID{1},
			defs: []Definition{{ID: 1, Slug: "a", Kind: KindInt}, {ID: 9, Slug: "b", Kind: KindInt}},
		},
		{
			name: "enum without values",
			ids:  []ID{1},
			defs: []Definition{{ID: 1, Slug: "a", Kind: KindEnum}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, validate(tt.ids, tt.defs))
		})
	}
}

func TestConstructorsCheckKind(t *testing.T) {
	v, err := NewFloat(CPUFrequency, 2.2)
	require.NoError(t, err)
	assert.Equal(t, "2.2", v.Key())

	_, err = NewFloat(RAM, 8)
	assert.Error(t, err)

	_, err = NewEnum(Color, "black")
	assert.NoError(t, err)

	_, err = NewEnum(Color, "ultraviolet")
	assert.Error(t, err)

	b, err := NewBool(NFC, true)
	require.NoError(t, err)
	assert.Equal(t, "1", b.Key())

	s, err := NewString(Model, "  Redmi   Note 13 ")
	require.NoError(t, err)
	assert.Equal(t, "redmi note 13", s.Key())
}
