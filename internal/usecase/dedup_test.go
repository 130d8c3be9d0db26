package usecase

import (
	"testing"

	"github.com/DRSN-tech/market-crawler/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func priced(id, price string) domain.LocalProduct {
	return domain.LocalProduct{ExternalID: id, Price: decimal.RequireFromString(price)}
}

func TestDeduplicatorAdd(t *testing.T) {
	eps := decimal.RequireFromString("0.01")

	t.Run("tiny difference is not a conflict", func(t *testing.T) {
		fresh, conflicts := NewDeduplicator(eps).Add([]domain.LocalProduct{priced("a", "100.00"), priced("a", "100.0000001")})
		require.Len(t, fresh, 1)
		assert.True(t, fresh[0].Price.Equal(decimal.NewFromInt(100)))
		assert.Empty(t, conflicts)
	})

	t.Run("different price keeps the first", func(t *testing.T) {
		fresh, conflicts := NewDeduplicator(eps).Add([]domain.LocalProduct{priced("a", "100"), priced("b", "5"), priced("a", "120")})
		require.Len(t, fresh, 2)
		require.Len(t, conflicts, 1)
		assert.Equal(t, "a", conflicts[0].ExternalID)
		assert.True(t, conflicts[0].Kept.Equal(decimal.NewFromInt(100)))
		assert.True(t, conflicts[0].Dropped.Equal(decimal.NewFromInt(120)))
	})
}

func TestDeduplicatorRemembersAcrossBatches(t *testing.T) {
	d := NewDeduplicator(decimal.Zero)

	fresh, _ := d.Add([]domain.LocalProduct{priced("a", "1"), priced("b", "2")})
	assert.Len(t, fresh, 2)

	fresh, conflicts := d.Add([]domain.LocalProduct{priced("b", "2"), priced("c", "3")})
	require.Len(t, fresh, 1)
	assert.Equal(t, "c", fresh[0].ExternalID)
	assert.Empty(t, conflicts)
}
