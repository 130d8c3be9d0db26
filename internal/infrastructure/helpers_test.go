package infrastructure

import (
	"testing"

	"github.com/DRSN-tech/market-crawler/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetExtensionFromMIME(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"image/jpeg", "jpg"},
		{"image/jpg", "jpg"},
		{"IMAGE/PNG", "png"},
		{"image/webp; charset=binary", "webp"},
	}
	for _, tt := range tests {
		got, err := GetExtensionFromMIME(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	for _, bad := range []string{"text/html", "", "image/gif"} {
		_, err := GetExtensionFromMIME(bad)
		assert.ErrorIs(t, err, e.ErrUnsupportedMediaType, bad)
	}
}
