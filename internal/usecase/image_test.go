package usecase

import (
	"context"
	"testing"

	"github.com/DRSN-tech/market-crawler/internal/domain"
	"github.com/DRSN-tech/market-crawler/pkg/e"
	"github.com/DRSN-tech/market-crawler/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDownloader struct {
	data        []byte
	contentType string
	err         error
	calls       int
}

func (d *stubDownloader) Download(context.Context, domain.Source, string, int64) ([]byte, string, error) {
	d.calls++
	return d.data, d.contentType, d.err
}

func imageJob() domain.ImageJob {
	url := "https://cdn.shop.test/1.jpg"
	return domain.ImageJob{
		FilePath:   domain.ImageObjectKey(domain.SourceMishop, "42", url),
		ImageURL:   url,
		ExternalID: "42",
		Source:     domain.SourceMishop,
	}
}

func TestUploadImage(t *testing.T) {
	images := newMemImages()
	dl := &stubDownloader{data: []byte{0xff, 0xd8}, contentType: "image/jpeg"}
	uc := NewImageUC(dl, images, &recReporter{}, logger.NewNop(), 1<<20)
	ctx := context.Background()

	require.NoError(t, uc.UploadImage(ctx, imageJob()))
	assert.Equal(t, []byte{0xff, 0xd8}, images.stored[imageJob().FilePath])

	require.NoError(t, uc.UploadImage(ctx, imageJob()))
	assert.Equal(t, 1, dl.calls, "stored image is not downloaded again")
}

func TestUploadImageRejected(t *testing.T) {
	tests := []struct {
		name string
		dl   *stubDownloader
	}{
		{"not found", &stubDownloader{err: e.ErrNotFound}},
		{"too large", &stubDownloader{err: e.ErrUnsupportedMediaType}},
		{"not an image", &stubDownloader{data: []byte("<html>"), contentType: "text/html"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			images := newMemImages()
			reporter := &recReporter{}
			uc := NewImageUC(tt.dl, images, reporter, logger.NewNop(), 1<<20)

			require.NoError(t, uc.UploadImage(context.Background(), imageJob()))
			assert.Equal(t, []string{domain.AnomalyImageRejected}, reporter.kinds())
			assert.Empty(t, images.stored)
		})
	}
}

func TestUploadImageTransientError(t *testing.T) {
	uc := NewImageUC(&stubDownloader{err: e.ErrUnexpectedStatus}, newMemImages(), &recReporter{}, logger.NewNop(), 1<<20)
	require.ErrorIs(t, uc.UploadImage(context.Background(), imageJob()), e.ErrUnexpectedStatus)
}
