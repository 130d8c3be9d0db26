package usecase

import (
	"context"
	"testing"

	"github.com/DRSN-tech/market-crawler/internal/characteristic"
	"github.com/DRSN-tech/market-crawler/internal/domain"
	"github.com/DRSN-tech/market-crawler/internal/extract"
	"github.com/DRSN-tech/market-crawler/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type detailsFixture struct {
	crawler  *stubCrawler
	fetcher  *pageFetcher
	products *memProducts
	chars    *memCharacteristics
	images   *memImages
	queue    *memQueue
	reporter *recReporter
	uc       *DetailsUseCase
}

func newDetailsFixture(t *testing.T, info *domain.AdditionalInfo) *detailsFixture {
	t.Helper()

	eng, err := extract.NewEngine(extract.DefaultRules())
	require.NoError(t, err)

	f := &detailsFixture{
		crawler:  &stubCrawler{detail: info},
		fetcher:  &pageFetcher{pages: map[string]string{"https://shop.test/product/42": `<div class="product"></div>`}},
		products: newMemProducts(),
		chars:    newMemCharacteristics(),
		images:   newMemImages(),
		queue:    &memQueue{},
		reporter: &recReporter{},
	}
	f.uc = NewDetailsUC(stubRegistry(f.crawler), f.fetcher, eng, f.products, f.chars, f.images, f.queue, directTx{}, f.reporter, logger.NewNop())
	return f
}

func (f *detailsFixture) seedProduct(t *testing.T) int64 {
	t.Helper()
	p, _, err := f.products.Create(context.Background(), domain.NewProduct("Redmi 13", 1, decimal.NewFromInt(100)))
	require.NoError(t, err)
	return p.ID
}

func detailInfo() *domain.AdditionalInfo {
	available := true
	return &domain.AdditionalInfo{
		Description: "Смартфон с большим экраном",
		Images:      []string{"https://cdn.shop.test/1.jpg", "https://cdn.shop.test/2.png", "https://cdn.shop.test/1.jpg"},
		Available:   &available,
		Characteristics: []domain.RawCharacteristic{
			{Label: "Частота процессора", Value: "2,2 ГГц"},
			{Label: "NFC", Value: "Есть"},
			{Label: "Цвет корпуса по версии продавца", Value: "Полночный синий"},
		},
	}
}

func TestParseDetails(t *testing.T) {
	f := newDetailsFixture(t, detailInfo())
	id := f.seedProduct(t)
	ctx := context.Background()
	job := domain.DetailsJob{ExternalID: "42", Source: domain.SourceMishop, ProductID: id}

	require.NoError(t, f.uc.ParseDetails(ctx, job))

	p := f.products.get(id)
	assert.True(t, p.Enabled)
	assert.Equal(t, "Смартфон с большим экраном", p.Description)
	require.Len(t, p.Images, 2)
	assert.Equal(t, domain.ImageObjectKey(domain.SourceMishop, "42", "https://cdn.shop.test/1.jpg"), p.Images[0])

	values := f.chars.values[id]
	assert.Contains(t, values, characteristic.CPUFrequency)
	assert.Equal(t, []int64{1}, values[characteristic.NFC])

	require.Len(t, f.queue.images, 2)
	assert.Equal(t, "https://cdn.shop.test/2.png", f.queue.images[1].ImageURL)
	assert.Contains(t, f.reporter.kinds(), domain.AnomalyUnknownCharacteristic)
}

func TestParseDetailsReplayIsIdempotent(t *testing.T) {
	f := newDetailsFixture(t, detailInfo())
	id := f.seedProduct(t)
	ctx := context.Background()
	job := domain.DetailsJob{ExternalID: "42", Source: domain.SourceMishop, ProductID: id}

	require.NoError(t, f.uc.ParseDetails(ctx, job))
	first := f.products.get(id)
	interned := len(f.chars.interned)

	for _, img := range f.queue.images {
		require.NoError(t, f.images.Store(ctx, img.FilePath, []byte{1}, "image/jpeg"))
	}

	require.NoError(t, f.uc.ParseDetails(ctx, job))
	assert.Equal(t, first, f.products.get(id))
	assert.Equal(t, interned, len(f.chars.interned))
	assert.Len(t, f.queue.images, 2, "stored images are not scheduled again")
	assert.Empty(t, f.images.cleaned)
}

func TestParseDetailsCleansRemovedImages(t *testing.T) {
	info := detailInfo()
	f := newDetailsFixture(t, info)
	id := f.seedProduct(t)
	ctx := context.Background()
	job := domain.DetailsJob{ExternalID: "42", Source: domain.SourceMishop, ProductID: id}

	require.NoError(t, f.uc.ParseDetails(ctx, job))
	info.Images = info.Images[1:2]
	require.NoError(t, f.uc.ParseDetails(ctx, job))

	assert.Equal(t, []string{domain.ImageObjectKey(domain.SourceMishop, "42", "https://cdn.shop.test/1.jpg")}, f.images.cleaned)
	assert.Len(t, f.products.get(id).Images, 1)
}

func TestParseDetailsUnavailableStaysDisabled(t *testing.T) {
	info := detailInfo()
	unavailable := false
	info.Available = &unavailable
	f := newDetailsFixture(t, info)
	id := f.seedProduct(t)

	require.NoError(t, f.uc.ParseDetails(context.Background(), domain.DetailsJob{ExternalID: "42", Source: domain.SourceMishop, ProductID: id}))
	assert.False(t, f.products.get(id).Enabled)
	assert.NotEmpty(t, f.products.get(id).Description)
}

func TestParseDetailsAcksPermanentFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("missing product", func(t *testing.T) {
		f := newDetailsFixture(t, detailInfo())
		require.NoError(t, f.uc.ParseDetails(ctx, domain.DetailsJob{ExternalID: "42", Source: domain.SourceMishop, ProductID: 999}))
		assert.Equal(t, []string{domain.AnomalyProductMissing}, f.reporter.kinds())
	})

	t.Run("page gone", func(t *testing.T) {
		f := newDetailsFixture(t, detailInfo())
		id := f.seedProduct(t)
		require.NoError(t, f.uc.ParseDetails(ctx, domain.DetailsJob{ExternalID: "13", Source: domain.SourceMishop, ProductID: id}))
		assert.Equal(t, []string{domain.AnomalyFetchFailed}, f.reporter.kinds())
	})

	t.Run("no product node", func(t *testing.T) {
		f := newDetailsFixture(t, detailInfo())
		f.fetcher.pages["https://shop.test/product/42"] = "<html><body>404</body></html>"
		id := f.seedProduct(t)
		require.NoError(t, f.uc.ParseDetails(ctx, domain.DetailsJob{ExternalID: "42", Source: domain.SourceMishop, ProductID: id}))
		assert.Equal(t, []string{domain.AnomalyNodeNotFound}, f.reporter.kinds())
		p := f.products.get(id)
		assert.False(t, p.HasDetails())
	})
}
