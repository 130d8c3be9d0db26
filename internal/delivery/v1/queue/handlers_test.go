package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/DRSN-tech/market-crawler/internal/cfg"
	"github.com/DRSN-tech/market-crawler/internal/domain"
	"github.com/DRSN-tech/market-crawler/pkg/e"
	"github.com/DRSN-tech/market-crawler/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recUC struct {
	categories []domain.CategoryJob
	pages      []domain.PageJob
	details    []domain.DetailsJob
	images     []domain.ImageJob
	refreshes  int
	err        error
}

func (r *recUC) CrawlCategory(_ context.Context, job domain.CategoryJob) error {
	r.categories = append(r.categories, job)
	return r.err
}

func (r *recUC) CrawlPage(_ context.Context, job domain.PageJob) error {
	r.pages = append(r.pages, job)
	return r.err
}

func (r *recUC) ParseDetails(_ context.Context, job domain.DetailsJob) error {
	r.details = append(r.details, job)
	return r.err
}

func (r *recUC) UploadImage(_ context.Context, job domain.ImageJob) error {
	r.images = append(r.images, job)
	return r.err
}

func (r *recUC) Refresh(context.Context) error {
	r.refreshes++
	return r.err
}

func newHandlers(uc *recUC) *Handlers {
	return NewHandlers(uc, uc, uc, uc, logger.NewNop())
}

func TestHandlers_Decode(t *testing.T) {
	uc := &recUC{}
	h := newHandlers(uc)
	ctx := context.Background()

	require.NoError(t, h.CrawlCategory(ctx, []byte(`{"source":"mishop","category":"smartphones"}`)))
	require.NoError(t, h.CrawlPage(ctx, []byte(`{"source":"pitergsm","category":"tablets","url":"https://pitergsm.ru/catalog/?PAGEN_1=2"}`)))
	require.NoError(t, h.ParseDetails(ctx, []byte(`{"source":"mishop","external_id":"123","product_id":7}`)))
	require.NoError(t, h.UploadImage(ctx, []byte(`{"source":"mishop","external_id":"123","image_url":"https://mi-shop.com/a.jpg","file_path":"mishop/123/a.jpg"}`)))
	require.NoError(t, h.RefreshExchangeRates(ctx, []byte(`{}`)))

	assert.Equal(t, []domain.CategoryJob{{Source: domain.SourceMishop, Category: "smartphones"}}, uc.categories)
	assert.Equal(t, domain.SourcePitergsm, uc.pages[0].Source)
	assert.Equal(t, domain.DetailsJob{Source: domain.SourceMishop, ExternalID: "123", ProductID: 7}, uc.details[0])
	assert.Equal(t, "mishop/123/a.jpg", uc.images[0].FilePath)
	assert.Equal(t, 1, uc.refreshes)
}

func TestHandlers_Malformed(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name   string
		handle func(h *Handlers) error
	}{
		{"broken json", func(h *Handlers) error { return h.CrawlCategory(ctx, []byte(`{"source":`)) }},
		{"unknown source", func(h *Handlers) error { return h.CrawlCategory(ctx, []byte(`{"source":"ozon","category":"x"}`)) }},
		{"no category", func(h *Handlers) error { return h.CrawlCategory(ctx, []byte(`{"source":"mishop"}`)) }},
		{"no url", func(h *Handlers) error { return h.CrawlPage(ctx, []byte(`{"source":"mishop","category":"x"}`)) }},
		{"no product id", func(h *Handlers) error { return h.ParseDetails(ctx, []byte(`{"source":"mishop","external_id":"1"}`)) }},
		{"no image url", func(h *Handlers) error { return h.UploadImage(ctx, []byte(`{"source":"mishop","file_path":"a"}`)) }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc := &recUC{}
			err := tc.handle(newHandlers(uc))
			assert.ErrorIs(t, err, e.ErrMalformedMessage)
			assert.Empty(t, uc.categories)
			assert.Empty(t, uc.pages)
			assert.Empty(t, uc.details)
			assert.Empty(t, uc.images)
		})
	}
}

func TestHandlers_PassesUsecaseError(t *testing.T) {
	boom := errors.New("db down")
	h := newHandlers(&recUC{err: boom})

	err := h.CrawlCategory(context.Background(), []byte(`{"source":"mishop","category":"smartphones"}`))
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, e.ErrMalformedMessage)
}

func TestHandlers_ForRole(t *testing.T) {
	h := newHandlers(&recUC{})
	topics := cfg.TopicsCfg{Category: "c", Page: "p", Details: "d", Image: "i", ExchangeRate: "r"}

	for role, want := range map[cfg.Role]string{
		cfg.RoleCategory:     "c",
		cfg.RolePage:         "p",
		cfg.RoleDetails:      "d",
		cfg.RoleImage:        "i",
		cfg.RoleExchangeRate: "r",
	} {
		topic, handle, err := h.ForRole(role, topics)
		require.NoError(t, err)
		assert.Equal(t, want, topic)
		assert.NotNil(t, handle)
	}

	_, _, err := h.ForRole(cfg.RoleScheduler, topics)
	assert.ErrorIs(t, err, e.ErrUnknownQueue)
}
