package minio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DRSN-tech/market-crawler/internal/domain"
	"github.com/DRSN-tech/market-crawler/pkg/e"
	"github.com/DRSN-tech/market-crawler/pkg/jitter"
	"github.com/DRSN-tech/market-crawler/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	mu          sync.Mutex
	objects     map[string]*domain.Image
	deleteFails int
	deletes     int
	statErr     error
}

func newMemRepo(keys ...string) *memRepo {
	r := &memRepo{objects: make(map[string]*domain.Image)}
	for _, k := range keys {
		r.objects[k] = domain.NewImage(k, "image/jpeg", []byte{1})
	}
	return r
}

func (r *memRepo) Exists(_ context.Context, key string) (bool, error) {
	if r.statErr != nil {
		return false, r.statErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.objects[key]
	return ok, nil
}

func (r *memRepo) Upload(_ context.Context, image *domain.Image) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objects[image.ObjectKey] = image
	return image.ObjectKey, nil
}

func (r *memRepo) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes++
	if r.deleteFails > 0 {
		r.deleteFails--
		return errors.New("minio unavailable")
	}
	delete(r.objects, key)
	return nil
}

func newInfra(repo *memRepo) *MinioInfrastructure {
	m := NewMinioInfrastructure(repo, logger.NewNop(), context.Background())
	m.backoff = jitter.NewBackoff(time.Millisecond, 5*time.Millisecond, 0)
	return m
}

func TestMissing(t *testing.T) {
	m := newInfra(newMemRepo("b", "d"))

	missing, err := m.Missing(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "e"}, missing)
}

func TestMissingPropagatesErrors(t *testing.T) {
	repo := newMemRepo()
	repo.statErr = errors.New("access denied")

	_, err := newInfra(repo).Missing(context.Background(), []string{"a", "b"})
	require.Error(t, err)
}

func TestStore(t *testing.T) {
	repo := newMemRepo()
	m := newInfra(repo)
	ctx := context.Background()

	require.NoError(t, m.Store(ctx, "products/mishop/1/a.jpg", []byte{0xff}, "image/jpeg"))
	assert.Equal(t, "image/jpeg", repo.objects["products/mishop/1/a.jpg"].ContentType)

	require.ErrorIs(t, m.Store(ctx, "k", []byte("<html>"), "text/html"), e.ErrUnsupportedMediaType)
	require.ErrorIs(t, m.Store(ctx, "k", nil, "image/png"), e.ErrEmptyImage)
	assert.Len(t, repo.objects, 1)
}

func TestCleanupRetries(t *testing.T) {
	repo := newMemRepo("a", "b")
	repo.deleteFails = 2
	m := newInfra(repo)

	m.CleanupImages([]string{"a", "b"})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, m.WaitForCleanup(ctx))

	assert.Empty(t, repo.objects)
	assert.Equal(t, 4, repo.deletes)
}
