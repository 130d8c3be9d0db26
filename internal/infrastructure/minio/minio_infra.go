package minio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/DRSN-tech/market-crawler/internal/domain"
	"github.com/DRSN-tech/market-crawler/internal/infrastructure"
	"github.com/DRSN-tech/market-crawler/internal/usecase"
	"github.com/DRSN-tech/market-crawler/pkg/e"
	"github.com/DRSN-tech/market-crawler/pkg/jitter"
	"github.com/DRSN-tech/market-crawler/pkg/logger"
)

const (
	defaultCheckLimit  = 8
	cleanupAttempts    = 3
	cleanupTimeout     = 30 * time.Second
	cleanupBaseBackoff = time.Second
)

// MinioInfrastructure управляет изображениями товаров в MinIO: проверкой
// наличия, загрузкой и фоновой очисткой.
type MinioInfrastructure struct {
	minioRepo   usecase.ImageRepository
	logger      logger.Logger
	shutdownCtx context.Context
	wg          sync.WaitGroup
	checkLimit  int
	backoff     jitter.Backoff
}

func NewMinioInfrastructure(minioRepo usecase.ImageRepository, logger logger.Logger, shutdownCtx context.Context) *MinioInfrastructure {
	return &MinioInfrastructure{
		minioRepo:   minioRepo,
		logger:      logger,
		shutdownCtx: shutdownCtx,
		checkLimit:  defaultCheckLimit,
		backoff:     jitter.NewBackoff(cleanupBaseBackoff, 10*time.Second, jitter.DefaultJitter),
	}
}

// Missing проверяет ключи параллельно с ограничением одновременных запросов
// и возвращает отсутствующие в исходном порядке.
func (m *MinioInfrastructure) Missing(ctx context.Context, keys []string) ([]string, error) {
	const op = "MinioInfrastructure.Missing"

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	exists := make([]bool, len(keys))
	errCh := make(chan error, len(keys))
	sem := make(chan struct{}, m.checkLimit)

	var wg sync.WaitGroup
	for i, key := range keys {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			ok, err := m.minioRepo.Exists(ctx, key)
			if err != nil {
				errCh <- fmt.Errorf("stat %s: %w", key, err)
				cancel()
				return
			}
			exists[i] = ok
		}()
	}
	wg.Wait()
	close(errCh)

	if err, ok := <-errCh; ok {
		return nil, e.Wrap(op, err)
	}

	var missing []string
	for i, key := range keys {
		if !exists[i] {
			missing = append(missing, key)
		}
	}
	return missing, nil
}

// Store проверяет тип содержимого и загружает объект под заданным ключом.
func (m *MinioInfrastructure) Store(ctx context.Context, key string, data []byte, contentType string) error {
	const op = "MinioInfrastructure.Store"

	if len(data) == 0 {
		return e.Wrap(op, e.ErrEmptyImage)
	}
	if _, err := infrastructure.GetExtensionFromMIME(contentType); err != nil {
		return e.Wrap(op, fmt.Errorf("%s for %s: %w", contentType, key, err))
	}

	if _, err := m.minioRepo.Upload(ctx, domain.NewImage(key, contentType, data)); err != nil {
		return e.Wrap(op, err)
	}

	m.logger.Debugf("image %s stored, %d bytes", key, len(data))
	return nil
}

// CleanupImages запускает фоновую очистку указанных ключей MinIO
func (m *MinioInfrastructure) CleanupImages(keys []string) {
	if len(keys) == 0 {
		return
	}
	m.wg.Add(1)
	go m.cleanupKeys(keys)
}

// cleanupKeys удаляет указанные объекты из MinIO с экспоненциальной задержкой и jitter.
func (m *MinioInfrastructure) cleanupKeys(keys []string) {
	defer m.wg.Done()
	const op = "MinioInfrastructure.cleanupKeys"
	m.logger.Infof("%s: cleaning up %d keys", op, len(keys))

	ctx, cancel := context.WithTimeout(m.shutdownCtx, cleanupTimeout)
	defer cancel()

	for _, key := range keys {
		for attempt := range cleanupAttempts {
			err := m.minioRepo.Delete(ctx, key)
			if err == nil {
				break
			}

			if attempt == cleanupAttempts-1 {
				m.logger.Errorf(err, "%s: giving up on key=%s", op, key)
				break
			}

			select {
			case <-time.After(m.backoff.Delay(attempt)):
			case <-ctx.Done():
				m.logger.Warnf("cleanup interrupted by shutdown, key=%v", key)
				return
			}
		}
	}
}

// WaitForCleanup ожидает завершения всех фоновых задач очистки с учётом таймаута завершения приложения.
func (m *MinioInfrastructure) WaitForCleanup(shutdownTimeoutCtx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-shutdownTimeoutCtx.Done():
		return fmt.Errorf("minio cleanup timeout during shutdown: %w", shutdownTimeoutCtx.Err())
	}
}
