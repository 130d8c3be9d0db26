package usecase

import (
	"context"
	"errors"

	"github.com/DRSN-tech/market-crawler/internal/domain"
	"github.com/DRSN-tech/market-crawler/pkg/e"
	"github.com/DRSN-tech/market-crawler/pkg/logger"
)

// ImageUseCase переносит картинку товара с маркетплейса в объектное хранилище.
type ImageUseCase struct {
	downloader   ImageDownloader
	images       ImagesInfra
	reporter     Reporter
	logger       logger.Logger
	maxImageSize int64
}

func NewImageUC(downloader ImageDownloader, images ImagesInfra, reporter Reporter, logger logger.Logger, maxImageSize int64) *ImageUseCase {
	return &ImageUseCase{
		downloader:   downloader,
		images:       images,
		reporter:     reporter,
		logger:       logger,
		maxImageSize: maxImageSize,
	}
}

// UploadImage идемпотентна: уже загруженный объект не скачивается повторно.
// Временные ошибки возвращаются, чтобы задание было доставлено ещё раз.
func (u *ImageUseCase) UploadImage(ctx context.Context, job domain.ImageJob) error {
	const op = "ImageUseCase.UploadImage"

	missing, err := u.images.Missing(ctx, []string{job.FilePath})
	if err != nil {
		return e.Wrap(op, err)
	}
	if len(missing) == 0 {
		u.logger.Debugf("image %s already stored", job.FilePath)
		return nil
	}

	fields := map[string]any{"source": job.Source.String(), "external_id": job.ExternalID, "url": job.ImageURL}

	data, contentType, err := u.downloader.Download(ctx, job.Source, job.ImageURL, u.maxImageSize)
	switch {
	case errors.Is(err, e.ErrNotFound), errors.Is(err, e.ErrUnsupportedMediaType):
		u.reporter.Report(domain.Anomaly{Level: domain.LevelWarning, Kind: domain.AnomalyImageRejected, Message: err.Error(), Fields: fields})
		return nil
	case err != nil:
		return e.Wrap(op, err)
	}

	err = u.images.Store(ctx, job.FilePath, data, contentType)
	switch {
	case errors.Is(err, e.ErrUnsupportedMediaType), errors.Is(err, e.ErrEmptyImage):
		u.reporter.Report(domain.Anomaly{Level: domain.LevelWarning, Kind: domain.AnomalyImageRejected, Message: err.Error(), Fields: fields})
		return nil
	case err != nil:
		return e.Wrap(op, err)
	}

	return nil
}
