package usecase

import (
	"context"
	"errors"
	"slices"

	"github.com/DRSN-tech/market-crawler/internal/characteristic"
	"github.com/DRSN-tech/market-crawler/internal/domain"
	"github.com/DRSN-tech/market-crawler/internal/extract"
	"github.com/DRSN-tech/market-crawler/pkg/e"
	"github.com/DRSN-tech/market-crawler/pkg/logger"
)

// DetailsUseCase разбирает страницу товара: описание, фото и характеристики.
type DetailsUseCase struct {
	crawlers        CrawlerRegistry
	fetcher         PageFetcher
	engine          *extract.Engine
	products        ProductRepository
	characteristics CharacteristicRepository
	images          ImagesInfra
	queue           JobQueue
	tx              TxManager
	reporter        Reporter
	logger          logger.Logger
}

func NewDetailsUC(
	crawlers CrawlerRegistry,
	fetcher PageFetcher,
	engine *extract.Engine,
	products ProductRepository,
	characteristics CharacteristicRepository,
	images ImagesInfra,
	queue JobQueue,
	tx TxManager,
	reporter Reporter,
	logger logger.Logger,
) *DetailsUseCase {
	return &DetailsUseCase{
		crawlers:        crawlers,
		fetcher:         fetcher,
		engine:          engine,
		products:        products,
		characteristics: characteristics,
		images:          images,
		queue:           queue,
		tx:              tx,
		reporter:        reporter,
		logger:          logger,
	}
}

// ParseDetails обрабатывает DetailsJob. Повторная обработка того же задания
// перезаписывает те же строки и не создаёт дубликатов.
func (d *DetailsUseCase) ParseDetails(ctx context.Context, job domain.DetailsJob) error {
	const op = "DetailsUseCase.ParseDetails"

	cr, err := d.crawlers.Get(job.Source)
	if err != nil {
		return e.Wrap(op, err)
	}

	fields := map[string]any{"source": job.Source.String(), "external_id": job.ExternalID, "product_id": job.ProductID}

	product, err := d.products.GetByID(ctx, job.ProductID)
	if errors.Is(err, e.ErrNotFound) {
		d.report(domain.LevelWarning, domain.AnomalyProductMissing, "details job for a missing product", fields)
		return nil
	}
	if err != nil {
		return e.Wrap(op, err)
	}

	doc, err := d.fetcher.Fetch(ctx, job.Source, cr.DetailURL(job.ExternalID))
	if errors.Is(err, e.ErrNotFound) {
		d.report(domain.LevelWarning, domain.AnomalyFetchFailed, err.Error(), fields)
		return nil
	}
	if err != nil {
		return e.Wrap(op, err)
	}

	info, err := cr.ExtractDetail(doc, job.ExternalID)
	if errors.Is(err, e.ErrNodeNotFound) {
		d.report(domain.LevelWarning, domain.AnomalyNodeNotFound, err.Error(), fields)
		return nil
	}
	if err != nil {
		return e.Wrap(op, err)
	}

	values := d.extractCharacteristics(info.Characteristics, fields)
	valueIDs, err := d.intern(ctx, values)
	if err != nil {
		return e.Wrap(op, err)
	}

	description := info.Description
	if description == "" {
		description = product.Description
	}

	imageURLs := make(map[string]string, len(info.Images))
	keys := make([]string, 0, len(info.Images))
	for _, u := range info.Images {
		key := domain.ImageObjectKey(job.Source, job.ExternalID, u)
		if _, dup := imageURLs[key]; dup {
			continue
		}
		imageURLs[key] = u
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		keys = product.Images
	}

	available := product.Enabled
	if info.Available != nil {
		available = *info.Available
	}
	enabled := available && description != "" && len(keys) > 0

	err = d.tx.Do(ctx, func(ctx context.Context) error {
		if err := d.products.UpdateDetails(ctx, product.ID, description, keys, enabled); err != nil {
			return err
		}
		return d.characteristics.ReplaceProductValues(ctx, product.ID, valueIDs)
	})
	if err != nil {
		return e.Wrap(op, err)
	}

	if removed := removedKeys(product.Images, keys); len(removed) > 0 {
		d.images.CleanupImages(removed)
	}

	return d.scheduleImages(ctx, job, imageURLs, keys)
}

// extractCharacteristics прогоняет пары через движок и отправляет в телеметрию
// нераспознанные подписи и значения.
func (d *DetailsUseCase) extractCharacteristics(pairs []domain.RawCharacteristic, fields map[string]any) []characteristic.Value {
	res := d.engine.Extract(pairs)

	for _, p := range res.Unknown {
		d.report(domain.LevelInfo, domain.AnomalyUnknownCharacteristic, "unknown characteristic label", with(fields, map[string]any{
			"label": p.Label, "value": p.Value,
		}))
	}
	for _, f := range res.Failures {
		d.report(domain.LevelInfo, domain.AnomalyUnparsableValue, f.Err.Error(), with(fields, map[string]any{
			"label": f.Pair.Label, "value": f.Pair.Value, "characteristic": f.Target.String(),
		}))
	}
	return res.Values
}

// intern переводит значения в идентификаторы. Int и Bool хранят число как есть.
func (d *DetailsUseCase) intern(ctx context.Context, values []characteristic.Value) (map[characteristic.ID][]int64, error) {
	out := make(map[characteristic.ID][]int64, len(values))
	for _, v := range values {
		var id int64
		switch tv := v.(type) {
		case characteristic.IntValue:
			id = tv.IntID()
		case characteristic.BoolValue:
			id = tv.IntID()
		default:
			interned, err := d.characteristics.Intern(ctx, v)
			if err != nil {
				return nil, err
			}
			id = interned
		}
		cid := v.CharacteristicID()
		if !slices.Contains(out[cid], id) {
			out[cid] = append(out[cid], id)
		}
	}
	return out, nil
}

// scheduleImages ставит задания на загрузку картинок, которых ещё нет в хранилище.
func (d *DetailsUseCase) scheduleImages(ctx context.Context, job domain.DetailsJob, urls map[string]string, keys []string) error {
	const op = "DetailsUseCase.scheduleImages"

	candidates := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := urls[k]; ok {
			candidates = append(candidates, k)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	missing, err := d.images.Missing(ctx, candidates)
	if err != nil {
		return e.Wrap(op, err)
	}

	for _, key := range missing {
		err := d.queue.EnqueueImage(ctx, domain.ImageJob{
			FilePath:   key,
			ImageURL:   urls[key],
			ExternalID: job.ExternalID,
			Source:     job.Source,
		})
		if err != nil {
			return e.Wrap(op, err)
		}
	}
	return nil
}

func (d *DetailsUseCase) report(level domain.Level, kind, message string, fields map[string]any) {
	d.reporter.Report(domain.Anomaly{Level: level, Kind: kind, Message: message, Fields: fields})
}

func removedKeys(before, after []string) []string {
	var out []string
	for _, k := range before {
		if !slices.Contains(after, k) {
			out = append(out, k)
		}
	}
	return out
}

func with(base, extra map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
