package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	config "github.com/DRSN-tech/market-crawler/internal/cfg"
	"github.com/DRSN-tech/market-crawler/internal/crawler"
	v1Http "github.com/DRSN-tech/market-crawler/internal/delivery/v1/http"
	v1Queue "github.com/DRSN-tech/market-crawler/internal/delivery/v1/queue"
	"github.com/DRSN-tech/market-crawler/internal/domain"
	"github.com/DRSN-tech/market-crawler/internal/extract"
	"github.com/DRSN-tech/market-crawler/internal/infrastructure/currency"
	"github.com/DRSN-tech/market-crawler/internal/infrastructure/kafka"
	minioInfra "github.com/DRSN-tech/market-crawler/internal/infrastructure/minio"
	"github.com/DRSN-tech/market-crawler/internal/infrastructure/telemetry"
	s3Repo "github.com/DRSN-tech/market-crawler/internal/repository/minio"
	"github.com/DRSN-tech/market-crawler/internal/repository/pgdb"
	"github.com/DRSN-tech/market-crawler/internal/repository/redis"
	"github.com/DRSN-tech/market-crawler/internal/usecase"
	"github.com/DRSN-tech/market-crawler/pkg/clients"
	"github.com/DRSN-tech/market-crawler/pkg/closer"
	"github.com/DRSN-tech/market-crawler/pkg/e"
	"github.com/DRSN-tech/market-crawler/pkg/logger"
	"github.com/DRSN-tech/market-crawler/pkg/postgres"
	"github.com/DRSN-tech/market-crawler/pkg/tr"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
)

const (
	telemetryBuffer    = 1024
	topicsTimeout      = 10 * time.Second
	dependencyTimeout  = 10 * time.Second
	cleanupWaitTimeout = 5 * time.Second
)

// App собирает процесс воркера одной роли со всеми зависимостями.
type App struct {
	cfg    *config.Config
	logger logger.Logger
	closer *closer.Closer

	// ctx отменяется при остановке и прерывает фоновые задачи инфраструктуры.
	ctx    context.Context
	cancel context.CancelFunc

	httpSrv   *v1Http.Server
	consumer  *kafka.Consumer
	handle    kafka.Handler
	scheduler *usecase.SchedulerUseCase
	images    *minioInfra.MinioInfrastructure
}

// NewApp подключается к зависимостям и собирает воркер роли cfg.Worker.Role.
// При ошибке уже открытые ресурсы закрываются.
func NewApp(cfg *config.Config, log logger.Logger) (_ *App, err error) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		cfg:    cfg,
		logger: log.With("role", string(cfg.Worker.Role)),
		closer: closer.NewCloser(),
		ctx:    ctx,
		cancel: cancel,
	}
	defer func() {
		if err != nil {
			cancel()
			closeCtx, closeCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
			defer closeCancel()
			if closeErr := a.closer.Close(closeCtx); closeErr != nil {
				a.logger.Warnf("failed to release resources: %v", closeErr)
			}
		}
	}()

	if err := a.init(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	return a, nil
}

func (a *App) init() error {
	cfg, log := a.cfg, a.logger

	db, err := initPGDB(a.ctx, log, cfg)
	if err != nil {
		return err
	}
	a.closer.AddSimple("postgres", db.Close)

	redisClient := clients.NewRedisClient(cfg.Redis)
	a.closer.Add("redis", func(context.Context) error { return redisClient.Close() })
	redisCtx, redisCancel := context.WithTimeout(a.ctx, dependencyTimeout)
	defer redisCancel()
	if err := redisClient.Ping(redisCtx); err != nil {
		log.Errorf(err, "failed to connect to redis")
		return err
	}

	minioClient, err := clients.NewMinIOClient(cfg.Minio)
	if err != nil {
		log.Errorf(err, "failed to initialize minio client")
		return err
	}
	minioCtx, minioCancel := context.WithTimeout(a.ctx, dependencyTimeout)
	defer minioCancel()
	if err := clients.EnsureBucket(minioCtx, minioClient, cfg.Minio.BucketName); err != nil {
		log.Errorf(err, "failed to initialize MinIO bucket")
		return err
	}

	producer := kafka.NewProducer(log, cfg.Kafka)
	a.closer.Add("kafka producer", func(context.Context) error { return producer.Close() })
	if err := producer.EnsureTopics(topicsTimeout); err != nil {
		log.Errorf(err, "failed to ensure kafka topics")
		return err
	}

	reporter := telemetry.NewReporter(log, telemetryBuffer)
	a.closer.Add("telemetry", reporter.Close)

	// репозитории
	productRepo := pgdb.NewProductRepo(db.Pool)
	sourceProductRepo := pgdb.NewSourceProductRepo(db.Pool)
	historyRepo := pgdb.NewPriceHistoryRepo(db.Pool)
	categoryRepo := pgdb.NewCategoryRepo(db.Pool)
	characteristicRepo := pgdb.NewCharacteristicRepo(db.Pool)
	sourceRepo := pgdb.NewSourceRepo(db.Pool)
	rateRepo := pgdb.NewExchangeRateRepo(db.Pool)
	cacheRepo := redis.NewCacheRepo(redisClient, cfg.Redis, log)
	imageRepo := s3Repo.NewImageRepo(minioClient, cfg.Minio)
	txManager := tr.NewManager(db.Pool)

	bootCtx, bootCancel := context.WithTimeout(a.ctx, dependencyTimeout)
	defer bootCancel()
	if err := usecase.Bootstrap(bootCtx, characteristicRepo, sourceRepo); err != nil {
		log.Errorf(err, "failed to bootstrap reference data")
		return err
	}

	// инфраструктура
	registry, err := crawler.NewRegistry(cfg.Crawler)
	if err != nil {
		log.Errorf(err, "failed to build crawler registry")
		return err
	}
	engine, err := extract.NewEngine(extract.DefaultRules())
	if err != nil {
		log.Errorf(err, "invalid characteristic rules")
		return err
	}
	fetcher := crawler.NewFetcher(cfg.Crawler, log)
	queue := kafka.NewQueue(producer, cfg.Kafka.Topics)
	a.images = minioInfra.NewMinioInfrastructure(imageRepo, log, a.ctx)

	// usecase
	rateUC := usecase.NewExchangeRateUC(
		currency.NewClient(cfg.Currency),
		rateRepo,
		cacheRepo,
		domain.Currency(cfg.Currency.Base),
		currencies(cfg.Currency.Symbols),
		log,
	)
	reconciler := usecase.NewReconciler(productRepo, sourceProductRepo, historyRepo, log)
	crawlUC := usecase.NewCrawlUC(
		registry,
		fetcher,
		queue,
		reconciler,
		categoryRepo,
		rateUC,
		reporter,
		log,
		usecase.CrawlOptions{
			PageWindow:         cfg.Crawler.PageWindow,
			MaxPages:           cfg.Crawler.MaxPages,
			PersistConcurrency: cfg.Worker.PersistConcurrency,
			DedupEpsilon:       cfg.Crawler.DedupEpsilon,
		},
	)
	detailsUC := usecase.NewDetailsUC(
		registry,
		fetcher,
		engine,
		productRepo,
		characteristicRepo,
		a.images,
		queue,
		txManager,
		reporter,
		log,
	)
	imageUC := usecase.NewImageUC(fetcher, a.images, reporter, log, cfg.Minio.MaxImageSize)

	// доставка
	if cfg.Worker.Role == config.RoleScheduler {
		a.scheduler = usecase.NewSchedulerUC(crawlers(registry), queue, log)
	} else {
		handlers := v1Queue.NewHandlers(crawlUC, detailsUC, imageUC, rateUC, log)
		topic, handle, err := handlers.ForRole(cfg.Worker.Role, cfg.Kafka.Topics)
		if err != nil {
			log.Errorf(err, "failed to select queue")
			return err
		}
		policy := kafka.NewRetryPolicy(cfg.Worker.RetryMaxAttempts, cfg.Worker.RetryBaseDelay, cfg.Worker.RetryMaxDelay)
		a.consumer = kafka.NewConsumer(log, cfg.Kafka, topic, cfg.Worker.Prefetch, policy, producer)
		a.handle = handle
		a.closer.Add("kafka consumer", func(context.Context) error { return a.consumer.Close() })
	}
	a.closer.Add("minio cleanup", a.waitForCleanup)

	r := chi.NewRouter()
	v1Http.NewRouter(r, log).Init(
		v1Http.HealthCheck{Name: "postgres", Check: db.Ping},
		v1Http.HealthCheck{Name: "redis", Check: redisClient.Ping},
	)
	a.httpSrv = v1Http.NewServer(r, cfg.Http)

	return nil
}

// Run запускает воркер и блокируется до сигнала остановки или фатальной ошибки.
func (a *App) Run() error {
	httpErrCh := make(chan error, 1)
	go func() {
		a.logger.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		if err := a.httpSrv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErrCh <- err
		}
	}()

	workErrCh := make(chan error, 1)
	workDone := make(chan struct{})
	go func() {
		defer close(workDone)
		if err := a.work(); err != nil {
			workErrCh <- err
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	var appErr error
	select {
	case appErr = <-httpErrCh:
		a.logger.Errorf(appErr, "HTTP server fatal error")
	case appErr = <-workErrCh:
		a.logger.Errorf(appErr, "worker stopped with error")
	case <-shutdown:
		a.logger.Infof("Received shutdown signal, stopping gracefully...")
	}

	a.cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	select {
	case <-workDone:
	case <-shutdownCtx.Done():
		a.logger.Warnf("in-flight messages did not finish before shutdown")
	}

	if err := a.httpSrv.Stop(shutdownCtx); err != nil {
		a.logger.Errorf(err, "HTTP server shutdown error")
	}

	if err := a.closer.Close(shutdownCtx); err != nil {
		a.logger.Warnf("shutdown finished with errors: %v", err)
	}

	a.logger.Infof("Application shutdown complete")
	return appErr
}

// work выполняет роль воркера: читает свою очередь или ставит задания по расписанию.
func (a *App) work() error {
	if a.scheduler != nil {
		return a.schedule()
	}
	return a.consumer.Run(a.ctx, a.handle)
}

// schedule ставит CategoryJob сразу при старте, а затем раз в CrawlInterval.
// Задание на обновление курсов ставится раз в ExchangeRateInterval.
func (a *App) schedule() error {
	crawlTicker := time.NewTicker(a.cfg.Worker.CrawlInterval)
	defer crawlTicker.Stop()
	rateTicker := time.NewTicker(a.cfg.Worker.ExchangeRateInterval)
	defer rateTicker.Stop()

	a.scheduleOnce(a.scheduler.ScheduleExchangeRates)
	a.scheduleOnce(a.scheduler.ScheduleCrawl)
	for {
		select {
		case <-a.ctx.Done():
			return nil
		case <-rateTicker.C:
			a.scheduleOnce(a.scheduler.ScheduleExchangeRates)
		case <-crawlTicker.C:
			a.scheduleOnce(a.scheduler.ScheduleCrawl)
		}
	}
}

func (a *App) scheduleOnce(fn func(ctx context.Context) error) {
	if err := fn(a.ctx); err != nil && a.ctx.Err() == nil {
		a.logger.Errorf(err, "failed to schedule jobs")
	}
}

// waitForCleanup ждёт фоновые удаления изображений, но не дольше cleanupWaitTimeout.
func (a *App) waitForCleanup(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, cleanupWaitTimeout)
	defer cancel()

	if err := a.images.WaitForCleanup(ctx); err != nil {
		a.logger.Warnf("MinIO cleanup did not finish before shutdown, some objects may remain: %v", err)
		return nil
	}
	a.logger.Infof("MinIO cleanup completed")
	return nil
}

func initPGDB(ctx context.Context, logger logger.Logger, cfg *config.Config) (*postgres.PgDatabase, error) {
	connectCtx, cancel := context.WithTimeout(ctx, dependencyTimeout)
	defer cancel()

	db, err := postgres.Connect(connectCtx, cfg.Db)
	if err != nil {
		logger.Errorf(err, "failed to connect to database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.RunMigrations(logger); err != nil {
		db.Close()
		logger.Errorf(err, "failed to run migrations")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}

func currencies(symbols []string) []domain.Currency {
	out := make([]domain.Currency, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, domain.Currency(s))
	}
	return out
}

// crawlers возвращает краулеры реестра в порядке идентификаторов источников.
func crawlers(registry crawler.Registry) []crawler.Crawler {
	sources := make([]domain.Source, 0, len(registry))
	for s := range registry {
		sources = append(sources, s)
	}
	slices.Sort(sources)

	out := make([]crawler.Crawler, 0, len(sources))
	for _, s := range sources {
		out = append(out, registry[s])
	}
	return out
}
