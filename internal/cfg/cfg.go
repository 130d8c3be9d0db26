package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/DRSN-tech/market-crawler/pkg/e"
	"github.com/DRSN-tech/market-crawler/pkg/logger"
	"github.com/jimlawless/whereami"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Role определяет, какую стадию конвейера обслуживает процесс воркера.
type Role string

const (
	RoleCategory     Role = "category"
	RolePage         Role = "page"
	RoleDetails      Role = "details"
	RoleImage        Role = "image"
	RoleExchangeRate Role = "exchange_rate"
	RoleScheduler    Role = "scheduler"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCategory, RolePage, RoleDetails, RoleImage, RoleExchangeRate, RoleScheduler:
		return true
	}
	return false
}

type Config struct {
	App      *AppCfg
	Worker   *WorkerCfg
	Http     *HTTPConfig
	Db       *PGDBCfg
	Kafka    *KafkaCfg
	Minio    *MinIOCfg
	Redis    *RedisCfg
	Crawler  *CrawlerCfg
	Currency *CurrencyCfg
}

type AppCfg struct {
	Env      string
	LogLevel string
}

func (a *AppCfg) IsDevelopment() bool {
	return a.Env == "development"
}

type WorkerCfg struct {
	Role                 Role
	Prefetch             int           // максимум неподтверждённых сообщений у консьюмера
	PersistConcurrency   int           // параллельность сохранения товаров одной пачки
	RetryMaxAttempts     int           // 0 — без ограничения
	RetryBaseDelay       time.Duration // начальная задержка повторной доставки
	RetryMaxDelay        time.Duration
	CrawlInterval        time.Duration // период постановки CategoryJob планировщиком
	ExchangeRateInterval time.Duration
	ShutdownTimeout      time.Duration
}

type KafkaCfg struct {
	Brokers           []string
	GroupPrefix       string
	NetworkMode       string
	Partitions        int
	ReplicationFactor int
	Topics            TopicsCfg
}

// TopicsCfg — по одной надёжной очереди на каждую стадию конвейера.
type TopicsCfg struct {
	Category     string
	Page         string
	Details      string
	Image        string
	ExchangeRate string
}

// All возвращает топики всех стадий.
func (t TopicsCfg) All() []string {
	return []string{t.Category, t.Page, t.Details, t.Image, t.ExchangeRate}
}

type MinIOCfg struct {
	MinioEndpoint     string // Адрес конечной точки Minio
	BucketName        string // Бакет для изображений товаров
	MinioRootUser     string
	MinioRootPassword string
	MinioUseSSL       bool
	MaxImageSize      int64 // Максимальный размер скачиваемого изображения в байтах
}

type HTTPConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PGDBCfg struct {
	Host          string
	Port          string
	User          string
	Password      string
	DBName        string
	SSLMode       string
	MaxConns      int32
	MigrationsURL string
}

type RedisCfg struct {
	Addr            string
	Password        string
	User            string
	DB              int
	MaxRetries      int
	PoolSize        int // 0 - значение go-redis по умолчанию
	DialTimeout     time.Duration
	Timeout         time.Duration
	ExchangeRateTTL time.Duration
}

type CrawlerCfg struct {
	UserAgent       string
	RequestTimeout  time.Duration
	RequestsPerSec  float64
	Burst           int
	PageWindow      int             // ширина окна одновременно скачиваемых страниц категории
	MaxPages        int             // предохранитель от бесконечной пагинации
	DedupEpsilon    decimal.Decimal // допуск сравнения цен при дедупликации
	EnabledSources  []string
	MishopBaseURL   string
	PitergsmBaseURL string
}

type CurrencyCfg struct {
	BaseURL string
	APIKey  string
	Base    string
	Symbols []string
	Timeout time.Duration
}

// Load безопасно загружает конфигурацию и возвращает ошибку в случае неудачи.
func Load(log logger.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("failed to load .env: %v", err)
	}

	worker, err := loadWorkerCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	db, err := loadPGDBCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	http, err := loadHTTPConfig(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	kafka, err := loadKafkaCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	minio, err := loadMinIOCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	redis, err := loadRedisCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	crawler, err := loadCrawlerCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	currency, err := loadCurrencyCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &Config{
		App:      loadAppCfg(),
		Worker:   worker,
		Http:     http,
		Db:       db,
		Kafka:    kafka,
		Minio:    minio,
		Redis:    redis,
		Crawler:  crawler,
		Currency: currency,
	}, nil
}

func loadAppCfg() *AppCfg {
	return &AppCfg{
		Env:      getEnvOrDefault("APP_ENV", "production"),
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
	}
}

func loadWorkerCfg(log logger.Logger) (*WorkerCfg, error) {
	const (
		defaultPrefetch             = 10
		defaultPersistConcurrency   = 8
		defaultRetryMaxAttempts     = 10
		defaultRetryBaseDelay       = time.Second
		defaultRetryMaxDelay        = 5 * time.Minute
		defaultCrawlInterval        = 6 * time.Hour
		defaultExchangeRateInterval = time.Hour
		defaultShutdownTimeout      = 15 * time.Second
	)

	role := Role(getEnv("WORKER_ROLE"))
	if !role.Valid() {
		err := fmt.Errorf("%w: %q", e.ErrUnknownRole, role)
		log.Errorf(err, "invalid WORKER_ROLE")
		return nil, err
	}

	prefetch, err := parseIntEnv("WORKER_PREFETCH", defaultPrefetch)
	if err != nil || prefetch <= 0 {
		log.Errorf(err, "invalid WORKER_PREFETCH")
		return nil, e.Wrap("WORKER_PREFETCH", e.ErrIncorrectEnvVariable)
	}

	persistConcurrency, err := parseIntEnv("PERSIST_CONCURRENCY", defaultPersistConcurrency)
	if err != nil || persistConcurrency <= 0 {
		log.Errorf(err, "invalid PERSIST_CONCURRENCY")
		return nil, e.Wrap("PERSIST_CONCURRENCY", e.ErrIncorrectEnvVariable)
	}

	maxAttempts, err := parseIntEnv("RETRY_MAX_ATTEMPTS", defaultRetryMaxAttempts)
	if err != nil || maxAttempts < 0 {
		log.Errorf(err, "invalid RETRY_MAX_ATTEMPTS")
		return nil, e.Wrap("RETRY_MAX_ATTEMPTS", e.ErrIncorrectEnvVariable)
	}

	baseDelay, err := parseDurationEnv("RETRY_BASE_DELAY", defaultRetryBaseDelay)
	if err != nil {
		log.Errorf(err, "invalid RETRY_BASE_DELAY")
		return nil, err
	}

	maxDelay, err := parseDurationEnv("RETRY_MAX_DELAY", defaultRetryMaxDelay)
	if err != nil {
		log.Errorf(err, "invalid RETRY_MAX_DELAY")
		return nil, err
	}

	crawlInterval, err := parseDurationEnv("CRAWL_INTERVAL", defaultCrawlInterval)
	if err != nil {
		log.Errorf(err, "invalid CRAWL_INTERVAL")
		return nil, err
	}

	rateInterval, err := parseDurationEnv("EXCHANGE_RATE_INTERVAL", defaultExchangeRateInterval)
	if err != nil {
		log.Errorf(err, "invalid EXCHANGE_RATE_INTERVAL")
		return nil, err
	}

	shutdownTimeout, err := parseDurationEnv("SHUTDOWN_TIMEOUT", defaultShutdownTimeout)
	if err != nil {
		log.Errorf(err, "invalid SHUTDOWN_TIMEOUT")
		return nil, err
	}

	return &WorkerCfg{
		Role:                 role,
		Prefetch:             prefetch,
		PersistConcurrency:   persistConcurrency,
		RetryMaxAttempts:     maxAttempts,
		RetryBaseDelay:       baseDelay,
		RetryMaxDelay:        maxDelay,
		CrawlInterval:        crawlInterval,
		ExchangeRateInterval: rateInterval,
		ShutdownTimeout:      shutdownTimeout,
	}, nil
}

func loadKafkaCfg() (*KafkaCfg, error) {
	const (
		defaultPartitions        = 3
		defaultReplicationFactor = 1
		defaultNetworkMode       = "tcp"
		defaultGroupPrefix       = "market-crawler"
	)

	brokerStr := os.Getenv("KAFKA_BROKERS")
	if brokerStr == "" {
		return nil, e.Wrap("KAFKA_BROKERS", e.ErrMissingEnvVariable)
	}

	partitions, err := parseIntEnv("KAFKA_PARTITIONS", defaultPartitions)
	if err != nil {
		return nil, e.Wrap("KAFKA_PARTITIONS", err)
	}

	replicationFactor, err := parseIntEnv("REPLICATION_FACTOR", defaultReplicationFactor)
	if err != nil {
		return nil, e.Wrap("REPLICATION_FACTOR", err)
	}

	return &KafkaCfg{
		Brokers:           splitList(brokerStr),
		GroupPrefix:       getEnvOrDefault("KAFKA_GROUP_PREFIX", defaultGroupPrefix),
		NetworkMode:       getEnvOrDefault("KAFKA_NETWORK_MODE", defaultNetworkMode),
		Partitions:        partitions,
		ReplicationFactor: replicationFactor,
		Topics: TopicsCfg{
			Category:     getEnvOrDefault("KAFKA_TOPIC_CATEGORY", "crawler.category"),
			Page:         getEnvOrDefault("KAFKA_TOPIC_PAGE", "crawler.page"),
			Details:      getEnvOrDefault("KAFKA_TOPIC_DETAILS", "crawler.details"),
			Image:        getEnvOrDefault("KAFKA_TOPIC_IMAGE", "crawler.image"),
			ExchangeRate: getEnvOrDefault("KAFKA_TOPIC_EXCHANGE_RATE", "crawler.exchange_rate"),
		},
	}, nil
}

func loadMinIOCfg(log logger.Logger) (*MinIOCfg, error) {
	const (
		defaultUseSSL       = false
		defaultEndpoint     = "minio:9000"
		defaultMaxImageSize = 15 << 20
	)

	useSSL, err := strconv.ParseBool(getEnvOrDefault("MINIO_USE_SSL", strconv.FormatBool(defaultUseSSL)))
	if err != nil {
		log.Errorf(err, "invalid MINIO_USE_SSL")
		return nil, err
	}

	bucket := getEnv("BUCKET_NAME")
	if bucket == "" {
		err := e.Wrap("BUCKET_NAME", e.ErrMissingEnvVariable)
		log.Errorf(err, "missing BUCKET_NAME")
		return nil, err
	}

	maxSize, err := parseIntEnv("MAX_IMAGE_SIZE", defaultMaxImageSize)
	if err != nil {
		log.Errorf(err, "invalid MAX_IMAGE_SIZE")
		return nil, err
	}

	return &MinIOCfg{
		MinioEndpoint:     getEnvOrDefault("MINIO_ENDPOINT", defaultEndpoint),
		BucketName:        bucket,
		MinioRootUser:     getEnv("MINIO_ROOT_USER"),
		MinioRootPassword: getEnv("MINIO_ROOT_PASSWORD"),
		MinioUseSSL:       useSSL,
		MaxImageSize:      int64(maxSize),
	}, nil
}

func loadHTTPConfig(log logger.Logger) (*HTTPConfig, error) {
	const (
		defaultPort         = "8080"
		defaultReadTimeout  = 5 * time.Second
		defaultWriteTimeout = 10 * time.Second
		defaultIdleTimeout  = 60 * time.Second
	)

	readTimeout, err := parseDurationEnv("HTTP_READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("HTTP_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_WRITE_TIMEOUT")
		return nil, err
	}

	idleTimeout, err := parseDurationEnv("KEEP_ALIVE", defaultIdleTimeout)
	if err != nil {
		log.Errorf(err, "invalid KEEP_ALIVE")
		return nil, err
	}

	return &HTTPConfig{
		Port:         getEnvOrDefault("HTTP_PORT", defaultPort),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}, nil
}

func loadPGDBCfg(log logger.Logger) (*PGDBCfg, error) {
	const (
		defaultHost          = "localhost"
		defaultPort          = "5432"
		defaultSSLMode       = "disable"
		defaultMaxConns      = 16
		defaultMigrationsURL = "file://db/migrations"
	)

	required := map[string]string{}
	for _, key := range []string{"POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB"} {
		value := getEnv(key)
		if value == "" {
			err := e.Wrap(key, e.ErrMissingEnvVariable)
			log.Errorf(err, "missing %s", key)
			return nil, err
		}
		required[key] = value
	}

	maxConns, err := parseIntEnv("POSTGRES_MAX_CONNS", defaultMaxConns)
	if err != nil {
		log.Errorf(err, "invalid POSTGRES_MAX_CONNS")
		return nil, err
	}

	return &PGDBCfg{
		Host:          getEnvOrDefault("POSTGRES_HOST", defaultHost),
		Port:          getEnvOrDefault("POSTGRES_PORT", defaultPort),
		User:          required["POSTGRES_USER"],
		Password:      required["POSTGRES_PASSWORD"],
		DBName:        required["POSTGRES_DB"],
		SSLMode:       getEnvOrDefault("SSL_MODE", defaultSSLMode),
		MaxConns:      int32(maxConns),
		MigrationsURL: getEnvOrDefault("MIGRATIONS_URL", defaultMigrationsURL),
	}, nil
}

func loadRedisCfg(log logger.Logger) (*RedisCfg, error) {
	const (
		defaultAddr            = "localhost:6379"
		defaultDB              = 0
		defaultMaxRetries      = 3
		defaultDialTimeout     = 5 * time.Second
		defaultReadTimeout     = 3 * time.Second
		defaultWriteTimeout    = 3 * time.Second
		defaultExchangeRateTTL = 5 * time.Minute
	)

	db, err := parseIntEnv("REDIS_DB_ID", defaultDB)
	if err != nil {
		log.Errorf(err, "invalid REDIS_DB_ID")
		return nil, err
	}

	maxRetries, err := parseIntEnv("MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		log.Errorf(err, "invalid MAX_RETRIES")
		return nil, err
	}

	poolSize, err := parseIntEnv("REDIS_POOL_SIZE", 0)
	if err != nil || poolSize < 0 {
		log.Errorf(err, "invalid REDIS_POOL_SIZE")
		return nil, e.Wrap("REDIS_POOL_SIZE", e.ErrIncorrectEnvVariable)
	}

	dialTimeout, err := parseDurationEnv("DIAL_TIMEOUT", defaultDialTimeout)
	if err != nil {
		log.Errorf(err, "invalid DIAL_TIMEOUT")
		return nil, err
	}

	readTimeout, err := parseDurationEnv("READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid WRITE_TIMEOUT")
		return nil, err
	}

	rateTTL, err := parseDurationEnv("EXCHANGE_RATE_TTL", defaultExchangeRateTTL)
	if err != nil {
		log.Errorf(err, "invalid EXCHANGE_RATE_TTL")
		return nil, err
	}

	return &RedisCfg{
		Addr:            getEnvOrDefault("REDIS_ADDR", defaultAddr),
		Password:        getEnv("REDIS_PASSWORD"),
		User:            getEnv("REDIS_USER"),
		DB:              db,
		MaxRetries:      maxRetries,
		PoolSize:        poolSize,
		DialTimeout:     dialTimeout,
		Timeout:         max(readTimeout, writeTimeout),
		ExchangeRateTTL: rateTTL,
	}, nil
}

func loadCrawlerCfg(log logger.Logger) (*CrawlerCfg, error) {
	const (
		defaultUserAgent      = "Mozilla/5.0 (X11; Linux x86_64) market-crawler/1.0"
		defaultTimeout        = 30 * time.Second
		defaultRequestsPerSec = 4.0
		defaultBurst          = 4
		defaultPageWindow     = 5
		defaultMaxPages       = 200
		defaultDedupEpsilon   = "0.005"
		defaultSources        = "mishop,pitergsm"
	)

	timeout, err := parseDurationEnv("CRAWLER_REQUEST_TIMEOUT", defaultTimeout)
	if err != nil {
		log.Errorf(err, "invalid CRAWLER_REQUEST_TIMEOUT")
		return nil, err
	}

	rps, err := strconv.ParseFloat(getEnvOrDefault("CRAWLER_RPS", strconv.FormatFloat(defaultRequestsPerSec, 'f', -1, 64)), 64)
	if err != nil || rps <= 0 {
		log.Errorf(err, "invalid CRAWLER_RPS")
		return nil, e.Wrap("CRAWLER_RPS", e.ErrIncorrectEnvVariable)
	}

	burst, err := parseIntEnv("CRAWLER_BURST", defaultBurst)
	if err != nil {
		log.Errorf(err, "invalid CRAWLER_BURST")
		return nil, err
	}

	window, err := parseIntEnv("CRAWLER_PAGE_WINDOW", defaultPageWindow)
	if err != nil || window <= 0 {
		log.Errorf(err, "invalid CRAWLER_PAGE_WINDOW")
		return nil, e.Wrap("CRAWLER_PAGE_WINDOW", e.ErrIncorrectEnvVariable)
	}

	maxPages, err := parseIntEnv("CRAWLER_MAX_PAGES", defaultMaxPages)
	if err != nil {
		log.Errorf(err, "invalid CRAWLER_MAX_PAGES")
		return nil, err
	}

	epsilon, err := decimal.NewFromString(getEnvOrDefault("DEDUP_PRICE_EPSILON", defaultDedupEpsilon))
	if err != nil || epsilon.IsNegative() {
		log.Errorf(err, "invalid DEDUP_PRICE_EPSILON")
		return nil, e.Wrap("DEDUP_PRICE_EPSILON", e.ErrIncorrectEnvVariable)
	}

	return &CrawlerCfg{
		UserAgent:       getEnvOrDefault("CRAWLER_USER_AGENT", defaultUserAgent),
		RequestTimeout:  timeout,
		RequestsPerSec:  rps,
		Burst:           burst,
		PageWindow:      window,
		MaxPages:        maxPages,
		DedupEpsilon:    epsilon,
		EnabledSources:  splitList(getEnvOrDefault("CRAWLER_SOURCES", defaultSources)),
		MishopBaseURL:   getEnvOrDefault("MISHOP_BASE_URL", "https://mi-shop.com"),
		PitergsmBaseURL: getEnvOrDefault("PITERGSM_BASE_URL", "https://pitergsm.ru"),
	}, nil
}

func loadCurrencyCfg(log logger.Logger) (*CurrencyCfg, error) {
	const (
		defaultBaseURL = "https://api.exchangerate.host"
		defaultBase    = "RUB"
		defaultSymbols = "USD,EUR,CNY,KZT,BYN"
		defaultTimeout = 10 * time.Second
	)

	timeout, err := parseDurationEnv("CURRENCY_TIMEOUT", defaultTimeout)
	if err != nil {
		log.Errorf(err, "invalid CURRENCY_TIMEOUT")
		return nil, err
	}

	return &CurrencyCfg{
		BaseURL: getEnvOrDefault("CURRENCY_API_URL", defaultBaseURL),
		APIKey:  getEnv("CURRENCY_API_KEY"),
		Base:    strings.ToUpper(getEnvOrDefault("CURRENCY_BASE", defaultBase)),
		Symbols: splitList(strings.ToUpper(getEnvOrDefault("CURRENCY_SYMBOLS", defaultSymbols))),
		Timeout: timeout,
	}, nil
}

// getEnv возвращает значение переменной окружения.
// Возвращает пустую строку, если переменная не задана.
func getEnv(key string) string {
	return os.Getenv(key)
}

// getEnvOrDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// parseDurationEnv считывает длительность или возвращает значение по умолчанию.
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	if v := os.Getenv(key); v != "" {
		return time.ParseDuration(v)
	}

	return defaultValue, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	intValue, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue, e.ErrIncorrectEnvVariable
	}

	return intValue, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
