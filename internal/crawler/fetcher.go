package crawler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/DRSN-tech/market-crawler/internal/cfg"
	"github.com/DRSN-tech/market-crawler/internal/domain"
	"github.com/DRSN-tech/market-crawler/pkg/e"
	"github.com/DRSN-tech/market-crawler/pkg/logger"
	"github.com/DRSN-tech/market-crawler/pkg/metrics"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
	"golang.org/x/time/rate"
)

// Fetcher скачивает страницы маркетплейсов с ограничением частоты запросов
// на каждый источник и приводит ответ к UTF-8.
type Fetcher struct {
	client    *http.Client
	userAgent string
	rps       rate.Limit
	burst     int
	log       logger.Logger

	mu       sync.Mutex
	limiters map[domain.Source]*rate.Limiter
}

func NewFetcher(cfg *cfg.CrawlerCfg, log logger.Logger) *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: cfg.RequestTimeout},
		userAgent: cfg.UserAgent,
		rps:       rate.Limit(cfg.RequestsPerSec),
		burst:     max(cfg.Burst, 1),
		log:       log,
		limiters:  make(map[domain.Source]*rate.Limiter),
	}
}

func (f *Fetcher) limiter(source domain.Source) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, ok := f.limiters[source]
	if !ok {
		l = rate.NewLimiter(f.rps, f.burst)
		f.limiters[source] = l
	}
	return l
}

// Fetch скачивает страницу и разбирает её в документ.
func (f *Fetcher) Fetch(ctx context.Context, source domain.Source, url string) (*goquery.Document, error) {
	const op = "Fetcher.Fetch"

	body, contentType, err := f.get(ctx, source, url, 0)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	doc, err := goquery.NewDocumentFromReader(utf8Reader(body, contentType))
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	return doc, nil
}

// Download скачивает бинарный ресурс не больше limit байт (0 — без ограничения).
func (f *Fetcher) Download(ctx context.Context, source domain.Source, url string, limit int64) ([]byte, string, error) {
	const op = "Fetcher.Download"

	body, contentType, err := f.get(ctx, source, url, limit)
	if err != nil {
		return nil, "", e.Wrap(op, err)
	}
	return body, contentType, nil
}

func (f *Fetcher) get(ctx context.Context, source domain.Source, url string, limit int64) ([]byte, string, error) {
	if err := f.limiter(source).Wait(ctx); err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9,en;q=0.8")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		metrics.RecordFetch(source.String(), 0, time.Since(start))
		return nil, "", err
	}
	defer resp.Body.Close()
	metrics.RecordFetch(source.String(), resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, "", fmt.Errorf("%w: %s", e.ErrNotFound, url)
	case resp.StatusCode != http.StatusOK:
		return nil, "", fmt.Errorf("%w: %d for %s", e.ErrUnexpectedStatus, resp.StatusCode, url)
	}

	reader := io.Reader(resp.Body)
	if limit > 0 {
		reader = io.LimitReader(resp.Body, limit+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", err
	}
	if limit > 0 && int64(len(body)) > limit {
		return nil, "", fmt.Errorf("%w: %s exceeds %d bytes", e.ErrUnsupportedMediaType, url, limit)
	}

	f.log.Debugf("fetched %s (%d bytes) in %s", url, len(body), time.Since(start))
	return body, resp.Header.Get("Content-Type"), nil
}

// utf8Reader определяет кодировку по заголовку и meta-тегам. Если декодирование
// даёт символы замены, страница считается написанной в Windows-1251.
func utf8Reader(body []byte, contentType string) io.Reader {
	enc, _, _ := charset.DetermineEncoding(body, contentType)

	decoded, _, err := transform.Bytes(enc.NewDecoder(), body)
	if err == nil && !strings.ContainsRune(string(decoded), '\ufffd') {
		return bytes.NewReader(decoded)
	}
	return transform.NewReader(bytes.NewReader(body), charmap.Windows1251.NewDecoder())
}
