package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/DRSN-tech/market-crawler/internal/cfg"
	"github.com/DRSN-tech/market-crawler/internal/domain"
	"github.com/DRSN-tech/market-crawler/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/shopspring/decimal"
)

// Client получает курсы валют из HTTP API формата exchangerate.host.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewClient(cfg *cfg.CurrencyCfg) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
	}
}

type latestResponse struct {
	Success *bool                      `json:"success"`
	Base    string                     `json:"base"`
	Rates   map[string]decimal.Decimal `json:"rates"`
	Error   *struct {
		Code int    `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// Fetch возвращает курсы symbols относительно base: 1 base = rate currency.
// Валюты, которых нет в ответе, пропускаются.
func (c *Client) Fetch(ctx context.Context, base domain.Currency, symbols []domain.Currency) (map[domain.Currency]decimal.Decimal, error) {
	q := url.Values{}
	q.Set("base", string(base))
	if len(symbols) > 0 {
		names := make([]string, len(symbols))
		for i, s := range symbols {
			names[i] = string(s)
		}
		q.Set("symbols", strings.Join(names, ","))
	}
	if c.apiKey != "" {
		q.Set("access_key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/latest?"+q.Encode(), nil)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, e.Wrap(whereami.WhereAmI(), fmt.Errorf("%w: %s", e.ErrUnexpectedStatus, resp.Status))
	}

	var body latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	if body.Success != nil && !*body.Success {
		info := "unknown error"
		if body.Error != nil {
			info = fmt.Sprintf("%d %s", body.Error.Code, body.Error.Info)
		}
		return nil, e.Wrap(whereami.WhereAmI(), fmt.Errorf("currency api: %s", info))
	}
	if body.Base != "" && !strings.EqualFold(body.Base, string(base)) {
		return nil, e.Wrap(whereami.WhereAmI(), fmt.Errorf("currency api returned base %s, want %s", body.Base, base))
	}

	wanted := make(map[domain.Currency]struct{}, len(symbols))
	for _, s := range symbols {
		wanted[s] = struct{}{}
	}

	rates := make(map[domain.Currency]decimal.Decimal, len(body.Rates))
	for name, rate := range body.Rates {
		currency := domain.Currency(strings.ToUpper(name))
		if _, ok := wanted[currency]; len(wanted) > 0 && !ok {
			continue
		}
		rates[currency] = rate
	}
	return rates, nil
}
