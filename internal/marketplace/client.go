// Package marketplace talks to Discogs: listing feeds, listing and release
// details, price suggestions and sale statistics, and a user's want-list.
package marketplace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/patrickmn/go-cache"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/pauljones0/discogs-deals/internal/config"
	"github.com/pauljones0/discogs-deals/internal/metrics"
	"github.com/pauljones0/discogs-deals/internal/models"
	"github.com/pauljones0/discogs-deals/internal/util"
)

const (
	userAgent        = "discogs-deals/1.0 +https://github.com/pauljones0/discogs-deals"
	quotaHeader      = "X-Discogs-Ratelimit-Remaining"
	lowQuota         = 2
	breakerThreshold = 5
)

// Client is safe for concurrent use; all requests share one rate limiter and
// one circuit breaker.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*resty.Response]
	cache   *cache.Cache
	config  *config.Config

	apiURL     string
	webURL     string
	graphQLURL string

	maxRetries    int
	retryBase     time.Duration
	lowQuotaPause time.Duration
	now           func() time.Time
}

func New(cfg *config.Config) *Client {
	httpClient := resty.New().
		SetTimeout(cfg.RequestTimeout).
		SetHeader("User-Agent", userAgent).
		SetLogger(restyLogger{})

	c := &Client{
		http:          httpClient,
		limiter:       rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		cache:         cache.New(cfg.ReleaseCacheTTL, cfg.ReleaseCacheTTL),
		config:        cfg,
		apiURL:        strings.TrimSuffix(cfg.DiscogsAPIURL, "/"),
		webURL:        strings.TrimSuffix(cfg.DiscogsWebURL, "/"),
		graphQLURL:    cfg.DiscogsGraphQLURL,
		maxRetries:    cfg.MaxRetries,
		retryBase:     time.Second,
		lowQuotaPause: 10 * time.Second,
		now:           time.Now,
	}
	c.breaker = gobreaker.NewCircuitBreaker[*resty.Response](gobreaker.Settings{
		Name:    "discogs",
		Timeout: time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, models.ErrPermanent) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Marketplace circuit breaker changed state", "name", name, "from", from.String(), "to", to.String())
			if to == gobreaker.StateOpen {
				metrics.BreakerState.Set(1)
			} else {
				metrics.BreakerState.Set(0)
			}
		},
	})
	return c
}

type request struct {
	endpoint string // metric label
	url      string
	params   map[string]string
	headers  map[string]string
	auth     bool
}

// get performs a rate-limited GET with retries on transient failures.
// Returned errors wrap models.ErrTransient or models.ErrPermanent.
func (c *Client) get(ctx context.Context, r request) ([]byte, error) {
	var body []byte
	err := util.RetryWithBackoff(ctx, c.maxRetries, c.retryBase, func(attempt int) error {
		if err := util.WaitLimiter(ctx, c.limiter); err != nil {
			return util.Unretryable(fmt.Errorf("%w: rate limiter: %w", models.ErrTransient, err))
		}

		resp, err := c.breaker.Execute(func() (*resty.Response, error) {
			return c.do(ctx, r)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.MarketplaceRequests.WithLabelValues(r.endpoint, "breaker_open").Inc()
			return util.Unretryable(fmt.Errorf("%w: %s: %w", models.ErrTransient, r.endpoint, err))
		}
		c.observe(r.endpoint, resp, err)
		if err != nil {
			if errors.Is(err, models.ErrPermanent) || ctx.Err() != nil {
				return util.Unretryable(err)
			}
			slog.Debug("Marketplace request failed", "endpoint", r.endpoint, "attempt", attempt+1, "error", err)
			return err
		}

		c.pauseOnLowQuota(ctx, resp)
		body = resp.Body()
		return nil
	})
	if err != nil {
		if !errors.Is(err, models.ErrTransient) && !errors.Is(err, models.ErrPermanent) {
			err = fmt.Errorf("%w: %s: %w", models.ErrTransient, r.endpoint, err)
		}
		return nil, err
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, r request) (*resty.Response, error) {
	req := c.http.R().SetContext(ctx)
	if len(r.params) > 0 {
		req.SetQueryParams(r.params)
	}
	if len(r.headers) > 0 {
		req.SetHeaders(r.headers)
	}
	if r.auth && c.config.DiscogsToken != "" {
		req.SetHeader("Authorization", "Discogs token="+c.config.DiscogsToken)
	}

	resp, err := req.Get(r.url)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", models.ErrTransient, r.url, err)
	}
	if err := statusError(resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// statusError classifies a response: 429 and 5xx may clear up, other
// non-2xx statuses will not.
func statusError(resp *resty.Response) error {
	code := resp.StatusCode()
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests || code >= 500:
		return fmt.Errorf("%w: GET %s: status %d", models.ErrTransient, resp.Request.URL, code)
	default:
		return fmt.Errorf("%w: GET %s: status %d", models.ErrPermanent, resp.Request.URL, code)
	}
}

func (c *Client) observe(endpoint string, resp *resty.Response, err error) {
	status := "error"
	if resp != nil {
		status = strconv.Itoa(resp.StatusCode()/100) + "xx"
	} else if err == nil {
		status = "ok"
	}
	metrics.MarketplaceRequests.WithLabelValues(endpoint, status).Inc()
}

// pauseOnLowQuota backs off when Discogs reports the per-minute quota is
// nearly used up.
func (c *Client) pauseOnLowQuota(ctx context.Context, resp *resty.Response) {
	v := strings.TrimSpace(resp.Header().Get(quotaHeader))
	if v == "" || strings.Trim(v, "0123456789") != "" {
		return
	}
	remaining := util.SafeAtoi(v)
	if remaining >= lowQuota {
		return
	}
	slog.Debug("Marketplace quota low, pausing", "remaining", remaining, "pause", c.lowQuotaPause)
	select {
	case <-ctx.Done():
	case <-time.After(c.lowQuotaPause):
	}
}

// restyLogger routes resty's own messages into slog.
type restyLogger struct{}

func (restyLogger) Errorf(format string, v ...interface{}) {
	slog.Debug("resty", "message", strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (restyLogger) Warnf(format string, v ...interface{}) {
	slog.Debug("resty", "message", strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (restyLogger) Debugf(format string, v ...interface{}) {
	slog.Debug("resty", "message", strings.TrimSpace(fmt.Sprintf(format, v...)))
}
