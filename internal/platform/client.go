package platform

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/maheshrc27/socialsync/internal/apperr"
	"github.com/maheshrc27/socialsync/internal/metrics"
	"github.com/maheshrc27/socialsync/internal/models"
	"golang.org/x/time/rate"
)

const defaultTimeout = 60 * time.Second

type options struct {
	httpClient *http.Client
	baseURL    string
	limit      rate.Limit
	burst      int
	now        func() time.Time
}

type Option func(*options)

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithBaseURL points every API host of an adapter at baseURL. Authorization
// dialog URLs are not affected.
func WithBaseURL(baseURL string) Option {
	return func(o *options) { o.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithRateLimit caps outbound requests per second for one adapter.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(o *options) {
		o.limit = rate.Limit(perSecond)
		o.burst = burst
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func newOptions(opts []Option) *options {
	o := &options{
		httpClient: &http.Client{Timeout: defaultTimeout},
		limit:      rate.Inf,
		burst:      1,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// host returns the override base URL when one is configured.
func (o *options) host(def string) string {
	if o.baseURL != "" {
		return o.baseURL
	}
	return def
}

// classifier lets an adapter turn a provider error body into a typed error.
// It returns nil to fall back to status based classification.
type classifier func(status int, body []byte) error

type apiClient struct {
	platform models.Platform
	http     *http.Client
	limiter  *rate.Limiter
	classify classifier
}

func newAPIClient(p models.Platform, o *options) *apiClient {
	return &apiClient{
		platform: p,
		http:     o.httpClient,
		limiter:  rate.NewLimiter(o.limit, o.burst),
	}
}

type request struct {
	method    string
	url       string
	query     url.Values
	bearer    string
	basicUser string
	basicPass string
	form      url.Values
	json      any
	raw       io.Reader
	header    map[string]string
}

// send performs r and decodes a JSON response into out when out is non-nil.
func (c *apiClient) send(ctx context.Context, r request, out any) (http.Header, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	target := r.url
	if len(r.query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + r.query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case r.form != nil:
		body = strings.NewReader(r.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case r.json != nil:
		payload, err := json.Marshal(r.json)
		if err != nil {
			return nil, fmt.Errorf("error marshalling payload: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json; charset=UTF-8"
	case r.raw != nil:
		body = r.raw
	}

	method := r.method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if r.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+r.bearer)
	}
	if r.basicUser != "" {
		cred := base64.StdEncoding.EncodeToString([]byte(r.basicUser + ":" + r.basicPass))
		req.Header.Set("Authorization", "Basic "+cred)
	}
	for k, v := range r.header {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.PlatformRequestDuration.WithLabelValues(c.platform.String(), "transport").Observe(time.Since(start).Seconds())
		slog.Info(err.Error())
		return nil, apperr.PlatformAPI(c.platform.String(), 0, err.Error())
	}
	defer resp.Body.Close()
	metrics.PlatformRequestDuration.WithLabelValues(c.platform.String(), strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		slog.Info("platform request failed", "platform", c.platform, "status", resp.StatusCode, "url", r.url)
		if c.classify != nil {
			if err := c.classify(resp.StatusCode, respBody); err != nil {
				return nil, err
			}
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, apperr.Auth(c.platform.String(), string(respBody))
		}
		return nil, apperr.PlatformAPI(c.platform.String(), resp.StatusCode, string(respBody))
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			slog.Info(err.Error())
			return nil, apperr.PlatformAPI(c.platform.String(), resp.StatusCode, "undecodable response: "+string(respBody))
		}
	}
	return resp.Header, nil
}

// fetch downloads a media file so it can be re-uploaded to providers that do
// not pull from URLs.
func (c *apiClient) fetch(ctx context.Context, mediaURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("error downloading media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", apperr.Validation("media", "media url returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}
