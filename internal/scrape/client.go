package scrape

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"resty.dev/v3"

	"finscrape/internal/ratelimit"
)

const (
	defaultRetryCount       = 3
	defaultRetryWaitTime    = 1 * time.Second
	defaultRetryMaxWaitTime = 10 * time.Second
)

// NewHTTPClient creates the static-page HTTP client with retry logic and
// exponential backoff. The profile, holders and insider pages serve their
// tables without scripting, so a plain GET is enough for them.
func NewHTTPClient(userAgent string, timeout time.Duration) *resty.Client {
	client := resty.New().
		SetHeader("Accept", "text/html,application/xhtml+xml").
		SetRetryCount(defaultRetryCount).
		SetRetryWaitTime(defaultRetryWaitTime).
		SetRetryMaxWaitTime(defaultRetryMaxWaitTime).
		AddRetryConditions(retryCondition).
		AddRetryHooks(retryHook)

	if userAgent != "" {
		client.SetHeader("User-Agent", userAgent)
	}
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return client
}

// retryCondition determines whether a request should be retried based on
// the response and error.
func retryCondition(r *resty.Response, err error) bool {
	// Retry on network errors
	if err != nil {
		return true
	}

	// Retry on server errors (5xx)
	if r.StatusCode() >= 500 {
		return true
	}

	// Retry on rate limit (429)
	if r.StatusCode() == 429 {
		return true
	}

	// Retry on request timeout (408)
	if r.StatusCode() == 408 {
		return true
	}

	// Don't retry on client errors (4xx except 429)
	return false
}

// retryHook logs retry attempts for observability.
func retryHook(r *resty.Response, err error) {
	if err != nil {
		slog.Debug("retrying request due to error",
			"url", r.Request.URL,
			"attempt", r.Request.Attempt,
			"error", err.Error())
		return
	}

	slog.Debug("retrying request due to status code",
		"url", r.Request.URL,
		"attempt", r.Request.Attempt,
		"status_code", r.StatusCode())
}

// fetchDocument performs one paced static fetch and parses the body.
func fetchDocument(ctx context.Context, client *resty.Client, limiter *ratelimit.Limiter, url string) (*goquery.Document, error) {
	if limiter != nil {
		if err := limiter.Wait(ctx, ratelimit.SourceStatic); err != nil {
			return nil, err
		}
	}

	resp, err := client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, &FetchError{Type: ErrorTypeNetwork, Retryable: true, URL: url, Cause: err}
	}
	if !resp.IsSuccess() {
		return nil, classifyStatus(url, resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return nil, &FetchError{Type: ErrorTypeParse, URL: url, Cause: err}
	}
	return doc, nil
}
