// Package source fetches validator records from Solana JSON-RPC endpoints.
//
// A call is retried with exponential backoff only while the endpoint reports rate
// limiting. Once the retry cap is hit, or on any other error, the client fails over to
// the secondary endpoint under the same policy. Individual records that fail
// transformation are counted and skipped; they never fail the batch.
package source

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/SeunOnTech/sol-stake-backend/common/fault"
	"github.com/SeunOnTech/sol-stake-backend/common/logger"
)

const maxResponseBytes = 64 << 20

type Config struct {
	PrimaryURL   string
	SecondaryURL string
	Timeout      time.Duration
	// RetryBase is the first backoff delay; attempt n waits RetryBase × 2^(n−1).
	RetryBase  time.Duration
	MaxRetries int
}

// RawRecord is one validator as reported by the network, before persistence.
type RawRecord struct {
	Pubkey      string   `validate:"required"`
	VoteAccount string   `validate:"required"`
	Name        *string  `validate:"omitempty"`
	Commission  *float64 `validate:"omitempty,gte=0,lte=100"`
	Uptime      float64  `validate:"gte=0,lte=100"`
	Delinquent  bool
}

// Tally counts records that survived transformation and those that did not.
type Tally struct {
	Succeeded int
	Failed    int
}

type FetchResult struct {
	Records  []RawRecord
	Tally    Tally
	Endpoint string
}

// Fetcher is what the fetch task depends on.
type Fetcher interface {
	Fetch(ctx context.Context) (*FetchResult, error)
}

// HTTPClient allows injecting a custom transport in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	cfg        Config
	httpClient HTTPClient
}

func NewClient(cfg Config, httpClient HTTPClient) *Client {
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

// FetchAll returns every validator record the network reports.
func (c *Client) FetchAll(ctx context.Context) ([]RawRecord, error) {
	res, err := c.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// Fetch is FetchAll plus the per-record tally and the endpoint that answered.
func (c *Client) Fetch(ctx context.Context) (*FetchResult, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "ssb.source"})

	endpoints := []string{c.cfg.PrimaryURL}
	if c.cfg.SecondaryURL != "" && c.cfg.SecondaryURL != c.cfg.PrimaryURL {
		endpoints = append(endpoints, c.cfg.SecondaryURL)
	}

	var lastErr error
	for i, endpoint := range endpoints {
		accounts, err := c.fetchWithRetry(ctx, endpoint)
		if err == nil {
			records, tally := transform(ctx, accounts)
			slog.InfoContext(ctx, "fetched vote accounts",
				"endpoint", endpoint,
				"records", tally.Succeeded,
				"rejected", tally.Failed)
			return &FetchResult{Records: records, Tally: tally, Endpoint: endpoint}, nil
		}

		if ctx.Err() != nil {
			return nil, fault.New(fault.KindTransientNetwork, "source.fetch_all", ctx.Err())
		}

		lastErr = err
		if i < len(endpoints)-1 {
			slog.WarnContext(ctx, "endpoint failed, failing over",
				"endpoint", endpoint,
				"next_endpoint", endpoints[i+1],
				"error", err)
		}
	}

	return nil, classify(lastErr)
}

func (c *Client) fetchWithRetry(ctx context.Context, endpoint string) ([]voteAccount, error) {
	var accounts []voteAccount

	operation := func() error {
		res, err := c.getVoteAccounts(ctx, endpoint)
		if err != nil {
			var ce *callError
			if errors.As(err, &ce) && ce.rateLimited() {
				return err
			}
			return backoff.Permanent(err)
		}
		accounts = res
		return nil
	}

	notify := func(err error, wait time.Duration) {
		slog.WarnContext(ctx, "rate limited by endpoint, backing off",
			"endpoint", endpoint,
			"wait_ms", wait.Milliseconds(),
			"error", err)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.cfg.MaxRetries)), ctx)
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, err
	}
	return accounts, nil
}

// newBackOff yields RetryBase, 2×RetryBase, 4×RetryBase, ... without jitter.
func (c *Client) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryBase
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = c.cfg.RetryBase << 10
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func classify(err error) error {
	var ce *callError
	if errors.As(err, &ce) && ce.rateLimited() {
		return fault.New(fault.KindRateLimited, "source.fetch_all", err)
	}
	return fault.New(fault.KindTransientNetwork, "source.fetch_all", err)
}
