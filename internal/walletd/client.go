package walletd

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"git.home.luguber.info/inful/walletpool/internal/address"
	"git.home.luguber.info/inful/walletpool/internal/config"
	"git.home.luguber.info/inful/walletpool/internal/foundation/errors"
	"git.home.luguber.info/inful/walletpool/internal/logfields"
	"git.home.luguber.info/inful/walletpool/internal/metrics"
	"git.home.luguber.info/inful/walletpool/internal/retry"
)

// maxResponseBytes bounds how much of a daemon reply is read.
const maxResponseBytes = 4 << 20

// Client talks to the wallet daemon.
type Client struct {
	endpoint   string
	password   string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	policy     retry.Policy
	recorder   metrics.Recorder
	logger     *slog.Logger
	nextID     atomic.Uint64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRetryPolicy overrides the policy derived from configuration.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) { c.policy = p }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(c *Client) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New builds a client from the daemon configuration section.
func New(cfg config.DaemonConfig, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(cfg.URL))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errors.ValidationError("invalid daemon url").
			WithCause(err).
			WithContext("url", cfg.URL).
			Build()
	}
	base.Path = strings.TrimSuffix(base.Path, "/") + "/json_rpc"

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultDaemonTimeout
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		endpoint:   base.String(),
		password:   cfg.Password,
		timeout:    timeout,
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(limit, burst),
		policy:     retry.FromConfig(cfg.Retry),
		recorder:   metrics.NoopRecorder{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the JSON-RPC URL the client posts to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// CreateAddress asks the daemon to generate a new address.
func (c *Client) CreateAddress(ctx context.Context) (string, error) {
	var res createAddressResult
	if err := c.call(ctx, MethodCreateAddress, "", nil, &res); err != nil {
		return "", err
	}
	if strings.TrimSpace(res.Address) == "" {
		return "", errors.DaemonError("daemon returned no address").
			WithContext("rpc_method", MethodCreateAddress).
			Build()
	}
	return res.Address, nil
}

// GetSpendKeys returns the spend key pair of addr.
func (c *Client) GetSpendKeys(ctx context.Context, addr string) (address.Keys, error) {
	var res spendKeysResult
	if err := c.call(ctx, MethodGetSpendKeys, addr, addressParams{Address: addr}, &res); err != nil {
		return address.Keys{}, err
	}
	return address.Keys{SpendPublicKey: res.SpendPublicKey, SpendSecretKey: res.SpendSecretKey}, nil
}

// GetBalance returns the daemon's balance for addr.
func (c *Client) GetBalance(ctx context.Context, addr string) (Balance, error) {
	var res Balance
	if err := c.call(ctx, MethodGetBalance, addr, addressParams{Address: addr}, &res); err != nil {
		return Balance{}, err
	}
	return res, nil
}

// GetAddresses lists every address the daemon tracks, in daemon order.
func (c *Client) GetAddresses(ctx context.Context) ([]string, error) {
	var res getAddressesResult
	if err := c.call(ctx, MethodGetAddresses, "", nil, &res); err != nil {
		return nil, err
	}
	if res.Addresses == nil {
		return []string{}, nil
	}
	return res.Addresses, nil
}

// DeleteAddress tells the daemon to stop tracking addr.
func (c *Client) DeleteAddress(ctx context.Context, addr string) error {
	return c.call(ctx, MethodDeleteAddress, addr, addressParams{Address: addr}, nil)
}

// call performs one logical RPC: rate limited, retried on transport failure,
// each attempt bounded by the client timeout.
func (c *Client) call(ctx context.Context, method, addr string, params, result any) error {
	start := time.Now()
	attempt := 0
	err := c.policy.Do(ctx, isTransient, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			c.logger.DebugContext(ctx, "Retrying daemon call",
				logfields.RPCMethod(method),
				logfields.Attempt(attempt))
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		return c.roundTrip(attemptCtx, method, params, result)
	})
	c.recorder.ObserveDaemonCall(method, time.Since(start))

	if err == nil {
		c.recorder.IncDaemonCall(method, metrics.ResultSuccess)
		return nil
	}
	c.recorder.IncDaemonCall(method, metrics.ResultFailed)
	c.logger.WarnContext(ctx, "Daemon call failed",
		logfields.RPCMethod(method),
		logfields.Address(addr),
		logfields.Attempt(attempt),
		logfields.Error(err))
	return toDaemonError(err, method, addr, attempt)
}

func (c *Client) roundTrip(ctx context.Context, method string, params, result any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC:  "2.0",
		ID:       c.nextID.Add(1),
		Method:   method,
		Password: c.password,
		Params:   params,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &transportError{err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &transportError{err: err}
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return &transportError{err: fmt.Errorf("daemon returned %s", resp.Status), status: resp.StatusCode}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return &statusError{status: resp.StatusCode, text: resp.Status}
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if result == nil || len(rpcResp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, result); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

// transportError marks failures worth retrying: connection errors, timeouts
// and 5xx replies.
type transportError struct {
	err    error
	status int
}

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

type statusError struct {
	status int
	text   string
}

func (e *statusError) Error() string { return "daemon returned " + e.text }

func isTransient(err error) bool {
	var te *transportError
	return stderrors.As(err, &te)
}

func toDaemonError(err error, method, addr string, attempts int) error {
	b := errors.DaemonError("daemon call failed")

	var rpcErr *RPCError
	var te *transportError
	var se *statusError
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		b = errors.DaemonError("daemon call timed out").Retryable()
	case stderrors.Is(err, context.Canceled):
		b = errors.DaemonError("daemon call canceled")
	case stderrors.As(err, &rpcErr):
		b = errors.DaemonError("daemon rejected call").WithContext("rpc_code", rpcErr.Code)
	case stderrors.As(err, &te):
		b = errors.DaemonError("daemon unreachable").Retryable()
		if te.status != 0 {
			b = b.WithContext("http_status", te.status)
		}
	case stderrors.As(err, &se):
		b = b.WithContext("http_status", se.status)
	}

	return b.WithCause(err).
		WithContext("rpc_method", method).
		WithContext("address", addr).
		WithContext("attempts", attempts).
		Build()
}
