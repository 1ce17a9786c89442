package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"cloudslam/internal/core/domain"
	"cloudslam/internal/core/ports"
	"cloudslam/pkg/circuitbreaker"
	apperrors "cloudslam/pkg/errors"
	"cloudslam/pkg/logger"
	"cloudslam/pkg/retry"
	"cloudslam/pkg/tracing"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	ConfigPath = "/client/config"
	MapPath    = "/client/map"
)

type Options struct {
	HTTPTimeout       time.Duration
	POIPath           string
	StreamReadTimeout time.Duration
	MaxMessageBytes   int64
	Retry             retry.Config
	// Breaker is applied per flow (config, map, poi) around the retry loop.
	Breaker circuitbreaker.Config
}

func DefaultOptions() Options {
	return Options{
		HTTPTimeout:       10 * time.Second,
		StreamReadTimeout: 15 * time.Second,
		MaxMessageBytes:   16 << 20,
		Retry:             retry.DefaultConfig(),
		Breaker:           circuitbreaker.DefaultConfig(),
	}
}

// Client fetches config and map snapshots over HTTP and receives POI
// snapshots over a WebSocket. It is safe for concurrent use.
type Client struct {
	http     *http.Client
	dialer   *websocket.Dialer
	opts     Options
	breakers map[string]*circuitbreaker.Breaker
	logger   *zap.SugaredLogger
}

var _ ports.RemoteClient = (*Client)(nil)

func NewClient(opts Options, log *zap.SugaredLogger) *Client {
	if opts.Retry.ShouldRetry == nil {
		opts.Retry.ShouldRetry = isRetryable
	}
	if opts.Breaker.IsFailure == nil {
		opts.Breaker.IsFailure = isRetryable
	}
	c := &Client{
		http: &http.Client{Timeout: opts.HTTPTimeout},
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.HTTPTimeout,
		},
		opts:     opts,
		breakers: make(map[string]*circuitbreaker.Breaker, 3),
		logger:   logger.OrNop(log),
	}
	for _, flow := range []string{"config", "map", "poi"} {
		b := circuitbreaker.New(opts.Breaker)
		b.OnStateChange(func(from, to circuitbreaker.State) {
			c.logger.Warnw("circuit breaker state changed", "flow", flow, "from", from, "to", to)
		})
		c.breakers[flow] = b
	}
	return c
}

// BreakerState reports the breaker state of one flow.
func (c *Client) BreakerState(flow string) circuitbreaker.State {
	if b, ok := c.breakers[flow]; ok {
		return b.State()
	}
	return circuitbreaker.StateClosed
}

func (c *Client) guard(ctx context.Context, flow, url string, fn func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	body, err := circuitbreaker.Execute(ctx, c.breakers[flow], fn)
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return nil, apperrors.NewNetworkError(err, "remote endpoint unavailable", 0).
			WithContext("url", url).
			WithContext("flow", flow)
	}
	return body, err
}

func (c *Client) FetchConfig(ctx context.Context, address string) ([]byte, error) {
	return c.get(ctx, "config", "http://"+address+ConfigPath)
}

func (c *Client) FetchMap(ctx context.Context, address string) ([]byte, error) {
	return c.get(ctx, "map", "http://"+address+MapPath)
}

func (c *Client) get(ctx context.Context, flow, url string) ([]byte, error) {
	ctx, span := tracing.TraceHTTPRequest(ctx, http.MethodGet, url, flow)
	defer span.End()
	start := time.Now()

	attempt := 0
	body, err := c.guard(ctx, flow, url, func(ctx context.Context) ([]byte, error) {
		return retry.Do(ctx, c.opts.Retry, func(ctx context.Context) ([]byte, error) {
			attempt++
			body, err := c.getOnce(ctx, url)
			if err != nil && attempt < c.opts.Retry.MaxAttempts && isRetryable(err) {
				c.logger.Debugw("retrying request", "flow", flow, "url", url, "attempt", attempt, "error", err)
			}
			return body, err
		})
	})
	tracing.MeasureDuration(ctx, start)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}

	tracing.AddSpanAttributes(ctx, tracing.BytesKey.Int(len(body)))
	return body, nil
}

func (c *Client) getOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.NewConfigurationError(err, "invalid request URL").WithContext("url", url)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.NewNetworkError(err, "request failed", 0).WithContext("url", url)
	}
	defer resp.Body.Close()

	tracing.AddSpanAttributes(ctx, tracing.StatusCodeKey.Int(resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, apperrors.NewNetworkError(
			fmt.Errorf("unexpected status %s", resp.Status), "request failed", resp.StatusCode,
		).WithContext("url", url)
	}

	body, err := readLimited(resp.Body, c.opts.MaxMessageBytes)
	if err != nil {
		return nil, apperrors.NewNetworkError(err, "failed to read response body", resp.StatusCode).WithContext("url", url)
	}
	return body, nil
}

// ReceivePOIs opens the POI socket, assembles one complete message and
// closes the connection. The connection is closed when ctx is done.
func (c *Client) ReceivePOIs(ctx context.Context, address string) ([]byte, error) {
	url := "ws://" + address + c.opts.POIPath
	ctx, span := tracing.TraceStream(ctx, url, "poi")
	defer span.End()

	message, err := c.guard(ctx, "poi", url, func(ctx context.Context) ([]byte, error) {
		return c.receive(ctx, url)
	})
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}
	return message, nil
}

func (c *Client) receive(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()

	conn, resp, err := c.dialer.DialContext(ctx, url, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		return nil, apperrors.NewNetworkError(err, "failed to open POI stream", status).WithContext("url", url)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	if c.opts.MaxMessageBytes > 0 {
		conn.SetReadLimit(c.opts.MaxMessageBytes)
	}

	message, chunks, err := Accumulate(ctx, newWSChunkReader(conn, c.opts.StreamReadTimeout, 0), c.opts.MaxMessageBytes)
	tracing.MeasureDuration(ctx, start)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, apperrors.NewNetworkError(err, "failed to receive POI snapshot", 0).
			WithContext("url", url).
			WithContext("chunks", chunks)
	}

	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(time.Second))

	tracing.AddSpanAttributes(ctx,
		tracing.BytesKey.Int(len(message)),
		tracing.FragmentsKey.Int(chunks),
	)
	c.logger.Debugw("received POI snapshot", "url", url, "bytes", len(message), "chunks", chunks)
	return message, nil
}

func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		return io.ReadAll(r)
	}
	body, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > maxBytes {
		return nil, domain.ErrMessageTooLarge
	}
	return body, nil
}

// isRetryable retries transport failures and 5xx/429 answers, never
// cancellation.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	appErr := apperrors.GetAppError(err)
	return appErr != nil && appErr.Retryable()
}
