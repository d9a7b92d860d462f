package marriott

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"marriott_mcp/internal/adapters/observability"
	"marriott_mcp/internal/domain"
)

const (
	service          = "marriott"
	maxBody          = 8 << 20
	maxRetryWait     = 60 * time.Second
	maxHonoredWait   = time.Hour
	defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"
)

type Config struct {
	BaseURL     string
	Timeout     time.Duration
	RPS         float64
	MaxAttempts int
	StepDelay   time.Duration
	UserAgent   string
	HTTPClient  *http.Client
}

// Client is the inventory gateway for the Marriott GraphQL edge.
type Client struct {
	base      string
	hc        *http.Client
	rl        *rate.Limiter
	timeout   time.Duration
	attempts  int
	stepDelay time.Duration
	ua        string
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("marriott base URL is required")
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.StepDelay < 0 {
		cfg.StepDelay = 0
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		base:      strings.TrimRight(cfg.BaseURL, "/"),
		hc:        hc,
		rl:        rate.NewLimiter(rate.Limit(cfg.RPS), int(math.Ceil(cfg.RPS))),
		timeout:   cfg.Timeout,
		attempts:  cfg.MaxAttempts,
		stepDelay: cfg.StepDelay,
		ua:        cfg.UserAgent,
	}, nil
}

// call is one persisted GraphQL operation.
type call struct {
	op        string
	prof      profile
	query     string
	vars      map[string]any
	jar       *CookieJar // rates chain only
	requestID string
}

// do posts one operation with rate limiting, a per-call deadline and retries,
// and returns the decoded `data` object.
func (c *Client) do(ctx context.Context, cl call) (map[string]any, error) {
	ctx, span := observability.Tracer().Start(ctx, "marriott."+cl.op)
	defer span.End()
	span.SetAttributes(attribute.String("provider.operation", cl.op))

	data, err := c.doAttempts(ctx, cl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, domain.ErrorCode(err))
	}
	return data, err
}

func (c *Client) doAttempts(parent context.Context, cl call) (map[string]any, error) {
	if err := c.rl.Wait(parent); err != nil {
		if parent.Err() != nil {
			return nil, parent.Err()
		}
		return nil, &domain.TransportError{Operation: cl.op, Err: err}
	}

	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	payload, err := json.Marshal(map[string]any{
		"operationName": cl.op,
		"variables":     cl.vars,
		"query":         cl.query,
	})
	if err != nil {
		return nil, err
	}
	url := c.base + "/mi/query/" + cl.op

	var lastErr error
	for i := 0; i < c.attempts; i++ {
		last := i == c.attempts-1

		// fresh request each attempt so the body and cookies are current
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		c.setHeaders(req, cl)

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal(service, cl.op, 0, time.Since(start))
			log.Debug().Err(err).Str("op", cl.op).Int("attempt", i+1).Dur("duration", time.Since(start)).Msg("upstream_call")
			if parent.Err() != nil {
				return nil, parent.Err()
			}
			if ctx.Err() != nil || isTimeout(err) {
				return nil, &domain.TransportError{Operation: cl.op, Timeout: true, Err: err}
			}
			lastErr = &domain.TransportError{Operation: cl.op, Err: err}
			if !last && sleepCtx(ctx, backoff(i)) {
				continue
			}
			return nil, c.finalErr(parent, ctx, cl.op, lastErr)
		}

		body, rerr := io.ReadAll(io.LimitReader(resp.Body, maxBody))
		resp.Body.Close()
		observability.ObserveExternal(service, cl.op, resp.StatusCode, time.Since(start))
		log.Debug().Str("op", cl.op).Int("status", resp.StatusCode).Int("attempt", i+1).Dur("duration", time.Since(start)).Msg("upstream_call")
		trace.SpanFromContext(ctx).SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
		if cl.jar != nil {
			cl.jar.Merge(resp.Header.Values("Set-Cookie"))
		}
		if rerr != nil {
			if parent.Err() != nil {
				return nil, parent.Err()
			}
			if ctx.Err() != nil || isTimeout(rerr) {
				return nil, &domain.TransportError{Operation: cl.op, Timeout: true, Err: rerr}
			}
			return nil, &domain.TransportError{Operation: cl.op, StatusCode: resp.StatusCode, Err: rerr}
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return decodeEnvelope(cl.op, body)
		}

		if isChallenge(body) {
			log.Warn().Str("op", cl.op).Int("status", resp.StatusCode).Msg("bot protection challenge detected")
			return nil, &domain.TransportError{Operation: cl.op, StatusCode: resp.StatusCode, Challenge: true}
		}

		if !retryableStatus(resp.StatusCode, cl.jar) {
			return nil, &domain.TransportError{
				Operation:  cl.op,
				StatusCode: resp.StatusCode,
				Err:        fmt.Errorf("%s", snippet(body)),
			}
		}

		wait := retryAfter(resp.Header)
		te := &domain.TransportError{Operation: cl.op, StatusCode: resp.StatusCode, RetryAfter: wait}
		if wait > maxHonoredWait {
			log.Warn().Str("op", cl.op).Dur("retry_after", wait).Msg("provider asked for a long back-off; not retrying")
			return nil, te
		}
		lastErr = te
		if wait > maxRetryWait {
			wait = maxRetryWait
		}
		if wait == 0 {
			wait = backoff(i)
		}
		if dl, ok := ctx.Deadline(); ok && time.Until(dl) < wait {
			log.Debug().Str("op", cl.op).Dur("wait", wait).Msg("retry wait exceeds call deadline; not retrying")
			return nil, te
		}
		if !last && sleepCtx(ctx, wait) {
			log.Debug().Str("op", cl.op).Int("status", resp.StatusCode).Int("attempt", i+1).Dur("wait", wait).Msg("retrying provider call")
			continue
		}
		return nil, c.finalErr(parent, ctx, cl.op, lastErr)
	}
	return nil, lastErr
}

func (c *Client) finalErr(parent, ctx context.Context, op string, lastErr error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if ctx.Err() != nil {
		return &domain.TransportError{Operation: op, Timeout: true, Err: ctx.Err()}
	}
	return lastErr
}

func (c *Client) setHeaders(req *http.Request, cl call) {
	p := cl.prof
	h := req.Header
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "*/*")
	h.Set("Accept-Language", p.language)
	h.Set("User-Agent", c.ua)
	h.Set("Origin", c.base)
	h.Set("Referer", c.base+p.referer)
	h.Set("apollographql-client-name", p.clientName)
	h.Set("apollographql-client-version", p.version)
	h.Set("application-name", p.application)
	h.Set("graphql-operation-name", cl.op)
	h.Set("graphql-operation-signature", signatures[cl.op])
	h.Set("graphql-require-safelisting", "true")
	if cl.requestID != "" {
		h.Set("x-request-id", cl.requestID)
	}
	if cl.jar != nil && cl.jar.Len() > 0 {
		h.Set("Cookie", cl.jar.Header())
	}
}

// bootstrap loads the reservation landing page so the jar holds session cookies.
// Failure is not fatal; the chain continues without them.
func (c *Client) bootstrap(parent context.Context, jar *CookieJar) {
	if err := c.rl.Wait(parent); err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+landingPath, nil)
	if err != nil {
		return
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", profileBook.language)
	req.Header.Set("User-Agent", c.ua)

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal(service, opLandingBootstrap, 0, time.Since(start))
		log.Warn().Err(err).Msg("rates bootstrap failed; continuing without cookies")
		return
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
	resp.Body.Close()
	observability.ObserveExternal(service, opLandingBootstrap, resp.StatusCode, time.Since(start))
	jar.Merge(resp.Header.Values("Set-Cookie"))
	if resp.StatusCode >= 400 {
		log.Warn().Int("status", resp.StatusCode).Msg("rates bootstrap returned an error status")
	}
}

// decodeEnvelope unwraps {"data":..., "errors":[...]}.
func decodeEnvelope(op string, body []byte) (map[string]any, error) {
	var env struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &domain.ParseError{Operation: op, Err: err}
	}
	if len(env.Errors) > 0 {
		msgs := make([]string, 0, len(env.Errors))
		for _, e := range env.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, &domain.UpstreamError{Operation: op, Messages: msgs}
	}
	var data map[string]any
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, &domain.ParseError{Operation: op, Err: fmt.Errorf("data is not an object: %w", err)}
		}
	}
	if data == nil {
		return nil, &domain.ParseError{Operation: op, Err: errors.New("missing data")}
	}
	return data, nil
}

// isChallenge detects the bot-protection interstitial, which retries cannot clear.
func isChallenge(body []byte) bool {
	var probe struct {
		Flag any `json:"cpr_chlge"`
	}
	if json.Unmarshal(body, &probe) != nil {
		return false
	}
	switch v := probe.Flag.(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}

func retryableStatus(status int, jar *CookieJar) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	case http.StatusForbidden:
		return jar != nil && jar.Len() > 0
	}
	return false
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 256 {
		s = s[:256]
	}
	return s
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). For a comma-separated
// list only the first value counts. Returns 0 if absent/invalid.
func retryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secsPart, _, found := strings.Cut(v, ","); found {
		if secs, err := strconv.Atoi(strings.TrimSpace(secsPart)); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns 200ms·2^i plus up to 50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
