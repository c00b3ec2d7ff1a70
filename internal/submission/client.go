// Package submission posts completed intake cases to the clinic backend.
package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vetcare/intake/internal/metrics"
	"github.com/vetcare/intake/pkg/logging"
)

// DefaultPath is the backend route that accepts new cases.
const DefaultPath = "/new_case"

// CSRFHeader carries the anti-forgery token.
const CSRFHeader = "X-CSRFToken"

const spanName = "intake.submit_case"

// Credentials are the browser's anti-forgery token and session cookies,
// captured when the wizard was mounted.
type Credentials struct {
	CSRFToken string
	Cookies   []*http.Cookie
}

// Result is a successful backend answer.
type Result struct {
	Status  int
	Message string
}

// Error is a rejected or failed submission. Its text is the reason shown
// to the user: the backend's message, the body parse error or the
// transport error.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// fallbackMessage is used when the backend rejects a case without a message.
const fallbackMessage = "Submission failed"

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Client submits cases over HTTP.
type Client struct {
	baseURL string
	path    string
	http    *http.Client
	timeout time.Duration
	tracer  trace.Tracer
	metrics *metrics.IntakeMetrics
	logger  logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithPath overrides DefaultPath.
func WithPath(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.path = path
		}
	}
}

// WithTimeout bounds each submission. Zero means no bound beyond the
// caller's context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		c.tracer = t
	}
}

func WithMetrics(m *metrics.IntakeMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithLogger(l logging.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		path:    DefaultPath,
		http:    &http.Client{},
		tracer:  otel.Tracer("intake/submission"),
		logger:  logging.NopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the URL cases are posted to.
func (c *Client) Endpoint() string {
	return c.baseURL + c.path
}

// Submit posts payload as JSON. It makes exactly one request and never
// retries. Every failure is returned as *Error.
func (c *Client) Submit(ctx context.Context, payload map[string]string, creds Credentials) (Result, error) {
	ctx, span := c.tracer.Start(ctx, spanName, trace.WithAttributes(
		attribute.String("http.url", c.Endpoint()),
		attribute.Int("intake.payload_keys", len(payload)),
	))
	defer span.End()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := c.do(ctx, payload, creds)
	elapsed := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, strings.TrimSpace(err.Error()))
		c.metrics.ObserveSubmission(metrics.OutcomeFailure, elapsed.Seconds())
		c.logger.Warn("case rejected",
			logging.Err(err),
			logging.Duration("elapsed", elapsed),
		)
		return Result{}, err
	}

	span.SetAttributes(attribute.Int("http.status_code", res.Status))
	c.metrics.ObserveSubmission(metrics.OutcomeSuccess, elapsed.Seconds())
	c.logger.Info("case accepted",
		logging.Int("status", res.Status),
		logging.Duration("elapsed", elapsed),
	)
	return res, nil
}

func (c *Client) do(ctx context.Context, payload map[string]string, creds Credentials) (Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, &Error{Message: err.Error(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return Result{}, &Error{Message: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(CSRFHeader, creds.CSRFToken)
	for _, cookie := range creds.Cookies {
		req.AddCookie(cookie)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, &Error{Message: transportMessage(err), Err: err}
	}
	defer resp.Body.Close()

	var parsed response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Result{}, &Error{
			Status:  resp.StatusCode,
			Message: err.Error(),
			Err:     fmt.Errorf("decode response: %w", err),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := parsed.Message
		if msg == "" {
			msg = fallbackMessage
		}
		return Result{}, &Error{Status: resp.StatusCode, Message: msg}
	}

	return Result{Status: resp.StatusCode, Message: parsed.Message}, nil
}

// transportMessage strips the url.Error wrapping so the user sees the
// cause rather than the request line.
func transportMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	case errors.Is(err, context.Canceled):
		return "request canceled"
	}
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Err != nil {
		return uerr.Err.Error()
	}
	return err.Error()
}

// Submitter binds a Client to one set of credentials.
type Submitter struct {
	Client *Client
	Creds  Credentials
}

// SubmitCase posts payload and returns the backend's success message.
func (s Submitter) SubmitCase(ctx context.Context, payload map[string]string) (string, error) {
	res, err := s.Client.Submit(ctx, payload, s.Creds)
	if err != nil {
		return "", err
	}
	return res.Message, nil
}
