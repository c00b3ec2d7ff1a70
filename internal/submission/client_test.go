package submission

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/vetcare/intake/internal/metrics"
)

func newTestTracer() (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return provider, recorder
}

func TestClient_SubmitSuccess(t *testing.T) {
	var (
		gotBody    map[string]string
		gotHeaders http.Header
		gotCookie  string
		gotMethod  string
		gotPath    string
	)
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotHeaders = r.Header.Clone()
		if c, err := r.Cookie("session"); err == nil {
			gotCookie = c.Value
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"message":"Case added successfully"}`))
	}))
	defer backend.Close()

	provider, recorder := newTestTracer()
	client := NewClient(backend.URL+"/",
		WithTracer(provider.Tracer("test")),
		WithMetrics(metrics.NewIntakeMetrics(prometheus.NewRegistry())),
	)

	payload := map[string]string{"client_name": "Ada", "breed": ""}
	res, err := client.Submit(context.Background(), payload, Credentials{
		CSRFToken: "tok-123",
		Cookies:   []*http.Cookie{{Name: "session", Value: "s1"}},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, res.Status)
	assert.Equal(t, "Case added successfully", res.Message)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, DefaultPath, gotPath)
	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	assert.Equal(t, "tok-123", gotHeaders.Get(CSRFHeader))
	assert.Equal(t, "s1", gotCookie)
	assert.Equal(t, payload, gotBody)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, spanName, spans[0].Name())
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestClient_SubmitFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"backend message", http.StatusInternalServerError, `{"success":false,"message":"db down"}`, "db down"},
		{"no message", http.StatusBadRequest, `{"success":false}`, "Submission failed"},
		{"empty message", http.StatusForbidden, `{"message":""}`, "Submission failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer backend.Close()

			_, err := NewClient(backend.URL).Submit(context.Background(), nil, Credentials{})
			require.Error(t, err)

			var serr *Error
			require.True(t, errors.As(err, &serr))
			assert.Equal(t, tt.status, serr.Status)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestClient_NonJSONBodyIsFailure(t *testing.T) {
	// A 2xx answer still fails when the body is not JSON.
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer backend.Close()

	provider, recorder := newTestTracer()
	_, err := NewClient(backend.URL, WithTracer(provider.Tracer("test"))).
		Submit(context.Background(), map[string]string{}, Credentials{})

	var serr *Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusOK, serr.Status)
	assert.NotEmpty(t, serr.Message)
	assert.Error(t, errors.Unwrap(err))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestClient_NetworkFailure(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	url := backend.URL
	backend.Close()

	_, err := NewClient(url).Submit(context.Background(), nil, Credentials{})

	var serr *Error
	require.ErrorAs(t, err, &serr)
	assert.Zero(t, serr.Status)
	assert.NotEmpty(t, err.Error())
	assert.NotContains(t, err.Error(), "Post ", "request line is stripped")
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer backend.Close()
	defer close(release)

	_, err := NewClient(backend.URL, WithTimeout(50*time.Millisecond)).
		Submit(context.Background(), nil, Credentials{})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "request timed out", err.Error())
}

func TestClient_WithPath(t *testing.T) {
	var gotPath string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"message":"ok"}`))
	}))
	defer backend.Close()

	c := NewClient(backend.URL, WithPath("/api/cases"))
	assert.Equal(t, backend.URL+"/api/cases", c.Endpoint())

	msg, err := Submitter{Client: c}.SubmitCase(context.Background(), map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, "ok", msg)
	assert.Equal(t, "/api/cases", gotPath)
}
