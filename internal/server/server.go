// Package server assembles the intake HTTP surface: the wizard page, its
// live connection, the browser script and operational endpoints.
package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vetcare/intake/client"
	"github.com/vetcare/intake/internal/config"
	"github.com/vetcare/intake/internal/intake"
	"github.com/vetcare/intake/internal/metrics"
	"github.com/vetcare/intake/internal/submission"
	"github.com/vetcare/intake/pkg/health"
	"github.com/vetcare/intake/pkg/limits"
	"github.com/vetcare/intake/pkg/live"
	"github.com/vetcare/intake/pkg/logging"
	"github.com/vetcare/intake/pkg/transport"
)

// Routes.
const (
	PagePath   = "/intake"
	LivePath   = "/intake/live"
	StaticPath = "/static/"
)

// Options configures New.
type Options struct {
	Config  *config.Config
	Logger  logging.Logger
	Version string

	// Registry receives the intake and runtime collectors and backs
	// /metrics. A fresh registry is created when nil.
	Registry *prometheus.Registry

	// HTTPClient is used for case submissions and the backend readiness check.
	HTTPClient *http.Client
}

// New builds the router.
func New(opts Options) http.Handler {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.FromEnv()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger{}
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	m := metrics.NewIntakeMetrics(reg)

	cases := submission.NewClient(cfg.BackendURL,
		submission.WithHTTPClient(hc),
		submission.WithPath(cfg.SubmitPath),
		submission.WithTimeout(cfg.SubmitTimeout),
		submission.WithMetrics(m),
		submission.WithLogger(logger),
	)

	host := live.NewHost(
		intake.Factory(intake.Options{Client: cases, Logger: logger, Metrics: m}),
		live.WithTitle("Patient intake"),
		live.WithLivePath(LivePath),
		live.WithScript(StaticPath+client.ScriptName),
		live.WithOriginPolicy(transport.OriginPolicy{
			AllowedOrigins: cfg.AllowedOrigins,
			InsecureDev:    cfg.InsecureDev,
		}),
		live.WithTokenSource(live.TokenSource{
			CookieName: cfg.CSRFCookie,
			HeaderName: submission.CSRFHeader,
		}),
		live.WithLogger(logger),
		live.WithObserver(m),
	)

	checker := health.NewChecker(opts.Version)
	checker.AddCriticalCheck("case_backend",
		health.HTTPCheck(hc, strings.TrimRight(cfg.BackendURL, "/")+"/"), 2*time.Second)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(logging.RequestLogger(logger))

	r.Get("/", host.ServePage)
	r.Get(PagePath, host.ServePage)
	conns := limits.NewConnectionLimiter(cfg.MaxConnsPerIP, cfg.MaxConns)
	r.With(conns.Middleware).Get(LivePath, host.ServeLive)
	r.Handle(StaticPath+"*", http.StripPrefix(StaticPath, client.Handler()))

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Method(http.MethodGet, "/healthz", checker.LivenessHandler())
	r.Method(http.MethodGet, "/readyz", checker.ReadinessHandler())

	return r
}
