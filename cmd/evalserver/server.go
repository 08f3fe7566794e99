package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"

	"github.com/aiqaio/evalserver/internal/api"
	"github.com/aiqaio/evalserver/internal/auth"
	"github.com/aiqaio/evalserver/internal/config"
	"github.com/aiqaio/evalserver/internal/experiment"
	"github.com/aiqaio/evalserver/internal/ingest"
	"github.com/aiqaio/evalserver/internal/observability"
	"github.com/aiqaio/evalserver/internal/providers"
	"github.com/aiqaio/evalserver/internal/ratelimit"
	"github.com/aiqaio/evalserver/internal/scorer"
	"github.com/aiqaio/evalserver/internal/searchstore"
	"github.com/aiqaio/evalserver/internal/store"
)

// healthServiceName is the gRPC health service name reported for the
// process as a whole, following the teacher's single-name health server
// registration (one health server, one overall status, rather than a
// per-method breakdown).
const healthServiceName = "evalserver"

// server wires every component built in build() and owns the two listeners
// spec.md section 6 names plus the metrics/health HTTP listener, following
// the teacher's gateway.Server split between construction (server.go) and
// lifecycle (lifecycle.go) — collapsed into one file since this service has
// far fewer subsystems to start and stop in order.
type server struct {
	cfg *config.Config
	log *slog.Logger

	stores     store.StoreSet
	redis      *redis.Client
	tracerDone func(context.Context) error

	httpServer    *http.Server
	httpListener  net.Listener
	grpcServer    *grpc.Server
	grpcListener  net.Listener
	metricsServer *http.Server
	metricsListen net.Listener

	healthServer *health.Server
}

// build assembles every dependency named in spec.md section 5 ("three
// backing-store client handles") plus the derived services layered on top,
// then constructs the HTTP and gRPC listeners. No listener is opened until
// Start is called.
func build(cfg *config.Config) (*server, error) {
	domainLog := observability.NewLogger(observability.LogConfig{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.AddSource,
	})
	bootLog := slog.Default()

	tracer, tracerDone := observability.NewTracer(observability.TraceConfig{
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		Environment:    cfg.Observability.Environment,
		Endpoint:       cfg.Observability.TraceEndpoint,
	})

	stores, err := store.NewPostgresStoresFromDSN(cfg.Database.URL, &store.PostgresConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  cfg.Database.ConnectTimeout,
	}, tracer)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RateLimit.RedisURL)
	if err != nil {
		_ = stores.Close()
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	limiter := ratelimit.NewLimiter(redisClient, bootLog)

	spans := searchstore.NewClient(cfg.Search.URL)

	authService := auth.NewService(auth.Config{
		JWTSecret:   cfg.Auth.JWTSecret,
		TokenExpiry: cfg.Auth.TokenExpiry,
	}, stores.APIKeys)

	metrics := observability.NewMetrics()

	registry := providers.NewRegistry(buildProviders(cfg.Providers, bootLog))
	judge := scorer.New(registry, tracer)

	pipeline := &ingest.Pipeline{
		Orgs:    stores.Organisations,
		Limiter: limiter,
		Spans:   spans,
		Log:     domainLog,
		Tracer:  tracer,
		Metrics: metrics,
	}

	experiments := &experiment.Service{
		Datasets:    stores.Datasets,
		Experiments: stores.Experiments,
		Examples:    spans,
		Scorer:      judge,
		Log:         domainLog,
	}

	apiMux := http.NewServeMux()
	apiMux.Handle("/span", ingest.HTTPHandler(pipeline))
	apiMux.Handle("/", api.NewRouter(api.Deps{
		Datasets:    stores.Datasets,
		Experiments: stores.Experiments,
		Examples:    spans,
		Scoring:     experiments,
		Auth:        authService,
		Log:         bootLog,
		Tracer:      tracer,
	}))

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(auth.UnaryInterceptor(authService, bootLog)),
		grpc.ChainStreamInterceptor(auth.StreamInterceptor(authService, bootLog)),
	)
	coltracepb.RegisterTraceServiceServer(grpcServer, ingest.NewTraceServiceServer(pipeline))

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(healthServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	s := &server{
		cfg:        cfg,
		log:        bootLog,
		stores:     stores,
		redis:      redisClient,
		tracerDone: tracerDone,
		httpServer: httpServer,
		grpcServer: grpcServer,
		metricsServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.MetricsPort),
			Handler:           metricsMux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		healthServer: healthServer,
	}
	metricsMux.HandleFunc("/healthz", s.handleHealthz)
	return s, nil
}

// buildProviders constructs only the LLM-judge providers whose credential
// is actually configured, so a registry miss (spec.md section 4.6's
// "unknown provider" case) is a real configuration error rather than a
// silently-nil client.
func buildProviders(cfg config.ProvidersConfig, log *slog.Logger) map[string]providers.Provider {
	named := make(map[string]providers.Provider, 4)
	if cfg.OpenAIAPIKey != "" {
		named["openai"] = providers.NewOpenAIProvider(providers.OpenAIConfig{APIKey: cfg.OpenAIAPIKey})
	}
	if cfg.AzureOpenAIAPIKey != "" {
		named["azure-openai"] = providers.NewOpenAIProvider(providers.OpenAIConfig{
			APIKey:          cfg.AzureOpenAIAPIKey,
			AzureBaseURL:    cfg.AzureOpenAIBaseURL,
			AzureAPIVersion: cfg.AzureOpenAIAPIVer,
		})
	}
	if cfg.AnthropicAPIKey != "" {
		named["anthropic"] = providers.NewAnthropicProvider(cfg.AnthropicAPIKey)
	}
	if cfg.GeminiAPIKey != "" {
		gemini, err := providers.NewGeminiProvider(context.Background(), cfg.GeminiAPIKey)
		if err != nil {
			log.Warn("gemini provider unavailable, llm-judge calls against it will fail", "error", err)
		} else {
			named["gemini"] = gemini
		}
	}
	return named
}

// Start opens the HTTP, gRPC, and metrics listeners and serves them
// concurrently until ctx is cancelled or one of them fails, following the
// teacher's error-channel-per-listener pattern in handlers_serve.go.
func (s *server) Start(ctx context.Context) error {
	httpListener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}
	s.httpListener = httpListener

	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Server.GRPCPort))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	s.grpcListener = grpcListener

	metricsListener, err := net.Listen("tcp", s.metricsServer.Addr)
	if err != nil {
		return fmt.Errorf("metrics listen: %w", err)
	}
	s.metricsListen = metricsListener

	errCh := make(chan error, 3)
	go func() {
		if err := s.httpServer.Serve(httpListener); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
			return
		}
		errCh <- nil
	}()
	go func() {
		if err := s.grpcServer.Serve(grpcListener); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
			return
		}
		errCh <- nil
	}()
	go func() {
		if err := s.metricsServer.Serve(metricsListener); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("metrics server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Stop drains both OTLP listeners and the backing-store handles, bounded by
// shutdownCtx's deadline (spec.md section 5's "2 s budget" for
// ShutdownGracePeriod, surfaced through config).
func (s *server) Stop(shutdownCtx context.Context) error {
	s.healthServer.SetServingStatus(healthServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		s.grpcServer.Stop()
	}

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("http server shutdown error", "error", err)
	}
	if err := s.metricsServer.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("metrics server shutdown error", "error", err)
	}

	if s.tracerDone != nil {
		if err := s.tracerDone(shutdownCtx); err != nil {
			s.log.Warn("tracer shutdown error", "error", err)
		}
	}
	if err := s.redis.Close(); err != nil {
		s.log.Warn("redis client close error", "error", err)
	}
	if err := s.stores.Close(); err != nil {
		return fmt.Errorf("close stores: %w", err)
	}
	return nil
}

// handleHealthz reports liveness plus a best-effort reachability probe of
// the three backing stores (spec.md section 5), following the teacher's
// handleHealthz JSON-body shape.
func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	checks := map[string]string{}

	if err := s.redis.Ping(ctx).Err(); err != nil {
		checks["redis"] = err.Error()
		status = "degraded"
	} else {
		checks["redis"] = "ok"
	}
	if _, err := s.stores.Organisations.Get(ctx, "__healthz__"); err != nil && err != store.ErrNotFound {
		checks["database"] = err.Error()
		status = "degraded"
	} else {
		checks["database"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	if status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	fmt.Fprintf(w, `{"status":%q,"checks":{"redis":%q,"database":%q}}`, status, checks["redis"], checks["database"])
}
