package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/itstheanurag/kodanaliz/internal/analyzer"
	"github.com/itstheanurag/kodanaliz/internal/api"
	"github.com/itstheanurag/kodanaliz/internal/config"
	"github.com/itstheanurag/kodanaliz/internal/database"
	"github.com/itstheanurag/kodanaliz/internal/judge0"
	"github.com/itstheanurag/kodanaliz/internal/languages"
	"github.com/itstheanurag/kodanaliz/internal/limiter"
	"github.com/itstheanurag/kodanaliz/internal/localize"
	"github.com/itstheanurag/kodanaliz/internal/orchestrator"
	"github.com/itstheanurag/kodanaliz/internal/queue"
	"github.com/itstheanurag/kodanaliz/internal/sandbox"
	"github.com/itstheanurag/kodanaliz/internal/worker"
	"github.com/itstheanurag/kodanaliz/internal/workspace"
)

type Server struct {
	conf         *config.Config
	logger       *zerolog.Logger
	httpServer   *http.Server
	db           *database.Database
	audit        *database.AuditLog
	langs        []languages.Language
	sandbox      sandbox.Sandbox
	orchestrator *orchestrator.Orchestrator
	queue        *queue.Manager
	workers      []*worker.Worker
	rateLimiter  *limiter.RateLimiter
	cancelFunc   context.CancelFunc
	wg           sync.WaitGroup
}

func New(
	conf *config.Config,
	logger *zerolog.Logger,
) (*Server, error) {
	sb, err := newSandbox(conf.Sandbox, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create sandbox: %w", err)
	}

	langs := languages.Defaults(languages.Options{
		Run:              conf.Sandbox.RunLimits(),
		PylintRC:         conf.Analysis.PylintRC,
		CheckstyleConfig: conf.Analysis.CheckstyleConfig,
		ESLintConfig:     conf.Analysis.ESLintConfig,
	})
	workspaces := workspace.NewManager(conf.Sandbox.WorkspaceRoot, logger)
	registry := analyzer.NewDefaultRegistry(langs, sb, workspaces, logger)
	if err := registerRemote(registry, langs, conf, logger); err != nil {
		return nil, err
	}

	orch := orchestrator.New(registry, orchestrator.Options{
		MaxInFlight:    int64(conf.Analysis.MaxInFlight),
		MaxSourceBytes: conf.Analysis.MaxSourceBytes,
	}, logger)

	localizer, err := localize.New(conf.Analysis.DefaultLocale)
	if err != nil {
		return nil, fmt.Errorf("failed to load message catalogs: %w", err)
	}

	s := &Server{
		conf:         conf,
		logger:       logger,
		langs:        langs,
		sandbox:      sb,
		orchestrator: orch,
		queue:        queue.NewManager(conf.Analysis.QueueCapacity),
		rateLimiter: limiter.NewRateLimiter(
			conf.Server.GlobalRPS,
			conf.Server.PerIPRPS,
			conf.Server.PerIPBurst,
			conf.Server.MaxConcurrent,
		),
	}

	var recorder worker.Recorder
	if conf.Db.Enabled() {
		db, err := database.New(conf, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
		s.db = db
		s.audit = database.NewAuditLog(db.Pool)
		recorder = s.audit
	}

	s.workers = make([]*worker.Worker, conf.Analysis.Workers)
	for i := range s.workers {
		s.workers[i] = worker.NewWorker(i, orch, s.queue, recorder, logger)
	}

	handler := api.NewHandler(s.queue, localizer, orch,
		time.Duration(conf.Server.RequestTimeout)*time.Second, logger)

	s.httpServer = &http.Server{
		Addr:         ":" + conf.Server.Port,
		Handler:      s.routes(handler),
		ReadTimeout:  time.Duration(conf.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(conf.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(conf.Server.IdleTimeout) * time.Second,
	}
	return s, nil
}

func newSandbox(conf config.SandboxConfig, logger *zerolog.Logger) (sandbox.Sandbox, error) {
	switch conf.Backend {
	case "docker":
		return sandbox.NewDockerSandbox(logger, sandbox.WithContainerMaxOutput(conf.MaxOutputBytes))
	case "", "process":
		return sandbox.NewProcessSandbox(logger, sandbox.WithMaxOutput(conf.MaxOutputBytes)), nil
	default:
		return nil, fmt.Errorf("unknown sandbox backend %q", conf.Backend)
	}
}

// registerRemote replaces local pipelines with Judge0 backed analyzers for
// the configured languages.
func registerRemote(registry *analyzer.Registry, langs []languages.Language, conf *config.Config, logger *zerolog.Logger) error {
	if len(conf.Analysis.RemoteLanguages) == 0 {
		return nil
	}
	client := judge0.NewClient(conf.Judge0.BaseURL, conf.Judge0.APIKey,
		time.Duration(conf.Judge0.TimeoutSeconds)*time.Second, logger)
	for _, id := range conf.Analysis.RemoteLanguages {
		id = strings.ToLower(strings.TrimSpace(id))
		found := false
		for _, l := range langs {
			if l.ID == id {
				registry.Register(judge0.NewAnalyzer(client, l, logger))
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("remote language %q is not a known language", id)
		}
		logger.Info().Str("language", id).Str("base_url", conf.Judge0.BaseURL).Msg("language analyzed remotely")
	}
	return nil
}

func (s *Server) routes(h *api.Handler) http.Handler {
	s.rateLimiter.SetMessage(h.RateLimited)

	r := mux.NewRouter()
	r.HandleFunc("/", h.Home).Methods(http.MethodGet)
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/languages", h.Languages).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.Handle("/analyze", s.rateLimiter.Middleware(http.HandlerFunc(h.Analyze))).Methods(http.MethodPost)

	c := cors.New(cors.Options{
		AllowedOrigins: s.conf.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept-Language"},
	})
	return c.Handler(r)
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	s.logger.Info().
		Str("port", s.conf.Server.Port).
		Str("sandbox", s.sandbox.Name()).
		Int("workers", len(s.workers)).
		Msg("starting HTTP server")

	ctx, cancel := context.WithCancel(context.Background())
	s.cancelFunc = cancel

	if err := s.ensureImages(ctx); err != nil {
		return fmt.Errorf("failed to ensure images: %w", err)
	}
	if s.audit != nil {
		if err := s.audit.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate audit log: %w", err)
		}
	}

	s.rateLimiter.StartCleanup(ctx, 5*time.Minute)
	for _, w := range s.workers {
		s.wg.Add(1)
		go func(w *worker.Worker) {
			defer s.wg.Done()
			w.Start(ctx)
		}(w)
	}

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

func (s *Server) ensureImages(ctx context.Context) error {
	seen := make(map[string]bool)
	for _, l := range s.langs {
		if l.Image == "" || seen[l.Image] {
			continue
		}
		seen[l.Image] = true
		if err := s.sandbox.EnsureImage(ctx, l.Image); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")

	err := s.httpServer.Shutdown(ctx)
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.wg.Wait()

	if c, ok := s.sandbox.(interface{ Close() error }); ok {
		if cerr := c.Close(); cerr != nil {
			s.logger.Warn().Err(cerr).Msg("failed to close sandbox client")
		}
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	if err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}
