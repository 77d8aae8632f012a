// Package server wires the gateway together: HTTP routing, the access
// gate, the JSON-RPC dispatcher, persistence, metrics, and hot reload
// of operator-edited files.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/okhotin/agentgate/internal/action"
	"github.com/okhotin/agentgate/internal/alert"
	"github.com/okhotin/agentgate/internal/audit"
	"github.com/okhotin/agentgate/internal/config"
	"github.com/okhotin/agentgate/internal/gate"
	"github.com/okhotin/agentgate/internal/guardrail"
	"github.com/okhotin/agentgate/internal/permission"
	"github.com/okhotin/agentgate/internal/ratelimit"
	"github.com/okhotin/agentgate/internal/registry"
	"github.com/okhotin/agentgate/internal/repository/sqlite"
	"github.com/okhotin/agentgate/internal/reputation"
	"github.com/okhotin/agentgate/internal/rpc"
	"github.com/okhotin/agentgate/internal/token"
)

// Server owns every gateway component and the HTTP router in front of
// them.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	tokens     *token.Service
	limiter    *ratelimit.Limiter
	agents     registry.Store
	reg        *registry.Registry
	reputation *reputation.Reader
	catalog    *action.Catalog
	engine     *guardrail.Engine
	blocklist  *gate.Blocklist
	dispatcher *rpc.Dispatcher
	auditLog   *audit.Log
	metrics    *Metrics

	db      *sqlite.DB
	rdb     *redis.Client
	promReg *prometheus.Registry
	router  chi.Router
}

// New builds a fully wired Server from config. Empty storage path
// selects in-memory stores; the "redis" rate-limit backend shares one
// counter table across gateway instances.
func New(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	key, err := token.LoadSigningKey(cfg.Auth.SigningKeyPath, cfg.Auth.Production)
	if err != nil {
		return nil, fmt.Errorf("load signing key: %w", err)
	}

	s := &Server{cfg: cfg, logger: logger}

	var rateStore ratelimit.Store
	if cfg.RateLimit.Backend == "redis" {
		s.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rateStore = ratelimit.NewRedisStore(s.rdb)
	} else {
		rateStore = ratelimit.NewMemoryStore()
	}
	s.limiter = ratelimit.New(rateStore, cfg.RateLimit.Limit, cfg.RateLimit.Window)

	var repStore reputation.Store
	if cfg.Storage.Path != "" {
		s.db, err = sqlite.Open(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		s.agents = s.db.Agents()
		repStore = s.db.Reputation()
	} else {
		s.agents = registry.NewMemoryStore()
		repStore = reputation.NewMemoryStore()
	}
	s.reg = registry.New(s.agents)
	s.reputation = reputation.NewReader(repStore, logger)

	permMap, err := permissionMap(s.agents)
	if err != nil {
		return nil, fmt.Errorf("load permission map: %w", err)
	}
	s.tokens, err = token.NewService(key,
		token.WithTTL(cfg.Auth.TokenTTL),
		token.WithPermissionMap(permMap))
	if err != nil {
		return nil, fmt.Errorf("token service: %w", err)
	}

	s.catalog, err = action.Load(cfg.Guardrail.ActionsPath)
	if err != nil {
		return nil, fmt.Errorf("load action catalog: %w", err)
	}

	rules, err := guardrail.LoadRules(cfg.Guardrail.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("load guardrail rules: %w", err)
	}
	s.engine = guardrail.NewEngine(rules, rateStore)

	s.blocklist, err = gate.LoadBlocklist(cfg.Guardrail.BlocklistPath)
	if err != nil {
		return nil, fmt.Errorf("load blocklist: %w", err)
	}

	if cfg.Audit.Path != "" {
		s.auditLog, err = audit.Open(cfg.Audit.Path)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
	}

	alerts := alert.NewDispatcher(webhookConfigs(cfg.Alerts.Webhooks), logger)

	s.promReg = prometheus.NewRegistry()
	s.metrics = NewMetrics(s.promReg)

	s.dispatcher = rpc.NewDispatcher(s.catalog, s.engine, NewShopExecutor(),
		rpc.WithReputation(s.reputation),
		rpc.WithAudit(s.auditLog),
		rpc.WithAlerts(alerts),
		rpc.WithDecisionHook(func(decision string) {
			s.metrics.DecisionsTotal.WithLabelValues(decision).Inc()
		}),
		rpc.WithLogger(logger))

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	g := gate.New(s.tokens, s.limiter, s.blocklist, s.logger)

	r := chi.NewRouter()
	r.Use(gate.CORS)
	r.Use(s.countRejections)

	r.Route("/agent", func(r chi.Router) {
		// Public surface: still rate limited and blocklisted.
		r.Group(func(r chi.Router) {
			r.Use(g.Middleware(false))
			r.Get("/health", s.handleHealth)
			r.Get("/info", s.handleInfo)
			r.Get("/rpc", s.handleRPCInfo)
			r.Post("/token", s.handleIssueToken)
		})

		// Protected surface: verified token required.
		r.Group(func(r chi.Router) {
			r.Use(g.Middleware(true))
			r.Post("/rpc", s.handleRPC)
			r.Get("/token/introspect", s.handleIntrospect)
		})
	})

	r.Method(http.MethodGet, "/metrics",
		promhttp.HandlerFor(s.promReg, promhttp.HandlerOpts{}))

	s.router = r
}

// countRejections feeds the rate-limit rejection counter from the
// response status, so the gate itself stays metrics-free.
func (s *Server) countRejections(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		if ww.Status() == http.StatusTooManyRequests {
			s.metrics.RateLimited.Inc()
		}
	})
}

// Router exposes the configured handler, mainly for tests.
func (s *Server) Router() http.Handler { return s.router }

// Agents exposes the registry store for seeding and CLI management.
func (s *Server) Agents() registry.Store { return s.agents }

// Serve runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("gateway listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Reload re-reads the operator-edited files (guardrail rules, action
// catalog, blocklist) and swaps them atomically. Called by the
// hot-reloader on file change.
func (s *Server) Reload() error {
	rules, err := guardrail.LoadRules(s.cfg.Guardrail.RulesPath)
	if err != nil {
		return fmt.Errorf("reload guardrail rules: %w", err)
	}

	if err := s.catalog.Reload(s.cfg.Guardrail.ActionsPath); err != nil {
		return fmt.Errorf("reload action catalog: %w", err)
	}

	blocklist, err := gate.LoadBlocklist(s.cfg.Guardrail.BlocklistPath)
	if err != nil {
		return fmt.Errorf("reload blocklist: %w", err)
	}

	s.engine.SetRules(rules)
	s.blocklist.Swap(blocklist)
	s.logger.Info("configuration reloaded")
	return nil
}

// Close releases storage handles.
func (s *Server) Close() error {
	var errs []error
	if s.auditLog != nil {
		errs = append(errs, s.auditLog.Close())
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	if s.rdb != nil {
		errs = append(errs, s.rdb.Close())
	}
	return errors.Join(errs...)
}

// permissionMap snapshots each registered agent's grants keyed by
// provider/name for the token service's issuance lookup.
func permissionMap(store registry.Store) (map[string][]permission.Level, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ids, err := store.List(ctx)
	if err != nil {
		return nil, err
	}

	m := make(map[string][]permission.Level, len(ids))
	for _, id := range ids {
		rec, err := store.Get(ctx, id.ID)
		if err != nil {
			continue
		}
		m[id.Provider+"/"+id.Name] = permission.FromStrings(rec.Permissions)
	}
	return m, nil
}

func webhookConfigs(in []config.WebhookConfig) []alert.WebhookConfig {
	out := make([]alert.WebhookConfig, 0, len(in))
	for _, w := range in {
		out = append(out, alert.WebhookConfig{
			URL:     w.URL,
			Format:  w.Format,
			Events:  w.Events,
			Headers: w.Headers,
		})
	}
	return out
}
