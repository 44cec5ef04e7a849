package adminhttp

import (
	"context"
	"encoding/json"
	"io/fs"
	"net"
	"net/http"
	"runtime"
	"sync"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/unrolled/secure"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/devfinder/devfinder/internal/auth"
	"github.com/devfinder/devfinder/internal/config"
	"github.com/devfinder/devfinder/internal/devices"
	"github.com/devfinder/devfinder/internal/history"
	"github.com/devfinder/devfinder/internal/metrics"
	"github.com/devfinder/devfinder/internal/scan"
	"github.com/devfinder/devfinder/internal/users"
	"github.com/devfinder/devfinder/internal/version"
	"github.com/devfinder/devfinder/ui"
)

const (
	defaultReadHeaderTimeout     = 5 * time.Second
	defaultIdleTimeout           = 10 * time.Second
	defaultWriteTimeout          = 15 * time.Second
	defaultShutdownTimeout       = 5 * time.Second
	defaultBroadcastInterval     = 5 * time.Second
	defaultWebSocketReadLimit    = 1024
	defaultWebSocketTimeout      = 60 * time.Second
	defaultWebSocketPingInterval = 30 * time.Second
	defaultWebSocketPingTimeout  = 5 * time.Second

	defaultHistoryLimit = 100

	scanRequestsPerSecond = 2
	scanBurst             = 4
)

// Server is the dashboard HTTP server: JSON API, websocket feed and the
// embedded single-page UI.
type Server struct {
	addr        string
	mux         *mux.Router
	cfg         *config.Config
	registry    *devices.Registry
	guard       *devices.Guard
	scanManager *scan.Manager
	feed        *history.Feed
	authService *auth.Service
	checker     *version.Checker
	wsMu        sync.Mutex
	conns       map[*websocket.Conn]struct{}
	startTime   time.Time
	version     string
	buildTime   string
	httpPort    int
}

// Deps bundles the server's collaborators.
type Deps struct {
	Config      *config.Config
	Registry    *devices.Registry
	Guard       *devices.Guard
	ScanManager *scan.Manager
	Feed        *history.Feed
	AuthService *auth.Service
	Checker     *version.Checker
}

// NewServer creates the dashboard server and registers all routes.
func NewServer(deps Deps) *Server {
	s := &Server{
		addr:        deps.Config.HTTP.Listen,
		mux:         mux.NewRouter(),
		cfg:         deps.Config,
		registry:    deps.Registry,
		guard:       deps.Guard,
		scanManager: deps.ScanManager,
		feed:        deps.Feed,
		authService: deps.AuthService,
		checker:     deps.Checker,
		conns:       make(map[*websocket.Conn]struct{}),
		startTime:   time.Now(),
		version:     version.GetVersion(),
		buildTime:   version.GetBuildTime(),
	}

	if _, port, err := net.SplitHostPort(s.addr); err == nil {
		s.httpPort, _ = net.DefaultResolver.LookupPort(context.Background(), "tcp", port)
	}

	s.routes()

	// Registry changes flow out over the websocket as they happen.
	s.registry.Subscribe(func(ev devices.Event) {
		s.broadcast(map[string]any{"type": ev.Type, "data": ev.Device})
		s.broadcast(map[string]any{"type": "sections", "data": s.registry.Sections("")})
	})

	return s
}

// Handler exposes the route table without the outer middleware chain.
func (s *Server) Handler() http.Handler { return s.mux }

// SetVersion allows cmd layer to propagate version/build time.
func (s *Server) SetVersion(ver, build string) {
	if ver != "" {
		s.version = ver
	}

	if build != "" {
		s.buildTime = build
	}
}

func jsonResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errchkjson // intentionally ignoring error for any type
}

func jsonError(w http.ResponseWriter, status int, err error) {
	type e struct {
		Error string `json:"error"`
	}
	jsonResponse(w, status, e{Error: err.Error()})
}

func (s *Server) Start(ctx context.Context) error {
	// Fast-fail if port is occupied
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", s.addr)
	if err != nil {
		return err
	}

	_ = ln.Close()

	handler := s.buildMiddlewareChain(ctx)
	srv := s.createServer(ctx, handler)

	zerolog.Ctx(ctx).Info().Str("addr", s.addr).Msg("http listen")

	go func() { _ = srv.ListenAndServe() }()

	// periodic WS broadcasts
	go func() {
		ticker := time.NewTicker(defaultBroadcastInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.broadcast(map[string]any{"type": "stats", "data": s.collectStats()})
				s.broadcast(map[string]any{"type": "overview", "data": s.collectOverview()})
			}
		}
	}()

	return nil
}

//nolint:funlen // route table
func (s *Server) routes() {
	deviceAPI := devices.NewAPIHandler(s.registry, s.guard, s.feed)
	scanAPI := scan.NewAPIHandler(s.scanManager, s.registry, s.feed)
	authAPI := auth.NewAPIHandler(s.authService)
	userAPI := users.NewAPIHandler(s.cfg)

	// Manual and edited device IPs get a reverse DNS name when real
	// scanning is on; simulated setups have nothing to resolve against.
	if !s.cfg.Scan.Simulate {
		deviceAPI.SetResolver(scan.NewResolver(""))
	}

	// API v1 routes, role-gated once accounts exist
	api := s.mux.PathPrefix("/api/v1").Subrouter()
	api.Use(s.requireAPIAccess)

	deviceAPI.RegisterRoutes(api)
	scanAPI.RegisterRoutes(api)

	// Statistics and monitoring
	api.HandleFunc("/stats", s.handleStats).Methods("GET")
	api.HandleFunc("/history", s.handleHistory).Methods("GET")
	api.HandleFunc("/info", s.handleInfo).Methods("GET")
	api.HandleFunc("/overview", s.handleOverview).Methods("GET")
	api.HandleFunc("/config", s.handleConfig).Methods("GET")
	api.HandleFunc("/version/check", s.handleVersionCheck).Methods("GET")

	// Authentication (registers its own /api/v1/auth prefix)
	authAPI.RegisterRoutes(s.mux)

	// User management requires an authenticated admin
	usersRouter := s.mux.PathPrefix("/api/v1/users").Subrouter()
	usersRouter.Use(
		auth.AuthMiddleware(s.authService),
		auth.RequireAnyPermission(auth.PermissionViewUsers, auth.PermissionCreateUsers),
	)
	userAPI.RegisterRoutes(usersRouter)

	// Legacy dashboard routes with the original wire shapes
	compat := s.mux.PathPrefix("/api").Subrouter()
	scanAPI.RegisterCompatRoutes(compat)

	// Health check
	s.mux.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Metrics
	s.mux.Handle("/metrics", promhttp.Handler())

	// Static files and SPA fallback
	if staticFS, err := fs.Sub(ui.Assets, "dist/static"); err == nil {
		s.mux.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	}

	s.mux.PathPrefix("/").HandlerFunc(serveIndex)
}

type serverInfoDTO struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	HTTPPort  int    `json:"http_port"`
	Uptime    string `json:"uptime"`
	BuildTime string `json:"build_time,omitempty"`
}

func serveIndex(w http.ResponseWriter, r *http.Request) {
	// Serve index.html for SPA routing
	data, err := ui.Assets.ReadFile("dist/index.html")
	if err != nil {
		http.Error(w, "ui not found", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(data)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	st, err := metrics.GatherStats(metrics.Service())
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err)

		return
	}

	jsonResponse(w, http.StatusOK, st)
}

func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	entries := s.feed.List(defaultHistoryLimit)

	jsonResponse(w, http.StatusOK, map[string]any{
		"events": entries,
		"count":  len(entries),
	})
}

// handleConfig returns the configuration without user password hashes.
func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, http.StatusOK, s.cfg.ToSafeConfig())
}

// handleVersionCheck asks the release feed whether an update exists.
func (s *Server) handleVersionCheck(w http.ResponseWriter, r *http.Request) {
	if s.checker == nil {
		jsonResponse(w, http.StatusOK, map[string]any{
			"current":          s.version,
			"update_available": false,
		})

		return
	}

	result, err := s.checker.Check(r.Context())
	if err != nil {
		jsonError(w, http.StatusBadGateway, err)

		return
	}

	jsonResponse(w, http.StatusOK, result)
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }} //nolint:gochecknoglobals // websocket upgrader

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Log the error but don't use http.Error as it conflicts with WebSocket upgrade
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("WebSocket upgrade failed")

		return
	}

	s.wsMu.Lock()
	s.conns[conn] = struct{}{}
	s.wsMu.Unlock()

	// Send initial snapshot
	s.sendJSON(conn, map[string]any{"type": "sections", "data": s.registry.Sections("")})
	s.sendJSON(conn, map[string]any{"type": "stats", "data": s.collectStats()})
	s.sendJSON(conn, map[string]any{"type": "overview", "data": s.collectOverview()})
	s.sendJSON(conn, map[string]any{"type": "history", "data": s.feed.List(defaultHistoryLimit)})

	// Configure connection
	conn.SetReadLimit(defaultWebSocketReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(defaultWebSocketTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(defaultWebSocketTimeout))

		return nil
	})

	// Start ping ticker
	go func(c *websocket.Conn) {
		ticker := time.NewTicker(defaultWebSocketPingInterval)
		defer ticker.Stop()

		for range ticker.C {
			if err := c.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(defaultWebSocketPingTimeout)); err != nil {
				break
			}
		}
	}(conn)

	// Handle incoming messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	// Cleanup
	s.wsMu.Lock()
	delete(s.conns, conn)
	s.wsMu.Unlock()

	_ = conn.Close()
}

func (s *Server) collectStats() metrics.Stats {
	st, _ := metrics.GatherStats(metrics.Service())

	return st
}

func (s *Server) collectOverview() map[string]any {
	return map[string]any{
		"registry":      s.registry.Stats(),
		"history_total": s.feed.Len(),
		"uptime":        time.Since(s.startTime).Round(time.Second).String(),
	}
}

func (s *Server) sendJSON(c *websocket.Conn, v any) { _ = c.WriteJSON(v) }

func (s *Server) broadcast(v any) {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()

	for c := range s.conns {
		_ = c.WriteJSON(v)
	}
}

// handleHealth provides health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	health := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   s.version,
		"uptime":    time.Since(s.startTime).String(),
		"ready":     metrics.IsReady(),
	}
	jsonResponse(w, http.StatusOK, health)
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	uptime := time.Since(s.startTime)

	info := serverInfoDTO{
		Version:   s.version,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		HTTPPort:  s.httpPort,
		Uptime:    uptime.Round(time.Second).String(),
		BuildTime: s.buildTime,
	}

	jsonResponse(w, http.StatusOK, info)
}

// handleOverview aggregates lightweight data for the dashboard.
func (s *Server) handleOverview(w http.ResponseWriter, _ *http.Request) {
	payload := s.collectOverview()
	payload["stats"] = s.collectStats()

	jsonResponse(w, http.StatusOK, payload)
}

func (s *Server) buildMiddlewareChain(ctx context.Context) http.Handler {
	logger := zerolog.Ctx(ctx)

	var h http.Handler = s.mux

	// Scans hit exec and hardware; keep the endpoints from being hammered.
	h = ScanRateLimitMiddleware(scanRequestsPerSecond, scanBurst)(h)

	// CORS
	c := cors.New(cors.Options{AllowOriginFunc: func(_ string) bool { return true }, AllowCredentials: true, AllowedHeaders: []string{"*"}})
	h = c.Handler(h)

	// Security headers
	sec := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'; img-src 'self' data:; style-src 'self' 'unsafe-inline'; " +
			"script-src 'self' 'unsafe-inline'; connect-src 'self' ws: wss:",
	})
	h = sec.Handler(h)

	// Logging + request metadata
	h = hlog.NewHandler(*logger)(h)
	h = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		metrics.RecordHTTP(r.Method, r.URL.Path, status)

		logger.Info().
			Str("method", r.Method).
			Str("url", r.URL.String()).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("http")
	})(h)
	h = chimw.RequestID(h)
	h = chimw.RealIP(h)
	// Recoverer last to catch panics
	h = chimw.Recoverer(h)

	// OTEL wrapper
	return otelhttp.NewHandler(h, "adminhttp")
}

func (s *Server) createServer(ctx context.Context, handler http.Handler) *http.Server {
	// Bypass middleware and otel wrappers for WebSocket upgrades to preserve http.Hijacker
	rootHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			s.handleWS(w, r)

			return
		}

		handler.ServeHTTP(w, r)
	})

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           rootHandler,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		IdleTimeout:       defaultIdleTimeout,
		WriteTimeout:      defaultWriteTimeout,
	}
	srv.BaseContext = func(_ net.Listener) context.Context { return ctx }

	go func() {
		<-ctx.Done()
		// graceful shutdown with timeout, then force close
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultShutdownTimeout)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(shutdownCtx)
		_ = srv.Close()
	}()

	return srv
}
