package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/may5ra/server-stream-one/api"
	"github.com/may5ra/server-stream-one/internal/cache"
	"github.com/may5ra/server-stream-one/internal/config"
	"github.com/may5ra/server-stream-one/internal/hlsproxy"
	"github.com/may5ra/server-stream-one/internal/httpjson"
	"github.com/may5ra/server-stream-one/internal/playlist"
	"github.com/may5ra/server-stream-one/internal/service"
	"github.com/may5ra/server-stream-one/internal/stalker"
	"github.com/may5ra/server-stream-one/internal/store"
	"github.com/may5ra/server-stream-one/internal/streamurl"
	"github.com/may5ra/server-stream-one/internal/xtream"
)

// Server holds dependencies for the HTTP surface.
type Server struct {
	cfg   *config.Config
	store store.Store
	rds   *cache.Redis // nil when REDIS_URL is not set
	log   zerolog.Logger

	m3u      *service.M3UImporter
	epg      *service.EPGImporter
	xtream   *xtream.Handler
	stalker  *stalker.Handler
	playlist *playlist.Handler
	proxy    *hlsproxy.Proxy

	router chi.Router
}

// New creates a Server and registers routes. rds may be nil; async
// imports and import locking are then unavailable.
func New(st store.Store, cfg *config.Config, rds *cache.Redis, logger zerolog.Logger) *Server {
	client := service.NewSourceClient(cfg.UserAgent, cfg.Timeout)
	resolver := streamurl.New(cfg.Stream)

	s := &Server{
		cfg:      cfg,
		store:    st,
		rds:      rds,
		log:      logger.With().Str("component", "http").Logger(),
		m3u:      service.NewM3UImporter(st, client, logger),
		epg:      service.NewEPGImporter(st, client, logger),
		xtream:   xtream.New(st, resolver, logger),
		stalker:  stalker.New(st, resolver, logger),
		playlist: playlist.New(st, resolver, logger),
		proxy:    hlsproxy.New(st, hlsproxy.NewClient(nil, cfg.Timeout), logger),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(hlog.NewHandler(s.log))
	r.Use(hlog.RequestIDHandler("request_id", "X-Request-Id"))
	r.Use(hlog.RemoteAddrHandler("remote_ip"))
	r.Use(hlog.UserAgentHandler("user_agent"))
	r.Use(hlog.AccessHandler(accessLog))
	r.Use(withCORS)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/docs", handleSwaggerUI)
	r.Get("/api/docs/openapi.yaml", handleOpenAPISpec)
	r.Handle("/metrics", promhttp.Handler())

	// Xtream
	r.Get("/player_api.php", s.xtream.ServeHTTP)
	r.Post("/player_api.php", s.xtream.ServeHTTP)

	// M3U / XMLTV
	r.Get("/m3u-playlist", s.playlist.ServePlaylist)
	r.Get("/get.php", s.playlist.ServePlaylist)
	r.Get("/xmltv.php", s.playlist.ServeGuide)

	// Stalker: load.php plus any /{type}.php the portal JS derives.
	r.Handle("/stalker_portal/server/load.php", s.stalker)
	r.Handle("/stalker_portal/*", s.stalker)
	r.Handle("/portal.php", s.stalker)
	r.Handle("/{type}.php", s.stalker)

	r.Get("/stream-proxy/{name}/*", s.proxy.ServeHTTP)

	r.Group(func(r chi.Router) {
		if s.cfg.ImportRateLimit > 0 {
			r.Use(httprate.LimitByIP(s.cfg.ImportRateLimit, time.Minute))
		}
		r.Post("/m3u-import", s.handleM3UImport)
		r.Post("/epg-import", s.handleEPGImport)
		r.Get("/epg-import/jobs/{id}", s.handleImportJob)
	})

	s.router = r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on the configured port.
// It blocks until the server is shut down or ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := ":" + s.cfg.ServerPort
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.Error().Err(err).Msg("server shutdown")
		}
	}()

	s.log.Info().Str("addr", addr).Msg("listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ListenAndServe: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "ok", "redis": "disabled"}
	if s.rds != nil {
		body["redis"] = "ok"
		if err := s.rds.Ping(r.Context()); err != nil {
			body["redis"] = "unreachable"
			body["status"] = "degraded"
		}
	}
	httpjson.Write(w, http.StatusOK, body)
}

// --- middleware ---

// withCORS adds permissive CORS headers to every response. Preflight
// OPTIONS requests get an empty 200.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// accessLog logs the path only: Xtream and playlist queries carry passwords.
func accessLog(r *http.Request, status, size int, d time.Duration) {
	l := hlog.FromRequest(r)
	ev := l.Info()
	if status >= 500 {
		ev = l.Warn()
	}
	ev.Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", d).
		Msg("request")
}

// --- docs ---

func handleOpenAPISpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(api.OpenAPISpec)
}

func handleSwaggerUI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprint(w, swaggerUIHTML)
}

const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>StreamOne API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
  <style>html{box-sizing:border-box;overflow-y:scroll}*,*:before,*:after{box-sizing:inherit}body{margin:0;background:#fafafa}</style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: "/api/docs/openapi.yaml",
      dom_id: "#swagger-ui",
      presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
      layout: "BaseLayout",
    });
  </script>
</body>
</html>`
