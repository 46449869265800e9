/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RealIP, RequestID:  Client address and a unique ID per request
  2. Logger:             Request logging
  3. Recoverer:          Panic recovery (500 instead of crash)
  4. Secure headers:     unrolled/secure; TLS redirect in production
  5. Rate limit:         httprate, per client IP
  6. CORS:               Cross-origin requests for the frontend
  7. Metrics:            Request counts by route and status
  8. Timeout:            Per-request context deadline

ROUTE GROUPS:
  /api/products/*       Catalog and stock targets
  /api/clients          Clients
  /api/suppliers        Suppliers
  /api/transactions/*   Sales and purchases
  /api/reports/*        Monthly reports
  /api/dashboard        Dashboard summary
  /api/scenarios/*      Demo scenarios
  /healthz              Liveness and store ping
  /metrics              Prometheus
  /*                    Static files (frontend)

STATIC FILE SERVING:
  Serves a built frontend from web/dist/ when present, falling back to
  index.html for client-side routing.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/warp/stock-engine/config"
	"github.com/warp/stock-engine/metrics"
)

// NewRouter creates a new router with all routes configured. A nil cfg uses
// development settings without a rate limit; a nil m disables metrics.
func NewRouter(h *Handler, cfg *config.Config, m *metrics.Metrics) *chi.Mux {
	if cfg == nil {
		cfg = &config.Config{CORSOrigins: []string{"http://localhost:5173", "http://localhost:8080"}}
	}
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLRedirect:        cfg.IsProduction(),
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
	}).Handler)
	if cfg.RateLimitPerMinute > 0 {
		r.Use(httprate.Limit(cfg.RateLimitPerMinute, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusTooManyRequests, "Too many requests", nil)
			}),
		))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
	}))
	r.Use(m.Middleware)
	if cfg.AppRequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.AppRequestTimeout))
	}

	r.Get("/healthz", h.Health)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			r.Post("/import", h.ImportProducts)
			r.Get("/export", h.ExportProducts)
			r.Get("/{id}", h.GetProduct)
			r.Get("/{id}/target", h.GetStockTarget)
			r.Put("/{id}/shell", h.LinkShell)
		})

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", h.ListClients)
			r.Post("/", h.CreateClient)
		})

		r.Route("/suppliers", func(r chi.Router) {
			r.Get("/", h.ListSuppliers)
			r.Post("/", h.CreateSupplier)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.ListTransactions)
			r.Post("/", h.CreateTransaction)
			r.Get("/{id}", h.GetTransaction)
			r.Patch("/{id}", h.UpdateTransaction)
			r.Delete("/{id}", h.DeleteTransaction)
		})

		r.Get("/reports/monthly", h.MonthlyReports)
		r.Get("/dashboard", h.Dashboard)

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	// Serve static files (frontend build)
	staticDir := "./web/dist"
	if _, err := os.Stat(staticDir); os.IsNotExist(err) {
		exe, _ := os.Executable()
		staticDir = filepath.Join(filepath.Dir(exe), "web", "dist")
	}

	if _, err := os.Stat(staticDir); err == nil {
		fileServer := http.FileServer(http.Dir(staticDir))
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			fullPath := filepath.Join(staticDir, filepath.Clean(r.URL.Path))
			if _, err := os.Stat(fullPath); os.IsNotExist(err) {
				// SPA routing: serve index.html
				http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
				return
			}
			fileServer.ServeHTTP(w, r)
		})
	} else {
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Stock Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Stock Engine API</h1>
<p>No frontend build found in web/dist.</p>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/products">/api/products</a> - Products and stock</li>
<li><a href="/api/transactions">/api/transactions</a> - Sales and purchases</li>
<li><a href="/api/dashboard">/api/dashboard</a> - Dashboard</li>
<li><a href="/api/scenarios">/api/scenarios</a> - Demo scenarios</li>
</ul>
</body>
</html>`))
		})
	}

	return r
}

// pinger is implemented by stores backed by a server or file.
type pinger interface {
	Ping(ctx context.Context) error
}

// Health reports liveness and, when the store supports it, store reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.Store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Store unreachable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
