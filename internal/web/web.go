// Package web serves the trade dashboards and the tracked-name endpoints.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/tradewatch/internal/model"
	"github.com/sells-group/tradewatch/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(model.DateLayout)
	},
	"amount": func(v *int64) string {
		if v == nil {
			return ""
		}
		return strconv.FormatInt(*v, 10)
	},
	"price": func(v *float64) string {
		if v == nil {
			return ""
		}
		return decimal.NewFromFloat(*v).StringFixed(2)
	},
}

var pages = template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))

// Options configures the router.
type Options struct {
	AllowedOrigins []string
}

type server struct {
	store store.Store
}

// NewRouter returns the dashboard handler backed by st.
func NewRouter(st store.Store, opts Options) http.Handler {
	s := &server{store: st}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/sec", http.StatusFound)
	})
	r.Get("/sec", s.secTrades)
	r.Get("/gov", s.govTrades)
	r.Get("/tracked", s.trackedTrades)
	r.Post("/track/{name}", s.track)
	r.Post("/untrack/{name}", s.untrack)

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("web: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		zap.L().Warn("web: store ping failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type pageData struct {
	Title        string
	ContextLabel string
	ShowSource   bool
	Limit        int
	Trades       []model.TradeView
}

func (s *server) secTrades(w http.ResponseWriter, r *http.Request) {
	limit := limitParam(r)
	trades, err := s.store.ListTrades(r.Context(), limit)
	if err != nil {
		serverError(w, "list sec trades", err)
		return
	}
	render(w, pageData{Title: "SEC Form 4 trades", ContextLabel: "Issuer", Limit: limit, Trades: trades})
}

func (s *server) govTrades(w http.ResponseWriter, r *http.Request) {
	limit := limitParam(r)
	trades, err := s.store.ListGovTrades(r.Context(), limit)
	if err != nil {
		serverError(w, "list gov trades", err)
		return
	}
	render(w, pageData{Title: "Government trades", ContextLabel: "Role", Limit: limit, Trades: trades})
}

func (s *server) trackedTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := s.store.ListTrackedTrades(r.Context())
	if err != nil {
		serverError(w, "list tracked trades", err)
		return
	}
	render(w, pageData{Title: "Tracked names", ContextLabel: "Issuer / role", ShowSource: true, Trades: trades})
}

func (s *server) track(w http.ResponseWriter, r *http.Request) {
	s.toggle(w, r, "tracked", s.store.Track)
}

func (s *server) untrack(w http.ResponseWriter, r *http.Request) {
	s.toggle(w, r, "untracked", s.store.Untrack)
}

// nameParam returns the decoded {name} segment. chi routes on RawPath when
// the request carries one, and then the segment is still escaped.
func nameParam(r *http.Request) (string, error) {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath != "" {
		var err error
		if name, err = url.PathUnescape(name); err != nil {
			return "", err
		}
	}
	return strings.TrimSpace(name), nil
}

func (s *server) toggle(w http.ResponseWriter, r *http.Request, status string, fn func(ctx context.Context, name string) error) {
	name, err := nameParam(r)
	if err != nil || name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if err := fn(r.Context(), name); err != nil {
		serverError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status, "name": name})
}

// limitParam reads ?limit=; absent or invalid values select the store default.
func limitParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return store.DefaultListLimit
	}
	return n
}

func render(w http.ResponseWriter, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.ExecuteTemplate(w, "trades.html", data); err != nil {
		zap.L().Error("web: render", zap.Error(err))
	}
}

func serverError(w http.ResponseWriter, action string, err error) {
	zap.L().Error("web: "+action, zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
