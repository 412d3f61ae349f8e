package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"satlink/core-go/internal/config"
	"satlink/core-go/internal/db"
	"satlink/core-go/internal/importer"
	"satlink/core-go/internal/metrics"
	"satlink/core-go/internal/sqlcgen"
)

type clientQueries interface {
	ListClients(ctx context.Context) ([]sqlcgen.Client, error)
	GetClient(ctx context.Context, clientID int64) (sqlcgen.Client, error)
	CreateClient(ctx context.Context, clientName string) (sqlcgen.Client, error)
	UpdateClient(ctx context.Context, clientID int64, clientName string) (sqlcgen.Client, error)
	DeleteClient(ctx context.Context, clientID int64) (int64, error)
}

type siteQueries interface {
	ListSites(ctx context.Context) ([]sqlcgen.Site, error)
	GetSite(ctx context.Context, siteID string) (sqlcgen.Site, error)
	CreateSite(ctx context.Context, arg sqlcgen.CreateSiteParams) (sqlcgen.Site, error)
	UpdateSite(ctx context.Context, arg sqlcgen.UpdateSiteParams) (sqlcgen.Site, error)
	DeleteSite(ctx context.Context, siteID string) (int64, error)
}

type linkQueries interface {
	ListLinks(ctx context.Context, clientID *int64) ([]sqlcgen.Link, error)
	GetLink(ctx context.Context, linkID int64) (sqlcgen.Link, error)
	CreateLink(ctx context.Context, arg sqlcgen.CreateLinkParams) (sqlcgen.Link, error)
	UpdateLink(ctx context.Context, arg sqlcgen.UpdateLinkParams) (sqlcgen.Link, error)
	DeleteLink(ctx context.Context, linkID int64) (int64, error)
}

type mapQueries interface {
	ListSites(ctx context.Context) ([]sqlcgen.Site, error)
	ListMapLinks(ctx context.Context, clientID *int64) ([]sqlcgen.MapLink, error)
}

type runQueries interface {
	CreateImportRun(ctx context.Context, status string, stats []byte) (sqlcgen.ImportRun, error)
	FinishImportRun(ctx context.Context, arg sqlcgen.FinishImportRunParams) (sqlcgen.ImportRun, error)
	GetImportRun(ctx context.Context, id string) (sqlcgen.ImportRun, error)
	ListImportRuns(ctx context.Context, limit int32) ([]sqlcgen.ImportRun, error)
}

// applyFunc commits a parsed batch; the default wraps importer.Apply in one
// pool transaction so a mid-batch failure rolls everything back.
type applyFunc func(ctx context.Context, batch *importer.Batch, policy importer.DedupPolicy) (importer.Summary, error)

type Handler struct {
	log     zerolog.Logger
	pool    *db.Pool
	metrics *metrics.Metrics
	render  config.RenderSettings
	dedup   importer.DedupPolicy

	clients clientQueries
	sites   siteQueries
	links   linkQueries
	maps    mapQueries
	runs    runQueries
	reads   importer.ReadStore
	apply   applyFunc
}

func NewHandler(log zerolog.Logger, pool *db.Pool, m *metrics.Metrics, cfg config.Config) *Handler {
	h := &Handler{
		log:     log,
		pool:    pool,
		metrics: m,
		render:  cfg.Render,
		dedup:   importer.DedupPolicy(cfg.DedupPolicy),
	}
	if pool != nil {
		q := pool.Queries()
		h.clients = q
		h.sites = q
		h.links = q
		h.maps = q
		h.runs = q
		h.reads = q
		h.apply = func(ctx context.Context, batch *importer.Batch, policy importer.DedupPolicy) (importer.Summary, error) {
			var sum importer.Summary
			err := pool.WithTx(ctx, func(q *sqlcgen.Queries) error {
				var applyErr error
				sum, applyErr = importer.Apply(ctx, q, batch, policy)
				return applyErr
			})
			return sum, err
		}
	}
	return h
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Use(h.accessLog)

	// Health
	r.Get("/healthz", h.handleHealthz)
	r.Get("/readyz", h.handleReadyZ)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	// API
	r.Route("/api", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			r.Route("/clients", func(r chi.Router) {
				r.Get("/", h.handleListClients)
				r.Post("/", h.handleCreateClient)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.handleGetClient)
					r.Put("/", h.handleUpdateClient)
					r.Delete("/", h.handleDeleteClient)
				})
			})

			r.Route("/sites", func(r chi.Router) {
				r.Get("/", h.handleListSites)
				r.Post("/", h.handleCreateSite)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.handleGetSite)
					r.Put("/", h.handleUpdateSite)
					r.Delete("/", h.handleDeleteSite)
				})
			})

			r.Route("/links", func(r chi.Router) {
				r.Get("/", h.handleListLinks)
				r.Post("/", h.handleCreateLink)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.handleGetLink)
					r.Put("/", h.handleUpdateLink)
					r.Delete("/", h.handleDeleteLink)
				})
			})

			r.Route("/import", func(r chi.Router) {
				r.Post("/preview", h.handleImportPreview)
				r.Post("/commit", h.handleImportCommit)
				r.Get("/runs", h.handleListImportRuns)
				r.Get("/runs/{id}", h.handleGetImportRun)
			})

			r.Get("/map", h.handleMap)
		})
	})

	return r
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		h.metrics.ObserveHTTPRequest(r.Method, r.URL.Path, ww.Status(), time.Since(start))

		h.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("http_request")
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	resp := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
	}
	if details != nil {
		resp["error"].(map[string]any)["details"] = details
	}
	h.writeJSON(w, status, resp)
}

func decodeJSONStrict(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return errors.New("unexpected extra data after JSON body")
		}
		return err
	}
	return nil
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleReadyZ(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.pool == nil {
		h.writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not configured", nil)
		return
	}

	if err := h.pool.Ping(ctx); err != nil {
		h.writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not ready", map[string]any{"error": err.Error()})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"ready": true})
}

func (h *Handler) dbUnavailable(w http.ResponseWriter) {
	h.writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not configured", nil)
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func pgErrCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isForeignKeyViolation matches inserts referencing a missing row and
// deletes of a row something still references.
func isForeignKeyViolation(err error) bool {
	return pgErrCode(err) == "23503"
}

func isUniqueViolation(err error) bool {
	return pgErrCode(err) == "23505"
}

func isInvalidUUID(err error) bool {
	return pgErrCode(err) == "22P02"
}
