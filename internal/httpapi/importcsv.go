package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"satlink/core-go/internal/importer"
	"satlink/core-go/internal/sqlcgen"
)

const maxImportBytes = 32 << 20

type importRun struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	Stats       json.RawMessage `json:"stats"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	LastError   *string         `json:"last_error,omitempty"`
}

func toImportRun(r sqlcgen.ImportRun) importRun {
	stats := json.RawMessage(r.Stats)
	if len(stats) == 0 {
		stats = json.RawMessage("{}")
	}
	return importRun{
		ID:          r.ID,
		Status:      r.Status,
		Stats:       stats,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
		LastError:   r.LastError,
	}
}

// csvBody extracts the upload: the "file" part of a multipart form, or the
// raw request body for text/csv posts.
func csvBody(r *http.Request) (io.ReadCloser, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxImportBytes); err != nil {
			return nil, err
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	return http.MaxBytesReader(nil, r.Body, maxImportBytes), nil
}

// parseUpload runs the shared parse step and writes the error response
// itself when the file is unusable.
func (h *Handler) parseUpload(w http.ResponseWriter, r *http.Request) (*importer.Batch, bool) {
	body, err := csvBody(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "unreadable upload", map[string]any{"error": err.Error()})
		return nil, false
	}
	defer body.Close()

	batch, err := importer.Parse(body)
	if err != nil {
		var schemaErr *importer.SchemaError
		if errors.As(err, &schemaErr) {
			h.writeError(w, http.StatusBadRequest, "schema_invalid", "csv is missing required columns",
				map[string]any{"missing_columns": schemaErr.Missing})
			return nil, false
		}
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid csv", map[string]any{"error": err.Error()})
		return nil, false
	}
	return batch, true
}

func (h *Handler) handleImportPreview(w http.ResponseWriter, r *http.Request) {
	batch, ok := h.parseUpload(w, r)
	if !ok {
		return
	}

	if h.reads == nil {
		h.dbUnavailable(w)
		return
	}

	pv, err := importer.BuildPreview(r.Context(), h.reads, batch, h.dedup)
	if err != nil {
		h.log.Error().Err(err).Msg("import preview failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to resolve preview", nil)
		return
	}

	h.writeJSON(w, http.StatusOK, pv)
}

func (h *Handler) handleImportCommit(w http.ResponseWriter, r *http.Request) {
	batch, ok := h.parseUpload(w, r)
	if !ok {
		return
	}

	if h.apply == nil || h.runs == nil {
		h.dbUnavailable(w)
		return
	}

	// Run bookkeeping must outlive the request: a client disconnect
	// mid-apply cancels r.Context(), and the failed run still has to be
	// recorded rather than stay "running" forever.
	bookCtx := context.WithoutCancel(r.Context())

	run, err := h.runs.CreateImportRun(r.Context(), "running", []byte(`{}`))
	if err != nil {
		h.log.Error().Err(err).Msg("record import run failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to record import run", nil)
		return
	}

	start := time.Now()
	sum, err := h.apply(r.Context(), batch, h.dedup)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", run.ID).Msg("import commit failed")
		lastErr := err.Error()
		if _, finErr := h.runs.FinishImportRun(bookCtx, sqlcgen.FinishImportRunParams{
			ID:        run.ID,
			Status:    "failed",
			Stats:     []byte(`{}`),
			LastError: &lastErr,
		}); finErr != nil {
			h.log.Error().Err(finErr).Str("run_id", run.ID).Msg("finish import run failed")
		}
		h.writeError(w, http.StatusInternalServerError, "import_failed", "import rolled back", map[string]any{"error": lastErr})
		return
	}

	stats, err := json.Marshal(sum)
	if err != nil {
		stats = []byte(`{}`)
	}
	finished, err := h.runs.FinishImportRun(bookCtx, sqlcgen.FinishImportRunParams{
		ID:     run.ID,
		Status: "completed",
		Stats:  stats,
	})
	if err != nil {
		h.log.Error().Err(err).Str("run_id", run.ID).Msg("finish import run failed")
		finished = run
	}

	h.metrics.IncImportRun()
	h.metrics.AddImportRows("imported", sum.LinksCreated)
	h.metrics.AddImportRows("duplicate", sum.LinksSkipped)
	h.metrics.AddImportRows("rejected", sum.RowsRejected)
	h.metrics.ObserveImportDuration(time.Since(start))

	h.log.Info().
		Str("run_id", run.ID).
		Int("links_created", sum.LinksCreated).
		Int("links_skipped", sum.LinksSkipped).
		Int("rows_rejected", sum.RowsRejected).
		Msg("import committed")

	h.writeJSON(w, http.StatusOK, map[string]any{
		"run_id":  finished.ID,
		"summary": sum,
	})
}

func (h *Handler) handleListImportRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		h.dbUnavailable(w)
		return
	}

	limit := int32(50)
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || n < 1 || n > 500 {
			h.writeError(w, http.StatusBadRequest, "validation_failed", "limit must be between 1 and 500", nil)
			return
		}
		limit = int32(n)
	}

	rows, err := h.runs.ListImportRuns(r.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("list import runs failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to list import runs", nil)
		return
	}

	resp := make([]importRun, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, toImportRun(row))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetImportRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		h.dbUnavailable(w)
		return
	}

	row, err := h.runs.GetImportRun(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, pgx.ErrNoRows) {
		h.writeError(w, http.StatusNotFound, "not_found", "import run not found", nil)
		return
	}
	if isInvalidUUID(err) {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid run id", nil)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("get import run failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to get import run", nil)
		return
	}

	h.writeJSON(w, http.StatusOK, toImportRun(row))
}
