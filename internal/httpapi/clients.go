package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"

	"satlink/core-go/internal/sqlcgen"
)

type client struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type clientWrite struct {
	Name string `json:"name"`
}

func toClient(c sqlcgen.Client) client {
	return client{ID: c.ClientID, Name: c.ClientName}
}

func (h *Handler) ensureClientQueries(w http.ResponseWriter) bool {
	if h.clients == nil {
		h.dbUnavailable(w)
		return false
	}
	return true
}

func (h *Handler) handleListClients(w http.ResponseWriter, r *http.Request) {
	if !h.ensureClientQueries(w) {
		return
	}

	rows, err := h.clients.ListClients(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("list clients failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to list clients", nil)
		return
	}

	resp := make([]client, 0, len(rows))
	for _, c := range rows {
		resp = append(resp, toClient(c))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var req clientWrite
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "name is required", nil)
		return
	}

	if !h.ensureClientQueries(w) {
		return
	}

	row, err := h.clients.CreateClient(r.Context(), req.Name)
	if err != nil {
		h.log.Error().Err(err).Msg("create client failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to create client", nil)
		return
	}

	h.writeJSON(w, http.StatusCreated, toClient(row))
}

func (h *Handler) handleGetClient(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid client id", nil)
		return
	}

	if !h.ensureClientQueries(w) {
		return
	}

	row, err := h.clients.GetClient(r.Context(), id)
	if errors.Is(err, pgx.ErrNoRows) {
		h.writeError(w, http.StatusNotFound, "not_found", "client not found", nil)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("get client failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to get client", nil)
		return
	}

	h.writeJSON(w, http.StatusOK, toClient(row))
}

func (h *Handler) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid client id", nil)
		return
	}

	var req clientWrite
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "name is required", nil)
		return
	}

	if !h.ensureClientQueries(w) {
		return
	}

	row, err := h.clients.UpdateClient(r.Context(), id, req.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		h.writeError(w, http.StatusNotFound, "not_found", "client not found", nil)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("update client failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to update client", nil)
		return
	}

	h.writeJSON(w, http.StatusOK, toClient(row))
}

func (h *Handler) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid client id", nil)
		return
	}

	if !h.ensureClientQueries(w) {
		return
	}

	affected, err := h.clients.DeleteClient(r.Context(), id)
	if isForeignKeyViolation(err) {
		h.writeError(w, http.StatusConflict, "conflict", "client is still referenced by links", nil)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("delete client failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to delete client", nil)
		return
	}
	if affected == 0 {
		h.writeError(w, http.StatusNotFound, "not_found", "client not found", nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
