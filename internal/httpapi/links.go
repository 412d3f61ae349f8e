package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"satlink/core-go/internal/sqlcgen"
)

type link struct {
	ID        int64   `json:"id"`
	ApplID    *string `json:"appl_id,omitempty"`
	ClientID  int64   `json:"client_id"`
	SiteFrom  string  `json:"site_from"`
	SiteTo    string  `json:"site_to"`
	Freq      *int32  `json:"freq,omitempty"`
	FreqPair  *int32  `json:"freq_pair,omitempty"`
	Bandwidth *int32  `json:"bandwidth,omitempty"`
	Model     *string `json:"model,omitempty"`
}

type linkWrite struct {
	ApplID    *string `json:"appl_id,omitempty"`
	ClientID  int64   `json:"client_id"`
	SiteFrom  string  `json:"site_from"`
	SiteTo    string  `json:"site_to"`
	Freq      *int32  `json:"freq,omitempty"`
	FreqPair  *int32  `json:"freq_pair,omitempty"`
	Bandwidth *int32  `json:"bandwidth,omitempty"`
	Model     *string `json:"model,omitempty"`
}

func toLink(l sqlcgen.Link) link {
	return link{
		ID:        l.LinkID,
		ApplID:    l.ApplID,
		ClientID:  l.ClientID,
		SiteFrom:  l.SiteFrom,
		SiteTo:    l.SiteTo,
		Freq:      l.Freq,
		FreqPair:  l.FreqPair,
		Bandwidth: l.Bandwidth,
		Model:     l.Model,
	}
}

func (req *linkWrite) validate() error {
	req.SiteFrom = strings.TrimSpace(req.SiteFrom)
	req.SiteTo = strings.TrimSpace(req.SiteTo)

	if req.ClientID <= 0 {
		return errors.New("client_id is required")
	}
	if req.SiteFrom == "" {
		return errors.New("site_from is required")
	}
	if req.SiteTo == "" {
		return errors.New("site_to is required")
	}
	if req.Freq != nil && *req.Freq < 0 {
		return errors.New("freq must not be negative")
	}
	if req.FreqPair != nil && *req.FreqPair < 0 {
		return errors.New("freq_pair must not be negative")
	}
	if req.Bandwidth != nil && *req.Bandwidth < 0 {
		return errors.New("bandwidth must not be negative")
	}
	return nil
}

func (h *Handler) ensureLinkQueries(w http.ResponseWriter) bool {
	if h.links == nil {
		h.dbUnavailable(w)
		return false
	}
	return true
}

// parseClientFilter reads an optional ?client_id= query parameter.
func parseClientFilter(r *http.Request) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("client_id"))
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (h *Handler) handleListLinks(w http.ResponseWriter, r *http.Request) {
	clientID, err := parseClientFilter(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid client_id", nil)
		return
	}

	if !h.ensureLinkQueries(w) {
		return
	}

	rows, err := h.links.ListLinks(r.Context(), clientID)
	if err != nil {
		h.log.Error().Err(err).Msg("list links failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to list links", nil)
		return
	}

	resp := make([]link, 0, len(rows))
	for _, l := range rows {
		resp = append(resp, toLink(l))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCreateLink(w http.ResponseWriter, r *http.Request) {
	var req linkWrite
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}
	if err := req.validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", err.Error(), nil)
		return
	}

	if !h.ensureLinkQueries(w) {
		return
	}

	row, err := h.links.CreateLink(r.Context(), sqlcgen.CreateLinkParams{
		ApplID:    req.ApplID,
		ClientID:  req.ClientID,
		SiteFrom:  req.SiteFrom,
		SiteTo:    req.SiteTo,
		Freq:      req.Freq,
		FreqPair:  req.FreqPair,
		Bandwidth: req.Bandwidth,
		Model:     req.Model,
	})
	if isForeignKeyViolation(err) {
		h.writeError(w, http.StatusConflict, "conflict", "client or site does not exist", nil)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("create link failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to create link", nil)
		return
	}

	h.writeJSON(w, http.StatusCreated, toLink(row))
}

func (h *Handler) handleGetLink(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid link id", nil)
		return
	}

	if !h.ensureLinkQueries(w) {
		return
	}

	row, err := h.links.GetLink(r.Context(), id)
	if errors.Is(err, pgx.ErrNoRows) {
		h.writeError(w, http.StatusNotFound, "not_found", "link not found", nil)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("get link failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to get link", nil)
		return
	}

	h.writeJSON(w, http.StatusOK, toLink(row))
}

func (h *Handler) handleUpdateLink(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid link id", nil)
		return
	}

	var req linkWrite
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}
	if err := req.validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", err.Error(), nil)
		return
	}

	if !h.ensureLinkQueries(w) {
		return
	}

	row, err := h.links.UpdateLink(r.Context(), sqlcgen.UpdateLinkParams{
		LinkID:    id,
		ApplID:    req.ApplID,
		ClientID:  req.ClientID,
		SiteFrom:  req.SiteFrom,
		SiteTo:    req.SiteTo,
		Freq:      req.Freq,
		FreqPair:  req.FreqPair,
		Bandwidth: req.Bandwidth,
		Model:     req.Model,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		h.writeError(w, http.StatusNotFound, "not_found", "link not found", nil)
		return
	}
	if isForeignKeyViolation(err) {
		h.writeError(w, http.StatusConflict, "conflict", "client or site does not exist", nil)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("update link failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to update link", nil)
		return
	}

	h.writeJSON(w, http.StatusOK, toLink(row))
}

func (h *Handler) handleDeleteLink(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid link id", nil)
		return
	}

	if !h.ensureLinkQueries(w) {
		return
	}

	affected, err := h.links.DeleteLink(r.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Msg("delete link failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to delete link", nil)
		return
	}
	if affected == 0 {
		h.writeError(w, http.StatusNotFound, "not_found", "link not found", nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
