package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"satlink/core-go/internal/sqlcgen"
)

type site struct {
	ID      string   `json:"id"`
	Name    *string  `json:"name,omitempty"`
	Address *string  `json:"address,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
}

type siteWrite struct {
	ID      *string  `json:"id,omitempty"`
	Name    *string  `json:"name,omitempty"`
	Address *string  `json:"address,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
}

func toSite(s sqlcgen.Site) site {
	return site{
		ID:      s.SiteID,
		Name:    s.SiteName,
		Address: s.SiteAddress,
		Lat:     s.LatDec,
		Lon:     s.LongDec,
	}
}

func validateCoords(lat, lon *float64) error {
	if lat != nil && (*lat < -90 || *lat > 90) {
		return errors.New("lat must be between -90 and 90")
	}
	if lon != nil && (*lon < -180 || *lon > 180) {
		return errors.New("lon must be between -180 and 180")
	}
	return nil
}

func (h *Handler) ensureSiteQueries(w http.ResponseWriter) bool {
	if h.sites == nil {
		h.dbUnavailable(w)
		return false
	}
	return true
}

func (h *Handler) handleListSites(w http.ResponseWriter, r *http.Request) {
	if !h.ensureSiteQueries(w) {
		return
	}

	rows, err := h.sites.ListSites(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("list sites failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to list sites", nil)
		return
	}

	resp := make([]site, 0, len(rows))
	for _, s := range rows {
		resp = append(resp, toSite(s))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCreateSite(w http.ResponseWriter, r *http.Request) {
	var req siteWrite
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}

	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "name is required", nil)
		return
	}
	if err := validateCoords(req.Lat, req.Lon); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", err.Error(), nil)
		return
	}

	// Site IDs come from the feed (the station name) or are generated here.
	id := uuid.NewString()
	if req.ID != nil && strings.TrimSpace(*req.ID) != "" {
		id = strings.TrimSpace(*req.ID)
	}

	if !h.ensureSiteQueries(w) {
		return
	}

	row, err := h.sites.CreateSite(r.Context(), sqlcgen.CreateSiteParams{
		SiteID:      id,
		SiteName:    req.Name,
		SiteAddress: req.Address,
		LatDec:      req.Lat,
		LongDec:     req.Lon,
	})
	if isUniqueViolation(err) {
		h.writeError(w, http.StatusConflict, "conflict", "site id already exists", nil)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("create site failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to create site", nil)
		return
	}

	h.writeJSON(w, http.StatusCreated, toSite(row))
}

func (h *Handler) handleGetSite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.ensureSiteQueries(w) {
		return
	}

	row, err := h.sites.GetSite(r.Context(), id)
	if errors.Is(err, pgx.ErrNoRows) {
		h.writeError(w, http.StatusNotFound, "not_found", "site not found", nil)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("get site failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to get site", nil)
		return
	}

	h.writeJSON(w, http.StatusOK, toSite(row))
}

func (h *Handler) handleUpdateSite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req siteWrite
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "name is required", nil)
		return
	}
	if err := validateCoords(req.Lat, req.Lon); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", err.Error(), nil)
		return
	}

	if !h.ensureSiteQueries(w) {
		return
	}

	row, err := h.sites.UpdateSite(r.Context(), sqlcgen.UpdateSiteParams{
		SiteID:      id,
		SiteName:    req.Name,
		SiteAddress: req.Address,
		LatDec:      req.Lat,
		LongDec:     req.Lon,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		h.writeError(w, http.StatusNotFound, "not_found", "site not found", nil)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("update site failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to update site", nil)
		return
	}

	h.writeJSON(w, http.StatusOK, toSite(row))
}

func (h *Handler) handleDeleteSite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.ensureSiteQueries(w) {
		return
	}

	affected, err := h.sites.DeleteSite(r.Context(), id)
	if isForeignKeyViolation(err) {
		h.writeError(w, http.StatusConflict, "conflict", "site is still referenced by links", nil)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("delete site failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to delete site", nil)
		return
	}
	if affected == 0 {
		h.writeError(w, http.StatusNotFound, "not_found", "site not found", nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
