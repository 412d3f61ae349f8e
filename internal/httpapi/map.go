package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"satlink/core-go/internal/geo"
	"satlink/core-go/internal/operator"
	"satlink/core-go/internal/sqlcgen"
)

// Fallback map center over the Indonesian archipelago when nothing is
// mapped yet.
var defaultCenter = geoPoint{Lat: -2.5, Lon: 118.0}

const arrowPosition = 0.82

type geoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type mapSettings struct {
	SiteSeparationM float64 `json:"site_sep_m"`
	LinkOffsetM     float64 `json:"link_offset_m"`
	LineWeight      int     `json:"line_weight"`
}

type mapMarker struct {
	SiteID    string   `json:"site_id"`
	Name      *string  `json:"name,omitempty"`
	Position  geoPoint `json:"position"`
	Original  geoPoint `json:"original"`
	GroupSize int      `json:"group_size"`
}

type mapLine struct {
	LinkID     int64      `json:"link_id"`
	ApplID     *string    `json:"appl_id,omitempty"`
	ClientID   int64      `json:"client_id"`
	ClientName string     `json:"client_name"`
	SiteFrom   string     `json:"site_from"`
	SiteTo     string     `json:"site_to"`
	Operator   string     `json:"operator"`
	Color      string     `json:"color"`
	PulseColor string     `json:"pulse_color"`
	Weight     int        `json:"weight"`
	Path       []geoPoint `json:"path"`
	Freq       *int32     `json:"freq,omitempty"`
	Bandwidth  *int32     `json:"bandwidth,omitempty"`
	Model      *string    `json:"model,omitempty"`
}

type mapArrow struct {
	LinkID   int64    `json:"link_id"`
	Position geoPoint `json:"position"`
	Bearing  float64  `json:"bearing"`
	Color    string   `json:"color"`
}

type legendEntry struct {
	Operator   string `json:"operator"`
	Label      string `json:"label"`
	Color      string `json:"color"`
	PulseColor string `json:"pulse_color"`
}

type unmappedSite struct {
	SiteID string  `json:"site_id"`
	Name   *string `json:"name,omitempty"`
}

type mapResponse struct {
	Center   geoPoint       `json:"center"`
	Settings mapSettings    `json:"settings"`
	Markers  []mapMarker    `json:"markers"`
	Lines    []mapLine      `json:"lines"`
	Arrows   []mapArrow     `json:"arrows"`
	Legend   []legendEntry  `json:"legend"`
	Unmapped []unmappedSite `json:"unmapped"`
}

// parseRenderParam reads one optional non-negative float query parameter.
func parseRenderParam(r *http.Request, name string, fallback float64) (float64, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

func (h *Handler) handleMap(w http.ResponseWriter, r *http.Request) {
	clientID, err := parseClientFilter(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid client_id", nil)
		return
	}

	settings := mapSettings{
		SiteSeparationM: h.render.SiteSeparationM,
		LinkOffsetM:     h.render.LinkOffsetM,
		LineWeight:      h.render.LineWeight,
	}
	var ok bool
	if settings.SiteSeparationM, ok = parseRenderParam(r, "site_sep_m", settings.SiteSeparationM); !ok {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "site_sep_m must be a non-negative number", nil)
		return
	}
	if settings.LinkOffsetM, ok = parseRenderParam(r, "link_offset_m", settings.LinkOffsetM); !ok {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "link_offset_m must be a non-negative number", nil)
		return
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("line_weight")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 30 {
			h.writeError(w, http.StatusBadRequest, "validation_failed", "line_weight must be between 1 and 30", nil)
			return
		}
		settings.LineWeight = n
	}

	if h.maps == nil {
		h.dbUnavailable(w)
		return
	}

	sites, err := h.maps.ListSites(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("map site query failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to load sites", nil)
		return
	}
	mapLinks, err := h.maps.ListMapLinks(r.Context(), clientID)
	if err != nil {
		h.log.Error().Err(err).Msg("map link query failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to load links", nil)
		return
	}

	// With a client filter, restrict the site layer to the sites that
	// client's links actually touch.
	if clientID != nil {
		touched := make(map[string]struct{}, len(mapLinks)*2)
		for _, ml := range mapLinks {
			touched[ml.SiteFrom] = struct{}{}
			touched[ml.SiteTo] = struct{}{}
		}
		filtered := sites[:0]
		for _, s := range sites {
			if _, ok := touched[s.SiteID]; ok {
				filtered = append(filtered, s)
			}
		}
		sites = filtered
	}

	var points []geo.SitePoint
	var unmapped []unmappedSite
	for _, s := range sites {
		if s.LatDec == nil || s.LongDec == nil {
			unmapped = append(unmapped, unmappedSite{SiteID: s.SiteID, Name: s.SiteName})
			continue
		}
		name := ""
		if s.SiteName != nil {
			name = *s.SiteName
		}
		points = append(points, geo.SitePoint{
			ID:    s.SiteID,
			Name:  name,
			Point: geo.Point{Lat: *s.LatDec, Lon: *s.LongDec},
		})
	}

	placedSites := geo.SpreadSites(points, settings.SiteSeparationM)

	linkRows := make(map[int64]sqlcgen.MapLink, len(mapLinks))
	var paths []geo.LinkPath
	for _, ml := range mapLinks {
		// Links touching an unmapped site cannot be drawn.
		if ml.FromLat == nil || ml.FromLon == nil || ml.ToLat == nil || ml.ToLon == nil {
			continue
		}
		linkRows[ml.LinkID] = ml
		paths = append(paths, geo.LinkPath{
			ID:   ml.LinkID,
			From: geo.Point{Lat: *ml.FromLat, Lon: *ml.FromLon},
			To:   geo.Point{Lat: *ml.ToLat, Lon: *ml.ToLon},
		})
	}
	placedLinks := geo.SpreadLinks(paths, settings.LinkOffsetM)

	resp := mapResponse{
		Settings: settings,
		Markers:  make([]mapMarker, 0, len(placedSites)),
		Lines:    make([]mapLine, 0, len(placedLinks)),
		Arrows:   make([]mapArrow, 0, len(placedLinks)),
		Unmapped: unmapped,
	}
	if resp.Unmapped == nil {
		resp.Unmapped = []unmappedSite{}
	}

	var sumLat, sumLon float64
	var coordCount int

	for _, p := range placedSites {
		var name *string
		if p.Name != "" {
			n := p.Name
			name = &n
		}
		resp.Markers = append(resp.Markers, mapMarker{
			SiteID:    p.ID,
			Name:      name,
			Position:  geoPoint{Lat: p.Rendered.Lat, Lon: p.Rendered.Lon},
			Original:  geoPoint{Lat: p.Lat, Lon: p.Lon},
			GroupSize: p.GroupSize,
		})
		sumLat += p.Rendered.Lat
		sumLon += p.Rendered.Lon
		coordCount++
	}

	for _, pl := range placedLinks {
		ml := linkRows[pl.ID]
		op := operator.Classify(ml.ClientName)

		resp.Lines = append(resp.Lines, mapLine{
			LinkID:     ml.LinkID,
			ApplID:     ml.ApplID,
			ClientID:   ml.ClientID,
			ClientName: ml.ClientName,
			SiteFrom:   ml.SiteFrom,
			SiteTo:     ml.SiteTo,
			Operator:   op.Key,
			Color:      op.Color,
			PulseColor: op.PulseColor,
			Weight:     settings.LineWeight,
			Path: []geoPoint{
				{Lat: pl.RenderedFrom.Lat, Lon: pl.RenderedFrom.Lon},
				{Lat: pl.RenderedTo.Lat, Lon: pl.RenderedTo.Lon},
			},
			Freq:      ml.Freq,
			Bandwidth: ml.Bandwidth,
			Model:     ml.Model,
		})

		arrowAt := geo.Interpolate(pl.RenderedFrom, pl.RenderedTo, arrowPosition)
		resp.Arrows = append(resp.Arrows, mapArrow{
			LinkID:   ml.LinkID,
			Position: geoPoint{Lat: arrowAt.Lat, Lon: arrowAt.Lon},
			Bearing:  geo.Bearing(pl.RenderedFrom, pl.RenderedTo),
			Color:    op.Color,
		})
	}

	if coordCount > 0 {
		resp.Center = geoPoint{Lat: sumLat / float64(coordCount), Lon: sumLon / float64(coordCount)}
	} else {
		resp.Center = defaultCenter
	}

	for _, op := range operator.Palette() {
		resp.Legend = append(resp.Legend, legendEntry{
			Operator:   op.Key,
			Label:      op.Label,
			Color:      op.Color,
			PulseColor: op.PulseColor,
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}
