package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"satlink/core-go/internal/config"
	"satlink/core-go/internal/importer"
	"satlink/core-go/internal/sqlcgen"
)

func newTestHandler() *Handler {
	return &Handler{
		log:    zerolog.Nop(),
		render: config.DefaultRenderSettings(),
		dedup:  importer.DedupApplEndpoints,
	}
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return v
}

func errCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody[map[string]any](t, rr)
	errObj, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error envelope, got %v", body)
	}
	code, _ := errObj["code"].(string)
	return code
}

type fakeClientQueries struct {
	list    func(ctx context.Context) ([]sqlcgen.Client, error)
	get     func(ctx context.Context, id int64) (sqlcgen.Client, error)
	create  func(ctx context.Context, name string) (sqlcgen.Client, error)
	update  func(ctx context.Context, id int64, name string) (sqlcgen.Client, error)
	deleteC func(ctx context.Context, id int64) (int64, error)
}

func (f *fakeClientQueries) ListClients(ctx context.Context) ([]sqlcgen.Client, error) {
	return f.list(ctx)
}

func (f *fakeClientQueries) GetClient(ctx context.Context, id int64) (sqlcgen.Client, error) {
	return f.get(ctx, id)
}

func (f *fakeClientQueries) CreateClient(ctx context.Context, name string) (sqlcgen.Client, error) {
	return f.create(ctx, name)
}

func (f *fakeClientQueries) UpdateClient(ctx context.Context, id int64, name string) (sqlcgen.Client, error) {
	return f.update(ctx, id, name)
}

func (f *fakeClientQueries) DeleteClient(ctx context.Context, id int64) (int64, error) {
	return f.deleteC(ctx, id)
}

type fakeSiteQueries struct {
	list    func(ctx context.Context) ([]sqlcgen.Site, error)
	get     func(ctx context.Context, id string) (sqlcgen.Site, error)
	create  func(ctx context.Context, arg sqlcgen.CreateSiteParams) (sqlcgen.Site, error)
	update  func(ctx context.Context, arg sqlcgen.UpdateSiteParams) (sqlcgen.Site, error)
	deleteS func(ctx context.Context, id string) (int64, error)
}

func (f *fakeSiteQueries) ListSites(ctx context.Context) ([]sqlcgen.Site, error) {
	return f.list(ctx)
}

func (f *fakeSiteQueries) GetSite(ctx context.Context, id string) (sqlcgen.Site, error) {
	return f.get(ctx, id)
}

func (f *fakeSiteQueries) CreateSite(ctx context.Context, arg sqlcgen.CreateSiteParams) (sqlcgen.Site, error) {
	return f.create(ctx, arg)
}

func (f *fakeSiteQueries) UpdateSite(ctx context.Context, arg sqlcgen.UpdateSiteParams) (sqlcgen.Site, error) {
	return f.update(ctx, arg)
}

func (f *fakeSiteQueries) DeleteSite(ctx context.Context, id string) (int64, error) {
	return f.deleteS(ctx, id)
}

type fakeLinkQueries struct {
	list    func(ctx context.Context, clientID *int64) ([]sqlcgen.Link, error)
	get     func(ctx context.Context, id int64) (sqlcgen.Link, error)
	create  func(ctx context.Context, arg sqlcgen.CreateLinkParams) (sqlcgen.Link, error)
	update  func(ctx context.Context, arg sqlcgen.UpdateLinkParams) (sqlcgen.Link, error)
	deleteL func(ctx context.Context, id int64) (int64, error)
}

func (f *fakeLinkQueries) ListLinks(ctx context.Context, clientID *int64) ([]sqlcgen.Link, error) {
	return f.list(ctx, clientID)
}

func (f *fakeLinkQueries) GetLink(ctx context.Context, id int64) (sqlcgen.Link, error) {
	return f.get(ctx, id)
}

func (f *fakeLinkQueries) CreateLink(ctx context.Context, arg sqlcgen.CreateLinkParams) (sqlcgen.Link, error) {
	return f.create(ctx, arg)
}

func (f *fakeLinkQueries) UpdateLink(ctx context.Context, arg sqlcgen.UpdateLinkParams) (sqlcgen.Link, error) {
	return f.update(ctx, arg)
}

func (f *fakeLinkQueries) DeleteLink(ctx context.Context, id int64) (int64, error) {
	return f.deleteL(ctx, id)
}

func fkViolation() error {
	return &pgconn.PgError{Code: "23503", ConstraintName: "links_client_id_fkey"}
}

func TestHealthz(t *testing.T) {
	h := newTestHandler()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	h.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestReadyz_noDatabase(t *testing.T) {
	h := newTestHandler()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	h.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	if code := errCode(t, rr); code != "db_unavailable" {
		t.Fatalf("expected db_unavailable, got %q", code)
	}
}

func TestListClients(t *testing.T) {
	h := newTestHandler()
	h.clients = &fakeClientQueries{
		list: func(context.Context) ([]sqlcgen.Client, error) {
			return []sqlcgen.Client{{ClientID: 1, ClientName: "Telkomsel"}}, nil
		},
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/clients/", nil)
	h.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	got := decodeBody[[]client](t, rr)
	if len(got) != 1 || got[0].Name != "Telkomsel" {
		t.Fatalf("unexpected clients: %+v", got)
	}
}

func TestCreateClient(t *testing.T) {
	h := newTestHandler()
	h.clients = &fakeClientQueries{
		create: func(_ context.Context, name string) (sqlcgen.Client, error) {
			return sqlcgen.Client{ClientID: 7, ClientName: name}, nil
		},
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/clients/", strings.NewReader(`{"name":"  Acme  "}`))
	h.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	got := decodeBody[client](t, rr)
	if got.ID != 7 || got.Name != "Acme" {
		t.Fatalf("unexpected client: %+v", got)
	}
}

func TestCreateClient_emptyName(t *testing.T) {
	h := newTestHandler()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/clients/", strings.NewReader(`{"name":"   "}`))
	h.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if code := errCode(t, rr); code != "validation_failed" {
		t.Fatalf("expected validation_failed, got %q", code)
	}
}

func TestCreateClient_unknownField(t *testing.T) {
	h := newTestHandler()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/clients/", strings.NewReader(`{"name":"Acme","bogus":1}`))
	h.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rr.Code)
	}
}

func TestGetClient_notFound(t *testing.T) {
	h := newTestHandler()
	h.clients = &fakeClientQueries{
		get: func(context.Context, int64) (sqlcgen.Client, error) {
			return sqlcgen.Client{}, pgx.ErrNoRows
		},
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/clients/42/", nil)
	h.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestGetClient_invalidID(t *testing.T) {
	h := newTestHandler()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/clients/abc/", nil)
	h.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestDeleteClient_stillReferenced(t *testing.T) {
	h := newTestHandler()
	h.clients = &fakeClientQueries{
		deleteC: func(context.Context, int64) (int64, error) {
			return 0, fkViolation()
		},
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/clients/3/", nil)
	h.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	if code := errCode(t, rr); code != "conflict" {
		t.Fatalf("expected conflict, got %q", code)
	}
}

func TestDeleteClient_notFound(t *testing.T) {
	h := newTestHandler()
	h.clients = &fakeClientQueries{
		deleteC: func(context.Context, int64) (int64, error) { return 0, nil },
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/clients/3/", nil)
	h.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestCreateSite_generatesID(t *testing.T) {
	h := newTestHandler()
	h.sites = &fakeSiteQueries{
		create: func(_ context.Context, arg sqlcgen.CreateSiteParams) (sqlcgen.Site, error) {
			return sqlcgen.Site{SiteID: arg.SiteID, SiteName: arg.SiteName}, nil
		},
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sites/", strings.NewReader(`{"name":"Stasiun Alpha"}`))
	h.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	got := decodeBody[site](t, rr)
	if got.ID == "" {
		t.Fatal("expected a generated site id")
	}
}

func TestCreateSite_latOutOfRange(t *testing.T) {
	h := newTestHandler()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sites/",
		strings.NewReader(`{"name":"Alpha","lat":95.0,"lon":106.8}`))
	h.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestDeleteSite_stillReferenced(t *testing.T) {
	h := newTestHandler()
	h.sites = &fakeSiteQueries{
		deleteS: func(context.Context, string) (int64, error) { return 0, fkViolation() },
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/sites/Alpha/", nil)
	h.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestCreateLink_missingEndpoint(t *testing.T) {
	h := newTestHandler()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/links/",
		strings.NewReader(`{"client_id":1,"site_from":"Alpha"}`))
	h.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestCreateLink_unknownSite(t *testing.T) {
	h := newTestHandler()
	h.links = &fakeLinkQueries{
		create: func(context.Context, sqlcgen.CreateLinkParams) (sqlcgen.Link, error) {
			return sqlcgen.Link{}, fkViolation()
		},
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/links/",
		strings.NewReader(`{"client_id":1,"site_from":"Alpha","site_to":"Ghost"}`))
	h.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestListLinks_filterByClient(t *testing.T) {
	var gotFilter *int64
	h := newTestHandler()
	h.links = &fakeLinkQueries{
		list: func(_ context.Context, clientID *int64) ([]sqlcgen.Link, error) {
			gotFilter = clientID
			return nil, nil
		},
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/links/?client_id=9", nil)
	h.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if gotFilter == nil || *gotFilter != 9 {
		t.Fatalf("expected client filter 9, got %v", gotFilter)
	}
}
