package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"satlink/core-go/internal/importer"
	"satlink/core-go/internal/sqlcgen"
)

const importHeader = "CLNT_NAME,STN_NAME,STN_ADDR,LAT_DEC,LONG_DEC,STASIUN_LAWAN,TO_LAT_DEC,TO_LONG_DEC,APPL_ID,FREQ,FREQ_PAIR,BWIDTH,EQ_MDL"

// emptyReadStore answers every lookup with "not found".
type emptyReadStore struct{}

func (emptyReadStore) GetClientByName(context.Context, string) (sqlcgen.Client, error) {
	return sqlcgen.Client{}, pgx.ErrNoRows
}

func (emptyReadStore) GetSite(context.Context, string) (sqlcgen.Site, error) {
	return sqlcgen.Site{}, pgx.ErrNoRows
}

func (emptyReadStore) FindLinkByNaturalKey(context.Context, sqlcgen.FindLinkByNaturalKeyParams) (int64, error) {
	return 0, pgx.ErrNoRows
}

func (emptyReadStore) FindLinkByEndpoints(context.Context, sqlcgen.FindLinkByEndpointsParams) (int64, error) {
	return 0, pgx.ErrNoRows
}

type fakeRunQueries struct {
	created  []sqlcgen.ImportRun
	finished []sqlcgen.FinishImportRunParams
	get      func(ctx context.Context, id string) (sqlcgen.ImportRun, error)
	list     func(ctx context.Context, limit int32) ([]sqlcgen.ImportRun, error)

	// honorFinishCtx makes FinishImportRun fail on a dead context, the
	// way a real pool write would.
	honorFinishCtx bool
}

func (f *fakeRunQueries) CreateImportRun(_ context.Context, status string, stats []byte) (sqlcgen.ImportRun, error) {
	run := sqlcgen.ImportRun{ID: "11111111-2222-3333-4444-555555555555", Status: status, Stats: stats, StartedAt: time.Now()}
	f.created = append(f.created, run)
	return run, nil
}

func (f *fakeRunQueries) FinishImportRun(ctx context.Context, arg sqlcgen.FinishImportRunParams) (sqlcgen.ImportRun, error) {
	if f.honorFinishCtx {
		if err := ctx.Err(); err != nil {
			return sqlcgen.ImportRun{}, err
		}
	}
	f.finished = append(f.finished, arg)
	now := time.Now()
	return sqlcgen.ImportRun{ID: arg.ID, Status: arg.Status, Stats: arg.Stats, CompletedAt: &now}, nil
}

func (f *fakeRunQueries) GetImportRun(ctx context.Context, id string) (sqlcgen.ImportRun, error) {
	return f.get(ctx, id)
}

func (f *fakeRunQueries) ListImportRuns(ctx context.Context, limit int32) ([]sqlcgen.ImportRun, error) {
	return f.list(ctx, limit)
}

func postCSV(h *Handler, path, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "text/csv")
	h.Router().ServeHTTP(rr, req)
	return rr
}

func TestImportPreview_missingColumns(t *testing.T) {
	h := newTestHandler()
	h.reads = emptyReadStore{}

	rr := postCSV(h, "/api/v1/import/preview", "CLNT_NAME,STN_NAME\nAcme,Alpha\n")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	if !strings.Contains(body, "schema_invalid") {
		t.Fatalf("expected schema_invalid, got %s", body)
	}
	if !strings.Contains(body, "LAT_DEC") {
		t.Fatalf("expected missing columns in details, got %s", body)
	}
}

func TestImportPreview_resolvesRows(t *testing.T) {
	h := newTestHandler()
	h.reads = emptyReadStore{}

	body := importHeader + "\n" +
		"Acme,Alpha,Addr,-6.2,106.8,Beta,-6.3,106.9,AP-1,7100,7200,28,NEC\n"
	rr := postCSV(h, "/api/v1/import/preview", body)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	pv := decodeBody[importer.Preview](t, rr)
	if pv.NewClients != 1 || pv.NewSites != 2 || pv.NewLinks != 1 {
		t.Fatalf("unexpected preview counts: %+v", pv)
	}
	if len(pv.Rows) != 1 || pv.Rows[0].Duplicate {
		t.Fatalf("unexpected preview rows: %+v", pv.Rows)
	}
}

func TestImportPreview_multipartUpload(t *testing.T) {
	h := newTestHandler()
	h.reads = emptyReadStore{}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "links.csv")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte(importHeader + "\nAcme,Alpha,Addr,-6.2,106.8,Beta,-6.3,106.9,AP-1,,,,\n")); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/import/preview", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	h.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestImportCommit_success(t *testing.T) {
	h := newTestHandler()
	runs := &fakeRunQueries{}
	h.runs = runs
	h.apply = func(_ context.Context, batch *importer.Batch, policy importer.DedupPolicy) (importer.Summary, error) {
		if policy != importer.DedupApplEndpoints {
			t.Fatalf("unexpected policy %q", policy)
		}
		return importer.Summary{
			RowsTotal:      len(batch.Rows),
			ClientsCreated: 1,
			SitesCreated:   2,
			LinksCreated:   1,
		}, nil
	}

	body := importHeader + "\n" +
		"Acme,Alpha,Addr,-6.2,106.8,Beta,-6.3,106.9,AP-1,7100,7200,28,NEC\n"
	rr := postCSV(h, "/api/v1/import/commit", body)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		RunID   string           `json:"run_id"`
		Summary importer.Summary `json:"summary"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.RunID == "" || resp.Summary.LinksCreated != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	if len(runs.created) != 1 || runs.created[0].Status != "running" {
		t.Fatalf("expected one running run, got %+v", runs.created)
	}
	if len(runs.finished) != 1 || runs.finished[0].Status != "completed" {
		t.Fatalf("expected run to finish completed, got %+v", runs.finished)
	}
	if !strings.Contains(string(runs.finished[0].Stats), "\"links_created\":1") {
		t.Fatalf("expected summary stats recorded, got %s", runs.finished[0].Stats)
	}
}

func TestImportCommit_applyFailureRecordsRun(t *testing.T) {
	h := newTestHandler()
	runs := &fakeRunQueries{}
	h.runs = runs
	h.apply = func(context.Context, *importer.Batch, importer.DedupPolicy) (importer.Summary, error) {
		return importer.Summary{}, errors.New("deadlock detected")
	}

	body := importHeader + "\n" +
		"Acme,Alpha,Addr,-6.2,106.8,Beta,-6.3,106.9,AP-1,,,,\n"
	rr := postCSV(h, "/api/v1/import/commit", body)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if code := errCode(t, rr); code != "import_failed" {
		t.Fatalf("expected import_failed, got %q", code)
	}
	if len(runs.finished) != 1 || runs.finished[0].Status != "failed" {
		t.Fatalf("expected run marked failed, got %+v", runs.finished)
	}
	if runs.finished[0].LastError == nil || !strings.Contains(*runs.finished[0].LastError, "deadlock") {
		t.Fatalf("expected last_error recorded, got %+v", runs.finished[0].LastError)
	}
}

func TestImportCommit_clientDisconnectStillRecordsFailure(t *testing.T) {
	h := newTestHandler()
	runs := &fakeRunQueries{honorFinishCtx: true}
	h.runs = runs
	h.apply = func(ctx context.Context, _ *importer.Batch, _ importer.DedupPolicy) (importer.Summary, error) {
		// The pool aborts the transaction when the request context dies.
		return importer.Summary{}, ctx.Err()
	}

	body := importHeader + "\n" +
		"Acme,Alpha,Addr,-6.2,106.8,Beta,-6.3,106.9,AP-1,,,,\n"
	req := httptest.NewRequest(http.MethodPost, "/api/v1/import/commit", strings.NewReader(body))
	req.Header.Set("Content-Type", "text/csv")
	ctx, cancel := context.WithCancel(req.Context())
	cancel()
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	h.Router().ServeHTTP(rr, req)

	// The run must not be left in "running" just because the request
	// context died with the client.
	if len(runs.finished) != 1 || runs.finished[0].Status != "failed" {
		t.Fatalf("expected run marked failed despite canceled request, got %+v", runs.finished)
	}
	if runs.finished[0].LastError == nil {
		t.Fatal("expected last_error recorded")
	}
}

func TestImportCommit_schemaErrorWritesNothing(t *testing.T) {
	h := newTestHandler()
	runs := &fakeRunQueries{}
	h.runs = runs
	h.apply = func(context.Context, *importer.Batch, importer.DedupPolicy) (importer.Summary, error) {
		t.Fatal("apply must not run for a schema-invalid file")
		return importer.Summary{}, nil
	}

	rr := postCSV(h, "/api/v1/import/commit", "CLNT_NAME\nAcme\n")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if len(runs.created) != 0 {
		t.Fatalf("expected no run recorded, got %+v", runs.created)
	}
}

func TestGetImportRun_notFound(t *testing.T) {
	h := newTestHandler()
	h.runs = &fakeRunQueries{
		get: func(context.Context, string) (sqlcgen.ImportRun, error) {
			return sqlcgen.ImportRun{}, pgx.ErrNoRows
		},
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/import/runs/00000000-0000-0000-0000-000000000000", nil)
	h.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestListImportRuns(t *testing.T) {
	h := newTestHandler()
	h.runs = &fakeRunQueries{
		list: func(_ context.Context, limit int32) ([]sqlcgen.ImportRun, error) {
			if limit != 50 {
				t.Fatalf("expected default limit 50, got %d", limit)
			}
			return []sqlcgen.ImportRun{
				{ID: "a", Status: "completed", Stats: []byte(`{"links_created":3}`), StartedAt: time.Now()},
			}, nil
		},
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/import/runs", nil)
	h.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	got := decodeBody[[]importRun](t, rr)
	if len(got) != 1 || got[0].Status != "completed" {
		t.Fatalf("unexpected runs: %+v", got)
	}
}
