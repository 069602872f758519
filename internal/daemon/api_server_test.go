package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clipforge/internal/api"
	"clipforge/internal/batch"
	"clipforge/internal/config"
	"clipforge/internal/pipeline"
	"clipforge/internal/queue"
	"clipforge/internal/rendercache"
	"clipforge/internal/services/export"
	"clipforge/internal/testsupport"
)

func newTestServer(t *testing.T, opts ...testsupport.ConfigOption) (*httptest.Server, *config.Config, *queue.Store) {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)

	cache := rendercache.New("", cfg.Cache.MaxEntries, time.Duration(cfg.Cache.TTLHours)*time.Hour, nil)
	stubs := testsupport.NewStubExecutors()
	engine := pipeline.NewEngine(store, cache, stubs.Executors(), cfg.StageTimeouts, nil)
	exporter := export.NewService(export.Config{WorkDir: cfg.Paths.WorkDir})
	runner := batch.NewRunner(context.Background(), store, engine, exporter, cfg.Workflow, nil)

	d, err := New(cfg, store, runner, cache, nil)
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	if d.apiSrv == nil {
		t.Fatal("expected api server to be configured")
	}

	srv := httptest.NewServer(d.apiSrv.server.Handler)
	t.Cleanup(srv.Close)
	return srv, cfg, store
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestSubmitJobEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/jobs", testsupport.Request("api test script"))
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	payload := decodeBody[api.JobResponse](t, resp)
	if payload.Job.ID == "" || payload.Job.Status != "pending" {
		t.Fatalf("unexpected job payload: %#v", payload.Job)
	}
}

func TestSubmitJobValidationError(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/jobs", queue.Request{Script: "no background"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	payload := decodeBody[map[string]string](t, resp)
	if payload["error"] == "" {
		t.Fatal("expected error message in body")
	}
}

func TestGetJobNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/jobs/unknown-id")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestBatchLifecycleEndpoints(t *testing.T) {
	srv, _, store := newTestServer(t)

	create := postJSON(t, srv.URL+"/api/batches", map[string]any{
		"requests": []queue.Request{
			testsupport.Request("first"),
			testsupport.Request("second"),
		},
	})
	if create.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", create.StatusCode)
	}
	created := decodeBody[api.BatchResponse](t, create)
	if created.Batch.TotalJobs != 2 {
		t.Fatalf("unexpected batch: %#v", created.Batch)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		b, err := store.GetBatch(context.Background(), created.Batch.ID)
		if err != nil {
			t.Fatalf("GetBatch failed: %v", err)
		}
		if b != nil && b.Status.IsTerminal() {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	show, err := http.Get(srv.URL + "/api/batches/" + created.Batch.ID)
	if err != nil {
		t.Fatalf("GET batch failed: %v", err)
	}
	detail := decodeBody[api.BatchResponse](t, show)
	if detail.Batch.Status != "completed" || len(detail.Batch.Jobs) != 2 {
		t.Fatalf("unexpected batch detail: %#v", detail.Batch)
	}

	cancel := postJSON(t, srv.URL+"/api/batches/"+created.Batch.ID+"/cancel", nil)
	if cancel.StatusCode != http.StatusConflict {
		t.Fatalf("cancelling a settled batch should 409, got %d", cancel.StatusCode)
	}
	cancel.Body.Close()

	list, err := http.Get(srv.URL + "/api/batches?offset=0&limit=10")
	if err != nil {
		t.Fatalf("GET batches failed: %v", err)
	}
	page := decodeBody[api.BatchListResponse](t, list)
	if page.Total != 1 || len(page.Batches) != 1 {
		t.Fatalf("unexpected batch list: %#v", page)
	}
}

func TestCacheEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/cache/stats")
	if err != nil {
		t.Fatalf("GET cache stats failed: %v", err)
	}
	stats := decodeBody[api.CacheStatsView](t, resp)
	if stats.Entries != 0 {
		t.Fatalf("expected empty cache, got %#v", stats)
	}

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/cache", nil)
	if err != nil {
		t.Fatalf("build DELETE: %v", err)
	}
	del, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE cache failed: %v", err)
	}
	del.Body.Close()
	if del.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", del.StatusCode)
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET status failed: %v", err)
	}
	status := decodeBody[api.DaemonStatus](t, resp)
	if status.QueueDBPath == "" || status.JobStats == nil {
		t.Fatalf("unexpected status payload: %#v", status)
	}
	if len(status.Dependencies) == 0 {
		t.Fatal("expected dependency report")
	}
}

func TestBearerAuth(t *testing.T) {
	srv, _, _ := newTestServer(t, testsupport.WithAPIToken("secret-token"))

	unauthenticated, err := http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	unauthenticated.Body.Close()
	if unauthenticated.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", unauthenticated.StatusCode)
	}

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/status", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer secret-token")
	authed, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("authorized GET failed: %v", err)
	}
	authed.Body.Close()
	if authed.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", authed.StatusCode)
	}

	wrong, err := http.NewRequest(http.MethodGet, srv.URL+"/api/status", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	wrong.Header.Set("Authorization", "Bearer nope")
	denied, err := http.DefaultClient.Do(wrong)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	denied.Body.Close()
	if denied.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", denied.StatusCode)
	}
}
