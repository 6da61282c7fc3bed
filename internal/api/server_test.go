package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/buildwatch/internal/metrics"
	"github.com/zulandar/buildwatch/internal/models"
	"github.com/zulandar/buildwatch/internal/project"
	"github.com/zulandar/buildwatch/internal/source"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&models.Project{},
		&models.ProjectImage{},
		&models.ProjectUpdate{},
		&models.ClientState{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func fixedNow() time.Time { return time.Date(2025, 1, 14, 12, 0, 0, 0, time.UTC) }

func testRouter(t *testing.T, db *gorm.DB, opts StartOpts) *gin.Engine {
	t.Helper()
	opts.DB = db
	if opts.Now == nil {
		opts.Now = fixedNow
	}
	r, err := NewRouter(opts)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return r
}

// seedStore stores the demo projects under a distinct source label.
func seedStore(t *testing.T, db *gorm.DB) {
	t.Helper()
	if err := project.Upsert(db, source.DemoProjects(), "stored"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
}

func do(t *testing.T, r http.Handler, method, path, client, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if client != "" {
		req.Header.Set(clientHeader, client)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestNewRouter_NilDB(t *testing.T) {
	_, err := NewRouter(StartOpts{})
	if err == nil {
		t.Fatal("expected error for nil db")
	}
	if !strings.Contains(err.Error(), "db is required") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "db is required")
	}
}

func TestStart_NilDB(t *testing.T) {
	if err := Start(context.Background(), StartOpts{}); err == nil {
		t.Fatal("expected error for nil db")
	}
}

func TestListProjects_EmptyStoreServesDemo(t *testing.T) {
	r := testRouter(t, testDB(t), StartOpts{})
	w := do(t, r, "GET", "/api/construction-projects", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, DELETE, OPTIONS" {
		t.Errorf("Allow-Methods = %q", got)
	}

	resp := decode[listResponse](t, w)
	if !resp.Success || resp.Count != 5 || len(resp.Projects) != 5 {
		t.Errorf("success=%v count=%d projects=%d", resp.Success, resp.Count, len(resp.Projects))
	}
	if resp.Source != source.DemoName {
		t.Errorf("source = %q", resp.Source)
	}
	if resp.LastUpdated != "2025-01-14T12:00:00Z" {
		t.Errorf("lastUpdated = %q", resp.LastUpdated)
	}
	first := resp.Projects[0]
	if first.CurrentPhase.Name != "FOUNDATION" || first.CurrentPhase.Progress != 65 || len(first.Phases) != 5 {
		t.Errorf("first project phase = %+v", first.CurrentPhase)
	}
}

func TestListProjects_StoredSource(t *testing.T) {
	db := testDB(t)
	seedStore(t, db)
	r := testRouter(t, db, StartOpts{})

	resp := decode[listResponse](t, do(t, r, "GET", "/api/construction-projects", "", ""))
	if resp.Source != "stored" || resp.Count != 5 {
		t.Errorf("source=%q count=%d", resp.Source, resp.Count)
	}
}

func TestListProjects_Filters(t *testing.T) {
	db := testDB(t)
	seedStore(t, db)
	r := testRouter(t, db, StartOpts{})

	tests := []struct {
		name  string
		query string
		code  int
		count int
	}{
		{"all", "", 200, 5},
		{"renovation", "?filter=renovation", 200, 2},
		{"new build", "?filter=new-build", 200, 3},
		{"near city hall", "?filter=near-me", 200, 5},
		{"near nowhere", "?filter=near-me&lat=10&lng=10&radius=1", 200, 0},
		{"query", "?q=heritage", 200, 1},
		{"short query ignored", "?q=h", 200, 5},
		{"unknown filter", "?filter=demolition", 400, 0},
		{"bad lat", "?filter=near-me&lat=north", 400, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, "GET", "/api/construction-projects"+tt.query, "", "")
			if w.Code != tt.code {
				t.Fatalf("status = %d, want %d; body = %s", w.Code, tt.code, w.Body.String())
			}
			if tt.code != 200 {
				return
			}
			if resp := decode[listResponse](t, w); resp.Count != tt.count {
				t.Errorf("count = %d, want %d", resp.Count, tt.count)
			}
		})
	}
}

func TestListProjects_Options(t *testing.T) {
	r := testRouter(t, testDB(t), StartOpts{})
	w := do(t, r, "OPTIONS", "/api/construction-projects", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", w.Body.String())
	}
}

func TestListProjects_MethodNotAllowed(t *testing.T) {
	r := testRouter(t, testDB(t), StartOpts{})
	for _, method := range []string{"PUT", "PATCH", "DELETE"} {
		w := do(t, r, method, "/api/construction-projects", "", "")
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s status = %d, want 405", method, w.Code)
		}
		if got := strings.TrimSpace(w.Body.String()); got != `{"error":"Method not allowed"}` {
			t.Errorf("%s body = %s", method, got)
		}
	}
}

func TestGetProject(t *testing.T) {
	r := testRouter(t, testDB(t), StartOpts{})

	w := do(t, r, "GET", "/api/construction-projects/2", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	p := decode[project.ConstructionProject](t, w)
	if p.ID != "2" || p.CurrentPhase.Name != "FINISHING" {
		t.Errorf("project = %s %+v", p.ID, p.CurrentPhase)
	}

	if w := do(t, r, "GET", "/api/construction-projects/nope", "", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing status = %d, want 404", w.Code)
	}
}

func TestSearch(t *testing.T) {
	r := testRouter(t, testDB(t), StartOpts{})

	type searchResp struct {
		Count   int                           `json:"count"`
		Results []project.ConstructionProject `json:"results"`
	}
	if resp := decode[searchResp](t, do(t, r, "GET", "/api/search?q=TORONTO", "", "")); resp.Count != 5 {
		t.Errorf("toronto count = %d, want 5", resp.Count)
	}
	if resp := decode[searchResp](t, do(t, r, "GET", "/api/search?q=toronto&limit=2", "", "")); resp.Count != 2 {
		t.Errorf("limited count = %d, want 2", resp.Count)
	}
	if resp := decode[searchResp](t, do(t, r, "GET", "/api/search?q=a", "", "")); resp.Count != 0 || resp.Results == nil {
		t.Errorf("short query = %+v, want empty list", resp)
	}
	if w := do(t, r, "GET", "/api/search?q=toronto&limit=x", "", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", w.Code)
	}
}

func TestPhases(t *testing.T) {
	r := testRouter(t, testDB(t), StartOpts{})

	type phasesResp struct {
		OverallProgress int `json:"overallProgress"`
		CurrentPhase    struct {
			Name     string `json:"name"`
			Progress int    `json:"progress"`
		} `json:"currentPhase"`
		Phases []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"phases"`
	}

	resp := decode[phasesResp](t, do(t, r, "GET", "/api/phases?progress=50", "", ""))
	if resp.CurrentPhase.Name != "FOUNDATION" || resp.CurrentPhase.Progress != 50 {
		t.Errorf("current = %+v", resp.CurrentPhase)
	}
	if len(resp.Phases) != 5 || resp.Phases[0].ID != "phase-0" || resp.Phases[1].Status != "completed" {
		t.Errorf("phases = %+v", resp.Phases)
	}

	resp = decode[phasesResp](t, do(t, r, "GET", "/api/phases?progress=150", "", ""))
	if resp.OverallProgress != 100 || resp.CurrentPhase.Name != "PLANNING" {
		t.Errorf("clamped = %+v", resp)
	}

	if w := do(t, r, "GET", "/api/phases?progress=half", "", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad progress status = %d", w.Code)
	}
}

func TestUpdates(t *testing.T) {
	db := testDB(t)
	seedStore(t, db)
	r := testRouter(t, db, StartOpts{})

	w := do(t, r, "POST", "/api/construction-projects/1/updates", "", `{"username":"Neighbour","text":"  Crane is up  "}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	u := decode[project.Update](t, w)
	if u.Text != "Crane is up" || u.Username != "Neighbour" {
		t.Errorf("update = %+v", u)
	}

	w = do(t, r, "POST", "/api/construction-projects/1/updates/"+u.ID+"/like", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("like status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := decode[map[string]int](t, w)["likes"]; got != 1 {
		t.Errorf("likes = %d, want 1", got)
	}

	tests := []struct {
		name, path, body string
		code             int
	}{
		{"blank text", "/api/construction-projects/1/updates", `{"text":"   "}`, 400},
		{"bad json", "/api/construction-projects/1/updates", `{`, 400},
		{"unknown project", "/api/construction-projects/nope/updates", `{"text":"hi"}`, 404},
		{"unknown update", "/api/construction-projects/1/updates/nope/like", "", 404},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(t, r, "POST", tt.path, "", tt.body); w.Code != tt.code {
				t.Errorf("status = %d, want %d; body = %s", w.Code, tt.code, w.Body.String())
			}
		})
	}
}

func TestAddImage(t *testing.T) {
	db := testDB(t)
	seedStore(t, db)
	r := testRouter(t, db, StartOpts{})

	w := do(t, r, "POST", "/api/construction-projects/3/images", "", `{"url":"https://example.com/x.jpg","caption":"Dig","type":"before"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	img := decode[project.Image](t, w)
	if img.Type != project.ImageBefore || img.UploadedBy != "Anonymous" {
		t.Errorf("image = %+v", img)
	}
	if w := do(t, r, "POST", "/api/construction-projects/3/images", "", `{"url":"u","type":"selfie"}`); w.Code != http.StatusBadRequest {
		t.Errorf("bad type status = %d", w.Code)
	}
}

func TestHealthz(t *testing.T) {
	r := testRouter(t, testDB(t), StartOpts{})
	w := do(t, r, "GET", "/healthz", "", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("healthz = %d %s", w.Code, w.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	r := testRouter(t, testDB(t), StartOpts{Metrics: m})
	do(t, r, "GET", "/api/phases?progress=10", "", "")

	w := do(t, r, "GET", "/metrics", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	want := `buildwatch_http_requests_total{code="200",method="GET",route="/api/phases"} 1`
	if !strings.Contains(w.Body.String(), want) {
		t.Errorf("metrics missing %q", want)
	}

	r = testRouter(t, testDB(t), StartOpts{})
	if w := do(t, r, "GET", "/metrics", "", ""); w.Code != http.StatusNotFound {
		t.Errorf("metrics without registry status = %d, want 404", w.Code)
	}
}

func doFrom(t *testing.T, r http.Handler, remoteAddr, client string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", "/healthz", nil)
	req.RemoteAddr = remoteAddr
	if client != "" {
		req.Header.Set(clientHeader, client)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimit(t *testing.T) {
	r := testRouter(t, testDB(t), StartOpts{RateLimit: 0.001, RateBurst: 2})

	for i := 0; i < 2; i++ {
		if w := doFrom(t, r, "203.0.113.7:5000", "alice"); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, w.Code)
		}
	}
	w := doFrom(t, r, "203.0.113.7:5000", "alice")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "1" {
		t.Error("missing Retry-After")
	}
	// Another address has its own bucket.
	if w := doFrom(t, r, "198.51.100.4:6000", "alice"); w.Code != http.StatusOK {
		t.Errorf("second address status = %d", w.Code)
	}
}

func TestRateLimit_RotatingClientIDsShareBucket(t *testing.T) {
	r := testRouter(t, testDB(t), StartOpts{RateLimit: 1, RateBurst: 1})

	allowed := 0
	for i := 0; i < 20; i++ {
		w := doFrom(t, r, "203.0.113.7:5000", fmt.Sprintf("client-%d", i))
		if w.Code == http.StatusOK {
			allowed++
		}
	}
	if allowed != 1 {
		t.Errorf("allowed = %d of 20 with rotating ids, want 1", allowed)
	}
}

func TestRateLimit_IgnoresForwardedForByDefault(t *testing.T) {
	r := testRouter(t, testDB(t), StartOpts{RateLimit: 1, RateBurst: 1})

	allowed := 0
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("GET", "/healthz", nil)
		req.RemoteAddr = "203.0.113.7:5000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i+1))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code == http.StatusOK {
			allowed++
		}
	}
	if allowed != 1 {
		t.Errorf("allowed = %d with spoofed X-Forwarded-For, want 1", allowed)
	}
}

func TestNewRouter_BadTrustedProxy(t *testing.T) {
	if _, err := NewRouter(StartOpts{DB: testDB(t), TrustedProxies: []string{"not-an-ip"}}); err == nil {
		t.Fatal("expected error for invalid trusted proxy")
	}
}

func TestLimiterSet_SweepsIdleBuckets(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	set := newLimiterSet(1, 1, time.Minute)
	set.now = func() time.Time { return now }

	for i := 0; i < 50; i++ {
		set.get(fmt.Sprintf("192.0.2.%d", i))
	}
	if set.len() != 50 {
		t.Fatalf("len = %d, want 50", set.len())
	}

	// An address in use keeps its bucket; idle ones are dropped.
	now = now.Add(40 * time.Second)
	kept := set.get("192.0.2.1")
	now = now.Add(30 * time.Second)
	if got := set.get("192.0.2.1"); got != kept {
		t.Error("active bucket was replaced")
	}
	if set.len() != 1 {
		t.Errorf("len = %d after sweep, want 1", set.len())
	}
}
