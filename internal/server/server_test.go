package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ventureos/internal/app"
	"ventureos/internal/config"
	"ventureos/internal/db"
	"ventureos/internal/domain"
	"ventureos/internal/engine"
	"ventureos/internal/migrate"
)

const (
	testJWTSecret   = "test-jwt-secret"
	testAgentSecret = "test-agent-secret"
)

type testServer struct {
	URL    string
	Engine engine.Engine
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default())
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/v0",
		Auth: AuthConfig{
			JWTSecret:      testJWTSecret,
			AgentEnvSecret: testAgentSecret,
		},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	ts := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	t.Cleanup(ts.Close)
	return ts
}

func agentHeaders() map[string]string {
	return map[string]string{"X-Agent-Key": testAgentSecret}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/projects", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Error.Code != "unauthorized" {
		t.Fatalf("unexpected error body %s", string(data))
	}

	// Health stays open.
	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for health, got %d: %s", res.StatusCode, string(data))
	}
}

func TestJWTAuth(t *testing.T) {
	srv := newTestServer(t)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/clients", map[string]any{
		"name": "Acme",
	}, map[string]string{"Authorization": "Bearer " + token})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.StatusCode, string(data))
	}

	// A token signed with a different secret is rejected.
	bad, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "mallory"}).
		SignedString([]byte("wrong-secret"))
	res, _ = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/clients", map[string]any{
		"name": "Evil Corp",
	}, map[string]string{"Authorization": "Bearer " + bad})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", res.StatusCode)
	}
}

func TestAgentKeyFromDatabase(t *testing.T) {
	srv := newTestServer(t)
	plaintext, _, err := app.NewAgentKey(context.Background(), srv.Engine.Repo, "ci-bot")
	if err != nil {
		t.Fatalf("mint key: %v", err)
	}

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/clients", nil, map[string]string{
		"X-Agent-Key": plaintext,
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.StatusCode, string(data))
	}

	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/clients", nil, map[string]string{
		"X-Agent-Key": "vos_not_a_real_key",
	})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown key, got %d", res.StatusCode)
	}
}

func TestSyncBridge(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/clients", map[string]any{
		"name": "Acme", "company": "Acme GmbH",
	}, agentHeaders())
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create client status %d: %s", res.StatusCode, string(data))
	}
	var created domain.Client
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal client: %v", err)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/opportunities", map[string]any{
		"client_id": created.ID, "title": "Acme Portal", "estimated_value": 20000,
	}, agentHeaders())
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create opportunity status %d: %s", res.StatusCode, string(data))
	}
	var opp domain.Opportunity
	if err := json.Unmarshal(data, &opp); err != nil {
		t.Fatalf("unmarshal opportunity: %v", err)
	}

	// Winning through the bridge bootstraps the project like the UI path.
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/sync", map[string]any{
		"opportunity_updates": []map[string]any{
			{"id": opp.ID, "stage": "Won"},
		},
		"client_health": []map[string]any{
			{"id": created.ID, "health_score": 80},
		},
		"agent_reports": []map[string]any{
			{"title": "Weekly digest", "severity": "info"},
		},
	}, agentHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("sync push status %d: %s", res.StatusCode, string(data))
	}
	var pushed struct {
		Message string      `json:"message"`
		Results SyncResults `json:"results"`
	}
	if err := json.Unmarshal(data, &pushed); err != nil {
		t.Fatalf("unmarshal push response: %v", err)
	}
	if len(pushed.Results.OpportunityUpdates) != 1 || !pushed.Results.OpportunityUpdates[0].OK {
		t.Fatalf("expected opportunity update ok, got %+v", pushed.Results)
	}
	if pushed.Results.AgentReports == nil || pushed.Results.AgentReports.Inserted != 1 {
		t.Fatalf("expected 1 report inserted, got %+v", pushed.Results.AgentReports)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/sync", nil, agentHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("sync pull status %d: %s", res.StatusCode, string(data))
	}
	var snap SyncSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if len(snap.Projects) != 1 {
		t.Fatalf("expected bootstrapped project in snapshot, got %d", len(snap.Projects))
	}
	if len(snap.Clients) != 1 || snap.Clients[0].HealthScore != 80 {
		t.Fatalf("expected client health 80, got %+v", snap.Clients)
	}
}

func TestSyncBridgeBadRowDoesNotBlockBatch(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/clients", map[string]any{
		"name": "Acme",
	}, agentHeaders())
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create client status %d: %s", res.StatusCode, string(data))
	}
	var created domain.Client
	_ = json.Unmarshal(data, &created)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/sync", map[string]any{
		"client_health": []map[string]any{
			{"id": "no-such-client", "health_score": 10},
			{"id": created.ID, "health_score": 90},
		},
	}, agentHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("sync push status %d: %s", res.StatusCode, string(data))
	}
	var pushed struct {
		Results SyncResults `json:"results"`
	}
	if err := json.Unmarshal(data, &pushed); err != nil {
		t.Fatalf("unmarshal push response: %v", err)
	}
	if len(pushed.Results.ClientHealth) != 2 {
		t.Fatalf("expected 2 results, got %+v", pushed.Results.ClientHealth)
	}
	if pushed.Results.ClientHealth[0].OK || pushed.Results.ClientHealth[0].Error == "" {
		t.Fatalf("expected first row to fail, got %+v", pushed.Results.ClientHealth[0])
	}
	if !pushed.Results.ClientHealth[1].OK {
		t.Fatalf("expected second row to succeed, got %+v", pushed.Results.ClientHealth[1])
	}

	got, err := srv.Engine.Repo.GetClient(context.Background(), created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.HealthScore != 90 {
		t.Fatalf("expected health 90, got %d", got.HealthScore)
	}
}

func TestTaskEndpointsExposeSubtaskProgress(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/tasks", map[string]any{
		"title": "Ship feature",
	}, agentHeaders())
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create task status %d: %s", res.StatusCode, string(data))
	}
	var created TaskView
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal task: %v", err)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/tasks/"+created.ID+"/subtasks", map[string]any{
		"title": "write tests",
	}, agentHeaders())
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		t.Fatalf("add subtask status %d: %s", res.StatusCode, string(data))
	}
	var withSub TaskView
	if err := json.Unmarshal(data, &withSub); err != nil {
		t.Fatalf("unmarshal task view: %v", err)
	}
	if len(withSub.Subtasks) != 1 {
		t.Fatalf("expected 1 subtask, got %+v", withSub.Subtasks)
	}
	if withSub.SubtaskProgress != 0 {
		t.Fatalf("expected 0%% progress, got %d", withSub.SubtaskProgress)
	}

	res, data = doJSON(t, client, http.MethodPost,
		srv.URL+"/v0/tasks/"+created.ID+"/subtasks/"+withSub.Subtasks[0].ID+"/toggle", nil, agentHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("toggle status %d: %s", res.StatusCode, string(data))
	}
	var toggled TaskView
	if err := json.Unmarshal(data, &toggled); err != nil {
		t.Fatalf("unmarshal toggled: %v", err)
	}
	if toggled.SubtaskProgress != 100 {
		t.Fatalf("expected 100%% progress, got %d", toggled.SubtaskProgress)
	}
}
