package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ThatsOurJake/simhorse-racing/internal/config"
	"github.com/ThatsOurJake/simhorse-racing/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *Hub) {
	t.Helper()
	st, err := store.Open("")
	if err != nil {
		t.Fatalf("failed to open in-memory store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	hub := NewHub(HubConfig{Seed: 4242, Results: st, Logger: zerolog.Nop()})
	srv := httptest.NewServer(NewRouter(hub, st, zerolog.Nop()))
	t.Cleanup(srv.Close)
	return srv, hub
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode %s response: %v", url, err)
		}
	}
	return resp
}

func postJSON(t *testing.T, url string, body []byte) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read %s response: %v", url, err)
	}
	return resp, data
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz returned %d", resp.StatusCode)
	}
}

func TestRaceSnapshotEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	var snap stateMessage
	resp := getJSON(t, srv.URL+"/api/race", &snap)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/race returned %d", resp.StatusCode)
	}
	if snap.RaceState != "idle" || len(snap.Horses) != defaultRosterSize {
		t.Fatalf("unexpected snapshot: state=%s horses=%d", snap.RaceState, len(snap.Horses))
	}
}

func TestImportEndpointRejectsInvalid(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, data := postJSON(t, srv.URL+"/api/config", []byte(`{"version":"1.0","raceSeed":1,"horses":[]}`))
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("invalid import returned %d, want 422", resp.StatusCode)
	}
	var result importResponse
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("failed to decode import response: %v", err)
	}
	if result.Valid || len(result.Errors) == 0 {
		t.Fatalf("expected structured errors, got %+v", result)
	}
	if !strings.Contains(result.Errors[0].Path, "horses") {
		t.Fatalf("expected a horses issue, got %+v", result.Errors)
	}
}

func TestImportExportEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	payload := testConfigJSON(t, 999)

	resp, _ := postJSON(t, srv.URL+"/api/config", payload)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("valid import returned %d", resp.StatusCode)
	}

	exportResp, err := http.Get(srv.URL + "/api/config")
	if err != nil {
		t.Fatalf("GET /api/config failed: %v", err)
	}
	defer exportResp.Body.Close()
	exported, err := io.ReadAll(exportResp.Body)
	if err != nil {
		t.Fatalf("failed to read export: %v", err)
	}

	file, issues := config.Validate(exported)
	if len(issues) != 0 {
		t.Fatalf("exported file invalid: %v", issues)
	}
	if file.RaceSeed != 999 || len(file.Horses) != 2 {
		t.Fatalf("export does not match import: %+v", file)
	}
}

func TestSavedConfigEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	if resp, _ := postJSON(t, srv.URL+"/api/config", testConfigJSON(t, 999)); resp.StatusCode != http.StatusOK {
		t.Fatalf("import failed: %d", resp.StatusCode)
	}
	if resp, _ := postJSON(t, srv.URL+"/api/configs/derby", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("save config failed: %d", resp.StatusCode)
	}

	var configs []store.SavedConfig
	getJSON(t, srv.URL+"/api/configs", &configs)
	if len(configs) != 1 || configs[0].Name != "derby" {
		t.Fatalf("unexpected saved configs: %+v", configs)
	}

	// Replace the live config, then restore from the saved slot.
	if resp, _ := postJSON(t, srv.URL+"/api/config", testConfigJSON(t, 1)); resp.StatusCode != http.StatusOK {
		t.Fatalf("second import failed: %d", resp.StatusCode)
	}
	if resp, _ := postJSON(t, srv.URL+"/api/configs/derby/load", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("load saved config failed: %d", resp.StatusCode)
	}

	var snap stateMessage
	getJSON(t, srv.URL+"/api/race", &snap)
	if snap.Seed != 999 {
		t.Fatalf("saved config not restored: seed %d", snap.Seed)
	}

	if resp, _ := postJSON(t, srv.URL+"/api/configs/missing/load", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("loading a missing config returned %d, want 404", resp.StatusCode)
	}
}

func TestStartEndpointConflictsWhenNotIdle(t *testing.T) {
	srv, _ := newTestServer(t)

	if resp, _ := postJSON(t, srv.URL+"/api/race/start", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("first start returned %d", resp.StatusCode)
	}
	if resp, _ := postJSON(t, srv.URL+"/api/race/start", nil); resp.StatusCode != http.StatusConflict {
		t.Fatalf("second start returned %d, want 409", resp.StatusCode)
	}
	if resp, _ := postJSON(t, srv.URL+"/api/race/reset", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("reset returned %d", resp.StatusCode)
	}

	var snap stateMessage
	getJSON(t, srv.URL+"/api/race", &snap)
	if snap.RaceState != "idle" {
		t.Fatalf("expected idle after reset, got %s", snap.RaceState)
	}
}

func TestWebsocketSendsInitialState(t *testing.T) {
	srv, _ := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	defer conn.Close()

	var snap stateMessage
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("failed to read initial state: %v", err)
	}
	if snap.Type != "state" || snap.RaceState != "idle" {
		t.Fatalf("unexpected initial message: %+v", snap)
	}
}
