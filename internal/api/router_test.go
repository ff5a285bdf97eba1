package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gunplay/internal/api"
	"gunplay/internal/game"
	"gunplay/internal/input"
	"gunplay/internal/stats"
	"gunplay/internal/weapon"
)

// ============================================================================
// Mock Implementations
// ============================================================================

// MockEngine implements api.EngineInterface for testing
type MockEngine struct {
	createErr error
	pushErr   error
	pushed    []input.Event
}

func (m *MockEngine) CreateSession(loadout []string) (game.SessionInfo, error) {
	if m.createErr != nil {
		return game.SessionInfo{}, m.createErr
	}
	return game.SessionInfo{ID: "mock", Loadout: loadout}, nil
}

func (m *MockEngine) EndSession(id string) (game.SessionSummary, error) {
	return game.SessionSummary{ID: id}, nil
}

func (m *MockEngine) Session(id string) (game.SessionInfo, bool) {
	return game.SessionInfo{ID: id}, id == "mock"
}

func (m *MockEngine) Sessions() []game.SessionInfo { return nil }

func (m *MockEngine) Push(id string, ev input.Event) error {
	if m.pushErr != nil {
		return m.pushErr
	}
	m.pushed = append(m.pushed, ev)
	return nil
}

// MockStats implements api.StatsStore
type MockStats struct {
	lastN int
}

func (m *MockStats) Recent(_ context.Context, n int) ([]stats.SessionStats, error) {
	m.lastN = n
	return []stats.SessionStats{{SessionID: "a", Shots: 3, Hits: 1}}, nil
}

func (m *MockStats) Totals(context.Context) (stats.Totals, error) {
	return stats.Totals{Sessions: 1, Shots: 3, Hits: 1}, nil
}

var testRateLimit = &api.RateLimitConfig{
	RequestsPerSecond: 1000,
	Burst:             1000,
	CleanupInterval:   time.Hour,
}

func newTestServer(t *testing.T, cfg api.RouterConfig) *httptest.Server {
	t.Helper()
	cfg.DisableLogging = true
	if cfg.RateLimitConfig == nil {
		cfg.RateLimitConfig = testRateLimit
	}
	ts := httptest.NewServer(api.NewRouter(cfg))
	t.Cleanup(ts.Close)
	return ts
}

func newEngine() *game.Engine {
	return game.NewEngine(game.EngineConfig{Seed: 1, FPS: 200}, zerolog.Nop())
}

func do(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set(api.TokenHeader, token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

type created struct {
	Session game.SessionInfo `json:"session"`
	Token   string           `json:"token"`
}

func createSession(t *testing.T, baseURL, body string) created {
	t.Helper()
	resp := do(t, http.MethodPost, baseURL+"/api/sessions", "", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var c created
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&c))
	require.NotEmpty(t, c.Token)
	return c
}

// ============================================================================
// Catalog
// ============================================================================

func TestAPIGetWeapons(t *testing.T) {
	ts := newTestServer(t, api.RouterConfig{Engine: &MockEngine{}})

	resp := do(t, http.MethodGet, ts.URL+"/api/weapons", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var weapons []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&weapons))
	require.Len(t, weapons, len(weapon.Catalog))

	byID := make(map[string]map[string]any)
	for _, w := range weapons {
		byID[w["id"].(string)] = w
	}
	assert.Equal(t, true, byID["ak"]["hasPattern"])
	assert.Equal(t, "RIFLE", byID["ak"]["classification"])
	assert.Equal(t, false, byID["knife"]["hasPattern"])
}

func TestAPIGetWeapon(t *testing.T) {
	ts := newTestServer(t, api.RouterConfig{Engine: &MockEngine{}})

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/api/weapons/m416", http.StatusOK},
		{"/api/weapons/bazooka", http.StatusNotFound},
		{"/api/weapons/bazooka/pattern.png", http.StatusNotFound},
		{"/api/weapons/knife/pattern.png", http.StatusNotFound},
		{"/api/weapons/awp/pattern.png", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp := do(t, http.MethodGet, ts.URL+tt.path, "", "")
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("Expected %d, got %d", tt.wantStatus, resp.StatusCode)
			}
		})
	}
}

func TestAPIPatternPNG(t *testing.T) {
	ts := newTestServer(t, api.RouterConfig{Engine: &MockEngine{}})

	resp := do(t, http.MethodGet, ts.URL+"/api/weapons/ak/pattern.png?width=120&height=160", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 120, img.Bounds().Dx())
	assert.Equal(t, 160, img.Bounds().Dy())
}

// ============================================================================
// Sessions
// ============================================================================

func TestAPISessionLifecycle(t *testing.T) {
	engine := newEngine()
	ts := newTestServer(t, api.RouterConfig{Engine: engine})

	c := createSession(t, ts.URL, `{"loadout":["ak","glock"]}`)
	assert.Equal(t, []string{"ak", "glock"}, c.Session.Loadout)
	base := ts.URL + "/api/sessions/" + c.Session.ID

	resp := do(t, http.MethodGet, base, "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/api/sessions", "", "")
	var list []game.SessionInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Len(t, list, 1)

	// input needs the session's token
	resp = do(t, http.MethodPost, base+"/input", "", `{"event":"switch_primary"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, http.MethodPost, base+"/input", c.Token, `{"event":"switch_primary"}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = do(t, http.MethodPost, base+"/input", c.Token, `{"key":"KeyZ","down":true}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	engine.Step(time.Now())
	info, ok := engine.Session(c.Session.ID)
	require.True(t, ok)
	assert.Equal(t, weapon.SlotPrimary, info.HUD.Slot)

	// a token for another session cannot end this one
	other := createSession(t, ts.URL, "")
	resp = do(t, http.MethodDelete, base, other.Token, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, http.MethodDelete, base, c.Token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary game.SessionSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	assert.Equal(t, c.Session.ID, summary.ID)
	assert.Equal(t, uint64(1), summary.Frames)

	resp = do(t, http.MethodGet, base, "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPICreateSessionErrors(t *testing.T) {
	tests := []struct {
		name       string
		engine     api.EngineInterface
		body       string
		wantStatus int
	}{
		{"limit reached", &MockEngine{createErr: game.ErrSessionLimit}, "", http.StatusServiceUnavailable},
		{"unknown weapon", newEngine(), `{"loadout":["bazooka"]}`, http.StatusBadRequest},
		{"invalid json", &MockEngine{}, `{invalid}`, http.StatusBadRequest},
		{"empty body", &MockEngine{}, "", http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, api.RouterConfig{Engine: tt.engine})
			resp := do(t, http.MethodPost, ts.URL+"/api/sessions", "", tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("Expected %d, got %d", tt.wantStatus, resp.StatusCode)
			}
		})
	}
}

func TestAPIPushInputDropped(t *testing.T) {
	tokens := api.NewTokenIssuer([]byte("secret"), time.Hour)
	token, _, err := tokens.Issue("mock")
	require.NoError(t, err)

	engine := &MockEngine{pushErr: game.ErrInputDropped}
	ts := newTestServer(t, api.RouterConfig{Engine: engine, Tokens: tokens})

	resp := do(t, http.MethodPost, ts.URL+"/api/sessions/mock/input", token, `{"button":0,"down":true}`)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	engine.pushErr = nil
	resp = do(t, http.MethodPost, ts.URL+"/api/sessions/mock/input", token, `{"button":0,"down":true}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, []input.Event{input.TriggerDown}, engine.pushed)
}

// ============================================================================
// Statistics
// ============================================================================

func TestAPIStats(t *testing.T) {
	store := &MockStats{}
	ts := newTestServer(t, api.RouterConfig{Engine: &MockEngine{}, Stats: store, RecentLimit: 10})

	resp := do(t, http.MethodGet, ts.URL+"/api/stats/recent?n=500", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 10, store.lastN)

	var recent []stats.SessionStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&recent))
	require.Len(t, recent, 1)
	assert.Equal(t, "a", recent[0].SessionID)

	resp = do(t, http.MethodGet, ts.URL+"/api/stats/totals", "", "")
	var totals stats.Totals
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&totals))
	assert.Equal(t, int64(3), totals.Shots)
}

func TestAPIStatsDisabled(t *testing.T) {
	ts := newTestServer(t, api.RouterConfig{Engine: &MockEngine{}})
	resp := do(t, http.MethodGet, ts.URL+"/api/stats/recent", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestAPIRateLimit(t *testing.T) {
	ts := newTestServer(t, api.RouterConfig{
		Engine:          &MockEngine{},
		RateLimitConfig: &api.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2, CleanupInterval: time.Hour},
	})

	var codes []int
	for i := 0; i < 3; i++ {
		resp := do(t, http.MethodGet, ts.URL+"/health", "", "")
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

// ============================================================================
// WebSocket
// ============================================================================

type wsEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func TestWebSocketSession(t *testing.T) {
	engine := newEngine()
	srv := api.NewServer(engine, api.ServerConfig{
		RateLimit:      *testRateLimit,
		DisableLogging: true,
	}, zerolog.Nop())
	defer srv.Stop()
	engine.SetCallbacks(srv.Callbacks())

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	c := createSession(t, ts.URL, `{"loadout":["glock"]}`)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?token=" + c.Token

	// wrong origin
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// bad token
	_, resp, err = websocket.DefaultDialer.Dial(wsURL+"x", http.Header{"Origin": {"http://localhost:5173"}})
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"http://localhost:5173"}})
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg wsEnvelope
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, api.MessageHello, msg.Type)
	assert.Equal(t, 1, srv.Hub().ClientCount())

	require.NoError(t, conn.WriteJSON(input.Message{Key: "Digit2", Down: true}))
	engine.Start()
	defer engine.Stop()

	var equipped bool
	for !equipped {
		require.NoError(t, conn.ReadJSON(&msg))
		require.Equal(t, api.MessageFrame, msg.Type)
		var u game.FrameUpdate
		require.NoError(t, json.Unmarshal(msg.Data, &u))
		equipped = u.HUD.Weapon == "Glock"
	}

	resp = do(t, http.MethodDelete, ts.URL+"/api/sessions/"+c.Session.ID, c.Token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for msg.Type == api.MessageFrame {
		require.NoError(t, conn.ReadJSON(&msg))
	}
	assert.Equal(t, api.MessageSessionEnd, msg.Type)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestDebugHandler(t *testing.T) {
	ts := httptest.NewServer(api.DebugHandler())
	defer ts.Close()

	api.RecordFrame(game.FrameUpdate{Events: []game.FrameEvent{
		{Type: game.EventTypeFire, Payload: game.FireEvent{Classification: weapon.Rifle}},
	}})

	resp := do(t, http.MethodGet, ts.URL+"/metrics", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	assert.Contains(t, buf.String(), `gunplay_shots_total{classification="RIFLE"}`)
}
