package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jwebster45206/passage-engine/internal/middleware"
	"github.com/jwebster45206/passage-engine/internal/storage"
	"github.com/jwebster45206/passage-engine/pkg/dice"
	"github.com/jwebster45206/passage-engine/pkg/engine"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

// testLibrary copies the bundled story into a temporary data dir.
func testLibrary(t *testing.T) *storage.Library {
	t.Helper()
	data, err := os.ReadFile("../../data/stories/haragoth.json")
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "stories"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stories", "haragoth.json"), data, 0o644))
	return storage.NewLibrary(dir, testLogger())
}

type testServer struct {
	mux     http.Handler
	store   storage.Storage
	library *storage.Library
}

func newTestServer(t *testing.T, store storage.Storage, roller dice.Roller) *testServer {
	t.Helper()
	lib := testLibrary(t)
	log := testLogger()

	sessions := NewSessionHandler(lib, store, roller, "haragoth", log)
	mux := http.NewServeMux()
	mux.Handle("/health", NewHealthHandler(store, lib, log))
	mux.Handle("/v1/stories", NewStoryHandler(lib, log))
	mux.Handle("/v1/stories/", NewStoryHandler(lib, log))
	mux.Handle("/v1/sessions", sessions)
	mux.Handle("/v1/sessions/", sessions)

	return &testServer{mux: middleware.LoggerWith(log, mux), store: store, library: lib}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	s.mux.ServeHTTP(rr, req)
	return rr
}

func decodeSnapshot(t *testing.T, rr *httptest.ResponseRecorder) engine.Snapshot {
	t.Helper()
	var snap engine.Snapshot
	if err := json.NewDecoder(rr.Body).Decode(&snap); err != nil {
		t.Fatalf("Failed to decode snapshot: %v (body %s)", err, rr.Body.String())
	}
	return snap
}

func expectError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rr.Code != status {
		t.Errorf("Expected status %d, got %d. Response body: %s", status, rr.Code, rr.Body.String())
	}
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	if resp.Code != code {
		t.Errorf("Expected code %q, got %q (%s)", code, resp.Code, resp.Error)
	}
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name           string
		pingErr        error
		emptyLibrary   bool
		expectedStatus int
		expectedHealth string
		expectedStore  string
	}{
		{"all healthy", nil, false, http.StatusOK, "healthy", "healthy"},
		{"storage down", errors.New("connection refused"), false, http.StatusServiceUnavailable, "degraded", "unhealthy"},
		{"no stories", nil, true, http.StatusServiceUnavailable, "degraded", "healthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStorage(time.Minute)
			store.SetPingError(tt.pingErr)
			lib := testLibrary(t)
			if tt.emptyLibrary {
				lib = storage.NewLibrary(t.TempDir(), testLogger())
			}

			rr := httptest.NewRecorder()
			NewHealthHandler(store, lib, testLogger()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, rr.Code)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.Status != tt.expectedHealth {
				t.Errorf("Expected status %q, got %q", tt.expectedHealth, resp.Status)
			}
			if resp.Components["storage"] != tt.expectedStore {
				t.Errorf("Expected storage %q, got %q", tt.expectedStore, resp.Components["storage"])
			}
			if resp.Service != "passage-engine" {
				t.Errorf("Expected service passage-engine, got %q", resp.Service)
			}
		})
	}
}

func TestStoryHandler(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStorage(time.Minute), dice.NewSequence())

	rr := srv.do(t, http.MethodGet, "/v1/stories", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	var list StoriesResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&list))
	if len(list.Stories) != 1 || list.Stories[0].ID != "haragoth" || list.Stories[0].Title != "Haragoth, le Corbeau-Cendre" {
		t.Errorf("Unexpected story list %+v", list.Stories)
	}

	rr = srv.do(t, http.MethodGet, "/v1/stories/haragoth", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	var one StoryResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&one))
	if one.Start != "prologue" || len(one.Passages) != 16 {
		t.Errorf("Unexpected story %+v", one)
	}

	expectError(t, srv.do(t, http.MethodGet, "/v1/stories/atlantis", ""), http.StatusNotFound, CodeStoryNotFound)
	expectError(t, srv.do(t, http.MethodPost, "/v1/stories", "{}"), http.StatusMethodNotAllowed, CodeMethodNotAllowed)
}

func TestSessionHandler_PlayThrough(t *testing.T) {
	// hero rolls 5 then 6, the bandit rolls 2 then 3
	srv := newTestServer(t, storage.NewMemoryStorage(time.Minute), dice.NewSequence(5, 2, 6, 3))

	rr := srv.do(t, http.MethodPost, "/v1/sessions", "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d. Response body: %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %s", rr.Header().Get("Content-Type"))
	}
	snap := decodeSnapshot(t, rr)
	base := "/v1/sessions/" + snap.ID.String()
	if rr.Header().Get("Location") != base {
		t.Errorf("Expected Location %s, got %s", base, rr.Header().Get("Location"))
	}
	if snap.Passage.ID != "prologue" || len(snap.VisibleChoices) != 2 {
		t.Fatalf("Unexpected opening snapshot %+v", snap)
	}

	// attacking outside combat is rejected and leaves the session alone
	expectError(t, srv.do(t, http.MethodPost, base+"/attack", ""), http.StatusConflict, CodeNoActiveCombat)
	expectError(t, srv.do(t, http.MethodPost, base+"/choices", `{"index": 5}`), http.StatusConflict, CodeInvalidChoice)

	rr = srv.do(t, http.MethodGet, base, "")
	snap = decodeSnapshot(t, rr)
	if snap.Passage.ID != "prologue" || snap.Turn != 0 {
		t.Errorf("Rejected intents changed the session: %s turn %d", snap.Passage.ID, snap.Turn)
	}

	for _, want := range []string{"lisiere", "bandit"} {
		rr = srv.do(t, http.MethodPost, base+"/choices", `{"index": 0}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d. Response body: %s", rr.Code, rr.Body.String())
		}
		snap = decodeSnapshot(t, rr)
		if snap.Passage.ID != want {
			t.Fatalf("Expected passage %s, got %s", want, snap.Passage.ID)
		}
	}
	if snap.Combat == nil || snap.Combat.EnemyHP != 8 || snap.Combat.Finished {
		t.Fatalf("Expected a fresh bandit encounter, got %+v", snap.Combat)
	}
	expectError(t, srv.do(t, http.MethodPost, base+"/choices", `{"index": 0}`), http.StatusConflict, CodeInvalidChoice)

	for range 2 {
		rr = srv.do(t, http.MethodPost, base+"/attack", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d. Response body: %s", rr.Code, rr.Body.String())
		}
		snap = decodeSnapshot(t, rr)
	}
	if snap.Combat.EnemyHP != 2 || snap.Combat.HeroHP != 20 || len(snap.Combat.Log) != 2 {
		t.Errorf("Expected bandit at 2 hp and hero at 20, got %+v", snap.Combat)
	}
	if snap.Turn != 4 {
		t.Errorf("Expected turn 4, got %d", snap.Turn)
	}

	rr = srv.do(t, http.MethodDelete, base, "")
	if rr.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", rr.Code)
	}
	expectError(t, srv.do(t, http.MethodGet, base, ""), http.StatusNotFound, CodeSessionNotFound)
	expectError(t, srv.do(t, http.MethodDelete, base, ""), http.StatusNotFound, CodeSessionNotFound)
}

func TestSessionHandler_BadRequests(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStorage(time.Minute), dice.NewSequence())
	rr := srv.do(t, http.MethodPost, "/v1/sessions", `{"story": "haragoth"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", rr.Code)
	}
	base := "/v1/sessions/" + decodeSnapshot(t, rr).ID.String()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"unknown story", http.MethodPost, "/v1/sessions", `{"story": "atlantis"}`, http.StatusNotFound, CodeStoryNotFound},
		{"malformed create body", http.MethodPost, "/v1/sessions", `{"story":`, http.StatusBadRequest, CodeBadRequest},
		{"list sessions", http.MethodGet, "/v1/sessions", "", http.StatusMethodNotAllowed, CodeMethodNotAllowed},
		{"invalid id", http.MethodGet, "/v1/sessions/not-a-uuid", "", http.StatusBadRequest, CodeInvalidSessionID},
		{"unknown session", http.MethodGet, "/v1/sessions/4b0e0b6c-7a43-4c52-9c6d-6f7c1d1f9a11", "", http.StatusNotFound, CodeSessionNotFound},
		{"missing index", http.MethodPost, base + "/choices", `{}`, http.StatusBadRequest, CodeBadRequest},
		{"malformed choice body", http.MethodPost, base + "/choices", `index=1`, http.StatusBadRequest, CodeBadRequest},
		{"negative index", http.MethodPost, base + "/choices", `{"index": -1}`, http.StatusConflict, CodeInvalidChoice},
		{"get on attack", http.MethodGet, base + "/attack", "", http.StatusMethodNotAllowed, CodeMethodNotAllowed},
		{"unknown action", http.MethodPost, base + "/flee", "", http.StatusNotFound, CodeNotFound},
		{"too deep", http.MethodPost, base + "/attack/again", "", http.StatusNotFound, CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectError(t, srv.do(t, tt.method, tt.path, tt.body), tt.status, tt.code)
		})
	}
}

func TestSessionHandler_StorageFailure(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	store, err := storage.NewRedisStorage("redis://"+mr.Addr(), time.Minute, testLogger())
	require.NoError(t, err)
	defer store.Close()

	srv := newTestServer(t, store, dice.NewSequence())
	rr := srv.do(t, http.MethodPost, "/v1/sessions", "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d. Response body: %s", rr.Code, rr.Body.String())
	}
	snap := decodeSnapshot(t, rr)
	if !mr.Exists("session:" + snap.ID.String()) {
		t.Errorf("Expected session stored in redis")
	}

	mr.Close()
	rr = srv.do(t, http.MethodPost, "/v1/sessions/"+snap.ID.String()+"/choices", `{"index": 0}`)
	expectError(t, rr, http.StatusInternalServerError, CodeInternal)
}

func TestSessionHandler_ConcurrentIntentsAreSerialized(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStorage(time.Minute), dice.NewRandom(3))
	rr := srv.do(t, http.MethodPost, "/v1/sessions", "")
	require.Equal(t, http.StatusCreated, rr.Code)
	snap := decodeSnapshot(t, rr)
	base := "/v1/sessions/" + snap.ID.String()

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := range 40 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var rr *httptest.ResponseRecorder
			if i%3 == 0 {
				rr = srv.do(t, http.MethodPost, base+"/attack", "")
			} else {
				rr = srv.do(t, http.MethodPost, base+"/choices", `{"index": 0}`)
			}
			if rr.Code == http.StatusOK {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	gs, err := srv.store.LoadGameState(context.Background(), snap.ID)
	require.NoError(t, err)
	if gs.Turn != ok {
		t.Errorf("Expected turn %d to match successful intents, got %d", ok, gs.Turn)
	}
	if hp := gs.Vars.Num("hp"); hp < 0 || hp > 20 {
		t.Errorf("hp %d out of bounds", hp)
	}
}

func TestSessionLocks(t *testing.T) {
	locks := newSessionLocks()
	id := uuid.New()

	unlock := locks.Lock(id)
	acquired := make(chan struct{})
	go func() {
		u := locks.Lock(id)
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while the first is held")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()
	<-acquired

	// wait for the goroutine's unlock to drop the entry
	deadline := time.Now().Add(time.Second)
	for locks.len() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if n := locks.len(); n != 0 {
		t.Errorf("Expected lock table to be empty, got %d entries", n)
	}
}
