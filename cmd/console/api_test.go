package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jwebster45206/passage-engine/internal/handlers"
	"github.com/jwebster45206/passage-engine/internal/logger"
	"github.com/jwebster45206/passage-engine/internal/storage"
	"github.com/jwebster45206/passage-engine/pkg/dice"
	"github.com/jwebster45206/passage-engine/pkg/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAPIServer(t *testing.T, rolls ...int) *httptest.Server {
	t.Helper()
	log := logger.Discard()
	lib := storage.NewLibrary("../../data", log)
	store := storage.NewMemoryStorage(time.Hour)

	sessions := handlers.NewSessionHandler(lib, store, dice.NewSequence(rolls...), "haragoth", log)
	mux := http.NewServeMux()
	mux.Handle("/health", handlers.NewHealthHandler(store, lib, log))
	mux.Handle("/v1/sessions", sessions)
	mux.Handle("/v1/sessions/", sessions)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRemoteSession(t *testing.T) {
	srv := newAPIServer(t, 5, 2)
	client := srv.Client()

	require.True(t, testConnection(client, srv.URL))

	r, err := createRemoteSession(client, srv.URL, "haragoth")
	require.NoError(t, err)

	snap, err := r.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "prologue", snap.Passage.ID)
	assert.Equal(t, r.id, snap.ID)

	_, err = r.SelectChoice(7)
	assert.ErrorIs(t, err, engine.ErrInvalidChoice)
	_, err = r.Attack()
	assert.ErrorIs(t, err, engine.ErrNoActiveCombat)

	_, err = r.SelectChoice(0)
	require.NoError(t, err)
	snap, err = r.SelectChoice(0)
	require.NoError(t, err)
	require.NotNil(t, snap.Combat)
	assert.Equal(t, "Bandit", snap.Combat.EnemyName)

	snap, err = r.Attack()
	require.NoError(t, err)
	assert.Equal(t, 5, snap.Combat.EnemyHP)
	assert.Equal(t, 20, snap.Combat.HeroHP)
	assert.Len(t, snap.Combat.Log, 1)
}

func TestRemoteSession_Errors(t *testing.T) {
	srv := newAPIServer(t)

	_, err := createRemoteSession(srv.Client(), srv.URL, "missing")
	assert.ErrorContains(t, err, "failed to create session")

	plain := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer plain.Close()

	r := &remoteSession{client: plain.Client(), baseURL: plain.URL}
	_, err = r.Snapshot()
	assert.ErrorContains(t, err, "API returned status 502")
	assert.False(t, testConnection(plain.Client(), plain.URL))

	plain.Close()
	_, err = r.Attack()
	assert.ErrorContains(t, err, "failed to send request")
}

func TestAPIError(t *testing.T) {
	err := apiError(handlers.ErrorResponse{Error: "session not found", Code: handlers.CodeSessionNotFound})
	assert.EqualError(t, err, "session not found")

	err = apiError(handlers.ErrorResponse{Error: "index 4", Code: handlers.CodeInvalidChoice})
	assert.ErrorIs(t, err, engine.ErrInvalidChoice)
}
