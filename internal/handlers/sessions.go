package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jwebster45206/passage-engine/internal/logger"
	"github.com/jwebster45206/passage-engine/internal/middleware"
	"github.com/jwebster45206/passage-engine/internal/storage"
	"github.com/jwebster45206/passage-engine/pkg/dice"
	"github.com/jwebster45206/passage-engine/pkg/engine"
	"github.com/jwebster45206/passage-engine/pkg/state"
)

// CreateSessionRequest defines the request body for starting a session
type CreateSessionRequest struct {
	Story string `json:"story,omitempty"` // Optional: story id, defaults to the configured story
}

// ChoiceRequest selects a visible choice by its snapshot index
type ChoiceRequest struct {
	Index *int `json:"index"`
}

type SessionHandler struct {
	library      *storage.Library
	storage      storage.Storage
	roller       dice.Roller
	defaultStory string
	logger       *slog.Logger
	locks        *sessionLocks

	mu      sync.Mutex
	engines map[string]*engine.Engine
}

func NewSessionHandler(library *storage.Library, store storage.Storage, roller dice.Roller, defaultStory string, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		library:      library,
		storage:      store,
		roller:       roller,
		defaultStory: defaultStory,
		logger:       logger,
		locks:        newSessionLocks(),
		engines:      make(map[string]*engine.Engine),
	}
}

// ServeHTTP handles HTTP requests for play sessions
// Routes:
// POST   /v1/sessions              - Start a session
// GET    /v1/sessions/{id}         - Current snapshot
// POST   /v1/sessions/{id}/choices - Select a visible choice
// POST   /v1/sessions/{id}/attack  - Resolve one combat round
// DELETE /v1/sessions/{id}         - End a session
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.WithRequestID(h.logger, middleware.RequestID(r.Context()))

	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/sessions"), "/"), "/")
	if len(parts) == 1 && parts[0] == "" {
		if r.Method != http.MethodPost {
			writeError(w, log, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Method not allowed. Supported methods: POST")
			return
		}
		h.handleCreate(w, r, log)
		return
	}
	if len(parts) > 2 {
		writeError(w, log, http.StatusNotFound, CodeNotFound, "Unknown session route")
		return
	}

	id, err := uuid.Parse(parts[0])
	if err != nil {
		log.Warn("Invalid session ID", "id", parts[0], "error", err)
		writeError(w, log, http.StatusBadRequest, CodeInvalidSessionID, "Invalid session ID format")
		return
	}
	log = logger.WithSessionID(log, id.String())

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.handleRead(w, r, log, id)
	case action == "" && r.Method == http.MethodDelete:
		h.handleDelete(w, r, log, id)
	case action == "choices" && r.Method == http.MethodPost:
		h.handleChoice(w, r, log, id)
	case action == "attack" && r.Method == http.MethodPost:
		h.handleAttack(w, r, log, id)
	case action == "" || action == "choices" || action == "attack":
		writeError(w, log, http.StatusMethodNotAllowed, CodeMethodNotAllowed, fmt.Sprintf("Method %s not allowed", r.Method))
	default:
		writeError(w, log, http.StatusNotFound, CodeNotFound, "Unknown session route")
	}
}

// engineFor returns the cached engine for a story, building it on first use.
func (h *SessionHandler) engineFor(ctx context.Context, storyID string) (*engine.Engine, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if e, ok := h.engines[storyID]; ok {
		return e, nil
	}
	s, err := h.library.GetStory(ctx, storyID)
	if err != nil {
		return nil, err
	}
	e, err := engine.New(s, engine.WithRoller(h.roller), engine.WithLogger(h.logger))
	if err != nil {
		return nil, err
	}
	h.engines[storyID] = e
	return e, nil
}

func (h *SessionHandler) handleCreate(w http.ResponseWriter, r *http.Request, log *slog.Logger) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		log.Warn("Invalid JSON in request body", "error", err)
		writeError(w, log, http.StatusBadRequest, CodeBadRequest, "Invalid JSON in request body")
		return
	}
	storyID := strings.TrimSpace(req.Story)
	if storyID == "" {
		storyID = h.defaultStory
	}

	e, err := h.engineFor(r.Context(), storyID)
	if err != nil {
		writeErr(w, log, err)
		return
	}
	gs, err := e.NewGame()
	if err != nil {
		writeErr(w, log, err)
		return
	}
	if err := h.storage.SaveGameState(r.Context(), gs); err != nil {
		writeErr(w, log, err)
		return
	}

	snap, err := e.Snapshot(gs)
	if err != nil {
		writeErr(w, log, err)
		return
	}
	log.Info("Session created", "session_id", gs.ID.String(), "story", storyID)
	w.Header().Set("Location", "/v1/sessions/"+gs.ID.String())
	writeJSON(w, log, http.StatusCreated, snap)
}

func (h *SessionHandler) handleRead(w http.ResponseWriter, r *http.Request, log *slog.Logger, id uuid.UUID) {
	gs, err := h.storage.LoadGameState(r.Context(), id)
	if err != nil {
		writeErr(w, log, err)
		return
	}
	e, err := h.engineFor(r.Context(), gs.StoryID)
	if err != nil {
		writeErr(w, log, err)
		return
	}
	snap, err := e.Snapshot(gs)
	if err != nil {
		writeErr(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, snap)
}

func (h *SessionHandler) handleDelete(w http.ResponseWriter, r *http.Request, log *slog.Logger, id uuid.UUID) {
	unlock := h.locks.Lock(id)
	defer unlock()

	if err := h.storage.DeleteGameState(r.Context(), id); err != nil {
		writeErr(w, log, err)
		return
	}
	log.Info("Session deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) handleChoice(w http.ResponseWriter, r *http.Request, log *slog.Logger, id uuid.UUID) {
	var req ChoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("Invalid JSON in request body", "error", err)
		writeError(w, log, http.StatusBadRequest, CodeBadRequest, "Invalid JSON in request body")
		return
	}
	if req.Index == nil {
		writeError(w, log, http.StatusBadRequest, CodeBadRequest, "index field is required")
		return
	}
	index := *req.Index

	h.apply(w, r, log, id, func(e *engine.Engine, gs *state.GameState) (*state.GameState, error) {
		return e.ApplyChoice(gs, index)
	})
}

func (h *SessionHandler) handleAttack(w http.ResponseWriter, r *http.Request, log *slog.Logger, id uuid.UUID) {
	h.apply(w, r, log, id, func(e *engine.Engine, gs *state.GameState) (*state.GameState, error) {
		return e.Attack(gs)
	})
}

// apply runs one intent under the session lock: load, apply, save, snapshot. A
// rejected intent is never saved.
func (h *SessionHandler) apply(w http.ResponseWriter, r *http.Request, log *slog.Logger, id uuid.UUID,
	intent func(*engine.Engine, *state.GameState) (*state.GameState, error)) {
	unlock := h.locks.Lock(id)
	defer unlock()

	ctx := r.Context()
	gs, err := h.storage.LoadGameState(ctx, id)
	if err != nil {
		writeErr(w, log, err)
		return
	}
	e, err := h.engineFor(ctx, gs.StoryID)
	if err != nil {
		writeErr(w, log, err)
		return
	}

	next, err := intent(e, gs)
	if err != nil {
		writeErr(w, log, err)
		return
	}
	if err := h.storage.SaveGameState(ctx, next); err != nil {
		writeErr(w, log, err)
		return
	}

	snap, err := e.Snapshot(next)
	if err != nil {
		writeErr(w, log, err)
		return
	}
	log.Debug("Intent applied", "passage", next.CurrentPassage, "turn", next.Turn)
	writeJSON(w, log, http.StatusOK, snap)
}
