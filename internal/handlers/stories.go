package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/passage-engine/internal/storage"
)

type StoriesResponse struct {
	Stories []storage.StoryInfo `json:"stories"`
}

// StoryResponse describes one story without revealing passage text.
type StoryResponse struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Start    string   `json:"start"`
	Passages []string `json:"passages"`
}

type StoryHandler struct {
	library *storage.Library
	logger  *slog.Logger
}

func NewStoryHandler(library *storage.Library, logger *slog.Logger) *StoryHandler {
	return &StoryHandler{
		library: library,
		logger:  logger,
	}
}

// ServeHTTP routes:
// GET /v1/stories       - list stories
// GET /v1/stories/{id}  - describe one story
func (h *StoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Method not allowed. Supported methods: GET")
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/stories"), "/")
	if id == "" {
		stories, err := h.library.ListStories(r.Context())
		if err != nil {
			writeErr(w, h.logger, err)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, StoriesResponse{Stories: stories})
		return
	}

	s, err := h.library.GetStory(r.Context(), id)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, StoryResponse{
		ID:       s.ID,
		Title:    s.Title,
		Start:    s.Start,
		Passages: s.PassageIDs(),
	})
}
