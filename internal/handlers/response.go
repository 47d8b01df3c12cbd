package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/passage-engine/internal/storage"
	"github.com/jwebster45206/passage-engine/pkg/engine"
	"github.com/jwebster45206/passage-engine/pkg/story"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest       = "bad_request"
	CodeInvalidSessionID = "invalid_session_id"
	CodeMethodNotAllowed = "method_not_allowed"
	CodeNotFound         = "not_found"
	CodeSessionNotFound  = "session_not_found"
	CodeStoryNotFound    = "story_not_found"
	CodeInvalidChoice    = "invalid_choice"
	CodeNoActiveCombat   = "no_active_combat"
	CodeUnknownPassage   = "unknown_passage"
	CodeInternal         = "internal"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, code, msg string) {
	writeJSON(w, logger, status, ErrorResponse{Error: msg, Code: code})
}

// writeErr maps a domain error to its HTTP status. Client errors are logged as
// warnings, everything else as errors.
func writeErr(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, code := http.StatusInternalServerError, CodeInternal
	switch {
	case errors.Is(err, engine.ErrInvalidChoice):
		status, code = http.StatusConflict, CodeInvalidChoice
	case errors.Is(err, engine.ErrNoActiveCombat):
		status, code = http.StatusConflict, CodeNoActiveCombat
	case errors.Is(err, storage.ErrSessionNotFound):
		status, code = http.StatusNotFound, CodeSessionNotFound
	case errors.Is(err, storage.ErrStoryNotFound):
		status, code = http.StatusNotFound, CodeStoryNotFound
	case errors.Is(err, story.ErrUnknownPassage):
		code = CodeUnknownPassage
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "error", err, "code", code)
		writeError(w, logger, status, code, "internal error")
		return
	}
	logger.Warn("Request rejected", "error", err, "code", code)
	writeError(w, logger, status, code, err.Error())
}
