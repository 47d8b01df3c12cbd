package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/jwebster45206/passage-engine/internal/handlers"
	"github.com/jwebster45206/passage-engine/pkg/engine"
	"github.com/jwebster45206/passage-engine/pkg/story"
)

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// remoteSession plays a session hosted by the passage API.
type remoteSession struct {
	client  *http.Client
	baseURL string
	id      uuid.UUID
}

func createRemoteSession(client *http.Client, baseURL, storyID string) (*remoteSession, error) {
	jsonData, err := json.Marshal(handlers.CreateSessionRequest{Story: storyID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var snap engine.Snapshot
	if err := doJSON(client, http.MethodPost, baseURL+"/v1/sessions", jsonData, http.StatusCreated, &snap); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &remoteSession{client: client, baseURL: baseURL, id: snap.ID}, nil
}

func (r *remoteSession) sessionURL(suffix string) string {
	return fmt.Sprintf("%s/v1/sessions/%s%s", r.baseURL, r.id, suffix)
}

func (r *remoteSession) Snapshot() (engine.Snapshot, error) {
	var snap engine.Snapshot
	err := doJSON(r.client, http.MethodGet, r.sessionURL(""), nil, http.StatusOK, &snap)
	return snap, err
}

func (r *remoteSession) SelectChoice(index int) (engine.Snapshot, error) {
	jsonData, err := json.Marshal(handlers.ChoiceRequest{Index: &index})
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("failed to marshal request: %w", err)
	}
	var snap engine.Snapshot
	err = doJSON(r.client, http.MethodPost, r.sessionURL("/choices"), jsonData, http.StatusOK, &snap)
	return snap, err
}

func (r *remoteSession) Attack() (engine.Snapshot, error) {
	var snap engine.Snapshot
	err := doJSON(r.client, http.MethodPost, r.sessionURL("/attack"), nil, http.StatusOK, &snap)
	return snap, err
}

// doJSON sends body (if any) and decodes a response with the wanted status into out.
// Error responses carrying a known code come back as the matching engine error.
func doJSON(client *http.Client, method, url string, body []byte, want int, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != want {
		var errorResp handlers.ErrorResponse
		if err := json.Unmarshal(respBody, &errorResp); err != nil {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(respBody))
		}
		return apiError(errorResp)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func apiError(resp handlers.ErrorResponse) error {
	var sentinel error
	switch resp.Code {
	case handlers.CodeInvalidChoice:
		sentinel = engine.ErrInvalidChoice
	case handlers.CodeNoActiveCombat:
		sentinel = engine.ErrNoActiveCombat
	case handlers.CodeUnknownPassage:
		sentinel = story.ErrUnknownPassage
	default:
		return errors.New(resp.Error)
	}
	return fmt.Errorf("%w (%s)", sentinel, resp.Error)
}
