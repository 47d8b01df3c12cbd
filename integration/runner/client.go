package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/jwebster45206/passage-engine/pkg/engine"
)

// APIError is a non-success response from the passage API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API returned %d (%s): %s", e.Status, e.Code, e.Message)
}

// CreateSession starts a session on storyID (empty for the default story).
func CreateSession(ctx context.Context, client *http.Client, baseURL, storyID string) (*engine.Snapshot, error) {
	body, err := json.Marshal(map[string]string{"story": storyID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal create request: %w", err)
	}
	return call(ctx, client, http.MethodPost, baseURL+"/v1/sessions", body, http.StatusCreated)
}

// GetSession returns the current snapshot of a session.
func GetSession(ctx context.Context, client *http.Client, baseURL string, id uuid.UUID) (*engine.Snapshot, error) {
	return call(ctx, client, http.MethodGet, fmt.Sprintf("%s/v1/sessions/%s", baseURL, id), nil, http.StatusOK)
}

// PostChoice selects the visible choice at index.
func PostChoice(ctx context.Context, client *http.Client, baseURL string, id uuid.UUID, index int) (*engine.Snapshot, error) {
	body, err := json.Marshal(map[string]int{"index": index})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal choice request: %w", err)
	}
	return call(ctx, client, http.MethodPost, fmt.Sprintf("%s/v1/sessions/%s/choices", baseURL, id), body, http.StatusOK)
}

// PostAttack resolves one combat round.
func PostAttack(ctx context.Context, client *http.Client, baseURL string, id uuid.UUID) (*engine.Snapshot, error) {
	return call(ctx, client, http.MethodPost, fmt.Sprintf("%s/v1/sessions/%s/attack", baseURL, id), nil, http.StatusOK)
}

// DeleteSession ends a session.
func DeleteSession(ctx context.Context, client *http.Client, baseURL string, id uuid.UUID) error {
	_, err := call(ctx, client, http.MethodDelete, fmt.Sprintf("%s/v1/sessions/%s", baseURL, id), nil, http.StatusNoContent)
	return err
}

func call(ctx context.Context, client *http.Client, method, url string, body []byte, want int) (*engine.Snapshot, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute %s %s: %w", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != want {
		respBody, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{Status: resp.StatusCode, Message: string(respBody)}
		var errResp struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.Unmarshal(respBody, &errResp) == nil {
			apiErr.Code, apiErr.Message = errResp.Code, errResp.Error
		}
		return nil, apiErr
	}
	if want == http.StatusNoContent {
		return nil, nil
	}

	var snap engine.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}
