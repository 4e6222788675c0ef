package merge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/newtondotcom/roomplan/internal/scene/models"
)

// ============================================================
// Remote structure builder
// ============================================================

// Remote delegates merging to an external structure builder that accepts
// {"captures": [...]} and answers with the merged scene.
type Remote struct {
	url    string
	client *http.Client
}

func NewRemote(url string, timeout time.Duration) *Remote {
	return &Remote{
		url:    strings.TrimRight(url, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

type remoteRequest struct {
	Captures []*models.Scene `json:"captures"`
}

type remoteError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (r *Remote) Merge(ctx context.Context, captures []*models.Scene) (*models.Scene, error) {
	if r.url == "" {
		return nil, fmt.Errorf("structure builder url is empty")
	}
	if len(captures) == 0 {
		return nil, &Error{Message: "no rooms to merge"}
	}

	body, err := json.Marshal(remoteRequest{Captures: captures})
	if err != nil {
		return nil, fmt.Errorf("encode captures: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url+"/merge", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &Error{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Message: err.Error(), Err: err}
	}

	if resp.StatusCode >= 300 {
		return nil, &Error{Message: upstreamMessage(resp.StatusCode, data)}
	}

	scene, err := models.Parse(data)
	if err != nil {
		return nil, &Error{Message: err.Error(), Err: err}
	}
	return scene, nil
}

// upstreamMessage prefers the builder's own message over the status line.
func upstreamMessage(status int, data []byte) string {
	var e remoteError
	if json.Unmarshal(data, &e) == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	if text := strings.TrimSpace(string(data)); text != "" && !strings.HasPrefix(text, "{") {
		return text
	}
	return fmt.Sprintf("structure builder status %d", status)
}
