package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/verte-zerg/typerace/internal/model"
)

// Remote submits results to a room server's /api/scores endpoint.
type Remote struct {
	base   string
	client *http.Client
}

// NewRemote creates a submitter for the server rooted at base.
func NewRemote(base string, client *http.Client) *Remote {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Remote{base: strings.TrimRight(base, "/"), client: client}
}

// SubmitResult posts r as JSON and expects 201 Created.
func (r *Remote) SubmitResult(ctx context.Context, res model.Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.base+"/api/scores", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to submit score: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		if cerr := resp.Body.Close(); cerr != nil {
			// Best-effort body close.
			_ = cerr
		}
	}()
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("failed to submit score: status %s", resp.Status)
	}
	return nil
}

// Submitter persists completed runs.
type Submitter interface {
	SubmitResult(ctx context.Context, r model.Result) error
}

// Multi submits to every submitter and joins their errors.
type Multi []Submitter

// SubmitResult implements Submitter.
func (m Multi) SubmitResult(ctx context.Context, res model.Result) error {
	var errs []error
	for _, s := range m {
		if err := s.SubmitResult(ctx, res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
