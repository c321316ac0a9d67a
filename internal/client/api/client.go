// Package api is the uploader's client for the backend HTTP API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/pontos/internal/client/models"
	"github.com/dmitrijs2005/pontos/internal/common"
)

const (
	initUploadPath     = "/api/ponto-audios/init-upload"
	completeUploadPath = "/functions/v1/ponto-audio-complete-upload"
	submissionsPath    = "/api/submissions"
)

type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	http    *http.Client
}

// New returns a client for baseURL authenticating with the bearer token.
// timeout bounds every call; zero means no client-side deadline.
func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		timeout: timeout,
		http:    &http.Client{},
	}
}

// InitUpload asks the backend for a pending asset and a signed upload.
// Blank fields are rejected before any network call.
func (c *Client) InitUpload(ctx context.Context, req models.InitUploadRequest) (*models.InitUploadResponse, error) {
	req.InterpreterName = strings.TrimSpace(req.InterpreterName)
	switch {
	case strings.TrimSpace(req.PontoID) == "":
		return nil, fmt.Errorf("%w: ponto id is required", common.ErrValidation)
	case req.InterpreterName == "":
		return nil, fmt.Errorf("%w: interpreter name is required", common.ErrValidation)
	case strings.TrimSpace(req.MimeType) == "":
		return nil, fmt.Errorf("%w: mime type is required", common.ErrValidation)
	}

	var out models.InitUploadResponse
	if err := c.post(ctx, initUploadPath, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CompleteUpload(ctx context.Context, req models.CompleteUploadRequest) (*models.CompleteUploadResponse, error) {
	if req.UploadToken == "" {
		return nil, fmt.Errorf("%w: upload token is required", common.ErrValidation)
	}

	var out models.CompleteUploadResponse
	if err := c.post(ctx, completeUploadPath, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateSubmission(ctx context.Context, req models.CreateSubmissionRequest) (*models.SubmissionResponse, error) {
	var out models.SubmissionResponse
	if err := c.post(ctx, submissionsPath, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", common.ErrBackendUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode}
		var env errorEnvelope
		if json.Unmarshal(raw, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", common.ErrBackendUnavailable, err)
	}
	return nil
}
