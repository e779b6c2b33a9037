package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// SubmitRequest is the hand-off payload for the external pipeline.
type SubmitRequest struct {
	JobID    string
	FileName string
	Content  []byte
}

// SubmitResponse carries the pipeline's identifier for the accepted file.
type SubmitResponse struct {
	ExternalID string `json:"id"`
	Status     string `json:"status"`
}

// PipelineClient submits audio files to the external processing system.
type PipelineClient interface {
	SubmitFile(ctx context.Context, req SubmitRequest) (*SubmitResponse, error)
}

// HTTPPipelineClient is the production PipelineClient over plain HTTP
// multipart uploads.
type HTTPPipelineClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

type HTTPPipelineOption func(*HTTPPipelineClient)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(client *http.Client) HTTPPipelineOption {
	return func(c *HTTPPipelineClient) {
		if client != nil {
			c.client = client
		}
	}
}

// WithAPIKey sets the bearer credential sent to the pipeline.
func WithAPIKey(key string) HTTPPipelineOption {
	return func(c *HTTPPipelineClient) {
		c.apiKey = key
	}
}

func NewHTTPPipelineClient(baseURL string, opts ...HTTPPipelineOption) *HTTPPipelineClient {
	c := &HTTPPipelineClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *HTTPPipelineClient) SubmitFile(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("job_id", req.JobID); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build upload form")
	}

	part, err := writer.CreateFormFile("file", req.FileName)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build upload form")
	}

	if _, err := part.Write(req.Content); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to write upload body")
	}

	if err := writer.Close(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to finalize upload body")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/audio", body)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build pipeline request")
	}

	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "pipeline request failed").
			WithTextCode(TextCodePipelineFailed)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, ErrPipelineFailed.Clone().
			WithMetadata(map[string]any{
				"status_code": resp.StatusCode,
				"response":    string(payload),
			})
	}

	out := &SubmitResponse{}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation,
			fmt.Sprintf("failed to decode pipeline response (%d)", resp.StatusCode))
	}

	return out, nil
}
