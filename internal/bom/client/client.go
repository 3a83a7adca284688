// Package client is a typed HTTP client for the Binner BOM API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/replaysMike/Binner-sub003/internal/bom/dto"
)

// Client BOM API客户端
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

// New creates a client for the API at baseURL, e.g. "http://localhost:8080".
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("binner api error %d (code %d): %s", e.Status, e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// IsConflict reports whether err is a 409 from the server.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func apiError(status int, body []byte) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil || env.Message == "" {
		return &APIError{Status: status, Message: strings.TrimSpace(string(body))}
	}
	return &APIError{Status: status, Code: env.Code, Message: env.Message}
}

// doRequest sends a JSON request and decodes the envelope's data into result.
func (c *Client) doRequest(ctx context.Context, method, path string, body, result interface{}) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp.StatusCode, respBody)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if result != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}

// GetBom GET /api/bom?name=
func (c *Client) GetBom(ctx context.Context, name string) (*dto.BomResponse, error) {
	var out dto.BomResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/bom?name="+url.QueryEscape(name), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListProjects GET /api/bom/list
func (c *Client) ListProjects(ctx context.Context) ([]dto.ProjectView, error) {
	var out []dto.ProjectView
	if err := c.doRequest(ctx, http.MethodGet, "/api/bom/list", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateProject POST /api/bom/project
func (c *Client) CreateProject(ctx context.Context, req dto.CreateProjectRequest) (*dto.ProjectView, error) {
	var out dto.ProjectView
	if err := c.doRequest(ctx, http.MethodPost, "/api/bom/project", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProject PUT /api/bom/project
func (c *Client) UpdateProject(ctx context.Context, req dto.UpdateProjectRequest) (*dto.ProjectView, error) {
	var out dto.ProjectView
	if err := c.doRequest(ctx, http.MethodPut, "/api/bom/project", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteProject DELETE /api/bom/project
func (c *Client) DeleteProject(ctx context.Context, projectID int64) error {
	return c.doRequest(ctx, http.MethodDelete, "/api/bom/project", dto.DeleteProjectRequest{ProjectID: projectID}, nil)
}

// AddPart POST /api/bom/part
func (c *Client) AddPart(ctx context.Context, req dto.AddBomPartRequest) (*dto.LineItemView, error) {
	var out dto.LineItemView
	if err := c.doRequest(ctx, http.MethodPost, "/api/bom/part", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePart PUT /api/bom/part
func (c *Client) UpdatePart(ctx context.Context, req dto.UpdateBomPartRequest) (*dto.LineItemView, error) {
	var out dto.LineItemView
	if err := c.doRequest(ctx, http.MethodPut, "/api/bom/part", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteParts DELETE /api/bom/part
func (c *Client) DeleteParts(ctx context.Context, projectID int64, ids []int64) (int64, error) {
	var out dto.DeleteResult
	req := dto.DeleteBomPartRequest{ProjectID: projectID, IDs: ids}
	if err := c.doRequest(ctx, http.MethodDelete, "/api/bom/part", req, &out); err != nil {
		return 0, err
	}
	return out.Deleted, nil
}

// MoveParts PUT /api/bom/move
func (c *Client) MoveParts(ctx context.Context, projectID int64, ids []int64, pcbID int64) (int64, error) {
	var out dto.MoveResult
	req := dto.MoveBomPartRequest{ProjectID: projectID, IDs: ids, PcbID: pcbID}
	if err := c.doRequest(ctx, http.MethodPut, "/api/bom/move", req, &out); err != nil {
		return 0, err
	}
	return out.Moved, nil
}

// AddPcb POST /api/bom/pcb
func (c *Client) AddPcb(ctx context.Context, req dto.AddPcbRequest) (*dto.PcbView, error) {
	var out dto.PcbView
	if err := c.doRequest(ctx, http.MethodPost, "/api/bom/pcb", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePcb PUT /api/bom/pcb
func (c *Client) UpdatePcb(ctx context.Context, req dto.UpdatePcbRequest) (*dto.PcbView, error) {
	var out dto.PcbView
	if err := c.doRequest(ctx, http.MethodPut, "/api/bom/pcb", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeletePcb DELETE /api/bom/pcb
func (c *Client) DeletePcb(ctx context.Context, projectID, pcbID int64) error {
	return c.doRequest(ctx, http.MethodDelete, "/api/bom/pcb", dto.DeletePcbRequest{ProjectID: projectID, PcbID: pcbID}, nil)
}

// Produce POST /api/bom/produce
func (c *Client) Produce(ctx context.Context, req dto.ProduceBomRequest) (*dto.ProduceBomResponse, error) {
	var out dto.ProduceBomResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/bom/produce", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History GET /api/bom/history?projectId=
func (c *Client) History(ctx context.Context, projectID int64) ([]dto.ProduceHistoryView, error) {
	var out []dto.ProduceHistoryView
	path := "/api/bom/history?projectId=" + strconv.FormatInt(projectID, 10)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Download is an exported BOM file.
type Download struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Download POST /api/bom/download
func (c *Client) Download(ctx context.Context, projectID int64, format string) (*Download, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/bom/download", dto.DownloadBomRequest{ProjectID: projectID, Format: format})
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST /api/bom/download: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apiError(resp.StatusCode, data)
	}

	out := &Download{ContentType: resp.Header.Get("Content-Type"), Data: data}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		out.Filename = params["filename"]
	}
	return out, nil
}

// SearchParts GET /api/part/search?keywords=
func (c *Client) SearchParts(ctx context.Context, keywords string, limit int) ([]dto.PartView, error) {
	q := url.Values{}
	q.Set("keywords", keywords)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []dto.PartView
	if err := c.doRequest(ctx, http.MethodGet, "/api/part/search?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateInventoryPart POST /api/part
func (c *Client) CreateInventoryPart(ctx context.Context, req dto.CreatePartRequest) (*dto.PartView, error) {
	var out dto.PartView
	if err := c.doRequest(ctx, http.MethodPost, "/api/part", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetInventoryPart GET /api/part/:id
func (c *Client) GetInventoryPart(ctx context.Context, id int64) (*dto.PartView, error) {
	var out dto.PartView
	if err := c.doRequest(ctx, http.MethodGet, "/api/part/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateInventoryPart PUT /api/part/:id
func (c *Client) UpdateInventoryPart(ctx context.Context, id int64, req dto.UpdatePartRequest) (*dto.PartView, error) {
	var out dto.PartView
	if err := c.doRequest(ctx, http.MethodPut, "/api/part/"+strconv.FormatInt(id, 10), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
