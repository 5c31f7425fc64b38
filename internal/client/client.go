// Package client talks to a running stagehand server over HTTP and
// websockets.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stagehand/internal/api"
)

// APIError is a non-2xx reply decoded from api.ErrorResponse.
type APIError struct {
	Status int
	Body   api.ErrorResponse
}

func (e *APIError) Error() string {
	if e.Body.Error != "" {
		return e.Body.Error
	}
	return fmt.Sprintf("server returned %d", e.Status)
}

// ErrorKind reports the server-side classification.
func (e *APIError) ErrorKind() string { return e.Body.Kind }

// Client issues API calls as one user.
type Client struct {
	base   *url.URL
	http   *http.Client
	userID string
}

// New builds a client for baseURL ("host:port" or a full http URL).
func New(baseURL, userID string) (*Client, error) {
	raw := strings.TrimSpace(baseURL)
	if raw == "" {
		return nil, errors.New("server address is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse server address: %w", err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	return &Client{
		base:   u,
		http:   &http.Client{Timeout: 60 * time.Second},
		userID: strings.TrimSpace(userID),
	}, nil
}

// BaseURL returns the normalized server URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path += path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends body as JSON and decodes a 2xx reply into out. A JSON null reply
// leaves out untouched and reports found=false.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) (bool, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return false, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userID != "" {
		req.Header.Set("X-User-ID", c.userID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(data, &apiErr.Body)
		return false, apiErr
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	return true, nil
}

// Status fetches server status.
func (c *Client) Status(ctx context.Context) (*api.StatusResponse, error) {
	var out api.StatusResponse
	if _, err := c.do(ctx, http.MethodGet, "/api/status", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FrameAt returns the frame starting at start, or nil.
func (c *Client) FrameAt(ctx context.Context, start int64) (*api.PositionFrame, error) {
	var out api.PositionFrame
	q := url.Values{"start": []string{strconv.FormatInt(start, 10)}}
	found, err := c.do(ctx, http.MethodGet, "/api/position-frame", q, nil, &out)
	if err != nil || !found {
		return nil, err
	}
	return &out, nil
}

// FrameIDs lists frame ids in timeline order.
func (c *Client) FrameIDs(ctx context.Context) ([]int64, error) {
	var out api.FrameIDsResponse
	if _, err := c.do(ctx, http.MethodGet, "/api/position-frame-ids", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.IDs, nil
}

// Frames lists frames in timeline order.
func (c *Client) Frames(ctx context.Context) ([]api.PositionFrame, error) {
	var out api.FrameListResponse
	if _, err := c.do(ctx, http.MethodGet, "/api/position-frames", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Frames, nil
}

// Frame returns one frame snapshot.
func (c *Client) Frame(ctx context.Context, id int64) (*api.FrameSnapshot, error) {
	var out api.FrameSnapshot
	if _, err := c.do(ctx, http.MethodGet, "/api/position-frames/"+strconv.FormatInt(id, 10), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PositionMap returns every frame snapshot in timeline order.
func (c *Client) PositionMap(ctx context.Context) ([]api.FrameSnapshot, error) {
	var out api.PositionMapResponse
	if _, err := c.do(ctx, http.MethodGet, "/api/position-map", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Frames, nil
}

// AddFrame creates a frame at start.
func (c *Client) AddFrame(ctx context.Context, start int64) (*api.PositionFrame, error) {
	var out api.PositionFrame
	if _, err := c.do(ctx, http.MethodPost, "/api/position-frames", nil, api.AddFrameRequest{Start: &start}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EditFrame moves or touches a frame. It returns nil when the frame is gone.
func (c *Client) EditFrame(ctx context.Context, id int64, start *int64) (*api.PositionFrame, error) {
	var out api.PositionFrame
	found, err := c.do(ctx, http.MethodPatch, "/api/position-frames", nil, api.EditFrameRequest{FrameID: id, Start: start}, &out)
	if err != nil || !found {
		return nil, err
	}
	return &out, nil
}

// DeleteFrame removes a frame. It returns nil when the frame was absent.
func (c *Client) DeleteFrame(ctx context.Context, id int64) (*api.PositionFrame, error) {
	var out api.PositionFrame
	found, err := c.do(ctx, http.MethodDelete, "/api/position-frames", nil, api.DeleteFrameRequest{FrameID: id}, &out)
	if err != nil || !found {
		return nil, err
	}
	return &out, nil
}

// SetPositions writes performer coordinates for a frame.
func (c *Client) SetPositions(ctx context.Context, id int64, positions []api.PositionInput) (*api.FrameSnapshot, error) {
	var out api.FrameSnapshot
	path := "/api/position-frames/" + strconv.FormatInt(id, 10) + "/positions"
	found, err := c.do(ctx, http.MethodPut, path, nil, api.EditPositionsRequest{Positions: positions}, &out)
	if err != nil || !found {
		return nil, err
	}
	return &out, nil
}

// Performers lists the roster.
func (c *Client) Performers(ctx context.Context) ([]api.Performer, error) {
	var out api.PerformerListResponse
	if _, err := c.do(ctx, http.MethodGet, "/api/performers", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Performers, nil
}

// AddPerformer creates a performer.
func (c *Client) AddPerformer(ctx context.Context, name string) (*api.Performer, error) {
	var out api.Performer
	if _, err := c.do(ctx, http.MethodPost, "/api/performers", nil, api.PerformerRequest{Name: name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeletePerformer removes a performer.
func (c *Client) DeletePerformer(ctx context.Context, name string) (*api.Performer, error) {
	var out api.Performer
	if _, err := c.do(ctx, http.MethodDelete, "/api/performers", nil, api.PerformerRequest{Name: name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddPart creates a part.
func (c *Client) AddPart(ctx context.Context, req api.AddPartRequest) (*api.Part, error) {
	var out api.Part
	if _, err := c.do(ctx, http.MethodPost, "/api/parts", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EditPart renames or retypes a part.
func (c *Client) EditPart(ctx context.Context, req api.EditPartRequest) (*api.Part, error) {
	var out api.Part
	if _, err := c.do(ctx, http.MethodPut, "/api/parts", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeletePart removes a part.
func (c *Client) DeletePart(ctx context.Context, req api.DeletePartRequest) (*api.Part, error) {
	var out api.Part
	if _, err := c.do(ctx, http.MethodDelete, "/api/parts", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
