package server

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

	"github.com/gorilla/websocket"

	"github.com/hyperjump/chunkd/internal/models"
)

// Client calls a running chunkd server. CLI commands use it so they do not open the
// database and index files the server holds.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the server at baseURL, e.g. http://localhost:8080.
// httpClient may be nil.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Ingest stores a new document.
func (c *Client) Ingest(ctx context.Context, input *models.DocumentInput) (*models.IngestResult, error) {
	var res models.IngestResult
	if err := c.do(ctx, http.MethodPost, "/ingest", input, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// RegenerateOne re-chunks and re-embeds one document.
func (c *Client) RegenerateOne(ctx context.Context, id string) (models.IngestStats, error) {
	var res struct {
		Stats models.IngestStats `json:"stats"`
	}
	err := c.do(ctx, http.MethodPost, "/ingest/regenerate", regenerateRequest{DocumentID: id}, &res)
	return res.Stats, err
}

// RegenerateBatch regenerates ids, or every document when all is set. With a progress
// callback the batch runs over the websocket endpoint and progress is streamed.
func (c *Client) RegenerateBatch(ctx context.Context, ids []string, all bool, progress func(models.Progress)) (*models.BatchResult, error) {
	req := batchRequest{DocumentIDs: ids, All: all}
	var res *models.BatchResult
	if progress == nil {
		res = &models.BatchResult{}
		if err := c.do(ctx, http.MethodPost, "/ingest/regenerate-batch", req, res); err != nil {
			return nil, err
		}
	} else {
		var err error
		if res, err = c.regenerateStream(ctx, req, progress); err != nil {
			return nil, err
		}
	}
	if res.Failed != nil {
		res.Failed.Err = errors.New(res.Failed.Error)
	}
	return res, nil
}

func (c *Client) regenerateStream(ctx context.Context, req batchRequest, progress func(models.Progress)) (*models.BatchResult, error) {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/ingest/regenerate/ws"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, c.unreachable(err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.SetReadDeadline(time.Now()) })
	defer stop()

	if err := conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("send batch request: %w", err)
	}
	for {
		var ev wsEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("read progress: %w", err)
		}
		switch ev.Type {
		case wsEventProgress:
			if ev.Progress != nil {
				progress(*ev.Progress)
			}
		case wsEventDone:
			if ev.Result == nil {
				return nil, errors.New("server sent no batch result")
			}
			return ev.Result, nil
		case wsEventError:
			return nil, fmt.Errorf("server: %s", ev.Error)
		}
	}
}

// ClearAll deletes every chunk and embedding.
func (c *Client) ClearAll(ctx context.Context) (models.ClearStats, error) {
	var res struct {
		Stats models.ClearStats `json:"stats"`
	}
	err := c.do(ctx, http.MethodPost, "/ingest/clear-rag", nil, &res)
	return res.Stats, err
}

// Search runs a retrieval query.
func (c *Client) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	var res models.SearchResponse
	if err := c.do(ctx, http.MethodPost, "/search", query, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Details returns a document with per-chunk statistics.
func (c *Client) Details(ctx context.Context, id string) (*models.DocumentDetails, error) {
	var res models.DocumentDetails
	if err := c.do(ctx, http.MethodGet, "/ingest/"+url.PathEscape(id)+"/details", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Delete removes a document and its chunks.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/ingest/"+url.PathEscape(id), nil, nil)
}

// List returns document summaries, newest first.
func (c *Client) List(ctx context.Context, offset, limit int) ([]*models.DocumentSummary, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	var res struct {
		Documents []*models.DocumentSummary `json:"documents"`
	}
	if err := c.do(ctx, http.MethodGet, "/ingest?"+q.Encode(), nil, &res); err != nil {
		return nil, err
	}
	return res.Documents, nil
}

// Status returns corpus counts and the server's configuration summary.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var res StatusResponse
	if err := c.do(ctx, http.MethodGet, "/status", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// WatchDirectories lists the server's watched directories.
func (c *Client) WatchDirectories(ctx context.Context) ([]string, error) {
	var res watchDirectoriesResponse
	err := c.do(ctx, http.MethodGet, "/watch/directories", nil, &res)
	return res.Directories, err
}

// AddWatchDirectory starts watching dir and returns the updated list.
func (c *Client) AddWatchDirectory(ctx context.Context, dir string) ([]string, error) {
	var res watchDirectoriesResponse
	err := c.do(ctx, http.MethodPost, "/watch/directories", watchDirectoryRequest{Path: dir}, &res)
	return res.Directories, err
}

// RemoveWatchDirectory stops watching dir and returns the updated list.
func (c *Client) RemoveWatchDirectory(ctx context.Context, dir string) ([]string, error) {
	var res watchDirectoriesResponse
	err := c.do(ctx, http.MethodDelete, "/watch/directories?path="+url.QueryEscape(dir), nil, &res)
	return res.Directories, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return c.unreachable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) unreachable(err error) error {
	return fmt.Errorf("server not reachable at %s: %w", c.baseURL, err)
}

// remoteError carries the server's message and the taxonomy sentinel its code maps to.
type remoteError struct {
	msg      string
	sentinel error
}

func (e *remoteError) Error() string { return e.msg }
func (e *remoteError) Unwrap() error { return e.sentinel }

// decodeError maps an error body back onto the error taxonomy so callers can use errors.Is.
func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var e errorResponse
	if json.Unmarshal(data, &e) != nil || e.Error == "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	var sentinel error
	switch e.Code {
	case codeNotFound:
		sentinel = models.ErrNotFound
	case codeEmpty:
		sentinel = models.ErrEmptyContent
	case codeValidation, codeBadRequest:
		sentinel = models.ErrValidation
	case codePersistence:
		sentinel = models.ErrPersistence
	}
	if sentinel == nil {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Error)
	}
	return &remoteError{msg: e.Error, sentinel: sentinel}
}
