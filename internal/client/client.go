// Package client provides an HTTP client for the bookpack server.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/raphaelgruber/bookpack/internal/metrics"
	"github.com/raphaelgruber/bookpack/internal/models"
)

// DefaultTimeout bounds one request, including streamed bodies.
const DefaultTimeout = 5 * time.Minute

// sourcesHeader lists the sources behind a chat reply.
const sourcesHeader = "X-Sources"

// Client talks to a bookpack server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client.
// If baseURL is empty, uses BOOKPACK_SERVER_URL or defaults to localhost:8484.
// A zero timeout uses BOOKPACK_CLIENT_TIMEOUT or DefaultTimeout.
func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("BOOKPACK_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8484"
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
		if t := os.Getenv("BOOKPACK_CLIENT_TIMEOUT"); t != "" {
			if d, err := time.ParseDuration(t); err == nil {
				timeout = d
			}
		}
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// APIError is a non-success response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// readError turns an error response into an *APIError, preferring the
// problem detail when the body carries one.
func readError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var problem struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &problem) == nil {
		switch {
		case problem.Detail != "":
			msg = problem.Detail
		case problem.Error != "":
			msg = problem.Error
		}
	}
	if msg == "" {
		msg = resp.Status
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

func (c *Client) url(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path, query), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, readError(resp)
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.get(ctx, path, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Search returns catalog results for query.
func (c *Client) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	var results []models.SearchResult
	if err := c.getJSON(ctx, "/api/search", url.Values{"q": {query}}, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// Book returns a book's details.
func (c *Client) Book(ctx context.Context, id string) (*models.BookDetails, error) {
	var details models.BookDetails
	if err := c.getJSON(ctx, "/api/book/"+url.PathEscape(id), nil, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// Jobs lists the server's ingestion runs, most recent first.
func (c *Client) Jobs(ctx context.Context) ([]models.IngestRun, error) {
	var runs []models.IngestRun
	if err := c.getJSON(ctx, "/api/jobs", nil, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// Stats returns the server's runtime statistics.
func (c *Client) Stats(ctx context.Context) (*metrics.Snapshot, error) {
	var snap metrics.Snapshot
	if err := c.getJSON(ctx, "/api/stats", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func metadataQuery(meta models.BookMetadata) (url.Values, error) {
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return url.Values{"metadata": {string(raw)}}, nil
}

// Ingest follows ingestion of meta over server-sent events, calling onEvent
// for each event until the stream ends. Return an error from onEvent to abort.
func (c *Client) Ingest(ctx context.Context, meta models.BookMetadata, onEvent func(models.IngestionEvent) error) error {
	query, err := metadataQuery(meta)
	if err != nil {
		return err
	}
	resp, err := c.get(ctx, "/api/ingest/"+url.PathEscape(meta.ID), query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if data, ok := strings.CutPrefix(strings.TrimRight(line, "\r\n"), "data: "); ok {
			var e models.IngestionEvent
			if jerr := json.Unmarshal([]byte(data), &e); jerr != nil {
				return fmt.Errorf("decode event: %w", jerr)
			}
			if cerr := onEvent(e); cerr != nil {
				return cerr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read stream: %w", err)
		}
	}
}

// IngestWebSocket is Ingest over the WebSocket endpoint.
func (c *Client) IngestWebSocket(ctx context.Context, meta models.BookMetadata, onEvent func(models.IngestionEvent) error) error {
	query, err := metadataQuery(meta)
	if err != nil {
		return err
	}
	wsURL := c.url("/api/ingest/"+url.PathEscape(meta.ID)+"/ws", query)
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("websocket connect: %w", err)
	}
	defer conn.Close()

	// Unblock the read when ctx ends.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		var e models.IngestionEvent
		if err := conn.ReadJSON(&e); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read event: %w", err)
		}
		if err := onEvent(e); err != nil {
			return err
		}
	}
}

// Chat asks a question about an ingested book. The reply is streamed to
// onToken; the sources behind it are returned once the reply is complete.
func (c *Client) Chat(ctx context.Context, req models.ChatRequest, onToken func(string) error) ([]string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/api/chat", nil), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, readError(resp)
	}

	sources := []string{}
	if h := resp.Header.Get(sourcesHeader); h != "" {
		if err := json.Unmarshal([]byte(h), &sources); err != nil {
			return nil, fmt.Errorf("decode sources: %w", err)
		}
	}

	buf := make([]byte, 1024)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if cerr := onToken(string(buf[:n])); cerr != nil {
				return sources, cerr
			}
		}
		if errors.Is(err, io.EOF) {
			return sources, nil
		}
		if err != nil {
			return sources, fmt.Errorf("read reply: %w", err)
		}
	}
}
