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
	"time"

	"golang.org/x/exp/slog"

	"notekeeper/internal/app/client/config"
	appconfig "notekeeper/internal/config"
	"notekeeper/internal/domain/record"
	"notekeeper/internal/domain/sync"
)

// httpClient talks to the sync server's REST API and implements sync.Remote.
type httpClient struct {
	client    *http.Client
	log       *slog.Logger
	baseURL   string
	token     string
	userAgent string
}

var _ sync.Remote = (*httpClient)(nil)

func NewHTTPClient(cfg *config.Config, log *slog.Logger) *httpClient {
	client := &http.Client{
		Timeout: cfg.Sync.RequestTimeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 10,
		},
	}

	return &httpClient{
		client:    client,
		log:       log.With("component", "remote_client"),
		baseURL:   cfg.ServerURL(),
		token:     cfg.APIToken,
		userAgent: appconfig.AppName + "-client/1.0",
	}
}

type createRequest struct {
	ClientID string          `json:"client_id"`
	Payload  json.RawMessage `json:"payload"`
}

type updateRequest struct {
	Payload json.RawMessage `json:"payload"`
	Version int64           `json:"version"`
}

// errUndecodable marks a 2xx response whose body could not be decoded.
var errUndecodable = errors.New("undecodable response")

type errorResponse struct {
	Error   string             `json:"error"`
	Current *sync.RemoteRecord `json:"current,omitempty"`
}

func (h *httpClient) Ping(ctx context.Context) error {
	resp, err := h.doRequest(ctx, http.MethodGet, "/api/v1/health", nil)
	if err != nil {
		return err
	}
	return h.parseResponse(resp, nil)
}

func (h *httpClient) Pull(ctx context.Context, table record.Table, since string) (*sync.PullResult, error) {
	path := "/api/v1/" + string(table)
	if since != "" {
		path += "?since=" + url.QueryEscape(since)
	}

	resp, err := h.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var page struct {
		Records   []json.RawMessage `json:"records"`
		SyncToken string            `json:"sync_token"`
	}
	if err := h.parseResponse(resp, &page); err != nil {
		if !errors.Is(err, errUndecodable) {
			return nil, err
		}
		// A malformed page is an empty page; the token stays where it was.
		h.log.Warn("treating malformed pull response as empty", "table", table, "error", err)
		return &sync.PullResult{}, nil
	}

	result := &sync.PullResult{SyncToken: page.SyncToken}
	for _, raw := range page.Records {
		var rec sync.RemoteRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			h.log.Warn("skipping undecodable remote record", "table", table, "error", err)
			continue
		}
		if rec.Table == "" {
			rec.Table = table
		}
		result.Records = append(result.Records, rec)
	}
	return result, nil
}

func (h *httpClient) Create(ctx context.Context, table record.Table, clientID string, payload json.RawMessage) (*sync.RemoteRecord, error) {
	resp, err := h.doRequest(ctx, http.MethodPost, "/api/v1/"+string(table),
		createRequest{ClientID: clientID, Payload: payload})
	if err != nil {
		return nil, err
	}

	var rec sync.RemoteRecord
	if err := h.parseResponse(resp, &rec); err != nil {
		return nil, err
	}
	rec.Table = table
	return &rec, nil
}

func (h *httpClient) Update(ctx context.Context, table record.Table, serverID string, payload json.RawMessage, baseVersion int64) (*sync.RemoteRecord, error) {
	resp, err := h.doRequest(ctx, http.MethodPut, "/api/v1/"+string(table)+"/"+url.PathEscape(serverID),
		updateRequest{Payload: payload, Version: baseVersion})
	if err != nil {
		return nil, err
	}

	var rec sync.RemoteRecord
	if err := h.parseResponse(resp, &rec); err != nil {
		return nil, err
	}
	rec.Table = table
	return &rec, nil
}

// Delete treats 404 as success: the record is gone either way.
func (h *httpClient) Delete(ctx context.Context, table record.Table, serverID string) error {
	resp, err := h.doRequest(ctx, http.MethodDelete, "/api/v1/"+string(table)+"/"+url.PathEscape(serverID), nil)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil
	}
	return h.parseResponse(resp, nil)
}

func (h *httpClient) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", h.userAgent)
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	h.log.Debug("sending request", "method", method, "url", req.URL.String())

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", sync.ErrNetwork, method, path, err)
	}
	return resp, nil
}

// parseResponse maps the status onto the sync error taxonomy: 5xx is
// retryable, 409 carries the server copy, any other 4xx is final.
func (h *httpClient) parseResponse(resp *http.Response, result any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", sync.ErrNetwork, err)
	}

	h.log.Debug("received response", "status", resp.StatusCode, "bytes", len(body))

	if resp.StatusCode >= http.StatusBadRequest {
		var errResp errorResponse
		_ = json.Unmarshal(body, &errResp)
		msg := errResp.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}

		switch {
		case resp.StatusCode == http.StatusConflict:
			return &sync.ConflictError{Remote: errResp.Current}
		case resp.StatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("%w: status %d: %s", sync.ErrNetwork, resp.StatusCode, msg)
		default:
			return fmt.Errorf("%w: status %d: %s", sync.ErrRejected, resp.StatusCode, msg)
		}
	}

	if result == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return fmt.Errorf("%w: %w: %v", sync.ErrNetwork, errUndecodable, err)
		}
		return fmt.Errorf("%w: %w: %v", sync.ErrRejected, errUndecodable, err)
	}
	return nil
}
