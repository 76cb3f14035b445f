package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrHistoryUnavailable means neither the primary nor any alternate history
// endpoint answered with a list.
var ErrHistoryUnavailable = errors.New("analysis history unavailable")

// HistorySource yields raw analysis records for one user.
type HistorySource interface {
	ListRaw(ctx context.Context, userID string) ([]map[string]any, error)
}

// UpstreamHistoryClient reads previous analyses from the external analysis API.
type UpstreamHistoryClient struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

func NewUpstreamHistoryClient(baseURL string, log *zap.Logger) *UpstreamHistoryClient {
	if log == nil {
		log = zap.NewNop()
	}
	return &UpstreamHistoryClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

type historyEndpoint struct {
	path  string
	query url.Values
}

// alternates are tried in order when the primary endpoint fails. It is not
// known which of them are live on a given deployment.
func (c *UpstreamHistoryClient) alternates(userID string) []historyEndpoint {
	return []historyEndpoint{
		{path: "/analisis-imagen/", query: url.Values{"persona_id": {userID}}},
		{path: "/analisis-persona/" + url.PathEscape(userID) + "/"},
		{path: "/analisis-imagen/", query: url.Values{"id_persona": {userID}}},
		{path: "/historial-analisis/", query: url.Values{"persona_id": {userID}}},
	}
}

// ListRaw asks the primary endpoint first. On failure the alternates are
// tried one after another and the first one answering with a JSON array
// wins. Either way the list is filtered to the user and sorted.
func (c *UpstreamHistoryClient) ListRaw(ctx context.Context, userID string) ([]map[string]any, error) {
	primary := historyEndpoint{path: "/mis-analisis/" + url.PathEscape(userID) + "/"}
	headers := http.Header{
		"X-User-Filter": {"true"},
		"X-User-ID":     {userID},
		"X-Persona-ID":  {userID},
	}

	body, err := c.get(ctx, primary, headers)
	if err == nil {
		records, isList := asRecordList(body)
		if !isList {
			return []map[string]any{}, nil
		}
		records = FilterByUser(records, userID)
		SortByAnalyzedAt(records)
		return records, nil
	}
	c.log.Warn("primary history endpoint failed, trying alternates",
		zap.String("path", primary.path), zap.Error(err))

	for _, ep := range c.alternates(userID) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		body, err := c.get(ctx, ep, nil)
		if err != nil {
			c.log.Debug("alternate history endpoint failed", zap.String("path", ep.path), zap.Error(err))
			continue
		}
		records, isList := asRecordList(body)
		if !isList {
			continue
		}
		records = FilterByUser(records, userID)
		SortByAnalyzedAt(records)
		return records, nil
	}
	return nil, ErrHistoryUnavailable
}

func (c *UpstreamHistoryClient) get(ctx context.Context, ep historyEndpoint, headers http.Header) (any, error) {
	u := c.baseURL + ep.path
	if len(ep.query) > 0 {
		u += "?" + ep.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create history request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call history API: %w", err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read history response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("history API error %d: %s", resp.StatusCode, preview(b))
	}

	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("failed to parse history JSON: %w", err)
	}
	return out, nil
}

// asRecordList keeps the object elements of a JSON array.
func asRecordList(v any) ([]map[string]any, bool) {
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out, true
}

func preview(b []byte) string {
	s := string(b)
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
