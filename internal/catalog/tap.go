package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/winnow/internal/common"
)

// tapClient speaks the synchronous TAP protocol shared by the catalog
// services: an ADQL query posted to the /sync endpoint, JSON back.
type tapClient struct {
	httpClient *http.Client
	baseURL    string
	catalog    string
}

func newTAPClient(catalog, baseURL string, timeout time.Duration) *tapClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &tapClient{
		catalog: catalog,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// tapResponse is the TAP JSON result layout: column metadata plus rows of
// positional values.
type tapResponse struct {
	Metadata []tapColumn `json:"metadata"`
	Data     [][]any     `json:"data"`
}

type tapColumn struct {
	Name     string `json:"name"`
	Datatype string `json:"datatype"`
}

// columnIndex returns the position of a named column, or -1.
func (r *tapResponse) columnIndex(name string) int {
	for i, col := range r.Metadata {
		if strings.EqualFold(col.Name, name) {
			return i
		}
	}
	return -1
}

// syncQuery runs one ADQL query against the service's /sync endpoint.
// Failures come back as RemoteQueryError with retryability decided by the
// failure class: transport errors, rate limiting and server errors retry;
// client errors and malformed responses do not.
func (t *tapClient) syncQuery(ctx context.Context, adql string) (*tapResponse, error) {
	form := url.Values{
		"REQUEST": {"doQuery"},
		"LANG":    {"ADQL"},
		"FORMAT":  {"json"},
		"QUERY":   {adql},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/sync", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &common.RemoteQueryError{Catalog: t.catalog, Err: err, Retryable: false}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, &common.RemoteQueryError{Catalog: t.catalog, Err: err, Retryable: true}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &common.RemoteQueryError{Catalog: t.catalog, Err: err, Retryable: true}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &common.RemoteQueryError{Catalog: t.catalog, Err: common.ErrRateLimit, Retryable: true}
	case resp.StatusCode >= 500:
		return nil, &common.RemoteQueryError{
			Catalog:   t.catalog,
			Err:       fmt.Errorf("server error (status %d): %s", resp.StatusCode, truncate(body)),
			Retryable: true,
		}
	case resp.StatusCode != http.StatusOK:
		return nil, &common.RemoteQueryError{
			Catalog:   t.catalog,
			Err:       fmt.Errorf("query rejected (status %d): %s", resp.StatusCode, truncate(body)),
			Retryable: false,
		}
	}

	var parsed tapResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &common.RemoteQueryError{
			Catalog:   t.catalog,
			Err:       fmt.Errorf("parsing response: %w", err),
			Retryable: false,
		}
	}
	return &parsed, nil
}

func truncate(body []byte) string {
	const limit = 512
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}

// stringAt reads a row value as a string, tolerating the numeric identifier
// columns some services emit.
func stringAt(row []any, idx int) string {
	if idx < 0 || idx >= len(row) || row[idx] == nil {
		return ""
	}
	switch v := row[idx].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// floatAt reads a row value as a float, with nulls and absent columns as 0.
func floatAt(row []any, idx int) float64 {
	if idx < 0 || idx >= len(row) || row[idx] == nil {
		return 0
	}
	switch v := row[idx].(type) {
	case float64:
		return v
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
