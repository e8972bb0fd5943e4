// Package sheets is a minimal client for the Google Sheets v4 values API.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/oauth2"
)

const defaultBaseURL = "https://sheets.googleapis.com/v4/spreadsheets"

// Client reads and appends spreadsheet rows.
type Client interface {
	// GetValues returns the formatted cell values of rng.
	GetValues(ctx context.Context, spreadsheetID, rng string) ([][]string, error)
	// AppendValues appends rows after the last row of the table in rng.
	AppendValues(ctx context.Context, spreadsheetID, rng string, rows [][]string) error
	// SheetTitles lists the titles of every sheet in the spreadsheet.
	SheetTitles(ctx context.Context, spreadsheetID string) ([]string, error)
	// AddSheet creates a sheet with the given title.
	AddSheet(ctx context.Context, spreadsheetID, title string) error
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sheets: status %d: %s", e.StatusCode, e.Message)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	tokens  oauth2.TokenSource
	baseURL string
	http    *http.Client
}

// NewClient creates a Sheets client that authorizes every request with a
// bearer token from tokens.
func NewClient(tokens oauth2.TokenSource, opts ...Option) Client {
	c := &httpClient{
		tokens:  tokens,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// A1Range quotes a sheet title and appends an optional cell range, for
// example A1Range("Leads 2025", "A:G") is 'Leads 2025'!A:G.
func A1Range(sheet, cells string) string {
	r := "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	if cells != "" {
		r += "!" + cells
	}
	return r
}

type valueRange struct {
	Range          string  `json:"range,omitempty"`
	MajorDimension string  `json:"majorDimension,omitempty"`
	Values         [][]any `json:"values"`
}

func (c *httpClient) GetValues(ctx context.Context, spreadsheetID, rng string) ([][]string, error) {
	endpoint := fmt.Sprintf("%s/%s/values/%s", c.baseURL, url.PathEscape(spreadsheetID), url.PathEscape(rng))

	var vr valueRange
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &vr); err != nil {
		return nil, eris.Wrapf(err, "sheets: get values %s", rng)
	}

	rows := make([][]string, len(vr.Values))
	for i, row := range vr.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			if v != nil {
				cells[j] = fmt.Sprint(v)
			}
		}
		rows[i] = cells
	}
	return rows, nil
}

func (c *httpClient) AppendValues(ctx context.Context, spreadsheetID, rng string, rows [][]string) error {
	q := url.Values{}
	q.Set("valueInputOption", "RAW")
	q.Set("insertDataOption", "INSERT_ROWS")
	endpoint := fmt.Sprintf("%s/%s/values/%s:append?%s",
		c.baseURL, url.PathEscape(spreadsheetID), url.PathEscape(rng), q.Encode())

	values := make([][]any, len(rows))
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}
		values[i] = cells
	}

	if err := c.do(ctx, http.MethodPost, endpoint, valueRange{Values: values}, nil); err != nil {
		return eris.Wrapf(err, "sheets: append %s", rng)
	}
	return nil
}

type spreadsheetMeta struct {
	Sheets []struct {
		Properties struct {
			Title string `json:"title"`
		} `json:"properties"`
	} `json:"sheets"`
}

func (c *httpClient) SheetTitles(ctx context.Context, spreadsheetID string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/%s?fields=sheets.properties.title", c.baseURL, url.PathEscape(spreadsheetID))

	var meta spreadsheetMeta
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &meta); err != nil {
		return nil, eris.Wrap(err, "sheets: get spreadsheet")
	}
	titles := make([]string, 0, len(meta.Sheets))
	for _, s := range meta.Sheets {
		titles = append(titles, s.Properties.Title)
	}
	return titles, nil
}

func (c *httpClient) AddSheet(ctx context.Context, spreadsheetID, title string) error {
	endpoint := fmt.Sprintf("%s/%s:batchUpdate", c.baseURL, url.PathEscape(spreadsheetID))
	body := map[string]any{
		"requests": []any{
			map[string]any{
				"addSheet": map[string]any{
					"properties": map[string]any{"title": title},
				},
			},
		},
	}
	if err := c.do(ctx, http.MethodPost, endpoint, body, nil); err != nil {
		return eris.Wrapf(err, "sheets: add sheet %s", title)
	}
	return nil
}

type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *httpClient) do(ctx context.Context, method, endpoint string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return eris.Wrap(err, "sheets: marshal request")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return eris.Wrap(err, "sheets: create request")
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	tok, err := c.tokens.Token()
	if err != nil {
		return &StatusError{StatusCode: http.StatusUnauthorized, Message: "token unavailable: " + err.Error()}
	}
	tok.SetAuthHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "sheets: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "sheets: read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(respBody)
		var apiErr apiErrorBody
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return eris.Wrap(err, "sheets: unmarshal response")
		}
	}
	return nil
}
