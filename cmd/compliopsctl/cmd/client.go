package cmd

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

	"github.com/good-yellow-bee/compliops/internal/models"
)

// APIError is an error envelope returned by the server.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d %s)", e.Message, e.Status, e.Code)
}

// AlertPage is a page of alerts.
type AlertPage struct {
	Items []*models.Alert `json:"items"`
	Total int64           `json:"total"`
	Skip  int             `json:"skip"`
	Limit int             `json:"limit"`
}

// GenerateResult is the response to a report generation request.
type GenerateResult struct {
	ReportID string              `json:"report_id"`
	Status   models.ReportStatus `json:"status"`
}

// Health is the server health summary.
type Health struct {
	Status           string `json:"status"`
	Timestamp        string `json:"timestamp"`
	APIKeyConfigured bool   `json:"api_key_configured"`
	Mode             string `json:"mode"`
	Version          string `json:"version"`
}

// Client is a minimal compliops-server REST client.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// ListAlerts returns a page of alerts.
func (c *Client) ListAlerts(ctx context.Context, skip, limit int) (*AlertPage, error) {
	q := url.Values{}
	q.Set("skip", strconv.Itoa(skip))
	q.Set("limit", strconv.Itoa(limit))

	var page AlertPage
	if err := c.do(ctx, http.MethodGet, "/api/v1/alerts?"+q.Encode(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetAlert returns one alert.
func (c *Client) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	var alert models.Alert
	if err := c.do(ctx, http.MethodGet, "/api/v1/alerts/"+url.PathEscape(id), &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}

// GenerateReport starts report generation for an alert.
func (c *Client) GenerateReport(ctx context.Context, alertID string) (*GenerateResult, error) {
	q := url.Values{}
	q.Set("alert_id", alertID)

	var res GenerateResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/reports/generate?"+q.Encode(), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetReport returns one report.
func (c *Client) GetReport(ctx context.Context, id string) (*models.Report, error) {
	var report models.Report
	if err := c.do(ctx, http.MethodGet, "/api/v1/reports/"+url.PathEscape(id), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// WaitReport polls a report until it reaches a terminal status or ctx is done.
func (c *Client) WaitReport(ctx context.Context, id string, every time.Duration) (*models.Report, error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	var last *models.Report
	for {
		report, err := c.GetReport(ctx, id)
		if err != nil {
			// The deadline can expire mid-request.
			if ctx.Err() != nil && last != nil {
				return last, fmt.Errorf("report %s still %s: %w", id, last.Status, ctx.Err())
			}
			return nil, err
		}
		if report.Status.IsTerminal() {
			return report, nil
		}
		last = report
		PrintVerbose("report %s is %s", id, report.Status)

		select {
		case <-ctx.Done():
			return report, fmt.Errorf("report %s still %s: %w", id, report.Status, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Health returns the server health summary. The health endpoints are not
// wrapped in the data envelope.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	resp, err := c.send(ctx, http.MethodGet, "/health")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Code: "UNHEALTHY", Message: "health check failed"}
	}
	var h Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, fmt.Errorf("decode health: %w", err)
	}
	return &h, nil
}

func (c *Client) send(ctx context.Context, method, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	PrintVerbose("%s %s", method, req.URL)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// do sends a request and decodes the data envelope into out.
func (c *Client) do(ctx context.Context, method, path string, out any) error {
	resp, err := c.send(ctx, method, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var envelope struct {
		Data  json.RawMessage `json:"data"`
		Error *APIError       `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decode response (%d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 400 || envelope.Error != nil {
		if envelope.Error == nil {
			envelope.Error = &APIError{Code: http.StatusText(resp.StatusCode), Message: "request failed"}
		}
		envelope.Error.Status = resp.StatusCode
		return envelope.Error
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}
