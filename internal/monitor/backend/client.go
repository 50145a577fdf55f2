// Package backend is the HTTP client of the monitoring REST backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core"
	"github.com/autopeer-io/fleetpeer/internal/monitor/core/model"
	"github.com/autopeer-io/fleetpeer/internal/pkg/metrics"
)

const (
	pathLogin           = "/login"
	pathVehicleList     = "/monitoring/vehicle/list"
	pathLocationHistory = "/monitoring/vehicle/location-history"
	pathDispatchStatus  = "/monitoring/vehicle/dispatch-status"

	resultTrue = "true"
)

var _ core.Backend = (*Client)(nil)

// TokenSource supplies the bearer credential sent with queries. An empty
// token sends no Authorization header.
type TokenSource interface {
	AccessToken() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

func (f TokenFunc) AccessToken() string { return f() }

// Client talks to the monitoring backend.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	tokens  TokenSource
}

// envelope is the response shape shared by every endpoint.
type envelope[T any] struct {
	Result  string `json:"result"`
	Data    *T     `json:"data"`
	Message string `json:"message,omitempty"`
}

type loginRequest struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

type loginData struct {
	Access            string          `json:"access"`
	Refresh           string          `json:"refresh"`
	AuthenticatedUser json.RawMessage `json:"authenticatedUser"`
}

// NewClient creates a backend client. tokens may be nil.
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q: scheme and host are required", baseURL)
	}

	return &Client{
		baseURL: u,
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
	}, nil
}

// Login posts the user's credentials. A response other than result "true"
// carrying both tokens yields core.ErrLoginRejected.
func (c *Client) Login(ctx context.Context, userID, password string) (*model.Credentials, error) {
	body, err := json.Marshal(loginRequest{UserID: userID, Password: password})
	if err != nil {
		return nil, err
	}

	var resp envelope[loginData]
	status, err := c.do(ctx, "login", http.MethodPost, pathLogin, nil, body, false, &resp)
	if err != nil && status != http.StatusUnauthorized && status != http.StatusBadRequest {
		return nil, err
	}
	if status != http.StatusOK || resp.Result != resultTrue || resp.Data == nil ||
		resp.Data.Access == "" || resp.Data.Refresh == "" {
		if resp.Message != "" {
			return nil, fmt.Errorf("%w: %s", core.ErrLoginRejected, resp.Message)
		}
		return nil, core.ErrLoginRejected
	}

	return &model.Credentials{
		Access:  resp.Data.Access,
		Refresh: resp.Data.Refresh,
		User:    resp.Data.AuthenticatedUser,
	}, nil
}

// ListVehicles returns the registered vehicles.
func (c *Client) ListVehicles(ctx context.Context) ([]model.VehicleSummary, error) {
	var resp envelope[[]model.VehicleSummary]
	if _, err := c.do(ctx, "vehicles", http.MethodGet, pathVehicleList, nil, nil, true, &resp); err != nil {
		return nil, err
	}
	return unwrap(resp), nil
}

// DispatchHistory returns the dispatches of busID on the calendar day of date.
// A 404 is the backend's way of saying there were none.
func (c *Client) DispatchHistory(ctx context.Context, busID int64, date time.Time) ([]model.DispatchRecord, error) {
	q := url.Values{}
	q.Set("bus_id", strconv.FormatInt(busID, 10))
	q.Set("date", date.Format(model.DateLayout))

	var resp envelope[[]model.DispatchRecord]
	status, err := c.do(ctx, "dispatches", http.MethodGet, pathLocationHistory, q, nil, true, &resp)
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return unwrap(resp), nil
}

// DispatchDays returns the days of month on which busID was dispatched.
func (c *Client) DispatchDays(ctx context.Context, busID int64, month time.Time) ([]int, error) {
	q := url.Values{}
	q.Set("bus_id", strconv.FormatInt(busID, 10))
	q.Set("date", month.Format(model.MonthLayout))

	var resp envelope[[]int]
	status, err := c.do(ctx, "dispatch_days", http.MethodGet, pathDispatchStatus, q, nil, true, &resp)
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return unwrap(resp), nil
}

func unwrap[T any](e envelope[[]T]) []T {
	if e.Result != resultTrue || e.Data == nil {
		return nil
	}
	return *e.Data
}

// do performs a request and decodes a JSON response into out. It returns the
// HTTP status (0 on transport errors) alongside any error; non-2xx statuses
// are errors but the body is still decoded when possible.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body []byte, auth bool, out any) (int, error) {
	start := time.Now()
	defer func() {
		metrics.BackendRequestLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	u := *c.baseURL
	u.Path += path
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth && c.tokens != nil {
		if token := c.tokens.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.BackendRequestErrorsTotal.WithLabelValues(op).Inc()
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		metrics.BackendRequestErrorsTotal.WithLabelValues(op).Inc()
		return resp.StatusCode, fmt.Errorf("%s %s: failed to read response: %w", method, path, err)
	}

	decodeErr := json.Unmarshal(data, out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode != http.StatusNotFound {
			metrics.BackendRequestErrorsTotal.WithLabelValues(op).Inc()
		}
		return resp.StatusCode, fmt.Errorf("%s %s: unexpected status %s", method, path, resp.Status)
	}
	if decodeErr != nil {
		metrics.BackendRequestErrorsTotal.WithLabelValues(op).Inc()
		return resp.StatusCode, fmt.Errorf("%s %s: failed to decode response: %w", method, path, decodeErr)
	}
	return resp.StatusCode, nil
}
