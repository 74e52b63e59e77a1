// Package adminclient is the programmatic surface for the subscription
// lifecycle actions: each call is one request/response round trip against
// the authoritative API followed by a full status+events refetch. No action
// carries an idempotency key, so ambiguous failures are surfaced to the
// caller rather than retried.
package adminclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"tably/pkg/substatus"
)

var ErrInvalidDays = errors.New("days must be a positive integer")

// APIError carries a server rejection verbatim for the UI to display.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server rejected request (%d): %s", e.Code, e.Message)
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// envelope mirrors the API's response wrapper.
type envelope struct {
	Status  string          `json:"status"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	if resp.StatusCode >= 400 || env.Status == "error" {
		return &APIError{Code: env.Code, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decoding response data: %w", err)
		}
	}
	return nil
}

func (c *Client) FetchStatus(ctx context.Context, restaurantID string) (substatus.Snapshot, error) {
	var snapshot substatus.Snapshot
	err := c.doJSON(ctx, http.MethodGet, "/subscriptions/"+url.PathEscape(restaurantID)+"/status", nil, &snapshot)
	return snapshot, err
}

func (c *Client) FetchEvents(ctx context.Context, restaurantID string) ([]substatus.Event, error) {
	var events []substatus.Event
	err := c.doJSON(ctx, http.MethodGet, "/subscriptions/"+url.PathEscape(restaurantID)+"/events", nil, &events)
	return events, err
}

type daysBody struct {
	Days int `json:"days"`
}

func (c *Client) GrantDays(ctx context.Context, restaurantID string, days int) (substatus.Snapshot, error) {
	var snapshot substatus.Snapshot
	if days <= 0 {
		return snapshot, ErrInvalidDays
	}
	err := c.doJSON(ctx, http.MethodPost,
		"/admin/subscriptions/"+url.PathEscape(restaurantID)+"/grant-days", daysBody{Days: days}, &snapshot)
	return snapshot, err
}

func (c *Client) SetTrialDays(ctx context.Context, restaurantID string, days int) (substatus.Snapshot, error) {
	var snapshot substatus.Snapshot
	if days <= 0 {
		return snapshot, ErrInvalidDays
	}
	err := c.doJSON(ctx, http.MethodPost,
		"/admin/subscriptions/"+url.PathEscape(restaurantID)+"/set-trial-days", daysBody{Days: days}, &snapshot)
	return snapshot, err
}

func (c *Client) SetPaidDays(ctx context.Context, restaurantID string, days int) (substatus.Snapshot, error) {
	var snapshot substatus.Snapshot
	if days <= 0 {
		return snapshot, ErrInvalidDays
	}
	err := c.doJSON(ctx, http.MethodPost,
		"/admin/subscriptions/"+url.PathEscape(restaurantID)+"/set-paid-days", daysBody{Days: days}, &snapshot)
	return snapshot, err
}

func (c *Client) Suspend(ctx context.Context, restaurantID string, reason string) (substatus.Snapshot, error) {
	var snapshot substatus.Snapshot
	body := map[string]string{}
	if reason != "" {
		body["reason"] = reason
	}
	err := c.doJSON(ctx, http.MethodPost,
		"/admin/subscriptions/"+url.PathEscape(restaurantID)+"/suspend", body, &snapshot)
	return snapshot, err
}

func (c *Client) Unsuspend(ctx context.Context, restaurantID string) (substatus.Snapshot, error) {
	var snapshot substatus.Snapshot
	err := c.doJSON(ctx, http.MethodPost,
		"/admin/subscriptions/"+url.PathEscape(restaurantID)+"/unsuspend", nil, &snapshot)
	return snapshot, err
}

func (c *Client) StartTrial(ctx context.Context, restaurantID string) (substatus.Snapshot, error) {
	var snapshot substatus.Snapshot
	err := c.doJSON(ctx, http.MethodPost,
		"/admin/subscriptions/"+url.PathEscape(restaurantID)+"/start-trial", nil, &snapshot)
	return snapshot, err
}

// RunDaily triggers the server's scheduled lifecycle sweep on demand.
// Returns the number of subscriptions transitioned.
func (c *Client) RunDaily(ctx context.Context) (int, error) {
	var result struct {
		Transitioned int `json:"transitioned"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/admin/lifecycle/run-daily", nil, &result)
	return result.Transitioned, err
}

// InAppEnabled fetches the notification preference for the authenticated
// principal. Satisfies the realtime transport's preference source.
func (c *Client) InAppEnabled(ctx context.Context) (bool, error) {
	var pref struct {
		InAppEnabled bool `json:"in_app_enabled"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/notifications/preferences", nil, &pref); err != nil {
		return false, err
	}
	return pref.InAppEnabled, nil
}
