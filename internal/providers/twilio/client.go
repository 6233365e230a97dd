package twilio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

const DefaultBaseURL = "https://api.twilio.com"

// Sender is the single "create message" operation of the provider.
type Sender interface {
	CreateMessage(ctx context.Context, req CreateMessageRequest) (Message, error)
}

type CreateMessageRequest struct {
	To   string
	From string
	Body string
}

type Message struct {
	Sid    string `json:"sid"`
	Status string `json:"status"`
}

// APIError is the JSON error body Twilio returns on non-2xx responses.
type APIError struct {
	Status   int    `json:"status"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return "twilio send failed"
	}
	return e.Message
}

// Readier reports whether a sender is configured well enough to dispatch.
// It never calls the provider.
type Readier interface {
	Ready(ctx context.Context) error
}

var errMissingCredentials = errors.New("twilio credentials missing")

// Client talks to the Messages REST resource directly.
type Client struct {
	AccountSID string
	AuthToken  string
	HTTP       *http.Client
	BaseURL    string
}

var (
	_ Sender  = (*Client)(nil)
	_ Readier = (*Client)(nil)
)

func (c *Client) Ready(ctx context.Context) error {
	if c.AccountSID == "" || c.AuthToken == "" {
		return errMissingCredentials
	}
	if c.BaseURL == "" {
		return nil
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("twilio base url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("twilio base url %q: want http(s)://host", c.BaseURL)
	}
	return nil
}

func (c *Client) CreateMessage(ctx context.Context, req CreateMessageRequest) (Message, error) {
	form := url.Values{}
	form.Set("To", req.To)
	form.Set("From", req.From)
	form.Set("Body", req.Body)

	baseURL := strings.TrimRight(c.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	endpoint := baseURL + "/2010-04-01/Accounts/" + url.PathEscape(c.AccountSID) + "/Messages.json"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Message{}, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.SetBasicAuth(c.AccountSID, c.AuthToken)

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(httpReq)
	if err != nil {
		return Message{}, err
	}
	defer resp.Body.Close()
	b, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	// Twilio returns 201 for created; treat 2xx as success
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{}
		if err := json.Unmarshal(b, apiErr); err != nil {
			slog.Debug("twilio error body not decoded", "status", resp.StatusCode, "err", err, "read_err", readErr)
		}
		if apiErr.Status == 0 {
			apiErr.Status = resp.StatusCode
		}
		return Message{}, apiErr
	}

	// the message was accepted; a bad body only loses the sid
	var out Message
	if readErr != nil {
		slog.Warn("twilio response body read failed", "status", resp.StatusCode, "err", readErr)
		return out, nil
	}
	if err := json.Unmarshal(b, &out); err != nil {
		slog.Warn("twilio response body not decoded", "status", resp.StatusCode, "err", err)
	}
	return out, nil
}
