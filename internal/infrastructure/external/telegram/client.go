// Package telegram delivers SOS alerts to the campus security group through
// the Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aegis-hub/aegis-portal/internal/domain/sos"
	"github.com/aegis-hub/aegis-portal/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// DefaultBaseURL is the public Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// ClientConfig contains configuration for the Telegram client.
type ClientConfig struct {
	// Token is the bot token from @BotFather.
	Token string

	// ChatID is the security group every alert goes to.
	ChatID string

	// BaseURL is the API base URL; tests point it at an httptest server.
	BaseURL string

	// Timeout bounds one HTTP round trip.
	Timeout time.Duration

	Logger *slog.Logger
}

// ErrNotConfigured is returned when the token or chat id is missing.
var ErrNotConfigured = errors.New("telegram: security channel not configured")

// ══════════════════════════════════════════════════════════════════════════════
// API TYPES
// ══════════════════════════════════════════════════════════════════════════════

// User is the bot identity returned by getMe.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username,omitempty"`
}

// Message is the subset of a sent message the client reads back.
type Message struct {
	MessageID int64 `json:"message_id"`
	Date      int64 `json:"date"`
}

// APIResponse represents a Telegram API response.
type APIResponse struct {
	OK          bool                `json:"ok"`
	Result      json.RawMessage     `json:"result,omitempty"`
	Description string              `json:"description,omitempty"`
	ErrorCode   int                 `json:"error_code,omitempty"`
	Parameters  *ResponseParameters `json:"parameters,omitempty"`
}

// ResponseParameters contains additional error parameters.
type ResponseParameters struct {
	RetryAfter int `json:"retry_after,omitempty"`
}

// APIError represents a Telegram API error.
type APIError struct {
	Code        int
	Description string
	RetryAfter  int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("telegram api error %d: %s", e.Code, e.Description)
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is a minimal Bot API client bound to one chat.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new Telegram client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: config.Logger.With("component", "telegram"),
	}
}

// Configured reports whether the client has a token and a destination.
func (c *Client) Configured() bool {
	return c.config.Token != "" && c.config.ChatID != ""
}

// Send posts text to the security chat. Rate limits, server errors and
// transport failures come back marked retryable; other client errors are
// permanent.
func (c *Client) Send(ctx context.Context, text string) error {
	if !c.Configured() {
		return retry.Permanent(ErrNotConfigured)
	}

	body := map[string]interface{}{
		"chat_id":                  c.config.ChatID,
		"text":                     text,
		"disable_web_page_preview": true,
	}

	var msg Message
	if err := c.callAPI(ctx, "sendMessage", body, &msg); err != nil {
		c.logger.Warn("security message not delivered", "error", err)
		return classify(fmt.Errorf("send message: %w", err))
	}

	c.logger.Debug("security message delivered", "message_id", msg.MessageID)
	return nil
}

// GetMe returns information about the bot.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var user User
	if err := c.callAPI(ctx, "getMe", nil, &user); err != nil {
		return nil, fmt.Errorf("get me: %w", err)
	}
	return &user, nil
}

// Ping checks that the token is accepted. The status probe uses it.
func (c *Client) Ping(ctx context.Context) error {
	if c.config.Token == "" {
		return ErrNotConfigured
	}
	_, err := c.GetMe(ctx)
	return err
}

// ══════════════════════════════════════════════════════════════════════════════
// INTERNAL
// ══════════════════════════════════════════════════════════════════════════════

// callAPI performs a single API call. Retrying is the caller's business.
func (c *Client) callAPI(ctx context.Context, method string, body map[string]interface{}, result interface{}) error {
	url := fmt.Sprintf("%s/bot%s/%s", c.config.BaseURL, c.config.Token, method)

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The URL carries the token; keep it out of the error.
		var uerr interface{ Unwrap() error }
		if errors.As(err, &uerr) && uerr.Unwrap() != nil {
			err = uerr.Unwrap()
		}
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return &APIError{Code: resp.StatusCode, Description: strings.TrimSpace(string(respBody))}
	}

	if !apiResp.OK {
		apiErr := &APIError{
			Code:        apiResp.ErrorCode,
			Description: apiResp.Description,
		}
		if apiErr.Code == 0 {
			apiErr.Code = resp.StatusCode
		}
		if apiResp.Parameters != nil {
			apiErr.RetryAfter = apiResp.Parameters.RetryAfter
		}
		return apiErr
	}

	if result != nil && len(apiResp.Result) > 0 {
		if err := json.Unmarshal(apiResp.Result, result); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}
	return nil
}

// classify marks err for the retry loop.
func classify(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500 {
			return retry.Retryable(err)
		}
		return retry.Permanent(err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return retry.Retryable(err)
}

var _ sos.Channel = (*Client)(nil)
