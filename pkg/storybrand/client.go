// Package storybrand manages accounts on the external StoryBrand platform.
package storybrand

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

	"github.com/sirupsen/logrus"
)

// APIError is a non-2xx answer from the StoryBrand service
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storybrand returned status %d: %s", e.StatusCode, e.Message)
}

// CreateAccountRequest is the account payload sent to StoryBrand
type CreateAccountRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	ClientReference string `json:"clientReference"`
}

// Client talks to the StoryBrand REST API
type Client struct {
	baseURL string
	client  *http.Client
	logger  *logrus.Logger
}

// NewClient creates a new StoryBrand client
func NewClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// CreateAccount creates the external account and returns its raw representation
func (c *Client) CreateAccount(ctx context.Context, req CreateAccountRequest) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := c.do(ctx, http.MethodPost, "/api/storybrand-account", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ChangePassword sets a new password on the external account and returns the
// updated user, if the service sent one back
func (c *Client) ChangePassword(ctx context.Context, externalUserID, newPassword string) (map[string]interface{}, error) {
	body := map[string]string{"userId": externalUserID, "newPassword": newPassword}
	var out struct {
		User map[string]interface{} `json:"user"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/storybrand-account/password", body, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// DeleteAccount removes the external account
func (c *Client) DeleteAccount(ctx context.Context, externalUserID string) error {
	return c.do(ctx, http.MethodDelete, "/api/storybrand-account/"+url.PathEscape(externalUserID), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal storybrand request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create storybrand request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach storybrand: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read storybrand response: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"method":      method,
		"path":        path,
		"status_code": resp.StatusCode,
	}).Debug("StoryBrand response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: "Error connecting to StoryBrand API"}
		var parsed struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(respBody, &parsed) == nil && parsed.Message != "" {
			apiErr.Message = parsed.Message
		}
		return apiErr
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse storybrand response: %w", err)
		}
	}
	return nil
}

// ExternalUserID extracts the account id from stored account data.
// The service has answered with user._id, id and _id over time.
func ExternalUserID(accountData map[string]interface{}) string {
	if user, ok := accountData["user"].(map[string]interface{}); ok {
		if id, ok := user["_id"].(string); ok && id != "" {
			return id
		}
	}
	for _, key := range []string{"id", "_id"} {
		if id, ok := accountData[key].(string); ok && id != "" {
			return id
		}
	}
	return ""
}
