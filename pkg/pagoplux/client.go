// Package pagoplux creates single-use payment links on the PagoPlux gateway.
package pagoplux

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrInvalidResponse is returned when the gateway answers without a link
var ErrInvalidResponse = errors.New("pagoplux returned no payment link")

// Defaults applied when the caller leaves optional fields empty
const (
	DefaultPrefix  = "+593"
	DefaultAddress = "Sin dirección"
	DefaultTaxID   = "consumidor final"
)

// Config holds configuration for the PagoPlux client
type Config struct {
	Endpoint string
	Token    string // Basic auth token
	RUC      string // merchant RUC in plain text, sent base64 encoded
	Timeout  time.Duration
}

// LinkRequest describes the charge a payment link is created for
type LinkRequest struct {
	Amount        float64
	Description   string
	CustomerName  string
	CustomerEmail string
	Phone         string
	Prefix        string
	Address       string
	TaxID         string
	IntentID      string // correlation id echoed back in the webhook extras
}

type createLinkBody struct {
	RUC           string  `json:"rucEstablecimiento"`
	AmountZero    float64 `json:"montoCero"`
	AmountTaxed   float64 `json:"monto12"`
	Description   string  `json:"descripcion"`
	SingleUse     bool    `json:"linkUnico"`
	IsQR          bool    `json:"esQR"`
	IsRecurring   bool    `json:"esRecurrente"`
	TaxID         string  `json:"ci"`
	CustomerName  string  `json:"nombreCliente"`
	CustomerEmail string  `json:"correoCliente"`
	Address       string  `json:"direccion"`
	Phone         string  `json:"telefono"`
	Prefix        string  `json:"prefijo"`
	Extras        string  `json:"extras,omitempty"`
}

type createLinkResponse struct {
	Code        int    `json:"code"`
	Description string `json:"description"`
	Detail      struct {
		URL string `json:"url"`
	} `json:"detail"`
}

// Client implements payment link creation via the PagoPlux REST API
type Client struct {
	endpoint string
	token    string
	ruc      string
	client   *http.Client
	logger   *logrus.Logger
}

// NewClient creates a new PagoPlux client
func NewClient(cfg Config, logger *logrus.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint: cfg.Endpoint,
		token:    cfg.Token,
		ruc:      base64.StdEncoding.EncodeToString([]byte(cfg.RUC)),
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// ExtrasFor builds the extras value that carries the intent id through the gateway
func ExtrasFor(intentID string) string {
	return url.Values{"intentId": {intentID}}.Encode()
}

// CreatePaymentLink requests a single-use payment link and returns its URL
func (c *Client) CreatePaymentLink(ctx context.Context, req LinkRequest) (string, error) {
	body := createLinkBody{
		RUC:           c.ruc,
		AmountTaxed:   req.Amount,
		Description:   req.Description,
		SingleUse:     true,
		TaxID:         orDefault(req.TaxID, DefaultTaxID),
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Address:       orDefault(req.Address, DefaultAddress),
		Phone:         req.Phone,
		Prefix:        orDefault(req.Prefix, DefaultPrefix),
	}
	if req.IntentID != "" {
		body.Extras = ExtrasFor(req.IntentID)
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payment link request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create payment link request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Basic "+c.token)

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send payment link request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read payment link response: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"intent_id":   req.IntentID,
		"status_code": resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("PagoPlux payment link response")

	var parsed createLinkResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse payment link response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("pagoplux returned status %d: %s", resp.StatusCode, parsed.Description)
	}
	if parsed.Detail.URL == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidResponse, string(respBody))
	}

	return parsed.Detail.URL, nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
