package payments

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
	"sync"
	"time"

	"voyago/internal/shared/config"
	"voyago/pkg/logger"
)

// Client drives the payment provider's order lifecycle: create an
// order, send the buyer to its approve link, capture once approved. A
// capture call is safe to issue at most once per approved order.
type Client interface {
	CreateOrder(ctx context.Context, amount float64, currency, returnURL, cancelURL string) (*Order, error)
	CaptureOrder(ctx context.Context, orderID string) (*CaptureResult, error)
}

// Order is the typed result of order creation. ApproveURL is the
// buyer-facing redirect; it is always non-empty.
type Order struct {
	ID         string
	ApproveURL string
	Status     string
}

// CaptureResult is the typed outcome of a capture call
type CaptureResult struct {
	OrderID string
	Status  string
}

type client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	log          *logger.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewClient(cfg config.GatewayConfig) Client {
	return &client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		log:          logger.GetDefault(),
	}
}

// tokenResponse is the OAuth client-credentials exchange payload
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type orderAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnit struct {
	Amount orderAmount `json:"amount"`
}

type applicationContext struct {
	ReturnURL string `json:"return_url"`
	CancelURL string `json:"cancel_url"`
}

type createOrderRequest struct {
	Intent             string             `json:"intent"`
	PurchaseUnits      []purchaseUnit     `json:"purchase_units"`
	ApplicationContext applicationContext `json:"application_context"`
}

type orderLink struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type orderResponse struct {
	ID     string      `json:"id"`
	Status string      `json:"status"`
	Links  []orderLink `json:"links"`
}

// getAccessToken returns a cached token or runs the client-credentials
// exchange. A small margin keeps us from using a token right at its
// expiry edge.
func (c *client) getAccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}
	return c.refreshTokenLocked(ctx)
}

// forceTokenRefresh drops the cached token and re-acquires. Used after
// a 401 from any gateway call.
func (c *client) forceTokenRefresh(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshTokenLocked(ctx)
}

func (c *client) refreshTokenLocked(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenAcquisition, err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenAcquisition, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: status %d: %s", ErrTokenAcquisition, resp.StatusCode, string(body))
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenAcquisition, err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrTokenAcquisition)
	}

	c.accessToken = token.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - 60*time.Second)
	return c.accessToken, nil
}

// doAuthorized sends an authorized gateway request. On a 401 it
// re-acquires the token and retries exactly once.
func (c *client) doAuthorized(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	token, err := c.getAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	send := func(token string) (*http.Response, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		return c.httpClient.Do(req)
	}

	resp, err := send(token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		token, err = c.forceTokenRefresh(ctx)
		if err != nil {
			return nil, err
		}
		return send(token)
	}
	return resp, nil
}

func (c *client) CreateOrder(ctx context.Context, amount float64, currency, returnURL, cancelURL string) (*Order, error) {
	payload, err := json.Marshal(createOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			Amount: orderAmount{
				CurrencyCode: currency,
				Value:        strconv.FormatFloat(amount, 'f', 2, 64),
			},
		}},
		ApplicationContext: applicationContext{
			ReturnURL: returnURL,
			CancelURL: cancelURL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderCreationFailed, err)
	}

	resp, err := c.doAuthorized(ctx, http.MethodPost, "/v2/checkout/orders", payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderCreationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", ErrOrderCreationFailed, resp.StatusCode, string(body))
	}

	var order orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderCreationFailed, err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("%w: response missing order id", ErrOrderCreationFailed)
	}

	approveURL := ""
	for _, link := range order.Links {
		if link.Rel == "approve" {
			approveURL = link.Href
			break
		}
	}
	if approveURL == "" {
		return nil, fmt.Errorf("%w: response missing approve link", ErrOrderCreationFailed)
	}

	return &Order{
		ID:         order.ID,
		ApproveURL: approveURL,
		Status:     order.Status,
	}, nil
}

func (c *client) CaptureOrder(ctx context.Context, orderID string) (*CaptureResult, error) {
	resp, err := c.doAuthorized(ctx, http.MethodPost,
		fmt.Sprintf("/v2/checkout/orders/%s/capture", orderID), []byte("{}"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", ErrCaptureFailed, resp.StatusCode, string(body))
	}

	var capture orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&capture); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}

	return &CaptureResult{
		OrderID: capture.ID,
		Status:  capture.Status,
	}, nil
}
