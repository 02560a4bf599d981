// Package daraja wraps the Safaricom Daraja API: OAuth token exchange and
// Lipa na M-Pesa Online (STK push) submission.
package daraja

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Muhsin-Gun/event-API/internal/config"
)

const (
	sandboxBaseURL    = "https://sandbox.safaricom.co.ke"
	productionBaseURL = "https://api.safaricom.co.ke"

	requestTimeout    = 15 * time.Second
	tokenAttempts     = 3
	tokenRetryBackoff = 500 * time.Millisecond
)

// ErrAuth means the OAuth handshake failed: credentials missing, provider
// unreachable, or provider rejected them. Callers treat this as "degrade to
// simulated", not as a terminal submission failure.
var ErrAuth = errors.New("daraja: could not obtain access token")

// RequestError is a genuine rejection: Daraja answered the push request with
// a non-success response. Body keeps the raw provider payload for diagnostics.
type RequestError struct {
	StatusCode  int
	Description string
	Body        []byte
}

func (e *RequestError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("daraja: push rejected: %s", e.Description)
	}
	return fmt.Sprintf("daraja: push rejected with status %d", e.StatusCode)
}

type PushRequest struct {
	IntentID         string
	Amount           int
	Phone            string // normalized 2547XXXXXXXX
	AccountReference string
	Description      string
}

type PushResponse struct {
	MerchantRequestID string
	CheckoutRequestID string
	CustomerMessage   string
	Simulated         bool
}

// Gateway is what the payment lifecycle talks to. Exactly two implementations
// exist: the live Client below and the Simulator used when credentials are
// not configured.
type Gateway interface {
	Name() string
	Simulated() bool
	STKPush(ctx context.Context, req PushRequest) (PushResponse, error)
}

type Client struct {
	cfg        config.MpesaConfig
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

func NewClient(cfg config.MpesaConfig, logger *slog.Logger) *Client {
	base := sandboxBaseURL
	if cfg.Env == "production" {
		base = productionBaseURL
	}
	return &Client{
		cfg:        cfg,
		baseURL:    base,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
		now:        time.Now,
	}
}

func (c *Client) Name() string    { return "daraja" }
func (c *Client) Simulated() bool { return false }

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// accessToken performs the client-credentials handshake. Bounded retry with
// backoff; after the last attempt the failure surfaces as ErrAuth.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if c.cfg.ConsumerKey == "" || c.cfg.ConsumerSecret == "" {
		return "", fmt.Errorf("%w: MPESA_CONSUMER_KEY / MPESA_CONSUMER_SECRET not configured", ErrAuth)
	}

	basic := base64.StdEncoding.EncodeToString([]byte(c.cfg.ConsumerKey + ":" + c.cfg.ConsumerSecret))
	url := c.baseURL + "/oauth/v1/generate?grant_type=client_credentials"

	var lastErr error
	for attempt := 1; attempt <= tokenAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrAuth, ctx.Err())
			case <-time.After(time.Duration(attempt-1) * tokenRetryBackoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrAuth, err)
		}
		req.Header.Set("Authorization", "Basic "+basic)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			c.logger.Warn("daraja token attempt failed", "attempt", attempt, "err", err)
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200))
			c.logger.Warn("daraja token rejected", "attempt", attempt, "status", resp.StatusCode)
			continue
		}

		var tr tokenResponse
		if err := json.Unmarshal(body, &tr); err != nil || tr.AccessToken == "" {
			lastErr = fmt.Errorf("malformed token response")
			continue
		}
		return tr.AccessToken, nil
	}

	return "", fmt.Errorf("%w: %v", ErrAuth, lastErr)
}

type pushPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int    `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// pushEnvelope covers both response shapes seen in the wild: the checkout id
// normally arrives top-level but some gateway versions tuck it inside
// ResponseMetadata.
type pushEnvelope struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
	ResponseMetadata    *struct {
		CheckoutRequestID string `json:"CheckoutRequestID"`
	} `json:"ResponseMetadata"`
}

func (e pushEnvelope) checkoutID() string {
	if e.CheckoutRequestID != "" {
		return e.CheckoutRequestID
	}
	if e.ResponseMetadata != nil {
		return e.ResponseMetadata.CheckoutRequestID
	}
	return ""
}

func (c *Client) STKPush(ctx context.Context, req PushRequest) (PushResponse, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return PushResponse{}, err
	}

	ts := c.now().Format("20060102150405")
	payload := pushPayload{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          derivePassword(c.cfg.ShortCode, c.cfg.Passkey, ts),
		Timestamp:         ts,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            req.Amount,
		PartyA:            req.Phone,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       req.Phone,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  req.AccountReference,
		TransactionDesc:   req.Description,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return PushResponse{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(body))
	if err != nil {
		return PushResponse{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Unreachable or timed out. Not a rejection; caller degrades.
		return PushResponse{}, fmt.Errorf("daraja: push request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return PushResponse{}, &RequestError{StatusCode: resp.StatusCode, Body: respBody}
	}

	var env pushEnvelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return PushResponse{}, &RequestError{StatusCode: resp.StatusCode, Description: "malformed response", Body: respBody}
	}
	if env.ResponseCode != "" && env.ResponseCode != "0" {
		return PushResponse{}, &RequestError{
			StatusCode:  resp.StatusCode,
			Description: env.ResponseDescription,
			Body:        respBody,
		}
	}

	return PushResponse{
		MerchantRequestID: env.MerchantRequestID,
		CheckoutRequestID: env.checkoutID(),
		CustomerMessage:   env.CustomerMessage,
	}, nil
}

// derivePassword builds the Lipa na M-Pesa password:
// base64(shortcode + passkey + timestamp).
func derivePassword(shortCode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passkey + timestamp))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
