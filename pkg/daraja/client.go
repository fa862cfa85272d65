package daraja

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pesagate/config"

	"go.uber.org/zap"
)

const (
	sandboxBaseURL = "https://sandbox.safaricom.co.ke"
	liveBaseURL    = "https://api.safaricom.co.ke"

	tokenPath   = "/oauth/v1/generate?grant_type=client_credentials"
	stkPushPath = "/mpesa/stkpush/v1/processrequest"
)

// Client talks to the Safaricom Daraja API: OAuth token fetch and STK push
// initiation. It is stateless; every push fetches a fresh token. No retries,
// a single attempt per call.
type Client struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	shortcode      string
	passkey        string
	httpClient     *http.Client
	log            *zap.Logger

	// now is a hook for tests that pin the STK password timestamp.
	now func() time.Time
}

func NewClient(cfg config.DarajaConfig, log *zap.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		if cfg.Sandbox {
			baseURL = sandboxBaseURL
		} else {
			baseURL = liveBaseURL
		}
	}
	return &Client{
		baseURL:        baseURL,
		consumerKey:    cfg.ConsumerKey,
		consumerSecret: cfg.ConsumerSecret,
		shortcode:      cfg.Shortcode,
		passkey:        cfg.Passkey,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		log:            log,
		now:            time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// AccessToken fetches an OAuth bearer token using Basic auth over the
// consumer key/secret.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+tokenPath, nil)
	if err != nil {
		return "", err
	}
	credentials := base64.StdEncoding.EncodeToString([]byte(c.consumerKey + ":" + c.consumerSecret))
	req.Header.Set("Authorization", "Basic "+credentials)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("daraja token request failed", zap.Error(err))
		return "", fmt.Errorf("daraja token: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var out tokenResponse
	if err := json.Unmarshal(body, &out); err != nil || out.AccessToken == "" {
		c.log.Error("daraja token response missing access_token",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return "", fmt.Errorf("daraja token: invalid response (status %d)", resp.StatusCode)
	}
	return out.AccessToken, nil
}

// STKPushRequest carries everything needed to prompt a payer's phone.
// Amount is whole KES.
type STKPushRequest struct {
	Phone            string
	Amount           int64
	AccountReference string
	Description      string
	CallbackURL      string
}

// STKPushResponse is the provider's synchronous answer. CheckoutRequestID
// correlates the push with its eventual result callback.
type STKPushResponse struct {
	CheckoutRequestID string
	MerchantRequestID string
	CustomerMessage   string
	Raw               json.RawMessage
}

type stkPushBody struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushReply struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
	ErrorMessage        string `json:"errorMessage"`
}

// STKPush initiates a payment prompt on the payer's phone. It fails fast if
// no token can be obtained; a non-"0" ResponseCode is returned as an error
// carrying the provider's message.
func (c *Client) STKPush(ctx context.Context, req STKPushRequest) (*STKPushResponse, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("authenticate with daraja: %w", err)
	}

	timestamp := c.now().Format("20060102150405")
	password := base64.StdEncoding.EncodeToString([]byte(c.shortcode + c.passkey + timestamp))

	payload := stkPushBody{
		BusinessShortCode: c.shortcode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            req.Amount,
		PartyA:            req.Phone,
		PartyB:            c.shortcode,
		PhoneNumber:       req.Phone,
		CallBackURL:       req.CallbackURL,
		AccountReference:  req.AccountReference,
		TransactionDesc:   req.Description,
	}
	body, _ := json.Marshal(payload)

	apiReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+stkPushPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	apiReq.Header.Set("Authorization", "Bearer "+token)
	apiReq.Header.Set("Content-Type", "application/json")

	c.log.Debug("daraja stk push",
		zap.String("phone", req.Phone),
		zap.Int64("amount", req.Amount),
		zap.String("reference", req.AccountReference))

	resp, err := c.httpClient.Do(apiReq)
	if err != nil {
		c.log.Error("daraja stk push request failed", zap.Error(err))
		return nil, fmt.Errorf("initiate payment request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	c.log.Debug("daraja stk push response",
		zap.Int("status", resp.StatusCode),
		zap.ByteString("body", respBody))

	var out stkPushReply
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("initiate payment request: unexpected response (status %d)", resp.StatusCode)
	}
	if out.ResponseCode != "0" {
		msg := out.ErrorMessage
		if msg == "" {
			msg = out.ResponseDescription
		}
		if msg == "" {
			msg = fmt.Sprintf("payment request failed (status %d)", resp.StatusCode)
		}
		return nil, fmt.Errorf("daraja: %s", msg)
	}
	return &STKPushResponse{
		CheckoutRequestID: out.CheckoutRequestID,
		MerchantRequestID: out.MerchantRequestID,
		CustomerMessage:   out.CustomerMessage,
		Raw:               respBody,
	}, nil
}
