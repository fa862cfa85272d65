package daraja

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pesagate/config"

	"go.uber.org/zap"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.DarajaConfig{
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		Shortcode:      "174379",
		Passkey:        "passkey",
		BaseURL:        srv.URL,
	}, zap.NewNop())
}

func TestAccessToken(t *testing.T) {
	var gotAuth string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-123", "expires_in": "3599"})
	})
	token, err := c.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "tok-123" {
		t.Fatalf("expected tok-123, got %q", token)
	}
	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("key:secret"))
	if gotAuth != want {
		t.Fatalf("expected %q auth header, got %q", want, gotAuth)
	}
}

func TestAccessTokenMissingField(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"errorMessage": "Bad Request - Invalid Credentials"})
	})
	if _, err := c.AccessToken(context.Background()); err == nil {
		t.Fatal("expected error when access_token is absent")
	}
}

func TestAccessTokenTransportError(t *testing.T) {
	c := NewClient(config.DarajaConfig{BaseURL: "http://127.0.0.1:1"}, zap.NewNop())
	c.httpClient.Timeout = time.Second
	if _, err := c.AccessToken(context.Background()); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestSTKPush(t *testing.T) {
	var pushBody stkPushBody
	var bearer string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/oauth/") {
			json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-123"})
			return
		}
		bearer = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&pushBody); err != nil {
			t.Errorf("decode push body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"MerchantRequestID": "29115-34620561-1",
			"CheckoutRequestID": "ws_CO_191220191020363925",
			"ResponseCode":      "0",
			"CustomerMessage":   "Success. Request accepted for processing",
		})
	})
	c.now = func() time.Time { return time.Date(2019, 12, 19, 10, 20, 36, 0, time.UTC) }

	resp, err := c.STKPush(context.Background(), STKPushRequest{
		Phone:            "254712345678",
		Amount:           1,
		AccountReference: "ORDER-42",
		Description:      "Payment for order #42",
		CallbackURL:      "https://shop.example.com/api/v1/mpesa/callback",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.CheckoutRequestID != "ws_CO_191220191020363925" {
		t.Fatalf("unexpected checkout request id %q", resp.CheckoutRequestID)
	}
	if bearer != "Bearer tok-123" {
		t.Fatalf("expected bearer token header, got %q", bearer)
	}
	if pushBody.Timestamp != "20191219102036" {
		t.Fatalf("unexpected timestamp %q", pushBody.Timestamp)
	}
	wantPassword := base64.StdEncoding.EncodeToString([]byte("174379" + "passkey" + "20191219102036"))
	if pushBody.Password != wantPassword {
		t.Fatalf("unexpected password %q", pushBody.Password)
	}
	if pushBody.TransactionType != "CustomerPayBillOnline" {
		t.Fatalf("unexpected transaction type %q", pushBody.TransactionType)
	}
	if pushBody.PartyA != "254712345678" || pushBody.PhoneNumber != "254712345678" {
		t.Fatalf("payer fields not set: %+v", pushBody)
	}
	if pushBody.PartyB != "174379" || pushBody.BusinessShortCode != "174379" {
		t.Fatalf("shortcode fields not set: %+v", pushBody)
	}
}

func TestSTKPushProviderRejection(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/oauth/") {
			json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-123"})
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"errorMessage": "Invalid PhoneNumber"})
	})
	_, err := c.STKPush(context.Background(), STKPushRequest{Phone: "123", Amount: 1})
	if err == nil {
		t.Fatal("expected error for non-zero response code")
	}
	if !strings.Contains(err.Error(), "Invalid PhoneNumber") {
		t.Fatalf("expected provider message in error, got %v", err)
	}
}

func TestSTKPushFailsWithoutToken(t *testing.T) {
	pushed := false
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/oauth/") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		pushed = true
	})
	if _, err := c.STKPush(context.Background(), STKPushRequest{Phone: "254712345678", Amount: 1}); err == nil {
		t.Fatal("expected error when token fetch fails")
	}
	if pushed {
		t.Fatal("push endpoint must not be called without a token")
	}
}

func TestBaseURLSelection(t *testing.T) {
	sandbox := NewClient(config.DarajaConfig{Sandbox: true}, zap.NewNop())
	if sandbox.baseURL != sandboxBaseURL {
		t.Fatalf("expected sandbox base url, got %q", sandbox.baseURL)
	}
	live := NewClient(config.DarajaConfig{Sandbox: false}, zap.NewNop())
	if live.baseURL != liveBaseURL {
		t.Fatalf("expected live base url, got %q", live.baseURL)
	}
}
