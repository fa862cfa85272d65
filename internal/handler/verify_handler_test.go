package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"pesagate/internal/domain"
	"pesagate/internal/service"

	"github.com/gin-gonic/gin"
)

type stubVerifier struct {
	result   *service.VerifyResult
	err      error
	orderID  uint
	orderKey string
	attempts int
}

func (s *stubVerifier) Verify(ctx context.Context, orderID uint, orderKey string, attempts int) (*service.VerifyResult, error) {
	s.orderID = orderID
	s.orderKey = orderKey
	s.attempts = attempts
	return s.result, s.err
}

type verifyEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		Status   string `json:"status"`
		Message  string `json:"message"`
		Attempts int    `json:"attempts"`
		Redirect string `json:"redirect"`
	} `json:"data"`
}

func postVerify(t *testing.T, h *VerifyHandler, form url.Values) (*httptest.ResponseRecorder, verifyEnvelope) {
	t.Helper()
	router := gin.New()
	router.POST("/api/v1/payments/verify", h.Handle)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/verify", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var env verifyEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	return w, env
}

func TestVerifyHandlerPending(t *testing.T) {
	verifier := &stubVerifier{result: &service.VerifyResult{Status: service.VerifyStatusPending, Attempts: 4}}
	h := NewVerifyHandler(verifier)

	form := url.Values{"order_id": {"9"}, "order_key": {"k"}, "attempts": {"3"}}
	w, env := postVerify(t, h, form)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !env.Success || env.Data.Status != "pending" || env.Data.Attempts != 4 {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if verifier.orderID != 9 || verifier.orderKey != "k" || verifier.attempts != 3 {
		t.Fatalf("form values not passed through: %+v", verifier)
	}
}

func TestVerifyHandlerInvalidOrder(t *testing.T) {
	verifier := &stubVerifier{err: domain.ErrInvalidOrderKey}
	h := NewVerifyHandler(verifier)

	_, env := postVerify(t, h, url.Values{"order_id": {"9"}, "order_key": {"wrong"}})
	if env.Success {
		t.Fatalf("expected error envelope, got %+v", env)
	}
	if env.Data.Message != "Invalid order" {
		t.Fatalf("unexpected message %q", env.Data.Message)
	}
}

func TestVerifyHandlerMissingFields(t *testing.T) {
	verifier := &stubVerifier{result: &service.VerifyResult{Status: service.VerifyStatusPending}}
	h := NewVerifyHandler(verifier)

	for _, form := range []url.Values{
		{},
		{"order_id": {"9"}},
		{"order_key": {"k"}},
		{"order_id": {"nine"}, "order_key": {"k"}},
	} {
		_, env := postVerify(t, h, form)
		if env.Success {
			t.Errorf("form %v: expected rejection, got %+v", form, env)
		}
	}
	if verifier.orderKey != "" {
		t.Fatal("verifier must not be called for incomplete requests")
	}
}
