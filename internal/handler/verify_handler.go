package handler

import (
	"context"
	"net/http"
	"strconv"

	"pesagate/internal/service"

	"github.com/gin-gonic/gin"
)

type PaymentVerifier interface {
	Verify(ctx context.Context, orderID uint, orderKey string, attempts int) (*service.VerifyResult, error)
}

// VerifyHandler is the poll RPC the checkout wait page calls until the
// payment settles or it gives up. Form-encoded to match the browser script.
type VerifyHandler struct {
	verifier PaymentVerifier
}

func NewVerifyHandler(verifier PaymentVerifier) *VerifyHandler {
	return &VerifyHandler{verifier: verifier}
}

func (h *VerifyHandler) Handle(c *gin.Context) {
	orderIDRaw := c.PostForm("order_id")
	orderKey := c.PostForm("order_key")
	if orderIDRaw == "" || orderKey == "" {
		c.JSON(http.StatusOK, gin.H{"success": false, "data": gin.H{"message": "Invalid request"}})
		return
	}
	orderID, err := strconv.ParseUint(orderIDRaw, 10, 32)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "data": gin.H{"message": "Invalid request"}})
		return
	}
	attempts, _ := strconv.Atoi(c.DefaultPostForm("attempts", "0"))

	result, err := h.verifier.Verify(c.Request.Context(), uint(orderID), orderKey, attempts)
	if err != nil {
		// Same answer for a missing order and a bad key.
		c.JSON(http.StatusOK, gin.H{"success": false, "data": gin.H{"message": "Invalid order"}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}
