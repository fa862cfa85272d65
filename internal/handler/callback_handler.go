package handler

import (
	"context"
	"io"
	"net/http"

	"pesagate/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CallbackProcessor reconciles a raw webhook body and always produces an
// acknowledgment.
type CallbackProcessor interface {
	ProcessCallback(ctx context.Context, body []byte) service.Ack
}

// CallbackHandler receives Safaricom's asynchronous STK result callbacks.
type CallbackHandler struct {
	reconciler CallbackProcessor
	log        *zap.Logger
}

func NewCallbackHandler(reconciler CallbackProcessor, log *zap.Logger) *CallbackHandler {
	return &CallbackHandler{reconciler: reconciler, log: log}
}

// Handle responds HTTP 200 with a ResultCode/ResultDesc body for every
// delivery that could be read at all; 500 only when the body itself could
// not be read.
func (h *CallbackHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.log.Error("failed to read callback body", zap.Error(err))
		c.JSON(http.StatusInternalServerError, service.Ack{ResultCode: 1, ResultDesc: "Could not read request body"})
		return
	}
	h.log.Debug("mpesa callback received", zap.ByteString("body", body))
	c.JSON(http.StatusOK, h.reconciler.ProcessCallback(c.Request.Context(), body))
}
