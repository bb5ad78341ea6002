package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourorg/sips-gateway/internal/merchant"
	"github.com/yourorg/sips-gateway/internal/monitor"
	"github.com/yourorg/sips-gateway/internal/orchestrator"
	"github.com/yourorg/sips-gateway/internal/processor"
	"github.com/yourorg/sips-gateway/internal/protocol"
	"github.com/yourorg/sips-gateway/internal/reporting"
	"github.com/yourorg/sips-gateway/internal/requestbuilder"
)

// notificationField is the form field the gateway posts its encrypted
// response in.
const notificationField = "DATA"

type dependencies struct {
	orchestrator *orchestrator.Orchestrator
	monitor      *monitor.ContractMonitor
	journal      *reporting.Journal
	reporter     *reporting.RetrospectiveReporter
	logger       *zap.Logger
}

type handlers struct {
	dependencies
}

func (h *handlers) startPayment(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	valid, validationErrs, err := h.monitor.Validate(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": monitor.FormatErrors(validationErrs)})
		return
	}

	var req requestbuilder.PaymentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	start, err := h.orchestrator.StartPayment(c.Request.Context(), c.Param("merchant_id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, start)
}

func (h *handlers) handleNotification(c *gin.Context) {
	raw := c.PostForm(notificationField)
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing form field " + notificationField})
		return
	}

	tx, err := h.orchestrator.HandleNotification(c.Request.Context(), c.Param("merchant_id"), raw)
	var finErr *processor.FinancialError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, tx)
	case errors.As(err, &finErr):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": finErr.Error(), "transaction": tx})
	default:
		h.fail(c, err)
	}
}

func (h *handlers) retrospective(c *gin.Context) {
	report, err := h.reporter.GenerateRetrospective(h.journal.Entries())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// fail maps service errors onto HTTP statuses.
func (h *handlers) fail(c *gin.Context, err error) {
	var (
		execErr *protocol.ExecutionError
		respErr *protocol.ResponseError
		status  int
	)
	switch {
	case errors.Is(err, merchant.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, requestbuilder.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, processor.ErrTransactionFinalized):
		status = http.StatusConflict
	case errors.As(err, &execErr), errors.As(err, &respErr):
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
	}
	if status < http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	// Gateway errors carry binary paths and stderr; those stay in the log.
	h.logger.Error("Request failed",
		zap.String("path", c.FullPath()),
		zap.Int("status", status),
		zap.Error(err),
	)
	c.JSON(status, gin.H{"error": http.StatusText(status)})
}

// requestLogger writes one zap entry per request.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
