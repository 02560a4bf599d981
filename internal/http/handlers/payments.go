package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Muhsin-Gun/event-API/internal/http/middleware"
	"github.com/Muhsin-Gun/event-API/internal/http/validation"
	"github.com/Muhsin-Gun/event-API/internal/modules/payments"
	"github.com/Muhsin-Gun/event-API/internal/modules/payments/daraja"
	"github.com/Muhsin-Gun/event-API/internal/shared/apperr"
)

type PaymentHandler struct {
	Service   *payments.Service
	Callbacks *payments.CallbackService
	Repo      *payments.Repo
	Logger    *slog.Logger
}

type stkPushInput struct {
	EventID        string `json:"eventId"`
	Phone          string `json:"phone" binding:"required"`
	Amount         int    `json:"amount"`
	IdempotencyKey string `json:"idempotencyKey"`
}

// StkPush initiates a payment for the authenticated user.
func (h *PaymentHandler) StkPush(c *gin.Context) {
	var in stkPushInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("phone required", validation.FromBindError(err, &in)))
		return
	}

	userID := middleware.CurrentUserID(c)
	if userID == "" {
		middleware.Fail(c, apperr.UnauthorizedErr("authentication required"))
		return
	}

	res, err := h.Service.Initiate(c.Request.Context(), payments.InitiateInput{
		UserID:         userID,
		EventID:        in.EventID,
		Phone:          in.Phone,
		Amount:         in.Amount,
		IdempotencyKey: in.IdempotencyKey,
	})
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrNoAmount):
			middleware.Fail(c, apperr.InvalidErr("Event has no valid price and no amount provided", nil))
		case errors.Is(err, payments.ErrInvalidPhone):
			middleware.Fail(c, apperr.InvalidErr("Invalid phone format (use 2547XXXXXXXX)", nil))
		default:
			var reqErr *daraja.RequestError
			if errors.As(err, &reqErr) {
				msg := "Payment rejected by provider"
				if reqErr.Description != "" {
					msg += ", reason: " + reqErr.Description
				}
				middleware.Fail(c, apperr.GatewayErr(msg, err))
				return
			}
			middleware.Fail(c, apperr.Wrap(err))
		}
		return
	}

	resp := gin.H{
		"success":   true,
		"message":   res.Message,
		"paymentId": res.PaymentID,
		"status":    res.Status,
	}
	if res.CheckoutRequestID != "" {
		resp["checkoutRequestId"] = res.CheckoutRequestID
	}
	if res.MerchantRequestID != "" {
		resp["merchantRequestId"] = res.MerchantRequestID
	}
	if res.Simulated {
		resp["simulated"] = true
	}
	if res.Idempotent {
		resp["idempotent"] = true
	}
	c.JSON(http.StatusOK, resp)
}

// Callback receives Daraja's asynchronous result. The provider retries on
// anything but a 200 acknowledgment, so this always answers
// {ResultCode: 0, ResultDesc: "Accepted"} regardless of processing outcome.
func (h *PaymentHandler) Callback(c *gin.Context) {
	ack := gin.H{"ResultCode": 0, "ResultDesc": "Accepted"}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.Logger.Warn("mpesa callback: body read failed", "err", err)
		c.JSON(http.StatusOK, ack)
		return
	}

	outcome, err := h.Callbacks.Handle(c.Request.Context(), body)
	if err != nil {
		// Internal failure; logged, never surfaced to the provider.
		h.Logger.Error("mpesa callback: processing failed",
			"request_id", middleware.GetRequestID(c), "err", err)
	} else if outcome != payments.OutcomeApplied {
		h.Logger.Info("mpesa callback acknowledged without transition", "outcome", outcome)
	}

	c.JSON(http.StatusOK, ack)
}

// Status serves polling clients waiting on a callback.
func (h *PaymentHandler) Status(c *gin.Context) {
	checkoutID := c.Param("checkoutRequestId")

	p, err := h.Service.StatusByCheckoutID(c.Request.Context(), checkoutID)
	if err != nil {
		if errors.Is(err, payments.ErrNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Payment not found"))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	resp := gin.H{
		"paymentId": p.ID,
		"status":    p.Status,
		"amount":    p.Amount,
	}
	if p.MpesaReceiptNumber != nil {
		resp["mpesaReceiptNumber"] = *p.MpesaReceiptNumber
	}
	if p.FailureReason != nil {
		resp["failureReason"] = *p.FailureReason
	}
	c.JSON(http.StatusOK, resp)
}

// ListMine returns the caller's own payment history.
func (h *PaymentHandler) ListMine(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID == "" {
		middleware.Fail(c, apperr.UnauthorizedErr("authentication required"))
		return
	}

	page := intQuery(c, "page", 1)
	limit := intQuery(c, "limit", 10)

	items, total, err := h.Repo.ListByUser(c.Request.Context(), userID, page, limit)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	out := make([]gin.H, len(items))
	for i, p := range items {
		row := gin.H{
			"paymentId": p.ID,
			"status":    p.Status,
			"amount":    p.Amount,
			"phone":     p.Phone,
			"createdAt": p.CreatedAt,
		}
		if p.EventID != nil {
			row["eventId"] = *p.EventID
		}
		if p.MpesaReceiptNumber != nil {
			row["mpesaReceiptNumber"] = *p.MpesaReceiptNumber
		}
		out[i] = row
	}
	c.JSON(http.StatusOK, gin.H{
		"data": out,
		"meta": pageMeta(page, limit, total),
	})
}
