package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// Daraja callback envelope. The interesting part is nested two levels deep;
// anything outside it is carried verbatim into raw_callback for audit.
type CallbackEnvelope struct {
	Body CallbackBody `json:"Body"`
}

type CallbackBody struct {
	StkCallback *StkCallback `json:"stkCallback"`
}

type StkCallback struct {
	MerchantRequestID string            `json:"MerchantRequestID"`
	CheckoutRequestID string            `json:"CheckoutRequestID"`
	ResultCode        int               `json:"ResultCode"`
	ResultDesc        string            `json:"ResultDesc"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata,omitempty"`
}

type CallbackMetadata struct {
	Item []CallbackItem `json:"Item"`
}

type CallbackItem struct {
	Name  string `json:"Name"`
	Value any    `json:"Value,omitempty"`
}

// ReceiptNumber pulls MpesaReceiptNumber out of the flat metadata item list.
func (m *CallbackMetadata) ReceiptNumber() string {
	if m == nil {
		return ""
	}
	for _, it := range m.Item {
		if it.Name != "MpesaReceiptNumber" || it.Value == nil {
			continue
		}
		if s, ok := it.Value.(string); ok {
			return s
		}
		return fmt.Sprint(it.Value)
	}
	return ""
}

// Callback outcomes, mostly for logs and tests. Whatever the outcome, the
// HTTP layer acknowledges the provider: Daraja retries anything that is not a
// 200, and there is no way to report a processing failure without triggering
// that.
const (
	OutcomeApplied   = "applied"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
	OutcomeNoMatch   = "no_match"
)

// CallbackService is the asynchronous half of the payment protocol: it
// matches a Daraja result to its intent and applies the terminal transition
// exactly once.
type CallbackService struct {
	repo   *Repo
	logger *slog.Logger
}

func NewCallbackService(repo *Repo, logger *slog.Logger) *CallbackService {
	return &CallbackService{repo: repo, logger: logger}
}

func (s *CallbackService) Handle(ctx context.Context, rawBody []byte) (string, error) {
	var env CallbackEnvelope
	if err := json.Unmarshal(rawBody, &env); err != nil {
		s.logger.WarnContext(ctx, "mpesa callback: unparseable body", "err", err)
		return OutcomeIgnored, nil
	}

	cb := env.Body.StkCallback
	if cb == nil {
		// Malformed but harmless; acknowledge so the provider stops retrying.
		s.logger.WarnContext(ctx, "mpesa callback: missing stkCallback body")
		return OutcomeIgnored, nil
	}

	p, err := s.repo.FindByCheckoutID(ctx, cb.CheckoutRequestID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, "mpesa callback: no payment for checkout id",
				"checkout_request_id", cb.CheckoutRequestID)
			return OutcomeNoMatch, nil
		}
		return "", err
	}

	upd := ResultUpdate{RawCallback: rawBody}
	if cb.ResultCode == 0 {
		upd.Status = StatusSuccess
		if receipt := cb.CallbackMetadata.ReceiptNumber(); receipt != "" {
			upd.Receipt = &receipt
		}
	} else {
		upd.Status = StatusFailed
		if cb.ResultDesc != "" {
			reason := truncate(cb.ResultDesc, 250)
			upd.FailureReason = &reason
		}
	}

	settled, applied, err := s.repo.MarkResult(ctx, p.ID, upd)
	if err != nil {
		return "", err
	}
	if !applied {
		// Replayed or raced callback; the first terminal write won.
		s.logger.InfoContext(ctx, "mpesa callback deduplicated",
			"payment_id", settled.ID, "status", settled.Status,
			"checkout_request_id", cb.CheckoutRequestID)
		return OutcomeDuplicate, nil
	}

	s.logger.InfoContext(ctx, "mpesa callback applied",
		"payment_id", settled.ID, "status", settled.Status,
		"result_code", cb.ResultCode,
		"checkout_request_id", cb.CheckoutRequestID)
	return OutcomeApplied, nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
