package payments

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Muhsin-Gun/event-API/internal/modules/payments/daraja"
)

// idempotencyWindow bounds how long a client idempotency key pins the same
// intent. A retried submission inside the window returns the existing intent
// instead of creating (and charging) a second one.
const idempotencyWindow = time.Hour

// PriceSource resolves the authoritative price of a referenced event. The
// caller-supplied amount is only ever a fallback; when the event has a
// positive price it always wins.
type PriceSource interface {
	// EventPricing returns the price in whole KES and the event title.
	// A not-found error is tolerated: the intent falls back to the
	// caller-supplied amount, matching how stale event references behave.
	EventPricing(ctx context.Context, eventID string) (price int, title string, err error)
}

type Service struct {
	repo    *Repo
	gateway daraja.Gateway
	prices  PriceSource
	logger  *slog.Logger
}

func NewService(repo *Repo, gateway daraja.Gateway, prices PriceSource, logger *slog.Logger) *Service {
	return &Service{repo: repo, gateway: gateway, prices: prices, logger: logger}
}

type InitiateInput struct {
	UserID         string
	EventID        string // optional
	Phone          string
	Amount         int    // fallback only; ignored when the event has a price
	IdempotencyKey string // optional
}

type InitiateResult struct {
	PaymentID         string
	Status            string
	MerchantRequestID string
	CheckoutRequestID string
	Simulated         bool
	Idempotent        bool
	Message           string
}

// Initiate is the synchronous half of the payment protocol: resolve the
// authoritative amount, normalize the payer phone, persist a PENDING intent,
// then attempt the STK push. The intent is written before any network call so
// a crash mid-submission still leaves an auditable record.
func (s *Service) Initiate(ctx context.Context, in InitiateInput) (InitiateResult, error) {
	amount, eventTitle, err := s.resolveAmount(ctx, in)
	if err != nil {
		return InitiateResult{}, err
	}

	phone := NormalizePhone(in.Phone)
	if !ValidMSISDN(phone) {
		return InitiateResult{}, ErrInvalidPhone
	}

	if in.IdempotencyKey != "" {
		existing, err := s.repo.FindByIdempotencyKey(ctx, in.UserID, in.IdempotencyKey, idempotencyWindow)
		if err == nil {
			s.logger.InfoContext(ctx, "payment initiate deduplicated by idempotency key",
				"payment_id", existing.ID, "user_id", in.UserID)
			return resultFromExisting(existing), nil
		}
		if !errors.Is(err, ErrNotFound) {
			return InitiateResult{}, err
		}
	}

	now := time.Now()
	p := Payment{
		ID:        uuid.NewString(),
		UserID:    in.UserID,
		Amount:    amount,
		Phone:     phone,
		Method:    "mpesa",
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.EventID != "" {
		eventID := in.EventID
		p.EventID = &eventID
	}
	if in.IdempotencyKey != "" {
		key := in.IdempotencyKey
		p.IdempotencyKey = &key
	}
	if err := s.repo.Create(ctx, &p); err != nil {
		return InitiateResult{}, err
	}

	accountRef := "EVT-" + p.ID
	if in.EventID != "" {
		accountRef = "EVT-" + in.EventID
	}
	desc := "Event Ticket Direct Payment"
	if eventTitle != "" {
		desc = "Event Ticket " + eventTitle
	}

	resp, pushErr := s.gateway.STKPush(ctx, daraja.PushRequest{
		IntentID:         p.ID,
		Amount:           amount,
		Phone:            phone,
		AccountReference: accountRef,
		Description:      desc,
	})

	if pushErr != nil {
		var reqErr *daraja.RequestError
		if errors.As(pushErr, &reqErr) {
			// Genuine rejection: terminal failure, surfaced to the caller.
			reason := reqErr.Error()
			if _, _, err := s.repo.MarkResult(ctx, p.ID, ResultUpdate{
				Status:        StatusFailed,
				FailureReason: &reason,
			}); err != nil {
				return InitiateResult{}, err
			}
			s.logger.WarnContext(ctx, "stk push rejected by provider",
				"payment_id", p.ID, "status", reqErr.StatusCode, "desc", reqErr.Description)
			return InitiateResult{}, pushErr
		}

		// Credentials missing, provider unreachable, or handshake rejected:
		// degrade instead of failing the caller. The intent keeps PENDING
		// with synthetic refs for out-of-band reconciliation.
		s.logger.WarnContext(ctx, "stk push degraded to simulated", "payment_id", p.ID, "err", pushErr)
		if err := s.repo.SetGatewayRefs(ctx, p.ID, "DEV-MERCHANT-"+p.ID, "DEV-CHECKOUT-"+p.ID); err != nil {
			return InitiateResult{}, err
		}
		return InitiateResult{
			PaymentID:         p.ID,
			Status:            StatusPending,
			MerchantRequestID: "DEV-MERCHANT-" + p.ID,
			CheckoutRequestID: "DEV-CHECKOUT-" + p.ID,
			Simulated:         true,
			Message:           "Could not reach payment provider. Simulated STK push created.",
		}, nil
	}

	if err := s.repo.SetGatewayRefs(ctx, p.ID, resp.MerchantRequestID, resp.CheckoutRequestID); err != nil {
		return InitiateResult{}, err
	}

	s.logger.InfoContext(ctx, "stk push initiated",
		"payment_id", p.ID, "checkout_request_id", resp.CheckoutRequestID, "simulated", resp.Simulated)

	msg := "STK push initiated"
	if resp.Simulated {
		msg = resp.CustomerMessage
	}
	return InitiateResult{
		PaymentID:         p.ID,
		Status:            StatusPending,
		MerchantRequestID: resp.MerchantRequestID,
		CheckoutRequestID: resp.CheckoutRequestID,
		Simulated:         resp.Simulated,
		Message:           msg,
	}, nil
}

func (s *Service) resolveAmount(ctx context.Context, in InitiateInput) (amount int, eventTitle string, err error) {
	if in.EventID != "" && s.prices != nil {
		price, title, perr := s.prices.EventPricing(ctx, in.EventID)
		if perr != nil {
			// Stale or bad reference; keep going with the fallback amount.
			s.logger.WarnContext(ctx, "event price lookup failed", "event_id", in.EventID, "err", perr)
		} else if price > 0 {
			return price, title, nil
		} else {
			eventTitle = title
		}
	}
	if in.Amount > 0 {
		return in.Amount, eventTitle, nil
	}
	return 0, "", ErrNoAmount
}

// StatusByCheckoutID serves polling clients: the synchronous response never
// reflects final status, the callback does.
func (s *Service) StatusByCheckoutID(ctx context.Context, checkoutID string) (Payment, error) {
	return s.repo.FindByCheckoutID(ctx, checkoutID)
}

func resultFromExisting(p Payment) InitiateResult {
	out := InitiateResult{
		PaymentID:  p.ID,
		Status:     p.Status,
		Idempotent: true,
		Message:    "Existing payment returned for idempotency key",
	}
	if p.MerchantRequestID != nil {
		out.MerchantRequestID = *p.MerchantRequestID
	}
	if p.CheckoutRequestID != nil {
		out.CheckoutRequestID = *p.CheckoutRequestID
	}
	return out
}
