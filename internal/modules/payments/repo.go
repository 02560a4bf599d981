package payments

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Create(ctx context.Context, p *Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *Repo) GetByID(ctx context.Context, id string) (Payment, error) {
	var p Payment
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Payment{}, ErrNotFound
	}
	return p, err
}

// FindByCheckoutID resolves a gateway correlation id to its intent. Older
// Daraja envelopes have been seen echoing the checkout id in the merchant
// request field, so the lookup checks both columns.
func (r *Repo) FindByCheckoutID(ctx context.Context, checkoutID string) (Payment, error) {
	var p Payment
	err := r.db.WithContext(ctx).
		Where("checkout_request_id = ? OR merchant_request_id = ?", checkoutID, checkoutID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Payment{}, ErrNotFound
	}
	return p, err
}

// FindByIdempotencyKey returns the most recent intent created by userID with
// this key inside the window, if any.
func (r *Repo) FindByIdempotencyKey(ctx context.Context, userID, key string, window time.Duration) (Payment, error) {
	var p Payment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND idempotency_key = ? AND created_at > ?", userID, key, time.Now().Add(-window)).
		Order("created_at DESC").
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Payment{}, ErrNotFound
	}
	return p, err
}

// SetGatewayRefs records the correlation identifiers Daraja returned for a
// submitted (or simulated) push request. State is untouched.
func (r *Repo) SetGatewayRefs(ctx context.Context, id, merchantRequestID, checkoutRequestID string) error {
	updates := map[string]any{"updated_at": time.Now()}
	if merchantRequestID != "" {
		updates["merchant_request_id"] = merchantRequestID
	}
	if checkoutRequestID != "" {
		updates["checkout_request_id"] = checkoutRequestID
	}
	return r.db.WithContext(ctx).Model(&Payment{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// ResultUpdate is a terminal transition for an intent.
type ResultUpdate struct {
	Status        string // StatusSuccess or StatusFailed
	Receipt       *string
	FailureReason *string
	RawCallback   []byte
}

// MarkResult conditionally applies a terminal transition. The update is keyed
// on the current status being PENDING, so the submission-failure path and the
// callback path can both call it without corrupting state: whichever lands
// second is a no-op. Returns the row as stored and whether this call applied
// the transition.
func (r *Repo) MarkResult(ctx context.Context, id string, upd ResultUpdate) (Payment, bool, error) {
	now := time.Now()
	updates := map[string]any{
		"status":     upd.Status,
		"updated_at": now,
	}
	if upd.Receipt != nil {
		updates["mpesa_receipt_number"] = *upd.Receipt
	}
	if upd.FailureReason != nil {
		updates["failure_reason"] = *upd.FailureReason
	}
	if len(upd.RawCallback) > 0 {
		updates["raw_callback"] = upd.RawCallback
	}

	res := r.db.WithContext(ctx).Model(&Payment{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(updates)
	if res.Error != nil {
		return Payment{}, false, res.Error
	}

	p, err := r.GetByID(ctx, id)
	if err != nil {
		return Payment{}, false, err
	}
	return p, res.RowsAffected > 0, nil
}

func (r *Repo) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]Payment, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	q := r.db.WithContext(ctx).Model(&Payment{}).Where("user_id = ?", userID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []Payment
	if err := q.Order("created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

type StatusCount struct {
	Status string
	Count  int64
}

func (r *Repo) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	var out []StatusCount
	err := r.db.WithContext(ctx).Model(&Payment{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Find(&out).Error
	return out, err
}

// SumSuccessful totals settled amounts inside [from, to].
func (r *Repo) SumSuccessful(ctx context.Context, from, to time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&Payment{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("status = ? AND created_at BETWEEN ? AND ?", StatusSuccess, from, to).
		Scan(&total).Error
	return total, err
}
