package payments_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Muhsin-Gun/event-API/internal/modules/payments"
	"github.com/Muhsin-Gun/event-API/internal/modules/payments/daraja"
)

type fakeGateway struct {
	pushFn func(ctx context.Context, req daraja.PushRequest) (daraja.PushResponse, error)
	calls  []daraja.PushRequest
}

func (f *fakeGateway) Name() string    { return "fake" }
func (f *fakeGateway) Simulated() bool { return false }

func (f *fakeGateway) STKPush(ctx context.Context, req daraja.PushRequest) (daraja.PushResponse, error) {
	f.calls = append(f.calls, req)
	return f.pushFn(ctx, req)
}

type fakePrices struct {
	price int
	title string
	err   error
}

func (f *fakePrices) EventPricing(context.Context, string) (int, string, error) {
	return f.price, f.title, f.err
}

func okPush(_ context.Context, req daraja.PushRequest) (daraja.PushResponse, error) {
	return daraja.PushResponse{
		MerchantRequestID: "mr_" + req.IntentID,
		CheckoutRequestID: "ws_" + req.IntentID,
		CustomerMessage:   "Success. Request accepted for processing",
	}, nil
}

func newService(t *testing.T, gw daraja.Gateway, prices payments.PriceSource) (*payments.Service, *payments.Repo, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	repo := payments.NewRepo(db)
	return payments.NewService(repo, gw, prices, testLogger()), repo, db
}

func TestInitiate_HappyPath(t *testing.T) {
	gw := &fakeGateway{pushFn: okPush}
	svc, repo, _ := newService(t, gw, &fakePrices{price: 500, title: "Jazz Night"})

	res, err := svc.Initiate(context.Background(), payments.InitiateInput{
		UserID:  "user-1",
		EventID: "event-1",
		Phone:   "0712345678",
	})
	require.NoError(t, err)
	require.Equal(t, payments.StatusPending, res.Status)
	require.Equal(t, "ws_"+res.PaymentID, res.CheckoutRequestID)
	require.False(t, res.Simulated)

	require.Len(t, gw.calls, 1)
	require.Equal(t, 500, gw.calls[0].Amount)
	require.Equal(t, "254712345678", gw.calls[0].Phone)
	require.Equal(t, "EVT-event-1", gw.calls[0].AccountReference)
	require.Equal(t, "Event Ticket Jazz Night", gw.calls[0].Description)

	stored, err := repo.GetByID(context.Background(), res.PaymentID)
	require.NoError(t, err)
	require.Equal(t, payments.StatusPending, stored.Status)
	require.Equal(t, 500, stored.Amount)
	require.NotNil(t, stored.CheckoutRequestID)
}

func TestInitiate_EventPriceOverridesClientAmount(t *testing.T) {
	gw := &fakeGateway{pushFn: okPush}
	svc, _, _ := newService(t, gw, &fakePrices{price: 500})

	_, err := svc.Initiate(context.Background(), payments.InitiateInput{
		UserID:  "user-1",
		EventID: "event-1",
		Phone:   "254712345678",
		Amount:  1, // must not win over the stored price
	})
	require.NoError(t, err)
	require.Equal(t, 500, gw.calls[0].Amount)
}

func TestInitiate_FallsBackToClientAmount(t *testing.T) {
	gw := &fakeGateway{pushFn: okPush}
	svc, _, _ := newService(t, gw, &fakePrices{price: 0, title: "Free Entry"})

	_, err := svc.Initiate(context.Background(), payments.InitiateInput{
		UserID:  "user-1",
		EventID: "event-1",
		Phone:   "254712345678",
		Amount:  250,
	})
	require.NoError(t, err)
	require.Equal(t, 250, gw.calls[0].Amount)
}

func TestInitiate_NoUsableAmount(t *testing.T) {
	gw := &fakeGateway{pushFn: okPush}
	svc, _, _ := newService(t, gw, &fakePrices{price: 0})

	_, err := svc.Initiate(context.Background(), payments.InitiateInput{
		UserID:  "user-1",
		EventID: "event-1",
		Phone:   "254712345678",
		Amount:  0,
	})
	require.ErrorIs(t, err, payments.ErrNoAmount)
	require.Empty(t, gw.calls, "gateway must not be called without an amount")
}

func TestInitiate_InvalidPhoneRejectedBeforeGateway(t *testing.T) {
	gw := &fakeGateway{pushFn: okPush}
	svc, _, _ := newService(t, gw, nil)

	_, err := svc.Initiate(context.Background(), payments.InitiateInput{
		UserID: "user-1",
		Phone:  "12345",
		Amount: 100,
	})
	require.ErrorIs(t, err, payments.ErrInvalidPhone)
	require.Empty(t, gw.calls)
}

func TestInitiate_IntentPersistedBeforeGatewayCall(t *testing.T) {
	var sawRow bool
	var db *gorm.DB
	gw := &fakeGateway{}
	gw.pushFn = func(context.Context, daraja.PushRequest) (daraja.PushResponse, error) {
		var n int64
		require.NoError(t, db.Model(&payments.Payment{}).
			Where("status = ?", payments.StatusPending).Count(&n).Error)
		sawRow = n == 1
		return daraja.PushResponse{}, errors.New("connection refused")
	}
	svc, _, testDB := newService(t, gw, nil)
	db = testDB

	_, err := svc.Initiate(context.Background(), payments.InitiateInput{
		UserID: "user-1",
		Phone:  "254712345678",
		Amount: 100,
	})
	require.NoError(t, err)
	require.True(t, sawRow, "intent must be committed before the push is attempted")
}

func TestInitiate_DegradesWhenProviderUnreachable(t *testing.T) {
	gw := &fakeGateway{pushFn: func(context.Context, daraja.PushRequest) (daraja.PushResponse, error) {
		return daraja.PushResponse{}, errors.New("dial tcp: connection refused")
	}}
	svc, repo, _ := newService(t, gw, nil)

	res, err := svc.Initiate(context.Background(), payments.InitiateInput{
		UserID: "user-1",
		Phone:  "254712345678",
		Amount: 100,
	})
	require.NoError(t, err, "unreachable provider degrades, it does not fail the caller")
	require.True(t, res.Simulated)
	require.Equal(t, payments.StatusPending, res.Status)
	require.Equal(t, "DEV-MERCHANT-"+res.PaymentID, res.MerchantRequestID)
	require.Equal(t, "DEV-CHECKOUT-"+res.PaymentID, res.CheckoutRequestID)

	stored, err := repo.GetByID(context.Background(), res.PaymentID)
	require.NoError(t, err)
	require.Equal(t, payments.StatusPending, stored.Status, "degraded intents stay reconcilable")
}

func TestInitiate_AuthFailureAlsoDegrades(t *testing.T) {
	gw := &fakeGateway{pushFn: func(context.Context, daraja.PushRequest) (daraja.PushResponse, error) {
		return daraja.PushResponse{}, daraja.ErrAuth
	}}
	svc, _, _ := newService(t, gw, nil)

	res, err := svc.Initiate(context.Background(), payments.InitiateInput{
		UserID: "user-1",
		Phone:  "254712345678",
		Amount: 100,
	})
	require.NoError(t, err)
	require.True(t, res.Simulated)
}

func TestInitiate_ProviderRejectionIsTerminal(t *testing.T) {
	gw := &fakeGateway{pushFn: func(context.Context, daraja.PushRequest) (daraja.PushResponse, error) {
		return daraja.PushResponse{}, &daraja.RequestError{StatusCode: 400, Description: "Invalid Amount"}
	}}
	svc, _, db := newService(t, gw, nil)

	_, err := svc.Initiate(context.Background(), payments.InitiateInput{
		UserID: "user-1",
		Phone:  "254712345678",
		Amount: 100,
	})
	var reqErr *daraja.RequestError
	require.ErrorAs(t, err, &reqErr)

	var stored payments.Payment
	require.NoError(t, db.First(&stored).Error)
	require.Equal(t, payments.StatusFailed, stored.Status)
	require.NotNil(t, stored.FailureReason)
	require.Contains(t, *stored.FailureReason, "Invalid Amount")
}

func TestInitiate_IdempotencyKeyReturnsExistingIntent(t *testing.T) {
	gw := &fakeGateway{pushFn: okPush}
	svc, _, _ := newService(t, gw, nil)

	in := payments.InitiateInput{
		UserID:         "user-1",
		Phone:          "254712345678",
		Amount:         100,
		IdempotencyKey: "order-42",
	}

	first, err := svc.Initiate(context.Background(), in)
	require.NoError(t, err)
	require.False(t, first.Idempotent)

	second, err := svc.Initiate(context.Background(), in)
	require.NoError(t, err)
	require.True(t, second.Idempotent)
	require.Equal(t, first.PaymentID, second.PaymentID)
	require.Equal(t, first.CheckoutRequestID, second.CheckoutRequestID)
	require.Len(t, gw.calls, 1, "replayed submission must not push twice")
}

func TestStatusByCheckoutID(t *testing.T) {
	gw := &fakeGateway{pushFn: okPush}
	svc, _, _ := newService(t, gw, nil)

	res, err := svc.Initiate(context.Background(), payments.InitiateInput{
		UserID: "user-1",
		Phone:  "254712345678",
		Amount: 100,
	})
	require.NoError(t, err)

	p, err := svc.StatusByCheckoutID(context.Background(), res.CheckoutRequestID)
	require.NoError(t, err)
	require.Equal(t, res.PaymentID, p.ID)

	_, err = svc.StatusByCheckoutID(context.Background(), "ws_nope")
	require.ErrorIs(t, err, payments.ErrNotFound)
}
