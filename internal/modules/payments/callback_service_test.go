package payments_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Muhsin-Gun/event-API/internal/modules/payments"
)

func successCallback(checkoutID, receipt string) []byte {
	return []byte(`{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "mr_29115",
				"CheckoutRequestID": "` + checkoutID + `",
				"ResultCode": 0,
				"ResultDesc": "The service request is processed successfully.",
				"CallbackMetadata": {
					"Item": [
						{"Name": "Amount", "Value": 500},
						{"Name": "MpesaReceiptNumber", "Value": "` + receipt + `"},
						{"Name": "TransactionDate", "Value": 20260901101530},
						{"Name": "PhoneNumber", "Value": 254712345678}
					]
				}
			}
		}
	}`)
}

func failureCallback(checkoutID string, code int, desc string) []byte {
	return []byte(`{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "mr_29115",
				"CheckoutRequestID": "` + checkoutID + `",
				"ResultCode": ` + strconv.Itoa(code) + `,
				"ResultDesc": "` + desc + `"
			}
		}
	}`)
}

func TestCallback_SuccessSettlesIntent(t *testing.T) {
	db := setupTestDB(t)
	repo := payments.NewRepo(db)
	cbs := payments.NewCallbackService(repo, testLogger())
	ctx := context.Background()

	p := newPendingPayment(t, repo)
	require.NoError(t, repo.SetGatewayRefs(ctx, p.ID, "mr_29115", "ws_abc123"))

	outcome, err := cbs.Handle(ctx, successCallback("ws_abc123", "QCT123XYZ"))
	require.NoError(t, err)
	require.Equal(t, payments.OutcomeApplied, outcome)

	settled, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, payments.StatusSuccess, settled.Status)
	require.NotNil(t, settled.MpesaReceiptNumber)
	require.Equal(t, "QCT123XYZ", *settled.MpesaReceiptNumber)
	require.NotEmpty(t, settled.RawCallback, "raw envelope kept for audit")
}

func TestCallback_UserCancelledFailsIntent(t *testing.T) {
	db := setupTestDB(t)
	repo := payments.NewRepo(db)
	cbs := payments.NewCallbackService(repo, testLogger())
	ctx := context.Background()

	p := newPendingPayment(t, repo)
	require.NoError(t, repo.SetGatewayRefs(ctx, p.ID, "mr_29115", "ws_abc123"))

	outcome, err := cbs.Handle(ctx, failureCallback("ws_abc123", 1032, "Request cancelled by user"))
	require.NoError(t, err)
	require.Equal(t, payments.OutcomeApplied, outcome)

	settled, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, payments.StatusFailed, settled.Status)
	require.Nil(t, settled.MpesaReceiptNumber)
	require.NotNil(t, settled.FailureReason)
	require.Equal(t, "Request cancelled by user", *settled.FailureReason)
}

func TestCallback_ReplayIsDeduplicated(t *testing.T) {
	db := setupTestDB(t)
	repo := payments.NewRepo(db)
	cbs := payments.NewCallbackService(repo, testLogger())
	ctx := context.Background()

	p := newPendingPayment(t, repo)
	require.NoError(t, repo.SetGatewayRefs(ctx, p.ID, "mr_29115", "ws_abc123"))

	outcome, err := cbs.Handle(ctx, successCallback("ws_abc123", "QCT123XYZ"))
	require.NoError(t, err)
	require.Equal(t, payments.OutcomeApplied, outcome)

	// Daraja retries callbacks; the replay must not change anything.
	outcome, err = cbs.Handle(ctx, successCallback("ws_abc123", "QCT999OTHER"))
	require.NoError(t, err)
	require.Equal(t, payments.OutcomeDuplicate, outcome)

	settled, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "QCT123XYZ", *settled.MpesaReceiptNumber, "first terminal write wins")
}

func TestCallback_LateFailureCannotRevertSuccess(t *testing.T) {
	db := setupTestDB(t)
	repo := payments.NewRepo(db)
	cbs := payments.NewCallbackService(repo, testLogger())
	ctx := context.Background()

	p := newPendingPayment(t, repo)
	require.NoError(t, repo.SetGatewayRefs(ctx, p.ID, "mr_29115", "ws_abc123"))

	_, err := cbs.Handle(ctx, successCallback("ws_abc123", "QCT123XYZ"))
	require.NoError(t, err)

	outcome, err := cbs.Handle(ctx, failureCallback("ws_abc123", 1037, "DS timeout user cannot be reached"))
	require.NoError(t, err)
	require.Equal(t, payments.OutcomeDuplicate, outcome)

	settled, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, payments.StatusSuccess, settled.Status)
}

func TestCallback_UnknownCheckoutID(t *testing.T) {
	cbs := payments.NewCallbackService(payments.NewRepo(setupTestDB(t)), testLogger())

	outcome, err := cbs.Handle(context.Background(), successCallback("ws_unknown", "QCT123XYZ"))
	require.NoError(t, err, "unknown ids are acknowledged, not errored")
	require.Equal(t, payments.OutcomeNoMatch, outcome)
}

func TestCallback_MalformedBodies(t *testing.T) {
	cbs := payments.NewCallbackService(payments.NewRepo(setupTestDB(t)), testLogger())
	ctx := context.Background()

	outcome, err := cbs.Handle(ctx, []byte("not json at all"))
	require.NoError(t, err)
	require.Equal(t, payments.OutcomeIgnored, outcome)

	outcome, err = cbs.Handle(ctx, []byte(`{"Body": {}}`))
	require.NoError(t, err)
	require.Equal(t, payments.OutcomeIgnored, outcome)
}

func TestCallback_SuccessWithoutReceiptStillSettles(t *testing.T) {
	db := setupTestDB(t)
	repo := payments.NewRepo(db)
	cbs := payments.NewCallbackService(repo, testLogger())
	ctx := context.Background()

	p := newPendingPayment(t, repo)
	require.NoError(t, repo.SetGatewayRefs(ctx, p.ID, "mr_29115", "ws_abc123"))

	body := []byte(`{"Body":{"stkCallback":{"CheckoutRequestID":"ws_abc123","ResultCode":0,"ResultDesc":"ok"}}}`)
	outcome, err := cbs.Handle(ctx, body)
	require.NoError(t, err)
	require.Equal(t, payments.OutcomeApplied, outcome)

	settled, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, payments.StatusSuccess, settled.Status)
	require.Nil(t, settled.MpesaReceiptNumber)
}
