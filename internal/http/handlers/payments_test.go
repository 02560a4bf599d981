package handlers_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"github.com/Muhsin-Gun/event-API/internal/http/handlers"
	"github.com/Muhsin-Gun/event-API/internal/modules/payments"
)

func setupPaymentHandler(t *testing.T) (*handlers.PaymentHandler, *payments.Repo) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&payments.Payment{}); err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := payments.NewRepo(db)
	return &handlers.PaymentHandler{
		Callbacks: payments.NewCallbackService(repo, logger),
		Repo:      repo,
		Logger:    logger,
	}, repo
}

func postCallback(h *handlers.PaymentHandler, body string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/payments/mpesa/callback", h.Callback)

	req := httptest.NewRequest(http.MethodPost, "/api/payments/mpesa/callback", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCallbackEndpoint_AlwaysAcknowledges(t *testing.T) {
	h, repo := setupPaymentHandler(t)
	ctx := context.Background()

	now := time.Now()
	p := payments.Payment{
		ID:        uuid.NewString(),
		UserID:    uuid.NewString(),
		Amount:    500,
		Phone:     "254712345678",
		Method:    "mpesa",
		Status:    payments.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Create(ctx, &p))
	require.NoError(t, repo.SetGatewayRefs(ctx, p.ID, "mr_1", "ws_known"))

	bodies := []string{
		`{"Body":{"stkCallback":{"CheckoutRequestID":"ws_known","ResultCode":0,"ResultDesc":"ok","CallbackMetadata":{"Item":[{"Name":"MpesaReceiptNumber","Value":"QCT123XYZ"}]}}}}`,
		`{"Body":{"stkCallback":{"CheckoutRequestID":"ws_unknown","ResultCode":0,"ResultDesc":"ok"}}}`,
		`{"Body":{}}`,
		`garbage`,
	}
	for _, body := range bodies {
		w := postCallback(h, body)
		require.Equal(t, http.StatusOK, w.Code, "body %q", body)
		require.JSONEq(t, `{"ResultCode":0,"ResultDesc":"Accepted"}`, w.Body.String())
	}

	settled, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, payments.StatusSuccess, settled.Status)
	require.Equal(t, "QCT123XYZ", *settled.MpesaReceiptNumber)
}
