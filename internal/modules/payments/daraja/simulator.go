package daraja

import "context"

// Simulator stands in for Daraja when credentials are not configured. It
// mints deterministic DEV- correlation ids so a test harness (or the
// mockcallback tool) can drive callbacks against the intent later. Intents
// submitted through it stay PENDING until reconciled out of band.
type Simulator struct{}

func NewSimulator() *Simulator { return &Simulator{} }

func (*Simulator) Name() string    { return "daraja-simulated" }
func (*Simulator) Simulated() bool { return true }

func (*Simulator) STKPush(_ context.Context, req PushRequest) (PushResponse, error) {
	return PushResponse{
		MerchantRequestID: "DEV-MERCHANT-" + req.IntentID,
		CheckoutRequestID: "DEV-CHECKOUT-" + req.IntentID,
		CustomerMessage:   "Simulated STK push created.",
		Simulated:         true,
	}, nil
}
