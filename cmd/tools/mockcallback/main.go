package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/Muhsin-Gun/event-API/internal/modules/payments"
)

// Sends a Daraja-shaped STK callback at a running server. Pairs with the
// simulated gateway mode: initiate a payment without M-Pesa credentials,
// take the DEV-CHECKOUT-... id from the response, and settle it from here.
func main() {
	url := flag.String("url", "http://localhost:4000/api/payments/mpesa/callback", "Callback URL")
	checkoutID := flag.String("checkout-id", "", "CheckoutRequestID of the intent to settle (required)")
	merchantID := flag.String("merchant-id", "", "MerchantRequestID (optional)")
	resultCode := flag.Int("result-code", 0, "ResultCode (0 = success, e.g. 1032 = user cancelled)")
	resultDesc := flag.String("result-desc", "", "ResultDesc (defaults by result code)")
	receipt := flag.String("receipt", "QCT0000000", "MpesaReceiptNumber (success only)")
	amount := flag.Int("amount", 0, "Amount metadata item (optional)")
	dryRun := flag.Bool("dry-run", false, "Only print the payload, don't send")

	flag.Parse()

	if *checkoutID == "" {
		fmt.Fprintf(os.Stderr, "Error: -checkout-id is required\n")
		os.Exit(1)
	}

	desc := *resultDesc
	if desc == "" {
		if *resultCode == 0 {
			desc = "The service request is processed successfully."
		} else {
			desc = "Request cancelled by user"
		}
	}

	cb := payments.StkCallback{
		MerchantRequestID: *merchantID,
		CheckoutRequestID: *checkoutID,
		ResultCode:        *resultCode,
		ResultDesc:        desc,
	}
	if *resultCode == 0 {
		items := []payments.CallbackItem{
			{Name: "MpesaReceiptNumber", Value: *receipt},
		}
		if *amount > 0 {
			items = append(items, payments.CallbackItem{Name: "Amount", Value: *amount})
		}
		cb.CallbackMetadata = &payments.CallbackMetadata{Item: items}
	}

	body, err := json.MarshalIndent(payments.CallbackEnvelope{
		Body: payments.CallbackBody{StkCallback: &cb},
	}, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling payload: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Body: %s\n", string(body))

	if *dryRun {
		fmt.Println("\n[DRY RUN] Not sending request")
		return
	}

	fmt.Printf("\nSending to %s...\n", *url)
	resp, err := http.Post(*url, "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error sending request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("Status: %d\n", resp.StatusCode)
	fmt.Printf("Response: %s\n", string(respBody))

	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
