package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

// BillingService talks to the billing provider's API. It is used to
// cross-verify webhook deliveries against the provider before accruing a
// commission. When credentials are not configured the service stays
// disabled and verification is skipped.
type BillingService struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	enabled    bool
}

func NewBillingService() *BillingService {
	baseURL := os.Getenv("BILLING_API_URL")
	apiKey := os.Getenv("BILLING_API_KEY")

	enabled := baseURL != "" && apiKey != ""
	if !enabled {
		log.Println("Billing API credentials not configured, webhook cross-verification disabled")
	} else {
		log.Printf("Billing API verification enabled against %s", baseURL)
	}

	return &BillingService{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		enabled: enabled,
	}
}

// Enabled reports whether verification calls will actually reach the
// provider.
func (s *BillingService) Enabled() bool {
	return s.enabled
}

type billingInvoice struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	AmountPaid  int64  `json:"amountPaid"`
	Currency    string `json:"currency"`
	CustomerRef string `json:"customerRef"`
}

// VerifyInvoice fetches the invoice from the provider and checks that it is
// actually settled. Timeouts and network failures are returned to the
// caller so the webhook can be retried.
func (s *BillingService) VerifyInvoice(ctx context.Context, invoiceID string) error {
	if !s.enabled {
		return nil
	}

	url := fmt.Sprintf("%s/invoices/%s", s.baseURL, invoiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create billing request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("billing API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("invoice %s not found at billing provider", invoiceID)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("billing API returned status %d for invoice %s", resp.StatusCode, invoiceID)
	}

	var invoice billingInvoice
	if err := json.NewDecoder(resp.Body).Decode(&invoice); err != nil {
		return fmt.Errorf("failed to decode billing response: %w", err)
	}

	if invoice.Status != "paid" {
		return fmt.Errorf("invoice %s has status %q, expected paid", invoiceID, invoice.Status)
	}
	return nil
}
