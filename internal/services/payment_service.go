// internal/services/payment_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/customer"
	"github.com/stripe/stripe-go/v74/ephemeralkey"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/refund"

	"github.com/javajoker/storefront/internal/config"
	"github.com/javajoker/storefront/internal/i18n"
	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/money"
)

const collaboratorPayments = "payment provider"

// PaymentProvider creates and verifies card payments. Amounts are Money;
// providers convert to their own minor units.
type PaymentProvider interface {
	CreatePaymentIntent(ctx context.Context, req *PaymentIntentRequest) (*PaymentIntent, error)
	ConfirmPayment(ctx context.Context, intentID string) (*PaymentResult, error)
	Refund(ctx context.Context, intentID string, amount money.Money, reason string) (string, error)
}

type PaymentIntentRequest struct {
	UserID         string
	Email          string
	Name           string
	Amount         money.Money
	IdempotencyKey string
	Metadata       map[string]string
}

// PaymentIntent is what the client needs to present the payment sheet.
type PaymentIntent struct {
	ID             string      `json:"payment_intent_id"`
	ClientSecret   string      `json:"client_secret"`
	Customer       string      `json:"customer,omitempty"`
	EphemeralKey   string      `json:"ephemeral_key,omitempty"`
	PublishableKey string      `json:"publishable_key,omitempty"`
	Amount         money.Money `json:"amount"`
	Currency       string      `json:"currency"`
	Status         string      `json:"status"`
}

type PaymentResult struct {
	ID        string
	UserID    string
	Amount    money.Money
	Status    string
	Succeeded bool
}

type PaymentService struct {
	config config.PaymentConfig
}

func NewPaymentService(cfg config.PaymentConfig) *PaymentService {
	// Initialize Stripe
	stripe.Key = cfg.StripeSecretKey

	return &PaymentService{config: cfg}
}

func (s *PaymentService) currency() string {
	if s.config.Currency == "" {
		return string(stripe.CurrencyUSD)
	}
	return s.config.Currency
}

// CreatePaymentIntent reuses the user's Stripe customer (looked up by email)
// so saved cards show up in the payment sheet.
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, req *PaymentIntentRequest) (*PaymentIntent, error) {
	if !req.Amount.IsPositive() {
		return nil, models.NewValidationError(i18n.KeyOrderInvalidTotal, "payment amount must be positive")
	}

	customerID, err := s.findOrCreateCustomer(ctx, req.Email, req.Name)
	if err != nil {
		return nil, models.WrapCollaborator(collaboratorPayments, "customer", err)
	}

	keyParams := &stripe.EphemeralKeyParams{
		Customer:      stripe.String(customerID),
		StripeVersion: stripe.String(stripe.APIVersion),
	}
	keyParams.Context = ctx
	key, err := ephemeralkey.New(keyParams)
	if err != nil {
		return nil, models.WrapCollaborator(collaboratorPayments, "ephemeral key", err)
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount.Cents()),
		Currency: stripe.String(s.currency()),
		Customer: stripe.String(customerID),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	params.AddMetadata("user_id", req.UserID)
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, models.WrapCollaborator(collaboratorPayments, "create payment intent", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id":           req.UserID,
		"payment_intent_id": pi.ID,
		"amount":            req.Amount.String(),
	}).Info("Payment intent created")

	return &PaymentIntent{
		ID:             pi.ID,
		ClientSecret:   pi.ClientSecret,
		Customer:       customerID,
		EphemeralKey:   key.Secret,
		PublishableKey: s.config.StripePublishableKey,
		Amount:         req.Amount,
		Currency:       s.currency(),
		Status:         string(pi.Status),
	}, nil
}

func (s *PaymentService) findOrCreateCustomer(ctx context.Context, email, name string) (string, error) {
	listParams := &stripe.CustomerListParams{Email: stripe.String(email)}
	listParams.Context = ctx
	listParams.Limit = stripe.Int64(1)
	iter := customer.List(listParams)
	for iter.Next() {
		return iter.Customer().ID, nil
	}
	if err := iter.Err(); err != nil {
		return "", fmt.Errorf("failed to look up customer: %w", err)
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	params.Context = ctx
	c, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create customer: %w", err)
	}
	return c.ID, nil
}

// ConfirmPayment reads the intent back from Stripe. Anything but succeeded
// is reported as a decline.
func (s *PaymentService) ConfirmPayment(ctx context.Context, intentID string) (*PaymentResult, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := paymentintent.Get(intentID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == 404 {
			return nil, models.NewNotFound("payment", intentID)
		}
		return nil, models.WrapCollaborator(collaboratorPayments, "get payment intent", err)
	}

	result := &PaymentResult{
		ID:        pi.ID,
		UserID:    pi.Metadata["user_id"],
		Amount:    money.Cents(pi.Amount),
		Status:    string(pi.Status),
		Succeeded: pi.Status == stripe.PaymentIntentStatusSucceeded,
	}
	if !result.Succeeded {
		reason := string(pi.Status)
		if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
			reason = pi.LastPaymentError.Msg
		}
		return result, paymentDeclined(reason)
	}
	return result, nil
}

func (s *PaymentService) Refund(ctx context.Context, intentID string, amount money.Money, reason string) (string, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentID),
		Amount:        stripe.Int64(amount.Cents()),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.Context = ctx
	params.SetIdempotencyKey("refund-" + intentID)
	params.AddMetadata("cancel_reason", reason)

	r, err := refund.New(params)
	if err != nil {
		return "", models.WrapCollaborator(collaboratorPayments, "refund", err)
	}

	logrus.WithFields(logrus.Fields{
		"payment_intent_id": intentID,
		"refund_id":         r.ID,
		"amount":            amount.String(),
	}).Info("Payment refunded")

	return r.ID, nil
}

func paymentDeclined(reason string) error {
	return models.NewDomainError(models.KindPaymentDeclined, i18n.KeyPaymentDeclined, "payment declined: "+reason, reason)
}
