package lib

import (
	"context"
	"fmt"
	"os"

	"github.com/stripe/stripe-go/v82"
)

var stripeClient *stripe.Client

func GetStripeClient() *stripe.Client {
	if stripeClient != nil {
		return stripeClient
	}
	apiKey := os.Getenv("STRIPE_SECRET_KEY")
	sc := stripe.NewClient(apiKey)
	stripeClient = sc

	return sc
}

func NewStripeClient(c *stripe.Client) {
	stripeClient = c
}

// CreateUpgradeCheckout opens a one-off checkout session for an upgrade
// fee. The transaction reference travels in the session metadata so the
// webhook can route the completion back to the right upgrade.
func CreateUpgradeCheckout(referenceID string, amount float64, currency string, metadata map[string]string) (string, error) {
	sc := GetStripeClient()
	appHost := os.Getenv("APP_HOST")
	md := map[string]string{"reference_id": referenceID, "kind": "upgrade"}
	for k, v := range metadata {
		md[k] = v
	}
	params := stripe.CheckoutSessionCreateParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency:   stripe.String(currency),
					UnitAmount: stripe.Int64(int64(amount * 100)),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String("Summit pass upgrade"),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(fmt.Sprintf("%s/upgrade/success", appHost)),
		CancelURL:  stripe.String(fmt.Sprintf("%s/upgrade/cancelled", appHost)),
		Metadata:   md,
	}
	session, err := sc.V1CheckoutSessions.Create(context.Background(), &params)
	if err != nil {
		return "", err
	}
	return session.URL, nil
}
