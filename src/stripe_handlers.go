package main

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"summit/src/common"
	"summit/src/db"
	"summit/src/lib/mailer"
	"summit/src/models"
	"summit/src/tiers"
	"summit/src/types"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

func stripeWebhookRoute(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.POST("/webhook/stripe", func(ctx *gin.Context) {
		payload, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			log.Printf("Error reading request body: %s\n", err.Error())
			ctx.Status(http.StatusServiceUnavailable)
			return
		}
		whsecret := os.Getenv("STRIPE_WEBHOOK_SECRET")
		event, err := webhook.ConstructEvent(payload, ctx.GetHeader("Stripe-Signature"), whsecret)
		if err != nil {
			log.Printf("Error verifying webhook signature: %s\n", err.Error())
			ctx.Status(http.StatusBadRequest)
			return
		}
		log.Printf("[StripeEvent] %s\n", event.Type)
		switch event.Type {
		case "checkout.session.completed":
			var session stripe.CheckoutSession
			if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
				log.Printf("[Stripe] Error parsing CheckoutSession: %s\n", err.Error())
				break
			}
			md := session.Metadata
			referenceId := md["reference_id"]
			if referenceId == "" {
				log.Printf("[Stripe] Session %s carries no reference_id\n", session.ID)
				break
			}
			switch md["kind"] {
			case "upgrade":
				completeUpgradeOrder(referenceId, md)
			default:
				completePurchaseOrder(referenceId, md)
			}
		case "checkout.session.expired":
			var session stripe.CheckoutSession
			if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
				log.Printf("[Stripe] Error parsing CheckoutSession: %s\n", err.Error())
				break
			}
			referenceId := session.Metadata["reference_id"]
			if referenceId == "" {
				break
			}
			store := common.NewGormStore(db.GetDb())
			if err := store.UpdateTransactionStatus(referenceId, types.TRANSACTION_CANCELED); err != nil {
				log.Printf("Error cancelling transaction [%s]: %s\n", referenceId, err.Error())
			}
		default:
			log.Printf("[StripeEvent] ignoring %s\n", event.Type)
		}
		// Delivery is acknowledged even for replays; processing above is
		// idempotent on the transaction status.
		ctx.Status(http.StatusOK)
	})
	return apiv1
}

// completePurchaseOrder issues the pass for a paid checkout. A replayed
// event finds the transaction already completed and creates nothing. An
// order the system has never seen resolves its buyer from the session
// metadata and records the transaction alongside the pass.
func completePurchaseOrder(referenceId string, md map[string]string) {
	store := common.NewGormStore(db.GetDb())
	var userId uint
	txn, err := store.FindTransactionByReference(referenceId)
	switch {
	case err == nil:
		userId = txn.UserID
	case errors.Is(err, common.ErrNotFound):
		if md["uid"] == "" && md["email"] == "" {
			log.Printf("[Stripe] Order [%s] carries no buyer identity, skipping\n", referenceId)
			return
		}
		resolver := common.NewIdentityResolver(store)
		user, rerr := resolver.Resolve(md["uid"], md["email"], md["name"])
		if rerr != nil {
			log.Printf("Error resolving buyer for order [%s]: %s\n", referenceId, rerr.Error())
			return
		}
		userId = user.ID
	default:
		log.Printf("Error retrieving transaction [%s]: %s\n", referenceId, err.Error())
		return
	}
	tier := tiers.Normalize(md["tier"])
	if !tiers.IsKnown(tier) {
		log.Printf("[Stripe] Unknown tier %q on order [%s]\n", md["tier"], referenceId)
		return
	}
	now := time.Now()
	pass := &models.Pass{
		UserID:      userId,
		Tier:        tier,
		Price:       tiers.Price(tier),
		Status:      types.PASS_ACTIVE,
		BookingRef:  md["booking_ref"],
		OrderRef:    referenceId,
		PurchasedAt: &now,
	}
	_, created, err := store.CompleteOrder(referenceId, pass)
	if err != nil {
		log.Printf("Error completing order [%s]: %s\n", referenceId, err.Error())
		return
	}
	if !created {
		log.Printf("Order [%s] already completed, skipping\n", referenceId)
	}
}

// completeUpgradeOrder applies a paid upgrade. The target tier and pass id
// travel in the session metadata set at initiation.
func completeUpgradeOrder(referenceId string, md map[string]string) {
	store := common.NewGormStore(db.GetDb())
	txn, err := store.FindTransactionByReference(referenceId)
	if err != nil {
		log.Printf("Error retrieving transaction [%s]: %s\n", referenceId, err.Error())
		return
	}
	if txn.Status == types.TRANSACTION_COMPLETED {
		log.Printf("Upgrade [%s] already applied, skipping\n", referenceId)
		return
	}
	passId := txn.PassID
	if passId == nil {
		atoi, err := strconv.Atoi(md["pass_id"])
		if err != nil {
			log.Printf("Could not resolve pass for upgrade [%s]: %s\n", referenceId, err.Error())
			return
		}
		id := uint(atoi)
		passId = &id
	}
	// ApplyUpgrade settles the transaction inside the same unit as the
	// pass mutation. A transient failure here leaves it pending, so the
	// next redelivery retries instead of skipping a paid upgrade.
	engine := common.NewUpgradeEngine(store)
	pass, record, err := engine.Apply(*passId, md["to_tier"], referenceId)
	if err != nil {
		log.Printf("Error applying upgrade [%s]: %s\n", referenceId, err.Error())
		return
	}
	var user models.User
	if err := db.GetDb().First(&user, pass.UserID).Error; err == nil {
		go mailer.NotifyUpgradeCompleted(&user, pass, record)
	}
}
