package main

import (
	"errors"
	"log"
	"net/http"
	"summit/src/common"
	"summit/src/db"
	"summit/src/lib"
	"summit/src/lib/mailer"
	"summit/src/models"
	"summit/src/types"

	"github.com/gin-gonic/gin"
)

func upgradeHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/passes/:id/upgrade", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			store := common.NewGormStore(db.GetDb())
			pass, err := store.FindPass(params.ID)
			if err == nil && pass.UserID != userId {
				ctx.Status(http.StatusNotFound)
				return
			}
			engine := common.NewUpgradeEngine(store)
			eligibility, err := engine.CheckEligibility(params.ID)
			if err != nil {
				log.Printf("Error checking upgrade eligibility for pass [%d]: %s\n", params.ID, err.Error())
				ctx.Status(http.StatusBadRequest)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": eligibility})
		}).
		POST("/passes/:id/upgrade", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.UpgradeInitiateRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			store := common.NewGormStore(db.GetDb())
			pass, err := store.FindPass(params.ID)
			if err != nil || pass.UserID != userId {
				ctx.Status(http.StatusNotFound)
				return
			}
			engine := common.NewUpgradeEngine(store)
			txn, err := engine.Initiate(params.ID, body.ToTier)
			if err != nil {
				log.Printf("Error initiating upgrade for pass [%d]: %s\n", params.ID, err.Error())
				if errors.Is(err, common.ErrInvalidUpgrade) {
					ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": "requested tier is not a valid upgrade"})
					return
				}
				ctx.Status(http.StatusBadRequest)
				return
			}
			checkoutURL, err := lib.CreateUpgradeCheckout(txn.ReferenceID, txn.Amount, txn.Currency, map[string]string{
				"pass_id": ctx.Param("id"),
				"to_tier": body.ToTier,
			})
			if err != nil {
				log.Printf("Error creating checkout session for upgrade [%s]: %s\n", txn.ReferenceID, err.Error())
				ctx.JSON(http.StatusCreated, gin.H{"data": txn})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": txn, "checkout_url": checkoutURL})
		}).
		POST("/passes/:id/upgrade/complete", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.UpgradeCompleteRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			store := common.NewGormStore(db.GetDb())
			pass, err := store.FindPass(params.ID)
			if err != nil || pass.UserID != userId {
				ctx.Status(http.StatusNotFound)
				return
			}
			engine := common.NewUpgradeEngine(store)
			if err := engine.VerifyPayment(params.ID, body.ToTier, body.PaymentRef); err != nil {
				log.Printf("Error verifying payment [%s] for pass [%d]: %s\n", body.PaymentRef, params.ID, err.Error())
				switch {
				case errors.Is(err, common.ErrNotFound):
					ctx.JSON(http.StatusNotFound, gin.H{"error": "payment reference not found"})
				case errors.Is(err, common.ErrPaymentConsumed):
					ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				case errors.Is(err, common.ErrPaymentIncomplete), errors.Is(err, common.ErrPaymentMismatch):
					ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				default:
					ctx.Status(http.StatusBadRequest)
				}
				return
			}
			upgraded, record, err := engine.Apply(params.ID, body.ToTier, body.PaymentRef)
			if err != nil {
				log.Printf("Error applying upgrade for pass [%d]: %s\n", params.ID, err.Error())
				if errors.Is(err, common.ErrInvalidUpgrade) {
					ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": "requested tier is not a valid upgrade"})
					return
				}
				ctx.Status(http.StatusBadRequest)
				return
			}
			var user models.User
			if err := db.GetDb().First(&user, userId).Error; err == nil {
				go mailer.NotifyUpgradeCompleted(&user, upgraded, record)
			}
			ctx.JSON(http.StatusOK, gin.H{"data": upgraded, "upgrade": record})
		})
	return g
}
