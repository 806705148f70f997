package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"summit/src/common"
	"summit/src/db"
	"summit/src/lib/mailer"
	"summit/src/models"
	"summit/src/types"
	"time"

	awslib "summit/src/lib/aws"

	"github.com/gin-gonic/gin"
)

func claimHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/claims", func(ctx *gin.Context) {
			var body types.SubmitClaimRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			email := body.Email
			if email == "" {
				email = ctx.GetString("email")
			}
			lifecycle := common.NewClaimLifecycle(common.NewGormStore(db.GetDb()), nil)
			claim, err := lifecycle.Submit(userId, email, &body)
			if err != nil {
				log.Printf("Error submitting claim for user [%d]: %s\n", userId, err.Error())
				switch {
				case errors.Is(err, common.ErrAlreadyHasPass):
					ctx.JSON(http.StatusConflict, gin.H{"error": "an active pass already exists for this account"})
				case errors.Is(err, common.ErrMissingIdentifier):
					ctx.JSON(http.StatusBadRequest, gin.H{"error": "at least one ticket identifier is required"})
				default:
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				}
				return
			}
			if claim.Status == types.CLAIM_VERIFIED && claim.Pass != nil {
				var user models.User
				if err := db.GetDb().First(&user, userId).Error; err == nil {
					go mailer.NotifyClaimVerified(&user, claim.Pass)
				}
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": claim})
		}).
		GET("/claims", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var claims []models.PendingClaim
			db := db.GetDb()
			if err := db.
				Where(&models.PendingClaim{UserID: userId}).
				Order("created_at desc").
				Find(&claims).Error; err != nil {
				log.Printf("Error retrieving claims for user [%d]: %s\n", userId, err.Error())
				ctx.Status(http.StatusBadRequest)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": claims})
		}).
		GET("/claims/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			lifecycle := common.NewClaimLifecycle(common.NewGormStore(db.GetDb()), nil)
			claim, err := lifecycle.GetStatus(params.ID)
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					ctx.Status(http.StatusNotFound)
					return
				}
				log.Printf("Error retrieving claim [%d]: %s\n", params.ID, err.Error())
				ctx.Status(http.StatusBadRequest)
				return
			}
			if claim.UserID != userId {
				ctx.Status(http.StatusNotFound)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": claim})
		}).
		DELETE("/claims/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			lifecycle := common.NewClaimLifecycle(common.NewGormStore(db.GetDb()), nil)
			if err := lifecycle.Cancel(params.ID, userId); err != nil {
				log.Printf("Error cancelling claim [%d]: %s\n", params.ID, err.Error())
				switch {
				case errors.Is(err, common.ErrNotFound):
					ctx.Status(http.StatusNotFound)
				case errors.Is(err, common.ErrForbidden):
					ctx.Status(http.StatusForbidden)
				case errors.Is(err, common.ErrInvalidState):
					ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": "claim is no longer pending"})
				default:
					ctx.Status(http.StatusBadRequest)
				}
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		POST("/claims/:id/document", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			db := db.GetDb()
			var claim models.PendingClaim
			if err := db.
				Where(&models.PendingClaim{ID: params.ID, UserID: userId}).
				First(&claim).Error; err != nil {
				ctx.Status(http.StatusNotFound)
				return
			}
			if claim.Status != types.CLAIM_PENDING {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": "claim is no longer pending"})
				return
			}
			file, err := ctx.FormFile("document")
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			src, err := file.Open()
			if err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			defer src.Close()
			key := fmt.Sprintf("claimdoc_%d-%d", claim.ID, time.Now().UnixMilli())
			url, err := awslib.S3UploadDocument(key, src, file.Header.Get("Content-Type"))
			if err != nil {
				log.Printf("Error uploading claim document [%s]: %s\n", key, err.Error())
				ctx.Status(http.StatusBadRequest)
				return
			}
			if err := db.
				Model(&models.PendingClaim{}).
				Where("id = ?", claim.ID).
				Update("document_url", url).Error; err != nil {
				log.Printf("Error saving document url for claim [%d]: %s\n", claim.ID, err.Error())
				ctx.Status(http.StatusBadRequest)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"url": url})
		})
	return g
}
