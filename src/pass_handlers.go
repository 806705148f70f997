package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path"
	"summit/src/common"
	"summit/src/db"
	"summit/src/lib"
	"summit/src/models"
	"summit/src/types"
	"summit/src/utils"
	"time"

	awslib "summit/src/lib/aws"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/yeqown/go-qrcode"
)

func passHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/passes/me", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			store := common.NewGormStore(db.GetDb())
			pass, err := store.FindActivePass(userId)
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					ctx.Status(http.StatusNotFound)
					return
				}
				log.Printf("Error retrieving active pass for user [%d]: %s\n", userId, err.Error())
				ctx.Status(http.StatusBadRequest)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": pass})
		}).
		GET("/passes/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			var pass models.Pass
			db := db.GetDb()
			if err := db.
				Where(&models.Pass{ID: params.ID, UserID: userId}).
				Preload("Upgrades").
				First(&pass).Error; err != nil {
				ctx.Status(http.StatusNotFound)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": pass})
		}).
		POST("/passes/:id/code", func(ctx *gin.Context) {
			var query struct {
				ShareLink bool `form:"share_link"`
			}
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			db := db.GetDb()
			var pass models.Pass
			if err := db.
				Where(&models.Pass{ID: params.ID, UserID: userId}).
				First(&pass).Error; err != nil {
				ctx.Status(http.StatusNotFound)
				return
			}
			if pass.Status != types.PASS_ACTIVE {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": "pass is not active"})
				return
			}

			filename := fmt.Sprintf("passcode_%d-%d", pass.ID, pass.UserID)
			rd := lib.GetRedisClient()
			content, err := rd.Get(context.Background(), filename).Result()
			if err != nil {
				if errors.Is(redis.Nil, err) {
					log.Printf("No value for key: %s\n", filename)
				} else {
					log.Printf("Error reading from cache: %s\n", err.Error())
					ctx.Status(http.StatusBadRequest)
					return
				}
			}
			wd, err := os.Getwd()
			if err != nil {
				log.Printf("Could not read working directory: %s\n", err.Error())
				ctx.Status(http.StatusBadRequest)
				return
			}
			tempdir := os.Getenv("TEMP_DIR")
			var filepath string
			if content != "" {
				if query.ShareLink {
					ctx.JSON(http.StatusOK, gin.H{"url": content})
					return
				}
				filepath = path.Join(wd, tempdir, fmt.Sprintf("%s.jpeg", filename))
				if err := awslib.S3DownloadAsset(filename); err != nil {
					log.Printf("Error downloading asset [%s] from S3 bucket: %s\n", filename, err.Error())
					ctx.Status(http.StatusBadRequest)
					return
				}
				ctx.FileAttachment(filepath, "pass.jpeg")
				return
			}

			rawData := map[string]any{
				"passId": pass.ID,
				"userId": pass.UserID,
				"tier":   pass.Tier,
			}
			rawBytes, _ := json.Marshal(rawData)
			rawText := string(rawBytes)

			keyEnv := os.Getenv("API_QRC_SECRET")
			key, err := hex.DecodeString(keyEnv)
			if err != nil {
				log.Printf("Could not read key from string: %s\n", err.Error())
				ctx.Status(http.StatusBadRequest)
				return
			}
			encryptedMessage, err := utils.EncryptMessage(key, rawText)
			if err != nil {
				log.Printf("Error encrypting message: %s\n", err.Error())
				ctx.Status(http.StatusBadRequest)
				return
			}
			qrc, err := qrcode.New(encryptedMessage)
			if err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			filepath = path.Join(wd, tempdir, fmt.Sprintf("%s.jpeg", filename))
			if err = qrc.Save(filepath); err != nil {
				log.Printf("Could not save qrcode to file [%s]: %s\n", filepath, err.Error())
				ctx.Status(http.StatusBadRequest)
				return
			}
			url, err := awslib.S3UploadAsset(filename, filepath)
			if err != nil {
				log.Printf("Error uploading asset to S3 bucket: %s\n", err.Error())
				ctx.Status(http.StatusBadRequest)
				return
			}
			rd.SetEx(context.Background(), filename, *url, 2*time.Hour)
			if query.ShareLink {
				ctx.JSON(http.StatusOK, gin.H{"url": url})
				return
			}
			ctx.FileAttachment(filepath, "pass.jpeg")
		})
	return g
}
