package controllers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"summit/src/common"
	"summit/src/db"
	"summit/src/lib"
	"summit/src/types"
	"summit/src/utils"

	"github.com/gin-gonic/gin"
)

// AuthLogin exchanges a verified provider token for an internal session
// token. VerifyIdToken has already placed the provider uid on the context.
func AuthLogin(ctx *gin.Context) (token *string, status int, err error) {
	var body types.RegisterUserRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}
	auth, err := lib.GetFirebaseAuth()
	if err != nil {
		log.Printf("Error initializing FirebaseAuth client: %s\n", err.Error())
		return nil, http.StatusBadRequest, err
	}
	user, err := auth.GetUserByEmail(context.Background(), body.Email)
	if err != nil {
		log.Printf("error from Firebase: %s\n", err.Error())
		return nil, http.StatusNotFound, err
	}

	uid := ctx.GetString("uid")
	resolver := common.NewIdentityResolver(common.NewGormStore(db.GetDb()))
	muser, err := resolver.Resolve(uid, user.Email, user.DisplayName)
	if err != nil {
		log.Printf("Error resolving identity for uid [%s]: %s\n", uid, err.Error())
		return nil, http.StatusBadRequest, err
	}

	jwt, err := utils.GenerateJWT(muser.Email, muser.ID, muser.UID)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	rd := lib.GetRedisClient()
	if _, err := rd.JSONSet(ctx, fmt.Sprintf("%d:user", muser.ID), "$", &muser).Result(); err != nil {
		log.Printf("[redis] Error updating user cache: %s\n", err.Error())
	}

	return &jwt, http.StatusOK, nil
}

// AuthRegister resolves the provider account into a local user record.
// Re-registering an already known account is a no-op that returns the
// existing uid.
func AuthRegister(ctx *gin.Context) (uid *string, status int, err error) {
	var body types.RegisterUserRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}
	auth, err := lib.GetFirebaseAuth()
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	user, err := auth.GetUserByEmail(context.Background(), body.Email)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	resolver := common.NewIdentityResolver(common.NewGormStore(db.GetDb()))
	muser, err := resolver.Resolve(user.UID, user.Email, user.DisplayName)
	if err != nil {
		log.Printf("Error registering user [%s]: %s\n", user.Email, err.Error())
		return nil, http.StatusBadRequest, err
	}

	return &muser.UID, http.StatusOK, nil
}
