package server

import (
	"net/http"
	"time"

	"tasktracker/internal/domain/models"
	"tasktracker/internal/service"

	"github.com/gin-gonic/gin"
)

func (api *TaskAPI) register(ctx *gin.Context) {
	var req models.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": api.message(ctx, "badRequest")})
		return
	}
	if err := validate.Struct(req); err != nil {
		api.respondValidation(ctx, err)
		return
	}

	session, err := api.accounts.Register(ctx.Request.Context(), req)
	if err != nil {
		api.respondError(ctx, err)
		return
	}
	api.setTokenCookie(ctx, session)
	ctx.JSON(http.StatusCreated, gin.H{
		"message":   api.message(ctx, "userRegistered"),
		"user":      session.User,
		"token":     session.Token,
		"expiresAt": session.ExpiresAt,
	})
}

func (api *TaskAPI) login(ctx *gin.Context) {
	var req models.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": api.message(ctx, "badRequest")})
		return
	}
	if err := validate.Struct(req); err != nil {
		api.respondValidation(ctx, err)
		return
	}

	session, err := api.accounts.Login(ctx.Request.Context(), req)
	if err != nil {
		api.respondError(ctx, err)
		return
	}
	api.setTokenCookie(ctx, session)
	ctx.JSON(http.StatusOK, gin.H{
		"message":   api.message(ctx, "loggedIn"),
		"user":      session.User,
		"token":     session.Token,
		"expiresAt": session.ExpiresAt,
	})
}

func (api *TaskAPI) logout(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(TokenCookie, "", -1, "/", "", api.cfg.SecureCookie, true)
	ctx.JSON(http.StatusOK, gin.H{"message": api.message(ctx, "loggedOut")})
}

func (api *TaskAPI) getProfile(ctx *gin.Context) {
	user, err := api.accounts.Profile(ctx.Request.Context(), currentIdentity(ctx))
	if err != nil {
		api.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"user": user})
}

func (api *TaskAPI) updateProfile(ctx *gin.Context) {
	var req models.UpdateUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": api.message(ctx, "badRequest")})
		return
	}
	if err := validate.Struct(req); err != nil {
		api.respondValidation(ctx, err)
		return
	}

	session, err := api.accounts.UpdateProfile(ctx.Request.Context(), currentIdentity(ctx), req)
	if err != nil {
		api.respondError(ctx, err)
		return
	}
	api.setTokenCookie(ctx, session)
	ctx.JSON(http.StatusOK, gin.H{
		"message": api.message(ctx, "userUpdated"),
		"user":    session.User,
		"token":   session.Token,
	})
}

func (api *TaskAPI) deleteProfile(ctx *gin.Context) {
	if err := api.accounts.DeleteAccount(ctx.Request.Context(), currentIdentity(ctx)); err != nil {
		api.respondError(ctx, err)
		return
	}
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(TokenCookie, "", -1, "/", "", api.cfg.SecureCookie, true)
	ctx.JSON(http.StatusOK, gin.H{"message": api.message(ctx, "userDeleted")})
}

func (api *TaskAPI) setTokenCookie(ctx *gin.Context, session *service.Session) {
	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	if maxAge <= 0 {
		maxAge = int(time.Duration(api.cfg.TokenTTL).Seconds())
	}
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(TokenCookie, session.Token, maxAge, "/", "", api.cfg.SecureCookie, true)
}
