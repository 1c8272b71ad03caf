package httpapi

import (
	"net/http"

	"github.com/autocreateur/ticketd/internal/directory"
	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profilePayload struct {
	AccountID      string `json:"account_id"`
	Email          string `json:"email"`
	DisplayName    string `json:"display_name"`
	IsAdmin        bool   `json:"is_admin"`
	IsBanned       bool   `json:"is_banned"`
	Tickets        int64  `json:"tickets"`
	CreatedUnixUTC int64  `json:"created_unix_utc"`
}

func (handler *httpHandler) handleRegister(ctx *gin.Context) {
	var request registerRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "corps JSON attendu"))
		return
	}
	profile, err := handler.directory.Register(ctx.Request.Context(), request.Email, request.DisplayName, request.Password)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"profile": profilePayloadFrom(profile)})
}

func (handler *httpHandler) handleLogin(ctx *gin.Context) {
	var request loginRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "corps JSON attendu"))
		return
	}
	session, err := handler.directory.Authenticate(ctx.Request.Context(), request.Email, request.Password)
	if err != nil {
		respondError(ctx, err)
		return
	}
	maxAge := int(handler.cfg.SessionTTL.Seconds())
	ctx.SetCookie(handler.cfg.SessionCookieName, session.Token, maxAge, "/", "", true, true)
	ctx.JSON(http.StatusOK, gin.H{
		"token":   session.Token,
		"expires": session.ExpiresAt.Unix(),
		"profile": profilePayloadFrom(session.Profile),
	})
}

func (handler *httpHandler) handleSession(ctx *gin.Context) {
	profile, ok := getProfile(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthenticated", "session manquante"))
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"profile": profilePayloadFrom(profile)})
}

func profilePayloadFrom(profile directory.Profile) profilePayload {
	return profilePayload{
		AccountID:      profile.AccountID,
		Email:          profile.Email,
		DisplayName:    profile.DisplayName,
		IsAdmin:        profile.IsAdmin,
		IsBanned:       profile.IsBanned,
		Tickets:        profile.Tickets,
		CreatedUnixUTC: profile.CreatedUnixUTC,
	}
}
