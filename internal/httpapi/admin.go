package httpapi

import (
	"net/http"

	"github.com/autocreateur/ticketd/internal/catalog"
	"github.com/autocreateur/ticketd/pkg/ledger"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type adjustBalanceRequest struct {
	Balance int64  `json:"balance"`
	Reason  string `json:"reason"`
}

type setBannedRequest struct {
	Banned bool `json:"banned"`
}

type refundRequest struct {
	EventID string `json:"event_id"`
	Reason  string `json:"reason"`
}

type updateCostRequest struct {
	Category string `json:"category"`
	Cost     int64  `json:"cost"`
}

type updatePackageRequest struct {
	Amount int64  `json:"amount"`
	Price  string `json:"price"`
}

// Admin handlers re-check nothing themselves: authorization lives in the
// directory-resolved actor, and the services enforce it.

func (handler *httpHandler) handleAdminListUsers(ctx *gin.Context) {
	actor, ok := getActor(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthenticated", "session manquante"))
		return
	}
	profiles, err := handler.directory.ListProfiles(ctx.Request.Context(), actor)
	if err != nil {
		respondError(ctx, err)
		return
	}
	payloads := make([]profilePayload, 0, len(profiles))
	for _, profile := range profiles {
		payloads = append(payloads, profilePayloadFrom(profile))
	}
	ctx.JSON(http.StatusOK, gin.H{"users": payloads})
}

func (handler *httpHandler) handleAdminAdjustBalance(ctx *gin.Context) {
	actor, ok := getActor(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthenticated", "session manquante"))
		return
	}
	accountID, err := ledger.NewAccountID(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_request", "identifiant de compte invalide"))
		return
	}
	var request adjustBalanceRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "corps JSON attendu"))
		return
	}
	newBalance, err := ledger.NewTicketCount(request.Balance)
	if err != nil {
		respondError(ctx, err)
		return
	}
	metadata, err := marshalMetadata(map[string]any{
		"action": "admin_adjust",
		"reason": request.Reason,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	result, err := handler.ledger.AdminAdjust(ctx.Request.Context(), accountID, newBalance, actor, metadata)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"status":      "success",
		"new_balance": result.NewBalance.Int64(),
		"event_id":    result.EventID.String(),
	})
}

func (handler *httpHandler) handleAdminSetBanned(ctx *gin.Context) {
	actor, ok := getActor(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthenticated", "session manquante"))
		return
	}
	var request setBannedRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "corps JSON attendu"))
		return
	}
	if err := handler.directory.SetBanned(ctx.Request.Context(), ctx.Param("id"), request.Banned, actor); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (handler *httpHandler) handleAdminRefund(ctx *gin.Context) {
	actor, ok := getActor(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthenticated", "session manquante"))
		return
	}
	accountID, err := ledger.NewAccountID(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_request", "identifiant de compte invalide"))
		return
	}
	var request refundRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "corps JSON attendu"))
		return
	}
	eventID, err := ledger.NewEventID(request.EventID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	metadata, err := marshalMetadata(map[string]any{
		"action": "refund",
		"reason": request.Reason,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	result, err := handler.ledger.Refund(ctx.Request.Context(), accountID, eventID, actor, metadata)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"status":      "success",
		"new_balance": result.NewBalance.Int64(),
		"event_id":    result.EventID.String(),
	})
}

// handleAdminAnonymize is the destructive end of user management: identity
// is blanked, the account banned, and the ledger history kept.
func (handler *httpHandler) handleAdminAnonymize(ctx *gin.Context) {
	actor, ok := getActor(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthenticated", "session manquante"))
		return
	}
	if err := handler.directory.Anonymize(ctx.Request.Context(), ctx.Param("id"), actor); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (handler *httpHandler) handleAdminAddTool(ctx *gin.Context) {
	actor, ok := getActor(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthenticated", "session manquante"))
		return
	}
	var payload toolPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "corps JSON attendu"))
		return
	}
	tool, err := toolFromPayload(payload)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if err := handler.catalog.AddTool(ctx.Request.Context(), tool, actor); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"status": "success"})
}

func (handler *httpHandler) handleAdminUpdateTool(ctx *gin.Context) {
	actor, ok := getActor(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthenticated", "session manquante"))
		return
	}
	var payload toolPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "corps JSON attendu"))
		return
	}
	payload.ID = ctx.Param("id")
	tool, err := toolFromPayload(payload)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if err := handler.catalog.UpdateTool(ctx.Request.Context(), tool, actor); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (handler *httpHandler) handleAdminDeleteTool(ctx *gin.Context) {
	actor, ok := getActor(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthenticated", "session manquante"))
		return
	}
	if err := handler.catalog.DeleteTool(ctx.Request.Context(), ctx.Param("id"), actor); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (handler *httpHandler) handleAdminUpdateToolCost(ctx *gin.Context) {
	actor, ok := getActor(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthenticated", "session manquante"))
		return
	}
	var request updateCostRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "corps JSON attendu"))
		return
	}
	category, err := catalog.ParseCategory(request.Category)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if err := handler.catalog.UpdateToolCost(ctx.Request.Context(), ctx.Param("id"), category, request.Cost, actor); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (handler *httpHandler) handleAdminUpdatePackage(ctx *gin.Context) {
	actor, ok := getActor(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthenticated", "session manquante"))
		return
	}
	var request updatePackageRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "corps JSON attendu"))
		return
	}
	price, err := decimal.NewFromString(request.Price)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_request", "prix invalide"))
		return
	}
	if err := handler.catalog.UpdatePackage(ctx.Request.Context(), ctx.Param("id"), request.Amount, price, actor); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "success"})
}
