package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/autocreateur/ticketd/internal/chatproxy"
	"github.com/autocreateur/ticketd/pkg/ledger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type purchaseRequest struct {
	PackageID        string `json:"package_id"`
	PaymentReference string `json:"payment_reference"`
}

type chatRequest struct {
	ToolID      string              `json:"tool_id"`
	Messages    []chatproxy.Message `json:"messages"`
	Temperature *float64            `json:"temperature"`
}

type eventPayload struct {
	EventID          string          `json:"event_id"`
	Kind             string          `json:"kind"`
	Delta            int64           `json:"delta"`
	ResultingBalance int64           `json:"resulting_balance"`
	Reference        string          `json:"reference,omitempty"`
	ActorID          string          `json:"actor_id"`
	Metadata         json.RawMessage `json:"metadata"`
	CreatedUnixUTC   int64           `json:"created_unix_utc"`
}

func (handler *httpHandler) handleWallet(ctx *gin.Context) {
	actor, ok := getActor(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthenticated", "session manquante"))
		return
	}
	balance, err := handler.ledger.Balance(ctx.Request.Context(), actor.AccountID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	events, err := handler.ledger.ListEvents(ctx.Request.Context(), actor.AccountID, actor, 0, walletHistoryEventLimit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"wallet": gin.H{
			"tickets": balance.Int64(),
			"events":  eventPayloads(events),
		},
	})
}

// handlePurchase credits a package onto the caller's account. The payment
// reference is the capture confirmation from the payment provider; no
// credit happens without it.
func (handler *httpHandler) handlePurchase(ctx *gin.Context) {
	actor, ok := getActor(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthenticated", "session manquante"))
		return
	}
	var request purchaseRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "corps JSON attendu"))
		return
	}
	if request.PaymentReference == "" {
		ctx.JSON(http.StatusBadRequest, errorResponse("payment_not_captured", "référence de paiement requise"))
		return
	}
	pkg, err := handler.catalog.GetPackage(ctx.Request.Context(), request.PackageID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	metadata, err := marshalMetadata(map[string]any{
		"action":            "purchase",
		"package_name":      pkg.Name,
		"price":             pkg.Price.String(),
		"payment_reference": request.PaymentReference,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	result, err := handler.ledger.Credit(ctx.Request.Context(), actor.AccountID, request.PackageID, actor, metadata)
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

// handleUseTool debits the tool's current catalog cost and reports the new
// balance. Affiliate tools debit nothing and return their redirect data.
func (handler *httpHandler) handleUseTool(ctx *gin.Context) {
	actor, ok := getActor(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthenticated", "session manquante"))
		return
	}
	toolID := ctx.Param("id")
	tool, err := handler.catalog.GetTool(ctx.Request.Context(), toolID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	metadata, err := marshalMetadata(map[string]any{
		"action":    "tool_use",
		"tool_name": tool.Name,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	result, err := handler.ledger.Debit(ctx.Request.Context(), actor.AccountID, toolID, actor, metadata)
	if err != nil {
		respondError(ctx, err)
		return
	}
	response := gin.H{
		"status":      "success",
		"new_balance": result.NewBalance.Int64(),
		"event_id":    result.EventID.String(),
	}
	if tool.IsAffiliate {
		response["url"] = tool.URL
		if tool.PromoCode != "" {
			response["promo_code"] = tool.PromoCode
		}
	}
	ctx.JSON(http.StatusOK, response)
}

// handleChat debits the tool, then forwards the conversation to the
// upstream model configured on the tool.
func (handler *httpHandler) handleChat(ctx *gin.Context) {
	actor, ok := getActor(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthenticated", "session manquante"))
		return
	}
	var request chatRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "corps JSON attendu"))
		return
	}
	tool, err := handler.catalog.GetTool(ctx.Request.Context(), request.ToolID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if !tool.UseAPI {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_request", "cet outil ne propose pas de génération"))
		return
	}

	metadata, err := marshalMetadata(map[string]any{
		"action":    "tool_use",
		"tool_name": tool.Name,
		"model":     tool.Model,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	result, err := handler.ledger.Debit(ctx.Request.Context(), actor.AccountID, request.ToolID, actor, metadata)
	if err != nil {
		respondError(ctx, err)
		return
	}

	messages := request.Messages
	if tool.SystemPrompt != "" && (len(messages) == 0 || messages[0].Role != "system") {
		messages = append([]chatproxy.Message{{Role: "system", Content: tool.SystemPrompt}}, messages...)
	}
	chatCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.ChatTimeout)
	defer cancel()
	content, err := handler.chat.Complete(chatCtx, chatproxy.Request{
		Messages:    messages,
		Model:       tool.Model,
		Temperature: request.Temperature,
	})
	if err != nil {
		handler.logger.Error("chat completion failed", zap.String("tool_id", request.ToolID), zap.Error(err))
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"content":     content,
		"new_balance": result.NewBalance.Int64(),
		"event_id":    result.EventID.String(),
	})
}

// handleListEvents returns the caller's event stream; admins may query any
// account via ?account=.
func (handler *httpHandler) handleListEvents(ctx *gin.Context) {
	actor, ok := getActor(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthenticated", "session manquante"))
		return
	}
	accountID := actor.AccountID
	if requested := ctx.Query("account"); requested != "" {
		parsed, err := ledger.NewAccountID(requested)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, errorResponse("invalid_request", "identifiant de compte invalide"))
			return
		}
		accountID = parsed
	}
	after, _ := strconv.ParseInt(ctx.Query("after"), 10, 64)
	limit, _ := strconv.Atoi(ctx.Query("limit"))
	if limit <= 0 {
		limit = defaultEventsPageLimit
	}
	if limit > maxEventsPageLimit {
		limit = maxEventsPageLimit
	}
	events, err := handler.ledger.ListEvents(ctx.Request.Context(), accountID, actor, after, limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"events": eventPayloads(events)})
}

func eventPayloads(events []ledger.Event) []eventPayload {
	payloads := make([]eventPayload, 0, len(events))
	for _, event := range events {
		payloads = append(payloads, eventPayload{
			EventID:          event.EventID.String(),
			Kind:             event.Kind.String(),
			Delta:            event.Delta,
			ResultingBalance: event.ResultingBalance.Int64(),
			Reference:        event.Reference,
			ActorID:          event.ActorID.String(),
			Metadata:         json.RawMessage(event.Metadata.String()),
			CreatedUnixUTC:   event.CreatedUnixUTC,
		})
	}
	return payloads
}

func marshalMetadata(metadata map[string]any) (ledger.MetadataJSON, error) {
	raw, err := json.Marshal(metadata)
	if err != nil {
		return ledger.MetadataJSON{}, err
	}
	return ledger.NewMetadataJSON(string(raw))
}
