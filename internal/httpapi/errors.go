package httpapi

import (
	"errors"
	"net/http"

	"github.com/autocreateur/ticketd/internal/catalog"
	"github.com/autocreateur/ticketd/internal/chatproxy"
	"github.com/autocreateur/ticketd/internal/directory"
	"github.com/autocreateur/ticketd/pkg/ledger"
	"github.com/gin-gonic/gin"
)

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// respondError maps domain failures to HTTP outcomes. Insufficient balance
// is a 409 the storefront turns into a purchase prompt; contention that
// exhausted its retries is a 503 "try again".
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, directory.ErrUnauthenticated):
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthenticated", "authentification requise"))
	case errors.Is(err, ledger.ErrAccountBanned):
		ctx.JSON(http.StatusForbidden, errorResponse("account_banned", "compte suspendu"))
	case errors.Is(err, ledger.ErrForbidden):
		ctx.JSON(http.StatusForbidden, errorResponse("forbidden", "accès administrateur requis"))
	case errors.Is(err, ledger.ErrInsufficientTickets):
		ctx.JSON(http.StatusConflict, errorResponse("insufficient_tickets", "solde de tickets insuffisant"))
	case errors.Is(err, ledger.ErrAccountNotFound), errors.Is(err, directory.ErrProfileNotFound):
		ctx.JSON(http.StatusNotFound, errorResponse("account_not_found", "compte introuvable"))
	case errors.Is(err, ledger.ErrUnknownTool):
		ctx.JSON(http.StatusNotFound, errorResponse("unknown_tool", "outil introuvable"))
	case errors.Is(err, ledger.ErrUnknownPackage):
		ctx.JSON(http.StatusNotFound, errorResponse("unknown_package", "pack introuvable"))
	case errors.Is(err, ledger.ErrUnknownEvent):
		ctx.JSON(http.StatusNotFound, errorResponse("unknown_event", "événement introuvable"))
	case errors.Is(err, ledger.ErrEventNotRefundable):
		ctx.JSON(http.StatusConflict, errorResponse("event_not_refundable", "événement non remboursable"))
	case errors.Is(err, directory.ErrEmailTaken):
		ctx.JSON(http.StatusConflict, errorResponse("email_taken", "email déjà utilisé"))
	case errors.Is(err, directory.ErrInvalidEmail),
		errors.Is(err, directory.ErrInvalidPassword),
		errors.Is(err, ledger.ErrInvalidTicketCount),
		errors.Is(err, ledger.ErrInvalidAccountID),
		errors.Is(err, ledger.ErrInvalidEventID),
		errors.Is(err, ledger.ErrInvalidMetadataJSON),
		errors.Is(err, catalog.ErrInvalidCategory),
		errors.Is(err, catalog.ErrInvalidToolDefinition),
		errors.Is(err, catalog.ErrInvalidPackageUpdate),
		errors.Is(err, chatproxy.ErrInvalidChatInput):
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_request", err.Error()))
	case errors.Is(err, ledger.ErrStorageUnavailable):
		ctx.JSON(http.StatusServiceUnavailable, errorResponse("storage_unavailable", "service momentanément indisponible, réessayez"))
	case errors.Is(err, chatproxy.ErrUpstream):
		ctx.JSON(http.StatusBadGateway, errorResponse("upstream_error", "le service de génération a échoué"))
	default:
		ctx.JSON(http.StatusInternalServerError, errorResponse("internal_error", "une erreur interne est survenue"))
	}
}
