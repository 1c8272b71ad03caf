package httpapi

import (
	"net/http"

	"github.com/autocreateur/ticketd/internal/catalog"
	"github.com/gin-gonic/gin"
)

type toolPayload struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	TicketCost        int64  `json:"ticket_cost"`
	URL               string `json:"url,omitempty"`
	IsAffiliate       bool   `json:"is_affiliate"`
	PromoCode         string `json:"promo_code,omitempty"`
	IconName          string `json:"icon_name,omitempty"`
	Category          string `json:"category"`
	Model             string `json:"model,omitempty"`
	SystemPrompt      string `json:"system_prompt,omitempty"`
	UseAPI            bool   `json:"use_api"`
	UsageInstructions string `json:"usage_instructions,omitempty"`
}

type packagePayload struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
	Price  string `json:"price"`
}

func (handler *httpHandler) handleListTools(ctx *gin.Context) {
	tools, err := handler.catalog.ListTools(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	payloads := make([]toolPayload, 0, len(tools))
	for _, tool := range tools {
		payloads = append(payloads, toolPayloadFrom(tool))
	}
	ctx.JSON(http.StatusOK, gin.H{"tools": payloads})
}

func (handler *httpHandler) handleListPackages(ctx *gin.Context) {
	packages, err := handler.catalog.ListPackages(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	payloads := make([]packagePayload, 0, len(packages))
	for _, pkg := range packages {
		payloads = append(payloads, packagePayload{
			ID:     pkg.ID,
			Name:   pkg.Name,
			Amount: pkg.Amount,
			Price:  pkg.Price.String(),
		})
	}
	ctx.JSON(http.StatusOK, gin.H{"packages": payloads})
}

func toolPayloadFrom(tool catalog.Tool) toolPayload {
	return toolPayload{
		ID:                tool.ID,
		Name:              tool.Name,
		Description:       tool.Description,
		TicketCost:        tool.TicketCost,
		URL:               tool.URL,
		IsAffiliate:       tool.IsAffiliate,
		PromoCode:         tool.PromoCode,
		IconName:          tool.IconName,
		Category:          tool.Category.String(),
		Model:             tool.Model,
		SystemPrompt:      tool.SystemPrompt,
		UseAPI:            tool.UseAPI,
		UsageInstructions: tool.UsageInstructions,
	}
}

func toolFromPayload(payload toolPayload) (catalog.Tool, error) {
	category, err := catalog.ParseCategory(payload.Category)
	if err != nil {
		return catalog.Tool{}, err
	}
	return catalog.Tool{
		ID:                payload.ID,
		Name:              payload.Name,
		Description:       payload.Description,
		TicketCost:        payload.TicketCost,
		URL:               payload.URL,
		IsAffiliate:       payload.IsAffiliate,
		PromoCode:         payload.PromoCode,
		IconName:          payload.IconName,
		Category:          category,
		Model:             payload.Model,
		SystemPrompt:      payload.SystemPrompt,
		UseAPI:            payload.UseAPI,
		UsageInstructions: payload.UsageInstructions,
	}, nil
}
