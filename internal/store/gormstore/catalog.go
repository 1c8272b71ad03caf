package gormstore

import (
	"context"
	"errors"

	"github.com/autocreateur/ticketd/internal/catalog"
	"github.com/autocreateur/ticketd/pkg/ledger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ListTools returns every catalog tool ordered by name.
func (store *Store) ListTools(ctx context.Context) ([]catalog.Tool, error) {
	var rows []Tool
	if err := store.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, wrapStoreError("tool", errorCodeList, err)
	}
	tools := make([]catalog.Tool, 0, len(rows))
	for _, row := range rows {
		tool, err := mapTool(row)
		if err != nil {
			return nil, wrapStoreError("tool", errorCodeInvalid, err)
		}
		tools = append(tools, tool)
	}
	return tools, nil
}

// GetTool returns one tool by id.
func (store *Store) GetTool(ctx context.Context, toolID string) (catalog.Tool, error) {
	var model Tool
	err := store.db.WithContext(ctx).Where("tool_id = ?", toolID).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return catalog.Tool{}, ledger.ErrUnknownTool
		}
		return catalog.Tool{}, wrapStoreError("tool", errorCodeGet, err)
	}
	return mapTool(model)
}

// CreateTool inserts a new tool.
func (store *Store) CreateTool(ctx context.Context, tool catalog.Tool) error {
	model := toolModel(tool)
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return wrapStoreError("tool", errorCodeInsert, err)
	}
	return nil
}

// UpdateTool rewrites an existing tool definition.
func (store *Store) UpdateTool(ctx context.Context, tool catalog.Tool) error {
	model := toolModel(tool)
	result := store.db.WithContext(ctx).
		Model(&Tool{}).
		Where("tool_id = ?", tool.ID).
		Updates(map[string]any{
			"name":               model.Name,
			"description":        model.Description,
			"ticket_cost":        model.TicketCost,
			"url":                model.URL,
			"is_affiliate":       model.IsAffiliate,
			"promo_code":         model.PromoCode,
			"icon_name":          model.IconName,
			"category":           model.Category,
			"model":              model.Model,
			"system_prompt":      model.SystemPrompt,
			"use_api":            model.UseAPI,
			"usage_instructions": model.UsageInstructions,
		})
	if result.Error != nil {
		return wrapStoreError("tool", errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return ledger.ErrUnknownTool
	}
	return nil
}

// DeleteTool removes a tool from the catalog.
func (store *Store) DeleteTool(ctx context.Context, toolID string) error {
	result := store.db.WithContext(ctx).Where("tool_id = ?", toolID).Delete(&Tool{})
	if result.Error != nil {
		return wrapStoreError("tool", "delete", result.Error)
	}
	if result.RowsAffected == 0 {
		return ledger.ErrUnknownTool
	}
	return nil
}

// UpdateToolCost changes one tool's ticket cost, scoped to its category.
func (store *Store) UpdateToolCost(ctx context.Context, toolID string, category catalog.Category, cost int64) error {
	result := store.db.WithContext(ctx).
		Model(&Tool{}).
		Where("tool_id = ? AND category = ?", toolID, category.String()).
		Update("ticket_cost", cost)
	if result.Error != nil {
		return wrapStoreError("tool", errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return ledger.ErrUnknownTool
	}
	return nil
}

// ListPackages returns packages ordered by price ascending, the storefront
// display order.
func (store *Store) ListPackages(ctx context.Context) ([]catalog.TicketPackage, error) {
	var rows []TicketPackage
	if err := store.db.WithContext(ctx).Order("price ASC").Find(&rows).Error; err != nil {
		return nil, wrapStoreError("package", errorCodeList, err)
	}
	packages := make([]catalog.TicketPackage, 0, len(rows))
	for _, row := range rows {
		packages = append(packages, mapPackage(row))
	}
	return packages, nil
}

// GetPackage returns one package by id.
func (store *Store) GetPackage(ctx context.Context, packageID string) (catalog.TicketPackage, error) {
	var model TicketPackage
	err := store.db.WithContext(ctx).Where("package_id = ?", packageID).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return catalog.TicketPackage{}, ledger.ErrUnknownPackage
		}
		return catalog.TicketPackage{}, wrapStoreError("package", errorCodeGet, err)
	}
	return mapPackage(model), nil
}

// UpdatePackage changes a package's ticket amount and price.
func (store *Store) UpdatePackage(ctx context.Context, packageID string, amount int64, price decimal.Decimal) error {
	result := store.db.WithContext(ctx).
		Model(&TicketPackage{}).
		Where("package_id = ?", packageID).
		Updates(map[string]any{
			"amount": amount,
			"price":  price,
		})
	if result.Error != nil {
		return wrapStoreError("package", errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return ledger.ErrUnknownPackage
	}
	return nil
}

func mapTool(model Tool) (catalog.Tool, error) {
	category, err := catalog.ParseCategory(model.Category)
	if err != nil {
		return catalog.Tool{}, err
	}
	return catalog.Tool{
		ID:                model.ToolID,
		Name:              model.Name,
		Description:       model.Description,
		TicketCost:        model.TicketCost,
		URL:               model.URL,
		IsAffiliate:       model.IsAffiliate,
		PromoCode:         model.PromoCode,
		IconName:          model.IconName,
		Category:          category,
		Model:             model.Model,
		SystemPrompt:      model.SystemPrompt,
		UseAPI:            model.UseAPI,
		UsageInstructions: model.UsageInstructions,
	}, nil
}

func toolModel(tool catalog.Tool) Tool {
	return Tool{
		ToolID:            tool.ID,
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

func mapPackage(model TicketPackage) catalog.TicketPackage {
	return catalog.TicketPackage{
		ID:     model.PackageID,
		Name:   model.Name,
		Amount: model.Amount,
		Price:  model.Price,
	}
}
