package costing

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/insumos-api/internal/application/dto"
	"github.com/jhoicas/insumos-api/internal/domain"
	"github.com/jhoicas/insumos-api/internal/domain/entity"
	"github.com/jhoicas/insumos-api/internal/domain/inventory"
	"github.com/jhoicas/insumos-api/internal/domain/repository"
)

// RecipeDraft receta sin persistir. Cada línea lleva la foto de nombre, unidad y precio
// tomada al agregarla; editar el borrador nunca vuelve a leer el catálogo.
type RecipeDraft struct {
	Lines []entity.RecipeLine
}

// RemoveLine quita la línea del insumo. Sin efecto si no existe.
func (d RecipeDraft) RemoveLine(ingredientID string) RecipeDraft {
	return RecipeDraft{Lines: slices.DeleteFunc(slices.Clone(d.Lines), func(l entity.RecipeLine) bool {
		return l.IngredientID == ingredientID
	})}
}

// UpdateLineQuantity cambia la cantidad conservando la foto de precio.
func (d RecipeDraft) UpdateLineQuantity(ingredientID string, qty decimal.Decimal) (RecipeDraft, error) {
	if err := validateLineQuantity(qty); err != nil {
		return d, err
	}
	i := d.index(ingredientID)
	if i < 0 {
		return d, domain.ErrNotFound
	}
	out := RecipeDraft{Lines: slices.Clone(d.Lines)}
	out.Lines[i].Quantity = qty
	return out, nil
}

// Cost Σ quantity × snapshot_unit_price.
func (d RecipeDraft) Cost() decimal.Decimal {
	return inventory.ComputeCost(d.Lines)
}

func (d RecipeDraft) index(ingredientID string) int {
	return slices.IndexFunc(d.Lines, func(l entity.RecipeLine) bool { return l.IngredientID == ingredientID })
}

// UseCase costeo de recetas sobre fotos del catálogo. No interactúa con el ledger.
type UseCase struct {
	ingredients repository.IngredientRepository
	recipes     repository.RecipeRepository
	log         zerolog.Logger
}

// NewUseCase construye el caso de uso.
func NewUseCase(ingredients repository.IngredientRepository, recipes repository.RecipeRepository, log zerolog.Logger) *UseCase {
	return &UseCase{ingredients: ingredients, recipes: recipes, log: log}
}

// AddLine agrega el insumo al borrador tomando la foto de su nombre, unidad y precio actuales.
func (uc *UseCase) AddLine(ctx context.Context, shopID string, d RecipeDraft, ingredientID string, qty decimal.Decimal) (RecipeDraft, error) {
	if err := validateLineQuantity(qty); err != nil {
		return d, err
	}
	if d.index(ingredientID) >= 0 {
		return d, domain.NewValidationError("ingredient_id", "el insumo ya está en la receta")
	}
	ing, err := uc.ingredients.GetByID(ctx, ingredientID)
	if err != nil {
		return d, err
	}
	if ing == nil || ing.ShopID != shopID {
		return d, fmt.Errorf("insumo %s: %w", ingredientID, domain.ErrNotFound)
	}
	out := RecipeDraft{Lines: slices.Clone(d.Lines)}
	out.Lines = append(out.Lines, entity.RecipeLine{
		IngredientID:      ing.ID,
		Quantity:          qty,
		SnapshotUnitPrice: ing.CurrentUnitPrice,
		SnapshotName:      ing.Name,
		SnapshotUnit:      ing.Unit,
		CreatedAt:         time.Now().UTC(),
	})
	return out, nil
}

// Draft arma un borrador con las líneas pedidas, en orden.
func (uc *UseCase) Draft(ctx context.Context, shopID string, lines []dto.RecipeLineRequest) (RecipeDraft, error) {
	var d RecipeDraft
	for i, l := range lines {
		next, err := uc.AddLine(ctx, shopID, d, l.IngredientID, l.Quantity)
		if err != nil {
			var verr *domain.ValidationError
			if errors.As(err, &verr) {
				out := &domain.ValidationError{}
				for k, v := range verr.Fields {
					out.Add(fmt.Sprintf("lines[%d].%s", i, k), v)
				}
				return d, out
			}
			return d, err
		}
		d = next
	}
	return d, nil
}

// Quote costea un borrador transitorio sin persistir nada.
func (uc *UseCase) Quote(ctx context.Context, shopID string, in dto.RecipeQuoteRequest) (*dto.RecipeCostResponse, error) {
	if err := validatePricing(in.Lines, in.SellingPrice); err != nil {
		return nil, err
	}
	d, err := uc.Draft(ctx, shopID, in.Lines)
	if err != nil {
		return nil, err
	}
	return toCostResponse("", d.Lines, in.SellingPrice, nil), nil
}

// SaveProductRecipe guarda las líneas del producto externo con la foto de precio de este momento,
// reemplazando las anteriores. Devuelve el costo calculado sobre esa foto.
func (uc *UseCase) SaveProductRecipe(ctx context.Context, shopID, productID string, in dto.SaveRecipeRequest) (*dto.RecipeCostResponse, error) {
	if productID == "" {
		return nil, domain.NewValidationError("product_id", "required")
	}
	if err := validatePricing(in.Lines, in.SellingPrice); err != nil {
		return nil, err
	}
	d, err := uc.Draft(ctx, shopID, in.Lines)
	if err != nil {
		return nil, err
	}
	for i := range d.Lines {
		d.Lines[i].ProductID = productID
	}
	if err := uc.recipes.ReplaceProductLines(ctx, shopID, productID, d.Lines); err != nil {
		return nil, err
	}
	uc.log.Info().Str("shop_id", shopID).Str("product_id", productID).
		Str("total_ingredient_cost", d.Cost().String()).Msg("receta de producto guardada")
	at := d.Lines[0].CreatedAt
	return toCostResponse(productID, d.Lines, in.SellingPrice, &at), nil
}

// ProductCost recalcula costo y margen de un producto desde sus fotos guardadas.
// Un cambio posterior de precio en el catálogo no altera el resultado.
func (uc *UseCase) ProductCost(ctx context.Context, shopID, productID string, sellingPrice decimal.Decimal) (*dto.RecipeCostResponse, error) {
	if msg := validateSellingPrice(sellingPrice); msg != "" {
		return nil, domain.NewValidationError("selling_price", msg)
	}
	lines, err := uc.recipes.ListByProduct(ctx, shopID, productID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, domain.ErrNotFound
	}
	at := lines[0].CreatedAt
	return toCostResponse(productID, lines, sellingPrice, &at), nil
}

func validateLineQuantity(qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return domain.NewValidationError("quantity", "debe ser mayor a 0")
	}
	if verr := inventory.ValidateAmount("quantity", qty); verr != nil {
		return verr
	}
	return nil
}

func validateSellingPrice(price decimal.Decimal) string {
	if price.IsNegative() {
		return "debe ser mayor o igual a 0"
	}
	return inventory.CheckAmount(price)
}

func validatePricing(lines []dto.RecipeLineRequest, sellingPrice decimal.Decimal) error {
	verr := &domain.ValidationError{}
	if err := dto.Validate(dto.RecipeQuoteRequest{Lines: lines}); err != nil && !errors.As(err, &verr) {
		return err
	}
	if msg := validateSellingPrice(sellingPrice); msg != "" {
		verr.Add("selling_price", msg)
	}
	if verr.Empty() {
		return nil
	}
	return verr
}

func toCostResponse(productID string, lines []entity.RecipeLine, sellingPrice decimal.Decimal, at *time.Time) *dto.RecipeCostResponse {
	cost := inventory.ComputeCost(lines)
	resp := &dto.RecipeCostResponse{
		ProductID:           productID,
		Lines:               make([]dto.RecipeLineResponse, 0, len(lines)),
		TotalIngredientCost: cost,
		SellingPrice:        sellingPrice,
		SnapshotAt:          at,
	}
	for _, l := range lines {
		resp.Lines = append(resp.Lines, dto.RecipeLineResponse{
			IngredientID:      l.IngredientID,
			Quantity:          l.Quantity,
			SnapshotName:      l.SnapshotName,
			SnapshotUnit:      l.SnapshotUnit,
			SnapshotUnitPrice: l.SnapshotUnitPrice,
			LineCost:          l.Cost(),
		})
	}
	if m := inventory.ComputeMargin(sellingPrice, cost); m != nil {
		resp.Margin = &dto.MarginResponse{Profit: m.Profit, ProfitPercent: m.ProfitPercent.Round(2)}
	}
	return resp
}
