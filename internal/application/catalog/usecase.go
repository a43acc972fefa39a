package catalog

import (
	"context"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/insumos-api/internal/application/dto"
	"github.com/jhoicas/insumos-api/internal/domain"
	"github.com/jhoicas/insumos-api/internal/domain/entity"
	"github.com/jhoicas/insumos-api/internal/domain/inventory"
	"github.com/jhoicas/insumos-api/internal/domain/repository"
)

const pageSize = 100

// UseCase casos de uso CRUD del catálogo de insumos. El stock solo cambia vía ledger.
type UseCase struct {
	repo     repository.IngredientRepository
	txRunner repository.TxRunner
	log      zerolog.Logger
}

// NewUseCase construye el caso de uso.
func NewUseCase(repo repository.IngredientRepository, txRunner repository.TxRunner, log zerolog.Logger) *UseCase {
	return &UseCase{repo: repo, txRunner: txRunner, log: log}
}

// Create registra un insumo con stock 0. ErrDuplicate si el nombre (sin distinguir mayúsculas) ya existe en la tienda.
func (uc *UseCase) Create(ctx context.Context, shopID string, in dto.CreateIngredientRequest) (*dto.IngredientResponse, error) {
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	name, key, verr := normalize(in.Name)
	verr = checkPrice(verr, in.UnitPrice)
	if strings.TrimSpace(in.Unit) == "" {
		verr = addField(verr, "unit", "required")
	}
	if !verr.Empty() {
		return nil, verr
	}
	existing, err := uc.repo.GetByShopAndNameKey(ctx, shopID, key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicate
	}
	now := time.Now().UTC()
	ing := &entity.Ingredient{
		ID:               uuid.New().String(),
		ShopID:           shopID,
		Name:             name,
		NameKey:          key,
		Unit:             strings.TrimSpace(in.Unit),
		CurrentUnitPrice: in.UnitPrice,
		CurrentStock:     decimal.Zero,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := uc.repo.Create(ctx, ing); err != nil {
		return nil, err
	}
	uc.log.Info().Str("shop_id", shopID).Str("ingredient_id", ing.ID).Msg("insumo creado")
	return ToIngredientResponse(ing), nil
}

// Get obtiene un insumo de la tienda. Un insumo de otra tienda se reporta como inexistente.
func (uc *UseCase) Get(ctx context.Context, shopID, id string) (*dto.IngredientResponse, error) {
	ing, err := uc.load(ctx, shopID, id)
	if err != nil {
		return nil, err
	}
	return ToIngredientResponse(ing), nil
}

// Update modifica nombre, unidad o precio de catálogo. Solo afecta valores por defecto futuros:
// las transacciones ya registradas conservan su precio.
func (uc *UseCase) Update(ctx context.Context, shopID, id string, in dto.UpdateIngredientRequest) (*dto.IngredientResponse, error) {
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	ing, err := uc.load(ctx, shopID, id)
	if err != nil {
		return nil, err
	}
	var verr *domain.ValidationError
	if in.Name != nil {
		name, key, nerr := normalize(*in.Name)
		if nerr != nil {
			verr = nerr
		} else if key != ing.NameKey {
			other, err := uc.repo.GetByShopAndNameKey(ctx, shopID, key)
			if err != nil {
				return nil, err
			}
			if other != nil && other.ID != ing.ID {
				return nil, domain.ErrDuplicate
			}
		}
		ing.Name, ing.NameKey = name, key
	}
	if in.Unit != nil {
		if strings.TrimSpace(*in.Unit) == "" {
			verr = addField(verr, "unit", "required")
		}
		ing.Unit = strings.TrimSpace(*in.Unit)
	}
	if in.UnitPrice != nil {
		verr = checkPrice(verr, *in.UnitPrice)
		ing.CurrentUnitPrice = *in.UnitPrice
	}
	if !verr.Empty() {
		return nil, verr
	}
	ing.UpdatedAt = time.Now().UTC()
	if err := uc.repo.Update(ctx, ing); err != nil {
		return nil, err
	}
	return ToIngredientResponse(ing), nil
}

// Delete elimina el insumo si ninguna transacción, línea de lote o receta lo referencia.
// La verificación y el borrado ocurren bajo el bloqueo de la fila, de modo que una
// escritura concurrente del ledger no puede colarse entre ambos.
func (uc *UseCase) Delete(ctx context.Context, shopID, id string) error {
	return uc.txRunner.Run(ctx, func(r repository.Repos) error {
		ing, err := r.Ingredients.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if ing == nil || ing.ShopID != shopID {
			return domain.ErrNotFound
		}
		refs, err := r.Ingredients.CountReferences(ctx, id)
		if err != nil {
			return err
		}
		if refs.Any() {
			uc.log.Warn().Str("ingredient_id", id).
				Int("transactions", refs.Transactions).
				Int("batch_lines", refs.BatchLines).
				Int("recipe_lines", refs.RecipeLines).
				Msg("borrado rechazado: insumo referenciado")
			return domain.ErrConflict
		}
		return r.Ingredients.Delete(ctx, id)
	})
}

// List devuelve una página ordenada por nombre normalizado.
func (uc *UseCase) List(ctx context.Context, shopID string, in dto.ListIngredientsRequest) (*dto.IngredientListResponse, error) {
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	in.Normalize()
	f := repository.IngredientFilter{ShopID: shopID, Search: inventory.NormalizeName(in.Search), Limit: in.Limit + 1}
	if parts := dto.DecodeCursor(in.Cursor, 2); parts != nil {
		f.AfterNameKey, f.AfterID = parts[0], parts[1]
	} else if in.Cursor != "" {
		return nil, domain.NewValidationError("cursor", "cursor inválido")
	}
	list, err := uc.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := &dto.IngredientListResponse{Items: make([]dto.IngredientResponse, 0, len(list)), Page: dto.PageResponse{Limit: in.Limit}}
	if len(list) > in.Limit {
		list = list[:in.Limit]
		last := list[len(list)-1]
		out.Page.NextCursor = dto.EncodeCursor(last.NameKey, last.ID)
	}
	for _, ing := range list {
		out.Items = append(out.Items, *ToIngredientResponse(ing))
	}
	return out, nil
}

// All recorre todos los insumos de la tienda de forma perezosa, página por página.
// La secuencia puede recorrerse más de una vez; cada recorrido consulta de nuevo.
func (uc *UseCase) All(ctx context.Context, shopID, search string) iter.Seq2[*entity.Ingredient, error] {
	return func(yield func(*entity.Ingredient, error) bool) {
		f := repository.IngredientFilter{ShopID: shopID, Search: inventory.NormalizeName(search), Limit: pageSize}
		for {
			page, err := uc.repo.List(ctx, f)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, ing := range page {
				if !yield(ing, nil) {
					return
				}
			}
			if len(page) < pageSize {
				return
			}
			last := page[len(page)-1]
			f.AfterNameKey, f.AfterID = last.NameKey, last.ID
		}
	}
}

func (uc *UseCase) load(ctx context.Context, shopID, id string) (*entity.Ingredient, error) {
	ing, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ing == nil || ing.ShopID != shopID {
		return nil, domain.ErrNotFound
	}
	return ing, nil
}

func normalize(raw string) (name, key string, verr *domain.ValidationError) {
	name = inventory.CleanName(raw)
	if name == "" {
		return "", "", domain.NewValidationError("name", "required")
	}
	return name, inventory.NormalizeName(name), nil
}

func addField(verr *domain.ValidationError, field, msg string) *domain.ValidationError {
	if verr == nil {
		return domain.NewValidationError(field, msg)
	}
	return verr.Add(field, msg)
}

// checkPrice exige precio no negativo y representable con la escala de la BD.
func checkPrice(verr *domain.ValidationError, price decimal.Decimal) *domain.ValidationError {
	if price.IsNegative() {
		return addField(verr, "unit_price", "debe ser mayor o igual a 0")
	}
	if msg := inventory.CheckAmount(price); msg != "" {
		return addField(verr, "unit_price", msg)
	}
	return verr
}

// ToIngredientResponse convierte la entidad a su DTO de salida.
func ToIngredientResponse(i *entity.Ingredient) *dto.IngredientResponse {
	if i == nil {
		return nil
	}
	return &dto.IngredientResponse{
		ID:               i.ID,
		ShopID:           i.ShopID,
		Name:             i.Name,
		Unit:             i.Unit,
		CurrentUnitPrice: i.CurrentUnitPrice,
		CurrentStock:     i.CurrentStock,
		CreatedAt:        i.CreatedAt,
		UpdatedAt:        i.UpdatedAt,
	}
}
