// Package memory implementa los repositorios y el TxRunner en memoria.
// Reproduce la semántica de Postgres que el ledger necesita: bloqueo por fila
// (SELECT FOR UPDATE), llaves de idempotencia que bloquean hasta que la transacción
// dueña termine, y escrituras que solo se ven después del commit.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/insumos-api/internal/domain/entity"
	"github.com/jhoicas/insumos-api/internal/domain/repository"
)

var _ repository.TxRunner = (*Store)(nil)

// Store datos de todas las tiendas.
type Store struct {
	mu sync.RWMutex

	ingredients  map[string]*entity.Ingredient
	transactions []*entity.InventoryTransaction
	txByID       map[string]*entity.InventoryTransaction
	batches      map[string]*entity.IngredientBatch
	recipes      map[string][]entity.RecipeLine // shop|product
	idempotency  map[string]string              // shop|scope|key → result id

	locks *keyLocks
}

// New crea un store vacío.
func New() *Store {
	return &Store{
		ingredients: make(map[string]*entity.Ingredient),
		txByID:      make(map[string]*entity.InventoryTransaction),
		batches:     make(map[string]*entity.IngredientBatch),
		recipes:     make(map[string][]entity.RecipeLine),
		idempotency: make(map[string]string),
		locks:       &keyLocks{m: make(map[string]chan struct{})},
	}
}

// Repos repositorios fuera de transacción: cada escritura se aplica de inmediato.
func (s *Store) Repos() repository.Repos {
	return (&txn{s: s}).repos()
}

// Run ejecuta fn en una transacción. Las escrituras quedan en espera y se aplican
// juntas al hacer commit; si fn falla o el contexto expira, se descartan.
func (s *Store) Run(ctx context.Context, fn func(r repository.Repos) error) error {
	t := &txn{s: s, held: map[string]struct{}{}, overlay: map[string]*entity.Ingredient{}, active: true}
	defer t.release()
	if err := fn(t.repos()); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.commit()
}

// keyLocks mutex por clave que respeta la cancelación del contexto.
type keyLocks struct {
	mu sync.Mutex
	m  map[string]chan struct{}
}

func (l *keyLocks) ch(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.m[key]
	if !ok {
		c = make(chan struct{}, 1)
		l.m[key] = c
	}
	return c
}

func (l *keyLocks) acquire(ctx context.Context, key string) error {
	select {
	case l.ch(key) <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *keyLocks) release(key string) {
	<-l.ch(key)
}

// txn estado de una transacción. Con active=false cada escritura se aplica al momento.
type txn struct {
	s      *Store
	active bool

	held    map[string]struct{}
	order   []string
	checks  []func() error
	applies []func()
	// overlay lecturas propias: insumos modificados (nil = borrado) dentro de la transacción.
	overlay map[string]*entity.Ingredient
}

func (t *txn) repos() repository.Repos {
	return repository.Repos{
		Ingredients:  &IngredientRepository{t: t},
		Transactions: &TransactionRepository{t: t},
		Batches:      &BatchRepository{t: t},
		Recipes:      &RecipeRepository{t: t},
		Idempotency:  &IdempotencyRepository{t: t},
	}
}

// lock toma el lock de la clave hasta el fin de la transacción. Reentrante.
func (t *txn) lock(ctx context.Context, key string) error {
	if !t.active {
		return nil
	}
	if _, ok := t.held[key]; ok {
		return nil
	}
	if err := t.s.locks.acquire(ctx, key); err != nil {
		return err
	}
	t.held[key] = struct{}{}
	t.order = append(t.order, key)
	return nil
}

func (t *txn) release() {
	for i := len(t.order) - 1; i >= 0; i-- {
		t.s.locks.release(t.order[i])
	}
	t.order, t.held = nil, nil
}

// write registra una escritura: check se evalúa con el store bloqueado justo antes de aplicar.
func (t *txn) write(check func() error, apply func()) error {
	if !t.active {
		t.s.mu.Lock()
		defer t.s.mu.Unlock()
		if check != nil {
			if err := check(); err != nil {
				return err
			}
		}
		apply()
		return nil
	}
	if check != nil {
		t.checks = append(t.checks, check)
	}
	t.applies = append(t.applies, apply)
	return nil
}

func (t *txn) commit() error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, c := range t.checks {
		if err := c(); err != nil {
			return err
		}
	}
	for _, a := range t.applies {
		a()
	}
	return nil
}

func cloneIngredient(i *entity.Ingredient) *entity.Ingredient {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

func cloneTransaction(t *entity.InventoryTransaction) *entity.InventoryTransaction {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneBatch(b *entity.IngredientBatch) *entity.IngredientBatch {
	if b == nil {
		return nil
	}
	c := *b
	c.Lines = append([]entity.BatchLineItem(nil), b.Lines...)
	return &c
}
