package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/staturevogue/storefront/internal/domain"
	"github.com/staturevogue/storefront/pkg/errors"
)

// Persister stores the complete line set of a cart
type Persister interface {
	Load(ctx context.Context) ([]domain.CartLine, error)
	Save(ctx context.Context, lines []domain.CartLine) error
}

// AddResult tells the caller whether Add created a line or merged into an
// existing one, so "item added" and "quantity updated" can be told apart.
type AddResult struct {
	Line   domain.CartLine
	Merged bool
}

// Store is the cart aggregate. Lines are only changed through its methods and
// every change is written through the persister before it becomes visible.
type Store struct {
	mu        sync.RWMutex
	lines     []domain.CartLine
	persister Persister
	logger    *zap.Logger
	newID     func() string
}

// NewMemoryStore creates a cart that lives only in memory
func NewMemoryStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		logger: logger,
		newID:  func() string { return uuid.NewString() },
	}
}

// Open restores a cart from persister
func Open(ctx context.Context, persister Persister, logger *zap.Logger) (*Store, error) {
	lines, err := persister.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	s := NewMemoryStore(logger)
	s.persister = persister
	s.lines = lines
	return s, nil
}

// commit persists next and swaps it in. The in-memory state is untouched when
// persisting fails.
func (s *Store) commit(ctx context.Context, next []domain.CartLine) error {
	if s.persister != nil {
		if err := s.persister.Save(ctx, next); err != nil {
			s.logger.Error("Failed to persist cart", zap.Error(err))
			return fmt.Errorf("failed to persist cart: %w", err)
		}
	}
	s.lines = next
	return nil
}

func (s *Store) snapshot() []domain.CartLine {
	next := make([]domain.CartLine, len(s.lines))
	copy(next, s.lines)
	return next
}

// Add inserts line, or merges its quantity into the line with the same
// product, color and size. The caller is responsible for checking that the
// variant is purchasable.
func (s *Store) Add(ctx context.Context, line domain.CartLine) (AddResult, error) {
	if line.Quantity < 1 {
		return AddResult{}, &errors.ValidationError{Field: "quantity", Message: "quantity must be at least 1"}
	}
	if line.ProductID == "" || line.Size == "" {
		return AddResult{}, &errors.ValidationError{Field: "size", Message: "a product size must be selected"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snapshot()
	key := line.Key()
	for i := range next {
		if next[i].Key() == key {
			next[i].Quantity += line.Quantity
			if err := s.commit(ctx, next); err != nil {
				return AddResult{}, err
			}
			s.logger.Debug("Cart quantity updated",
				zap.String("line_id", next[i].ID),
				zap.Int("quantity", next[i].Quantity),
			)
			return AddResult{Line: next[i], Merged: true}, nil
		}
	}

	line.ID = s.newID()
	next = append(next, line)
	if err := s.commit(ctx, next); err != nil {
		return AddResult{}, err
	}
	s.logger.Debug("Cart item added", zap.String("line_id", line.ID), zap.String("product_id", line.ProductID))
	return AddResult{Line: line}, nil
}

// UpdateQuantity sets the quantity of a line. Quantities below one are
// ignored; removing a line is done with Remove.
func (s *Store) UpdateQuantity(ctx context.Context, lineID string, qty int) error {
	if qty < 1 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snapshot()
	for i := range next {
		if next[i].ID == lineID {
			if next[i].Quantity == qty {
				return nil
			}
			next[i].Quantity = qty
			return s.commit(ctx, next)
		}
	}
	return &errors.ErrNotFound{Resource: "cart line", ID: lineID}
}

// Remove deletes a line. Unknown ids are a no-op.
func (s *Store) Remove(ctx context.Context, lineID string) error {
	return s.RemoveMany(ctx, []string{lineID})
}

// RemoveMany deletes every listed line, e.g. the purchased subset after a
// payment.
func (s *Store) RemoveMany(ctx context.Context, lineIDs []string) error {
	drop := make(map[string]struct{}, len(lineIDs))
	for _, id := range lineIDs {
		drop[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]domain.CartLine, 0, len(s.lines))
	for _, line := range s.lines {
		if _, ok := drop[line.ID]; !ok {
			next = append(next, line)
		}
	}
	if len(next) == len(s.lines) {
		return nil
	}
	return s.commit(ctx, next)
}

// Clear empties the cart
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.commit(ctx, []domain.CartLine{})
}

// Lines returns a copy of the current lines in insertion order
func (s *Store) Lines() []domain.CartLine {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshot()
}

// Line looks up a single line by id
func (s *Store) Line(lineID string) (domain.CartLine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, line := range s.lines {
		if line.ID == lineID {
			return line, true
		}
	}
	return domain.CartLine{}, false
}

// Subtotal is the sum of price times quantity over all lines
func (s *Store) Subtotal() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, line := range s.lines {
		total = total.Add(line.LineTotal())
	}
	return total
}

// ItemCount is the number of units in the cart, not the number of lines
func (s *Store) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, line := range s.lines {
		count += line.Quantity
	}
	return count
}

// LineCount is the number of distinct lines
func (s *Store) LineCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.lines)
}
