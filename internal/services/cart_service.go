package services

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-order-bot/internal/cart"
	"github.com/tbourn/go-order-bot/internal/catalog"
)

// CartService validates cart changes against the catalog.
type CartService struct {
	Catalog *catalog.Catalog
	Carts   *cart.Ledger
}

// Add puts one portion of the named item into the user's cart. The name is
// matched exactly or case-insensitively; the canonical name is stored and
// returned.
func (s *CartService) Add(ctx context.Context, userID, name string) (string, error) {
	_, span := otel.Tracer("services/CartService").Start(ctx, "Add",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("item", name),
		),
	)
	defer span.End()

	it, ok := s.Catalog.Lookup(name)
	if !ok {
		return "", ErrItemNotFound
	}
	s.Carts.Add(userID, it.Name)
	transitions.WithLabelValues("cart", "add").Inc()
	return it.Name, nil
}

// View returns the cart and its total.
func (s *CartService) View(ctx context.Context, userID string) ([]string, int64) {
	_, span := otel.Tracer("services/CartService").Start(ctx, "View",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	items := s.Carts.Get(userID)
	return items, s.Catalog.Total(items)
}

// Clear empties the user's cart.
func (s *CartService) Clear(ctx context.Context, userID string) {
	_, span := otel.Tracer("services/CartService").Start(ctx, "Clear",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	s.Carts.Clear(userID)
	transitions.WithLabelValues("cart", "clear").Inc()
}
