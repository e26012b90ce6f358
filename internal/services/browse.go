package services

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-order-bot/internal/domain"
)

// ShowCatalog lists the menu with one button per item.
func (e *Engine) ShowCatalog(ctx context.Context) domain.Outbound {
	_, span := otel.Tracer("services/Engine").Start(ctx, "ShowCatalog")
	defer span.End()
	return menuView(e.Catalog)
}

// ShowItem renders an item card. A missing photo is reported in the text;
// it is not an error.
func (e *Engine) ShowItem(ctx context.Context, name string) (domain.Outbound, error) {
	_, span := otel.Tracer("services/Engine").Start(ctx, "ShowItem",
		trace.WithAttributes(attribute.String("item", name)),
	)
	defer span.End()

	it, ok := e.Catalog.Lookup(name)
	if !ok {
		return domain.Outbound{}, ErrItemNotFound
	}
	photo, ready := e.Catalog.Photo(it.Name)
	span.SetAttributes(attribute.Bool("photo.ready", ready))
	return itemCard(it, photo, ready), nil
}

// AddItem puts an item into the user's cart.
func (e *Engine) AddItem(ctx context.Context, userID, name string) (domain.Outbound, error) {
	added, err := e.Cart.Add(ctx, userID, name)
	if err != nil {
		return domain.Outbound{}, err
	}
	return domain.Outbound{Text: added + " added to your cart! ✅", Alert: true}, nil
}

// ViewCart shows the cart with its total.
func (e *Engine) ViewCart(ctx context.Context, userID string) domain.Outbound {
	items, total := e.Cart.View(ctx, userID)
	return cartView(items, total)
}

// ClearCart empties the cart. A draft already copied into a checkout
// dialogue is not affected.
func (e *Engine) ClearCart(ctx context.Context, userID string) domain.Outbound {
	e.Cart.Clear(ctx, userID)
	return domain.Outbound{Text: "🛒 Cart cleared!", Alert: true}
}
