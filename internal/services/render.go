package services

import (
	"fmt"
	"strings"

	"github.com/tbourn/go-order-bot/internal/catalog"
	"github.com/tbourn/go-order-bot/internal/domain"
)

const currency = "₽"

func money(v int64) string { return fmt.Sprintf("%d%s", v, currency) }

func button(text string, a domain.Action) domain.Button {
	return domain.Button{Text: text, Action: a}
}

func welcome() domain.Outbound {
	return domain.Outbound{
		Text: "Welcome to our food delivery! 🛵🍔\nBrowse the menu, add dishes to your cart and check out when ready.",
		Buttons: []domain.Button{
			button("🍔 Menu", domain.Action{Kind: domain.ActShowCatalog}),
			button("🛒 Cart", domain.Action{Kind: domain.ActViewCart}),
			button("📞 Contacts", domain.Action{Kind: domain.ActShowContacts}),
			button("ℹ️ About us", domain.Action{Kind: domain.ActShowAbout}),
		},
	}
}

func infoView(text string) domain.Outbound {
	return domain.Outbound{
		Text: text,
		Buttons: []domain.Button{
			button("🍔 Menu", domain.Action{Kind: domain.ActShowCatalog}),
			button("🛒 Cart", domain.Action{Kind: domain.ActViewCart}),
		},
	}
}

const (
	contactsText = "📞 Our phone: +7 999 123 45 67\n🌍 Our website: https://example.com"
	aboutText    = "🍔 The best food delivery in town! 🚀\nWe cook with fresh ingredients only."
)

func menuView(cat *catalog.Catalog) domain.Outbound {
	var b strings.Builder
	b.WriteString("🍔 Menu\n")
	var buttons []domain.Button
	for _, c := range cat.All() {
		fmt.Fprintf(&b, "\n%s:\n", c.Name)
		for _, it := range c.Items {
			fmt.Fprintf(&b, "• %s (%s)\n", it.Name, money(it.Price))
			buttons = append(buttons, button(it.Name, domain.Action{Kind: domain.ActShowItem, Item: it.Name}))
		}
	}
	buttons = append(buttons, button("🛒 Cart", domain.Action{Kind: domain.ActViewCart}))
	return domain.Outbound{Text: strings.TrimRight(b.String(), "\n"), Buttons: buttons}
}

func itemCard(it catalog.Item, photo string, ready bool) domain.Outbound {
	text := fmt.Sprintf("%s\n\n📝 %s\n💰 Price: %s", it.Name, it.Description, money(it.Price))
	out := domain.Outbound{
		Text: text,
		Buttons: []domain.Button{
			button("➕ Add to cart", domain.Action{Kind: domain.ActAddItem, Item: it.Name}),
			button("⬅️ Back to menu", domain.Action{Kind: domain.ActShowCatalog}),
		},
	}
	if ready {
		out.Photo = photo
	} else if it.Photo != "" {
		out.Text += "\n\n⚠️ The photo for this item is not available right now."
	}
	return out
}

func cartView(items []string, total int64) domain.Outbound {
	if len(items) == 0 {
		return domain.Outbound{
			Text:    "🛒 Your cart is empty.",
			Buttons: []domain.Button{button("🍔 Menu", domain.Action{Kind: domain.ActShowCatalog})},
		}
	}
	return domain.Outbound{
		Text: fmt.Sprintf("🛒 Your cart:\n%s\n\n💰 Total: %s", strings.Join(items, "\n"), money(total)),
		Buttons: []domain.Button{
			button("✅ Checkout", domain.Action{Kind: domain.ActCheckout}),
			button("❌ Clear cart", domain.Action{Kind: domain.ActClearCart}),
		},
	}
}

func draftSummary(d domain.Draft) domain.Outbound {
	text := fmt.Sprintf("📦 Your order:\n\n👤 Name: %s\n📞 Phone: %s\n🏠 Address: %s\n🛒 Items:\n%s\n💰 Total: %s\n\nIs everything correct?",
		d.Name, d.Phone, d.Address, strings.Join(d.Cart, "\n"), money(d.TotalPrice))
	return domain.Outbound{
		Text: text,
		Buttons: []domain.Button{
			button("✅ Yes, place the order", domain.Action{Kind: domain.ActConfirm}),
			button("❌ No, start over", domain.Action{Kind: domain.ActCancel}),
		},
	}
}

// orderText is the summary staff and kitchen receive.
func orderText(title string, rec domain.OrderRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", title)
	fmt.Fprintf(&b, "👤 Name: %s\n", rec.CustomerName)
	fmt.Fprintf(&b, "📞 Phone: %s\n", rec.Phone)
	fmt.Fprintf(&b, "🏠 Address: %s\n", rec.Address)
	fmt.Fprintf(&b, "🛒 Items:\n%s\n", strings.Join(rec.Cart, "\n"))
	fmt.Fprintf(&b, "💰 Total: %s", money(rec.TotalPrice))
	if rec.Username != "" {
		fmt.Fprintf(&b, "\n\n👤 Username: @%s", strings.TrimPrefix(rec.Username, "@"))
	}
	return b.String()
}

func staffButtons(phone string) []domain.Button {
	return []domain.Button{
		button("✅ Approve order", domain.Action{Kind: domain.ActApprove, Phone: phone}),
		button("✏️ Edit order", domain.Action{Kind: domain.ActEdit, Phone: phone}),
		button("📞 Contact customer", domain.Action{Kind: domain.ActContact, Phone: phone}),
	}
}

func editMenu(phone, note string) domain.Outbound {
	text := "Choose what to edit:"
	if note != "" {
		text = note + "\n\n" + text
	}
	return domain.Outbound{
		Text: text,
		Buttons: []domain.Button{
			button("👤 Name", domain.Action{Kind: domain.ActEditField, Phone: phone, Field: domain.FieldName}),
			button("📞 Phone", domain.Action{Kind: domain.ActEditField, Phone: phone, Field: domain.FieldPhone}),
			button("🏠 Address", domain.Action{Kind: domain.ActEditField, Phone: phone, Field: domain.FieldAddress}),
			button("🛒 Items", domain.Action{Kind: domain.ActEditField, Phone: phone, Field: domain.FieldCart}),
			button("✅ Confirm changes", domain.Action{Kind: domain.ActConfirmEdit, Phone: phone}),
		},
	}
}

var fieldPrompts = map[domain.EditField]string{
	domain.FieldName:    "Enter the new name:",
	domain.FieldPhone:   "Enter the new phone number:",
	domain.FieldAddress: "Enter the new address:",
	domain.FieldCart:    "Enter the new list of items, one per line:",
}
