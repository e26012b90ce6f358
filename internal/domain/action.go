package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ActionKind names an operation a button press (or an API client) requests.
type ActionKind string

// Customer actions.
const (
	ActShowItem    ActionKind = "show_item"
	ActAddItem     ActionKind = "add_item"
	ActViewCart    ActionKind = "view_cart"
	ActClearCart   ActionKind = "clear_cart"
	ActCheckout    ActionKind = "checkout"
	ActConfirm     ActionKind = "confirm_order"
	ActCancel      ActionKind = "cancel_order"
	ActShowCatalog ActionKind = "show_catalog"

	ActShowContacts ActionKind = "show_contacts"
	ActShowAbout    ActionKind = "show_about"
)

// Staff actions. All of them carry the order phone.
const (
	ActApprove     ActionKind = "approve"
	ActEdit        ActionKind = "edit"
	ActEditField   ActionKind = "edit_field"
	ActConfirmEdit ActionKind = "confirm_edit"
	ActContact     ActionKind = "contact"
)

// EditField is an order field staff may change.
type EditField string

const (
	FieldName    EditField = "name"
	FieldPhone   EditField = "phone"
	FieldAddress EditField = "address"
	FieldCart    EditField = "cart"
)

// ErrInvalidAction is returned by Action.Validate.
var ErrInvalidAction = errors.New("invalid action")

// Action is a decoded button payload. Which of Item, Phone, Field are used
// depends on Kind; Validate checks that the required ones are present.
type Action struct {
	Kind  ActionKind `json:"kind"`
	Item  string     `json:"item,omitempty"`
	Phone string     `json:"phone,omitempty"`
	Field EditField  `json:"field,omitempty"`
}

// Validate reports whether a is a complete, known action.
func (a Action) Validate() error {
	switch a.Kind {
	case ActViewCart, ActClearCart, ActCheckout, ActConfirm, ActCancel, ActShowCatalog,
		ActShowContacts, ActShowAbout:
		return nil
	case ActShowItem, ActAddItem:
		if strings.TrimSpace(a.Item) == "" {
			return fmt.Errorf("%w: %s requires item", ErrInvalidAction, a.Kind)
		}
		return nil
	case ActApprove, ActEdit, ActConfirmEdit, ActContact:
		if strings.TrimSpace(a.Phone) == "" {
			return fmt.Errorf("%w: %s requires phone", ErrInvalidAction, a.Kind)
		}
		return nil
	case ActEditField:
		if strings.TrimSpace(a.Phone) == "" {
			return fmt.Errorf("%w: %s requires phone", ErrInvalidAction, a.Kind)
		}
		if !a.Field.Valid() {
			return fmt.Errorf("%w: unknown field %q", ErrInvalidAction, a.Field)
		}
		return nil
	case "":
		return fmt.Errorf("%w: missing kind", ErrInvalidAction)
	}
	return fmt.Errorf("%w: unknown kind %q", ErrInvalidAction, a.Kind)
}

// Staff reports whether the action belongs to the operator channel.
func (a Action) Staff() bool {
	switch a.Kind {
	case ActApprove, ActEdit, ActEditField, ActConfirmEdit, ActContact:
		return true
	}
	return false
}

// Valid reports whether f is an editable field.
func (f EditField) Valid() bool {
	switch f {
	case FieldName, FieldPhone, FieldAddress, FieldCart:
		return true
	}
	return false
}
