package domain

import (
	"errors"
	"testing"
)

func TestAction_Validate(t *testing.T) {
	ok := []Action{
		{Kind: ActViewCart},
		{Kind: ActClearCart},
		{Kind: ActCheckout},
		{Kind: ActConfirm},
		{Kind: ActCancel},
		{Kind: ActShowCatalog},
		{Kind: ActShowContacts},
		{Kind: ActShowAbout},
		{Kind: ActAddItem, Item: "Пицца Маргарита"},
		{Kind: ActShowItem, Item: "Пицца Маргарита"},
		{Kind: ActApprove, Phone: "+7900"},
		{Kind: ActEdit, Phone: "+7900"},
		{Kind: ActConfirmEdit, Phone: "+7900"},
		{Kind: ActContact, Phone: "+7900"},
		{Kind: ActEditField, Phone: "+7900", Field: FieldCart},
	}
	for _, a := range ok {
		if err := a.Validate(); err != nil {
			t.Fatalf("Validate(%+v) = %v, want nil", a, err)
		}
	}

	bad := []Action{
		{},
		{Kind: "dance"},
		{Kind: ActAddItem},
		{Kind: ActShowItem, Item: "  "},
		{Kind: ActApprove},
		{Kind: ActEditField, Phone: "+7900"},
		{Kind: ActEditField, Phone: "+7900", Field: "email"},
		{Kind: ActEditField, Field: FieldName},
	}
	for _, a := range bad {
		if err := a.Validate(); !errors.Is(err, ErrInvalidAction) {
			t.Fatalf("Validate(%+v) = %v, want ErrInvalidAction", a, err)
		}
	}
}

func TestAction_Staff(t *testing.T) {
	if !(Action{Kind: ActApprove}).Staff() || !(Action{Kind: ActEditField}).Staff() {
		t.Fatalf("staff actions not recognized")
	}
	if (Action{Kind: ActCheckout}).Staff() {
		t.Fatalf("checkout is a customer action")
	}
}
