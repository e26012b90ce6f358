// Package services implements the order workflow: carts, the checkout
// dialogue, the staff edit and approval flows, and the notifications those
// transitions send.
//
// The errors below are the rejections a caller can see. Handlers translate
// them into status codes and user-facing text.
package services

import "errors"

var (
	// ErrCartEmpty rejects checkout of an empty cart. No state changes.
	ErrCartEmpty = errors.New("cart is empty")

	// ErrOrderNotFound means no pending order exists for the phone.
	ErrOrderNotFound = errors.New("order not found")

	// ErrItemNotFound means the name does not match any catalog item.
	ErrItemNotFound = errors.New("item not found")

	// ErrNoActiveDialog rejects an action that does not fit the conversation's
	// current state (for example confirming a checkout that was never started).
	ErrNoActiveDialog = errors.New("no active dialog")

	// ErrForbidden rejects staff actions coming from a customer conversation.
	ErrForbidden = errors.New("action not allowed in this chat")

	// ErrPhoneTaken rejects an edit that moves an order onto a phone with its
	// own pending order. The edit dialogue stays open for another value.
	ErrPhoneTaken = errors.New("phone already has a pending order")

	// ErrPersist wraps order store failures. The session is kept so the user
	// can retry.
	ErrPersist = errors.New("order could not be saved")
)
