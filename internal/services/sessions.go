package services

import (
	"sync"

	"github.com/tbourn/go-order-bot/internal/domain"
)

// State is the position of a conversation in one of the two dialogues.
type State string

// Checkout dialogue.
const (
	StateIdle                 State = "idle"
	StateCollectingName       State = "collecting_name"
	StateCollectingPhone      State = "collecting_phone"
	StateCollectingAddress    State = "collecting_address"
	StateConfirmingSubmission State = "confirming_submission"
)

// Staff edit dialogue.
const (
	StateSelectingField State = "selecting_field"
	StateEditingName    State = "editing_name"
	StateEditingPhone   State = "editing_phone"
	StateEditingAddress State = "editing_address"
	StateEditingCart    State = "editing_cart"
)

// editingState maps an editable field to the state that collects it.
var editingState = map[domain.EditField]State{
	domain.FieldName:    StateEditingName,
	domain.FieldPhone:   StateEditingPhone,
	domain.FieldAddress: StateEditingAddress,
	domain.FieldCart:    StateEditingCart,
}

// Collecting reports whether s belongs to the checkout data collection.
func (s State) Collecting() bool {
	return s == StateCollectingName || s == StateCollectingPhone || s == StateCollectingAddress
}

// Editing reports whether s waits for a new field value.
func (s State) Editing() bool {
	return s == StateEditingName || s == StateEditingPhone || s == StateEditingAddress || s == StateEditingCart
}

// Changes are the fields touched during one edit dialogue. Nil pointers and
// a false CartSet mean "keep the stored value".
type Changes struct {
	Name    *string  `json:"name,omitempty"`
	Phone   *string  `json:"phone,omitempty"`
	Address *string  `json:"address,omitempty"`
	Cart    []string `json:"cart,omitempty"`
	CartSet bool     `json:"cart_set,omitempty"`
	// Unknown lists cart lines that matched no catalog item.
	Unknown []string `json:"unknown,omitempty"`
	// Matched lists near-miss lines as "typed → catalog name".
	Matched []string `json:"matched,omitempty"`
}

// Apply merges c into rec. Total is not recomputed here.
func (c Changes) Apply(rec domain.OrderRecord) domain.OrderRecord {
	out := rec.Clone()
	if c.Name != nil {
		out.CustomerName = *c.Name
	}
	if c.Phone != nil {
		out.Phone = *c.Phone
	}
	if c.Address != nil {
		out.Address = *c.Address
	}
	if c.CartSet {
		out.Cart = append([]string(nil), c.Cart...)
	}
	return out
}

// Session is the transient dialogue state of one conversation. Only one of
// the two dialogues is active at a time: Draft is used by checkout, Target
// and Changes by the edit flow.
type Session struct {
	State   State        `json:"state"`
	Draft   domain.Draft `json:"draft"`
	Target  string       `json:"target,omitempty"`
	Changes Changes      `json:"changes"`
}

func (s Session) clone() Session {
	out := s
	out.Draft.Cart = append([]string(nil), s.Draft.Cart...)
	out.Changes.Cart = append([]string(nil), s.Changes.Cart...)
	out.Changes.Unknown = append([]string(nil), s.Changes.Unknown...)
	out.Changes.Matched = append([]string(nil), s.Changes.Matched...)
	return out
}

// Sessions is the registry of in-flight dialogues keyed by conversation id.
// Sessions live in memory only and never expire. The zero value is ready.
type Sessions struct {
	mu sync.Mutex
	m  map[string]Session
}

// Get returns a copy of the conversation's session.
func (r *Sessions) Get(conv string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[conv]
	if !ok {
		return Session{State: StateIdle}, false
	}
	return s.clone(), true
}

// Put stores a copy of s.
func (r *Sessions) Put(conv string, s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.m == nil {
		r.m = make(map[string]Session)
	}
	r.m[conv] = s.clone()
}

// Delete discards the conversation's session.
func (r *Sessions) Delete(conv string) {
	r.mu.Lock()
	delete(r.m, conv)
	r.mu.Unlock()
}

// Len reports the number of active sessions.
func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.m)
}
