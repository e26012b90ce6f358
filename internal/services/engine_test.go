package services

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tbourn/go-order-bot/internal/domain"
	"github.com/tbourn/go-order-bot/internal/events"
	"github.com/tbourn/go-order-bot/internal/ledger"
	"github.com/tbourn/go-order-bot/internal/repo"
)

const phone = "+79990000000"

func TestCheckoutThenApprove(t *testing.T) {
	f := newFixture(t)
	before := testutil.ToFloat64(transitions.WithLabelValues("approval", "dispatched"))

	f.checkout(t, "u1", "Ivan Petrov", phone, "Lenina 1", "Суши с лососем")

	rec, err := f.store.Get(context.Background(), phone)
	if err != nil {
		t.Fatalf("pending order missing: %v", err)
	}
	if rec.CustomerName != "Ivan Petrov" || rec.Address != "Lenina 1" || rec.TotalPrice != 600 ||
		!reflect.DeepEqual(rec.Cart, []string{"Суши с лососем"}) || rec.Username != "u1" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if items, _ := f.e.Cart.View(context.Background(), "u1"); len(items) != 0 {
		t.Fatalf("cart should be cleared after submission, got %v", items)
	}
	if _, ok := f.e.Session("u1"); ok {
		t.Fatalf("draft should be discarded after submission")
	}

	staff := f.tr.to(staffChat)
	if len(staff) != 1 || !strings.Contains(staff[0].Text, "📦 New order!") || !strings.Contains(staff[0].Text, "600₽") {
		t.Fatalf("staff notification = %+v", staff)
	}
	if len(staff[0].Buttons) != 3 || staff[0].Buttons[0].Action != *staffAct(domain.ActApprove, phone) {
		t.Fatalf("staff buttons = %+v", staff[0].Buttons)
	}

	out := f.do(t, Update{ChatID: staffChat, Action: staffAct(domain.ActApprove, phone)})
	if !out.Alert || !strings.Contains(out.Text, "approved") {
		t.Fatalf("approve reply = %+v", out)
	}

	if k := f.tr.to(kitchenChat); len(k) != 1 || !strings.Contains(k[0].Text, "Ivan Petrov") {
		t.Fatalf("kitchen notification = %+v", k)
	}
	rows, _ := f.table.Rows(context.Background())
	want := ledger.Row{Name: "Ivan Petrov", Phone: phone, Address: "Lenina 1", Cart: "Суши с лососем", Total: "600"}
	if len(rows) != 1 || rows[0] != want {
		t.Fatalf("ledger rows = %+v", rows)
	}
	if _, err := f.store.Get(context.Background(), phone); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("dispatched order must leave the pending set, err=%v", err)
	}
	if got := f.events.Types(); !reflect.DeepEqual(got, []string{events.TypeOrderSubmitted, events.TypeOrderDispatched}) {
		t.Fatalf("events = %v", got)
	}
	if d := testutil.ToFloat64(transitions.WithLabelValues("approval", "dispatched")) - before; d != 1 {
		t.Fatalf("dispatched counter delta = %v", d)
	}
}

func TestCheckout_CollectsFieldsInOrder(t *testing.T) {
	f := newFixture(t)
	f.do(t, Update{ChatID: "u1", Action: &domain.Action{Kind: domain.ActAddItem, Item: "пицца маргарита"}})

	out := f.do(t, Update{ChatID: "u1", Action: act(domain.ActCheckout)})
	if !strings.Contains(out.Text, "name") {
		t.Fatalf("first prompt = %q", out.Text)
	}
	steps := []struct {
		text  string
		state State
	}{
		{"  Anna  ", StateCollectingPhone},
		{"12345", StateCollectingAddress},
		{"Main st 5", StateConfirmingSubmission},
	}
	for _, st := range steps {
		out = f.do(t, Update{ChatID: "u1", Text: st.text})
		s, _ := f.e.Session("u1")
		if s.State != st.state {
			t.Fatalf("after %q state = %s, want %s", st.text, s.State, st.state)
		}
	}
	s, _ := f.e.Session("u1")
	if s.Draft.Name != "Anna" || s.Draft.Phone != "12345" || s.Draft.Address != "Main st 5" {
		t.Fatalf("draft = %+v", s.Draft)
	}
	if !strings.Contains(out.Text, "Пицца Маргарита") || !strings.Contains(out.Text, "450₽") || len(out.Buttons) != 2 {
		t.Fatalf("summary = %+v", out)
	}

	// Free text while waiting for a button repeats the summary.
	again := f.do(t, Update{ChatID: "u1", Text: "hello?"})
	if !strings.Contains(again.Text, "Please use the buttons") {
		t.Fatalf("repeat = %q", again.Text)
	}
}

func TestStartCheckout_EmptyCart(t *testing.T) {
	f := newFixture(t)
	_, err := f.e.Handle(context.Background(), Update{ChatID: "u1", Action: act(domain.ActCheckout)})
	if !errors.Is(err, ErrCartEmpty) {
		t.Fatalf("want ErrCartEmpty, got %v", err)
	}
	if _, ok := f.e.Session("u1"); ok {
		t.Fatalf("no session should be created")
	}
}

func TestConfirmOrder_WithoutDialog(t *testing.T) {
	f := newFixture(t)
	_, err := f.e.Handle(context.Background(), Update{ChatID: "u1", Action: act(domain.ActConfirm)})
	if !errors.Is(err, ErrNoActiveDialog) {
		t.Fatalf("want ErrNoActiveDialog, got %v", err)
	}
}

func TestConfirmOrder_PersistFailureKeepsSession(t *testing.T) {
	f := newFixture(t)
	f.store.upsertErr = errBoom

	f.do(t, Update{ChatID: "u1", Action: &domain.Action{Kind: domain.ActAddItem, Item: "Суши с тунцом"}})
	f.do(t, Update{ChatID: "u1", Action: act(domain.ActCheckout)})
	f.do(t, Update{ChatID: "u1", Text: "Ivan"})
	f.do(t, Update{ChatID: "u1", Text: phone})
	f.do(t, Update{ChatID: "u1", Text: "Lenina 1"})

	_, err := f.e.Handle(context.Background(), Update{ChatID: "u1", Action: act(domain.ActConfirm)})
	if !errors.Is(err, ErrPersist) {
		t.Fatalf("want ErrPersist, got %v", err)
	}
	if s, ok := f.e.Session("u1"); !ok || s.State != StateConfirmingSubmission {
		t.Fatalf("session must survive a failed save: %+v %v", s, ok)
	}
	if items, _ := f.e.Cart.View(context.Background(), "u1"); len(items) != 1 {
		t.Fatalf("cart must survive a failed save: %v", items)
	}
	if len(f.tr.to(staffChat)) != 0 || len(f.events.Events()) != 0 {
		t.Fatalf("nothing should be announced for an unsaved order")
	}

	f.store.upsertErr = nil
	f.do(t, Update{ChatID: "u1", Action: act(domain.ActConfirm)})
	if rec, err := f.store.Get(context.Background(), phone); err != nil || rec.TotalPrice != 650 {
		t.Fatalf("retry should store the order: %+v %v", rec, err)
	}
}

func TestCancelOrder_KeepsCart(t *testing.T) {
	f := newFixture(t)
	f.do(t, Update{ChatID: "u1", Action: &domain.Action{Kind: domain.ActAddItem, Item: "Греческий салат"}})
	f.do(t, Update{ChatID: "u1", Action: act(domain.ActCheckout)})
	f.do(t, Update{ChatID: "u1", Text: "Ivan"})

	f.do(t, Update{ChatID: "u1", Action: act(domain.ActCancel)})
	if _, ok := f.e.Session("u1"); ok {
		t.Fatalf("cancel must drop the draft")
	}
	if items, total := f.e.Cart.View(context.Background(), "u1"); len(items) != 1 || total != 350 {
		t.Fatalf("cart = %v %d", items, total)
	}
	if _, err := f.e.Handle(context.Background(), Update{ChatID: "u1", Action: act(domain.ActCancel)}); !errors.Is(err, ErrNoActiveDialog) {
		t.Fatalf("second cancel: %v", err)
	}
}

func TestClearCart_DoesNotTouchDraft(t *testing.T) {
	f := newFixture(t)
	f.do(t, Update{ChatID: "u1", Action: &domain.Action{Kind: domain.ActAddItem, Item: "Пицца Пепперони"}})
	f.do(t, Update{ChatID: "u1", Action: act(domain.ActCheckout)})
	f.do(t, Update{ChatID: "u1", Action: act(domain.ActClearCart)})

	s, _ := f.e.Session("u1")
	if !reflect.DeepEqual(s.Draft.Cart, []string{"Пицца Пепперони"}) || s.Draft.TotalPrice != 500 {
		t.Fatalf("draft cart changed: %+v", s.Draft)
	}
}

func TestResubmitSamePhone_Overwrites(t *testing.T) {
	f := newFixture(t)
	f.checkout(t, "u1", "Ivan", phone, "Lenina 1", "Суши с лососем")
	f.checkout(t, "u2", "Olga", phone, "Mira 2", "Пицца Маргарита", "Напиток Coca-Cola 0.5л")

	list, _ := f.store.List(context.Background())
	if len(list) != 1 || list[0].CustomerName != "Olga" || list[0].TotalPrice != 600 {
		t.Fatalf("orders = %+v", list)
	}
}

func TestHandleText_NoSessionWelcomes(t *testing.T) {
	f := newFixture(t)
	out := f.do(t, Update{ChatID: "u1", Text: "hi"})
	if !strings.HasPrefix(out.Text, "Welcome") || len(out.Buttons) != 4 {
		t.Fatalf("welcome = %+v", out)
	}
}

func TestHandle_InfoReplies(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		kind domain.ActionKind
		want string
	}{
		{domain.ActShowContacts, "+7 999 123 45 67"},
		{domain.ActShowAbout, "fresh ingredients"},
	}
	for _, tc := range cases {
		out := f.do(t, Update{ChatID: "u1", Action: act(tc.kind)})
		if !strings.Contains(out.Text, tc.want) || len(out.Buttons) != 2 || out.Buttons[0].Action.Kind != domain.ActShowCatalog {
			t.Errorf("%s reply = %+v", tc.kind, out)
		}
	}
	if _, ok := f.e.Session("u1"); ok {
		t.Fatalf("info replies must not open a dialogue")
	}
}

func TestHandle_StaffActionFromCustomerChat(t *testing.T) {
	f := newFixture(t)
	f.checkout(t, "u1", "Ivan", phone, "Lenina 1", "Суши с лососем")

	_, err := f.e.Handle(context.Background(), Update{ChatID: "u1", Action: staffAct(domain.ActApprove, phone)})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("want ErrForbidden, got %v", err)
	}
	if _, err := f.store.Get(context.Background(), phone); err != nil {
		t.Fatalf("order must stay pending: %v", err)
	}
}

func TestOperator(t *testing.T) {
	e := &Engine{}
	if !e.operator("anyone") {
		t.Fatalf("no operator list allows every chat")
	}
	e.OperatorChats = []string{staffChat, adminChat}
	for chat, want := range map[string]bool{staffChat: true, adminChat: true, "u1": false, "": false} {
		if got := e.operator(chat); got != want {
			t.Errorf("operator(%q) = %v, want %v", chat, got, want)
		}
	}
}

func TestHandle_InvalidAction(t *testing.T) {
	f := newFixture(t)
	_, err := f.e.Handle(context.Background(), Update{ChatID: staffChat, Action: &domain.Action{Kind: domain.ActApprove}})
	if !errors.Is(err, domain.ErrInvalidAction) {
		t.Fatalf("want ErrInvalidAction, got %v", err)
	}
}

func TestShowItem_And_AddUnknown(t *testing.T) {
	f := newFixture(t)
	out := f.do(t, Update{ChatID: "u1", Action: &domain.Action{Kind: domain.ActShowItem, Item: "Цезарь с курицей"}})
	if out.Photo != "" || !strings.Contains(out.Text, "not available") || !strings.Contains(out.Text, "400₽") {
		t.Fatalf("card without photo file = %+v", out)
	}
	_, err := f.e.Handle(context.Background(), Update{ChatID: "u1", Action: &domain.Action{Kind: domain.ActAddItem, Item: "Борщ"}})
	if !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("want ErrItemNotFound, got %v", err)
	}
	menu := f.do(t, Update{ChatID: "u1", Action: act(domain.ActShowCatalog)})
	if !strings.Contains(menu.Text, "• Суши с лососем (600₽)") || len(menu.Buttons) != 11 {
		t.Fatalf("menu = %q (%d buttons)", menu.Text, len(menu.Buttons))
	}
}

func TestApprove_MissingOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.e.Handle(context.Background(), Update{ChatID: staffChat, Action: staffAct(domain.ActApprove, phone)})
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("want ErrOrderNotFound, got %v", err)
	}
	if len(f.tr.to(kitchenChat)) != 0 {
		t.Fatalf("kitchen must not be notified")
	}
	if rows, _ := f.table.Rows(context.Background()); len(rows) != 0 {
		t.Fatalf("ledger must be untouched")
	}
}

func TestApprove_LedgerFailureStillDispatches(t *testing.T) {
	f := newFixture(t)
	f.e.Ledger = failingLedger{err: errBoom}
	f.checkout(t, "u1", "Ivan", phone, "Lenina 1", "Суши с лососем")

	f.do(t, Update{ChatID: staffChat, Action: staffAct(domain.ActApprove, phone)})

	if _, err := f.store.Get(context.Background(), phone); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("order should be dispatched despite ledger failure")
	}
	admin := f.tr.to(adminChat)
	if len(admin) != 1 || !strings.Contains(admin[0].Text, "Ledger sync failed") {
		t.Fatalf("admin escalation = %+v", admin)
	}
}

func TestApprove_DispatchFailureKeepsOrder(t *testing.T) {
	f := newFixture(t)
	f.checkout(t, "u1", "Ivan", phone, "Lenina 1", "Суши с лососем")
	f.store.dispatchErr = errBoom

	_, err := f.e.Handle(context.Background(), Update{ChatID: staffChat, Action: staffAct(domain.ActApprove, phone)})
	if !errors.Is(err, ErrPersist) {
		t.Fatalf("want ErrPersist, got %v", err)
	}
	if _, err := f.store.Get(context.Background(), phone); err != nil {
		t.Fatalf("order must stay pending: %v", err)
	}
	if got := f.events.Types(); len(got) != 1 {
		t.Fatalf("no dispatched event expected, got %v", got)
	}
}

func TestApprove_ConcurrentOnlyOnce(t *testing.T) {
	f := newFixture(t)
	f.checkout(t, "u1", "Ivan", phone, "Lenina 1", "Суши с лососем")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, miss int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.e.Approve(context.Background(), phone)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrOrderNotFound):
				miss++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if ok != 1 || miss != 7 {
		t.Fatalf("ok=%d miss=%d", ok, miss)
	}
	if len(f.tr.to(kitchenChat)) != 1 || len(f.store.dispatched) != 1 {
		t.Fatalf("order must reach the kitchen exactly once")
	}
}

func TestStaffNotificationFailure_EscalatesToAdmin(t *testing.T) {
	f := newFixture(t)
	f.tr.fail[staffChat] = errBoom

	f.checkout(t, "u1", "Ivan", phone, "Lenina 1", "Суши с лососем")

	if _, err := f.store.Get(context.Background(), phone); err != nil {
		t.Fatalf("order must be saved even when staff is unreachable: %v", err)
	}
	admin := f.tr.to(adminChat)
	if len(admin) != 1 || !strings.Contains(admin[0].Text, phone) {
		t.Fatalf("admin escalation = %+v", admin)
	}
}

func TestContact(t *testing.T) {
	f := newFixture(t)
	f.checkout(t, "u1", "Ivan", phone, "Lenina 1", "Суши с лососем")

	out := f.do(t, Update{ChatID: staffChat, Action: staffAct(domain.ActContact, phone)})
	if !out.Alert || !strings.Contains(out.Text, phone) || !strings.Contains(out.Text, "@u1") {
		t.Fatalf("contact = %+v", out)
	}
	out = f.do(t, Update{ChatID: staffChat, Action: staffAct(domain.ActContact, "+100")})
	if strings.Contains(out.Text, "@") {
		t.Fatalf("unknown order has no username: %q", out.Text)
	}
}

func TestExportSessions(t *testing.T) {
	f := newFixture(t)
	reg := prometheus.NewRegistry()
	if err := ExportSessions(reg, f.e); err != nil {
		t.Fatalf("ExportSessions: %v", err)
	}
	if err := ExportSessions(reg, f.e); err == nil {
		t.Fatalf("second export must fail")
	}

	f.do(t, Update{ChatID: "u1", Action: &domain.Action{Kind: domain.ActAddItem, Item: "Суши с лососем"}})
	f.do(t, Update{ChatID: "u1", Action: act(domain.ActCheckout)})
	f.do(t, Update{ChatID: "u2", Action: &domain.Action{Kind: domain.ActAddItem, Item: "Пицца Маргарита"}})
	f.do(t, Update{ChatID: "u2", Action: act(domain.ActCheckout)})

	want := `
# HELP orderbot_active_sessions Conversations currently inside a checkout or edit dialogue.
# TYPE orderbot_active_sessions gauge
orderbot_active_sessions 2
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "orderbot_active_sessions"); err != nil {
		t.Fatal(err)
	}
}
