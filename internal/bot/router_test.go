package bot

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"budgetwizard/internal/core"
	"budgetwizard/internal/store"
)

type fakeCheckout struct {
	url   string
	err   error
	calls int
}

func (f *fakeCheckout) CreateSession(_ context.Context, _ core.UserID, _ string) (string, error) {
	f.calls++
	return f.url, f.err
}

type fakeRecorder struct {
	records []core.ActivityRecord
}

func (f *fakeRecorder) PublishRecord(_ context.Context, rec core.ActivityRecord) error {
	f.records = append(f.records, rec)
	return nil
}

func newTestRouter(now time.Time, checkout CheckoutStarter) (*Router, *store.Store) {
	st := store.NewWithClock(func() time.Time { return now })
	r := New(st, checkout, nil)
	r.now = func() time.Time { return now }
	return r, st
}

var march = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func TestViewScenario(t *testing.T) {
	r, _ := newTestRouter(march, nil)
	ctx := context.Background()

	r.HandleMessage(ctx, 1, "1200 rent")
	r.HandleMessage(ctx, 1, "500 food")
	reply := r.HandleMessage(ctx, 1, "view")

	for _, want := range []string{"1700.00", "1200.00", "500.00"} {
		if !strings.Contains(reply.Text, want) {
			t.Fatalf("view reply missing %q:\n%s", want, reply.Text)
		}
	}
	if strings.Index(reply.Text, "rent") > strings.Index(reply.Text, "food") {
		t.Fatalf("rent should sort before food:\n%s", reply.Text)
	}
}

func TestResetThenViewIsEmpty(t *testing.T) {
	r, _ := newTestRouter(march, nil)
	ctx := context.Background()

	r.HandleMessage(ctx, 1, "1200 rent")
	if reply := r.HandleMessage(ctx, 1, "reset"); reply.Text != resetText {
		t.Fatalf("reset reply = %q", reply.Text)
	}
	if reply := r.HandleMessage(ctx, 1, "view"); reply.Text != noExpensesText {
		t.Fatalf("view after reset = %q", reply.Text)
	}
}

func TestKeywordsOutrankAddModeParsing(t *testing.T) {
	r, st := newTestRouter(march, nil)
	ctx := context.Background()

	// New users are in AddMode, yet "reset" must never be parsed as an
	// expense line.
	r.HandleMessage(ctx, 1, "RESET")
	r.HandleMessage(ctx, 1, "new month")
	if got := len(st.Entries(1)); got != 0 {
		t.Fatalf("keywords were parsed as expenses: %d entries", got)
	}
}

func TestBareTextInAddMode(t *testing.T) {
	r, st := newTestRouter(march, nil)
	ctx := context.Background()

	reply := r.HandleMessage(ctx, 1, "banana")
	if reply.Text != formatHintText {
		t.Fatalf("non-numeric bare text reply = %q", reply.Text)
	}
	if got := len(st.Entries(1)); got != 0 {
		t.Fatalf("ledger changed on parse failure: %d entries", got)
	}

	r.HandleMessage(ctx, 1, "12.50 Groceries lunch")
	entries := st.Entries(1)
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].Category != "Groceries" {
		t.Fatalf("category = %q, casing should survive", entries[0].Category)
	}
}

func TestIdleIgnoresBareText(t *testing.T) {
	r, st := newTestRouter(march, nil)
	ctx := context.Background()

	r.HandleMessage(ctx, 1, "done")
	if got := st.Mode(1); got != core.ModeIdle {
		t.Fatalf("mode after done = %v", got)
	}
	if reply := r.HandleMessage(ctx, 1, "banana"); reply.Text != helpHint {
		t.Fatalf("idle bare text reply = %q", reply.Text)
	}

	r.HandleMessage(ctx, 1, "hi")
	if got := st.Mode(1); got != core.ModeAdd {
		t.Fatalf("mode after greeting = %v", got)
	}
}

func TestAddPrefixSingle(t *testing.T) {
	r, st := newTestRouter(march, nil)

	reply := r.HandleMessage(context.Background(), 1, "add 12 coffee")
	if !strings.Contains(reply.Text, "$12.00") || !strings.Contains(reply.Text, "'coffee'") {
		t.Fatalf("add reply = %q", reply.Text)
	}
	if got := len(st.Entries(1)); got != 1 {
		t.Fatalf("entries = %d, want 1", got)
	}
}

func TestAddPrefixBatchReportsSkipped(t *testing.T) {
	r, st := newTestRouter(march, nil)

	block := "add 12 groceries\nbanana\n20 gas\nalso not numeric"
	reply := r.HandleMessage(context.Background(), 1, block)
	if got := len(st.Entries(1)); got != 2 {
		t.Fatalf("entries = %d, want 2", got)
	}
	if !strings.Contains(reply.Text, "Added 2") {
		t.Fatalf("missing count: %q", reply.Text)
	}
	if !strings.Contains(reply.Text, "banana") || !strings.Contains(reply.Text, "also not numeric") {
		t.Fatalf("missing skipped lines: %q", reply.Text)
	}
}

func TestAddPrefixTruncatesSkippedList(t *testing.T) {
	r, _ := newTestRouter(march, nil)

	lines := []string{"add 1 ok"}
	for i := 0; i < 8; i++ {
		lines = append(lines, fmt.Sprintf("bad line %d", i))
	}
	reply := r.HandleMessage(context.Background(), 1, strings.Join(lines, "\n"))
	if !strings.Contains(reply.Text, "and 3 more") {
		t.Fatalf("missing overflow count: %q", reply.Text)
	}
	if strings.Contains(reply.Text, "bad line 5") {
		t.Fatalf("more than 5 skipped lines shown: %q", reply.Text)
	}
}

func TestAddPrefixTotalFailure(t *testing.T) {
	r, st := newTestRouter(march, nil)
	reply := r.HandleMessage(context.Background(), 1, "add banana split")
	if reply.Text != addUsageText {
		t.Fatalf("reply = %q", reply.Text)
	}
	if got := len(st.Entries(1)); got != 0 {
		t.Fatalf("entries = %d, want 0", got)
	}
}

func TestExportLockedIsSample(t *testing.T) {
	r, _ := newTestRouter(march, nil)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		r.HandleMessage(ctx, 1, fmt.Sprintf("%d cat%d", (i+1)*10, i))
	}
	reply := r.HandleMessage(ctx, 1, "export")
	if reply.File == nil {
		t.Fatal("export reply has no attachment")
	}
	if reply.File.Name != "budget_wizard_sample_2024-03.csv" {
		t.Fatalf("filename = %s", reply.File.Name)
	}
	if !strings.Contains(reply.Text, "unlock") {
		t.Fatalf("sample text missing call to action: %q", reply.Text)
	}
	content := string(reply.File.Content)
	if !strings.Contains(content, "SAMPLE") {
		t.Fatal("sample export missing banner row")
	}
	// 4 entries gated to 2.
	if got := strings.Count(content, "2024-03,"); got != 2 {
		t.Fatalf("sample rows = %d, want 2", got)
	}
}

func TestExportUnlockedIsFull(t *testing.T) {
	r, st := newTestRouter(march, nil)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		r.HandleMessage(ctx, 1, fmt.Sprintf("%d cat%d", (i+1)*10, i))
	}
	st.Unlock(1, "2024-03")

	reply := r.HandleMessage(ctx, 1, "export")
	if reply.File == nil {
		t.Fatal("export reply has no attachment")
	}
	if reply.File.Name != "budget_wizard_expenses_2024-03.csv" {
		t.Fatalf("filename = %s", reply.File.Name)
	}
	content := string(reply.File.Content)
	if strings.Contains(content, "SAMPLE") {
		t.Fatal("unlocked export carries banner")
	}
	if got := strings.Count(content, "2024-03,"); got != 4 {
		t.Fatalf("rows = %d, want 4", got)
	}
}

func TestExportRecordCarriesPeriodTotal(t *testing.T) {
	rec := &fakeRecorder{}
	st := store.NewWithClock(func() time.Time { return march })
	r := New(st, nil, rec)
	r.now = func() time.Time { return march }
	ctx := context.Background()

	for _, line := range []string{"10 a", "20 b", "30 c", "40 d"} {
		r.HandleMessage(ctx, 1, line)
	}
	r.HandleMessage(ctx, 1, "export")

	if len(rec.records) != 1 {
		t.Fatalf("records = %d, want 1", len(rec.records))
	}
	got := rec.records[0]
	if got.Kind != core.RecordKindExport || !got.Sample || got.Rows != 2 {
		t.Fatalf("record = %+v", got)
	}
	// Even a gated sample archives the full period total.
	if got.Total != "100.00" {
		t.Fatalf("record total = %s, want 100.00", got.Total)
	}
}

func TestExportEmptyLedger(t *testing.T) {
	r, _ := newTestRouter(march, nil)
	if reply := r.HandleMessage(context.Background(), 1, "export"); reply.Text != noExportText {
		t.Fatalf("reply = %q", reply.Text)
	}
}

func TestUnlockRelaysCheckoutURL(t *testing.T) {
	fake := &fakeCheckout{url: "https://pay.example/session/abc"}
	r, _ := newTestRouter(march, fake)

	reply := r.HandleMessage(context.Background(), 1, "unlock")
	if !strings.Contains(reply.Text, fake.url) {
		t.Fatalf("reply missing checkout url: %q", reply.Text)
	}
	if fake.calls != 1 {
		t.Fatalf("checkout calls = %d", fake.calls)
	}
}

func TestUnlockProviderError(t *testing.T) {
	fake := &fakeCheckout{err: fmt.Errorf("provider down")}
	r, st := newTestRouter(march, fake)

	reply := r.HandleMessage(context.Background(), 1, "buy")
	if !strings.Contains(reply.Text, "Could not start checkout") {
		t.Fatalf("reply = %q", reply.Text)
	}
	if st.IsUnlocked(1, "2024-03") {
		t.Fatal("provider failure must not mutate unlock state")
	}
}

func TestUnlockWithoutCheckoutConfigured(t *testing.T) {
	r, _ := newTestRouter(march, nil)
	if reply := r.HandleMessage(context.Background(), 1, "pay"); reply.Text != paymentsDisabledText {
		t.Fatalf("reply = %q", reply.Text)
	}
}

func TestBudgetSnapshot(t *testing.T) {
	r, _ := newTestRouter(march, nil)
	ctx := context.Background()

	r.HandleMessage(ctx, 1, "70 food")
	reply := r.HandleMessage(ctx, 1, "budget")
	// One day of history: avg 70.00/day, cap 49.00/day.
	if !strings.Contains(reply.Text, "70.00") || !strings.Contains(reply.Text, "49.00") {
		t.Fatalf("budget reply = %q", reply.Text)
	}
}

func TestSlashCommands(t *testing.T) {
	r, st := newTestRouter(march, nil)
	ctx := context.Background()

	if reply := r.HandleMessage(ctx, 1, "/start"); reply.Text != menuText {
		t.Fatalf("/start reply = %q", reply.Text)
	}
	if reply := r.HandleMessage(ctx, 1, "/addexpense 9.99 coffee morning"); !strings.Contains(reply.Text, "$9.99") {
		t.Fatalf("/addexpense reply = %q", reply.Text)
	}
	if reply := r.HandleMessage(ctx, 1, "/addexpense"); reply.Text != addExpenseUsageText {
		t.Fatalf("empty /addexpense reply = %q", reply.Text)
	}
	if reply := r.HandleMessage(ctx, 1, "/addexpense abc x"); reply.Text != amountNotNumericText {
		t.Fatalf("bad amount reply = %q", reply.Text)
	}
	if reply := r.HandleMessage(ctx, 1, "/addmany 12 a\n13 b"); !strings.Contains(reply.Text, "Added 2") {
		t.Fatalf("/addmany reply = %q", reply.Text)
	}
	if got := len(st.Entries(1)); got != 3 {
		t.Fatalf("entries = %d, want 3", got)
	}
	if reply := r.HandleMessage(ctx, 1, "/viewexpenses"); !strings.Contains(reply.Text, "Total") {
		t.Fatalf("/viewexpenses reply = %q", reply.Text)
	}
	if reply := r.HandleMessage(ctx, 1, "/reset"); reply.Text != resetText {
		t.Fatalf("/reset reply = %q", reply.Text)
	}
	if reply := r.HandleMessage(ctx, 1, "/nonsense"); reply.Text != menuText {
		t.Fatalf("unknown command reply = %q", reply.Text)
	}
	// Group-chat form.
	if reply := r.HandleMessage(ctx, 1, "/viewexpenses@BudgetWizardBot"); reply.Text != noExpensesText {
		t.Fatalf("addressed command reply = %q", reply.Text)
	}
}

func TestAddManyNewlineAfterCommand(t *testing.T) {
	r, st := newTestRouter(march, nil)

	// Batches typed with the first expense on its own line.
	reply := r.HandleMessage(context.Background(), 1, "/addmany\n12 a\n13 b")
	if !strings.Contains(reply.Text, "Added 2") {
		t.Fatalf("reply = %q", reply.Text)
	}
	if got := len(st.Entries(1)); got != 2 {
		t.Fatalf("entries = %d, want 2", got)
	}
}
