package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"chitfund/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "chitfund.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testChitty(now time.Time) (*core.Chitty, []*core.Member) {
	chitty := &core.Chitty{
		ID:             "c1",
		Name:           "Test fund",
		Amount:         core.Money{Cents: 3000_00},
		TotalMembers:   3,
		TotalMonths:    3,
		RegularPayment: core.Money{Cents: 1000_00},
		LiftedPayment:  core.Money{Cents: 1250_00},
		MemberIDs:      []string{"m1", "m2", "m3"},
		StartDate:      now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	members := []*core.Member{
		{ID: "m1", ChittyID: "c1", Name: "Anil", Position: 0, CreatedAt: now, UpdatedAt: now},
		{ID: "m2", ChittyID: "c1", Name: "Binu", Position: 1, CreatedAt: now, UpdatedAt: now},
		{ID: "m3", ChittyID: "c1", Name: "Chacko", Position: 2, CreatedAt: now, UpdatedAt: now},
	}
	return chitty, members
}

func testSlip(chitty *core.Chitty, month int, now time.Time) *core.MonthlySlip {
	slip := &core.MonthlySlip{
		ID:        "s" + string(rune('0'+month)),
		ChittyID:  chitty.ID,
		Month:     month,
		SlipDate:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, id := range chitty.MemberIDs {
		slip.Records = append(slip.Records, core.PaymentRecord{
			MemberID:   id,
			MemberName: "member " + id,
			Amount:     chitty.RegularPayment,
		})
	}
	return slip
}

func TestSQLiteChittyRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	chitty, members := testChitty(now)
	if err := repo.CreateChitty(ctx, chitty, members); err != nil {
		t.Fatalf("CreateChitty: %v", err)
	}

	got, err := repo.GetChitty(ctx, "c1")
	if err != nil {
		t.Fatalf("GetChitty: %v", err)
	}
	if got.Name != chitty.Name || got.Amount != chitty.Amount ||
		got.RegularPayment != chitty.RegularPayment || got.LiftedPayment != chitty.LiftedPayment {
		t.Errorf("chitty round trip mismatch: %+v", got)
	}
	if !got.StartDate.Equal(now) || !got.CreatedAt.Equal(now) {
		t.Errorf("timestamps: start %v created %v, want %v", got.StartDate, got.CreatedAt, now)
	}
	if len(got.MemberIDs) != 3 || got.MemberIDs[0] != "m1" {
		t.Errorf("member ids = %v, want position order m1..m3", got.MemberIDs)
	}

	list, err := repo.ListChitties(ctx)
	if err != nil {
		t.Fatalf("ListChitties: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("chitties = %d, want 1", len(list))
	}

	if _, err := repo.GetChitty(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("missing chitty: expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteMembers(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	chitty, members := testChitty(now)
	if err := repo.CreateChitty(ctx, chitty, members); err != nil {
		t.Fatalf("CreateChitty: %v", err)
	}

	got, err := repo.ListMembers(ctx, "c1")
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("members = %d, want 3", len(got))
	}
	for i, m := range got {
		if m.Position != i {
			t.Errorf("member %s position = %d, want %d", m.ID, m.Position, i)
		}
		if m.HasLifted || m.LiftedMonth != 0 || !m.LiftedDate.IsZero() {
			t.Errorf("member %s should start with a clean lift state: %+v", m.ID, m)
		}
	}

	member, err := repo.GetMember(ctx, "m2")
	if err != nil {
		t.Fatalf("GetMember: %v", err)
	}
	if member.Name != "Binu" {
		t.Errorf("member name = %q, want Binu", member.Name)
	}
	if _, err := repo.GetMember(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("missing member: expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteSlipUniquePerMonth(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	chitty, members := testChitty(now)
	if err := repo.CreateChitty(ctx, chitty, members); err != nil {
		t.Fatalf("CreateChitty: %v", err)
	}
	slip := testSlip(chitty, 1, now)
	if err := repo.CreateSlip(ctx, slip); err != nil {
		t.Fatalf("CreateSlip: %v", err)
	}

	dup := testSlip(chitty, 1, now)
	dup.ID = "s1-dup"
	err := repo.CreateSlip(ctx, dup)
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("duplicate month: expected ErrConflict, got %v", err)
	}

	// The losing insert leaves nothing behind.
	if _, err := repo.GetSlip(ctx, "s1-dup"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("losing slip should not exist, got %v", err)
	}
	got, err := repo.GetSlipByMonth(ctx, "c1", 1)
	if err != nil {
		t.Fatalf("GetSlipByMonth: %v", err)
	}
	if got.ID != slip.ID || len(got.Records) != 3 {
		t.Errorf("surviving slip = %q with %d records", got.ID, len(got.Records))
	}
}

func TestSQLiteApplyLift(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	chitty, members := testChitty(now)
	if err := repo.CreateChitty(ctx, chitty, members); err != nil {
		t.Fatalf("CreateChitty: %v", err)
	}
	slip := testSlip(chitty, 1, now)
	if err := repo.CreateSlip(ctx, slip); err != nil {
		t.Fatalf("CreateSlip: %v", err)
	}

	at := now.Add(time.Hour)
	if err := repo.ApplyLift(ctx, slip.ID, "m2", 1, at); err != nil {
		t.Fatalf("ApplyLift: %v", err)
	}

	member, err := repo.GetMember(ctx, "m2")
	if err != nil {
		t.Fatalf("GetMember: %v", err)
	}
	if !member.HasLifted || member.LiftedMonth != 1 || !member.LiftedDate.Equal(at) {
		t.Errorf("member lift state = %+v", member)
	}

	got, err := repo.GetSlip(ctx, slip.ID)
	if err != nil {
		t.Fatalf("GetSlip: %v", err)
	}
	if got.LiftedMemberID != "m2" {
		t.Errorf("slip lifted member = %q, want m2", got.LiftedMemberID)
	}
	if rec := got.Record("m2"); rec == nil || !rec.Lifted {
		t.Errorf("lift record = %+v, want flagged", rec)
	}
	if rec := got.Record("m1"); rec.Lifted {
		t.Error("other members must stay unflagged")
	}

	// All three updates roll back together when any target is missing.
	if err := repo.ApplyLift(ctx, "missing-slip", "m3", 1, at); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("lift on missing slip: expected ErrNotFound, got %v", err)
	}
	member, err = repo.GetMember(ctx, "m3")
	if err != nil {
		t.Fatalf("GetMember: %v", err)
	}
	if member.HasLifted {
		t.Error("failed lift must not leave the member marked")
	}
}

func TestSQLitePaymentsAndBalance(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	chitty, members := testChitty(now)
	if err := repo.CreateChitty(ctx, chitty, members); err != nil {
		t.Fatalf("CreateChitty: %v", err)
	}
	slip := testSlip(chitty, 1, now)
	if err := repo.CreateSlip(ctx, slip); err != nil {
		t.Fatalf("CreateSlip: %v", err)
	}

	at := now.Add(time.Minute)
	if err := repo.SetPaymentStatus(ctx, slip.ID, "m1", true, at); err != nil {
		t.Fatalf("SetPaymentStatus: %v", err)
	}

	got, err := repo.GetSlip(ctx, slip.ID)
	if err != nil {
		t.Fatalf("GetSlip: %v", err)
	}
	rec := got.Record("m1")
	if !rec.Paid || !rec.PaymentDate.Equal(at) {
		t.Errorf("paid record = %+v", rec)
	}

	balance, err := repo.OutstandingBalance(ctx, "c1")
	if err != nil {
		t.Fatalf("OutstandingBalance: %v", err)
	}
	if want := int64(2000_00); balance.Cents != want {
		t.Errorf("balance = %d, want %d", balance.Cents, want)
	}

	// Unmark clears the date.
	if err := repo.SetPaymentStatus(ctx, slip.ID, "m1", false, at.Add(time.Minute)); err != nil {
		t.Fatalf("unset payment: %v", err)
	}
	got, err = repo.GetSlip(ctx, slip.ID)
	if err != nil {
		t.Fatalf("GetSlip: %v", err)
	}
	rec = got.Record("m1")
	if rec.Paid || !rec.PaymentDate.IsZero() {
		t.Errorf("reset record = %+v", rec)
	}

	if err := repo.SetPaymentStatus(ctx, slip.ID, "ghost", true, at); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("unknown member: expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteReplaceSlipRecords(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	chitty, members := testChitty(now)
	if err := repo.CreateChitty(ctx, chitty, members); err != nil {
		t.Fatalf("CreateChitty: %v", err)
	}
	slip := testSlip(chitty, 2, now)
	if err := repo.CreateSlip(ctx, slip); err != nil {
		t.Fatalf("CreateSlip: %v", err)
	}
	if err := repo.SetPaymentStatus(ctx, slip.ID, "m3", true, now); err != nil {
		t.Fatalf("SetPaymentStatus: %v", err)
	}

	updated, err := repo.GetSlip(ctx, slip.ID)
	if err != nil {
		t.Fatalf("GetSlip: %v", err)
	}
	updated.Record("m1").Amount = chitty.LiftedPayment
	updated.Record("m1").Lifted = true
	updated.UpdatedAt = now.Add(time.Hour)
	if err := repo.ReplaceSlipRecords(ctx, updated); err != nil {
		t.Fatalf("ReplaceSlipRecords: %v", err)
	}

	got, err := repo.GetSlip(ctx, slip.ID)
	if err != nil {
		t.Fatalf("GetSlip: %v", err)
	}
	if rec := got.Record("m1"); rec.Amount != chitty.LiftedPayment || !rec.Lifted {
		t.Errorf("replaced record = %+v", rec)
	}
	if rec := got.Record("m3"); !rec.Paid || rec.PaymentDate.IsZero() {
		t.Errorf("payment should survive the replacement: %+v", rec)
	}

	missing := testSlip(chitty, 3, now)
	missing.ID = "never-created"
	if err := repo.ReplaceSlipRecords(ctx, missing); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("replace on missing slip: expected ErrNotFound, got %v", err)
	}
}
