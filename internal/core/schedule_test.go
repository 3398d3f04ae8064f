package core

import "testing"

func TestDerivePayments(t *testing.T) {
	tests := []struct {
		name        string
		amount      Money
		totalMonths int
		wantRegular int64
		wantLifted  int64
	}{
		{
			name:        "even split",
			amount:      Money{Cents: 300000_00},
			totalMonths: 10,
			wantRegular: 30000_00,
			wantLifted:  37500_00,
		},
		{
			name:        "rounded split",
			amount:      Money{Cents: 100000_00},
			totalMonths: 3,
			wantRegular: 33333_33, // 3333333.33 rounds half-up to .33
			wantLifted:  41666_66,
		},
		{
			name:        "single month",
			amount:      Money{Cents: 5000_00},
			totalMonths: 1,
			wantRegular: 5000_00,
			wantLifted:  6250_00,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			regular, lifted := DerivePayments(tt.amount, tt.totalMonths)
			if regular.Cents != tt.wantRegular {
				t.Errorf("regular = %d, want %d", regular.Cents, tt.wantRegular)
			}
			if lifted.Cents != tt.wantLifted {
				t.Errorf("lifted = %d, want %d", lifted.Cents, tt.wantLifted)
			}
		})
	}
}

func TestInstallmentFor(t *testing.T) {
	chitty := Chitty{
		RegularPayment: Money{Cents: 1000_00},
		LiftedPayment:  Money{Cents: 1200_00},
	}

	tests := []struct {
		name   string
		member Member
		month  int
		want   int64
	}{
		{
			name:   "never lifted pays regular",
			member: Member{},
			month:  3,
			want:   1000_00,
		},
		{
			name:   "lift month itself still pays regular",
			member: Member{HasLifted: true, LiftedMonth: 3},
			month:  3,
			want:   1000_00,
		},
		{
			name:   "month after lift pays lifted rate",
			member: Member{HasLifted: true, LiftedMonth: 3},
			month:  4,
			want:   1200_00,
		},
		{
			name:   "earlier month than a later lift pays regular",
			member: Member{HasLifted: true, LiftedMonth: 3},
			month:  2,
			want:   1000_00,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InstallmentFor(chitty, tt.member, tt.month)
			if got.Cents != tt.want {
				t.Errorf("InstallmentFor() = %d, want %d", got.Cents, tt.want)
			}
		})
	}
}

func TestLiftedAsOf(t *testing.T) {
	tests := []struct {
		name   string
		member Member
		month  int
		want   bool
	}{
		{name: "never lifted", member: Member{}, month: 5, want: false},
		{name: "lift month inclusive", member: Member{HasLifted: true, LiftedMonth: 5}, month: 5, want: true},
		{name: "after lift", member: Member{HasLifted: true, LiftedMonth: 2}, month: 5, want: true},
		{name: "before a later lift", member: Member{HasLifted: true, LiftedMonth: 5}, month: 4, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LiftedAsOf(tt.member, tt.month); got != tt.want {
				t.Errorf("LiftedAsOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewPaymentRecord(t *testing.T) {
	chitty := Chitty{
		RegularPayment: Money{Cents: 1000_00},
		LiftedPayment:  Money{Cents: 1200_00},
	}
	member := Member{ID: "m1", Name: "Anil", HasLifted: true, LiftedMonth: 2}

	rec := NewPaymentRecord(chitty, member, 2)
	if rec.Amount.Cents != 1000_00 {
		t.Errorf("lift-month amount = %d, want regular rate", rec.Amount.Cents)
	}
	if !rec.Lifted {
		t.Error("lift-month record should be flagged lifted")
	}
	if rec.MemberName != "Anil" {
		t.Errorf("member name snapshot = %q", rec.MemberName)
	}
	if rec.Paid || !rec.PaymentDate.IsZero() {
		t.Error("new record must start unpaid with zero payment date")
	}
}
