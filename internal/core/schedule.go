package core

// The payment schedule convention: a member pays the regular installment up
// to and including the month they lift, and the lifted installment from the
// following month onward. The record-level Lifted flag is inclusive of the
// lift month itself (it marks the payout row on the slip), which is why the
// two helpers below use different comparisons.

// liftedRatePercent is the surcharge applied to the regular installment once
// a member has lifted, amortizing the advance they received.
const liftedRatePercent = 25

// DerivePayments splits the pool value into the two installment rates:
// regular = amount / totalMonths, lifted = regular + 25%, both half-up
// rounded to the cent.
func DerivePayments(amount Money, totalMonths int) (regular, lifted Money) {
	n := int64(totalMonths)
	regular = Money{Cents: (amount.Cents + n/2) / n}
	surcharge := (regular.Cents*liftedRatePercent + 50) / 100
	lifted = Money{Cents: regular.Cents + surcharge}
	return regular, lifted
}

// InstallmentFor returns the installment a member owes for the given month.
// The lifted rate applies only when the member lifted strictly before that
// month; the month of the lift itself is still charged at the regular rate.
func InstallmentFor(c Chitty, m Member, month int) Money {
	if m.HasLifted && m.LiftedMonth < month {
		return c.LiftedPayment
	}
	return c.RegularPayment
}

// LiftedAsOf reports whether the member counts as lifted on a slip for the
// given month, inclusive of the lift month itself.
func LiftedAsOf(m Member, month int) bool {
	return m.HasLifted && m.LiftedMonth <= month
}

// NewPaymentRecord builds the obligation row for one member on the slip for
// the given month, snapshotting the member name.
func NewPaymentRecord(c Chitty, m Member, month int) PaymentRecord {
	return PaymentRecord{
		MemberID:   m.ID,
		MemberName: m.Name,
		Amount:     InstallmentFor(c, m, month),
		Lifted:     LiftedAsOf(m, month),
	}
}
