package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Error kinds. Every failure in the domain wraps exactly one of these so
// callers can classify it with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrOutOfRange = errors.New("out of range")
	ErrConflict   = errors.New("conflict")
)

type (
	// Chitty is one rotating savings group: a fixed member list paying a
	// fixed installment each month, with one member lifting the pool per
	// month. Installment rates are derived once at creation and stored.
	Chitty struct {
		ID             string    `json:"id"`
		Name           string    `json:"name"`
		Amount         Money     `json:"amount"`
		TotalMembers   int       `json:"totalMembers"`
		TotalMonths    int       `json:"totalMonths"`
		RegularPayment Money     `json:"regularPayment"`
		LiftedPayment  Money     `json:"liftedPayment"`
		MemberIDs      []string  `json:"memberIds"`
		StartDate      time.Time `json:"startDate"`
		CreatedAt      time.Time `json:"createdAt"`
		UpdatedAt      time.Time `json:"updatedAt"`
	}

	// Member belongs to exactly one chitty. LiftedMonth is 1-based and
	// stays 0 until the member lifts; HasLifted flips false->true exactly
	// once over the member's lifetime.
	Member struct {
		ID          string    `json:"id"`
		ChittyID    string    `json:"chittyId"`
		Name        string    `json:"name"`
		Position    int       `json:"position"`
		HasLifted   bool      `json:"hasLifted"`
		LiftedMonth int       `json:"liftedMonth,omitempty"`
		LiftedDate  time.Time `json:"liftedDate,omitzero"`
		CreatedAt   time.Time `json:"createdAt"`
		UpdatedAt   time.Time `json:"updatedAt"`
	}

	// MonthlySlip is the generated record of per-member obligations for one
	// month of one chitty. At most one slip exists per (chitty, month), and
	// once created only LiftedMemberID and the per-record paid/lifted
	// fields ever change.
	MonthlySlip struct {
		ID             string          `json:"id"`
		ChittyID       string          `json:"chittyId"`
		Month          int             `json:"month"`
		SlipDate       time.Time       `json:"slipDate"`
		LiftedMemberID string          `json:"liftedMemberId,omitempty"`
		Records        []PaymentRecord `json:"paymentRecords"`
		CreatedAt      time.Time       `json:"createdAt"`
		UpdatedAt      time.Time       `json:"updatedAt"`
	}

	// PaymentRecord is one member's obligation on one slip. MemberName is a
	// snapshot taken at slip generation. PaymentDate is zero iff Paid is
	// false.
	PaymentRecord struct {
		MemberID    string    `json:"memberId"`
		MemberName  string    `json:"memberName"`
		Amount      Money     `json:"amount"`
		Paid        bool      `json:"paid"`
		PaymentDate time.Time `json:"paymentDate,omitzero"`
		Lifted      bool      `json:"lifted"`
	}
)

// Validate checks the structural invariants of a chitty definition.
func (c Chitty) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: chitty name is required", ErrValidation)
	}
	if c.Amount.Cents <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if c.TotalMembers <= 0 {
		return fmt.Errorf("%w: total members must be positive", ErrValidation)
	}
	if c.TotalMonths < 1 {
		return fmt.Errorf("%w: total months must be at least 1", ErrValidation)
	}
	if len(c.MemberIDs) != c.TotalMembers {
		return fmt.Errorf("%w: member count %d does not match total members %d",
			ErrValidation, len(c.MemberIDs), c.TotalMembers)
	}
	if c.LiftedPayment.Cents <= c.RegularPayment.Cents {
		return fmt.Errorf("%w: lifted payment %s must exceed regular payment %s",
			ErrValidation, c.LiftedPayment, c.RegularPayment)
	}
	return nil
}

// Record returns a pointer to the payment record for memberID, or nil if the
// member is not on the slip.
func (s *MonthlySlip) Record(memberID string) *PaymentRecord {
	for i := range s.Records {
		if s.Records[i].MemberID == memberID {
			return &s.Records[i]
		}
	}
	return nil
}
