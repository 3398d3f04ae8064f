package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"chitfund/internal/amqp"
	"chitfund/internal/core"
	"chitfund/internal/storage"
)

// EventPublisher notifies downstream consumers about slip mutations.
// *amqp.Client satisfies it; a nil publisher disables events.
type EventPublisher interface {
	PublishSlipEvent(ctx context.Context, msg *amqp.SlipEventMessage) error
}

// chittyLocks hands out one mutex per chitty id. Slip generation and lift
// assignment for the same chitty serialize behind it; payment updates and
// reads never take it.
type chittyLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (c *chittyLocks) forChitty(id string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.locks == nil {
		c.locks = make(map[string]*sync.Mutex)
	}
	l, ok := c.locks[id]
	if !ok {
		l = &sync.Mutex{}
		c.locks[id] = l
	}
	return l
}

// SlipService materializes monthly slips, records lifts and tracks payment
// status. It owns the one-slip-per-month, one-lift-per-member and
// one-lift-per-slip invariants.
type SlipService struct {
	store  storage.Store
	events EventPublisher
	locks  chittyLocks
}

func NewSlipService(store storage.Store, events EventPublisher) *SlipService {
	return &SlipService{store: store, events: events}
}

// GenerateSlip materializes the payment obligations for one month of one
// chitty. It is idempotent: an existing slip for (chittyID, month) is
// returned unchanged. Months may be generated in any order; record amounts
// and lift flags come from each member's current lift state, never from
// slip-creation order.
func (s *SlipService) GenerateSlip(ctx context.Context, chittyID string, month int) (*core.MonthlySlip, error) {
	chitty, err := s.store.GetChitty(ctx, chittyID)
	if err != nil {
		return nil, err
	}
	if month < 1 || month > chitty.TotalMonths {
		return nil, fmt.Errorf("%w: month %d not in [1, %d]", core.ErrOutOfRange, month, chitty.TotalMonths)
	}

	lock := s.locks.forChitty(chittyID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.store.GetSlipByMonth(ctx, chittyID, month)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}

	members, err := s.store.ListMembers(ctx, chittyID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Second)
	slip := &core.MonthlySlip{
		ID:        uuid.NewString(),
		ChittyID:  chittyID,
		Month:     month,
		SlipDate:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, m := range members {
		slip.Records = append(slip.Records, core.NewPaymentRecord(*chitty, m, month))
	}

	if err := s.store.CreateSlip(ctx, slip); err != nil {
		// Lost a race with a concurrent generator; the unique key on
		// (chitty, month) guarantees the winner's slip is the one.
		if errors.Is(err, core.ErrConflict) {
			return s.store.GetSlipByMonth(ctx, chittyID, month)
		}
		return nil, err
	}

	slog.InfoContext(ctx, "Slip generated",
		"slip_id", slip.ID,
		"chitty_id", chittyID,
		"month", month,
		"records", len(slip.Records))

	s.publish(ctx, amqp.NewSlipEvent(amqp.EventSlipGenerated, slip.ID, chittyID, month, ""))
	return slip, nil
}

// GetSlip returns the slip for a specific chitty and month.
func (s *SlipService) GetSlip(ctx context.Context, chittyID string, month int) (*core.MonthlySlip, error) {
	return s.store.GetSlipByMonth(ctx, chittyID, month)
}

// ListSlips returns all generated slips for a chitty ordered by month.
func (s *SlipService) ListSlips(ctx context.Context, chittyID string) ([]core.MonthlySlip, error) {
	if _, err := s.store.GetChitty(ctx, chittyID); err != nil {
		return nil, err
	}
	return s.store.ListSlips(ctx, chittyID)
}

// MarkLifted records that a member lifted the pool in the slip's month. A
// member lifts at most once over the fund's lifetime and a slip carries at
// most one lift; both checks happen under the chitty lock so concurrent
// calls cannot both pass. The member's record on this slip is flagged lifted
// while its amount stays at the regular rate for the lift month; slips for
// other months already generated before this call are not touched.
func (s *SlipService) MarkLifted(ctx context.Context, slipID, memberID string) (*core.MonthlySlip, error) {
	slip, err := s.store.GetSlip(ctx, slipID)
	if err != nil {
		return nil, err
	}

	lock := s.locks.forChitty(slip.ChittyID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock: another lift may have landed between the
	// first read and lock acquisition.
	slip, err = s.store.GetSlip(ctx, slipID)
	if err != nil {
		return nil, err
	}
	member, err := s.store.GetMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if member.ChittyID != slip.ChittyID {
		return nil, fmt.Errorf("%w: member %s is not part of chitty %s",
			core.ErrNotFound, memberID, slip.ChittyID)
	}
	if slip.LiftedMemberID != "" {
		return nil, fmt.Errorf("%w: slip for month %d already lifted by member %s",
			core.ErrConflict, slip.Month, slip.LiftedMemberID)
	}
	if member.HasLifted {
		return nil, fmt.Errorf("%w: member %s already lifted in month %d",
			core.ErrConflict, memberID, member.LiftedMonth)
	}

	now := time.Now().UTC().Truncate(time.Second)
	if err := s.store.ApplyLift(ctx, slipID, memberID, slip.Month, now); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Member lifted",
		"slip_id", slipID,
		"chitty_id", slip.ChittyID,
		"member_id", memberID,
		"month", slip.Month)

	s.publish(ctx, amqp.NewSlipEvent(amqp.EventMemberLifted, slipID, slip.ChittyID, slip.Month, memberID))
	return s.store.GetSlip(ctx, slipID)
}

// SetPaymentStatus marks one member's installment on a slip paid or unpaid
// and returns the updated record. Payment is binary; the payment date is
// stored on paid and cleared on unpaid. Updates for distinct members are
// independent and take no chitty-wide lock.
func (s *SlipService) SetPaymentStatus(ctx context.Context, slipID, memberID string, paid bool) (*core.PaymentRecord, error) {
	now := time.Now().UTC().Truncate(time.Second)
	if err := s.store.SetPaymentStatus(ctx, slipID, memberID, paid, now); err != nil {
		return nil, err
	}

	slip, err := s.store.GetSlip(ctx, slipID)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Payment status updated",
		"slip_id", slipID,
		"member_id", memberID,
		"paid", paid)

	s.publish(ctx, amqp.NewSlipEvent(amqp.EventPaymentUpdated, slipID, slip.ChittyID, slip.Month, memberID))

	rec := slip.Record(memberID)
	if rec == nil {
		return nil, fmt.Errorf("record for member %s on slip %s: %w", memberID, slipID, core.ErrNotFound)
	}
	return rec, nil
}

// OutstandingBalance sums the unpaid installments across every generated
// slip of a chitty. The aggregate is computed on demand, never cached.
func (s *SlipService) OutstandingBalance(ctx context.Context, chittyID string) (core.Money, error) {
	if _, err := s.store.GetChitty(ctx, chittyID); err != nil {
		return core.Money{}, err
	}
	return s.store.OutstandingBalance(ctx, chittyID)
}

// RecomputeSlip re-derives every record's amount and lift flag on an
// existing slip from the members' current lift state. Slips generated
// before a lift are not corrected automatically; this is the explicit
// repair operation for that case. Paid flags and payment dates survive the
// recompute untouched.
func (s *SlipService) RecomputeSlip(ctx context.Context, chittyID string, month int) (*core.MonthlySlip, error) {
	chitty, err := s.store.GetChitty(ctx, chittyID)
	if err != nil {
		return nil, err
	}

	lock := s.locks.forChitty(chittyID)
	lock.Lock()
	defer lock.Unlock()

	slip, err := s.store.GetSlipByMonth(ctx, chittyID, month)
	if err != nil {
		return nil, err
	}
	members, err := s.store.ListMembers(ctx, chittyID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]core.Member, len(members))
	for _, m := range members {
		byID[m.ID] = m
	}
	for i := range slip.Records {
		m, ok := byID[slip.Records[i].MemberID]
		if !ok {
			continue
		}
		slip.Records[i].Amount = core.InstallmentFor(*chitty, m, month)
		slip.Records[i].Lifted = core.LiftedAsOf(m, month)
	}
	slip.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	if err := s.store.ReplaceSlipRecords(ctx, slip); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Slip recomputed",
		"slip_id", slip.ID,
		"chitty_id", chittyID,
		"month", month)

	s.publish(ctx, amqp.NewSlipEvent(amqp.EventSlipGenerated, slip.ID, chittyID, month, ""))
	return slip, nil
}

// publish sends an event without failing the operation: the mutation is
// already committed, so a broker hiccup only costs the notification.
func (s *SlipService) publish(ctx context.Context, msg *amqp.SlipEventMessage) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishSlipEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish slip event",
			"type", msg.Type,
			"slip_id", msg.SlipID,
			"error", err)
	}
}
