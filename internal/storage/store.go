// Package storage provides persistence for chitties, members and monthly
// slips behind a backend-agnostic interface.
package storage

import (
	"context"
	"time"

	"chitfund/internal/core"
)

// Store is the persistence boundary the service layer talks to. Every entity
// moves by id, never by ambient reference; the in-memory and SQLite backends
// are interchangeable behind it.
type Store interface {
	// CreateChitty persists a chitty and its members atomically.
	CreateChitty(ctx context.Context, chitty *core.Chitty, members []*core.Member) error

	// GetChitty returns a chitty; the error wraps core.ErrNotFound if absent.
	GetChitty(ctx context.Context, id string) (*core.Chitty, error)

	// ListChitties returns all chitties ordered by creation time.
	ListChitties(ctx context.Context) ([]core.Chitty, error)

	// ListMembers returns a chitty's members in creation order.
	ListMembers(ctx context.Context, chittyID string) ([]core.Member, error)

	// GetMember returns a member; the error wraps core.ErrNotFound if absent.
	GetMember(ctx context.Context, id string) (*core.Member, error)

	// CreateSlip persists a slip with its payment records. If a slip for the
	// same (chitty, month) already exists the error wraps core.ErrConflict
	// and nothing is written.
	CreateSlip(ctx context.Context, slip *core.MonthlySlip) error

	// GetSlip returns a slip with all records; wraps core.ErrNotFound if absent.
	GetSlip(ctx context.Context, id string) (*core.MonthlySlip, error)

	// GetSlipByMonth returns the slip for (chittyID, month); wraps
	// core.ErrNotFound if no slip was ever generated for that month.
	GetSlipByMonth(ctx context.Context, chittyID string, month int) (*core.MonthlySlip, error)

	// ListSlips returns all generated slips for a chitty ordered by month.
	ListSlips(ctx context.Context, chittyID string) ([]core.MonthlySlip, error)

	// ApplyLift records a lift in one atomic write: the member becomes
	// lifted for the slip's month, the slip gets its lifted member id, and
	// the member's own record on that slip is flagged lifted. Validation of
	// the one-lift invariants happens in the service layer before this call.
	ApplyLift(ctx context.Context, slipID, memberID string, month int, at time.Time) error

	// SetPaymentStatus sets paid on one record. paymentDate is stored when
	// paid is true and cleared otherwise. Wraps core.ErrNotFound when the
	// slip or the member's record is absent.
	SetPaymentStatus(ctx context.Context, slipID, memberID string, paid bool, at time.Time) error

	// ReplaceSlipRecords overwrites a slip's payment records, used by the
	// explicit recompute operation.
	ReplaceSlipRecords(ctx context.Context, slip *core.MonthlySlip) error

	// OutstandingBalance sums unpaid record amounts across a chitty's
	// generated slips.
	OutstandingBalance(ctx context.Context, chittyID string) (core.Money, error)

	// Close releases backend resources.
	Close() error
}
