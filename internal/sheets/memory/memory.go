package memory

import (
	"context"
	"fmt"
	"sync"

	"chitfund/internal/core"
)

// Store keeps exported slips in memory. It backs local development and
// tests where no spreadsheet is available.
type Store struct {
	mu    sync.Mutex
	slips map[string]core.MonthlySlip
}

func New() *Store {
	return &Store{slips: make(map[string]core.MonthlySlip)}
}

// WriteSlip stores the slip keyed by chitty and month, overwriting any
// previous export, and returns a synthetic reference.
func (s *Store) WriteSlip(_ context.Context, chitty core.Chitty, slip core.MonthlySlip) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := exportKey(chitty.ID, slip.Month)
	copied := slip
	copied.Records = append([]core.PaymentRecord(nil), slip.Records...)
	s.slips[key] = copied
	return fmt.Sprintf("mem:%s", key), nil
}

// Exported returns the last exported slip for a chitty and month.
func (s *Store) Exported(chittyID string, month int) (core.MonthlySlip, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slip, ok := s.slips[exportKey(chittyID, month)]
	return slip, ok
}

// Len reports how many distinct chitty months have been exported.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slips)
}

func exportKey(chittyID string, month int) string {
	return fmt.Sprintf("%s/%d", chittyID, month)
}
