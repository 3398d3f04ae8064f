package sheets

import (
	"context"

	"chitfund/internal/core"
)

// Ports for outbound adapters.
type (
	// SlipWriter exports a monthly slip to an external sheet. Writing
	// the same chitty and month again overwrites the previous export,
	// so repeated exports converge on the latest slip state.
	SlipWriter interface {
		WriteSlip(ctx context.Context, chitty core.Chitty, slip core.MonthlySlip) (ref string, err error)
	}
)
