// Package worker exports generated slips to an external sheet in
// response to AMQP events.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"chitfund/internal/amqp"
	"chitfund/internal/sheets"
	"chitfund/internal/storage"
)

// ExportWorker reads the current slip state from storage and mirrors
// it to a sheet. The event only carries ids; storage is the source of
// truth, so replayed or reordered events still converge.
type ExportWorker struct {
	store  storage.Store
	writer sheets.SlipWriter
}

func NewExportWorker(store storage.Store, writer sheets.SlipWriter) *ExportWorker {
	return &ExportWorker{store: store, writer: writer}
}

// HandleSlipEvent processes a single slip event from AMQP. All event
// types trigger the same full re-export of the affected slip.
func (w *ExportWorker) HandleSlipEvent(ctx context.Context, msg *amqp.SlipEventMessage) error {
	slog.InfoContext(ctx, "Processing slip event",
		"type", msg.Type,
		"slip_id", msg.SlipID,
		"chitty_id", msg.ChittyID,
		"month", msg.Month)

	slip, err := w.store.GetSlip(ctx, msg.SlipID)
	if err != nil {
		return fmt.Errorf("get slip %s: %w", msg.SlipID, err)
	}
	chitty, err := w.store.GetChitty(ctx, slip.ChittyID)
	if err != nil {
		return fmt.Errorf("get chitty %s: %w", slip.ChittyID, err)
	}

	ref, err := w.writer.WriteSlip(ctx, *chitty, *slip)
	if err != nil {
		return fmt.Errorf("write slip to sheet: %w", err)
	}

	slog.InfoContext(ctx, "Slip exported",
		"chitty", chitty.Name,
		"month", slip.Month,
		"ref", ref)
	return nil
}

// StartupExportCheck re-exports every known slip. It runs once at
// worker startup to recover from events missed while the worker was
// down.
func (w *ExportWorker) StartupExportCheck(ctx context.Context) error {
	chitties, err := w.store.ListChitties(ctx)
	if err != nil {
		return fmt.Errorf("list chitties: %w", err)
	}

	var exported, failed int
	for _, chitty := range chitties {
		slips, err := w.store.ListSlips(ctx, chitty.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to list slips on startup",
				"chitty_id", chitty.ID, "error", err)
			failed++
			continue
		}
		for _, slip := range slips {
			if _, err := w.writer.WriteSlip(ctx, chitty, slip); err != nil {
				slog.ErrorContext(ctx, "Failed to export slip on startup",
					"chitty_id", chitty.ID, "month", slip.Month, "error", err)
				failed++
				continue
			}
			exported++
		}
	}

	slog.InfoContext(ctx, "Startup export completed",
		"exported", exported,
		"errors", failed)
	return nil
}
