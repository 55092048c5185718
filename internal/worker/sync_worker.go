package worker

import (
	"context"
	"errors"
	"fmt"

	"gastos/internal/amqp"
	applog "gastos/internal/log"
	"gastos/internal/persistence"
	"gastos/internal/sheets"
)

// SyncWorker mirrors ledger change notifications into a spreadsheet.
type SyncWorker struct {
	mirror sheets.RecordMirror
	source persistence.Repository
	logger *applog.Logger
}

// NewSyncWorker creates a worker. source is only needed by Resync and may be nil.
func NewSyncWorker(mirror sheets.RecordMirror, source persistence.Repository, logger *applog.Logger) *SyncWorker {
	if logger == nil {
		logger = applog.Discard()
	}
	return &SyncWorker{
		mirror: mirror,
		source: source,
		logger: logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleMessage processes one change notification. Movement puts replace the
// mirrored row, movement deletes clear it. Category and account changes have
// no rows of their own and are skipped.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.RecordChangedMessage) error {
	w.logger.InfoContext(ctx, "Processing record change",
		applog.FieldRecordKind, msg.Kind,
		applog.FieldOperation, msg.Op,
		applog.FieldRecordID, msg.ID,
		applog.FieldUserID, msg.UserID)

	switch msg.Kind {
	case persistence.KindExpense, persistence.KindIncome:
	default:
		w.logger.DebugContext(ctx, "Skipping non-movement change",
			applog.FieldRecordKind, msg.Kind,
			applog.FieldRecordID, msg.ID)
		return nil
	}

	if msg.Op == amqp.OpDelete {
		year, err := sheets.YearOfMonth(msg.Month)
		if err != nil {
			// Without a month there is no sheet to look in; requeueing cannot help.
			w.logger.ErrorContext(ctx, "Dropping delete without a valid month",
				applog.FieldRecordID, msg.ID,
				applog.FieldError, err)
			return nil
		}
		if err := w.mirror.DeleteRecord(ctx, year, msg.ID); err != nil {
			return fmt.Errorf("delete mirrored row: %w", err)
		}
		w.logger.InfoContext(ctx, "Cleared mirrored row", applog.FieldRecordID, msg.ID)
		return nil
	}

	row, err := sheets.RowFromMessage(msg)
	if err != nil {
		w.logger.ErrorContext(ctx, "Dropping unusable put", applog.FieldRecordID, msg.ID, applog.FieldError, err)
		return nil
	}
	if err := w.mirror.UpsertRecord(ctx, row); err != nil {
		return fmt.Errorf("upsert mirrored row: %w", err)
	}
	w.logger.InfoContext(ctx, "Mirrored movement",
		applog.FieldRecordID, msg.ID,
		applog.FieldAmountCents, row.Amount.Cents)
	return nil
}

// Resync mirrors every stored movement of the given users. It recovers rows
// lost while the worker was down or messages were dropped.
func (w *SyncWorker) Resync(ctx context.Context, userIDs ...string) error {
	if w.source == nil {
		return errors.New("resync needs a repository")
	}
	for _, userID := range userIDs {
		snap, err := w.source.Load(ctx, userID)
		if err != nil {
			return fmt.Errorf("load %s: %w", userID, err)
		}
		synced, failed := 0, 0
		rows := make([]sheets.Row, 0, len(snap.Expenses)+len(snap.Incomes))
		for _, e := range snap.Expenses {
			rows = append(rows, sheets.RowFromExpense(e))
		}
		for _, in := range snap.Incomes {
			rows = append(rows, sheets.RowFromIncome(in))
		}
		for _, row := range rows {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := w.mirror.UpsertRecord(ctx, row); err != nil {
				w.logger.ErrorContext(ctx, "Failed to resync movement",
					applog.FieldRecordID, row.ID,
					applog.FieldError, err)
				failed++
				continue
			}
			synced++
		}
		w.logger.InfoContext(ctx, "Resync completed",
			applog.FieldUserID, userID,
			"total", len(rows),
			"synced", synced,
			"errors", failed)
	}
	return nil
}
