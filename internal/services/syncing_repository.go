// Package services holds decorators that add side effects around the
// persistence port.
package services

import (
	"context"
	"errors"
	"fmt"

	"gastos/internal/amqp"
	applog "gastos/internal/log"
	"gastos/internal/persistence"
)

// Publisher is the outbound side of the change feed.
type Publisher interface {
	PublishRecordChanged(ctx context.Context, msg *amqp.RecordChangedMessage) error
}

// SyncingRepository writes through to the wrapped repository and, once a
// change set is committed, announces every change to the publisher.
// Publishing is best effort: failures are logged and never fail the write.
type SyncingRepository struct {
	next      persistence.Repository
	publisher Publisher
	logger    *applog.Logger
}

var _ persistence.Repository = (*SyncingRepository)(nil)

func NewSyncingRepository(next persistence.Repository, publisher Publisher, logger *applog.Logger) *SyncingRepository {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &SyncingRepository{
		next:      next,
		publisher: publisher,
		logger:    logger.WithComponent(applog.ComponentBackend),
	}
}

func (r *SyncingRepository) Load(ctx context.Context, userID string) (persistence.Snapshot, error) {
	return r.next.Load(ctx, userID)
}

func (r *SyncingRepository) Apply(ctx context.Context, userID string, cs persistence.ChangeSet) error {
	if err := r.next.Apply(ctx, userID, cs); err != nil {
		return err
	}
	if r.publisher == nil {
		r.logger.WarnContext(ctx, "AMQP client not available, skipping change notifications",
			applog.FieldCount, cs.Size())
		return nil
	}
	for _, msg := range Messages(userID, cs) {
		if err := r.publisher.PublishRecordChanged(ctx, msg); err != nil {
			r.logger.ErrorContext(ctx, "Failed to publish record change",
				applog.FieldRecordKind, msg.Kind,
				applog.FieldRecordID, msg.ID,
				applog.FieldError, err)
		}
	}
	return nil
}

// Messages expands a change set into one message per change, deletes first
// so a consumer replaying them in order ends in the committed state.
func Messages(userID string, cs persistence.ChangeSet) []*amqp.RecordChangedMessage {
	out := make([]*amqp.RecordChangedMessage, 0, cs.Size())
	for _, k := range cs.DeleteExpenses {
		out = append(out, amqp.NewDelete(persistence.KindExpense, userID, k.Month, k.ID))
	}
	for _, k := range cs.DeleteIncomes {
		out = append(out, amqp.NewDelete(persistence.KindIncome, userID, k.Month, k.ID))
	}
	for _, id := range cs.DeleteCategories {
		out = append(out, amqp.NewDelete(persistence.KindCategory, userID, "", id))
	}
	for _, id := range cs.DeleteAccounts {
		out = append(out, amqp.NewDelete(persistence.KindAccount, userID, "", id))
	}
	for _, e := range cs.PutExpenses {
		out = append(out, amqp.NewExpensePut(userID, e))
	}
	for _, in := range cs.PutIncomes {
		out = append(out, amqp.NewIncomePut(userID, in))
	}
	for _, c := range cs.PutCategories {
		out = append(out, amqp.NewCategoryPut(userID, c))
	}
	for _, a := range cs.PutAccounts {
		out = append(out, amqp.NewAccountPut(userID, a))
	}
	return out
}

// Close closes the wrapped repository and the publisher when they support it.
func (r *SyncingRepository) Close() error {
	var errs []error
	if c, ok := r.next.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := r.publisher.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Ping forwards readiness checks to the wrapped repository.
func (r *SyncingRepository) Ping(ctx context.Context) error {
	if p, ok := r.next.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}
