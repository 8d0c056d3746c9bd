package uow

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"referralhub/internal/errs"
	"referralhub/internal/ports"
)

// UnitOfWork is the gorm transaction boundary for referral writes.
type UnitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// WithTx commits when fn returns nil. Nested calls reuse the outer
// transaction so a commit only happens at the outermost boundary.
func (u *UnitOfWork) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if u == nil || u.db == nil {
		return errors.New("unit of work has no database")
	}
	if ports.InTx(ctx) {
		return fn(ctx)
	}
	var fnErr error
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(ports.WithTxContext(ctx, tx))
		return fnErr
	})
	if err == nil || fnErr != nil {
		return err
	}
	// fn succeeded, so the failure came from begin or commit.
	return errs.WithStack(errs.Wrap(err, "commit transaction"))
}
