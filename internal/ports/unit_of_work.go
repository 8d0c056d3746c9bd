package ports

import "context"

// Tx is the transaction handle carried in context. The persistence
// adapter decides its concrete type.
type Tx interface{}

// UnitOfWork runs fn in one transaction: a returned error rolls back,
// nil commits. A call made inside an open transaction joins it.
type UnitOfWork interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

// WithTxContext attaches tx to ctx.
func WithTxContext(ctx context.Context, tx Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the open transaction, or nil.
func TxFromContext(ctx context.Context) Tx {
	return ctx.Value(txKey{})
}

// InTx reports whether ctx already carries a transaction.
func InTx(ctx context.Context) bool {
	return TxFromContext(ctx) != nil
}
