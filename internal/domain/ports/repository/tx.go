package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager runs fn inside a database transaction, handing the
// transaction to repositories through the opaque `qx` argument their
// methods accept. Repositories must also accept nil qx and fall back to
// the pool, so non-transactional call sites stay simple. The concrete
// type behind Tx is infra-defined (pgx.Tx for Postgres).
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
