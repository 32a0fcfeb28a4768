package namedsql

import (
	"context"
	"database/sql"
	"fmt"
)

// WithTx runs fn in a transaction on db. The transaction is committed when
// fn returns nil and rolled back when it returns an error or panics; a
// panic is re-raised after the rollback.
//
//	err := namedsql.WithTx(ctx, db, nil, func(tx *sql.Tx) error {
//	    if _, err := queries.Call(ctx, tx, "accounts.debit", from, amount); err != nil {
//	        return err
//	    }
//	    _, err := queries.Call(ctx, tx, "accounts.credit", to, amount)
//	    return err
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("namedsql: begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return &RollbackError{Err: err, Rollback: rerr}
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("namedsql: commit transaction: %w", err)
	}
	return nil
}
