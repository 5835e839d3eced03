package database

import (
	"context"
	"database/sql"
	"fmt"
)

// snapshotOptions gives both reads of a page one InnoDB consistent snapshot.
var snapshotOptions = &sql.TxOptions{
	Isolation: sql.LevelRepeatableRead,
	ReadOnly:  true,
}

// ReadSnapshot runs fn inside a read-only REPEATABLE READ transaction.  The
// transaction is committed when fn succeeds and rolled back otherwise.
func ReadSnapshot(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, snapshotOptions)
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	committed = true
	return nil
}
