package query

import (
	"context"
	"fmt"
	"log/slog"
)

// Transaction runs fn inside a database transaction. The client passed to fn
// dispatches on the transaction and reports on c's bus. The transaction
// commits when fn returns nil and rolls back when it returns an error or
// panics; a panic is re-raised after rollback.
//
// Calling Transaction on a transaction client runs fn in the same transaction.
func (c *Client) Transaction(ctx context.Context, fn func(tx *Client) error) (err error) {
	if c.inTx {
		return fn(c)
	}

	tx, err := c.core.adapter.Begin(ctx)
	if err != nil {
		return err
	}
	txc := &Client{core: c.core, exec: tx, bus: c.bus, inTx: true}
	logger := c.core.logger

	// Rollback must still reach the server after ctx is cancelled.
	rollbackCtx := context.WithoutCancel(ctx)

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(rollbackCtx); rbErr != nil {
				logger.Warn("rollback after panic failed", slog.Any("error", rbErr))
			}
			panic(p)
		}
	}()

	if err := fn(txc); err != nil {
		if rbErr := tx.Rollback(rollbackCtx); rbErr != nil {
			logger.Warn("rollback failed", slog.Any("error", rbErr))
		}
		logger.Debug("transaction rolled back", slog.Any("error", err))
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	logger.Debug("transaction committed")
	return nil
}
