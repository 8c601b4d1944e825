package lockfile

import (
	"context"
	"os"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/libretto-pm/libretto/internal/libretr"
)

// Transaction writes multiple files as a single atomic-looking unit:
// every file's lock is acquired up front, and if any write fails the
// files already written are restored from their pre-transaction contents
// in reverse order, so a reader never observes a partially-updated set
// (e.g. composer.lock updated but a vendor manifest left stale).
type Transaction struct {
	ID        uuid.UUID // identifies this transaction in logs and lock-timeout errors
	locks     []*flock.Flock
	completed []completedWrite
}

type completedWrite struct {
	path     string
	had      bool
	previous []byte
}

// BeginTransaction acquires an exclusive lock on every path up front, in
// the order given, so two transactions touching an overlapping file set
// can never deadlock each other by acquiring locks in different orders
// (callers are responsible for passing paths in a consistent order).
func BeginTransaction(paths []string) (*Transaction, error) {
	tx := &Transaction{ID: uuid.New()}
	for _, p := range paths {
		fl := flock.New(p + lockSuffix)
		ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
		locked, err := fl.TryLockContext(ctx, lockPollInterval)
		cancel()
		if err != nil || !locked {
			tx.releaseLocks()
			return nil, libretr.New(libretr.CodeLockTimeout, "timed out waiting for lock on "+p+" (transaction "+tx.ID.String()+")")
		}
		tx.locks = append(tx.locks, fl)
	}
	return tx, nil
}

// Write stages path's new contents within the transaction. It performs
// the same fsync-and-verify write as WriteFile (the transaction already
// holds the lock, so it writes directly rather than calling WriteFile,
// which would try to re-acquire it). If the write fails, the transaction
// is rolled back and its locks are released before the error is returned.
func (tx *Transaction) Write(path string, data []byte) error {
	previous, err := os.ReadFile(path)
	had := err == nil
	if err != nil && !os.IsNotExist(err) {
		return libretr.Wrap(libretr.CodeIO, err, "reading existing file before transactional write").WithPath(path)
	}

	if err := writeFileLocked(path, data); err != nil {
		tx.Rollback()
		tx.completed = nil
		return err
	}

	tx.completed = append(tx.completed, completedWrite{path: path, had: had, previous: previous})
	return nil
}

// Commit releases every lock held by the transaction. Once Commit
// returns, the written files are final.
func (tx *Transaction) Commit() error {
	tx.releaseLocks()
	return nil
}

// Rollback restores every file the transaction wrote, in LIFO order
// (most recently written first), then releases all locks. A file that
// didn't exist before the transaction is removed rather than restored.
func (tx *Transaction) Rollback() error {
	var firstErr error
	for i := len(tx.completed) - 1; i >= 0; i-- {
		w := tx.completed[i]
		var err error
		if w.had {
			err = writeFileLocked(w.path, w.previous)
		} else {
			err = os.Remove(w.path)
			if os.IsNotExist(err) {
				err = nil
			}
		}
		if err != nil && firstErr == nil {
			firstErr = libretr.Wrap(libretr.CodeIO, err, "rolling back transactional write").WithPath(w.path)
		}
	}
	tx.releaseLocks()
	return firstErr
}

func (tx *Transaction) releaseLocks() {
	for i := len(tx.locks) - 1; i >= 0; i-- {
		tx.locks[i].Unlock()
	}
	tx.locks = nil
}
