package lockfile

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/libretto-pm/libretto/internal/integrity"
	"github.com/libretto-pm/libretto/internal/libretr"
)

const (
	lockTimeout      = 30 * time.Second
	lockPollInterval = 10 * time.Millisecond

	tmpSuffix    = ".tmp"
	lockSuffix   = ".lck"
	backupSuffix = ".backup"
)

// WriteFile atomically replaces path's contents with data: it creates the
// parent directory if needed, takes an exclusive advisory lock, writes to
// a sibling .tmp file, fsyncs it,
// re-hashes the bytes just written to catch any write-path corruption
// before they become visible, copies the previous contents aside to a
// .backup file, renames .tmp over path, and fsyncs the containing
// directory so the rename itself is durable on crash. Any failure leaves
// path untouched.
func WriteFile(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return libretr.Wrap(libretr.CodeIO, err, "creating parent directory").WithPath(dir)
	}

	lockPath := path + lockSuffix
	fl := flock.New(lockPath)

	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	locked, err := fl.TryLockContext(ctx, lockPollInterval)
	if err != nil || !locked {
		return libretr.New(libretr.CodeLockTimeout, "timed out waiting for lock on "+path)
	}
	defer fl.Unlock()

	return writeFileLocked(path, data)
}

func writeFileLocked(path string, data []byte) error {
	tmpPath := path + tmpSuffix
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return libretr.Wrap(libretr.CodeIO, err, "writing temp file").WithPath(tmpPath)
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		return libretr.Wrap(libretr.CodeIO, err, "reopening temp file for fsync").WithPath(tmpPath)
	}
	syncErr := f.Sync()
	closeErr := f.Close()
	if syncErr != nil {
		os.Remove(tmpPath)
		return libretr.Wrap(libretr.CodeIO, syncErr, "fsyncing temp file").WithPath(tmpPath)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return libretr.Wrap(libretr.CodeIO, closeErr, "closing temp file").WithPath(tmpPath)
	}

	written, err := os.ReadFile(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return libretr.Wrap(libretr.CodeIO, err, "reading back temp file").WithPath(tmpPath)
	}
	if integrity.Hash(written) != integrity.Hash(data) {
		os.Remove(tmpPath)
		return libretr.New(libretr.CodeIntegrity, "temp file content hash mismatch after write").WithPath(tmpPath)
	}

	backupPath := path + backupSuffix
	if existing, err := os.ReadFile(path); err == nil {
		if err := os.WriteFile(backupPath, existing, 0o644); err != nil {
			os.Remove(tmpPath)
			return libretr.Wrap(libretr.CodeIO, err, "writing backup file").WithPath(backupPath)
		}
	} else if !os.IsNotExist(err) {
		os.Remove(tmpPath)
		return libretr.Wrap(libretr.CodeIO, err, "reading existing file for backup").WithPath(path)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return libretr.Wrap(libretr.CodeIO, err, "renaming temp file into place").WithPath(path)
	}

	if err := fsyncDir(filepath.Dir(path)); err != nil {
		return libretr.Wrap(libretr.CodeIO, err, "fsyncing directory").WithPath(filepath.Dir(path))
	}

	os.Remove(backupPath)
	return nil
}

// fsyncDir durably persists a rename within dir. On platforms where
// directory fsync isn't meaningful (Windows) this is a harmless no-op,
// since Open on a directory fails there and we swallow that specific case.
func fsyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return nil
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return err
	}
	return nil
}
