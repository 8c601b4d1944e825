package lockfile

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/libretto-pm/libretto/internal/libretr"
)

// Recover sweeps dir for artifacts left behind by an interrupted write:
// orphan .tmp files are removed, .lck files are removed if they're
// acquirable (acquirable == stale: the OS releases an advisory flock the
// instant its holding process dies, so a successful TryLock is itself the
// staleness signal — no age threshold is needed or correct, since a lock
// abandoned a second ago is exactly as stale as one abandoned an hour
// ago), and any .backup file is either restored (its original is missing,
// meaning the crash happened mid-rename) or deleted (its original exists,
// meaning the write that produced it completed). It should run once at
// process startup before any lockfile write.
func Recover(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return libretr.Wrap(libretr.CodeIO, err, "reading directory for recovery sweep").WithPath(dir)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		full := filepath.Join(dir, name)

		switch {
		case strings.HasSuffix(name, tmpSuffix):
			os.Remove(full)

		case strings.HasSuffix(name, lockSuffix):
			if err := recoverStaleLock(full); err != nil {
				return err
			}

		case strings.HasSuffix(name, backupSuffix):
			if err := recoverBackup(full); err != nil {
				return err
			}
		}
	}
	return nil
}

func recoverStaleLock(lockPath string) error {
	if _, err := os.Stat(lockPath); err != nil {
		return nil
	}

	fl := flock.New(lockPath)
	locked, err := fl.TryLock()
	if err != nil {
		// Can't tell whether it's held; leave it for the next sweep rather
		// than risk removing a live writer's lock.
		return nil
	}
	if !locked {
		// A live process holds it.
		return nil
	}
	fl.Unlock()
	return os.Remove(lockPath)
}

func recoverBackup(backupPath string) error {
	original := strings.TrimSuffix(backupPath, backupSuffix)
	if _, err := os.Stat(original); err == nil {
		return os.Remove(backupPath)
	} else if !os.IsNotExist(err) {
		return libretr.Wrap(libretr.CodeIO, err, "statting original for backup recovery").WithPath(original)
	}

	data, err := os.ReadFile(backupPath)
	if err != nil {
		return libretr.Wrap(libretr.CodeIO, err, "reading backup file for recovery").WithPath(backupPath)
	}
	if err := os.WriteFile(original, data, 0o644); err != nil {
		return libretr.Wrap(libretr.CodeIO, err, "restoring original from backup").WithPath(original)
	}
	return os.Remove(backupPath)
}
