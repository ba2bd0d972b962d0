package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// DiskUsage is the on-disk footprint of the store and its indexes.
type DiskUsage struct {
	DatabaseBytes int64 `json:"databaseBytes"`
	IndexBytes    int64 `json:"indexBytes"`
}

// Total returns the combined size.
func (u DiskUsage) Total() int64 {
	return u.DatabaseBytes + u.IndexBytes
}

// MeasureDiskUsage sizes the database (including its WAL and shared-memory files) and the
// keyword index directory. Missing paths count as zero.
func MeasureDiskUsage(dbPath, indexPath string) (DiskUsage, error) {
	var u DiskUsage
	if dbPath != "" && dbPath != ":memory:" {
		for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
			n, err := pathSize(p)
			if err != nil {
				return DiskUsage{}, err
			}
			u.DatabaseBytes += n
		}
	}
	if indexPath != "" {
		n, err := pathSize(indexPath)
		if err != nil {
			return DiskUsage{}, err
		}
		u.IndexBytes = n
	}
	return u, nil
}

// pathSize returns the size of a file or, for a directory, the sum of its files.
func pathSize(p string) (int64, error) {
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return info.Size(), nil
	}

	var total int64
	err = filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		total += fi.Size()
		return nil
	})
	return total, err
}
