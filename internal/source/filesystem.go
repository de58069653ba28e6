package source

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FileSystem is the stock Source: an ordered list of disk roots, one per
// erasure-set disk slot, read the way the teacher's storage.FileSystem
// engine reads local object files.
type FileSystem struct {
	roots   []string
	verbose bool
}

// NewFileSystem builds a filesystem shard-source over roots, where
// roots[i] is the data directory for disk slot i.
func NewFileSystem(roots []string) *FileSystem {
	return &FileSystem{roots: roots}
}

// SetVerbose toggles slog.Debug diagnostics on Absent results.
func (fs *FileSystem) SetVerbose(v bool) { fs.verbose = v }

func (fs *FileSystem) shardPath(diskIndex int, bucket, key, dataDir string, partNum int) (string, error) {
	if diskIndex < 0 || diskIndex >= len(fs.roots) {
		return "", fmt.Errorf("source: disk index %d out of range [0,%d)", diskIndex, len(fs.roots))
	}
	return filepath.Join(fs.roots[diskIndex], bucket, key, dataDir, fmt.Sprintf("part.%d", partNum)), nil
}

// ReadShard implements Source.
func (fs *FileSystem) ReadShard(diskIndex int, bucket, key, dataDir string, partNum int) ([]byte, bool, error) {
	path, err := fs.shardPath(diskIndex, bucket, key, dataDir, partNum)
	if err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if fs.verbose {
				slog.Debug("source: shard absent", "disk_index", diskIndex, "path", path)
			}
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("source: read shard %s: %w", path, err)
	}
	return data, true, nil
}
