package staging

import (
	"cmp"
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"dccpub/internal/logging"
)

// CleanResult lists the directories a sweep removed and the ones it could not.
type CleanResult struct {
	Removed []string
	Errors  []RemoveError
}

// RemoveError pairs a staging path with the error that kept it on disk.
type RemoveError struct {
	Path  string
	Error error
}

// DirInfo describes one directory under the staging root.
type DirInfo struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	ModTime time.Time `json:"modified"`
	Size    int64     `json:"size_bytes"`
}

// CleanStale removes staging directories last modified before now-maxAge,
// whatever instance they belong to.
func CleanStale(ctx context.Context, stagingDir string, maxAge time.Duration, logger *slog.Logger) CleanResult {
	cutoff := time.Now().Add(-maxAge)
	return sweep(ctx, stagingDir, "stale", logger, func(entry fs.DirEntry) bool {
		info, err := entry.Info()
		return err == nil && info.ModTime().Before(cutoff)
	})
}

// CleanOrphaned removes instance staging directories whose instance id is not
// in activeIDs (lower-case keys). Directories not named after an instance id
// are left for CleanStale.
func CleanOrphaned(ctx context.Context, stagingDir string, activeIDs map[string]struct{}, logger *slog.Logger) CleanResult {
	return sweep(ctx, stagingDir, "orphaned", logger, func(entry fs.DirEntry) bool {
		id := strings.ToLower(entry.Name())
		if uuid.Validate(id) != nil {
			return false
		}
		_, active := activeIDs[id]
		return !active
	})
}

func sweep(ctx context.Context, stagingDir, reason string, logger *slog.Logger, remove func(fs.DirEntry) bool) CleanResult {
	var result CleanResult
	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return result
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, RemoveError{Path: stagingDir, Error: err})
		}
		return result
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if !entry.IsDir() || !remove(entry) {
			continue
		}
		path := filepath.Join(stagingDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			result.Errors = append(result.Errors, RemoveError{Path: path, Error: err})
			logger.Warn("staging directory not removed",
				logging.String("path", path),
				logging.String("reason", reason),
				logging.Error(err),
				logging.String(logging.FieldEventType, "staging_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "check staging_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, path)
		logger.Info("staging directory removed",
			logging.String("path", path),
			logging.String("reason", reason),
			logging.String(logging.FieldInstanceID, entry.Name()),
			logging.String(logging.FieldEventType, "staging_cleanup"),
		)
	}
	return result
}

// ListDirectories returns the directories under stagingDir, oldest first.
// A missing or unset root yields nil.
func ListDirectories(stagingDir string) ([]DirInfo, error) {
	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(stagingDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(stagingDir, entry.Name())
		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    path,
			ModTime: info.ModTime(),
			Size:    treeSize(path),
		})
	}
	slices.SortStableFunc(dirs, func(a, b DirInfo) int {
		return cmp.Compare(a.ModTime.UnixNano(), b.ModTime.UnixNano())
	})
	return dirs, nil
}

// treeSize sums regular file sizes below root; unreadable entries count as zero.
func treeSize(root string) int64 {
	var size int64
	_ = filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, infoErr := d.Info(); infoErr == nil {
			size += info.Size()
		}
		return nil
	})
	return size
}
