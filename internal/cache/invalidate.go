package cache

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ClearDir removes the directory and all contents, then recreates it empty.
func ClearDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("empty dir")
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// PurgeByAge removes entries whose SavedAt is older than maxAge. Both the
// meta file and its body are deleted. A missing directory purges nothing.
func PurgeByAge(dir string, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	now := time.Now().UTC()
	removed := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".meta.json") {
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return nil // skip unreadable
		}
		var e HTTPEntry
		if err := json.Unmarshal(b, &e); err != nil {
			return nil // skip malformed
		}
		if now.Sub(e.SavedAt) <= maxAge {
			return nil
		}
		removed++
		_ = os.Remove(path)
		_ = os.Remove(strings.TrimSuffix(path, ".meta.json") + ".body")
		return nil
	})
	return removed, err
}

type entryStat struct {
	base  string
	size  int64
	mtime time.Time
}

// EnforceLimits evicts least recently used entries until the cache holds at
// most maxEntries entries and at most maxBytes of bodies. A zero limit is
// not enforced. Recency is the body file's modification time, which
// LoadBody refreshes.
func EnforceLimits(dir string, maxBytes int64, maxEntries int) (int, error) {
	if maxBytes <= 0 && maxEntries <= 0 {
		return 0, nil
	}
	des, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	var entries []entryStat
	var total int64
	for _, de := range des {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".body") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, entryStat{
			base:  filepath.Join(dir, strings.TrimSuffix(de.Name(), ".body")),
			size:  info.Size(),
			mtime: info.ModTime(),
		})
		total += info.Size()
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].mtime.Before(entries[j].mtime) })

	removed := 0
	for _, e := range entries {
		overCount := maxEntries > 0 && len(entries)-removed > maxEntries
		overBytes := maxBytes > 0 && total > maxBytes
		if !overCount && !overBytes {
			break
		}
		_ = os.Remove(e.base + ".body")
		_ = os.Remove(e.base + ".meta.json")
		total -= e.size
		removed++
	}
	return removed, nil
}
