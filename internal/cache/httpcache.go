// Package cache stores fetched pages on disk so repeated extractions of the
// same recipe can revalidate with ETag / Last-Modified instead of
// downloading the page again.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// HTTPEntry captures enough metadata to support conditional revalidation.
type HTTPEntry struct {
	URL          string    `json:"url"`
	ContentType  string    `json:"content_type"`
	ETag         string    `json:"etag"`
	LastModified string    `json:"last_modified"`
	SavedAt      time.Time `json:"saved_at"`
	// Size is the body length in bytes, checked by LoadBody.
	Size int64 `json:"size"`
}

// ErrBodyMismatch reports a cached body whose length differs from the
// length recorded in its meta file.
var ErrBodyMismatch = errors.New("cached body does not match its entry")

// HTTPCache stores responses as <key>.meta.json and <key>.body where key is
// sha256(url). Both files are written to a temporary name and renamed into
// place, so a concurrent reader sees a complete old or new file.
type HTTPCache struct {
	Dir string
	// StrictPerms restricts the directory to 0700 and files to 0600.
	StrictPerms bool
}

func (c *HTTPCache) dirMode() os.FileMode {
	if c.StrictPerms {
		return 0o700
	}
	return 0o755
}

func (c *HTTPCache) fileMode() os.FileMode {
	if c.StrictPerms {
		return 0o600
	}
	return 0o644
}

func (c *HTTPCache) ensureDir() error {
	if c == nil || c.Dir == "" {
		return errors.New("cache dir not configured")
	}
	if err := os.MkdirAll(c.Dir, c.dirMode()); err != nil {
		return err
	}
	if c.StrictPerms {
		return os.Chmod(c.Dir, c.dirMode())
	}
	return nil
}

func (c *HTTPCache) key(url string) string {
	h := sha256.Sum256([]byte(url))
	return hex.EncodeToString(h[:])
}

func (c *HTTPCache) metaPath(key string) string { return filepath.Join(c.Dir, key+".meta.json") }
func (c *HTTPCache) bodyPath(key string) string { return filepath.Join(c.Dir, key+".body") }

// LoadMeta returns entry metadata if present.
func (c *HTTPCache) LoadMeta(_ context.Context, url string) (*HTTPEntry, error) {
	if err := c.ensureDir(); err != nil {
		return nil, err
	}
	return c.readMeta(c.key(url))
}

func (c *HTTPCache) readMeta(key string) (*HTTPEntry, error) {
	b, err := os.ReadFile(c.metaPath(key))
	if err != nil {
		return nil, err
	}
	var e HTTPEntry
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("decode meta: %w", err)
	}
	return &e, nil
}

// LoadBody returns the cached body and marks the entry as recently used.
// A body whose length differs from the entry's recorded size yields
// ErrBodyMismatch; this happens when a concurrent Save replaced the body
// between the two reads.
func (c *HTTPCache) LoadBody(_ context.Context, url string) ([]byte, error) {
	if err := c.ensureDir(); err != nil {
		return nil, err
	}
	key := c.key(url)
	meta, err := c.readMeta(key)
	if err != nil {
		return nil, err
	}
	p := c.bodyPath(key)
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	if int64(len(b)) != meta.Size {
		return nil, fmt.Errorf("%w: %d bytes on disk, %d recorded", ErrBodyMismatch, len(b), meta.Size)
	}
	now := time.Now()
	_ = os.Chtimes(p, now, now)
	return b, nil
}

// Save stores a new cache entry.
func (c *HTTPCache) Save(_ context.Context, url string, contentType string, etag string, lastModified string, body []byte) error {
	if err := c.ensureDir(); err != nil {
		return err
	}
	key := c.key(url)
	// Body first so a visible meta file always has a body next to it
	if err := c.writeFile(c.bodyPath(key), body); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	meta := HTTPEntry{
		URL:          url,
		ContentType:  contentType,
		ETag:         etag,
		LastModified: lastModified,
		SavedAt:      time.Now().UTC(),
		Size:         int64(len(body)),
	}
	b, err := json.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	if err := c.writeFile(c.metaPath(key), b); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	return nil
}

// Delete removes the entry for url. A missing entry is not an error.
func (c *HTTPCache) Delete(_ context.Context, url string) error {
	if c == nil || c.Dir == "" {
		return errors.New("cache dir not configured")
	}
	key := c.key(url)
	for _, p := range []string{c.metaPath(key), c.bodyPath(key)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// writeFile writes data under a unique temporary name and renames it to
// path. Concurrent writers of the same path never share a temporary file.
func (c *HTTPCache) writeFile(path string, data []byte) error {
	f, err := os.CreateTemp(c.Dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Chmod(c.fileMode()); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
