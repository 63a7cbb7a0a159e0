package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestHTTPCache_SaveLoad(t *testing.T) {
	t.Parallel()
	c := &HTTPCache{Dir: t.TempDir()}
	ctx := context.Background()
	if err := c.Save(ctx, "https://sallys-blog.de/rezepte/a", "text/html", `"e1"`, "Mon, 01 Jan 2024 00:00:00 GMT", []byte("<html>a</html>")); err != nil {
		t.Fatalf("save: %v", err)
	}
	meta, err := c.LoadMeta(ctx, "https://sallys-blog.de/rezepte/a")
	if err != nil {
		t.Fatalf("load meta: %v", err)
	}
	if meta.ETag != `"e1"` || meta.ContentType != "text/html" || meta.SavedAt.IsZero() {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	body, err := c.LoadBody(ctx, "https://sallys-blog.de/rezepte/a")
	if err != nil || string(body) != "<html>a</html>" {
		t.Fatalf("load body: %q %v", string(body), err)
	}
	if _, err := c.LoadMeta(ctx, "https://sallys-blog.de/rezepte/missing"); err == nil {
		t.Fatalf("expected error for missing entry")
	}
}

func TestHTTPCache_ConcurrentSaveNeverServesPartialBody(t *testing.T) {
	t.Parallel()
	c := &HTTPCache{Dir: t.TempDir()}
	ctx := context.Background()
	const u = "https://sallys-blog.de/rezepte/zimtschnecken/"
	bodies := [][]byte{
		bytes.Repeat([]byte("a"), 1<<20),
		bytes.Repeat([]byte("b"), 2<<20),
	}
	if err := c.Save(ctx, u, "text/html", `"v0"`, "", bodies[0]); err != nil {
		t.Fatalf("initial save: %v", err)
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if err := c.Save(ctx, u, "text/html", fmt.Sprintf(`"v%d"`, i), "", bodies[i%2]); err != nil {
				t.Errorf("save %d: %v", i, err)
				return
			}
		}
	}()

	for i := 0; i < 300; i++ {
		b, err := c.LoadBody(ctx, u)
		if err != nil {
			if !errors.Is(err, ErrBodyMismatch) {
				t.Errorf("read %d: unexpected error %v", i, err)
			}
			continue
		}
		if !bytes.Equal(b, bodies[0]) && !bytes.Equal(b, bodies[1]) {
			t.Errorf("read %d: partial body of %d bytes", i, len(b))
			break
		}
	}
	close(stop)
	wg.Wait()

	leftovers, _ := filepath.Glob(filepath.Join(c.Dir, "*.tmp"))
	if len(leftovers) != 0 {
		t.Fatalf("temporary files left behind: %v", leftovers)
	}
}

func TestHTTPCache_SizeMismatch(t *testing.T) {
	t.Parallel()
	c := &HTTPCache{Dir: t.TempDir()}
	ctx := context.Background()
	const u = "https://knusperstuebchen.net/2024/01/02/kekse/"
	if err := c.Save(ctx, u, "text/html", "", "", []byte("<html>complete</html>")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := os.WriteFile(c.bodyPath(c.key(u)), []byte("<html>comp"), 0o644); err != nil {
		t.Fatalf("truncate body: %v", err)
	}
	if _, err := c.LoadBody(ctx, u); !errors.Is(err, ErrBodyMismatch) {
		t.Fatalf("expected ErrBodyMismatch, got %v", err)
	}
}

func TestHTTPCache_Delete(t *testing.T) {
	t.Parallel()
	c := &HTTPCache{Dir: t.TempDir()}
	ctx := context.Background()
	const u = "https://pin.it/abc"
	if err := c.Save(ctx, u, "text/html", `"e"`, "", []byte("x")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := c.Delete(ctx, u); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.LoadMeta(ctx, u); err == nil {
		t.Fatalf("meta still present")
	}
	if err := c.Delete(ctx, u); err != nil {
		t.Fatalf("deleting a missing entry: %v", err)
	}
}

func TestHTTPCache_NotConfigured(t *testing.T) {
	var c *HTTPCache
	if _, err := c.LoadMeta(context.Background(), "u"); err == nil {
		t.Fatalf("expected error for nil cache")
	}
}

func TestHTTPCache_StrictPerms(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "http")
	c := &HTTPCache{Dir: dir, StrictPerms: true}
	if err := c.Save(context.Background(), "https://a.example/1", "text/html", "", "", []byte("x")); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("stat dir: %v", err)
	}
	if got := info.Mode() & 0o777; got != 0o700 {
		t.Fatalf("dir mode = %o, want 0700", got)
	}
	finfo, err := os.Stat(c.bodyPath(c.key("https://a.example/1")))
	if err != nil {
		t.Fatalf("stat body: %v", err)
	}
	if got := finfo.Mode() & 0o777; got != 0o600 {
		t.Fatalf("body mode = %o, want 0600", got)
	}
}

func TestEnforceLimits_Count(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	c := &HTTPCache{Dir: dir}
	urls := []string{"https://a.com/1", "https://a.com/2", "https://a.com/3"}
	base := time.Now().Add(-time.Hour)
	for i, u := range urls {
		if err := c.Save(context.Background(), u, "text/html", "", "", []byte(fmt.Sprintf("body-%d", i))); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		ts := base.Add(time.Duration(i) * time.Minute)
		if err := os.Chtimes(c.bodyPath(c.key(u)), ts, ts); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}
	// Touch the oldest so the second becomes least recently used
	if _, err := c.LoadBody(context.Background(), urls[0]); err != nil {
		t.Fatalf("touch body: %v", err)
	}
	removed, err := EnforceLimits(dir, 0, 2)
	if err != nil {
		t.Fatalf("enforce: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := c.LoadBody(context.Background(), urls[1]); err == nil {
		t.Fatalf("expected least recently used entry evicted")
	}
	if _, err := c.LoadMeta(context.Background(), urls[0]); err != nil {
		t.Fatalf("expected touched entry kept: %v", err)
	}
}

func TestEnforceLimits_Bytes(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	c := &HTTPCache{Dir: dir}
	if err := c.Save(context.Background(), "https://b.com/1", "text/html", "", "", []byte("1111111111")); err != nil {
		t.Fatalf("save 1: %v", err)
	}
	old := time.Now().Add(-time.Hour)
	_ = os.Chtimes(c.bodyPath(c.key("https://b.com/1")), old, old)
	if err := c.Save(context.Background(), "https://b.com/2", "text/html", "", "", []byte("22")); err != nil {
		t.Fatalf("save 2: %v", err)
	}
	removed, err := EnforceLimits(dir, 5, 0)
	if err != nil {
		t.Fatalf("enforce: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, err := c.LoadBody(context.Background(), "https://b.com/2"); err != nil {
		t.Fatalf("expected newest entry kept: %v", err)
	}
}

func TestPurgeByAge(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	c := &HTTPCache{Dir: dir}
	ctx := context.Background()
	if err := c.Save(ctx, "https://c.com/old", "text/html", "", "", []byte("old")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := c.Save(ctx, "https://c.com/new", "text/html", "", "", []byte("new")); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Backdate the first entry
	meta, _ := c.LoadMeta(ctx, "https://c.com/old")
	meta.SavedAt = time.Now().Add(-48 * time.Hour).UTC()
	b := []byte(fmt.Sprintf(`{"url":%q,"content_type":"text/html","etag":"","last_modified":"","saved_at":%q}`, meta.URL, meta.SavedAt.Format(time.RFC3339Nano)))
	if err := os.WriteFile(c.metaPath(c.key("https://c.com/old")), b, 0o644); err != nil {
		t.Fatalf("write meta: %v", err)
	}

	removed, err := PurgeByAge(dir, 24*time.Hour)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := c.LoadBody(ctx, "https://c.com/old"); err == nil {
		t.Fatalf("expected old body removed")
	}
	if _, err := c.LoadBody(ctx, "https://c.com/new"); err != nil {
		t.Fatalf("expected new body kept: %v", err)
	}
	if n, err := PurgeByAge(filepath.Join(dir, "missing"), time.Hour); n != 0 || err != nil {
		t.Fatalf("missing dir should purge nothing: %d %v", n, err)
	}
}

func TestClearDir(t *testing.T) {
	dir := t.TempDir()
	c := &HTTPCache{Dir: dir}
	_ = c.Save(context.Background(), "https://d.com/", "text/html", "", "", []byte("x"))
	if err := ClearDir(dir); err != nil {
		t.Fatalf("clear: %v", err)
	}
	des, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(des) != 0 {
		t.Fatalf("expected empty dir, got %d entries", len(des))
	}
	if err := ClearDir("  "); err == nil {
		t.Fatalf("expected error for blank dir")
	}
}
