package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSummaryCache_SaveGet(t *testing.T) {
	c := &SummaryCache{Dir: t.TempDir()}
	key := Key("gpt-4", "Summarize.", 500, "article text")
	if _, ok, err := c.Get(context.Background(), key); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := c.Save(context.Background(), key, "gpt-4", "short"); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := c.Get(context.Background(), key)
	if err != nil || !ok || got != "short" {
		t.Fatalf("get = %q ok=%v err=%v", got, ok, err)
	}
}

func TestKey_DependsOnEveryInput(t *testing.T) {
	base := Key("m", "p", 1, "t")
	for _, k := range []string{Key("m2", "p", 1, "t"), Key("m", "p2", 1, "t"), Key("m", "p", 2, "t"), Key("m", "p", 1, "t2"), Key("mp", "", 1, "t")} {
		if k == base {
			t.Fatalf("key collision with %q", base)
		}
	}
	if Key("m", "p", 1, "t") != base {
		t.Fatalf("key must be deterministic")
	}
}

func TestSummaryCache_MaxAge(t *testing.T) {
	dir := t.TempDir()
	c := &SummaryCache{Dir: dir}
	key := Key("m", "p", 1, "t")
	if err := c.Save(context.Background(), key, "m", "old"); err != nil {
		t.Fatal(err)
	}
	old := `{"model":"m","summary":"old","saved_at":"2000-01-01T00:00:00Z"}`
	if err := os.WriteFile(filepath.Join(dir, key+".json"), []byte(old), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get(context.Background(), key); !ok {
		t.Fatalf("without MaxAge the entry should hit")
	}
	c.MaxAge = time.Hour
	if _, ok, _ := c.Get(context.Background(), key); ok {
		t.Fatalf("expired entry should miss")
	}
}

func TestSummaryCache_CorruptEntryMisses(t *testing.T) {
	dir := t.TempDir()
	c := &SummaryCache{Dir: dir}
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := c.Get(context.Background(), "bad"); ok || err != nil {
		t.Fatalf("corrupt entry should be a quiet miss, ok=%v err=%v", ok, err)
	}
}

func TestSummaryCache_StrictPerms(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "summaries")
	c := &SummaryCache{Dir: dir, StrictPerms: true}
	key := Key("m", "p", 1, "t")
	if err := c.Save(context.Background(), key, "m", "s"); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got := info.Mode().Perm(); got != 0o700 {
		t.Fatalf("dir mode = %o, want 0700", got)
	}
	finfo, err := os.Stat(filepath.Join(dir, key+".json"))
	if err != nil {
		t.Fatal(err)
	}
	if got := finfo.Mode().Perm(); got != 0o600 {
		t.Fatalf("file mode = %o, want 0600", got)
	}
}

func TestSummaryCache_Unconfigured(t *testing.T) {
	var c *SummaryCache
	if _, _, err := c.Get(context.Background(), "k"); err == nil {
		t.Fatalf("nil cache should report an error")
	}
}

func TestPurgeByAge(t *testing.T) {
	dir := t.TempDir()
	c := &SummaryCache{Dir: dir}
	oldKey, newKey := Key("m", "p", 1, "old"), Key("m", "p", 1, "new")
	for _, k := range []string{oldKey, newKey} {
		if err := c.Save(context.Background(), k, "m", "s"); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(filepath.Join(dir, oldKey+".json"), past, past); err != nil {
		t.Fatal(err)
	}
	n, err := PurgeByAge(dir, 24*time.Hour)
	if err != nil || n != 1 {
		t.Fatalf("purge removed %d err=%v, want 1", n, err)
	}
	if _, ok, _ := c.Get(context.Background(), newKey); !ok {
		t.Fatalf("fresh entry must survive")
	}
	if n, err := PurgeByAge(filepath.Join(dir, "absent"), time.Hour); n != 0 || err != nil {
		t.Fatalf("absent dir: %d %v", n, err)
	}
}
