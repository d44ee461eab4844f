package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Error("NullCache.Get should always return miss")
	}
	if data != nil {
		t.Error("NullCache.Get should return nil data")
	}

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}

	if _, hit, _ = c.Get(ctx, "key"); hit {
		t.Error("NullCache should not store data")
	}

	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	if _, hit, err := c.Get(ctx, "npm:lodash"); hit || err != nil {
		t.Fatalf("Get on empty cache = %v, %v; want miss", hit, err)
	}

	if err := c.Set(ctx, "npm:lodash", []byte(`{"name":"lodash"}`), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "npm:lodash")
	if err != nil || !hit {
		t.Fatalf("Get = %v, %v; want hit", hit, err)
	}
	if string(data) != `{"name":"lodash"}` {
		t.Errorf("data = %s", data)
	}

	if err := c.Delete(ctx, "npm:lodash"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "npm:lodash"); hit {
		t.Error("entry still present after Delete")
	}
	if err := c.Delete(ctx, "npm:lodash"); err != nil {
		t.Errorf("Delete of missing key should be nil, got %v", err)
	}
}

func TestFileCache_Expiration(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	if err := c.Set(ctx, "key", []byte("value"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "key"); !hit {
		t.Fatal("fresh entry should hit")
	}

	time.Sleep(20 * time.Millisecond)

	if _, hit, err := c.Get(ctx, "key"); hit || err != nil {
		t.Errorf("expired entry = %v, %v; want miss", hit, err)
	}
}

func TestFileCache_CorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	path := c.path("key")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, hit, err := c.Get(ctx, "key"); hit || err != nil {
		t.Errorf("corrupt entry = %v, %v; want miss", hit, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("corrupt entry should be removed")
	}
}

func TestFileCache_Clear(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatal(err)
		}
	}

	n, err := c.Clear()
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 3 {
		t.Errorf("Clear removed %d entries, want 3", n)
	}
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("entry survived Clear")
	}
}

func TestDefaultDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")
	dir, err := DefaultDir("stackgate")
	if err != nil {
		t.Fatal(err)
	}
	if dir != filepath.Join("/tmp/xdg", "stackgate") {
		t.Errorf("DefaultDir = %s", dir)
	}
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	buf := []byte("v1")
	if err := c.Set(ctx, "k", buf, 0); err != nil {
		t.Fatal(err)
	}
	buf[0] = 'x'

	data, hit, _ := c.Get(ctx, "k")
	if !hit || string(data) != "v1" {
		t.Errorf("Get = %q, %v; want stored copy v1", data, hit)
	}

	if err := c.Set(ctx, "short", []byte("v"), time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "short"); hit {
		t.Error("expired memory entry should miss")
	}

	_ = c.Delete(ctx, "k")
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
}

func TestPrefixed(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryCache()

	npm := Prefixed(inner, "npm:")
	mirror := Prefixed(inner, "mirror:")

	_ = npm.Set(ctx, "lodash", []byte("public"), 0)
	_ = mirror.Set(ctx, "lodash", []byte("private"), 0)

	got, _, _ := npm.Get(ctx, "lodash")
	if string(got) != "public" {
		t.Errorf("npm view = %q", got)
	}
	got, _, _ = inner.Get(ctx, "mirror:lodash")
	if string(got) != "private" {
		t.Errorf("inner key mirror:lodash = %q", got)
	}

	chained := Prefixed(npm, "v2:")
	_ = chained.Set(ctx, "x", []byte("1"), 0)
	if _, hit, _ := inner.Get(ctx, "npm:v2:x"); !hit {
		t.Error("chained prefixes should concatenate")
	}

	if err := npm.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestFileCache_ShardedPath(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	p := c.path("registry:npm:express")
	if p != c.path("registry:npm:express") {
		t.Error("path should be deterministic")
	}
	if p == c.path("registry:npm:lodash") {
		t.Error("different keys should map to different files")
	}
	if got := filepath.Base(p); len(got) != 62+len(".json") {
		t.Errorf("file name %q, want 62 hex chars plus .json", got)
	}
	if shard := filepath.Base(filepath.Dir(p)); len(shard) != 2 {
		t.Errorf("shard dir %q, want 2 chars", shard)
	}
}
