package fs

import (
	"context"
	"io"
	"strings"
	"testing"

	"metrocore/internal/blob/core"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestPutGetHeadRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	info, err := store.Put(ctx, "evidence/s1/manifest.pdf", strings.NewReader("pdf-bytes"), core.PutOptions{
		ContentType: "application/pdf",
		Metadata:    map[string]string{"actor": "tech.silva"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len("pdf-bytes")) || info.ETag == "" {
		t.Fatalf("unexpected info: %+v", info)
	}

	got, rc, err := store.Get(ctx, "evidence/s1/manifest.pdf")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "pdf-bytes" {
		t.Fatalf("body = %q", body)
	}
	if got.ContentType != "application/pdf" || got.Metadata["actor"] != "tech.silva" {
		t.Fatalf("metadata lost: %+v", got)
	}

	head, err := store.Head(ctx, "evidence/s1/manifest.pdf")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.ETag != info.ETag {
		t.Fatalf("etag mismatch: %q vs %q", head.ETag, info.ETag)
	}
}

func TestPutIsCreateOnly(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	if _, err := store.Put(ctx, "k", strings.NewReader("a"), core.PutOptions{}); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if _, err := store.Put(ctx, "k", strings.NewReader("b"), core.PutOptions{}); err == nil {
		t.Fatalf("expected create-only semantics")
	}
}

func TestKeySanitization(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	for _, key := range []string{"", "  ", "../escape", "/abs", "a/../../b"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err == nil {
			t.Fatalf("key %q must be rejected", key)
		}
	}
}

func TestDeleteAndList(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	for _, key := range []string{"evidence/s1/a", "evidence/s1/b", "evidence/s2/c"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	infos, err := store.List(ctx, "evidence/s1/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "evidence/s1/a" {
		t.Fatalf("list mismatch: %+v", infos)
	}

	ok, err := store.Delete(ctx, "evidence/s1/a")
	if err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	ok, err = store.Delete(ctx, "evidence/s1/a")
	if err != nil || ok {
		t.Fatalf("second delete must be (false, nil), got ok=%v err=%v", ok, err)
	}
}

func TestPresignURL(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	url, err := store.PresignURL(ctx, "some/key", core.SignedURLOptions{})
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if !strings.Contains(url, "some/key") {
		t.Fatalf("url = %q", url)
	}
	if _, err := store.PresignURL(ctx, "some/key", core.SignedURLOptions{Method: "PUT"}); err != core.ErrUnsupported {
		t.Fatalf("expected ErrUnsupported for PUT, got %v", err)
	}
}
