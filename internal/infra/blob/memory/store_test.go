package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"definecore/internal/blob/core"
)

func TestStoreMissingKeys(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.Head(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found from head, got %v", err)
	}
	if _, _, err := store.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found from get, got %v", err)
	}
	if ok, err := store.Delete(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected delete false")
	}
}

func TestStorePutReplacesAndLists(t *testing.T) {
	store := New()
	ctx := context.Background()
	first, err := store.Put(ctx, "ct/sdtm.json", bytes.NewReader([]byte("v1")), core.PutOptions{Metadata: map[string]string{"version": "1"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	second, err := store.Put(ctx, "ct/sdtm.json", bytes.NewReader([]byte("v2")), core.PutOptions{})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if first.ETag == second.ETag {
		t.Fatalf("expected etag to change on replace")
	}
	_, rc, err := store.Get(ctx, "ct/sdtm.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "v2" {
		t.Fatalf("expected replaced content, got %q", body)
	}
	if _, err := store.Put(ctx, "batches/a.yaml", bytes.NewReader(nil), core.PutOptions{}); err != nil {
		t.Fatalf("put batch: %v", err)
	}
	if list, err := store.List(ctx, ""); err != nil || len(list) != 2 {
		t.Fatalf("list all: %v %d", err, len(list))
	}
	if list, err := store.List(ctx, "ct/"); err != nil || len(list) != 1 || list[0].Key != "ct/sdtm.json" {
		t.Fatalf("list prefix: %v %+v", err, list)
	}
}

func TestStoreMetadataIsCopied(t *testing.T) {
	store := New()
	ctx := context.Background()
	meta := map[string]string{"a": "1"}
	if _, err := store.Put(ctx, "k", bytes.NewReader([]byte("v")), core.PutOptions{Metadata: meta}); err != nil {
		t.Fatalf("put: %v", err)
	}
	meta["a"] = "2"
	info, err := store.Head(ctx, "k")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if info.Metadata["a"] != "1" {
		t.Fatalf("metadata aliased caller map")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, fmt.Errorf("fail") }

func TestStorePutReadErrorAndDriver(t *testing.T) {
	store := New()
	if store.Driver() != core.DriverMemory {
		t.Fatalf("expected memory driver")
	}
	if _, err := store.Put(context.Background(), "bad", failingReader{}, core.PutOptions{}); err == nil {
		t.Fatalf("expected read error")
	}
	if _, err := store.Put(context.Background(), " ", bytes.NewReader(nil), core.PutOptions{}); err == nil {
		t.Fatalf("expected empty key error")
	}
}
