package store

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestMemoryStoreGetPut(t *testing.T) {
	ctx := context.Background()
	seed := map[string][]byte{"foo.com": []byte(`{"redirects":[]}`)}
	ms := NewMemoryStore(seed)

	seed["foo.com"][0] = 'X'

	got, err := ms.Get(ctx, "foo.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != `{"redirects":[]}` {
		t.Fatalf("seed was not copied, got %q", got)
	}

	if _, err := ms.Get(ctx, "bar.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := ms.Put(ctx, "bar.com", []byte(`{}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ms.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", ms.Len())
	}

	if err := ms.Delete(ctx, "bar.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ms.Get(ctx, "bar.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryStoreCanceledContext(t *testing.T) {
	ms := NewMemoryStore(map[string][]byte{"foo.com": []byte(`{}`)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ms.Get(ctx, "foo.com")
	var storeErr *Error
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected wrapped context.Canceled, got %v", err)
	}
}

func TestMemoryStoreKeys(t *testing.T) {
	ms := NewMemoryStore(map[string][]byte{
		"foo.com":     []byte(`{}`),
		"eu.foo.com":  []byte(`{}`),
		"bar.com":     []byte(`{}`),
		"wiley.co.uk": []byte(`{}`),
	})

	tests := []struct {
		pattern string
		want    []string
	}{
		{"*", []string{"bar.com", "eu.foo.com", "foo.com", "wiley.co.uk"}},
		{"*foo.com", []string{"eu.foo.com", "foo.com"}},
		{"*.co.uk", []string{"wiley.co.uk"}},
		{"nothing*", []string{}},
	}

	for _, tt := range tests {
		got, err := ms.Keys(context.Background(), tt.pattern)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("pattern %q: expected %v, got %v", tt.pattern, tt.want, got)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Op: "get", Backend: "redis", Key: "foo.com", Err: errors.New("timeout")}
	if got := err.Error(); got != "redis get foo.com failed: timeout" {
		t.Fatalf("unexpected message %q", got)
	}

	err = &Error{Op: "ping", Backend: "postgres", Err: errors.New("refused")}
	if got := err.Error(); got != "postgres ping failed: refused" {
		t.Fatalf("unexpected message %q", got)
	}
}
