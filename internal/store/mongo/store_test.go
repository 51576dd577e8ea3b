package mongo

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/restmach/restmach/internal/store"
)

// newTestStore connects to the MongoDB instance named by
// RESTMACH_TEST_MONGO_URI, skipping the test when none is configured.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	uri := os.Getenv("RESTMACH_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("RESTMACH_TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := New(ctx, uri, "restmach_test")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		s.coll.Drop(context.Background())
		s.Close()
	})

	return s
}

func TestMongoStore_PutGet(t *testing.T) {
	s := newTestStore(t)

	doc := &store.Document{
		ID:          "note-1",
		ContentType: "application/json",
		Body:        []byte(`{"title":"first"}`),
	}

	created, err := s.Put(context.Background(), doc)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if !created {
		t.Error("Put() created = false, want true for new document")
	}

	retrieved, err := s.Get(context.Background(), "note-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if retrieved.ContentType != doc.ContentType {
		t.Errorf("ContentType = %v, want %v", retrieved.ContentType, doc.ContentType)
	}
	if !bytes.Equal(retrieved.Body, doc.Body) {
		t.Errorf("Body = %s, want %s", retrieved.Body, doc.Body)
	}
	if retrieved.ETag != doc.ETag {
		t.Errorf("ETag = %v, want %v", retrieved.ETag, doc.ETag)
	}
}

func TestMongoStore_PutReplace(t *testing.T) {
	s := newTestStore(t)

	doc := &store.Document{ID: "note-1", ContentType: "text/plain", Body: []byte("one")}
	if _, err := s.Put(context.Background(), doc); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	doc.Body = []byte("two")
	created, err := s.Put(context.Background(), doc)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if created {
		t.Error("Put() created = true, want false for replaced document")
	}

	retrieved, err := s.Get(context.Background(), "note-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(retrieved.Body) != "two" {
		t.Errorf("Body = %s, want two", retrieved.Body)
	}
}

func TestMongoStore_Delete(t *testing.T) {
	s := newTestStore(t)

	doc := &store.Document{ID: "note-1", Body: []byte("x")}
	if _, err := s.Put(context.Background(), doc); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if err := s.Delete(context.Background(), "note-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(context.Background(), "note-1"); err != store.ErrNotFound {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if err := s.Delete(context.Background(), "note-1"); err != store.ErrNotFound {
		t.Errorf("Delete() repeated error = %v, want ErrNotFound", err)
	}
}
