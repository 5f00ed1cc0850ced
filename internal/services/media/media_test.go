package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/picstash/media-service/internal/storage"
)

// fakeStore is an in-memory ObjectStore that preserves put order for
// listings and records the expiry passed to SignURL.
type fakeStore struct {
	mu         sync.Mutex
	keys       []string
	objects    map[string]fakeObject
	signExpiry time.Duration

	headErrKey string // key whose Head call fails
	signErrKey string // key whose SignURL call fails
}

type fakeObject struct {
	data         []byte
	metadata     map[string]string
	lastModified time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string]fakeObject)}
}

func (f *fakeStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string, metadata map[string]string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return &storage.WriteError{Key: key, Err: err}
	}
	if int64(len(data)) != size {
		return &storage.WriteError{Key: key, Err: fmt.Errorf("size mismatch: got %d, want %d", len(data), size)}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.objects[key]; !exists {
		f.keys = append(f.keys, key)
	}
	f.objects[key] = fakeObject{
		data:         data,
		metadata:     metadata,
		lastModified: time.Now(),
	}
	return nil
}

func (f *fakeStore) ListByPrefix(ctx context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for _, key := range f.keys {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (f *fakeStore) Head(ctx context.Context, key string) (storage.ObjectMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if key == f.headErrKey {
		return storage.ObjectMeta{}, &storage.ReadError{Key: key, Err: errors.New("head failed")}
	}
	obj, ok := f.objects[key]
	if !ok {
		return storage.ObjectMeta{}, &storage.ReadError{Key: key, Err: errors.New("not found")}
	}
	return storage.ObjectMeta{LastModified: obj.lastModified, Metadata: obj.metadata}, nil
}

func (f *fakeStore) SignURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if key == f.signErrKey {
		return "", &storage.ReadError{Key: key, Err: errors.New("sign failed")}
	}
	f.signExpiry = expiry
	return "https://store.example/" + key + "?signed=1", nil
}

type fakeSuggester struct {
	keywords []string
	err      error
}

func (f *fakeSuggester) Suggest(ctx context.Context, imagePath string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.keywords, nil
}

func writeTestImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image.png")
	if err := os.WriteFile(path, []byte("not really a png"), 0o600); err != nil {
		t.Fatalf("Failed to write test image: %v", err)
	}
	return path
}

func TestAddImageThenListByOwner(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeSuggester{})
	ctx := context.Background()

	imagePath := writeTestImage(t)
	mediaID, err := svc.AddImage(ctx, "u1", imagePath, ".png", []string{"cat", "outdoor", "sunny"})
	if err != nil {
		t.Fatalf("AddImage failed: %v", err)
	}
	if mediaID == "" {
		t.Fatal("Expected a non-empty media ID")
	}

	records, err := svc.GetImagesByOwner(ctx, "u1")
	if err != nil {
		t.Fatalf("GetImagesByOwner failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}

	record := records[0]
	if record.ID != "u1/"+mediaID+".png" {
		t.Fatalf("Unexpected record ID: %q", record.ID)
	}
	if record.AccessURL == "" {
		t.Fatal("Expected a non-empty access URL")
	}
	if record.LastModified.IsZero() {
		t.Fatal("Expected a last-modified timestamp")
	}
	wantTags := []string{"cat", "outdoor", "sunny"}
	if len(record.Tags) != len(wantTags) {
		t.Fatalf("Expected %d tags, got %d: %v", len(wantTags), len(record.Tags), record.Tags)
	}
	for i, tag := range wantTags {
		if record.Tags[i] != tag {
			t.Fatalf("Expected tag %q at slot %d, got %q", tag, i, record.Tags[i])
		}
	}
}

func TestAddImageTruncatesExtraTags(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeSuggester{})
	ctx := context.Background()

	imagePath := writeTestImage(t)
	_, err := svc.AddImage(ctx, "u1", imagePath, ".png", []string{"one", "two", "three", "four", "five"})
	if err != nil {
		t.Fatalf("AddImage failed: %v", err)
	}

	records, err := svc.GetImagesByOwner(ctx, "u1")
	if err != nil {
		t.Fatalf("GetImagesByOwner failed: %v", err)
	}
	if len(records[0].Tags) != 3 {
		t.Fatalf("Expected tags truncated to 3, got %d: %v", len(records[0].Tags), records[0].Tags)
	}
	for i, want := range []string{"one", "two", "three"} {
		if records[0].Tags[i] != want {
			t.Fatalf("Expected tag %q at slot %d, got %q", want, i, records[0].Tags[i])
		}
	}
}

func TestAddImageOmitsAbsentTagSlots(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeSuggester{})
	ctx := context.Background()

	imagePath := writeTestImage(t)
	_, err := svc.AddImage(ctx, "u1", imagePath, ".png", []string{"solo"})
	if err != nil {
		t.Fatalf("AddImage failed: %v", err)
	}

	obj := store.objects[store.keys[0]]
	if len(obj.metadata) != 1 {
		t.Fatalf("Expected 1 metadata entry, got %d: %v", len(obj.metadata), obj.metadata)
	}
	if obj.metadata["tag_zero"] != "solo" {
		t.Fatalf("Expected tag_zero=solo, got %v", obj.metadata)
	}
	if _, exists := obj.metadata["tag_one"]; exists {
		t.Fatal("Absent tags must be omitted, not null-filled")
	}
}

func TestAddImageUniqueMediaIDs(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeSuggester{})
	ctx := context.Background()

	imagePath := writeTestImage(t)
	seen := make(map[string]bool)
	for i := 0; i < 25; i++ {
		mediaID, err := svc.AddImage(ctx, "u1", imagePath, ".png", nil)
		if err != nil {
			t.Fatalf("AddImage failed on iteration %d: %v", i, err)
		}
		if seen[mediaID] {
			t.Fatalf("Duplicate media ID generated: %s", mediaID)
		}
		seen[mediaID] = true
	}
}

func TestAddImageStorageFailure(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeSuggester{})
	ctx := context.Background()

	// A missing source file fails before the store is touched.
	_, err := svc.AddImage(ctx, "u1", "/nonexistent/image.png", ".png", nil)
	if err == nil {
		t.Fatal("Expected an error for a missing source file")
	}
	if len(store.keys) != 0 {
		t.Fatal("Store must not be touched when the source file is missing")
	}
}

func TestGetImagesByOwnerEmpty(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeSuggester{})

	_, err := svc.GetImagesByOwner(context.Background(), "u2")
	if !errors.Is(err, ErrNoImagesFound) {
		t.Fatalf("Expected ErrNoImagesFound, got %v", err)
	}
}

func TestGetImagesByOwnerPreservesListingOrder(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeSuggester{})
	ctx := context.Background()

	imagePath := writeTestImage(t)
	var mediaIDs []string
	for i := 0; i < 5; i++ {
		mediaID, err := svc.AddImage(ctx, "u1", imagePath, ".png", nil)
		if err != nil {
			t.Fatalf("AddImage failed: %v", err)
		}
		mediaIDs = append(mediaIDs, mediaID)
	}

	records, err := svc.GetImagesByOwner(ctx, "u1")
	if err != nil {
		t.Fatalf("GetImagesByOwner failed: %v", err)
	}
	if len(records) != len(mediaIDs) {
		t.Fatalf("Expected %d records, got %d", len(mediaIDs), len(records))
	}
	for i, mediaID := range mediaIDs {
		want := "u1/" + mediaID + ".png"
		if records[i].ID != want {
			t.Fatalf("Record %d out of listing order: got %q, want %q", i, records[i].ID, want)
		}
	}
}

func TestGetImagesByOwnerAllOrNothing(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeSuggester{})
	ctx := context.Background()

	imagePath := writeTestImage(t)
	for i := 0; i < 3; i++ {
		if _, err := svc.AddImage(ctx, "u1", imagePath, ".png", nil); err != nil {
			t.Fatalf("AddImage failed: %v", err)
		}
	}

	// One failing metadata fetch poisons the whole listing.
	store.headErrKey = store.keys[1]

	_, err := svc.GetImagesByOwner(ctx, "u1")
	if err == nil {
		t.Fatal("Expected listing to fail when one resolution unit fails")
	}
	var readErr *storage.ReadError
	if !errors.As(err, &readErr) {
		t.Fatalf("Expected a storage read error, got %v", err)
	}

	// Same for a failing sign-URL call.
	store.headErrKey = ""
	store.signErrKey = store.keys[2]

	_, err = svc.GetImagesByOwner(ctx, "u1")
	if err == nil {
		t.Fatal("Expected listing to fail when one sign-URL call fails")
	}
}

func TestSignedURLExpiryIsFiveMinutes(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeSuggester{})
	ctx := context.Background()

	imagePath := writeTestImage(t)
	if _, err := svc.AddImage(ctx, "u1", imagePath, ".png", nil); err != nil {
		t.Fatalf("AddImage failed: %v", err)
	}
	if _, err := svc.GetImagesByOwner(ctx, "u1"); err != nil {
		t.Fatalf("GetImagesByOwner failed: %v", err)
	}

	if store.signExpiry != 300*time.Second {
		t.Fatalf("Expected a 300s signing expiry, got %s", store.signExpiry)
	}
}

func TestGetImagesByTag(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeSuggester{})
	ctx := context.Background()

	imagePath := writeTestImage(t)
	catID, err := svc.AddImage(ctx, "u1", imagePath, ".png", []string{"cat", "outdoor", "sunny"})
	if err != nil {
		t.Fatalf("AddImage failed: %v", err)
	}
	if _, err := svc.AddImage(ctx, "u1", imagePath, ".png", []string{"boat"}); err != nil {
		t.Fatalf("AddImage failed: %v", err)
	}

	records, err := svc.GetImagesByTag(ctx, "u1", "cat")
	if err != nil {
		t.Fatalf("GetImagesByTag failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 matching record, got %d", len(records))
	}
	if records[0].ID != "u1/"+catID+".png" {
		t.Fatalf("Unexpected matching record: %q", records[0].ID)
	}

	// Matching is case-sensitive and exact
	if _, err := svc.GetImagesByTag(ctx, "u1", "Cat"); !errors.Is(err, ErrNoMatchingTag) {
		t.Fatalf("Expected ErrNoMatchingTag for case mismatch, got %v", err)
	}
	if _, err := svc.GetImagesByTag(ctx, "u1", "dog"); !errors.Is(err, ErrNoMatchingTag) {
		t.Fatalf("Expected ErrNoMatchingTag, got %v", err)
	}

	// An owner with no images at all surfaces the underlying not-found
	if _, err := svc.GetImagesByTag(ctx, "u2", "cat"); !errors.Is(err, ErrNoImagesFound) {
		t.Fatalf("Expected ErrNoImagesFound, got %v", err)
	}
}

func TestSuggestTagsPassesThrough(t *testing.T) {
	store := newFakeStore()

	svc := NewService(store, &fakeSuggester{keywords: []string{"cat", "animal", "pet"}})
	keywords, err := svc.SuggestTags(context.Background(), "/tmp/image.png")
	if err != nil {
		t.Fatalf("SuggestTags failed: %v", err)
	}
	if len(keywords) != 3 || keywords[0] != "cat" {
		t.Fatalf("Unexpected keywords: %v", keywords)
	}

	wantErr := errors.New("service unavailable")
	svc = NewService(store, &fakeSuggester{err: wantErr})
	_, err = svc.SuggestTags(context.Background(), "/tmp/image.png")
	if !errors.Is(err, wantErr) {
		t.Fatalf("Expected the suggester error verbatim, got %v", err)
	}
}
