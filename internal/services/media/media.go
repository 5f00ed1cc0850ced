package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/picstash/media-service/internal/storage"
	"github.com/picstash/media-service/internal/types"
	"golang.org/x/sync/errgroup"
)

const (
	// signedURLTTL is the validity window of every access URL. Records hand
	// out fresh URLs on each listing, so this is a data-level expiry rather
	// than configuration.
	signedURLTTL = 5 * time.Minute

	// maxTags is the number of tag slots in the object metadata schema.
	maxTags = 3

	// resolveConcurrency caps in-flight head/sign-URL calls during listing,
	// sized to what one storage client connection pool comfortably carries.
	resolveConcurrency = 8
)

// tagMetaKeys is the on-disk tag slot schema. Existing stored objects depend
// on these exact keys, so they must never change.
var tagMetaKeys = [maxTags]string{"tag_zero", "tag_one", "tag_two"}

var (
	// ErrNoImagesFound means the owner has no stored images at all.
	ErrNoImagesFound = errors.New("no images found")

	// ErrNoMatchingTag means the owner has images but none carry the tag.
	ErrNoMatchingTag = errors.New("no images match the given tag")
)

// Suggester is the external keyword service boundary.
type Suggester interface {
	Suggest(ctx context.Context, imagePath string) ([]string, error)
}

// Service owns the media key convention, the per-object tag metadata schema,
// and the listing/resolution pipeline over the object store.
type Service struct {
	store     storage.ObjectStore
	suggester Suggester
}

// NewService creates a media service on top of the given object store and
// tag suggestion client.
func NewService(store storage.ObjectStore, suggester Suggester) *Service {
	return &Service{
		store:     store,
		suggester: suggester,
	}
}

// AddImage streams the file at sourcePath into the object store under a
// freshly minted media ID, attaching up to the first three tags as object
// metadata. Extra tags are dropped, not rejected. Returns the media ID.
func (s *Service) AddImage(ctx context.Context, ownerID, sourcePath, fileExt string, tags []string) (string, error) {
	f, err := os.Open(sourcePath)
	if err != nil {
		return "", fmt.Errorf("open source image: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat source image: %w", err)
	}

	mediaID := uuid.New().String()
	key := ownerID + "/" + mediaID + fileExt

	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}
	metadata := make(map[string]string, len(tags))
	for i, tag := range tags {
		metadata[tagMetaKeys[i]] = tag
	}

	if err := s.store.Put(ctx, key, f, stat.Size(), "", metadata); err != nil {
		return "", err
	}

	return mediaID, nil
}

// resolved holds one key's metadata fetch and signed URL, filled in by two
// independent goroutines before the record is assembled.
type resolved struct {
	meta storage.ObjectMeta
	url  string
}

// GetImagesByOwner lists every image stored under the owner's prefix and
// resolves each key's metadata and access URL concurrently. Aggregation is
// all-or-nothing: a single failed resolution fails the whole call and
// cancels the in-flight remainder. Output order follows the storage listing.
func (s *Service) GetImagesByOwner(ctx context.Context, ownerID string) ([]types.MediaRecord, error) {
	keys, err := s.store.ListByPrefix(ctx, ownerID+"/")
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, ErrNoImagesFound
	}

	results := make([]resolved, len(keys))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveConcurrency)
	for i, key := range keys {
		// The two calls of a resolution unit are independent reads against
		// the same object; neither waits for the other.
		g.Go(func() error {
			meta, err := s.store.Head(ctx, key)
			if err != nil {
				return err
			}
			results[i].meta = meta
			return nil
		})
		g.Go(func() error {
			url, err := s.store.SignURL(ctx, key, signedURLTTL)
			if err != nil {
				return err
			}
			results[i].url = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := make([]types.MediaRecord, len(keys))
	for i, key := range keys {
		records[i] = types.MediaRecord{
			ID:           key,
			LastModified: results[i].meta.LastModified,
			Tags:         tagsFromMetadata(results[i].meta.Metadata),
			AccessURL:    results[i].url,
		}
	}

	return records, nil
}

// GetImagesByTag returns the owner's images whose tags contain an exact,
// case-sensitive match of tag. An owner with images but no match fails with
// ErrNoMatchingTag; an owner with no images at all surfaces the underlying
// ErrNoImagesFound.
func (s *Service) GetImagesByTag(ctx context.Context, ownerID, tag string) ([]types.MediaRecord, error) {
	records, err := s.GetImagesByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	var matched []types.MediaRecord
	for _, record := range records {
		if slices.Contains(record.Tags, tag) {
			matched = append(matched, record)
		}
	}
	if len(matched) == 0 {
		return nil, ErrNoMatchingTag
	}

	return matched, nil
}

// SuggestTags asks the external keyword service for descriptive tags for the
// image at path. Failures are passed through verbatim; no fallback or retry.
func (s *Service) SuggestTags(ctx context.Context, path string) ([]string, error) {
	return s.suggester.Suggest(ctx, path)
}

// tagsFromMetadata extracts the tag slots in schema order. Absent slots were
// omitted at upload time and stay omitted here.
func tagsFromMetadata(metadata map[string]string) []string {
	var tags []string
	for _, key := range tagMetaKeys {
		if tag, ok := metadata[key]; ok && tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
