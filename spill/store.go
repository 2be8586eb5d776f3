package spill

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/informationgrid/ingrid-search-utils/blobstore"
	"github.com/informationgrid/ingrid-search-utils/codec"
	"github.com/informationgrid/ingrid-search-utils/internal/resource"
	"github.com/informationgrid/ingrid-search-utils/model"
)

// ErrNotFound is returned by Load when no class was spilled under the name.
var ErrNotFound = errors.New("spill: class not found")

// Options configures a Store.
type Options struct {
	// Compression applied to the bitmap payload.
	Compression Compression
	// Codec encodes the frame header. Defaults to codec.Default.
	Codec codec.Codec
	// Resources rate limits spill IO. Nil means unlimited.
	Resources *resource.Controller
	// Logger receives spill diagnostics. Nil discards them.
	Logger *slog.Logger
}

// DefaultOptions are the options used by New.
var DefaultOptions = Options{
	Compression: CompressionLZ4,
	Codec:       codec.Default,
}

// Store saves and restores facet classes on a blob store.
type Store struct {
	blobs blobstore.BlobStore
	opts  Options
}

// New creates a Store on top of blobs.
func New(blobs blobstore.BlobStore, optFns ...func(o *Options)) *Store {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Store{blobs: blobs, opts: opts}
}

// Compression returns the configured payload compression.
func (s *Store) Compression() Compression { return s.opts.Compression }

func blobName(generation uint64, name string) string {
	return generationPrefix(generation) + base64.RawURLEncoding.EncodeToString([]byte(name))
}

func generationPrefix(generation uint64) string {
	return strconv.FormatUint(generation, 10) + "/"
}

// Save writes class under generation, replacing a previous blob of the same name.
func (s *Store) Save(ctx context.Context, generation uint64, class *model.FacetClass) error {
	var buf bytes.Buffer
	w := resource.NewRateLimitedWriter(ctx, &buf, s.opts.Resources)
	if err := encodeFrame(w, class, s.opts.Compression, s.opts.Codec); err != nil {
		return fmt.Errorf("spill: save %s: %w", class.Name(), err)
	}
	if err := s.blobs.Put(ctx, blobName(generation, class.Name()), buf.Bytes()); err != nil {
		return fmt.Errorf("spill: save %s: %w", class.Name(), err)
	}
	s.opts.Logger.Debug("class spilled",
		"class", class.Name(),
		"generation", generation,
		"bytes", buf.Len(),
		"compression", s.opts.Compression.String(),
	)
	return nil
}

// Load restores the class spilled as name under generation.
func (s *Store) Load(ctx context.Context, generation uint64, name string) (*model.FacetClass, error) {
	blob, err := s.blobs.Open(ctx, blobName(generation, name))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("spill: load %s: %w", name, err)
	}
	defer blob.Close()

	if err := s.opts.Resources.AcquireIO(ctx, int(blob.Size())); err != nil {
		return nil, err
	}
	data := make([]byte, blob.Size())
	n, err := blob.ReadAt(ctx, data, 0)
	if err != nil && !(errors.Is(err, io.EOF) && n == len(data)) {
		return nil, fmt.Errorf("spill: load %s: %w", name, err)
	}

	class, err := decodeFrame(data[:n])
	if err != nil {
		return nil, fmt.Errorf("spill: load %s: %w", name, err)
	}
	if class.Name() != name {
		return nil, fmt.Errorf("spill: load %s: %w: frame holds %q", name, ErrCorrupt, class.Name())
	}
	return class, nil
}

// Remove deletes a single spilled class.
func (s *Store) Remove(ctx context.Context, generation uint64, name string) error {
	return s.blobs.Delete(ctx, blobName(generation, name))
}

// Purge deletes every spilled class of every generation and returns how many
// blobs were removed.
func (s *Store) Purge(ctx context.Context) (int, error) {
	n, err := blobstore.DeletePrefix(ctx, s.blobs, "")
	if err != nil {
		return n, fmt.Errorf("spill: purge: %w", err)
	}
	if n > 0 {
		s.opts.Logger.Info("spill purged", "blobs", n)
	}
	return n, nil
}

// PurgeGeneration deletes the classes spilled under generation.
func (s *Store) PurgeGeneration(ctx context.Context, generation uint64) (int, error) {
	return blobstore.DeletePrefix(ctx, s.blobs, generationPrefix(generation))
}
