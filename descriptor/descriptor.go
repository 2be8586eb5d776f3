package descriptor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/informationgrid/ingrid-search-utils/codec"
)

// ErrNotConfigured is returned by a Wrapper before its first Configure.
var ErrNotConfigured = errors.New("descriptor: not configured")

// Source supplies the known partner and provider identifiers.
type Source interface {
	Partners(ctx context.Context) ([]string, error)
	Providers(ctx context.Context) ([]string, error)
}

// Descriptor is a fixed list of partners and providers. It is itself a Source.
type Descriptor struct {
	PartnerIDs  []string `json:"partners"`
	ProviderIDs []string `json:"providers"`
}

var _ Source = (*Descriptor)(nil)

// Static returns a Source over fixed identifiers.
func Static(partners, providers []string) *Descriptor {
	return &Descriptor{
		PartnerIDs:  slices.Clone(partners),
		ProviderIDs: slices.Clone(providers),
	}
}

// Partners returns the partner identifiers.
func (d *Descriptor) Partners(context.Context) ([]string, error) { return d.PartnerIDs, nil }

// Providers returns the provider identifiers.
func (d *Descriptor) Providers(context.Context) ([]string, error) { return d.ProviderIDs, nil }

// HasPartner reports whether id is one of the partners.
func (d *Descriptor) HasPartner(id string) bool { return slices.Contains(d.PartnerIDs, id) }

// Decode parses a descriptor document such as
//
//	{"partners": ["bund", "ni"], "providers": ["ni_lfu"]}
//
// A nil codec means codec.Default.
func Decode(data []byte, c codec.Codec) (*Descriptor, error) {
	if c == nil {
		c = codec.Default
	}
	var d Descriptor
	if err := c.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("descriptor: decode: %w", err)
	}
	return &d, nil
}

// Wrapper is a Source whose descriptor can be replaced while serving, for
// example when the hosting iPlug is reconfigured.
type Wrapper struct {
	current atomic.Pointer[Descriptor]
	logger  *slog.Logger
}

var _ Source = (*Wrapper)(nil)

// NewWrapper returns a Wrapper, optionally configured with d.
func NewWrapper(d *Descriptor, logger *slog.Logger) *Wrapper {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	w := &Wrapper{logger: logger}
	if d != nil {
		w.current.Store(d)
	}
	return w
}

// Configure replaces the wrapped descriptor.
func (w *Wrapper) Configure(d *Descriptor) {
	w.current.Store(d)
	w.logger.Info("descriptor configured", "partners", len(d.PartnerIDs), "providers", len(d.ProviderIDs))
}

// ConfigureFrom decodes data with c and configures the result.
func (w *Wrapper) ConfigureFrom(data []byte, c codec.Codec) error {
	d, err := Decode(data, c)
	if err != nil {
		return err
	}
	w.Configure(d)
	return nil
}

// Descriptor returns the wrapped descriptor or nil.
func (w *Wrapper) Descriptor() *Descriptor { return w.current.Load() }

// Partners returns the partners of the current descriptor.
func (w *Wrapper) Partners(ctx context.Context) ([]string, error) {
	d := w.current.Load()
	if d == nil {
		return nil, ErrNotConfigured
	}
	return d.Partners(ctx)
}

// Providers returns the providers of the current descriptor.
func (w *Wrapper) Providers(ctx context.Context) ([]string, error) {
	d := w.current.Load()
	if d == nil {
		return nil, ErrNotConfigured
	}
	return d.Providers(ctx)
}
