package oracle

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrUnauthorized is returned by Register when the caller fails the
// authorization check.
var ErrUnauthorized = errors.New("oracle: caller not authorized to register price sources")

// Descriptor binds an asset to its price source and records the asset's own
// decimal precision. SourceName is the durable half of the binding: live
// Source handles cannot be persisted, so on restart the name is resolved back
// to a Source (see Restore).
type Descriptor struct {
	Source         Source
	SourceName     string
	NativeDecimals uint32
}

// DescriptorRecord is the persistable form of a registry entry.
type DescriptorRecord struct {
	Asset          string
	SourceName     string
	NativeDecimals uint32
}

// Authorizer decides whether a caller may mutate the registry. Role
// management lives elsewhere; the registry only asks the yes/no question.
type Authorizer interface {
	IsAuthorized(caller string) bool
}

// AllowList is an Authorizer backed by a fixed set of caller identities.
type AllowList map[string]struct{}

func NewAllowList(callers ...string) AllowList {
	al := make(AllowList, len(callers))
	for _, c := range callers {
		al[c] = struct{}{}
	}
	return al
}

func (al AllowList) IsAuthorized(caller string) bool {
	_, ok := al[caller]
	return ok
}

// SourceUpdated is emitted after a descriptor is registered or overwritten.
type SourceUpdated struct {
	EventID        string
	Asset          string
	SourceName     string
	NativeDecimals uint32
	Caller         string
	At             time.Time
}

// UpdateListener is notified after a successful Register.
type UpdateListener interface {
	OnSourceUpdated(SourceUpdated)
}

// Persister stores descriptor records durably. Registration succeeds only if
// the record is persisted; the in-memory map is updated second so a persist
// failure leaves the registry unchanged.
type Persister interface {
	SaveDescriptor(DescriptorRecord) error
}

// Registry maps asset identifiers to price source descriptors. Writes are
// gated by the Authorizer; reads never fail (absence is reported comma-ok,
// since "not onboarded" is meaningful and distinct from any zero descriptor).
type Registry struct {
	mu       sync.RWMutex
	auth     Authorizer
	descs    map[string]Descriptor
	persist  Persister
	listener UpdateListener
	clock    func() time.Time
}

func NewRegistry(auth Authorizer) *Registry {
	return &Registry{
		auth:  auth,
		descs: make(map[string]Descriptor),
		clock: time.Now,
	}
}

// SetPersister attaches a durable backing for descriptor records.
func (r *Registry) SetPersister(p Persister) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.persist = p
}

// SetUpdateListener attaches a listener for source-updated notifications.
func (r *Registry) SetUpdateListener(l UpdateListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listener = l
}

// WithClock overrides the registry clock for deterministic tests.
func (r *Registry) WithClock(clock func() time.Time) {
	if clock == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clock = clock
}

// Register binds asset to desc, overwriting any existing descriptor. Only
// authorized callers may register; beyond that the descriptor is taken on
// trust, with no reachability or sanity probing of the source.
func (r *Registry) Register(caller, asset string, desc Descriptor) error {
	r.mu.Lock()

	if r.auth == nil || !r.auth.IsAuthorized(caller) {
		r.mu.Unlock()
		return fmt.Errorf("register %q by %q: %w", asset, caller, ErrUnauthorized)
	}

	if r.persist != nil {
		rec := DescriptorRecord{Asset: asset, SourceName: desc.SourceName, NativeDecimals: desc.NativeDecimals}
		if err := r.persist.SaveDescriptor(rec); err != nil {
			r.mu.Unlock()
			return fmt.Errorf("persist descriptor for %q: %w", asset, err)
		}
	}

	r.descs[asset] = desc

	listener := r.listener
	ev := SourceUpdated{
		EventID:        uuid.NewString(),
		Asset:          asset,
		SourceName:     desc.SourceName,
		NativeDecimals: desc.NativeDecimals,
		Caller:         caller,
		At:             r.clock(),
	}
	r.mu.Unlock()

	// Notify outside the lock so a listener can read the registry back.
	if listener != nil {
		listener.OnSourceUpdated(ev)
	}
	return nil
}

// Lookup returns the descriptor for asset. The second return is false when
// the asset has never been onboarded.
func (r *Registry) Lookup(asset string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descs[asset]
	return d, ok
}

// Assets returns the identifiers of every onboarded asset.
func (r *Registry) Assets() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.descs))
	for asset := range r.descs {
		out = append(out, asset)
	}
	return out
}

// Restore rebuilds the registry from persisted records, resolving each
// source name back to a live Source. It bypasses the authorization gate:
// the records were gated when they were first written.
func (r *Registry) Restore(recs []DescriptorRecord, resolve func(name string) (Source, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range recs {
		src, err := resolve(rec.SourceName)
		if err != nil {
			return fmt.Errorf("restore %q: resolve source %q: %w", rec.Asset, rec.SourceName, err)
		}
		r.descs[rec.Asset] = Descriptor{
			Source:         src,
			SourceName:     rec.SourceName,
			NativeDecimals: rec.NativeDecimals,
		}
	}
	return nil
}
