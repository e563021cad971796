package strategy

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/feral-file/ff-track-indexer/internal/domain"
	"github.com/feral-file/ff-track-indexer/internal/gateway"
	"github.com/feral-file/ff-track-indexer/internal/logger"
)

// Strategy extracts a track from one minted token of its platform
//
//go:generate mockgen -source=strategy.go -destination=../mocks/strategy.go -package=mocks -mock_names=Strategy=MockStrategy
type Strategy interface {
	// Name is the platform name the strategy is dispatched under
	Name() string

	// Crawl returns the track of token, or (nil, nil) when the token yields nothing.
	// Errors in the domain.ErrValidation family skip the token; any other error aborts the crawl.
	Crawl(ctx context.Context, token domain.MintedToken) (*domain.Track, error)
}

// Deps are the collaborators a strategy is constructed with
type Deps struct {
	Gateway gateway.Gateway
	// PickEndpoint chooses the endpoint of each chain call; defaults to a uniform random pick
	PickEndpoint func() string
}

// WithDefaults fills PickEndpoint when it is unset
func (d Deps) WithDefaults() Deps {
	if d.PickEndpoint == nil && d.Gateway != nil {
		gw := d.Gateway
		d.PickEndpoint = func() string { return gateway.RandomEndpoint(gw.Endpoints()) }
	}
	return d
}

// Descriptor registers a strategy and the block window it is valid in
type Descriptor struct {
	Name string
	// CreationBlock is the first block the platform can have minted at (inclusive)
	CreationBlock uint64
	// DeprecationBlock ends the window; nil means the strategy never expires
	DeprecationBlock *uint64
	// New constructs the strategy
	New func(Deps) Strategy
}

// Covers reports whether the whole range [from, to] lies inside the validity window
func (d Descriptor) Covers(from, to uint64) bool {
	if d.CreationBlock > from {
		return false
	}
	return d.DeprecationBlock == nil || to <= *d.DeprecationBlock
}

// Registry is the table of every strategy the binary knows about, in declaration order
type Registry struct {
	descriptors []Descriptor
	byName      map[string]int
}

// NewRegistry builds a registry; names must be unique
func NewRegistry(descriptors ...Descriptor) (*Registry, error) {
	r := &Registry{byName: make(map[string]int, len(descriptors))}
	for _, d := range descriptors {
		if d.Name == "" || d.New == nil {
			return nil, fmt.Errorf("strategy descriptor needs a name and a constructor")
		}
		if _, dup := r.byName[d.Name]; dup {
			return nil, fmt.Errorf("strategy %q registered twice", d.Name)
		}
		r.byName[d.Name] = len(r.descriptors)
		r.descriptors = append(r.descriptors, d)
	}
	return r, nil
}

// Descriptor returns the descriptor registered under name
func (r *Registry) Descriptor(name string) (Descriptor, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Descriptor{}, false
	}
	return r.descriptors[i], true
}

// Select instantiates, in declaration order, every strategy that is enabled by
// name and whose window covers [from, to]. Names that were never registered are
// logged and ignored.
func (r *Registry) Select(names []string, from, to uint64, deps Deps) *Selection {
	enabled := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := r.byName[n]; !ok {
			logger.Warn("Ignoring unknown strategy", zap.String("strategy", n))
			continue
		}
		enabled[n] = true
	}

	deps = deps.WithDefaults()
	sel := &Selection{byName: make(map[string]Strategy)}
	for _, d := range r.descriptors {
		if !enabled[d.Name] || !d.Covers(from, to) {
			continue
		}
		s := d.New(deps)
		sel.ordered = append(sel.ordered, s)
		sel.byName[d.Name] = s
	}

	logger.Debug("Selected strategies",
		zap.Uint64("from", from),
		zap.Uint64("to", to),
		zap.Strings("strategies", sel.Names()))
	return sel
}

// Selection is the set of strategies usable for one crawl
type Selection struct {
	ordered []Strategy
	byName  map[string]Strategy
}

// NewSelection wraps already constructed strategies
func NewSelection(strategies ...Strategy) *Selection {
	sel := &Selection{byName: make(map[string]Strategy, len(strategies))}
	for _, s := range strategies {
		sel.ordered = append(sel.ordered, s)
		sel.byName[s.Name()] = s
	}
	return sel
}

// Lookup dispatches by exact platform name
func (s *Selection) Lookup(platform string) (Strategy, bool) {
	st, ok := s.byName[platform]
	return st, ok
}

// Names lists the selected strategy names in order
func (s *Selection) Names() []string {
	names := make([]string, len(s.ordered))
	for i, st := range s.ordered {
		names[i] = st.Name()
	}
	return names
}

// Len is the number of selected strategies
func (s *Selection) Len() int {
	return len(s.ordered)
}
