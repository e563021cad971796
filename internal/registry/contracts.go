package registry

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"slices"
	"sync"

	"github.com/feral-file/ff-track-indexer/internal/adapter"
	"github.com/feral-file/ff-track-indexer/internal/domain"
)

//go:embed assets/contracts.json
var baselineJSON []byte

// Contracts maps a lowercase contract address to the platform that deployed it
type Contracts map[string]domain.Platform

// Merge returns c overlaid with other; other wins on collision
func (c Contracts) Merge(other Contracts) Contracts {
	out := make(Contracts, len(c)+len(other))
	maps.Copy(out, c)
	maps.Copy(out, other)
	return out
}

// Addresses returns the addresses in ascending order
func (c Contracts) Addresses() []string {
	return slices.Sorted(maps.Keys(c))
}

// ParseContracts decodes a contracts.json document and normalizes its keys
func ParseContracts(data []byte) (Contracts, error) {
	var raw map[string]domain.Platform
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse contracts: %w", err)
	}
	out := make(Contracts, len(raw))
	for addr, platform := range raw {
		out[domain.NormalizeAddress(addr)] = platform
	}
	return out, nil
}

// Baseline returns the contracts shipped with the binary
func Baseline() (Contracts, error) {
	return ParseContracts(baselineJSON)
}

// ContractRegistry is the set of contracts a crawl looks at: the baseline
// overlaid with the user file, user entries winning.
//
//go:generate mockgen -source=contracts.go -destination=../mocks/contract_registry.go -package=mocks -mock_names=ContractRegistry=MockContractRegistry
type ContractRegistry interface {
	// Lookup returns the platform of a contract address
	Lookup(address string) (domain.Platform, bool)

	// Addresses returns every known address in ascending order
	Addresses() []string

	// UserContracts returns a copy of the user (discovered or hand-added) contracts
	UserContracts() Contracts

	// AddMissing adds entries whose address the user file doesn't have yet and
	// persists the user file when anything was added. Existing entries are kept.
	AddMissing(entries Contracts) (int, error)
}

type contractRegistry struct {
	fs       adapter.FileSystem
	userPath string

	mu       sync.RWMutex
	baseline Contracts
	user     Contracts
	merged   Contracts
}

// Open loads the user file at userPath (a missing file is an empty registry)
// on top of baseline
func Open(fsys adapter.FileSystem, baseline Contracts, userPath string) (ContractRegistry, error) {
	user := Contracts{}
	if userPath != "" {
		data, err := fsys.ReadFile(userPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read user contracts: %w", err)
		default:
			user, err = ParseContracts(data)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", userPath, err)
			}
		}
	}

	r := &contractRegistry{
		fs:       fsys,
		userPath: userPath,
		baseline: baseline,
		user:     user,
	}
	r.merged = baseline.Merge(user)
	return r, nil
}

func (r *contractRegistry) Lookup(address string) (domain.Platform, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.merged[domain.NormalizeAddress(address)]
	return p, ok
}

func (r *contractRegistry) Addresses() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.merged.Addresses()
}

func (r *contractRegistry) UserContracts() Contracts {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.user)
}

func (r *contractRegistry) AddMissing(entries Contracts) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := maps.Clone(r.user)
	if next == nil {
		next = Contracts{}
	}
	added := 0
	for addr, platform := range entries {
		addr = domain.NormalizeAddress(addr)
		if _, ok := next[addr]; ok {
			continue
		}
		next[addr] = platform
		added++
	}
	if added == 0 {
		return 0, nil
	}

	if r.userPath != "" {
		data, err := json.MarshalIndent(next, "", "  ")
		if err != nil {
			return 0, fmt.Errorf("failed to encode user contracts: %w", err)
		}
		if err := r.fs.WriteFile(r.userPath, append(data, '\n')); err != nil {
			return 0, fmt.Errorf("failed to write user contracts: %w", err)
		}
	}

	r.user = next
	r.merged = r.baseline.Merge(next)
	return added, nil
}
