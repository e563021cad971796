package builtin

import (
	"github.com/feral-file/ff-track-indexer/internal/strategy"
)

// Platform names as they appear in contracts.json
const (
	Sound         = "Sound"
	SoundProtocol = "SoundProtocol"
	Zora          = "Zora"
	CatalogV2     = "CatalogV2"
	MintSongsV2   = "MintSongsV2"
	Noizd         = "Noizd"
)

// Descriptors returns every built-in strategy with the block its platform started minting at
func Descriptors() []strategy.Descriptor {
	return []strategy.Descriptor{
		tokenURIDescriptor(Sound, 13725565),
		tokenURIDescriptor(SoundProtocol, 15570834),
		{
			Name:          Zora,
			CreationBlock: 11565019,
			New: func(deps strategy.Deps) strategy.Strategy {
				return newMetadataStrategy(Zora, deps, methodTokenMetadataURI, methodTokenURI)
			},
		},
		tokenURIDescriptor(CatalogV2, 14566825),
		tokenURIDescriptor(MintSongsV2, 14793509),
		tokenURIDescriptor(Noizd, 13470560),
	}
}

// Registry builds a strategy registry of every built-in strategy
func Registry() (*strategy.Registry, error) {
	return strategy.NewRegistry(Descriptors()...)
}

// Names lists the built-in strategy names in declaration order
func Names() []string {
	ds := Descriptors()
	names := make([]string, len(ds))
	for i, d := range ds {
		names[i] = d.Name
	}
	return names
}

func tokenURIDescriptor(name string, creation uint64) strategy.Descriptor {
	return strategy.Descriptor{
		Name:          name,
		CreationBlock: creation,
		New: func(deps strategy.Deps) strategy.Strategy {
			return newMetadataStrategy(name, deps, methodTokenURI, "")
		},
	}
}
