package domain

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// Platform identifies the minting platform a contract belongs to. Name is the
// dispatch key; any other attributes from the contract registry ride along in Metadata.
type Platform struct {
	Name     string
	Metadata map[string]any
}

// MarshalJSON flattens Metadata next to the name, matching the contracts.json layout
func (p Platform) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(p.Metadata)+1)
	for k, v := range p.Metadata {
		m[k] = v
	}
	m["name"] = p.Name
	return json.Marshal(m)
}

// UnmarshalJSON reads {"name": ..., ...}; unknown keys are kept in Metadata
func (p *Platform) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	name, ok := m["name"].(string)
	if !ok || name == "" {
		return fmt.Errorf("platform without name: %s", string(data))
	}
	delete(m, "name")
	p.Name = name
	p.Metadata = nil
	if len(m) > 0 {
		p.Metadata = m
	}
	return nil
}

// MintedToken describes one ERC-721 Transfer log matched to a known contract.
// It is handed to a strategy and never persisted.
type MintedToken struct {
	Platform       Platform
	ChainID        string
	Address        string
	CreatedAtBlock uint64
	TokenID        string
	TxHash         string
	LogIndex       uint
}

// Identity returns the store key of the token
func (t MintedToken) Identity() Identity {
	return Identity{ChainID: t.ChainID, Address: t.Address, TokenID: t.TokenID}
}

// Identity is the primary key of a record
type Identity struct {
	ChainID string `json:"chainId"`
	Address string `json:"address"`
	TokenID string `json:"tokenId"`
}

// String returns chain/address/token, the form used in logs and dumps
func (i Identity) String() string {
	return fmt.Sprintf("%s/%s/%s", i.ChainID, i.Address, i.TokenID)
}

// RecordID is the identity of a record plus the block it was written at
type RecordID struct {
	Identity
	BlockNumber uint64 `json:"blockNumber"`
}

// Record is the unit the store keeps and replication ships.
// Value is canonical JSON of a Track.
type Record struct {
	ID    RecordID        `json:"id"`
	Value json.RawMessage `json:"value"`
}

// Track is the metadata a strategy extracts for one minted token
type Track struct {
	Version        string          `json:"version"`
	Title          string          `json:"title"`
	UID            string          `json:"uid"`
	Description    string          `json:"description,omitempty"`
	Artist         *Artist         `json:"artist,omitempty"`
	Platform       Platform        `json:"platform"`
	ERC721         ERC721          `json:"erc721"`
	Manifestations []Manifestation `json:"manifestations"`
}

// Artist credited on a track
type Artist struct {
	Version string `json:"version"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

// ERC721 holds the on-chain facts of a track's token
type ERC721 struct {
	Version   string          `json:"version"`
	CreatedAt uint64          `json:"createdAt"`
	Address   string          `json:"address"`
	TokenID   string          `json:"tokenId"`
	TokenURI  string          `json:"tokenURI"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// Manifestation is one retrievable rendition of the track
type Manifestation struct {
	Version  string `json:"version"`
	URI      string `json:"uri"`
	MimeType string `json:"mimetype"`
}

// NormalizeAddress lowercases a hex address so registry and store keys agree
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// TokenIDFromTopic decodes a 32-byte log topic into a decimal token id
func TokenIDFromTopic(topic [32]byte) string {
	return new(big.Int).SetBytes(topic[:]).String()
}
