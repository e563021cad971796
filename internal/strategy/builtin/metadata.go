package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/feral-file/ff-track-indexer/internal/domain"
	"github.com/feral-file/ff-track-indexer/internal/gateway"
	"github.com/feral-file/ff-track-indexer/internal/logger"
	"github.com/feral-file/ff-track-indexer/internal/strategy"
)

const (
	methodTokenURI         = "tokenURI"
	methodTokenMetadataURI = "tokenMetadataURI"
)

// uriABI covers the ERC-721 tokenURI getter and Zora's tokenMetadataURI
const uriABI = `[
	{"constant":true,"inputs":[{"name":"tokenId","type":"uint256"}],"name":"tokenURI","outputs":[{"name":"","type":"string"}],"payable":false,"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"tokenId","type":"uint256"}],"name":"tokenMetadataURI","outputs":[{"name":"","type":"string"}],"payable":false,"stateMutability":"view","type":"function"}
]`

var parsedURIABI = mustParseABI(uriABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("invalid ABI: %v", err))
	}
	return parsed
}

// Metadata keys holding the audio file, most preferred first
var audioKeys = []string{"losslessAudio", "animation_url", "audio"}

// metadataStrategy reads a token URI on chain, fetches the JSON it points to and maps it into a Track.
// When contentMethod is set, the audio falls back to the URI returned by it.
type metadataStrategy struct {
	name           string
	deps           strategy.Deps
	metadataMethod string
	contentMethod  string
}

func newMetadataStrategy(name string, deps strategy.Deps, metadataMethod, contentMethod string) *metadataStrategy {
	return &metadataStrategy{
		name:           name,
		deps:           deps.WithDefaults(),
		metadataMethod: metadataMethod,
		contentMethod:  contentMethod,
	}
}

func (s *metadataStrategy) Name() string {
	return s.name
}

func (s *metadataStrategy) Crawl(ctx context.Context, token domain.MintedToken) (*domain.Track, error) {
	tokenURI, err := s.callURI(ctx, s.metadataMethod, token)
	if err != nil {
		return nil, err
	}

	body, err := s.deps.Gateway.Fetch(ctx, tokenURI)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata of %s: %w", token.Identity(), err)
	}

	var meta map[string]any
	if err := json.Unmarshal(body, &meta); err != nil || meta == nil {
		return nil, fmt.Errorf("%w: %s at %s", domain.ErrInvalidMetadata, token.Identity(), tokenURI)
	}

	audio := firstString(meta, audioKeys...)
	if audio == "" && s.contentMethod != "" {
		audio, err = s.callURI(ctx, s.contentMethod, token)
		if err != nil {
			return nil, err
		}
	}
	if audio == "" {
		logger.DebugCtx(ctx, "Token has no audio",
			zap.String("platform", s.name),
			zap.String("token", token.Identity().String()))
		return nil, nil
	}

	track := &domain.Track{
		Version:     domain.TRACK_SCHEMA_VERSION,
		Title:       firstString(meta, "name", "title"),
		UID:         token.Identity().String(),
		Description: firstString(meta, "description"),
		Platform:    token.Platform,
		ERC721: domain.ERC721{
			Version:   domain.TRACK_SCHEMA_VERSION,
			CreatedAt: token.CreatedAtBlock,
			Address:   token.Address,
			TokenID:   token.TokenID,
			TokenURI:  tokenURI,
			Metadata:  json.RawMessage(body),
		},
	}
	if artist := artistName(meta); artist != "" {
		track.Artist = &domain.Artist{
			Version: domain.TRACK_SCHEMA_VERSION,
			Name:    artist,
			Address: domain.NormalizeAddress(firstString(meta, "artist_address", "artistAddress")),
		}
	}

	audioMime := firstString(meta, "mimeType", "mime_type")
	if audioMime == "" || !strings.HasPrefix(audioMime, "audio/") {
		audioMime = guessMimeType(audio, "audio/mpeg")
	}
	track.Manifestations = append(track.Manifestations, domain.Manifestation{
		Version:  domain.TRACK_SCHEMA_VERSION,
		URI:      audio,
		MimeType: audioMime,
	})
	if image := firstString(meta, "image", "image_url"); image != "" {
		track.Manifestations = append(track.Manifestations, domain.Manifestation{
			Version:  domain.TRACK_SCHEMA_VERSION,
			URI:      image,
			MimeType: guessMimeType(image, "image"),
		})
	}

	return track, nil
}

// callURI runs a uint256 -> string getter at the token's creation block
func (s *metadataStrategy) callURI(ctx context.Context, method string, token domain.MintedToken) (string, error) {
	id, ok := new(big.Int).SetString(token.TokenID, 10)
	if !ok {
		return "", fmt.Errorf("%w: token id %q is not decimal", domain.ErrValidation, token.TokenID)
	}

	data, err := parsedURIABI.Pack(method, id)
	if err != nil {
		return "", fmt.Errorf("failed to pack %s: %w", method, err)
	}

	contract := common.HexToAddress(token.Address)
	msg := ethereum.CallMsg{To: &contract, Data: data}
	result, err := s.deps.Gateway.CallContract(ctx, s.deps.PickEndpoint(), msg, new(big.Int).SetUint64(token.CreatedAtBlock))
	if err != nil {
		if gateway.IsExecutionError(err) {
			return "", fmt.Errorf("%w: %s reverted for %s: %v", domain.ErrValidation, method, token.Identity(), err)
		}
		return "", err
	}

	var value string
	if err := parsedURIABI.UnpackIntoInterface(&value, method, result); err != nil {
		return "", fmt.Errorf("%w: %s of %s", domain.ErrNonStringTokenURI, method, token.Identity())
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%w: %s of %s", domain.ErrEmptyTokenURI, method, token.Identity())
	}
	return value, nil
}

func firstString(meta map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := meta[k].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// artistName looks at the flat keys first, then at an "artist" object and the OpenSea attributes list
func artistName(meta map[string]any) string {
	if name := firstString(meta, "artist", "artist_name", "artistName", "created_by"); name != "" {
		return name
	}
	if obj, ok := meta["artist"].(map[string]any); ok {
		if name := firstString(obj, "name"); name != "" {
			return name
		}
	}
	if props, ok := meta["properties"].(map[string]any); ok {
		if name := firstString(props, "artist", "artist_name"); name != "" {
			return name
		}
	}
	attrs, _ := meta["attributes"].([]any)
	for _, a := range attrs {
		attr, ok := a.(map[string]any)
		if !ok {
			continue
		}
		if trait, _ := attr["trait_type"].(string); strings.EqualFold(trait, "artist") {
			if v, ok := attr["value"].(string); ok && v != "" {
				return v
			}
		}
	}
	return ""
}

// guessMimeType maps the file extension of u; fallback is returned when it is unknown
func guessMimeType(u, fallback string) string {
	p := u
	if parsed, err := url.Parse(u); err == nil && parsed.Path != "" {
		p = parsed.Path
	}
	ext := strings.ToLower(path.Ext(p))
	switch ext {
	case "":
		return fallback
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".flac":
		return "audio/flac"
	case ".aif", ".aiff":
		return "audio/aiff"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = t[:i]
		}
		return t
	}
	return fallback
}
