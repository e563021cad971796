package uri

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/feral-file/ff-track-indexer/internal/domain"
)

// DataURI is a decoded RFC 2397 data URI
type DataURI struct {
	MimeType string
	Data     []byte
}

// IsDataURI reports whether s uses the data: scheme
func IsDataURI(s string) bool {
	return len(s) >= 5 && strings.EqualFold(s[:5], "data:")
}

// ParseDataURI decodes data:[<mediatype>][;base64],<data>
func ParseDataURI(s string) (*DataURI, error) {
	if !IsDataURI(s) {
		return nil, fmt.Errorf("%w: not a data uri", domain.ErrUnsupportedURI)
	}

	header, payload, ok := strings.Cut(s[5:], ",")
	if !ok {
		return nil, fmt.Errorf("%w: data uri without payload separator", domain.ErrValidation)
	}

	params := strings.Split(header, ";")
	mimeType := strings.TrimSpace(params[0])
	if mimeType == "" {
		mimeType = "text/plain"
	}

	isBase64 := false
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			isBase64 = true
		}
	}

	var data []byte
	if isBase64 {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			// Some minters drop the padding
			decoded, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
			if err != nil {
				return nil, fmt.Errorf("%w: invalid base64 payload: %v", domain.ErrValidation, err)
			}
		}
		data = decoded
	} else {
		unescaped, err := url.PathUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid percent-encoding: %v", domain.ErrValidation, err)
		}
		data = []byte(unescaped)
	}

	return &DataURI{MimeType: strings.ToLower(mimeType), Data: data}, nil
}
