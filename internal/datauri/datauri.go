// Package datauri produces and parses Base64 data URIs of the form
// data:<mime>;base64,<payload>.
package datauri

import (
	"encoding/base64"
	"regexp"
	"strings"

	"github.com/hpungsan/frag/internal/errors"
)

const (
	// Scheme is the literal prefix of every data URI.
	Scheme = "data:"

	// Separator splits the MIME type from the payload.
	Separator = ";base64,"

	// imagePrefix is the coarse routing check used by IsImage.
	imagePrefix = "data:image"
)

// pattern is the full grammar. (?s) lets the payload run to the end of the
// string even if it contains line breaks.
var pattern = regexp.MustCompile(`(?s)^data:([^;,]+);base64,(.*)$`)

// Parts is a validated data URI split into its MIME type and raw Base64 payload.
type Parts struct {
	MimeType string `json:"mime_type"`
	Payload  string `json:"-"`
}

// Encode encodes raw bytes with standard padded Base64 and wraps them in a data URI.
// Empty input yields a URI with an empty payload.
func Encode(raw []byte, mimeType string) string {
	return Wrap(mimeType, base64.StdEncoding.EncodeToString(raw))
}

// Wrap prefixes an already-encoded Base64 payload with the data URI header.
func Wrap(mimeType, payload string) string {
	var b strings.Builder
	b.Grow(len(Scheme) + len(mimeType) + len(Separator) + len(payload))
	b.WriteString(Scheme)
	b.WriteString(mimeType)
	b.WriteString(Separator)
	b.WriteString(payload)
	return b.String()
}

// Validate checks s against the data URI grammar and returns its parts.
// The payload is not checked against the Base64 alphabet here.
func Validate(s string) (*Parts, error) {
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return nil, errors.NewValidation("invalid Base64 format: expected data:<mime>;base64,<payload>")
	}
	return &Parts{MimeType: m[1], Payload: m[2]}, nil
}

// IsImage reports whether s starts with "data:image". This is looser than
// Validate and is only used to route a save to the gallery.
func IsImage(s string) bool {
	return strings.HasPrefix(s, imagePrefix)
}

// Decode validates s and decodes its payload.
// A payload outside the standard Base64 alphabet is an invalid argument.
func Decode(s string) (*Parts, []byte, error) {
	parts, err := Validate(s)
	if err != nil {
		return nil, nil, err
	}
	data, err := DecodePayload(parts.Payload)
	if err != nil {
		return nil, nil, err
	}
	return parts, data, nil
}

// DecodePayload decodes a raw standard Base64 payload.
func DecodePayload(payload string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errors.NewInvalidArgument("payload is not valid Base64: " + err.Error())
	}
	return data, nil
}

// EstimateDecodedSize approximates the decoded byte count as floor(len(s) * 0.75).
// It counts the header and padding, so it is a display figure only.
func EstimateDecodedSize(s string) int {
	return len(s) * 3 / 4
}
