// Package token encodes effect selections into stateless callback payloads.
//
// A token binds one source message reference to one effect id. No server-side
// session store exists: the token itself is the whole state carried between
// showing a menu and acting on a choice.
package token

import (
	"errors"
	"fmt"
	"strings"
)

// Delimiter separates the source message reference from the effect id.
const Delimiter = ":"

var (
	// ErrInvalidField reports an encode input that is empty or contains the delimiter.
	ErrInvalidField = errors.New("invalid token field")
	// ErrMalformedToken reports a decode input that does not split into two fields.
	ErrMalformedToken = errors.New("malformed token")
)

// Codec encodes and decodes selection tokens.
//
// Decode performs no catalog validation; semantic checks belong to the caller.
type Codec struct{}

// Encode joins a source message reference and an effect id into one token.
func (Codec) Encode(sourceID string, effectID string) (string, error) {
	if sourceID == "" || strings.Contains(sourceID, Delimiter) {
		return "", fmt.Errorf("%w: source %q", ErrInvalidField, sourceID)
	}
	if effectID == "" || strings.Contains(effectID, Delimiter) {
		return "", fmt.Errorf("%w: effect %q", ErrInvalidField, effectID)
	}

	return sourceID + Delimiter + effectID, nil
}

// Decode splits a token on the first delimiter occurrence.
func (Codec) Decode(token string) (sourceID string, effectID string, err error) {
	sourceID, effectID, found := strings.Cut(token, Delimiter)
	if !found || sourceID == "" || effectID == "" {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedToken, token)
	}

	return sourceID, effectID, nil
}
