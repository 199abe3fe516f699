// Package token signs and verifies small JSON payloads with an
// HMAC-SHA256 keyed digest, producing opaque bearer-token strings of the
// form base64url(payload) + "." + hex(digest).
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrFormat indicates a token that does not decompose into exactly
	// two dot-separated fields, or whose payload segment is not
	// decodable.
	ErrFormat = errors.New("invalid token format")

	// ErrSignature indicates a well-formed token whose digest does not
	// match the payload.
	ErrSignature = errors.New("invalid token signature")
)

// Codec signs payloads with a shared secret key.
type Codec struct {
	secret []byte
}

// NewCodec returns a codec keyed with the given shared secret.
func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

// Sign serializes the payload to canonical JSON (sorted keys, no
// incidental whitespace, as produced by encoding/json for maps) and
// returns "<base64url-payload>.<hex-digest>".
func (c *Codec) Sign(payload any) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding token payload: %w", err)
	}
	digest := c.digest(encoded)
	return base64.RawURLEncoding.EncodeToString(encoded) + "." + digest, nil
}

// Verify splits the token, recomputes the digest over the decoded
// payload bytes, compares it in constant time, and returns the decoded
// payload. Shape problems report ErrFormat; a digest mismatch reports
// ErrSignature.
func (c *Codec) Verify(tok string) (map[string]any, error) {
	encoded, signature, ok := splitToken(tok)
	if !ok {
		return nil, ErrFormat
	}
	payloadBytes, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: payload not base64url", ErrFormat)
	}
	expected := c.digest(payloadBytes)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, ErrSignature
	}
	var payload map[string]any
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		return nil, fmt.Errorf("%w: payload not JSON", ErrFormat)
	}
	return payload, nil
}

func (c *Codec) digest(payload []byte) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// splitToken requires exactly one separator: any other count of parts is
// a format error, never a valid-but-unauthenticated token.
func splitToken(tok string) (encoded, signature string, ok bool) {
	for i := 0; i < len(tok); i++ {
		if tok[i] != '.' {
			continue
		}
		encoded, signature = tok[:i], tok[i+1:]
		for j := i + 1; j < len(tok); j++ {
			if tok[j] == '.' {
				return "", "", false
			}
		}
		return encoded, signature, encoded != "" && signature != ""
	}
	return "", "", false
}
