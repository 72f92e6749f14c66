// Package id generates the prefixed identifiers used across the server.
// The prefix names the record kind (guide, step, user, session, share,
// token, instance), so an ID in a log line or URL is self-describing.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Generate returns a new ID of the form prefix-nanoid, e.g.
// "guide-V1StGXR8_Z5jdHi6B-myT". The random part is a 21-character
// URL-safe NanoID, which keeps IDs usable inside share links without
// escaping.
//
// Errors only when the system cannot supply secure randomness.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is Generate for callers where an entropy failure should
// crash the process rather than surface as a request error.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("id: %v", err))
	}
	return id
}
