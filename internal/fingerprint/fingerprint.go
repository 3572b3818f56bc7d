// Package fingerprint derives stable signatures from alert content so exact
// duplicates can be collapsed regardless of volatile values embedded in the
// alert text.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// Patterns for volatile tokens that must not influence the fingerprint
var (
	// ISO-ish timestamps (2026-08-23T10:15:00Z, 2026-08-23 10:15:00)
	timestampPattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[Tt ]\d{2}:\d{2}(:\d{2})?(\.\d+)?([Zz]|[+-]\d{2}:?\d{2})?`)
	// Bare clock times (10:15:00, 10:15)
	clockPattern = regexp.MustCompile(`\b\d{1,2}:\d{2}(:\d{2})?\b`)
	// UUIDs
	uuidPattern = regexp.MustCompile(`\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\b`)
	// Long hex identifiers (request IDs, container IDs)
	hexPattern = regexp.MustCompile(`\b[0-9a-fA-F]{12,}\b`)
	// IPv4 addresses
	ipPattern = regexp.MustCompile(`\b\d{1,3}(\.\d{1,3}){3}\b`)
	// Numeric values, including decimals, percentages and units glued on
	// (87.5%, 1024MB, 3s)
	numberPattern = regexp.MustCompile(`\b\d+(\.\d+)?(%|ms|s|m|h|[KMGT]i?B)?`)
	// Whitespace runs
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// NormalizeText lowercases free text and strips volatile tokens (timestamps,
// numeric values, identifiers) so semantically equal alerts normalize to the
// same string. Deterministic and side-effect free.
func NormalizeText(text string) string {
	s := strings.ToLower(text)
	s = timestampPattern.ReplaceAllString(s, "")
	s = uuidPattern.ReplaceAllString(s, "")
	s = hexPattern.ReplaceAllString(s, "")
	s = ipPattern.ReplaceAllString(s, "")
	s = clockPattern.ReplaceAllString(s, "")
	s = numberPattern.ReplaceAllString(s, "")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Compute returns the fingerprint for an alert's semantic identity: a SHA-256
// over source, alert type and the normalized title and message. Two alerts
// that differ only in case, whitespace or volatile tokens fingerprint
// identically.
func Compute(source, alertType, title, message string) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(source))))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(strings.TrimSpace(alertType))))
	h.Write([]byte{0})
	h.Write([]byte(NormalizeText(title)))
	h.Write([]byte{0})
	h.Write([]byte(NormalizeText(message)))
	return hex.EncodeToString(h.Sum(nil))
}

// Tokens splits normalized text into unique tokens for overlap scoring
func Tokens(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, tok := range strings.Fields(NormalizeText(text)) {
		tokens[tok] = struct{}{}
	}
	return tokens
}
