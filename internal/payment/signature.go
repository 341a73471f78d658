package payment

import (
	"crypto/hmac"
	"sort"
	"strings"

	"github.com/nvolkov-go/topup-relay/internal/common"
)

// Delimiter is the literal segment separator the provider uses when building
// the canonical signature string. Wire contract; do not change.
const Delimiter = "{np}"

// SignatureField names the webhook query parameter carrying the claimed hash.
const SignatureField = "hash"

// CanonicalString builds the provider's signature base: parameter values
// sorted by key ascending, joined with the delimiter, with the shared secret
// as the final segment. The signature field itself is excluded.
func CanonicalString(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == SignatureField {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		parts = append(parts, params[k])
	}
	parts = append(parts, secret)
	return strings.Join(parts, Delimiter)
}

// ComputeSignature returns the lowercase hex SHA-256 digest of the canonical
// string for the given parameters and secret.
func ComputeSignature(params map[string]string, secret string) string {
	return common.Sha256Hex(CanonicalString(params, secret))
}

// VerifySignature reports whether the claimed hash matches the computed one.
// Pure function: equal inputs always yield equal verdicts regardless of the
// map's iteration order.
func VerifySignature(params map[string]string, claimedHash, secret string) bool {
	if claimedHash == "" {
		return false
	}
	expected := ComputeSignature(params, secret)
	return hmac.Equal([]byte(expected), []byte(claimedHash))
}
