// Package orderid issues and parses the composite order identifiers used to
// correlate provider-side transactions back to the originating chat.
package orderid

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const suffixLen = 8

// Encode produces an order identifier of the form "<chatID>-<8 hex chars>".
// The random suffix keeps identifiers unique across repeated top-ups from the
// same chat.
func Encode(chatID int64) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:suffixLen]
	return strconv.FormatInt(chatID, 10) + "-" + suffix
}

// Decode recovers the chat id from an order identifier. The second return
// value is false when the identifier carries no correlatable chat: a missing
// dash or a non-numeric prefix is an expected outcome, not an error.
func Decode(orderID string) (int64, bool) {
	// Split at the last dash: group chat ids are negative, so the prefix may
	// itself start with one.
	cut := strings.LastIndex(orderID, "-")
	if cut < 0 {
		return 0, false
	}
	chatID, err := strconv.ParseInt(orderID[:cut], 10, 64)
	if err != nil {
		return 0, false
	}
	return chatID, true
}
