package orderid_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nvolkov-go/topup-relay/internal/orderid"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, chatID := range []int64{1, 12345, 958579430, -42} {
		id := orderid.Encode(chatID)
		got, ok := orderid.Decode(id)
		require.True(t, ok, id)
		require.Equal(t, chatID, got)
	}
}

func TestEncodeShape(t *testing.T) {
	id := orderid.Encode(12345)
	head, tail, found := strings.Cut(id, "-")
	require.True(t, found)
	require.Equal(t, "12345", head)
	require.Len(t, tail, 8)
	require.Regexp(t, "^[0-9a-f]{8}$", tail)
}

func TestEncodeUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := orderid.Encode(7)
		require.False(t, seen[id], "duplicate order id %s", id)
		seen[id] = true
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, in := range []string{"", "12345", "abc-def0", "x-12ab34cd", "--"} {
		_, ok := orderid.Decode(in)
		require.False(t, ok, in)
	}
}
