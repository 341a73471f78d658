package notify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nvolkov-go/topup-relay/internal/payment"
)

// FormatAmount renders a webhook-reported minor-unit amount in major units
// with two decimals for currencies with a known minor-unit factor. Unknown
// currencies (and unparseable values) pass through raw: the provider may
// report currencies this system does not fully understand.
func FormatAmount(raw, currency string) string {
	trimmed := strings.TrimSpace(raw)
	value, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return raw
	}
	factor, ok := payment.MinorUnitFactor(currency)
	if !ok {
		return strconv.FormatInt(value, 10)
	}
	return fmt.Sprintf("%.2f", float64(value)/float64(factor))
}
