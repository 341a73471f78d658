package payment

// Currency identifies a settlement currency accepted for new top-ups.
type Currency string

// Currencies the provider accepts for payment creation.
const (
	CurrencyRUB Currency = "RUB"
	CurrencyUSD Currency = "USD"
)

// Bounds describes the provider-documented inclusive amount limits for a
// currency, in major units, together with its minor-unit conversion factor.
type Bounds struct {
	Min         int64
	Max         int64
	MinorFactor int64
}

var supported = map[Currency]Bounds{
	CurrencyRUB: {Min: 200, Max: 85000, MinorFactor: 100},
	CurrencyUSD: {Min: 10, Max: 990, MinorFactor: 100},
}

// minorFactors covers every currency the provider is known to report in
// webhook callbacks, including ones we never open payments in. Currencies
// absent from this table are passed through unconverted.
var minorFactors = map[string]int64{
	"RUB":  100,
	"USD":  100,
	"USDT": 100,
}

// SupportedBounds returns the amount bounds for a currency and whether new
// payments may be opened in it.
func SupportedBounds(c Currency) (Bounds, bool) {
	b, ok := supported[c]
	return b, ok
}

// MinorUnitFactor reports the minor-unit factor for a webhook-reported
// currency code. The second return value is false for unknown codes.
func MinorUnitFactor(code string) (int64, bool) {
	f, ok := minorFactors[code]
	return f, ok
}
