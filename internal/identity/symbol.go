package identity

import "strings"

// quoteCurrencies are pair denominators stripped from raw tickers, longest
// first so USDT wins over USD.
var quoteCurrencies = []string{
	"USDT", "USDC", "BUSD", "TUSD", "FDUSD", "USD", "DAI", "EUR", "GBP", "TRY", "BRL",
}

var pairSeparators = []string{"/", "-", "_", " ", ":"}

// BaseSymbol reduces a raw ticker to its base-asset symbol: upper-cased,
// pair separators handled, common quote-currency suffixes stripped.
// "btc/usdt", "BTC-USDT" and "BTCUSDT" all reduce to "BTC". Stripping never
// produces an empty or single-character result; when it would, the
// unstripped form is kept ("TUSD" stays "TUSD", not "T").
func BaseSymbol(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	for _, sep := range pairSeparators {
		if i := strings.Index(s, sep); i > 0 {
			s = s[:i]
			break
		}
	}
	for _, q := range quoteCurrencies {
		if s == q {
			return s
		}
		if strings.HasSuffix(s, q) && len(s)-len(q) >= 2 {
			return s[:len(s)-len(q)]
		}
	}
	return s
}
