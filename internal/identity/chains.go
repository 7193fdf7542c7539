package identity

import "strings"

// canonicalChains is the closed vocabulary of chain identifiers every
// normalized Quote and AssetIdentity must use. Two different spellings of
// the same chain surviving normalization is a correctness bug, not a valid
// mismatch signal.
var canonicalChains = map[string]bool{
	"ethereum":  true,
	"bsc":       true,
	"polygon":   true,
	"arbitrum":  true,
	"optimism":  true,
	"base":      true,
	"avalanche": true,
	"fantom":    true,
	"solana":    true,
	"sui":       true,
	"aptos":     true,
	"zksync":    true,
	"scroll":    true,
	"linea":     true,
	"blast":     true,
	"sonic":     true,
	"berachain": true,
}

// chainAliases maps common source spellings onto the canonical vocabulary.
var chainAliases = map[string]string{
	"eth":     "ethereum",
	"ether":   "ethereum",
	"mainnet": "ethereum",
	"erc20":   "ethereum",
	"bnb":     "bsc",
	"binance": "bsc",
	"bep20":   "bsc",
	"matic":   "polygon",
	"poly":    "polygon",
	"arb":     "arbitrum",
	"op":      "optimism",
	"avax":    "avalanche",
	"ftm":     "fantom",
	"sol":     "solana",
}

// nativeTokens maps a chain's native-token symbol to its chain. Used by the
// pattern-rule heuristic: a ticker named after a native token very likely
// trades that chain's native asset. Chains whose native token is ETH map
// through "ethereum" deliberately; a bare ETH ticker on an L2 venue is
// still the same economic asset.
var nativeTokens = map[string]string{
	"ETH":   "ethereum",
	"BNB":   "bsc",
	"MATIC": "polygon",
	"POL":   "polygon",
	"AVAX":  "avalanche",
	"FTM":   "fantom",
	"SOL":   "solana",
	"SUI":   "sui",
	"APT":   "aptos",
}

// NormalizeChain folds a chain identifier onto the canonical vocabulary.
// It returns the canonical name and true, or "" and false when the input is
// empty or not a known chain.
func NormalizeChain(chain string) (string, bool) {
	c := strings.ToLower(strings.TrimSpace(chain))
	if c == "" {
		return "", false
	}
	if alias, ok := chainAliases[c]; ok {
		c = alias
	}
	if !canonicalChains[c] {
		return "", false
	}
	return c, true
}

// NormalizeAddress lower-cases and trims a contract address. Address
// comparison is always case-insensitive (EIP-55 checksum casing carries no
// identity information).
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// AssetKey builds the composite "chain:address" identity key used for
// grouping and caching, matching the unique-key format of the metadata
// collaborator.
func AssetKey(chain, address string) string {
	return strings.ToLower(chain) + ":" + strings.ToLower(address)
}
