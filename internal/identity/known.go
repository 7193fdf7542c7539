package identity

import "arbscan/internal/domain"

// knownAssets is the curated symbol table: high-confidence identities for
// assets whose contracts are public knowledge. Entries resolve at full
// confidence and are marked WellKnown so the risk scorer can skip on-chain
// verification for them.
var knownAssets = map[string]domain.AssetIdentity{
	"USDC": {
		Chain:           "ethereum",
		ContractAddress: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
		Confidence:      100,
		WellKnown:       true,
	},
	"USDT": {
		Chain:           "ethereum",
		ContractAddress: "0xdac17f958d2ee523a2206206994597c13d831ec7",
		Confidence:      100,
		WellKnown:       true,
	},
	"WETH": {
		Chain:           "ethereum",
		ContractAddress: "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2",
		Confidence:      100,
		WellKnown:       true,
	},
	"WBTC": {
		Chain:           "ethereum",
		ContractAddress: "0x2260fac5e5542a773aa44fbcfedf7c193bc2c599",
		Confidence:      100,
		WellKnown:       true,
	},
	"DAI": {
		Chain:           "ethereum",
		ContractAddress: "0x6b175474e89094c44da98b954eedeac495271d0f",
		Confidence:      100,
		WellKnown:       true,
	},
	"WBNB": {
		Chain:           "bsc",
		ContractAddress: "0xbb4cdb9cbd36b01bd1cbaebf2de08d9173bc095c",
		Confidence:      100,
		WellKnown:       true,
	},
}

// KnownAsset returns the curated identity for a base symbol, if any.
func KnownAsset(symbol string) (domain.AssetIdentity, bool) {
	id, ok := knownAssets[BaseSymbol(symbol)]
	return id, ok
}

// NativeChain returns the home chain of a native-token symbol, if any.
func NativeChain(symbol string) (string, bool) {
	chain, ok := nativeTokens[BaseSymbol(symbol)]
	return chain, ok
}
