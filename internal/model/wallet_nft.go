package model

// TraitAttribute is the canonical attribute shape used everywhere
// downstream of the inventory boundary.  The wallet bridge normalises
// whatever metadata variants exist on-chain into this form once, so
// the rest of the code never re-derives field fallbacks.
type TraitAttribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// WalletNFT is an NFT owned by a wallet, as reported by the inventory
// source.  Attributes are ordered as they appear in the metadata; the
// order matters to the image renderer.
type WalletNFT struct {
	Mint       string           `json:"mint"`
	Name       string           `json:"name"`
	Image      string           `json:"image"`
	Attributes []TraitAttribute `json:"attributes"`
}
