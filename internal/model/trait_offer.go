package model

import "time"

// TraitOffer is a purchasable visual attribute that can be applied to
// an NFT in the collection.  Offers are created and edited from the
// admin surface; the shop only ever lists active ones.  Offers are
// never deleted, only deactivated, so purchase history stays
// resolvable.
//
// Fields:
//  ID                 – primary key identifier.
//  Name               – display name shown in the shop.
//  Category           – attribute category (e.g. Background, Hat).
//  TraitValue         – attribute value written into NFT metadata.
//  ImageRef           – reference to the trait layer image.
//  BurnCost           – number of NFTs to burn when paying by burn.
//  SolPriceLamports   – price in lamports when paying with SOL.
//  StockQuantity      – remaining units; nil means unlimited.
//  MaxClaimsPerWallet – per-wallet acquisition cap; nil means unlimited.
//  IsActive           – whether the offer is visible and purchasable.
//  CreatedAt          – timestamp when the record was created.
//  UpdatedAt          – timestamp when the record was last updated.
type TraitOffer struct {
	ID                 uint64    `json:"id"`                    // trait_offers.id
	Name               string    `json:"name"`                  // trait_offers.name
	Category           string    `json:"category"`              // trait_offers.category
	TraitValue         string    `json:"trait_value"`           // trait_offers.trait_value
	ImageRef           string    `json:"image_ref"`             // trait_offers.image_ref
	BurnCost           uint32    `json:"burn_cost"`             // trait_offers.burn_cost
	SolPriceLamports   uint64    `json:"sol_price_lamports"`    // trait_offers.sol_price_lamports
	StockQuantity      *int64    `json:"stock_quantity"`        // trait_offers.stock_quantity (nullable)
	MaxClaimsPerWallet *uint32   `json:"max_claims_per_wallet"` // trait_offers.max_claims_per_wallet (nullable)
	IsActive           bool      `json:"is_active"`             // trait_offers.is_active
	CreatedAt          time.Time `json:"created_at"`            // trait_offers.created_at
	UpdatedAt          time.Time `json:"updated_at"`            // trait_offers.updated_at
}

// IsFree reports whether the offer is claim-only: no burn and no SOL
// price.  Free offers skip the payment step entirely.
func (o *TraitOffer) IsFree() bool {
	return o.BurnCost == 0 && o.SolPriceLamports == 0
}
