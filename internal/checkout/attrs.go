package checkout

import "github.com/iliyamo/nft-trait-shop/internal/model"

// MergeAttributes folds purchased traits into an NFT's existing
// attribute list.  A trait whose category already exists replaces that
// entry in place, preserving layer order; a new category is appended.
// The input slice is not mutated.
func MergeAttributes(existing []model.TraitAttribute, items []model.TraitOffer) []model.TraitAttribute {
	merged := make([]model.TraitAttribute, len(existing))
	copy(merged, existing)
	for _, item := range items {
		replaced := false
		for i := range merged {
			if merged[i].TraitType == item.Category {
				merged[i].Value = item.TraitValue
				replaced = true
				break
			}
		}
		if !replaced {
			merged = append(merged, model.TraitAttribute{TraitType: item.Category, Value: item.TraitValue})
		}
	}
	return merged
}
