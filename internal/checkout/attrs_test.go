package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/nft-trait-shop/internal/model"
)

func TestMergeAttributesReplaceAndAppend(t *testing.T) {
	existing := []model.TraitAttribute{
		{TraitType: "Background", Value: "Blue"},
		{TraitType: "Hat", Value: "Cap"},
		{TraitType: "Eyes", Value: "Normal"},
	}
	items := []model.TraitOffer{
		{Category: "Hat", TraitValue: "Crown"},  // replaces in place
		{Category: "Mouth", TraitValue: "Grin"}, // appended
		{Category: "Eyes", TraitValue: "Laser"},
	}

	merged := MergeAttributes(existing, items)
	assert.Equal(t, []model.TraitAttribute{
		{TraitType: "Background", Value: "Blue"},
		{TraitType: "Hat", Value: "Crown"},
		{TraitType: "Eyes", Value: "Laser"},
		{TraitType: "Mouth", Value: "Grin"},
	}, merged)
}

func TestMergeAttributesDoesNotMutateInput(t *testing.T) {
	existing := []model.TraitAttribute{{TraitType: "Hat", Value: "Cap"}}
	MergeAttributes(existing, []model.TraitOffer{{Category: "Hat", TraitValue: "Crown"}})
	assert.Equal(t, "Cap", existing[0].Value)
}

func TestMergeAttributesEmptyExisting(t *testing.T) {
	merged := MergeAttributes(nil, []model.TraitOffer{{Category: "Hat", TraitValue: "Crown"}})
	assert.Equal(t, []model.TraitAttribute{{TraitType: "Hat", Value: "Crown"}}, merged)
}
