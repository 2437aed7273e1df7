package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/nft-trait-shop/internal/model"
)

func offer(id uint64, name string, burn uint32, lamports uint64) model.TraitOffer {
	return model.TraitOffer{ID: id, Name: name, BurnCost: burn, SolPriceLamports: lamports}
}

func TestAddIsIdempotent(t *testing.T) {
	c := New()
	assert.True(t, c.Add(offer(1, "Crown", 0, 100)))
	assert.False(t, c.Add(offer(1, "Crown", 0, 100)), "duplicate add is a no-op")
	assert.True(t, c.Add(offer(2, "Halo", 1, 0)))

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, uint64(1), items[0].ID)
	assert.Equal(t, uint64(2), items[1].ID)
}

func TestRemoveAndClear(t *testing.T) {
	c := New()
	c.Add(offer(1, "Crown", 0, 100))
	c.Add(offer(2, "Halo", 0, 50))

	assert.True(t, c.Remove(1))
	assert.False(t, c.Remove(1), "removing an absent item reports no change")
	require.Len(t, c.Items(), 1)

	c.Clear()
	assert.Empty(t, c.Items())
}

func TestTotals(t *testing.T) {
	c := New()
	c.Add(offer(1, "Crown", 2, 1_000_000_000))
	c.Add(offer(2, "Halo", 1, 500_000_000))
	c.Add(offer(3, "Beanie", 0, 0))

	assert.Equal(t, uint32(3), c.TotalBurnCost())
	assert.Equal(t, uint64(1_500_000_000), c.TotalSolPrice())
}

func TestItemsReturnsCopy(t *testing.T) {
	c := New()
	c.Add(offer(1, "Crown", 0, 100))
	items := c.Items()
	items[0].Name = "tampered"
	assert.Equal(t, "Crown", c.Items()[0].Name)
}

func TestSubscribersNotifiedInOrderWithSnapshot(t *testing.T) {
	c := New()
	var order []string
	var lastSeen []model.TraitOffer
	c.Subscribe(func(items []model.TraitOffer) { order = append(order, "first") })
	c.Subscribe(func(items []model.TraitOffer) {
		order = append(order, "second")
		lastSeen = items
	})

	c.Add(offer(1, "Crown", 0, 100))
	c.Add(offer(2, "Halo", 0, 50))
	c.Remove(1)

	// Three mutations, each notifying both subscribers in order.
	assert.Equal(t, []string{"first", "second", "first", "second", "first", "second"}, order)
	require.Len(t, lastSeen, 1)
	assert.Equal(t, uint64(2), lastSeen[0].ID)

	// Clearing an already empty cart does not notify.
	c.Clear()
	c.Clear()
	assert.Len(t, order, 8)
}

func TestStorePerWalletIsolation(t *testing.T) {
	s := NewStore()
	a := s.For("walletA")
	b := s.For("walletB")
	require.NotSame(t, a, b)

	a.Add(offer(1, "Crown", 0, 100))
	assert.Empty(t, b.Items())

	// Same wallet gets the same cart back.
	assert.Same(t, a, s.For("walletA"))

	s.Drop("walletA")
	assert.Empty(t, s.For("walletA").Items())
}
