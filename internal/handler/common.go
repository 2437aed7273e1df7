package handler // handler defines http handlers

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/nft-trait-shop/internal/model"
)

// Session roles stored in the JWT role claim.
const (
	RoleWallet = "wallet" // any connected holder
	RoleAdmin  = "admin"  // ops surface, unlocked with the admin key
)

// NFTInventory lists the collection NFTs a wallet currently holds.  The
// wallet bridge client implements it; tests substitute a fixture.
type NFTInventory interface {
	ListOwnedNFTs(ctx context.Context, wallet string) ([]model.WalletNFT, error)
}

// getWallet extracts the authenticated wallet address from the echo
// context, where JWTAuth stored it.
func getWallet(c echo.Context) (string, error) {
	v := c.Get("wallet_address")
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("invalid wallet_address in context")
}

// ownsMint reports whether the wallet's inventory contains the mint.
func ownsMint(nfts []model.WalletNFT, mint string) (*model.WalletNFT, bool) {
	for i := range nfts {
		if nfts[i].Mint == mint {
			return &nfts[i], true
		}
	}
	return nil, false
}
