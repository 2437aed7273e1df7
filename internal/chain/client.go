// Package chain implements the checkout capabilities against the
// wallet bridge sidecar: a separate process that owns wallet keys,
// Solana transaction building and image compositing.  This service
// only ever speaks JSON over HTTP to it, keeping wallet cryptography
// and chain plumbing out of scope here.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iliyamo/nft-trait-shop/internal/checkout"
	"github.com/iliyamo/nft-trait-shop/internal/model"
)

// Client talks to the wallet bridge.  It implements
// checkout.ChainService, checkout.ImageRenderer and the NFT inventory
// source.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a bridge client for the given base URL.  Chain
// calls can be slow (signature prompts, confirmation waits), so the
// default timeout is generous; the bridge enforces its own tighter
// deadlines per call.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 120 * time.Second},
	}
}

// bridgeError is the error envelope the bridge returns on non-2xx
// responses.
type bridgeError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// post sends a JSON request and decodes a JSON response.  A bridge
// error with code USER_REJECTED is wrapped in checkout.ErrUserRejected
// so the orchestrator can word the failure as a declined signature.
func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("bridge %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var be bridgeError
		if json.Unmarshal(raw, &be) == nil && be.Error != "" {
			if be.Code == "USER_REJECTED" {
				return fmt.Errorf("bridge %s: %s: %w", path, be.Error, checkout.ErrUserRejected)
			}
			return fmt.Errorf("bridge %s: %s (%s)", path, be.Error, resp.Status)
		}
		return fmt.Errorf("bridge %s: unexpected status %s", path, resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// TransferSOL asks the bridge to move lamports from the wallet to the
// recipient with a memo and returns the transaction signature.
func (c *Client) TransferSOL(ctx context.Context, wallet, recipient string, lamports uint64, memo string) (string, error) {
	in := map[string]interface{}{
		"wallet":    wallet,
		"recipient": recipient,
		"lamports":  lamports,
		"memo":      memo,
	}
	var out struct {
		Signature string `json:"signature"`
	}
	if err := c.post(ctx, "/v1/transfers/sol", in, &out); err != nil {
		return "", err
	}
	return out.Signature, nil
}

// TransferNFT asks the bridge to transfer an NFT to the recipient
// (the collection wallet, for burns) and returns the signature.
func (c *Client) TransferNFT(ctx context.Context, wallet, mint, recipient, collectionID, memo string) (string, error) {
	in := map[string]interface{}{
		"wallet":        wallet,
		"mint":          mint,
		"recipient":     recipient,
		"collection_id": collectionID,
		"memo":          memo,
	}
	var out struct {
		Signature string `json:"signature"`
	}
	if err := c.post(ctx, "/v1/transfers/nft", in, &out); err != nil {
		return "", err
	}
	return out.Signature, nil
}

// UpdateMetadata pushes the merged attribute set and the new composite
// image on-chain for the target NFT.
func (c *Client) UpdateMetadata(ctx context.Context, targetMint string, attrs []model.TraitAttribute, image []byte, useNewLogo bool) (*checkout.MetadataResult, error) {
	in := map[string]interface{}{
		"target_mint":  targetMint,
		"attributes":   attrs,
		"image_base64": image, // encoding/json base64-encodes []byte
		"use_new_logo": useNewLogo,
	}
	var out checkout.MetadataResult
	if err := c.post(ctx, "/v1/metadata/update", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Render composites an image from the ordered attribute list.
func (c *Client) Render(ctx context.Context, attrs []model.TraitAttribute) ([]byte, error) {
	in := map[string]interface{}{"attributes": attrs}
	var out struct {
		ImageBase64 []byte `json:"image_base64"`
	}
	if err := c.post(ctx, "/v1/render", in, &out); err != nil {
		return nil, err
	}
	return out.ImageBase64, nil
}

// ListOwnedNFTs returns the wallet's collection NFTs in the canonical
// normalized shape.  All metadata field fallbacks are resolved by the
// bridge at this boundary.
func (c *Client) ListOwnedNFTs(ctx context.Context, wallet string) ([]model.WalletNFT, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/wallets/"+url.PathEscape(wallet)+"/nfts", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bridge list nfts: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bridge list nfts: unexpected status %s", resp.Status)
	}
	var out struct {
		Items []model.WalletNFT `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Items, nil
}
