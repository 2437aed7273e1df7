package checkout

import (
	"context"
	"fmt"
	"sync"

	"github.com/iliyamo/nft-trait-shop/internal/model"
)

// chainCall records one call against the fake chain service, in order.
type chainCall struct {
	op        string // "sol", "nft", "metadata"
	wallet    string
	recipient string
	mint      string
	lamports  uint64
	memo      string
}

// fakeChain implements ChainService and ImageRenderer with injectable
// errors.  Tests flip the err fields between calls to script failure
// then recovery.
type fakeChain struct {
	mu    sync.Mutex
	calls []chainCall

	solErr    error
	nftErr    error
	metaErr   error
	renderErr error

	nextSig int
}

func newFakeChain() *fakeChain { return &fakeChain{} }

func (f *fakeChain) sig(prefix string) string {
	f.nextSig++
	return fmt.Sprintf("%s-sig-%d", prefix, f.nextSig)
}

func (f *fakeChain) TransferSOL(ctx context.Context, wallet, recipient string, lamports uint64, memo string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.solErr != nil {
		return "", f.solErr
	}
	f.calls = append(f.calls, chainCall{op: "sol", wallet: wallet, recipient: recipient, lamports: lamports, memo: memo})
	return f.sig("sol"), nil
}

func (f *fakeChain) TransferNFT(ctx context.Context, wallet, mint, recipient, collectionID, memo string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.nftErr != nil {
		return "", f.nftErr
	}
	f.calls = append(f.calls, chainCall{op: "nft", wallet: wallet, recipient: recipient, mint: mint, memo: memo})
	return f.sig("nft"), nil
}

func (f *fakeChain) UpdateMetadata(ctx context.Context, targetMint string, attrs []model.TraitAttribute, image []byte, useNewLogo bool) (*MetadataResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.metaErr != nil {
		return nil, f.metaErr
	}
	f.calls = append(f.calls, chainCall{op: "metadata", mint: targetMint})
	return &MetadataResult{
		Signature:   f.sig("meta"),
		ImageURL:    "https://img.test/" + targetMint + ".png",
		MetadataURL: "https://meta.test/" + targetMint + ".json",
	}, nil
}

func (f *fakeChain) Render(ctx context.Context, attrs []model.TraitAttribute) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.renderErr != nil {
		return nil, f.renderErr
	}
	return []byte("png-bytes"), nil
}

// setSOLErr scripts TransferSOL failures (nil clears).
func (f *fakeChain) setSOLErr(err error) {
	f.mu.Lock()
	f.solErr = err
	f.mu.Unlock()
}

// callsOf filters recorded calls by operation.
func (f *fakeChain) callsOf(op string) []chainCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []chainCall{}
	for _, c := range f.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

// allCalls returns every recorded call in order.
func (f *fakeChain) allCalls() []chainCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]chainCall, len(f.calls))
	copy(out, f.calls)
	return out
}
