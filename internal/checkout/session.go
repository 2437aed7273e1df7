package checkout

import (
	"errors"
	"sync"
	"time"

	"github.com/iliyamo/nft-trait-shop/internal/model"
)

// Phase is the position of a checkout session in its state machine:
//
//	SELECT_TARGET -> SELECT_PAYMENT -> (SELECT_BURN_SET) -> CONFIRM -> PROCESSING -> SUCCESS | FAILURE
//
// SELECT_PAYMENT is skipped when every cart item is free, and
// SELECT_BURN_SET only applies to burn payment.
type Phase string

const (
	PhaseSelectTarget  Phase = "SELECT_TARGET"
	PhaseSelectPayment Phase = "SELECT_PAYMENT"
	PhaseSelectBurnSet Phase = "SELECT_BURN_SET"
	PhaseConfirm       Phase = "CONFIRM"
	PhaseProcessing    Phase = "PROCESSING"
	PhaseSuccess       Phase = "SUCCESS"
	PhaseFailure       Phase = "FAILURE"
)

// Selection errors returned to the UI layer as 400s.
var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrWrongPhase       = errors.New("operation not valid in current checkout phase")
	ErrTargetRequired   = errors.New("target NFT must be selected first")
	ErrBadPaymentMethod = errors.New("unsupported payment method for this cart")
	ErrBadBurnSet       = errors.New("burn set must contain exactly the required number of distinct NFTs, excluding the target")
	ErrNoSession        = errors.New("no active checkout session")
)

// Options carries the deployment-specific knobs the orchestrator needs:
// destination wallets, fees and the reservation grace window.
type Options struct {
	CollectionWallet     string
	ReimburseWallet      string
	CollectionID         string
	ServiceFeeLamports   uint64
	ReimburseFeeLamports uint64
	UseNewLogo           bool
	Grace                time.Duration
}

// Manager owns one checkout session per wallet.  Sessions are never
// shared across wallets; all cross-session synchronization happens in
// the stock ledger.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	ledger   StockLedger
	store    PurchaseStore
	txlog    TransactionLogger
	chain    ChainService
	renderer ImageRenderer
	opts     Options
}

// NewManager constructs a Manager.  All dependencies must be non-nil.
func NewManager(ledger StockLedger, store PurchaseStore, txlog TransactionLogger, chain ChainService, renderer ImageRenderer, opts Options) *Manager {
	if ledger == nil || store == nil || txlog == nil || chain == nil || renderer == nil {
		panic("nil dependency passed to checkout.NewManager")
	}
	return &Manager{
		sessions: make(map[string]*Session),
		ledger:   ledger,
		store:    store,
		txlog:    txlog,
		chain:    chain,
		renderer: renderer,
		opts:     opts,
	}
}

// Begin starts a fresh checkout session for the wallet over a snapshot
// of the cart items, replacing any previous session.  The item list is
// copied so later cart edits do not leak into an in-flight checkout.
func (m *Manager) Begin(wallet string, items []model.TraitOffer) (*Session, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	snapshot := make([]model.TraitOffer, len(items))
	copy(snapshot, items)
	s := &Session{
		mgr:    m,
		wallet: wallet,
		items:  snapshot,
		phase:  PhaseSelectTarget,
	}
	m.mu.Lock()
	m.sessions[wallet] = s
	m.mu.Unlock()
	return s, nil
}

// Session returns the wallet's active session, if any.
func (m *Manager) Session(wallet string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[wallet]
	return s, ok
}

// End discards the wallet's session.  Abandoning before reservation
// has no side effects; after reservation the grace window handles
// stock return, so End never compensates.
func (m *Manager) End(wallet string) {
	m.mu.Lock()
	delete(m.sessions, wallet)
	m.mu.Unlock()
}

// Session is one wallet's in-flight checkout attempt.  All state is
// session-scoped; nothing here is shared across wallets.
type Session struct {
	mu     sync.Mutex
	mgr    *Manager
	wallet string
	items  []model.TraitOffer
	target *model.WalletNFT
	method string
	burn   []string
	phase  Phase

	records  []*model.PurchaseRecord
	result   *Result
	failure  *Failure
	progress []ProgressFunc
}

// Quote is the computed totals presented at CONFIRM.
type Quote struct {
	Items              []model.TraitOffer `json:"items"`
	TotalBurnCost      uint32             `json:"total_burn_cost"`
	TotalLamports      uint64             `json:"total_lamports"`
	ServiceFeeLamports uint64             `json:"service_fee_lamports"`
	PayableLamports    uint64             `json:"payable_lamports"`
	PaymentMethod      string             `json:"payment_method"`
}

// OnProgress registers a progress subscriber.  Subscribers are
// notified in registration order.
func (s *Session) OnProgress(fn ProgressFunc) {
	s.mu.Lock()
	s.progress = append(s.progress, fn)
	s.mu.Unlock()
}

// emit fans an event out to subscribers.  Callers must not hold s.mu.
func (s *Session) emit(step, message string) {
	s.mu.Lock()
	subs := make([]ProgressFunc, len(s.progress))
	copy(subs, s.progress)
	s.mu.Unlock()
	ev := ProgressEvent{Step: step, Message: message}
	for _, fn := range subs {
		fn(ev)
	}
}

// Phase returns the session's current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Failure returns the failure report of the last attempt, if any.
func (s *Session) Failure() *Failure {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// allFree reports whether every item in the session is claim-only.
func (s *Session) allFree() bool {
	for i := range s.items {
		if !s.items[i].IsFree() {
			return false
		}
	}
	return true
}

// totalBurnCost sums burn costs across the session's items.
func (s *Session) totalBurnCost() uint32 {
	var total uint32
	for i := range s.items {
		total += s.items[i].BurnCost
	}
	return total
}

// totalLamports sums SOL prices across the session's items.
func (s *Session) totalLamports() uint64 {
	var total uint64
	for i := range s.items {
		total += s.items[i].SolPriceLamports
	}
	return total
}

// SelectTarget supplies the NFT that will receive the merged traits.
// When every item is free the session auto-advances straight to
// CONFIRM with method free; otherwise the user picks burn or sol next.
func (s *Session) SelectTarget(nft model.WalletNFT) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseSelectTarget {
		return ErrWrongPhase
	}
	target := nft
	s.target = &target
	if s.allFree() {
		s.method = model.PaymentFree
		s.phase = PhaseConfirm
	} else {
		s.phase = PhaseSelectPayment
	}
	return nil
}

// SelectPaymentMethod chooses burn or sol for a paid cart.  Free is
// only ever assigned automatically.  Burn carts advance to burn-set
// selection unless the cart's total burn cost is zero.
func (s *Session) SelectPaymentMethod(method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseSelectPayment {
		return ErrWrongPhase
	}
	if s.target == nil {
		return ErrTargetRequired
	}
	switch method {
	case model.PaymentBurn:
		s.method = method
		if s.totalBurnCost() > 0 {
			s.phase = PhaseSelectBurnSet
		} else {
			s.phase = PhaseConfirm
		}
	case model.PaymentSOL:
		s.method = method
		s.phase = PhaseConfirm
	default:
		return ErrBadPaymentMethod
	}
	return nil
}

// SelectBurnSet supplies the NFTs to burn as payment.  Exactly
// sum(burn_cost) distinct mints are required and the target NFT may
// not be among them.
func (s *Session) SelectBurnSet(mints []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseSelectBurnSet {
		return ErrWrongPhase
	}
	need := int(s.totalBurnCost())
	seen := make(map[string]struct{}, len(mints))
	for _, m := range mints {
		if m == "" || m == s.target.Mint {
			return ErrBadBurnSet
		}
		if _, dup := seen[m]; dup {
			return ErrBadBurnSet
		}
		seen[m] = struct{}{}
	}
	if len(seen) != need {
		return ErrBadBurnSet
	}
	s.burn = append([]string(nil), mints...)
	s.phase = PhaseConfirm
	return nil
}

// Quote returns the totals shown at CONFIRM.  The service fee applies
// only to SOL payments.
func (s *Session) Quote() (*Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseConfirm && s.phase != PhaseProcessing {
		return nil, ErrWrongPhase
	}
	q := &Quote{
		Items:         s.items,
		TotalBurnCost: s.totalBurnCost(),
		PaymentMethod: s.method,
	}
	if s.method == model.PaymentSOL {
		q.TotalLamports = s.totalLamports()
		q.ServiceFeeLamports = s.mgr.opts.ServiceFeeLamports
		q.PayableLamports = q.TotalLamports + q.ServiceFeeLamports
	}
	return q, nil
}
