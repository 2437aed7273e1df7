package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/nft-trait-shop/internal/model"
)

// OfferRepo provides data access to the trait_offers table.  Stock and
// claim-count mutation is owned exclusively by the StockLedger; this
// repository only covers admin CRUD and shop listing reads.
type OfferRepo struct {
	db *sql.DB
}

// NewOfferRepo returns a new OfferRepo bound to the provided database.
func NewOfferRepo(db *sql.DB) *OfferRepo { return &OfferRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions
// spanning multiple repositories.
func (r *OfferRepo) DB() *sql.DB { return r.db }

const offerColumns = `id, name, category, trait_value, image_ref, burn_cost,
       sol_price_lamports, stock_quantity, max_claims_per_wallet, is_active,
       created_at, updated_at`

// scanOffer reads one trait_offers row into a model.TraitOffer.  Nullable
// columns (stock_quantity, max_claims_per_wallet) map to nil pointers.
func scanOffer(row interface{ Scan(...interface{}) error }) (*model.TraitOffer, error) {
	var o model.TraitOffer
	var stock sql.NullInt64
	var maxClaims sql.NullInt64
	if err := row.Scan(
		&o.ID, &o.Name, &o.Category, &o.TraitValue, &o.ImageRef, &o.BurnCost,
		&o.SolPriceLamports, &stock, &maxClaims, &o.IsActive,
		&o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if stock.Valid {
		v := stock.Int64
		o.StockQuantity = &v
	}
	if maxClaims.Valid {
		v := uint32(maxClaims.Int64)
		o.MaxClaimsPerWallet = &v
	}
	return &o, nil
}

// GetByID returns a single trait offer.  ErrOfferNotFound is returned
// when no row exists.
func (r *OfferRepo) GetByID(ctx context.Context, id uint64) (*model.TraitOffer, error) {
	const q = `SELECT ` + offerColumns + ` FROM trait_offers WHERE id = ?`
	o, err := scanOffer(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOfferNotFound
	}
	return o, err
}

// ListActive returns all active offers ordered by category and name.
// This backs the public shop listing and is the query fronted by the
// response cache middleware.
func (r *OfferRepo) ListActive(ctx context.Context) ([]model.TraitOffer, error) {
	const q = `SELECT ` + offerColumns + ` FROM trait_offers
               WHERE is_active = 1
               ORDER BY category, name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	offers := make([]model.TraitOffer, 0)
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, *o)
	}
	return offers, rows.Err()
}

// ListAll returns every offer, active or not, for the admin surface.
func (r *OfferRepo) ListAll(ctx context.Context) ([]model.TraitOffer, error) {
	const q = `SELECT ` + offerColumns + ` FROM trait_offers ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	offers := make([]model.TraitOffer, 0)
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, *o)
	}
	return offers, rows.Err()
}

// Create inserts a new trait offer and populates the generated ID and
// timestamps on the provided record.
func (r *OfferRepo) Create(ctx context.Context, o *model.TraitOffer) error {
	const q = `INSERT INTO trait_offers
               (name, category, trait_value, image_ref, burn_cost,
                sol_price_lamports, stock_quantity, max_claims_per_wallet, is_active)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var stock interface{}
	if o.StockQuantity != nil {
		stock = *o.StockQuantity
	}
	var maxClaims interface{}
	if o.MaxClaimsPerWallet != nil {
		maxClaims = *o.MaxClaimsPerWallet
	}
	result, err := r.db.ExecContext(ctx, q,
		o.Name, o.Category, o.TraitValue, o.ImageRef, o.BurnCost,
		o.SolPriceLamports, stock, maxClaims, o.IsActive,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	o.CreatedAt = time.Now().UTC()
	o.UpdatedAt = o.CreatedAt
	return nil
}

// OfferUpdate carries the mutable fields of a trait offer for admin
// edits.  Nil fields are left untouched; the boolean Clear* flags allow
// explicitly setting a nullable column back to NULL (unlimited).
type OfferUpdate struct {
	Name               *string
	ImageRef           *string
	BurnCost           *uint32
	SolPriceLamports   *uint64
	StockQuantity      *int64
	ClearStock         bool
	MaxClaimsPerWallet *uint32
	ClearMaxClaims     bool
	IsActive           *bool
}

// Update applies an OfferUpdate to the given offer.  The statement is
// built dynamically so untouched columns keep their current values.
// Returns ErrOfferNotFound when the offer does not exist.
func (r *OfferRepo) Update(ctx context.Context, id uint64, u OfferUpdate) error {
	query := `UPDATE trait_offers SET `
	args := make([]interface{}, 0, 8)
	appendSet := func(col string, v interface{}) {
		if len(args) > 0 {
			query += ", "
		}
		query += col + " = ?"
		args = append(args, v)
	}
	if u.Name != nil {
		appendSet("name", *u.Name)
	}
	if u.ImageRef != nil {
		appendSet("image_ref", *u.ImageRef)
	}
	if u.BurnCost != nil {
		appendSet("burn_cost", *u.BurnCost)
	}
	if u.SolPriceLamports != nil {
		appendSet("sol_price_lamports", *u.SolPriceLamports)
	}
	if u.ClearStock {
		appendSet("stock_quantity", nil)
	} else if u.StockQuantity != nil {
		appendSet("stock_quantity", *u.StockQuantity)
	}
	if u.ClearMaxClaims {
		appendSet("max_claims_per_wallet", nil)
	} else if u.MaxClaimsPerWallet != nil {
		appendSet("max_claims_per_wallet", *u.MaxClaimsPerWallet)
	}
	if u.IsActive != nil {
		appendSet("is_active", *u.IsActive)
	}
	if len(args) == 0 {
		return nil
	}
	query += ` WHERE id = ?`
	args = append(args, id)
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either the offer does not exist or the update was a no-op;
		// distinguish by probing for the row.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Deactivate marks an offer inactive.  Offers are never deleted so
// purchase records keep a valid foreign key.
func (r *OfferRepo) Deactivate(ctx context.Context, id uint64) error {
	const q = `UPDATE trait_offers SET is_active = 0 WHERE id = ?`
	result, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
