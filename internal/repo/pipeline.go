package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"ventureos/internal/domain"
)

// --- opportunities ---

func scanOpportunity(scan func(dest ...any) error) (domain.Opportunity, error) {
	var o domain.Opportunity
	var clientID, wonAt sql.NullString
	err := scan(&o.ID, &clientID, &o.Title, &o.Stage, &o.EstimatedValue, &o.Probability, &wonAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return o, err
	}
	if clientID.Valid {
		o.ClientID = &clientID.String
	}
	if wonAt.Valid {
		o.WonAt = &wonAt.String
	}
	return o, nil
}

func (r Repo) InsertOpportunity(ctx context.Context, o domain.Opportunity) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO opportunities(id,client_id,title,stage,estimated_value,probability,won_at,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		o.ID, nullableStringPtr(o.ClientID), o.Title, o.Stage, o.EstimatedValue, o.Probability, nullableStringPtr(o.WonAt), o.CreatedAt, o.UpdatedAt)
	return err
}

func (r Repo) GetOpportunity(ctx context.Context, id string) (domain.Opportunity, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT id,client_id,title,stage,estimated_value,probability,won_at,created_at,updated_at FROM opportunities WHERE id=?`, id)
	o, err := scanOpportunity(row.Scan)
	if err == sql.ErrNoRows {
		return o, ErrNotFound
	}
	return o, err
}

func (r Repo) ListOpportunities(ctx context.Context, stage string) ([]domain.Opportunity, error) {
	query := `SELECT id,client_id,title,stage,estimated_value,probability,won_at,created_at,updated_at FROM opportunities`
	var args []any
	if stage != "" {
		query += ` WHERE stage=?`
		args = append(args, stage)
	}
	query += ` ORDER BY updated_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Opportunity
	for rows.Next() {
		o, err := scanOpportunity(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, o)
	}
	return res, nil
}

type OpportunityUpdate struct {
	Title          *string
	Stage          *string
	EstimatedValue *float64
	Probability    *int
	WonAt          *string
}

func (r Repo) UpdateOpportunity(ctx context.Context, id string, u OpportunityUpdate, now string) error {
	var (
		fields []string
		args   []any
	)
	if u.Title != nil {
		fields = append(fields, "title=?")
		args = append(args, *u.Title)
	}
	if u.Stage != nil {
		fields = append(fields, "stage=?")
		args = append(args, *u.Stage)
	}
	if u.EstimatedValue != nil {
		fields = append(fields, "estimated_value=?")
		args = append(args, *u.EstimatedValue)
	}
	if u.Probability != nil {
		fields = append(fields, "probability=?")
		args = append(args, *u.Probability)
	}
	if u.WonAt != nil {
		fields = append(fields, "won_at=?")
		args = append(args, *u.WonAt)
	}
	if len(fields) == 0 {
		return nil
	}
	fields = append(fields, "updated_at=?")
	args = append(args, now, id)
	res, err := r.DB.ExecContext(ctx, fmt.Sprintf(`UPDATE opportunities SET %s WHERE id=?`, strings.Join(fields, ",")), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- price offers ---

func scanOffer(scan func(dest ...any) error) (domain.PriceOffer, error) {
	var o domain.PriceOffer
	var clientID, oppID sql.NullString
	err := scan(&o.ID, &clientID, &oppID, &o.Title, &o.Status, &o.TotalValue, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return o, err
	}
	if clientID.Valid {
		o.ClientID = &clientID.String
	}
	if oppID.Valid {
		o.OpportunityID = &oppID.String
	}
	return o, nil
}

func (r Repo) InsertOffer(ctx context.Context, o domain.PriceOffer) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO price_offers(id,client_id,opportunity_id,title,status,total_value,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)`,
		o.ID, nullableStringPtr(o.ClientID), nullableStringPtr(o.OpportunityID), o.Title, o.Status, o.TotalValue, o.CreatedAt, o.UpdatedAt)
	return err
}

func (r Repo) GetOffer(ctx context.Context, id string) (domain.PriceOffer, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT id,client_id,opportunity_id,title,status,total_value,created_at,updated_at FROM price_offers WHERE id=?`, id)
	o, err := scanOffer(row.Scan)
	if err == sql.ErrNoRows {
		return o, ErrNotFound
	}
	if err != nil {
		return o, err
	}
	items, err := r.ListOfferItems(ctx, o.ID)
	if err != nil {
		return o, err
	}
	o.Items = items
	return o, nil
}

func (r Repo) ListOffers(ctx context.Context, status string) ([]domain.PriceOffer, error) {
	query := `SELECT id,client_id,opportunity_id,title,status,total_value,created_at,updated_at FROM price_offers`
	var args []any
	if status != "" {
		query += ` WHERE status=?`
		args = append(args, status)
	}
	query += ` ORDER BY updated_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.PriceOffer
	for rows.Next() {
		o, err := scanOffer(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, o)
	}
	return res, nil
}

func (r Repo) UpdateOfferStatus(ctx context.Context, id, status, now string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE price_offers SET status=?, updated_at=? WHERE id=?`, status, now, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) UpdateOfferTotal(ctx context.Context, id string, total float64, now string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE price_offers SET total_value=?, updated_at=? WHERE id=?`, total, now, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- offer items ---

func (r Repo) InsertOfferItem(ctx context.Context, it domain.OfferItem) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO offer_items(id,offer_id,description,quantity,unit_price,total,position) VALUES (?,?,?,?,?,?,?)`,
		it.ID, it.OfferID, it.Description, it.Quantity, it.UnitPrice, it.Total, it.Position)
	return err
}

func (r Repo) UpdateOfferItem(ctx context.Context, it domain.OfferItem) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE offer_items SET description=?, quantity=?, unit_price=?, total=? WHERE id=?`,
		it.Description, it.Quantity, it.UnitPrice, it.Total, it.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteOfferItem(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM offer_items WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetOfferItem(ctx context.Context, id string) (domain.OfferItem, error) {
	var it domain.OfferItem
	err := r.DB.QueryRowContext(ctx, `SELECT id,offer_id,description,quantity,unit_price,total,position FROM offer_items WHERE id=?`, id).
		Scan(&it.ID, &it.OfferID, &it.Description, &it.Quantity, &it.UnitPrice, &it.Total, &it.Position)
	if err == sql.ErrNoRows {
		return it, ErrNotFound
	}
	return it, err
}

func (r Repo) ListOfferItems(ctx context.Context, offerID string) ([]domain.OfferItem, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,offer_id,description,quantity,unit_price,total,position FROM offer_items WHERE offer_id=? ORDER BY position ASC, id ASC`, offerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.OfferItem
	for rows.Next() {
		var it domain.OfferItem
		if err := rows.Scan(&it.ID, &it.OfferID, &it.Description, &it.Quantity, &it.UnitPrice, &it.Total, &it.Position); err != nil {
			return nil, err
		}
		res = append(res, it)
	}
	return res, nil
}

// --- contracts ---

func scanContract(scan func(dest ...any) error) (domain.Contract, error) {
	var c domain.Contract
	var clientID, oppID, offerID, terms, start, end sql.NullString
	err := scan(&c.ID, &clientID, &oppID, &offerID, &c.Title, &c.Status, &c.TotalValue, &terms, &start, &end, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return c, err
	}
	if clientID.Valid {
		c.ClientID = &clientID.String
	}
	if oppID.Valid {
		c.OpportunityID = &oppID.String
	}
	if offerID.Valid {
		c.PriceOfferID = &offerID.String
	}
	if terms.Valid {
		c.TermsMD = terms.String
	}
	if start.Valid {
		c.StartDate = &start.String
	}
	if end.Valid {
		c.EndDate = &end.String
	}
	return c, nil
}

const contractColumns = `id,client_id,opportunity_id,price_offer_id,title,status,total_value,terms_md,start_date,end_date,created_at,updated_at`

func (r Repo) InsertContract(ctx context.Context, c domain.Contract) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO contracts(`+contractColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, nullableStringPtr(c.ClientID), nullableStringPtr(c.OpportunityID), nullableStringPtr(c.PriceOfferID),
		c.Title, c.Status, c.TotalValue, nullable(c.TermsMD), nullableStringPtr(c.StartDate), nullableStringPtr(c.EndDate), c.CreatedAt, c.UpdatedAt)
	return err
}

func (r Repo) GetContract(ctx context.Context, id string) (domain.Contract, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+contractColumns+` FROM contracts WHERE id=?`, id)
	c, err := scanContract(row.Scan)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

func (r Repo) ListContracts(ctx context.Context, status string) ([]domain.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts`
	var args []any
	if status != "" {
		query += ` WHERE status=?`
		args = append(args, status)
	}
	query += ` ORDER BY updated_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Contract
	for rows.Next() {
		c, err := scanContract(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, nil
}

func (r Repo) UpdateContractStatus(ctx context.Context, id, status, now string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE contracts SET status=?, updated_at=? WHERE id=?`, status, now, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ContractByPriceOffer returns the contract linked to an offer, if any.
func (r Repo) ContractByPriceOffer(ctx context.Context, offerID string) (domain.Contract, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+contractColumns+` FROM contracts WHERE price_offer_id=?`, offerID)
	c, err := scanContract(row.Scan)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}
