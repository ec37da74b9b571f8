package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/agoralabs/marketplace-settlement/internal/domain"
	"github.com/agoralabs/marketplace-settlement/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx so the same query set
// works inside and outside a transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgQueries struct {
	db dbtx
}

const itemColumns = `id, seller, price_amount, currency, title, description, photo_hashes,
	condition, category, subcategory, country, is_gift, status, created_at, updated_at`

func (q *pgQueries) InsertItem(ctx context.Context, item *models.Item) error {
	err := q.db.QueryRow(ctx, `
		INSERT INTO items (seller, price_amount, currency, title, description, photo_hashes,
			condition, category, subcategory, country, is_gift, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		item.Seller, item.PriceAmount, item.Currency, item.Title, item.Description, item.PhotoHashes,
		item.Condition, item.Category, item.Subcategory, item.Country, item.IsGift, item.Status,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (q *pgQueries) scanItem(row pgx.Row) (*models.Item, error) {
	item := &models.Item{}
	err := row.Scan(&item.ID, &item.Seller, &item.PriceAmount, &item.Currency, &item.Title,
		&item.Description, &item.PhotoHashes, &item.Condition, &item.Category, &item.Subcategory,
		&item.Country, &item.IsGift, &item.Status, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan item: %w", err)
	}
	return item, nil
}

func (q *pgQueries) GetItem(ctx context.Context, id uint64) (*models.Item, error) {
	return q.scanItem(q.db.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id))
}

func (q *pgQueries) GetItemForUpdate(ctx context.Context, id uint64) (*models.Item, error) {
	return q.scanItem(q.db.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1 FOR UPDATE`, id))
}

func (q *pgQueries) UpdateItem(ctx context.Context, item *models.Item) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE items SET price_amount = $2, currency = $3, title = $4, description = $5,
			photo_hashes = $6, condition = $7, category = $8, subcategory = $9, country = $10,
			is_gift = $11, status = $12, updated_at = NOW()
		WHERE id = $1`,
		item.ID, item.PriceAmount, item.Currency, item.Title, item.Description, item.PhotoHashes,
		item.Condition, item.Category, item.Subcategory, item.Country, item.IsGift, item.Status)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

func (q *pgQueries) SetItemStatus(ctx context.Context, id uint64, status string) error {
	tag, err := q.db.Exec(ctx, `UPDATE items SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("set item status: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

func (q *pgQueries) ListItems(ctx context.Context, limit, offset int) ([]models.Item, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+itemColumns+` FROM items
		WHERE status <> $1
		ORDER BY id DESC LIMIT $2 OFFSET $3`,
		domain.ItemStatusDeleted, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		var item models.Item
		if err := rows.Scan(&item.ID, &item.Seller, &item.PriceAmount, &item.Currency, &item.Title,
			&item.Description, &item.PhotoHashes, &item.Condition, &item.Category, &item.Subcategory,
			&item.Country, &item.IsGift, &item.Status, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan item row: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (q *pgQueries) UpsertProfile(ctx context.Context, p *models.Profile) error {
	err := q.db.QueryRow(ctx, `
		INSERT INTO profiles (address, username, first_name, last_name, country, description,
			email, avatar_hash, is_moderator, moderator_fee, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		ON CONFLICT (address) DO UPDATE SET
			username = EXCLUDED.username, first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name, country = EXCLUDED.country,
			description = EXCLUDED.description, email = EXCLUDED.email,
			avatar_hash = EXCLUDED.avatar_hash, is_moderator = EXCLUDED.is_moderator,
			moderator_fee = EXCLUDED.moderator_fee, updated_at = NOW()
		RETURNING created_at, updated_at`,
		p.Address, p.Username, p.FirstName, p.LastName, p.Country, p.Description,
		p.Email, p.AvatarHash, p.IsModerator, p.ModeratorFee,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (q *pgQueries) GetProfile(ctx context.Context, address string) (*models.Profile, error) {
	p := &models.Profile{}
	err := q.db.QueryRow(ctx, `
		SELECT address, username, first_name, last_name, country, description, email,
			avatar_hash, is_moderator, moderator_fee, created_at, updated_at
		FROM profiles WHERE address = $1`, address,
	).Scan(&p.Address, &p.Username, &p.FirstName, &p.LastName, &p.Country, &p.Description,
		&p.Email, &p.AvatarHash, &p.IsModerator, &p.ModeratorFee, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (q *pgQueries) InsertReview(ctx context.Context, rv *models.Review) error {
	err := q.db.QueryRow(ctx, `
		INSERT INTO reviews (id, reviewer, seller, item_id, rating, review_text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING created_at`,
		rv.ID, rv.Reviewer, rv.Seller, rv.ItemID, rv.Rating, rv.Text,
	).Scan(&rv.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (q *pgQueries) HasReview(ctx context.Context, reviewer string, itemID uint64) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM reviews WHERE reviewer = $1 AND item_id = $2)`,
		reviewer, itemID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("has review: %w", err)
	}
	return exists, nil
}

func (q *pgQueries) ListReviewsBySeller(ctx context.Context, seller string) ([]models.Review, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, reviewer, seller, item_id, rating, review_text, created_at
		FROM reviews WHERE seller = $1 ORDER BY created_at DESC`, seller)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []models.Review
	for rows.Next() {
		var rv models.Review
		if err := rows.Scan(&rv.ID, &rv.Reviewer, &rv.Seller, &rv.ItemID, &rv.Rating, &rv.Text, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}

const txColumns = `item_id, buyer, seller, moderator, price_amount, fee_amount, currency,
	status, buyer_approved, seller_approved, created_at, updated_at`

func (q *pgQueries) InsertTransaction(ctx context.Context, tx *models.Transaction) error {
	err := q.db.QueryRow(ctx, `
		INSERT INTO settlements (item_id, buyer, seller, moderator, price_amount, fee_amount,
			currency, status, buyer_approved, seller_approved, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING created_at, updated_at`,
		tx.ItemID, tx.Buyer, tx.Seller, tx.Moderator, tx.PriceAmount, tx.FeeAmount,
		tx.Currency, tx.Status, tx.BuyerApproved, tx.SellerApproved,
	).Scan(&tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrTransactionExists
		}
		return fmt.Errorf("insert settlement: %w", err)
	}
	return nil
}

func (q *pgQueries) scanTransaction(row pgx.Row) (*models.Transaction, error) {
	tx := &models.Transaction{}
	err := row.Scan(&tx.ItemID, &tx.Buyer, &tx.Seller, &tx.Moderator, &tx.PriceAmount,
		&tx.FeeAmount, &tx.Currency, &tx.Status, &tx.BuyerApproved, &tx.SellerApproved,
		&tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan settlement: %w", err)
	}
	return tx, nil
}

func (q *pgQueries) GetTransaction(ctx context.Context, itemID uint64) (*models.Transaction, error) {
	return q.scanTransaction(q.db.QueryRow(ctx, `SELECT `+txColumns+` FROM settlements WHERE item_id = $1`, itemID))
}

func (q *pgQueries) GetTransactionForUpdate(ctx context.Context, itemID uint64) (*models.Transaction, error) {
	return q.scanTransaction(q.db.QueryRow(ctx, `SELECT `+txColumns+` FROM settlements WHERE item_id = $1 FOR UPDATE`, itemID))
}

func (q *pgQueries) UpdateTransaction(ctx context.Context, tx *models.Transaction) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE settlements SET status = $2, buyer_approved = $3, seller_approved = $4, updated_at = NOW()
		WHERE item_id = $1`,
		tx.ItemID, tx.Status, tx.BuyerApproved, tx.SellerApproved)
	if err != nil {
		return fmt.Errorf("update settlement: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

func (q *pgQueries) ListOpenTransactions(ctx context.Context) ([]models.Transaction, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+txColumns+` FROM settlements WHERE status IN ($1, $2) ORDER BY item_id`,
		domain.TxStatusAwaitingApproval, domain.TxStatusDisputed)
	if err != nil {
		return nil, fmt.Errorf("list open settlements: %w", err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(&tx.ItemID, &tx.Buyer, &tx.Seller, &tx.Moderator, &tx.PriceAmount,
			&tx.FeeAmount, &tx.Currency, &tx.Status, &tx.BuyerApproved, &tx.SellerApproved,
			&tx.CreatedAt, &tx.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan settlement row: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (q *pgQueries) GetBalance(ctx context.Context, address, currency string) (int64, error) {
	var amount int64
	err := q.db.QueryRow(ctx,
		`SELECT amount FROM balances WHERE address = $1 AND currency = $2`,
		address, currency).Scan(&amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return amount, nil
}

func (q *pgQueries) AddBalance(ctx context.Context, address, currency string, delta int64) error {
	if delta < 0 {
		tag, err := q.db.Exec(ctx, `
			UPDATE balances SET amount = amount + $3
			WHERE address = $1 AND currency = $2 AND amount + $3 >= 0`,
			address, currency, delta)
		if err != nil {
			return fmt.Errorf("debit balance: %w", err)
		}
		if tag.RowsAffected() != 1 {
			return domain.ErrInsufficientBalance
		}
		return nil
	}
	_, err := q.db.Exec(ctx, `
		INSERT INTO balances (address, currency, amount) VALUES ($1, $2, $3)
		ON CONFLICT (address, currency) DO UPDATE SET amount = balances.amount + EXCLUDED.amount`,
		address, currency, delta)
	if err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	return nil
}

func (q *pgQueries) CreditCustody(ctx context.Context, itemID uint64, currency string, amount int64) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO custody (item_id, currency, amount) VALUES ($1, $2, $3)
		ON CONFLICT (item_id) DO UPDATE SET amount = custody.amount + EXCLUDED.amount`,
		itemID, currency, amount)
	if err != nil {
		return fmt.Errorf("credit custody: %w", err)
	}
	return nil
}

func (q *pgQueries) DebitCustody(ctx context.Context, itemID uint64, currency string, amount int64) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE custody SET amount = amount - $3
		WHERE item_id = $1 AND currency = $2 AND amount - $3 >= 0`,
		itemID, currency, amount)
	if err != nil {
		return fmt.Errorf("debit custody: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return domain.ErrCustodyExceeded
	}
	return nil
}

func (q *pgQueries) GetCustody(ctx context.Context, itemID uint64) (int64, string, error) {
	var amount int64
	var currency string
	err := q.db.QueryRow(ctx,
		`SELECT amount, currency FROM custody WHERE item_id = $1`, itemID,
	).Scan(&amount, &currency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, "", ErrNotFound
		}
		return 0, "", fmt.Errorf("get custody: %w", err)
	}
	return amount, currency, nil
}

func (q *pgQueries) CustodyTotals(ctx context.Context) (map[string]int64, error) {
	rows, err := q.db.Query(ctx, `SELECT currency, COALESCE(SUM(amount), 0) FROM custody GROUP BY currency`)
	if err != nil {
		return nil, fmt.Errorf("custody totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]int64)
	for rows.Next() {
		var currency string
		var total int64
		if err := rows.Scan(&currency, &total); err != nil {
			return nil, fmt.Errorf("scan custody total: %w", err)
		}
		totals[currency] = total
	}
	return totals, rows.Err()
}

func (q *pgQueries) InsertEntry(ctx context.Context, e *models.Entry) error {
	err := q.db.QueryRow(ctx, `
		INSERT INTO entries (id, item_id, account, amount, direction, currency, kind, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING created_at`,
		e.ID, e.ItemID, e.Account, e.Amount, e.Direction, e.Currency, e.Kind,
	).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func (q *pgQueries) ListEntries(ctx context.Context, account string, limit, offset int) ([]models.Entry, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, item_id, account, amount, direction, currency, kind, created_at
		FROM entries WHERE account = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		account, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []models.Entry
	for rows.Next() {
		var e models.Entry
		if err := rows.Scan(&e.ID, &e.ItemID, &e.Account, &e.Amount, &e.Direction, &e.Currency, &e.Kind, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (q *pgQueries) UpsertToken(ctx context.Context, t *models.Token) error {
	err := q.db.QueryRow(ctx, `
		INSERT INTO tokens (symbol, address, created_at) VALUES ($1, $2, NOW())
		ON CONFLICT (symbol) DO UPDATE SET address = EXCLUDED.address
		RETURNING created_at`,
		t.Symbol, t.Address,
	).Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}
	return nil
}

func (q *pgQueries) GetToken(ctx context.Context, symbol string) (*models.Token, error) {
	t := &models.Token{}
	err := q.db.QueryRow(ctx,
		`SELECT symbol, address, created_at FROM tokens WHERE symbol = $1`, symbol,
	).Scan(&t.Symbol, &t.Address, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get token: %w", err)
	}
	return t, nil
}

func (q *pgQueries) ListTokens(ctx context.Context) ([]models.Token, error) {
	rows, err := q.db.Query(ctx, `SELECT symbol, address, created_at FROM tokens ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	var tokens []models.Token
	for rows.Next() {
		var t models.Token
		if err := rows.Scan(&t.Symbol, &t.Address, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (q *pgQueries) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := q.db.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get setting: %w", err)
	}
	return value, nil
}

func (q *pgQueries) SetSetting(ctx context.Context, key, value string) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}

func (q *pgQueries) GetIdempotencyKey(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	rec := &models.IdempotencyRecord{}
	err := q.db.QueryRow(ctx, `
		SELECT idempotency_key, request_hash, method, path, response_status, response_body,
			content_type, in_progress
		FROM idempotency_keys WHERE idempotency_key = $1`, key,
	).Scan(&rec.Key, &rec.RequestHash, &rec.Method, &rec.Path, &rec.Status, &rec.Body,
		&rec.ContentType, &rec.InProgress)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get idempotency key: %w", err)
	}
	return rec, nil
}

func (q *pgQueries) ReserveIdempotencyKey(ctx context.Context, key, requestHash, method, path string) (bool, error) {
	tag, err := q.db.Exec(ctx, `
		INSERT INTO idempotency_keys (idempotency_key, request_hash, method, path, in_progress, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())
		ON CONFLICT (idempotency_key) DO NOTHING`,
		key, requestHash, method, path)
	if err != nil {
		return false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (q *pgQueries) FinalizeIdempotencyKey(ctx context.Context, key, requestHash string, status int, body []byte, contentType string) (*models.IdempotencyRecord, error) {
	rec := &models.IdempotencyRecord{}
	err := q.db.QueryRow(ctx, `
		UPDATE idempotency_keys
		SET response_status = $3, response_body = $4, content_type = $5, in_progress = FALSE, updated_at = NOW()
		WHERE idempotency_key = $1 AND request_hash = $2
		RETURNING idempotency_key, request_hash, method, path, response_status, response_body, content_type, in_progress`,
		key, requestHash, status, body, contentType,
	).Scan(&rec.Key, &rec.RequestHash, &rec.Method, &rec.Path, &rec.Status, &rec.Body,
		&rec.ContentType, &rec.InProgress)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("finalize idempotency key: %w", err)
	}
	return rec, nil
}
