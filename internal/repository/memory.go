package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/agoralabs/marketplace-settlement/internal/domain"
	"github.com/agoralabs/marketplace-settlement/internal/models"
)

// MemoryStore is an in-memory Store used by engine tests and local runs.
// RunInTx snapshots the state up front and restores it when fn fails, so the
// all-or-nothing contract matches the Postgres store.
type MemoryStore struct {
	mu   sync.Mutex
	data *memData
}

type custodyRow struct {
	amount   int64
	currency string
}

type memData struct {
	items       map[uint64]*models.Item
	nextItemID  uint64
	profiles    map[string]*models.Profile
	reviews     []models.Review
	settlements map[uint64]*models.Transaction
	balances    map[string]int64
	custody     map[uint64]*custodyRow
	entries     []models.Entry
	tokens      map[string]*models.Token
	settings    map[string]string
	idem        map[string]*models.IdempotencyRecord
}

func newMemData() *memData {
	return &memData{
		items:       make(map[uint64]*models.Item),
		profiles:    make(map[string]*models.Profile),
		settlements: make(map[uint64]*models.Transaction),
		balances:    make(map[string]int64),
		custody:     make(map[uint64]*custodyRow),
		tokens:      make(map[string]*models.Token),
		settings:    make(map[string]string),
		idem:        make(map[string]*models.IdempotencyRecord),
	}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: newMemData()}
}

// Queries returns the non-transactional query set.
func (s *MemoryStore) Queries() Queries {
	return &memQueries{store: s}
}

// RunInTx executes fn against a snapshot-protected view of the store.
func (s *MemoryStore) RunInTx(ctx context.Context, fn func(q Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(&memQueries{store: s, locked: true}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (d *memData) clone() *memData {
	c := newMemData()
	c.nextItemID = d.nextItemID
	for id, item := range d.items {
		clone := *item
		clone.PhotoHashes = append([]string(nil), item.PhotoHashes...)
		c.items[id] = &clone
	}
	for addr, p := range d.profiles {
		clone := *p
		c.profiles[addr] = &clone
	}
	c.reviews = append([]models.Review(nil), d.reviews...)
	for id, tx := range d.settlements {
		clone := *tx
		c.settlements[id] = &clone
	}
	for k, v := range d.balances {
		c.balances[k] = v
	}
	for id, row := range d.custody {
		clone := *row
		c.custody[id] = &clone
	}
	c.entries = append([]models.Entry(nil), d.entries...)
	for sym, t := range d.tokens {
		clone := *t
		c.tokens[sym] = &clone
	}
	for k, v := range d.settings {
		c.settings[k] = v
	}
	for k, rec := range d.idem {
		clone := *rec
		clone.Body = append([]byte(nil), rec.Body...)
		c.idem[k] = &clone
	}
	return c
}

type memQueries struct {
	store  *MemoryStore
	locked bool
}

func (q *memQueries) lock() func() {
	if q.locked {
		return func() {}
	}
	q.store.mu.Lock()
	return q.store.mu.Unlock
}

func balanceKey(address, currency string) string {
	return address + "|" + currency
}

func (q *memQueries) InsertItem(ctx context.Context, item *models.Item) error {
	defer q.lock()()
	d := q.store.data
	d.nextItemID++
	item.ID = d.nextItemID
	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now
	clone := *item
	clone.PhotoHashes = append([]string(nil), item.PhotoHashes...)
	d.items[item.ID] = &clone
	return nil
}

func (q *memQueries) getItem(id uint64) (*models.Item, error) {
	item, ok := q.store.data.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *item
	clone.PhotoHashes = append([]string(nil), item.PhotoHashes...)
	return &clone, nil
}

func (q *memQueries) GetItem(ctx context.Context, id uint64) (*models.Item, error) {
	defer q.lock()()
	return q.getItem(id)
}

func (q *memQueries) GetItemForUpdate(ctx context.Context, id uint64) (*models.Item, error) {
	defer q.lock()()
	return q.getItem(id)
}

func (q *memQueries) UpdateItem(ctx context.Context, item *models.Item) error {
	defer q.lock()()
	d := q.store.data
	existing, ok := d.items[item.ID]
	if !ok {
		return ErrNotFound
	}
	clone := *item
	clone.PhotoHashes = append([]string(nil), item.PhotoHashes...)
	clone.CreatedAt = existing.CreatedAt
	clone.UpdatedAt = time.Now()
	d.items[item.ID] = &clone
	return nil
}

func (q *memQueries) SetItemStatus(ctx context.Context, id uint64, status string) error {
	defer q.lock()()
	item, ok := q.store.data.items[id]
	if !ok {
		return ErrNotFound
	}
	item.Status = status
	item.UpdatedAt = time.Now()
	return nil
}

func (q *memQueries) ListItems(ctx context.Context, limit, offset int) ([]models.Item, error) {
	defer q.lock()()
	d := q.store.data
	ids := make([]uint64, 0, len(d.items))
	for id, item := range d.items {
		if item.Status == domain.ItemStatusDeleted {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	var items []models.Item
	for i, id := range ids {
		if i < offset {
			continue
		}
		if len(items) >= limit {
			break
		}
		item := *d.items[id]
		item.PhotoHashes = append([]string(nil), d.items[id].PhotoHashes...)
		items = append(items, item)
	}
	return items, nil
}

func (q *memQueries) UpsertProfile(ctx context.Context, p *models.Profile) error {
	defer q.lock()()
	d := q.store.data
	now := time.Now()
	if existing, ok := d.profiles[p.Address]; ok {
		p.CreatedAt = existing.CreatedAt
	} else {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	clone := *p
	d.profiles[p.Address] = &clone
	return nil
}

func (q *memQueries) GetProfile(ctx context.Context, address string) (*models.Profile, error) {
	defer q.lock()()
	p, ok := q.store.data.profiles[address]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (q *memQueries) InsertReview(ctx context.Context, rv *models.Review) error {
	defer q.lock()()
	rv.CreatedAt = time.Now()
	q.store.data.reviews = append(q.store.data.reviews, *rv)
	return nil
}

func (q *memQueries) HasReview(ctx context.Context, reviewer string, itemID uint64) (bool, error) {
	defer q.lock()()
	for _, rv := range q.store.data.reviews {
		if rv.Reviewer == reviewer && rv.ItemID == itemID {
			return true, nil
		}
	}
	return false, nil
}

func (q *memQueries) ListReviewsBySeller(ctx context.Context, seller string) ([]models.Review, error) {
	defer q.lock()()
	var reviews []models.Review
	for _, rv := range q.store.data.reviews {
		if rv.Seller == seller {
			reviews = append(reviews, rv)
		}
	}
	sort.Slice(reviews, func(i, j int) bool { return reviews[i].CreatedAt.After(reviews[j].CreatedAt) })
	return reviews, nil
}

func (q *memQueries) InsertTransaction(ctx context.Context, tx *models.Transaction) error {
	defer q.lock()()
	d := q.store.data
	if _, ok := d.settlements[tx.ItemID]; ok {
		return domain.ErrTransactionExists
	}
	now := time.Now()
	tx.CreatedAt = now
	tx.UpdatedAt = now
	clone := *tx
	d.settlements[tx.ItemID] = &clone
	return nil
}

func (q *memQueries) getTransaction(itemID uint64) (*models.Transaction, error) {
	tx, ok := q.store.data.settlements[itemID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *tx
	return &clone, nil
}

func (q *memQueries) GetTransaction(ctx context.Context, itemID uint64) (*models.Transaction, error) {
	defer q.lock()()
	return q.getTransaction(itemID)
}

func (q *memQueries) GetTransactionForUpdate(ctx context.Context, itemID uint64) (*models.Transaction, error) {
	defer q.lock()()
	return q.getTransaction(itemID)
}

func (q *memQueries) UpdateTransaction(ctx context.Context, tx *models.Transaction) error {
	defer q.lock()()
	d := q.store.data
	existing, ok := d.settlements[tx.ItemID]
	if !ok {
		return ErrNotFound
	}
	existing.Status = tx.Status
	existing.BuyerApproved = tx.BuyerApproved
	existing.SellerApproved = tx.SellerApproved
	existing.UpdatedAt = time.Now()
	return nil
}

func (q *memQueries) ListOpenTransactions(ctx context.Context) ([]models.Transaction, error) {
	defer q.lock()()
	var txs []models.Transaction
	for _, tx := range q.store.data.settlements {
		if tx.Status == domain.TxStatusAwaitingApproval || tx.Status == domain.TxStatusDisputed {
			txs = append(txs, *tx)
		}
	}
	sort.Slice(txs, func(i, j int) bool { return txs[i].ItemID < txs[j].ItemID })
	return txs, nil
}

func (q *memQueries) GetBalance(ctx context.Context, address, currency string) (int64, error) {
	defer q.lock()()
	return q.store.data.balances[balanceKey(address, currency)], nil
}

func (q *memQueries) AddBalance(ctx context.Context, address, currency string, delta int64) error {
	defer q.lock()()
	key := balanceKey(address, currency)
	next := q.store.data.balances[key] + delta
	if next < 0 {
		return domain.ErrInsufficientBalance
	}
	q.store.data.balances[key] = next
	return nil
}

func (q *memQueries) CreditCustody(ctx context.Context, itemID uint64, currency string, amount int64) error {
	defer q.lock()()
	d := q.store.data
	row, ok := d.custody[itemID]
	if !ok {
		d.custody[itemID] = &custodyRow{amount: amount, currency: currency}
		return nil
	}
	row.amount += amount
	return nil
}

func (q *memQueries) DebitCustody(ctx context.Context, itemID uint64, currency string, amount int64) error {
	defer q.lock()()
	row, ok := q.store.data.custody[itemID]
	if !ok || row.currency != currency || row.amount-amount < 0 {
		return domain.ErrCustodyExceeded
	}
	row.amount -= amount
	return nil
}

func (q *memQueries) GetCustody(ctx context.Context, itemID uint64) (int64, string, error) {
	defer q.lock()()
	row, ok := q.store.data.custody[itemID]
	if !ok {
		return 0, "", ErrNotFound
	}
	return row.amount, row.currency, nil
}

func (q *memQueries) CustodyTotals(ctx context.Context) (map[string]int64, error) {
	defer q.lock()()
	totals := make(map[string]int64)
	for _, row := range q.store.data.custody {
		totals[row.currency] += row.amount
	}
	return totals, nil
}

func (q *memQueries) InsertEntry(ctx context.Context, e *models.Entry) error {
	defer q.lock()()
	e.CreatedAt = time.Now()
	q.store.data.entries = append(q.store.data.entries, *e)
	return nil
}

func (q *memQueries) ListEntries(ctx context.Context, account string, limit, offset int) ([]models.Entry, error) {
	defer q.lock()()
	var matched []models.Entry
	for i := len(q.store.data.entries) - 1; i >= 0; i-- {
		e := q.store.data.entries[i]
		if e.Account == account {
			matched = append(matched, e)
		}
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (q *memQueries) UpsertToken(ctx context.Context, t *models.Token) error {
	defer q.lock()()
	d := q.store.data
	if existing, ok := d.tokens[t.Symbol]; ok {
		t.CreatedAt = existing.CreatedAt
	} else {
		t.CreatedAt = time.Now()
	}
	clone := *t
	d.tokens[t.Symbol] = &clone
	return nil
}

func (q *memQueries) GetToken(ctx context.Context, symbol string) (*models.Token, error) {
	defer q.lock()()
	t, ok := q.store.data.tokens[symbol]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *t
	return &clone, nil
}

func (q *memQueries) ListTokens(ctx context.Context) ([]models.Token, error) {
	defer q.lock()()
	var tokens []models.Token
	for _, t := range q.store.data.tokens {
		tokens = append(tokens, *t)
	}
	sort.Slice(tokens, func(i, j int) bool { return strings.Compare(tokens[i].Symbol, tokens[j].Symbol) < 0 })
	return tokens, nil
}

func (q *memQueries) GetSetting(ctx context.Context, key string) (string, error) {
	defer q.lock()()
	value, ok := q.store.data.settings[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (q *memQueries) SetSetting(ctx context.Context, key, value string) error {
	defer q.lock()()
	q.store.data.settings[key] = value
	return nil
}

func (q *memQueries) GetIdempotencyKey(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	defer q.lock()()
	rec, ok := q.store.data.idem[key]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *rec
	clone.Body = append([]byte(nil), rec.Body...)
	return &clone, nil
}

func (q *memQueries) ReserveIdempotencyKey(ctx context.Context, key, requestHash, method, path string) (bool, error) {
	defer q.lock()()
	d := q.store.data
	if _, ok := d.idem[key]; ok {
		return false, nil
	}
	d.idem[key] = &models.IdempotencyRecord{
		Key:         key,
		RequestHash: requestHash,
		Method:      method,
		Path:        path,
		InProgress:  true,
	}
	return true, nil
}

func (q *memQueries) FinalizeIdempotencyKey(ctx context.Context, key, requestHash string, status int, body []byte, contentType string) (*models.IdempotencyRecord, error) {
	defer q.lock()()
	rec, ok := q.store.data.idem[key]
	if !ok || rec.RequestHash != requestHash {
		return nil, ErrNotFound
	}
	rec.Status = status
	rec.Body = append([]byte(nil), body...)
	rec.ContentType = contentType
	rec.InProgress = false
	clone := *rec
	clone.Body = append([]byte(nil), rec.Body...)
	return &clone, nil
}
