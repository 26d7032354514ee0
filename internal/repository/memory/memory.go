// Package memory provides in-memory implementations of the repository
// interfaces. The engine test suite runs against this package; production
// wiring uses the GORM implementations instead.
//
// A single mutex serializes transactions, which gives the same per-order
// and per-product serialization the SQL backend gets from row locks and
// conditional updates.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txMarkerKey struct{}

// Store holds all in-memory state and hands out repository views of it.
type Store struct {
	mu        sync.Mutex
	products  map[uuid.UUID]*model.Product
	orders    map[uuid.UUID]*model.Order
	orderIDs  map[string]uuid.UUID // code -> id
	users     map[uuid.UUID]*model.User
	tokens    map[string]*model.RefreshToken
	audits    []model.AuditLog
	movements []model.StockMovement
	eventSeq  int64
}

func NewStore() *Store {
	return &Store{
		products: make(map[uuid.UUID]*model.Product),
		orders:   make(map[uuid.UUID]*model.Order),
		orderIDs: make(map[string]uuid.UUID),
		users:    make(map[uuid.UUID]*model.User),
		tokens:   make(map[string]*model.RefreshToken),
	}
}

// lock acquires the store mutex unless the context already runs inside a
// transaction, in which case RunInTx holds it.
func (s *Store) lock(ctx context.Context) func() {
	if ctx.Value(txMarkerKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) TxManager() repository.TransactionManager { return (*txManager)(s) }
func (s *Store) Products() repository.ProductRepository   { return (*productRepo)(s) }
func (s *Store) Orders() repository.OrderRepository       { return (*orderRepo)(s) }
func (s *Store) Users() repository.UserRepository         { return (*userRepo)(s) }
func (s *Store) Audits() repository.AuditRepository       { return (*auditRepo)(s) }

func (s *Store) StockMovements() repository.StockMovementRepository { return (*movementRepo)(s) }

// --- transaction manager ---

type txManager Store

// RunInTx serializes the whole operation under the store mutex. There is
// no rollback: callers compensate explicitly (the engine already does for
// stock), which the tests rely on.
func (t *txManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(context.WithValue(ctx, txMarkerKey{}, true))
}

// --- products ---

type productRepo Store

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	defer (*Store)(r).lock(ctx)()
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	product.CreatedAt = time.Now()
	cp := *product
	r.products[product.ID] = &cp
	return nil
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	defer (*Store)(r).lock(ctx)()
	p, ok := r.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *productRepo) FindBySKU(ctx context.Context, sku string) (*model.Product, error) {
	defer (*Store)(r).lock(ctx)()
	for _, p := range r.products {
		if p.SKU == sku {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *productRepo) List(ctx context.Context, page, limit int, search, category string) ([]model.Product, int64, error) {
	defer (*Store)(r).lock(ctx)()
	var all []model.Product
	for _, p := range r.products {
		if category != "" && p.Category != category {
			continue
		}
		all = append(all, *p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	total := int64(len(all))
	return paginate(all, page, limit), total, nil
}

func (r *productRepo) TrySettle(ctx context.Context, id uuid.UUID, quantity int) (bool, error) {
	defer (*Store)(r).lock(ctx)()
	p, ok := r.products[id]
	if !ok || p.Stock < quantity {
		return false, nil
	}
	p.Stock -= quantity
	return true, nil
}

func (r *productRepo) Restock(ctx context.Context, id uuid.UUID, quantity int) error {
	defer (*Store)(r).lock(ctx)()
	if p, ok := r.products[id]; ok {
		p.Stock += quantity
	}
	return nil
}

// --- orders ---

type orderRepo Store

func cloneOrder(o *model.Order) *model.Order {
	cp := *o
	cp.Items = append([]model.OrderItem(nil), o.Items...)
	cp.Timeline = append([]model.OrderStatusEvent(nil), o.Timeline...)
	return &cp
}

func (r *orderRepo) Create(ctx context.Context, order *model.Order) error {
	defer (*Store)(r).lock(ctx)()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	order.CreatedAt = time.Now()
	r.orders[order.ID] = cloneOrder(order)
	r.orderIDs[order.Code] = order.ID
	return nil
}

func (r *orderRepo) CreateItem(ctx context.Context, item *model.OrderItem) error {
	defer (*Store)(r).lock(ctx)()
	o, ok := r.orders[item.OrderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	o.Items = append(o.Items, *item)
	return nil
}

func (r *orderRepo) AppendEvent(ctx context.Context, event *model.OrderStatusEvent) error {
	defer (*Store)(r).lock(ctx)()
	o, ok := r.orders[event.OrderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	r.eventSeq++
	event.Seq = r.eventSeq
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	o.Timeline = append(o.Timeline, *event)
	return nil
}

func (r *orderRepo) FindByCode(ctx context.Context, code string) (*model.Order, error) {
	defer (*Store)(r).lock(ctx)()
	id, ok := r.orderIDs[code]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return cloneOrder(r.orders[id]), nil
}

// FindByCodeForUpdate behaves like FindByCode; exclusivity comes from the
// transaction mutex.
func (r *orderRepo) FindByCodeForUpdate(ctx context.Context, code string) (*model.Order, error) {
	return r.FindByCode(ctx, code)
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error {
	defer (*Store)(r).lock(ctx)()
	o, ok := r.orders[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	o.Status = status
	return nil
}

func (r *orderRepo) SetPaymentProof(ctx context.Context, id uuid.UUID, proofRef string) error {
	defer (*Store)(r).lock(ctx)()
	o, ok := r.orders[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	o.PaymentProofRef = proofRef
	return nil
}

func (r *orderRepo) List(ctx context.Context, page, limit int, status model.OrderStatus) ([]model.Order, int64, error) {
	defer (*Store)(r).lock(ctx)()
	var all []model.Order
	for _, o := range r.orders {
		if status != "" && o.Status != status {
			continue
		}
		all = append(all, *cloneOrder(o))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return paginate(all, page, limit), int64(len(all)), nil
}

func (r *orderRepo) ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]model.Order, int64, error) {
	defer (*Store)(r).lock(ctx)()
	var all []model.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			all = append(all, *cloneOrder(o))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return paginate(all, page, limit), int64(len(all)), nil
}

// --- users ---

type userRepo Store

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	defer (*Store)(r).lock(ctx)()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now()
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	defer (*Store)(r).lock(ctx)()
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	u, ok := r.users[uid]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	defer (*Store)(r).lock(ctx)()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *userRepo) List(ctx context.Context, page, limit int, role string) ([]model.User, int64, error) {
	defer (*Store)(r).lock(ctx)()
	var all []model.User
	for _, u := range r.users {
		if role != "" && u.Role != role {
			continue
		}
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return paginate(all, page, limit), int64(len(all)), nil
}

func (r *userRepo) Update(ctx context.Context, user *model.User) error {
	defer (*Store)(r).lock(ctx)()
	if _, ok := r.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *userRepo) CreateRefreshToken(ctx context.Context, token *model.RefreshToken) error {
	defer (*Store)(r).lock(ctx)()
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	cp := *token
	r.tokens[token.Token] = &cp
	return nil
}

func (r *userRepo) GetRefreshToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	defer (*Store)(r).lock(ctx)()
	rt, ok := r.tokens[token]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *rt
	return &cp, nil
}

func (r *userRepo) DeleteRefreshToken(ctx context.Context, token string) error {
	defer (*Store)(r).lock(ctx)()
	delete(r.tokens, token)
	return nil
}

// --- audit log ---

type auditRepo Store

func (r *auditRepo) Log(ctx context.Context, entry *model.AuditLog) error {
	defer (*Store)(r).lock(ctx)()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	r.audits = append(r.audits, *entry)
	return nil
}

func (r *auditRepo) List(ctx context.Context, page, limit int) ([]model.AuditLog, int64, error) {
	defer (*Store)(r).lock(ctx)()
	all := make([]model.AuditLog, len(r.audits))
	// most recent first
	for i, l := range r.audits {
		all[len(all)-1-i] = l
	}
	return paginate(all, page, limit), int64(len(all)), nil
}

// --- stock movements ---

type movementRepo Store

func (r *movementRepo) Create(ctx context.Context, movement *model.StockMovement) error {
	defer (*Store)(r).lock(ctx)()
	if movement.ID == uuid.Nil {
		movement.ID = uuid.New()
	}
	if movement.CreatedAt.IsZero() {
		movement.CreatedAt = time.Now()
	}
	r.movements = append(r.movements, *movement)
	return nil
}

func (r *movementRepo) ListByProduct(ctx context.Context, productID uuid.UUID, page, limit int) ([]model.StockMovement, int64, error) {
	defer (*Store)(r).lock(ctx)()
	var all []model.StockMovement
	for i := len(r.movements) - 1; i >= 0; i-- {
		if r.movements[i].ProductID == productID {
			all = append(all, r.movements[i])
		}
	}
	return paginate(all, page, limit), int64(len(all)), nil
}

func paginate[T any](all []T, page, limit int) []T {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	start := (page - 1) * limit
	if start >= len(all) {
		return nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}
