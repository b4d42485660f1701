package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pharaohsclub/treasury/internal/domain"
	"github.com/pharaohsclub/treasury/internal/models"
)

// MemoryStore is a map-backed Store used by tests and local development.
// RunInTx takes a snapshot of all state and restores it when fn fails, so
// the all-or-nothing contract holds without a database.
type MemoryStore struct {
	mu sync.Mutex

	accounts  map[uuid.UUID]models.Account
	profiles  map[uuid.UUID]models.Profile
	requests  map[uuid.UUID]models.TransactionRequest
	transfers map[uuid.UUID]models.EscrowTransfer
	loans     map[uuid.UUID]models.Loan
	audits    []AuditLogParams
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:  make(map[uuid.UUID]models.Account),
		profiles:  make(map[uuid.UUID]models.Profile),
		requests:  make(map[uuid.UUID]models.TransactionRequest),
		transfers: make(map[uuid.UUID]models.EscrowTransfer),
		loans:     make(map[uuid.UUID]models.Loan),
	}
}

func (s *MemoryStore) Queries() Querier {
	return &memQueries{store: s, lock: true}
}

// RunInTx holds the store lock for the whole unit so concurrent units
// serialize, matching the row-lock behavior of the SQL store closely
// enough for the services built on top.
func (s *MemoryStore) RunInTx(ctx context.Context, fn func(q Querier) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(&memQueries{store: s, lock: false}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type memSnapshot struct {
	accounts  map[uuid.UUID]models.Account
	profiles  map[uuid.UUID]models.Profile
	requests  map[uuid.UUID]models.TransactionRequest
	transfers map[uuid.UUID]models.EscrowTransfer
	loans     map[uuid.UUID]models.Loan
	audits    []AuditLogParams
}

func (s *MemoryStore) snapshot() memSnapshot {
	return memSnapshot{
		accounts:  cloneMap(s.accounts),
		profiles:  cloneMap(s.profiles),
		requests:  cloneMap(s.requests),
		transfers: cloneMap(s.transfers),
		loans:     cloneMap(s.loans),
		audits:    append([]AuditLogParams(nil), s.audits...),
	}
}

func (s *MemoryStore) restore(snap memSnapshot) {
	s.accounts = snap.accounts
	s.profiles = snap.profiles
	s.requests = snap.requests
	s.transfers = snap.transfers
	s.loans = snap.loans
	s.audits = snap.audits
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// AuditEntries returns a copy of all recorded audit entries, oldest first.
func (s *MemoryStore) AuditEntries() []AuditLogParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]AuditLogParams(nil), s.audits...)
}

// memQueries implements Querier against the shared maps. lock is false
// inside RunInTx, where the store mutex is already held.
type memQueries struct {
	store *MemoryStore
	lock  bool
}

func (q *memQueries) acquire() func() {
	if !q.lock {
		return func() {}
	}
	q.store.mu.Lock()
	return q.store.mu.Unlock
}

func (q *memQueries) CreateAccount(_ context.Context, account *models.Account) error {
	defer q.acquire()()
	account.CreatedAt = time.Now().UTC()
	q.store.accounts[account.UserID] = *account
	return nil
}

func (q *memQueries) GetAccount(_ context.Context, userID uuid.UUID) (*models.Account, error) {
	defer q.acquire()()
	account, ok := q.store.accounts[userID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &account, nil
}

func (q *memQueries) CreditBalance(_ context.Context, userID uuid.UUID, amount int64) (int64, error) {
	defer q.acquire()()
	account, ok := q.store.accounts[userID]
	if !ok {
		return 0, nil
	}
	account.Balance += amount
	q.store.accounts[userID] = account
	return 1, nil
}

func (q *memQueries) DebitBalance(_ context.Context, userID uuid.UUID, amount int64) (int64, error) {
	defer q.acquire()()
	account, ok := q.store.accounts[userID]
	if !ok || account.Balance < amount {
		return 0, nil
	}
	account.Balance -= amount
	q.store.accounts[userID] = account
	return 1, nil
}

func (q *memQueries) GetProfile(_ context.Context, userID uuid.UUID) (*models.Profile, error) {
	defer q.acquire()()
	profile, ok := q.store.profiles[userID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &profile, nil
}

func (q *memQueries) UpsertProfile(_ context.Context, profile *models.Profile) error {
	defer q.acquire()()
	q.store.profiles[profile.UserID] = *profile
	return nil
}

func (q *memQueries) InsertRequest(_ context.Context, req *models.TransactionRequest) error {
	defer q.acquire()()
	req.CreatedAt = time.Now().UTC()
	q.store.requests[req.ID] = *req
	return nil
}

func (q *memQueries) GetRequest(_ context.Context, id uuid.UUID) (*models.TransactionRequest, error) {
	defer q.acquire()()
	req, ok := q.store.requests[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &req, nil
}

func (q *memQueries) ListRequestsByUser(_ context.Context, userID uuid.UUID, limit, offset int32) ([]models.TransactionRequest, error) {
	defer q.acquire()()
	var out []models.TransactionRequest
	for _, req := range q.store.requests {
		if req.UserID == userID {
			out = append(out, req)
		}
	}
	sortRequests(out)
	return pageSlice(out, limit, offset), nil
}

func (q *memQueries) ListRequests(_ context.Context, p ListRequestsParams) ([]models.TransactionRequest, error) {
	defer q.acquire()()
	var out []models.TransactionRequest
	for _, req := range q.store.requests {
		if p.Kind != "" && req.Kind != p.Kind {
			continue
		}
		if p.Status != "" && req.Status != p.Status {
			continue
		}
		out = append(out, req)
	}
	sortRequests(out)
	return pageSlice(out, p.Limit, p.Offset), nil
}

func sortRequests(reqs []models.TransactionRequest) {
	sort.SliceStable(reqs, func(i, j int) bool {
		if !reqs[i].CreatedAt.Equal(reqs[j].CreatedAt) {
			return reqs[i].CreatedAt.After(reqs[j].CreatedAt)
		}
		return strings.Compare(reqs[i].ID.String(), reqs[j].ID.String()) < 0
	})
}

func pageSlice[T any](items []T, limit, offset int32) []T {
	if offset >= int32(len(items)) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < int32(len(items)) {
		items = items[:limit]
	}
	return items
}

func (q *memQueries) UpdateRequestStatus(_ context.Context, p UpdateRequestStatusParams) (int64, error) {
	defer q.acquire()()
	req, ok := q.store.requests[p.ID]
	if !ok || !containsRequestStatus(p.Expected, req.Status) {
		return 0, nil
	}
	req.Status = p.Status
	if p.Reason != "" {
		req.Reason = p.Reason
	}
	if p.Resolved {
		now := time.Now().UTC()
		req.ResolvedAt = &now
	}
	q.store.requests[p.ID] = req
	return 1, nil
}

func containsRequestStatus(set []domain.RequestStatus, st domain.RequestStatus) bool {
	for _, s := range set {
		if s == st {
			return true
		}
	}
	return false
}

func (q *memQueries) InsertTransfer(_ context.Context, tr *models.EscrowTransfer) error {
	defer q.acquire()()
	tr.CreatedAt = time.Now().UTC()
	q.store.transfers[tr.ID] = *tr
	return nil
}

func (q *memQueries) GetTransfer(_ context.Context, id uuid.UUID) (*models.EscrowTransfer, error) {
	defer q.acquire()()
	tr, ok := q.store.transfers[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &tr, nil
}

func (q *memQueries) ListTransfersByUser(_ context.Context, userID uuid.UUID, limit, offset int32) ([]models.EscrowTransfer, error) {
	defer q.acquire()()
	var out []models.EscrowTransfer
	for _, tr := range q.store.transfers {
		if tr.SenderID == userID || tr.RecipientID == userID {
			out = append(out, tr)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return pageSlice(out, limit, offset), nil
}

func (q *memQueries) UpdateTransferStatus(_ context.Context, p UpdateTransferStatusParams) (int64, error) {
	defer q.acquire()()
	tr, ok := q.store.transfers[p.ID]
	if !ok {
		return 0, nil
	}
	matched := false
	for _, st := range p.Expected {
		if tr.Status == st {
			matched = true
			break
		}
	}
	if !matched {
		return 0, nil
	}
	tr.Status = p.Status
	now := time.Now().UTC()
	tr.ResolvedAt = &now
	q.store.transfers[p.ID] = tr
	return 1, nil
}

func (q *memQueries) InsertLoan(_ context.Context, loan *models.Loan) error {
	defer q.acquire()()
	loan.CreatedAt = time.Now().UTC()
	q.store.loans[loan.ID] = *loan
	return nil
}

func (q *memQueries) ListLoansByUser(_ context.Context, userID uuid.UUID) ([]models.Loan, error) {
	defer q.acquire()()
	var out []models.Loan
	for _, loan := range q.store.loans {
		if loan.LenderID == userID || loan.BorrowerID == userID {
			out = append(out, loan)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (q *memQueries) InsertAuditLog(_ context.Context, p AuditLogParams) error {
	defer q.acquire()()
	if p.OccurredAt.IsZero() {
		p.OccurredAt = time.Now().UTC()
	}
	q.store.audits = append(q.store.audits, p)
	return nil
}

func (q *memQueries) MinAccountBalance(_ context.Context) (int64, error) {
	defer q.acquire()()
	var min int64
	first := true
	for _, account := range q.store.accounts {
		if first || account.Balance < min {
			min = account.Balance
			first = false
		}
	}
	return min, nil
}

func (q *memQueries) SumPendingWithdrawalHeld(_ context.Context) (int64, error) {
	defer q.acquire()()
	var sum int64
	for _, req := range q.store.requests {
		if req.Kind != domain.RequestWithdrawal {
			continue
		}
		if req.Status == domain.RequestPending || req.Status == domain.RequestSuspended {
			sum += req.Amount
		}
	}
	return sum, nil
}

func (q *memQueries) SumPendingTransferHeld(_ context.Context) (int64, error) {
	defer q.acquire()()
	var sum int64
	for _, tr := range q.store.transfers {
		if tr.Status == domain.TransferPending {
			sum += tr.Amount
		}
	}
	return sum, nil
}
