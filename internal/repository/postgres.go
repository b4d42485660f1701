package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pharaohsclub/treasury/internal/domain"
	"github.com/pharaohsclub/treasury/internal/models"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx so the same query
// set runs inside and outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgStore is the production Store backed by a pgx connection pool.
type PgStore struct {
	pool    *pgxpool.Pool
	queries *pgQueries
}

// NewPgStore creates a store wrapper around a pgx connection pool.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool, queries: &pgQueries{db: pool}}
}

// Queries returns the non-transactional query set.
func (s *PgStore) Queries() Querier {
	return s.queries
}

// RunInTx executes fn within a database transaction. Begin and commit
// failures surface as ErrTransactionAborted; fn errors roll back and
// pass through unchanged.
func (s *PgStore) RunInTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", models.ErrTransactionAborted, err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgQueries{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", models.ErrTransactionAborted, err)
	}
	return nil
}

type pgQueries struct {
	db DBTX
}

func (q *pgQueries) CreateAccount(ctx context.Context, account *models.Account) error {
	err := q.db.QueryRow(ctx,
		`INSERT INTO accounts (user_id, balance, created_at) VALUES ($1, $2, NOW()) RETURNING created_at`,
		account.UserID, account.Balance,
	).Scan(&account.CreatedAt)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (q *pgQueries) GetAccount(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	account := &models.Account{}
	err := q.db.QueryRow(ctx,
		`SELECT user_id, balance, created_at FROM accounts WHERE user_id = $1`,
		userID,
	).Scan(&account.UserID, &account.Balance, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

func (q *pgQueries) CreditBalance(ctx context.Context, userID uuid.UUID, amount int64) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE accounts SET balance = balance + $1 WHERE user_id = $2`,
		amount, userID,
	)
	if err != nil {
		return 0, fmt.Errorf("credit balance: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (q *pgQueries) DebitBalance(ctx context.Context, userID uuid.UUID, amount int64) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE accounts SET balance = balance - $1 WHERE user_id = $2 AND balance >= $1`,
		amount, userID,
	)
	if err != nil {
		return 0, fmt.Errorf("debit balance: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (q *pgQueries) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	profile := &models.Profile{}
	err := q.db.QueryRow(ctx,
		`SELECT user_id, display_name, photo_url FROM profiles WHERE user_id = $1`,
		userID,
	).Scan(&profile.UserID, &profile.DisplayName, &profile.PhotoURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return profile, nil
}

func (q *pgQueries) UpsertProfile(ctx context.Context, profile *models.Profile) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO profiles (user_id, display_name, photo_url)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET display_name = EXCLUDED.display_name, photo_url = EXCLUDED.photo_url`,
		profile.UserID, profile.DisplayName, profile.PhotoURL,
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (q *pgQueries) InsertRequest(ctx context.Context, req *models.TransactionRequest) error {
	err := q.db.QueryRow(ctx,
		`INSERT INTO transaction_requests (id, user_id, kind, amount, method, contact, status, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW()) RETURNING created_at`,
		req.ID, req.UserID, req.Kind, req.Amount, req.Method, req.Contact, req.Status, req.Reason,
	).Scan(&req.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

const requestColumns = `id, user_id, kind, amount, method, contact, status, reason, created_at, resolved_at`

func scanRequest(row pgx.Row) (*models.TransactionRequest, error) {
	req := &models.TransactionRequest{}
	var kind, method, status string
	err := row.Scan(&req.ID, &req.UserID, &kind, &req.Amount, &method, &req.Contact, &status, &req.Reason, &req.CreatedAt, &req.ResolvedAt)
	if err != nil {
		return nil, err
	}
	if req.Kind, err = domain.ParseRequestKind(kind); err != nil {
		return nil, err
	}
	if req.Method, err = domain.ParsePaymentMethod(method); err != nil {
		return nil, err
	}
	if req.Status, err = domain.ParseRequestStatus(status); err != nil {
		return nil, err
	}
	return req, nil
}

func (q *pgQueries) GetRequest(ctx context.Context, id uuid.UUID) (*models.TransactionRequest, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM transaction_requests WHERE id = $1`, id)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	return req, nil
}

func (q *pgQueries) ListRequestsByUser(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]models.TransactionRequest, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+requestColumns+` FROM transaction_requests
		 WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list requests by user: %w", err)
	}
	return collectRequests(rows)
}

func (q *pgQueries) ListRequests(ctx context.Context, p ListRequestsParams) ([]models.TransactionRequest, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+requestColumns+` FROM transaction_requests
		 WHERE ($1 = '' OR kind = $1) AND ($2 = '' OR status = $2)
		 ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		string(p.Kind), string(p.Status), p.Limit, p.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return collectRequests(rows)
}

func collectRequests(rows pgx.Rows) ([]models.TransactionRequest, error) {
	defer rows.Close()
	var out []models.TransactionRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}

func (q *pgQueries) UpdateRequestStatus(ctx context.Context, p UpdateRequestStatusParams) (int64, error) {
	expected := make([]string, len(p.Expected))
	for i, st := range p.Expected {
		expected[i] = string(st)
	}
	tag, err := q.db.Exec(ctx,
		`UPDATE transaction_requests
		 SET status = $2,
		     reason = CASE WHEN $3 <> '' THEN $3 ELSE reason END,
		     resolved_at = CASE WHEN $4 THEN NOW() ELSE resolved_at END
		 WHERE id = $1 AND status = ANY($5)`,
		p.ID, p.Status, p.Reason, p.Resolved, expected,
	)
	if err != nil {
		return 0, fmt.Errorf("update request status: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (q *pgQueries) InsertTransfer(ctx context.Context, tr *models.EscrowTransfer) error {
	err := q.db.QueryRow(ctx,
		`INSERT INTO escrow_transfers (id, kind, sender_id, recipient_id, amount, status, due_date, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW()) RETURNING created_at`,
		tr.ID, tr.Kind, tr.SenderID, tr.RecipientID, tr.Amount, tr.Status, tr.DueDate,
	).Scan(&tr.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

const transferColumns = `id, kind, sender_id, recipient_id, amount, status, due_date, created_at, resolved_at`

func scanTransfer(row pgx.Row) (*models.EscrowTransfer, error) {
	tr := &models.EscrowTransfer{}
	var kind, status string
	err := row.Scan(&tr.ID, &kind, &tr.SenderID, &tr.RecipientID, &tr.Amount, &status, &tr.DueDate, &tr.CreatedAt, &tr.ResolvedAt)
	if err != nil {
		return nil, err
	}
	if tr.Kind, err = domain.ParseTransferKind(kind); err != nil {
		return nil, err
	}
	if tr.Status, err = domain.ParseTransferStatus(status); err != nil {
		return nil, err
	}
	return tr, nil
}

func (q *pgQueries) GetTransfer(ctx context.Context, id uuid.UUID) (*models.EscrowTransfer, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+transferColumns+` FROM escrow_transfers WHERE id = $1`, id)
	tr, err := scanTransfer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("get transfer: %w", err)
	}
	return tr, nil
}

func (q *pgQueries) ListTransfersByUser(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]models.EscrowTransfer, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+transferColumns+` FROM escrow_transfers
		 WHERE sender_id = $1 OR recipient_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list transfers by user: %w", err)
	}
	defer rows.Close()
	var out []models.EscrowTransfer
	for rows.Next() {
		tr, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		out = append(out, *tr)
	}
	return out, rows.Err()
}

func (q *pgQueries) UpdateTransferStatus(ctx context.Context, p UpdateTransferStatusParams) (int64, error) {
	expected := make([]string, len(p.Expected))
	for i, st := range p.Expected {
		expected[i] = string(st)
	}
	tag, err := q.db.Exec(ctx,
		`UPDATE escrow_transfers SET status = $2, resolved_at = NOW()
		 WHERE id = $1 AND status = ANY($3)`,
		p.ID, p.Status, expected,
	)
	if err != nil {
		return 0, fmt.Errorf("update transfer status: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (q *pgQueries) InsertLoan(ctx context.Context, loan *models.Loan) error {
	err := q.db.QueryRow(ctx,
		`INSERT INTO loans (id, transfer_id, lender_id, borrower_id, amount, due_date, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW()) RETURNING created_at`,
		loan.ID, loan.TransferID, loan.LenderID, loan.BorrowerID, loan.Amount, loan.DueDate, loan.Status,
	).Scan(&loan.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert loan: %w", err)
	}
	return nil
}

func (q *pgQueries) ListLoansByUser(ctx context.Context, userID uuid.UUID) ([]models.Loan, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, transfer_id, lender_id, borrower_id, amount, due_date, status, created_at
		 FROM loans WHERE lender_id = $1 OR borrower_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list loans by user: %w", err)
	}
	defer rows.Close()
	var out []models.Loan
	for rows.Next() {
		var loan models.Loan
		var status string
		if err := rows.Scan(&loan.ID, &loan.TransferID, &loan.LenderID, &loan.BorrowerID, &loan.Amount, &loan.DueDate, &status, &loan.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		if loan.Status, err = domain.ParseLoanStatus(status); err != nil {
			return nil, err
		}
		out = append(out, loan)
	}
	return out, rows.Err()
}

func (q *pgQueries) InsertAuditLog(ctx context.Context, p AuditLogParams) error {
	var actor any
	if p.ActorID != nil {
		actor = *p.ActorID
	}
	_, err := q.db.Exec(ctx,
		`INSERT INTO audit_log (entity_type, entity_id, actor_id, action, prev_state, next_state, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		p.EntityType, p.EntityID, actor, p.Action, p.PrevState, p.NextState,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func (q *pgQueries) MinAccountBalance(ctx context.Context) (int64, error) {
	var min int64
	err := q.db.QueryRow(ctx, `SELECT COALESCE(MIN(balance), 0) FROM accounts`).Scan(&min)
	if err != nil {
		return 0, fmt.Errorf("min account balance: %w", err)
	}
	return min, nil
}

func (q *pgQueries) SumPendingWithdrawalHeld(ctx context.Context) (int64, error) {
	var sum int64
	err := q.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM transaction_requests
		 WHERE kind = $1 AND status IN ($2, $3)`,
		domain.RequestWithdrawal, domain.RequestPending, domain.RequestSuspended,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum pending withdrawal held: %w", err)
	}
	return sum, nil
}

func (q *pgQueries) SumPendingTransferHeld(ctx context.Context) (int64, error) {
	var sum int64
	err := q.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM escrow_transfers WHERE status = $1`,
		domain.TransferPending,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum pending transfer held: %w", err)
	}
	return sum, nil
}
