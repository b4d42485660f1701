package repository

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/pharaohsclub/treasury/internal/domain"
	"github.com/pharaohsclub/treasury/internal/models"
)

// setupTestDB connects to the Postgres instance named by DATABASE_URL
// and resets the schema. Tests are skipped when no database is
// configured.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres integration tests")
	}
	db, err := pgxpool.New(context.Background(), connString)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}
	t.Cleanup(db.Close)

	for _, table := range []string{"audit_log", "loans", "escrow_transfers", "transaction_requests", "profiles", "accounts"} {
		stmt := fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)
		if _, err := db.Exec(context.Background(), stmt); err != nil {
			t.Fatalf("Failed to truncate %s: %v", table, err)
		}
	}
	return db
}

func TestPgStoreAccountLifecycle(t *testing.T) {
	db := setupTestDB(t)
	store := NewPgStore(db)
	ctx := context.Background()

	userID := uuid.New()
	require.NoError(t, store.Queries().CreateAccount(ctx, &models.Account{UserID: userID}))

	rows, err := store.Queries().CreditBalance(ctx, userID, 500)
	require.NoError(t, err)
	require.Equal(t, int64(1), rows)

	rows, err = store.Queries().DebitBalance(ctx, userID, 501)
	require.NoError(t, err)
	require.Zero(t, rows)

	rows, err = store.Queries().DebitBalance(ctx, userID, 500)
	require.NoError(t, err)
	require.Equal(t, int64(1), rows)

	account, err := store.Queries().GetAccount(ctx, userID)
	require.NoError(t, err)
	require.Zero(t, account.Balance)

	_, err = store.Queries().GetAccount(ctx, uuid.New())
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestPgStoreRunInTxRollsBack(t *testing.T) {
	db := setupTestDB(t)
	store := NewPgStore(db)
	ctx := context.Background()

	userID := uuid.New()
	require.NoError(t, store.Queries().CreateAccount(ctx, &models.Account{UserID: userID, Balance: 1000}))

	err := store.RunInTx(ctx, func(q Querier) error {
		if _, err := q.DebitBalance(ctx, userID, 400); err != nil {
			return err
		}
		return fmt.Errorf("forced failure")
	})
	require.Error(t, err)

	account, err := store.Queries().GetAccount(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, int64(1000), account.Balance)
}

func TestPgStoreRequestStatusCAS(t *testing.T) {
	db := setupTestDB(t)
	store := NewPgStore(db)
	ctx := context.Background()

	userID := uuid.New()
	require.NoError(t, store.Queries().CreateAccount(ctx, &models.Account{UserID: userID, Balance: 1000}))

	req := &models.TransactionRequest{
		ID:      uuid.New(),
		UserID:  userID,
		Kind:    domain.RequestWithdrawal,
		Amount:  500,
		Method:  domain.MethodVodafoneCash,
		Contact: "01012345678",
		Status:  domain.RequestPending,
	}
	require.NoError(t, store.Queries().InsertRequest(ctx, req))

	rows, err := store.Queries().UpdateRequestStatus(ctx, UpdateRequestStatusParams{
		ID:       req.ID,
		Status:   domain.RequestCompleted,
		Resolved: true,
		Expected: []domain.RequestStatus{domain.RequestPending, domain.RequestSuspended},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), rows)

	rows, err = store.Queries().UpdateRequestStatus(ctx, UpdateRequestStatusParams{
		ID:       req.ID,
		Status:   domain.RequestRejected,
		Resolved: true,
		Expected: []domain.RequestStatus{domain.RequestPending, domain.RequestSuspended},
	})
	require.NoError(t, err)
	require.Zero(t, rows)

	got, err := store.Queries().GetRequest(ctx, req.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RequestCompleted, got.Status)
	require.NotNil(t, got.ResolvedAt)
}

func TestPgStoreTransferAndLoan(t *testing.T) {
	db := setupTestDB(t)
	store := NewPgStore(db)
	ctx := context.Background()

	sender := uuid.New()
	recipient := uuid.New()
	require.NoError(t, store.Queries().CreateAccount(ctx, &models.Account{UserID: sender, Balance: 1000}))
	require.NoError(t, store.Queries().CreateAccount(ctx, &models.Account{UserID: recipient}))

	tr := &models.EscrowTransfer{
		ID:          uuid.New(),
		Kind:        domain.TransferLoan,
		SenderID:    sender,
		RecipientID: recipient,
		Amount:      300,
		Status:      domain.TransferPending,
	}
	require.NoError(t, store.Queries().InsertTransfer(ctx, tr))

	rows, err := store.Queries().UpdateTransferStatus(ctx, UpdateTransferStatusParams{
		ID:       tr.ID,
		Status:   domain.TransferAccepted,
		Expected: []domain.TransferStatus{domain.TransferPending},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), rows)

	loan := &models.Loan{
		ID:         uuid.New(),
		TransferID: tr.ID,
		LenderID:   sender,
		BorrowerID: recipient,
		Amount:     300,
		Status:     domain.LoanActive,
	}
	require.NoError(t, store.Queries().InsertLoan(ctx, loan))

	loans, err := store.Queries().ListLoansByUser(ctx, recipient)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	require.Equal(t, domain.LoanActive, loans[0].Status)

	transfers, err := store.Queries().ListTransfersByUser(ctx, sender, 10, 0)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	require.Equal(t, domain.TransferAccepted, transfers[0].Status)
}
