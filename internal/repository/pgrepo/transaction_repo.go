package pgrepo

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spavnit/marketpay/internal/domain"
	"github.com/spavnit/marketpay/internal/repository/repoargs"
	"github.com/spavnit/marketpay/pkg/uow"
)

type TransactionRepository struct {
	db uow.DBTX
}

func NewTransactionRepository(db uow.DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `id, created_at, user_id, email, type, amount,
	balance_before, balance_after, order_id, description`

func (r *TransactionRepository) Create(
	ctx context.Context,
	args repoargs.TransactionCreate,
) (*domain.Transaction, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO transactions
			(user_id, email, type, amount, balance_before, balance_after, order_id, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+transactionColumns,
		args.UserID, args.Email, args.Type, args.Amount,
		args.BalanceBefore, args.BalanceAfter, args.OrderID, args.Description)

	transaction, err := scanTransaction(row)
	if err != nil {
		return nil, convertErr(err, "creating %s transaction for user %d", args.Type, args.UserID)
	}
	return transaction, nil
}

// ExistsDebitForOrder проверяет, было ли уже зарегистрировано списание с данным orderID.
// Используется внутри заблокированной секции debit для отсечения повторных списаний.
func (r *TransactionRepository) ExistsDebitForOrder(ctx context.Context, orderID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM transactions WHERE type = $1 AND order_id = $2)`,
		domain.TransactionTypeDebit, orderID).Scan(&exists)
	if err != nil {
		return false, convertErr(err, "checking debit existence for order %d", orderID)
	}
	return exists, nil
}

// GetByUserID возвращает журнал операций юзера, отсортированный по дате создания по убыванию.
func (r *TransactionRepository) GetByUserID(ctx context.Context, userID int64) ([]domain.Transaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, convertErr(err, "getting transactions for user %d", userID)
	}
	return collectTransactions(rows)
}

func (r *TransactionRepository) GetAll(ctx context.Context) ([]domain.Transaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+transactionColumns+` FROM transactions ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, convertErr(err, "getting all transactions")
	}
	return collectTransactions(rows)
}

func collectTransactions(rows pgx.Rows) ([]domain.Transaction, error) {
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		transaction, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, convertErr(scanErr, "scanning transaction")
		}
		transactions = append(transactions, *transaction)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, convertErr(rowsErr, "iterating transactions")
	}
	return transactions, nil
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var t domain.Transaction
	if err := row.Scan(
		&t.ID, &t.CreatedAt, &t.UserID, &t.Email, &t.Type, &t.Amount,
		&t.BalanceBefore, &t.BalanceAfter, &t.OrderID, &t.Description,
	); err != nil {
		return nil, err
	}
	return &t, nil
}
