package pgrepo

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/spavnit/marketpay/internal/domain"
	"github.com/spavnit/marketpay/pkg/uow"
)

type BalanceRepository struct {
	db uow.DBTX
}

func NewBalanceRepository(db uow.DBTX) *BalanceRepository {
	return &BalanceRepository{db: db}
}

const balanceColumns = `user_id, created_at, updated_at, email, amount`

func (r *BalanceRepository) Create(
	ctx context.Context,
	userID int64,
	email string,
	amount decimal.Decimal,
) (*domain.Balance, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO balances (user_id, email, amount)
		VALUES ($1, $2, $3)
		RETURNING `+balanceColumns,
		userID, email, amount)

	balance, err := scanBalance(row)
	if err != nil {
		return nil, convertErr(err, "creating balance for user %d", userID)
	}
	return balance, nil
}

func (r *BalanceRepository) GetByUserID(ctx context.Context, userID int64) (*domain.Balance, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+balanceColumns+` FROM balances WHERE user_id = $1`, userID)

	balance, err := scanBalance(row)
	if err != nil {
		return nil, convertErr(err, "getting balance for user %d", userID)
	}
	return balance, nil
}

// GetByUserIDForUpdate читает строку баланса под блокировкой FOR UPDATE. Вызывать
// только внутри транзакции: блокировка сериализует конкурентные мутации по userID.
func (r *BalanceRepository) GetByUserIDForUpdate(ctx context.Context, userID int64) (*domain.Balance, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+balanceColumns+` FROM balances WHERE user_id = $1 FOR UPDATE`, userID)

	balance, err := scanBalance(row)
	if err != nil {
		return nil, convertErr(err, "locking balance for user %d", userID)
	}
	return balance, nil
}

func (r *BalanceRepository) UpdateAmount(
	ctx context.Context,
	userID int64,
	amount decimal.Decimal,
) (*domain.Balance, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE balances SET amount = $2, updated_at = now()
		WHERE user_id = $1
		RETURNING `+balanceColumns,
		userID, amount)

	balance, err := scanBalance(row)
	if err != nil {
		return nil, convertErr(err, "updating balance for user %d", userID)
	}
	return balance, nil
}

func (r *BalanceRepository) ExistsByUserID(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM balances WHERE user_id = $1)`, userID).Scan(&exists)
	if err != nil {
		return false, convertErr(err, "checking balance existence for user %d", userID)
	}
	return exists, nil
}

// GetAll возвращает все балансы, отсортированные по дате создания по убыванию.
func (r *BalanceRepository) GetAll(ctx context.Context) ([]domain.Balance, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+balanceColumns+` FROM balances ORDER BY created_at DESC`)
	if err != nil {
		return nil, convertErr(err, "getting all balances")
	}
	defer rows.Close()

	var balances []domain.Balance
	for rows.Next() {
		balance, scanErr := scanBalance(rows)
		if scanErr != nil {
			return nil, convertErr(scanErr, "scanning balance")
		}
		balances = append(balances, *balance)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, convertErr(rowsErr, "iterating balances")
	}
	return balances, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBalance(row rowScanner) (*domain.Balance, error) {
	var b domain.Balance
	if err := row.Scan(&b.UserID, &b.CreatedAt, &b.UpdatedAt, &b.Email, &b.Amount); err != nil {
		return nil, err
	}
	return &b, nil
}
