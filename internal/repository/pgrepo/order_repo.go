package pgrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spavnit/marketpay/internal/domain"
	"github.com/spavnit/marketpay/internal/repository/repoargs"
	"github.com/spavnit/marketpay/pkg/uow"
)

type OrderRepository struct {
	db uow.DBTX
}

func NewOrderRepository(db uow.DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, created_at, updated_at, user_id, email, status, total_price,
	paid_at, cancelled_at, cancellation_reason, cancelled_by`

const orderItemColumns = `id, order_id, product_id, product_name, product_price,
	category, quantity, download_link, added_at`

// Create вставляет заказ вместе с позициями. Вызывать внутри uow-транзакции,
// чтобы заказ и позиции коммитились атомарно.
func (r *OrderRepository) Create(ctx context.Context, args repoargs.OrderCreate) (*domain.Order, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO orders (user_id, email, status, total_price)
		VALUES ($1, $2, $3, $4)
		RETURNING `+orderColumns,
		args.UserID, args.Email, domain.OrderStatusCreated, args.TotalPrice)

	order, err := scanOrder(row)
	if err != nil {
		return nil, convertErr(err, "creating order for user %d", args.UserID)
	}

	batch := new(pgx.Batch)
	for _, item := range args.Items {
		batch.Queue(`
			INSERT INTO order_items (order_id, product_id, product_name, product_price, category, quantity)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+orderItemColumns,
			order.ID, item.ProductID, item.ProductName, item.ProductPrice, item.Category, item.Quantity)
	}

	results := r.db.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	order.Items = make([]domain.OrderItem, 0, len(args.Items))
	for range args.Items {
		item, itemErr := scanOrderItem(results.QueryRow())
		if itemErr != nil {
			return nil, convertErr(itemErr, "creating items for order %d", order.ID)
		}
		order.Items = append(order.Items, *item)
	}

	return order, nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)

	order, err := scanOrder(row)
	if err != nil {
		return nil, convertErr(err, "getting order %d", id)
	}

	items, itemsErr := r.getItems(ctx, order.ID)
	if itemsErr != nil {
		return nil, itemsErr
	}
	order.Items = items
	return order, nil
}

// GetByIDForUpdate читает заказ (с позициями) под блокировкой FOR UPDATE. Вызывать
// только внутри транзакции: блокировка сериализует конкурентные переходы статуса.
func (r *OrderRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Order, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)

	order, err := scanOrder(row)
	if err != nil {
		return nil, convertErr(err, "locking order %d", id)
	}

	items, itemsErr := r.getItems(ctx, order.ID)
	if itemsErr != nil {
		return nil, itemsErr
	}
	order.Items = items
	return order, nil
}

// GetByEmail возвращает заказы юзера (с позициями), отсортированные по дате создания по убыванию.
func (r *OrderRepository) GetByEmail(ctx context.Context, email string) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE email = $1 ORDER BY created_at DESC`, email)
	if err != nil {
		return nil, convertErr(err, "getting orders for email %s", email)
	}
	return r.collectOrdersWithItems(ctx, rows)
}

func (r *OrderRepository) GetAll(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, convertErr(err, "getting all orders")
	}
	return r.collectOrdersWithItems(ctx, rows)
}

// MarkPaid условный переход CREATED -> PAID. Заказ в другом статусе не
// затрагивается, возвращается domain.ErrInvalidOrderStatus.
func (r *OrderRepository) MarkPaid(ctx context.Context, id int64, paidAt time.Time) (*domain.Order, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE orders SET status = $2, paid_at = $3, updated_at = now()
		WHERE id = $1 AND status = $4
		RETURNING `+orderColumns,
		id, domain.OrderStatusPaid, paidAt, domain.OrderStatusCreated)

	order, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("marking order %d paid: %w", id, domain.ErrInvalidOrderStatus)
	}
	if err != nil {
		return nil, convertErr(err, "marking order %d paid", id)
	}
	return order, nil
}

// MarkCancelled условный переход в CANCELLED из любого нетерминального статуса.
// Уже отмененный заказ не перезаписывается, возвращается domain.ErrInvalidOrderStatus.
func (r *OrderRepository) MarkCancelled(ctx context.Context, args repoargs.OrderCancel) (*domain.Order, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE orders
		SET status = $2, cancelled_at = now(), cancellation_reason = $3, cancelled_by = $4, updated_at = now()
		WHERE id = $1 AND status <> $2
		RETURNING `+orderColumns,
		args.ID, domain.OrderStatusCancelled, args.Reason, args.CancelledBy)

	order, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("cancelling order %d: %w", args.ID, domain.ErrInvalidOrderStatus)
	}
	if err != nil {
		return nil, convertErr(err, "cancelling order %d", args.ID)
	}
	return order, nil
}

func (r *OrderRepository) UpdateItemDownloadLink(ctx context.Context, itemID int64, link string) error {
	if _, err := r.db.Exec(ctx, `
		UPDATE order_items SET download_link = $2 WHERE id = $1`, itemID, link); err != nil {
		return convertErr(err, "updating download link for item %d", itemID)
	}
	return nil
}

// SetPaymentMarker фиксирует локальную отметку шага оплаты для заказа. Отметка pending
// переживает падение сервиса между списанием в леджере и переводом заказа в PAID.
func (r *OrderRepository) SetPaymentMarker(
	ctx context.Context,
	orderID int64,
	state domain.PaymentMarkerState,
) error {
	if _, err := r.db.Exec(ctx, `
		INSERT INTO payment_markers (order_id, state)
		VALUES ($1, $2)
		ON CONFLICT (order_id) DO UPDATE SET state = EXCLUDED.state, updated_at = now()`,
		orderID, state); err != nil {
		return convertErr(err, "setting payment marker for order %d", orderID)
	}
	return nil
}

func (r *OrderRepository) getItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+orderItemColumns+` FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, convertErr(err, "getting items for order %d", orderID)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		item, scanErr := scanOrderItem(rows)
		if scanErr != nil {
			return nil, convertErr(scanErr, "scanning order item")
		}
		items = append(items, *item)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, convertErr(rowsErr, "iterating order items")
	}
	return items, nil
}

func (r *OrderRepository) collectOrdersWithItems(ctx context.Context, rows pgx.Rows) ([]domain.Order, error) {
	var orders []domain.Order
	for rows.Next() {
		order, scanErr := scanOrder(rows)
		if scanErr != nil {
			rows.Close()
			return nil, convertErr(scanErr, "scanning order")
		}
		orders = append(orders, *order)
	}
	rows.Close()
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, convertErr(rowsErr, "iterating orders")
	}

	for i := range orders {
		items, itemsErr := r.getItems(ctx, orders[i].ID)
		if itemsErr != nil {
			return nil, itemsErr
		}
		orders[i].Items = items
	}
	return orders, nil
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	if err := row.Scan(
		&o.ID, &o.CreatedAt, &o.UpdatedAt, &o.UserID, &o.Email, &o.Status, &o.TotalPrice,
		&o.PaidAt, &o.CancelledAt, &o.CancellationReason, &o.CancelledBy,
	); err != nil {
		return nil, err
	}
	return &o, nil
}

func scanOrderItem(row rowScanner) (*domain.OrderItem, error) {
	var i domain.OrderItem
	if err := row.Scan(
		&i.ID, &i.OrderID, &i.ProductID, &i.ProductName, &i.ProductPrice,
		&i.Category, &i.Quantity, &i.DownloadLink, &i.AddedAt,
	); err != nil {
		return nil, err
	}
	return &i, nil
}
