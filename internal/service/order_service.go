package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/spavnit/marketpay/internal/domain"
	"github.com/spavnit/marketpay/internal/events"
	"github.com/spavnit/marketpay/internal/repository/repoargs"
	"github.com/spavnit/marketpay/pkg/uow"
)

// OrderService оркестратор саги оплаты заказа. Владеет сущностью заказа и его
// машиной состояний; леджер, корзину и каталог вызывает синхронно, факты о
// заказах публикует в шину.
//
// Машина состояний монотонна: CREATED -> {PAID, CANCELLED}; PAID -> CANCELLED;
// CANCELLED терминален.
type OrderService struct {
	uow       uow.UOW
	orderRepo OrderRepository
	cart      CartClient
	catalog   CatalogClient
	ledger    LedgerClient
	publisher EventPublisher
	l         *logrus.Entry
}

type OrderServiceArgs struct {
	UOW       uow.UOW
	Cart      CartClient
	Catalog   CatalogClient
	Ledger    LedgerClient
	Publisher EventPublisher
	Logger    *logrus.Logger
}

func NewOrderService(args OrderServiceArgs) (*OrderService, error) {
	orderRepo, orderRepoErr := uow.GetRepositoryAs[OrderRepository](
		args.UOW, uow.RepositoryName(repoargs.OrderRepoName))
	if orderRepoErr != nil {
		return nil, orderRepoErr
	}
	return &OrderService{
		uow:       args.UOW,
		orderRepo: orderRepo,
		cart:      args.Cart,
		catalog:   args.Catalog,
		ledger:    args.Ledger,
		publisher: args.Publisher,
		l:         args.Logger.WithField("component", "orders"),
	}, nil
}

// Create создает заказ из текущего снимка корзины. Позиции и итоговая сумма
// фиксируются на момент создания и дальше не пересчитываются из каталога.
// Сама корзина на этом шаге не трогается. Возвращает domain.ErrEmptyCart,
// если корзина пуста.
func (s *OrderService) Create(ctx context.Context, userID int64, email, token string) (*domain.Order, error) {
	cart, cartErr := s.cart.Get(ctx, token)
	if cartErr != nil {
		return nil, fmt.Errorf("creating order: %w", cartErr)
	}
	if len(cart.Items) == 0 {
		return nil, domain.ErrEmptyCart
	}

	items := make([]repoargs.OrderItemCreate, len(cart.Items))
	totalPrice := decimal.Zero
	for i, cartItem := range cart.Items {
		items[i] = repoargs.OrderItemCreate{
			ProductID:    cartItem.ProductID,
			ProductName:  cartItem.ProductName,
			ProductPrice: cartItem.ProductPrice,
			Category:     cartItem.ProductCategory,
			Quantity:     cartItem.Quantity,
		}
		totalPrice = totalPrice.Add(cartItem.ProductPrice.Mul(decimal.NewFromInt32(cartItem.Quantity)))
	}

	var order *domain.Order
	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		repo, repoErr := uow.GetAs[OrderRepository](tx, uow.RepositoryName(repoargs.OrderRepoName))
		if repoErr != nil {
			return repoErr //nolint:wrapcheck
		}
		var createErr error
		order, createErr = repo.Create(c, repoargs.OrderCreate{
			UserID:     userID,
			Email:      email,
			TotalPrice: totalPrice,
			Items:      items,
		})
		return createErr //nolint:wrapcheck
	})
	if txErr != nil {
		return nil, fmt.Errorf("creating order: %w", txErr)
	}

	s.l.WithFields(logrus.Fields{
		"orderID":    order.ID,
		"totalPrice": order.TotalPrice,
	}).Info("order created")

	s.publishOrderCreated(ctx, order)
	return order, nil
}

// Pay оплачивает заказ. Шаги:
//  1. проверки: заказ существует, принадлежит вызывающему (несовпадение владельца
//     намеренно отдается как ErrOrderNotFound), статус CREATED;
//  2. коммитится локальная отметка pending шага оплаты;
//  3. синхронный debit в леджере с orderID в роли корреляционного идентификатора.
//     Любая ошибка, кроме ErrDuplicateDebit, оставляет заказ в CREATED и
//     возвращается как PaymentFailedError. ErrDuplicateDebit означает, что
//     предыдущая попытка уже списала средства - повторный вызов достраивает сагу;
//  4. заказ переводится в PAID, отметка - в committed, одной транзакцией;
//  5. best effort: ссылки на скачивание, факт order-paid, очистка корзины.
//     Ошибки этих шагов логируются и не откатывают уже совершенный платеж.
func (s *OrderService) Pay(ctx context.Context, orderID int64, email, token string) (*domain.Order, error) {
	order, getErr := s.ownedOrder(ctx, orderID, email)
	if getErr != nil {
		return nil, getErr
	}

	switch order.Status {
	case domain.OrderStatusPaid:
		return nil, fmt.Errorf("order %d is already paid: %w", orderID, domain.ErrInvalidOrderStatus)
	case domain.OrderStatusCancelled:
		return nil, fmt.Errorf("order %d is cancelled: %w", orderID, domain.ErrInvalidOrderStatus)
	case domain.OrderStatusCreated:
	}

	if markerErr := s.orderRepo.SetPaymentMarker(ctx, orderID, domain.PaymentMarkerPending); markerErr != nil {
		return nil, fmt.Errorf("paying order %d: %w", orderID, markerErr)
	}

	description := fmt.Sprintf("payment for order #%d", orderID)
	debitErr := s.ledger.Debit(ctx, token, order.TotalPrice, orderID, description)
	switch {
	case debitErr == nil:
	case errors.Is(debitErr, domain.ErrDuplicateDebit):
		// Средства уже были списаны предыдущей попыткой; достраиваем сагу.
		s.l.WithField("orderID", orderID).Warn("debit already registered, completing previous payment attempt")
	default:
		return nil, domain.NewPaymentFailedError(orderID, debitErr)
	}

	var paid *domain.Order
	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		repo, repoErr := uow.GetAs[OrderRepository](tx, uow.RepositoryName(repoargs.OrderRepoName))
		if repoErr != nil {
			return repoErr //nolint:wrapcheck
		}
		var markErr error
		paid, markErr = repo.MarkPaid(c, orderID, time.Now())
		if markErr != nil {
			return markErr //nolint:wrapcheck
		}
		return repo.SetPaymentMarker(c, orderID, domain.PaymentMarkerCommitted) //nolint:wrapcheck
	})
	if txErr != nil {
		// Деньги уже списаны. Если заказ остался в CREATED с отметкой pending,
		// повторный вызов Pay дойдет до леджера, получит ErrDuplicateDebit
		// и доведет заказ до PAID без второго списания. Если заказ успели
		// конкурентно отменить, MarkPaid его не перезапишет и вернет
		// ErrInvalidOrderStatus.
		return nil, fmt.Errorf("marking order %d paid after successful debit: %w", orderID, txErr)
	}
	paid.Items = order.Items

	s.l.WithField("orderID", orderID).Info("order paid")

	s.resolveDownloadLinks(ctx, paid)
	s.publishOrderPaid(ctx, paid)

	if clearErr := s.cart.Clear(ctx, token); clearErr != nil {
		// Платеж уже совершен и необратим, ошибку очистки не поднимаем.
		s.l.WithError(clearErr).WithField("orderID", orderID).Error("clearing cart after payment")
	}

	return paid, nil
}

// Cancel отменяет заказ (только администратор, причина обязательна).
// Проверка статуса и переход выполняются в одной транзакции под блокировкой
// строки заказа: конкурентная отмена дождется коммита, увидит CANCELLED и
// второго возврата не сделает. Отмена из CREATED не трогает леджер - средства
// не списывались. Отмена из PAID сначала делает refund; если возврат не прошел,
// транзакция откатывается и заказ остается PAID - отмена и возврат не должны
// разъехаться. CANCELLED повторно не отменяется.
func (s *OrderService) Cancel(
	ctx context.Context,
	orderID int64,
	adminEmail, reason, token string,
) (*domain.Order, error) {
	var cancelled *domain.Order
	refunded := false

	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		repo, repoErr := uow.GetAs[OrderRepository](tx, uow.RepositoryName(repoargs.OrderRepoName))
		if repoErr != nil {
			return repoErr //nolint:wrapcheck
		}

		order, getErr := repo.GetByIDForUpdate(c, orderID)
		if getErr != nil {
			return convertNotFound(getErr, domain.ErrOrderNotFound)
		}

		if order.Status == domain.OrderStatusCancelled {
			return fmt.Errorf("order %d is already cancelled: %w", orderID, domain.ErrInvalidOrderStatus)
		}

		if order.Status == domain.OrderStatusPaid {
			description := fmt.Sprintf("refund for order #%d", orderID)
			refundErr := s.ledger.Refund(c, token, order.UserID, order.TotalPrice, orderID, description)
			if refundErr != nil {
				return fmt.Errorf("refunding order %d before cancellation: %w", orderID, refundErr)
			}
			refunded = true
		}

		var cancelErr error
		cancelled, cancelErr = repo.MarkCancelled(c, repoargs.OrderCancel{
			ID:          orderID,
			Reason:      reason,
			CancelledBy: adminEmail,
		})
		if cancelErr != nil {
			return cancelErr //nolint:wrapcheck
		}
		cancelled.Items = order.Items
		return nil
	})
	if txErr != nil {
		return nil, fmt.Errorf("cancelling order %d: %w", orderID, txErr)
	}

	s.l.WithFields(logrus.Fields{
		"orderID":     orderID,
		"cancelledBy": adminEmail,
		"refunded":    refunded,
	}).Info("order cancelled")

	s.publishOrderCancelled(ctx, cancelled, refunded)
	return cancelled, nil
}

// GetByID возвращает заказ владельца. Чужой заказ отдается как ErrOrderNotFound.
func (s *OrderService) GetByID(ctx context.Context, orderID int64, email string) (*domain.Order, error) {
	return s.ownedOrder(ctx, orderID, email)
}

// GetByEmail возвращает заказы юзера от новых к старым.
func (s *OrderService) GetByEmail(ctx context.Context, email string) ([]domain.Order, error) {
	orders, err := s.orderRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return orders, nil
}

// GetAll все заказы, только для администратора.
func (s *OrderService) GetAll(ctx context.Context) ([]domain.Order, error) {
	orders, err := s.orderRepo.GetAll(ctx)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return orders, nil
}

func (s *OrderService) ownedOrder(ctx context.Context, orderID int64, email string) (*domain.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, convertNotFound(err, domain.ErrOrderNotFound)
	}
	if order.Email != email {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

// resolveDownloadLinks подтягивает ссылки на скачивание для позиций оплаченного
// заказа. Каждая неудача логируется и оставляет ссылку пустой - оплата уже прошла.
func (s *OrderService) resolveDownloadLinks(ctx context.Context, order *domain.Order) {
	for i := range order.Items {
		item := &order.Items[i]
		link, linkErr := s.catalog.DownloadLink(ctx, item.ProductID)
		if linkErr != nil {
			s.l.WithError(linkErr).WithFields(logrus.Fields{
				"orderID":   order.ID,
				"productID": item.ProductID,
			}).Error("resolving download link")
			continue
		}
		if updErr := s.orderRepo.UpdateItemDownloadLink(ctx, item.ID, link); updErr != nil {
			s.l.WithError(updErr).WithField("itemID", item.ID).Error("saving download link")
			continue
		}
		item.DownloadLink = &link
	}
}

func (s *OrderService) publishOrderCreated(ctx context.Context, order *domain.Order) {
	event := events.OrderCreatedEvent{
		Envelope:   events.Envelope{EventID: events.NewEventID()},
		OrderID:    order.ID,
		UserID:     order.UserID,
		Email:      order.Email,
		TotalPrice: order.TotalPrice,
		ItemCount:  len(order.Items),
	}
	s.publish(ctx, events.TopicOrderCreated, order.ID, event)
}

func (s *OrderService) publishOrderPaid(ctx context.Context, order *domain.Order) {
	productLinks := make([]events.ProductLink, len(order.Items))
	for i, item := range order.Items {
		productLinks[i] = events.ProductLink{
			ProductName:  item.ProductName,
			DownloadLink: item.DownloadLink,
		}
	}
	event := events.OrderPaidEvent{
		Envelope:     events.Envelope{EventID: events.NewEventID()},
		OrderID:      order.ID,
		UserID:       order.UserID,
		Email:        order.Email,
		TotalPrice:   order.TotalPrice,
		ProductLinks: productLinks,
	}
	s.publish(ctx, events.TopicOrderPaid, order.ID, event)
}

func (s *OrderService) publishOrderCancelled(ctx context.Context, order *domain.Order, refunded bool) {
	event := events.OrderCancelledEvent{
		Envelope:           events.Envelope{EventID: events.NewEventID()},
		OrderID:            order.ID,
		UserID:             order.UserID,
		Email:              order.Email,
		CancellationReason: order.CancellationReason,
		CancelledBy:        order.CancelledBy,
		Refunded:           refunded,
	}
	if refunded {
		amount := order.TotalPrice
		event.RefundedAmount = &amount
	}
	s.publish(ctx, events.TopicOrderCancelled, order.ID, event)
}

// publish отправляет факт о заказе с ключом orderID. Ошибка публикации только
// логируется: локальное состояние уже закоммичено.
func (s *OrderService) publish(ctx context.Context, topic string, orderID int64, payload any) {
	key := strconv.FormatInt(orderID, 10)
	if err := s.publisher.Publish(ctx, topic, key, payload); err != nil {
		s.l.WithError(err).WithFields(logrus.Fields{
			"topic":   topic,
			"orderID": orderID,
		}).Error("publishing order event")
	}
}
