package persist

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/flokiorg/lspd/constants"
)

// ErrOrderNotFound is returned when no order matches the given identifier.
var ErrOrderNotFound = errors.New("order not found")

// OrderStore persists LSPS1 orders.
type OrderStore struct {
	db *gorm.DB
}

func NewOrderStore(db *gorm.DB) *OrderStore {
	return &OrderStore{db: db}
}

func (s *OrderStore) Create(order *Order) error {
	result := s.db.Create(order)
	if result.Error != nil {
		return fmt.Errorf("failed to create order %s: %w", order.OrderID, result.Error)
	}
	return nil
}

func (s *OrderStore) Get(orderID string) (*Order, error) {
	var order Order
	result := s.db.Where("order_id = ?", orderID).Find(&order)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to read order %s: %w", orderID, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrOrderNotFound
	}
	return &order, nil
}

func (s *OrderStore) GetByPaymentHash(paymentHash string) (*Order, error) {
	var order Order
	result := s.db.Where("payment_hash = ?", paymentHash).Find(&order)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to read order by payment hash: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrOrderNotFound
	}
	return &order, nil
}

// MarkPaid transitions the order payment to PAID.
func (s *OrderStore) MarkPaid(orderID string) error {
	return s.update(orderID, map[string]interface{}{
		"payment_state": constants.PAYMENT_STATE_PAID,
	})
}

// MarkCompleted transitions the order to COMPLETED and records the funded
// channel.
func (s *OrderStore) MarkCompleted(orderID, fundingOutpoint string, fundedAt time.Time) error {
	return s.update(orderID, map[string]interface{}{
		"order_state":      constants.ORDER_STATE_COMPLETED,
		"funding_outpoint": fundingOutpoint,
		"funded_at":        fundedAt,
	})
}

// MarkFailed transitions the order to FAILED. When refunded is set the
// payment moves to REFUNDED as well.
func (s *OrderStore) MarkFailed(orderID string, refunded bool) error {
	updates := map[string]interface{}{
		"order_state": constants.ORDER_STATE_FAILED,
	}
	if refunded {
		updates["payment_state"] = constants.PAYMENT_STATE_REFUNDED
	}
	return s.update(orderID, updates)
}

// ListInFlight returns orders whose payment was accepted but whose channel
// open has not concluded yet.
func (s *OrderStore) ListInFlight() ([]Order, error) {
	var orders []Order
	result := s.db.
		Where("order_state = ? AND payment_state = ?", constants.ORDER_STATE_CREATED, constants.PAYMENT_STATE_PAID).
		Find(&orders)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list in-flight orders: %w", result.Error)
	}
	return orders, nil
}

// ListOrders returns orders newest first, optionally filtered by order state.
func (s *OrderStore) ListOrders(limit, offset int, state string) ([]Order, error) {
	query := s.db.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset)
	if state != "" {
		query = query.Where("order_state = ?", state)
	}

	var orders []Order
	result := query.Find(&orders)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list orders: %w", result.Error)
	}
	return orders, nil
}

func (s *OrderStore) update(orderID string, updates map[string]interface{}) error {
	result := s.db.Model(&Order{}).Where("order_id = ?", orderID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update order %s: %w", orderID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}
