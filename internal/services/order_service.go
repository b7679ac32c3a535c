// internal/services/order_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tealeg/xlsx"

	"github.com/javajoker/storefront/internal/cart"
	"github.com/javajoker/storefront/internal/i18n"
	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/money"
	"github.com/javajoker/storefront/internal/order"
	"github.com/javajoker/storefront/internal/pricing"
	"github.com/javajoker/storefront/internal/store"
	"github.com/javajoker/storefront/internal/utils"
)

type OrderService struct {
	docs     *Collections
	catalog  ProductCatalog
	pricing  *pricing.Engine
	payments PaymentProvider
	notifier OrderNotifier
	number   order.NumberFunc
}

type CheckoutRequest struct {
	AddressID       string               `json:"address_id,omitempty"`
	ShippingInfo    *models.ShippingInfo `json:"shipping_info,omitempty"`
	PaymentMethod   models.PaymentMethod `json:"payment_method" validate:"required"`
	PaymentIntentID string               `json:"payment_intent_id,omitempty"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type OrderListParams struct {
	utils.PaginationParams
	Status models.OrderStatus `json:"status,omitempty"`
}

// ReorderResult lists the cart lines a reorder touched and the products
// that could not be added because they are gone or sold out.
type ReorderResult struct {
	Items   []models.LineItem `json:"items"`
	Skipped []string          `json:"skipped,omitempty"`
}

// NewOrderService wires checkout. payments and notifier may be nil: card
// checkout is then refused and no emails are sent.
func NewOrderService(docs *Collections, catalog ProductCatalog, engine *pricing.Engine, payments PaymentProvider, notifier OrderNotifier) *OrderService {
	return &OrderService{
		docs:     docs,
		catalog:  catalog,
		pricing:  engine,
		payments: payments,
		notifier: notifier,
		number:   order.Number,
	}
}

// WithNumberFunc replaces the order number generator.
func (s *OrderService) WithNumberFunc(number order.NumberFunc) *OrderService {
	s.number = number
	return s
}

// CreatePaymentIntent prices the current cart and opens a card payment for
// it. The idempotency key covers the cart contents, so retrying with an
// unchanged cart returns the same intent.
func (s *OrderService) CreatePaymentIntent(ctx context.Context, identity models.Identity) (*PaymentIntent, error) {
	if s.payments == nil {
		return nil, models.NewValidationError(i18n.KeyPaymentNotConfigured, "card payments are not configured")
	}

	c, err := s.docs.loadLineStore(ctx, identity.ID, cart.KindCart)
	if err != nil {
		return nil, err
	}
	items := c.Items()
	if len(items) == 0 {
		return nil, models.NewValidationError(i18n.KeyOrderEmpty, "cannot pay for an empty cart")
	}
	quote := s.pricing.Quote(items)

	parts := []string{identity.ID, quote.Total.String()}
	for _, item := range items {
		parts = append(parts, item.ProductID+":"+strconv.Itoa(item.Quantity))
	}

	return s.payments.CreatePaymentIntent(ctx, &PaymentIntentRequest{
		UserID:         identity.ID,
		Email:          identity.Email,
		Name:           identity.DisplayName,
		Amount:         quote.Total,
		IdempotencyKey: utils.IdempotencyKey(parts...),
		Metadata: map[string]string{
			"item_count": strconv.Itoa(quote.ItemCount),
		},
	})
}

// Checkout turns the cart into an order. Stock is reserved first, then the
// card payment is verified, then the order and the emptied cart are written
// in one batch. Every failure after the reservation releases it again.
func (s *OrderService) Checkout(ctx context.Context, identity models.Identity, req *CheckoutRequest) (*models.Order, error) {
	userID := identity.ID

	unlock := s.docs.lock(userID)
	defer unlock()

	c, err := s.docs.loadLineStore(ctx, userID, cart.KindCart)
	if err != nil {
		return nil, err
	}
	items := c.Items()
	if len(items) == 0 {
		return nil, models.NewValidationError(i18n.KeyOrderEmpty, "cannot create an order without items")
	}

	shipping, err := s.resolveShipping(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	reference := ""
	if req.PaymentMethod == models.PaymentMethodCard {
		if err := s.checkCardPayment(ctx, userID, req.PaymentIntentID); err != nil {
			return nil, err
		}
		reference = req.PaymentIntentID
	}

	quote := s.pricing.Quote(items)
	ord, err := order.Create(order.Checkout{
		UserID:           userID,
		Items:            items,
		ShippingInfo:     shipping,
		PaymentMethod:    req.PaymentMethod,
		PaymentReference: reference,
		Quote:            quote,
	}, s.docs.now(), s.number)
	if err != nil {
		return nil, err
	}
	ord.ContactEmail = identity.Email

	if err := s.catalog.ReserveStock(ctx, ord.Items); err != nil {
		return nil, err
	}

	if ord.PaymentMethod == models.PaymentMethodCard {
		if err := s.confirmPayment(ctx, ord); err != nil {
			s.releaseStock(ctx, ord, "payment not confirmed")
			return nil, err
		}
	}

	put, err := store.PutOp(userID, models.CollectionOrders, ord.ID, ord)
	if err != nil {
		s.releaseStock(ctx, ord, "order encoding failed")
		return nil, err
	}
	ops := append([]store.Op{put}, deleteOps(userID, models.CollectionCart, c.Clear())...)
	if err := s.docs.runBatch(ctx, "place order", ops); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id":           userID,
			"order_number":      ord.OrderNumber,
			"payment_method":    ord.PaymentMethod,
			"payment_reference": ord.PaymentReference,
			"total":             ord.Total.String(),
		}).Error("Order could not be saved after payment; needs reconciliation")
		s.releaseStock(ctx, ord, "order not saved")
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":      userID,
		"order_id":     ord.ID,
		"order_number": ord.OrderNumber,
		"total":        ord.Total.String(),
	}).Info("Order placed")

	s.notify(OrderEventPlaced, ord)
	return ord, nil
}

func (s *OrderService) resolveShipping(ctx context.Context, userID string, req *CheckoutRequest) (models.ShippingInfo, error) {
	if req.AddressID == "" && req.ShippingInfo != nil {
		return *req.ShippingInfo, nil
	}

	book, err := s.docs.loadAddresses(ctx, userID)
	if err != nil {
		return models.ShippingInfo{}, err
	}
	if req.AddressID != "" {
		addr, ok := book.Get(req.AddressID)
		if !ok {
			return models.ShippingInfo{}, models.NewNotFound("address", req.AddressID)
		}
		return addr.ShippingInfo(), nil
	}
	if addr, ok := book.Default(); ok {
		return addr.ShippingInfo(), nil
	}
	return models.ShippingInfo{}, models.NewValidationError(i18n.KeyOrderInvalidShipping, "%s", "no shipping address")
}

// checkCardPayment rejects card checkouts that cannot be verified before any
// stock is touched.
func (s *OrderService) checkCardPayment(ctx context.Context, userID, intentID string) error {
	if s.payments == nil {
		return models.NewValidationError(i18n.KeyPaymentNotConfigured, "card payments are not configured")
	}
	if strings.TrimSpace(intentID) == "" {
		return models.NewValidationError(i18n.KeyOrderPaymentUnconfirmed, "card orders need a confirmed payment")
	}

	orders, err := s.docs.loadOrders(ctx, userID)
	if err != nil {
		return err
	}
	for _, o := range orders {
		if o.PaymentReference == intentID {
			return models.NewDomainError(models.KindConflict, i18n.KeyOrderPaymentUsed,
				fmt.Sprintf("payment %s already paid for order %s", intentID, o.OrderNumber))
		}
	}
	return nil
}

func (s *OrderService) confirmPayment(ctx context.Context, ord *models.Order) error {
	result, err := s.payments.ConfirmPayment(ctx, ord.PaymentReference)
	if err != nil {
		return err
	}
	if result.UserID != "" && result.UserID != ord.UserID {
		return paymentDeclined("payment belongs to another account")
	}
	if result.Amount != ord.Total {
		return models.NewDomainError(models.KindPaymentDeclined, i18n.KeyPaymentAmountMismatch,
			fmt.Sprintf("payment of %s does not match order total %s", result.Amount, ord.Total))
	}
	return nil
}

func (s *OrderService) releaseStock(ctx context.Context, ord *models.Order, reason string) {
	if err := s.catalog.ReleaseStock(ctx, ord.Items); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"order_number": ord.OrderNumber,
			"reason":       reason,
		}).Error("Failed to release reserved stock")
	}
}

// notify sends in the background; a slow mail server never holds up the
// request.
func (s *OrderService) notify(event OrderEvent, ord *models.Order) {
	if s.notifier == nil {
		return
	}
	snapshot := *ord
	go func() {
		if err := s.notifier.NotifyOrder(context.Background(), event, &snapshot); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"event":        event,
				"order_number": snapshot.OrderNumber,
			}).Warn("Failed to send order notification")
		}
	}()
}

func (s *OrderService) GetUserOrders(ctx context.Context, userID string, params OrderListParams) ([]models.Order, int64, error) {
	orders, err := s.docs.loadOrders(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	orders = filterByStatus(orders, params.Status)
	page, total := utils.Paginate(orders, utils.NormalizePagination(params.PaginationParams))
	return page, total, nil
}

func (s *OrderService) GetOrder(ctx context.Context, userID, orderID string) (*models.Order, error) {
	return s.docs.loadOrder(ctx, userID, orderID)
}

// CancelOrder cancels one of the caller's own orders.
func (s *OrderService) CancelOrder(ctx context.Context, userID, orderID, reason string) (*models.Order, error) {
	unlock := s.docs.lock(userID)
	defer unlock()

	ord, err := s.docs.loadOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, ord, reason, userID)
}

// cancel refunds a paid card order before recording the cancellation; if the
// refund fails the order stays as it was. Stock goes back afterwards.
func (s *OrderService) cancel(ctx context.Context, ord *models.Order, reason, actor string) (*models.Order, error) {
	if err := order.Cancel(ord, reason, actor, s.docs.now()); err != nil {
		return nil, err
	}

	if ord.PaymentMethod == models.PaymentMethodCard && ord.PaymentStatus == models.PaymentStatusPaid && ord.PaymentReference != "" {
		if s.payments == nil {
			return nil, models.NewValidationError(i18n.KeyPaymentNotConfigured, "card payments are not configured")
		}
		if _, err := s.payments.Refund(ctx, ord.PaymentReference, ord.Total, ord.CancelReason); err != nil {
			return nil, err
		}
		ord.PaymentStatus = models.PaymentStatusRefunded
	}

	put, err := store.PutOp(ord.UserID, models.CollectionOrders, ord.ID, ord)
	if err != nil {
		return nil, err
	}
	if err := s.docs.runBatch(ctx, "cancel order", []store.Op{put}); err != nil {
		if ord.PaymentStatus == models.PaymentStatusRefunded {
			logrus.WithError(err).WithFields(logrus.Fields{
				"order_number":      ord.OrderNumber,
				"payment_reference": ord.PaymentReference,
			}).Error("Order refunded but the cancellation was not saved")
		}
		return nil, err
	}

	s.releaseStock(ctx, ord, "order cancelled")

	logrus.WithFields(logrus.Fields{
		"order_number": ord.OrderNumber,
		"cancelled_by": actor,
	}).Info("Order cancelled")

	s.notify(OrderEventCancelled, ord)
	return ord, nil
}

// Reorder copies a past order's lines into the cart at current catalog
// prices. Products that were removed or sold out are skipped; quantities are
// capped at what is in stock.
func (s *OrderService) Reorder(ctx context.Context, userID, orderID string) (*ReorderResult, error) {
	unlock := s.docs.lock(userID)
	defer unlock()

	ord, err := s.docs.loadOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	c, err := s.docs.loadLineStore(ctx, userID, cart.KindCart)
	if err != nil {
		return nil, err
	}

	result := &ReorderResult{Items: []models.LineItem{}}
	now := s.docs.now()
	batch := make([]models.LineItem, 0, len(ord.Items))
	for _, item := range ord.Items {
		product, err := s.catalog.GetProduct(ctx, item.ProductID)
		if errors.Is(err, models.ErrNotFound) {
			result.Skipped = append(result.Skipped, item.Name)
			continue
		}
		if err != nil {
			return nil, err
		}

		inCart := 0
		if existing, ok := c.Get(item.ProductID); ok {
			inCart = existing.Quantity
		}
		quantity := item.Quantity
		if inCart+quantity > product.Stock {
			quantity = product.Stock - inCart
		}
		if quantity < 1 {
			result.Skipped = append(result.Skipped, item.Name)
			continue
		}
		batch = append(batch, models.LineItemFromProduct(product, quantity, now))
	}

	if len(batch) == 0 {
		return result, nil
	}
	moved, err := c.BulkUpsert(batch)
	if err != nil {
		return nil, err
	}
	ops, err := lineOps(userID, models.CollectionCart, moved)
	if err != nil {
		return nil, err
	}
	if err := s.docs.runBatch(ctx, "reorder", ops); err != nil {
		return nil, err
	}
	result.Items = moved
	return result, nil
}

// Back office

func (s *OrderService) allOrders(ctx context.Context) ([]models.Order, error) {
	records, err := s.docs.Store().ListAll(ctx, models.CollectionOrders)
	if err != nil {
		return nil, models.WrapCollaborator(collaboratorStore, "list orders", err)
	}
	orders, err := store.DecodeAll[models.Order](records)
	if err != nil {
		return nil, models.WrapCollaborator(collaboratorStore, "decode orders", err)
	}
	sortNewestFirst(orders)
	return orders, nil
}

func (s *OrderService) lookupOrder(ctx context.Context, orderID string) (*models.Order, error) {
	rec, err := s.docs.Store().Lookup(ctx, models.CollectionOrders, orderID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.NewNotFound("order", orderID)
	}
	if err != nil {
		return nil, models.WrapCollaborator(collaboratorStore, "look up order", err)
	}
	var ord models.Order
	if err := rec.Decode(&ord); err != nil {
		return nil, models.WrapCollaborator(collaboratorStore, "decode order", err)
	}
	return &ord, nil
}

func (s *OrderService) ListAllOrders(ctx context.Context, params OrderListParams) ([]models.Order, int64, error) {
	orders, err := s.allOrders(ctx)
	if err != nil {
		return nil, 0, err
	}
	orders = filterByStatus(orders, params.Status)
	page, total := utils.Paginate(orders, utils.NormalizePagination(params.PaginationParams))
	return page, total, nil
}

func (s *OrderService) AdminGetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	return s.lookupOrder(ctx, orderID)
}

// AdvanceOrder moves an order one step along its lifecycle. Cash on
// delivery orders are marked paid when they are delivered.
func (s *OrderService) AdvanceOrder(ctx context.Context, orderID string) (*models.Order, error) {
	ord, err := s.lookupOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	unlock := s.docs.lock(ord.UserID)
	defer unlock()

	// reload under the owner's lock
	if ord, err = s.docs.loadOrder(ctx, ord.UserID, orderID); err != nil {
		return nil, err
	}
	if err := order.Advance(ord, s.docs.now()); err != nil {
		return nil, err
	}
	if ord.Status == models.OrderStatusDelivered && ord.PaymentMethod == models.PaymentMethodCashOnDelivery {
		ord.PaymentStatus = models.PaymentStatusPaid
	}

	put, err := store.PutOp(ord.UserID, models.CollectionOrders, ord.ID, ord)
	if err != nil {
		return nil, err
	}
	if err := s.docs.runBatch(ctx, "advance order", []store.Op{put}); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"order_number": ord.OrderNumber,
		"status":       ord.Status,
	}).Info("Order status advanced")

	s.notify(OrderEventStatusChanged, ord)
	return ord, nil
}

func (s *OrderService) AdminCancelOrder(ctx context.Context, adminID, orderID, reason string) (*models.Order, error) {
	ord, err := s.lookupOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	unlock := s.docs.lock(ord.UserID)
	defer unlock()

	if ord, err = s.docs.loadOrder(ctx, ord.UserID, orderID); err != nil {
		return nil, err
	}
	return s.cancel(ctx, ord, reason, adminID)
}

// OrderStats is the order part of the admin dashboard.
type OrderStats struct {
	Total    int64                        `json:"total"`
	ByStatus map[models.OrderStatus]int64 `json:"by_status"`
	Revenue  money.Money                  `json:"revenue"`
}

// Stats counts orders by status. Revenue sums every order that was not
// cancelled.
func (s *OrderService) Stats(ctx context.Context) (*OrderStats, error) {
	orders, err := s.allOrders(ctx)
	if err != nil {
		return nil, err
	}
	stats := &OrderStats{ByStatus: make(map[models.OrderStatus]int64)}
	for _, o := range orders {
		stats.Total++
		stats.ByStatus[o.Status]++
		if o.Status != models.OrderStatusCancelled {
			stats.Revenue = stats.Revenue.Add(o.Total)
		}
	}
	return stats, nil
}

var exportHeader = []string{
	"Order Number", "Placed At", "Customer", "Email", "Status", "Payment Method",
	"Payment Status", "Items", "Subtotal", "Shipping", "Tax", "Total", "Country",
}

// ExportOrders writes every order matching status (all when empty) as an
// xlsx workbook, oldest first.
func (s *OrderService) ExportOrders(ctx context.Context, w io.Writer, status models.OrderStatus) error {
	orders, err := s.allOrders(ctx)
	if err != nil {
		return err
	}
	orders = filterByStatus(orders, status)
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Orders")
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, title := range exportHeader {
		header.AddCell().SetValue(title)
	}

	for _, o := range orders {
		row := sheet.AddRow()
		row.AddCell().SetValue(o.OrderNumber)
		row.AddCell().SetValue(o.CreatedAt.UTC().Format(time.RFC3339))
		row.AddCell().SetValue(o.ShippingInfo.FullName)
		row.AddCell().SetValue(o.ContactEmail)
		row.AddCell().SetValue(string(o.Status))
		row.AddCell().SetValue(string(o.PaymentMethod))
		row.AddCell().SetValue(string(o.PaymentStatus))
		row.AddCell().SetInt(o.ItemCount())
		row.AddCell().SetFloat(o.Subtotal.Float64())
		row.AddCell().SetFloat(o.Shipping.Float64())
		row.AddCell().SetFloat(o.Tax.Float64())
		row.AddCell().SetFloat(o.Total.Float64())
		row.AddCell().SetValue(o.ShippingInfo.Country)
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func filterByStatus(orders []models.Order, status models.OrderStatus) []models.Order {
	if status == "" {
		return orders
	}
	filtered := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if o.Status == status {
			filtered = append(filtered, o)
		}
	}
	return filtered
}
