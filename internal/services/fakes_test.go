// internal/services/fakes_test.go
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/money"
	"github.com/javajoker/storefront/internal/review"
)

// fakeCatalog is an in-memory ProductCatalog with all-or-nothing stock
// reservation.
type fakeCatalog struct {
	mu       sync.Mutex
	products map[string]*models.Product
	stats    map[string]review.Stats
	released [][]models.OrderLineItem
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		products: make(map[string]*models.Product),
		stats:    make(map[string]review.Stats),
	}
}

func (c *fakeCatalog) add(name string, price money.Money, stock int) *models.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := &models.Product{
		Name:     name,
		Brand:    "Acme",
		Category: "gadgets",
		Price:    price,
		Stock:    stock,
		Images:   []string{"https://cdn.example.com/" + name + ".png"},
	}
	p.ID = uuid.New()
	c.products[p.ID.String()] = p
	return p
}

func (c *fakeCatalog) remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.products, id)
}

func (c *fakeCatalog) setStock(id string, stock int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[id].Stock = stock
}

func (c *fakeCatalog) stock(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.products[id].Stock
}

func (c *fakeCatalog) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return nil, models.NewNotFound("product", id)
	}
	copied := *p
	return &copied, nil
}

func (c *fakeCatalog) ReserveStock(ctx context.Context, items []models.OrderLineItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range items {
		p, ok := c.products[item.ProductID]
		if !ok {
			return models.NewNotFound("product", item.ProductID)
		}
		if p.Stock < item.Quantity {
			return insufficientStock(p.Name, p.Stock)
		}
	}
	for _, item := range items {
		c.products[item.ProductID].Stock -= item.Quantity
	}
	return nil
}

func (c *fakeCatalog) ReleaseStock(ctx context.Context, items []models.OrderLineItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range items {
		if p, ok := c.products[item.ProductID]; ok {
			p.Stock += item.Quantity
		}
	}
	c.released = append(c.released, items)
	return nil
}

func (c *fakeCatalog) ApplyReviewStats(ctx context.Context, productID string, stats review.Stats) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats[productID] = stats
	return nil
}

func (c *fakeCatalog) reviewStats(productID string) review.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats[productID]
}

// fakePayments confirms intents registered with succeed or decline.
type fakePayments struct {
	mu        sync.Mutex
	intents   map[string]*PaymentResult
	refunds   []string
	refundErr error
	created   []*PaymentIntentRequest
}

func newFakePayments() *fakePayments {
	return &fakePayments{intents: make(map[string]*PaymentResult)}
}

func (p *fakePayments) succeed(id, userID string, amount money.Money) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.intents[id] = &PaymentResult{ID: id, UserID: userID, Amount: amount, Status: "succeeded", Succeeded: true}
}

func (p *fakePayments) decline(id, userID string, amount money.Money) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.intents[id] = &PaymentResult{ID: id, UserID: userID, Amount: amount, Status: "requires_payment_method"}
}

func (p *fakePayments) CreatePaymentIntent(ctx context.Context, req *PaymentIntentRequest) (*PaymentIntent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, req)
	id := "pi_" + req.IdempotencyKey[:8]
	p.intents[id] = &PaymentResult{ID: id, UserID: req.UserID, Amount: req.Amount, Status: "requires_confirmation"}
	return &PaymentIntent{ID: id, ClientSecret: id + "_secret", Amount: req.Amount, Currency: "usd", Status: "requires_confirmation"}, nil
}

func (p *fakePayments) ConfirmPayment(ctx context.Context, intentID string) (*PaymentResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	result, ok := p.intents[intentID]
	if !ok {
		return nil, models.NewNotFound("payment", intentID)
	}
	copied := *result
	if !copied.Succeeded {
		return &copied, paymentDeclined(copied.Status)
	}
	return &copied, nil
}

func (p *fakePayments) Refund(ctx context.Context, intentID string, amount money.Money, reason string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refundErr != nil {
		return "", p.refundErr
	}
	p.refunds = append(p.refunds, intentID)
	return fmt.Sprintf("re_%d", len(p.refunds)), nil
}

func (p *fakePayments) refunded() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.refunds...)
}

type notification struct {
	event  OrderEvent
	number string
	status models.OrderStatus
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *recordingNotifier) NotifyOrder(ctx context.Context, event OrderEvent, order *models.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{event: event, number: order.OrderNumber, status: order.Status})
	return nil
}

func (n *recordingNotifier) events() []OrderEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	events := make([]OrderEvent, 0, len(n.sent))
	for _, s := range n.sent {
		events = append(events, s.event)
	}
	return events
}

func fixedClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}
