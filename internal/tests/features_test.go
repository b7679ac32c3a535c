// internal/tests/features_test.go
package tests

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/cucumber/godog"

	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/services"
)

// shopper carries one scenario's state between steps.
type shopper struct {
	api       *storefront
	token     string
	admin     string
	products  map[string]*models.Product
	addresses map[string]string
	order     *models.Order
	last      *httptest.ResponseRecorder
	lastResp  apiResponse
}

func (s *shopper) reset() {
	s.api = newStorefront()
	s.token = ""
	s.admin = tokenFor("ops", models.UserRoleAdmin)
	s.products = make(map[string]*models.Product)
	s.addresses = make(map[string]string)
	s.order = nil
	s.last = nil
}

func (s *shopper) call(method, path, token string, body interface{}) {
	s.last, s.lastResp = s.api.do(method, path, token, body)
}

func (s *shopper) product(name string) (*models.Product, error) {
	p, ok := s.products[name]
	if !ok {
		return nil, fmt.Errorf("unknown product %q", name)
	}
	return p, nil
}

func (s *shopper) catalogHas(name, price string, stock int) error {
	s.products[name] = s.api.catalog.add(name, price, stock)
	return nil
}

func (s *shopper) signedInAs(userID string) error {
	s.token = tokenFor(userID, models.UserRoleCustomer)
	return nil
}

func (s *shopper) addToCart(quantity int, name string) error {
	p, err := s.product(name)
	if err != nil {
		return err
	}
	s.call("POST", "/v1/cart/items", s.token, map[string]interface{}{
		"product_id": p.ID.String(),
		"quantity":   quantity,
	})
	if s.last.Code != 200 {
		return fmt.Errorf("add to cart: %d %s", s.last.Code, s.last.Body.String())
	}
	return nil
}

func (s *shopper) stockDrops(name string, stock int) error {
	p, err := s.product(name)
	if err != nil {
		return err
	}
	s.api.catalog.setStock(p.ID.String(), stock)
	return nil
}

func (s *shopper) checkOutCOD() error {
	body := map[string]interface{}{"payment_method": "cod"}
	if len(s.addresses) == 0 {
		body["shipping_info"] = shippingPayload()
	}
	s.call("POST", "/v1/orders", s.token, body)
	if s.last.Code == 201 {
		placed := decode[struct {
			Order models.Order `json:"order"`
		}](s.lastResp.Data).Order
		s.order = &placed
	}
	return nil
}

func (s *shopper) cancelOrder(reason string) error {
	if s.order == nil {
		return fmt.Errorf("no order placed")
	}
	s.call("POST", "/v1/orders/"+s.order.ID+"/cancel", s.token, map[string]string{"reason": reason})
	if s.last.Code == 200 {
		updated := decode[models.Order](s.lastResp.Data)
		s.order = &updated
	}
	return nil
}

func (s *shopper) storeAdvances(times int) error {
	if s.order == nil {
		return fmt.Errorf("no order placed")
	}
	for i := 0; i < times; i++ {
		s.call("POST", "/v1/admin/orders/"+s.order.ID+"/advance", s.admin, nil)
		if s.last.Code != 200 {
			return fmt.Errorf("advance: %d %s", s.last.Code, s.last.Body.String())
		}
		updated := decode[models.Order](s.lastResp.Data)
		s.order = &updated
	}
	return nil
}

func (s *shopper) statusIs(code int) error {
	if s.last == nil {
		return fmt.Errorf("no request made")
	}
	if s.last.Code != code {
		return fmt.Errorf("expected status %d, got %d: %s", code, s.last.Code, s.last.Body.String())
	}
	return nil
}

func (s *shopper) orderTotalIs(total string) error {
	if s.order == nil {
		return fmt.Errorf("no order placed")
	}
	if got := s.order.Total.String(); got != total {
		return fmt.Errorf("expected total %s, got %s", total, got)
	}
	return nil
}

func (s *shopper) orderStatusIs(status string) error {
	if s.order == nil {
		return fmt.Errorf("no order placed")
	}
	if string(s.order.Status) != status {
		return fmt.Errorf("expected order %s, got %s", status, s.order.Status)
	}
	return nil
}

func (s *shopper) orderPaymentIs(status string) error {
	if s.order == nil {
		return fmt.Errorf("no order placed")
	}
	if string(s.order.PaymentStatus) != status {
		return fmt.Errorf("expected payment %s, got %s", status, s.order.PaymentStatus)
	}
	return nil
}

func (s *shopper) orderShipsTo(name string) error {
	if s.order == nil {
		return fmt.Errorf("no order placed")
	}
	if s.order.ShippingInfo.FullName != name {
		return fmt.Errorf("expected shipping to %s, got %s", name, s.order.ShippingInfo.FullName)
	}
	return nil
}

func (s *shopper) stockIs(name string, stock int) error {
	p, err := s.product(name)
	if err != nil {
		return err
	}
	if got := s.api.catalog.stock(p.ID.String()); got != stock {
		return fmt.Errorf("expected %d %s in stock, got %d", stock, name, got)
	}
	return nil
}

func (s *shopper) cartHasLines(lines int) error {
	w, resp := s.api.do("GET", "/v1/cart", s.token, nil)
	if w.Code != 200 {
		return fmt.Errorf("get cart: %d", w.Code)
	}
	if got := len(decode[services.CartView](resp.Data).Items); got != lines {
		return fmt.Errorf("expected %d cart lines, got %d", lines, got)
	}
	return nil
}

func (s *shopper) saveAddress(name string, isDefault bool) error {
	body := shippingPayload()
	body["full_name"] = name
	body["is_default"] = isDefault
	s.call("POST", "/v1/addresses", s.token, body)
	if s.last.Code != 201 {
		return fmt.Errorf("save address: %d %s", s.last.Code, s.last.Body.String())
	}
	s.addresses[name] = decode[models.Address](s.lastResp.Data).ID
	return nil
}

func (s *shopper) saveNamedAddress(name string) error {
	return s.saveAddress(name, false)
}

func (s *shopper) saveDefaultAddress(name string) error {
	return s.saveAddress(name, true)
}

func (s *shopper) deleteAddress(name string) error {
	id, ok := s.addresses[name]
	if !ok {
		return fmt.Errorf("unknown address %q", name)
	}
	s.call("DELETE", "/v1/addresses/"+id, s.token, nil)
	delete(s.addresses, name)
	return s.statusIs(200)
}

func (s *shopper) defaultAddressIs(name string) error {
	w, resp := s.api.do("GET", "/v1/addresses/default", s.token, nil)
	if w.Code != 200 {
		return fmt.Errorf("get default address: %d %s", w.Code, w.Body.String())
	}
	if got := decode[models.Address](resp.Data).FullName; got != name {
		return fmt.Errorf("expected default %s, got %s", name, got)
	}
	return nil
}

func (s *shopper) addressCount(count int) error {
	w, resp := s.api.do("GET", "/v1/addresses", s.token, nil)
	if w.Code != 200 {
		return fmt.Errorf("list addresses: %d", w.Code)
	}
	if got := len(decode[[]models.Address](resp.Data)); got != count {
		return fmt.Errorf("expected %d addresses, got %d", count, got)
	}
	return nil
}

func initializeScenario(ctx *godog.ScenarioContext) {
	s := &shopper{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		s.reset()
		return ctx, nil
	})

	ctx.Step(`^the catalog has "([^"]*)" priced at "([^"]*)" with (\d+) in stock$`, s.catalogHas)
	ctx.Step(`^I am signed in as "([^"]*)"$`, s.signedInAs)
	ctx.Step(`^I add (\d+) "([^"]*)" to my cart$`, s.addToCart)
	ctx.Step(`^"([^"]*)" stock drops to (\d+)$`, s.stockDrops)
	ctx.Step(`^I check out with cash on delivery$`, s.checkOutCOD)
	ctx.Step(`^I cancel the order because "([^"]*)"$`, s.cancelOrder)
	ctx.Step(`^the store advances the order (\d+) times$`, s.storeAdvances)
	ctx.Step(`^the response status is (\d+)$`, s.statusIs)
	ctx.Step(`^the order total is "([^"]*)"$`, s.orderTotalIs)
	ctx.Step(`^the order status is "([^"]*)"$`, s.orderStatusIs)
	ctx.Step(`^the order payment is "([^"]*)"$`, s.orderPaymentIs)
	ctx.Step(`^the order ships to "([^"]*)"$`, s.orderShipsTo)
	ctx.Step(`^"([^"]*)" has (\d+) in stock$`, s.stockIs)
	ctx.Step(`^my cart has (\d+) lines?$`, s.cartHasLines)
	ctx.Step(`^I save an address for "([^"]*)"$`, s.saveNamedAddress)
	ctx.Step(`^I save a default address for "([^"]*)"$`, s.saveDefaultAddress)
	ctx.Step(`^I delete the address for "([^"]*)"$`, s.deleteAddress)
	ctx.Step(`^my default address is "([^"]*)"$`, s.defaultAddressIs)
	ctx.Step(`^I have (\d+) address(?:es)?$`, s.addressCount)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "storefront",
		ScenarioInitializer: initializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			Strict:   true,
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
