package cart

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/storefront-checkout/internal/client"
	"github.com/Cheertaboi/storefront-checkout/internal/models"
)

type checkoutTestContext struct {
	backend   *fakeBackend
	m         *Manager
	products  map[int64]models.Product
	accepted  map[string]decimal.Decimal
	rejected  map[string]string
	orderFail int
	err       error
}

func (c *checkoutTestContext) reset() {
	c.products = make(map[int64]models.Product)
	c.accepted = make(map[string]decimal.Decimal)
	c.rejected = make(map[string]string)
	c.orderFail = 0
	c.err = nil
	c.backend = &fakeBackend{
		validate: func(_ context.Context, code string, _ decimal.Decimal) (*models.CouponValidation, error) {
			if msg, ok := c.rejected[code]; ok {
				return nil, &client.Error{Kind: client.KindValidation, Op: "validate coupon", Status: 400, Message: msg}
			}
			if d, ok := c.accepted[code]; ok {
				return &models.CouponValidation{Discount: d}, nil
			}
			return nil, &client.Error{Kind: client.KindNotFound, Op: "validate coupon", Status: 404}
		},
		order: func(context.Context, models.OrderRequest) (*models.Order, error) {
			if c.orderFail != 0 {
				return nil, &client.Error{Kind: client.KindServer, Op: "place order", Status: c.orderFail}
			}
			return &models.Order{ID: 42}, nil
		},
	}
	c.m = New(c.backend)
}

func (c *checkoutTestContext) productPricedWithStock(id int64, price string, stock int) error {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return err
	}
	c.products[id] = models.Product{ID: id, Name: "product " + strconv.FormatInt(id, 10), Price: p, Stock: stock}
	return nil
}

func (c *checkoutTestContext) theBackendAcceptsCoupon(code string, discount int) error {
	c.accepted[code] = decimal.NewFromInt(int64(discount))
	return nil
}

func (c *checkoutTestContext) theBackendRejectsCoupon(code, message string) error {
	c.rejected[code] = message
	return nil
}

func (c *checkoutTestContext) theBackendFailsOrders(status int) error {
	c.orderFail = status
	return nil
}

func (c *checkoutTestContext) iAddOfProduct(qty int, id int64) error {
	p, ok := c.products[id]
	if !ok {
		return fmt.Errorf("unknown product %d", id)
	}
	c.err = c.m.AddItem(context.Background(), p, qty)
	return nil
}

func (c *checkoutTestContext) iSetTheQuantityOfProductTo(id int64, qty int) error {
	c.err = c.m.UpdateQuantity(context.Background(), id, qty)
	return nil
}

func (c *checkoutTestContext) iApplyCoupon(code string) error {
	_, c.err = c.m.ApplyCoupon(context.Background(), code)
	return nil
}

func (c *checkoutTestContext) iPlaceTheOrder() error {
	_, c.err = c.m.PlaceOrder(context.Background())
	return nil
}

func (c *checkoutTestContext) theTotalIs(want string) error {
	if got := c.m.Total().StringFixed(2); got != want {
		return fmt.Errorf("total %s, want %s", got, want)
	}
	return nil
}

func (c *checkoutTestContext) theDiscountedTotalIs(want string) error {
	if got := c.m.DiscountedTotal().StringFixed(2); got != want {
		return fmt.Errorf("discounted total %s, want %s", got, want)
	}
	return nil
}

func (c *checkoutTestContext) theLastOperationFailed() error {
	if c.err == nil {
		return errors.New("expected an error")
	}
	return nil
}

func (c *checkoutTestContext) theCartHasLines(n int) error {
	if got := len(c.m.Entries()); got != n {
		return fmt.Errorf("cart has %d lines, want %d", got, n)
	}
	return nil
}

func (c *checkoutTestContext) theItemCountIs(n int) error {
	if got := c.m.Snapshot().ItemCount; got != n {
		return fmt.Errorf("item count %d, want %d", got, n)
	}
	return nil
}

func (c *checkoutTestContext) theCouponErrorIs(want string) error {
	if got := c.m.Snapshot().CouponError; got != want {
		return fmt.Errorf("coupon error %q, want %q", got, want)
	}
	return nil
}

func (c *checkoutTestContext) theOrderRequestCarriedCoupon(code string) error {
	if len(c.backend.orders) == 0 {
		return errors.New("no order was submitted")
	}
	if got := c.backend.orders[len(c.backend.orders)-1].CouponCode; got != code {
		return fmt.Errorf("order coupon %q, want %q", got, code)
	}
	return nil
}

func (c *checkoutTestContext) theCheckoutStateIs(want string) error {
	if got := c.m.Snapshot().Checkout; string(got) != want {
		return fmt.Errorf("checkout state %q, want %q", got, want)
	}
	return nil
}

func (c *checkoutTestContext) theCheckoutErrorIs(want string) error {
	if got := c.m.Snapshot().CheckoutError; got != want {
		return fmt.Errorf("checkout error %q, want %q", got, want)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &checkoutTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	ctx.Step(`^product (\d+) priced "([^"]*)" with stock (\d+)$`, tc.productPricedWithStock)
	ctx.Step(`^the backend accepts coupon "([^"]*)" with discount (\d+)$`, tc.theBackendAcceptsCoupon)
	ctx.Step(`^the backend rejects coupon "([^"]*)" with message "([^"]*)"$`, tc.theBackendRejectsCoupon)
	ctx.Step(`^the backend fails orders with status (\d+)$`, tc.theBackendFailsOrders)

	ctx.Step(`^I add (\d+) of product (\d+)$`, tc.iAddOfProduct)
	ctx.Step(`^I set the quantity of product (\d+) to (\d+)$`, tc.iSetTheQuantityOfProductTo)
	ctx.Step(`^I apply coupon "([^"]*)"$`, tc.iApplyCoupon)
	ctx.Step(`^I place the order$`, tc.iPlaceTheOrder)

	ctx.Step(`^the total is "([^"]*)"$`, tc.theTotalIs)
	ctx.Step(`^the discounted total is "([^"]*)"$`, tc.theDiscountedTotalIs)
	ctx.Step(`^the last operation failed$`, tc.theLastOperationFailed)
	ctx.Step(`^the cart has (\d+) lines$`, tc.theCartHasLines)
	ctx.Step(`^the item count is (\d+)$`, tc.theItemCountIs)
	ctx.Step(`^the coupon error is "([^"]*)"$`, tc.theCouponErrorIs)
	ctx.Step(`^the order request carried coupon "([^"]*)"$`, tc.theOrderRequestCarriedCoupon)
	ctx.Step(`^the checkout state is "([^"]*)"$`, tc.theCheckoutStateIs)
	ctx.Step(`^the checkout error is "([^"]*)"$`, tc.theCheckoutErrorIs)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/checkout.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
