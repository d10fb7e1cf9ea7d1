package stripegw

import (
	"context"
	"fmt"

	"github.com/golangci/golangci-billing/pkg/billing/models"
	"github.com/golangci/golangci-billing/pkg/billing/processor"
	stripe "github.com/stripe/stripe-go/v82"
)

// Save pushes NEW and CHANGED entities to Stripe. Payment method nonces are
// ids of payment methods created client-side with Stripe.js. Stripe has no
// address objects: addresses become billing details of the payment methods
// referencing them.
func (g Gateway) Save(ctx context.Context, c *models.Customer) error {
	customerNeedsSync := c.Processor.State().NeedsSync()
	if customerNeedsSync {
		if err := g.saveCustomer(ctx, c); err != nil {
			return err
		}
	}

	changedAddresses := map[string]bool{}
	for _, a := range c.Addresses {
		if !a.Processor.State().NeedsSync() {
			continue
		}
		changedAddresses[a.ID] = true
		if err := a.Processor.MarkSaved(fmt.Sprintf("%s/%s", c.Processor.ID, a.ID)); err != nil {
			return wrapErr(err, a.ID, "can't save address")
		}
	}

	for i, m := range c.PaymentMethods {
		b := m.Base()
		switch {
		case b.Processor.State().IsTerminal():
			continue
		case !b.Processor.HasID():
			saved, err := g.attachPaymentMethod(ctx, c, m)
			if err != nil {
				return err
			}
			c.PaymentMethods[i] = saved
		case b.Processor.State() == processor.StatusChanged || changedAddresses[b.BillingAddressID]:
			if err := g.updateBillingDetails(ctx, c, m); err != nil {
				return err
			}
			if err := b.Processor.MarkSaved(b.Processor.ID); err != nil {
				return wrapErr(err, b.ID, "can't save payment method")
			}
		}
	}

	if customerNeedsSync && c.DefaultPaymentMethodID != "" {
		if err := g.setDefaultPaymentMethod(ctx, c); err != nil {
			return err
		}
	}

	for _, s := range c.Subscriptions {
		if !s.Processor.State().NeedsSync() {
			continue
		}
		if err := g.saveSubscription(ctx, c, s); err != nil {
			return err
		}
	}

	// charges and refunds are immutable in Stripe: a retried one is only
	// confirmed back
	for _, t := range c.Transactions {
		b := t.Base()
		if b.Processor.State() != processor.StatusChanged || !b.Processor.HasID() {
			continue
		}
		if err := b.Processor.MarkSaved(b.Processor.ID); err != nil {
			return wrapErr(err, b.ID, "can't save transaction")
		}
	}

	return nil
}

func (g Gateway) saveCustomer(ctx context.Context, c *models.Customer) error {
	p := &stripe.CustomerParams{
		Params: params(ctx),
		Name:   stripe.String(c.Name),
		Email:  stripe.String(c.Email),
		Phone:  stripe.String(c.Phone),
	}
	p.AddMetadata(localIDKey, c.ID)
	if c.IPAddress != "" {
		p.AddMetadata("ip_address", c.IPAddress)
	}
	if len(c.Addresses) != 0 {
		p.Address = addressParams(c.Addresses[0])
	}

	remoteID := c.Processor.ID
	if remoteID == "" {
		// a previous save may have created the customer and then failed
		found, err := g.findCustomer(ctx, c)
		if err != nil {
			return err
		}
		remoteID = found
	}

	var sc *stripe.Customer
	var err error
	if remoteID != "" {
		sc, err = g.customers.Update(remoteID, p)
	} else {
		p.SetIdempotencyKey("customer-" + c.ID)
		sc, err = g.customers.New(p)
	}
	if err != nil {
		return wrapErr(err, c.ID, "can't save customer")
	}

	return wrapErr(c.Processor.MarkSaved(sc.ID), c.ID, "can't save customer")
}

// findCustomer returns the id of the Stripe customer created for c, or "".
func (g Gateway) findCustomer(ctx context.Context, c *models.Customer) (string, error) {
	it := g.customers.List(&stripe.CustomerListParams{
		ListParams: stripe.ListParams{Context: ctx},
		Email:      stripe.String(c.Email),
	})
	for it.Next() {
		sc := it.Customer()
		if sc.Metadata[localIDKey] == c.ID {
			return sc.ID, nil
		}
	}
	if err := it.Err(); err != nil {
		return "", wrapErr(err, c.ID, "can't look up customer")
	}
	return "", nil
}

func (g Gateway) setDefaultPaymentMethod(ctx context.Context, c *models.Customer) error {
	pm := c.DefaultPaymentMethod()
	if pm == nil || !pm.Base().Processor.HasID() {
		return nil
	}

	_, err := g.customers.Update(c.Processor.ID, &stripe.CustomerParams{
		Params: params(ctx),
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(pm.Base().Processor.ID),
		},
	})
	return wrapErr(err, c.ID, "can't set default payment method %s", pm.Base().ID)
}

func (g Gateway) attachPaymentMethod(ctx context.Context, c *models.Customer, m models.PaymentMethod) (models.PaymentMethod, error) {
	b := m.Base()
	if b.Nonce == "" {
		return nil, wrapErr(fmt.Errorf("no nonce"), b.ID, "can't create payment method")
	}

	spm, err := g.methods.Attach(b.Nonce, &stripe.PaymentMethodAttachParams{
		Params:   params(ctx),
		Customer: stripe.String(c.Processor.ID),
	})
	if err != nil {
		return nil, wrapErr(err, b.ID, "can't attach payment method")
	}

	saved := paymentMethodFromStripe(spm, *b)
	saved.Base().Nonce = ""
	if err = saved.Base().Processor.MarkSaved(spm.ID); err != nil {
		return nil, wrapErr(err, b.ID, "can't attach payment method")
	}

	if b.BillingAddressID != "" {
		if err = g.updateBillingDetails(ctx, c, saved); err != nil {
			return nil, err
		}
	}
	return saved, nil
}

func (g Gateway) updateBillingDetails(ctx context.Context, c *models.Customer, m models.PaymentMethod) error {
	b := m.Base()
	a := c.AddressByID(b.BillingAddressID)
	if a == nil {
		return nil
	}

	_, err := g.methods.Update(b.Processor.ID, &stripe.PaymentMethodParams{
		Params: params(ctx),
		BillingDetails: &stripe.PaymentMethodBillingDetailsParams{
			Name:    stripe.String(fullName(a)),
			Address: addressParams(a),
		},
	})
	return wrapErr(err, b.ID, "can't update billing details")
}

func (g Gateway) saveSubscription(ctx context.Context, c *models.Customer, s *models.Subscription) error {
	pm := c.PaymentMethodByID(s.PaymentMethodID)
	if pm == nil || !pm.Base().Processor.HasID() {
		return wrapErr(fmt.Errorf("payment method %s isn't saved", s.PaymentMethodID), s.ID, "can't save subscription")
	}

	discounts, err := g.discountParams(ctx, s)
	if err != nil {
		return err
	}

	p := &stripe.SubscriptionParams{
		Params:               params(ctx),
		DefaultPaymentMethod: stripe.String(pm.Base().Processor.ID),
		Discounts:            discounts,
	}
	p.AddMetadata(localIDKey, s.ID)
	if s.Descriptor != nil {
		p.Description = stripe.String(s.Descriptor.Name)
	}

	var ss *stripe.Subscription
	if s.Processor.HasID() {
		ss, err = g.updateSubscription(s, p)
	} else {
		p.Customer = stripe.String(c.Processor.ID)
		p.Items = []*stripe.SubscriptionItemsParams{{Price: stripe.String(s.Plan.ProcessorID)}}
		ss, err = g.subscriptions.New(p)
	}
	if err != nil {
		return wrapErr(err, s.ID, "can't save subscription")
	}

	applySubscription(s, ss)
	return wrapErr(s.Processor.MarkSaved(ss.ID), s.ID, "can't save subscription")
}

func (g Gateway) updateSubscription(s *models.Subscription, p *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	current, err := g.subscriptions.Get(s.Processor.ID, &stripe.SubscriptionParams{Params: p.Params})
	if err != nil {
		return nil, err
	}

	if item := firstItem(current); item != nil && (item.Price == nil || item.Price.ID != s.Plan.ProcessorID) {
		p.Items = []*stripe.SubscriptionItemsParams{{
			ID:    stripe.String(item.ID),
			Price: stripe.String(s.Plan.ProcessorID),
		}}
	}
	return g.subscriptions.Update(s.Processor.ID, p)
}

// discountParams creates a coupon for every discount Stripe doesn't know
// yet. Coupons entered by the customer are referenced directly.
func (g Gateway) discountParams(ctx context.Context, s *models.Subscription) ([]*stripe.SubscriptionDiscountParams, error) {
	var ret []*stripe.SubscriptionDiscountParams
	for _, d := range s.Discounts {
		b := d.Base()
		if b.Processor.State().IsTerminal() {
			continue
		}

		if b.Processor.State().NeedsSync() {
			id, err := g.saveCoupon(ctx, s, d)
			if err != nil {
				return nil, err
			}
			// an edited discount is a new coupon, so the remote id may change
			b.Processor = processor.SavedLink(id)
		}

		ret = append(ret, &stripe.SubscriptionDiscountParams{Coupon: stripe.String(b.Processor.ID)})
	}
	return ret, nil
}

func (g Gateway) saveCoupon(ctx context.Context, s *models.Subscription, d models.Discount) (string, error) {
	b := d.Base()
	p := &stripe.CouponParams{
		Params: params(ctx),
		Name:   stripe.String(b.Name),
	}
	if b.NumberOfBillingCycles > 1 {
		p.Duration = stripe.String(string(stripe.CouponDurationRepeating))
		p.DurationInMonths = stripe.Int64(int64(b.NumberOfBillingCycles * maxInt(s.Plan.BillingFrequency, 1)))
	} else {
		p.Duration = stripe.String(string(stripe.CouponDurationOnce))
	}

	switch d := d.(type) {
	case *models.CouponAmount:
		if b.Processor.ID == "" && d.CouponID != "" {
			return d.CouponID, nil
		}
		p.AmountOff = stripe.Int64(toMinor(d.Amount))
	case *models.CouponPercent:
		if b.Processor.ID == "" && d.CouponID != "" {
			return d.CouponID, nil
		}
		p.PercentOff = stripe.Float64(d.Percent.InexactFloat64())
	case *models.AmountDiscount:
		p.AmountOff = stripe.Int64(toMinor(d.Amount))
	case *models.InviterDiscount:
		p.AmountOff = stripe.Int64(toMinor(d.Amount))
		p.AddMetadata("inviter_id", d.InviterID)
	case *models.PercentDiscount:
		p.PercentOff = stripe.Float64(d.Percent.InexactFloat64())
	}
	if p.AmountOff != nil {
		p.Currency = stripe.String(currency(s.Plan.Currency))
	}

	// Stripe coupons are immutable: an edited discount gets a new one
	cp, err := g.coupons.New(p)
	if err != nil {
		return "", wrapErr(err, s.ID, "can't create coupon for discount %s", b.Name)
	}
	return cp.ID, nil
}

func addressParams(a *models.Address) *stripe.AddressParams {
	return &stripe.AddressParams{
		Line1:      stripe.String(a.StreetAddress),
		Line2:      stripe.String(a.ExtendedAddress),
		City:       stripe.String(a.Locality),
		State:      stripe.String(a.Region),
		PostalCode: stripe.String(a.PostalCode),
		Country:    stripe.String(a.CountryCodeAlpha2),
	}
}

func fullName(a *models.Address) string {
	switch {
	case a.FirstName == "":
		return a.LastName
	case a.LastName == "":
		return a.FirstName
	default:
		return a.FirstName + " " + a.LastName
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
