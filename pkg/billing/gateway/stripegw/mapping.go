package stripegw

import (
	"strconv"
	"strings"
	"time"

	"github.com/golangci/golangci-billing/pkg/billing/models"
	stripe "github.com/stripe/stripe-go/v82"
)

const (
	typePayPal    = "paypal"
	walletApplePay  = "apple_pay"
	walletGooglePay = "google_pay"
)

func currency(c string) string {
	if c == "" {
		return string(stripe.CurrencyUSD)
	}
	return strings.ToLower(c)
}

// paymentMethodFromStripe returns the variant matching spm, keeping the
// local identity from base.
func paymentMethodFromStripe(spm *stripe.PaymentMethod, base models.PaymentMethodBase) models.PaymentMethod {
	if string(spm.Type) == typePayPal && spm.Paypal != nil {
		return &models.PayPalAccount{
			PaymentMethodBase: base,
			Email:             spm.Paypal.PayerEmail,
			Name:              billingName(spm),
		}
	}

	card := spm.Card
	if card == nil {
		return &models.CreditCard{PaymentMethodBase: base}
	}

	expMonth := itoa(card.ExpMonth)
	expYear := itoa(card.ExpYear)

	if card.Wallet != nil {
		switch string(card.Wallet.Type) {
		case walletApplePay:
			return &models.ApplePayCard{
				PaymentMethodBase:     base,
				CardType:              string(card.Brand),
				PaymentInstrumentName: billingName(spm),
				ExpirationMonth:       expMonth,
				ExpirationYear:        expYear,
				Last4:                 card.Last4,
			}
		case walletGooglePay:
			return &models.AndroidPayCard{
				PaymentMethodBase: base,
				SourceCardType:    string(card.Brand),
				SourceCardLast4:   card.Last4,
				VirtualCardType:   string(card.Brand),
				VirtualCardLast4:  card.Wallet.DynamicLast4,
				ExpirationMonth:   expMonth,
				ExpirationYear:    expYear,
			}
		}
	}

	return &models.CreditCard{
		PaymentMethodBase: base,
		CardType:          string(card.Brand),
		CardholderName:    billingName(spm),
		CountryOfIssue:    card.Country,
		ExpirationMonth:   expMonth,
		ExpirationYear:    expYear,
		Last4:             card.Last4,
	}
}

func billingName(spm *stripe.PaymentMethod) string {
	if spm.BillingDetails == nil {
		return ""
	}
	return spm.BillingDetails.Name
}

func subscriptionStatus(s stripe.SubscriptionStatus) models.SubscriptionStatus {
	switch s {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return models.SubscriptionActive
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return models.SubscriptionPastDue
	case stripe.SubscriptionStatusCanceled:
		return models.SubscriptionCanceled
	case stripe.SubscriptionStatusIncompleteExpired:
		return models.SubscriptionExpired
	default:
		return models.SubscriptionPending
	}
}

func firstItem(ss *stripe.Subscription) *stripe.SubscriptionItem {
	if ss.Items == nil || len(ss.Items.Data) == 0 {
		return nil
	}
	return ss.Items.Data[0]
}

// applySubscription copies the processor-owned fields of ss onto s.
func applySubscription(s *models.Subscription, ss *stripe.Subscription) {
	s.Status = subscriptionStatus(ss.Status)
	if ss.StartDate != 0 {
		s.FirstBillingAt = time.Unix(ss.StartDate, 0).UTC()
	}

	item := firstItem(ss)
	if item == nil {
		return
	}
	if item.CurrentPeriodEnd != 0 {
		s.PaidThroughDate = time.Unix(item.CurrentPeriodEnd, 0).UTC()
	}
	if item.Price != nil {
		s.Plan.ProcessorID = item.Price.ID
		if item.Price.UnitAmount != 0 {
			s.Price = fromMinor(item.Price.UnitAmount)
		}
		if item.Price.Currency != "" {
			s.Plan.Currency = strings.ToUpper(string(item.Price.Currency))
		}
	}
}

func transactionStatus(ch *stripe.Charge) models.TransactionStatus {
	switch ch.Status {
	case stripe.ChargeStatusSucceeded:
		if ch.Captured {
			return models.TransactionSettled
		}
		return models.TransactionAuthorized
	case stripe.ChargeStatusPending:
		return models.TransactionSubmitted
	default:
		return models.TransactionFailed
	}
}

func transactionKind(ch *stripe.Charge) models.TransactionKind {
	d := ch.PaymentMethodDetails
	switch {
	case d == nil:
		return models.KindTransactionCreditCard
	case string(d.Type) == typePayPal:
		return models.KindTransactionPayPalAccount
	case d.Card != nil && d.Card.Wallet != nil && string(d.Card.Wallet.Type) == walletApplePay:
		return models.KindTransactionApplePayCard
	case d.Card != nil && d.Card.Wallet != nil && string(d.Card.Wallet.Type) == walletGooglePay:
		return models.KindTransactionAndroidPayCard
	default:
		return models.KindTransactionCreditCard
	}
}

func itoa(v int64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatInt(v, 10)
}

func currencyCode(c stripe.Currency) string {
	return strings.ToUpper(string(c))
}

func unixOrNow(ts int64) time.Time {
	if ts == 0 {
		return time.Now().UTC()
	}
	return time.Unix(ts, 0).UTC()
}
