package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderTypeDeathCertificate is the registry's order type for death certificates.
const OrderTypeDeathCertificate = "DC"

// OrderKey is the order identifier issued by the store when a header is created.
type OrderKey int64

// State is a step of the submission pipeline.
type State string

const (
	StateCreating       State = "CREATING"
	StateItemsPending   State = "ITEMS_PENDING"
	StatePaymentPending State = "PAYMENT_PENDING"
	StateComplete       State = "COMPLETE"
)

// Address is a mailing address.
type Address struct {
	Name    string `json:"name"`
	Company string `json:"company,omitempty"`
	Line1   string `json:"address1"`
	Line2   string `json:"address2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZIP     string `json:"zip"`
}

// LineItem is one certificate and how many copies of it to mail.
type LineItem struct {
	CertificateID int    `json:"id"`
	Quantity      int    `json:"quantity"`
	Name          string `json:"name"`
}

// Order is a fully validated, paid-for cart ready to be recorded.
type Order struct {
	ReferenceID string
	OrderDate   time.Time

	ContactName  string
	ContactEmail string
	ContactPhone string

	Shipping              Address
	Billing               Address
	BillingSameAsShipping bool

	CardholderName string
	PaymentToken   string
	CardLast4      string

	Items      []LineItem
	UnitCost   decimal.Decimal
	ServiceFee decimal.Decimal
	Total      decimal.Decimal

	IdempotencyKey string
}

// BillingAddress returns the address the card is billed to, named for the cardholder.
func (o Order) BillingAddress() Address {
	addr := o.Billing
	if o.BillingSameAsShipping {
		addr = o.Shipping
		addr.Company = ""
	}
	addr.Name = o.CardholderName
	return addr
}

// Header is the order header row sent to the store.
type Header struct {
	ReferenceID    string
	OrderType      string
	OrderDate      time.Time
	ContactName    string
	ContactEmail   string
	ContactPhone   string
	Shipping       Address
	Billing        Address
	BillingLast4   string
	ServiceFee     string
	IdempotencyKey string
}

// CreateResult is the store's answer to a header write. Duplicate is set when
// the idempotency key was already used and OrderKey is the existing order.
type CreateResult struct {
	OrderKey     OrderKey
	Duplicate    bool
	ErrorMessage string
}

// ItemRow attaches one line item to an order.
type ItemRow struct {
	OrderKey        OrderKey
	OrderType       string
	CertificateID   int
	CertificateName string
	Quantity        int
	UnitCost        string
}

// PaymentRow records the payment for an order.
type PaymentRow struct {
	OrderKey      OrderKey
	PaymentDate   time.Time
	Description   string
	TransactionID string
	Amount        string
}
