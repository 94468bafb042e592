package validation

// Address is a mailing address in an order request.
type Address struct {
	Name     string `json:"name" validate:"required,max=100"`
	Company  string `json:"company,omitempty" validate:"max=100"`
	Address1 string `json:"address1" validate:"required,max=100"`
	Address2 string `json:"address2,omitempty" validate:"max=100"`
	City     string `json:"city" validate:"required,max=50"`
	State    string `json:"state" validate:"required,max=20"`
	ZIP      string `json:"zip" validate:"required,max=10"`
}

// Item is one certificate in the cart.
type Item struct {
	ID       int    `json:"id" validate:"required,gt=0"`
	Quantity int    `json:"quantity" validate:"required,min=1,max=10"`
	Name     string `json:"name" validate:"required,max=100"`
}

// CreateOrderRequest is the payload for POST /death/orders
type CreateOrderRequest struct {
	ContactName  string `json:"contact_name" validate:"required,max=100"`
	ContactEmail string `json:"contact_email" validate:"required,email"`
	ContactPhone string `json:"contact_phone" validate:"omitempty,max=20"`

	ShippingAddress       Address  `json:"shipping_address" validate:"required"`
	BillingSameAsShipping bool     `json:"billing_same_as_shipping"`
	BillingAddress        *Address `json:"billing_address,omitempty" validate:"omitempty"`

	CardholderName string `json:"cardholder_name" validate:"required,max=100"`
	CardToken      string `json:"card_token" validate:"required"` // processor token
	CardLast4      string `json:"card_last4" validate:"required,len=4,numeric"`

	Items []Item `json:"items" validate:"required,min=1,dive"` // at least one certificate
	Total string `json:"total" validate:"required"`            // amount quoted to the buyer, e.g. "43.18"
}

// SearchRequest is the query string for GET /death/search
type SearchRequest struct {
	Query     string `form:"q" validate:"required,max=100"`
	Page      int    `form:"page" validate:"omitempty,min=1"`
	PageSize  int    `form:"page_size" validate:"omitempty,min=1,max=100"`
	StartYear *int   `form:"start_year" validate:"omitempty,min=1800,max=2100"`
	EndYear   *int   `form:"end_year" validate:"omitempty,min=1800,max=2100"`
}
