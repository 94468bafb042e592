package validation

import (
	"fmt"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-certificate-orders/internal/orders"
)

// New returns a configured validator with custom struct-level validation registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// the client-quoted total must match what we will charge, and a billing
	// address is required unless it is the shipping address.
	v.RegisterStructValidation(createOrderStructValidation, CreateOrderRequest{})
	v.RegisterStructValidation(searchStructValidation, SearchRequest{})

	return v
}

func createOrderStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CreateOrderRequest)

	if !req.BillingSameAsShipping && req.BillingAddress == nil {
		sl.ReportError(req.BillingAddress, "billing_address", "BillingAddress", "required_unless_same", "")
	}

	quantity := 0
	for _, it := range req.Items {
		quantity += it.Quantity
	}
	if quantity == 0 {
		return
	}

	want := orders.CalculateCost(quantity).Total
	got, err := decimal.NewFromString(req.Total)
	if err != nil {
		sl.ReportError(req.Total, "total", "Total", "decimal", "")
		return
	}
	if !got.Equal(want) {
		sl.ReportError(req.Total, "total", "Total", "total_match_items",
			fmt.Sprintf("items cost %s != total %s", orders.FormatAmount(want), req.Total))
	}
}

func searchStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(SearchRequest)
	if req.StartYear != nil && req.EndYear != nil && *req.EndYear < *req.StartYear {
		sl.ReportError(req.EndYear, "end_year", "EndYear", "gte_start_year", "")
	}
}
