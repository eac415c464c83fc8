package dto

import (
	"github.com/creatorcommerce/backend/internal/domain/shipping"
	"github.com/creatorcommerce/backend/internal/domain/vendor"
)

// SearchRequest is the catalog search query. Vendors optionally restricts
// the fan-out to the named vendors.
type SearchRequest struct {
	Query    string   `form:"q"`
	Category string   `form:"category"`
	Vendors  []string `form:"vendors"`
	Page     int      `form:"page" binding:"omitempty,min=1"`
	PageSize int      `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ToFilter converts the request to a domain catalog filter
func (r *SearchRequest) ToFilter() vendor.CatalogFilter {
	return vendor.CatalogFilter{
		Query:    r.Query,
		Category: r.Category,
		Page:     r.Page,
		PageSize: r.PageSize,
	}
}

// AddressRequest is a shipping address in API shape
type AddressRequest struct {
	Name        string `json:"name"`
	Line1       string `json:"line1" binding:"required"`
	Line2       string `json:"line2"`
	City        string `json:"city" binding:"required"`
	State       string `json:"state"`
	PostalCode  string `json:"postal_code"`
	CountryCode string `json:"country_code" binding:"required,len=2"`
	Phone       string `json:"phone"`
	Email       string `json:"email" binding:"omitempty,email"`
}

// ToVendorAddress converts to the vendor domain address
func (r *AddressRequest) ToVendorAddress() vendor.Address {
	return vendor.Address{
		Name:        r.Name,
		Line1:       r.Line1,
		Line2:       r.Line2,
		City:        r.City,
		State:       r.State,
		PostalCode:  r.PostalCode,
		CountryCode: r.CountryCode,
		Phone:       r.Phone,
		Email:       r.Email,
	}
}

// ToShippingAddress converts to the shipping domain address
func (r *AddressRequest) ToShippingAddress() shipping.Address {
	return shipping.Address{
		Name:        r.Name,
		Street1:     r.Line1,
		Street2:     r.Line2,
		City:        r.City,
		State:       r.State,
		Zip:         r.PostalCode,
		CountryCode: r.CountryCode,
		Phone:       r.Phone,
	}
}

// LineItemRequest is one ordered product in API shape
type LineItemRequest struct {
	SKU         string  `json:"sku" binding:"required"`
	Quantity    int     `json:"quantity" binding:"required,min=1"`
	UnitPrice   float64 `json:"unit_price" binding:"omitempty,gt=0"`
	ProductType string  `json:"product_type" binding:"omitempty,oneof=pod physical digital"`
}

// CreateOrderRequest is the order placement request
type CreateOrderRequest struct {
	Reference       string            `json:"reference" binding:"required"`
	PreferredVendor string            `json:"preferred_vendor"`
	ShippingAddress AddressRequest    `json:"shipping_address" binding:"required"`
	LineItems       []LineItemRequest `json:"line_items" binding:"required,min=1,dive"`
}

// ToOrderRequest converts to the domain order request
func (r *CreateOrderRequest) ToOrderRequest() *vendor.OrderRequest {
	items := make([]vendor.LineItem, 0, len(r.LineItems))
	for _, li := range r.LineItems {
		items = append(items, vendor.LineItem{
			SKU:         li.SKU,
			Quantity:    li.Quantity,
			UnitPrice:   toDecimal(li.UnitPrice),
			ProductType: li.ProductType,
		})
	}
	return &vendor.OrderRequest{
		Reference:       r.Reference,
		PreferredVendor: r.PreferredVendor,
		ShippingAddress: r.ShippingAddress.ToVendorAddress(),
		LineItems:       items,
	}
}

// ParcelRequest describes the package being quoted
type ParcelRequest struct {
	LengthCm float64 `json:"length_cm" binding:"omitempty,gt=0"`
	WidthCm  float64 `json:"width_cm" binding:"omitempty,gt=0"`
	HeightCm float64 `json:"height_cm" binding:"omitempty,gt=0"`
	WeightG  float64 `json:"weight_g" binding:"required,gt=0"`
}

// ToParcel converts to the domain parcel
func (r *ParcelRequest) ToParcel() shipping.Parcel {
	return shipping.Parcel{
		LengthCm: toDecimal(r.LengthCm),
		WidthCm:  toDecimal(r.WidthCm),
		HeightCm: toDecimal(r.HeightCm),
		WeightG:  toDecimal(r.WeightG),
	}
}

// RatesRequest quotes a shipment across the enabled rate providers
type RatesRequest struct {
	From     AddressRequest `json:"from" binding:"required"`
	To       AddressRequest `json:"to" binding:"required"`
	Parcel   ParcelRequest  `json:"parcel" binding:"required"`
	Carriers []string       `json:"carriers"`
	Services []string       `json:"services"`
	Cheapest bool           `json:"cheapest"`
}

// RateQuoteResponse is one normalized rate in API shape
type RateQuoteResponse struct {
	ProviderID string `json:"provider_id"`
	Carrier    string `json:"carrier"`
	Service    string `json:"service"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	ETADays    *int   `json:"eta_days,omitempty"`
}

// FromRateQuote converts a domain quote to API shape
func FromRateQuote(q shipping.RateQuote) RateQuoteResponse {
	return RateQuoteResponse{
		ProviderID: q.ProviderID,
		Carrier:    q.Carrier,
		Service:    q.Service,
		Amount:     q.Amount.String(),
		Currency:   q.Currency,
		ETADays:    q.ETADays,
	}
}

// ProductResponse is one normalized product in API shape
type ProductResponse struct {
	VendorID    string `json:"vendor_id"`
	ExternalID  string `json:"external_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	UnitPrice   string `json:"unit_price"`
	ImageURL    string `json:"image_url,omitempty"`
	Category    string `json:"category,omitempty"`
}

// FromProduct converts a domain product to API shape
func FromProduct(p vendor.NormalizedProduct) ProductResponse {
	return ProductResponse{
		VendorID:    p.VendorID,
		ExternalID:  p.ExternalID,
		Name:        p.Name,
		Description: p.Description,
		UnitPrice:   p.UnitPrice.String(),
		ImageURL:    p.ImageURL,
		Category:    p.Category,
	}
}
