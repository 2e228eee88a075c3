package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a book in the catalog. Price is kept as the decimal string the
// catalog was created with.
type Product struct {
	ID                int64     `json:"bookId"`
	Title             string    `json:"title"`
	Price             string    `json:"price"`
	ImageURL          string    `json:"imageUrl"`
	PdfURL            string    `json:"pdfUrl,omitempty"`
	VideoURLs         []string  `json:"videoUrls,omitempty"`
	ExternalProductID string    `json:"stripeProductId"`
	ExternalPriceID   string    `json:"stripePriceId"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Purchasable reports whether a checkout can reference this product.
func (p *Product) Purchasable() bool {
	return p.ExternalPriceID != ""
}

// AssetURLs lists every object-storage URL owned by the product.
func (p *Product) AssetURLs() []string {
	urls := make([]string, 0, 2+len(p.VideoURLs))
	if p.ImageURL != "" {
		urls = append(urls, p.ImageURL)
	}
	if p.PdfURL != "" {
		urls = append(urls, p.PdfURL)
	}
	return append(urls, p.VideoURLs...)
}

// ParsePrice validates a catalog price string.
func ParsePrice(price string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: price %q is not a decimal", ErrInvalidProduct, price)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: price must be positive", ErrInvalidProduct)
	}
	return d, nil
}

// TotalPrice is the integer amount recorded on a sale.
func (p *Product) TotalPrice() (int64, error) {
	d, err := ParsePrice(p.Price)
	if err != nil {
		return 0, err
	}
	return d.IntPart(), nil
}

// zeroDecimalCurrencies are charged in whole units by Stripe.
var zeroDecimalCurrencies = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true,
	"krw": true, "mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true,
	"vuv": true, "xaf": true, "xof": true, "xpf": true,
}

// MinorUnitExponent is the number of decimal places between a currency's
// major and minor unit.
func MinorUnitExponent(currency string) int32 {
	if zeroDecimalCurrencies[strings.ToLower(currency)] {
		return 0
	}
	return 2
}

// UnitAmount is the price in the currency's minor units, as the payment gateway expects it.
func (p *Product) UnitAmount(currency string) (int64, error) {
	d, err := ParsePrice(p.Price)
	if err != nil {
		return 0, err
	}
	return d.Shift(MinorUnitExponent(currency)).Round(0).IntPart(), nil
}

// NewProduct carries the fields a catalog create accepts.
type NewProduct struct {
	Title string
	Price string
}

func (n NewProduct) Validate() error {
	if n.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidProduct)
	}
	_, err := ParsePrice(n.Price)
	return err
}
