package appraise

import (
	"context"
	"fmt"
	"strings"
)

// Image carries one fetched input image handed to the valuation model.
type Image struct {
	Data []byte
	MIME string
}

// Result is the structured appraisal returned by the valuation service.
type Result struct {
	ItemName    string   `json:"item_name"`
	Maker       string   `json:"maker"`
	Era         string   `json:"era"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	PriceLow    float64  `json:"price_low"`
	PriceHigh   float64  `json:"price_high"`
	Currency    string   `json:"currency"`
	Reasoning   string   `json:"reasoning"`
	References  []string `json:"references"`
}

// Normalize fixes up model jitter and rejects unusable results. An empty item
// name or negative pricing means the response cannot back a valuation.
func (r *Result) Normalize() error {
	r.ItemName = strings.TrimSpace(r.ItemName)
	if r.ItemName == "" {
		return fmt.Errorf("valuation result missing item name")
	}
	if r.PriceLow < 0 || r.PriceHigh < 0 {
		return fmt.Errorf("valuation result has negative price bounds")
	}
	if r.PriceLow > r.PriceHigh {
		r.PriceLow, r.PriceHigh = r.PriceHigh, r.PriceLow
	}
	if strings.TrimSpace(r.Currency) == "" {
		r.Currency = "USD"
	}
	return nil
}

// Appraiser is the contract implemented by valuation providers.
type Appraiser interface {
	Appraise(ctx context.Context, images []Image, condition string) (*Result, error)
}
