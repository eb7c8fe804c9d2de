package llm

import "context"

// Extractor turns one email into zero or more candidate purchase items.
type Extractor interface {
	Extract(ctx context.Context, req ExtractRequest) (ExtractResult, error)
}

// ExtractRequest carries the email content plus side-channel hints.
type ExtractRequest struct {
	Subject     string    `json:"subject"`
	PlainText   string    `json:"plain_text"`
	PricesFound []float64 `json:"prices_found"`
	ImageURLs   []string  `json:"image_urls"`
}

// ExtractResult is the best-effort structured extraction for one email.
type ExtractResult struct {
	Merchant *string         `json:"merchant"`
	Items    []ExtractedItem `json:"items"`
}

// ExtractedItem is one candidate line item with classification metadata.
type ExtractedItem struct {
	ItemName      string   `json:"item_name"`
	Price         *float64 `json:"price"`
	PurchasedAt   *string  `json:"purchased_at"`
	ImageURL      *string  `json:"image_url"`
	CategoryGuess *string  `json:"category_guess"`
	Size          *string  `json:"size"`
	Confidence    float64  `json:"confidence"`
	IsClothing    bool     `json:"is_clothing"`
}

// Categories the extractor is asked to choose from.
var Categories = []string{"Tops", "Bottoms", "Outerwear", "Shoes", "Accessories", "Other"}
