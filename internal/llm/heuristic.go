package llm

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// HeuristicExtractor is a lightweight, offline-friendly implementation.
// It mimics the interface and behavior (timeouts, graceful degradation) so the
// pipeline and demo can run without an API key.
type HeuristicExtractor struct{}

func NewHeuristicExtractor() *HeuristicExtractor { return &HeuristicExtractor{} }

var lineWithPrice = regexp.MustCompile(`^(.*?)[\s.]*\$(\d+(?:\.\d{1,2})?)\s*$`)

var clothingKeywords = map[string]string{
	"shirt": "Tops", "tee": "Tops", "t-shirt": "Tops", "blouse": "Tops", "sweater": "Tops",
	"hoodie": "Tops", "tank": "Tops", "top": "Tops", "cardigan": "Tops",
	"jeans": "Bottoms", "pants": "Bottoms", "shorts": "Bottoms", "skirt": "Bottoms",
	"trousers": "Bottoms", "leggings": "Bottoms", "chinos": "Bottoms",
	"jacket": "Outerwear", "coat": "Outerwear", "parka": "Outerwear", "blazer": "Outerwear",
	"vest": "Outerwear",
	"shoe": "Shoes", "shoes": "Shoes", "sneaker": "Shoes", "sneakers": "Shoes",
	"boot": "Shoes", "boots": "Shoes", "sandal": "Shoes", "heels": "Shoes", "loafers": "Shoes",
	"belt": "Accessories", "hat": "Accessories", "cap": "Accessories", "scarf": "Accessories",
	"bag": "Accessories", "sock": "Accessories", "socks": "Accessories", "jewelry": "Accessories",
	"dress": "Other", "swimsuit": "Other", "underwear": "Other",
}

// Extract scans body lines for "<name> $<price>" shapes and classifies each by
// keyword. Timeout: 5s for parity with networked extractors.
func (h *HeuristicExtractor) Extract(ctx context.Context, req ExtractRequest) (ExtractResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return ExtractResult{}, err
	}

	res := ExtractResult{Merchant: merchantFromSubject(req.Subject)}
	for _, line := range strings.Split(req.PlainText, "\n") {
		line = strings.TrimSpace(line)
		m := lineWithPrice.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := strings.Trim(strings.TrimSpace(m[1]), "-:*")
		name = strings.TrimSpace(name)
		if len(name) < 3 || strings.EqualFold(name, "total") || strings.EqualFold(name, "subtotal") ||
			strings.EqualFold(name, "shipping") || strings.EqualFold(name, "tax") {
			continue
		}
		price, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}

		category, clothing := classify(name)
		confidence := 0.5
		if clothing {
			confidence = 0.9
		}
		item := ExtractedItem{
			ItemName:   name,
			Price:      &price,
			Confidence: confidence,
			IsClothing: clothing,
		}
		if clothing {
			item.CategoryGuess = &category
		}
		res.Items = append(res.Items, item)
	}
	return res, nil
}

func merchantFromSubject(subject string) *string {
	lower := strings.ToLower(subject)
	for _, marker := range []string{" order", " purchase", " receipt"} {
		idx := strings.Index(lower, marker)
		if idx <= 0 {
			continue
		}
		head := strings.Fields(subject[:idx])
		if len(head) == 0 {
			continue
		}
		candidate := strings.Trim(head[len(head)-1], ",.!")
		if candidate != "" && !strings.EqualFold(candidate, "your") {
			return &candidate
		}
	}
	return nil
}

func classify(name string) (category string, clothing bool) {
	lower := strings.ToLower(name)
	for kw, cat := range clothingKeywords {
		if strings.Contains(lower, kw) {
			return cat, true
		}
	}
	return "", false
}
