package service

import (
	"math"
	"strings"
	"time"

	"github.com/jask/jaskcloset/internal/llm"
)

// ConfidenceThreshold is the minimum extraction confidence to enqueue a
// candidate. Boundary inclusive: 0.65 is kept, 0.64 dropped. Tunable constant
// trading recall for queue cleanliness.
const ConfidenceThreshold = 0.65

// Candidate is one normalized line item, ready for deduplication.
type Candidate struct {
	Merchant    *string
	ItemName    string
	NameKey     string
	Category    *string
	Size        *string
	PriceCents  *int64
	PurchasedAt *time.Time
	ImageURL    *string
	Confidence  float64
}

// NormalizeCandidates applies the clothing and confidence gates and normalizes
// the survivors. Pure transformation: unparseable sub-fields degrade to nil,
// never to an error.
//
// Image hints from the email are assigned in encounter order, one hint per
// candidate that has no image of its own, each hint used at most once.
func NormalizeCandidates(res llm.ExtractResult, imageHints []string) []Candidate {
	var out []Candidate
	imgIdx := 0
	for _, item := range res.Items {
		if !item.IsClothing {
			continue
		}
		if item.Confidence < ConfidenceThreshold {
			continue
		}
		name := strings.TrimSpace(item.ItemName)
		if name == "" {
			continue
		}

		c := Candidate{
			Merchant:    res.Merchant,
			ItemName:    name,
			NameKey:     NormalizeName(name),
			Category:    item.CategoryGuess,
			Size:        item.Size,
			PriceCents:  priceToCents(item.Price),
			PurchasedAt: parsePurchaseDate(item.PurchasedAt),
			ImageURL:    item.ImageURL,
			Confidence:  item.Confidence,
		}
		if (c.ImageURL == nil || *c.ImageURL == "") && imgIdx < len(imageHints) {
			hint := imageHints[imgIdx]
			imgIdx++
			c.ImageURL = &hint
		}
		out = append(out, c)
	}
	return out
}

// NormalizeName is the dedup key for item names: case-folded and trimmed.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// priceToCents converts a decimal price to integer minor units, rounding
// half-up via math.Round. A missing price stays unknown, never zero.
func priceToCents(p *float64) *int64 {
	if p == nil {
		return nil
	}
	cents := int64(math.Round(*p * 100))
	return &cents
}

// parsePurchaseDate accepts ISO-8601 dates, with an RFC3339 fallback for
// extractors that return full timestamps. Any parse failure yields nil.
func parsePurchaseDate(s *string) *time.Time {
	if s == nil {
		return nil
	}
	raw := strings.TrimSpace(*s)
	if raw == "" {
		return nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		t = t.UTC()
		return &t
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t
	}
	return nil
}
