package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	anthropicURL     = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"
	maxBodyChars     = 3500
	maxImageHints    = 10
)

const systemPrompt = `You are a shopping receipt parser. Given an order confirmation email, extract every clothing item purchased.

Respond with ONLY a raw JSON object - no markdown fences, no explanation.

Format:
{
  "merchant": "Store name or null",
  "items": [
    {
      "item_name": "Short clean name (max 60 chars, no marketing spam)",
      "price": 29.99,
      "purchased_at": "YYYY-MM-DD",
      "image_url": "https://... or null",
      "category_guess": "Tops|Bottoms|Outerwear|Shoes|Accessories|Other",
      "size": "M or null",
      "confidence": 0.95,
      "is_clothing": true
    }
  ]
}

Rules:
- is_clothing=true: clothing, shoes, bags, jewelry, hats, belts, socks, underwear, swimwear
- is_clothing=false: electronics, food, gift cards, home goods, hair clips, candles
- price: only use values from the "Pre-extracted prices" list. null if unsure.
- confidence: 0.9+ clear receipt, 0.7-0.89 unclear, 0.5-0.69 maybe marketing, <0.5 skip it
- If no clothing found: {"merchant": null, "items": []}`

// ClaudeExtractor calls the Anthropic messages API over plain HTTP.
type ClaudeExtractor struct {
	apiKey string
	model  string
	client *http.Client
}

func NewClaudeExtractor(apiKey, model string) *ClaudeExtractor {
	return &ClaudeExtractor{
		apiKey: apiKey,
		model:  model,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *ClaudeExtractor) Extract(ctx context.Context, req ExtractRequest) (ExtractResult, error) {
	body, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: 2000,
		System:    systemPrompt,
		Messages:  []message{{Role: "user", Content: buildUserPrompt(req)}},
	})
	if err != nil {
		return ExtractResult{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicURL, bytes.NewReader(body))
	if err != nil {
		return ExtractResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return ExtractResult{}, fmt.Errorf("anthropic request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ExtractResult{}, err
	}
	var mr messagesResponse
	if err := json.Unmarshal(raw, &mr); err != nil {
		return ExtractResult{}, fmt.Errorf("anthropic response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if mr.Error != nil {
			return ExtractResult{}, fmt.Errorf("anthropic %d: %s", resp.StatusCode, mr.Error.Message)
		}
		return ExtractResult{}, fmt.Errorf("anthropic status %d", resp.StatusCode)
	}
	if len(mr.Content) == 0 {
		return ExtractResult{}, fmt.Errorf("anthropic: empty content")
	}

	return parseExtraction(mr.Content[0].Text)
}

func buildUserPrompt(req ExtractRequest) string {
	lines := []string{"Subject: " + req.Subject}

	if body := strings.TrimSpace(req.PlainText); body != "" {
		if len(body) > maxBodyChars {
			body = body[:maxBodyChars]
		}
		lines = append(lines, "", "Email body:", body)
	}

	if len(req.PricesFound) > 0 {
		prices := make([]string, len(req.PricesFound))
		for i, p := range req.PricesFound {
			prices[i] = fmt.Sprintf("$%.2f", p)
		}
		lines = append(lines, "", "Pre-extracted prices: "+strings.Join(prices, ", "))
	} else {
		lines = append(lines, "", "No prices found - set price to null.")
	}

	if len(req.ImageURLs) > 0 {
		urls := req.ImageURLs
		if len(urls) > maxImageHints {
			urls = urls[:maxImageHints]
		}
		lines = append(lines, "", "Product image URLs:", strings.Join(urls, "\n"))
	}

	return strings.Join(lines, "\n")
}

// parseExtraction tolerates markdown fences some models wrap around JSON.
func parseExtraction(text string) (ExtractResult, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if i := strings.LastIndex(text, "```"); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
	}
	var res ExtractResult
	if err := json.Unmarshal([]byte(text), &res); err != nil {
		return ExtractResult{}, fmt.Errorf("parse extraction: %w", err)
	}
	return res, nil
}
