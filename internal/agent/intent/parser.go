package intent

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/aroundyou/commerce-agent/internal/agent/model"
	errx "github.com/aroundyou/commerce-agent/internal/core/error"
	logx "github.com/aroundyou/commerce-agent/pkg/logger"
)

// basic safety limits to avoid pathological model outputs
const (
	maxContentLen = 64 * 1024 // 64KB
	maxItems      = 50
	maxVariants   = 20
	maxTermsPer   = 10
)

// wire mirrors the JSON contract of the intent prompt.
type wire struct {
	PrimaryQuery    string     `json:"primary_query"`
	ExpandedQueries []string   `json:"expanded_queries"`
	Items           []wireItem `json:"items"`
	Reasoning       string     `json:"reasoning"`
}

type wireItem struct {
	Name        string   `json:"name"`
	Brand       string   `json:"brand"`
	Category    string   `json:"category"`
	Quantity    int      `json:"quantity"`
	SearchTerms []string `json:"search_terms"`
}

// ParseResponse turns the model's intent output into an IntentAnalysis.
// Tolerates code fences and leading prose around the JSON object; rejects
// output with no usable primary query.
func ParseResponse(content string) (analysis *model.IntentAnalysis, err error) {
	// panic safety
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "intent_parser").Msgf("panic recovered: %v", r)
			err = errx.New(fmt.Errorf("intent parser panic"), http.StatusInternalServerError, errx.SystemErrorMessage)
			analysis = nil
		}
	}()

	if len(content) > maxContentLen {
		logx.Warn().
			Str("component", "intent_parser").
			Int("orig_len", len(content)).
			Int("max_len", maxContentLen).
			Msg("content truncated due to size limit")
		content = content[:maxContentLen]
	}

	body, ok := extractJSONObject(content)
	if !ok {
		return nil, fmt.Errorf("no JSON object in intent response")
	}

	var w wire
	if err := json.Unmarshal([]byte(body), &w); err != nil {
		return nil, fmt.Errorf("decode intent response: %w", err)
	}

	primary := strings.TrimSpace(w.PrimaryQuery)
	if primary == "" {
		return nil, fmt.Errorf("intent response missing primary_query")
	}

	out := &model.IntentAnalysis{
		PrimaryQuery: primary,
		Reasoning:    strings.TrimSpace(w.Reasoning),
	}

	for _, q := range w.ExpandedQueries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		out.ExpandedQueries = append(out.ExpandedQueries, q)
		if len(out.ExpandedQueries) >= maxVariants {
			break
		}
	}

	for _, it := range w.Items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			continue
		}
		qty := it.Quantity
		if qty < 1 {
			qty = 1
		}
		terms := make([]string, 0, len(it.SearchTerms))
		for _, t := range it.SearchTerms {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			terms = append(terms, t)
			if len(terms) >= maxTermsPer {
				break
			}
		}
		out.Items = append(out.Items, model.ExtractedItem{
			Name:        name,
			Brand:       strings.TrimSpace(it.Brand),
			Category:    strings.TrimSpace(it.Category),
			Quantity:    qty,
			SearchTerms: terms,
		})
		if len(out.Items) >= maxItems {
			break
		}
	}

	return out, nil
}

// extractJSONObject strips code fences and surrounding prose, returning the
// outermost {...} span.
func extractJSONObject(content string) (string, bool) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return content[start : end+1], true
}
