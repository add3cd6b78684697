// Package static implements a collector backed by a JSON seed catalog.
// It serves local development and tests, where an upstream source is
// unavailable.
package static

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/pinfeed/curator/pkg/collector"
	"github.com/pinfeed/curator/pkg/models"
)

type catalogEntry struct {
	ImageURL    string   `json:"image_url"`
	PinURL      string   `json:"pin_url"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// catalogSchema constrains seed files so malformed entries fail at
// warmup rather than surfacing mid-run.
var catalogSchema = map[string]any{
	"type": "array",
	"items": map[string]any{
		"type":     "object",
		"required": []any{"image_url", "pin_url"},
		"properties": map[string]any{
			"image_url":   map[string]any{"type": "string", "minLength": 1},
			"pin_url":     map[string]any{"type": "string", "minLength": 1},
			"title":       map[string]any{"type": "string"},
			"description": map[string]any{"type": "string"},
			"tags": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
	},
}

// Collector matches prompt terms against a seed catalog loaded at
// warmup. Matching is term overlap over title, description and tags.
type Collector struct {
	seedPath string
	logger   *slog.Logger
	entries  []catalogEntry
}

func NewCollector(seedPath string, logger *slog.Logger) *Collector {
	return &Collector{seedPath: seedPath, logger: logger}
}

// NewFactory returns a collector.Factory producing catalog collectors
// for the given seed file.
func NewFactory(seedPath string, logger *slog.Logger) collector.Factory {
	return func() (collector.Collector, error) {
		return NewCollector(seedPath, logger), nil
	}
}

// WarmUp loads and validates the seed catalog.
func (c *Collector) WarmUp(ctx context.Context, prompt *models.Prompt) error {
	data, err := os.ReadFile(c.seedPath)
	if err != nil {
		return fmt.Errorf("failed to read seed catalog %s: %w", c.seedPath, err)
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse seed catalog %s: %w", c.seedPath, err)
	}

	if err := validateCatalog(raw); err != nil {
		return fmt.Errorf("invalid seed catalog %s: %w", c.seedPath, err)
	}

	if err := json.Unmarshal(data, &c.entries); err != nil {
		return fmt.Errorf("failed to decode seed catalog %s: %w", c.seedPath, err)
	}

	c.logger.InfoContext(ctx, "Seed catalog loaded",
		"prompt_id", prompt.ID, "entries", len(c.entries))

	return nil
}

func validateCatalog(data any) error {
	schemaLoader := gojsonschema.NewGoLoader(catalogSchema)
	dataLoader := gojsonschema.NewGoLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}

		return errors.New(strings.Join(problems, "; "))
	}

	return nil
}

// Collect returns the catalog entries sharing at least one term with
// the prompt, capped at maxPins.
func (c *Collector) Collect(ctx context.Context, prompt *models.Prompt, maxPins int) ([]*models.Pin, error) {
	if c.entries == nil {
		return nil, errors.New("collector not warmed up")
	}

	terms := tokenize(prompt.Text)
	now := time.Now().UTC()
	pins := make([]*models.Pin, 0, maxPins)

	for _, entry := range c.entries {
		if !matches(terms, entry) {
			continue
		}

		pins = append(pins, &models.Pin{
			ID:          uuid.New().String(),
			PromptID:    prompt.ID,
			ImageURL:    entry.ImageURL,
			PinURL:      entry.PinURL,
			Title:       entry.Title,
			Description: entry.Description,
			Status:      models.PinStatusReady,
			CollectedAt: now,
		})

		if maxPins > 0 && len(pins) >= maxPins {
			break
		}
	}

	c.logger.InfoContext(ctx, "Catalog collection finished",
		"prompt_id", prompt.ID, "collected", len(pins))

	return pins, nil
}

// Enrich derives a title from the pin URL slug for pins collected
// without one. Returns the number of pins changed.
func (c *Collector) Enrich(_ context.Context, _ *models.Prompt, pins []*models.Pin) (int, error) {
	enriched := 0

	for _, pin := range pins {
		if pin.Title != "" {
			continue
		}

		title := titleFromURL(pin.PinURL)
		if title == "" {
			continue
		}

		pin.Title = title
		enriched++
	}

	return enriched, nil
}

// Close releases the catalog.
func (c *Collector) Close(_ context.Context) error {
	c.entries = nil

	return nil
}

func tokenize(text string) map[string]struct{} {
	terms := make(map[string]struct{})

	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?\"'()")
		if word != "" {
			terms[word] = struct{}{}
		}
	}

	return terms
}

func matches(terms map[string]struct{}, entry catalogEntry) bool {
	haystack := strings.ToLower(entry.Title + " " + entry.Description + " " + strings.Join(entry.Tags, " "))

	for term := range terms {
		if strings.Contains(haystack, term) {
			return true
		}
	}

	return false
}

// titleFromURL turns the last URL path segment into a display title,
// e.g. "mid-century-walnut-desk" becomes "Mid Century Walnut Desk".
func titleFromURL(pinURL string) string {
	slug := strings.Trim(path.Base(strings.TrimRight(pinURL, "/")), "/")
	if slug == "" || slug == "." {
		return ""
	}

	words := strings.FieldsFunc(slug, func(r rune) bool {
		return r == '-' || r == '_'
	})

	for i, word := range words {
		if word == "" {
			continue
		}

		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}

	return strings.Join(words, " ")
}
