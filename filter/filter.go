package filter

import (
	"strings"

	"latidos/models"
)

// KindAll disables the kind clause.
const KindAll = "ALL"

// Config is the browse filter of one session.
type Config struct {
	Kind      string `json:"type"`
	Breed     string `json:"breed"`
	Color     string `json:"color"`
	Size      string `json:"size"`
	OwnedOnly bool   `json:"owned_only"`
}

// Default returns a filter that matches every report.
func Default() Config {
	return Config{Kind: KindAll}
}

// Clear resets the attribute clauses. OwnedOnly is kept.
func (c *Config) Clear() {
	c.Kind = KindAll
	c.Breed = ""
	c.Color = ""
	c.Size = ""
}

// Normalize maps an empty or unknown kind to ALL.
func (c Config) Normalize() Config {
	switch strings.ToUpper(c.Kind) {
	case string(models.KindLost):
		c.Kind = string(models.KindLost)
	case string(models.KindFound):
		c.Kind = string(models.KindFound)
	default:
		c.Kind = KindAll
	}
	return c
}

// Apply returns the reports matching cfg, in their original order.
// With OwnedOnly set and no current user the result is empty.
func Apply(reports []models.Report, cfg Config, user *models.User) []models.Report {
	cfg = cfg.Normalize()
	if cfg.OwnedOnly && user == nil {
		return []models.Report{}
	}

	breed := strings.ToLower(strings.TrimSpace(cfg.Breed))
	colors := colorVariants(strings.ToLower(cfg.Color))

	out := make([]models.Report, 0, len(reports))
	for _, r := range reports {
		if cfg.Kind != KindAll && string(r.Kind) != cfg.Kind {
			continue
		}
		if breed != "" && !strings.Contains(strings.ToLower(r.Breed), breed) {
			continue
		}
		if len(colors) > 0 && !containsAny(strings.ToLower(r.Color), colors) {
			continue
		}
		if cfg.Size != "" && r.Size != cfg.Size {
			continue
		}
		if cfg.OwnedOnly && r.ReporterID != user.ID {
			continue
		}
		out = append(out, r)
	}
	return out
}

// colorVariants returns the color term plus its other grammatical gender, so that
// "Negro" also finds "máscara negra". Both are plain substrings of the full color text.
func colorVariants(term string) []string {
	if term == "" {
		return nil
	}
	variants := []string{term}
	if len([]rune(term)) < 4 {
		return variants
	}
	switch {
	case strings.HasSuffix(term, "o"):
		variants = append(variants, strings.TrimSuffix(term, "o")+"a")
	case strings.HasSuffix(term, "a"):
		variants = append(variants, strings.TrimSuffix(term, "a")+"o")
	}
	return variants
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
