package search

import (
	"strconv"
	"strings"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Query represents the structured parameters of a conversation search.
// It decouples the raw chat input from the actual index requirements.
type Query struct {
	RawInput  string // The original input from the user
	Terms     string // The actual text to search in Bluge
	PartnerID string // Conversation partner, empty means the selected one
	Limit     int    // Number of results
}

// NewSearchQuery parses a raw string to extract command-line style arguments.
// Example: /find "invoice" --with 4f2a... --limit 5
func NewSearchQuery(input string) *Query {
	query := &Query{
		RawInput: input,
		Limit:    DefaultLimit,
	}

	parts := strings.Fields(input)
	var textTerms []string

	for i := 0; i < len(parts); i++ {
		part := parts[i]

		// Handle flags like --limit 5 or --with bob
		if strings.HasPrefix(part, "--") && i+1 < len(parts) {
			switch strings.TrimPrefix(part, "--") {
			case "with":
				query.PartnerID = parts[i+1]
			case "limit":
				if limit, err := strconv.Atoi(parts[i+1]); err == nil {
					query.Limit = ClampLimit(limit)
				}
			}
			i++ // Skip the value part in next iteration
			continue
		}

		// If it's not a command, it's a search term
		if !strings.HasPrefix(part, "/") {
			textTerms = append(textTerms, strings.Trim(part, `"`))
		}
	}

	query.Terms = strings.Join(textTerms, " ")
	return query
}

// ClampLimit bounds a requested result count.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
