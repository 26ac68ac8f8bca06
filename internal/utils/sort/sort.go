package sort

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// GetSort parses a sort expression like "createdAt:desc,overallScore:asc"
// into a mongo sort document. Fields not in allowed are rejected. An empty
// expression falls back to newest-first.
func GetSort(allowed []string, expr string) (bson.D, error) {
	if expr == "" {
		return bson.D{{Key: "createdAt", Value: -1}}, nil
	}

	permitted := make(map[string]bool, len(allowed))
	for _, f := range allowed {
		permitted[f] = true
	}

	var sorts bson.D
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		field := part
		order := 1
		if idx := strings.LastIndex(part, ":"); idx >= 0 {
			field = part[:idx]
			switch strings.ToLower(part[idx+1:]) {
			case "asc":
				order = 1
			case "desc":
				order = -1
			default:
				return nil, fmt.Errorf("invalid sort direction in %q", part)
			}
		}

		if !permitted[field] {
			return nil, fmt.Errorf("unknown sort field %q", field)
		}
		sorts = append(sorts, bson.E{Key: field, Value: order})
	}

	if len(sorts) == 0 {
		return bson.D{{Key: "createdAt", Value: -1}}, nil
	}
	return sorts, nil
}
