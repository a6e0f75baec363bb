package chat

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrInvalidPriceRange = errors.New("invalid price range")

// Filters narrows searches. An empty Category is unfiltered.
type Filters struct {
	Category string
	MinPrice float64
	MaxPrice float64
}

// normalizeCategory maps the front-ends' "all" choice to unfiltered.
func normalizeCategory(category string) string {
	category = strings.TrimSpace(category)
	if strings.EqualFold(category, "all") {
		return ""
	}
	return category
}

func validatePriceRange(minPrice, maxPrice float64) error {
	if math.IsNaN(minPrice) || math.IsNaN(maxPrice) || minPrice < 0 || minPrice > maxPrice {
		return fmt.Errorf("%w: [%v, %v]", ErrInvalidPriceRange, minPrice, maxPrice)
	}
	return nil
}
