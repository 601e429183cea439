// Package catalog describes the structured product catalog schema that the
// constraint vocabulary is defined against.
package catalog

import (
	"fmt"
	"strings"
)

// Attribute names recognised by the catalog filter schema.
const (
	AttrPrice          = "price"
	AttrCategory       = "category"
	AttrSkinType       = "skin_type"
	AttrKeyIngredients = "key_ingredients"
	AttrBrand          = "brand"
	AttrRating         = "rating"
)

// Schema is the closed set of filterable catalog attributes. Constraints
// referencing attributes outside this set are dropped by adapters.
var Schema = map[string]bool{
	AttrPrice:          true,
	AttrCategory:       true,
	AttrSkinType:       true,
	AttrKeyIngredients: true,
	AttrBrand:          true,
	AttrRating:         true,
}

// Categories lists the known product categories.
var Categories = []string{
	"moisturizer",
	"cleanser",
	"sunscreen",
	"serum",
	"toner",
	"face wash",
	"mask",
	"cream",
	"gel",
	"oil",
}

// SkinTypes lists the known skin types.
var SkinTypes = []string{"oily", "dry", "combination", "sensitive", "normal"}

// Product is one catalog record.
type Product struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Brand          string   `json:"brand,omitempty"`
	Price          float64  `json:"price"`
	Category       string   `json:"category"`
	SkinTypes      []string `json:"skin_types,omitempty"`
	KeyIngredients []string `json:"key_ingredients,omitempty"`
	Rating         float64  `json:"rating,omitempty"`
	RatingCount    int      `json:"rating_count,omitempty"`
	URL            string   `json:"url,omitempty"`
}

// Metadata renders the product as filterable attributes for a vector store.
func (p Product) Metadata() map[string]any {
	meta := map[string]any{
		AttrPrice:    p.Price,
		AttrCategory: p.Category,
	}
	if p.Brand != "" {
		meta[AttrBrand] = p.Brand
	}
	if len(p.SkinTypes) > 0 {
		meta[AttrSkinType] = append([]string(nil), p.SkinTypes...)
	}
	if len(p.KeyIngredients) > 0 {
		meta[AttrKeyIngredients] = append([]string(nil), p.KeyIngredients...)
	}
	if p.Rating > 0 {
		meta[AttrRating] = p.Rating
	}
	return meta
}

// Describe renders the product as the text that gets embedded and shown to
// the generation model.
func (p Product) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Product: %s", p.Name)
	if p.Brand != "" {
		fmt.Fprintf(&b, "\nBrand: %s", p.Brand)
	}
	fmt.Fprintf(&b, "\nPrice: ₹%.2f", p.Price)
	if p.Rating > 0 {
		fmt.Fprintf(&b, "\nRating: %.1f/5 (%d reviews)", p.Rating, p.RatingCount)
	}
	if p.Category != "" {
		fmt.Fprintf(&b, "\nCategory: %s", p.Category)
	}
	if len(p.SkinTypes) > 0 {
		fmt.Fprintf(&b, "\nSkin types: %s", strings.Join(p.SkinTypes, ", "))
	}
	if len(p.KeyIngredients) > 0 {
		fmt.Fprintf(&b, "\nKey ingredients: %s", strings.Join(p.KeyIngredients, ", "))
	}
	if p.URL != "" {
		fmt.Fprintf(&b, "\nURL: %s", p.URL)
	}
	return b.String()
}
