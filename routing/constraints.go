package routing

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/glowstack/dermassist/catalog"
)

var (
	priceCeilingRe = regexp.MustCompile(`(?i)(?:under|below|less than|within|up ?to|cheaper than|max(?:imum)?(?: of)?|budget(?: of)?)\s*(?:₹|rs\.?|inr)?\s*(\d+(?:\.\d+)?)`)
	priceFloorRe   = regexp.MustCompile(`(?i)(?:above|over|more than|at least|min(?:imum)?(?: of)?)\s*(?:₹|rs\.?|inr)\s*(\d+(?:\.\d+)?)`)
	priceBareRe    = regexp.MustCompile(`(?i)(?:₹|rs\.?\s|inr\s)\s*(\d+(?:\.\d+)?)`)
	ratingFloorRe  = regexp.MustCompile(`(?i)(?:rating|rated)\s+(?:above|over|at least)\s+(\d(?:\.\d+)?)`)
)

// Known ingredient mentions extracted into key_ingredients constraints.
var knownIngredients = []string{
	"salicylic acid",
	"hyaluronic acid",
	"glycolic acid",
	"benzoyl peroxide",
	"niacinamide",
	"vitamin c",
	"retinol",
	"ceramide",
	"aloe vera",
	"tea tree",
}

type vocabTerm struct {
	word string
	re   *regexp.Regexp
}

// compileVocab builds whole-word matchers for a vocabulary list. Matching on
// word boundaries keeps "oily" from reading as the category "oil"; a trailing
// optional "s" accepts plural mentions.
func compileVocab(words []string) []vocabTerm {
	terms := make([]vocabTerm, 0, len(words))
	for _, w := range words {
		terms = append(terms, vocabTerm{
			word: w,
			re:   regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `s?\b`),
		})
	}
	return terms
}

var (
	categoryTerms   = compileVocab(catalog.Categories)
	skinTypeTerms   = compileVocab(catalog.SkinTypes)
	ingredientTerms = compileVocab(knownIngredients)
)

// ExtractConstraints pulls structured predicates out of free text. Mentions
// that do not parse are omitted, never an error.
func ExtractConstraints(query string) Constraints {
	lower := strings.ToLower(query)
	cons := make(Constraints)

	if m := ratingFloorRe.FindStringSubmatch(lower); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			cons[catalog.AttrRating] = Predicate{Op: OpGte, Value: v}
		}
	}

	if m := priceCeilingRe.FindStringSubmatch(lower); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			cons[catalog.AttrPrice] = Predicate{Op: OpLte, Value: v}
		}
	} else if m := priceFloorRe.FindStringSubmatch(lower); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			cons[catalog.AttrPrice] = Predicate{Op: OpGte, Value: v}
		}
	} else if m := priceBareRe.FindStringSubmatch(lower); m != nil {
		// bare ₹ amounts are read as a budget ceiling
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			cons[catalog.AttrPrice] = Predicate{Op: OpLte, Value: v}
		}
	}

	if cat, ok := earliestMatch(lower, categoryTerms); ok {
		cons[catalog.AttrCategory] = Predicate{Op: OpEq, Value: cat}
	}

	if st, ok := earliestMatch(lower, skinTypeTerms); ok {
		cons[catalog.AttrSkinType] = Predicate{Op: OpContains, Value: st}
	}

	if ing, ok := earliestMatch(lower, ingredientTerms); ok {
		cons[catalog.AttrKeyIngredients] = Predicate{Op: OpContains, Value: ing}
	}

	if len(cons) == 0 {
		return nil
	}
	return cons
}

// earliestMatch returns the term whose whole-word mention appears first in
// the text. Ties on position prefer the longer term, then list order, so
// extraction stays deterministic.
func earliestMatch(lower string, terms []vocabTerm) (string, bool) {
	best := ""
	bestIdx := -1
	for _, t := range terms {
		loc := t.re.FindStringIndex(lower)
		if loc == nil {
			continue
		}
		if bestIdx == -1 || loc[0] < bestIdx || (loc[0] == bestIdx && len(t.word) > len(best)) {
			best = t.word
			bestIdx = loc[0]
		}
	}
	return best, bestIdx >= 0
}
