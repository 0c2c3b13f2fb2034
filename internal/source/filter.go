package source

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"github.com/beanlab/bean-curator/internal/domain"
)

// FilterData is the structure of the keyword filter file
type FilterData struct {
	// Exclude drops accessories, services and merchandise
	Exclude []string `json:"exclude"`
	// Include marks a product as coffee beans when found in name, type or tags
	Include []string `json:"include"`
	// ProductTypes accepted outright when the storefront categorizes products
	ProductTypes []string `json:"product_types"`
}

// DefaultFilterData is used when no filter file is configured
var DefaultFilterData = FilterData{
	Exclude: []string{
		"grinder", "filter paper", "paper filters", "mug", "tumbler", "subscription", "gift card",
		"giftcard", "class", "workshop", "course", "kettle", "dripper", "scale", "merch",
		"t-shirt", "shirt", "hoodie", "tote", "sticker", "chemex", "aeropress", "v60 dripper",
		"brewer", "machine", "cleaning", "descaler", "capsule", "pods", "instant", "teapot",
		"chocolate", "gift box", "bundle", "sampler pack", "equipment",
	},
	Include: []string{
		"coffee", "beans", "whole bean", "espresso", "filter roast", "single origin", "blend",
		"ethiopia", "kenya", "colombia", "brazil", "guatemala", "honduras", "costa rica",
		"el salvador", "panama", "peru", "bolivia", "ecuador", "rwanda", "burundi", "tanzania",
		"uganda", "yemen", "indonesia", "sumatra", "java", "papua", "nicaragua", "mexico",
		"decaf", "natural", "washed", "honey", "anaerobic", "geisha", "gesha",
	},
	ProductTypes: []string{"coffee", "coffee beans", "whole bean coffee", "beans", "espresso", "filter"},
}

// Filter decides whether a raw product is a coffee-bean listing
//
//go:generate mockgen -source=filter.go -destination=../mocks/source_filter.go -package=mocks -mock_names=Filter=MockSourceFilter
type Filter interface {
	Accept(c RawCandidate) bool
}

type keywordFilter struct {
	exclude      []string
	include      []string
	productTypes map[string]bool
}

// NewFilter builds a keyword filter from data
func NewFilter(data FilterData) Filter {
	f := &keywordFilter{productTypes: make(map[string]bool)}
	for _, k := range data.Exclude {
		if k = domain.Normalize(k); k != "" {
			f.exclude = append(f.exclude, k)
		}
	}
	for _, k := range data.Include {
		if k = domain.Normalize(k); k != "" {
			f.include = append(f.include, k)
		}
	}
	for _, t := range data.ProductTypes {
		f.productTypes[domain.Normalize(t)] = true
	}
	return f
}

// LoadFilter loads filter keywords from a JSON file; an empty path yields the defaults
func LoadFilter(filePath string) (Filter, error) {
	if filePath == "" {
		return NewFilter(DefaultFilterData), nil
	}

	raw, err := os.ReadFile(filePath) //nolint:gosec,G304 // This should be a trusted file
	if err != nil {
		return nil, fmt.Errorf("failed to read filter file: %w", err)
	}

	var data FilterData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse filter JSON: %w", err)
	}

	return NewFilter(data), nil
}

// Accept reports whether the candidate looks like a bag of coffee beans
func (f *keywordFilter) Accept(c RawCandidate) bool {
	name := domain.Normalize(c.Name)
	if name == "" {
		return false
	}

	labels := append([]string{domain.Normalize(c.ProductType)}, normalizeAll(c.Tags)...)
	for _, k := range f.exclude {
		if containsWord(name, k) || containsWord(domain.Normalize(c.ProductType), k) {
			return false
		}
	}

	for _, l := range labels {
		if f.productTypes[l] {
			return true
		}
	}

	for _, k := range f.include {
		if containsWord(name, k) {
			return true
		}
		for _, l := range labels {
			if containsWord(l, k) {
				return true
			}
		}
	}

	// A bag weight is a strong signal on shops without categories
	_, ok := domain.ParseWeightGrams(c.WeightLabel)
	return ok
}

func normalizeAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = domain.Normalize(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// containsWord matches k in s on word boundaries
func containsWord(s, k string) bool {
	for i := 0; ; {
		j := strings.Index(s[i:], k)
		if j < 0 {
			return false
		}
		start, end := i+j, i+j+len(k)
		if (start == 0 || !isWordByte(s[start-1])) && (end == len(s) || !isWordByte(s[end])) {
			return true
		}
		i = start + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}
