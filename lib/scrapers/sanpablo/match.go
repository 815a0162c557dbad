package sanpablo

import (
	"encoding/json"
	"fmt"
	"strconv"

	"farmaprice-backend/lib/textutil"
)

// ProductDetail is the loosely structured catalog record. The
// storefront is inconsistent about where it puts the canonical
// barcode: sometimes a direct field under one of several aliases,
// sometimes a plural list, sometimes buried in the classification
// feature tree. Absent fields are simply "no match", never an error.
type ProductDetail struct {
	Code string `json:"code"`
	Name string `json:"name"`

	Gtin       any `json:"gtin"`
	Ean        any `json:"ean"`
	Upc        any `json:"upc"`
	Sku        any `json:"sku"`
	VisualCode any `json:"visualCode"`

	Eans  []any `json:"eans"`
	Gtins []any `json:"gtins"`
	Upcs  []any `json:"upcs"`

	Classifications []Classification `json:"classifications"`
}

type Classification struct {
	Features []Feature `json:"features"`
}

type Feature struct {
	Value         any            `json:"value"`
	FeatureValues []FeatureValue `json:"featureValues"`
}

type FeatureValue struct {
	Value any `json:"value"`
}

// digitsOf normalizes a barcode-ish value of unknown JSON type to a
// digit-only string. Barcodes decoded as float64 must not go through
// fmt.Sprint, scientific notation would leak exponent digits in.
func digitsOf(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return textutil.Digits(x)
	case float64:
		return textutil.Digits(strconv.FormatFloat(x, 'f', -1, 64))
	case json.Number:
		return textutil.Digits(x.String())
	default:
		return textutil.Digits(fmt.Sprint(x))
	}
}

// matchFunc probes one schema location for the normalized barcode.
// New storefront schema quirks become new entries in matchFuncs, the
// matching core stays untouched.
type matchFunc func(d ProductDetail, target string) bool

var matchFuncs = []matchFunc{
	matchDirectFields,
	matchListFields,
	matchClassifications,
}

// Matches reports whether the detail record corresponds to the
// requested identifier. Both sides are compared digit-only, an
// identifier without digits can never match.
func Matches(d ProductDetail, identifier string) bool {
	target := textutil.Digits(identifier)
	if target == "" {
		return false
	}
	for _, match := range matchFuncs {
		if match(d, target) {
			return true
		}
	}
	return false
}

func matchDirectFields(d ProductDetail, target string) bool {
	// priority order matters: gtin is the most authoritative alias
	for _, v := range []any{d.Gtin, d.Ean, d.Upc, d.Sku, d.VisualCode} {
		if digitsOf(v) == target {
			return true
		}
	}
	return false
}

func matchListFields(d ProductDetail, target string) bool {
	for _, list := range [][]any{d.Eans, d.Gtins, d.Upcs} {
		for _, v := range list {
			if digitsOf(v) == target {
				return true
			}
		}
	}
	return false
}

func matchClassifications(d ProductDetail, target string) bool {
	for _, cl := range d.Classifications {
		for _, feat := range cl.Features {
			for _, val := range feat.FeatureValues {
				if digitsOf(val.Value) == target {
					return true
				}
			}
			if digitsOf(feat.Value) == target {
				return true
			}
		}
	}
	return false
}
