package textutil

import (
	"regexp"
)

var nonDigitRegex = regexp.MustCompile(`\D`)

// Digits strips everything but ascii digits from a barcode-like
// string. Storefronts embed the same code with dashes, spaces or
// formatting noise, so comparing digit-only forms is the only stable
// equality we have.
func Digits(s string) string {
	return nonDigitRegex.ReplaceAllString(s, "")
}
