// Package htmlutil has goquery helpers shared by the storefront
// scrapers.
package htmlutil

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("htmlutil")

type Anchor struct {
	Name string
	Href string
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

// CleanText strips non-printable runes and collapses the whitespace
// storefront markup tends to wrap product names in.
func CleanText(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsSpace(c) {
			newStr.WriteRune(' ')
			continue
		}
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	cleaned := strings.TrimSpace(newStr.String())
	return innerWhitespace.ReplaceAllString(cleaned, " ")
}

func Anchors(ctx context.Context, sel *goquery.Selection) []Anchor {
	ctx, span := tracer.Start(ctx, "Anchors")
	defer span.End()

	anchors := []Anchor{}
	sel.Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")

		link, err := url.Parse(href)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "got error while parsing url")
			return
		}

		name := CleanText(s.Text())
		linkStr := link.String()
		anchors = append(anchors, Anchor{
			Name: name,
			Href: linkStr,
		})
		span.AddEvent("anchor", trace.WithAttributes(
			attribute.String("name", name),
			attribute.String("url", linkStr),
		))
	})

	return anchors
}

// FirstAnchor picks the first anchor with a usable href out of a
// selection, which for search result pages is the top-ranked hit.
func FirstAnchor(ctx context.Context, sel *goquery.Selection) (Anchor, bool) {
	for _, a := range Anchors(ctx, sel) {
		if a.Href != "" {
			return a, true
		}
	}
	return Anchor{}, false
}
