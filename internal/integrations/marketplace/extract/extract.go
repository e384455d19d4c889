// Package extract holds the building blocks of the per-field strategy cascades.
//
// A Strategy is a pure function over a parsed document. Cascades are plain
// ordered slices of strategies, evaluated left to right; the first plausible
// value wins. Strategies never see the network.
package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/BearBump/PriceBox/internal/price"
	"github.com/PuerkitoBio/goquery"
)

type Strategy[T any] func(doc *goquery.Document) (T, bool)

func First[T any](doc *goquery.Document, strategies []Strategy[T]) (T, bool) {
	var zero T
	if doc == nil {
		return zero, false
	}
	for _, s := range strategies {
		if v, ok := s(doc); ok {
			return v, true
		}
	}
	return zero, false
}

// FirstPtr is First returning nil when no strategy succeeds.
func FirstPtr[T any](doc *goquery.Document, strategies []Strategy[T]) *T {
	v, ok := First(doc, strategies)
	if !ok {
		return nil
	}
	return &v
}

// Clean collapses runs of whitespace.
func Clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// OwnText returns only the text nodes that are direct children of the selection.
func OwnText(s *goquery.Selection) string {
	var b strings.Builder
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			b.WriteString(c.Text())
		}
	})
	return b.String()
}

func lengthOK(s string, minLen, maxLen int) bool {
	n := utf8.RuneCountInString(s)
	if n <= minLen {
		return false
	}
	return maxLen <= 0 || n < maxLen
}

// Text tries the selectors in the given order and returns the first element text
// whose length is strictly inside (minLen, maxLen). maxLen <= 0 means unbounded.
func Text(minLen, maxLen int, selectors ...string) Strategy[string] {
	return func(doc *goquery.Document) (string, bool) {
		for _, sel := range selectors {
			var out string
			doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
				t := Clean(s.Text())
				if t != "" && lengthOK(t, minLen, maxLen) {
					out = t
					return false
				}
				return true
			})
			if out != "" {
				return out, true
			}
		}
		return "", false
	}
}

// MetaContent returns the content attribute of the first selector that has one.
func MetaContent(selectors ...string) Strategy[string] {
	return func(doc *goquery.Document) (string, bool) {
		for _, sel := range selectors {
			if v, ok := doc.Find(sel).First().Attr("content"); ok {
				if v = strings.TrimSpace(v); v != "" {
					return v, true
				}
			}
		}
		return "", false
	}
}

// Price tries the selectors in order and returns the first sane price found in an
// element text.
func Price(selectors ...string) Strategy[float64] {
	return func(doc *goquery.Document) (float64, bool) {
		for _, sel := range selectors {
			var out float64
			doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
				if v, ok := price.Extract(s.Text()); ok {
					out = v
					return false
				}
				return true
			})
			if out > 0 {
				return out, true
			}
		}
		return 0, false
	}
}

// PriceWithin looks for inner price elements under every tag element whose attr
// matches re.
func PriceWithin(tag, attr string, re *regexp.Regexp, inner string) Strategy[float64] {
	return func(doc *goquery.Document) (float64, bool) {
		var out float64
		doc.Find(tag).EachWithBreak(func(_ int, c *goquery.Selection) bool {
			if v, _ := c.Attr(attr); !re.MatchString(v) {
				return true
			}
			c.Find(inner).EachWithBreak(func(_ int, s *goquery.Selection) bool {
				if v, ok := price.Extract(s.Text()); ok {
					out = v
					return false
				}
				return true
			})
			return out == 0
		})
		return out, out > 0
	}
}

// PriceByClass scans tag elements whose class attribute matches re.
func PriceByClass(tag string, re *regexp.Regexp) Strategy[float64] {
	return func(doc *goquery.Document) (float64, bool) {
		var out float64
		doc.Find(tag).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			class, _ := s.Attr("class")
			if !re.MatchString(class) {
				return true
			}
			if v, ok := price.Extract(s.Text()); ok {
				out = v
				return false
			}
			return true
		})
		return out, out > 0
	}
}

// TextScan is the last-resort strategy: any tag whose text carries a currency
// marker and parses to a price above floor. With ownText only direct text
// nodes are read and maxLen bounds that text.
type TextScan struct {
	Tag     string
	Markers []string
	Floor   float64
	OwnText bool
	MaxLen  int
}

func (ts TextScan) Strategy() Strategy[float64] {
	return func(doc *goquery.Document) (float64, bool) {
		var out float64
		doc.Find(ts.Tag).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := s.Text()
			if ts.OwnText {
				text = OwnText(s)
			}
			if !ContainsAny(text, ts.Markers) {
				return true
			}
			if ts.MaxLen > 0 && utf8.RuneCountInString(strings.TrimSpace(text)) >= ts.MaxLen {
				return true
			}
			if v, ok := price.Extract(text); ok && v > ts.Floor {
				out = v
				return false
			}
			return true
		})
		return out, out > 0
	}
}

// MetaPrice parses a price out of a meta content attribute.
func MetaPrice(selector string) Strategy[float64] {
	meta := MetaContent(selector)
	return func(doc *goquery.Document) (float64, bool) {
		v, ok := meta(doc)
		if !ok {
			return 0, false
		}
		return price.Extract(v)
	}
}

// ImageSrc returns the src of the first selector match whose URL contains one of
// the asset host fragments.
func ImageSrc(hosts []string, selectors ...string) Strategy[string] {
	return func(doc *goquery.Document) (string, bool) {
		for _, sel := range selectors {
			var out string
			doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
				src, _ := s.Attr("src")
				if src != "" && ContainsAny(src, hosts) {
					out = src
					return false
				}
				return true
			})
			if out != "" {
				return out, true
			}
		}
		return "", false
	}
}

// ContainsAny reports whether s contains at least one of subs.
func ContainsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
