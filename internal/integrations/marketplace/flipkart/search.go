package flipkart

import (
	"regexp"
	"strings"

	"github.com/BearBump/PriceBox/internal/integrations/marketplace/extract"
	"github.com/BearBump/PriceBox/internal/models"
	"github.com/BearBump/PriceBox/internal/price"
	"github.com/PuerkitoBio/goquery"
)

const (
	maxNameLen  = 200
	climbLevels = 4
)

var searchPriceClassRe = regexp.MustCompile(`Nx9bqj|_30jeq3|_16Jk6d`)

func isProductHref(href string) bool {
	return strings.Contains(href, "/p/") || strings.Contains(href, "/product/") || strings.Contains(href, "pid=")
}

// ParseSearch walks every product-shaped anchor; price and image are looked up in
// the nearest ancestors since the card layout differs per category.
func (Site) ParseSearch(doc *goquery.Document, maxResults int) []models.SearchResult {
	out := make([]models.SearchResult, 0, maxResults)
	seen := make(map[string]struct{})

	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if !isProductHref(href) {
			return true
		}
		u := absolute(href)
		if _, ok := seen[u]; ok {
			return true
		}
		seen[u] = struct{}{}

		res := models.SearchResult{URL: u, Platform: models.PlatformFlipkart}
		name, _ := a.Attr("title")
		if name = extract.Clean(name); name == "" {
			name = extract.Clean(a.Text())
		}
		if name != "" {
			name = truncate(name, maxNameLen)
			res.Name = &name
		}
		res.Price = nearbyPrice(a)
		res.Image = nearbyImage(a)

		if res.Name == nil && res.Price == nil {
			return true
		}
		out = append(out, res)
		return len(out) < maxResults
	})
	return out
}

func nearbyPrice(a *goquery.Selection) *float64 {
	parent := a.Parent()
	for i := 0; i < climbLevels && parent.Length() > 0; i++ {
		var text string
		parent.Find("div").EachWithBreak(func(_ int, d *goquery.Selection) bool {
			class, _ := d.Attr("class")
			if !searchPriceClassRe.MatchString(class) {
				return true
			}
			text = strings.TrimSpace(d.Text())
			return text == ""
		})
		if text != "" {
			return price.Ptr(text)
		}
		parent = parent.Parent()
	}
	return nil
}

func nearbyImage(a *goquery.Selection) *string {
	parent := a.Parent()
	for i := 0; i < climbLevels && parent.Length() > 0; i++ {
		if src, ok := parent.Find("img").First().Attr("src"); ok && src != "" {
			return &src
		}
		parent = parent.Parent()
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
