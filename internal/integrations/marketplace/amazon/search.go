package amazon

import (
	"github.com/BearBump/PriceBox/internal/integrations/marketplace/extract"
	"github.com/BearBump/PriceBox/internal/models"
	"github.com/BearBump/PriceBox/internal/price"
	"github.com/PuerkitoBio/goquery"
)

const maxNameLen = 200

// ParseSearch reads result cards straight off the search page.
func (Site) ParseSearch(doc *goquery.Document, maxResults int) []models.SearchResult {
	out := make([]models.SearchResult, 0, maxResults)
	seen := make(map[string]struct{})

	doc.Find(`div[data-component-type="s-search-result"]`).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		link := card.Find("a.a-link-normal[href]").First()
		href, _ := link.Attr("href")
		if !isProductHref(href) {
			return true
		}
		u := absolute(href)
		if _, ok := seen[u]; ok {
			return true
		}
		seen[u] = struct{}{}

		res := models.SearchResult{URL: u, Platform: models.PlatformAmazon}
		if t := extract.Clean(card.Find("span.a-size-medium, span.a-size-base-plus").First().Text()); t != "" {
			t = truncate(t, maxNameLen)
			res.Name = &t
		}
		priceSpan := card.Find("span.a-price-whole").First()
		if priceSpan.Length() == 0 {
			priceSpan = card.Find("span.a-offscreen").First()
		}
		res.Price = price.Ptr(priceSpan.Text())
		if src, ok := card.Find("img").First().Attr("src"); ok && src != "" {
			res.Image = &src
		}

		if res.Name == nil && res.Price == nil {
			return true
		}
		out = append(out, res)
		return len(out) < maxResults
	})
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
