// Package amazon knows the product and search page markup of Amazon storefronts.
package amazon

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"github.com/BearBump/PriceBox/internal/integrations/marketplace/extract"
	"github.com/BearBump/PriceBox/internal/models"
	"github.com/PuerkitoBio/goquery"
)

const (
	BaseURL     = "https://www.amazon.in"
	DisplayName = "Amazon"
)

var imageHosts = []string{"images-amazon", "ssl-images-amazon", "m.media-amazon"}

var (
	priceContainerRe = regexp.MustCompile(`(?i)price`)
	aPriceRe         = regexp.MustCompile(`a-price`)
	textPriceRe      = regexp.MustCompile(`a-text-price`)
)

var titleStrategies = []extract.Strategy[string]{
	extract.Text(5, 500,
		"span#productTitle",
		"h1#title",
		"span.product-title-word-break",
		"h1.a-size-large",
		"div#titleSection",
		"div#title_feature_div",
	),
	extract.Text(10, 300, "h1"),
	extract.MetaContent(`meta[name="title"]`, `meta[property="og:title"]`),
}

var priceStrategies = []extract.Strategy[float64]{
	extract.PriceWithin("div", "id", priceContainerRe, "span.a-price-whole, span.a-offscreen"),
	extract.Price(
		"span.a-price-whole",
		"#priceblock_ourprice",
		"#priceblock_dealprice",
		"#priceblock_saleprice",
		"span.a-offscreen",
		"span.priceToPay",
		"#tp_price_block_total_price_ww",
		"td.a-color-price",
	),
	extract.PriceWithin("span", "class", aPriceRe, "span.a-price-whole"),
	extract.TextScan{Tag: "span", Markers: []string{"₹", "Rs"}, Floor: 10}.Strategy(),
}

var originalPriceStrategies = []extract.Strategy[float64]{
	extract.PriceWithin("span", "class", textPriceRe, "span.a-offscreen"),
}

var imageStrategies = []extract.Strategy[string]{
	landingImage("img#landingImage", "#imgBlkFront", "#ebooksImgBlkFront", "img.a-dynamic-image"),
	containerImage("div#imgTagWrapperId", "div#main-image-container"),
	extract.MetaContent(`meta[property="og:image"]`),
}

// landingImage prefers the hi-res attribute, then the first key of the dynamic image
// map, then a src served from an Amazon image host.
func landingImage(selectors ...string) extract.Strategy[string] {
	return func(doc *goquery.Document) (string, bool) {
		for _, sel := range selectors {
			img := doc.Find(sel).First()
			if img.Length() == 0 {
				continue
			}
			if v, ok := img.Attr("data-old-hires"); ok && v != "" {
				return v, true
			}
			if raw, ok := img.Attr("data-a-dynamic-image"); ok && raw != "" {
				if v, ok := firstDynamicImage(raw); ok {
					return v, true
				}
			}
			if v, ok := img.Attr("src"); ok && extract.ContainsAny(v, imageHosts) {
				return v, true
			}
		}
		return "", false
	}
}

func containerImage(selectors ...string) extract.Strategy[string] {
	return func(doc *goquery.Document) (string, bool) {
		for _, sel := range selectors {
			img := doc.Find(sel).First().Find("img").First()
			if img.Length() == 0 {
				continue
			}
			if v, ok := img.Attr("data-old-hires"); ok && v != "" {
				return v, true
			}
			if v, ok := img.Attr("src"); ok && v != "" {
				return v, true
			}
		}
		return "", false
	}
}

// firstDynamicImage reads {"url": [w, h], ...} and returns the first url as written.
func firstDynamicImage(raw string) (string, bool) {
	dec := json.NewDecoder(strings.NewReader(raw))
	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') {
		return "", false
	}
	tok, err = dec.Token()
	if err != nil {
		return "", false
	}
	key, ok := tok.(string)
	return key, ok && key != ""
}

type Site struct{}

func New() Site { return Site{} }

func (Site) Platform() models.Platform { return models.PlatformAmazon }

func (Site) DisplayName() string { return DisplayName }

func (Site) Parse(doc *goquery.Document, sourceURL string) models.ExtractionResult {
	return models.NewExtractionResult(
		models.PlatformAmazon,
		sourceURL,
		extract.FirstPtr(doc, titleStrategies),
		extract.FirstPtr(doc, priceStrategies),
		extract.FirstPtr(doc, originalPriceStrategies),
		extract.FirstPtr(doc, imageStrategies),
	)
}

func (Site) SearchURL(query string) string {
	return BaseURL + "/s?k=" + url.QueryEscape(query)
}

func isProductHref(href string) bool {
	return strings.Contains(href, "/dp/") || strings.Contains(href, "/gp/product/")
}

func absolute(href string) string {
	if strings.HasPrefix(href, "/") {
		return BaseURL + href
	}
	return href
}

// FirstProductLink returns the first anchor shaped like a product page.
func (Site) FirstProductLink(doc *goquery.Document) (string, bool) {
	var out string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if isProductHref(href) {
			out = absolute(href)
			return false
		}
		return true
	})
	return out, out != ""
}
