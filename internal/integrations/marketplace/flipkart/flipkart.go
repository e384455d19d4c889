// Package flipkart knows the product and search page markup of Flipkart.
package flipkart

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/BearBump/PriceBox/internal/integrations/marketplace/extract"
	"github.com/BearBump/PriceBox/internal/models"
	"github.com/PuerkitoBio/goquery"
)

const (
	BaseURL     = "https://www.flipkart.com"
	DisplayName = "Flipkart"
)

var imageHosts = []string{"rukminim", "static-assets"}

// Flipkart ships obfuscated class names that rotate; keep the historical ones.
var priceClassRe = regexp.MustCompile(`Nx9bqj|_30jeq3|_25b18c|hl05eU|_16Jk6d`)

var titleStrategies = []extract.Strategy[string]{
	extract.Text(5, 0, "span.VU-ZEz", "span.B_NuCI", "h1.yhB1nd", "span._35KyD6", "h1._6EBuvT"),
	extract.Text(10, 300, "h1"),
	extract.MetaContent(`meta[property="og:title"]`),
}

var priceStrategies = []extract.Strategy[float64]{
	extract.Price(
		"div.Nx9bqj.CxhGGd",
		"div._30jeq3._16Jk6d",
		"div._30jeq3",
		"div._25b18c",
		"div.CEmiEU",
		"div.hl05eU",
		"div._16Jk6d",
	),
	extract.PriceByClass("div", priceClassRe),
	extract.TextScan{Tag: "div", Markers: []string{"₹"}, Floor: 10, OwnText: true, MaxLen: 30}.Strategy(),
	extract.MetaPrice(`meta[property="product:price:amount"]`),
}

var originalPriceStrategies = []extract.Strategy[float64]{
	extract.Price(`div.yRaY8j.A6\+E6v`, "div._3I9_wc._2p6lqe", "div._3I9_wc"),
}

var imageStrategies = []extract.Strategy[string]{
	extract.ImageSrc(imageHosts,
		"img.DByuf4.IZexXJ.jLEJ7H",
		"img._396cs4",
		"img._2r_T1I",
		"img.q6DClP",
		"img._53J4C-",
	),
	extract.ImageSrc(imageHosts, "div._3kidJX img", "div._2SmCp5 img"),
	extract.ImageSrc(imageHosts, "img"),
	extract.MetaContent(`meta[property="og:image"]`),
}

type Site struct{}

func New() Site { return Site{} }

func (Site) Platform() models.Platform { return models.PlatformFlipkart }

func (Site) DisplayName() string { return DisplayName }

func (Site) Parse(doc *goquery.Document, sourceURL string) models.ExtractionResult {
	return models.NewExtractionResult(
		models.PlatformFlipkart,
		sourceURL,
		extract.FirstPtr(doc, titleStrategies),
		extract.FirstPtr(doc, priceStrategies),
		extract.FirstPtr(doc, originalPriceStrategies),
		extract.FirstPtr(doc, imageStrategies),
	)
}

func (Site) SearchURL(query string) string {
	return BaseURL + "/search?q=" + url.QueryEscape(query)
}

var productLinkSelectors = []string{
	"a.CGtC98", "a._1fQZEK", "a.s1Q9rs", "a._2rpwqI", "a.IRpwTa", "a.rPDeLR", "a.wjcEIp",
}

func absolute(href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return BaseURL + href
}

// FirstProductLink prefers known product-card anchors, then any /p/ link with a pid.
func (Site) FirstProductLink(doc *goquery.Document) (string, bool) {
	for _, sel := range productLinkSelectors {
		if href, ok := doc.Find(sel).First().Attr("href"); ok && href != "" {
			return absolute(href), true
		}
	}
	var out string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if strings.Contains(href, "/p/") && strings.Contains(href, "pid=") {
			out = absolute(href)
			return false
		}
		return true
	})
	return out, out != ""
}
