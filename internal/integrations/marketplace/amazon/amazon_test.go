package amazon

import (
	"strings"
	"testing"

	"github.com/BearBump/PriceBox/internal/models"
	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, html string) models.ExtractionResult {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return New().Parse(doc, "https://www.amazon.in/dp/B0C1")
}

func TestParse_TagBasedPath(t *testing.T) {
	res := parse(t, `<html><body>
<span id="productTitle">   Apple iPhone 15 (128 GB) - Black   </span>
<div id="corePriceDisplay_desktop_feature_div">
  <span class="a-price"><span class="a-price-whole">69,900.</span></span>
  <span class="a-price a-text-price"><span class="a-offscreen">₹79,900.00</span></span>
</div>
<img id="landingImage" src="https://m.media-amazon.com/images/I/small.jpg"
     data-old-hires="https://m.media-amazon.com/images/I/big.jpg">
</body></html>`)

	require.True(t, res.Succeeded)
	require.Nil(t, res.Error)
	require.Equal(t, "Apple iPhone 15 (128 GB) - Black", *res.Name)
	require.Equal(t, 69900.0, *res.Price)
	require.Equal(t, 79900.0, *res.OriginalPrice)
	require.Equal(t, "https://m.media-amazon.com/images/I/big.jpg", *res.Image)
	require.Equal(t, models.PlatformAmazon, res.Platform)
}

func TestParse_MetaFallbackAndDynamicImage(t *testing.T) {
	res := parse(t, `<html><head>
<meta name="title" content="Sony WH-1000XM5 Wireless Headphones">
</head><body>
<h1>Hi</h1>
<span class="a-offscreen">₹26,990</span>
<img class="a-dynamic-image" data-a-dynamic-image='{"https://m.media-amazon.com/images/I/first.jpg":[500,500],"https://m.media-amazon.com/images/I/second.jpg":[300,300]}'>
</body></html>`)

	require.True(t, res.Succeeded)
	require.Equal(t, "Sony WH-1000XM5 Wireless Headphones", *res.Name)
	require.Equal(t, 26990.0, *res.Price)
	require.Nil(t, res.OriginalPrice)
	require.Equal(t, "https://m.media-amazon.com/images/I/first.jpg", *res.Image)
}

func TestParse_BroadTextFallback(t *testing.T) {
	res := parse(t, `<html><body>
<h1>Generic Brand Steel Water Bottle 1L</h1>
<span>Deal: ₹5</span>
<span>Now only ₹ 349</span>
<meta property="og:image" content="https://m.media-amazon.com/images/I/og.jpg">
</body></html>`)

	require.True(t, res.Succeeded)
	require.Equal(t, "Generic Brand Steel Water Bottle 1L", *res.Name)
	require.Equal(t, 349.0, *res.Price)
	require.Equal(t, "https://m.media-amazon.com/images/I/og.jpg", *res.Image)
}

func TestParse_MissingPriceIsIncomplete(t *testing.T) {
	res := parse(t, `<html><body><span id="productTitle">Some Product Title</span></body></html>`)
	require.False(t, res.Succeeded)
	require.NotNil(t, res.Name)
	require.Nil(t, res.Price)
	require.Equal(t, models.ErrorKindExtractionIncomplete, res.ErrorKind)
	require.NotNil(t, res.Error)
}

func TestParse_MissingImageDoesNotBlock(t *testing.T) {
	res := parse(t, `<html><body>
<span id="productTitle">Product Without Image</span>
<span class="a-price-whole">999</span>
<img id="landingImage" src="https://cdn.example.com/not-amazon.jpg">
</body></html>`)
	require.True(t, res.Succeeded)
	require.Nil(t, res.Image)
}

func TestSearchURLAndFirstProductLink(t *testing.T) {
	require.Equal(t, "https://www.amazon.in/s?k=apple+iphone+15", New().SearchURL("apple iphone 15"))

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
<a href="/s?k=next">next</a>
<a href="/Apple-iPhone-15/dp/B0CHX1W1XY/ref=sr_1_1">iphone</a>
<a href="/gp/product/B0OTHER">other</a>`))
	require.NoError(t, err)
	link, ok := New().FirstProductLink(doc)
	require.True(t, ok)
	require.Equal(t, "https://www.amazon.in/Apple-iPhone-15/dp/B0CHX1W1XY/ref=sr_1_1", link)

	empty, _ := goquery.NewDocumentFromReader(strings.NewReader(`<a href="/help">help</a>`))
	_, ok = New().FirstProductLink(empty)
	require.False(t, ok)
}

func TestParseSearch(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
<div data-component-type="s-search-result">
  <a class="a-link-normal s-no-outline" href="/Phone-A/dp/A1"><img src="https://m.media-amazon.com/a.jpg"></a>
  <span class="a-size-medium a-color-base">Phone A 128GB</span>
  <span class="a-price"><span class="a-price-whole">12,999</span></span>
</div>
<div data-component-type="s-search-result">
  <a class="a-link-normal" href="/Phone-A/dp/A1">dup</a>
  <span class="a-size-medium">Phone A again</span>
</div>
<div data-component-type="s-search-result">
  <a class="a-link-normal" href="https://www.amazon.in/Phone-B/dp/B2">b</a>
  <span class="a-offscreen">₹9,499.00</span>
</div>
<div data-component-type="s-search-result">
  <a class="a-link-normal" href="/sponsored/redirect">ad</a>
  <span class="a-size-medium">Sponsored</span>
</div>
<div data-component-type="s-search-result">
  <a class="a-link-normal" href="/Empty/dp/E3">e</a>
</div>`))
	require.NoError(t, err)

	res := New().ParseSearch(doc, 24)
	require.Len(t, res, 2)
	require.Equal(t, "https://www.amazon.in/Phone-A/dp/A1", res[0].URL)
	require.Equal(t, "Phone A 128GB", *res[0].Name)
	require.Equal(t, 12999.0, *res[0].Price)
	require.Equal(t, "https://m.media-amazon.com/a.jpg", *res[0].Image)
	require.Nil(t, res[1].Name)
	require.Equal(t, 9499.0, *res[1].Price)

	require.Len(t, New().ParseSearch(doc, 1), 1)
}
