package extract

import (
	"regexp"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func doc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return d
}

func TestFirst_OrderAndFallthrough(t *testing.T) {
	d := doc(t, `<html><head><meta property="og:title" content="Meta Title For Phone"></head>
<body><h1>short</h1><h1>A Much Longer Heading Here</h1></body></html>`)

	var calls []string
	tracked := func(name string, s Strategy[string]) Strategy[string] {
		return func(doc *goquery.Document) (string, bool) {
			calls = append(calls, name)
			return s(doc)
		}
	}

	v, ok := First(d, []Strategy[string]{
		tracked("id", Text(5, 500, "span#productTitle")),
		tracked("h1", Text(10, 300, "h1")),
		tracked("meta", MetaContent(`meta[property="og:title"]`)),
	})
	require.True(t, ok)
	require.Equal(t, "A Much Longer Heading Here", v)
	require.Equal(t, []string{"id", "h1"}, calls)
}

func TestFirst_NilDocAndNoMatch(t *testing.T) {
	_, ok := First[string](nil, []Strategy[string]{Text(0, 0, "h1")})
	require.False(t, ok)

	require.Nil(t, FirstPtr(doc(t, `<p>nothing</p>`), []Strategy[float64]{Price("span.price")}))
}

func TestText_SelectorOrderBeatsDocumentOrder(t *testing.T) {
	d := doc(t, `<div id="second">Second candidate title</div><span id="first">First candidate title</span>`)
	v, ok := Text(5, 500, "span#first", "div#second")(d)
	require.True(t, ok)
	require.Equal(t, "First candidate title", v)
}

func TestPriceStrategies(t *testing.T) {
	d := doc(t, `<body>
<div id="corePrice_feature_div"><span class="a-price-whole">1,499.</span></div>
<span class="a-offscreen">₹2,999.00</span>
<div class="x Nx9bqj y">₹849</div>
<div>Only <b>bold</b> ₹ 450</div>
<meta property="product:price:amount" content="399">
</body>`)

	v, ok := PriceWithin("div", "id", regexp.MustCompile(`(?i)price`), "span.a-price-whole, span.a-offscreen")(d)
	require.True(t, ok)
	require.Equal(t, 1499.0, v)

	v, ok = Price("span#missing", "span.a-offscreen")(d)
	require.True(t, ok)
	require.Equal(t, 2999.0, v)

	v, ok = PriceByClass("div", regexp.MustCompile(`Nx9bqj|_30jeq3`))(d)
	require.True(t, ok)
	require.Equal(t, 849.0, v)

	v, ok = MetaPrice(`meta[property="product:price:amount"]`)(d)
	require.True(t, ok)
	require.Equal(t, 399.0, v)
}

func TestTextScan_OwnTextAndFloor(t *testing.T) {
	d := doc(t, `<body><div>₹5</div><div>Price is <span>₹</span></div><div>₹ 1,250 </div></body>`)
	v, ok := TextScan{Tag: "div", Markers: []string{"₹"}, Floor: 10, OwnText: true, MaxLen: 30}.Strategy()(d)
	require.True(t, ok)
	require.Equal(t, 1250.0, v)

	long := doc(t, `<div>₹ 999 `+strings.Repeat("x", 40)+`</div>`)
	_, ok = TextScan{Tag: "div", Markers: []string{"₹"}, Floor: 10, OwnText: true, MaxLen: 30}.Strategy()(long)
	require.False(t, ok)
}

func TestImageSrc_RequiresAssetHost(t *testing.T) {
	d := doc(t, `<img class="a" src="https://cdn.example.com/x.jpg"><img class="a" src="https://rukminim2.flixcart.com/y.jpg">`)
	v, ok := ImageSrc([]string{"rukminim", "static-assets"}, "img.a")(d)
	require.True(t, ok)
	require.Equal(t, "https://rukminim2.flixcart.com/y.jpg", v)
}

func TestBlockDetector(t *testing.T) {
	d := NewBlockDetector()
	m, ok := d.Blocked([]byte(`<title>Robot Check</title>`))
	require.True(t, ok)
	require.Equal(t, "Robot Check", m)

	_, ok = d.Blocked([]byte(`<html>fine</html>`))
	require.False(t, ok)

	custom := NewBlockDetector("captcha")
	_, ok = custom.Blocked([]byte("solve this captcha"))
	require.True(t, ok)
}

func TestClean(t *testing.T) {
	require.Equal(t, "a b c", Clean("  a \n\t b   c "))
}
