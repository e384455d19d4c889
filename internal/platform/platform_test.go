package platform

import (
	"testing"

	"github.com/BearBump/PriceBox/internal/models"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"", "", false},
		{"   ", "", false},
		{"amazon.in/dp/B0C1", "https://amazon.in/dp/B0C1", true},
		{"  http://www.flipkart.com/x/p/itm1  ", "https://www.flipkart.com/x/p/itm1", true},
		{"HTTP://amzn.to/abc", "https://amzn.to/abc", true},
		{"https://www.amazon.in/dp/B0C1", "https://www.amazon.in/dp/B0C1", true},
	}
	for _, c := range cases {
		got, ok := Normalize(c.in)
		require.Equal(t, c.ok, ok, c.in)
		require.Equal(t, c.want, got, c.in)
	}
}

func TestIdentify_SupportedHosts(t *testing.T) {
	amazon := []string{
		"https://www.amazon.in/dp/B0C1",
		"amazon.com/gp/product/B0C1",
		"http://smile.amazon.co.uk/dp/X",
		"https://amzn.to/3xYz",
		"amzn.in/d/abc",
		"https://WWW.AMAZON.IN/dp/B0C1",
	}
	for _, u := range amazon {
		require.Equal(t, models.PlatformAmazon, Identify(u), u)
	}

	flipkart := []string{
		"https://www.flipkart.com/phone/p/itm123?pid=MOB1",
		"dl.flipkart.com/s/abc",
		"https://fkrt.it/abcd",
		"http://m.flipkart.com/x",
	}
	for _, u := range flipkart {
		require.Equal(t, models.PlatformFlipkart, Identify(u), u)
	}
}

func TestIdentify_Other(t *testing.T) {
	for _, u := range []string{"", "https://www.myntra.com/x", "ebay.com/itm/1", "https://example.org/amzn.to"} {
		require.Equal(t, models.PlatformNone, Identify(u), u)
	}
}
