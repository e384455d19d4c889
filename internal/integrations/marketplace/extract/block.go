package extract

import "bytes"

// DefaultBlockMarkers are fragments seen on CAPTCHA and robot-check pages.
var DefaultBlockMarkers = []string{
	"api-services-support@amazon.com",
	"Robot Check",
	"Enter the characters you see below",
	"Type the characters you see in this image",
	"/errors/validateCaptcha",
}

type BlockDetector struct {
	markers [][]byte
}

func NewBlockDetector(markers ...string) *BlockDetector {
	if len(markers) == 0 {
		markers = DefaultBlockMarkers
	}
	d := &BlockDetector{markers: make([][]byte, 0, len(markers))}
	for _, m := range markers {
		if m != "" {
			d.markers = append(d.markers, []byte(m))
		}
	}
	return d
}

// Blocked returns the first challenge marker found in body.
func (d *BlockDetector) Blocked(body []byte) (string, bool) {
	for _, m := range d.markers {
		if bytes.Contains(body, m) {
			return string(m), true
		}
	}
	return "", false
}
