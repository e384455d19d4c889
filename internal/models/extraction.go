package models

type ErrorKind string

const (
	ErrorKindNone                 ErrorKind = ""
	ErrorKindTransport            ErrorKind = "transport"
	ErrorKindBlocked              ErrorKind = "blocked"
	ErrorKindExtractionIncomplete ErrorKind = "extraction_incomplete"
	ErrorKindValidation           ErrorKind = "validation"
)

// ExtractionResult is built once per scrape attempt and not mutated after it is returned.
type ExtractionResult struct {
	Name          *string   `json:"name,omitempty"`
	Price         *float64  `json:"price,omitempty"`
	OriginalPrice *float64  `json:"original_price,omitempty"`
	Image         *string   `json:"image,omitempty"`
	SourceURL     string    `json:"source_url"`
	Platform      Platform  `json:"platform"`
	Succeeded     bool      `json:"succeeded"`
	Error         *string   `json:"error,omitempty"`
	ErrorKind     ErrorKind `json:"error_kind,omitempty"`
}

// NewExtractionResult derives Succeeded from the presence of name and price.
func NewExtractionResult(platform Platform, sourceURL string, name *string, price, originalPrice *float64, image *string) ExtractionResult {
	r := ExtractionResult{
		Name:          name,
		Price:         price,
		OriginalPrice: originalPrice,
		Image:         image,
		SourceURL:     sourceURL,
		Platform:      platform,
		Succeeded:     name != nil && *name != "" && price != nil,
	}
	if !r.Succeeded {
		msg := "Could not extract product name or price"
		r.Error = &msg
		r.ErrorKind = ErrorKindExtractionIncomplete
	}
	return r
}

func FailedExtraction(platform Platform, sourceURL string, kind ErrorKind, msg string) ExtractionResult {
	return ExtractionResult{
		SourceURL: sourceURL,
		Platform:  platform,
		Error:     &msg,
		ErrorKind: kind,
	}
}

type SearchResult struct {
	Name     *string  `json:"name,omitempty"`
	Price    *float64 `json:"price,omitempty"`
	Image    *string  `json:"image,omitempty"`
	URL      string   `json:"url"`
	Platform Platform `json:"platform"`
}
