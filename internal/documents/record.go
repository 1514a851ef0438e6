package documents

import "strconv"

// UnknownSource is substituted when a record reaches a consumer without a source.
const UnknownSource = "unknown"

// PageNumber is a 1-based page index. The zero value is UnknownPage.
type PageNumber int

// UnknownPage marks a page whose position in its document is not known.
const UnknownPage PageNumber = 0

// Known reports whether p refers to an actual page.
func (p PageNumber) Known() bool { return p > 0 }

func (p PageNumber) String() string {
	if !p.Known() {
		return "unknown"
	}
	return strconv.Itoa(int(p))
}

// ParsePageNumber is the inverse of String. Anything that is not a positive
// integer maps to UnknownPage.
func ParsePageNumber(s string) PageNumber {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return UnknownPage
	}
	return PageNumber(n)
}

// PageRecord is the text of one page of one source document.
// Text may be empty when extraction or recognition produced nothing.
type PageRecord struct {
	Source string
	Page   PageNumber
	Text   string
}

// Normalized returns a copy with the unknown sentinels filled in.
func (r PageRecord) Normalized() PageRecord {
	if r.Source == "" {
		r.Source = UnknownSource
	}
	if r.Page < 0 {
		r.Page = UnknownPage
	}
	return r
}

// Chunk is a bounded window of a page's text, carrying the page's attribution.
type Chunk struct {
	Text   string
	Source string
	Page   PageNumber
}
