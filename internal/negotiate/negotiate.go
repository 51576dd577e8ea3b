// Package negotiate selects the best media type and charset from
// server-offered options against a client preference header.
package negotiate

import (
	"mime"
	"strconv"
	"strings"

	"github.com/munnerz/goautoneg"
	"golang.org/x/text/encoding/htmlindex"
)

// MediaType is a parsed media type with its parameters.
type MediaType struct {
	// Type is the "type/subtype" pair, lowercased.
	Type string

	// Params holds the media type parameters (charset and friends).
	Params map[string]string
}

// ParseMediaType parses a media type string such as
// "text/html;charset=utf-8".
func ParseMediaType(v string) (MediaType, error) {
	typ, params, err := mime.ParseMediaType(v)
	if err != nil {
		return MediaType{}, err
	}
	return MediaType{Type: typ, Params: params}, nil
}

// String renders the media type with its parameters.
func (m MediaType) String() string {
	if m.Type == "" {
		return ""
	}
	return mime.FormatMediaType(m.Type, m.Params)
}

// IsZero reports whether no media type is set.
func (m MediaType) IsZero() bool { return m.Type == "" }

// Negotiator picks the best match from server-offered options, or
// reports that nothing matches.
type Negotiator interface {
	// ContentType negotiates against an Accept header value. The first
	// offered type acceptable at the highest quality wins.
	ContentType(accept string, available []MediaType) (MediaType, bool)

	// Charset negotiates against an Accept-Charset header value.
	Charset(acceptCharset string, available []string) (string, bool)
}

// New returns the default negotiator.
func New() Negotiator { return stdNegotiator{} }

type stdNegotiator struct{}

func (stdNegotiator) ContentType(accept string, available []MediaType) (MediaType, bool) {
	if accept == "" {
		accept = "*/*"
	}
	for _, clause := range goautoneg.ParseAccept(accept) {
		if clause.Q == 0 {
			continue
		}
		for _, mt := range available {
			typ, sub, ok := strings.Cut(mt.Type, "/")
			if !ok {
				continue
			}
			switch {
			case clause.Type == "*" && clause.SubType == "*":
				return mt, true
			case strings.EqualFold(clause.Type, typ) && clause.SubType == "*":
				return mt, true
			case strings.EqualFold(clause.Type, typ) && strings.EqualFold(clause.SubType, sub):
				return mt, true
			}
		}
	}
	return MediaType{}, false
}

func (stdNegotiator) Charset(acceptCharset string, available []string) (string, bool) {
	best := ""
	bestQ := 0.0
	for _, av := range available {
		q, ok := charsetQuality(acceptCharset, av)
		if ok && q > bestQ {
			best, bestQ = av, q
		}
	}
	return best, best != ""
}

type charsetRange struct {
	name string
	q    float64
}

// parseAcceptCharset parses an Accept-Charset value such as
// "iso-8859-5, unicode-1-1;q=0.8".
func parseAcceptCharset(header string) []charsetRange {
	var ranges []charsetRange
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, ";")
		cr := charsetRange{name: strings.TrimSpace(fields[0]), q: 1}
		for _, param := range fields[1:] {
			k, v, ok := strings.Cut(param, "=")
			if !ok || strings.TrimSpace(k) != "q" {
				continue
			}
			if q, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				cr.q = q
			}
		}
		ranges = append(ranges, cr)
	}
	return ranges
}

// charsetQuality reports the quality at which the header accepts the
// charset. An exact range beats the wildcard; q=0 excludes.
func charsetQuality(header, charset string) (float64, bool) {
	wildcard := -1.0
	for _, cr := range parseAcceptCharset(header) {
		if strings.EqualFold(cr.name, charset) {
			if cr.q == 0 {
				return 0, false
			}
			return cr.q, true
		}
		if cr.name == "*" {
			wildcard = cr.q
		}
	}
	if wildcard > 0 {
		return wildcard, true
	}
	return 0, false
}

// Recognized reports whether name names a known charset. Matching
// follows WHATWG labels, so common aliases like "utf8" and "latin1"
// are accepted.
func Recognized(name string) bool {
	_, err := htmlindex.Get(name)
	return err == nil
}
