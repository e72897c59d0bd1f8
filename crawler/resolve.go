package crawler

import (
	"errors"
	"fmt"
	"net"
	"strings"

	whatwgUrl "github.com/nlnwa/whatwg-url/url"
)

// DefaultExtension is the document extension crawled for when none is given.
const DefaultExtension = ".pdf"

var (
	// ErrInvalidStartURL is returned when the start URL is not an absolute
	// http or https URL.
	ErrInvalidStartURL = errors.New("invalid start URL")

	errNoHost = errors.New("resolved URL has no host")
)

// Origin is the scheme, host and port triple identifying a web authority.
type Origin struct {
	Scheme string
	Host   string
	Port   string
}

// urlParser follows the WHATWG URL standard, which is how browsers resolve
// hrefs. A '%' not followed by two hex digits is encoded as %25 so the result
// is always a valid request target.
var urlParser = whatwgUrl.NewParser(whatwgUrl.WithPercentEncodeSinglePercentSign())

// OriginOf returns the origin of u. The parser already lower-cases the host
// and drops the default port, so the default port is filled back in here and
// http://a and http://a:80 share an origin.
func OriginOf(u *whatwgUrl.Url) Origin {
	o := Origin{
		Scheme: u.Scheme(),
		Host:   strings.Trim(u.Hostname(), "[]"),
		Port:   u.Port(),
	}
	if o.Port == "" {
		switch o.Scheme {
		case "http":
			o.Port = "80"
		case "https":
			o.Port = "443"
		}
	}
	return o
}

func (o Origin) String() string {
	if o.Port == "" {
		return o.Scheme + "://" + o.Host
	}
	return o.Scheme + "://" + net.JoinHostPort(o.Host, o.Port)
}

// LinkKind classifies a resolved link relative to the crawl origin.
type LinkKind int

const (
	LinkOutOfScope LinkKind = iota
	LinkPage
	LinkDocument
)

func (k LinkKind) String() string {
	switch k {
	case LinkPage:
		return "page"
	case LinkDocument:
		return "document"
	default:
		return "out-of-scope"
	}
}

// ResolutionError reports an href that could not be turned into an absolute
// URL. It never aborts processing of the page the href was found on.
type ResolutionError struct {
	Page string
	Href string
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %q on %s: %v", e.Href, e.Page, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Resolver turns hrefs into absolute URLs and classifies them against the
// origin of the start URL. It is immutable and safe for concurrent use.
type Resolver struct {
	origin    Origin
	extension string
}

// NewResolver derives the base origin from startURL. Documents are URLs whose
// path ends with extension (case-insensitive); an empty extension means
// DefaultExtension.
func NewResolver(startURL, extension string) (*Resolver, error) {
	u, err := urlParser.Parse(strings.TrimSpace(startURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidStartURL, err)
	}
	if u.Scheme() != "http" && u.Scheme() != "https" {
		return nil, fmt.Errorf("%w: %q must use http or https", ErrInvalidStartURL, startURL)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q has no host", ErrInvalidStartURL, startURL)
	}

	if extension == "" {
		extension = DefaultExtension
	}
	if !strings.HasPrefix(extension, ".") {
		extension = "." + extension
	}

	return &Resolver{
		origin:    OriginOf(u),
		extension: strings.ToLower(extension),
	}, nil
}

// Origin returns the base origin of the crawl.
func (r *Resolver) Origin() Origin { return r.origin }

// Extension returns the lower-cased document extension, including the dot.
func (r *Resolver) Extension() string { return r.extension }

// Resolve converts href to an absolute URL relative to pageURL. The fragment
// is dropped since it never changes which document is served.
func (r *Resolver) Resolve(pageURL, href string) (*whatwgUrl.Url, error) {
	u, err := urlParser.ParseRef(pageURL, href)
	if err != nil {
		return nil, &ResolutionError{Page: pageURL, Href: href, Err: err}
	}
	if u.Hostname() == "" && (u.Scheme() == "http" || u.Scheme() == "https") {
		return nil, &ResolutionError{Page: pageURL, Href: href, Err: errNoHost}
	}
	u.SetHash("")
	return u, nil
}

// Classify reports whether u is a same-origin page, a same-origin document or
// out of scope.
func (r *Resolver) Classify(u *whatwgUrl.Url) LinkKind {
	if OriginOf(u) != r.origin {
		return LinkOutOfScope
	}
	if strings.HasSuffix(strings.ToLower(u.Pathname()), r.extension) {
		return LinkDocument
	}
	return LinkPage
}

// Normalize returns the canonical serialization of an absolute URL, used as
// the key of the visited and document sets: lower-case host, no default port,
// "/" for an empty path and no fragment. Unparsable input is returned as is.
func Normalize(raw string) string {
	u, err := urlParser.Parse(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	return u.Href(true)
}
