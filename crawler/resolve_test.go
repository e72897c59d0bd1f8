package crawler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResolver(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		start   string
		ext     string
		origin  Origin
		wantExt string
		wantErr bool
	}{
		{
			name:    "https with default port",
			start:   "https://Example.COM/docs/",
			origin:  Origin{Scheme: "https", Host: "example.com", Port: "443"},
			wantExt: ".pdf",
		},
		{
			name:    "explicit default port",
			start:   "http://example.com:80",
			origin:  Origin{Scheme: "http", Host: "example.com", Port: "80"},
			wantExt: ".pdf",
		},
		{
			name:    "explicit port and extension without dot",
			start:   "http://localhost:8080",
			ext:     "DOCX",
			origin:  Origin{Scheme: "http", Host: "localhost", Port: "8080"},
			wantExt: ".docx",
		},
		{
			name:    "ipv6 host",
			start:   "http://[::1]:9000/",
			origin:  Origin{Scheme: "http", Host: "::1", Port: "9000"},
			wantExt: ".pdf",
		},
		{name: "unsupported scheme", start: "ftp://example.com/", wantErr: true},
		{name: "relative", start: "/docs", wantErr: true},
		{name: "no host", start: "http://", wantErr: true},
		{name: "unparsable", start: "http://[::1", wantErr: true},
		{name: "not a url", start: "not a url", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, err := NewResolver(tt.start, tt.ext)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidStartURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.origin, r.Origin())
			assert.Equal(t, tt.wantExt, r.Extension())
		})
	}
}

func TestResolverResolve(t *testing.T) {
	t.Parallel()

	r, err := NewResolver("https://example.com/", "")
	require.NoError(t, err)

	tests := []struct {
		name string
		page string
		href string
		want string
	}{
		{name: "relative", page: "https://example.com/a/b", href: "c", want: "https://example.com/a/c"},
		{name: "root relative", page: "https://example.com/a/b", href: "/c", want: "https://example.com/c"},
		{name: "parent", page: "https://example.com/a/b/", href: "../x.pdf", want: "https://example.com/a/x.pdf"},
		{name: "protocol relative", page: "https://example.com/", href: "//cdn.example.com/x", want: "https://cdn.example.com/x"},
		{name: "fragment dropped", page: "https://example.com/", href: "/page#intro", want: "https://example.com/page"},
		{name: "query kept", page: "https://example.com/", href: "/file.pdf?v=2", want: "https://example.com/file.pdf?v=2"},
		{name: "surrounding whitespace", page: "https://example.com/", href: "  /a  ", want: "https://example.com/a"},
		{name: "absolute", page: "https://example.com/", href: "http://other.test/", want: "http://other.test/"},
		{name: "lone percent sign", page: "https://example.com/dir/", href: "/50%off.pdf", want: "https://example.com/50%25off.pdf"},
		{name: "invalid escape", page: "https://example.com/", href: "%zz", want: "https://example.com/%25zz"},
		{name: "valid escape kept", page: "https://example.com/", href: "/a%20b.pdf", want: "https://example.com/a%20b.pdf"},
		{name: "backslashes are slashes", page: "https://example.com/dir/", href: `\docs\x.pdf`, want: "https://example.com/docs/x.pdf"},
		{name: "host lower-cased", page: "https://example.com/dir/", href: "http://Example.COM:443/a.pdf", want: "http://example.com:443/a.pdf"},
		{name: "default port dropped", page: "https://example.com/", href: "https://example.com:443/a", want: "https://example.com/a"},
		{name: "empty path becomes slash", page: "https://example.com/dir/", href: "https://example.com", want: "https://example.com/"},
		{name: "dot segments collapsed", page: "https://example.com/", href: "/a/./b/../c.pdf", want: "https://example.com/a/c.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := r.Resolve(tt.page, tt.href)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Href(true))
			assert.Empty(t, got.Hash())
		})
	}

	t.Run("malformed href", func(t *testing.T) {
		t.Parallel()

		for _, href := range []string{"http://[::1", "http://exa mple.com/", "http://", "https://example.com:99999/"} {
			_, err := r.Resolve("https://example.com/", href)
			var resErr *ResolutionError
			require.ErrorAs(t, err, &resErr, "href %q", href)
			assert.Equal(t, href, resErr.Href)
			assert.Equal(t, "https://example.com/", resErr.Page)
			assert.Error(t, errors.Unwrap(resErr))
		}
	})

	t.Run("malformed page URL", func(t *testing.T) {
		t.Parallel()

		_, err := r.Resolve("http://[::1", "/a")
		var resErr *ResolutionError
		assert.ErrorAs(t, err, &resErr)
	})
}

func TestResolverClassify(t *testing.T) {
	t.Parallel()

	r, err := NewResolver("https://example.com/start", ".pdf")
	require.NoError(t, err)

	tests := []struct {
		raw  string
		want LinkKind
	}{
		{"https://example.com/about", LinkPage},
		{"https://EXAMPLE.com:443/about", LinkPage},
		{"https://example.com", LinkPage},
		{"https://example.com/files/report.pdf", LinkDocument},
		{"https://example.com/files/REPORT.PDF", LinkDocument},
		{"https://example.com/report.pdf?download=1", LinkDocument},
		{"https://example.com/50%off.pdf", LinkDocument},
		{"https://example.com/report.pdf.html", LinkPage},
		{"https://example.com/?file=report.pdf", LinkPage},
		{"http://example.com/report.pdf", LinkOutOfScope},
		{"https://example.com:8443/report.pdf", LinkOutOfScope},
		{"https://www.example.com/report.pdf", LinkOutOfScope},
		{"mailto:team@example.com", LinkOutOfScope},
		{"javascript:void(0)", LinkOutOfScope},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()

			u, err := urlParser.Parse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Classify(u))
		})
	}
}

func TestOriginString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://example.com:443", Origin{Scheme: "https", Host: "example.com", Port: "443"}.String())
	assert.Equal(t, "http://[::1]:8080", Origin{Scheme: "http", Host: "::1", Port: "8080"}.String())
	assert.Equal(t, "mailto://", Origin{Scheme: "mailto"}.String())
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{"https://example.com/a#b", "https://example.com/a"},
		{"http://site.test", "http://site.test/"},
		{"http://Site.Test/", "http://site.test/"},
		{"http://site.test:80/", "http://site.test/"},
		{"  https://site.test:443/x.pdf  ", "https://site.test/x.pdf"},
		{"http://site.test:8080", "http://site.test:8080/"},
		{"%zz", "%zz"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.raw), tt.raw)
	}
}
