// Package fetch provides page loaders for the crawler: a headless Chrome
// renderer that executes client-side scripts and a static HTTP loader.
package fetch

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

// ExtractLinks returns the raw href of every anchor in an HTML document, in
// document order. Hrefs are not resolved.
func ExtractLinks(r io.Reader) ([]string, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	doc := goquery.NewDocumentFromNode(root)
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			if href = strings.TrimSpace(href); href != "" {
				links = append(links, href)
			}
		}
	})
	return links, nil
}

// mdParser is reused across calls for efficiency.
var mdParser = goldmark.New()

// extractMarkdownLinks parses markdown with goldmark and returns all link
// destinations (inline links, reference links, autolinks).
func extractMarkdownLinks(md string) []string {
	source := []byte(md)
	doc := mdParser.Parser().Parse(text.NewReader(source))

	var links []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		var dest []byte
		switch node := n.(type) {
		case *ast.Link:
			dest = node.Destination
		case *ast.AutoLink:
			dest = node.URL(source)
		}

		href := strings.TrimSpace(string(dest))
		if href == "" || strings.HasPrefix(href, "#") {
			return ast.WalkContinue, nil
		}
		links = append(links, href)
		return ast.WalkContinue, nil
	})

	return links
}
