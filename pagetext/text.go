// Package pagetext converts captured result-page HTML into the plain text the
// warranty parsers read and into Markdown snapshots for debugging.
package pagetext

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// noise never renders any visible text.
var noise = []string{"script", "style", "noscript", "template", "head", "svg", "[hidden]", "[aria-hidden='true']"}

var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"br": true, "dd": true, "div": true, "dl": true, "dt": true,
	"fieldset": true, "figcaption": true, "footer": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true,
	"ol": true, "p": true, "section": true, "table": true, "tr": true, "ul": true,
}

var (
	spaceRun = regexp.MustCompile(`[ \f\r\v\x{00a0}]+`)
	blankRun = regexp.MustCompile(`\n{3,}`)
)

// VisibleText approximates the innerText of the document body: hidden
// elements are dropped, block elements start a new line and table cells are
// tab separated.
func VisibleText(rawHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find(strings.Join(noise, ", ")).Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	var b strings.Builder
	for _, n := range root.Nodes {
		walk(&b, n)
	}
	return normalize(b.String()), nil
}

func walk(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(strings.ReplaceAll(n.Data, "\n", " "))
		return
	case html.ElementNode:
		if n.Data == "td" || n.Data == "th" {
			b.WriteByte('\t')
		}
		if blockTags[n.Data] {
			b.WriteByte('\n')
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(b, c)
	}
	if n.Type == html.ElementNode && blockTags[n.Data] {
		b.WriteByte('\n')
	}
}

func normalize(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		l = spaceRun.ReplaceAllString(l, " ")
		lines[i] = strings.Trim(l, " \t")
	}
	out := blankRun.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(out)
}

// StripSelectors removes every element matching one of selectors.
// The input is returned unchanged when it cannot be parsed.
func StripSelectors(rawHTML string, selectors []string) string {
	if len(selectors) == 0 {
		return rawHTML
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML
	}
	for _, sel := range selectors {
		doc.Find(sel).Remove()
	}
	out, err := doc.Html()
	if err != nil {
		return rawHTML
	}
	return out
}
