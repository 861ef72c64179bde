package gradersvc

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/trezcool/mazoezi/core/exercise"
)

// headMarkerAttr tags the head elements (scripts, styles, meta) an exercise
// service wants injected into the embedding document.
const headMarkerAttr = "data-exercise"

// contentIDs are the element ids a service may wrap its exercise fragment
// in, in lookup order. Without one the whole body is taken.
var contentIDs = []string{"exercise", "chapter", "content"}

// ParsePage extracts the embeddable fragments from a service response
// document: the marked head elements and the exercise content element.
func ParsePage(body []byte) (exercise.Page, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return exercise.Page{}, errors.Wrap(err, "parsing service response")
	}

	var page exercise.Page
	if head := findElement(doc, atom.Head); head != nil {
		var parts []string
		for c := head.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && hasAttr(c, headMarkerAttr) {
				parts = append(parts, renderNode(c))
			}
		}
		page.Head = strings.Join(parts, "\n")
	}

	if n := findByID(doc, contentIDs...); n != nil {
		page.Content = innerHTML(n)
	} else if b := findElement(doc, atom.Body); b != nil {
		page.Content = innerHTML(b)
	}
	return page, nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

// findByID returns the first element carrying any of the ids, earlier ids
// winning over document order.
func findByID(root *html.Node, ids ...string) *html.Node {
	for _, id := range ids {
		if n := findWhere(root, func(n *html.Node) bool { return attrVal(n, "id") == id }); n != nil {
			return n
		}
	}
	return nil
}

func findWhere(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findWhere(c, match); found != nil {
			return found
		}
	}
	return nil
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func renderNode(n *html.Node) string {
	var buf bytes.Buffer
	_ = html.Render(&buf, n)
	return buf.String()
}

func innerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}
