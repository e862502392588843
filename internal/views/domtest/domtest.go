// Package domtest queries rendered HTML pages in tests.
package domtest

import (
	"io"
	"strings"
	"testing"

	"golang.org/x/net/html"
)

// Doc is a parsed HTML document.
type Doc struct {
	Root *html.Node
}

// Parse parses r or fails the test.
func Parse(t testing.TB, r io.Reader) *Doc {
	t.Helper()
	root, err := html.Parse(r)
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return &Doc{Root: root}
}

// ParseString parses s or fails the test.
func ParseString(t testing.TB, s string) *Doc {
	t.Helper()
	return Parse(t, strings.NewReader(s))
}

// Find returns the element nodes matching pred in document order.
func (d *Doc) Find(pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && pred(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.Root)
	return out
}

// AllByTestID returns every element with the data-testid.
func (d *Doc) AllByTestID(id string) []*html.Node {
	return d.Find(func(n *html.Node) bool { return Attr(n, "data-testid") == id })
}

// ByTestID returns the single element with the data-testid, failing the
// test when there is not exactly one.
func (d *Doc) ByTestID(t testing.TB, id string) *html.Node {
	t.Helper()
	nodes := d.AllByTestID(id)
	if len(nodes) != 1 {
		t.Fatalf("expected exactly one element with data-testid=%q, found %d", id, len(nodes))
	}
	return nodes[0]
}

// AllByRole returns every element with the given role, counting buttons
// as role "button".
func (d *Doc) AllByRole(role string) []*html.Node {
	return d.Find(func(n *html.Node) bool {
		if Attr(n, "role") == role {
			return true
		}
		return role == "button" && n.Data == "button"
	})
}

// AllByText returns the elements whose own trimmed text equals text.
func (d *Doc) AllByText(text string) []*html.Node {
	return d.Find(func(n *html.Node) bool { return OwnText(n) == text })
}

// HasText reports whether any element's own text contains s.
func (d *Doc) HasText(s string) bool {
	return len(d.Find(func(n *html.Node) bool { return strings.Contains(OwnText(n), s) })) > 0
}

// Attr returns the value of an attribute or "".
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// HasAttr reports whether the attribute is present.
func HasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

// HasClass reports whether the class attribute lists class.
func HasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(Attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// OwnText concatenates the direct text children of n, trimmed.
func OwnText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return strings.TrimSpace(b.String())
}
