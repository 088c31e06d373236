// Package dom holds small helpers over golang.org/x/net/html trees: parsing
// article fragments, finding nodes, reading and writing attributes.
package dom

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseFragment parses an HTML fragment as the children of a fresh <div>
// and returns that div. The div is detached from any document.
func ParseFragment(fragment string) (*html.Node, error) {
	container := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), container)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fragment: %w", err)
	}
	for _, n := range nodes {
		container.AppendChild(n)
	}
	return container, nil
}

// Render serializes n and its subtree.
func Render(n *html.Node) (string, error) {
	var out bytes.Buffer
	if err := html.Render(&out, n); err != nil {
		return "", err
	}
	return out.String(), nil
}

// RenderChildren serializes only the children of n.
func RenderChildren(n *html.Node) (string, error) {
	var out bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&out, c); err != nil {
			return "", err
		}
	}
	return out.String(), nil
}

// Find returns the first node in preorder for which match is true.
func Find(root *html.Node, match func(*html.Node) bool) *html.Node {
	var found *html.Node
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if match(n) {
			found = n
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	if root != nil {
		walk(root)
	}
	return found
}

// FindAll returns every node in preorder for which match is true.
func FindAll(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return out
}

// Attr returns the value of key on n, or "".
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// HasAttr reports whether n carries key.
func HasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

// SetAttr sets or replaces key on n.
func SetAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// Closest walks from n up through its ancestors and returns the first
// element matching match.
func Closest(n *html.Node, match func(*html.Node) bool) *html.Node {
	for p := n; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && match(p) {
			return p
		}
	}
	return nil
}

// TextContent concatenates every text node under n.
func TextContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// Element builds a detached element with the given attributes.
func Element(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     attrs,
	}
}

// Text builds a detached text node.
func Text(data string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: data}
}

// Unwrap replaces n by its children.
func Unwrap(n *html.Node) {
	parent := n.Parent
	if parent == nil {
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		parent.InsertBefore(c, n)
		c = next
	}
	parent.RemoveChild(n)
}

// MergeText joins adjacent text siblings and drops empty text nodes under
// root, like the DOM's Node.normalize.
func MergeText(root *html.Node) {
	for c := root.FirstChild; c != nil; {
		next := c.NextSibling
		switch {
		case c.Type == html.TextNode && c.Data == "":
			root.RemoveChild(c)
		case c.Type == html.TextNode:
			for next != nil && next.Type == html.TextNode {
				c.Data += next.Data
				after := next.NextSibling
				root.RemoveChild(next)
				next = after
			}
		default:
			MergeText(c)
		}
		c = next
	}
}
