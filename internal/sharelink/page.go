package sharelink

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Anchor describes the link element inserted into the page.
type Anchor struct {
	ID     string
	Href   string
	Text   string
	Target string
}

// Node builds the <a> element.
func (a Anchor) Node() *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: "a", DataAtom: atom.A}
	if a.ID != "" {
		n.Attr = append(n.Attr, html.Attribute{Key: "id", Val: a.ID})
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "href", Val: a.Href})
	if a.Target != "" {
		n.Attr = append(n.Attr, html.Attribute{Key: "target", Val: a.Target})
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: a.Text})
	return n
}

// HTML renders the anchor as a fragment.
func (a Anchor) HTML() string {
	var buf bytes.Buffer
	_ = html.Render(&buf, a.Node())
	return buf.String()
}

// Page is the host page the injector works on.
type Page interface {
	// Path is the URL path of the currently displayed view.
	Path() string
	// HasElement reports whether an element with the given id exists.
	HasElement(id string) bool
	// AppendAnchor appends a to the first element carrying class. It
	// reports false when no such element exists.
	AppendAnchor(class string, a Anchor) (bool, error)
}

// Document is an in-memory HTML page.
type Document struct {
	path string
	root *html.Node
}

var _ Page = (*Document)(nil)

// ParseDocument parses an HTML page displayed at path.
func ParseDocument(r io.Reader, path string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{path: path, root: root}, nil
}

func (d *Document) Path() string { return d.path }

func (d *Document) HasElement(id string) bool {
	if id == "" {
		return false
	}
	return findNode(d.root, func(n *html.Node) bool { return attr(n, "id") == id }) != nil
}

func (d *Document) AppendAnchor(class string, a Anchor) (bool, error) {
	container := findNode(d.root, func(n *html.Node) bool { return hasClass(n, class) })
	if container == nil {
		return false, nil
	}
	container.AppendChild(a.Node())
	return true, nil
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// FilePage is a page stored in an HTML file. Every call re-reads the file so
// edits made by other programs between polls are seen; AppendAnchor writes
// the modified document back.
type FilePage struct {
	Filename string
	URLPath  string
}

var _ Page = (*FilePage)(nil)

func (p *FilePage) load() (*Document, error) {
	f, err := os.Open(p.Filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseDocument(f, p.URLPath)
}

func (p *FilePage) Path() string { return p.URLPath }

func (p *FilePage) HasElement(id string) bool {
	doc, err := p.load()
	if err != nil {
		return false
	}
	return doc.HasElement(id)
}

func (p *FilePage) AppendAnchor(class string, a Anchor) (bool, error) {
	doc, err := p.load()
	if err != nil {
		return false, err
	}
	ok, err := doc.AppendAnchor(class, a)
	if !ok || err != nil {
		return ok, err
	}
	var buf bytes.Buffer
	if err := doc.Render(&buf); err != nil {
		return false, fmt.Errorf("render %s: %w", p.Filename, err)
	}
	if err := os.WriteFile(p.Filename, buf.Bytes(), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", p.Filename, err)
	}
	return true, nil
}

func findNode(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, match); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}
