// Package page holds the dashboard HTML document shared by the renderers.
// Each fragment of the page is owned by a single renderer that fully rewrites it.
package page

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// Fragment selectors of the dashboard shell
const (
	StatTitle       = "#statTitle"
	StatOffsets     = "#statTableOffsets"
	StatActual      = "#statTableActual"
	StatBody        = "#statTableBody"
	StatVolumes     = "#statTableVolumes"
	SelectReservoir = "#selectReservoir"
	SelectPredictor = "#selectPredictor"
	CookieAlert     = "#cookieAlert"
	Charts          = "#charts"
	ChartScripts    = "#chartScripts"
)

//go:embed shell.html
var shellHTML string

// ErrNotFound is returned when a selector matches no element
var ErrNotFound = errors.New("element not found")

// Document is a parsed HTML page guarded for concurrent renderers
type Document struct {
	mu  sync.Mutex
	doc *goquery.Document
}

// New parses the dashboard shell
func New() (*Document, error) {
	return Parse(strings.NewReader(shellHTML))
}

// Parse builds a document from arbitrary HTML
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return &Document{doc: doc}, nil
}

func (d *Document) find(selector string) (*goquery.Selection, error) {
	sel := d.doc.Find(selector)
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%s: %w", selector, ErrNotFound)
	}
	return sel, nil
}

// SetInnerHTML replaces the children of the matched element with the fragment
func (d *Document) SetInnerHTML(selector, fragment string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	sel, err := d.find(selector)
	if err != nil {
		return err
	}
	sel.First().SetHtml(fragment)
	return nil
}

// EnsureChild appends an empty <tag id=id> to the parent unless an element with
// that id already exists anywhere in the page. It reports whether it was created.
func (d *Document) EnsureChild(parentSelector, tag, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.doc.Find("#"+id).Length() > 0 {
		return false, nil
	}
	parent, err := d.find(parentSelector)
	if err != nil {
		return false, err
	}
	parent.First().AppendHtml(fmt.Sprintf("<%s id=%q></%s>", tag, id, tag))
	return true, nil
}

// Remove deletes every element matching the selector
func (d *Document) Remove(selector string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.doc.Find(selector).Remove()
}

// SelectOption marks the option with the given value as selected and clears the others
func (d *Document) SelectOption(selector, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	sel, err := d.find(selector)
	if err != nil {
		return err
	}
	options := sel.First().Find("option")
	options.RemoveAttr("selected")
	options.FilterFunction(func(_ int, o *goquery.Selection) bool {
		return o.AttrOr("value", "") == value
	}).First().SetAttr("selected", "selected")
	return nil
}

// InnerHTML returns the serialized children of the first matched element
func (d *Document) InnerHTML(selector string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sel, err := d.find(selector)
	if err != nil {
		return "", err
	}
	return sel.First().Html()
}

// Text returns the combined text of the matched elements
func (d *Document) Text(selector string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Find(selector).Text()
}

// Count returns how many elements match the selector
func (d *Document) Count(selector string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Find(selector).Length()
}

// Query runs fn against a snapshot of the document
func (d *Document) Query(fn func(doc *goquery.Document)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(goquery.CloneDocument(d.doc))
}

// HTML serializes the whole page
func (d *Document) HTML() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	out, err := d.doc.Html()
	if err != nil {
		return "", fmt.Errorf("failed to serialize page: %w", err)
	}
	return out, nil
}

// Render writes the whole page to w
func (d *Document) Render(w io.Writer) error {
	out, err := d.HTML()
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, out); err != nil {
		return fmt.Errorf("failed to write page: %w", err)
	}
	return nil
}
