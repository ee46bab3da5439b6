package extract

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/Sriram-PR/doc-toc/pkg/anchor"
	"github.com/Sriram-PR/doc-toc/pkg/models"
	"github.com/Sriram-PR/doc-toc/pkg/utils"
)

// MarkerAttr flags the zero-width anchor elements injected before headings
const MarkerAttr = "data-toc-anchor"

const (
	DefaultMinLevel = 2 // h1 is reserved for the page title
	DefaultMaxLevel = 4
)

// Options controls which headings are extracted and how anchors are assigned
type Options struct {
	MinLevel    int
	MaxLevel    int
	AnchorStyle anchor.Style
	Registry    *anchor.Registry // Optional; nil keeps synthesized ids as-is (duplicates allowed)
}

// Result holds the headings found in one fragment and the rewritten fragment
type Result struct {
	Headings []models.HeadingEntry
	Fragment string
	Injected int // Number of anchor markers added
}

// Extractor finds heading elements in rendered HTML fragments and injects anchors
type Extractor struct {
	opts     Options
	selector string
	log      *logrus.Entry
}

// NewExtractor creates an Extractor, applying default levels when unset
func NewExtractor(opts Options, log *logrus.Entry) *Extractor {
	if opts.MinLevel <= 0 {
		opts.MinLevel = DefaultMinLevel
	}
	if opts.MaxLevel <= 0 {
		opts.MaxLevel = DefaultMaxLevel
	}
	if opts.MaxLevel < opts.MinLevel {
		opts.MaxLevel = opts.MinLevel
	}
	if !opts.AnchorStyle.IsValid() {
		opts.AnchorStyle = anchor.StylePattern
	}

	tags := make([]string, 0, opts.MaxLevel-opts.MinLevel+1)
	for n := opts.MinLevel; n <= opts.MaxLevel; n++ {
		tags = append(tags, fmt.Sprintf("h%d", n))
	}

	return &Extractor{
		opts:     opts,
		selector: strings.Join(tags, ", "),
		log:      log,
	}
}

// Extract parses fragment, collects headings in document order and returns the
// fragment with anchor markers injected before headings lacking an id.
// Unparseable input degrades to zero headings with the fragment untouched.
func (x *Extractor) Extract(fragment string) Result {
	if strings.TrimSpace(fragment) == "" {
		return Result{Fragment: fragment}
	}

	root, err := parseFragment(fragment)
	if err != nil {
		x.log.Debugf("Treating unparseable HTML fragment as heading-free: %v", err)
		return Result{Fragment: fragment}
	}

	doc := goquery.NewDocumentFromNode(root)
	found := doc.Find(x.selector)

	// Explicit ids are reserved before any id in this fragment is synthesized.
	if x.opts.Registry != nil {
		found.Each(func(_ int, s *goquery.Selection) {
			if id := existingID(s); id != "" {
				x.opts.Registry.Reserve(id)
			}
		})
	}

	var res Result
	found.Each(func(_ int, s *goquery.Selection) {
		label := utils.HeadingText(s.Text())
		if label == "" {
			return
		}

		id := existingID(s)
		if id == "" {
			id = anchor.Synthesize(label, x.opts.AnchorStyle)
			if x.opts.Registry != nil {
				id = x.opts.Registry.Claim(id)
			}
			s.BeforeNodes(markerNode(id))
			res.Injected++
		}

		res.Headings = append(res.Headings, models.HeadingEntry{
			Label:    label,
			AnchorID: id,
			Level:    x.level(goquery.NodeName(s)),
		})
	})

	out, err := renderChildren(root)
	if err != nil {
		x.log.Warnf("Failed to serialize rewritten fragment, treating as heading-free: %v", err)
		return Result{Fragment: fragment}
	}
	res.Fragment = out

	x.log.Debugf("Extracted %d headings (%d anchors injected)", len(res.Headings), res.Injected)
	return res
}

// level maps a heading tag to its 0-based nesting level
func (x *Extractor) level(tag string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(tag, "h"))
	if err != nil || n < x.opts.MinLevel {
		return 0
	}
	return n - x.opts.MinLevel
}

// existingID returns the heading's own id, or the id of an injected marker that
// immediately precedes it, or "" when neither exists.
func existingID(s *goquery.Selection) string {
	if id, ok := s.Attr("id"); ok && id != "" {
		return id
	}
	prev := s.Prev()
	if prev.Length() == 0 || goquery.NodeName(prev) != "a" {
		return ""
	}
	if _, ok := prev.Attr(MarkerAttr); !ok {
		return ""
	}
	id, _ := prev.Attr("id")
	return id
}

func markerNode(id string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     "a",
		DataAtom: atom.A,
		Attr: []html.Attribute{
			{Key: "id", Val: id},
			{Key: MarkerAttr, Val: ""},
		},
	}
}

// parseFragment parses HTML in a <body> context and hangs the result off a
// detached container node so headings at the top level still have a parent.
func parseFragment(fragment string) (*html.Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return nil, err
	}
	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return root, nil
}

func renderChildren(root *html.Node) (string, error) {
	var buf bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
