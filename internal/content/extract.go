package content

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// ParagraphSeparator keeps an audible pause between structural blocks.
const ParagraphSeparator = "\n\n"

// removedTags are subtrees that never carry article text.
var removedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"nav":      true,
	"footer":   true,
	"aside":    true,
	"header":   true,
	"form":     true,
	"iframe":   true,
	"noscript": true,
}

// blockTags mark paragraph boundaries.
var blockTags = map[string]bool{
	"p":          true,
	"h1":         true,
	"h2":         true,
	"h3":         true,
	"h4":         true,
	"h5":         true,
	"h6":         true,
	"li":         true,
	"blockquote": true,
	"figcaption": true,
	"td":         true,
	"th":         true,
}

// spacedTags render as a line break, so their text never runs into a neighbour's.
var spacedTags = map[string]bool{
	"br":      true,
	"hr":      true,
	"div":     true,
	"section": true,
	"article": true,
	"main":    true,
	"ul":      true,
	"ol":      true,
	"dl":      true,
	"dt":      true,
	"dd":      true,
	"table":   true,
	"tr":      true,
	"pre":     true,
}

// Extraction is the ordered list of speakable paragraphs found in a page.
// No paragraph is empty or whitespace-only.
type Extraction struct {
	Title      string
	Paragraphs []string
}

// Text joins the paragraphs into the final speakable text.
func (e Extraction) Text() string {
	return strings.Join(e.Paragraphs, ParagraphSeparator)
}

// Empty reports whether nothing speakable was found.
func (e Extraction) Empty() bool {
	return len(e.Paragraphs) == 0
}

// Extractor turns an HTML document into speakable paragraphs.
// Implementations must be deterministic.
type Extractor interface {
	Extract(input []byte) (Extraction, error)
}

// BlockExtractor is the block-element heuristic: drop non-content regions,
// read p/h1-h6/li/blockquote/figcaption/td/th in document order, and fall
// back to the whole body when the page has none of them.
type BlockExtractor struct{}

func (BlockExtractor) Extract(input []byte) (Extraction, error) {
	return ExtractHTML(input)
}

// ExtractHTMLString is ExtractHTML for callers holding a string.
func ExtractHTMLString(doc string) (Extraction, error) {
	return ExtractHTML([]byte(doc))
}

// ExtractHTML parses input and returns its paragraphs.
func ExtractHTML(input []byte) (Extraction, error) {
	root, err := html.Parse(bytes.NewReader(input))
	if err != nil {
		return Extraction{}, &ParsingError{Detail: "unable to parse HTML", Err: err}
	}

	result := Extraction{Title: collapseWhitespace(findTitle(root))}
	removeSubtrees(root)

	body := findFirst(root, "body")
	if body == nil {
		return result, nil
	}

	blocks := findBlocks(body)
	if len(blocks) == 0 {
		var b strings.Builder
		collectText(&b, body, false)
		if text := collapseWhitespace(b.String()); text != "" {
			result.Paragraphs = append(result.Paragraphs, text)
		}
		return result, nil
	}

	for _, block := range blocks {
		var b strings.Builder
		collectText(&b, block, true)
		if text := collapseWhitespace(b.String()); text != "" {
			result.Paragraphs = append(result.Paragraphs, text)
		}
	}
	return result, nil
}

func findTitle(n *html.Node) string {
	head := findFirst(n, "head")
	if head == nil {
		return ""
	}
	t := findFirst(head, "title")
	if t == nil {
		return ""
	}
	var b strings.Builder
	collectText(&b, t, false)
	return b.String()
}

func findFirst(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && strings.EqualFold(n.Data, tag) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// removeSubtrees detaches every element listed in removedTags.
func removeSubtrees(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && removedTags[strings.ToLower(c.Data)] {
			n.RemoveChild(c)
		} else {
			removeSubtrees(c)
		}
		c = next
	}
}

// findBlocks returns block elements below n in document order.
func findBlocks(n *html.Node) []*html.Node {
	var blocks []*html.Node
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			if isBlock(c) {
				blocks = append(blocks, c)
			}
			walk(c)
		}
	}
	walk(n)
	return blocks
}

func isBlock(n *html.Node) bool {
	return n.Type == html.ElementNode && blockTags[strings.ToLower(n.Data)]
}

// collectText appends the rendered text below n. With skipNested set, block
// descendants are left out because they are read as paragraphs of their own.
func collectText(b *strings.Builder, n *html.Node, skipNested bool) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			b.WriteString(c.Data)
		case html.ElementNode:
			if skipNested && isBlock(c) {
				b.WriteByte(' ')
				continue
			}
			spaced := spacedTags[strings.ToLower(c.Data)]
			if spaced {
				b.WriteByte(' ')
			}
			collectText(b, c, skipNested)
			if spaced {
				b.WriteByte(' ')
			}
		}
	}
}

// collapseWhitespace turns every whitespace run into one space and trims.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
