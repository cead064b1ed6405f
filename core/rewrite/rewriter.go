// Package rewrite implements the Rewriter interface.
//
// Documents are read with the lenient golang.org/x/net/html tokenizer. Every
// markup token (tags, attributes, comments, doctype, XML declaration, CDATA)
// is copied from its raw bytes, so only the contents of text nodes can change.
//
// Matching is done per text node. A pattern whose text is interrupted by
// inline markup, as in "Page <b>12</b>", does not match.
//
// A text node where a matcher fires is re-emitted from its decoded text:
// CRLF becomes LF and character references other than &amp;, &lt; and &gt;
// become literal characters. Text nodes without hits keep their raw bytes.
package rewrite

import (
	"bytes"
	"io"
	"strings"

	"github.com/gaurav-prasanna/epubclean/core"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// skipTags hold raw text that is either code or unparsed markup.
var skipTags = map[atom.Atom]bool{
	atom.Script:    true,
	atom.Style:     true,
	atom.Iframe:    true,
	atom.Noembed:   true,
	atom.Noframes:  true,
	atom.Noscript:  true,
	atom.Plaintext: true,
	atom.Xmp:       true,
}

var (
	cdataPrefix = []byte("<![CDATA[")
	nul         = []byte{0}
)

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// HTMLRewriter removes matcher hits from HTML and XHTML documents.
type HTMLRewriter struct{}

// New creates an HTMLRewriter.
func New() *HTMLRewriter {
	return &HTMLRewriter{}
}

// Rewrite applies matchers, in order, to every text node of content. It
// returns the rewritten document and the matchers that fired with their
// counts. When nothing fires, content is returned as is.
func (r *HTMLRewriter) Rewrite(member string, content []byte, matchers []core.Matcher) ([]byte, []core.Hit, error) {
	enc, err := declaredEncoding(content)
	if err != nil {
		return nil, nil, &core.UnparsableDocumentError{Member: member, Err: err}
	}

	text, err := decode(enc, content)
	if err != nil {
		return nil, nil, &core.UnparsableDocumentError{Member: member, Err: err}
	}
	if bytes.Contains(text, nul) {
		return nil, nil, &core.UnparsableDocumentError{Member: member, Err: errors.New("binary content")}
	}

	out, counts, err := rewriteTokens(text, matchers)
	if err != nil {
		return nil, nil, &core.UnparsableDocumentError{Member: member, Err: err}
	}

	var hits []core.Hit
	for i, n := range counts {
		if n > 0 {
			hits = append(hits, core.Hit{Source: matchers[i].Source, Count: n})
		}
	}
	if len(hits) == 0 {
		return content, nil, nil
	}

	out, err = encode(enc, out)
	if err != nil {
		return nil, nil, &core.UnparsableDocumentError{Member: member, Err: err}
	}
	return out, hits, nil
}

// rewriteTokens streams src through the tokenizer, copying markup verbatim
// and rewriting text tokens outside skipTags. counts[i] is the number of
// removals made by matchers[i].
func rewriteTokens(src []byte, matchers []core.Matcher) ([]byte, []int, error) {
	z := html.NewTokenizer(bytes.NewReader(src))
	z.AllowCDATA(true)

	var buf bytes.Buffer
	buf.Grow(len(src))
	counts := make([]int, len(matchers))
	var skip atom.Atom

	for {
		tt := z.Next()
		// TagName and Text rewrite the tokenizer buffer in place, so the raw
		// bytes are taken first.
		raw := append([]byte(nil), z.Raw()...)

		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				buf.Write(raw)
				return buf.Bytes(), counts, nil
			}
			return nil, nil, errors.Errorf("tokenizing: %w", z.Err())

		case html.StartTagToken:
			buf.Write(raw)
			name, _ := z.TagName()
			if a := atom.Lookup(name); skip == 0 && skipTags[a] {
				skip = a
			}

		case html.SelfClosingTagToken:
			// XHTML allows <script src="x"/>; the element has no raw text.
			buf.Write(raw)
			z.NextIsNotRawText()

		case html.EndTagToken:
			buf.Write(raw)
			name, _ := z.TagName()
			if skip != 0 && atom.Lookup(name) == skip {
				skip = 0
			}

		case html.TextToken:
			if skip != 0 || bytes.HasPrefix(raw, cdataPrefix) {
				buf.Write(raw)
				continue
			}
			text, changed := removeAll(string(z.Text()), matchers, counts)
			if changed {
				buf.WriteString(textEscaper.Replace(text))
			} else {
				buf.Write(raw)
			}

		default:
			buf.Write(raw)
		}
	}
}

// removeAll runs every matcher over one text node, adding to counts.
func removeAll(text string, matchers []core.Matcher, counts []int) (string, bool) {
	changed := false
	for i, m := range matchers {
		var n int
		text, n = m.Remove(text)
		if n > 0 {
			counts[i] += n
			changed = true
		}
	}
	return text, changed
}
