package rewrite

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gaurav-prasanna/epubclean/core"
	"github.com/gaurav-prasanna/epubclean/core/pattern"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/net/html"
	"golang.org/x/text/encoding/unicode"
)

func compile(t *testing.T, opts pattern.Options) []core.Matcher {
	t.Helper()
	matchers, err := pattern.New(pattern.DefaultPageNumberPatterns()).Compile(opts)
	require.NoError(t, err)
	return matchers
}

func TestHTMLRewriter_Rewrite(t *testing.T) {
	tests := []struct {
		name      string
		opts      pattern.Options
		input     string
		want      string
		wantCount int
	}{
		{
			name:      "regex_in_paragraph",
			opts:      pattern.Options{Patterns: []string{`Page \d+`}, Regex: true},
			input:     `<p>Hello Page 12 World</p>`,
			want:      `<p>Hello  World</p>`,
			wantCount: 1,
		},
		{
			name:      "literal_watermark",
			opts:      pattern.Options{Patterns: []string{"Watermark Inc"}},
			input:     `<div><p>Text. Watermark Inc</p><p>Watermark Inc again</p></div>`,
			want:      `<div><p>Text. </p><p> again</p></div>`,
			wantCount: 2,
		},
		{
			name:      "case_insensitive_literal",
			opts:      pattern.Options{Patterns: []string{"watermark"}, CaseInsensitive: true},
			input:     `<p>A WATERMARK b</p>`,
			want:      `<p>A  b</p>`,
			wantCount: 1,
		},
		{
			name:      "attributes_untouched",
			opts:      pattern.Options{Patterns: []string{"Page 3"}},
			input:     `<img alt="Page 3" src="p3.png"/><a title="Page 3">Page 3</a>`,
			want:      `<img alt="Page 3" src="p3.png"/><a title="Page 3"></a>`,
			wantCount: 1,
		},
		{
			name:      "comments_untouched",
			opts:      pattern.Options{Patterns: []string{"secret"}},
			input:     `<!-- secret --><p>secret</p>`,
			want:      `<!-- secret --><p></p>`,
			wantCount: 1,
		},
		{
			name:      "script_and_style_untouched",
			opts:      pattern.Options{Patterns: []string{"red"}},
			input:     `<style>p { color: red }</style><script>var c = "red";</script><p>red fox</p>`,
			want:      `<style>p { color: red }</style><script>var c = "red";</script><p> fox</p>`,
			wantCount: 1,
		},
		{
			name:      "cdata_untouched",
			opts:      pattern.Options{Patterns: []string{"data"}},
			input:     `<svg><![CDATA[data > more]]></svg><p>data</p>`,
			want:      `<svg><![CDATA[data > more]]></svg><p></p>`,
			wantCount: 1,
		},
		{
			name:      "split_by_inline_markup_not_matched",
			opts:      pattern.Options{Patterns: []string{`Page \d+`}, Regex: true},
			input:     `<p>Page <b>12</b></p>`,
			want:      `<p>Page <b>12</b></p>`,
			wantCount: 0,
		},
		{
			name:      "entities_kept_in_untouched_nodes",
			opts:      pattern.Options{Patterns: []string{"zzz"}},
			input:     `<p>Tom &amp; Jerry&nbsp;&#8212;</p>`,
			want:      `<p>Tom &amp; Jerry&nbsp;&#8212;</p>`,
			wantCount: 0,
		},
		{
			name:      "entities_reescaped_in_changed_nodes",
			opts:      pattern.Options{Patterns: []string{"Page 2"}},
			input:     `<p>Tom &amp; Jerry &lt;3 Page 2</p>`,
			want:      `<p>Tom &amp; Jerry &lt;3 </p>`,
			wantCount: 1,
		},
		{
			name:      "uppercase_markup_preserved",
			opts:      pattern.Options{Patterns: []string{"x"}},
			input:     `<P CLASS="A">axb</P>`,
			want:      `<P CLASS="A">ab</P>`,
			wantCount: 1,
		},
		{
			name:      "self_closing_script_does_not_swallow_body",
			opts:      pattern.Options{Patterns: []string{"Page 1"}},
			input:     `<head><script src="a.js"/></head><body><p>Page 1</p></body>`,
			want:      `<head><script src="a.js"/></head><body><p></p></body>`,
			wantCount: 1,
		},
		{
			name:      "page_number_builtins",
			opts:      pattern.Options{PageNumbers: true},
			input:     "<p>Intro Page 4</p>\n<div class=\"pg\">\n  17\n</div><p>see [ 9 ]</p>",
			want:      "<p>Intro </p>\n<div class=\"pg\"></div><p>see </p>",
			wantCount: 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, hits, err := New().Rewrite("chapter.xhtml", []byte(tt.input), compile(t, tt.opts))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))

			total := 0
			for _, h := range hits {
				total += h.Count
			}
			assert.Equal(t, tt.wantCount, total)
		})
	}
}

func TestHTMLRewriter_PreservesXHTMLProlog(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head><title>Ch 1</title><link rel="stylesheet" href="../css/a.css"/></head>
<body><section epub:type="chapter"><p>Hello Page 12 World</p><br/></section></body>
</html>`

	got, hits, err := New().Rewrite("ch1.xhtml", []byte(doc), compile(t, pattern.Options{Patterns: []string{`Page \d+`}, Regex: true}))
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, core.Hit{Source: `Page \d+`, Count: 1}, hits[0])
	assert.Equal(t, strings.Replace(doc, "Hello Page 12 World", "Hello  World", 1), string(got))
}

func TestHTMLRewriter_NoHitsReturnsInput(t *testing.T) {
	doc := []byte("<p>Nothing\r\nto remove &copy;</p>")
	got, hits, err := New().Rewrite("a.html", doc, compile(t, pattern.Options{Patterns: []string{"absent"}}))
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Equal(t, doc, got)
}

func TestHTMLRewriter_OnlyChangedNodesAreDecoded(t *testing.T) {
	doc := []byte("<p>a&nbsp;Page 3\r\nb</p><p>x\r\ny &copy;</p>")
	got, hits, err := New().Rewrite("a.html", doc, compile(t, pattern.Options{Patterns: []string{"Page 3"}}))
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "<p>a\u00a0\nb</p><p>x\r\ny &copy;</p>", string(got))
}

func TestHTMLRewriter_HitsInMatcherOrder(t *testing.T) {
	matchers := compile(t, pattern.Options{Patterns: []string{"b", "a", "zzz"}})
	_, hits, err := New().Rewrite("a.html", []byte("<p>aab</p><p>b</p>"), matchers)
	require.NoError(t, err)
	assert.Equal(t, []core.Hit{{Source: "b", Count: 2}, {Source: "a", Count: 2}}, hits)
}

func TestHTMLRewriter_Idempotent(t *testing.T) {
	matchers := compile(t, pattern.Options{Patterns: []string{"Watermark"}, PageNumbers: true})
	doc := []byte(`<html><body><p>Watermark Page 3</p><p>12</p><p>keep [x]</p></body></html>`)

	once, hits, err := New().Rewrite("a.xhtml", doc, matchers)
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	twice, hits, err := New().Rewrite("a.xhtml", once, matchers)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Equal(t, once, twice)
}

func TestHTMLRewriter_OutputStillParses(t *testing.T) {
	matchers := compile(t, pattern.Options{Patterns: []string{"<", "&"}})
	got, _, err := New().Rewrite("a.html", []byte(`<p>a &lt; b &amp; c</p><p>x</p>`), matchers)
	require.NoError(t, err)
	assert.Equal(t, `<p>a  b  c</p><p>x</p>`, string(got))

	_, err = html.Parse(bytes.NewReader(got))
	assert.NoError(t, err)
}

func TestHTMLRewriter_DeclaredLegacyEncoding(t *testing.T) {
	doc := []byte("<?xml version=\"1.0\" encoding=\"iso-8859-1\"?><p>Caf\xe9 Watermark</p>")
	got, hits, err := New().Rewrite("a.xhtml", doc, compile(t, pattern.Options{Patterns: []string{"Watermark"}}))
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "<?xml version=\"1.0\" encoding=\"iso-8859-1\"?><p>Caf\xe9 </p>", string(got))
}

func TestHTMLRewriter_MetaCharset(t *testing.T) {
	doc := []byte("<html><head><meta charset=\"windows-1252\"></head><body><p>na\xefve Page 2</p></body></html>")
	got, _, err := New().Rewrite("a.html", doc, compile(t, pattern.Options{Patterns: []string{"Page 2"}}))
	require.NoError(t, err)
	assert.Contains(t, string(got), "<p>na\xefve </p>")
}

func TestHTMLRewriter_UTF16WithBOM(t *testing.T) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	doc, err := enc.NewEncoder().Bytes([]byte(`<p>Héllo Watermark</p>`))
	require.NoError(t, err)

	got, hits, err := New().Rewrite("a.xhtml", doc, compile(t, pattern.Options{Patterns: []string{"Watermark"}}))
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, []byte{0xFF, 0xFE}, got[:2])

	decoded, err := enc.NewDecoder().Bytes(got)
	require.NoError(t, err)
	assert.Equal(t, `<p>Héllo </p>`, string(decoded))
}

func TestHTMLRewriter_Unparsable(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{name: "unknown_declared_encoding", input: []byte(`<?xml version="1.0" encoding="x-klingon"?><p>a</p>`)},
		{name: "binary_content", input: []byte("\x1f\x8b\x08\x00\x00\x00\x00\x00")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := New().Rewrite("OEBPS/bad.xhtml", tt.input, compile(t, pattern.Options{Patterns: []string{"a"}}))
			require.Error(t, err)

			var uerr *core.UnparsableDocumentError
			require.True(t, errors.As(err, &uerr))
			assert.Equal(t, "OEBPS/bad.xhtml", uerr.Member)
		})
	}
}

func TestHTMLRewriter_MalformedMarkupIsTolerated(t *testing.T) {
	doc := []byte(`<p>unclosed <b>bold Page 1 <i>x</p></div><<>>`)
	got, hits, err := New().Rewrite("a.html", doc, compile(t, pattern.Options{Patterns: []string{"Page 1"}}))
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, `<p>unclosed <b>bold  <i>x</p></div><<>>`, string(got))
}

func TestDeclaredEncoding(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantUTF8 bool
		wantErr  bool
	}{
		{name: "no_declaration", input: "<p>a</p>", wantUTF8: true},
		{name: "xml_utf8", input: `<?xml version="1.0" encoding="utf-8"?>`, wantUTF8: true},
		{name: "xml_single_quotes", input: `<?xml version='1.0' encoding='ISO-8859-1'?>`},
		{name: "meta_http_equiv", input: `<meta http-equiv="Content-Type" content="text/html; charset=windows-1251">`},
		{name: "utf16_without_bom", input: `<?xml version="1.0" encoding="UTF-16"?>`, wantUTF8: true},
		{name: "utf8_bom", input: "\xef\xbb\xbf<p>a</p>", wantUTF8: true},
		{name: "unknown", input: `<meta charset="nope-42">`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := declaredEncoding([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUTF8, enc == nil)
		})
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{name: "utf8", in: []byte("<p>café</p>"), want: "<p>café</p>"},
		{name: "utf8_bom_dropped", in: []byte("\xef\xbb\xbf<p>x</p>"), want: "<p>x</p>"},
		{name: "latin1_declared", in: []byte("<?xml version=\"1.0\" encoding=\"iso-8859-1\"?><p>Caf\xe9</p>"), want: "<?xml version=\"1.0\" encoding=\"iso-8859-1\"?><p>Café</p>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Decode([]byte(`<?xml version="1.0" encoding="x-no-such-charset"?><p/>`))
	assert.Error(t, err)
}
