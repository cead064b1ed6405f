package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chapter = `<?xml version="1.0" encoding="utf-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head><title>Chapter One</title><style>p{}</style></head>
<body>
<section>
<h1>The   Beginning</h1>
<p>It was a dark night.<span epub:type="pagebreak" id="p12">12</span></p>
<img src="map.png" alt="map"/>
<script>var x = 1;</script>
<p>Then morning came.</p>
</section>
</body>
</html>`

func TestExtract(t *testing.T) {
	got, err := New().Extract(chapter)
	require.NoError(t, err)

	assert.Contains(t, got, "<h1>The   Beginning</h1>")
	assert.Contains(t, got, "<p>It was a dark night.</p>")
	assert.Contains(t, got, "Then morning came.")
	assert.NotContains(t, got, "<section>")
	assert.NotContains(t, got, "12")
	assert.NotContains(t, got, "img")
	assert.NotContains(t, got, "var x")
	assert.NotContains(t, got, "p{}")
}

func TestExtract_BodyWithSeveralBlocks(t *testing.T) {
	got, err := New().Extract(`<html><body><p>a</p><p>b</p></body></html>`)
	require.NoError(t, err)
	assert.Equal(t, "<p>a</p><p>b</p>", got)
}

func TestTitle(t *testing.T) {
	tests := []struct {
		name, html, want string
	}{
		{"heading", chapter, "The Beginning"},
		{"title_fallback", `<html><head><title>Only Title</title></head><body><p>x</p></body></html>`, "Only Title"},
		{"second_level", `<html><body><h2>Part Two</h2></body></html>`, "Part Two"},
		{"none", `<html><body><p>x</p></body></html>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New().Title(tt.html))
		})
	}
}
