package ofx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeAmpersands(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"A&W 1473", "A&amp;W 1473"},
		{"A&amp;W", "A&amp;W"},
		{"x &lt; y &gt; z", "x &lt; y &gt; z"},
		{"&quot;q&quot;&nbsp;", "&quot;q&quot;&nbsp;"},
		{"AT&T", "AT&amp;T"},
		{"&copy; 2024", "&amp;copy; 2024"},
		{"&#38;", "&amp;#38;"},
		{"trailing &", "trailing &amp;"},
		{"&AMP;", "&amp;AMP;"},
		{"no entities", "no entities"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, escapeAmpersands(tt.in), "escapeAmpersands(%q)", tt.in)
	}
}

func TestExpandEntities(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"A&amp;W 1473", "A&W 1473"},
		{"&lt;b&gt;", "<b>"},
		{"say &quot;hi&quot;", `say "hi"`},
		{"a&nbsp;b", "a\u00a0b"},
		{"&amp;amp;", "&amp;"},
		{"&copy; kept", "&copy; kept"},
		{"&unterminated", "&unterminated"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, expandEntities(tt.in), "expandEntities(%q)", tt.in)
	}
}

func TestEscapeThenExpand(t *testing.T) {
	assert.Equal(t, "A&W 1473", expandEntities(escapeAmpersands("A&W 1473")))
	assert.Equal(t, "&copy;", expandEntities(escapeAmpersands("&copy;")))
	assert.Equal(t, "M&M&M", expandEntities(escapeAmpersands("M&M&M")))
	assert.Equal(t, "AT&T & co", expandEntities(escapeAmpersands("AT&T &amp; co")))
}
