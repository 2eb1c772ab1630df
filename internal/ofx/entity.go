package ofx

import "strings"

// namedEntities are the only entity references the format defines.
var namedEntities = map[string]string{
	"amp":  "&",
	"lt":   "<",
	"gt":   ">",
	"quot": `"`,
	"nbsp": "\u00a0",
}

// escapeAmpersands rewrites every '&' that does not begin one of the named
// entities as "&amp;". Payee names such as "A&W" are written unescaped by
// some institutions.
func escapeAmpersands(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 16)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '&' {
			b.WriteByte(c)
			continue
		}
		if _, ok := entityAt(s[i+1:]); ok {
			b.WriteByte('&')
			continue
		}
		b.WriteString("&amp;")
	}
	return b.String()
}

// entityAt reports the name of the named entity reference at the start of
// s (the text following '&'), if any.
func entityAt(s string) (string, bool) {
	semi := strings.IndexByte(s, ';')
	if semi <= 0 || semi > len("nbsp") {
		return "", false
	}
	name := s[:semi]
	if _, ok := namedEntities[name]; !ok {
		return "", false
	}
	return name, true
}

// expandEntities replaces the named entity references in s. Anything else
// that looks like a reference is kept literally.
func expandEntities(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '&' {
			b.WriteByte(c)
			continue
		}
		name, ok := entityAt(s[i+1:])
		if !ok {
			b.WriteByte(c)
			continue
		}
		b.WriteString(namedEntities[name])
		i += len(name) + 1
	}
	return b.String()
}
