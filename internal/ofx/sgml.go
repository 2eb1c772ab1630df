package ofx

import "strings"

type tokenKind int

const (
	startTag tokenKind = iota + 1
	endTag
	textToken
)

type token struct {
	kind tokenKind
	name string // upper-cased tag name for startTag/endTag
	text string // raw text for textToken

	selfClosing bool
}

// lexer splits an SGML or XML body into tags and text. It never fails:
// anything that cannot be read as a tag is returned as text.
type lexer struct {
	src string
	pos int
}

func newLexer(src string) *lexer {
	return &lexer{src: src}
}

func (l *lexer) next() (token, bool) {
	for l.pos < len(l.src) {
		if l.src[l.pos] != '<' {
			end := strings.IndexByte(l.src[l.pos:], '<')
			if end < 0 {
				end = len(l.src) - l.pos
			}
			text := l.src[l.pos : l.pos+end]
			l.pos += end
			return token{kind: textToken, text: text}, true
		}

		rest := l.src[l.pos:]
		switch {
		case strings.HasPrefix(rest, "<!--"):
			end := strings.Index(rest, "-->")
			if end < 0 {
				l.pos = len(l.src)
			} else {
				l.pos += end + len("-->")
			}
			continue
		case strings.HasPrefix(rest, "<!"), strings.HasPrefix(rest, "<?"):
			end := strings.IndexByte(rest, '>')
			if end < 0 {
				l.pos = len(l.src)
			} else {
				l.pos += end + 1
			}
			continue
		}

		t, n, ok := readTag(rest)
		if !ok {
			// A lone '<' is text.
			l.pos++
			return token{kind: textToken, text: "<"}, true
		}
		l.pos += n
		return t, true
	}
	return token{}, false
}

// readTag reads a start or end tag at the beginning of s and returns the
// token and the number of bytes consumed.
func readTag(s string) (token, int, bool) {
	end := strings.IndexByte(s, '>')
	if end < 0 {
		return token{}, 0, false
	}
	inner := s[1:end]
	if strings.IndexByte(inner, '<') >= 0 {
		return token{}, 0, false
	}

	kind := startTag
	if strings.HasPrefix(inner, "/") {
		kind = endTag
		inner = inner[1:]
	}

	selfClosing := false
	if kind == startTag && strings.HasSuffix(inner, "/") {
		selfClosing = true
		inner = inner[:len(inner)-1]
	}

	fields := strings.Fields(inner)
	if len(fields) == 0 {
		return token{}, 0, false
	}
	name := strings.ToUpper(fields[0])

	return token{kind: kind, name: name, selfClosing: selfClosing}, end + 1, true
}

// leafTags always hold a single value and never contain other elements.
// An empty element from this set is still closed by the next start tag.
var leafTags = map[string]bool{
	"TRNTYPE":       true,
	"DTPOSTED":      true,
	"DTUSER":        true,
	"DTAVAIL":       true,
	"DTSTART":       true,
	"DTEND":         true,
	"DTSERVER":      true,
	"DTASOF":        true,
	"TRNAMT":        true,
	"FITID":         true,
	"CORRECTFITID":  true,
	"CORRECTACTION": true,
	"SRVRTID":       true,
	"NAME":          true,
	"EXTDNAME":      true,
	"MEMO":          true,
	"CHECKNUM":      true,
	"REFNUM":        true,
	"SIC":           true,
	"PAYEEID":       true,
	"INV401KSOURCE": true,
	"CURDEF":        true,
	"CURSYM":        true,
	"CURRATE":       true,
	"BANKID":        true,
	"BRANCHID":      true,
	"ACCTID":        true,
	"ACCTTYPE":      true,
	"ACCTKEY":       true,
	"ADDR1":         true,
	"ADDR2":         true,
	"ADDR3":         true,
	"CITY":          true,
	"STATE":         true,
	"POSTALCODE":    true,
	"COUNTRY":       true,
	"PHONE":         true,
	"BALAMT":        true,
	"TRNUID":        true,
	"CODE":          true,
	"SEVERITY":      true,
	"MESSAGE":       true,
	"LANGUAGE":      true,
	"ORG":           true,
	"FID":           true,
}

type openElement struct {
	name        string
	hasText     bool
	hasChildren bool
}

func (e openElement) isLeaf() bool {
	if e.hasChildren {
		return false
	}
	return e.hasText || leafTags[e.name]
}

// normalizer turns the lexer output into a balanced event stream. Leaf
// elements without an end tag are closed at the next start tag or when an
// enclosing element closes; stray end tags are dropped.
type normalizer struct {
	lex   *lexer
	stack []openElement
	queue []token
	done  bool
}

func newNormalizer(src string) *normalizer {
	return &normalizer{lex: newLexer(src)}
}

func (n *normalizer) next() (token, bool) {
	for len(n.queue) == 0 {
		if n.done {
			return token{}, false
		}
		n.fill()
	}
	t := n.queue[0]
	n.queue = n.queue[1:]
	return t, true
}

func (n *normalizer) fill() {
	t, ok := n.lex.next()
	if !ok {
		for len(n.stack) > 0 {
			n.pop()
		}
		n.done = true
		return
	}

	switch t.kind {
	case textToken:
		if strings.TrimSpace(t.text) == "" {
			return
		}
		if len(n.stack) > 0 {
			n.stack[len(n.stack)-1].hasText = true
		}
		n.queue = append(n.queue, t)

	case startTag:
		if top := len(n.stack) - 1; top >= 0 && n.stack[top].isLeaf() {
			n.pop()
		}
		if top := len(n.stack) - 1; top >= 0 {
			n.stack[top].hasChildren = true
		}
		n.stack = append(n.stack, openElement{name: t.name})
		n.queue = append(n.queue, t)
		if t.selfClosing {
			n.pop()
		}

	case endTag:
		i := len(n.stack) - 1
		for i >= 0 && n.stack[i].name != t.name {
			i--
		}
		if i < 0 {
			return
		}
		for len(n.stack) > i {
			n.pop()
		}
	}
}

func (n *normalizer) pop() {
	top := n.stack[len(n.stack)-1]
	n.stack = n.stack[:len(n.stack)-1]
	n.queue = append(n.queue, token{kind: endTag, name: top.name})
}
