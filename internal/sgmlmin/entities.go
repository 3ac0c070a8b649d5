package sgmlmin

import (
	"bytes"

	"github.com/minifyco/minify/internal/common"
	"github.com/minifyco/minify/internal/diag"
)

var xmlNamedEntities = map[string]rune{
	"lt":   '<',
	"gt":   '>',
	"amp":  '&',
	"apos": '\'',
	"quot": '"',
}

var htmlExtraNamedEntities = map[string]rune{
	"plus": '+',
	"sol":  '/',
}

const maxEntityLen = 16

// decodeEntities unescapes the five XML named entities, HTML's two extra
// named entities (plus, sol), and numeric character references (&#d+; and
// &#x...;, plus &#X...; for HTML) found in body, per spec.md §4.6.
// decoded and the returned offsetMap share the same length; offsetMap[j]
// is the byte offset in body that produced decoded[j].
func decodeEntities(body []byte, isXML bool) (decoded []byte, offsetMap []int, rep *diag.Report) {
	decoded = make([]byte, 0, len(body))
	offsetMap = make([]int, 0, len(body))
	i := 0
	for i < len(body) {
		if body[i] != '&' {
			decoded = append(decoded, body[i])
			offsetMap = append(offsetMap, i)
			i++
			continue
		}
		cp, consumed, ok := decodeOneEntity(body, i, isXML)
		if !ok {
			return nil, nil, errAt(i, "Invalid entity in line %d, column %d")
		}
		if cp > 0x7FFFFFFF {
			return nil, nil, errAt(i, "Character reference out of range in line %d, column %d")
		}
		before := len(decoded)
		decoded = common.AppendUTF8(decoded, cp)
		for k := before; k < len(decoded); k++ {
			offsetMap = append(offsetMap, i)
		}
		i += consumed
	}
	return decoded, offsetMap, nil
}

// decodeOneEntity parses the entity starting at body[i], which must be
// '&'. It returns the decoded codepoint, the number of body bytes it
// consumed (including the leading '&' and trailing ';'), and whether the
// entity was well-formed.
func decodeOneEntity(body []byte, i int, isXML bool) (cp uint32, consumed int, ok bool) {
	if i >= len(body) || body[i] != '&' {
		return 0, 0, false
	}
	end := i + 1
	for end < len(body) && body[end] != ';' && end-i <= maxEntityLen {
		end++
	}
	if end >= len(body) || body[end] != ';' {
		return 0, 0, false
	}
	name := string(body[i+1 : end])
	consumed = end - i + 1

	if len(name) >= 2 && name[0] == '#' {
		rest := name[1:]
		if rest[0] == 'x' || rest[0] == 'X' {
			if rest[0] == 'X' && isXML {
				return 0, 0, false
			}
			hex := rest[1:]
			if hex == "" {
				return 0, 0, false
			}
			v, ok := parseHex(hex)
			return v, consumed, ok
		}
		v, ok := parseDecimal(rest)
		return v, consumed, ok
	}

	if r, found := xmlNamedEntities[name]; found {
		return uint32(r), consumed, true
	}
	if !isXML {
		if r, found := htmlExtraNamedEntities[name]; found {
			return uint32(r), consumed, true
		}
	}
	return 0, 0, false
}

func parseHex(s string) (uint32, bool) {
	if s == "" {
		return 0, false
	}
	var v uint64
	for i := 0; i < len(s); i++ {
		c := s[i]
		var d uint64
		switch {
		case c >= '0' && c <= '9':
			d = uint64(c - '0')
		case c >= 'a' && c <= 'f':
			d = uint64(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = uint64(c-'A') + 10
		default:
			return 0, false
		}
		v = v*16 + d
		if v > 0xFFFFFFFF {
			return 0, false
		}
	}
	return uint32(v), true
}

func parseDecimal(s string) (uint32, bool) {
	if s == "" {
		return 0, false
	}
	var v uint64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*10 + uint64(c-'0')
		if v > 0xFFFFFFFF {
			return 0, false
		}
	}
	return uint32(v), true
}

// encodeXMLBody re-escapes a minified inline body for splicing back into
// an XML document, choosing whichever of entity-escaping or CDATA-wrapping
// produces fewer bytes, per spec.md §4.6.
func encodeXMLBody(minified []byte) []byte {
	escaped := escapeAll(minified)
	wrapped := wrapCDATA(minified)
	if len(wrapped) < len(escaped) {
		return wrapped
	}
	return escaped
}

func escapeAll(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		switch c {
		case '<':
			out = append(out, "&lt;"...)
		case '>':
			out = append(out, "&gt;"...)
		case '&':
			out = append(out, "&amp;"...)
		default:
			out = append(out, c)
		}
	}
	return out
}

// wrapCDATA wraps b in <![CDATA[ ... ]]>, splitting any internal "]]>"
// occurrence as "]]]]><![CDATA[>" so the wrapper itself never closes
// prematurely.
func wrapCDATA(b []byte) []byte {
	out := make([]byte, 0, len(b)+16)
	out = append(out, "<![CDATA["...)
	rest := b
	for {
		idx := bytes.Index(rest, []byte("]]>"))
		if idx < 0 {
			out = append(out, rest...)
			break
		}
		out = append(out, rest[:idx+2]...)
		out = append(out, "]]><![CDATA["...)
		rest = rest[idx+2:]
	}
	out = append(out, "]]>"...)
	return out
}
