// Package sgmlmin implements a single-pass XML/HTML minifier over three
// syntactic states — content, tag, and doctype — plus the inline
// script/style body coordinator that decodes, delegates to a child
// minifier, and re-encodes tag content. It never builds an element tree;
// tag names and attribute values are tracked only as far as is needed to
// decide case rules, self-closing, and which child minifier (if any)
// handles a <script>/<style> body.
package sgmlmin

import (
	"context"

	"github.com/minifyco/minify/internal/common"
	"github.com/minifyco/minify/internal/diag"
	"github.com/minifyco/minify/internal/pipeline"
	"github.com/minifyco/minify/internal/plugin"
)

type state int

const (
	stContent state = iota
	stTag
	stDoctype
)

func errAt(offset int, template string) *diag.Report {
	return &diag.Report{Template: template, Offset: offset}
}

// MinifyXML minifies XML source. reg supplies the child minifiers for
// inline <script>/<style> bodies; a nil registry degrades gracefully to
// copying every inline body verbatim.
func MinifyXML(src []byte, reg *plugin.Registry) ([]byte, *diag.Report) {
	return minify(src, true, reg)
}

// MinifyHTML minifies HTML source. See MinifyXML for reg's role.
func MinifyHTML(src []byte, reg *plugin.Registry) ([]byte, *diag.Report) {
	return minify(src, false, reg)
}

func minify(src []byte, isXML bool, reg *plugin.Registry) ([]byte, *diag.Report) {
	m := &minifier{src: src, out: make([]byte, 0, len(src)), isXML: isXML, reg: reg, state: stContent}
	return m.run()
}

type minifier struct {
	src []byte
	out []byte

	isXML bool
	reg   *plugin.Registry

	state               state
	currentTag          []byte
	currentTagIsClosing bool
	scriptType          string // "javascript", "json", "other", or "" before any <script>
	lastAttrName        string
	expectingValue      bool
}

func (m *minifier) last() byte {
	if len(m.out) == 0 {
		return 0
	}
	return m.out[len(m.out)-1]
}

func (m *minifier) run() ([]byte, *diag.Report) {
	i := 0
	for i < len(m.src) && common.IsSpace(m.src[i]) {
		i++
	}
	if i < len(m.src) && m.src[i] != '<' {
		return nil, errAt(i, "Expected < in line %d, column %d")
	}

	for {
		if i >= len(m.src) {
			if m.state == stTag {
				return nil, errAt(i, "Unexpected end of document, expected > in line %d, column %d")
			}
			return m.out, nil
		}

		if m.state != stTag && hasPrefixAt(m.src, i, "<!--") {
			var rep *diag.Report
			i, rep = m.skipComment(i)
			if rep != nil {
				return nil, rep
			}
			continue
		}

		if m.isXML && m.state == stContent && hasPrefixAt(m.src, i, "<![CDATA[") {
			var rep *diag.Report
			i, rep = m.copyCDATA(i)
			if rep != nil {
				return nil, rep
			}
			continue
		}

		if m.src[i] == '<' {
			var rep *diag.Report
			i, rep = m.handleOpenAngle(i)
			if rep != nil {
				return nil, rep
			}
			continue
		}

		if m.src[i] == '>' {
			var rep *diag.Report
			i, rep = m.handleCloseAngle(i)
			if rep != nil {
				return nil, rep
			}
			continue
		}

		if !m.isXML && m.state == stTag && m.src[i] == '/' && i+1 < len(m.src) && m.src[i+1] == '>' {
			i++
			continue
		}

		if m.src[i] == '"' || m.src[i] == '\'' {
			var rep *diag.Report
			i, rep = m.handleQuoted(i)
			if rep != nil {
				return nil, rep
			}
			continue
		}

		if m.state == stTag && m.src[i] == '=' {
			m.out = append(m.out, '=')
			m.expectingValue = true
			i++
			continue
		}

		if m.state == stTag && common.IsSpace(m.src[i]) {
			i = m.handleTagWhitespace(i)
			continue
		}

		if m.state == stTag && notIn(m.src[i], "\"'<>=/") {
			start := i
			for i < len(m.src) && !common.IsSpace(m.src[i]) && notIn(m.src[i], "\"'<>=/") {
				i++
			}
			word := m.src[start:i]
			if m.expectingValue {
				if common.EqualFold(m.lastAttrName, "type") && !m.currentTagIsClosing && m.tagNameEq(m.currentTag, "script") {
					m.scriptType = m.classifyScriptType(word)
				}
				m.expectingValue = false
			} else {
				m.lastAttrName = string(word)
			}
			m.out = append(m.out, word...)
			continue
		}

		if !m.isXML && m.state == stContent && common.IsSpace(m.src[i]) {
			var rep *diag.Report
			i, rep = m.handleContentWhitespace(i)
			if rep != nil {
				return nil, rep
			}
			continue
		}

		m.out = append(m.out, m.src[i])
		i++
	}
}

func (m *minifier) skipComment(i int) (int, *diag.Report) {
	start := i
	i += 4
	for i < len(m.src) && !hasPrefixAt(m.src, i, "-->") {
		i++
	}
	if i >= len(m.src) {
		return 0, errAt(start, "Unexpected end of document inside a comment in line %d, column %d")
	}
	i += 3
	return m.trimDocEnd(i), nil
}

func (m *minifier) copyCDATA(i int) (int, *diag.Report) {
	start := i
	end := i + 9
	for end < len(m.src) && !hasPrefixAt(m.src, end, "]]>") {
		end++
	}
	if end >= len(m.src) {
		return 0, errAt(start, "Unexpected end of document, expected ]]> in line %d, column %d")
	}
	end += 3
	m.out = append(m.out, m.src[start:end]...)
	return end, nil
}

func (m *minifier) handleOpenAngle(i int) (int, *diag.Report) {
	if m.state == stTag {
		return 0, errAt(i, "Invalid < character in line %d, column %d")
	}
	if i+1 < len(m.src) && common.IsSpace(m.src[i+1]) {
		return 0, errAt(i, "Invalid whitespace after < in line %d, column %d")
	}

	m.out = append(m.out, '<')
	i++

	if i+8 <= len(m.src) && common.EqualFold(string(m.src[i:i+8]), "!DOCTYPE") {
		m.state = stDoctype
		return i, nil
	}

	m.currentTagIsClosing = i < len(m.src) && m.src[i] == '/'
	if m.currentTagIsClosing {
		m.out = append(m.out, '/')
		i++
	}
	if i >= len(m.src) || !isTagNameStart(m.src[i]) {
		return 0, errAt(i, "Expected tag name in line %d, column %d")
	}
	nameStart := i
	i++
	for i < len(m.src) && isTagNameChar(m.src[i]) {
		i++
	}
	m.currentTag = m.src[nameStart:i]
	m.out = append(m.out, m.currentTag...)
	m.state = stTag
	m.expectingValue = false
	m.lastAttrName = ""
	if !m.currentTagIsClosing && m.tagNameEq(m.currentTag, "script") {
		m.scriptType = "javascript"
	} else if !m.currentTagIsClosing {
		m.scriptType = ""
	}
	return i, nil
}

func (m *minifier) handleCloseAngle(i int) (int, *diag.Report) {
	if m.state == stContent {
		return 0, errAt(i, "Unexpected > in line %d, column %d")
	}
	if m.state == stDoctype {
		m.out = append(m.out, '>')
		m.state = stContent
		return m.trimDocEnd(i + 1), nil
	}

	selfClosing := i > 0 && m.src[i-1] == '/'

	if m.isXML && !selfClosing && i+2 < len(m.src) && m.src[i+1] == '<' && m.src[i+2] == '/' && m.tagNameMatchesAt(i+3) {
		m.out = append(m.out, '/', '>')
		end := i + 3 + len(m.currentTag)
		for end < len(m.src) && m.src[end] != '>' {
			end++
		}
		m.state = stContent
		return m.trimDocEnd(end + 1), nil
	}

	m.out = append(m.out, '>')
	m.state = stContent

	isInlineHost := !selfClosing && !m.currentTagIsClosing &&
		(m.tagNameEq(m.currentTag, "script") || m.tagNameEq(m.currentTag, "style"))
	if isInlineHost {
		return m.consumeInlineBody(i + 1)
	}

	if m.isXML {
		k := i + 1
		for k < len(m.src) && common.IsSpace(m.src[k]) {
			k++
		}
		if k < len(m.src) && m.src[k] == '<' && (m.currentTagIsClosing || k+1 >= len(m.src) || m.src[k+1] != '/') {
			return m.trimDocEnd(k), nil
		}
		return m.trimDocEnd(i + 1), nil
	}
	return m.trimDocEnd(i + 1), nil
}

// trimDocEnd reports i unchanged unless everything from i to end of input
// is whitespace, in which case it reports the end-of-input position
// directly so trailing whitespace never reaches the output.
func (m *minifier) trimDocEnd(i int) int {
	k := i
	for k < len(m.src) && common.IsSpace(m.src[k]) {
		k++
	}
	if k >= len(m.src) {
		return k
	}
	return i
}

func (m *minifier) handleQuoted(i int) (int, *diag.Report) {
	quote := m.src[i]
	if m.state != stDoctype && m.last() != '=' {
		return 0, errAt(i, "Expected = before quote in line %d, column %d")
	}
	start := i
	i++
	valStart := i
	for i < len(m.src) && m.src[i] != quote {
		i++
	}
	if i >= len(m.src) {
		return 0, errAt(start, "Unexpected end of document, expected "+string(quote)+" in line %d, column %d")
	}
	value := m.src[valStart:i]

	if common.EqualFold(m.lastAttrName, "type") && !m.currentTagIsClosing && m.tagNameEq(m.currentTag, "script") {
		m.scriptType = m.classifyScriptType(value)
	}
	m.expectingValue = false

	needQuotes := m.isXML || m.state == stDoctype || len(value) == 0
	if !needQuotes {
		for _, c := range value {
			if common.IsSpace(c) || c == '=' || c == '"' || c == '\'' || c == '/' {
				needQuotes = true
				break
			}
		}
	}
	if needQuotes {
		m.out = append(m.out, quote)
	}
	m.out = append(m.out, value...)
	if needQuotes {
		m.out = append(m.out, quote)
	}
	return i + 1, nil
}

func (m *minifier) handleTagWhitespace(i int) int {
	for i < len(m.src) && common.IsSpace(m.src[i]) {
		i++
	}
	var next byte
	if i < len(m.src) {
		next = m.src[i]
	}
	lastOut := m.last()
	if next != '=' && lastOut != '=' && next != '>' && next != '/' {
		m.out = append(m.out, ' ')
	}
	return i
}

func (m *minifier) handleContentWhitespace(i int) (int, *diag.Report) {
	if m.tagNameEq(m.currentTag, "pre") {
		m.out = append(m.out, m.src[i])
		return i + 1, nil
	}
	for {
		for i < len(m.src) && common.IsSpace(m.src[i]) {
			i++
		}
		if i >= len(m.src) || !hasPrefixAt(m.src, i, "<!--") {
			break
		}
		var rep *diag.Report
		i, rep = m.skipComment(i)
		if rep != nil {
			return 0, rep
		}
	}
	afterTag := len(m.out) > 0 && m.out[len(m.out)-1] == '>'
	beforeTag := i < len(m.src) && m.src[i] == '<'
	if !afterTag && !beforeTag && i < len(m.src) {
		m.out = append(m.out, ' ')
	}
	return i, nil
}

// consumeInlineBody reads the raw content of a <script>/<style> tag up to
// its closing delimiter, runs it through the inline coordinator when a
// child minifier applies, and leaves i positioned at the start of the
// closing tag so the main loop tokenizes it normally.
func (m *minifier) consumeInlineBody(i int) (int, *diag.Report) {
	tagName := "script"
	if m.tagNameEq(m.currentTag, "style") {
		tagName = "style"
	}
	delim := "</" + tagName

	bodyStart := i
	j := i
	for {
		if j >= len(m.src) {
			return 0, errAt(bodyStart, "Unexpected end of document, expected "+delim+" in line %d, column %d")
		}
		if m.isXML && hasPrefixAt(m.src, j, "<![CDATA[") {
			end := j + 9
			for end < len(m.src) && !hasPrefixAt(m.src, end, "]]>") {
				end++
			}
			if end >= len(m.src) {
				return 0, errAt(j, "Unexpected end of document, expected ]]> in line %d, column %d")
			}
			j = end + 3
			continue
		}
		if m.delimMatch(j, delim) {
			break
		}
		j++
	}
	body := m.src[bodyStart:j]

	format := ""
	switch tagName {
	case "style":
		format = "css"
	case "script":
		switch m.scriptType {
		case "json":
			format = "json"
		case "javascript", "":
			format = "javascript"
		default:
			format = ""
		}
	}

	if format == "" || m.reg == nil {
		m.out = append(m.out, body...)
		return j, nil
	}
	fn, ok := m.reg.Lookup(format)
	if !ok {
		m.out = append(m.out, body...)
		return j, nil
	}

	var coord *pipeline.Coordinator
	if m.isXML {
		coord = pipeline.New(format, xmlDecode, pipeline.Delegate(fn), encodeXMLBody)
	} else {
		coord = pipeline.New(format, identityDecode, pipeline.Delegate(fn), identityEncode)
	}
	out, rep := coord.Run(context.Background(), body, bodyStart)
	if rep != nil {
		return 0, rep
	}
	m.out = append(m.out, out...)
	return j, nil
}

func (m *minifier) classifyScriptType(raw []byte) string {
	decoded, _, rep := decodeEntities(raw, false)
	if rep != nil {
		decoded = raw
	}
	switch string(decoded) {
	case "application/json+ld", "importmap":
		return "json"
	case "module", "text/javascript":
		return "javascript"
	default:
		return "other"
	}
}

func (m *minifier) tagNameEq(tag []byte, name string) bool {
	if m.isXML {
		return string(tag) == name
	}
	return common.EqualFold(string(tag), name)
}

func (m *minifier) tagNameMatchesAt(pos int) bool {
	n := len(m.currentTag)
	if pos+n > len(m.src) {
		return false
	}
	if !m.tagNameEq(m.src[pos:pos+n], string(m.currentTag)) {
		return false
	}
	end := pos + n
	return end >= len(m.src) || common.IsSpace(m.src[end]) || m.src[end] == '>'
}

func (m *minifier) delimMatch(j int, delim string) bool {
	if j+len(delim) > len(m.src) {
		return false
	}
	if m.isXML {
		return string(m.src[j:j+len(delim)]) == delim
	}
	return common.EqualFold(string(m.src[j:j+len(delim)]), delim)
}

func xmlDecode(body []byte) ([]byte, []int, *diag.Report) {
	return decodeEntities(body, true)
}

func identityDecode(body []byte) ([]byte, []int, *diag.Report) {
	offsetMap := make([]int, len(body))
	for i := range offsetMap {
		offsetMap[i] = i
	}
	return append([]byte(nil), body...), offsetMap, nil
}

func identityEncode(b []byte) []byte {
	return b
}

func hasPrefixAt(src []byte, i int, prefix string) bool {
	if i+len(prefix) > len(src) {
		return false
	}
	return string(src[i:i+len(prefix)]) == prefix
}

func notIn(c byte, set string) bool {
	for j := 0; j < len(set); j++ {
		if set[j] == c {
			return false
		}
	}
	return true
}

func isTagNameStart(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c == ':' || c == '_' || c == '?'
}

func isTagNameChar(c byte) bool {
	return isTagNameStart(c) || c >= '0' && c <= '9' || c == '-'
}
