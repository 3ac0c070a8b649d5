// Package cssmin implements a single-pass, streaming CSS minifier: it
// strips comments (except /*! ... */), collapses contextually
// insignificant whitespace, and elides a few redundant tokens (a leading
// zero before a decimal point) while never touching anything that could
// change the parsed declaration tree.
package cssmin

import (
	"github.com/minifyco/minify/internal/common"
	"github.com/minifyco/minify/internal/diag"
)

type syntaxBlock int

const (
	ruleStart syntaxBlock = iota
	qrule
	qruleRound
	qruleSquare
	atrule
	atruleRound
	atruleSquare
	style
)

var nestableAtRules = [...]string{"@media", "@layer", "@container", "@keyframes"}

func isNestableAtRule(name string) bool {
	for _, n := range nestableAtRules {
		if len(n) == len(name) && common.EqualFold(n, name) {
			return true
		}
	}
	return false
}

func isAlnum(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func errAt(offset int, template string) *diag.Report {
	return &diag.Report{Template: template, Offset: offset}
}

// Minify strips whitespace, comments, and redundant punctuation from CSS
// source css. It returns the minified CSS, or a nil slice and an
// unresolved error report on malformed input.
func Minify(css []byte) ([]byte, *diag.Report) {
	m := &minifier{src: css, out: make([]byte, 0, len(css))}
	return m.run()
}

type minifier struct {
	src []byte
	out []byte
}

func (m *minifier) skipWS(i int) (int, *diag.Report) {
	res, err := common.SkipWhitespaceAndComments(&m.out, m.src, i, false, true)
	if err != nil {
		off, _ := common.CommentOffset(err)
		return 0, errAt(off, "Unclosed multi-line comment starting in line %d, column %d")
	}
	return res.End, nil
}

func (m *minifier) last() byte {
	if len(m.out) == 0 {
		return 0
	}
	return m.out[len(m.out)-1]
}

func (m *minifier) run() ([]byte, *diag.Report) {
	block := ruleStart
	nesting := 0
	var atruleName []byte
	var atruleEndIdx int // index into src just past the at-rule identifier

	i, rep := m.skipWS(0)
	if rep != nil {
		return nil, rep
	}

	for {
		if i >= len(m.src) {
			if block != ruleStart {
				switch block {
				case style:
					return nil, errAt(i, "Unexpected end of document, expected } in line %d, column %d")
				case qrule, qruleRound, qruleSquare:
					return nil, errAt(i, "Unexpected end of document, expected {…} in line %d, column %d")
				default:
					return nil, errAt(i, "Unexpected end of document, expected ; or {…} in line %d, column %d")
				}
			}
			return m.out, nil
		}

		if i > 0 && m.src[i-1] == '\\' {
			m.out = append(m.out, m.src[i])
			i++
			continue
		}

		if m.src[i] == '}' {
			for {
				if nesting == 0 {
					return nil, errAt(i, "Unexpected } in line %d, column %d")
				}
				m.out = append(m.out, '}')
				nesting--
				var rep *diag.Report
				i, rep = m.skipWS(i + 1)
				if rep != nil {
					return nil, rep
				}
				if i >= len(m.src) || m.src[i] != '}' {
					break
				}
			}
			block = ruleStart
			continue
		}

		if block == ruleStart {
			c := m.src[i]
			if c == '{' || c == '}' || c == '"' || c == '\'' {
				return nil, errAt(i, "Unexpected "+string(c)+" in line %d, column %d")
			}
			m.out = append(m.out, c)
			if c == '@' {
				block = atrule
				start := i
				i++
				for i < len(m.src) && isAlnum(m.src[i]) {
					m.out = append(m.out, m.src[i])
					i++
				}
				atruleName = m.src[start:i]
				atruleEndIdx = i
			} else {
				block = qrule
				i++
			}
			continue
		}

		// url(...) detection: "url" immediately precedes this '('.
		if m.src[i] == '(' && i >= 3 &&
			m.src[i-1] == 'l' && m.src[i-2] == 'r' && m.src[i-3] == 'u' {
			var rep *diag.Report
			i, rep = m.scanURL(i)
			if rep != nil {
				return nil, rep
			}
			continue
		}

		if m.src[i] == '"' || m.src[i] == '\'' {
			var rep *diag.Report
			i, rep = m.scanString(i, m.src[i])
			if rep != nil {
				return nil, rep
			}
			continue
		}

		if m.src[i] == ';' && block != qrule {
			var rep *diag.Report
			i, rep = m.skipWS(i + 1)
			if rep != nil {
				return nil, rep
			}
			for i < len(m.src) && m.src[i] == ';' {
				i, rep = m.skipWS(i + 1)
				if rep != nil {
					return nil, rep
				}
			}
			if i >= len(m.src) || m.src[i] != '}' {
				m.out = append(m.out, ';')
			}
			if block == atrule {
				block = ruleStart
			}
			continue
		}

		if m.src[i] == '{' {
			nesting++
			if block == style {
				return nil, errAt(i, "Unexpected { in line %d, column %d")
			}
			m.out = append(m.out, '{')
			var rep *diag.Report
			i, rep = m.skipWS(i + 1)
			if rep != nil {
				return nil, rep
			}
			switch block {
			case qrule:
				block = style
			case atrule:
				if isNestableAtRule(string(atruleName)) {
					block = ruleStart
				} else {
					block = style
				}
			}
			continue
		}

		if m.src[i] == '0' && i+1 < len(m.src) && m.src[i+1] == '.' &&
			(i == 0 || m.src[i-1] < '0' || m.src[i-1] > '9') {
			i++
			continue
		}

		if m.src[i] == '(' && block == atrule {
			block = atruleRound
			m.out = append(m.out, '(')
			i++
			continue
		}
		if m.src[i] == '[' && block == atrule {
			block = atruleSquare
			m.out = append(m.out, '[')
			i++
			continue
		}
		if m.src[i] == ')' && block == atruleRound {
			block = atrule
			m.out = append(m.out, ')')
			i++
			continue
		}
		if m.src[i] == ']' && block == atruleSquare {
			block = atrule
			m.out = append(m.out, ']')
			i++
			continue
		}
		if m.src[i] == '(' && block == qrule {
			block = qruleRound
			m.out = append(m.out, '(')
			i++
			continue
		}
		if m.src[i] == '[' && block == qrule {
			block = qruleSquare
			m.out = append(m.out, '[')
			i++
			continue
		}
		if m.src[i] == ')' && block == qruleRound {
			block = qrule
			m.out = append(m.out, ')')
			i++
			continue
		}
		if m.src[i] == ']' && block == qruleSquare {
			block = qrule
			m.out = append(m.out, ']')
			i++
			continue
		}

		if common.IsSpace(m.src[i]) || (m.src[i] == '/' && i+1 < len(m.src) && m.src[i+1] == '*') {
			before := i
			var rep *diag.Report
			i, rep = m.skipWS(i)
			if rep != nil {
				return nil, rep
			}
			var next byte
			if i < len(m.src) {
				next = m.src[i]
			}
			lastOut := m.last()
			switch block {
			case atruleRound, qruleRound:
				if notIn(lastOut, "(,<>:") && notIn(next, "),<>:") {
					m.out = append(m.out, ' ')
				}
			case atruleSquare, qruleSquare:
				if notIn(lastOut, "[=,") && notIn(next, "]=,*$^-~|") {
					m.out = append(m.out, ' ')
				}
			case atrule:
				parenNoSpace := next == '(' && before == atruleEndIdx
				if !parenNoSpace && notIn(lastOut, ",)(") && notIn(next, ",);{") {
					m.out = append(m.out, ' ')
				}
			case qrule:
				if notIn(lastOut, "~>+,]") && notIn(next, "~>+,[{") {
					m.out = append(m.out, ' ')
				}
			case style:
				if notIn(lastOut, "{:,") && notIn(next, "}:,;!") {
					m.out = append(m.out, ' ')
				}
			}
			continue
		}

		m.out = append(m.out, m.src[i])
		i++
	}
}

func notIn(c byte, set string) bool {
	for j := 0; j < len(set); j++ {
		if set[j] == c {
			return false
		}
	}
	return true
}

// scanString copies a quoted string literal verbatim starting at the
// opening quote m.src[i], honoring backslash-escaped quote characters.
func (m *minifier) scanString(i int, quote byte) (int, *diag.Report) {
	start := i
	m.out = append(m.out, m.src[i])
	i++
	activeBackslash := false
	for {
		if i >= len(m.src) {
			return 0, errAt(start, "Unexpected end of document, expected "+string(quote)+" in line %d, column %d")
		}
		c := m.src[i]
		if c == quote && !activeBackslash {
			m.out = append(m.out, c)
			return i + 1, nil
		}
		activeBackslash = c == '\\' && !activeBackslash
		m.out = append(m.out, c)
		i++
	}
}

// scanURL handles the contents of url(...), which may be a quoted string
// (handled like any other string, but whitespace-trimmed around it) or an
// unquoted token where embedded whitespace is illegal.
func (m *minifier) scanURL(i int) (int, *diag.Report) {
	i++
	for i < len(m.src) && common.IsSpace(m.src[i]) {
		i++
	}
	m.out = append(m.out, '(')
	if i < len(m.src) && (m.src[i] == '"' || m.src[i] == '\'') {
		quote := m.src[i]
		var rep *diag.Report
		i, rep = m.scanString(i, quote)
		if rep != nil {
			return 0, rep
		}
		for i < len(m.src) && common.IsSpace(m.src[i]) {
			i++
		}
		if i >= len(m.src) || m.src[i] != ')' {
			return 0, errAt(i, "Expected ) in line %d, column %d")
		}
		m.out = append(m.out, ')')
		return i + 1, nil
	}

	start := i
	activeBackslash := false
	for i < len(m.src) && !(m.src[i] == ')' && !activeBackslash) && !common.IsSpace(m.src[i]) {
		activeBackslash = m.src[i] == '\\' && !activeBackslash
		i++
	}
	m.out = append(m.out, m.src[start:i]...)
	wsStart := i
	for i < len(m.src) && common.IsSpace(m.src[i]) {
		i++
	}
	if i >= len(m.src) || m.src[i] != ')' {
		if i >= len(m.src) {
			return 0, errAt(i, "Unexpected end of document, expected ) in line %d, column %d")
		}
		return 0, errAt(wsStart, "Illegal white-space in URL in line %d, column %d")
	}
	m.out = append(m.out, ')')
	return i + 1, nil
}
