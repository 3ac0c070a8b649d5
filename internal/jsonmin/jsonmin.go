// Package jsonmin implements a strict single-pass JSON validator that
// minifies as it validates: it never builds a value tree, it only
// tracks enough state (one recursive parseContainer call per open
// bracket, each with its own expected closer and position) to reject malformed input while copying every token
// verbatim and dropping every byte of insignificant whitespace.
package jsonmin

import (
	"github.com/minifyco/minify/internal/common"
	"github.com/minifyco/minify/internal/diag"
)

func errAt(offset int, template string) *diag.Report {
	return &diag.Report{Template: template, Offset: offset}
}

// Minify validates and strips insignificant whitespace from JSON source
// json. It returns the minified document, or a nil slice and an
// unresolved error report on the first malformed token encountered.
func Minify(json []byte) ([]byte, *diag.Report) {
	m := &minifier{src: json, out: make([]byte, 0, len(json))}
	return m.run()
}

type minifier struct {
	src []byte
	out []byte
}

func (m *minifier) skipWS(i int) int {
	for i < len(m.src) && common.IsSpace(m.src[i]) {
		i++
	}
	return i
}

func (m *minifier) run() ([]byte, *diag.Report) {
	i := m.skipWS(0)
	i, rep := m.parseValue(i)
	if rep != nil {
		return nil, rep
	}
	i = m.skipWS(i)
	if i < len(m.src) {
		return nil, errAt(i, "Unexpected trailing content in line %d, column %d")
	}
	return m.out, nil
}

func (m *minifier) parseValue(i int) (int, *diag.Report) {
	if i >= len(m.src) {
		return 0, errAt(i, "Unexpected end of document, expected value in line %d, column %d")
	}
	switch m.src[i] {
	case '{':
		return m.parseContainer(i, '{', '}')
	case '[':
		return m.parseContainer(i, '[', ']')
	case '"':
		return m.parseString(i)
	case 't':
		return m.parseLiteral(i, "true")
	case 'f':
		return m.parseLiteral(i, "false")
	case 'n':
		return m.parseLiteral(i, "null")
	default:
		if m.src[i] == '-' || (m.src[i] >= '0' && m.src[i] <= '9') {
			return m.parseNumber(i)
		}
		return 0, errAt(i, "Unexpected token, expected value in line %d, column %d")
	}
}

// parseContainer handles both objects ({ }) and arrays ([ ]); isObject
// distinguishes the key-position requirement.
func (m *minifier) parseContainer(i int, open, close byte) (int, *diag.Report) {
	isObject := open == '{'
	m.out = append(m.out, open)
	i++
	i = m.skipWS(i)
	if i < len(m.src) && m.src[i] == close {
		m.out = append(m.out, close)
		return i + 1, nil
	}
	first := true
	for {
		if !first {
			if i >= len(m.src) {
				return 0, errAt(len(m.src), "Missing "+string(close)+" in line %d, column %d")
			}
			if m.src[i] != ',' {
				return 0, errAt(i, "Expected , or "+string(close)+" in line %d, column %d")
			}
			m.out = append(m.out, ',')
			i++
			i = m.skipWS(i)
		}
		first = false

		if isObject {
			if i >= len(m.src) || m.src[i] != '"' {
				return 0, errAt(i, "Expected string key in line %d, column %d")
			}
			var rep *diag.Report
			i, rep = m.parseString(i)
			if rep != nil {
				return 0, rep
			}
			i = m.skipWS(i)
			if i >= len(m.src) || m.src[i] != ':' {
				return 0, errAt(i, "Expected : after key in line %d, column %d")
			}
			m.out = append(m.out, ':')
			i++
			i = m.skipWS(i)
			if i >= len(m.src) || m.src[i] == ',' || m.src[i] == '}' {
				return 0, errAt(i, "No value after : in line %d, column %d")
			}
		}

		var rep *diag.Report
		i, rep = m.parseValue(i)
		if rep != nil {
			return 0, rep
		}
		i = m.skipWS(i)
		if i < len(m.src) && m.src[i] == close {
			m.out = append(m.out, close)
			return i + 1, nil
		}
	}
}

func (m *minifier) parseString(i int) (int, *diag.Report) {
	start := i
	m.out = append(m.out, '"')
	i++
	for {
		if i >= len(m.src) {
			return 0, errAt(start, "Unexpected end of document, expected \" in line %d, column %d")
		}
		c := m.src[i]
		if c == '"' {
			m.out = append(m.out, '"')
			return i + 1, nil
		}
		if c == '\n' {
			return 0, errAt(start, "Unexpected line break in string in line %d, column %d")
		}
		if c == '\\' {
			if i+1 >= len(m.src) {
				return 0, errAt(start, "Unexpected end of document, expected \" in line %d, column %d")
			}
			esc := m.src[i+1]
			switch esc {
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
				m.out = append(m.out, c, esc)
				i += 2
				continue
			case 'u':
				if i+5 >= len(m.src) {
					return 0, errAt(i, "Invalid \\u escape in line %d, column %d")
				}
				for k := 0; k < 4; k++ {
					h := m.src[i+2+k]
					if !isHexDigit(h) {
						return 0, errAt(i, "Invalid \\u escape in line %d, column %d")
					}
				}
				m.out = append(m.out, m.src[i:i+6]...)
				i += 6
				continue
			default:
				return 0, errAt(i, "Invalid escape in line %d, column %d")
			}
		}
		m.out = append(m.out, c)
		i++
	}
}

func isHexDigit(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

func (m *minifier) parseNumber(i int) (int, *diag.Report) {
	start := i
	if m.src[i] == '-' {
		i++
	}
	if i >= len(m.src) || m.src[i] < '0' || m.src[i] > '9' {
		return 0, errAt(start, "Invalid number in line %d, column %d")
	}
	if m.src[i] == '0' {
		i++
	} else {
		for i < len(m.src) && m.src[i] >= '0' && m.src[i] <= '9' {
			i++
		}
	}
	if i < len(m.src) && m.src[i] == '.' {
		i++
		if i >= len(m.src) || m.src[i] < '0' || m.src[i] > '9' {
			return 0, errAt(start, "Invalid number in line %d, column %d")
		}
		for i < len(m.src) && m.src[i] >= '0' && m.src[i] <= '9' {
			i++
		}
	}
	if i < len(m.src) && (m.src[i] == 'e' || m.src[i] == 'E') {
		i++
		if i < len(m.src) && (m.src[i] == '+' || m.src[i] == '-') {
			i++
		}
		if i >= len(m.src) || m.src[i] < '0' || m.src[i] > '9' {
			return 0, errAt(start, "Invalid number in line %d, column %d")
		}
		for i < len(m.src) && m.src[i] >= '0' && m.src[i] <= '9' {
			i++
		}
	}
	m.out = append(m.out, m.src[start:i]...)
	return i, nil
}

func (m *minifier) parseLiteral(i int, word string) (int, *diag.Report) {
	if i+len(word) > len(m.src) || string(m.src[i:i+len(word)]) != word {
		return 0, errAt(i, "Unexpected token, expected value in line %d, column %d")
	}
	end := i + len(word)
	if end < len(m.src) {
		c := m.src[end]
		if !common.IsSpace(c) && c != ']' && c != '}' && c != ',' {
			return 0, errAt(i, "Unexpected token, expected value in line %d, column %d")
		}
	}
	m.out = append(m.out, word...)
	return end, nil
}
