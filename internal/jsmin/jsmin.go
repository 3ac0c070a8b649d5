// Package jsmin implements a single-pass, streaming JavaScript minifier.
// It classifies each curly and round bracket by the syntactic role it
// plays (function body, condition body, arrow body, parameter list,
// template interpolation, ...) using an explicit pair of stacks rather
// than a recursive-descent parser, so that decisions requiring a look at
// the frame just popped (an empty do-block, a single-parameter arrow
// function) stay simple array lookups instead of recursion-stack tricks.
package jsmin

import (
	"strings"

	"github.com/minifyco/minify/internal/common"
	"github.com/minifyco/minify/internal/diag"
)

const identDelims = "'\"`%<>+*/-=,(){}[]!~;|&^:? \t\r\n"

func isIdentDelim(c byte) bool { return strings.IndexByte(identDelims, c) >= 0 }

func wordLen(src []byte, i int) int {
	j := i
	for j < len(src) && !isIdentDelim(src[j]) {
		j++
	}
	return j - i
}

func errAt(offset int, template string) *diag.Report {
	return &diag.Report{Template: template, Offset: offset}
}

type curlyKind int

const (
	kGlobal curlyKind = iota
	kUnknown
	kDo
	kTryFinally
	kStandalone
	kFuncBody
	kFuncBodyStandalone
	kConditionBody
	kStringInterpolation
	kArrowFuncBody
)

type curlyFrame struct {
	kind       curlyKind
	doPending  int
	openOffset int
}

type roundKind int

const (
	rDoWhile roundKind = iota
	rPrefixedCondition
	rUnknown
	rCatchSwitch
	rParam
	rParamStandalone
	rParamArrowSingle
)

type roundFrame struct {
	kind       roundKind
	openOffset int
}

// curlyStack (like roundStack below) keeps a sentinel bottom frame and never truncates its
// backing array on pop, so stack[top+1] right after a pop still holds the
// frame that was just removed — mirroring the C original's fixed-size
// arrays indexed by a nesting level.
type curlyStack struct {
	frames []curlyFrame
	top    int
}

func newCurlyStack() *curlyStack {
	return &curlyStack{frames: []curlyFrame{{kind: kGlobal, openOffset: -1}}}
}

func (s *curlyStack) cur() *curlyFrame { return &s.frames[s.top] }

func (s *curlyStack) poppedKind() curlyKind { return s.frames[s.top+1].kind }

func (s *curlyStack) push(f curlyFrame) {
	if s.top+1 < len(s.frames) {
		s.frames[s.top+1] = f
	} else {
		s.frames = append(s.frames, f)
	}
	s.top++
}

func (s *curlyStack) pop() { s.top-- }

type roundStack struct {
	frames []roundFrame
	top    int
}

func newRoundStack() *roundStack {
	return &roundStack{frames: []roundFrame{{kind: rUnknown, openOffset: -1}}}
}

func (s *roundStack) cur() *roundFrame    { return &s.frames[s.top] }
func (s *roundStack) poppedKind() roundKind { return s.frames[s.top+1].kind }

func (s *roundStack) push(f roundFrame) {
	if s.top+1 < len(s.frames) {
		s.frames[s.top+1] = f
	} else {
		s.frames = append(s.frames, f)
	}
	s.top++
}

func (s *roundStack) pop() { s.top-- }

// Minify strips whitespace, comments, redundant semicolons and braces,
// and applies the true/false and </script> safety transforms described
// in spec.md to JavaScript source js.
func Minify(js []byte) ([]byte, *diag.Report) {
	m := &minifier{
		src:   js,
		out:   make([]byte, 0, len(js)),
		curly: newCurlyStack(),
		round: newRoundStack(),
	}
	return m.run()
}

type minifier struct {
	src   []byte
	out   []byte
	curly *curlyStack
	round *roundStack

	// elideStack holds source offsets of '}' characters that close a
	// single-statement if/else body whose braces were omitted from the
	// output; every trivia-skip treats a matching '}' as invisible.
	elideStack []int

	lastPoppedRoundKind roundKind
	lastPoppedCurlyKind curlyKind
}

type skipInfo struct {
	End          int
	SawNewline   bool
	PreservedAll bool
}

// skip advances past whitespace, comments, and any pending elided '}' at
// the cursor, in a loop (an elided brace may be followed by more
// whitespace, possibly followed by another real token). When mutate is
// false nothing is written to m.out and no elideStack entries are
// consumed, making this safe as a pure lookahead.
func (m *minifier) skip(i int, mutate bool) (skipInfo, *diag.Report) {
	info := skipInfo{PreservedAll: true}
	elideLen := len(m.elideStack)
	var discard []byte
	dst := &discard
	if mutate {
		dst = &m.out
	}
	for {
		res, err := common.SkipWhitespaceAndComments(dst, m.src, i, true, true)
		if err != nil {
			off, _ := common.CommentOffset(err)
			return info, errAt(off, "Unclosed multi-line comment starting in line %d, column %d")
		}
		i = res.End
		if res.SawNewline {
			info.SawNewline = true
		}
		if !res.PreservedAll {
			info.PreservedAll = false
		}
		if i < len(m.src) && m.src[i] == '}' && elideLen > 0 && m.elideStack[elideLen-1] == i {
			if mutate {
				m.elideStack = m.elideStack[:len(m.elideStack)-1]
			}
			elideLen--
			i++
			continue
		}
		break
	}
	info.End = i
	return info, nil
}

func (m *minifier) skipWS(i int) (int, *diag.Report) {
	info, err := m.skip(i, true)
	if err != nil {
		return 0, err
	}
	return info.End, nil
}

func (m *minifier) peekWS(i int) (skipInfo, *diag.Report) {
	return m.skip(i, false)
}

func (m *minifier) last() byte {
	if len(m.out) == 0 {
		return 0
	}
	return m.out[len(m.out)-1]
}

func (m *minifier) run() ([]byte, *diag.Report) {
	i := 0
	for {
		// A '}' that closes an already-unwrapped if/else body is
		// invisible even with no preceding whitespace to trigger skip().
		if i < len(m.src) && m.src[i] == '}' && len(m.elideStack) > 0 && m.elideStack[len(m.elideStack)-1] == i {
			m.elideStack = m.elideStack[:len(m.elideStack)-1]
			i++
			continue
		}

		if i >= len(m.src) {
			if m.round.top > 0 {
				return nil, errAt(m.round.cur().openOffset, "Unexpected end of document, expected ) in line %d, column %d")
			}
			if m.curly.top > 0 {
				return nil, errAt(m.curly.cur().openOffset, "Unexpected end of document, expected } in line %d, column %d")
			}
			return m.out, nil
		}

		if wl := wordLen(m.src, i); wl > 0 {
			var rep *diag.Report
			i, rep = m.handleWord(i, wl)
			if rep != nil {
				return nil, rep
			}
			continue
		}

		c := m.src[i]

		switch {
		case c == '{':
			var rep *diag.Report
			i, rep = m.handleOpenCurly(i)
			if rep != nil {
				return nil, rep
			}
			continue
		case c == '}':
			var rep *diag.Report
			i, rep = m.handleCloseCurly(i)
			if rep != nil {
				return nil, rep
			}
			continue
		case c == '(':
			var rep *diag.Report
			i, rep = m.handleOpenRound(i)
			if rep != nil {
				return nil, rep
			}
			continue
		case c == ')':
			var rep *diag.Report
			i, rep = m.handleCloseRound(i)
			if rep != nil {
				return nil, rep
			}
			continue
		case c == ';':
			var rep *diag.Report
			i, rep = m.handleSemicolon(i)
			if rep != nil {
				return nil, rep
			}
			continue
		case c == '/' && i+1 < len(m.src) && m.src[i+1] != '/' && m.src[i+1] != '*' && m.isRegexContext():
			var rep *diag.Report
			i, rep = m.scanRegex(i)
			if rep != nil {
				return nil, rep
			}
			continue
		case c == '`':
			var rep *diag.Report
			i, rep = m.openTemplate(i)
			if rep != nil {
				return nil, rep
			}
			continue
		case c == '"' || c == '\'':
			var rep *diag.Report
			i, rep = m.scanQuoted(i, c)
			if rep != nil {
				return nil, rep
			}
			continue
		case common.IsSpace(c) || (c == '/' && i+1 < len(m.src) && (m.src[i+1] == '*' || m.src[i+1] == '/')):
			var rep *diag.Report
			i, rep = m.handleWhitespace(i)
			if rep != nil {
				return nil, rep
			}
			continue
		default:
			m.out = append(m.out, c)
			i++
		}
	}
}

func (m *minifier) isRegexContext() bool {
	if len(m.out) == 0 {
		return true
	}
	if len(m.out) >= 2 && m.out[len(m.out)-2] == '<' && m.out[len(m.out)-1] == ' ' {
		return true
	}
	return strings.IndexByte("^!&|([{><+-*%:?~,;=", m.last()) >= 0
}

// ---------------------------------------------------------------------
// Words and keywords (4.3.1)
// ---------------------------------------------------------------------

func (m *minifier) handleWord(i, wl int) (int, *diag.Report) {
	word := string(m.src[i : i+wl])
	info, rep := m.peekWS(i + wl)
	if rep != nil {
		return 0, rep
	}
	isObjectKey := info.End < len(m.src) && m.src[info.End] == ':' && (info.End+1 >= len(m.src) || m.src[info.End+1] != ':')
	if isObjectKey {
		m.out = append(m.out, m.src[i:i+wl]...)
		return i + wl, nil
	}
	switch word {
	case "switch", "catch":
		return m.kwSwitchCatch(i, wl)
	case "do":
		return m.kwDo(i, wl)
	case "try", "finally":
		return m.kwTryFinally(i, wl)
	case "function":
		return m.kwFunction(i, wl)
	case "while":
		return m.kwWhile(i, wl)
	case "if", "for":
		return m.kwIfFor(i, wl)
	case "else":
		return m.kwElse(i, wl)
	case "true":
		if m.last() == ' ' {
			m.out = m.out[:len(m.out)-1]
		}
		m.out = append(m.out, '!', '0')
		return i + wl, nil
	case "false":
		if m.last() == ' ' {
			m.out = m.out[:len(m.out)-1]
		}
		m.out = append(m.out, '!', '1')
		return i + wl, nil
	default:
		m.out = append(m.out, m.src[i:i+wl]...)
		return i + wl, nil
	}
}

func (m *minifier) kwSwitchCatch(i, wl int) (int, *diag.Report) {
	m.out = append(m.out, m.src[i:i+wl]...)
	i += wl
	var rep *diag.Report
	i, rep = m.skipWS(i)
	if rep != nil {
		return 0, rep
	}
	if i >= len(m.src) {
		return 0, errAt(i, "Expected ( or { in line %d, column %d")
	}
	switch m.src[i] {
	case '(':
		m.round.push(roundFrame{kind: rCatchSwitch, openOffset: i})
		m.out = append(m.out, '(')
		return i + 1, nil
	case '{':
		m.curly.push(curlyFrame{kind: kConditionBody, openOffset: i})
		m.out = append(m.out, '{')
		return i + 1, nil
	default:
		return 0, errAt(i, "Expected ( or { in line %d, column %d")
	}
}

func (m *minifier) kwDo(i, wl int) (int, *diag.Report) {
	m.out = append(m.out, m.src[i:i+wl]...)
	i += wl
	var rep *diag.Report
	i, rep = m.skipWS(i)
	if rep != nil {
		return 0, rep
	}
	if i < len(m.src) && m.src[i] == '{' {
		info, rep := m.peekWS(i + 1)
		if rep != nil {
			return 0, rep
		}
		if info.PreservedAll && info.End < len(m.src) && m.src[info.End] == '}' {
			m.out = append(m.out, ';')
			m.curly.cur().doPending++
			i, rep = m.skipWS(i + 1)
			if rep != nil {
				return 0, rep
			}
			return i + 1, nil
		}
		m.curly.push(curlyFrame{kind: kDo, openOffset: i})
		m.out = append(m.out, '{')
		return i + 1, nil
	}
	if i < len(m.src) && !isIdentDelim(m.src[i]) {
		m.out = append(m.out, ' ')
	}
	m.curly.cur().doPending++
	return i, nil
}

func (m *minifier) kwTryFinally(i, wl int) (int, *diag.Report) {
	m.out = append(m.out, m.src[i:i+wl]...)
	i += wl
	var rep *diag.Report
	i, rep = m.skipWS(i)
	if rep != nil {
		return 0, rep
	}
	if i >= len(m.src) || m.src[i] != '{' {
		return 0, errAt(i, "Expected { in line %d, column %d")
	}
	m.curly.push(curlyFrame{kind: kTryFinally, openOffset: i})
	m.out = append(m.out, '{')
	return i + 1, nil
}

func (m *minifier) kwFunction(i, wl int) (int, *diag.Report) {
	standalone := m.last() == ';' || m.last() == '}' || m.last() == '{' || len(m.out) == 0
	m.out = append(m.out, m.src[i:i+wl]...)
	i += wl
	var rep *diag.Report
	i, rep = m.skipWS(i)
	if rep != nil {
		return 0, rep
	}
	if i < len(m.src) && m.src[i] == '*' {
		m.out = append(m.out, '*')
		i++
		i, rep = m.skipWS(i)
		if rep != nil {
			return 0, rep
		}
	}
	if i < len(m.src) && m.src[i] != '(' {
		m.out = append(m.out, ' ')
		nl := wordLen(m.src, i)
		m.out = append(m.out, m.src[i:i+nl]...)
		i += nl
		i, rep = m.skipWS(i)
		if rep != nil {
			return 0, rep
		}
	}
	if i >= len(m.src) || m.src[i] != '(' {
		return 0, errAt(i, "Expected ( in line %d, column %d")
	}
	if standalone {
		m.round.push(roundFrame{kind: rParamStandalone, openOffset: i})
	} else {
		m.round.push(roundFrame{kind: rParam, openOffset: i})
	}
	m.out = append(m.out, '(')
	return i + 1, nil
}

func (m *minifier) kwWhile(i, wl int) (int, *diag.Report) {
	closedDo := m.last() == '}' && m.lastPoppedCurlyKind == kDo
	m.out = append(m.out, m.src[i:i+wl]...)
	i += wl
	var rep *diag.Report
	i, rep = m.skipWS(i)
	if rep != nil {
		return 0, rep
	}
	if i >= len(m.src) || m.src[i] != '(' {
		return 0, errAt(i, "Expected ( in line %d, column %d")
	}
	if closedDo || m.curly.cur().doPending > 0 {
		if !closedDo {
			m.curly.cur().doPending--
		}
		m.round.push(roundFrame{kind: rDoWhile, openOffset: i})
	} else {
		m.round.push(roundFrame{kind: rPrefixedCondition, openOffset: i})
	}
	m.out = append(m.out, '(')
	return i + 1, nil
}

func (m *minifier) kwIfFor(i, wl int) (int, *diag.Report) {
	m.out = append(m.out, m.src[i:i+wl]...)
	i += wl
	var rep *diag.Report
	i, rep = m.skipWS(i)
	if rep != nil {
		return 0, rep
	}
	if i >= len(m.src) || m.src[i] != '(' {
		return 0, errAt(i, "Expected ( in line %d, column %d")
	}
	m.round.push(roundFrame{kind: rPrefixedCondition, openOffset: i})
	m.out = append(m.out, '(')
	return i + 1, nil
}

func (m *minifier) kwElse(i, wl int) (int, *diag.Report) {
	m.out = append(m.out, m.src[i:i+wl]...)
	i += wl
	info, rep := m.peekWS(i)
	if rep != nil {
		return 0, rep
	}
	if info.End >= len(m.src) || m.src[info.End] != '{' {
		return i, nil
	}
	i, rep = m.skipWS(i)
	if rep != nil {
		return 0, rep
	}
	braceIdx := i
	i++

	bodyInfo, rep := m.peekWS(i)
	if rep != nil {
		return 0, rep
	}
	if bodyInfo.PreservedAll && bodyInfo.End < len(m.src) && m.src[bodyInfo.End] == '}' {
		i, rep = m.skipWS(i)
		if rep != nil {
			return 0, rep
		}
		i++
		m.out = append(m.out, ';')
		for {
			peek, rep := m.peekWS(i)
			if rep != nil {
				return 0, rep
			}
			if peek.End < len(m.src) && m.src[peek.End] == ';' {
				i, rep = m.skipWS(i)
				if rep != nil {
					return 0, rep
				}
				i++
				continue
			}
			break
		}
		return i, nil
	}

	if closeIdx, single, ok := scanBalance(m.src, braceIdx); ok && single {
		m.elideStack = append(m.elideStack, closeIdx)
		return i, nil
	}

	m.curly.push(curlyFrame{kind: kConditionBody, openOffset: braceIdx})
	m.out = append(m.out, '{')
	return i, nil
}

// ---------------------------------------------------------------------
// Brackets (4.3.2)
// ---------------------------------------------------------------------

func (m *minifier) handleOpenCurly(i int) (int, *diag.Report) {
	braceIdx := i
	last := m.last()
	arrow := len(m.out) >= 2 && m.out[len(m.out)-2] == '=' && m.out[len(m.out)-1] == '>'

	var kind curlyKind
	attemptElide := false

	// The round frame that governs this brace, if any, was already popped
	// by handleCloseRound when its ')' was processed; m.lastPoppedRoundKind
	// is that frame's kind (the "stack[top+1] right after a pop" lookup).
	switch {
	case arrow:
		kind = kArrowFuncBody
	case last == ')' && m.lastPoppedRoundKind == rPrefixedCondition:
		kind = kConditionBody
		attemptElide = true
	case last == ')' && m.lastPoppedRoundKind == rCatchSwitch:
		kind = kConditionBody
	case last == ')' && m.lastPoppedRoundKind == rParam:
		kind = kFuncBody
	case last == ')' && m.lastPoppedRoundKind == rParamStandalone:
		kind = kFuncBodyStandalone
	case last == '}' || last == ';' || last == '{' || last == '\n' || len(m.out) == 0:
		kind = kStandalone
	default:
		kind = kUnknown
	}

	if attemptElide {
		if closeIdx, single, ok := scanBalance(m.src, braceIdx); ok && single {
			m.elideStack = append(m.elideStack, closeIdx)
			return i + 1, nil
		}
	}

	m.curly.push(curlyFrame{kind: kind, openOffset: braceIdx})
	m.out = append(m.out, '{')
	return i + 1, nil
}

func (m *minifier) handleCloseCurly(i int) (int, *diag.Report) {
	if m.curly.top == 0 {
		return 0, errAt(i, "Unexpected } in line %d, column %d")
	}
	if m.curly.cur().doPending != 0 {
		return 0, errAt(i, "Unclosed do block before } in line %d, column %d")
	}
	wasInterpolation := m.curly.cur().kind == kStringInterpolation
	m.curly.pop()
	m.lastPoppedCurlyKind = m.curly.poppedKind()
	if wasInterpolation {
		m.out = append(m.out, '}')
		return m.continueTemplate(i + 1)
	}
	m.out = append(m.out, '}')
	return i + 1, nil
}

func (m *minifier) handleOpenRound(i int) (int, *diag.Report) {
	info, rep := m.peekWS(i + 1)
	if rep != nil {
		return 0, rep
	}
	j := info.End
	single := false
	if j < len(m.src) && m.src[j] != '.' && m.src[j] != ')' {
		wl := wordLen(m.src, j)
		if wl > 0 {
			info2, rep := m.peekWS(j + wl)
			if rep != nil {
				return 0, rep
			}
			k := info2.End
			if k < len(m.src) && m.src[k] == ')' {
				info3, rep := m.peekWS(k + 1)
				if rep != nil {
					return 0, rep
				}
				k2 := info3.End
				if k2+1 < len(m.src) && m.src[k2] == '=' && m.src[k2+1] == '>' {
					single = true
				}
			}
		}
	}
	if single {
		m.round.push(roundFrame{kind: rParamArrowSingle, openOffset: i})
		return i + 1, nil
	}
	m.round.push(roundFrame{kind: rUnknown, openOffset: i})
	m.out = append(m.out, '(')
	return i + 1, nil
}

func (m *minifier) handleCloseRound(i int) (int, *diag.Report) {
	if m.round.top == 0 {
		return 0, errAt(i, "Unexpected ) in line %d, column %d")
	}
	kind := m.round.cur().kind
	m.round.pop()
	m.lastPoppedRoundKind = kind
	if kind != rParamArrowSingle {
		m.out = append(m.out, ')')
	}
	return i + 1, nil
}

// ---------------------------------------------------------------------
// Semicolons (4.3.3)
// ---------------------------------------------------------------------

func (m *minifier) handleSemicolon(i int) (int, *diag.Report) {
	if m.round.cur().kind == rPrefixedCondition {
		m.out = append(m.out, ';')
		return i + 1, nil
	}
	hasBefore := len(m.out) > 0
	before := m.last()

	i, rep := m.advanceOverSemicolons(i)
	if rep != nil {
		return 0, rep
	}
	if !hasBefore {
		return i, nil
	}

	hasNext := i < len(m.src)
	var next byte
	if hasNext {
		next = m.src[i]
	}

	suppress := false
	if !hasNext || next == '}' {
		if !(before == ')' && m.lastPoppedRoundKind == rPrefixedCondition) {
			suppress = true
		}
	}
	if before == '}' && (m.lastPoppedCurlyKind == kFuncBodyStandalone || m.lastPoppedCurlyKind == kStandalone) {
		suppress = true
	}
	if before == ')' && m.lastPoppedRoundKind == rDoWhile {
		suppress = true
	}
	if !suppress {
		m.out = append(m.out, ';')
	}
	return i, nil
}

func (m *minifier) advanceOverSemicolons(i int) (int, *diag.Report) {
	i, rep := m.skipWS(i + 1)
	if rep != nil {
		return 0, rep
	}
	for i < len(m.src) && m.src[i] == ';' {
		i, rep = m.skipWS(i + 1)
		if rep != nil {
			return 0, rep
		}
	}
	return i, nil
}

// ---------------------------------------------------------------------
// Regex literals (4.3.4)
// ---------------------------------------------------------------------

func (m *minifier) scanRegex(i int) (int, *diag.Report) {
	start := i
	m.out = append(m.out, '/')
	i++
	inClass := false
	for {
		if i >= len(m.src) {
			return 0, errAt(start, "Unexpected end of document, expected / in line %d, column %d")
		}
		c := m.src[i]
		if c == '\n' {
			return 0, errAt(start, "Unterminated regular expression in line %d, column %d")
		}
		if c == '\\' && i+1 < len(m.src) {
			m.out = append(m.out, c, m.src[i+1])
			i += 2
			continue
		}
		if c == '[' {
			inClass = true
		} else if c == ']' {
			inClass = false
		} else if c == '/' && !inClass {
			m.out = append(m.out, '/')
			return i + 1, nil
		}
		m.out = append(m.out, c)
		i++
	}
}

// ---------------------------------------------------------------------
// Strings and templates (4.3.5)
// ---------------------------------------------------------------------

func (m *minifier) guardScriptClose() {
	n := len(m.out)
	if n < 8 {
		return
	}
	tail := m.out[n-8:]
	if !common.EqualFold(string(tail), "</script") {
		return
	}
	fixed := make([]byte, 0, n+1)
	fixed = append(fixed, m.out[:n-8]...)
	fixed = append(fixed, m.out[n-8], '\\')
	fixed = append(fixed, m.out[n-7:n]...)
	m.out = fixed
}

func (m *minifier) emit(c byte) {
	m.out = append(m.out, c)
	m.guardScriptClose()
}

// scanQuoted handles ' and " string literals, including the line
// continuation and concatenation-merge rules.
func (m *minifier) scanQuoted(i int, quote byte) (int, *diag.Report) {
	start := i
	m.emit(quote)
	i++
	for {
		if i >= len(m.src) {
			return 0, errAt(start, "Unexpected end of document, expected "+string(quote)+" in line %d, column %d")
		}
		c := m.src[i]
		if c == '\\' && i+1 < len(m.src) && m.src[i+1] == '\n' {
			i += 2
			continue
		}
		if c == '\\' && i+1 < len(m.src) {
			m.emit(c)
			m.emit(m.src[i+1])
			i += 2
			continue
		}
		if c == '\n' {
			return 0, errAt(start, "Unexpected line break in string in line %d, column %d")
		}
		if c == quote {
			i++
			merged, newI, rep := m.tryMergeQuoted(i, quote)
			if rep != nil {
				return 0, rep
			}
			if merged {
				i = newI
				continue
			}
			m.emit(quote)
			return i, nil
		}
		m.emit(c)
		i++
	}
}

func (m *minifier) tryMergeQuoted(i int, quote byte) (bool, int, *diag.Report) {
	info, rep := m.peekWS(i)
	if rep != nil {
		return false, 0, rep
	}
	if !info.PreservedAll || info.End >= len(m.src) || m.src[info.End] != '+' {
		return false, 0, nil
	}
	info2, rep := m.peekWS(info.End + 1)
	if rep != nil {
		return false, 0, rep
	}
	if !info2.PreservedAll || info2.End >= len(m.src) || m.src[info2.End] != quote {
		return false, 0, nil
	}
	i, rep = m.skipWS(i)
	if rep != nil {
		return false, 0, rep
	}
	i++ // consume '+'
	i, rep = m.skipWS(i)
	if rep != nil {
		return false, 0, rep
	}
	return true, i + 1, nil // consume the new opening quote
}

func (m *minifier) openTemplate(i int) (int, *diag.Report) {
	m.emit('`')
	return m.continueTemplate(i + 1)
}

// continueTemplate copies raw template-literal content until the closing
// backtick or the start of a ${ interpolation, which is handed back to
// the main tokenizer via a pushed kStringInterpolation curly frame.
func (m *minifier) continueTemplate(i int) (int, *diag.Report) {
	start := i
	for {
		if i >= len(m.src) {
			return 0, errAt(start, "Unexpected end of document, expected ` in line %d, column %d")
		}
		c := m.src[i]
		if c == '\\' && i+1 < len(m.src) {
			m.emit(c)
			m.emit(m.src[i+1])
			i += 2
			continue
		}
		if c == '`' {
			m.emit('`')
			return i + 1, nil
		}
		if c == '$' && i+1 < len(m.src) && m.src[i+1] == '{' {
			m.curly.push(curlyFrame{kind: kStringInterpolation, openOffset: i})
			m.emit('$')
			m.emit('{')
			return i + 2, nil
		}
		m.emit(c)
		i++
	}
}

// ---------------------------------------------------------------------
// Whitespace elision (4.3.6)
// ---------------------------------------------------------------------

const trimAroundNewline = ".([{;=*-+^!~?:,></|&"
const trimAroundSpace = ".()[]{},=*;?!:><-+'\"/|&`"

func (m *minifier) handleWhitespace(i int) (int, *diag.Report) {
	info, rep := m.skip(i, true)
	if rep != nil {
		return 0, rep
	}
	i = info.End

	last := m.last()
	var next byte
	hasNext := i < len(m.src)
	if hasNext {
		next = m.src[i]
	}

	if (last == '+' && next == '+') || (last == '-' && next == '-') {
		m.out = append(m.out, ' ')
		return i, nil
	}

	if info.SawNewline {
		if strings.IndexByte(trimAroundNewline, last) >= 0 {
			return i, nil
		}
		if hasNext && strings.IndexByte(")]}.;=*?:,><|&", next) >= 0 {
			return i, nil
		}
		m.out = append(m.out, '\n')
		return i, nil
	}

	if strings.IndexByte(trimAroundSpace, last) >= 0 {
		return i, nil
	}
	if hasNext && strings.IndexByte(trimAroundSpace, next) >= 0 {
		if last == '<' && common.HasPrefixFold(string(m.src[i:]), "/script") {
			m.out = append(m.out, ' ')
		}
		return i, nil
	}
	m.out = append(m.out, ' ')
	return i, nil
}

// ---------------------------------------------------------------------
// Lookahead balance scan for if/else single-statement brace elision
// ---------------------------------------------------------------------

// scanBalance scans forward from the '{' at openIdx (pointing at the
// brace itself) to find its matching '}', tracking nested brackets and
// skipping over strings/templates/regexes/comments so their contents
// never confuse the count. It reports whether the block's top-level
// content amounts to at most one statement (so its braces are safe to
// elide, since JS if/for/while/else bodies may be a single bare
// statement). ok is false if the block runs off the end of input, in
// which case the caller falls back to normal brace handling and lets the
// main loop's own EOF diagnostics fire.
func scanBalance(src []byte, openIdx int) (closeIdx int, single bool, ok bool) {
	i := openIdx + 1
	curlyDepth := 1
	roundDepth := 0
	semicolons := 0
	last := byte('{')

	for i < len(src) {
		c := src[i]
		switch {
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			i += 2
			for i < len(src) && src[i] != '\n' {
				i++
			}
			continue
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			i += 2
			for i < len(src) && !(src[i] == '*' && i+1 < len(src) && src[i+1] == '/') {
				i++
			}
			if i < len(src) {
				i += 2
			}
			continue
		case c == '"' || c == '\'':
			quote := c
			i++
			for i < len(src) && src[i] != quote {
				if src[i] == '\\' {
					i++
				}
				i++
			}
			i++
			last = quote
			continue
		case c == '`':
			i++
			depth := 0
			for i < len(src) {
				if src[i] == '\\' {
					i += 2
					continue
				}
				if depth == 0 && src[i] == '`' {
					i++
					break
				}
				if src[i] == '$' && i+1 < len(src) && src[i+1] == '{' {
					depth++
					i += 2
					continue
				}
				if depth > 0 && src[i] == '{' {
					depth++
				}
				if depth > 0 && src[i] == '}' {
					depth--
				}
				i++
			}
			last = '`'
			continue
		case c == '/' && strings.IndexByte("^!&|([{><+-*%:?~,;=", last) >= 0:
			i++
			inClass := false
			for i < len(src) && (src[i] != '/' || inClass) {
				if src[i] == '\\' {
					i++
				} else if src[i] == '[' {
					inClass = true
				} else if src[i] == ']' {
					inClass = false
				}
				i++
			}
			i++
			last = '/'
			continue
		case c == '{':
			curlyDepth++
		case c == '}':
			curlyDepth--
			if curlyDepth == 0 {
				return i, semicolons <= 1, true
			}
		case c == '(':
			roundDepth++
		case c == ')':
			roundDepth--
		case c == ';':
			if curlyDepth == 1 && roundDepth == 0 {
				semicolons++
			}
		}
		if !common.IsSpace(c) {
			last = c
		}
		i++
	}
	return 0, false, false
}
