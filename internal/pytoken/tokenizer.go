package pytoken

import (
	"io"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const tabSize = 8

func group(choices ...string) string {
	return "(?:" + strings.Join(choices, "|") + ")"
}

var (
	reWhitespace = `[ \f\t]*`
	reComment    = `#[^\r\n]*`
	reName       = `[^\s\v#\(\)\[\]\{\}+\-*/!@$%^&=|;:'",\.<>/?` + "`" + `~\\]+`

	reBinNumber   = `0[bB]_?[01]+(?:_[01]+)*`
	reHexNumber   = `0[xX]_?[\da-fA-F]+(?:_[\da-fA-F]+)*[lL]?`
	reOctNumber   = `0[oO]?_?[0-7]+(?:_[0-7]+)*[lL]?`
	reDecNumber   = group(`[1-9]\d*(?:_\d+)*[lL]?`, `0[lL]?`)
	reIntNumber   = group(reBinNumber, reHexNumber, reOctNumber, reDecNumber)
	reExponent    = `[eE][-+]?\d+(?:_\d+)*`
	rePointFloat  = group(`\d+(?:_\d+)*\.(?:\d+(?:_\d+)*)?`, `\.\d+(?:_\d+)*`) + `(?:` + reExponent + `)?`
	reExpFloat    = `\d+(?:_\d+)*` + reExponent
	reFloatNumber = group(rePointFloat, reExpFloat)
	reImagNumber  = group(`\d+(?:_\d+)*[jJ]`, reFloatNumber+`[jJ]`)
	reNumber      = group(reImagNumber, reFloatNumber, reIntNumber)

	reStrPrefix = `(?:[uUrRbBfF]|[rR][fFbB]|[fFbBuU][rR])?`
	reTriple    = group(reStrPrefix+`'''`, reStrPrefix+`"""`)

	reOperator = group(`\*\*=?`, `>>=?`, `<<=?`, `<>`, `!=`, `//=?`, `->`, `[+\-*/%&@|^=<>:]=?`, `~`)
	reBracket  = `[\]\[(){}]`
	reSpecial  = group(`\r?\n`, `:=`, `[:;.,`+"`"+`@]`)
	reFunny    = group(reOperator, reBracket, reSpecial)

	// a string that is closed on this line, or opens a backslash continuation
	reContStr = group(
		reStrPrefix+`'[^\n'\\]*(?:\\.[^\n'\\]*)*`+group(`'`, `\\\r?\n`),
		reStrPrefix+`"[^\n"\\]*(?:\\.[^\n"\\]*)*`+group(`"`, `\\\r?\n`),
	)

	rePseudoExtras = group(`\\\r?\n|\z`, reComment, reTriple)
	rePseudoToken  = `^` + reWhitespace + `(` + group(rePseudoExtras, reNumber, reFunny, reContStr, reName) + `)`

	pseudoProg = regexp.MustCompile(rePseudoToken)
)

// Tokenizer produces tokens lazily, one physical line at a time. Errors are
// only discovered when the line that causes them is reached, so a consumer
// that stops early never sees them.
type Tokenizer struct {
	lines []string
	lnum  int

	parenLev  int
	continued bool
	indents   []int

	contStr  string
	contLine string
	needCont bool
	strStart Pos
	endQuote string

	queue []Token
	done  bool
	err   error
}

// New returns a Tokenizer over src.
func New(src string) *Tokenizer {
	return &Tokenizer{
		lines:   splitLines(src),
		indents: []int{0},
	}
}

// Tokenize returns every token in src, stopping at the first error.
func Tokenize(src string) ([]Token, error) {
	t := New(src)
	var toks []Token
	for {
		tok, err := t.Next()
		if err == io.EOF {
			return toks, nil
		}
		if err != nil {
			return toks, err
		}
		toks = append(toks, tok)
	}
}

// splitLines splits src into lines that keep their '\n' terminators.
func splitLines(src string) []string {
	var lines []string
	for len(src) > 0 {
		idx := strings.IndexByte(src, '\n')
		if idx < 0 {
			lines = append(lines, src)
			break
		}
		lines = append(lines, src[:idx+1])
		src = src[idx+1:]
	}
	return lines
}

// Next returns the next token. After ENDMARKER has been returned, Next
// returns io.EOF. Once an error is returned, every later call returns it
// again.
func (t *Tokenizer) Next() (Token, error) {
	for len(t.queue) == 0 {
		if t.err != nil {
			return Token{}, t.err
		}
		if t.done {
			return Token{}, io.EOF
		}
		if err := t.readLine(); err != nil {
			t.err = err
		}
	}
	tok := t.queue[0]
	t.queue = t.queue[1:]
	return tok, nil
}

func (t *Tokenizer) emit(kind Kind, value string, start, end Pos, line string) {
	t.queue = append(t.queue, Token{Kind: kind, Value: value, Start: start, End: end, Line: line})
}

// finish emits the DEDENT tokens that close every open block followed by
// the ENDMARKER.
func (t *Tokenizer) finish() {
	for range t.indents[1:] {
		t.emit(Dedent, "", Pos{t.lnum, 0}, Pos{t.lnum, 0}, "")
	}
	t.indents = t.indents[:1]
	t.emit(EndMarker, "", Pos{t.lnum, 0}, Pos{t.lnum, 0}, "")
	t.done = true
}

func (t *Tokenizer) readLine() error {
	line := ""
	if t.lnum < len(t.lines) {
		line = t.lines[t.lnum]
	}
	t.lnum++
	pos, lineEnd := 0, len(line)

	if t.contStr != "" {
		if line == "" {
			return &TokenError{Msg: MsgEOFString, Pos: t.strStart}
		}
		end := stringEnd(line, 0, t.endQuote)
		switch {
		case end >= 0:
			pos = end
			t.emit(String, t.contStr+line[:end], t.strStart, Pos{t.lnum, end}, t.contLine+line)
			t.contStr, t.contLine, t.needCont = "", "", false
		case t.needCont && !strings.HasSuffix(line, "\\\n") && !strings.HasSuffix(line, "\\\r\n"):
			t.emit(ErrorToken, t.contStr+line, t.strStart, Pos{t.lnum, len(line)}, t.contLine)
			t.contStr, t.contLine = "", ""
			return nil
		default:
			t.contStr += line
			t.contLine += line
			return nil
		}
	} else if t.parenLev == 0 && !t.continued {
		// start of a new statement
		if line == "" {
			t.finish()
			return nil
		}
		column := 0
	measure:
		for pos < lineEnd {
			switch line[pos] {
			case ' ':
				column++
			case '\t':
				column = (column/tabSize + 1) * tabSize
			case '\f':
				column = 0
			default:
				break measure
			}
			pos++
		}
		if pos == lineEnd {
			t.finish()
			return nil
		}

		switch line[pos] {
		case '#':
			comment := strings.TrimRight(line[pos:], "\r\n")
			nlPos := pos + len(comment)
			t.emit(Comment, comment, Pos{t.lnum, pos}, Pos{t.lnum, nlPos}, line)
			t.emit(NL, line[nlPos:], Pos{t.lnum, nlPos}, Pos{t.lnum, len(line)}, line)
			return nil
		case '\r', '\n':
			t.emit(NL, line[pos:], Pos{t.lnum, pos}, Pos{t.lnum, len(line)}, line)
			return nil
		}

		if column > t.indents[len(t.indents)-1] {
			t.indents = append(t.indents, column)
			t.emit(Indent, line[:pos], Pos{t.lnum, 0}, Pos{t.lnum, pos}, line)
		}
		if column < t.indents[len(t.indents)-1] && !containsInt(t.indents, column) {
			return &IndentError{Pos: Pos{t.lnum, pos}, Line: line}
		}
		for column < t.indents[len(t.indents)-1] {
			t.indents = t.indents[:len(t.indents)-1]
			t.emit(Dedent, "", Pos{t.lnum, pos}, Pos{t.lnum, pos}, line)
		}
	} else {
		// continued statement
		if line == "" {
			return &TokenError{Msg: MsgEOFStatement, Pos: Pos{t.lnum, 0}}
		}
		t.continued = false
	}

	for pos < lineEnd {
		m := pseudoProg.FindStringSubmatchIndex(line[pos:])
		if m == nil {
			_, size := utf8.DecodeRuneInString(line[pos:])
			t.emit(ErrorToken, line[pos:pos+size], Pos{t.lnum, pos}, Pos{t.lnum, pos + size}, line)
			pos += size
			continue
		}

		start, end := pos+m[2], pos+m[3]
		if start == end {
			// only trailing whitespace remains
			break
		}
		spos, epos := Pos{t.lnum, start}, Pos{t.lnum, end}
		pos = end
		token := line[start:end]
		initial := line[start]

		switch {
		case isDigit(initial) || (initial == '.' && token != "."):
			t.emit(Number, token, spos, epos, line)
		case initial == '\r' || initial == '\n':
			kind := Newline
			if t.parenLev > 0 {
				kind = NL
			}
			t.emit(kind, token, spos, epos, line)
		case initial == '#':
			t.emit(Comment, token, spos, epos, line)
		case isTripleQuoteStart(token):
			quote := token[len(token)-3:]
			if endPos := stringEnd(line, pos, quote); endPos >= 0 {
				pos = endPos
				t.emit(String, line[start:pos], spos, Pos{t.lnum, pos}, line)
			} else {
				t.strStart = spos
				t.contStr = line[start:]
				t.contLine = line
				t.endQuote = quote
				return nil
			}
		case isSingleQuoteStart(token):
			if token[len(token)-1] == '\n' {
				t.strStart = spos
				t.endQuote = string(token[strings.IndexAny(token, `'"`)])
				t.contStr = line[start:]
				t.needCont = true
				t.contLine = line
				return nil
			}
			t.emit(String, token, spos, epos, line)
		case isIdentStart(token):
			t.emit(Name, token, spos, epos, line)
		case initial == '\\':
			t.emit(NL, token, spos, Pos{t.lnum, pos}, line)
			t.continued = true
		default:
			switch initial {
			case '(', '[', '{':
				t.parenLev++
			case ')', ']', '}':
				t.parenLev--
			}
			t.emit(Op, token, spos, epos, line)
		}
	}
	return nil
}

// stringEnd finds where a string that is closed by quote ends, scanning line
// from index from. It returns the index just past the closing quote, or -1 if
// the string is not closed on this line. A backslash escapes any character
// except the line's newline.
func stringEnd(line string, from int, quote string) int {
	q := quote[0]
	triple := len(quote) == 3
	for i := from; i < len(line); {
		c := line[i]
		switch {
		case c == '\\':
			if i+1 >= len(line) || line[i+1] == '\n' {
				return -1
			}
			i += 2
		case c == q:
			if !triple {
				return i + 1
			}
			if strings.HasPrefix(line[i:], quote) {
				return i + 3
			}
			i++
		default:
			i++
		}
	}
	return -1
}

// stripStrPrefix returns tok with up to two leading string prefix letters
// removed, or ok=false if tok does not start like a string literal.
func stripStrPrefix(tok string) (rest string, ok bool) {
	for i := 0; i <= 2 && i < len(tok); i++ {
		if tok[i] == '\'' || tok[i] == '"' {
			if !validPrefix(tok[:i]) {
				return "", false
			}
			return tok[i:], true
		}
	}
	return "", false
}

func validPrefix(p string) bool {
	lp := strings.ToLower(p)
	switch lp {
	case "", "u", "r", "b", "f", "rf", "rb", "fr", "br", "ur":
		return true
	}
	return false
}

func isTripleQuoteStart(tok string) bool {
	rest, ok := stripStrPrefix(tok)
	return ok && (rest == `'''` || rest == `"""`)
}

func isSingleQuoteStart(tok string) bool {
	_, ok := stripStrPrefix(tok)
	return ok
}

func isIdentStart(tok string) bool {
	r, _ := utf8.DecodeRuneInString(tok)
	return r == '_' || unicode.IsLetter(r)
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func containsInt(list []int, v int) bool {
	for _, e := range list {
		if e == v {
			return true
		}
	}
	return false
}
