package loader

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

var (
	utf8BOM = []byte{0xef, 0xbb, 0xbf}

	codingDecl = regexp.MustCompile(`^[ \t\f]*#.*?coding[:=][ \t]*([-\w.]+)`)
	blankLine  = regexp.MustCompile(`^[ \t\f]*(?:[#\r\n]|$)`)
)

// Decode converts the raw bytes of a Python source file to a string. A UTF-8
// byte order mark or an encoding declaration in one of the first two lines
// selects the encoding; UTF-8 is the default. Line endings are normalized
// to "\n".
func Decode(data []byte) (string, error) {
	bom := bytes.HasPrefix(data, utf8BOM)
	if bom {
		data = data[len(utf8BOM):]
	}

	name, err := declaredEncoding(data)
	if err != nil {
		return "", err
	}

	var text string
	switch {
	case name == "":
		text, err = decodeUTF8(data)
	case bom && name != "utf-8":
		return "", fmt.Errorf("encoding problem: %s with BOM", name)
	case name == "utf-8":
		text, err = decodeUTF8(data)
	default:
		var enc encoding.Encoding
		enc, err = lookupEncoding(name)
		if err != nil {
			return "", err
		}
		var out []byte
		out, err = enc.NewDecoder().Bytes(data)
		text = string(out)
	}
	if err != nil {
		return "", err
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return text, nil
}

// declaredEncoding returns the normalized name from a coding declaration in
// the first two lines of data, or "" if there is none. The second line is
// only checked when the first is blank or a comment.
func declaredEncoding(data []byte) (string, error) {
	for i := 0; i < 2 && len(data) > 0; i++ {
		line := data
		if nl := bytes.IndexByte(data, '\n'); nl >= 0 {
			line, data = data[:nl+1], data[nl+1:]
		} else {
			data = nil
		}

		if m := codingDecl.FindSubmatch(line); m != nil {
			return normalEncodingName(string(m[1])), nil
		}
		if !blankLine.Match(line) {
			break
		}
	}
	return "", nil
}

func normalEncodingName(orig string) string {
	enc := strings.ToLower(strings.ReplaceAll(orig, "_", "-"))
	if len(enc) > 12 {
		enc = enc[:12]
	}

	switch {
	case enc == "utf-8" || strings.HasPrefix(enc, "utf-8-"):
		return "utf-8"
	case enc == "latin-1" || enc == "iso-8859-1" || enc == "iso-latin-1" ||
		strings.HasPrefix(enc, "latin-1-") || strings.HasPrefix(enc, "iso-8859-1-") || strings.HasPrefix(enc, "iso-latin-1-"):
		return "iso-8859-1"
	default:
		return strings.ToLower(orig)
	}
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	enc, err := ianaindex.IANA.Encoding(name)
	if err == nil && enc != nil {
		return enc, nil
	}

	enc, err = htmlindex.Get(name)
	if err == nil && enc != nil {
		return enc, nil
	}

	return nil, fmt.Errorf("unknown encoding: %s", name)
}

func decodeUTF8(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("source is not valid UTF-8 and declares no encoding")
	}
	out, err := unicode.UTF8.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
