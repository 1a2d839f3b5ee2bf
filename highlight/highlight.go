// Package highlight maps source code to styled byte ranges. It has no
// knowledge of any display; renderers pick colors per Style.
package highlight

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

// Style is the role of a highlighted range.
type Style int

const (
	StyleKeyword Style = iota + 1
	StyleString
	StyleComment
	StyleFunction
	StyleNumber
	StylePunctuation
)

func (s Style) String() string {
	switch s {
	case StyleKeyword:
		return "keyword"
	case StyleString:
		return "string"
	case StyleComment:
		return "comment"
	case StyleFunction:
		return "function"
	case StyleNumber:
		return "number"
	case StylePunctuation:
		return "punctuation"
	default:
		return "none"
	}
}

// Span is a styled half-open byte range [Start, End) of the input.
type Span struct {
	Start int
	End   int
	Style Style
}

// DetectLanguage returns hint when it is non-blank, otherwise a guess from
// a few telltale substrings, otherwise "text".
func DetectLanguage(code, hint string) string {
	if h := strings.TrimSpace(hint); h != "" {
		return strings.ToLower(h)
	}
	switch {
	case strings.Contains(code, "fun ") || strings.Contains(code, "class "):
		return "kotlin"
	case strings.Contains(code, "def ") || strings.Contains(code, "import "):
		return "python"
	case strings.Contains(code, "function") || strings.Contains(code, "var "):
		return "javascript"
	case strings.Contains(code, "public static"):
		return "java"
	default:
		return "text"
	}
}

// Highlight tokenizes code as language and returns the styled ranges in
// ascending order. Ranges never overlap and adjacent ranges of the same
// style are merged. Unknown languages produce no spans.
func Highlight(code, language string) []Span {
	if code == "" {
		return nil
	}

	lexer := lexers.Get(language)
	if lexer == nil {
		return nil
	}
	lexer = chroma.Coalesce(lexer)

	// EnsureLF would rewrite \r\n and shift every offset after it.
	iterator, err := lexer.Tokenise(&chroma.TokeniseOptions{State: "root"}, code)
	if err != nil {
		return nil
	}

	var spans []Span
	pos := 0
	for _, tok := range iterator.Tokens() {
		start := pos
		end := pos + len(tok.Value)
		pos = end
		if start >= len(code) {
			// Lexers that force a trailing newline emit past the input.
			break
		}
		if end > len(code) {
			end = len(code)
		}

		style, ok := styleFor(tok.Type)
		if !ok || start == end {
			continue
		}
		if n := len(spans); n > 0 && spans[n-1].End == start && spans[n-1].Style == style {
			spans[n-1].End = end
			continue
		}
		spans = append(spans, Span{Start: start, End: end, Style: style})
	}
	return spans
}

func styleFor(tt chroma.TokenType) (Style, bool) {
	switch {
	case tt.InCategory(chroma.Keyword):
		return StyleKeyword, true
	case tt.InSubCategory(chroma.LiteralString):
		return StyleString, true
	case tt.InCategory(chroma.Comment):
		return StyleComment, true
	case tt == chroma.NameFunction || tt == chroma.NameFunctionMagic:
		return StyleFunction, true
	case tt.InSubCategory(chroma.LiteralNumber):
		return StyleNumber, true
	case tt.InCategory(chroma.Operator) || tt.InCategory(chroma.Punctuation):
		return StylePunctuation, true
	default:
		return 0, false
	}
}
