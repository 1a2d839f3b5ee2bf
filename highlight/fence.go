package highlight

import "strings"

// Block is a run of a reply: prose, or the body of a fenced code block.
type Block struct {
	Text     string
	Code     bool
	Language string
}

// SplitFences separates ``` fenced code blocks from the surrounding text.
// An unterminated fence runs to the end of the input.
func SplitFences(text string) []Block {
	var blocks []Block
	var prose, code []string
	inCode := false
	lang := ""

	flushProse := func() {
		if len(prose) > 0 {
			blocks = append(blocks, Block{Text: strings.Join(prose, "\n")})
			prose = nil
		}
	}
	flushCode := func() {
		blocks = append(blocks, Block{Text: strings.Join(code, "\n"), Code: true, Language: lang})
		code = nil
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if inCode {
				flushCode()
				inCode = false
				continue
			}
			flushProse()
			inCode = true
			lang = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
			continue
		}
		if inCode {
			code = append(code, line)
		} else {
			prose = append(prose, line)
		}
	}
	if inCode {
		flushCode()
	}
	flushProse()
	return blocks
}

// FirstCodeLanguage reports whether text holds a fenced code block and the
// language named on the first one.
func FirstCodeLanguage(text string) (string, bool) {
	for _, b := range SplitFences(text) {
		if b.Code {
			return b.Language, true
		}
	}
	return "", false
}
