package main

import "strings"

// collectText gathers tokens through the next one containing a closing
// quote. The tokenizer stripped whitespace, so a single joining space is
// put back between consumed tokens.
func collectText(ts []Token, opener string) ([]Token, string) {
	var sb strings.Builder
	for i, tok := range ts {
		name := tok.Name
		if i > 0 {
			sb.WriteByte(' ')
		}
		if at := strings.IndexByte(name, '"'); at >= 0 {
			sb.WriteString(name[:at])
			rest := ts[i+1:]
			// anything glued after the quote is a fresh token
			if tail := name[at+1:]; tail != "" {
				rest = append([]Token{{Name: tail, Loc: tok.Loc}}, rest...)
			}
			return rest, sb.String()
		}
		sb.WriteString(name)
	}
	panic(syntaxErrf(`no closing " found for the opening %v`, opener))
}

// skipComment consumes tokens through the matching right paren; parens
// nest.
func skipComment(ts []Token) []Token {
	depth := 1
	for i, tok := range ts {
		for _, r := range tok.Name {
			switch r {
			case '(':
				depth++
			case ')':
				depth--
				if depth == 0 {
					return ts[i+1:]
				}
			}
		}
	}
	panic(syntaxErrf("no closing ) found for the opening ("))
}
