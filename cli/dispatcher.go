// Package cli implements the line-oriented USB-CDC command surface: a
// tokenizer, unique-prefix abbreviation matching, and the verb handlers
// that drive the glitch controller, clock generator, and target interface.
package cli

import "strings"

// matchPrefix resolves abbrev against candidates the way
// command_parser_match does in the original firmware: unambiguous prefix
// match wins, multiple matches are ambiguous, no match passes the token
// through unchanged (so the caller can report "unknown <context> '<token>'"
// using the original text).
func matchPrefix(abbrev string, candidates []string) (match string, ambiguous bool) {
	count := 0
	for _, c := range candidates {
		if strings.HasPrefix(c, abbrev) {
			match = c
			count++
		}
	}
	switch count {
	case 0:
		return abbrev, false
	case 1:
		return match, false
	default:
		return abbrev, true
	}
}

// tokenize splits a command line on whitespace and upper-cases each token,
// mirroring command_parser_parse's strtok+toupper pass. Quoted segments
// are preserved verbatim as one token, case included.
func tokenize(line string) []string {
	var tokens []string
	i := 0
	for i < len(line) {
		for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
			i++
		}
		if i >= len(line) {
			break
		}
		if line[i] == '"' {
			j := i + 1
			for j < len(line) && line[j] != '"' {
				j++
			}
			tokens = append(tokens, line[i+1:min(j, len(line))])
			if j < len(line) {
				j++
			}
			i = j
			continue
		}
		j := i
		for j < len(line) && line[j] != ' ' && line[j] != '\t' {
			j++
		}
		tokens = append(tokens, strings.ToUpper(line[i:j]))
		i = j
	}
	return tokens
}
