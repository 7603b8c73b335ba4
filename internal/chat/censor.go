package chat

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Censor masks banned words. Matching is case-insensitive and folds common
// leet substitutions, so "D4rn" matches "darn".
type Censor struct {
	matcher *goahocorasick.Machine
	mask    rune
}

// NewCensor builds the automaton. It returns nil for an empty word list.
func NewCensor(words []string, mask rune) (*Censor, error) {
	patterns := make([][]rune, 0, len(words))
	for _, w := range words {
		p := fold([]rune(w))
		if len(p) == 0 {
			continue
		}
		patterns = append(patterns, p)
	}
	if len(patterns) == 0 {
		return nil, nil
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Censor{matcher: m, mask: mask}, nil
}

// Apply returns text with every match replaced rune for rune.
func (c *Censor) Apply(text string) string {
	if c == nil || text == "" {
		return text
	}
	orig := []rune(text)
	terms := c.matcher.MultiPatternSearch(fold(orig), false)
	if len(terms) == 0 {
		return text
	}
	for _, term := range terms {
		end := term.Pos + len(term.Word)
		if term.Pos < 0 || end > len(orig) {
			continue
		}
		for i := term.Pos; i < end; i++ {
			orig[i] = c.mask
		}
	}
	return string(orig)
}

// fold keeps one output rune per input rune so match positions map back.
func fold(in []rune) []rune {
	out := make([]rune, len(in))
	for i, r := range in {
		switch r {
		case '4', '@':
			r = 'a'
		case '3':
			r = 'e'
		case '1', '!', '|':
			r = 'i'
		case '0':
			r = 'o'
		case '5', '$':
			r = 's'
		}
		out[i] = unicode.ToLower(r)
	}
	return out
}
