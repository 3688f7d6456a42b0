package diff

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	surrogateMin = 0xD800
	surrogateLen = 0x800

	// maxTokens is the number of distinct tokens that fit in the rune
	// alphabet once the surrogate block is skipped.
	maxTokens = utf8.MaxRune - surrogateLen
)

// op is one aligned block of tokens.
type op struct {
	kind   Kind
	tokens []string
}

// alphabet maps distinct tokens to distinct runes so the rune-level Myers
// implementation can align sequences of tokens.
type alphabet struct {
	index  map[string]rune
	tokens []string
}

func newAlphabet() *alphabet {
	return &alphabet{index: make(map[string]rune)}
}

func (a *alphabet) encode(tokens []string) ([]rune, bool) {
	out := make([]rune, len(tokens))
	for i, t := range tokens {
		r, ok := a.index[t]
		if !ok {
			if len(a.tokens) >= maxTokens {
				return nil, false
			}
			r = rune(len(a.tokens) + 1)
			if r >= surrogateMin {
				r += surrogateLen
			}
			a.index[t] = r
			a.tokens = append(a.tokens, t)
		}
		out[i] = r
	}
	return out, true
}

func (a *alphabet) decode(s string) []string {
	var out []string
	for _, r := range s {
		i := int(r)
		if r >= surrogateMin+surrogateLen {
			i -= surrogateLen
		}
		out = append(out, a.tokens[i-1])
	}
	return out
}

// align runs the Myers diff over two token sequences.
func align(tokens1, tokens2 []string) []op {
	a := newAlphabet()
	r1, ok1 := a.encode(tokens1)
	r2, ok2 := a.encode(tokens2)
	if !ok1 || !ok2 {
		// Too many distinct tokens to align: report a full replacement.
		var ops []op
		if len(tokens1) > 0 {
			ops = append(ops, op{kind: Removed, tokens: tokens1})
		}
		if len(tokens2) > 0 {
			ops = append(ops, op{kind: Added, tokens: tokens2})
		}
		return ops
	}

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0

	diffs := dmp.DiffMainRunes(r1, r2, false)
	ops := make([]op, 0, len(diffs))
	for _, d := range diffs {
		if d.Text == "" {
			continue
		}
		var kind Kind
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			kind = Added
		case diffmatchpatch.DiffDelete:
			kind = Removed
		default:
			kind = Unchanged
		}
		ops = append(ops, op{kind: kind, tokens: a.decode(d.Text)})
	}
	return ops
}

// splitWords splits s into maximal runs of whitespace and of
// non-whitespace. Joining the tokens gives s back.
func splitWords(s string) []string {
	var tokens []string
	start := 0
	inSpace := false
	for i, r := range s {
		space := unicode.IsSpace(r)
		if i > 0 && space != inSpace {
			tokens = append(tokens, s[start:i])
			start = i
		}
		inSpace = space
	}
	if start < len(s) {
		tokens = append(tokens, s[start:])
	}
	return tokens
}

// splitLines splits s on newlines and drops the empty lines left by a
// trailing separator.
func splitLines(s string) []string {
	lines := strings.Split(s, "\n")
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
