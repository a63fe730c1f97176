// Package moderation answers the single question the broker asks about
// a chat message: does it contain a restricted word. Matching runs an
// Aho-Corasick automaton over a normalized view of the text, so
// "b.a.d.g.e.r" and "b4dger" hit the same pattern as "badger".
package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/rs/zerolog/log"
)

type Filter struct {
	matcher *goahocorasick.Machine
}

// NewFilter builds the automaton from the restricted-word list. An
// empty list yields a filter that never flags anything.
func NewFilter(words []string) (*Filter, error) {
	if len(words) == 0 {
		log.Warn().Str("module", "moderation").Msg("empty restricted word list, filter disabled")
		return &Filter{}, nil
	}
	patterns := make([][]rune, 0, len(words))
	for _, w := range words {
		if norm := normalize(w); len(norm) > 0 {
			patterns = append(patterns, norm)
		}
	}
	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	log.Info().Str("module", "moderation").Int("patterns", len(patterns)).Msg("restricted word filter ready")
	return &Filter{matcher: m}, nil
}

// ContainsPolicyViolation reports whether text contains any restricted
// word, ignoring case, punctuation noise and common leet substitutions.
func (f *Filter) ContainsPolicyViolation(text string) bool {
	if f.matcher == nil {
		return false
	}
	norm := normalize(text)
	if len(norm) == 0 {
		return false
	}
	return len(f.matcher.MultiPatternSearch(norm, true)) > 0
}

func normalize(s string) []rune {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		r = unleet(r)
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			continue
		}
		out = append(out, unicode.ToLower(r))
	}
	return out
}

// unleet maps common leet-speak substitutions back onto letters.
func unleet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}
