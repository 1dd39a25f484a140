package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName lowercases the name and drops whitespace and diacritics,
// "São Paulo" -> "saopaulo"
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")

	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		name,
	)
	if err != nil {
		return name
	}
	return folded
}

type Match struct {
	Value      string
	Similarity float64
}

// BestMatch finds the candidate most similar to name. A candidate equal to
// name after normalization always wins with a similarity of 1, otherwise
// the Jaro-Winkler similarity of the normalized names is used. ok is false
// if no candidate reaches the threshold.
func BestMatch(name string, candidates []string, threshold float64) (Match, bool) {
	normalized := NormalizeName(name)
	if normalized == "" {
		return Match{}, false
	}

	var best Match
	for _, candidate := range candidates {
		other := NormalizeName(candidate)
		if other == normalized {
			return Match{Value: candidate, Similarity: 1}, true
		}
		similarity := matchr.JaroWinkler(normalized, other, false)
		if similarity > best.Similarity {
			best = Match{Value: candidate, Similarity: similarity}
		}
	}

	if best.Similarity < threshold || best.Value == "" {
		return Match{}, false
	}
	return best, true
}
