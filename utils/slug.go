package utils

import (
	"regexp"
	"strings"
)

// honorificPrefix matches settlement-type prefixes written before a city name.
// Word prefixes need a following space so that "Селятино" keeps its first letters.
var honorificPrefix = regexp.MustCompile(`(?i)^\s*(?:(?:г|п)\.\s*|(?:пгт|село|аул|деревня|посёлок|поселок|ст-ца)\s+)`)

// genericPrefix matches any short abbreviation: a 1-4 letter token ending in a dot,
// or a lowercase 1-4 letter token followed by a space ("с Кошки", "д. Сосенки").
var genericPrefix = regexp.MustCompile(`^\s*(?:\p{L}{1,4}\.\s*|\p{Ll}{1,4}\s+)`)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	dashRun       = regexp.MustCompile(`-{2,}`)
)

var cyrillicToLatin = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "e",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "i", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "kh", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "shch",
	'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya",
}

// SlugOptions selects the prefix-stripping rule of a call site
type SlugOptions struct {
	// GenericPrefix additionally strips any short abbreviation before the name.
	// Used for free-text input where the prefix set is unknown.
	GenericPrefix bool
}

// Slugify maps a city display name to its canonical URL slug.
// The result matches ^[a-z0-9-]*$ and Slugify(Slugify(x)) == Slugify(x).
// An empty result means the name could not be resolved.
func Slugify(name string) string {
	return SlugifyWith(name, SlugOptions{})
}

// SlugifyWith is Slugify with an explicit prefix-stripping rule
func SlugifyWith(name string, opts SlugOptions) string {
	s := honorificPrefix.ReplaceAllString(name, "")
	if opts.GenericPrefix {
		s = genericPrefix.ReplaceAllString(s, "")
	}

	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "ё", "е")
	s = whitespaceRun.ReplaceAllString(s, "-")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if latin, ok := cyrillicToLatin[r]; ok {
			b.WriteString(latin)
			continue
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}

	out := dashRun.ReplaceAllString(b.String(), "-")
	return strings.Trim(out, "-")
}

// NormalizeName folds a display name for case- and ё-insensitive comparison
func NormalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, "ё", "е")
}
