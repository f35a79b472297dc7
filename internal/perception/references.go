package perception

import (
	"regexp"
	"strconv"
	"strings"
)

// Reference resolution works in three pattern families, applied in this order:
//  1. digits: "#3", "item 3", "number 3", "the 3rd", or a bare number in a very short message
//  2. English ordinal words: "the second one"
//  3. Spanish ordinal words: "el segundo"
// Indices from all families are kept in first-seen order without duplicates,
// so a digit reference always outranks an ordinal word in the same message.

const maxListIndex = 50

var (
	hashRefPattern    = regexp.MustCompile(`#\s*(\d{1,2})\b`)
	labeledRefPattern = regexp.MustCompile(`(?i)\b(?:item|number|no\.?|option|point|step|idea|tip|n[uú]mero|opci[oó]n|punto|paso|consejo)\s*#?\s*(\d{1,2})\b`)
	suffixRefPattern  = regexp.MustCompile(`(?i)\b(\d{1,2})(?:(?:st|nd|rd|th|o|a)\b|[º°])`)
	bareNumberPattern = regexp.MustCompile(`\b(\d{1,2})\b`)
)

var englishOrdinals = map[string]int{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"sixth": 6, "seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10,
}

var spanishOrdinals = map[string]int{
	"primer": 1, "primero": 1, "primera": 1,
	"segundo": 2, "segunda": 2,
	"tercer": 3, "tercero": 3, "tercera": 3,
	"cuarto": 4, "cuarta": 4,
	"quinto": 5, "quinta": 5,
	"sexto": 6, "sexta": 6,
	"séptimo": 7, "séptima": 7, "septimo": 7, "septima": 7,
	"octavo": 8, "octava": 8,
	"noveno": 9, "novena": 9,
	"décimo": 10, "décima": 10, "decimo": 10, "decima": 10,
}

// bareNumberMaxWords bounds when a lone number counts as a reference ("2", "and 3?").
const bareNumberMaxWords = 3

// ParseReferences returns the 1-based list indices referenced by text.
func ParseReferences(text string) []int {
	seen := make(map[int]bool)
	var out []int
	add := func(n int) {
		if n < 1 || n > maxListIndex || seen[n] {
			return
		}
		seen[n] = true
		out = append(out, n)
	}

	// Family 1: digits
	for _, re := range []*regexp.Regexp{hashRefPattern, labeledRefPattern, suffixRefPattern} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if n, err := strconv.Atoi(m[1]); err == nil {
				add(n)
			}
		}
	}
	tokens := normalizeText(text)
	if len(tokens) <= bareNumberMaxWords {
		for _, m := range bareNumberPattern.FindAllStringSubmatch(text, -1) {
			if n, err := strconv.Atoi(m[1]); err == nil {
				add(n)
			}
		}
	}

	// Family 2: English ordinals
	for _, tok := range tokens {
		if n, ok := englishOrdinals[tok]; ok {
			add(n)
		}
	}

	// Family 3: Spanish ordinals
	for _, tok := range tokens {
		if n, ok := spanishOrdinals[tok]; ok {
			add(n)
		}
	}

	return out
}

// HasReference reports whether text contains any list reference.
func HasReference(text string) bool {
	return len(ParseReferences(text)) > 0
}

var (
	numberedLinePattern = regexp.MustCompile(`^\s*(?:\*\*)?(\d{1,2})\s*(?:[.)]|\s-)(?:\*\*)?\s+(.+)$`)
	bulletLinePattern   = regexp.MustCompile(`^\s*(?:[-*•]|\+)\s+(.+)$`)
	ordinalLinePattern  = regexp.MustCompile(`(?i)^\s*(?:\*\*)?([\p{L}]+?)(?:ly)?(?:\*\*)?\s*[,:.)-]\s*(.+)$`)
)

// ExtractListItems finds an enumerated list in text and maps index to item text.
// Numbered lines win over bullet lines, which win over ordinal-word lines;
// the first family that yields at least one item is used.
func ExtractListItems(text string) map[int]string {
	lines := strings.Split(text, "\n")

	numbered := make(map[int]string)
	for _, line := range lines {
		m := numberedLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			continue
		}
		if _, dup := numbered[n]; !dup {
			numbered[n] = cleanItem(m[2])
		}
	}
	if len(numbered) > 0 {
		return numbered
	}

	bullets := make(map[int]string)
	for _, line := range lines {
		if m := bulletLinePattern.FindStringSubmatch(line); m != nil {
			bullets[len(bullets)+1] = cleanItem(m[1])
		}
	}
	if len(bullets) > 0 {
		return bullets
	}

	ordinals := make(map[int]string)
	for _, line := range lines {
		m := ordinalLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		word := strings.ToLower(m[1])
		n, ok := englishOrdinals[word]
		if !ok {
			n, ok = spanishOrdinals[word]
		}
		if !ok {
			continue
		}
		if _, dup := ordinals[n]; !dup {
			ordinals[n] = cleanItem(m[2])
		}
	}
	return ordinals
}

// cleanItem strips markdown emphasis and surrounding whitespace.
func cleanItem(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "__", "")
	return strings.TrimSpace(s)
}
