package perception

import (
	"sort"
	"strings"
	"unicode"

	"lifecoach/internal/types"
)

// keyword is one weighted term. A trailing '*' makes it a prefix match;
// a term containing a space is matched as a phrase.
type keyword struct {
	term   string
	weight int
}

// keywordTable maps each specific category to its English and Spanish terms.
// general has no keywords; it is what's left when nothing matches.
var keywordTable = map[types.Category][]keyword{
	types.CategoryExercise: {
		{"exercis*", 2}, {"ejercicio*", 2}, {"workout*", 2}, {"train*", 2}, {"entren*", 2},
		{"gym", 2}, {"gimnasio", 2}, {"fitness", 2}, {"cardio", 2}, {"hiit", 2},
		{"run", 1}, {"running", 1}, {"ran", 1}, {"jog*", 1}, {"correr", 1},
		{"lift*", 1}, {"weights", 1}, {"pesas", 1}, {"squat*", 1}, {"sentadilla*", 1},
		{"pushup*", 1}, {"push ups", 1}, {"plank*", 1}, {"yoga", 1}, {"stretch*", 1},
		{"estiramiento*", 1}, {"muscle*", 1}, {"músculo*", 1}, {"musculo*", 1}, {"strength", 1},
		{"fuerza", 1}, {"swim*", 1}, {"nadar", 1}, {"cycling", 1}, {"bike", 1},
		{"walk*", 1}, {"caminar", 1}, {"reps", 1},
	},
	types.CategoryFood: {
		{"food", 2}, {"comida*", 2}, {"diet*", 2}, {"dieta*", 2}, {"nutrition*", 2},
		{"nutrici*", 2}, {"meal*", 2}, {"calorie*", 2}, {"caloría*", 2}, {"caloria*", 2},
		{"eat", 1}, {"eats", 1}, {"eating", 1}, {"ate", 1}, {"eaten", 1}, {"comer", 1},
		{"comí", 1}, {"breakfast", 1}, {"lunch", 1}, {"dinner", 1}, {"snack*", 1},
		{"desayun*", 1}, {"almuerzo", 1}, {"cena", 1}, {"cenar", 1}, {"protein*", 1},
		{"proteína*", 1}, {"carb*", 1}, {"recipe*", 1}, {"receta*", 1}, {"hungry", 1},
		{"hambre", 1}, {"vegetable*", 1}, {"verdura*", 1}, {"fruit*", 1}, {"fruta*", 1},
		{"sugar", 1}, {"azúcar", 1}, {"azucar", 1}, {"cook*", 1}, {"cocinar", 1},
		{"water", 1}, {"agua", 1},
	},
	types.CategorySchedule: {
		{"schedul*", 2}, {"calendar*", 2}, {"horario*", 2}, {"agenda*", 2},
		{"planning", 1}, {"planificar", 1}, {"plan", 1}, {"week", 1}, {"weekly", 1},
		{"semana*", 1}, {"routine*", 1}, {"rutina*", 1}, {"appointment*", 1}, {"cita*", 1},
		{"reminder*", 1}, {"recordatorio*", 1}, {"deadline*", 1}, {"organiz*", 1},
		{"busy", 1}, {"ocupad*", 1}, {"hour*", 1}, {"hora*", 1}, {"sleep", 1},
		{"dormir", 1}, {"time management", 2}, {"free time", 1},
	},
	types.CategoryMotivation: {
		{"motivat*", 2}, {"motivaci*", 2}, {"inspir*", 2}, {"discipline*", 2}, {"disciplina*", 2},
		{"give up", 2}, {"rendirme", 2}, {"procrastinat*", 2}, {"lazy", 1}, {"pereza", 1},
		{"flojo", 1}, {"habit*", 1}, {"hábito*", 1}, {"habito*", 1}, {"goal*", 1},
		{"meta", 1}, {"metas", 1}, {"confidence", 1}, {"confianza", 1}, {"stress*", 1},
		{"estrés", 1}, {"estres", 1}, {"mood", 1}, {"ánimo", 1}, {"animo", 1},
		{"encourag*", 1}, {"focus", 1}, {"overwhelm*", 1}, {"tired", 1}, {"cansad*", 1},
	},
}

// normalizeText lowercases s and splits it into letter/digit tokens.
func normalizeText(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// KeywordScores returns the weighted keyword hits per category for text.
// Categories with no hits are absent from the map.
func KeywordScores(text string) map[types.Category]int {
	tokens := normalizeText(text)
	padded := " " + strings.Join(tokens, " ") + " "

	scores := make(map[types.Category]int)
	for cat, words := range keywordTable {
		score := 0
		for _, kw := range words {
			score += kw.weight * countKeyword(kw.term, tokens, padded)
		}
		if score > 0 {
			scores[cat] = score
		}
	}
	return scores
}

func countKeyword(term string, tokens []string, padded string) int {
	if strings.Contains(term, " ") {
		return strings.Count(padded, " "+term+" ")
	}
	prefix := strings.HasSuffix(term, "*")
	term = strings.TrimSuffix(term, "*")
	n := 0
	for _, tok := range tokens {
		if tok == term || (prefix && strings.HasPrefix(tok, term)) {
			n++
		}
	}
	return n
}

// KeywordCategories returns every category with at least one keyword hit,
// ordered by score (highest first) and then by static priority.
func KeywordCategories(text string) []types.Category {
	scores := KeywordScores(text)
	out := make([]types.Category, 0, len(scores))
	for cat := range scores {
		out = append(out, cat)
	}
	sort.Slice(out, func(i, j int) bool {
		if scores[out[i]] != scores[out[j]] {
			return scores[out[i]] > scores[out[j]]
		}
		return out[i].Priority() < out[j].Priority()
	})
	return out
}

// InferCategory returns the category with the highest keyword density in text.
// Ties resolve by static priority; zero hits yields false.
func InferCategory(text string) (types.Category, bool) {
	cats := KeywordCategories(text)
	if len(cats) == 0 {
		return "", false
	}
	return cats[0], true
}

// HasTopicKeyword reports whether text mentions any category keyword.
func HasTopicKeyword(text string) bool {
	return len(KeywordScores(text)) > 0
}
