package skill

import "strings"

// Resolution is a resolver's answer: the matched skill plus any input it
// could lift out of the text itself.
type Resolution struct {
	SkillID string
	Input   map[string]any
}

// Resolver maps free text to a skill. The default implementation is a keyword
// heuristic; anything smarter (an intent classifier, say) can replace it
// without the dispatcher noticing.
type Resolver interface {
	Resolve(text string) (Resolution, bool)
}

// KeywordResolver matches request text against each skill's example phrases
// and name/domain keywords. An example phrase contained verbatim in the text
// beats any keyword overlap, and a longer phrase beats a shorter one. Ties go
// to the earlier-registered skill.
type KeywordResolver struct {
	reg *Registry
}

// NewKeywordResolver creates a resolver over the given registry.
func NewKeywordResolver(reg *Registry) *KeywordResolver {
	return &KeywordResolver{reg: reg}
}

// phraseBonus keeps any exact phrase match above any keyword-only score.
const phraseBonus = 1000

// stopwords are too generic to indicate a skill on their own.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "my": {}, "me": {}, "for": {}, "of": {},
	"to": {}, "in": {}, "on": {}, "show": {}, "get": {}, "give": {},
	"what": {}, "whats": {}, "is": {}, "are": {}, "please": {}, "about": {},
}

// Resolve returns the best-matching skill, or false if nothing matched.
func (r *KeywordResolver) Resolve(text string) (Resolution, bool) {
	norm := normalizeText(text)
	if norm == "" {
		return Resolution{}, false
	}
	textTokens := tokenSet(norm)

	var bestDef *Definition
	bestScore := 0
	bestAnchor := ""
	// Strict > while scanning registration order makes first-registered win ties.
	for _, def := range r.reg.All() {
		if s, anchor := score(def, norm, textTokens); s > bestScore {
			bestScore = s
			bestDef = def
			bestAnchor = anchor
		}
	}
	if bestDef == nil {
		return Resolution{}, false
	}
	return Resolution{
		SkillID: bestDef.ID,
		Input:   extractInput(bestDef, norm, bestAnchor),
	}, true
}

// score rates how well the text fits a skill. The second return is the
// extraction anchor: the shortest contained example phrase, which leaves the
// longest remainder to lift arguments from. Scoring itself still rewards the
// longest phrase so the most specific skill wins. Empty for keyword-only
// matches.
func score(def *Definition, norm string, textTokens map[string]struct{}) (int, string) {
	best := 0
	anchor := ""
	for _, ex := range def.Examples {
		exNorm := normalizeText(ex)
		if exNorm == "" {
			continue
		}
		if strings.Contains(norm, exNorm) {
			if s := phraseBonus + len(exNorm); s > best {
				best = s
			}
			if anchor == "" || len(exNorm) < len(anchor) {
				anchor = exNorm
			}
			continue
		}
		if s := overlap(exNorm, textTokens); s > best {
			best = s
		}
	}
	keywords := normalizeText(def.Name) + " " + string(def.Domain)
	if s := overlap(keywords, textTokens); s > best {
		best = s
	}
	if best < phraseBonus {
		anchor = ""
	}
	return best, anchor
}

// extractInput lifts an argument out of the text for skills with a single
// required string field: whatever meaningful tokens remain once the matched
// phrase and filler words are gone. "research prospect Acme Corp" matched on
// "research prospect" leaves "acme corp" as the company.
func extractInput(def *Definition, norm, phrase string) map[string]any {
	if phrase == "" {
		return nil
	}
	field, ok := soleRequiredString(def.Inputs)
	if !ok {
		return nil
	}
	rest := strings.Replace(norm, phrase, " ", 1)
	var kept []string
	for _, tok := range strings.Fields(rest) {
		if _, skip := stopwords[tok]; skip {
			continue
		}
		kept = append(kept, tok)
	}
	if len(kept) == 0 {
		return nil
	}
	return map[string]any{field: strings.Join(kept, " ")}
}

// soleRequiredString returns the field name when the schema requires exactly
// one string and nothing else; extraction is only unambiguous in that case.
func soleRequiredString(schema InputSchema) (string, bool) {
	name := ""
	for _, f := range schema {
		if !f.Required {
			continue
		}
		if f.Type != FieldString || name != "" {
			return "", false
		}
		name = f.Name
	}
	return name, name != ""
}

// overlap counts candidate tokens present in the request text, ignoring
// stopwords.
func overlap(candidate string, textTokens map[string]struct{}) int {
	n := 0
	for _, tok := range strings.Fields(candidate) {
		if _, skip := stopwords[tok]; skip {
			continue
		}
		if _, ok := textTokens[tok]; ok {
			n++
		}
	}
	return n
}

func tokenSet(norm string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(norm) {
		set[tok] = struct{}{}
	}
	return set
}

// normalizeText lowercases and strips punctuation so "Pipeline health?"
// matches "pipeline health".
func normalizeText(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '\t', r == '\n', r == '-', r == '_':
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
