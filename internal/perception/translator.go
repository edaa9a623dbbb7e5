package perception

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"homeplan/internal/actions"
	"homeplan/internal/logging"
	"homeplan/internal/world"
)

// Translation methods.
const (
	MethodExact       = "exact"
	MethodFuzzy       = "fuzzy"
	MethodLLMFallback = "llm_fallback"
	MethodFailed      = "failed"
)

// DefaultFuzzyThreshold is the minimum similarity accepted for fuzzy matches.
const DefaultFuzzyThreshold = 0.6

// Translation is the outcome of mapping one free-form step.
type Translation struct {
	Input      string
	Action     actions.Action
	Confidence float64
	Method     string
}

// OK reports whether a grammatical action was produced.
func (t Translation) OK() bool { return t.Method != MethodFailed }

// Translator maps free-form steps onto the action grammar. Cheap matching
// runs first: synonym tables, then fuzzy similarity. The optional LLM is asked
// only when both fail.
type Translator struct {
	llm       LLMClient
	threshold float64
	dmp       *diffmatchpatch.DiffMatchPatch
}

// TranslatorOption configures a Translator.
type TranslatorOption func(*Translator)

// WithLLMFallback enables LLM disambiguation for steps the matcher cannot map.
func WithLLMFallback(c LLMClient) TranslatorOption {
	return func(t *Translator) { t.llm = c }
}

// WithThreshold sets the fuzzy similarity cutoff.
func WithThreshold(th float64) TranslatorOption {
	return func(t *Translator) {
		if th > 0 && th <= 1 {
			t.threshold = th
		}
	}
}

// NewTranslator creates a translator.
func NewTranslator(opts ...TranslatorOption) *Translator {
	t := &Translator{threshold: DefaultFuzzyThreshold, dmp: diffmatchpatch.New()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Translate maps line to an action; ok is false when nothing matched.
func (t *Translator) Translate(ctx context.Context, line string) (actions.Action, bool) {
	tr := t.TranslateDetailed(ctx, line)
	return tr.Action, tr.OK()
}

// TranslateDetailed maps line and reports confidence and method.
func (t *Translator) TranslateDetailed(ctx context.Context, line string) Translation {
	out := Translation{Input: line, Method: MethodFailed}

	words := cleanWords(line)
	if len(words) == 0 {
		return out
	}
	first := words[0]

	// exact: synonym or grammar verb in first position
	if verb, ok := wordToVerb[first]; ok {
		if target, ok := t.extractTarget(words[1:], verb); ok {
			return t.done(out, verb, target, 1.0, MethodExact)
		}
	}
	if actions.IsVerb(first) {
		verb := actions.Verb(first)
		if target, ok := t.extractTarget(words[1:], verb); ok {
			return t.done(out, verb, target, 1.0, MethodExact)
		}
	}

	// fuzzy verb, first word
	if verb, score := t.matchVerb(first); verb != "" && score >= t.threshold {
		if target, ok := t.extractTarget(words[1:], verb); ok {
			return t.done(out, verb, target, score, MethodFuzzy)
		}
	}

	// fuzzy verb anywhere ("kindly turn faucet")
	for i, w := range words {
		verb, score := t.matchVerb(w)
		if verb == "" || score < t.threshold {
			continue
		}
		rest := make([]string, 0, len(words)-1)
		rest = append(rest, words[:i]...)
		rest = append(rest, words[i+1:]...)
		if target, ok := t.extractTarget(rest, verb); ok {
			return t.done(out, verb, target, score, MethodFuzzy)
		}
	}

	if t.llm != nil {
		return t.llmDisambiguate(ctx, out, strings.Join(words, " "))
	}

	logging.PerceptionDebug("no translation for %q", line)
	return out
}

// TranslateAll maps every line, preserving order.
func (t *Translator) TranslateAll(ctx context.Context, lines []string) []Translation {
	out := make([]Translation, len(lines))
	for i, l := range lines {
		out[i] = t.TranslateDetailed(ctx, l)
	}
	return out
}

func (t *Translator) done(out Translation, verb actions.Verb, target string, conf float64, method string) Translation {
	out.Action = actions.Action{Verb: verb, Target: target}
	out.Confidence = conf
	out.Method = method
	logging.PerceptionDebug("%q -> %q (%.2f, %s)", out.Input, out.Action, conf, method)
	return out
}

func cleanWords(line string) []string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(line)))
	words := fields[:0]
	for _, w := range fields {
		w = strings.Trim(w, ".,;:!?\"'")
		if w == "" || fillerWords[w] {
			continue
		}
		words = append(words, w)
	}
	return words
}

// similarity is the share of matching characters, 2*M/T, over a
// character diff.
func (t *Translator) similarity(a, b string) float64 {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 1
	}
	common := 0
	for _, d := range t.dmp.DiffMain(a, b, false) {
		if d.Type == diffmatchpatch.DiffEqual {
			common += utf8.RuneCountInString(d.Text)
		}
	}
	return 2 * float64(common) / float64(total)
}

// closest returns the best-scoring candidate at or above cutoff. Ties keep
// the earlier candidate.
func (t *Translator) closest(word string, candidates []string, cutoff float64) (string, float64) {
	best, bestScore := "", -1.0
	for _, c := range candidates {
		if s := t.similarity(word, c); s > bestScore {
			best, bestScore = c, s
		}
	}
	if best == "" || bestScore < cutoff {
		return "", 0
	}
	return best, bestScore
}

func (t *Translator) matchVerb(word string) (actions.Verb, float64) {
	matched, score := t.closest(word, verbVocabulary, 0)
	if matched == "" {
		return "", 0
	}
	if actions.IsVerb(matched) {
		return actions.Verb(matched), score
	}
	return wordToVerb[matched], score
}

func (t *Translator) canonicalTarget(verb actions.Verb, candidate string) (string, bool) {
	if actions.AcceptsTarget(verb, candidate) {
		return candidate, true
	}
	if actions.KindOf(verb) == actions.TargetObject {
		if obj, ok := wordToObject[candidate]; ok {
			return obj, true
		}
	}
	return "", false
}

func (t *Translator) extractTarget(words []string, verb actions.Verb) (string, bool) {
	if len(words) == 0 {
		return "", false
	}

	joined := strings.Trim(strings.Join(words, "_"), "_")
	if target, ok := t.canonicalTarget(verb, joined); ok {
		return target, true
	}
	for _, w := range words {
		if target, ok := t.canonicalTarget(verb, w); ok {
			return target, true
		}
	}

	candidates := actions.TargetsFor(verb)
	if actions.KindOf(verb) == actions.TargetObject {
		candidates = append(candidates, objectSynonymWords...)
	}

	for _, probe := range append([]string{joined}, words...) {
		matched, _ := t.closest(probe, candidates, t.threshold)
		if matched == "" {
			continue
		}
		if target, ok := t.canonicalTarget(verb, matched); ok {
			return target, true
		}
	}
	return "", false
}

func (t *Translator) llmDisambiguate(ctx context.Context, out Translation, cleaned string) Translation {
	prompt := fmt.Sprintf(`Map this instruction to exactly one action from the list.

Valid actions: %s
Valid rooms: %s
Valid objects: %s

Instruction: "%s"

Output format: action target (e.g., "pickup cup" or "goto kitchen")
Output only the action, nothing else.`,
		strings.Join(actions.Strings(verbActions()), ", "),
		strings.Join(actions.TargetsFor(actions.Goto), ", "),
		strings.Join(world.Objects, ", "),
		cleaned)

	resp, err := t.llm.Complete(ctx, prompt)
	if err != nil {
		logging.PerceptionDebug("llm fallback failed for %q: %v", out.Input, err)
		return out
	}
	line := strings.TrimSpace(strings.SplitN(strings.TrimSpace(resp), "\n", 2)[0])
	line = strings.Trim(line, "`\"'.")
	a, err := actions.Parse(line)
	if err != nil {
		logging.PerceptionDebug("llm fallback reply %q unusable: %v", line, err)
		return out
	}
	return t.done(out, a.Verb, a.Target, 0.9, MethodLLMFallback)
}

// verbActions renders the verbs without targets for prompts.
func verbActions() []actions.Action {
	vs := actions.Verbs()
	out := make([]actions.Action, len(vs))
	for i, v := range vs {
		out[i] = actions.Action{Verb: v}
	}
	return out
}
