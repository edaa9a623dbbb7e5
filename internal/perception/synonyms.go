package perception

import "homeplan/internal/actions"

// verbSynonyms maps everyday verbs onto grammar verbs.
var verbSynonyms = map[actions.Verb][]string{
	actions.Pickup: {"pick", "grab", "take", "get", "hold", "lift", "carry", "fetch"},
	actions.Goto:   {"go", "move", "walk", "head", "navigate", "enter", "visit"},
	actions.Drop:   {"put", "place", "set", "leave", "release", "deposit", "down"},
	actions.Toggle: {"turn", "switch", "flip", "activate", "deactivate", "on", "off"},
	actions.Use:    {"apply", "utilize", "operate", "wash", "clean", "make", "brush", "scrub"},
}

// objectSynonyms maps alternate names onto object names.
var objectSynonyms = map[string][]string{
	"cup":          {"mug", "glass", "drink"},
	"coffee_maker": {"coffeemaker", "espresso", "brewer"},
	"light":        {"lights", "bulb"},
	"lamp":         {"bedlamp", "nightlight"},
	"faucet":       {"tap", "sink", "water"},
	"remote":       {"controller", "control"},
	"toothbrush":   {"teeth", "tooth"},
}

var fillerWords = map[string]bool{
	"the": true, "a": true, "an": true, "to": true, "with": true, "on": true,
	"in": true, "at": true, "from": true, "please": true, "now": true,
}

var (
	wordToVerb   = make(map[string]actions.Verb)
	wordToObject = make(map[string]string)

	// verbVocabulary is every word that can name a verb, in a fixed order so
	// fuzzy ties resolve the same way every run.
	verbVocabulary []string
	// objectSynonymWords lists object synonyms in a fixed order.
	objectSynonymWords []string
)

func init() {
	for _, v := range actions.Verbs() {
		verbVocabulary = append(verbVocabulary, string(v))
	}
	for _, v := range actions.Verbs() {
		for _, syn := range verbSynonyms[v] {
			wordToVerb[syn] = v
			verbVocabulary = append(verbVocabulary, syn)
		}
	}
	for _, obj := range []string{"cup", "coffee_maker", "light", "lamp", "faucet", "remote", "toothbrush"} {
		for _, syn := range objectSynonyms[obj] {
			wordToObject[syn] = obj
			objectSynonymWords = append(objectSynonymWords, syn)
		}
	}
}
