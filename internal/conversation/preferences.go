package conversation

import (
	"regexp"
	"strings"
)

type vocabEntry struct {
	label string
	re    *regexp.Regexp
}

func vocab(label, expr string) vocabEntry {
	return vocabEntry{label: label, re: regexp.MustCompile(`(?i)\b(?:` + expr + `)`)}
}

// Trip styles offered by the trip builder form.
var styleVocabulary = []vocabEntry{
	vocab("Luxury", `luxur|high[- ]end|upscale|lavish|fancy`),
	vocab("Romantic", `romantic|romance|honeymoon|anniversary`),
	vocab("Adventure", `adventur|hiking|trek|thrill|active`),
	vocab("Relaxation", `relax|chill|unwind|spa\b|beach`),
	vocab("Foodie", `food|cuisine|culinary|gastronom|restaurants?\b`),
	vocab("City vibes", `city vibes?|city break|cities\b|urban|nightlife`),
	vocab("Nature", `nature|outdoors|mountains?\b|wildlife|desert|countryside`),
	vocab("Shopping", `shop|souks?\b|markets?\b|bazaar`),
	vocab("Family", `family|kids\b|children|child[- ]friendly`),
}

// Trip priorities offered by the trip builder form.
var priorityVocabulary = []vocabEntry{
	vocab("5-star stays", `5[- ]?star|five[- ]star|best hotels|luxury hotels?\b`),
	vocab("Best views", `views?\b|scenery|scenic`),
	vocab("Local experiences", `local|authentic|cultur`),
	vocab("Hidden gems", `hidden gems?\b|off the beaten|off-the-beaten|less touristy|undiscovered`),
	vocab("Fast itinerary", `fast|packed|see everything|action[- ]packed`),
	vocab("Slow itinerary", `slow|leisurely|unhurried|relaxed pace`),
	vocab("Instagram spots", `instagram|insta\b|photo`),
	vocab("Safety & comfort", `safe|safety|comfort`),
}

// StyleOptions and PriorityOptions list the canonical labels.
func StyleOptions() []string    { return vocabLabels(styleVocabulary) }
func PriorityOptions() []string { return vocabLabels(priorityVocabulary) }

func vocabLabels(entries []vocabEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.label)
	}
	return out
}

func matchVocabulary(text string, entries []vocabEntry) []string {
	var out []string
	for _, e := range entries {
		if e.re.MatchString(text) {
			out = append(out, e.label)
		}
	}
	return out
}

// matchPreferences finds known styles and priorities mentioned in text.
func matchPreferences(text string) (styles, priorities []string) {
	return matchVocabulary(text, styleVocabulary), matchVocabulary(text, priorityVocabulary)
}

var listSeparator = regexp.MustCompile(`(?i)\s*(?:,|;|/|&|\+|\band\b|\bor\b)\s*`)

// freeList splits an answer that matched no known option into short items,
// e.g. "wine tasting and jazz" -> [Wine tasting, Jazz].
func freeList(text string) []string {
	var out []string
	for _, part := range listSeparator.Split(strings.Trim(text, ".! "), -1) {
		part = strings.TrimSpace(part)
		if part == "" || len(part) > 40 {
			continue
		}
		out = append(out, upperFirst(part))
		if len(out) == 5 {
			break
		}
	}
	return cleanList(out)
}

// canonicalPreferences maps model-proposed values onto the vocabulary labels,
// keeping unknown values as written.
func canonicalPreferences(values []string, entries []vocabEntry) []string {
	var out []string
	for _, v := range cleanList(values) {
		if strings.EqualFold(v, AnyPreference) {
			out = append(out, AnyPreference)
			continue
		}
		if matched := matchVocabulary(v, entries); len(matched) > 0 {
			out = append(out, matched[0])
			continue
		}
		out = append(out, v)
	}
	return cleanList(out)
}
