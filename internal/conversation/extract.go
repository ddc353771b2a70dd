package conversation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Extraction is what a single utterance revealed. Empty fields were not found.
type Extraction struct {
	Email       string
	WhatsApp    string
	Budget      string
	Destination string
	Dates       string
	Nights      string
	Travellers  string
	Name        string
	FromCity    string

	// BudgetPerPerson is set when the user gave a per-person amount. Budget is
	// left empty so the engine can ask for the trip total.
	BudgetPerPerson bool
	// UnsupportedDestination names a place the user asked for that is not on
	// the allow-list, when one could be recognised.
	UnsupportedDestination string
	// RejectedEmail and RejectedPhone flag input that looked like contact
	// details but failed validation.
	RejectedEmail bool
	RejectedPhone bool
}

// Lead converts the extraction into a merge update.
func (e Extraction) Lead() CapturedLead {
	return CapturedLead{
		Name:        e.Name,
		Email:       e.Email,
		WhatsApp:    e.WhatsApp,
		FromCity:    e.FromCity,
		Destination: e.Destination,
		Dates:       e.Dates,
		Nights:      e.Nights,
		Budget:      e.Budget,
		Travellers:  e.Travellers,
	}
}

// Extractor pulls structured fields out of free text. It holds only
// configuration and is safe for concurrent use.
type Extractor struct {
	destinations []destinationMatcher
	countryCode  string
}

type destinationMatcher struct {
	name string
	re   *regexp.Regexp
}

// NewExtractor builds an extractor for the given destination allow-list and
// trunk-prefix country code (digits only, e.g. "44").
func NewExtractor(destinations []string, countryCode string) *Extractor {
	x := &Extractor{countryCode: strings.TrimPrefix(strings.TrimSpace(countryCode), "+")}
	if x.countryCode == "" {
		x.countryCode = "44"
	}
	for _, d := range destinations {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		x.destinations = append(x.destinations, destinationMatcher{
			name: d,
			re:   regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(d) + `\b`),
		})
	}
	return x
}

// Destinations returns the allow-list in configured order.
func (x *Extractor) Destinations() []string {
	out := make([]string, 0, len(x.destinations))
	for _, d := range x.destinations {
		out = append(out, d.name)
	}
	return out
}

// Extract runs every field pattern over text.
func (x *Extractor) Extract(text string) Extraction {
	var out Extraction
	text = normalizeQuotes(strings.TrimSpace(text))
	if text == "" {
		return out
	}

	out.Email, out.RejectedEmail = extractEmail(text)
	withoutEmail := emailCandidatePattern.ReplaceAllString(text, " ")
	out.WhatsApp, out.RejectedPhone = x.extractPhone(withoutEmail)
	out.Budget, out.BudgetPerPerson = extractBudget(withoutEmail)
	out.Destination = x.MatchDestination(text)
	if out.Destination == "" {
		out.UnsupportedDestination = unsupportedDestination(text)
	}
	out.Dates = extractDates(text)
	out.Nights = extractNights(text)
	out.Travellers = extractTravellers(text)
	out.Name = extractName(text, x)
	out.FromCity = extractFromCity(text, x)
	return out
}

func normalizeQuotes(s string) string {
	return strings.NewReplacer("’", "'", "‘", "'", "“", `"`, "”", `"`).Replace(s)
}

// MatchDestination returns the allow-listed destination mentioned earliest in
// text, in its canonical spelling.
func (x *Extractor) MatchDestination(text string) string {
	best, bestIdx := "", -1
	for _, d := range x.destinations {
		loc := d.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if bestIdx == -1 || loc[0] < bestIdx {
			best, bestIdx = d.name, loc[0]
		}
	}
	return best
}

// CanonicalDestination maps a stored destination to its allow-list spelling.
func (x *Extractor) CanonicalDestination(value string) (string, bool) {
	value = strings.TrimSpace(value)
	for _, d := range x.destinations {
		if strings.EqualFold(d.name, value) {
			return d.name, true
		}
	}
	// "Marrakech, Morocco" style values still resolve.
	if match := x.MatchDestination(value); match != "" {
		return match, true
	}
	return "", false
}

// --- email ---

var emailCandidatePattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// ExtractEmail returns the first valid email address in text.
func ExtractEmail(text string) string {
	email, _ := extractEmail(text)
	return email
}

func extractEmail(text string) (string, bool) {
	for _, candidate := range emailCandidatePattern.FindAllString(text, -1) {
		candidate = strings.Trim(candidate, ".")
		if validEmail(candidate) {
			return strings.ToLower(candidate), false
		}
	}
	return "", strings.Contains(text, "@")
}

func validEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	local, domain := email[:at], email[at+1:]
	if strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") || strings.Contains(email, "..") {
		return false
	}
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if label == "" || strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return false
		}
	}
	return true
}

// --- phone ---

var (
	phoneRunPattern       = regexp.MustCompile(`\+?\d[\d\s().\-]*\d`)
	bracketedTrunkPattern = regexp.MustCompile(`^(\+|00)\s*(\d{1,3})\s*\(\s*0\s*\)`)
)

func (x *Extractor) extractPhone(text string) (string, bool) {
	best, bestDigits := "", 0
	for _, run := range phoneRunPattern.FindAllString(text, -1) {
		n := countDigits(run)
		if n >= 8 && n > bestDigits {
			best, bestDigits = run, n
		}
	}
	if best == "" {
		return "", false
	}
	normalized := x.NormalizePhone(best)
	return normalized, normalized == ""
}

// NormalizePhone converts a phone number to +<country><number>. International
// "00" prefixes become "+", a leading trunk "0" becomes the configured country
// code and a bracketed trunk "(0)" after an international prefix is dropped.
// Numbers with fewer than 10 digits after normalization are rejected.
func (x *Extractor) NormalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	raw = bracketedTrunkPattern.ReplaceAllString(raw, "$1$2")
	international := strings.HasPrefix(raw, "+")
	digits := onlyDigits(raw)
	switch {
	case international:
	case strings.HasPrefix(digits, "00"):
		digits = digits[2:]
	case strings.HasPrefix(digits, "0"):
		digits = x.countryCode + digits[1:]
	}
	if len(digits) < 10 || len(digits) > 15 {
		return ""
	}
	return "+" + digits
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// --- budget ---

const amountExpr = `(\d{1,3}(?:,\d{3})+|\d+(?:\.\d+)?)\s*(k\b)?`

var (
	budgetSymbolPattern  = regexp.MustCompile(`(?i)([£$€])\s?` + amountExpr)
	budgetWordPattern    = regexp.MustCompile(`(?i)\b` + amountExpr + `\s*(gbp|pounds?|quid|usd|dollars?|eur|euros?)\b`)
	budgetKeywordPattern = regexp.MustCompile(`(?i)\bbudget\b[^\d£$€]{0,24}([£$€])?\s?` + amountExpr)
	perPersonPattern     = regexp.MustCompile(`(?i)(\bper\s+(?:person|head|pax|adult|traveller|traveler|guest)\b|\bpp\b|\bp/p\b|\bp\.p\.?|\beach\b|\ba\s+head\b|\bper\s+couple\b)`)
	digitPattern         = regexp.MustCompile(`\d`)
)

var currencyWords = map[string]string{
	"gbp": "£", "pound": "£", "pounds": "£", "quid": "£",
	"usd": "$", "dollar": "$", "dollars": "$",
	"eur": "€", "euro": "€", "euros": "€",
}

func extractBudget(text string) (string, bool) {
	if digitPattern.MatchString(text) && perPersonPattern.MatchString(text) {
		return "", true
	}
	if m := budgetSymbolPattern.FindStringSubmatch(text); m != nil {
		return formatAmount(m[1], m[2], m[3] != ""), false
	}
	if m := budgetWordPattern.FindStringSubmatch(text); m != nil {
		return formatAmount(currencyWords[strings.ToLower(m[3])], m[1], m[2] != ""), false
	}
	if m := budgetKeywordPattern.FindStringSubmatch(text); m != nil {
		return formatAmount(m[1], m[2], m[3] != ""), false
	}
	return "", false
}

func formatAmount(symbol, amount string, thousands bool) string {
	amount = strings.ReplaceAll(amount, ",", "")
	value, err := strconv.ParseFloat(amount, 64)
	if err != nil || value <= 0 {
		return ""
	}
	if thousands {
		value *= 1000
	}
	if value == float64(int64(value)) {
		return symbol + strconv.FormatInt(int64(value), 10)
	}
	return symbol + strconv.FormatFloat(value, 'f', 2, 64)
}

// --- destination ---

var destinationIntentPattern = regexp.MustCompile(`\b(?i:trip to|travel(?:l?ing)? to|go(?:ing)? to|visit(?:ing)?|holiday in|vacation in|honeymoon in|fly(?:ing)? to|destination is|thinking of|thinking about)\s+([A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)?)`)

func unsupportedDestination(text string) string {
	m := destinationIntentPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	place := m[1]
	if isMonth(strings.ToLower(strings.Fields(place)[0])) || cityStopWords[strings.ToLower(place)] {
		return ""
	}
	return place
}

// --- dates ---

const (
	monthExpr = `(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`
	dayExpr   = `\d{1,2}(?:st|nd|rd|th)?`
	rangeSep  = `\s*(?:-|–|to|until|till|through|thru)\s*`
)

var (
	dayMonthRangePattern = regexp.MustCompile(`(?i)\b(` + dayExpr + `)\s+(?:of\s+)?(` + monthExpr + `)\b(?:` + rangeSep + `(` + dayExpr + `)(?:\s+(?:of\s+)?(` + monthExpr + `)\b)?)?`)
	monthDayRangePattern = regexp.MustCompile(`(?i)\b(` + monthExpr + `)\s+(` + dayExpr + `)\b(?:` + rangeSep + `(?:(` + monthExpr + `)\s+)?(` + dayExpr + `)\b)?`)
	dayDayMonthPattern   = regexp.MustCompile(`(?i)\b(` + dayExpr + `)` + rangeSep + `(` + dayExpr + `)\s+(?:of\s+)?(` + monthExpr + `)\b`)
	numericDatePattern   = regexp.MustCompile(`\b\d{1,2}/\d{1,2}(?:/\d{2,4})?(?:` + rangeSep + `\d{1,2}/\d{1,2}(?:/\d{2,4})?)?\b`)
	monthOnlyPattern     = regexp.MustCompile(`(?i)\b(?:(?:in|during|around|early|mid|late|end of|start of|beginning of|next)\s+(` + monthExpr + `)(?:\s+\d{4})?|(` + monthExpr + `)\s+\d{4})\b`)
	monthWordPattern     = regexp.MustCompile(`(?i)^` + monthExpr + `$`)
	seasonPattern        = regexp.MustCompile(`(?i)\b(?:next (?:week|month|year|summer|spring|autumn|winter)|this (?:summer|spring|autumn|winter|weekend)|(?:over |during |in )?(?:the )?(?:summer|spring|autumn|fall|winter|easter|christmas|new year)(?: holidays?| break)?|flexible(?: dates| on dates)?|any ?time)\b`)
)

func extractDates(text string) string {
	for _, re := range []*regexp.Regexp{dayDayMonthPattern, dayMonthRangePattern, monthDayRangePattern, numericDatePattern, monthOnlyPattern, seasonPattern} {
		if m := re.FindString(text); m != "" {
			return strings.TrimSpace(m)
		}
	}
	return ""
}

var monthNumbers = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

func isMonth(word string) bool {
	if len(word) < 3 {
		return false
	}
	return monthWordPattern.MatchString(word)
}

func parseMonth(word string) (time.Month, bool) {
	word = strings.ToLower(word)
	if len(word) < 3 {
		return 0, false
	}
	m, ok := monthNumbers[word[:3]]
	return m, ok
}

func parseDay(raw string) int {
	n, err := strconv.Atoi(strings.TrimRight(strings.ToLower(raw), "stndrh"))
	if err != nil || n < 1 || n > 31 {
		return 0
	}
	return n
}

// nightsFromRange counts the nights in a "12 Jan to 16 Jan" style range. The
// year is irrelevant except for ranges that cross new year.
func nightsFromRange(startDay int, startMonth time.Month, endDay int, endMonth time.Month) int {
	if startDay == 0 || endDay == 0 {
		return 0
	}
	start := time.Date(2001, startMonth, startDay, 0, 0, 0, 0, time.UTC)
	end := time.Date(2001, endMonth, endDay, 0, 0, 0, 0, time.UTC)
	if end.Before(start) {
		end = end.AddDate(1, 0, 0)
	}
	nights := int(end.Sub(start).Hours() / 24)
	if nights <= 0 || nights > 90 {
		return 0
	}
	return nights
}

// --- nights ---

var (
	nightsPattern = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(?:nights?|nts)\b`)
	daysPattern   = regexp.MustCompile(`(?i)\b(\d{1,2})\s*days?\b`)
	weeksPattern  = regexp.MustCompile(`(?i)\b(a|one|1|two|2|three|3)\s+weeks?\b|\bfortnight\b`)
)

func extractNights(text string) string {
	if m := nightsPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := weeksPattern.FindStringSubmatch(text); m != nil {
		weeks := 2
		if m[1] != "" {
			weeks = wordNumber(m[1])
		}
		if weeks > 0 {
			return strconv.Itoa(weeks * 7)
		}
	}
	if m := daysPattern.FindStringSubmatch(text); m != nil {
		if days, err := strconv.Atoi(m[1]); err == nil && days > 1 {
			return strconv.Itoa(days - 1)
		}
	}
	if n := nightsInDateRange(text); n > 0 {
		return strconv.Itoa(n)
	}
	return ""
}

func nightsInDateRange(text string) int {
	if m := dayDayMonthPattern.FindStringSubmatch(text); m != nil {
		month, _ := parseMonth(m[3])
		return nightsFromRange(parseDay(m[1]), month, parseDay(m[2]), month)
	}
	if m := dayMonthRangePattern.FindStringSubmatch(text); m != nil && m[3] != "" {
		startMonth, _ := parseMonth(m[2])
		endMonth := startMonth
		if m[4] != "" {
			endMonth, _ = parseMonth(m[4])
		}
		return nightsFromRange(parseDay(m[1]), startMonth, parseDay(m[3]), endMonth)
	}
	if m := monthDayRangePattern.FindStringSubmatch(text); m != nil && m[4] != "" {
		startMonth, _ := parseMonth(m[1])
		endMonth := startMonth
		if m[3] != "" {
			endMonth, _ = parseMonth(m[3])
		}
		return nightsFromRange(parseDay(m[2]), startMonth, parseDay(m[4]), endMonth)
	}
	return 0
}

// --- travellers ---

const countExpr = `(\d{1,2}|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve)`

var (
	adultsKidsPattern = regexp.MustCompile(`(?i)\b` + countExpr + `\s+adults?\s*(?:and|\+|&|,|with)\s*` + countExpr + `\s+(?:kids?|children|child|teens?|teenagers?)\b`)
	headcountPattern  = regexp.MustCompile(`(?i)\b` + countExpr + `\s+(?:people|persons|person|adults?|travell?ers?|pax|guests?|passengers?|of us|friends)\b`)
	familyOfPattern   = regexp.MustCompile(`(?i)\b(?:family|group|party) of\s+` + countExpr + `\b`)
	coupleTripPattern = regexp.MustCompile(`(?i)\b(?:couple|honeymoon|the two of us|both of us|me and my (?:wife|husband|partner|girlfriend|boyfriend|fiancee?)|my (?:wife|husband|partner|girlfriend|boyfriend|fiancee?) and (?:i|me))\b`)
	soloTripPattern   = regexp.MustCompile(`(?i)\b(?:solo|just me|on my own|by myself|travelling alone|traveling alone)\b`)
)

var numberWords = map[string]int{
	"a": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
}

func wordNumber(raw string) int {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if n, ok := numberWords[raw]; ok {
		return n
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

func extractTravellers(text string) string {
	if m := adultsKidsPattern.FindStringSubmatch(text); m != nil {
		if total := wordNumber(m[1]) + wordNumber(m[2]); total > 0 {
			return strconv.Itoa(total)
		}
	}
	if m := headcountPattern.FindStringSubmatch(text); m != nil {
		if n := wordNumber(m[1]); n > 0 {
			return strconv.Itoa(n)
		}
	}
	if m := familyOfPattern.FindStringSubmatch(text); m != nil {
		if n := wordNumber(m[1]); n > 0 {
			return strconv.Itoa(n)
		}
	}
	if coupleTripPattern.MatchString(text) {
		return "2"
	}
	if soloTripPattern.MatchString(text) {
		return "1"
	}
	return ""
}

// --- name and city ---

var (
	explicitNamePattern = regexp.MustCompile(`(?i)\b(?:my name is|my name's|name is|name's|call me|i am called|i'm called)\s+([a-z][a-z'\-]*(?:\s+[a-z][a-z'\-]*){0,2})`)
	casualNamePattern   = regexp.MustCompile(`\b(?:[Ii]'m|[Ii] am|[Tt]his is|[Ii]t's)\s+([A-Z][a-zA-Z'\-]*(?:\s+[A-Z][a-zA-Z'\-]*){0,2})`)
	fromCityPattern     = regexp.MustCompile(`(?i)\b(?:flying from|travell?ing from|departing from|leaving from|coming from|based in|live in|living in|fly out of|from)\s+([a-z][a-z'\-]*(?:\s+[a-z][a-z'\-]*){0,2})`)
)

var nameStopWords = map[string]bool{
	"and": true, "from": true, "in": true, "to": true, "with": true, "for": true,
	"looking": true, "planning": true, "travelling": true, "traveling": true, "flying": true,
	"going": true, "interested": true, "here": true, "the": true, "a": true, "an": true,
	"on": true, "at": true, "but": true, "so": true, "just": true, "thinking": true,
	"hoping": true, "wanting": true, "not": true, "very": true, "really": true, "also": true,
}

var cityStopWords = map[string]bool{
	"and": true, "to": true, "in": true, "on": true, "with": true, "for": true, "at": true,
	"the": true, "a": true, "an": true, "but": true, "so": true, "around": true, "next": true,
	"this": true, "we": true, "i": true, "me": true, "us": true, "please": true, "airport": true,
	"until": true, "till": true, "through": true, "budget": true, "about": true,
	"home": true, "work": true, "here": true, "there": true, "now": true, "you": true,
	"today": true, "tomorrow": true, "my": true, "our": true, "your": true, "it": true,
}

func extractName(text string, x *Extractor) string {
	m := explicitNamePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return x.plausibleName(m[1])
}

// extractCasualName also accepts "I'm Sarah" and "it's Sarah". It is only used
// when the user has just been asked for their name.
func (x *Extractor) extractCasualName(text string) string {
	if name := extractName(text, x); name != "" {
		return name
	}
	if m := casualNamePattern.FindStringSubmatch(text); m != nil {
		return x.plausibleName(m[1])
	}
	return ""
}

func (x *Extractor) plausibleName(raw string) string {
	name := truncateAtStopWord(raw, nameStopWords)
	if name == "" || x.MatchDestination(name) != "" || isMonth(strings.ToLower(strings.Fields(name)[0])) {
		return ""
	}
	return titleWords(name)
}

func extractFromCity(text string, x *Extractor) string {
	for _, m := range fromCityPattern.FindAllStringSubmatch(text, -1) {
		city := truncateAtStopWord(m[1], cityStopWords)
		if city == "" {
			continue
		}
		first := strings.ToLower(strings.Fields(city)[0])
		if isMonth(first) || x.MatchDestination(city) != "" {
			continue
		}
		return titleWords(city)
	}
	return ""
}

func truncateAtStopWord(phrase string, stop map[string]bool) string {
	var kept []string
	for _, word := range strings.Fields(phrase) {
		if stop[strings.ToLower(word)] {
			break
		}
		kept = append(kept, word)
	}
	return strings.Join(kept, " ")
}

// titleWords capitalises the first letter of each word and keeps the rest as
// written, so "mcDonald" stays "McDonald".
func titleWords(phrase string) string {
	words := strings.Fields(phrase)
	for i, w := range words {
		words[i] = upperFirst(w)
	}
	return strings.Join(words, " ")
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// looksLikeName reports whether a short reply can be taken as a bare name or
// place, e.g. "John Smith" or "Manchester".
func looksLikeName(text string) bool {
	text = strings.TrimSpace(strings.TrimRight(text, ".!"))
	if text == "" || len(text) > 40 || strings.ContainsAny(text, "0123456789@?") {
		return false
	}
	words := strings.Fields(strings.ReplaceAll(text, ",", " "))
	if len(words) == 0 || len(words) > 4 {
		return false
	}
	for _, w := range words {
		for _, r := range w {
			if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '\'' || r == '-' || r == '.' || r > 127) {
				return false
			}
		}
	}
	return true
}

// formatTravellers renders a traveller count for replies.
func formatTravellers(value string) string {
	if n, err := strconv.Atoi(value); err == nil {
		if n == 1 {
			return "1 traveller"
		}
		return fmt.Sprintf("%d travellers", n)
	}
	return value
}
