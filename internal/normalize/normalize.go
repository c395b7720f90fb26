// Package normalize canonicalizes transcribed Turkish utterances and extracts
// numeral, date, and clock-time values from them.
//
// Offline speech recognition produces noisy text: diacritics come and go,
// short words like "iki" arrive as "ik" or "ki", and numbers are spoken as
// words at least as often as they are spelled in digits. Every function in
// this package is pure and total — on unparseable input it reports ok=false
// instead of failing.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// diacriticFolder maps Turkish-specific letters to their ASCII-safe forms.
// The combining dot above (U+0307) shows up in transcripts after a dotted
// capital İ is lowercased; it is dropped entirely.
var diacriticFolder = strings.NewReplacer(
	"ı", "i",
	"ğ", "g",
	"ü", "u",
	"ş", "s",
	"ö", "o",
	"ç", "c",
	"̇", "",
)

// fillerTokens are words stripped by Clean because they carry no slot value.
// "ekle" is the add verb — users routinely append it to date answers
// ("5 haziran ekle").
var fillerTokens = map[string]bool{
	"ekle": true,
}

// twoVariants are the phonetic misrecognitions of "iki" observed in the
// field. They are only rewritten when they stand alone as a token, so words
// like "iyi" or "gibi" are left untouched.
var twoVariants = map[string]bool{
	"i":  true,
	"ik": true,
	"ki": true,
	"li": true,
}

// Fold lowercases text with Turkish casing rules, folds Turkish letters to
// ASCII, and collapses runs of whitespace. It is idempotent.
func Fold(s string) string {
	s = strings.ToLowerSpecial(unicode.TurkishCase, s)
	s = diacriticFolder.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// Clean is the canonical utterance normalization applied before slot
// extraction: Fold, then filler-token stripping, then rewriting of the
// "iki" variants to the single canonical spelling. Idempotent.
func Clean(s string) string {
	tokens := strings.Fields(Fold(s))
	out := tokens[:0]
	for _, tok := range tokens {
		if fillerTokens[tok] {
			continue
		}
		if twoVariants[tok] {
			tok = "iki"
		}
		out = append(out, tok)
	}
	return strings.Join(out, " ")
}

// ones and tens are the folded spellings of the Turkish numerals.
var ones = map[string]int{
	"sifir": 0, "bir": 1, "iki": 2, "uc": 3, "dort": 4,
	"bes": 5, "alti": 6, "yedi": 7, "sekiz": 8, "dokuz": 9,
}

var tens = map[string]int{
	"on": 10, "yirmi": 20, "otuz": 30, "kirk": 40, "elli": 50,
	"altmis": 60, "yetmis": 70, "seksen": 80, "doksan": 90,
}

var digitToken = regexp.MustCompile(`\b(\d{1,4})\b`)

// maxSpokenInt bounds the values WordOrDigitToInt accepts. Days, hours, and
// year fragments all fit well under it; anything larger is a misrecognition.
const maxSpokenInt = 3000

// WordOrDigitToInt extracts a small integer from text, preferring a literal
// digit token and falling back to spoken tens+ones numerals ("yirmi bes" →
// 25). Values outside [0, 3000] are rejected.
func WordOrDigitToInt(s string) (int, bool) {
	s = Clean(s)
	if m := digitToken.FindString(s); m != "" {
		n, err := strconv.Atoi(m)
		if err == nil && n >= 0 && n <= maxSpokenInt {
			return n, true
		}
		return 0, false
	}

	tokens := strings.Fields(s)
	total := 0
	matched := false
	for i := 0; i < len(tokens); i++ {
		if v, ok := tens[tokens[i]]; ok {
			matched = true
			if i+1 < len(tokens) {
				if o, ok := ones[tokens[i+1]]; ok {
					v += o
					i++
				}
			}
			total += v
		} else if v, ok := ones[tokens[i]]; ok {
			matched = true
			total += v
		}
	}
	if !matched || total > maxSpokenInt {
		return 0, false
	}
	return total, true
}

// compoundYearSpacer splits run-together year words ("ikibin", "yirmibes",
// "onsekiz") into their spaced forms before accumulation.
var compoundYearSpacer = strings.NewReplacer(
	"ikibin", "iki bin",
	"onbir", "on bir", "oniki", "on iki", "onuc", "on uc", "ondort", "on dort",
	"onbes", "on bes", "onalti", "on alti", "onyedi", "on yedi",
	"onsekiz", "on sekiz", "ondokuz", "on dokuz",
	"yirmibir", "yirmi bir", "yirmiiki", "yirmi iki", "yirmiuc", "yirmi uc",
	"yirmidort", "yirmi dort", "yirmibes", "yirmi bes", "yirmialti", "yirmi alti",
	"yirmiyedi", "yirmi yedi", "yirmisekiz", "yirmi sekiz", "yirmidokuz", "yirmi dokuz",
)

// YearWordsToInt resolves a compound spoken year ("iki bin yirmi bes" →
// 2025). A thousands word multiplies the pending value, a hundreds word
// scales it, tens and ones accumulate. ok is false unless at least one
// numeral word was recognized.
func YearWordsToInt(s string) (int, bool) {
	s = compoundYearSpacer.Replace(Fold(s))
	s = strings.ReplaceAll(s, "bin", " bin ")
	s = strings.ReplaceAll(s, "yuz", " yuz ")

	total, pending := 0, 0
	matched := false
	for _, tok := range strings.Fields(s) {
		var v int
		switch {
		case tok == "bin":
			v = 1000
		case tok == "yuz":
			v = 100
		default:
			var ok bool
			if v, ok = ones[tok]; !ok {
				if v, ok = tens[tok]; !ok {
					continue
				}
			}
		}
		matched = true
		switch v {
		case 1000:
			if pending == 0 {
				pending = 1
			}
			total += pending * 1000
			pending = 0
		case 100:
			if pending == 0 {
				pending = 1
			}
			pending *= 100
		default:
			pending += v
		}
	}
	total += pending
	if !matched || total <= 0 {
		return 0, false
	}
	return total, true
}

// canonicalMonths lists the twelve months in calendar order with the folded
// spelling variants seen in transcripts (missing diacritics, doubled trailing
// letters, conjugation remnants).
var canonicalMonths = []struct {
	name     string
	variants []string
}{
	{"ocak", []string{"ocak", "ocag", "ocagi"}},
	{"şubat", []string{"subat", "subatt"}},
	{"mart", []string{"mart", "martt"}},
	{"nisan", []string{"nisan", "nisann"}},
	{"mayıs", []string{"mayis", "mayiss"}},
	{"haziran", []string{"haziran", "hazirann"}},
	{"temmuz", []string{"temmuz", "temuz", "temmuzz"}},
	{"ağustos", []string{"agustos", "agustoss"}},
	{"eylül", []string{"eylul", "eylull"}},
	{"ekim", []string{"ekim", "ekimm"}},
	{"kasım", []string{"kasim", "kasimm"}},
	{"aralık", []string{"aralik", "aralikk"}},
}

// MonthName finds a month reference anywhere in the text and returns its
// canonical Turkish name.
func MonthName(s string) (string, bool) {
	s = Fold(s)
	for _, m := range canonicalMonths {
		for _, v := range m.variants {
			if strings.Contains(s, v) {
				return m.name, true
			}
		}
	}
	return "", false
}

// MonthIndex returns the 1-based calendar index of a canonical month name,
// or 0 when the name is unknown. Folded spellings are accepted.
func MonthIndex(name string) int {
	folded := Fold(name)
	for i, m := range canonicalMonths {
		if folded == Fold(m.name) {
			return i + 1
		}
	}
	return 0
}

var (
	clockDigits     = regexp.MustCompile(`(\d{1,2})[:.,\s]?(\d{2})?`)
	afternoonDigits = regexp.MustCompile(`\d{1,2}`)
)

// ClockTime resolves a spoken or written clock time to canonical "HH:MM".
// Rules are tried in a fixed order and the first match wins:
// midnight and afternoon idioms, the plain noon idiom, digit patterns,
// spoken numeral forms of one to three tokens, and finally "X buçuk" for
// half past. Note the afternoon idiom is checked before plain noon —
// "öğleden sonra" contains "öğle".
func ClockTime(s string) (string, bool) {
	s = strings.ReplaceAll(Clean(s), "-", " ")

	if strings.Contains(s, "gece yarisi") {
		return "00:00", true
	}
	if strings.Contains(s, "ogleden sonra") {
		if m := afternoonDigits.FindString(s); m != "" {
			h, _ := strconv.Atoi(m)
			if h < 12 {
				h += 12
			}
			return fmt.Sprintf("%02d:00", h), true
		}
	}
	if strings.Contains(s, "oglen") || strings.Contains(s, "ogle") {
		return "12:00", true
	}

	if m := clockDigits.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		min := 0
		if m[2] != "" {
			min, _ = strconv.Atoi(m[2])
		}
		if h <= 23 && min <= 59 {
			return fmt.Sprintf("%02d:%02d", h, min), true
		}
	}

	tokens := strings.Fields(s)
	switch len(tokens) {
	case 1:
		if h, ok := wordValue(tokens[0]); ok && h <= 23 {
			return fmt.Sprintf("%02d:00", h), true
		}
	case 2:
		// A tens+ones pair is a single hour ("on sekiz" → 18:00);
		// otherwise the two tokens are hour and minute ("sekiz on" → 08:10).
		if t, ok := tens[tokens[0]]; ok {
			if o, ok := ones[tokens[1]]; ok && t+o <= 23 {
				return fmt.Sprintf("%02d:00", t+o), true
			}
		}
		h, hok := wordValue(tokens[0])
		min, mok := wordValue(tokens[1])
		if hok && mok && h <= 23 && min <= 59 {
			return fmt.Sprintf("%02d:%02d", h, min), true
		}
	case 3:
		h, hok := wordValue(tokens[0])
		min, mok := wordPairValue(tokens[1], tokens[2])
		if hok && mok && h <= 23 && min <= 59 {
			return fmt.Sprintf("%02d:%02d", h, min), true
		}
	}

	if strings.Contains(s, "bucuk") {
		for _, tok := range tokens {
			if h, ok := wordValue(tok); ok && h <= 23 {
				return fmt.Sprintf("%02d:30", h), true
			}
		}
	}
	return "", false
}

// wordValue resolves a single numeral token from either table.
func wordValue(tok string) (int, bool) {
	if v, ok := ones[tok]; ok {
		return v, true
	}
	if v, ok := tens[tok]; ok {
		return v, true
	}
	return 0, false
}

// wordPairValue combines a tens+ones token pair ("kirk dort" → 44). A pair
// that is not tens-then-ones resolves as the sum of whatever parses.
func wordPairValue(a, b string) (int, bool) {
	if t, ok := tens[a]; ok {
		if o, ok := ones[b]; ok {
			return t + o, true
		}
		return t, true
	}
	va, aok := wordValue(a)
	vb, bok := wordValue(b)
	if aok && bok {
		return va + vb, true
	}
	if aok {
		return va, true
	}
	return 0, false
}

var (
	absoluteYear    = regexp.MustCompile(`\b(20\d{2})\b`)
	yearsFromNowNum = regexp.MustCompile(`(\d+) yil sonra`)
)

// smallWordValues spell one through ten for the "N yıl sonra" idiom.
var smallWordValues = map[string]int{
	"bir": 1, "iki": 2, "uc": 3, "dort": 4, "bes": 5,
	"alti": 6, "yedi": 7, "sekiz": 8, "dokuz": 9, "on": 10,
}

// RelativeYear resolves a year reference against the given reference time.
// Tried in order: a literal 4-digit year in [2000, 2099], "N yıl sonra" with
// a digit or spoken N, a compound spoken year, and the this-year / next-year
// idioms.
func RelativeYear(s string, now time.Time) (int, bool) {
	s = Fold(s)

	if m := absoluteYear.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		return y, true
	}
	if m := yearsFromNowNum.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return now.Year() + n, true
	}
	for word, n := range smallWordValues {
		if strings.Contains(s, word+" yil sonra") {
			return now.Year() + n, true
		}
	}
	if y, ok := YearWordsToInt(s); ok && y > 1900 && y < 2100 {
		return y, true
	}
	switch {
	case strings.Contains(s, "bu yil"), strings.Contains(s, "bu sene"),
		strings.Contains(s, "su anki yil"):
		return now.Year(), true
	case strings.Contains(s, "seneye"), strings.Contains(s, "gelecek yil"),
		strings.Contains(s, "onumuzdeki yil"), strings.Contains(s, "gelecek sene"),
		strings.Contains(s, "onumuzdeki sene"):
		return now.Year() + 1, true
	}
	return 0, false
}

// weekdays in folded spelling, Monday first to match time.Weekday offsets
// below.
var weekdays = []string{
	"pazartesi", "sali", "carsamba", "persembe", "cuma", "cumartesi", "pazar",
}

// DateFromText resolves "bugün", "yarın", or a weekday name to an ISO date
// relative to now. A weekday matching today means the same day next week.
func DateFromText(s string, now time.Time) (string, bool) {
	s = Fold(s)
	if strings.Contains(s, "bugun") {
		return now.Format("2006-01-02"), true
	}
	if strings.Contains(s, "yarin") {
		return now.AddDate(0, 0, 1).Format("2006-01-02"), true
	}
	todayIdx := (int(now.Weekday()) + 6) % 7 // Monday = 0
	for i, day := range weekdays {
		if strings.Contains(s, day) {
			delta := (i - todayIdx + 7) % 7
			if delta == 0 {
				delta = 7
			}
			return now.AddDate(0, 0, delta).Format("2006-01-02"), true
		}
	}
	return "", false
}

// spokenOnes and spokenTens keep the proper diacritics for text sent to the
// speech synthesizer.
var spokenOnes = []string{"", "bir", "iki", "üç", "dört", "beş", "altı", "yedi", "sekiz", "dokuz"}
var spokenTens = []string{"", "on", "yirmi", "otuz", "kırk", "elli", "altmış", "yetmiş", "seksen", "doksan"}

// YearToWords renders a year as spoken Turkish ("2025" → "iki bin yirmi
// beş") for confirmation prompts. Years outside [1000, 2999] fall back to
// digits.
func YearToWords(year int) string {
	if year < 1000 || year > 2999 {
		return strconv.Itoa(year)
	}
	// "bin" and "yüz" stand alone for one thousand and one hundred.
	var parts []string
	if th := year / 1000; th > 0 {
		if th > 1 {
			parts = append(parts, spokenOnes[th])
		}
		parts = append(parts, "bin")
	}
	if h := (year % 1000) / 100; h > 0 {
		if h > 1 {
			parts = append(parts, spokenOnes[h])
		}
		parts = append(parts, "yüz")
	}
	if t := (year % 100) / 10; t > 0 {
		parts = append(parts, spokenTens[t])
	}
	if o := year % 10; o > 0 {
		parts = append(parts, spokenOnes[o])
	}
	return strings.Join(parts, " ")
}

// SpokenDate renders an ISO date in natural spoken form
// ("2025-06-05" → "5 haziran iki bin yirmi beş"). Unparseable input is
// returned unchanged.
func SpokenDate(isoDate string) string {
	t, err := time.Parse("2006-01-02", isoDate)
	if err != nil {
		return isoDate
	}
	month := canonicalMonths[int(t.Month())-1].name
	return fmt.Sprintf("%d %s %s", t.Day(), month, YearToWords(t.Year()))
}
