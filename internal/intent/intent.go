// Package intent maps a normalized utterance to one of the assistant's
// intent labels.
//
// Matching is an ordered, non-commutative rule cascade: specific
// keyword+verb combinations are checked before generic single-keyword rules,
// and the exact-phrase closing command is checked only after every device
// rule has had its chance — "sesi kapat" must lower the volume, never end
// the session. When no rule fires, the text is handed to an external
// statistical classifier whose label is used verbatim.
package intent

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/sudeakyildz/sesli-asistan/internal/normalize"
)

// Intent identifies what the user wants. The fixed labels below are produced
// by the rule table; the statistical fallback may return labels outside this
// set (small-talk categories it was trained on).
type Intent string

const (
	Closing        Intent = "closing"
	VolumeUp       Intent = "volume_up"
	VolumeDown     Intent = "volume_down"
	BrightnessUp   Intent = "brightness_up"
	BrightnessDown Intent = "brightness_down"
	PlayMusic      Intent = "play_music"
	StopMusic      Intent = "stop_music"
	Weather        Intent = "weather"
	TimeQuery      Intent = "time_query"
	CalendarOpen   Intent = "calendar_open"
	CalendarClose  Intent = "calendar_close"
	TaskAdd        Intent = "task_add"
	TaskDelete     Intent = "task_delete"
	TaskComplete   Intent = "task_complete"
	MeetingQuery   Intent = "meeting_query"
	AgendaQuery    Intent = "agenda_query"
	PlanQuery      Intent = "plan_query"
)

// IsTaskFlow reports whether the intent starts a multi-turn calendar flow.
func (i Intent) IsTaskFlow() bool {
	return i == TaskAdd || i == TaskDelete || i == TaskComplete
}

// Classifier is the statistical fallback consulted when no rule matches.
type Classifier interface {
	// Predict returns a label for the text. Any error means "no opinion".
	Predict(ctx context.Context, text string) (string, error)
}

// Matcher evaluates the rule table against utterances.
type Matcher struct {
	rules      []rule
	classifier Classifier // nil when no fallback model is configured
}

// rule pairs a name (for debug logging) with a predicate over folded text.
type rule struct {
	name  string
	match func(text string) (Intent, bool)
}

// New creates a Matcher. classifier may be nil.
func New(classifier Classifier) *Matcher {
	return &Matcher{rules: buildRules(), classifier: classifier}
}

// Match folds the utterance and walks the rule table top-down. The first
// matching rule wins and evaluation stops. When no rule fires, the
// classifier (if any) decides; classifier failures mean no intent. Pure
// query — acting on the label is the caller's job.
func (m *Matcher) Match(ctx context.Context, text string) (Intent, bool) {
	folded := normalize.Fold(text)
	if folded == "" {
		return "", false
	}

	for _, r := range m.rules {
		if label, ok := r.match(folded); ok {
			slog.Debug("intent rule matched", "rule", r.name, "intent", label)
			return label, true
		}
	}

	if m.classifier == nil {
		return "", false
	}
	label, err := m.classifier.Predict(ctx, folded)
	if err != nil || label == "" {
		if err != nil {
			slog.Debug("classifier unavailable", "error", err)
		}
		return "", false
	}
	slog.Debug("classifier predicted", "intent", label)
	return Intent(label), true
}

// containsAny reports whether text contains any of the given substrings.
func containsAny(text string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// hasToken reports whether text contains any of the given words as a whole
// token.
func hasToken(text string, words ...string) bool {
	for _, tok := range strings.Fields(text) {
		for _, w := range words {
			if tok == w {
				return true
			}
		}
	}
	return false
}

// deleteVerb tolerates the Turkish conjugation suffixes of "sil".
var deleteVerb = regexp.MustCompile(`\bsil( |$|in|i|iyor|mek|mesini|ecek|di|mis)`)

// dayMonthRef finds a "<day> <word>" pair such as "5 haziran".
var dayMonthRef = regexp.MustCompile(`\d{1,2} [a-z]+`)

// closingPhrases must match the whole utterance; substring matching would
// swallow device commands like "sesi kapat".
var closingPhrases = map[string]bool{
	"kapat":     true,
	"gorusuruz": true,
	"bay bay":   true,
	"hosca kal": true,
	"cikis":     true,
}

func buildRules() []rule {
	return []rule{
		// Bare "kapat" is deliberately absent here so the exact-phrase
		// closing rule below can claim it.
		{"bare-word", func(t string) (Intent, bool) {
			switch t {
			case "ac", "artir", "yukselt", "parlaklik", "parlak", "ses":
				return BrightnessUp, true
			case "kis", "azalt":
				return BrightnessDown, true
			case "sarki", "muzik":
				return PlayMusic, true
			}
			return "", false
		}},
		{"volume", func(t string) (Intent, bool) {
			if !strings.Contains(t, "ses") {
				return "", false
			}
			if containsAny(t, "ac", "yukselt", "artir") {
				return VolumeUp, true
			}
			if containsAny(t, "kis", "azalt", "dusur", "kapat", "alcalt", "sessize al") {
				return VolumeDown, true
			}
			return "", false
		}},
		{"brightness", func(t string) (Intent, bool) {
			// "isig" covers the softened accusative "ışığı".
			if !containsAny(t, "parlak", "ekran", "isik", "isig") {
				return "", false
			}
			if containsAny(t, "ac", "artir", "yukselt", "canlandir") {
				return BrightnessUp, true
			}
			if containsAny(t, "kis", "azalt", "dusur", "karart", "los", "kapat") {
				return BrightnessDown, true
			}
			return "", false
		}},
		{"music", func(t string) (Intent, bool) {
			// "muzig" covers the softened accusative "müziği".
			if !containsAny(t, "muzik", "muzig", "sarki") {
				return "", false
			}
			if containsAny(t, "ac", "cal", "oynat", "baslat") {
				return PlayMusic, true
			}
			if containsAny(t, "durdur", "kapat", "bitir", "sustur") {
				return StopMusic, true
			}
			return "", false
		}},
		{"weather", func(t string) (Intent, bool) {
			if containsAny(t, "hava durumu", "hava nasil") {
				return Weather, true
			}
			return "", false
		}},
		{"clock", func(t string) (Intent, bool) {
			if strings.Contains(t, "saat") {
				return TimeQuery, true
			}
			return "", false
		}},
		{"closing-exact", func(t string) (Intent, bool) {
			if closingPhrases[t] {
				return Closing, true
			}
			return "", false
		}},
		{"calendar-view", func(t string) (Intent, bool) {
			if !strings.Contains(t, "takvim") {
				return "", false
			}
			if strings.Contains(t, "ac") {
				return CalendarOpen, true
			}
			if strings.Contains(t, "kapat") {
				return CalendarClose, true
			}
			return "", false
		}},
		{"task-delete", func(t string) (Intent, bool) {
			if deleteVerb.MatchString(t) {
				return TaskDelete, true
			}
			return "", false
		}},
		{"task-complete", func(t string) (Intent, bool) {
			if strings.Contains(t, "tamamlandi") {
				return TaskComplete, true
			}
			return "", false
		}},
		{"task-add", func(t string) (Intent, bool) {
			if strings.Contains(t, "ekle") {
				return TaskAdd, true
			}
			return "", false
		}},
		{"agenda", func(t string) (Intent, bool) {
			// The folded form of "iş" is the two-letter "is", which is a
			// prefix of far too many Turkish words; match it only as a
			// whole token.
			subject := containsAny(t, "toplanti", "gorev", "islerim") || hasToken(t, "is", "isim")
			when := containsAny(t, "var mi", "bugun", "yarin", "ne var",
				"islerim", "gorevlerim",
				"pazartesi", "sali", "carsamba", "persembe", "cuma", "cumartesi", "pazar")
			if !subject || !when {
				return "", false
			}
			if strings.Contains(t, "toplanti") {
				return MeetingQuery, true
			}
			return AgendaQuery, true
		}},
		{"plan", func(t string) (Intent, bool) {
			if containsAny(t, "planim", "planlarim", "plan ne") {
				return PlanQuery, true
			}
			return "", false
		}},
		{"dated-agenda", func(t string) (Intent, bool) {
			if dayMonthRef.MatchString(t) &&
				(containsAny(t, "gorev", "toplanti", "plan") || hasToken(t, "is")) {
				return AgendaQuery, true
			}
			return "", false
		}},
	}
}
