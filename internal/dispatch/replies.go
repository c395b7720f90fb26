package dispatch

import (
	"time"

	"github.com/sudeakyildz/sesli-asistan/internal/intent"
)

// Reply is one response value: a fixed text, a random choice among
// alternatives, or a value computed at dispatch time. All three resolve
// through the same path.
type Reply struct {
	literal string
	oneOf   []string
	compute func(now time.Time) string
}

// Literal replies with fixed text.
func Literal(text string) Reply { return Reply{literal: text} }

// OneOf replies with a random alternative.
func OneOf(alternatives ...string) Reply { return Reply{oneOf: alternatives} }

// Computed replies with a value produced at dispatch time.
func Computed(fn func(now time.Time) string) Reply { return Reply{compute: fn} }

// resolve renders the reply text.
func (r Reply) resolve(now time.Time, pick func(n int) int) string {
	switch {
	case r.compute != nil:
		return r.compute(now)
	case len(r.oneOf) > 0:
		return r.oneOf[pick(len(r.oneOf))]
	default:
		return r.literal
	}
}

// farewellReply is spoken when the session closes.
var farewellReply = OneOf(
	"Görüşmek üzere!",
	"Hoşça kalın!",
	"Kendinize iyi bakın!",
)

// clockReply answers the time query with the current clock.
var clockReply = Computed(func(now time.Time) string {
	return "Saat şu anda " + now.Format("15:04") + "."
})

// cannedReplies answers the small-talk labels the statistical classifier
// produces when no rule matched.
var cannedReplies = map[intent.Intent]Reply{
	"greeting": OneOf(
		"Merhaba! Size nasıl yardımcı olabilirim?",
		"Merhaba, sizi dinliyorum.",
	),
	"how_are_you": OneOf(
		"İyiyim, teşekkür ederim. Siz nasılsınız?",
		"Gayet iyiyim, sorduğunuz için teşekkürler.",
	),
	"assistant_status": OneOf(
		"Komutlarınızı dinliyorum.",
		"Sizin için buradayım.",
	),
	"user_feeling_happy": OneOf(
		"Bunu duyduğuma çok sevindim!",
		"Harika! Enerjiniz bana da yansıdı.",
	),
	"user_feeling_tired": Literal(
		"Anlıyorum. Biraz dinlenmek iyi gelebilir.",
	),
	"thanks": OneOf(
		"Rica ederim!",
		"Ne demek, her zaman.",
	),
	"who_are_you": Literal(
		"Ben sesli asistanınızım. Takviminizi yönetebilir, müzik açabilir ve sorularınızı yanıtlayabilirim.",
	),
	"ask_joke": OneOf(
		"Bilgisayar neden denize girememiş? Çünkü Windows'u varmış.",
		"Matematik kitabı neden mutsuzmuş? Çünkü çok problemi varmış.",
	),
	"ask_quote": OneOf(
		"Hayatta en hakiki mürşit ilimdir.",
		"Başarı, hazırlık ile fırsatın buluştuğu yerdir.",
	),
}
