package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeClassifier returns a fixed label or error.
type fakeClassifier struct {
	label string
	err   error
	calls int
}

func (f *fakeClassifier) Predict(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.label, f.err
}

func TestMatchRules(t *testing.T) {
	m := New(nil)
	ctx := context.Background()

	tests := []struct {
		name string
		in   string
		want Intent
	}{
		{"volume up", "sesi aç", VolumeUp},
		{"volume up word order", "biraz sesi yükselt", VolumeUp},
		{"volume down beats closing", "sesi kapat", VolumeDown},
		{"brightness up", "ekranı aç", BrightnessUp},
		{"brightness down", "ışığı karart", BrightnessDown},
		{"bare word brightness", "aç", BrightnessUp},
		{"bare word music", "müzik", PlayMusic},
		{"bare closing", "kapat", Closing},
		{"farewell phrase", "görüşürüz", Closing},
		{"music play", "bir şarkı çal", PlayMusic},
		{"music stop", "müziği durdur", StopMusic},
		{"weather", "bugün hava nasıl", Weather},
		{"clock", "saat kaç", TimeQuery},
		{"calendar open", "takvimi aç", CalendarOpen},
		{"calendar close", "takvimi kapat", CalendarClose},
		{"task add", "toplantı ekle", TaskAdd},
		{"task delete", "görevi sil", TaskDelete},
		{"task delete conjugated", "görevi silmek istiyorum", TaskDelete},
		{"task complete", "görev tamamlandı", TaskComplete},
		{"meeting query", "bugün toplantım var mı", MeetingQuery},
		{"agenda query", "yarın işlerim ne var", AgendaQuery},
		{"plan query", "planlarım neler", PlanQuery},
		{"dated agenda", "5 haziran görevlerimi söyle", AgendaQuery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Match(ctx, tt.in)
			assert.True(t, ok, "Match(%q) should fire", tt.in)
			assert.Equal(t, tt.want, got, "Match(%q)", tt.in)
		})
	}
}

func TestMatchNoRuleNoClassifier(t *testing.T) {
	m := New(nil)
	_, ok := m.Match(context.Background(), "nasılsın bakalım")
	assert.False(t, ok)

	_, ok = m.Match(context.Background(), "   ")
	assert.False(t, ok)
}

func TestMatchClassifierFallback(t *testing.T) {
	cls := &fakeClassifier{label: "how_are_you"}
	m := New(cls)

	got, ok := m.Match(context.Background(), "nasılsın bakalım")
	assert.True(t, ok)
	assert.Equal(t, Intent("how_are_you"), got)
	assert.Equal(t, 1, cls.calls)

	// A rule match never consults the classifier.
	cls.calls = 0
	got, ok = m.Match(context.Background(), "sesi aç")
	assert.True(t, ok)
	assert.Equal(t, VolumeUp, got)
	assert.Zero(t, cls.calls)
}

func TestMatchClassifierFailure(t *testing.T) {
	m := New(&fakeClassifier{err: errors.New("connection refused")})
	_, ok := m.Match(context.Background(), "nasılsın bakalım")
	assert.False(t, ok)
}

func TestIsTaskFlow(t *testing.T) {
	assert.True(t, TaskAdd.IsTaskFlow())
	assert.True(t, TaskDelete.IsTaskFlow())
	assert.True(t, TaskComplete.IsTaskFlow())
	assert.False(t, Weather.IsTaskFlow())
	assert.False(t, Closing.IsTaskFlow())
}
