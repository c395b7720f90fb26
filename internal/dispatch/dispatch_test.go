package dispatch

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudeakyildz/sesli-asistan/internal/device"
	"github.com/sudeakyildz/sesli-asistan/internal/dialogue"
	"github.com/sudeakyildz/sesli-asistan/internal/intent"
	"github.com/sudeakyildz/sesli-asistan/internal/store"
)

type fakeListener struct {
	answers []string
	i       int
}

func (f *fakeListener) Listen(context.Context) (string, error) {
	if f.i >= len(f.answers) {
		return "", nil
	}
	a := f.answers[f.i]
	f.i++
	return a, nil
}

func (f *fakeListener) Close() error { return nil }

type fakeSpeaker struct {
	said []string
}

func (f *fakeSpeaker) Speak(_ context.Context, text string) error {
	f.said = append(f.said, text)
	return nil
}

func (f *fakeSpeaker) Close() error { return nil }

func (f *fakeSpeaker) saidContaining(sub string) bool {
	for _, s := range f.said {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

type fakeDevices struct {
	kinds  []device.Kind
	deltas []int
}

func (f *fakeDevices) Adjust(_ context.Context, kind device.Kind, delta int) (string, error) {
	f.kinds = append(f.kinds, kind)
	f.deltas = append(f.deltas, delta)
	return "Ayarlıyorum.", nil
}

type fakeStore struct {
	tasks []*store.Task
}

func (f *fakeStore) AddTask(_ context.Context, title, description, date, timeOfDay string) (*store.Task, error) {
	task := &store.Task{ID: int64(len(f.tasks) + 1), Title: title, Description: description, Date: date, Time: timeOfDay}
	f.tasks = append(f.tasks, task)
	return task, nil
}

func (f *fakeStore) DeleteTask(context.Context, int64) error        { return store.ErrNotFound }
func (f *fakeStore) MarkTaskCompleted(context.Context, int64) error { return store.ErrNotFound }

func (f *fakeStore) GetTaskByDatetime(_ context.Context, date, timeOfDay, title string) (*store.Task, error) {
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetLastTask(context.Context) (*store.Task, error) {
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetAllTasksByDate(_ context.Context, date string) ([]*store.Task, error) {
	var out []*store.Task
	for _, t := range f.tasks {
		if t.Date == date {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) GetMeetingsByDate(ctx context.Context, date string) ([]*store.Task, error) {
	tasks, _ := f.GetAllTasksByDate(ctx, date)
	var out []*store.Task
	for _, t := range tasks {
		if strings.Contains(t.Title, "toplantı") {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) Close() error { return nil }

func newTestAssistant(answers []string, tasks store.Store, devices device.Controller) (*Assistant, *fakeSpeaker) {
	listener := &fakeListener{answers: answers}
	speaker := &fakeSpeaker{}
	matcher := intent.New(nil)
	flows := dialogue.New(listener, speaker, matcher, tasks, 3)

	a := New(Options{
		Listener: listener,
		Speaker:  speaker,
		Matcher:  matcher,
		Flows:    flows,
		Tasks:    tasks,
		Devices:  devices,
	})
	a.now = func() time.Time {
		return time.Date(2025, time.June, 4, 10, 30, 0, 0, time.UTC)
	}
	a.pick = func(int) int { return 0 }
	return a, speaker
}

func TestHandleClosing(t *testing.T) {
	a, speaker := newTestAssistant(nil, &fakeStore{}, &fakeDevices{})

	done, err := a.Handle(context.Background(), "görüşürüz")
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, []string{farewellReply.oneOf[0]}, speaker.said)
}

func TestHandleDeviceAdjustments(t *testing.T) {
	devices := &fakeDevices{}
	a, speaker := newTestAssistant(nil, &fakeStore{}, devices)
	ctx := context.Background()

	for _, utterance := range []string{"sesi aç", "sesi kıs", "ekranı aç", "ışığı karart"} {
		done, err := a.Handle(ctx, utterance)
		require.NoError(t, err)
		assert.False(t, done)
	}

	assert.Equal(t, []device.Kind{device.Volume, device.Volume, device.Brightness, device.Brightness}, devices.kinds)
	assert.Equal(t, []int{10, -10, 10, -10}, devices.deltas)
	assert.True(t, speaker.saidContaining("Ayarlıyorum"))
}

func TestHandleTimeQuery(t *testing.T) {
	a, speaker := newTestAssistant(nil, &fakeStore{}, &fakeDevices{})

	done, err := a.Handle(context.Background(), "saat kaç")
	require.NoError(t, err)
	assert.False(t, done)
	assert.True(t, speaker.saidContaining("10:30"))
}

func TestHandleUnknownUtterance(t *testing.T) {
	a, speaker := newTestAssistant(nil, &fakeStore{}, &fakeDevices{})

	done, err := a.Handle(context.Background(), "fasulye tarifini oku")
	require.NoError(t, err)
	assert.False(t, done)
	assert.True(t, speaker.saidContaining("anlayamadım"))
}

func TestHandleAgendaQuery(t *testing.T) {
	tasks := &fakeStore{}
	_, err := tasks.AddTask(context.Background(), "toplantı", "", "2025-06-04", "09:00")
	require.NoError(t, err)
	_, err = tasks.AddTask(context.Background(), "iş", "", "2025-06-04", "15:00")
	require.NoError(t, err)

	a, speaker := newTestAssistant(nil, tasks, &fakeDevices{})

	done, err := a.Handle(context.Background(), "bugün görevlerim ne var")
	require.NoError(t, err)
	assert.False(t, done)
	assert.True(t, speaker.saidContaining("2 kayıt buldum"))

	speaker.said = nil
	done, err = a.Handle(context.Background(), "bugün toplantım var mı")
	require.NoError(t, err)
	assert.False(t, done)
	assert.True(t, speaker.saidContaining("1 kayıt buldum"))
	assert.True(t, speaker.saidContaining("toplantı"))
}

func TestHandleAgendaQueryEmptyDay(t *testing.T) {
	a, speaker := newTestAssistant(nil, &fakeStore{}, &fakeDevices{})

	done, err := a.Handle(context.Background(), "yarın işlerim ne var")
	require.NoError(t, err)
	assert.False(t, done)
	assert.True(t, speaker.saidContaining("kayıtlı bir göreviniz yok"))
}

func TestHandlePlanQueryAsksForDate(t *testing.T) {
	tasks := &fakeStore{}
	_, err := tasks.AddTask(context.Background(), "iş", "", "2025-06-05", "09:00")
	require.NoError(t, err)

	// "planlarım" names no date, so the assistant asks for one and resolves
	// the answer.
	a, speaker := newTestAssistant([]string{"yarın"}, tasks, &fakeDevices{})

	done, err := a.Handle(context.Background(), "planlarım neler")
	require.NoError(t, err)
	assert.False(t, done)
	assert.True(t, speaker.saidContaining("Hangi tarihteki planınızı"))
	assert.True(t, speaker.saidContaining("1 kayıt buldum"))
}

func TestHandlePlanQuerySilenceFallsBackToToday(t *testing.T) {
	tasks := &fakeStore{}
	_, err := tasks.AddTask(context.Background(), "iş", "", "2025-06-04", "09:00")
	require.NoError(t, err)

	a, speaker := newTestAssistant(nil, tasks, &fakeDevices{})

	done, err := a.Handle(context.Background(), "planlarım neler")
	require.NoError(t, err)
	assert.False(t, done)
	assert.True(t, speaker.saidContaining("1 kayıt buldum"))
}

func TestHandleCannedReply(t *testing.T) {
	a, speaker := newTestAssistant(nil, &fakeStore{}, &fakeDevices{})

	// Labels the statistical classifier would produce arrive through the
	// same dispatch path.
	done, err := a.respond(context.Background(), intent.Intent("how_are_you"), "nasılsın")
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, []string{cannedReplies["how_are_you"].oneOf[0]}, speaker.said)
}

func TestHandleSmallTalkLabels(t *testing.T) {
	for _, label := range []intent.Intent{
		"assistant_status", "user_feeling_happy", "user_feeling_tired",
	} {
		a, speaker := newTestAssistant(nil, &fakeStore{}, &fakeDevices{})

		done, err := a.respond(context.Background(), label, "")
		require.NoError(t, err)
		assert.False(t, done)

		want := cannedReplies[label].resolve(a.now(), a.pick)
		require.NotEmpty(t, want, "no reply configured for %s", label)
		assert.Equal(t, []string{want}, speaker.said)
	}
}

func TestReplyResolve(t *testing.T) {
	now := time.Date(2025, time.June, 4, 10, 30, 0, 0, time.UTC)
	first := func(int) int { return 0 }

	assert.Equal(t, "sabit", Literal("sabit").resolve(now, first))
	assert.Equal(t, "b", OneOf("a", "b").resolve(now, func(int) int { return 1 }))
	assert.Equal(t, "Saat şu anda 10:30.", clockReply.resolve(now, first))
}

func TestHandleRedirectedDialogueAnswer(t *testing.T) {
	// The answer to the first add-flow prompt is itself a top-level
	// command; the flow steps aside and the command runs.
	a, speaker := newTestAssistant([]string{"saat kaç"}, &fakeStore{}, &fakeDevices{})

	done, err := a.Handle(context.Background(), "toplantı ekle")
	require.NoError(t, err)
	assert.False(t, done)
	assert.True(t, speaker.saidContaining("10:30"))
}

func TestHandleWeatherUnconfigured(t *testing.T) {
	a, speaker := newTestAssistant(nil, &fakeStore{}, &fakeDevices{})

	done, err := a.Handle(context.Background(), "bugün hava nasıl")
	require.NoError(t, err)
	assert.False(t, done)
	assert.True(t, speaker.saidContaining("yapılandırılmamış"))
}

func TestStopMusicWithoutPlayer(t *testing.T) {
	a, speaker := newTestAssistant(nil, &fakeStore{}, &fakeDevices{})

	done, err := a.Handle(context.Background(), "müziği durdur")
	require.NoError(t, err)
	assert.False(t, done)
	assert.True(t, speaker.saidContaining("çalan bir müzik yok"))
}

// flakyListener fails a configured number of times, then replays answers,
// then signals end of input.
type flakyListener struct {
	failures int
	answers  []string
	i        int
}

func (f *flakyListener) Listen(context.Context) (string, error) {
	if f.failures > 0 {
		f.failures--
		return "", errors.New("capture failed")
	}
	if f.i >= len(f.answers) {
		return "", io.EOF
	}
	a := f.answers[f.i]
	f.i++
	return a, nil
}

func (f *flakyListener) Close() error { return nil }

func TestRunReportsReadiness(t *testing.T) {
	listener := &flakyListener{failures: 1, answers: []string{"saat kaç"}}
	speaker := &fakeSpeaker{}
	matcher := intent.New(nil)

	var states []bool
	a := New(Options{
		Listener: listener,
		Speaker:  speaker,
		Matcher:  matcher,
		Flows:    dialogue.New(listener, speaker, matcher, &fakeStore{}, 3),
		Tasks:    &fakeStore{},
		Devices:  &fakeDevices{},
		Ready:    func(up bool) { states = append(states, up) },
	})
	a.now = func() time.Time {
		return time.Date(2025, time.June, 4, 10, 30, 0, 0, time.UTC)
	}

	err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true}, states)
	assert.True(t, speaker.saidContaining("10:30"))
}
