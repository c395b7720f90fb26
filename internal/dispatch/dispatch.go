// Package dispatch implements the assistant's top-level turn loop.
//
// Each turn is: listen → match an intent → act → speak the response. Task
// intents are delegated to the dialogue manager; everything else resolves to
// a single spoken reply, a device adjustment, a store query, or an external
// program. A redirected dialogue answer re-enters the matcher so "görev sil"
// spoken at a prompt behaves exactly like "görev sil" spoken at the top.
package dispatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/sudeakyildz/sesli-asistan/internal/asr"
	"github.com/sudeakyildz/sesli-asistan/internal/device"
	"github.com/sudeakyildz/sesli-asistan/internal/dialogue"
	"github.com/sudeakyildz/sesli-asistan/internal/intent"
	"github.com/sudeakyildz/sesli-asistan/internal/normalize"
	"github.com/sudeakyildz/sesli-asistan/internal/store"
	"github.com/sudeakyildz/sesli-asistan/internal/tts"
	"github.com/sudeakyildz/sesli-asistan/internal/weather"
)

// maxRedirects bounds how many times one utterance may be re-dispatched when
// dialogue answers keep turning out to be top-level commands.
const maxRedirects = 3

// videoID extracts the first watch id from a results page.
var videoID = regexp.MustCompile(`watch\?v=([\w-]{11})`)

// Options collects the assistant's collaborators and tunables.
type Options struct {
	Listener asr.Listener
	Speaker  tts.Speaker
	Matcher  *intent.Matcher
	Flows    *dialogue.Manager
	Tasks    store.Store
	Devices  device.Controller
	Weather  *weather.Client // nil when no API key is configured

	VolumeStep     int
	BrightnessStep int

	MusicSearchURL string
	MusicWatchURL  string
	OpenerCommand  string
	CalendarCmd    string

	// Ready, when set, is flipped off while the microphone pipeline is
	// failing and back on once a turn succeeds. main wires it to the
	// health server's readiness flag.
	Ready func(bool)
}

// Assistant runs the listen/act/speak loop.
type Assistant struct {
	listener asr.Listener
	speaker  tts.Speaker
	matcher  *intent.Matcher
	flows    *dialogue.Manager
	tasks    store.Store
	devices  device.Controller
	weather  *weather.Client

	volumeStep     int
	brightnessStep int

	musicSearchURL string
	musicWatchURL  string
	openerCommand  string
	calendarCmd    string

	client *http.Client
	now    func() time.Time
	pick   func(n int) int
	ready  func(bool)

	player   *exec.Cmd // running music opener, nil when idle
	calendar *exec.Cmd // running calendar app, nil when closed
}

// New creates an Assistant.
func New(opts Options) *Assistant {
	volStep := opts.VolumeStep
	if volStep <= 0 {
		volStep = 10
	}
	briStep := opts.BrightnessStep
	if briStep <= 0 {
		briStep = 10
	}
	return &Assistant{
		listener:       opts.Listener,
		speaker:        opts.Speaker,
		matcher:        opts.Matcher,
		flows:          opts.Flows,
		tasks:          opts.Tasks,
		devices:        opts.Devices,
		weather:        opts.Weather,
		volumeStep:     volStep,
		brightnessStep: briStep,
		musicSearchURL: opts.MusicSearchURL,
		musicWatchURL:  opts.MusicWatchURL,
		openerCommand:  opts.OpenerCommand,
		calendarCmd:    opts.CalendarCmd,
		client:         &http.Client{Timeout: 10 * time.Second},
		now:            time.Now,
		pick:           rand.Intn,
		ready:          opts.Ready,
	}
}

// Run loops over turns until the user closes the session or the context is
// cancelled.
func (a *Assistant) Run(ctx context.Context) error {
	a.speak(ctx, "Merhaba, sizi dinliyorum.")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		text, err := a.listener.Listen(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err == io.EOF {
				return nil
			}
			slog.Warn("listening failed", "error", err)
			a.setReady(false)
			continue
		}
		a.setReady(true)
		if strings.TrimSpace(text) == "" {
			continue
		}

		done, err := a.Handle(ctx, text)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// Handle dispatches one utterance. It returns done=true when the utterance
// ended the session.
func (a *Assistant) Handle(ctx context.Context, utterance string) (bool, error) {
	for hop := 0; hop <= maxRedirects; hop++ {
		it, ok := a.matcher.Match(ctx, utterance)
		if !ok {
			a.speak(ctx, "Üzgünüm, sizi anlayamadım.")
			return false, nil
		}
		slog.Info("intent matched", "intent", it)

		if it.IsTaskFlow() {
			outcome, err := a.flows.Run(ctx, it)
			if err != nil {
				return false, err
			}
			if outcome.Kind == dialogue.Redirected {
				utterance = outcome.Utterance
				continue
			}
			return false, nil
		}

		return a.respond(ctx, it, utterance)
	}
	slog.Warn("redirect limit reached", "utterance", utterance)
	return false, nil
}

// respond acts on a non-flow intent.
func (a *Assistant) respond(ctx context.Context, it intent.Intent, utterance string) (bool, error) {
	switch it {
	case intent.Closing:
		a.speak(ctx, farewellReply.resolve(a.now(), a.pick))
		// Anything the session opened goes down with it.
		_ = a.Close()
		return true, nil

	case intent.VolumeUp:
		a.adjust(ctx, device.Volume, a.volumeStep)
	case intent.VolumeDown:
		a.adjust(ctx, device.Volume, -a.volumeStep)
	case intent.BrightnessUp:
		a.adjust(ctx, device.Brightness, a.brightnessStep)
	case intent.BrightnessDown:
		a.adjust(ctx, device.Brightness, -a.brightnessStep)

	case intent.PlayMusic:
		a.playMusic(ctx)
	case intent.StopMusic:
		a.stopMusic(ctx)

	case intent.Weather:
		a.reportWeather(ctx)
	case intent.TimeQuery:
		a.speak(ctx, clockReply.resolve(a.now(), a.pick))

	case intent.CalendarOpen:
		a.openCalendar(ctx)
	case intent.CalendarClose:
		a.closeCalendar(ctx)

	case intent.MeetingQuery:
		a.listAgenda(ctx, utterance, true)
	case intent.AgendaQuery:
		a.listAgenda(ctx, utterance, false)
	case intent.PlanQuery:
		a.listPlans(ctx)

	default:
		// Labels produced by the statistical classifier.
		if reply, ok := cannedReplies[it]; ok {
			a.speak(ctx, reply.resolve(a.now(), a.pick))
		} else {
			a.speak(ctx, "Üzgünüm, sizi anlayamadım.")
		}
	}
	return false, nil
}

// adjust applies a device delta and speaks the status.
func (a *Assistant) adjust(ctx context.Context, kind device.Kind, delta int) {
	status, err := a.devices.Adjust(ctx, kind, delta)
	if err != nil {
		a.speak(ctx, "İşlem gerçekleştirilemedi.")
		return
	}
	a.speak(ctx, status)
}

// playMusic asks for a song, searches for it, and opens the first result.
func (a *Assistant) playMusic(ctx context.Context) {
	a.speak(ctx, "Hangi şarkıyı açmamı istersiniz?")
	query, err := a.listener.Listen(ctx)
	if err != nil || strings.TrimSpace(query) == "" {
		a.speak(ctx, "Şarkı ismini anlayamadım.")
		return
	}

	id, err := a.searchVideo(ctx, query)
	if err != nil {
		slog.Warn("music search failed", "error", err)
		a.speak(ctx, "Şarkı aranırken bir sorun oluştu.")
		return
	}

	if a.player != nil && a.player.Process != nil {
		_ = a.player.Process.Kill()
		a.player = nil
	}

	opener := strings.Fields(a.openerCommand)
	if len(opener) == 0 {
		a.speak(ctx, "Müzik açmak için bir komut yapılandırılmamış.")
		return
	}
	args := append(opener[1:], a.musicWatchURL+id)
	cmd := exec.Command(opener[0], args...)
	if err := cmd.Start(); err != nil {
		slog.Warn("opener command failed", "error", err)
		a.speak(ctx, "Şarkı açılamadı.")
		return
	}
	a.player = cmd
	a.speak(ctx, fmt.Sprintf("'%s' açılıyor.", strings.TrimSpace(query)))
}

// searchVideo scrapes the first video id off the results page.
func (a *Assistant) searchVideo(ctx context.Context, query string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		a.musicSearchURL+url.QueryEscape(strings.TrimSpace(query)), nil)
	if err != nil {
		return "", fmt.Errorf("creating search request: %w", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("music search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("music search failed (status %d)", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", fmt.Errorf("reading search results: %w", err)
	}
	m := videoID.FindSubmatch(body)
	if m == nil {
		return "", fmt.Errorf("no video found for %q", query)
	}
	return string(m[1]), nil
}

func (a *Assistant) stopMusic(ctx context.Context) {
	if a.player == nil || a.player.Process == nil {
		a.speak(ctx, "Şu anda çalan bir müzik yok.")
		return
	}
	if err := a.player.Process.Kill(); err != nil {
		slog.Warn("stopping player failed", "error", err)
	}
	_ = a.player.Wait()
	a.player = nil
	a.speak(ctx, "Müziği durduruyorum.")
}

func (a *Assistant) reportWeather(ctx context.Context) {
	if a.weather == nil {
		a.speak(ctx, "Hava durumu servisi yapılandırılmamış.")
		return
	}
	report, err := a.weather.Current(ctx)
	if err != nil {
		slog.Warn("weather lookup failed", "error", err)
		a.speak(ctx, "Hava durumu bilgisine şu anda ulaşamıyorum.")
		return
	}
	a.speak(ctx, report)
}

func (a *Assistant) openCalendar(ctx context.Context) {
	if a.calendarCmd == "" {
		a.speak(ctx, "Takvim uygulaması yapılandırılmamış.")
		return
	}
	if a.calendar != nil {
		a.speak(ctx, "Takvim zaten açık.")
		return
	}
	fields := strings.Fields(a.calendarCmd)
	cmd := exec.Command(fields[0], fields[1:]...)
	if err := cmd.Start(); err != nil {
		slog.Warn("calendar command failed", "error", err)
		a.speak(ctx, "Takvim açılamadı.")
		return
	}
	a.calendar = cmd
	a.speak(ctx, "Takvimi açıyorum.")
}

func (a *Assistant) closeCalendar(ctx context.Context) {
	if a.calendar == nil || a.calendar.Process == nil {
		a.speak(ctx, "Takvim zaten kapalı.")
		return
	}
	if err := a.calendar.Process.Kill(); err != nil {
		slog.Warn("closing calendar failed", "error", err)
	}
	_ = a.calendar.Wait()
	a.calendar = nil
	a.speak(ctx, "Takvimi kapatıyorum.")
}

// listPlans handles the open-ended "planlarım" question: the triggering
// utterance carries no date, so the assistant asks for one before listing.
// Silence or an unparseable answer falls back to today.
func (a *Assistant) listPlans(ctx context.Context) {
	a.speak(ctx, "Hangi tarihteki planınızı öğrenmek istiyorsunuz?")
	answer, err := a.listener.Listen(ctx)
	if err != nil {
		answer = ""
	}
	a.listAgenda(ctx, answer, false)
}

// listAgenda resolves the spoken date (today when none was said) and reads
// the matching tasks back.
func (a *Assistant) listAgenda(ctx context.Context, utterance string, meetingsOnly bool) {
	date, ok := normalize.DateFromText(normalize.Fold(utterance), a.now())
	if !ok {
		date = a.now().Format("2006-01-02")
	}

	var tasks []*store.Task
	var err error
	if meetingsOnly {
		tasks, err = a.tasks.GetMeetingsByDate(ctx, date)
	} else {
		tasks, err = a.tasks.GetAllTasksByDate(ctx, date)
	}
	if err != nil {
		slog.Warn("agenda lookup failed", "date", date, "error", err)
		a.speak(ctx, "İşlem tamamlanamadı, takvime ulaşılamadı.")
		return
	}

	spokenWhen := normalize.SpokenDate(date)
	if len(tasks) == 0 {
		if meetingsOnly {
			a.speak(ctx, fmt.Sprintf("%s için kayıtlı bir toplantınız yok.", spokenWhen))
		} else {
			a.speak(ctx, fmt.Sprintf("%s için kayıtlı bir göreviniz yok.", spokenWhen))
		}
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s için %d kayıt buldum. ", spokenWhen, len(tasks))
	for _, t := range tasks {
		when := t.Time
		if when == "" {
			when = "saat belirtilmemiş"
		}
		state := ""
		if t.Completed {
			state = ", tamamlandı"
		}
		fmt.Fprintf(&b, "%s, saat %s%s. ", t.Title, when, state)
	}
	a.speak(ctx, strings.TrimSpace(b.String()))
}

func (a *Assistant) setReady(up bool) {
	if a.ready != nil {
		a.ready(up)
	}
}

// speak logs rather than fails on TTS errors.
func (a *Assistant) speak(ctx context.Context, text string) {
	if err := a.speaker.Speak(ctx, text); err != nil {
		slog.Warn("speech output failed", "error", err)
	}
}

// Close stops any external programs the assistant started.
func (a *Assistant) Close() error {
	for _, cmd := range []*exec.Cmd{a.player, a.calendar} {
		if cmd != nil && cmd.Process != nil {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
		}
	}
	a.player, a.calendar = nil, nil
	return nil
}
