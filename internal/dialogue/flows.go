package dialogue

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sudeakyildz/sesli-asistan/internal/normalize"
	"github.com/sudeakyildz/sesli-asistan/internal/store"
)

// runAdd collects type, date, year, time, and description, then commits.
func (m *Manager) runAdd(ctx context.Context, session *Session) (Outcome, error) {
	title, err := m.ask(ctx,
		"Hangi türde görev eklemek istersiniz? İş mi, toplantı mı?",
		"Lütfen sadece 'iş' veya 'toplantı' olarak belirtin.",
		extractTaskType)
	if err != nil {
		return m.finish(ctx, err)
	}
	session.Slots[SlotTitle] = title

	day, month, err := m.askDayMonth(ctx, "eklemek istersiniz")
	if err != nil {
		return m.finish(ctx, err)
	}

	year, err := m.askYear(ctx)
	if err != nil {
		return m.finish(ctx, err)
	}
	session.Slots[SlotYear] = strconv.Itoa(year)

	date, ok := buildDate(year, month, day)
	if !ok {
		m.speak(ctx, "Tarihi anlayamadım. Lütfen işlemi baştan deneyin.")
		return Outcome{Kind: GaveUp}, nil
	}
	session.Slots[SlotDate] = date

	timeOfDay, err := m.askAddTime(ctx, date, title)
	if err != nil {
		return m.finish(ctx, err)
	}
	session.Slots[SlotTime] = timeOfDay

	description, err := m.askDescription(ctx)
	if err != nil {
		return m.finish(ctx, err)
	}
	session.Slots[SlotDescription] = description

	if _, err := m.tasks.AddTask(ctx, title, description, date, timeOfDay); err != nil {
		m.speak(ctx, "İşlem tamamlanamadı, görev kaydedilemedi.")
		return Outcome{Kind: StoreFailed}, nil
	}
	m.speak(ctx, fmt.Sprintf("'%s' görevi, %s %s eklendi.",
		title, normalize.SpokenDate(date), timeOfDay))
	return Outcome{Kind: Committed}, nil
}

// runDeleteOrComplete locates a task by spoken date and time, then deletes
// it or marks it done.
func (m *Manager) runDeleteOrComplete(ctx context.Context, session *Session) (Outcome, error) {
	verb := "silmek istiyorsunuz"
	if session.Flow == FlowComplete {
		verb = "tamamlandı olarak işaretlemek istiyorsunuz"
	}

	day, month, err := m.askDayMonth(ctx, verb)
	if err != nil {
		return m.finish(ctx, err)
	}

	year, err := m.askYear(ctx)
	if err != nil {
		return m.finish(ctx, err)
	}
	session.Slots[SlotYear] = strconv.Itoa(year)

	date, ok := buildDate(year, month, day)
	if !ok {
		m.speak(ctx, "Tarihi anlayamadım. Lütfen işlemi baştan deneyin.")
		return Outcome{Kind: GaveUp}, nil
	}
	session.Slots[SlotDate] = date

	timeOfDay, resolved, err := m.askLookupTime(ctx, verb)
	if err != nil {
		return m.finish(ctx, err)
	}

	var task *store.Task
	var lookupErr error
	if resolved {
		session.Slots[SlotTime] = timeOfDay
		task, lookupErr = m.tasks.GetTaskByDatetime(ctx, date, timeOfDay, "")
	} else {
		// The time was never understood; fall back to the most recent
		// task as the best approximation.
		task, lookupErr = m.tasks.GetLastTask(ctx)
	}

	if lookupErr == store.ErrNotFound {
		m.speak(ctx, "Böyle bir görev bulunamadı.")
		return Outcome{Kind: NotFound}, nil
	}
	if lookupErr != nil {
		m.speak(ctx, "İşlem tamamlanamadı, takvime ulaşılamadı.")
		return Outcome{Kind: StoreFailed}, nil
	}

	spokenWhen := normalize.SpokenDate(date)
	if session.Flow == FlowDelete {
		if err := m.tasks.DeleteTask(ctx, task.ID); err != nil {
			m.speak(ctx, "İşlem tamamlanamadı, görev silinemedi.")
			return Outcome{Kind: StoreFailed}, nil
		}
		m.speak(ctx, fmt.Sprintf("'%s' görevi, %s %s silindi.", task.Title, spokenWhen, task.Time))
	} else {
		if err := m.tasks.MarkTaskCompleted(ctx, task.ID); err != nil {
			m.speak(ctx, "İşlem tamamlanamadı, görev güncellenemedi.")
			return Outcome{Kind: StoreFailed}, nil
		}
		m.speak(ctx, fmt.Sprintf("'%s' görevi, %s %s tamamlandı olarak işaretlendi.", task.Title, spokenWhen, task.Time))
	}
	return Outcome{Kind: Committed}, nil
}

// finish converts a prompt-helper error into a terminal outcome or a real
// error, speaking the give-up apology where that is how the flow ended.
func (m *Manager) finish(ctx context.Context, err error) (Outcome, error) {
	if outcome, ok := terminalOutcome(err); ok {
		if outcome.Kind == GaveUp {
			m.speak(ctx, "Üzgünüm, anlayamadım. İşlemi iptal ediyorum.")
		}
		return outcome, nil
	}
	return Outcome{}, err
}

// askDayMonth collects day and month together ("5 haziran"), sub-prompting
// for whichever half is missing when the answer resolved only one.
func (m *Manager) askDayMonth(ctx context.Context, verb string) (day int, month string, err error) {
	answer, err := m.ask(ctx,
		fmt.Sprintf("Hangi günü ve ayı %s? (örn: 5 Haziran)", verb),
		"Tarihi anlayamadım. Lütfen tekrar ve net bir şekilde söyleyin. (örn: 5 Haziran)",
		func(clean string) (string, bool) {
			_, dayOK := normalize.WordOrDigitToInt(clean)
			_, monthOK := normalize.MonthName(clean)
			if !dayOK && !monthOK {
				return "", false
			}
			return clean, true
		})
	if err != nil {
		return 0, "", err
	}

	day, dayOK := normalize.WordOrDigitToInt(answer)
	month, monthOK := normalize.MonthName(answer)

	if monthOK && !dayOK {
		dayAnswer, err := m.ask(ctx,
			fmt.Sprintf("Hangi günü %s ayı için belirtmek istersiniz? (örn: 5)", month),
			"Günü anlayamadım. Lütfen tekrar söyleyin. (örn: 5)",
			func(clean string) (string, bool) {
				if d, ok := normalize.WordOrDigitToInt(clean); ok && d >= 1 && d <= 31 {
					return strconv.Itoa(d), true
				}
				return "", false
			})
		if err != nil {
			return 0, "", err
		}
		day, _ = strconv.Atoi(dayAnswer)
	}
	if dayOK && !monthOK {
		month, err = m.ask(ctx,
			"Hangi ayı belirtmek istersiniz? (örn: Haziran)",
			"Ayı anlayamadım. Lütfen tekrar söyleyin. (örn: Haziran)",
			func(clean string) (string, bool) { return normalize.MonthName(clean) })
		if err != nil {
			return 0, "", err
		}
	}
	return day, month, nil
}

// askYear collects a year via the relative-year resolver.
func (m *Manager) askYear(ctx context.Context) (int, error) {
	answer, err := m.ask(ctx,
		"Hangi yıldan bahsediyoruz? (örn: bu yıl, seneye)",
		"Yılı anlayamadım. Lütfen tekrar ve net bir şekilde söyleyin. (örn: bu yıl, seneye)",
		func(clean string) (string, bool) {
			if y, ok := normalize.RelativeYear(clean, m.now()); ok {
				return strconv.Itoa(y), true
			}
			return "", false
		})
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(answer)
}

// askLookupTime collects the clock time identifying a delete/complete
// target. Unlike the other slots, exhausting the retry budget does not abort
// the flow — it reports the time as unresolved so the caller can fall back
// to the most recent task.
func (m *Manager) askLookupTime(ctx context.Context, verb string) (timeOfDay string, resolved bool, err error) {
	timeOfDay, err = m.ask(ctx,
		fmt.Sprintf("Hangi saatteki görevi %s? (örn: 17:00)", verb),
		"Saati anlayamadım. Lütfen tekrar ve net bir şekilde söyleyin. (örn: 17:00)",
		func(clean string) (string, bool) { return normalize.ClockTime(clean) })
	if err == nil {
		return timeOfDay, true, nil
	}
	if outcome, ok := terminalOutcome(err); ok && outcome.Kind == GaveUp {
		m.speak(ctx, "Saati çözemedim, son kaydedilen görevinize bakıyorum.")
		return "", false, nil
	}
	return "", false, err
}

// askAddTime collects a clock time for the add flow, re-asking while the
// chosen slot collides with an existing task.
func (m *Manager) askAddTime(ctx context.Context, date, title string) (string, error) {
	return m.ask(ctx,
		"Hangi saatte eklemek istersiniz? (örn: 14:00, 09:30)",
		"Saati anlayamadım. Lütfen tekrar ve net bir şekilde söyleyin. (örn: 14:00, 09:30)",
		func(clean string) (string, bool) {
			timeOfDay, ok := normalize.ClockTime(clean)
			if !ok {
				return "", false
			}
			if _, err := m.tasks.GetTaskByDatetime(ctx, date, timeOfDay, title); err == nil {
				m.speak(ctx, "Bu gün ve saatte başka bir planınız var. Lütfen başka bir saat veya gün söyleyin.")
				return "", false
			}
			return timeOfDay, true
		})
}

// askDescription collects the optional free-text description. A single
// listen: silence means no description. The cancellation and redirect checks
// still run — only an answer that matches no command becomes free text.
func (m *Manager) askDescription(ctx context.Context) (string, error) {
	m.speak(ctx, "Bir açıklama eklemek ister misiniz? (Yoksa boş bırakabilirsiniz)")
	raw, err := m.listener.Listen(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", nil
	}
	clean := normalize.Clean(raw)
	if strings.Contains(clean, cancelWord) {
		m.speak(ctx, "İşlem iptal edildi. Size başka nasıl yardımcı olabilirim?")
		return "", &errTerminal{Outcome{Kind: Cancelled}}
	}
	if _, ok := m.matcher.Match(ctx, clean); ok {
		return "", &errTerminal{Outcome{Kind: Redirected, Utterance: raw}}
	}
	return strings.TrimSpace(raw), nil
}

// extractTaskType recognizes the two task categories.
func extractTaskType(clean string) (string, bool) {
	if clean == "is" {
		return "iş", true
	}
	if strings.Contains(clean, "toplanti") {
		return "toplantı", true
	}
	return "", false
}

// buildDate assembles an ISO date and rejects impossible combinations like
// 31 şubat.
func buildDate(year int, month string, day int) (string, bool) {
	monthIdx := normalize.MonthIndex(month)
	if monthIdx == 0 || day < 1 || day > 31 {
		return "", false
	}
	t := time.Date(year, time.Month(monthIdx), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != monthIdx {
		return "", false
	}
	return t.Format("2006-01-02"), true
}
