package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/wod-scheduler/internal/booking"
	"github.com/example/wod-scheduler/internal/config"
	"github.com/example/wod-scheduler/internal/history"
	"github.com/example/wod-scheduler/internal/ledger"
	"github.com/example/wod-scheduler/internal/schedule"
	"github.com/example/wod-scheduler/internal/telemetry"
)

// Task books one user's recurring slot on one weekday, forever. Each
// loop iteration computes the next target date, waits for the booking
// window to open (7 days ahead, at the slot time plus one minute),
// attempts the booking with waiting-list fallback, and records the
// result in the ledger so a restart never re-books.
type Task struct {
	Provider booking.Provider
	Ledger   *ledger.Ledger
	Status   *StatusTable
	History  *history.Store
	Metrics  *telemetry.Metrics
	Logger   zerolog.Logger

	User     config.User
	Day      string // lowercase weekday name
	Weekday  time.Weekday
	SlotTime string // as configured, "HH:MM:SS" or "HH:MM"
	Activity string
	Loc      *time.Location

	RetryDelay time.Duration

	// booking window time of day: slot time + 1 minute
	openHour, openMin, openSec int

	// previous iteration's ledger key, for missed-window detection
	prevKey string

	// injectable for tests
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewTask validates the slot spec and prepares a task. It fails only on
// configuration errors (unknown weekday, unparseable time); the caller
// skips the task with a warning in that case.
func NewTask(user config.User, day string, spec config.SlotSpec, loc *time.Location) (*Task, error) {
	weekday, ok := schedule.ParseWeekday(day)
	if !ok {
		return nil, fmt.Errorf("unknown day %q", day)
	}
	h, m, s, ok := schedule.ParseTimeOfDay(spec.Time)
	if !ok {
		return nil, fmt.Errorf("cannot parse slot time %q", spec.Time)
	}
	t := &Task{
		User:       user,
		Day:        strings.ToLower(strings.TrimSpace(day)),
		Weekday:    weekday,
		SlotTime:   strings.TrimSpace(spec.Time),
		Activity:   spec.Activity,
		Loc:        loc,
		RetryDelay: time.Minute,
		now:        time.Now,
		sleep:      sleepCtx,
	}
	// window opens one minute after the slot's own time of day
	t.openHour, t.openMin, t.openSec = h, m+1, s
	if t.openMin >= 60 {
		t.openMin -= 60
		t.openHour = (t.openHour + 1) % 24
	}
	return t, nil
}

// Key identifies the task in the status table.
func (t *Task) Key() string { return t.User.Name + ":" + t.Day }

// Run loops until ctx is cancelled.
func (t *Task) Run(ctx context.Context) error {
	t.Logger.Info().Str("user", t.User.Name).Str("day", t.Day).
		Str("time", t.SlotTime).Str("activity", t.Activity).Msg("booking task started")
	for {
		if err := t.iterate(ctx); err != nil {
			return err
		}
	}
}

// iterate runs one pass of the loop; the only error it returns is ctx
// cancellation from one of the sleeps.
func (t *Task) iterate(ctx context.Context) error {
	now := t.now().In(t.Loc)
	today := schedule.Midnight(now)
	targetDate := schedule.NextWeekday(today, t.Weekday)
	opensAt := schedule.At(targetDate.AddDate(0, 0, -7), t.openHour, t.openMin, t.openSec)
	nextWindow := schedule.At(targetDate, t.openHour, t.openMin, t.openSec)
	key := ledger.Key(t.User.Login, targetDate, t.SlotTime)

	// Rolled over to a new target without completing the previous one:
	// the missed week is abandoned, surface that in the log.
	if t.prevKey != "" && t.prevKey != key && !t.Ledger.Contains(t.prevKey) {
		t.Logger.Warn().Str("user", t.User.Name).Str("slot", t.prevKey).
			Msg("booking window passed without success, moving to next week")
	}
	t.prevKey = key

	entry := Entry{
		UserName:   t.User.Name,
		Day:        capitalize(t.Day),
		Time:       t.SlotTime,
		TargetDate: schedule.ISODate(targetDate),
		OpensAt:    opensAt.Format("2006-01-02 15:04"),
	}
	setStatus := func(status string) {
		entry.Status = status
		t.Status.Set(t.Key(), entry)
	}

	// Already handled for this target date, park until the next window.
	if t.Ledger.Contains(key) {
		setStatus("booked")
		return t.sleepUntil(ctx, nextWindow)
	}

	setStatus("scheduled")
	if opensAt.After(now) {
		t.Logger.Info().Str("user", t.User.Name).Str("day", t.Day).
			Str("opens_at", entry.OpensAt).Str("target", entry.TargetDate).
			Msg("waiting for booking window")
		if err := t.sleep(ctx, opensAt.Sub(now)); err != nil {
			return err
		}
	}

	setStatus("booking...")
	outcome, err := t.attempt(ctx, targetDate)
	t.record(targetDate, outcome, err)
	if err != nil {
		t.Logger.Error().Err(err).Str("user", t.User.Name).Str("day", t.Day).
			Str("target", entry.TargetDate).Msg("booking attempt error")
		setStatus("error: " + err.Error())
		return t.sleep(ctx, t.RetryDelay)
	}

	switch outcome.Kind {
	case OutcomeBooked:
		t.Logger.Info().Str("user", t.User.Name).Str("day", t.Day).
			Str("target", entry.TargetDate).Msg("booked")
		t.Ledger.Insert(key)
		setStatus("booked")
	case OutcomeAlreadyBooked:
		t.Logger.Info().Str("user", t.User.Name).Str("day", t.Day).
			Str("target", entry.TargetDate).Msg("already booked")
		t.Ledger.Insert(key)
		setStatus("already booked")
	case OutcomeWaitingList:
		t.Logger.Info().Str("user", t.User.Name).Str("day", t.Day).
			Str("target", entry.TargetDate).Msg("joined waiting list")
		t.Ledger.Insert(key)
		setStatus("full, joined waiting list")
	case OutcomeSlotNotFound:
		t.Logger.Warn().Str("user", t.User.Name).Str("day", t.Day).
			Str("target", entry.TargetDate).Msg("slot not found")
		setStatus("slot not found")
		return t.sleep(ctx, t.RetryDelay)
	case OutcomeFailed:
		t.Logger.Warn().Str("user", t.User.Name).Str("day", t.Day).
			Str("target", entry.TargetDate).Str("reason", outcome.Message).Msg("booking failed")
		setStatus("failed: " + outcome.Message)
		return t.sleep(ctx, t.RetryDelay)
	}

	// Handled, park until the next weekly window.
	return t.sleepUntil(ctx, nextWindow)
}

// attempt runs the booking procedure for targetDate: check existing
// bookings, find the slot, book it, fall back to the waiting list.
func (t *Task) attempt(ctx context.Context, targetDate time.Time) (Outcome, error) {
	sess, err := t.Provider.Login(ctx, t.User.Login, t.User.Password)
	if err != nil {
		return Outcome{}, err
	}

	existing, err := sess.Bookings(ctx)
	if err != nil {
		return Outcome{}, err
	}
	targetYMD := schedule.ISODate(targetDate)
	for _, b := range existing.Bookings {
		if strings.Contains(b.Start, targetYMD) && strings.Contains(b.Start, t.SlotTime) &&
			b.MatchesActivity(t.Activity) {
			return Outcome{Kind: OutcomeAlreadyBooked}, nil
		}
	}

	slots, err := sess.Slots(ctx, targetDate)
	if err != nil {
		return Outcome{}, err
	}
	slot, ok := booking.FindSlot(slots, t.SlotTime, t.Activity)
	if !ok {
		return Outcome{Kind: OutcomeSlotNotFound}, nil
	}

	res, err := sess.Book(ctx, slot.ID)
	if err != nil {
		return Outcome{}, err
	}
	if res.Success {
		return Outcome{Kind: OutcomeBooked}, nil
	}

	t.Logger.Info().Str("user", t.User.Name).Str("slot", slot.ID).
		Str("reason", res.Message).Msg("direct booking refused, trying waiting list")
	wl, err := sess.BookWaitingList(ctx, slot.ID)
	if err != nil {
		return Outcome{}, err
	}
	if wl.Success {
		return Outcome{Kind: OutcomeWaitingList}, nil
	}
	return Outcome{Kind: OutcomeFailed, Message: res.Message}, nil
}

func (t *Task) record(targetDate time.Time, outcome Outcome, err error) {
	label := "error"
	message := ""
	if err != nil {
		message = err.Error()
	} else {
		label = outcome.Kind.String()
		message = outcome.Message
	}
	t.Metrics.RecordAttempt(label)
	t.History.Record(history.Attempt{
		At:         t.now(),
		UserName:   t.User.Name,
		Day:        t.Day,
		TargetDate: schedule.ISODate(targetDate),
		SlotTime:   t.SlotTime,
		Outcome:    label,
		Message:    message,
	})
}

// sleepUntil sleeps until at, or one retry delay when at is already in
// the past.
func (t *Task) sleepUntil(ctx context.Context, at time.Time) error {
	d := at.Sub(t.now())
	if d <= 0 {
		d = t.RetryDelay
	}
	return t.sleep(ctx, d)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
