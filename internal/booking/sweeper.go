package booking

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/teleclinic/telehealth-backend/internal/notify"
	"github.com/teleclinic/telehealth-backend/internal/redisclient"
)

const (
	autoCompleteJob = "auto-complete"
	reminderJob     = "reminders"
)

type AutoCompleteStats struct {
	Checked   int
	Completed int
	Failed    int
}

// AutoCompleter promotes scheduled consultations to completed once their
// appointment window has fully elapsed.
type AutoCompleter struct {
	consults ConsultationRepository
	locker   redisclient.Locker
	duration time.Duration // fixed appointment length
	loc      *time.Location
	log      *zap.Logger
}

func NewAutoCompleter(consults ConsultationRepository, locker redisclient.Locker, duration time.Duration, loc *time.Location, log *zap.Logger) *AutoCompleter {
	return &AutoCompleter{
		consults: consults,
		locker:   locker,
		duration: duration,
		loc:      loc,
		log:      log,
	}
}

// Run executes one sweep. Candidates are processed independently; a failure on
// one consultation never aborts the rest. A concurrent run holding the job
// lock turns this call into a logged no-op.
func (a *AutoCompleter) Run(ctx context.Context) (AutoCompleteStats, error) {
	var stats AutoCompleteStats

	err := a.locker.WithLock(ctx, redisclient.JobLockKey(autoCompleteJob), func(lockCtx context.Context) error {
		now := time.Now().In(a.loc)

		candidates, err := a.consults.ListScheduledThrough(lockCtx, now)
		if err != nil {
			return err
		}

		stats.Checked = len(candidates)

		for _, c := range candidates {
			start, err := c.StartInstant(a.loc)
			if err != nil {
				a.log.Warn("skipping consultation with unparseable start time",
					zap.String("consultation_id", c.ID.String()),
					zap.Error(err))
				stats.Failed++
				continue
			}

			end := start.Add(a.duration)
			if !end.Before(now) {
				continue
			}

			if _, err := a.consults.UpdateConsultationStatus(lockCtx, c.ID, StatusCompleted); err != nil {
				a.log.Error("auto-complete update failed",
					zap.String("consultation_id", c.ID.String()),
					zap.Error(err))
				stats.Failed++
				continue
			}

			a.log.Info("consultation auto-completed",
				zap.String("consultation_id", c.ID.String()),
				zap.String("date", c.Date.Format(dateFormat)),
				zap.String("start_time", c.StartTime))
			stats.Completed++
		}

		return nil
	})

	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		a.log.Warn("auto-complete sweep already in flight, skipping")
		return stats, nil
	}
	if err != nil {
		return stats, err
	}

	a.log.Info("auto-complete sweep finished",
		zap.Int("checked", stats.Checked),
		zap.Int("completed", stats.Completed),
		zap.Int("failed", stats.Failed))

	return stats, nil
}

type ReminderStats struct {
	Checked int
	Sent    int
	Skipped int
	Failed  int
}

// ReminderDispatcher notifies both participants of a scheduled consultation
// shortly before it starts. The persisted last_reminder_at claim makes the
// dispatch exactly-once per reminder window across overlapping runs and
// process restarts.
type ReminderDispatcher struct {
	consults ConsultationRepository
	notifier Notifier
	locker   redisclient.Locker
	lead     time.Duration // how far before start a reminder may fire
	grace    time.Duration // how far past start a reminder may still fire
	loc      *time.Location
	log      *zap.Logger
}

func NewReminderDispatcher(consults ConsultationRepository, notifier Notifier, locker redisclient.Locker, lead, grace time.Duration, loc *time.Location, log *zap.Logger) *ReminderDispatcher {
	return &ReminderDispatcher{
		consults: consults,
		notifier: notifier,
		locker:   locker,
		lead:     lead,
		grace:    grace,
		loc:      loc,
		log:      log,
	}
}

// Run executes one sweep over today's and tomorrow's scheduled consultations.
// Notification failures are logged, never propagated.
func (r *ReminderDispatcher) Run(ctx context.Context) (ReminderStats, error) {
	var stats ReminderStats

	err := r.locker.WithLock(ctx, redisclient.JobLockKey(reminderJob), func(lockCtx context.Context) error {
		now := time.Now().In(r.loc)
		dates := []time.Time{now, now.AddDate(0, 0, 1)}

		candidates, err := r.consults.ListScheduledOnDates(lockCtx, dates)
		if err != nil {
			return err
		}

		stats.Checked = len(candidates)

		// A reminder stamped after windowStart belongs to the current window
		// and must not be repeated.
		windowStart := now.Add(-(r.lead + r.grace))

		for _, c := range candidates {
			start, err := c.StartInstant(r.loc)
			if err != nil {
				r.log.Warn("skipping consultation with unparseable start time",
					zap.String("consultation_id", c.ID.String()),
					zap.Error(err))
				stats.Failed++
				continue
			}

			untilStart := start.Sub(now)
			if untilStart > r.lead || untilStart < -r.grace {
				continue
			}

			claimed, err := r.consults.ClaimReminder(lockCtx, c.ID, windowStart)
			if err != nil {
				r.log.Error("reminder claim failed",
					zap.String("consultation_id", c.ID.String()),
					zap.Error(err))
				stats.Failed++
				continue
			}
			if !claimed {
				stats.Skipped++
				continue
			}

			r.send(lockCtx, c)
			stats.Sent++
		}

		return nil
	})

	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		r.log.Warn("reminder sweep already in flight, skipping")
		return stats, nil
	}
	if err != nil {
		return stats, err
	}

	r.log.Info("reminder sweep finished",
		zap.Int("checked", stats.Checked),
		zap.Int("sent", stats.Sent),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed))

	return stats, nil
}

func (r *ReminderDispatcher) send(ctx context.Context, c Consultation) {
	n := notify.Reminder(c.ID, c.PatientID, c.DoctorID, c.Date.Format(dateFormat), c.StartTime)

	patientOK := r.notifier.SendToUser(ctx, c.PatientID, n)
	doctorOK := r.notifier.SendToUser(ctx, c.DoctorID, n)

	if !patientOK && !doctorOK {
		r.log.Warn("reminder reached no devices",
			zap.String("consultation_id", c.ID.String()))
		return
	}

	r.log.Info("reminder sent",
		zap.String("consultation_id", c.ID.String()),
		zap.Bool("patient", patientOK),
		zap.Bool("doctor", doctorOK))
}
