package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/tazhate/familyschedule/config"
	"github.com/tazhate/familyschedule/internal/logger"
	"github.com/tazhate/familyschedule/internal/service"
)

// weeklyPreviewSpec sends next week's schedule on Sunday evening.
const weeklyPreviewSpec = "0 19 * * 0"

type MessageSender interface {
	SendMessage(chatID int64, text string) error
}

// Digests renders the texts the scheduler sends.
type Digests interface {
	CurrentWeek(offset int) (week, year int)
	FormatToday() (string, error)
	FormatWeek(week, year int) (string, error)
}

// CalendarPusher mirrors activities into CalDAV.
type CalendarPusher interface {
	IsConfigured() bool
	PushWeeks(ctx context.Context, count int) (*service.SyncResult, error)
}

type Scheduler struct {
	cron     *cron.Cron
	cfg      *config.Config
	digests  Digests
	calendar CalendarPusher
	sender   MessageSender
	ctx      context.Context
}

func New(cfg *config.Config, digests Digests, calendar CalendarPusher) *Scheduler {
	c := cron.New(cron.WithLocation(cfg.Timezone))

	return &Scheduler{
		cron:     c,
		cfg:      cfg,
		digests:  digests,
		calendar: calendar,
		ctx:      context.Background(),
	}
}

func (s *Scheduler) SetSender(sender MessageSender) {
	s.sender = sender
}

// Register adds the jobs without starting the cron loop.
func (s *Scheduler) Register() error {
	if _, err := s.cron.AddFunc(s.cfg.MorningCron(), s.morningDigest); err != nil {
		return fmt.Errorf("add morning digest: %w", err)
	}

	if _, err := s.cron.AddFunc(weeklyPreviewSpec, s.weeklyPreview); err != nil {
		return fmt.Errorf("add weekly preview: %w", err)
	}

	if s.calendar != nil && s.calendar.IsConfigured() {
		if _, err := s.cron.AddFunc(s.cfg.CalDAVSyncCron, s.pushCalendar); err != nil {
			return fmt.Errorf("add caldav push: %w", err)
		}
	}
	return nil
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx = ctx
	if err := s.Register(); err != nil {
		return err
	}

	s.cron.Start()
	logger.Info("scheduler started", "tz", s.cfg.Timezone.String(), "morning", s.cfg.MorningTime, "jobs", len(s.cron.Entries()))

	<-ctx.Done()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("scheduler stopped")
}

func (s *Scheduler) recipients() []int64 {
	ids := []int64{s.cfg.OwnerTelegramID}
	if s.cfg.PartnerTelegramID != 0 {
		ids = append(ids, s.cfg.PartnerTelegramID)
	}
	return ids
}

func (s *Scheduler) broadcast(kind, text string) {
	for _, id := range s.recipients() {
		if id == 0 {
			continue
		}
		if err := s.sender.SendMessage(id, text); err != nil {
			logger.Error("send failed", "kind", kind, "chat", id, "err", err)
		}
	}
}

func (s *Scheduler) morningDigest() {
	if s.sender == nil {
		return
	}

	text, err := s.digests.FormatToday()
	if err != nil {
		logger.Error("build morning digest", "err", err)
		return
	}
	s.broadcast("morning", "☀️ <b>God morgon!</b>\n\n"+text)
}

func (s *Scheduler) weeklyPreview() {
	if s.sender == nil {
		return
	}

	week, year := s.digests.CurrentWeek(1)
	text, err := s.digests.FormatWeek(week, year)
	if err != nil {
		logger.Error("build weekly preview", "err", err)
		return
	}
	s.broadcast("weekly", "🗓 <b>Nästa vecka</b>\n\n"+text)
}

func (s *Scheduler) pushCalendar() {
	res, err := s.calendar.PushWeeks(s.ctx, s.cfg.CalDAVWeeks)
	if err != nil {
		logger.Error("caldav push", "err", err)
		return
	}
	for _, e := range res.Errors {
		logger.Warn("caldav push item failed", "err", e)
	}
}
