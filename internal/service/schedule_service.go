package service

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/tazhate/familyschedule/internal/calendar"
	"github.com/tazhate/familyschedule/internal/domain"
	"github.com/tazhate/familyschedule/internal/schedule"
)

// ScheduleService builds the read models: grid views and the text digests
// sent by the bot.
type ScheduleService struct {
	activities *ActivityService
	family     *FamilyService
	clock      calendar.Clock
}

func NewScheduleService(activities *ActivityService, family *FamilyService, clock calendar.Clock) *ScheduleService {
	if clock == nil {
		clock = calendar.SystemClock{}
	}
	return &ScheduleService{activities: activities, family: family, clock: clock}
}

// Now returns the service clock's time.
func (s *ScheduleService) Now() time.Time {
	return s.clock.Now()
}

// CurrentWeek returns the ISO week containing today, shifted by offset weeks.
func (s *ScheduleService) CurrentWeek(offset int) (week, year int) {
	year, week = calendar.ISOWeek(s.clock.Now())
	return calendar.ShiftWeek(week, year, offset)
}

func (s *ScheduleService) viewOptions() (schedule.ViewOptions, error) {
	settings, err := s.family.Settings()
	if err != nil {
		return schedule.ViewOptions{}, err
	}
	members, err := s.family.Members()
	if err != nil {
		return schedule.ViewOptions{}, err
	}
	return schedule.ViewOptions{Settings: settings, Members: members, Now: s.clock.Now()}, nil
}

func checkWeek(week, year int) error {
	return domain.ValidateWeek(week, year)
}

// WeekView returns the grid of one week.
func (s *ScheduleService) WeekView(week, year int) (schedule.WeekView, error) {
	if err := checkWeek(week, year); err != nil {
		return schedule.WeekView{}, err
	}
	opts, err := s.viewOptions()
	if err != nil {
		return schedule.WeekView{}, err
	}
	activities, err := s.activities.List()
	if err != nil {
		return schedule.WeekView{}, err
	}
	return schedule.BuildWeekView(activities, week, year, opts)
}

// LayerView returns one lane per family member.
func (s *ScheduleService) LayerView(week, year int) ([]schedule.MemberLane, error) {
	if err := checkWeek(week, year); err != nil {
		return nil, err
	}
	opts, err := s.viewOptions()
	if err != nil {
		return nil, err
	}
	activities, err := s.activities.List()
	if err != nil {
		return nil, err
	}
	return schedule.BuildLayerView(activities, week, year, opts)
}

// FormatWeek renders a week as Telegram HTML, one block per day with activities.
func (s *ScheduleService) FormatWeek(week, year int) (string, error) {
	if err := checkWeek(week, year); err != nil {
		return "", err
	}
	activities, err := s.activities.ListWeek(week, year)
	if err != nil {
		return "", err
	}
	members, err := s.family.Members()
	if err != nil {
		return "", err
	}
	return formatWeek(activities, members, week, year, s.clock.Now(), ""), nil
}

// FormatMemberWeek renders the week of one family member.
func (s *ScheduleService) FormatMemberWeek(memberID string, week, year int) (string, error) {
	if err := checkWeek(week, year); err != nil {
		return "", err
	}
	member, err := s.family.Member(memberID)
	if err != nil {
		return "", err
	}
	activities, err := s.activities.ListWeek(week, year)
	if err != nil {
		return "", err
	}
	var own []domain.Activity
	for _, a := range activities {
		if a.HasParticipant(member.ID) {
			own = append(own, a)
		}
	}
	members, err := s.family.Members()
	if err != nil {
		return "", err
	}
	title := fmt.Sprintf("%s %s", member.Icon, html.EscapeString(member.Name))
	return formatWeek(own, members, week, year, s.clock.Now(), title), nil
}

// FormatDay renders the activities of one date.
func (s *ScheduleService) FormatDay(date time.Time) (string, error) {
	year, week := calendar.ISOWeek(date)
	activities, err := s.activities.ListWeek(week, year)
	if err != nil {
		return "", err
	}
	members, err := s.family.Members()
	if err != nil {
		return "", err
	}
	return formatDay(activities, members, date, s.clock.Now()), nil
}

// FormatToday is the morning digest.
func (s *ScheduleService) FormatToday() (string, error) {
	return s.FormatDay(s.clock.Now())
}

func formatWeek(activities []domain.Activity, members []domain.FamilyMember, week, year int, now time.Time, title string) string {
	dates := calendar.WeekDates(week, year, 7)

	var sb strings.Builder
	header := fmt.Sprintf("📅 Vecka %d · %s", week, calendar.FormatWeekRange(dates))
	if title != "" {
		header = title + " · " + header
	}
	sb.WriteString(fmt.Sprintf("<b>%s</b>\n\n", header))

	if len(activities) == 0 {
		sb.WriteString("Inga aktiviteter denna vecka")
		return sb.String()
	}

	for _, day := range domain.AllDays {
		dayActivities := schedule.FilterDay(activities, day, week, year)
		if len(dayActivities) == 0 {
			continue
		}

		date := dates[day]
		todayMarker := ""
		if calendar.IsToday(date, now) {
			todayMarker = " ← idag"
		}
		sb.WriteString(fmt.Sprintf("<b>%s %d/%d</b>%s\n", day.Name(), date.Day(), int(date.Month()), todayMarker))

		for i := range dayActivities {
			sb.WriteString("  " + formatActivityLine(&dayActivities[i], members) + "\n")
		}
		sb.WriteString("\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}

func formatDay(activities []domain.Activity, members []domain.FamilyMember, date, now time.Time) string {
	year, week := calendar.ISOWeek(date)
	day := domain.DayOf(date)
	dayActivities := schedule.FilterDay(activities, day, week, year)

	label := fmt.Sprintf("%s %d/%d", day.Name(), date.Day(), int(date.Month()))
	if calendar.IsToday(date, now) {
		label = "Idag, " + label
	}

	if len(dayActivities) == 0 {
		return fmt.Sprintf("<b>%s</b>\n\nInga aktiviteter 🎉", label)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>%s</b>\n\n", label))
	for i := range dayActivities {
		sb.WriteString("🕐 " + formatActivityLine(&dayActivities[i], members) + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatActivityLine(a *domain.Activity, members []domain.FamilyMember) string {
	var names []string
	for _, id := range a.Participants {
		if m := domain.FindMember(members, id); m != nil {
			names = append(names, m.Name)
		} else {
			names = append(names, id)
		}
	}

	line := fmt.Sprintf("%s %s %s", a.TimeRange(), a.Icon, html.EscapeString(a.Name))
	if len(names) > 0 {
		line += " · " + html.EscapeString(strings.Join(names, ", "))
	}
	if a.Location != "" {
		line += " 📍 " + html.EscapeString(a.Location)
	}
	return line
}
