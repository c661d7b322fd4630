package schedule

import (
	"time"

	"github.com/tazhate/familyschedule/internal/calendar"
	"github.com/tazhate/familyschedule/internal/domain"
)

// DefaultHourHeight is the layout height of one hour when none is given.
const DefaultHourHeight = 60

// ViewOptions are the inputs of a view besides the activities themselves.
type ViewOptions struct {
	Settings   domain.Settings
	Members    []domain.FamilyMember
	HourHeight float64
	Now        time.Time
}

// WeekRef identifies an ISO week.
type WeekRef struct {
	Week int `json:"week"`
	Year int `json:"year"`
}

// Block is one activity placed on a day column.
// Top and Height are in HourHeight units, Left and Width in percent of the column.
type Block struct {
	Activity domain.Activity `json:"activity"`
	Column   int             `json:"column"`
	Top      float64         `json:"top"`
	Height   float64         `json:"height"`
	Left     float64         `json:"left"`
	Width    float64         `json:"width"`
	Colors   []string        `json:"colors"`
}

// DayColumn is one rendered day.
type DayColumn struct {
	Day     domain.Day `json:"day"`
	Date    time.Time  `json:"date"`
	IsToday bool       `json:"isToday"`
	Columns int        `json:"columns"`
	Blocks  []Block    `json:"blocks"`
}

// WeekView is the grid view-model of one ISO week.
type WeekView struct {
	WeekRef
	Label     string      `json:"label"`
	IsCurrent bool        `json:"isCurrent"`
	InPast    bool        `json:"inPast"`
	InFuture  bool        `json:"inFuture"`
	Prev      WeekRef     `json:"prev"`
	Next      WeekRef     `json:"next"`
	TimeSlots []string    `json:"timeSlots"`
	Days      []DayColumn `json:"days"`
}

// MemberLane is the layer view of one family member.
type MemberLane struct {
	Member domain.FamilyMember `json:"member"`
	Days   []DayColumn         `json:"days"`
}

func (o *ViewOptions) normalize() {
	if o.HourHeight <= 0 {
		o.HourHeight = DefaultHourHeight
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
}

// BuildWeekView recomputes the grid of (week, year) from the full activity list.
func BuildWeekView(activities []domain.Activity, week, year int, opts ViewOptions) (WeekView, error) {
	opts.normalize()
	days := opts.Settings.Days()
	dates := calendar.WeekDates(week, year, len(days))

	nowYear, nowWeek := calendar.ISOWeek(opts.Now)
	view := WeekView{
		WeekRef:   WeekRef{Week: week, Year: year},
		Label:     calendar.FormatWeekRange(dates),
		IsCurrent: nowWeek == week && nowYear == year,
		InPast:    calendar.IsWeekInPast(dates, opts.Now),
		InFuture:  calendar.IsWeekInFuture(dates, opts.Now),
		TimeSlots: TimeSlots(opts.Settings.DayStart, opts.Settings.DayEnd),
	}
	view.Prev.Week, view.Prev.Year = calendar.ShiftWeek(week, year, -1)
	view.Next.Week, view.Next.Year = calendar.ShiftWeek(week, year, 1)

	weekActivities := FilterWeek(activities, week, year)
	for i, day := range days {
		col, err := buildDayColumn(FilterDay(weekActivities, day, week, year), day, dates[i], opts)
		if err != nil {
			return WeekView{}, err
		}
		view.Days = append(view.Days, col)
	}
	return view, nil
}

func buildDayColumn(dayActivities []domain.Activity, day domain.Day, date time.Time, opts ViewOptions) (DayColumn, error) {
	col := DayColumn{
		Day:     day,
		Date:    date,
		IsToday: calendar.IsToday(date, opts.Now),
	}

	groups := PackOverlapGroups(dayActivities)
	col.Columns = len(groups)
	width := 100.0
	if len(groups) > 1 {
		width = 100.0 / float64(len(groups))
	}

	for gi, group := range groups {
		for _, a := range group {
			pos, err := CalculatePosition(a.StartTime, a.EndTime, opts.HourHeight, opts.Settings.DayStart)
			if err != nil {
				return DayColumn{}, err
			}
			b := Block{
				Activity: a,
				Column:   gi,
				Top:      pos.Top,
				Height:   pos.Height,
				Width:    width,
				Colors:   domain.ResolveColors(&a, opts.Members),
			}
			if len(groups) > 1 {
				b.Left = float64(gi) * width
			}
			col.Blocks = append(col.Blocks, b)
		}
	}
	return col, nil
}

// BuildLayerView returns one lane per member with the activities they take
// part in. Lanes are never split into columns; a member's own activities
// cannot overlap once the conflict guard holds.
func BuildLayerView(activities []domain.Activity, week, year int, opts ViewOptions) ([]MemberLane, error) {
	opts.normalize()
	days := opts.Settings.Days()
	dates := calendar.WeekDates(week, year, len(days))
	weekActivities := FilterWeek(activities, week, year)

	lanes := make([]MemberLane, 0, len(opts.Members))
	for _, m := range opts.Members {
		lane := MemberLane{Member: m}
		for i, day := range days {
			col := DayColumn{Day: day, Date: dates[i], IsToday: calendar.IsToday(dates[i], opts.Now)}
			for _, a := range FilterDay(weekActivities, day, week, year) {
				if !a.HasParticipant(m.ID) {
					continue
				}
				pos, err := CalculatePosition(a.StartTime, a.EndTime, opts.HourHeight, opts.Settings.DayStart)
				if err != nil {
					return nil, err
				}
				col.Blocks = append(col.Blocks, Block{
					Activity: a,
					Top:      pos.Top,
					Height:   pos.Height,
					Width:    100,
					Colors:   domain.ResolveColors(&a, opts.Members),
				})
			}
			if len(col.Blocks) > 0 {
				col.Columns = 1
			}
			lane.Days = append(lane.Days, col)
		}
		lanes = append(lanes, lane)
	}
	return lanes, nil
}
