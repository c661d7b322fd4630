package importer

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tazhate/familyschedule/internal/calendar"
	"github.com/tazhate/familyschedule/internal/domain"
	"github.com/tazhate/familyschedule/internal/schedule"
)

const dateLayout = "2006-01-02"

// Record is one partial activity of an import payload. A record is either
// single-date (Date), recurring (StartDate, RecurringEndDate and Day) or
// already resolved (Day, Week and Year).
type Record struct {
	ID               string   `json:"id,omitempty"`
	SeriesID         string   `json:"seriesId,omitempty"`
	Name             string   `json:"name"`
	Icon             string   `json:"icon,omitempty"`
	Day              string   `json:"day,omitempty"`
	Week             int      `json:"week,omitempty"`
	Year             int      `json:"year,omitempty"`
	Date             string   `json:"date,omitempty"`
	StartDate        string   `json:"startDate,omitempty"`
	RecurringEndDate string   `json:"recurringEndDate,omitempty"`
	Participants     []string `json:"participants"`
	StartTime        string   `json:"startTime,omitempty"`
	EndTime          string   `json:"endTime,omitempty"`
	Location         string   `json:"location,omitempty"`
	Notes            string   `json:"notes,omitempty"`
	Color            string   `json:"color,omitempty"`
}

// Skipped describes a record that produced no activity.
type Skipped struct {
	Index  int    `json:"index"`
	Name   string `json:"name,omitempty"`
	Reason string `json:"reason"`
}

// Result is the outcome of resolving a payload.
type Result struct {
	Activities []domain.Activity `json:"activities"`
	Skipped    []Skipped         `json:"skipped,omitempty"`
}

// Parse decodes a payload that must be a JSON array. Items that are not
// objects of the expected shape are reported by index in the returned
// skipped list rather than failing the whole payload.
func Parse(r io.Reader) ([]Record, []Skipped, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, &domain.MalformedImportError{Reason: "read payload", Err: err}
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil, &domain.MalformedImportError{Reason: "empty payload"}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, nil, &domain.MalformedImportError{Reason: "payload is not a JSON array", Err: err}
	}

	records := make([]Record, 0, len(items))
	var skipped []Skipped
	for i, raw := range items {
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			skipped = append(skipped, Skipped{Index: i, Reason: "not an activity object"})
			records = append(records, Record{})
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

// Resolve turns records into concrete activities. Missing icon and times
// get defaults, missing ids are generated. Records without a name,
// participants or a resolvable date are skipped and reported.
func Resolve(records []Record, newID schedule.IDFunc, loc *time.Location) Result {
	if newID == nil {
		newID = schedule.NewActivityID
	}
	if loc == nil {
		loc = time.Local
	}

	var res Result
	for i := range records {
		rec := &records[i]
		acts, err := resolve(rec, newID, loc)
		if err != nil {
			res.Skipped = append(res.Skipped, Skipped{Index: i, Name: rec.Name, Reason: err.Error()})
			continue
		}
		res.Activities = append(res.Activities, acts...)
	}
	return res
}

// Read parses and resolves a payload in one step. Parse failures of
// individual items are merged into the skipped list.
func Read(r io.Reader, newID schedule.IDFunc, loc *time.Location) (Result, error) {
	records, bad, err := Parse(r)
	if err != nil {
		return Result{}, err
	}
	badIdx := make(map[int]bool, len(bad))
	for _, s := range bad {
		badIdx[s.Index] = true
	}

	var usable []Record
	var index []int
	for i, rec := range records {
		if !badIdx[i] {
			usable = append(usable, rec)
			index = append(index, i)
		}
	}

	res := Resolve(usable, newID, loc)
	for k := range res.Skipped {
		res.Skipped[k].Index = index[res.Skipped[k].Index]
	}
	res.Skipped = append(bad, res.Skipped...)
	return res, nil
}

func resolve(rec *Record, newID schedule.IDFunc, loc *time.Location) ([]domain.Activity, error) {
	if strings.TrimSpace(rec.Name) == "" {
		return nil, fmt.Errorf("missing name")
	}
	if len(rec.Participants) == 0 {
		return nil, fmt.Errorf("missing participants")
	}

	form := domain.ActivityForm{
		Name:         rec.Name,
		Icon:         rec.Icon,
		Participants: rec.Participants,
		StartTime:    orDefault(rec.StartTime, domain.DefaultStartTime),
		EndTime:      orDefault(rec.EndTime, domain.DefaultEndTime),
		Location:     rec.Location,
		Notes:        rec.Notes,
		Color:        rec.Color,
	}

	switch {
	case rec.Date != "":
		date, err := time.ParseInLocation(dateLayout, rec.Date, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q", rec.Date)
		}
		year, week := calendar.ISOWeek(date)
		form.Days = []domain.Day{domain.DayOf(date)}
		a, err := single(&form, rec, week, year, newID)
		if err != nil {
			return nil, err
		}
		return []domain.Activity{a}, nil

	case rec.StartDate != "" && rec.RecurringEndDate != "":
		start, err := time.ParseInLocation(dateLayout, rec.StartDate, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid startDate %q", rec.StartDate)
		}
		end, err := time.ParseInLocation(dateLayout, rec.RecurringEndDate, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid recurringEndDate %q", rec.RecurringEndDate)
		}
		day, err := domain.ParseDay(rec.Day)
		if err != nil {
			return nil, fmt.Errorf("recurring record needs a day: %w", err)
		}
		form.Days = []domain.Day{day}
		form.Recurring = true
		form.RecurringEnd = end
		year, week := calendar.ISOWeek(start)
		return schedule.Expand(&form, week, year, newID)

	case rec.Day != "" && rec.Week > 0 && rec.Year > 0:
		day, err := domain.ParseDay(rec.Day)
		if err != nil {
			return nil, err
		}
		if !calendar.ValidWeek(rec.Week, rec.Year) {
			return nil, fmt.Errorf("week %d does not exist in %d", rec.Week, rec.Year)
		}
		form.Days = []domain.Day{day}
		a, err := single(&form, rec, rec.Week, rec.Year, newID)
		if err != nil {
			return nil, err
		}
		return []domain.Activity{a}, nil
	}

	return nil, fmt.Errorf("no resolvable date")
}

func single(form *domain.ActivityForm, rec *Record, week, year int, newID schedule.IDFunc) (domain.Activity, error) {
	if err := form.Validate(); err != nil {
		return domain.Activity{}, err
	}
	a := form.Build(form.Days[0], week, year)
	a.ID = rec.ID
	if a.ID == "" {
		a.ID = newID()
	}
	a.SeriesID = rec.SeriesID
	return a, nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// Export writes the full activity list as an indented JSON array that Read
// accepts back.
func Export(w io.Writer, activities []domain.Activity) error {
	if activities == nil {
		activities = []domain.Activity{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(activities); err != nil {
		return fmt.Errorf("encode activities: %w", err)
	}
	return nil
}
