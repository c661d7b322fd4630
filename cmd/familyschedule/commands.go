package main

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"os"
	"regexp"

	"github.com/tazhate/familyschedule/internal/calendar"
	"github.com/tazhate/familyschedule/internal/clients/caldav"
	"github.com/tazhate/familyschedule/internal/ics"
	"github.com/tazhate/familyschedule/internal/importer"
	"github.com/urfave/cli/v2"
)

var weekFlags = []cli.Flag{
	&cli.IntFlag{Name: "offset", Usage: "Weeks relative to the current week."},
	&cli.IntFlag{Name: "week", Usage: "ISO week number."},
	&cli.IntFlag{Name: "year", Usage: "ISO week-numbering year."},
}

// selectedWeek resolves --week/--year, falling back to the current week
// shifted by --offset.
func selectedWeek(c *cli.Context, rt *runtime) (week, year int, err error) {
	week, year = rt.schedule.CurrentWeek(c.Int("offset"))
	if c.IsSet("week") {
		week = c.Int("week")
	}
	if c.IsSet("year") {
		year = c.Int("year")
	}
	if !calendar.ValidWeek(week, year) {
		return 0, 0, fmt.Errorf("week %d does not exist in %d", week, year)
	}
	return week, year, nil
}

var tagRe = regexp.MustCompile(`<[^>]+>`)

// plainText turns a Telegram HTML digest into terminal text.
func plainText(s string) string {
	return html.UnescapeString(tagRe.ReplaceAllString(s, ""))
}

// writeOutput runs write against the file at path, or the app's writer
// for "-". A failed Close of the file is returned.
func writeOutput(c *cli.Context, path string, write func(io.Writer) error) (err error) {
	if path == "-" {
		return write(c.App.Writer)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return write(f)
}

func weekCommand() *cli.Command {
	return &cli.Command{
		Name:  "week",
		Usage: "Print a week's schedule.",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "member", Usage: "Only this family member's activities."},
		}, weekFlags...),
		Action: func(c *cli.Context) error {
			rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			week, year, err := selectedWeek(c, rt)
			if err != nil {
				return err
			}

			var text string
			if id := c.String("member"); id != "" {
				text, err = rt.schedule.FormatMemberWeek(id, week, year)
			} else {
				text, err = rt.schedule.FormatWeek(week, year)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, plainText(text))
			return nil
		},
	}
}

func todayCommand() *cli.Command {
	return &cli.Command{
		Name:  "today",
		Usage: "Print today's activities.",
		Action: func(c *cli.Context) error {
			rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			text, err := rt.schedule.FormatToday()
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, plainText(text))
			return nil
		},
	}
}

func exportICSCommand() *cli.Command {
	return &cli.Command{
		Name:  "export-ics",
		Usage: "Write one week as an iCalendar file.",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file, - for stdout. Defaults to vecka-<week>-<year>.ics."},
		}, weekFlags...),
		Action: func(c *cli.Context) error {
			rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			week, year, err := selectedWeek(c, rt)
			if err != nil {
				return err
			}
			activities, err := rt.activities.ListWeek(week, year)
			if err != nil {
				return err
			}

			path := c.String("out")
			if path == "" {
				path = ics.Filename(week, year)
			}
			err = writeOutput(c, path, func(w io.Writer) error {
				return ics.EncodeWeek(w, activities, week, year, rt.schedule.Now())
			})
			if err != nil {
				return err
			}
			if path != "-" {
				fmt.Fprintf(c.App.ErrWriter, "wrote %d activities to %s\n", len(activities), path)
			}
			return nil
		},
	}
}

func exportJSONCommand() *cli.Command {
	return &cli.Command{
		Name:  "export-json",
		Usage: "Write every activity as JSON.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "-", Usage: "Output file, - for stdout."},
		},
		Action: func(c *cli.Context) error {
			rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			activities, err := rt.activities.List()
			if err != nil {
				return err
			}
			return writeOutput(c, c.String("out"), func(w io.Writer) error {
				return importer.Export(w, activities)
			})
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import activities from a JSON file.",
		ArgsUsage: "<file.json>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("usage: familyschedule import <file.json>", 2)
			}

			rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			f, err := os.Open(c.Args().First())
			if err != nil {
				return fmt.Errorf("open import file: %w", err)
			}
			defer f.Close()

			res, err := rt.activities.Import(bufio.NewReader(f))
			if err != nil {
				return err
			}

			fmt.Fprintf(c.App.Writer, "imported %d activities\n", len(res.Activities))
			for _, s := range res.Skipped {
				fmt.Fprintf(c.App.Writer, "  skipped #%d %s: %s\n", s.Index, s.Name, s.Reason)
			}
			return nil
		},
	}
}

func pushCommand() *cli.Command {
	return &cli.Command{
		Name:  "caldav-push",
		Usage: "Push the coming weeks to the CalDAV calendar once.",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "weeks", Usage: "Number of weeks, starting with the current one. Defaults to CALDAV_WEEKS."},
		},
		Action: func(c *cli.Context) error {
			rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			if !rt.calendar.IsConfigured() {
				return cli.Exit("CalDAV is not configured: set CALDAV_USERNAME, CALDAV_PASSWORD and CALDAV_CALENDAR", 2)
			}
			weeks := rt.cfg.CalDAVWeeks
			if c.IsSet("weeks") {
				weeks = c.Int("weeks")
			}

			res, err := rt.calendar.PushWeeks(c.Context, weeks)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "pushed %d, deleted %d\n", res.Pushed, res.Deleted)
			for _, e := range res.Errors {
				fmt.Fprintln(c.App.Writer, "  error:", e)
			}
			return nil
		},
	}
}

func calendarsCommand() *cli.Command {
	return &cli.Command{
		Name:  "calendars",
		Usage: "List the CalDAV calendars of the configured account.",
		Action: func(c *cli.Context) error {
			rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			// Discovery only needs credentials; CALDAV_CALENDAR is what it helps to find.
			client := rt.caldav
			if client == nil {
				if rt.cfg.CalDAVUsername == "" || rt.cfg.CalDAVPassword == "" {
					return cli.Exit("CalDAV credentials are not configured", 2)
				}
				client = caldav.NewClient(rt.cfg.CalDAVURL, rt.cfg.CalDAVUsername, rt.cfg.CalDAVPassword)
			}
			cals, err := client.DiscoverCalendars(c.Context)
			if err != nil {
				return err
			}
			for _, cal := range cals {
				fmt.Fprintf(c.App.Writer, "%s\t%s\n", cal.Path, cal.DisplayName)
			}
			return nil
		},
	}
}
