package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tazhate/familyschedule/internal/domain"
	"github.com/urfave/cli/v2"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

// cliEnv points the app at a fresh database with "today" pinned to
// Wednesday of ISO week 10, 2024.
func cliEnv(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("CALDAV_USERNAME", "")
	t.Setenv("FAMILY_FILE", "")
	t.Setenv("LOG_DIR", "")

	prevClock, prevLocal := clock, time.Local
	clock = fixedClock{now: time.Date(2024, time.March, 6, 7, 30, 0, 0, time.UTC)}
	t.Cleanup(func() {
		clock = prevClock
		time.Local = prevLocal
	})
	return filepath.Join(dir, "test.db")
}

func runCLI(t *testing.T, db string, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	app.ExitErrHandler = func(*cli.Context, error) {}

	err := app.Run(append([]string{"familyschedule", "--db", db}, args...))
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const danceRecord = `{"id":"dans-1","name":"Dans","icon":"💃","day":"Måndag","week":10,"year":2024,"participants":["rut"],"startTime":"17:00","endTime":"18:00","location":"Studion"}`

func TestPlainText(t *testing.T) {
	in := "<b>📅 Vecka 10 · 4 mar – 8 mar</b>\n\n<b>Måndag 4/3</b>\n17:00-18:00 💃 Dans · Rut &amp; Pim"
	assert.Equal(t, "📅 Vecka 10 · 4 mar – 8 mar\n\nMåndag 4/3\n17:00-18:00 💃 Dans · Rut & Pim", plainText(in))
}

func TestCLI_ImportThenExportJSON(t *testing.T) {
	db := cliEnv(t)

	payload := writeFile(t, "import.json", `[`+danceRecord+`, {"name":"Bad","date":"2024-03-05"}]`)
	out, err := runCLI(t, db, "import", payload)
	require.NoError(t, err)
	assert.Equal(t, "imported 1 activities\n  skipped #1 Bad: missing participants\n", out)

	out, err = runCLI(t, db, "export-json")
	require.NoError(t, err)
	var exported []domain.Activity
	require.NoError(t, json.Unmarshal([]byte(out), &exported))
	require.Len(t, exported, 1)
	assert.Equal(t, "dans-1", exported[0].ID)
	assert.Equal(t, domain.DayMonday, exported[0].Day)
	assert.Equal(t, 10, exported[0].Week)

	malformed := writeFile(t, "bad.json", `{"name":"not an array"}`)
	_, err = runCLI(t, db, "import", malformed)
	require.Error(t, err)
	assert.True(t, domain.IsMalformedImport(err))

	out, err = runCLI(t, db, "export-json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &exported))
	assert.Len(t, exported, 1)
}

func TestCLI_ImportNeedsFile(t *testing.T) {
	db := cliEnv(t)

	_, err := runCLI(t, db, "import")
	require.Error(t, err)
	var exit cli.ExitCoder
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 2, exit.ExitCode())
}

func TestCLI_ExportICS(t *testing.T) {
	db := cliEnv(t)

	_, err := runCLI(t, db, "import", writeFile(t, "import.json", `[`+danceRecord+`]`))
	require.NoError(t, err)

	want := "BEGIN:VCALENDAR\r\n" +
		"VERSION:2.0\r\n" +
		"PRODID:-//FamiljensSchema//SE\r\n" +
		"BEGIN:VEVENT\r\n" +
		"UID:dans-1\r\n" +
		"DTSTAMP:20240306T000000\r\n" +
		"DTSTART:20240304T170000\r\n" +
		"DTEND:20240304T180000\r\n" +
		"SUMMARY:💃 Dans\r\n" +
		"LOCATION:Studion\r\n" +
		"END:VEVENT\r\n" +
		"END:VCALENDAR\r\n"

	out, err := runCLI(t, db, "export-ics", "--week", "10", "--year", "2024", "-o", "-")
	require.NoError(t, err)
	assert.Equal(t, want, out)

	// Default file name in the working directory.
	_, err = runCLI(t, db, "export-ics")
	require.NoError(t, err)
	data, err := os.ReadFile("vecka-10-2024.ics")
	require.NoError(t, err)
	assert.Equal(t, want, string(data))

	out, err = runCLI(t, db, "export-ics", "--week", "11", "--year", "2024", "-o", "-")
	require.NoError(t, err)
	assert.Equal(t, "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//FamiljensSchema//SE\r\nEND:VCALENDAR\r\n", out)
}

func TestCLI_ExportToMissingDirectory(t *testing.T) {
	db := cliEnv(t)

	_, err := runCLI(t, db, "export-json", "-o", filepath.Join(t.TempDir(), "missing", "out.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create")
}

func TestCLI_WeekRejectsMissingWeek(t *testing.T) {
	db := cliEnv(t)

	_, err := runCLI(t, db, "week", "--week", "53", "--year", "2023")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "week 53 does not exist in 2023")

	_, err = runCLI(t, db, "export-ics", "--week", "53", "--year", "2023", "-o", "-")
	require.Error(t, err)
}

func TestCLI_Week(t *testing.T) {
	db := cliEnv(t)

	_, err := runCLI(t, db, "import", writeFile(t, "import.json", `[`+danceRecord+`]`))
	require.NoError(t, err)

	out, err := runCLI(t, db, "week")
	require.NoError(t, err)
	assert.Contains(t, out, "Dans")
	assert.NotContains(t, out, "<b>")

	out, err = runCLI(t, db, "week", "--offset", "1")
	require.NoError(t, err)
	assert.NotContains(t, out, "Dans")
}
