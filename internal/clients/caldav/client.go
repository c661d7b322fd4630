package caldav

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
)

const (
	// Apple iCloud CalDAV endpoint
	DefaultiCloudURL = "https://caldav.icloud.com"
)

// Client pushes calendar objects to one CalDAV calendar
type Client struct {
	baseURL      string
	username     string
	password     string
	calendarPath string
	httpClient   *http.Client
	client       *caldav.Client
}

// NewClient creates a new CalDAV client
func NewClient(baseURL, username, password string) *Client {
	if baseURL == "" {
		baseURL = DefaultiCloudURL
	}
	return &Client{
		baseURL:  baseURL,
		username: username,
		password: password,
		httpClient: &http.Client{
			Transport: &basicAuthTransport{
				username: username,
				password: password,
				base:     http.DefaultTransport,
			},
			Timeout: 30 * time.Second,
		},
	}
}

// IsConfigured returns true if the client has credentials
func (c *Client) IsConfigured() bool {
	return c.username != "" && c.password != ""
}

// SetCalendarPath sets the calendar collection objects are written to
func (c *Client) SetCalendarPath(path string) {
	if path != "" && !strings.HasSuffix(path, "/") {
		path += "/"
	}
	c.calendarPath = path
}

// CalendarPath returns the configured collection path
func (c *Client) CalendarPath() string {
	return c.calendarPath
}

// connect establishes connection to CalDAV server
func (c *Client) connect() (*caldav.Client, error) {
	if c.client != nil {
		return c.client, nil
	}

	client, err := caldav.NewClient(c.httpClient, c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to CalDAV: %w", err)
	}

	c.client = client
	return client, nil
}

// basicAuthTransport adds Basic Auth to HTTP requests
type basicAuthTransport struct {
	username string
	password string
	base     http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.username, t.password)
	return t.base.RoundTrip(req)
}

// DiscoverCalendars returns all calendars for the user
func (c *Client) DiscoverCalendars(ctx context.Context) ([]Calendar, error) {
	client, err := c.connect()
	if err != nil {
		return nil, err
	}

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("find principal: %w", err)
	}

	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("find home set: %w", err)
	}

	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("find calendars: %w", err)
	}

	var result []Calendar
	for _, cal := range cals {
		result = append(result, Calendar{
			Path:        cal.Path,
			DisplayName: cal.Name,
			Description: cal.Description,
		})
	}

	return result, nil
}

// ObjectPath returns the object path of a uid inside the calendar
func (c *Client) ObjectPath(uid string) string {
	return c.calendarPath + uid + ".ics"
}

// PutCalendar creates or replaces the object named after uid
func (c *Client) PutCalendar(ctx context.Context, uid string, cal *ical.Calendar) (Object, error) {
	if c.calendarPath == "" {
		return Object{}, fmt.Errorf("calendar path not specified")
	}
	client, err := c.connect()
	if err != nil {
		return Object{}, err
	}

	path := c.ObjectPath(uid)
	obj, err := client.PutCalendarObject(ctx, path, cal)
	if err != nil {
		return Object{}, fmt.Errorf("put %s: %w", path, err)
	}

	out := Object{Path: path, ETag: obj.ETag}
	if obj.Path != "" {
		out.Path = obj.Path
	}
	return out, nil
}

// Delete removes an object. A missing object is not an error.
func (c *Client) Delete(ctx context.Context, path string) error {
	client, err := c.connect()
	if err != nil {
		return err
	}

	if err := client.RemoveAll(ctx, path); err != nil {
		if strings.Contains(err.Error(), "404") || strings.Contains(err.Error(), "Not Found") {
			return nil
		}
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

// SerializeCalendar converts calendar to string (for debugging)
func SerializeCalendar(cal *ical.Calendar) string {
	var buf bytes.Buffer
	enc := ical.NewEncoder(&buf)
	_ = enc.Encode(cal)
	return buf.String()
}
