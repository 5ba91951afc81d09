package calendar

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

type CalDAVConfig struct {
	// BaseURL is the calendar collection, e.g. https://dav.example.com/calendars/team/bookings/
	BaseURL   string
	Username  string
	Password  string
	ProductID string
	Timeout   time.Duration
}

// CalDAVConnector stores one iCalendar resource per booking, named after the booking id, so a
// repeated create overwrites instead of duplicating.
type CalDAVConnector struct {
	base      string
	username  string
	password  string
	productID string
	client    *http.Client
	now       func() time.Time
}

func NewCalDAVConnector(cfg CalDAVConfig) (*CalDAVConnector, error) {
	u, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("caldav base url %q is invalid", cfg.BaseURL)
	}
	if cfg.ProductID == "" {
		cfg.ProductID = "-//slotbook//booking-service//EN"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &CalDAVConnector{
		base:      strings.TrimRight(u.String(), "/"),
		username:  cfg.Username,
		password:  cfg.Password,
		productID: cfg.ProductID,
		client:    &http.Client{Timeout: cfg.Timeout},
		now:       time.Now,
	}, nil
}

func (c *CalDAVConnector) Name() string { return "caldav" }

func (c *CalDAVConnector) MirrorCreate(ctx context.Context, b model.Booking) (string, error) {
	body, err := EncodeEvent(b, c.productID, c.now())
	if err != nil {
		return "", fmt.Errorf("encode event: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPut, c.resourceURL(b.ID), body)
	if err != nil {
		return "", unavailable("create", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", unavailable("create", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	return b.ID, nil
}

func (c *CalDAVConnector) MirrorDelete(ctx context.Context, _, eventID string) error {
	resp, err := c.do(ctx, http.MethodDelete, c.resourceURL(eventID), nil)
	if err != nil {
		return unavailable("delete", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return unavailable("delete", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	return nil
}

// Ping issues OPTIONS against the collection; auth failures and 5xx count as unhealthy.
func (c *CalDAVConnector) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodOptions, c.base+"/", nil)
	if err != nil {
		return unavailable("ping", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden || resp.StatusCode >= 500 {
		return unavailable("ping", fmt.Errorf("status %d", resp.StatusCode))
	}
	return nil
}

func (c *CalDAVConnector) resourceURL(id string) string {
	return c.base + "/" + url.PathEscape(id) + ".ics"
}

func (c *CalDAVConnector) do(ctx context.Context, method, target string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "text/calendar; charset=utf-8")
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	return c.client.Do(req)
}

// EncodeEvent renders b as a single-VEVENT iCalendar object in UTC.
func EncodeEvent(b model.Booking, productID string, stamp time.Time) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, b.ID)
	event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, b.StartTime.UTC())
	event.Props.SetDateTime(ical.PropDateTimeEnd, b.EndTime.UTC())
	event.Props.SetText(ical.PropSummary, summary(b))
	event.Props.SetText(ical.PropStatus, "CONFIRMED")
	if b.Booker.Notes != "" {
		event.Props.SetText(ical.PropDescription, b.Booker.Notes)
	}
	if b.Booker.Email != "" {
		attendee := ical.NewProp(ical.PropAttendee)
		attendee.Value = "mailto:" + b.Booker.Email
		if b.Booker.Name != "" {
			attendee.Params.Set(ical.ParamCommonName, b.Booker.Name)
		}
		event.Props.Add(attendee)
	}
	cal.Children = append(cal.Children, event.Component)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
