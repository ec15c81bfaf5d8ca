package ics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"intentcal/internal/calquery"
	appLog "intentcal/internal/log"
	"intentcal/internal/model"
)

// ErrUnknownCalendar is returned for calendar IDs that are not configured.
var ErrUnknownCalendar = errors.New("unknown calendar")

// URLResolver turns a configured URL (possibly a secret reference) into
// the real endpoint.
type URLResolver func(string) (string, error)

// Calendar answers event queries for configured ICS subscriptions.
// It is safe for concurrent use.
type Calendar struct {
	fetcher *Fetcher
	loc     *time.Location
	order   []string
	sources map[string]Source
	resolve URLResolver

	group singleflight.Group
}

// NewCalendar builds a Calendar over sources. Source URLs are passed
// through resolve on every fetch; a nil resolve uses them as-is.
func NewCalendar(fetcher *Fetcher, loc *time.Location, sources []Source, resolve URLResolver) *Calendar {
	if loc == nil {
		loc = time.Local
	}
	if resolve == nil {
		resolve = func(s string) (string, error) { return s, nil }
	}
	c := &Calendar{
		fetcher: fetcher,
		loc:     loc,
		sources: make(map[string]Source, len(sources)),
		resolve: resolve,
	}
	for _, s := range sources {
		if _, dup := c.sources[s.ID]; !dup {
			c.order = append(c.order, s.ID)
		}
		c.sources[s.ID] = s
	}
	return c
}

// Has reports whether id is a configured calendar.
func (c *Calendar) Has(id string) bool {
	_, ok := c.sources[id]
	return ok
}

// Events returns the occurrences of calendarID overlapping [start, end),
// ordered by start. A zero-width window returns occurrences covering
// that instant.
func (c *Calendar) Events(ctx context.Context, calendarID string, start, end time.Time) ([]model.Occurrence, error) {
	parsed, err := c.load(ctx, calendarID)
	if err != nil {
		return nil, err
	}

	res, err := ExpandOccurrences(parsed, ExpandConfig{
		DisplayLocation: c.loc,
		RangeStart:      start,
		RangeEnd:        end,
	})
	if err != nil {
		return nil, err
	}

	appLog.Debug("calendar events",
		"calendar", calendarID,
		"start", start.Format(time.RFC3339),
		"end", end.Format(time.RFC3339),
		"count", len(res.Occurrences),
	)
	return res.Occurrences, nil
}

// QueryEvents is Events converted into the calendar summary event shape.
func (c *Calendar) QueryEvents(ctx context.Context, calendarID string, start, end time.Time) ([]calquery.Event, error) {
	occs, err := c.Events(ctx, calendarID, start, end)
	if err != nil {
		return nil, err
	}
	out := make([]calquery.Event, 0, len(occs))
	for _, o := range occs {
		out = append(out, o.QueryEvent())
	}
	return out, nil
}

// Refresh fetches every configured source to warm the disk cache.
func (c *Calendar) Refresh(ctx context.Context) error {
	sources := make([]Source, 0, len(c.order))
	var errs []error
	for _, id := range c.order {
		src, err := c.resolved(id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sources = append(sources, src)
	}

	results, fetchErrs := c.fetcher.FetchAll(ctx, sources)
	errs = append(errs, fetchErrs...)

	appLog.Info("calendar refresh completed",
		"sources", len(sources),
		"ok", len(results),
		"failed", len(errs),
	)
	return errors.Join(errs...)
}

// load fetches and parses one source. Concurrent callers for the same
// calendar share one fetch.
func (c *Calendar) load(ctx context.Context, calendarID string) ([]ParsedEvent, error) {
	src, err := c.resolved(calendarID)
	if err != nil {
		return nil, err
	}

	v, err, shared := c.group.Do(calendarID, func() (any, error) {
		res, err := c.fetcher.FetchOne(ctx, src)
		if err != nil {
			return nil, err
		}
		return ParseICS(res.Source, res.Body, c.loc)
	})
	if err != nil {
		return nil, fmt.Errorf("calendar %q: %w", calendarID, err)
	}
	if shared {
		appLog.Debug("calendar fetch shared", "calendar", calendarID)
	}
	return v.([]ParsedEvent), nil
}

func (c *Calendar) resolved(calendarID string) (Source, error) {
	src, ok := c.sources[calendarID]
	if !ok {
		return Source{}, fmt.Errorf("%w: %q", ErrUnknownCalendar, calendarID)
	}
	u, err := c.resolve(src.URL)
	if err != nil {
		return Source{}, fmt.Errorf("calendar %q url: %w", calendarID, err)
	}
	src.URL = u
	return src, nil
}
