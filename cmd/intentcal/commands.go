package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"intentcal/internal/icsexport"
	"intentcal/internal/intent"
	appLog "intentcal/internal/log"
	"intentcal/internal/model"
	"intentcal/internal/refresh"
	"intentcal/internal/secrets"
	"intentcal/internal/web"
)

type serveCmd struct {
	Listen string `help:"HTTP listen address (overrides config if set)."`
}

func (c *serveCmd) Run(rc *runContext) error {
	if c.Listen != "" {
		rc.cfg.Listen = c.Listen
	}

	a, err := newApp(rc.cfg, intent.SystemClock{})
	if err != nil {
		return err
	}

	sched, err := refresh.New(rc.cfg.RefreshCron, a.loc, a.calendar)
	if err != nil {
		return err
	}
	sched.Start(rc.ctx)
	defer sched.Stop()

	srv, err := web.NewServer(rc.cfg, web.Deps{
		Intents:       a.dispatcher,
		Events:        a.calendar,
		ResolveSecret: secrets.Resolve,
	})
	if err != nil {
		return err
	}

	appLog.Info("intentcal serving",
		"version", version,
		"listen", rc.cfg.Listen,
		"calendars", len(rc.cfg.Calendars),
		"next_refresh", sched.Next().Format(time.RFC3339),
	)
	return srv.Run(rc.ctx)
}

type askCmd struct {
	Intent   string   `arg:"" help:"Intent type, e.g. ReadCalendar."`
	Slots    []string `arg:"" optional:"" help:"Slot values as name=value."`
	Agent    string   `help:"Conversation agent the request came from (defaults to agent_id)."`
	Language string   `help:"Response language (defaults to config language)."`
}

func (c *askCmd) Run(rc *runContext) error {
	slots, err := parseSlots(c.Slots)
	if err != nil {
		return err
	}

	a, err := newApp(rc.cfg, intent.SystemClock{})
	if err != nil {
		return err
	}

	in := &intent.Intent{
		Type:                c.Intent,
		Slots:               slots,
		ConversationAgentID: firstNonEmpty(c.Agent, rc.cfg.AgentID),
		Language:            firstNonEmpty(c.Language, rc.cfg.Language),
	}
	resp, err := a.dispatcher.Handle(rc.ctx, in)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(rc.out, resp.Speech)
	return err
}

type eventsCmd struct {
	Calendar string `arg:"" help:"Calendar ID."`
	Days     int    `help:"Days ahead." default:"7"`
	Backfill int    `help:"Days back." default:"0"`
	Format   string `help:"Output format." enum:"text,json,ics" default:"text"`
}

func (c *eventsCmd) Run(rc *runContext) error {
	a, err := newApp(rc.cfg, intent.SystemClock{})
	if err != nil {
		return err
	}

	now := time.Now().In(a.loc)
	occs, err := a.calendar.Events(rc.ctx, c.Calendar, now.AddDate(0, 0, -c.Backfill), now.AddDate(0, 0, c.Days))
	if err != nil {
		return err
	}
	return writeEvents(rc.out, c.Format, c.Calendar, occs, now)
}

type secretSetCmd struct {
	Key   string `arg:"" help:"Keyring key; reference it in config as keyring:<key>."`
	Value string `arg:"" optional:"" help:"Secret value; read from stdin when omitted."`
}

func (c *secretSetCmd) Run(rc *runContext) error {
	value := c.Value
	if value == "" {
		line, err := bufio.NewReader(rc.in).ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}
		value = strings.TrimSpace(line)
	}
	if err := secrets.Set(c.Key, value); err != nil {
		return err
	}
	_, err := fmt.Fprintf(rc.out, "stored %s%s\n", secrets.Prefix, c.Key)
	return err
}

type secretDeleteCmd struct {
	Key string `arg:"" help:"Keyring key."`
}

func (c *secretDeleteCmd) Run(rc *runContext) error {
	if err := secrets.Delete(c.Key); err != nil {
		return err
	}
	_, err := fmt.Fprintf(rc.out, "deleted %s%s\n", secrets.Prefix, c.Key)
	return err
}

// parseSlots turns name=value arguments into raw slot values.
func parseSlots(args []string) (map[string]string, error) {
	slots := make(map[string]string, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("slot %q: want name=value", arg)
		}
		slots[name] = value
	}
	return slots, nil
}

type eventJSON struct {
	UID      string    `json:"uid"`
	Summary  string    `json:"summary"`
	Location string    `json:"location,omitempty"`
	AllDay   bool      `json:"all_day"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

func writeEvents(w io.Writer, format, calendarID string, occs []model.Occurrence, now time.Time) error {
	switch format {
	case "json":
		out := make([]eventJSON, 0, len(occs))
		for _, o := range occs {
			out = append(out, eventJSON{UID: o.UID, Summary: o.Summary, Location: o.Location, AllDay: o.AllDay, Start: o.Start, End: o.End})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "ics":
		return icsexport.Encode(w, calendarID, occs, now)
	}

	if len(occs) == 0 {
		_, err := fmt.Fprintln(w, "No events.")
		return err
	}
	for _, o := range occs {
		when := o.Start.Format("Mon Jan 02 15:04") + "-" + o.End.Format("15:04")
		if o.AllDay {
			when = o.Start.Format("Mon Jan 02") + " all day    "
		}
		if _, err := fmt.Fprintf(w, "%s  %s\n", when, o.Summary); err != nil {
			return err
		}
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
