package main

import (
	"context"
	"io"
	"time"

	"intentcal/internal/config"
	"intentcal/internal/ics"
	"intentcal/internal/intent"
	"intentcal/internal/relay"
	"intentcal/internal/secrets"
	"intentcal/internal/speech"
)

const relayTimeout = 30 * time.Second

// runContext is bound into every command's Run method.
type runContext struct {
	ctx context.Context
	cfg *config.Config
	out io.Writer
	in  io.Reader
}

// app is the wired service graph shared by serve, ask and events.
type app struct {
	cfg        *config.Config
	loc        *time.Location
	calendar   *ics.Calendar
	dispatcher *intent.Dispatcher
}

func newApp(cfg *config.Config, clock intent.Clock) (*app, error) {
	loc := cfg.Location()

	catalog, err := speech.New()
	if err != nil {
		return nil, err
	}

	sources := make([]ics.Source, 0, len(cfg.Calendars))
	calendars := intent.NewMatcher()
	for _, c := range cfg.Calendars {
		sources = append(sources, ics.Source{ID: c.ID, URL: c.URL})
		calendars.Add(intent.Target{ID: c.ID, Name: c.Name, Aliases: c.Aliases, Domain: intent.DomainCalendar})
	}
	calendar := ics.NewCalendar(ics.NewFetcher(cfg.CacheDir), loc, sources, secrets.Resolve)

	agents := intent.NewMatcher()
	relayAgents := make([]relay.Agent, 0, len(cfg.Agents))
	for _, a := range cfg.Agents {
		agents.Add(intent.Target{ID: a.ID, Name: a.Name, Aliases: a.Aliases, Domain: intent.DomainConversation})
		relayAgents = append(relayAgents, relay.Agent{ID: a.ID, URL: a.URL, Token: a.Token})
	}
	router := relay.NewRouter(relay.New(relayTimeout), relayAgents, secrets.Resolve)

	dispatcher, err := intent.NewDispatcher(
		&intent.ReadCalendar{Calendars: calendars, Events: calendar, Location: loc, Clock: clock, Speech: catalog},
		&intent.ConversationProcess{Agents: agents, Relay: router, Speech: catalog},
		&intent.RandomNumber{Speech: catalog},
		&intent.CurrentTime{Location: loc, Clock: clock, Speech: catalog},
	)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, loc: loc, calendar: calendar, dispatcher: dispatcher}, nil
}
