package intent

import (
	"context"
	"time"

	"intentcal/internal/speech"
)

// CurrentTime tells the time in the configured zone.
type CurrentTime struct {
	Location *time.Location
	Clock    Clock
	Speech   *speech.Catalog
}

func (h *CurrentTime) Type() string { return "CurrentTime" }

func (h *CurrentTime) Description() string { return "Get the current time." }

func (h *CurrentTime) Schema() Schema { return Schema{} }

func (h *CurrentTime) Handle(_ context.Context, in *Intent, _ Values) (*Response, error) {
	loc := h.Location
	if loc == nil {
		loc = time.Local
	}
	now := h.Clock.Now().In(loc).Format("15:04")
	return speak(h.Speech.Say(in.Language, speech.KeyCurrentTime, map[string]any{"Time": now})), nil
}
