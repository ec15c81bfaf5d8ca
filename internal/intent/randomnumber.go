package intent

import (
	"context"
	"math/rand/v2"

	"intentcal/internal/speech"
)

const maxRandomBound = 999999999

// RandomNumber picks an integer in an inclusive range.
type RandomNumber struct {
	// IntN returns a value in [0, n); nil uses math/rand/v2.
	IntN   func(n int) int
	Speech *speech.Catalog
}

func (h *RandomNumber) Type() string { return "RandomNumber" }

func (h *RandomNumber) Description() string { return "Generate a random number in a range." }

func (h *RandomNumber) Schema() Schema {
	return Schema{
		"from": {Required: true, Kind: KindInt, Min: 0, Max: maxRandomBound},
		"to":   {Required: true, Kind: KindInt, Min: 0, Max: maxRandomBound},
	}
}

func (h *RandomNumber) Handle(_ context.Context, in *Intent, v Values) (*Response, error) {
	from, _ := v.Int("from")
	to, _ := v.Int("to")
	if from > to {
		from, to = to, from
	}

	intN := h.IntN
	if intN == nil {
		intN = rand.IntN
	}
	n := from + intN(to-from+1)

	return speak(h.Speech.Say(in.Language, speech.KeyRandomNumber, map[string]any{"Number": n})), nil
}
