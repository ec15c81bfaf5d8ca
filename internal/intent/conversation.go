package intent

import (
	"context"

	"github.com/pkg/errors"

	"intentcal/internal/speech"
)

// Relay forwards text to another conversation agent and returns its
// spoken reply.
type Relay interface {
	Process(ctx context.Context, agentID, text string) (string, error)
}

// ConversationProcess hands a prompt to a different conversation agent.
type ConversationProcess struct {
	Agents *Matcher
	Relay  Relay
	Speech *speech.Catalog
}

func (h *ConversationProcess) Type() string { return "ConversationProcess" }

func (h *ConversationProcess) Description() string {
	return "Processes a prompt or command with a different conversation agent."
}

func (h *ConversationProcess) Schema() Schema {
	return Schema{
		"name": {Required: true},
		"text": {Required: true},
	}
}

func (h *ConversationProcess) Handle(ctx context.Context, in *Intent, v Values) (*Response, error) {
	name, _ := v.String("name")
	text, _ := v.String("text")
	data := map[string]any{"Name": name}

	agent, ok := h.Agents.Match(name, DomainConversation)
	if !ok {
		return speak(h.Speech.Say(in.Language, speech.KeyWhoIs, data)), nil
	}
	if agent.ID == in.ConversationAgentID {
		return speak(h.Speech.Say(in.Language, speech.KeyIAm, data)), nil
	}

	reply, err := h.Relay.Process(ctx, agent.ID, text)
	if err != nil {
		return nil, errors.Wrapf(err, "conversation with %q", agent.ID)
	}

	data["Text"] = reply
	return speak(h.Speech.Say(in.Language, speech.KeyAgentSays, data)), nil
}
