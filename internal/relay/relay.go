// Package relay forwards text to other conversation agents over HTTP.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	appLog "intentcal/internal/log"
)

// maxResponseBytes caps how much of an agent reply is read.
const maxResponseBytes = 1 << 20

// Agent is a resolved relay target.
type Agent struct {
	ID    string
	URL   string
	Token string
}

type request struct {
	Text    string `json:"text"`
	AgentID string `json:"agent_id"`
}

// reply mirrors the subset of a conversation result that carries speech.
type reply struct {
	Response struct {
		Speech struct {
			Plain struct {
				Speech string `json:"speech"`
			} `json:"plain"`
		} `json:"speech"`
	} `json:"response"`
}

// Client posts conversation requests to agents.
type Client struct {
	http *http.Client
}

// New returns a Client with the given request timeout; zero uses 30s.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{http: &http.Client{Timeout: timeout}}
}

// Process sends text to agent and returns its plain speech reply. A reply
// without speech yields an empty string.
func (c *Client) Process(ctx context.Context, agent Agent, text string) (string, error) {
	if agent.URL == "" {
		return "", errors.Errorf("agent %q has no url", agent.ID)
	}

	body, err := json.Marshal(request{Text: text, AgentID: agent.ID})
	if err != nil {
		return "", errors.Wrap(err, "encode relay request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, agent.URL, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrapf(err, "build relay request for %q", agent.ID)
	}
	req.Header.Set("Content-Type", "application/json")
	if agent.Token != "" {
		req.Header.Set("Authorization", "Bearer "+agent.Token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "relay to %q", agent.ID)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", errors.Wrapf(err, "read reply from %q", agent.ID)
	}
	if resp.StatusCode/100 != 2 {
		return "", errors.Errorf("agent %q answered %s", agent.ID, resp.Status)
	}

	var r reply
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &r); err != nil {
			return "", errors.Wrapf(err, "decode reply from %q", agent.ID)
		}
	}

	appLog.Debug("relay completed", "agent", agent.ID, "status", resp.StatusCode, "elapsed", time.Since(start))
	return r.Response.Speech.Plain.Speech, nil
}

// Router relays by agent ID over a fixed set of agents. Tokens may be
// secret references, resolved on each call.
type Router struct {
	client  *Client
	agents  map[string]Agent
	resolve func(string) (string, error)
}

// NewRouter indexes agents by ID. A nil resolve uses tokens as-is.
func NewRouter(client *Client, agents []Agent, resolve func(string) (string, error)) *Router {
	if resolve == nil {
		resolve = func(s string) (string, error) { return s, nil }
	}
	r := &Router{client: client, agents: make(map[string]Agent, len(agents)), resolve: resolve}
	for _, a := range agents {
		r.agents[a.ID] = a
	}
	return r
}

// Process relays text to the agent with agentID.
func (r *Router) Process(ctx context.Context, agentID, text string) (string, error) {
	agent, ok := r.agents[agentID]
	if !ok {
		return "", errors.Errorf("no relay configured for agent %q", agentID)
	}
	if agent.Token != "" {
		tok, err := r.resolve(agent.Token)
		if err != nil {
			return "", errors.Wrapf(err, "token for agent %q", agentID)
		}
		agent.Token = tok
	}
	return r.client.Process(ctx, agent, text)
}
