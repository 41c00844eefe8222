// Package llmsource provides an optional DecisionSource backed by the
// Anthropic Messages API: each agent's Perception is rendered into a
// prompt, the model's reply is parsed back into an action.Request, and
// any agent whose call fails or returns unparseable JSON is simply
// omitted from the result map so the tick engine synthesizes NoAction
// for it.
package llmsource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/emergence/internal/action"
	"github.com/talgya/emergence/internal/decision"
	"github.com/talgya/emergence/internal/world"
)

const (
	apiURL     = "https://api.anthropic.com/v1/messages"
	apiVersion = "2023-06-01"
	model      = "claude-haiku-4-5-20251001"
)

// Client wraps the Anthropic Messages API and implements
// decision.DecisionSource.
type Client struct {
	apiKey     string
	httpClient *http.Client

	mu        sync.Mutex
	callCount int
	resetAt   time.Time
	maxPerMin int
}

var _ decision.DecisionSource = (*Client)(nil)

// New creates a Haiku-backed decision source. Returns nil if apiKey is
// empty, since the DecisionSource is an optional plugin: callers should
// fall back to decision.NewHeuristicDecisionSource when this is nil.
func New(apiKey string) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		maxPerMin:  120,
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string              `json:"model"`
	MaxTokens int                 `json:"max_tokens"`
	System    string              `json:"system,omitempty"`
	Messages  []anthropicMessage  `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

const systemPrompt = `You choose one action per tick for an agent in a survival simulation.
Reply with a single JSON object only, no prose: {"kind":"<kind>","resource":"<resource>","quantity":<uint>,"target_id":"<uuid or empty>","destination":"<uuid or empty>","message":"<string>"}.
Valid kinds: no_action, gather, eat, drink, rest, move, build, repair, demolish, improve_route, communicate, broadcast, trade_offer, trade_accept, trade_reject, form_group, teach, farm_plant, farm_harvest, craft, mine, smelt, write, read, claim, legislate, enforce, reproduce.`

// Decide renders each agent's Perception into a prompt and collects the
// parsed action.Request for every agent that answered in time with a
// well-formed reply. Failures are silently dropped, not errored: the
// tick engine's decide phase synthesizes NoAction for any agent missing
// from the returned map.
func (c *Client) Decide(ctx context.Context, tick uint64, perceptions map[uuid.UUID]decision.Perception) map[uuid.UUID]action.Request {
	out := make(map[uuid.UUID]action.Request, len(perceptions))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for id, p := range perceptions {
		wg.Add(1)
		go func(id uuid.UUID, p decision.Perception) {
			defer wg.Done()
			req, ok := c.decideOne(ctx, tick, p)
			if !ok {
				return
			}
			mu.Lock()
			out[id] = req
			mu.Unlock()
		}(id, p)
	}
	wg.Wait()
	return out
}

func (c *Client) decideOne(ctx context.Context, tick uint64, p decision.Perception) (action.Request, bool) {
	if !c.allow() {
		return action.Request{}, false
	}

	text, err := c.complete(ctx, systemPrompt, renderPrompt(p))
	if err != nil {
		slog.Warn("llmsource decide call failed", "agent_id", p.AgentID, "error", err)
		return action.Request{}, false
	}

	req, err := parseRequest(p.AgentID, text)
	if err != nil {
		slog.Warn("llmsource reply unparseable", "agent_id", p.AgentID, "error", err)
		return action.Request{}, false
	}
	return req, true
}

func (c *Client) allow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if now.After(c.resetAt) {
		c.callCount = 0
		c.resetAt = now.Add(time.Minute)
	}
	if c.callCount >= c.maxPerMin {
		return false
	}
	c.callCount++
	return true
}

func (c *Client) complete(ctx context.Context, system, userPrompt string) (string, error) {
	req := anthropicRequest{
		Model:     model,
		MaxTokens: 200,
		System:    system,
		Messages:  []anthropicMessage{{Role: "user", Content: userPrompt}},
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("api error %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(apiResp.Content) == 0 {
		return "", fmt.Errorf("empty response")
	}
	return apiResp.Content[0].Text, nil
}

func renderPrompt(p decision.Perception) string {
	var b strings.Builder
	fmt.Fprintf(&b, "tick=%d location=%s terrain=%v\n", p.Tick, p.LocationName, p.Terrain)
	fmt.Fprintf(&b, "self: energy=%d health=%d hunger=%d thirst=%d\n", p.Self.Energy, p.Self.Health, p.Self.Hunger, p.Self.Thirst)
	for _, v := range p.Visible {
		fmt.Fprintf(&b, "resource: %s ~%d\n", v.Resource, v.Quantity)
	}
	for _, g := range p.Self.Goals {
		fmt.Fprintf(&b, "goal: %v\n", g.Kind)
	}
	return b.String()
}

type replyPayload struct {
	Kind        string `json:"kind"`
	Resource    string `json:"resource"`
	Quantity    uint32 `json:"quantity"`
	TargetID    string `json:"target_id"`
	Destination string `json:"destination"`
	Message     string `json:"message"`
}

var kindByName = map[string]action.Kind{
	"no_action": action.KindNoAction, "gather": action.KindGather, "eat": action.KindEat,
	"drink": action.KindDrink, "rest": action.KindRest, "move": action.KindMove,
	"build": action.KindBuild, "repair": action.KindRepair, "demolish": action.KindDemolish,
	"improve_route": action.KindImproveRoute, "communicate": action.KindCommunicate,
	"broadcast": action.KindBroadcast, "trade_offer": action.KindTradeOffer,
	"trade_accept": action.KindTradeAccept, "trade_reject": action.KindTradeReject,
	"form_group": action.KindFormGroup, "teach": action.KindTeach,
	"farm_plant": action.KindFarmPlant, "farm_harvest": action.KindFarmHarvest,
	"craft": action.KindCraft, "mine": action.KindMine, "smelt": action.KindSmelt,
	"write": action.KindWrite, "read": action.KindRead, "claim": action.KindClaim,
	"legislate": action.KindLegislate, "enforce": action.KindEnforce,
	"reproduce": action.KindReproduce,
}

// parseRequest parses the span from the first '{' to the last '}' in text (models
// sometimes wrap replies in prose despite instructions) and converts it
// into an action.Request for the given agent.
func parseRequest(agentID uuid.UUID, text string) (action.Request, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return action.Request{}, fmt.Errorf("no JSON object in reply")
	}

	var payload replyPayload
	if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err != nil {
		return action.Request{}, fmt.Errorf("unmarshal reply: %w", err)
	}

	kind, ok := kindByName[payload.Kind]
	if !ok {
		return action.Request{}, fmt.Errorf("unknown kind %q", payload.Kind)
	}

	req := action.Request{
		AgentID:  agentID,
		Kind:     kind,
		Resource: world.Resource(payload.Resource),
		Quantity: payload.Quantity,
		Message:  payload.Message,
	}
	if payload.TargetID != "" {
		if id, err := uuid.Parse(payload.TargetID); err == nil {
			req.TargetID = id
		}
	}
	if payload.Destination != "" {
		if id, err := uuid.Parse(payload.Destination); err == nil {
			req.Destination = id
		}
	}
	return req, nil
}
