package perception

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrScriptExhausted is returned when a scripted client has no reply left.
var ErrScriptExhausted = errors.New("scripted client: no replies left")

// ScriptRule answers any prompt containing Contains.
type ScriptRule struct {
	Contains string `yaml:"contains"`
	Reply    string `yaml:"reply"`
	// Once rules are consumed after their first match.
	Once bool `yaml:"once"`
}

// Script is a canned conversation. Rules are tried first, in order; prompts no
// rule matches consume Replies front to back.
type Script struct {
	Rules   []ScriptRule `yaml:"rules"`
	Replies []string     `yaml:"replies"`
}

// LoadScript reads a YAML script.
func LoadScript(path string) (Script, error) {
	var s Script
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("failed to read script: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse script: %w", err)
	}
	return s, nil
}

// ScriptedClient replays a Script offline. Rule replies depend only on the
// prompt; queued Replies depend on call order, so sessions sharing a client
// are reproducible only when run one after another.
type ScriptedClient struct {
	mu      sync.Mutex
	rules   []ScriptRule
	used    []bool
	replies []string
	prompts []string
}

// NewScriptedClient creates a client over s.
func NewScriptedClient(s Script) *ScriptedClient {
	return &ScriptedClient{
		rules:   append([]ScriptRule(nil), s.Rules...),
		used:    make([]bool, len(s.Rules)),
		replies: append([]string(nil), s.Replies...),
	}
}

// NewReplyClient is a ScriptedClient answering with replies in order.
func NewReplyClient(replies ...string) *ScriptedClient {
	return NewScriptedClient(Script{Replies: replies})
}

// Complete returns the next scripted reply for prompt.
func (c *ScriptedClient) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)

	for i, rule := range c.rules {
		if c.used[i] || !strings.Contains(prompt, rule.Contains) {
			continue
		}
		if rule.Once {
			c.used[i] = true
		}
		return rule.Reply, nil
	}

	if len(c.replies) == 0 {
		return "", ErrScriptExhausted
	}
	reply := c.replies[0]
	c.replies = c.replies[1:]
	return reply, nil
}

// CompleteWithSystem ignores the system prompt.
func (c *ScriptedClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.Complete(ctx, userPrompt)
}

// Prompts returns every prompt received so far.
func (c *ScriptedClient) Prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.prompts...)
}

// Calls returns the number of prompts received.
func (c *ScriptedClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prompts)
}
