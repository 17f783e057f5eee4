package redis

import "strings"

const defaultNamespace = "wnw"

// Keyspace prefixes every key this service writes so several environments can
// share one redis.
type Keyspace string

func (k Keyspace) join(kind string, parts ...string) string {
	ns := strings.TrimSpace(string(k))
	if ns == "" {
		ns = defaultNamespace
	}
	var b strings.Builder
	b.WriteString(ns)
	b.WriteByte(':')
	b.WriteString(kind)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}

func (c *Client) IdempotencyKey(scope, id string) string {
	return c.keys.join("idempotency", scope, id)
}

func (c *Client) RateLimitKey(scope string) string {
	return c.keys.join("rate_limit", scope)
}

// WebhookEventKey marks a gateway event id as processed.
func (c *Client) WebhookEventKey(provider, eventID string) string {
	return c.keys.join("webhook", provider, eventID)
}

func (c *Client) LockKey(name string) string {
	return c.keys.join("lock", name)
}
