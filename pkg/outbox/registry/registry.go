// Package registry routes outbox rows to sink topics and decodes their
// payloads into the typed events in pkg/outbox/payloads.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/wixandwax/storefront-backend/pkg/db/models"
	"github.com/wixandwax/storefront-backend/pkg/enums"
	"github.com/wixandwax/storefront-backend/pkg/outbox"
	"github.com/wixandwax/storefront-backend/pkg/outbox/payloads"
)

// Topics names the destinations on whichever sink is active.
type Topics struct {
	Orders   string
	Payments string
}

// Route is where one event type goes and how its data is read back.
type Route struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	decode        func(json.RawMessage) (any, error)
}

// ResolvedEvent is a validated outbox row ready to publish.
type ResolvedEvent struct {
	Route    Route
	Envelope outbox.PayloadEnvelope
	Payload  any
}

type EventRegistry struct {
	routes map[enums.OutboxEventType]Route
}

func orderRoute[T any](eventType enums.OutboxEventType, topic string) Route {
	return Route{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		Topic:         topic,
		decode: func(data json.RawMessage) (any, error) {
			v := new(T)
			if err := json.Unmarshal(data, v); err != nil {
				return nil, err
			}
			return v, nil
		},
	}
}

// NewEventRegistry sends order lifecycle events to the orders topic and
// payment outcomes to the payments topic.
func NewEventRegistry(topics Topics) (*EventRegistry, error) {
	var missing []string
	if strings.TrimSpace(topics.Orders) == "" {
		missing = append(missing, "orders")
	}
	if strings.TrimSpace(topics.Payments) == "" {
		missing = append(missing, "payments")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("topic names required: %s", strings.Join(missing, ", "))
	}

	routes := []Route{
		orderRoute[payloads.OrderCreatedEvent](enums.EventOrderCreated, topics.Orders),
		orderRoute[payloads.OrderExpiredEvent](enums.EventOrderExpired, topics.Orders),
		orderRoute[payloads.OrderCancelledEvent](enums.EventOrderCancelled, topics.Orders),
		orderRoute[payloads.OrderPaidEvent](enums.EventOrderPaid, topics.Payments),
		orderRoute[payloads.PaymentFailedEvent](enums.EventPaymentFailed, topics.Payments),
	}
	reg := &EventRegistry{routes: make(map[enums.OutboxEventType]Route, len(routes))}
	for _, r := range routes {
		reg.routes[r.EventType] = r
	}
	return reg, nil
}

// Topics lists the distinct destinations, sorted.
func (r *EventRegistry) Topics() []string {
	out := make([]string, 0, len(r.routes))
	for _, route := range r.routes {
		out = append(out, route.Topic)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Resolve checks the row against its route and decodes the payload. Every
// error it returns is permanent: retrying the same row cannot fix it.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	route, ok := r.routes[event.EventType]
	switch {
	case !ok:
		return nil, Permanent(fmt.Errorf("no route for event type %q", event.EventType))
	case route.AggregateType != event.AggregateType:
		return nil, Permanent(fmt.Errorf("%s belongs to %s aggregates, row has %q", event.EventType, route.AggregateType, event.AggregateType))
	case event.AggregateID == uuid.Nil:
		return nil, Permanent(errors.New("row has no aggregate id"))
	}

	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, Permanent(fmt.Errorf("%s: %w", event.EventType, err))
	}
	payload, err := route.decode(envelope.Data)
	if err != nil {
		return nil, Permanent(fmt.Errorf("%s data: %w", event.EventType, err))
	}
	return &ResolvedEvent{Route: route, Envelope: envelope, Payload: payload}, nil
}
