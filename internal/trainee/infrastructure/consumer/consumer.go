// Package consumer wires the generic event bus to the Event Ingest
// Orchestrator (C8): one bus EventType maps to one ingest.Handlers method,
// decoding the bus envelope's Data map into the rules-engine snapshot type
// the handler expects.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/hee-tis/trainee-notifications/internal/trainee/application/ingest"
	"github.com/hee-tis/trainee-notifications/internal/trainee/domain/rules"
	"github.com/hee-tis/trainee-notifications/pkg/events"
	"github.com/hee-tis/trainee-notifications/pkg/logger"
)

var validate = validator.New()

// EventTypes lists every inbound queue the orchestrator subscribes to.
var EventTypes = []events.EventType{
	events.EventTypeProgrammeMembershipUpdated,
	events.EventTypeProgrammeMembershipDeleted,
	events.EventTypePlacementUpdated,
	events.EventTypePlacementDeleted,
	events.EventTypePlacementRolloutCorrection,
	events.EventTypeFormDeleted,
	events.EventTypeGmcUpdated,
	events.EventTypeGmcRejected,
	events.EventTypeLtftUpdated,
	events.EventTypeLtftUpdatedTPD,
	events.EventTypeCojSigned,
}

// Consumer dispatches bus events to Handlers methods.
type Consumer struct {
	Handlers *ingest.Handlers
	Log      *logger.Logger
}

// Handle implements events.Handler, routing by event.Type. Every branch is
// idempotent under at-least-once redelivery per spec.md §5, so returning an
// error here (triggering a nack/redelivery) is always safe.
func (c *Consumer) Handle(ctx context.Context, evt *events.Event) error {
	switch evt.Type {
	case events.EventTypeProgrammeMembershipUpdated:
		var pm rules.ProgrammeMembership
		if err := decode(evt.Data, &pm); err != nil {
			return err
		}
		return c.Handlers.ProgrammeMembershipUpdated(ctx, pm)

	case events.EventTypeProgrammeMembershipDeleted:
		return c.Handlers.ProgrammeMembershipDeleted(ctx, evt.AggregateID)

	case events.EventTypePlacementUpdated:
		var p rules.Placement
		if err := decode(evt.Data, &p); err != nil {
			return err
		}
		return c.Handlers.PlacementUpdated(ctx, p)

	case events.EventTypePlacementDeleted:
		return c.Handlers.PlacementDeleted(ctx, evt.AggregateID)

	case events.EventTypePlacementRolloutCorrection:
		var p rules.Placement
		if err := decode(evt.Data, &p); err != nil {
			return err
		}
		return c.Handlers.PlacementRolloutCorrection(ctx, p)

	case events.EventTypeFormDeleted:
		return c.Handlers.FormDeleted(ctx, evt.AggregateID)

	case events.EventTypeGmcUpdated:
		var g rules.GmcUpdate
		if err := decode(evt.Data, &g); err != nil {
			return err
		}
		loName, _ := evt.Data["managingDeanery"].(string)
		return c.Handlers.GmcUpdated(ctx, g, loName)

	case events.EventTypeGmcRejected:
		var g rules.GmcRejected
		if err := decode(evt.Data, &g); err != nil {
			return err
		}
		return c.Handlers.GmcRejected(ctx, g)

	case events.EventTypeLtftUpdated:
		var l rules.LtftUpdate
		if err := decode(evt.Data, &l); err != nil {
			return err
		}
		return c.Handlers.LtftUpdated(ctx, l)

	case events.EventTypeLtftUpdatedTPD:
		var l rules.LtftUpdate
		if err := decode(evt.Data, &l); err != nil {
			return err
		}
		return c.Handlers.LtftUpdatedTPD(ctx, l)

	case events.EventTypeCojSigned:
		return c.Handlers.CojSigned(ctx, evt.AggregateID)

	default:
		c.Log.Error().Str("event_type", string(evt.Type)).Msg("no handler registered for event type")
		return nil
	}
}

// decode unmarshals the bus envelope's Data map into out and validates its
// required fields are present; a malformed or incomplete payload returns an
// error so the caller nacks the delivery instead of scheduling on partial data.
func decode(data map[string]interface{}, out interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode event payload: %w", err)
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("invalid event payload: %w", err)
	}
	return nil
}
