package tui

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stockdesk/stockdesk/internal/api"
	"github.com/stockdesk/stockdesk/internal/entity"
	"github.com/stockdesk/stockdesk/internal/importer"
)

// Actions are the row operations a list screen performs. A nil func
// disables the matching key.
type Actions struct {
	Delete func(ctx context.Context, id string) error
	Create func(ctx context.Context, payload map[string]any) error
	Update func(ctx context.Context, id string, payload map[string]any) error
	Import importer.Backend
}

// APIActions binds Actions to the REST client for entityName.
func APIActions(c *api.Client, entityName string) Actions {
	return Actions{
		Delete: func(ctx context.Context, id string) error {
			return c.Delete(ctx, entityName, id)
		},
		Create: func(ctx context.Context, payload map[string]any) error {
			_, err := api.Create[json.RawMessage](ctx, c, entityName, payload)
			return err
		},
		Update: func(ctx context.Context, id string, payload map[string]any) error {
			_, err := api.Update[json.RawMessage](ctx, c, entityName, id, payload)
			return err
		},
		Import: c,
	}
}

// formValues pre-fills fields from a record. Date fields keep only the
// calendar date.
func formValues(fields []entity.FormField, record any) map[string]string {
	values := recordValues(record)
	for _, f := range fields {
		if v := values[f.Name]; f.Kind == entity.KindDate && len(v) > len(entity.DateLayout) {
			values[f.Name] = v[:len(entity.DateLayout)]
		}
	}
	return values
}

// recordValues flattens a record to form values through its JSON encoding.
func recordValues(record any) map[string]string {
	raw, err := json.Marshal(record)
	if err != nil {
		return map[string]string{}
	}
	var fields map[string]any
	if err = json.Unmarshal(raw, &fields); err != nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		switch v := v.(type) {
		case nil:
		case string:
			out[k] = v
		case float64:
			out[k] = fmt.Sprintf("%v", v)
		default:
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}
