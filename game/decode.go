package game

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/Digital-Creators-Team/arcade-client/errors"
	"github.com/Digital-Creators-Team/arcade-client/pkg/providers"
)

var decimalType = reflect.TypeOf(decimal.Decimal{})

// decimalHook lets payload numbers and numeric strings land in decimal fields
func decimalHook(_ reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != decimalType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		return decimal.NewFromString(v)
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case json.Number:
		return decimal.NewFromString(v.String())
	}
	return data, nil
}

// Decode decodes a wire payload into out (a pointer to a board struct)
func Decode(p providers.Payload, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			decimalHook,
			mapstructure.StringToTimeDurationHookFunc(),
		),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrPayload, "failed to build payload decoder")
	}
	if err := dec.Decode(map[string]interface{}(p)); err != nil {
		return errors.Wrap(err, errors.ErrPayload, "malformed game payload")
	}
	return nil
}

// DecodeSettlement converts a wire settlement into a typed one, decoding the
// final state and every step state with decode. Step order is preserved.
func DecodeSettlement[B any](raw *providers.Settlement, decode func(providers.Payload) (B, error)) (*Settlement[B], error) {
	if raw == nil {
		return nil, errors.New(errors.ErrPayload, "terminal response carries no settlement")
	}

	final, err := decode(raw.Final)
	if err != nil {
		return nil, err
	}

	steps := make([]Step[B], 0, len(raw.Steps))
	for i, s := range raw.Steps {
		result, err := decode(s.State)
		if err != nil {
			return nil, errors.WrapWithDebug(err, errors.ErrPayload, "malformed settlement step", s.Kind)
		}
		steps = append(steps, Step[B]{
			Index:  i,
			Kind:   s.Kind,
			Marks:  append([]int(nil), s.Marks...),
			Result: result,
			Settle: time.Duration(s.SettleMs) * time.Millisecond,
		})
	}

	return &Settlement[B]{
		Final: final,
		Steps: steps,
		Delta: Delta{
			Net:          raw.Delta.Net,
			Payout:       raw.Delta.Payout,
			BalanceAfter: raw.Delta.BalanceAfter,
			Outcome:      raw.Delta.Outcome,
		},
		Free:    raw.Free,
		Label:   raw.Label,
		Metrics: lo.Assign(map[string]float64{}, raw.Metrics),
	}, nil
}
