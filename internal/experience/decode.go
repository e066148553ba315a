package experience

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

var (
	textFieldType     = reflect.TypeOf(Field[string]{})
	flagFieldType     = reflect.TypeOf(Field[bool]{})
	workTypeFieldType = reflect.TypeOf(Field[WorkType]{})
)

// DecodeOperations converts loosely typed producer output into proposed operations.
// A missing key or null means "not mentioned", an empty string means "cleared".
// A missing or null index decodes to -1, so UPDATE and DELETE without a target are skipped
// by the processor instead of hitting the first record.
// Items that cannot be decoded are skipped; their errors are joined into the returned error
// while the decodable operations are still returned.
func DecodeOperations(logger *zap.Logger, raw []map[string]any) ([]ProposedOperation, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	ops := make([]ProposedOperation, 0, len(raw))
	var errs []error

	for i, item := range raw {
		index, err := decodeIndex(item["index"])
		if err != nil {
			errs = append(errs, fmt.Errorf("operation %d: %w", i, err))
			continue
		}

		var op ProposedOperation
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			DecodeHook:       fieldHook(logger.With(zap.Int("item", i))),
			WeaklyTypedInput: true,
			Result:           &op,
		})
		if err != nil {
			return nil, fmt.Errorf("creating decoder: %w", err)
		}

		if err := decoder.Decode(item); err != nil {
			errs = append(errs, fmt.Errorf("operation %d: %w", i, err))
			continue
		}

		op.Index = index
		ops = append(ops, op)
	}

	return ops, errors.Join(errs...)
}

func fieldHook(logger *zap.Logger) mapstructure.DecodeHookFuncType {
	return func(_ reflect.Type, to reflect.Type, data any) (any, error) {
		switch to {
		case textFieldType:
			return decodeText(data), nil
		case flagFieldType:
			return decodeFlag(data)
		case workTypeFieldType:
			field := decodeText(data)
			raw, ok := field.Value()
			if !ok {
				return Field[WorkType]{state: field.State()}, nil
			}
			wt, ok := ParseWorkType(raw)
			if !ok {
				logger.Warn("unknown work type, treating as not mentioned", zap.String("work_type", raw))
				return Unset[WorkType](), nil
			}
			return SetTo(wt), nil
		default:
			return data, nil
		}
	}
}

func decodeIndex(data any) (int, error) {
	switch val := data.(type) {
	case nil:
		return -1, nil
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case float64:
		if val != math.Trunc(val) || math.IsInf(val, 0) {
			return 0, fmt.Errorf("index %v is not a whole number", val)
		}
		return int(val), nil
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return -1, nil
		}
		index, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, fmt.Errorf("index %q is not a whole number", val)
		}
		return index, nil
	default:
		return 0, fmt.Errorf("unsupported index value of type %T", data)
	}
}

func decodeText(data any) Field[string] {
	switch val := data.(type) {
	case nil:
		return Unset[string]()
	case string:
		if strings.TrimSpace(val) == "" {
			return Clear[string]()
		}
		return SetTo(strings.TrimSpace(val))
	default:
		return SetTo(fmt.Sprintf("%v", val))
	}
}

func decodeFlag(data any) (Field[bool], error) {
	switch val := data.(type) {
	case nil:
		return Unset[bool](), nil
	case bool:
		return SetTo(val), nil
	case float64:
		return SetTo(val != 0), nil
	case int:
		return SetTo(val != 0), nil
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "":
			return Clear[bool](), nil
		case "true", "yes":
			return SetTo(true), nil
		case "false", "no":
			return SetTo(false), nil
		}
		return Field[bool]{}, fmt.Errorf("cannot interpret %q as a boolean", val)
	default:
		return Field[bool]{}, fmt.Errorf("unsupported boolean value of type %T", data)
	}
}
