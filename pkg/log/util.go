package log

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// toFields converts logr-style arguments to zap fields. Besides key/value
// pairs it accepts bare zap.Field and error values. A trailing unpaired value
// is kept under "arg#N" and a non-string key is logged together with its value.
func toFields(args ...any) []zap.Field {
	if len(args) == 0 {
		return nil
	}

	fields := make([]zap.Field, 0, len(args)/2+1)
	for i := 0; i < len(args); {
		switch a := args[i].(type) {
		case zap.Field:
			fields = append(fields, a)
			i++
			continue
		case error:
			fields = append(fields, zap.Error(a))
			i++
			continue
		}

		if i == len(args)-1 {
			fields = append(fields, zap.Any(fmt.Sprintf("arg#%d", i), args[i]))
			break
		}

		key, val := args[i], args[i+1]
		i += 2

		if k, ok := key.(string); ok {
			fields = append(fields, toField(k, val))
			continue
		}
		fields = append(fields, zap.Any(fmt.Sprintf("invalid_key_%d", i/2), map[string]any{
			"key":   key,
			"value": val,
		}))
	}

	return fields
}

// toField picks a typed constructor for the common value types so they are
// encoded without reflection.
func toField(key string, val any) zap.Field {
	switch v := val.(type) {
	case string:
		return zap.String(key, v)
	case bool:
		return zap.Bool(key, v)
	case int:
		return zap.Int(key, v)
	case int32:
		return zap.Int32(key, v)
	case int64:
		return zap.Int64(key, v)
	case uint8:
		return zap.Uint8(key, v)
	case uint16:
		return zap.Uint16(key, v)
	case uint32:
		return zap.Uint32(key, v)
	case uint64:
		return zap.Uint64(key, v)
	case float64:
		return zap.Float64(key, v)
	case time.Duration:
		return zap.Duration(key, v)
	case time.Time:
		return zap.Time(key, v)
	case error:
		return zap.NamedError(key, v)
	case []byte:
		return zap.Binary(key, v)
	case []int:
		return zap.Ints(key, v)
	case []string:
		return zap.Strings(key, v)
	case zapcore.ObjectMarshaler:
		return zap.Object(key, v)
	case fmt.Stringer:
		return zap.Stringer(key, v)
	default:
		return zap.Any(key, v)
	}
}
