package log

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// badKey names the field holding a trailing value that has no key.
const badKey = "!BADKEY"

// toFields turns alternating key/value pairs into zap fields. A zap.Field or
// an error may stand alone anywhere in the list.
func toFields(kvs ...any) []zap.Field {
	if len(kvs) == 0 {
		return nil
	}

	fields := make([]zap.Field, 0, len(kvs)/2+1)
	for i := 0; i < len(kvs); i++ {
		switch v := kvs[i].(type) {
		case zap.Field:
			fields = append(fields, v)
			continue
		case error:
			fields = append(fields, zap.Error(v))
			continue
		}

		if i == len(kvs)-1 {
			fields = append(fields, zap.Any(badKey, kvs[i]))
			break
		}
		fields = append(fields, field(keyString(kvs[i]), kvs[i+1]))
		i++
	}
	return fields
}

func keyString(k any) string {
	if s, ok := k.(string); ok {
		return s
	}
	return fmt.Sprint(k)
}

// field picks a typed constructor for the values that show up in fleet logs
// and leaves the rest to zap.Any.
func field(key string, val any) zap.Field {
	switch v := val.(type) {
	case string:
		return zap.String(key, v)
	case int:
		return zap.Int(key, v)
	case int64:
		return zap.Int64(key, v)
	case float64:
		return zap.Float64(key, v)
	case bool:
		return zap.Bool(key, v)
	case time.Duration:
		return zap.Duration(key, v)
	case time.Time:
		return zap.Time(key, v)
	case error:
		return zap.NamedError(key, v)
	case fmt.Stringer:
		return zap.Stringer(key, v)
	default:
		return zap.Any(key, v)
	}
}
