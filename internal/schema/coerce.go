package schema

import (
	"database/sql"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/mesh-intelligence/yorm/pkg/types"
)

// timeLayouts are tried in order when a driver returns a timestamp as text.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999 -0700",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

// assign converts a driver value to kind and stores it in target.
func assign(target reflect.Value, kind Kind, src any) error {
	switch kind {
	case Integer:
		n, err := toInt64(src)
		if err != nil {
			return err
		}
		if target.CanInt() {
			if target.OverflowInt(n) {
				return errors.Wrapf(types.ErrValueRange, "%d overflows %s", n, target.Type())
			}
			target.SetInt(n)
			return nil
		}
		if n < 0 || target.OverflowUint(uint64(n)) {
			return errors.Wrapf(types.ErrValueRange, "%d overflows %s", n, target.Type())
		}
		target.SetUint(uint64(n))
	case Real:
		f, err := toFloat64(src)
		if err != nil {
			return err
		}
		target.SetFloat(f)
	case Text:
		s, err := toString(src)
		if err != nil {
			return err
		}
		target.SetString(s)
	case Boolean:
		b, err := toBool(src)
		if err != nil {
			return err
		}
		target.SetBool(b)
	case Blob:
		b, err := toBytes(src)
		if err != nil {
			return err
		}
		target.SetBytes(b)
	case Timestamp:
		tm, err := toTime(src)
		if err != nil {
			return err
		}
		target.Set(reflect.ValueOf(tm))
	case Custom:
		scanner := target.Addr().Interface().(sql.Scanner)
		if err := scanner.Scan(src); err != nil {
			return errors.Wrap(err, "scan custom value")
		}
	default:
		return errors.Wrapf(types.ErrUnsupportedField, "kind %s", kind)
	}
	return nil
}

func coerceErr(src any, kind Kind) error {
	return errors.Wrapf(types.ErrCoerce, "%T to %s", src, kind)
}

func toInt64(src any) (int64, error) {
	switch v := src.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case float64:
		if v != float64(int64(v)) {
			return 0, coerceErr(src, Integer)
		}
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return parseInt(string(v))
	case string:
		return parseInt(v)
	}
	return 0, coerceErr(src, Integer)
}

func parseInt(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(types.ErrCoerce, "parse integer %q", s)
	}
	return n, nil
}

func toFloat64(src any) (float64, error) {
	switch v := src.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case []byte:
		return parseFloat(string(v))
	case string:
		return parseFloat(v)
	}
	return 0, coerceErr(src, Real)
}

func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, errors.Wrapf(types.ErrCoerce, "parse real %q", s)
	}
	return f, nil
}

func toString(src any) (string, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	}
	return "", coerceErr(src, Text)
}

func toBool(src any) (bool, error) {
	switch v := src.(type) {
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	case []byte:
		return parseBool(string(v))
	case string:
		return parseBool(v)
	}
	return false, coerceErr(src, Boolean)
}

func parseBool(s string) (bool, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, errors.Wrapf(types.ErrCoerce, "parse boolean %q", s)
	}
	return b, nil
}

func toBytes(src any) ([]byte, error) {
	switch v := src.(type) {
	case []byte:
		return append([]byte(nil), v...), nil
	case string:
		return []byte(v), nil
	}
	return nil, coerceErr(src, Blob)
}

func toTime(src any) (time.Time, error) {
	switch v := src.(type) {
	case time.Time:
		return v, nil
	case []byte:
		return parseTime(string(v))
	case string:
		return parseTime(v)
	case int64:
		return time.Unix(v, 0).UTC(), nil
	}
	return time.Time{}, coerceErr(src, Timestamp)
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	// time.Time.String appends the monotonic clock reading.
	if i := strings.Index(s, " m="); i > 0 {
		s = s[:i]
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	// Zone names shorter than three letters do not match MST; the offset
	// alone fixes the instant.
	if i := strings.LastIndexByte(s, ' '); i > 0 {
		if t, err := time.Parse("2006-01-02 15:04:05.999999999 -0700", s[:i]); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Wrapf(types.ErrCoerce, "parse timestamp %q", s)
}
