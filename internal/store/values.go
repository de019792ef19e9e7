package store

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/screens/internal/form"
	"github.com/matthewbaird/screens/internal/list"
	"github.com/matthewbaird/screens/internal/meta"
)

// TimeLayout is the stored form of time attributes. It is fixed-width so
// stored times order lexically.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// normalize converts v to the canonical Go value stored for c: string for
// textual kinds and times, int64, float64 or bool for scalars, and decoded
// JSON for JSON attributes.
func normalize(c column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		v = rv.Elem().Interface()
	}
	switch c.attr.Type.Kind {
	case meta.KindString, meta.KindText, meta.KindUUID:
		return toString(v), nil
	case meta.KindEnum:
		s := toString(v)
		if s == "" {
			return nil, nil
		}
		if !slices.Contains(c.attr.Type.EnumValues, s) {
			return nil, fmt.Errorf("must be one of %s", strings.Join(c.attr.Type.EnumValues, ", "))
		}
		return s, nil
	case meta.KindInt:
		return toInt(v)
	case meta.KindFloat:
		return toFloat(v)
	case meta.KindBool:
		return toBool(v)
	case meta.KindTime:
		return toTime(v)
	case meta.KindJSON:
		return toJSON(v)
	default:
		return v, nil
	}
}

// toJSON round-trips v through encoding/json so that memory and SQL stores
// hand back the same shapes.
func toJSON(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("must be JSON")
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("must be JSON")
	}
	return out, nil
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(v)
	}
}

func toInt(v any) (any, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return int64(x), nil
	case float32:
		return toInt(float64(x))
	case float64:
		if x != float64(int64(x)) {
			return nil, fmt.Errorf("must be a whole number")
		}
		return int64(x), nil
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return nil, fmt.Errorf("must be a whole number")
		}
		return n, nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("must be a whole number")
		}
		return n, nil
	default:
		return nil, fmt.Errorf("must be a whole number")
	}
}

func toFloat(v any) (any, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("must be a number")
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil, fmt.Errorf("must be a number")
		}
		return f, nil
	}
	n, err := toInt(v)
	if err != nil {
		return nil, fmt.Errorf("must be a number")
	}
	return float64(n.(int64)), nil
}

func toBool(v any) (any, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case int64:
		return x != 0, nil
	case int:
		return x != 0, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return nil, fmt.Errorf("must be true or false")
		}
		return b, nil
	default:
		return nil, fmt.Errorf("must be true or false")
	}
}

func toTime(v any) (any, error) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC().Format(TimeLayout), nil
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.DateTime, time.DateOnly} {
			if t, err := time.Parse(layout, strings.TrimSpace(x)); err == nil {
				return t.UTC().Format(TimeLayout), nil
			}
		}
	}
	return nil, fmt.Errorf("must be a time")
}

// defaultValue evaluates the declared default of c. Function defaults such
// as time.Now or uuid.New are called.
func defaultValue(c column) (any, bool) {
	d := c.attr.Default
	if d == nil {
		return nil, false
	}
	rv := reflect.ValueOf(d)
	if rv.Kind() == reflect.Func {
		if rv.Type().NumIn() != 0 || rv.Type().NumOut() != 1 {
			return nil, false
		}
		d = rv.Call(nil)[0].Interface()
	}
	v, err := normalize(c, d)
	if err != nil {
		return nil, false
	}
	return v, true
}

// prepare validates in against t and merges it over existing, which is nil
// for new records. Validation failures are collected into a *form.Error.
func prepare(t *table, existing, in Record) (Record, error) {
	verr := &form.Error{}
	out := existing.Clone()
	if out == nil {
		out = Record{}
	}

	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, key := range keys {
		c, ok := t.lookup(key)
		if !ok {
			verr.Add(key, "unknown field")
			continue
		}
		if existing != nil && c.attr.ReadOnly {
			continue
		}
		v, err := normalize(c, in[key])
		if err != nil {
			verr.Add(key, err.Error())
			continue
		}
		out[c.name] = v
	}

	if existing == nil {
		if out["id"] == nil || out["id"] == "" {
			out["id"] = uuid.NewString()
		}
		for _, c := range t.columns {
			if out[c.name] != nil {
				continue
			}
			if v, ok := defaultValue(c); ok {
				out[c.name] = v
			}
		}
	}

	for _, c := range t.columns {
		if c.attr.Optional || c.name == "id" {
			continue
		}
		if _, failed := verr.Errors[c.name]; failed {
			continue
		}
		if v := out[c.name]; v == nil || v == "" {
			verr.Add(c.name, "required")
		}
	}

	if !verr.Empty() {
		verr.Message = "Invalid"
		return nil, verr
	}
	for _, c := range t.columns {
		if _, ok := out[c.name]; !ok {
			out[c.name] = nil
		}
	}
	return out, nil
}

// filterValue normalizes the value of f for comparison with c.
func filterValue(c column, f list.Filter) (any, error) {
	switch f.Operator {
	case list.OpContains, list.OpPrefix:
		if f.Value == nil {
			return "", nil
		}
		return toString(f.Value), nil
	case list.OpIn:
		rv := reflect.ValueOf(f.Value)
		if f.Value == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
			return nil, fmt.Errorf("%w: %q: in needs a list value", ErrInvalidFilter, f.Path)
		}
		out := make([]any, 0, rv.Len())
		for i := range rv.Len() {
			v, err := normalize(c, rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %v", ErrInvalidFilter, f.Path, err)
			}
			out = append(out, v)
		}
		return out, nil
	case list.OpEq, list.OpNeq, list.OpGt, list.OpGte, list.OpLt, list.OpLte:
		v, err := normalize(c, f.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidFilter, f.Path, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedOperator, f.Operator)
	}
}

// compareValues orders stored values; nil sorts first.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if af, ok := number(a); ok {
		if bf, ok := number(b); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ab == bb:
				return 0
			case !ab:
				return -1
			}
			return 1
		}
	}
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return strings.Compare(as, bs)
		}
	}
	if reflect.DeepEqual(a, b) {
		return 0
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// match evaluates one normalized filter against a stored value, following
// SQL semantics for NULL.
func match(op string, have, want any) bool {
	if op == list.OpEq && want == nil {
		return have == nil
	}
	if op == list.OpNeq && want == nil {
		return have != nil
	}
	if have == nil {
		return false
	}
	switch op {
	case list.OpEq:
		return compareValues(have, want) == 0
	case list.OpNeq:
		return compareValues(have, want) != 0
	case list.OpGt:
		return compareValues(have, want) > 0
	case list.OpGte:
		return compareValues(have, want) >= 0
	case list.OpLt:
		return compareValues(have, want) < 0
	case list.OpLte:
		return compareValues(have, want) <= 0
	case list.OpContains:
		return strings.Contains(strings.ToLower(toString(have)), strings.ToLower(want.(string)))
	case list.OpPrefix:
		return strings.HasPrefix(strings.ToLower(toString(have)), strings.ToLower(want.(string)))
	case list.OpIn:
		for _, w := range want.([]any) {
			if w != nil && compareValues(have, w) == 0 {
				return true
			}
		}
	}
	return false
}
