package log

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestToFields(t *testing.T) {
	now := time.Now()
	err := errors.New("boom")

	tests := []struct {
		name  string
		input []any
		want  int
	}{
		{"empty input", []any{}, 0},
		{"string-int-bool", []any{"a", "x", "b", 123, "c", true}, 3},
		{"time type", []any{"t", now}, 1},
		{"duration type", []any{"d", 1500 * time.Millisecond}, 1},
		{"float type", []any{"pi", 3.14}, 1},
		{"bytes", []any{"data", []byte("xyz")}, 1},
		{"error only", []any{err}, 1},
		{"multiple errors", []any{err, errors.New("again")}, 2},
		{"mixed field types", []any{"msg", "ok", zap.String("x", "y"), "num", 42}, 3},
		{"odd number of args", []any{"key1", "val1", "key2"}, 2},
		{"non-string key", []any{123, "value", true, 99}, 2},
		{"nil values", []any{"a", nil, "b", (*int)(nil)}, 2},
		{"map value", []any{"a", map[string]string{"xyz": "123"}}, 1},
		{"id slice", []any{"ignored", []int{3, 7}}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := toFields(tt.input...)

			if len(fields) != tt.want {
				t.Fatalf("got %d fields, want %d: %+v", len(fields), tt.want, fields)
			}

			for _, f := range fields {
				if f.Key == "" {
					t.Errorf("field has empty key: %+v", f)
				}
			}
		})
	}
}

func TestToFieldTypes(t *testing.T) {
	tests := []struct {
		val  any
		want zapcore.FieldType
	}{
		{"udp0", zapcore.StringType},
		{7, zapcore.Int64Type},
		{uint8(3), zapcore.Uint8Type},
		{time.Second, zapcore.DurationType},
		{[]int{1, 2}, zapcore.ArrayMarshalerType},
		{errors.New("x"), zapcore.ErrorType},
	}

	for _, tt := range tests {
		if got := toField("k", tt.val).Type; got != tt.want {
			t.Errorf("toField(%T) type = %v, want %v", tt.val, got, tt.want)
		}
	}
}

func TestReplaceRoutesPackageLevelCalls(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := Replace(FromZap(zap.New(core)))
	defer restore()

	Info("vehicle admitted", "vehicleID", 7)
	WithName("heartbeat").Warn("link down", "link", "udp0")

	if logs.Len() != 2 {
		t.Fatalf("got %d entries, want 2", logs.Len())
	}
	first := logs.All()[0]
	if first.Message != "vehicle admitted" || first.ContextMap()["vehicleID"] != int64(7) {
		t.Errorf("unexpected first entry: %+v", first)
	}
	if got := logs.All()[1].LoggerName; got != "heartbeat" {
		t.Errorf("logger name = %q, want heartbeat", got)
	}
}

func TestOptionsValidate(t *testing.T) {
	o := NewOptions()
	if errs := o.Validate(); len(errs) != 0 {
		t.Fatalf("defaults should validate, got %v", errs)
	}

	o.Format = "xml"
	o.Level = "loud"
	if errs := o.Validate(); len(errs) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(errs), errs)
	}
}
