package wire

import (
	"errors"
	"reflect"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		v    any
		want Kind
	}{
		{nil, KindNull},
		{true, KindBool},
		{int64(3), KindNumber},
		{uint8(3), KindNumber},
		{1.5, KindNumber},
		{"x", KindString},
		{[]any{1}, KindSequence},
		{Map{"a": 1}, KindMapping},
		{struct{}{}, KindInvalid},
		{map[any]any{}, KindInvalid},
	}
	for _, c := range cases {
		if got := KindOf(c.v); got != c.want {
			t.Errorf("KindOf(%#v) = %s, want %s", c.v, got, c.want)
		}
	}
}

func TestAsMap_ConversionError(t *testing.T) {
	_, err := AsMap("nope")
	var ce *ConversionError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConversionError, got %v", err)
	}
	if ce.Want != KindMapping || ce.Got != KindString {
		t.Fatalf("unexpected kinds: %+v", ce)
	}
}

func TestAsInt64(t *testing.T) {
	cases := []struct {
		v       any
		want    int64
		wantErr bool
	}{
		{int64(-4), -4, false},
		{int8(7), 7, false},
		{uint64(9), 9, false},
		{uint64(1 << 63), 0, true},
		{float64(2), 2, false},
		{2.5, 0, true},
		{"2", 0, true},
	}
	for _, c := range cases {
		got, err := AsInt64(c.v)
		if (err != nil) != c.wantErr {
			t.Errorf("AsInt64(%#v) err = %v, wantErr %v", c.v, err, c.wantErr)
			continue
		}
		if got != c.want {
			t.Errorf("AsInt64(%#v) = %d, want %d", c.v, got, c.want)
		}
	}
}

func TestAsFloat64(t *testing.T) {
	if f, err := AsFloat64(int64(3)); err != nil || f != 3 {
		t.Fatalf("AsFloat64(int64) = %v, %v", f, err)
	}
	if _, err := AsFloat64(true); err == nil {
		t.Fatal("expected error for bool")
	}
}

func TestAsScalars(t *testing.T) {
	if s, err := AsString("hi"); err != nil || s != "hi" {
		t.Fatalf("AsString = %q, %v", s, err)
	}
	if b, err := AsBool(true); err != nil || !b {
		t.Fatalf("AsBool = %v, %v", b, err)
	}
	if _, err := AsSlice(Map{}); err == nil {
		t.Fatal("expected AsSlice to reject a mapping")
	}
}

func TestMapOrEmpty(t *testing.T) {
	for _, v := range []any{nil, "x", []any{}, int64(1), Map(nil)} {
		m := MapOrEmpty(v)
		if m == nil || len(m) != 0 {
			t.Fatalf("MapOrEmpty(%#v) = %#v, want empty non-nil map", v, m)
		}
	}
	in := Map{"k": "v"}
	if got := MapOrEmpty(in); !reflect.DeepEqual(got, in) {
		t.Fatalf("MapOrEmpty kept value: got %#v", got)
	}
}

func TestCloneMap_IsDeep(t *testing.T) {
	orig := Map{
		"nested": Map{"a": int64(1)},
		"list":   []any{Map{"b": "c"}},
	}
	cp := CloneMap(orig)
	if !reflect.DeepEqual(cp, orig) {
		t.Fatalf("clone differs: %#v", cp)
	}

	cp["nested"].(Map)["a"] = int64(2)
	cp["list"].([]any)[0].(Map)["b"] = "changed"
	cp["new"] = true

	if orig["nested"].(Map)["a"] != int64(1) {
		t.Fatal("nested map shared with clone")
	}
	if orig["list"].([]any)[0].(Map)["b"] != "c" {
		t.Fatal("sequence element shared with clone")
	}
	if _, ok := orig["new"]; ok {
		t.Fatal("top-level map shared with clone")
	}
}

func TestCloneMap_Nil(t *testing.T) {
	if got := CloneMap(nil); got == nil {
		t.Fatal("CloneMap(nil) returned nil")
	}
}
