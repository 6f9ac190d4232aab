package repository

import "testing"

func TestNullableString(t *testing.T) {
	t.Parallel()

	if v := nullableString(""); v != nil {
		t.Errorf("nullableString(\"\") = %v, want nil", v)
	}
	if v := nullableString("x"); v != "x" {
		t.Errorf("nullableString(\"x\") = %v, want \"x\"", v)
	}
}

func TestNullableInt(t *testing.T) {
	t.Parallel()

	if v := nullableInt(0); v != nil {
		t.Errorf("nullableInt(0) = %v, want nil", v)
	}
	if v := nullableInt(1920); v != 1920 {
		t.Errorf("nullableInt(1920) = %v, want 1920", v)
	}
}

func TestDeref(t *testing.T) {
	t.Parallel()

	if v := deref(nil); v != "" {
		t.Errorf("deref(nil) = %q, want empty", v)
	}
	s := "hello"
	if v := deref(&s); v != "hello" {
		t.Errorf("deref(&s) = %q, want %q", v, s)
	}
}
