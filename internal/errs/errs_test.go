package errs

import (
	"errors"
	"testing"
)

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(FileIO, cause, "flushing buffer")

	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find the wrapped cause")
	}

	var target *Error
	if !errors.As(err, &target) {
		t.Fatalf("expected errors.As to find *Error")
	}
	if target.Kind != FileIO {
		t.Fatalf("Kind = %v, want %v", target.Kind, FileIO)
	}
}

func TestAsKind(t *testing.T) {
	err := New(InvalidValue, "value %d out of range", 42)
	kind, ok := AsKind(err)
	if !ok || kind != InvalidValue {
		t.Fatalf("AsKind() = %v, %v; want InvalidValue, true", kind, ok)
	}

	if _, ok := AsKind(errors.New("plain")); ok {
		t.Fatalf("AsKind() on a plain error should report false")
	}
}

func TestKindCode(t *testing.T) {
	cases := map[Kind]int{
		InvalidValue:  -1,
		ValueTooLarge: -2,
		InvalidFormat: -3,
		InvalidMode:   -4,
		FileIO:        -5,
		Memory:        -6,
		LibraryInit:   -10,
		LibraryCall:   -11,
	}
	for kind, want := range cases {
		if got := kind.Code(); got != want {
			t.Errorf("%v.Code() = %d, want %d", kind, got, want)
		}
	}
}
