package errs

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"testing"
)

var errRoot = errors.New("root")

func TestWrapKeepsChain(t *testing.T) {
	err := Wrapf(Wrap(errRoot, "load"), "referral %s", "r-1")
	if !errors.Is(err, errRoot) {
		t.Fatalf("errors.Is(%v, errRoot) = false", err)
	}
	if got, want := err.Error(), "referral r-1: load: root"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if Wrap(nil, "x") != nil || Wrapf(nil, "x") != nil || WithStack(nil) != nil {
		t.Fatalf("nil input must stay nil")
	}
}

func TestWithStackCapturesOnce(t *testing.T) {
	first := WithStack(errRoot)
	second := WithStack(Wrap(first, "outer"))
	var se *StackError
	if !errors.As(second, &se) || len(se.Stack()) == 0 {
		t.Fatalf("WithStack() lost the stack")
	}
	if !strings.HasPrefix(second.Error(), "outer") {
		t.Fatalf("WithStack() re-wrapped an error that already had a stack: %v", second)
	}
}

func TestErrorChainStringsWalksJoinedErrors(t *testing.T) {
	errOther := errors.New("other")
	err := Wrap(errors.Join(errRoot, errOther), "verify")
	got := ErrorChainStrings(err)
	want := []string{"verify: root\nother", "root\nother", "root", "other"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ErrorChainStrings() = %q, want %q", got, want)
	}
}

func TestLoggableIncludesStackOnlyWhenCaptured(t *testing.T) {
	plain := Loggable(errRoot).LogValue().Group()
	if len(plain) != 2 {
		t.Fatalf("plain attrs = %v", plain)
	}
	stacked := Loggable(WithStack(errRoot)).LogValue().Group()
	if len(stacked) != 3 || stacked[2].Key != "stack" {
		t.Fatalf("stacked attrs = %v", stacked)
	}
	if Loggable(nil).LogValue().Kind() != slog.KindGroup {
		t.Fatalf("Loggable(nil) is not an empty group")
	}
}
