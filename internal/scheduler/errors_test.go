package scheduler

import (
	"errors"
	"testing"
)

func TestIsRecoverableClassifiesJobError(t *testing.T) {
	if !IsRecoverable(Recoverable("timeout", errors.New("boom"))) {
		t.Fatal("expected Recoverable-wrapped error to classify as recoverable")
	}
	if IsRecoverable(Permanent("bad_job", errors.New("boom"))) {
		t.Fatal("expected Permanent-wrapped error to classify as non-recoverable")
	}
}

func TestIsRecoverableDefaultsFalseForPlainError(t *testing.T) {
	if IsRecoverable(errors.New("unclassified")) {
		t.Fatal("expected a plain error with no JobError in its chain to be non-recoverable")
	}
}

func TestIsRecoverableNilError(t *testing.T) {
	if IsRecoverable(nil) {
		t.Fatal("nil error must never be recoverable")
	}
}

func TestJobErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Recoverable("reason", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to find the wrapped cause")
	}
}
