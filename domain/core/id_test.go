package core

import (
	"errors"
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

// TestIDIsEmpty tests ID emptiness check
func TestIDIsEmpty(t *testing.T) {
	if !ID("").IsEmpty() {
		t.Error("Expected empty ID to be empty")
	}
	if ID("not-empty").IsEmpty() {
		t.Error("Expected non-empty ID to not be empty")
	}
}

func TestParseRunID(t *testing.T) {
	generated := NewRunID()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"generated id", generated.String(), false},
		{"padded id", "  " + generated.String() + " ", false},
		{"empty", "", true},
		{"whitespace", "   ", true},
		{"not a uuid", "run-123", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseRunID(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error for %q, got id %q", tt.input, id)
				}
				if !IsInvalidParameterError(err) {
					t.Errorf("Expected invalid parameter error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if id != generated {
				t.Errorf("Expected %s, got %s", generated, id)
			}
		})
	}
}

func TestErrorClassification(t *testing.T) {
	notFound := NewTargetNotFoundError(0.8, 2, 10)
	if !IsNotFoundError(notFound) || !errors.Is(notFound, ErrTargetNotFound) {
		t.Errorf("Target miss should be a not-found error: %v", notFound)
	}
	if IsInvalidParameterError(notFound) {
		t.Error("Target miss must not be an invalid parameter error")
	}

	invalid := NewInvalidParameterError("sd", "must be positive")
	if !IsInvalidParameterError(invalid) {
		t.Errorf("Expected invalid parameter error, got %v", invalid)
	}
	if !IsInvalidParameterError(ErrInvalidRange) || !IsInvalidParameterError(ErrInvalidScenario) {
		t.Error("Range and scenario errors should classify as invalid parameters")
	}
	if !IsNotFoundError(NewNotFoundError("run", "abc")) {
		t.Error("Expected run lookup miss to be not found")
	}
}

func TestComputeFingerprintIsOrderIndependent(t *testing.T) {
	a := ComputeFingerprint(map[string]interface{}{"n": 30, "sd": 1.5, "alpha": 0.05})
	b := ComputeFingerprint(map[string]interface{}{"alpha": 0.05, "sd": 1.5, "n": 30})
	c := ComputeFingerprint(map[string]interface{}{"alpha": 0.05, "sd": 1.5, "n": 31})

	if a != b {
		t.Errorf("Fingerprint depends on map order: %s vs %s", a, b)
	}
	if a == c {
		t.Error("Different inputs produced the same fingerprint")
	}
	if len(a.Short()) != 12 {
		t.Errorf("Expected 12-char short hash, got %q", a.Short())
	}
}
