package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestVerdictConstructors(t *testing.T) {
	t.Parallel()

	c := NewCandidate("secret", 1)

	t.Run("match", func(t *testing.T) {
		t.Parallel()
		v := Match(c)
		if !v.IsMatch() || v.IsError() || v.Fatal() {
			t.Errorf("unexpected flags for %v", v)
		}
		if v.Candidate.String() != "secret" {
			t.Errorf("expected candidate to be kept, got %q", v.Candidate.String())
		}
	})

	t.Run("no match", func(t *testing.T) {
		t.Parallel()
		v := NoMatch(c)
		if v.IsMatch() || v.IsError() {
			t.Errorf("unexpected flags for %v", v)
		}
	})

	t.Run("per-candidate failure is not fatal", func(t *testing.T) {
		t.Parallel()
		v := Failure(c, ErrorKindEncodingFailure, "bad rune")
		if !v.IsError() {
			t.Error("expected error verdict")
		}
		if v.Fatal() {
			t.Error("encoding failure must not be fatal")
		}
		if !strings.Contains(v.String(), "encoding_failure") {
			t.Errorf("expected kind in string, got %q", v.String())
		}
	})

	t.Run("archive io failure is fatal", func(t *testing.T) {
		t.Parallel()
		v := Failure(c, ErrorKindArchiveIO, "read failed")
		if !v.Fatal() {
			t.Error("expected archive io failure to be fatal")
		}
	})
}

func TestVerdictString(t *testing.T) {
	t.Parallel()

	v := Failure(NewCandidate("topsecret", 1), ErrorKindTimeout, "")
	if strings.Contains(v.String(), "topsecret") {
		t.Error("verdict string must not contain the candidate")
	}
}

func TestKindsTextRoundTrip(t *testing.T) {
	t.Parallel()

	type wire struct {
		Verdict   VerdictKind `json:"verdict"`
		ErrorKind ErrorKind   `json:"error_kind,omitempty"`
	}

	for _, kind := range []ErrorKind{
		ErrorKindEncodingFailure,
		ErrorKindVerificationTransient,
		ErrorKindTimeout,
		ErrorKindWorkerCrashed,
		ErrorKindCancelled,
		ErrorKindArchiveIO,
		ErrorKindWorkerUnavailable,
	} {
		t.Run(kind.String(), func(t *testing.T) {
			t.Parallel()

			data, err := json.Marshal(wire{Verdict: VerdictError, ErrorKind: kind})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var got wire
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Verdict != VerdictError || got.ErrorKind != kind {
				t.Errorf("round trip mismatch: %s", data)
			}
		})
	}

	t.Run("unknown verdict is rejected", func(t *testing.T) {
		t.Parallel()
		var got wire
		if err := json.Unmarshal([]byte(`{"verdict":"maybe"}`), &got); err == nil {
			t.Error("expected error for unknown verdict")
		}
	})
}
