package simhash

import (
	"testing"
)

func TestFingerprint(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		if Fingerprint("send the report to legal") != Fingerprint("send the report to legal") {
			t.Error("Fingerprint should be deterministic")
		}
	})

	t.Run("empty text", func(t *testing.T) {
		if got := Fingerprint(""); got != 0 {
			t.Errorf("Fingerprint(\"\") = %d, want 0", got)
		}
	})
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b uint64
		want int
	}{
		{"identical", 0xFFFF, 0xFFFF, 0},
		{"one bit", 0b1000, 0b0000, 1},
		{"all bits", 0, ^uint64(0), 64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Distance(tt.a, tt.b); got != tt.want {
				t.Errorf("Distance() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNearDuplicatePhrases(t *testing.T) {
	base := Fingerprint("send the quarterly report to legal by friday")
	near := Fingerprint("send the quarterly report to legal on friday")
	far := Fingerprint("book a meeting room for the offsite")

	if Distance(base, near) >= Distance(base, far) {
		t.Errorf("near distance %d should be smaller than far distance %d",
			Distance(base, near), Distance(base, far))
	}
	if !Within(base, base, 0) {
		t.Error("a fingerprint is always within 0 of itself")
	}
}
