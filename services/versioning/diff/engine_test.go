// Copyright (C) 2025 StackCanvas (oss@stackcanvas.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package diff

import (
	"errors"
	"strings"
	"testing"
)

func TestCompare_Identity(t *testing.T) {
	engine := NewEngine(Options{})
	snap := Snapshot{
		"main.go":  "package main\n\nfunc main() {}\n",
		"index.ts": "export const x = 1;\n",
	}

	result, err := engine.Compare(snap, snap)
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if !result.Stats.IsZero() {
		t.Errorf("Stats = %+v, want all zero", result.Stats)
	}
	if result.Unified != "" {
		t.Errorf("Unified = %q, want empty", result.Unified)
	}
}

func TestCompare_SingleLineChange(t *testing.T) {
	engine := NewEngine(Options{})
	before := Snapshot{"app.js": "a=1"}
	after := Snapshot{"app.js": "a=2"}

	result, err := engine.Compare(before, after)
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if result.Stats.Modifications < 1 {
		t.Errorf("Modifications = %d, want >= 1", result.Stats.Modifications)
	}
	if result.Stats.Additions != 1 || result.Stats.Deletions != 1 {
		t.Errorf("Stats = %+v, want 1 addition and 1 deletion", result.Stats)
	}
	if !strings.Contains(result.Unified, "-a=1") || !strings.Contains(result.Unified, "+a=2") {
		t.Errorf("Unified missing change lines:\n%s", result.Unified)
	}
}

func TestCompare_Deterministic(t *testing.T) {
	engine := NewEngine(Options{})
	before := Snapshot{"b.txt": "two\n", "a.txt": "one\n"}
	after := Snapshot{"a.txt": "one\n", "b.txt": "three\n"}

	first, err := engine.Compare(before, after)
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	second, err := engine.Compare(before, after)
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if first.Unified != second.Unified {
		t.Error("Unified output differs between identical comparisons")
	}
	if first.Stats != second.Stats {
		t.Errorf("Stats differ: %+v vs %+v", first.Stats, second.Stats)
	}
}

func TestCompare_ReversalSymmetry(t *testing.T) {
	engine := NewEngine(Options{})
	cases := []struct {
		name   string
		before Snapshot
		after  Snapshot
	}{
		{
			name:   "pure_addition",
			before: Snapshot{"f": "a=1"},
			after:  Snapshot{"f": "a=1;b=1"},
		},
		{
			name:   "new_payload",
			before: Snapshot{"f": "a=1"},
			after:  Snapshot{"f": "a=1", "g": "c=3"},
		},
		{
			name:   "rewrite",
			before: Snapshot{"f": "one\ntwo\nthree\n"},
			after:  Snapshot{"f": "one\n2\n3\nfour\n"},
		},
		{
			name:   "swap",
			before: Snapshot{"f": "k\nx\n"},
			after:  Snapshot{"f": "x\nk\n"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			forward, err := engine.Compare(tc.before, tc.after)
			if err != nil {
				t.Fatalf("forward Compare() error = %v", err)
			}
			backward, err := engine.Compare(tc.after, tc.before)
			if err != nil {
				t.Fatalf("backward Compare() error = %v", err)
			}
			if forward.Stats.Additions != backward.Stats.Deletions {
				t.Errorf("additions(a,b) = %d, deletions(b,a) = %d",
					forward.Stats.Additions, backward.Stats.Deletions)
			}
			if forward.Stats.Deletions != backward.Stats.Additions {
				t.Errorf("deletions(a,b) = %d, additions(b,a) = %d",
					forward.Stats.Deletions, backward.Stats.Additions)
			}
		})
	}
}

func TestCompare_SizeGuard(t *testing.T) {
	engine := NewEngine(Options{MaxBytes: 64})
	small := Snapshot{"f": "a=1"}
	big := Snapshot{"f": strings.Repeat("line of generated code\n", 50)}

	result, err := engine.Compare(small, big)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Compare() error = %v, want ErrTooLarge", err)
	}
	if result == nil {
		t.Fatal("Compare() result = nil, want degraded result")
	}
	if !result.Degraded {
		t.Error("Degraded = false, want true")
	}
	if result.Unified != TruncationMarker {
		t.Errorf("Unified = %q, want truncation marker", result.Unified)
	}
	if result.Stats.Additions == 0 {
		t.Error("degraded stats should carry a coarse size delta")
	}

	// Coarse stats still mirror under reversal.
	reverse, err := engine.Compare(big, small)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("reverse Compare() error = %v, want ErrTooLarge", err)
	}
	if result.Stats.Additions != reverse.Stats.Deletions {
		t.Errorf("additions = %d, reverse deletions = %d",
			result.Stats.Additions, reverse.Stats.Deletions)
	}
}

func TestCompare_InvalidSnapshot(t *testing.T) {
	engine := NewEngine(Options{})

	t.Run("invalid_utf8", func(t *testing.T) {
		_, err := engine.Compare(Snapshot{"f": string([]byte{0xff, 0xfe})}, Snapshot{})
		if !errors.Is(err, ErrSerialization) {
			t.Errorf("Compare() error = %v, want ErrSerialization", err)
		}
	})

	t.Run("empty_name", func(t *testing.T) {
		_, err := engine.Compare(Snapshot{"": "x"}, Snapshot{})
		if !errors.Is(err, ErrSerialization) {
			t.Errorf("Compare() error = %v, want ErrSerialization", err)
		}
	})

	t.Run("newline_in_name", func(t *testing.T) {
		_, err := engine.Compare(Snapshot{"a\nb": "x"}, Snapshot{})
		if !errors.Is(err, ErrSerialization) {
			t.Errorf("Compare() error = %v, want ErrSerialization", err)
		}
	})
}

func TestCompare_MultiPayload(t *testing.T) {
	engine := NewEngine(Options{})
	before := Snapshot{"app.css": "body{}\n", "app.js": "a=2"}
	after := Snapshot{"app.css": "body{}\n", "app.js": "a=1;b=1"}

	result, err := engine.Compare(before, after)
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if result.Stats.IsZero() {
		t.Fatal("expected changes between distinct snapshots")
	}
	if !strings.Contains(result.Unified, "a=2") || !strings.Contains(result.Unified, "a=1;b=1") {
		t.Errorf("Unified should reflect both sides:\n%s", result.Unified)
	}
}

func TestCanonicalize_StableOrdering(t *testing.T) {
	a := Snapshot{"z.go": "1\n", "a.go": "2\n", "m.go": "3\n"}
	b := Snapshot{"m.go": "3\n", "z.go": "1\n", "a.go": "2\n"}

	canonA, err := Canonicalize(a)
	if err != nil {
		t.Fatal(err)
	}
	canonB, err := Canonicalize(b)
	if err != nil {
		t.Fatal(err)
	}
	if canonA != canonB {
		t.Error("canonical form depends on construction order")
	}
	if !strings.HasPrefix(canonA, payloadHeaderPrefix+"a.go\n") {
		t.Errorf("payloads not sorted by name:\n%s", canonA)
	}
}

func TestCanonicalize_NewlineNormalization(t *testing.T) {
	crlf := Snapshot{"f": "one\r\ntwo"}
	lf := Snapshot{"f": "one\ntwo\n"}

	canonCRLF, err := Canonicalize(crlf)
	if err != nil {
		t.Fatal(err)
	}
	canonLF, err := Canonicalize(lf)
	if err != nil {
		t.Fatal(err)
	}
	if canonCRLF != canonLF {
		t.Errorf("CRLF and missing trailing newline should normalize equal:\n%q\n%q", canonCRLF, canonLF)
	}
}

func TestFingerprint(t *testing.T) {
	a := Snapshot{"f": "a=1", "g": "b=2"}
	b := Snapshot{"g": "b=2", "f": "a=1"}

	fpA, err := Fingerprint(a)
	if err != nil {
		t.Fatal(err)
	}
	fpB, err := Fingerprint(b)
	if err != nil {
		t.Fatal(err)
	}
	if fpA != fpB {
		t.Error("equal snapshots should fingerprint equal")
	}

	fpC, err := Fingerprint(Snapshot{"f": "a=2", "g": "b=2"})
	if err != nil {
		t.Fatal(err)
	}
	if fpC == fpA {
		t.Error("different snapshots should fingerprint differently")
	}
}
