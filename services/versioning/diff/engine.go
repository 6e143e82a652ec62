// Copyright (C) 2025 StackCanvas (oss@stackcanvas.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package diff computes deterministic line-based diffs between code
// snapshots.
//
// # Description
//
// Snapshots are canonicalized (stable payload ordering, normalized
// line endings) before comparison, so structurally equal snapshots
// always diff to zero. The engine produces a unified-diff text plus
// line-level change counts, with a size guard that degrades to coarse
// stats instead of attempting unbounded work.
//
// # Thread Safety
//
// Engine holds only immutable configuration and is safe for
// concurrent use.
package diff

import (
	"errors"
	"fmt"

	godiff "github.com/sourcegraph/go-diff/diff"
)

// Sentinel errors for the diff package.
var (
	// ErrSerialization is returned when a snapshot has no canonical form.
	ErrSerialization = errors.New("snapshot cannot be canonicalized")

	// ErrTooLarge is returned when a canonical serialization exceeds the
	// configured size limit. The accompanying Result is degraded, not
	// absent: it carries coarse size-delta stats and a truncation marker.
	ErrTooLarge = errors.New("snapshot exceeds diff size limit")
)

// TruncationMarker replaces the unified text when the size guard trips.
const TruncationMarker = "[diff truncated: snapshot exceeds size limit]"

// lcsCellBudget bounds the dynamic-programming table. Beyond it the
// engine falls back to a whole-window replace edit, which stays
// deterministic and keeps the reversal symmetry of the stats.
const lcsCellBudget = 4_000_000

// Stats counts line-level changes between two snapshots.
//
// Additions and Deletions count every inserted and removed line.
// Modifications counts lines matched as changed-in-place: within each
// contiguous changed region, min(removed, inserted) line pairs.
type Stats struct {
	Additions     int `json:"additions"`
	Deletions     int `json:"deletions"`
	Modifications int `json:"modifications"`
}

// IsZero returns true if no changes were counted.
func (s Stats) IsZero() bool {
	return s.Additions == 0 && s.Deletions == 0 && s.Modifications == 0
}

// Result is the outcome of one comparison.
type Result struct {
	// Unified is the unified-diff text. Empty when the snapshots are
	// equal; TruncationMarker when the size guard tripped.
	Unified string `json:"unified"`

	// Stats are the line-level change counts.
	Stats Stats `json:"stats"`

	// Degraded is true when the size guard replaced the real diff with
	// coarse size-delta stats.
	Degraded bool `json:"degraded,omitempty"`
}

// Options configures an Engine.
type Options struct {
	// MaxBytes is the size guard: if either canonical serialization is
	// larger, the engine returns a degraded result and ErrTooLarge.
	// Default: 1 MiB.
	MaxBytes int

	// ContextLines is the number of unchanged lines shown around each
	// hunk. Default: 3.
	ContextLines int
}

// DefaultOptions returns production defaults.
func DefaultOptions() Options {
	return Options{
		MaxBytes:     1 << 20,
		ContextLines: 3,
	}
}

// Engine computes snapshot diffs.
type Engine struct {
	opts Options
}

// NewEngine creates an Engine, filling unset options with defaults.
func NewEngine(opts Options) *Engine {
	def := DefaultOptions()
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = def.MaxBytes
	}
	if opts.ContextLines <= 0 {
		opts.ContextLines = def.ContextLines
	}
	return &Engine{opts: opts}
}

// Compare diffs two snapshots.
//
// # Description
//
// Canonicalizes both snapshots, then computes a line-level edit script
// (common prefix/suffix trimming plus longest-common-subsequence on
// the remaining window) and renders it as a unified diff.
//
// The result is deterministic for equal inputs, diff(a, a) is empty
// with zero stats, and Compare(a, b).Stats.Additions always equals
// Compare(b, a).Stats.Deletions.
//
// # Outputs
//
//   - *Result: The diff. Non-nil even on ErrTooLarge (degraded).
//   - error: ErrSerialization if a snapshot has no canonical form;
//     ErrTooLarge if the size guard tripped (result still usable).
func (e *Engine) Compare(before, after Snapshot) (*Result, error) {
	canonBefore, err := Canonicalize(before)
	if err != nil {
		return nil, fmt.Errorf("canonicalize before: %w", err)
	}
	canonAfter, err := Canonicalize(after)
	if err != nil {
		return nil, fmt.Errorf("canonicalize after: %w", err)
	}

	beforeLines := splitLines(canonBefore)
	afterLines := splitLines(canonAfter)

	if len(canonBefore) > e.opts.MaxBytes || len(canonAfter) > e.opts.MaxBytes {
		return degradedResult(len(beforeLines), len(afterLines)), ErrTooLarge
	}

	script := editScript(beforeLines, afterLines)
	result := &Result{Stats: scriptStats(script)}
	if !result.Stats.IsZero() {
		unified, err := renderUnified(script, e.opts.ContextLines)
		if err != nil {
			return nil, fmt.Errorf("render unified diff: %w", err)
		}
		result.Unified = unified
	}
	return result, nil
}

// degradedResult builds the coarse size-delta result used when the
// size guard trips. Additions/deletions mirror under reversal.
func degradedResult(beforeLines, afterLines int) *Result {
	stats := Stats{}
	if afterLines > beforeLines {
		stats.Additions = afterLines - beforeLines
	} else {
		stats.Deletions = beforeLines - afterLines
	}
	return &Result{
		Unified:  TruncationMarker,
		Stats:    stats,
		Degraded: true,
	}
}

// -----------------------------------------------------------------------------
// Edit script
// -----------------------------------------------------------------------------

const (
	opEqual  = byte('=')
	opDelete = byte('-')
	opInsert = byte('+')
)

// scriptOp is one line of the edit script.
type scriptOp struct {
	kind byte
	text string
}

// editScript computes a line-level edit script from a to b.
//
// Common prefix and suffix are trimmed first; the remaining window is
// aligned with a longest-common-subsequence table, or replaced
// wholesale if the table would exceed lcsCellBudget.
func editScript(a, b []string) []scriptOp {
	prefix := 0
	for prefix < len(a) && prefix < len(b) && a[prefix] == b[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(a)-prefix && suffix < len(b)-prefix &&
		a[len(a)-1-suffix] == b[len(b)-1-suffix] {
		suffix++
	}

	midA := a[prefix : len(a)-suffix]
	midB := b[prefix : len(b)-suffix]

	script := make([]scriptOp, 0, len(a)+len(b)-prefix-suffix)
	for _, line := range a[:prefix] {
		script = append(script, scriptOp{opEqual, line})
	}
	script = append(script, alignWindow(midA, midB)...)
	for _, line := range a[len(a)-suffix:] {
		script = append(script, scriptOp{opEqual, line})
	}
	return script
}

// alignWindow aligns the changed window of the two inputs.
func alignWindow(a, b []string) []scriptOp {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	if len(a)*len(b) > lcsCellBudget {
		// Whole-window replace: all of a removed, all of b inserted.
		ops := make([]scriptOp, 0, len(a)+len(b))
		for _, line := range a {
			ops = append(ops, scriptOp{opDelete, line})
		}
		for _, line := range b {
			ops = append(ops, scriptOp{opInsert, line})
		}
		return ops
	}

	// LCS length table.
	rows, cols := len(a)+1, len(b)+1
	table := make([]int32, rows*cols)
	for i := 1; i < rows; i++ {
		for j := 1; j < cols; j++ {
			if a[i-1] == b[j-1] {
				table[i*cols+j] = table[(i-1)*cols+j-1] + 1
			} else if table[(i-1)*cols+j] >= table[i*cols+j-1] {
				table[i*cols+j] = table[(i-1)*cols+j]
			} else {
				table[i*cols+j] = table[i*cols+j-1]
			}
		}
	}

	// Backtrack. Ties prefer deletions so the script is deterministic.
	reversed := make([]scriptOp, 0, len(a)+len(b))
	i, j := len(a), len(b)
	for i > 0 && j > 0 {
		switch {
		case a[i-1] == b[j-1]:
			reversed = append(reversed, scriptOp{opEqual, a[i-1]})
			i--
			j--
		case table[(i-1)*cols+j] >= table[i*cols+j-1]:
			reversed = append(reversed, scriptOp{opDelete, a[i-1]})
			i--
		default:
			reversed = append(reversed, scriptOp{opInsert, b[j-1]})
			j--
		}
	}
	for i > 0 {
		reversed = append(reversed, scriptOp{opDelete, a[i-1]})
		i--
	}
	for j > 0 {
		reversed = append(reversed, scriptOp{opInsert, b[j-1]})
		j--
	}

	ops := make([]scriptOp, len(reversed))
	for k := range reversed {
		ops[k] = reversed[len(reversed)-1-k]
	}
	return ops
}

// scriptStats counts changes in an edit script.
//
// Each maximal run of non-equal ops is one changed region; the
// overlapping min(removed, inserted) of a region counts as
// modifications. Additions and deletions count every line, so totals
// depend only on the subsequence length and mirror under reversal.
func scriptStats(script []scriptOp) Stats {
	var stats Stats
	runDeletes, runInserts := 0, 0

	closeRun := func() {
		if runDeletes == 0 && runInserts == 0 {
			return
		}
		stats.Deletions += runDeletes
		stats.Additions += runInserts
		if runDeletes < runInserts {
			stats.Modifications += runDeletes
		} else {
			stats.Modifications += runInserts
		}
		runDeletes, runInserts = 0, 0
	}

	for _, op := range script {
		switch op.kind {
		case opDelete:
			runDeletes++
		case opInsert:
			runInserts++
		default:
			closeRun()
		}
	}
	closeRun()
	return stats
}

// -----------------------------------------------------------------------------
// Unified rendering
// -----------------------------------------------------------------------------

// renderUnified renders an edit script as a unified diff with the
// given number of context lines, using go-diff for the wire format.
func renderUnified(script []scriptOp, contextLines int) (string, error) {
	hunks := buildHunks(script, contextLines)
	if len(hunks) == 0 {
		return "", nil
	}

	fileDiff := &godiff.FileDiff{
		OrigName: "a/snapshot",
		NewName:  "b/snapshot",
		Hunks:    hunks,
	}
	out, err := godiff.PrintFileDiff(fileDiff)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// buildHunks groups changed script regions into go-diff hunks.
func buildHunks(script []scriptOp, contextLines int) []*godiff.Hunk {
	// Line numbers consumed before each op (1-based).
	origAt := make([]int, len(script))
	newAt := make([]int, len(script))
	orig, next := 1, 1
	for i, op := range script {
		origAt[i] = orig
		newAt[i] = next
		switch op.kind {
		case opEqual:
			orig++
			next++
		case opDelete:
			orig++
		case opInsert:
			next++
		}
	}

	var changed []int
	for i, op := range script {
		if op.kind != opEqual {
			changed = append(changed, i)
		}
	}
	if len(changed) == 0 {
		return nil
	}

	var hunks []*godiff.Hunk
	groupStart := changed[0]
	groupEnd := changed[0]
	flush := func() {
		start := groupStart - contextLines
		if start < 0 {
			start = 0
		}
		end := groupEnd + contextLines
		if end > len(script)-1 {
			end = len(script) - 1
		}
		hunks = append(hunks, hunkFor(script, origAt, newAt, start, end))
	}

	for _, idx := range changed[1:] {
		if idx-groupEnd > 2*contextLines {
			flush()
			groupStart = idx
		}
		groupEnd = idx
	}
	flush()
	return hunks
}

// hunkFor renders script[start..end] (inclusive) as one hunk.
func hunkFor(script []scriptOp, origAt, newAt []int, start, end int) *godiff.Hunk {
	var origLines, newLines int32
	var body []byte
	for i := start; i <= end; i++ {
		op := script[i]
		switch op.kind {
		case opEqual:
			origLines++
			newLines++
			body = append(body, ' ')
		case opDelete:
			origLines++
			body = append(body, '-')
		case opInsert:
			newLines++
			body = append(body, '+')
		}
		body = append(body, op.text...)
		body = append(body, '\n')
	}

	origStart := int32(origAt[start])
	newStart := int32(newAt[start])
	if origLines == 0 {
		// Pure insertion hunks anchor to the preceding original line.
		origStart--
	}
	if newLines == 0 {
		newStart--
	}
	return &godiff.Hunk{
		OrigStartLine: origStart,
		OrigLines:     origLines,
		NewStartLine:  newStart,
		NewLines:      newLines,
		Body:          body,
	}
}
