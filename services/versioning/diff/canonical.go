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
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"lukechampine.com/blake3"
)

// Snapshot is one unit of generated application code: a set of named
// text payloads (typically file path -> file content).
//
// The engine treats payload content as opaque text. Anything that is
// not valid UTF-8 has no canonical form and is rejected with
// ErrSerialization.
type Snapshot map[string]string

// payloadHeaderPrefix marks the start of a payload in the canonical
// serialization. Payload names must not contain newlines, so the
// prefix is unambiguous at line granularity.
const payloadHeaderPrefix = "==> "

// Canonicalize renders a snapshot into its canonical serialized form.
//
// # Description
//
// Payloads are emitted in lexicographic name order, each introduced by
// a header line and followed by its content with normalized line
// endings and a guaranteed trailing newline. Two snapshots with equal
// logical content always canonicalize to the same string, which makes
// diffs deterministic regardless of map iteration order.
//
// # Outputs
//
//   - string: The canonical serialization. Empty for an empty snapshot.
//   - error: ErrSerialization if a payload name or content has no
//     canonical form (empty name, embedded newline in name, or invalid
//     UTF-8).
func Canonicalize(s Snapshot) (string, error) {
	if len(s) == 0 {
		return "", nil
	}

	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		if name == "" {
			return "", fmt.Errorf("%w: empty payload name", ErrSerialization)
		}
		if strings.ContainsAny(name, "\r\n") {
			return "", fmt.Errorf("%w: payload name %q contains a newline", ErrSerialization, name)
		}
		if !utf8.ValidString(name) {
			return "", fmt.Errorf("%w: payload name is not valid UTF-8", ErrSerialization)
		}
		content := s[name]
		if !utf8.ValidString(content) {
			return "", fmt.Errorf("%w: payload %q is not valid UTF-8", ErrSerialization, name)
		}

		sb.WriteString(payloadHeaderPrefix)
		sb.WriteString(name)
		sb.WriteByte('\n')

		content = strings.ReplaceAll(content, "\r\n", "\n")
		sb.WriteString(content)
		if content != "" && !strings.HasSuffix(content, "\n") {
			sb.WriteByte('\n')
		}
	}
	return sb.String(), nil
}

// Fingerprint returns the hex-encoded BLAKE3 hash of the snapshot's
// canonical serialization.
//
// Equal logical content always produces an equal fingerprint, so
// callers can detect unchanged snapshots without diffing.
func Fingerprint(s Snapshot) (string, error) {
	canonical, err := Canonicalize(s)
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:]), nil
}

// splitLines splits canonical text into lines without a phantom
// trailing entry. The canonical form always ends in a newline, so the
// final split element is dropped when empty.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
