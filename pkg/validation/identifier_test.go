// Copyright (C) 2025 StackCanvas (oss@stackcanvas.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import (
	"strings"
	"testing"
)

func TestValidateAppID(t *testing.T) {
	tests := []struct {
		name    string
		appID   string
		wantErr bool
	}{
		// Valid ids
		{"simple", "app-1", false},
		{"single char", "a", false},
		{"uuid style", "8f14e45f-ceea-467f-9575-0a48d5f7c1a1", false},
		{"underscores", "my_app_2", false},
		{"max length", strings.Repeat("a", 64), false},

		// Invalid ids - injection attempts
		{"empty", "", true},
		{"key separator", "vtree:other", true},
		{"path traversal", "../etc/passwd", true},
		{"newline injection", "app\nInfo fake log line", true},
		{"spaces", "my app", true},
		{"dots", "app.v2", true},
		{"starts with hyphen", "-app", true},
		{"too long", strings.Repeat("a", 65), true},
		{"unicode", "app™", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAppID(tt.appID)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAppID(%q) error = %v, wantErr %v", tt.appID, err, tt.wantErr)
			}
		})
	}
}

func TestValidateBranchName(t *testing.T) {
	tests := []struct {
		name    string
		branch  string
		wantErr bool
	}{
		// Valid names
		{"simple", "main", false},
		{"grouped", "feature/dark-mode", false},
		{"dotted", "release-1.2", false},
		{"max length", strings.Repeat("b", 128), false},

		// Invalid names
		{"empty", "", true},
		{"empty segment", "feature//x", true},
		{"trailing slash", "feature/", true},
		{"starts with slash", "/main", true},
		{"spaces", "my branch", true},
		{"newline", "main\nmore", true},
		{"too long", strings.Repeat("b", 129), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBranchName(tt.branch)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBranchName(%q) error = %v, wantErr %v", tt.branch, err, tt.wantErr)
			}
		})
	}
}
