// Copyright (C) 2025 StackCanvas (oss@stackcanvas.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package versioning

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCreateVersionRequest() CreateVersionRequest {
	return CreateVersionRequest{
		Code:    Snapshot{"app.tsx": "hello\n"},
		Message: "a commit",
	}
}

func TestCreateVersionRequestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		req := validCreateVersionRequest()
		require.NoError(t, req.Validate())
	})

	t.Run("missing_message", func(t *testing.T) {
		req := validCreateVersionRequest()
		req.Message = ""
		assert.Error(t, req.Validate())
	})

	t.Run("message_too_large", func(t *testing.T) {
		req := validCreateVersionRequest()
		req.Message = strings.Repeat("x", MaxMessageBytes+1)
		assert.Error(t, req.Validate())
	})

	t.Run("tags_at_limit", func(t *testing.T) {
		req := validCreateVersionRequest()
		req.Tags = make([]string, MaxTagsPerRequest)
		for i := range req.Tags {
			req.Tags[i] = strings.Repeat("t", i+1)
		}
		require.NoError(t, req.Validate())
	})

	t.Run("too_many_tags", func(t *testing.T) {
		req := validCreateVersionRequest()
		req.Tags = make([]string, MaxTagsPerRequest+1)
		for i := range req.Tags {
			req.Tags[i] = strings.Repeat("t", i+1)
		}
		assert.Error(t, req.Validate())
	})

	t.Run("empty_snapshot", func(t *testing.T) {
		req := validCreateVersionRequest()
		req.Code = Snapshot{}
		assert.Error(t, req.Validate())
	})
}

func TestCreateBranchRequestValidate(t *testing.T) {
	require.NoError(t, (&CreateBranchRequest{Name: "feature"}).Validate())
	assert.Error(t, (&CreateBranchRequest{}).Validate())
	assert.Error(t, (&CreateBranchRequest{
		Name:        "feature",
		Description: strings.Repeat("d", MaxDescriptionBytes+1),
	}).Validate())
}
