/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"detailpage/internal/domain"
	"detailpage/internal/export"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	exportOpts = struct {
		pdf    string
		bundle string
		json   string
	}{}
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeDoc(t *testing.T) string {
	t.Helper()
	h := 320.0
	doc := domain.Document{
		Width: 860,
		Sections: []domain.Section{
			{ID: "top", Content: domain.Placeholder(), Height: &h, Transform: domain.IdentityTransform},
			{ID: "gap", Content: domain.Spacer(), Transform: domain.IdentityTransform},
		},
		Texts: []domain.TextOverlay{{ID: "t1", SectionID: "top", Content: "Hello", Width: 100, Height: 20, Style: domain.TextStyle{FontSize: 16}}},
	}
	path := filepath.Join(t.TempDir(), "page.json")
	require.NoError(t, export.WriteJSONFile(path, doc))
	return path
}

func TestValidateCommand(t *testing.T) {
	out, err := run(t, "validate", writeDoc(t))
	require.NoError(t, err)
	assert.Contains(t, out, "OK")

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"width":0,"sections":[],"texts":[]}`), 0o644))
	out, err = run(t, "validate", bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, export.ErrInvalid)
	assert.Contains(t, out, "width")
}

func TestInfoCommandListsSections(t *testing.T) {
	out, err := run(t, "info", writeDoc(t))
	require.NoError(t, err)
	assert.Contains(t, out, "top")
	assert.Contains(t, out, "placeholder")
	assert.Contains(t, out, "auto")
}

func TestExportCommandNeedsATarget(t *testing.T) {
	_, err := run(t, "export", writeDoc(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--pdf")
}

func TestExportCommandWritesJSON(t *testing.T) {
	t.Setenv("DPC_ASSETS", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	dst := filepath.Join(t.TempDir(), "out.json")
	_, err := run(t, "export", writeDoc(t), "--json", dst)
	require.NoError(t, err)
	doc, err := export.ReadJSONFile(dst)
	require.NoError(t, err)
	assert.Len(t, doc.Sections, 2)
	assert.Len(t, doc.Texts, 1)
}

func TestStylesCommand(t *testing.T) {
	out, err := run(t, "styles")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
}
