// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package sitewriter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortKeysMatchesSpecExactly(t *testing.T) {
	assert.Len(t, SortKeys, 16)
	assert.Contains(t, SortKeys, "by-bandwidth")
	assert.Contains(t, SortKeys, "by-first-seen")
}

func TestWritePageCreatesNestedDirectories(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)

	err := w.WritePage(RelayPath("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"), []byte("<html></html>"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "relay", "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(data))
}

func TestWritePageLeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)
	require.NoError(t, w.WritePage(IndexPath(), []byte("home")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "index.html", entries[0].Name())
}

func TestMiscKeyedPathBuildsExpectedName(t *testing.T) {
	assert.Equal(t, filepath.Join("misc", "families-by-bandwidth.html"), MiscKeyedPath("families", "by-bandwidth"))
}

func TestCategoryPathHelpers(t *testing.T) {
	assert.Equal(t, filepath.Join("as", "AS123", "index.html"), ASPath("AS123"))
	assert.Equal(t, filepath.Join("country", "us", "index.html"), CountryPath("us"))
	assert.Equal(t, filepath.Join("flag", "guard", "index.html"), FlagPath("guard"))
	assert.Equal(t, filepath.Join("first_seen", "2020-01-02", "index.html"), FirstSeenPath("2020-01-02"))
}
