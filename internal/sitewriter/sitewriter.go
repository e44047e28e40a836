// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package sitewriter implements the filesystem side of the external
// contract boundary (spec §6.5): the fixed generated-site layout and sort
// key vocabulary. It writes whatever bytes the template layer hands it to
// the right path; it is not a templating engine.
package sitewriter

import (
	"fmt"
	"os"
	"path/filepath"
)

// SortKeys enumerates the exact sort-key strings spec §6.5 requires,
// in the order it lists them.
var SortKeys = []string{
	"by-bandwidth",
	"by-overall-bandwidth",
	"by-guard-bandwidth",
	"by-middle-bandwidth",
	"by-exit-bandwidth",
	"by-consensus-weight",
	"by-guard-consensus-weight",
	"by-middle-consensus-weight",
	"by-exit-consensus-weight",
	"by-exit-count",
	"by-guard-count",
	"by-middle-count",
	"by-unique-as-count",
	"by-unique-contact-count",
	"by-unique-family-count",
	"by-first-seen",
}

// Writer places rendered pages under the fixed site layout rooted at outDir.
type Writer struct {
	outDir string
}

// New returns a Writer rooted at outDir. outDir is not created until the
// first WritePage call.
func New(outDir string) *Writer {
	return &Writer{outDir: outDir}
}

// WritePage writes body to relPath under the output directory, creating any
// parent directories as needed. Writes are atomic (temp file + rename) so a
// crash mid-run never leaves a partially-written page.
func (w *Writer) WritePage(relPath string, body []byte) error {
	full := filepath.Join(w.outDir, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("sitewriter: create directory for %s: %w", relPath, err)
	}

	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return fmt.Errorf("sitewriter: write %s: %w", relPath, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		return fmt.Errorf("sitewriter: rename into place %s: %w", relPath, err)
	}
	return nil
}

// IndexPath is the site root page.
func IndexPath() string { return "index.html" }

// MiscPath is one of the flat informational pages under misc/
// (families/networks/contacts/countries/platforms); MiscKeyedPath builds
// their sort-keyed variants.
func MiscPath(name string) string {
	return filepath.Join("misc", name+".html")
}

// MiscKeyedPath builds one of the misc/<prefix>-<key>.html pages, e.g.
// MiscKeyedPath("families", "by-bandwidth").
func MiscKeyedPath(prefix, sortKey string) string {
	return filepath.Join("misc", fmt.Sprintf("%s-%s.html", prefix, sortKey))
}

// ASPath, ContactPath, CountryPath, FamilyPath, FlagPath, PlatformPath, and
// FirstSeenPath build the per-dimension directory index pages spec §6.5
// names; each category gets its own subtree keyed by the category value.
func ASPath(asn string) string            { return filepath.Join("as", asn, "index.html") }
func ContactPath(contactMD5 string) string { return filepath.Join("contact", contactMD5, "index.html") }
func CountryPath(cc string) string        { return filepath.Join("country", cc, "index.html") }
func FamilyPath(fingerprint string) string { return filepath.Join("family", fingerprint, "index.html") }
func FlagPath(flagLower string) string    { return filepath.Join("flag", flagLower, "index.html") }
func PlatformPath(platform string) string { return filepath.Join("platform", platform, "index.html") }
func FirstSeenPath(yyyymmdd string) string {
	return filepath.Join("first_seen", yyyymmdd, "index.html")
}

// RelayPath is one relay's per-fingerprint detail page.
func RelayPath(fingerprint string) string {
	return filepath.Join("relay", fingerprint, "index.html")
}

// StaticDir is the root of the static-asset subtree, copied verbatim by the
// caller rather than generated by this package.
func StaticDir() string { return "static" }
