// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// contactMD5 hashes a relay's contact string (empty string hashes too, spec
// §4.E step 2 "contact_md5 = md5(contact_or_empty_string)").
func contactMD5(contact string) string {
	sum := md5.Sum([]byte(contact))
	return hex.EncodeToString(sum[:])
}

var urlLikeToken = regexp.MustCompile(`(?i)\b(?:[a-z][a-z0-9+.-]*://)?([a-z0-9][a-z0-9-]*(?:\.[a-z0-9][a-z0-9-]*)+)\b`)

// placeholderHosts are obviously fake/placeholder domains that appear in
// contact strings and must not be reported as an operator's AROI identity.
var placeholderHosts = map[string]struct{}{
	"example.com":     {},
	"example.org":     {},
	"example.net":     {},
	"localhost":       {},
	"invalid":         {},
	"test.com":        {},
	"yourdomain.com":  {},
}

var foldCaser = cases.Fold()

// noneAROIDomain is the canonical sentinel for "no AROI domain parseable"
// (spec §3.1/§4.E step 2), matching original_source's html_escape_utils.py
// NONE_ESCAPED = "none" convention.
const noneAROIDomain = "none"

// ParseAROI extracts the first URL-like token from a contact string whose
// host is not an obvious placeholder, normalizing it with golang.org/x/text
// case folding (spec §4.E step 2 "aroi_domain = parse_aroi(contact)").
// Returns the "none" sentinel if no usable domain is found.
func ParseAROI(contact string) string {
	if strings.TrimSpace(contact) == "" {
		return noneAROIDomain
	}

	matches := urlLikeToken.FindAllStringSubmatch(contact, -1)
	for _, m := range matches {
		host := foldCaser.String(m[1])
		host = normalizeHost(host)
		if host == "" {
			continue
		}
		if _, placeholder := placeholderHosts[host]; placeholder {
			continue
		}
		if !strings.Contains(host, ".") {
			continue
		}
		return host
	}
	return noneAROIDomain
}

func normalizeHost(raw string) string {
	raw = strings.TrimSuffix(raw, ".")
	if u, err := url.Parse("//" + raw); err == nil && u.Hostname() != "" {
		return strings.ToLower(u.Hostname())
	}
	return strings.ToLower(raw)
}
