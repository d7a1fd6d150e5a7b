// Package urlnorm canonicalizes article URLs so that tracking noise and
// cosmetic differences do not defeat URL-level dedup.
package urlnorm

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// defaultDeniedParams are stripped from every URL in addition to any
// configured denylist. utm_* parameters are stripped by prefix.
var defaultDeniedParams = map[string]struct{}{
	"fbclid":      {},
	"gclid":       {},
	"igshid":      {},
	"mc_cid":      {},
	"mc_eid":      {},
	"ref":         {},
	"ref_src":     {},
	"cmpid":       {},
	"ocid":        {},
	"smid":        {},
	"sref":        {},
	"partner":     {},
	"source":      {},
	"output":      {},
	"spm":         {},
	"_hsenc":      {},
	"_hsmi":       {},
	"yclid":       {},
	"twclid":      {},
	"msclkid":     {},
	"at_medium":   {},
	"at_campaign": {},
}

// Canonicalize normalizes a URL for identity comparison:
// lowercases scheme and host, strips default ports, drops the fragment,
// removes tracking parameters (utm_* plus denylist), sorts the remaining
// query, and trims a trailing slash on non-root paths.
// extraDenied supplements the built-in parameter denylist.
func Canonicalize(raw string, extraDenied []string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty url")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host")
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.User = nil

	// Default ports carry no identity.
	if (u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) ||
		(u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) {
		u.Host = u.Host[:strings.LastIndex(u.Host, ":")]
	}

	denied := make(map[string]struct{}, len(extraDenied))
	for _, p := range extraDenied {
		denied[strings.ToLower(strings.TrimSpace(p))] = struct{}{}
	}

	q := u.Query()
	keys := make([]string, 0, len(q))
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") {
			continue
		}
		if _, ok := defaultDeniedParams[lk]; ok {
			continue
		}
		if _, ok := denied[lk]; ok {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		vals := q[k]
		sort.Strings(vals)
		for _, v := range vals {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			if v != "" {
				b.WriteByte('=')
				b.WriteString(url.QueryEscape(v))
			}
		}
	}
	u.RawQuery = b.String()

	if len(u.Path) > 1 {
		u.Path = strings.TrimRight(u.Path, "/")
	}
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String(), nil
}

// Hash returns the hex SHA-256 of a canonical URL, used as url_hash.
func Hash(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// Domain extracts the registrable host portion (host without port) from
// a canonical URL. Returns "" on parse failure.
func Domain(canonical string) string {
	u, err := url.Parse(canonical)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
