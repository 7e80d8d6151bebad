// Package vacancy derives stable identities for vacancy cards seen on result pages.
package vacancy

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strings"
)

// HashPrefix marks identities derived from the title alone. They are weaker
// than site ids: two different vacancies with the same title collide.
const HashPrefix = "hash_"

const vacancyPathMarker = "/vacancy/"

// Identity picks the dedup key for a card, in priority order: the site's
// data attribute, the id in a /vacancy/<id> link, then a title hash.
// It returns false when none of the three is available.
func Identity(attrID, href, title string) (string, bool) {
	if id := strings.TrimSpace(attrID); id != "" {
		return id, true
	}
	if id, ok := IDFromURL(href); ok {
		return id, true
	}
	if title = strings.TrimSpace(title); title != "" {
		return TitleHash(title), true
	}
	return "", false
}

// IDFromURL extracts the vacancy id from links like
// https://hh.ru/vacancy/123456?query=devops.
func IDFromURL(href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}

	path := href
	if u, err := url.Parse(href); err == nil {
		path = u.Path
	}

	idx := strings.Index(path, vacancyPathMarker)
	if idx == -1 {
		return "", false
	}
	id := path[idx+len(vacancyPathMarker):]
	if end := strings.IndexAny(id, "/?#"); end != -1 {
		id = id[:end]
	}
	if id == "" {
		return "", false
	}
	return id, true
}

// TitleHash is the fallback identity: the first 12 hex chars of MD5(title).
func TitleHash(title string) string {
	sum := md5.Sum([]byte(title))
	return HashPrefix + hex.EncodeToString(sum[:])[:12]
}
