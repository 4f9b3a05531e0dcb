package collection

import "regexp"

// Object key layout under the configured prefix:
//
//	document            {prefix}{YYYY-MM-DD}/{id}.json
//	partition view blob {prefix}views/{YYYY-MM-DD}.json
//	manifest blob       {prefix}manifest.json
const (
	viewsDir     = "views/"
	manifestName = "manifest.json"
	docExt       = ".json"

	jsonContentType = "application/json"
)

// idPattern matches a document identifier followed by a file extension at
// the end of a key. Keys that don't match are silently excluded from
// listings.
var idPattern = regexp.MustCompile(`([0-9a-f]{24})\.[^/.]+$`)

// dayPattern matches a calendar-day view blob name at the end of a key.
var dayPattern = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})\.[^/.]+$`)

func (c Config) docKey(day, id string) string {
	return c.Prefix + day + "/" + id + docExt
}

func (c Config) dayPrefix(day string) string {
	return c.Prefix + day + "/"
}

func (c Config) viewKey(day string) string {
	return c.Prefix + viewsDir + day + docExt
}

func (c Config) viewsPrefix() string {
	return c.Prefix + viewsDir
}

func (c Config) manifestKey() string {
	return c.Prefix + manifestName
}

// idFromKey extracts the document identifier from an object key, or ""
// when the key does not name a document.
func idFromKey(key string) string {
	m := idPattern.FindStringSubmatch(key)
	if m == nil {
		return ""
	}
	return m[1]
}

// dayFromKey extracts the calendar day from a view blob key, or "" when the
// key does not name a view blob.
func dayFromKey(key string) string {
	m := dayPattern.FindStringSubmatch(key)
	if m == nil {
		return ""
	}
	return m[1]
}
