// Package sanitize holds the small pure helpers applied to tool arguments and
// saved query prefixes.
package sanitize

import "strings"

// DropAbsent returns a copy of params without nil values. Zero values such as
// 0, false, "" and empty slices are kept. The input map is not modified.
func DropAbsent(params map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(params))
	for k, v := range params {
		if v == nil {
			continue
		}
		out[k] = v
	}
	return out
}

// FilterByPrefix returns the items that start with at least one prefix, in
// first-seen order and without duplicates. No prefixes means no matches.
func FilterByPrefix(items, prefixes []string) []string {
	if len(prefixes) == 0 || len(items) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, dup := seen[item]; dup {
			continue
		}
		for _, prefix := range prefixes {
			if strings.HasPrefix(item, prefix) {
				seen[item] = struct{}{}
				out = append(out, item)
				break
			}
		}
	}
	return out
}
