package logger

import (
	"sort"
	"strings"
)

// LogProps logs a message rendered from template, where every {key}
// placeholder is replaced by props[key]. The properties are also attached as
// structured fields in key order so output is stable across runs.
//
// Usage: LogProps(LevelInfo, "{listener} is listening on socket: {socket}",
// map[string]string{"listener": name, "socket": path})
func LogProps(level Level, template string, props map[string]string) {
	if !Enabled(level) {
		return
	}

	keys := SortedKeys(props)
	args := make([]any, 0, 2*len(keys))
	for _, k := range keys {
		args = append(args, k, props[k])
	}

	Log(level, RenderTemplate(template, props), args...)
}

// RenderTemplate replaces each {key} in template with props[key]. Unknown
// placeholders are left untouched.
func RenderTemplate(template string, props map[string]string) string {
	if len(props) == 0 {
		return template
	}

	pairs := make([]string, 0, 2*len(props))
	for _, k := range SortedKeys(props) {
		pairs = append(pairs, "{"+k+"}", props[k])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// SortedKeys returns the keys of props in ascending order.
func SortedKeys(props map[string]string) []string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
