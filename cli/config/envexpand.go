package config

import (
	"os"
	"regexp"
	"strings"
)

// envRef matches ${NAME} and ${NAME:-fallback}.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv substitutes environment references in a config document.
// An unset or empty variable takes its fallback, or expands to nothing.
// Missing required values surface later, when the adapter or storage
// backend is built from the config.
func ExpandEnv(doc string) string {
	refs := envRef.FindAllStringSubmatchIndex(doc, -1)
	if len(refs) == 0 {
		return doc
	}

	var b strings.Builder
	b.Grow(len(doc))
	last := 0
	for _, m := range refs {
		b.WriteString(doc[last:m[0]])
		name := doc[m[2]:m[3]]
		fallback := ""
		if m[4] >= 0 {
			fallback = doc[m[4]:m[5]]
		}
		b.WriteString(lookupEnv(name, fallback))
		last = m[1]
	}
	b.WriteString(doc[last:])
	return b.String()
}

func lookupEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
