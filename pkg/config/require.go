package config

import "fmt"

// MustNonEmpty panics when a required setting is empty. Startup code calls it
// before anything is served so a misconfigured process dies immediately.
func MustNonEmpty(value, envName string) {
	if value == "" {
		panic(fmt.Sprintf("missing required env %s", envName))
	}
}

func MustNonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		panic(fmt.Sprintf("missing required env %s", envName))
	}
}
