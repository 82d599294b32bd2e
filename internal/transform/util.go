package transform

import (
	"sort"
	"strconv"
	"strings"
)

func stringSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func contains(set map[string]struct{}, v string) bool {
	_, ok := set[v]
	return ok
}

// emailDomain returns what follows the first '@' of an address, or the
// whole string when there is none.
func emailDomain(email string) string {
	if _, d, ok := strings.Cut(email, "@"); ok {
		return d
	}
	return email
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func itoa(n int) string { return strconv.Itoa(n) }

// pyBool renders b the way the directory export writes booleans.
func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
