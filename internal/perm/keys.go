package perm

import (
	"fmt"
	"strings"
)

// Key identifies one boolean capability flag. The enumeration is closed:
// organization-scoped and user-scoped permission sets share the same keys.
type Key string

const (
	KeyViewIncidents     Key = "viewIncidents"
	KeyCreateIncidents   Key = "createIncidents"
	KeyEditIncidents     Key = "editIncidents"
	KeyDeleteIncidents   Key = "deleteIncidents"
	KeyViewReports       Key = "viewReports"
	KeyViewAIReports     Key = "viewAIReports"
	KeyGenerateAIReports Key = "generateAIReports"
	KeyViewQuotes        Key = "viewQuotes"
	KeyManageUsers       Key = "manageUsers"
	KeyManageCategories  Key = "manageCategories"
	KeyManageSettings    Key = "manageSettings"
)

// allKeys is the canonical key order. Resolver and diff output follow it,
// so log entries and API enumerations stay stable.
var allKeys = []Key{
	KeyViewIncidents,
	KeyCreateIncidents,
	KeyEditIncidents,
	KeyDeleteIncidents,
	KeyViewReports,
	KeyViewAIReports,
	KeyGenerateAIReports,
	KeyViewQuotes,
	KeyManageUsers,
	KeyManageCategories,
	KeyManageSettings,
}

// AllKeys returns the canonical ordered permission keys. The slice is a copy.
func AllKeys() []Key {
	out := make([]Key, len(allKeys))
	copy(out, allKeys)
	return out
}

// ParseKey validates a raw key name against the closed enumeration.
func ParseKey(raw string) (Key, error) {
	raw = strings.TrimSpace(raw)
	for _, k := range allKeys {
		if string(k) == raw {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: unknown permission key %q", ErrInvalidInput, raw)
}
