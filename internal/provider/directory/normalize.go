package directory

import (
	"regexp"
	"slices"
	"strings"

	"userinfo-service/internal/provider"

	"github.com/go-ldap/ldap/v3"
)

// normalizeEntry converts a search entry into attributes. The role attribute
// becomes the reserved roles key with DN values reduced to their first RDN
// value; literal TRUE and FALSE become booleans.
func normalizeEntry(entry *ldap.Entry, roleAttribute string) provider.Attributes {
	attrs := provider.Attributes{}
	for _, attr := range entry.Attributes {
		if attr.Name == "dn" || attr.Name == "controls" {
			continue
		}

		if roleAttribute != "" && strings.EqualFold(attr.Name, roleAttribute) {
			roles := make([]string, 0, len(attr.Values))
			for _, value := range attr.Values {
				roles = append(roles, SimpleRoleName(value))
			}
			attrs[provider.RolesKey] = roles
			continue
		}

		switch len(attr.Values) {
		case 0:
		case 1:
			attrs[attr.Name] = normalizeScalar(attr.Values[0])
		default:
			attrs[attr.Name] = slices.Clone(attr.Values)
		}
	}
	return attrs
}

func normalizeScalar(value string) any {
	switch value {
	case "TRUE":
		return true
	case "FALSE":
		return false
	default:
		return value
	}
}

var firstRDN = regexp.MustCompile(`^[a-zA-Z0-9]+=([^,]+)`)

// SimpleRoleName returns the value of the first component of a distinguished
// name, e.g. "cn=Admins,dc=example,dc=com" becomes "Admins". Only the first
// component is inspected and its value is taken verbatim, escapes included.
// Values that do not start with a component are returned unchanged.
func SimpleRoleName(value string) string {
	if m := firstRDN.FindStringSubmatch(value); m != nil {
		return m[1]
	}
	return value
}
