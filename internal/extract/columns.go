package extract

import "strings"

// Role is the meaning of a table column.
type Role string

const (
	RoleDate      Role = "date"
	RoleOwner     Role = "owner"
	RoleTicker    Role = "ticker"
	RoleAsset     Role = "asset"
	RoleAssetType Role = "asset_type"
	RoleType      Role = "type"
	RoleAmount    Role = "amount"
	RolePrice     Role = "price"
	RoleTitle     Role = "title"
)

// HeaderRule claims the first unclaimed header containing any of Keywords.
// Rules are applied in order, so a more specific rule ("asset type") must
// precede a looser one ("type").
type HeaderRule struct {
	Role     Role
	Keywords []string
}

func (r HeaderRule) matches(header string) bool {
	for _, k := range r.Keywords {
		if strings.Contains(header, k) {
			return true
		}
	}
	return false
}

// MatchHeaders resolves column roles from header text. Headers are compared
// case-insensitively; unmatched roles are absent from the result.
func MatchHeaders(headers []string, rules []HeaderRule) map[Role]int {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = strings.ToLower(strings.Join(strings.Fields(h), " "))
	}

	claimed := make([]bool, len(headers))
	roles := make(map[Role]int, len(rules))
	for _, rule := range rules {
		if _, done := roles[rule.Role]; done {
			continue
		}
		for i, h := range normalized {
			if claimed[i] || h == "" {
				continue
			}
			if rule.matches(h) {
				roles[rule.Role] = i
				claimed[i] = true
				break
			}
		}
	}
	return roles
}

// cell returns record[idx] trimmed, or "" when idx is out of range.
func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
