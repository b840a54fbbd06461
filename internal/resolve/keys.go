package resolve

import (
	"strconv"
	"strings"

	"github.com/roach88/osmigrate/internal/model"
	"github.com/roach88/osmigrate/internal/normalize"
)

// cacheKey identifies one natural key of one kind within a run.
type cacheKey struct {
	kind  model.EntityKind
	value string
}

// SupervisorKey returns the natural key of a supervisor name.
func SupervisorKey(name string) string {
	return normalize.Key(name)
}

// ZoneKey returns the natural key of a zone name.
func ZoneKey(name string) string {
	return normalize.Key(name)
}

// SectorKey returns the natural key of a sector name. The zone half of the
// composite key is the resolved zone id.
func SectorKey(name string) string {
	return normalize.Key(name)
}

// MachineKey returns the natural key of a machine number.
func MachineKey(number int) string {
	return strconv.Itoa(number)
}

// keyEscaper escapes the separator inside key parts so that distinct
// (first, last) pairs never produce the same key.
var keyEscaper = strings.NewReplacer(`\`, `\\`, "|", `\|`)

// OperatorKey returns the natural key of an operator full name as
// "first|last". A '|' or '\' inside either part is backslash-escaped.
func OperatorKey(fullName string) string {
	first, last := normalize.SplitFullName(fullName)
	return keyEscaper.Replace(first) + "|" + keyEscaper.Replace(last)
}

func sectorCacheValue(nameKey string, zoneID int64) string {
	return nameKey + "|" + strconv.FormatInt(zoneID, 10)
}

// placeholderEmail synthesizes a contact address for a supervisor created
// from history: "juan perez" -> "juan.perez@<domain>".
func placeholderEmail(nameKey, domain string) string {
	local := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ' || r == '.' || r == '-' || r == '_':
			return '.'
		}
		return -1
	}, nameKey)
	local = strings.Trim(local, ".")
	if local == "" {
		local = "supervisor"
	}
	return local + "@" + domain
}
