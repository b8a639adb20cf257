// Package geo resolves Swedish geographic codes and reads DeSO boundary
// shapefiles.
package geo

// Lookup resolves municipality and county names from their code prefixes.
// The zero value is ready to use; it implements classify.NameLookup.
type Lookup struct{}

// Municipality returns the name for a 4-digit kommun code, "" if unknown.
func (Lookup) Municipality(code string) string {
	return kommunNames[code]
}

// County returns the name for a 2-digit län code, "" if unknown.
func (Lookup) County(code string) string {
	return lanNames[code]
}

// MunicipalityCount returns the number of known municipalities.
func MunicipalityCount() int { return len(kommunNames) }

// CountyCount returns the number of known counties.
func CountyCount() int { return len(lanNames) }
