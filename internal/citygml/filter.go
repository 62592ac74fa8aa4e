package citygml

// MatchesFilter reports whether a building is selected by an id filter.
// With attrName empty the building's gml:id is compared; otherwise the named
// generic attribute is. An empty id list selects everything.
func MatchesFilter(b *Building, ids []string, attrName string) bool {
	if len(ids) == 0 {
		return true
	}
	var key string
	if attrName == "" {
		key = b.ID()
	} else {
		key = b.GenericAttr(attrName)
	}
	if key == "" {
		return false
	}
	for _, id := range ids {
		if id == key {
			return true
		}
	}
	return false
}

// FilterBuildings returns the buildings selected by the id filter, keeping
// document order.
func FilterBuildings(buildings []*Building, ids []string, attrName string) []*Building {
	if len(ids) == 0 {
		return buildings
	}
	out := make([]*Building, 0, len(buildings))
	for _, b := range buildings {
		if MatchesFilter(b, ids, attrName) {
			out = append(out, b)
		}
	}
	return out
}
