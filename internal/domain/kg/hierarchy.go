package kg

import "strings"

// IsHierarchyID reports whether id is a dot path of integers such as "2.3.1".
func IsHierarchyID(id string) bool {
	if id == "" {
		return false
	}
	for _, seg := range strings.Split(id, ".") {
		if seg == "" {
			return false
		}
		for _, r := range seg {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}

// ParentID returns the implied structural parent of a hierarchical id.
func ParentID(id string) (string, bool) {
	if !IsHierarchyID(id) {
		return "", false
	}
	i := strings.LastIndexByte(id, '.')
	if i < 0 {
		return "", false
	}
	return id[:i], true
}

// Depth is the number of dots in a hierarchical id. Opaque ids sit at depth 0.
func Depth(id string) int {
	if !IsHierarchyID(id) {
		return 0
	}
	return strings.Count(id, ".")
}

// HierarchicallyRelated is true for ancestor/descendant pairs and for siblings that
// share a parent. Two roots are not siblings.
func HierarchicallyRelated(a, b string) bool {
	if !IsHierarchyID(a) || !IsHierarchyID(b) {
		return false
	}
	if a == b || strings.HasPrefix(b, a+".") || strings.HasPrefix(a, b+".") {
		return true
	}
	pa, okA := ParentID(a)
	pb, okB := ParentID(b)
	return okA && okB && pa == pb
}
