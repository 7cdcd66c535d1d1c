package domain

import (
	"strings"

	"github.com/fd1az/omniroute/internal/asset"
)

// Route is the ordered list of assets a trade passes through.
type Route []*asset.Asset

// BuildRoute concatenates segments in order, keeping only the first
// occurrence of each asset.
func BuildRoute(segments ...[]*asset.Asset) Route {
	var out Route
	for _, seg := range segments {
		for _, a := range seg {
			if a == nil || out.Contains(a) {
				continue
			}
			out = append(out, a)
		}
	}
	return out
}

func (r Route) Contains(a *asset.Asset) bool {
	for _, x := range r {
		if x.Equals(a) {
			return true
		}
	}
	return false
}

func (r Route) String() string {
	parts := make([]string, len(r))
	for i, a := range r {
		parts[i] = a.String()
	}
	return strings.Join(parts, " -> ")
}
