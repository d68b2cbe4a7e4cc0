// Package tag contains build tag constants.
// Debug builds ('go build -tags debug') enable expensive runtime invariant
// checks in cache and slab packages.
package tag
