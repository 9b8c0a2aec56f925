package hexite

import "www.velocidex.com/golang/vfilter"

// MakeScope returns a scope suitable for evaluating count and offset
// lambdas. Decoded structs are presented to lambdas as ordered dicts,
// which vfilter already knows how to traverse.
func MakeScope() vfilter.Scope {
	return vfilter.NewScope()
}
