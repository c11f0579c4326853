// Package ident derives the resource-kind and identity keys muse uses to
// partition and deduplicate source requests.
//
// A resource kind is the nominal Go type of a source request: two requests
// share a kind iff they share a reflect.Type. Identity is whatever
// comparable value the request's own Identity method returns; muse never
// inspects it beyond using it as a map key.
package ident

import "reflect"

// Kind returns the resource kind for a source request value. Requests are
// always passed by value or pointer consistently by a single DataSource
// implementation, so reflect.TypeOf is stable for a given kind.
func Kind(req any) reflect.Type {
	return reflect.TypeOf(req)
}
