// Package wrapper provides middleware wrappers for queries.
//
// Every wrapper is a query.WrapFunc, so it has the same shape as query.Decorate and composes
// with query.Chain. Wrappers add cross-cutting behavior such as tracing, logging, panic
// recovery, deadlines and retries without touching the wrapped query.
package wrapper

import (
	"fmt"
	"strings"

	"github.com/code19m/errx"
)

func errObject(err error) map[string]any {
	e := errx.AsErrorX(err)
	return map[string]any{
		"code":    e.Code(),
		"message": e.Error(),
		"type":    e.Type().String(),
		"trace":   e.Trace(),
		"fields":  e.Fields(),
		"details": e.Details(),
	}
}

// typeName returns the unqualified type name of v without pointer and type parameters.
func typeName(v any) string {
	name := fmt.Sprintf("%T", v)
	name = strings.TrimPrefix(name, "*")
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}
