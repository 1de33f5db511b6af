package main

import (
	"path"
	"strings"

	"github.com/ggufkit/ggufkit/operator"
)

// compilePatterns turns a comma/space separated list of glob patterns
// (e.g. "blk.0.*,output.weight") into a Predicate using the stdlib
// path.Match matcher — the name predicate itself stays a plain
// func(string) bool per operator.Predicate, so any matching scheme
// could be substituted without touching FilterMeta/FilterTensor.
func compilePatterns(patterns string) operator.Predicate {
	fields := strings.FieldsFunc(patterns, func(r rune) bool {
		return r == ',' || r == ' '
	})
	if len(fields) == 0 {
		fields = []string{"*"}
	}

	return func(name string) bool {
		for _, pat := range fields {
			if ok, err := path.Match(pat, name); err == nil && ok {
				return true
			}
		}
		return false
	}
}
