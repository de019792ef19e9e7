package cueschema

import "cuelang.org/go/cue"

// findReference returns the last selector of the definition or package
// value val refers to, or "time.Time" for time fields.
func findReference(val cue.Value) string {
	_, path := val.ReferencePath()
	if path.String() != "" {
		selectors := path.Selectors()
		if len(selectors) > 0 {
			return selectors[len(selectors)-1].String()
		}
	}
	op, args := val.Expr()
	if op == cue.AndOp || op == cue.OrOp {
		for _, arg := range args {
			if ref := findReference(arg); ref != "" {
				return ref
			}
		}
	}
	if op == cue.SelectorOp && len(args) >= 2 {
		if s, err := args[1].String(); err == nil && s == "Time" {
			return "time.Time"
		}
	}
	return ""
}

func isTimeField(val cue.Value) bool {
	ref := findReference(val)
	return ref == "time.Time" || ref == "Time"
}

func isEnum(val cue.Value) bool {
	op, args := findEnumDisjunction(val)
	if op != cue.OrOp || len(args) < 2 {
		return false
	}
	for _, arg := range args {
		check := arg
		if aOp, aArgs := arg.Expr(); aOp == cue.SelectorOp && len(aArgs) > 0 {
			check = aArgs[0]
		}
		if check.IncompleteKind() != cue.StringKind {
			return false
		}
		if _, err := check.String(); err != nil {
			d, ok := check.Default()
			if !ok {
				return false
			}
			if _, err := d.String(); err != nil {
				return false
			}
		}
	}
	return true
}

// findEnumDisjunction extracts the disjunction of a value that may refer to
// a definition or be wrapped in a conjunction such as string & ("a" | "b").
func findEnumDisjunction(val cue.Value) (cue.Op, []cue.Value) {
	op, args := val.Expr()
	if op == cue.OrOp {
		return op, args
	}
	if dOp, dArgs := cue.Dereference(val).Expr(); dOp == cue.OrOp {
		return dOp, dArgs
	}
	if op == cue.AndOp {
		for _, arg := range args {
			if argOp, argArgs := arg.Expr(); argOp == cue.OrOp {
				return argOp, argArgs
			}
		}
	}
	return op, args
}

func extractEnumValues(val cue.Value) []string {
	op, args := findEnumDisjunction(val)
	if op != cue.OrOp {
		return nil
	}
	var values []string
	for _, arg := range args {
		if s, err := arg.String(); err == nil {
			values = append(values, s)
			continue
		}
		if d, ok := arg.Default(); ok {
			if s, err := d.String(); err == nil {
				values = append(values, s)
			}
		}
	}
	return values
}

func isList(val cue.Value) bool {
	if val.IncompleteKind() == cue.ListKind {
		return true
	}
	if op, args := val.Expr(); op == cue.AndOp {
		for _, arg := range args {
			if arg.IncompleteKind() == cue.ListKind {
				return true
			}
		}
	}
	return false
}

func listElement(val cue.Value) (cue.Value, bool) {
	elem := val.LookupPath(cue.MakePath(cue.AnyIndex))
	if elem.Err() == nil {
		return elem, true
	}
	if op, args := val.Expr(); op == cue.AndOp {
		for _, arg := range args {
			if arg.IncompleteKind() == cue.ListKind {
				if ev := arg.LookupPath(cue.MakePath(cue.AnyIndex)); ev.Err() == nil {
					return ev, true
				}
			}
		}
	}
	return cue.Value{}, false
}

func inferKindFromExpr(val cue.Value) cue.Kind {
	op, args := val.Expr()
	switch op {
	case cue.AndOp:
		for _, arg := range args {
			if k := arg.IncompleteKind(); k != cue.BottomKind {
				return k
			}
			if k := inferKindFromExpr(arg); k != cue.BottomKind {
				return k
			}
		}
	case cue.OrOp:
		for _, arg := range args {
			if k := arg.IncompleteKind(); k != cue.BottomKind {
				return k
			}
		}
	}
	return cue.BottomKind
}
