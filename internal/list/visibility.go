package list

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"

	"github.com/matthewbaird/screens/internal/screen"
)

// ExprVisibility compiles a boolean expr-lang predicate into a visibility
// hook. The predicate is evaluated once per property with:
//
//	property  path, label, kind, type, visible, sortable, filterable, order
//	filters   [{path, operator, value}]
//	sorting   [{path, order}]
//	mode      current mode ID
//	page      current page, 0 when unpaged
//	visible   currently displayed paths
//
// For example, to hide columns that are already filtered on:
//
//	property.visible && !any(filters, .path == property.path)
//
// A property whose evaluation fails stays displayed and the failure is
// reported on the state's error feed.
func ExprVisibility[T any](expression string) (VisibilityFunc[T], error) {
	program, err := exprlang.Compile(expression,
		exprlang.Env(visibilityEnv(nil, Query{})),
		exprlang.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("list: compile visibility %q: %w", expression, err)
	}
	return func(s *State[T], props []screen.PropertyDescription) []screen.PropertyDescription {
		q := s.Query()
		out := make([]screen.PropertyDescription, 0, len(props))
		for _, p := range props {
			show, err := evalVisible(program, visibilityEnv(&p, q))
			if err != nil {
				s.Report("visibility", fmt.Errorf("property %q: %w", p.Path, err))
				show = true
			}
			if show {
				out = append(out, p)
			}
		}
		return out
	}, nil
}

func evalVisible(program *exprvm.Program, env map[string]any) (bool, error) {
	out, err := exprlang.Run(program, env)
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("visibility predicate returned %T", out)
	}
	return b, nil
}

func visibilityEnv(p *screen.PropertyDescription, q Query) map[string]any {
	property := map[string]any{
		"path": "", "label": "", "kind": "", "type": "",
		"visible": false, "sortable": false, "filterable": false, "order": 0,
	}
	if p != nil {
		property = map[string]any{
			"path":       p.Path,
			"label":      p.Label,
			"kind":       p.Kind.String(),
			"type":       p.Type,
			"visible":    p.Visible,
			"sortable":   p.Sortable,
			"filterable": p.Filterable,
			"order":      p.Order,
		}
	}
	filters := make([]any, len(q.Filters))
	for i, f := range q.Filters {
		filters[i] = map[string]any{"path": f.Path, "operator": f.Operator, "value": f.Value}
	}
	sorting := make([]any, len(q.Sorting))
	for i, k := range q.Sorting {
		sorting[i] = map[string]any{"path": k.Path, "order": k.Order.String()}
	}
	visible := make([]any, len(q.Visible))
	for i, v := range q.Visible {
		visible[i] = v
	}
	page := 0
	if q.Paging != nil {
		page = q.Paging.Page
	}
	return map[string]any{
		"property": property,
		"filters":  filters,
		"sorting":  sorting,
		"mode":     q.Mode,
		"page":     page,
		"visible":  visible,
	}
}
