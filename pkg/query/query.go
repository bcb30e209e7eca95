// Package query implements the filter engine: compiling MongoDB-style
// filter expressions into an AST and evaluating them against documents.
//
// A filter is an object whose top-level keys not starting with "$" are
// field predicates (a dotted path mapped to a literal or a
// field-operator object like {"$gt": 5}), and whose keys starting with
// "$" are logical operators ("$and"/"$or") taking a non-empty array of
// sub-filters.
package query

import (
	"github.com/adfharrison1/gasdb-go/pkg/domain"
	"github.com/adfharrison1/gasdb-go/pkg/fieldpath"
	"github.com/adfharrison1/gasdb-go/pkg/objutil"
)

// MaxFilterDepth bounds nested $and/$or recursion. MaxFilterBranches
// bounds the size of a single $and/$or array. Both guard against stack
// exhaustion on a pathological or adversarial filter.
const (
	MaxFilterDepth    = 32
	MaxFilterBranches = 256
)

// Operator is a field-level comparison operator.
type Operator string

const (
	OpEq     Operator = "$eq"
	OpNe     Operator = "$ne"
	OpGt     Operator = "$gt"
	OpGte    Operator = "$gte"
	OpLt     Operator = "$lt"
	OpLte    Operator = "$lte"
	OpIn     Operator = "$in"
	OpNin    Operator = "$nin"
	OpExists Operator = "$exists"
)

// node is the compiled AST node interface.
type node interface {
	matches(doc domain.Document) bool
}

// fieldNode evaluates a single operator against the value(s) reached by
// a dotted path.
type fieldNode struct {
	path string
	op   Operator
	arg  interface{}
}

// logicalNode evaluates "$and"/"$or" over child nodes.
type logicalNode struct {
	op       string // "$and" or "$or"
	children []node
}

// Filter is a compiled filter, reusable across many Matches calls.
type Filter struct {
	root node
}

// Compile parses raw into a reusable Filter. An empty filter matches
// every document.
func Compile(raw map[string]interface{}) (*Filter, error) {
	root, err := compileObject(raw, 0)
	if err != nil {
		return nil, err
	}
	return &Filter{root: root}, nil
}

// Matches reports whether doc satisfies f.
func (f *Filter) Matches(doc domain.Document) bool {
	if f == nil || f.root == nil {
		return true
	}
	return f.root.matches(doc)
}

// Matches compiles raw and evaluates it against doc in one call. Prefer
// Compile+Filter.Matches when the same filter is evaluated repeatedly.
func Matches(doc domain.Document, raw map[string]interface{}) (bool, error) {
	f, err := Compile(raw)
	if err != nil {
		return false, err
	}
	return f.Matches(doc), nil
}

func compileObject(raw map[string]interface{}, depth int) (node, error) {
	if depth > MaxFilterDepth {
		return nil, domain.NewError(domain.InvalidQuery, "filter exceeds maximum nesting depth %d", MaxFilterDepth)
	}
	if len(raw) == 0 {
		return &logicalNode{op: "$and"}, nil
	}

	var children []node
	for key, val := range raw {
		if domain.IsOperatorKey(key) {
			switch key {
			case "$and", "$or":
				sub, err := compileLogical(key, val, depth)
				if err != nil {
					return nil, err
				}
				children = append(children, sub)
			default:
				return nil, domain.NewError(domain.InvalidQuery, "unknown logical operator %q", key)
			}
			continue
		}
		fn, err := compileFieldPredicate(key, val)
		if err != nil {
			return nil, err
		}
		children = append(children, fn...)
	}

	return &logicalNode{op: "$and", children: children}, nil
}

func compileLogical(key string, val interface{}, depth int) (node, error) {
	arr, ok := val.([]interface{})
	if !ok {
		return nil, domain.NewError(domain.InvalidQuery, "%s requires an array", key)
	}
	if len(arr) == 0 {
		return nil, domain.NewError(domain.InvalidQuery, "%s requires a non-empty array", key)
	}
	if len(arr) > MaxFilterBranches {
		return nil, domain.NewError(domain.InvalidQuery, "%s exceeds maximum branch count %d", key, MaxFilterBranches)
	}

	children := make([]node, 0, len(arr))
	for _, item := range arr {
		sub, ok := item.(map[string]interface{})
		if !ok {
			return nil, domain.NewError(domain.InvalidQuery, "%s element must be an object", key)
		}
		n, err := compileObject(sub, depth+1)
		if err != nil {
			return nil, err
		}
		children = append(children, n)
	}
	return &logicalNode{op: key, children: children}, nil
}

// compileFieldPredicate compiles the right-hand side of a non-"$"
// top-level key. It may yield multiple field nodes when the value is a
// field-operator object with several operators.
func compileFieldPredicate(path string, val interface{}) ([]node, error) {
	asMap, isMap := val.(map[string]interface{})
	if isMap && isOperatorObject(asMap) {
		nodes := make([]node, 0, len(asMap))
		for opKey, opVal := range asMap {
			op := Operator(opKey)
			if err := validateOperatorArg(op, opVal); err != nil {
				return nil, err
			}
			nodes = append(nodes, &fieldNode{path: path, op: op, arg: opVal})
		}
		return nodes, nil
	}
	if isMap {
		// Mixed $-and-non-$ keys in the same object is ambiguous.
		for k := range asMap {
			if domain.IsOperatorKey(k) {
				return nil, domain.NewError(domain.InvalidQuery, "field %q: cannot mix operator and literal keys", path)
			}
		}
	}
	return []node{&fieldNode{path: path, op: OpEq, arg: val}}, nil
}

// EvaluateOperatorObject applies every operator in ops to actual as an
// implicit AND, the same semantics a field-operator object has inside a
// filter. It lets callers outside this package (the update engine's
// $pull, matching a bare scalar against a condition like {"$gt": 3})
// reuse the operator grammar without compiling a full document filter.
func EvaluateOperatorObject(actual interface{}, ops map[string]interface{}) (bool, error) {
	for opKey, opVal := range ops {
		op := Operator(opKey)
		if err := validateOperatorArg(op, opVal); err != nil {
			return false, err
		}
		if op == OpExists {
			return false, domain.NewError(domain.InvalidQuery, "$exists is not meaningful outside a field predicate")
		}
		if !evalOperator(actual, op, opVal) {
			return false, nil
		}
	}
	return true, nil
}

// IsOperatorObject reports whether m's keys are all operator keys
// ("$gt", "$in", ...), i.e. whether m should be read as a field-operator
// object rather than a literal value or a sub-document filter.
func IsOperatorObject(m map[string]interface{}) bool {
	return isOperatorObject(m)
}

func isOperatorObject(m map[string]interface{}) bool {
	if len(m) == 0 {
		return false
	}
	for k := range m {
		if !domain.IsOperatorKey(k) {
			return false
		}
	}
	return true
}

func validateOperatorArg(op Operator, arg interface{}) error {
	switch op {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte:
		return nil
	case OpIn, OpNin:
		if _, ok := arg.([]interface{}); !ok {
			return domain.NewError(domain.InvalidQuery, "%s requires an array argument", op)
		}
		return nil
	case OpExists:
		if _, ok := arg.(bool); !ok {
			return domain.NewError(domain.InvalidQuery, "$exists requires a boolean argument")
		}
		return nil
	default:
		return domain.NewError(domain.InvalidQuery, "unknown field operator %q", op)
	}
}

func (n *logicalNode) matches(doc domain.Document) bool {
	switch n.op {
	case "$or":
		for _, c := range n.children {
			if c.matches(doc) {
				return true
			}
		}
		return len(n.children) == 0
	default: // "$and"
		for _, c := range n.children {
			if !c.matches(doc) {
				return false
			}
		}
		return true
	}
}

func (n *fieldNode) matches(doc domain.Document) bool {
	if n.op == OpExists {
		want := n.arg.(bool)
		return fieldpath.Exists(doc, n.path) == want
	}

	resolved := fieldpath.Get(doc, n.path)
	if fieldpath.IsMissing(resolved) {
		// $ne / $nin against a missing field vacuously match, mirroring
		// "not equal to a value I don't have"; every other operator
		// requires a present value.
		switch n.op {
		case OpNe:
			return true
		case OpNin:
			return true
		default:
			return false
		}
	}

	for _, actual := range fieldpath.Values(resolved) {
		if evalOperator(actual, n.op, n.arg) {
			return true
		}
	}
	return false
}

func evalOperator(actual interface{}, op Operator, arg interface{}) bool {
	switch op {
	case OpEq:
		return objutil.DeepEqual(actual, arg)
	case OpNe:
		return !objutil.DeepEqual(actual, arg)
	case OpIn:
		return memberOf(actual, arg.([]interface{}))
	case OpNin:
		return !memberOf(actual, arg.([]interface{}))
	case OpGt, OpGte, OpLt, OpLte:
		cmp, ok := Compare(actual, arg)
		if !ok {
			return false // cross-type comparisons never match and never error
		}
		switch op {
		case OpGt:
			return cmp > 0
		case OpGte:
			return cmp >= 0
		case OpLt:
			return cmp < 0
		case OpLte:
			return cmp <= 0
		}
	}
	return false
}

func memberOf(actual interface{}, arr []interface{}) bool {
	for _, v := range arr {
		if objutil.DeepEqual(actual, v) {
			return true
		}
	}
	return false
}
