package expr

import (
	"fmt"
	"strings"
)

type literal struct{ value interface{} }

func (l *literal) eval(Lookup) interface{} { return l.value }

type identifier struct{ name string }

// eval returns the absent-key sentinel (nil) rather than erroring: a
// missing memory key evaluates as absent, which truthy treats as false.
func (id *identifier) eval(lookup Lookup) interface{} {
	v, ok := lookup(id.name)
	if !ok {
		return nil
	}
	return v
}

type notOp struct{ operand Node }

func (n *notOp) eval(lookup Lookup) interface{} {
	return !truthy(n.operand.eval(lookup))
}

type binOp struct {
	op          string
	left, right Node
}

func (b *binOp) eval(lookup Lookup) interface{} {
	left := truthy(b.left.eval(lookup))
	switch b.op {
	case "and":
		if !left {
			return false
		}
		return truthy(b.right.eval(lookup))
	case "or":
		if left {
			return true
		}
		return truthy(b.right.eval(lookup))
	default:
		return false
	}
}

type cmpOp struct {
	op          string
	left, right Node
}

func (c *cmpOp) eval(lookup Lookup) interface{} {
	l := c.left.eval(lookup)
	r := c.right.eval(lookup)

	switch c.op {
	case "==":
		return looseEqual(l, r)
	case "!=":
		return !looseEqual(l, r)
	}

	lf, lok := asNumber(l)
	rf, rok := asNumber(r)
	if lok && rok {
		switch c.op {
		case "<":
			return lf < rf
		case "<=":
			return lf <= rf
		case ">":
			return lf > rf
		case ">=":
			return lf >= rf
		}
	}

	ls, rs := asString(l), asString(r)
	switch c.op {
	case "<":
		return ls < rs
	case "<=":
		return ls <= rs
	case ">":
		return ls > rs
	case ">=":
		return ls >= rs
	}
	return false
}

type call struct {
	name string
	arg  Node
}

func (c *call) eval(lookup Lookup) interface{} {
	v := c.arg.eval(lookup)
	switch c.name {
	case "str":
		return asString(v)
	case "lower":
		return strings.ToLower(asString(v))
	case "len":
		switch x := v.(type) {
		case string:
			return float64(len(x))
		case []interface{}:
			return float64(len(x))
		case map[string]interface{}:
			return float64(len(x))
		default:
			if v == nil {
				return float64(0)
			}
			return float64(len(asString(v)))
		}
	default:
		return nil
	}
}

// truthy treats bool values at face value, accepts the strings "true"
// and "false" (any case) as their boolean equivalents, and otherwise
// follows ordinary truthiness (non-zero number, non-empty string/slice/
// map, non-nil).
func truthy(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		switch strings.ToLower(x) {
		case "true":
			return true
		case "false":
			return false
		}
		return x != ""
	case float64:
		return x != 0
	case int:
		return x != 0
	case []interface{}:
		return len(x) > 0
	case map[string]interface{}:
		return len(x) > 0
	default:
		return true
	}
}

func asNumber(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}

func asString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return fmt.Sprintf("%v", x)
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%v", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func looseEqual(l, r interface{}) bool {
	if lf, lok := asNumber(l); lok {
		if rf, rok := asNumber(r); rok {
			return lf == rf
		}
	}
	if lb, lok := l.(bool); lok {
		return lb == truthy(r)
	}
	if rb, rok := r.(bool); rok {
		return rb == truthy(l)
	}
	return asString(l) == asString(r)
}
