package assertions

import "fmt"

type Operator int

const (
	OpEquals Operator = iota
	OpNotEquals
	OpGreaterThan
	OpGreaterOrEqual
	OpLessThan
	OpLessOrEqual
	OpContains
	OpNotContains
	OpStartsWith
	OpEndsWith
	OpMatches
	OpExists
	OpNotExists
	OpLength
	OpIncludes
	OpNotIncludes
	OpIn
	OpNotIn
	OpType
	OpSchema
)

var operatorNames = map[Operator]string{
	OpEquals:         "==",
	OpNotEquals:      "!=",
	OpGreaterThan:    ">",
	OpGreaterOrEqual: ">=",
	OpLessThan:       "<",
	OpLessOrEqual:    "<=",
	OpContains:       "contains",
	OpNotContains:    "!contains",
	OpStartsWith:     "startsWith",
	OpEndsWith:       "endsWith",
	OpMatches:        "matches",
	OpExists:         "exists",
	OpNotExists:      "!exists",
	OpLength:         "length",
	OpIncludes:       "includes",
	OpNotIncludes:    "!includes",
	OpIn:             "in",
	OpNotIn:          "!in",
	OpType:           "type",
	OpSchema:         "schema",
}

var operatorAliases = map[string]Operator{
	"=":           OpEquals,
	"equals":      OpEquals,
	"notEquals":   OpNotEquals,
	"notContains": OpNotContains,
	"notExists":   OpNotExists,
	"notIncludes": OpNotIncludes,
	"notIn":       OpNotIn,
}

func (o Operator) String() string {
	if s, ok := operatorNames[o]; ok {
		return s
	}
	return fmt.Sprintf("Operator(%d)", int(o))
}

// ParseOperator accepts an operator symbol or name.
func ParseOperator(s string) (Operator, error) {
	for op, name := range operatorNames {
		if name == s {
			return op, nil
		}
	}
	if op, ok := operatorAliases[s]; ok {
		return op, nil
	}
	return 0, fmt.Errorf("unknown operator: %s", s)
}

// Unary reports whether the operator takes no expected value.
func (o Operator) Unary() bool {
	return o == OpExists || o == OpNotExists
}
