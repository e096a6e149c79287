package formview

// ConditionOperator compares a controlling field's value with a rule operand.
type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "equals"
	OperatorNotEquals   ConditionOperator = "not_equals"
	OperatorContains    ConditionOperator = "contains"
	OperatorGreaterThan ConditionOperator = "greater_than"
	OperatorLessThan    ConditionOperator = "less_than"
	OperatorIsEmpty     ConditionOperator = "is_empty"
	OperatorIsNotEmpty  ConditionOperator = "is_not_empty"
)

// IsValid reports whether the operator is one the visibility evaluator knows.
func (o ConditionOperator) IsValid() bool {
	switch o {
	case OperatorEquals, OperatorNotEquals, OperatorContains,
		OperatorGreaterThan, OperatorLessThan, OperatorIsEmpty, OperatorIsNotEmpty:
		return true
	}
	return false
}

// ConditionAction decides what a met condition does to its field.
type ConditionAction string

const (
	ActionShow ConditionAction = "show"
	ActionHide ConditionAction = "hide"
)

// ConditionRule makes a field's visibility depend on another field's value.
// Rules on one field are ANDed.
type ConditionRule struct {
	FieldKey string            `json:"fieldKey" yaml:"fieldKey"`
	Operator ConditionOperator `json:"operator" yaml:"operator"`
	Value    any               `json:"value,omitempty" yaml:"value,omitempty"`
	Action   ConditionAction   `json:"action" yaml:"action"`
}
