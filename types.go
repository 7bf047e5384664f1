package casec

// Type names used by the weak-typing environment and the strong-typing
// operator rules (spec.md §4.5). CASE has no user-declared type syntax
// beyond these; a type is inferred at each Let/Param and checked at each
// operator use.
const (
	TypeInt     = "int"
	TypeFloat   = "float"
	TypeString  = "string"
	TypeBool    = "bool"
	TypeVoid    = "void"
	TypeUnknown = "unknown"
)

// isNumeric reports whether t participates in arithmetic operators.
func isNumeric(t string) bool {
	return t == TypeInt || t == TypeFloat || t == TypeUnknown
}

// resultType computes the static result type of a binary operator over
// two operand types, or "" if the combination is rejected outright. Weak
// typing (spec.md §4.5) means unknown operands are always permitted to
// flow through — only operand pairs that are BOTH known and incompatible
// are rejected.
func resultType(op, lt, rt string) (string, bool) {
	switch op {
	case "+":
		if lt == TypeString || rt == TypeString {
			if (lt == TypeString || lt == TypeUnknown) && (rt == TypeString || rt == TypeUnknown) {
				return TypeString, true
			}
			return "", false
		}
		return numericResult(lt, rt)
	case "-", "*", "/", "%":
		if lt == TypeString || rt == TypeString {
			return "", false
		}
		return numericResult(lt, rt)
	case "==", "!=", "<", ">", "<=", ">=":
		if !isNumeric(lt) || !isNumeric(rt) {
			return "", false
		}
		return TypeBool, true
	case "&&", "||":
		return TypeBool, true
	default:
		return TypeUnknown, true
	}
}

func numericResult(lt, rt string) (string, bool) {
	if !isNumeric(lt) || !isNumeric(rt) {
		return "", false
	}
	if lt == TypeFloat || rt == TypeFloat {
		return TypeFloat, true
	}
	return TypeInt, true
}
