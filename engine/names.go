package engine

// Argument and operation name helpers.
// Engine argument names use '-' between words (out-array); callers and
// option strings may spell them with '_' instead.

// sameArg reports whether a and b name the same argument, treating '-' and
// '_' as equal.
func sameArg(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca == '_' {
			ca = '-'
		}
		if cb == '_' {
			cb = '-'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// validOpName reports whether name can name an operation: a lowercase
// letter followed by lowercase letters, digits or underscores.
func validOpName(name string) bool {
	if name == "" || name[0] < 'a' || name[0] > 'z' {
		return false
	}
	for i := 1; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '_':
		default:
			return false
		}
	}
	return true
}
