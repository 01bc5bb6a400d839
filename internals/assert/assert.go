package assert

import "fmt"

// Assert panics with msg when the condition does not hold. Reserved for
// boot-time initialization failures that leave nothing to recover into.
func Assert(condition bool, msg string, other ...any) {
	if !condition {
		if len(other) > 0 {
			panic(fmt.Sprintf("%s: %v", msg, other))
		}
		panic(msg)
	}
}

func AssertNil(value any, msg string, other ...any) {
	Assert(value == nil, msg, other...)
}
