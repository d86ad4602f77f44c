package reliability

type FailureStrategy string

const (
	FailOpen   FailureStrategy = "fail_open"
	FailClosed FailureStrategy = "fail_closed"
)

// ShouldAllow decides whether traffic proceeds when a shared dependency
// (the rate-limit store) errors out.
func ShouldAllow(strategy FailureStrategy, err error) bool {
	if err == nil {
		return true
	}
	return strategy == FailOpen
}
