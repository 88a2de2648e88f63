package domain

// Result is the outcome of evaluating a container, a call or a fork.
// Value is nil when the run terminated without reaching a return node.
type Result struct {
	Value any   `json:"result,omitempty"`
	Err   error `json:"-"`
}

// Ok reports whether the run finished without an unhandled error.
func (r Result) Ok() bool {
	return r.Err == nil
}

// ErrorMessage returns the error text, or "" on success.
func (r Result) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
