// Package results carries the success-or-failure envelope returned by application services.
package results

// OperationResult holds either a success payload or a business failure.
// Infrastructure errors travel beside it as a plain error.
type OperationResult[S any, F any] struct {
	Success *S
	Failure *F
}

// IsSuccess reports whether the result carries a success payload.
func (r OperationResult[S, F]) IsSuccess() bool {
	return r.Success != nil
}

// IsFailure reports whether the result carries a business failure.
func (r OperationResult[S, F]) IsFailure() bool {
	return r.Failure != nil
}

// SuccessResult wraps s as a successful result.
func SuccessResult[S any, F any](s S) OperationResult[S, F] {
	return OperationResult[S, F]{Success: &s}
}

// FailureResult wraps f as a business failure.
func FailureResult[S any, F any](f F) OperationResult[S, F] {
	return OperationResult[S, F]{Failure: &f}
}
