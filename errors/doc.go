// Package errors provides structured error types for the bindgen module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: value path, Go type and descriptor names,
// and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindUnknownVariant).
//		Path("result", "value").
//		Type("DataEnum").
//		Detail("tag %d out of range", tag).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Truncated(errors.PhaseDecode, path, 8, 3)
//	err := errors.DoubleRelease("PersonInfo", id)
//
// The marshaling contract failures each have a kind-only sentinel so callers
// can test for them without caring about the phase:
//
//	ErrInvalidEncoding      malformed string or scalar bytes
//	ErrUnknownDiscriminant  enum discriminant outside the declared set
//	ErrUnknownVariant       data-enum tag outside the declared set
//	ErrTruncatedInput       declared length exceeds available bytes
//	ErrUseAfterRelease      handle used after disposal
//	ErrDoubleRelease        handle disposed twice
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
