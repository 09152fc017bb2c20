// Package common defines shared sentinel errors and small helpers used
// across gophauth packages. Callers should use errors.Is to match the
// error values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Session errors.
	ErrorBusy = errors.New("operation already in progress")

	// Credential errors.
	ErrorAlreadyExists  = errors.New("already exists")
	ErrorSeedImmutable  = errors.New("demo account cannot be modified")
	ErrorMalformedValue = errors.New("malformed stored value")
)
