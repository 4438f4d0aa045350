// Package validator validates request and domain structs against their
// struct tags.
//
// Use cases depend on the Validator interface; the go-playground/validator
// v10 implementation in this package supplies the standard rules plus the
// application-specific ones (otp, alphaspace) with English translations.
package validator
