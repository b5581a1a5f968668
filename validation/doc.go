// Package validation validates configuration structs with
// go-playground/validator struct tags and reports every failing field in a
// single error.
package validation
