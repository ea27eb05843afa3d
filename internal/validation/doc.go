// Package validation checks decoded request bodies against struct tags
// using go-playground/validator, reporting fields by their JSON names.
package validation
