package contracts

import (
	"errors"
	"fmt"
)

// Sentinel errors; the typed errors below match them with errors.Is
var (
	ErrMissingData      = errors.New("missing data")
	ErrUnknownDirective = errors.New("unknown directive")
	ErrMatrixBuild      = errors.New("capability matrix build failed")
	ErrInvalidParam     = errors.New("invalid directive parameter")
)

// MissingDataError reports a required snapshot field that was absent
type MissingDataError struct {
	Directive string
	Field     string
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("directive %s: missing %s", e.Directive, e.Field)
}

func (e *MissingDataError) Is(target error) bool {
	return target == ErrMissingData
}

// UnknownDirectiveError reports a registry lookup of an unregistered code
type UnknownDirectiveError struct {
	Code string
}

func (e *UnknownDirectiveError) Error() string {
	return fmt.Sprintf("unknown directive %q", e.Code)
}

func (e *UnknownDirectiveError) Is(target error) bool {
	return target == ErrUnknownDirective
}

// MatrixBuildError reports an inconsistent capability table
type MatrixBuildError struct {
	Reason string
}

func (e *MatrixBuildError) Error() string {
	return "capability matrix build failed: " + e.Reason
}

func (e *MatrixBuildError) Is(target error) bool {
	return target == ErrMatrixBuild
}

// InvalidParamError reports a directive parameter outside its allowed range
type InvalidParamError struct {
	Directive string
	Param     string
	Reason    string
}

func (e *InvalidParamError) Error() string {
	return fmt.Sprintf("directive %s: param %s %s", e.Directive, e.Param, e.Reason)
}

func (e *InvalidParamError) Is(target error) bool {
	return target == ErrInvalidParam
}
