// Package nonfatal models outcomes that are logged and discarded instead of
// failing the surrounding operation: audit writes, statistic bumps, decrypts
// of legacy records, best-effort event publishing.
package nonfatal

import "go.uber.org/zap"

type Result struct {
	Op  string
	Err error
}

func OK(op string) Result {
	return Result{Op: op}
}

func Fail(op string, err error) Result {
	return Result{Op: op, Err: err}
}

// From wraps err (possibly nil) as an outcome of op.
func From(op string, err error) Result {
	return Result{Op: op, Err: err}
}

func (r Result) OK() bool {
	return r.Err == nil
}

// Log writes a warning for a failed outcome and returns r unchanged.
func (r Result) Log(logger *zap.Logger, fields ...zap.Field) Result {
	if r.Err == nil || logger == nil {
		return r
	}
	logger.Warn("non-fatal operation failed",
		append(fields, zap.String("op", r.Op), zap.Error(r.Err))...,
	)
	return r
}
