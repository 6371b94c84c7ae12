package contract

import "errors"

var (
	ErrValidation        = errors.New("validation failed")
	ErrModelInvoke       = errors.New("model invoke failed")
	ErrEmptyModelReply   = errors.New("model returned no usable text")
	ErrNoPendingApproval = errors.New("no pending approval")
)
