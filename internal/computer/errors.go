// Copyright 2025 Tomas Cupr
//
// Status-based error constructors for the dispatcher

package computer

import (
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// invalidArgf builds an InvalidArgument status naming the violated
// parameter as a BadRequest field violation. The detail attachment is best
// effort; the plain status is returned if it cannot be built.
func invalidArgf(field, format string, args ...any) error {
	st := status.New(codes.InvalidArgument, fmt.Sprintf(format, args...))
	detailed, err := st.WithDetails(&errdetails.BadRequest{
		FieldViolations: []*errdetails.BadRequest_FieldViolation{{
			Field:       field,
			Description: st.Message(),
		}},
	})
	if err != nil {
		return st.Err()
	}
	return detailed.Err()
}

// execErrorf builds an Internal status for a failed external command or a
// missing screenshot file.
func execErrorf(format string, args ...any) error {
	return status.Errorf(codes.Internal, format, args...)
}

// IsInvalidArgument reports whether err is an InvalidArgument status.
func IsInvalidArgument(err error) bool {
	return status.Code(err) == codes.InvalidArgument
}

// IsExecutionError reports whether err is an Internal (execution failure)
// status.
func IsExecutionError(err error) bool {
	return status.Code(err) == codes.Internal
}
