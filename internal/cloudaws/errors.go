package cloudaws

import (
	"errors"

	"github.com/aws/smithy-go"

	"github.com/bgdnvk/clanker/internal/model"
)

// classifyError maps a smithy.APIError code to the taxonomy spec.md §7
// names, the one classification layer SPEC_FULL §7 adds on top of the
// teacher's plain fmt.Errorf wrapping.
func classifyError(ref model.ResourceRef, op string, err error) *model.EngineError {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return model.NewEngineError(model.ErrTransient, ref, op, err)
	}

	switch apiErr.ErrorCode() {
	case "AccessDenied", "AccessDeniedException", "UnauthorizedOperation", "AuthFailure":
		return model.NewEngineError(model.ErrAuth, ref, op, err)
	case "ResourceNotFoundException", "NoSuchEntity", "InvalidGroup.NotFound",
		"InvalidInstanceID.NotFound", "NotFoundException":
		return model.NewEngineError(model.ErrNotFound, ref, op, err)
	case "DependencyViolation", "ResourceInUseException", "DeleteConflictException",
		"InvalidParameterValue":
		return model.NewEngineError(model.ErrDependencyViolation, ref, op, err)
	case "ValidationException", "InvalidParameter", "MalformedPolicyDocumentException":
		return model.NewEngineError(model.ErrValidation, ref, op, err)
	case "Throttling", "ThrottlingException", "RequestLimitExceeded",
		"TooManyRequestsException", "RequestTimeout":
		return model.NewEngineError(model.ErrTransient, ref, op, err)
	default:
		return model.NewEngineError(model.ErrTransient, ref, op, err)
	}
}
