package validator

import (
	coreValidator "waitlist-service/core/validator"
	"waitlist-service/modules/absence/dto"
)

func ValidateRecordAbsenceRequest(req *dto.RecordAbsenceRequest) *coreValidator.ValidationResult {
	return coreValidator.Struct(req)
}

func ValidatePolicyRequest(req *dto.PolicyRequest) *coreValidator.ValidationResult {
	return coreValidator.Struct(req)
}

func ValidatePolicyExceptionRequest(req *dto.PolicyExceptionRequest) *coreValidator.ValidationResult {
	return coreValidator.Struct(req)
}
