package validator

import (
	coreValidator "waitlist-service/core/validator"
	"waitlist-service/modules/booking/dto"
)

func ValidateCreateBookingRequest(req *dto.CreateBookingRequest) *coreValidator.ValidationResult {
	return coreValidator.Struct(req)
}
