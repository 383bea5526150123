package validator

import (
	coreValidator "waitlist-service/core/validator"
	"waitlist-service/modules/waitlist/dto"
	"waitlist-service/modules/waitlist/entity"
	"waitlist-service/modules/waitlist/mapper"
)

func ValidateAddEntryRequest(req *dto.AddEntryRequest) *coreValidator.ValidationResult {
	result := coreValidator.Struct(req)
	if result.HasError() {
		return result
	}
	if err := mapper.ToWaitlistEntry(req).Slot().Validate(); err != nil {
		result.Add("end_time", "must be after start_time")
	}
	return result
}

func ValidateConfigurationRequest(req *dto.ConfigurationRequest) *coreValidator.ValidationResult {
	return coreValidator.Struct(req)
}

func ValidateState(state string) *coreValidator.ValidationResult {
	result := &coreValidator.ValidationResult{}
	if state != "" && !entity.EntryState(state).Valid() {
		result.Add("state", "must be one of [active notified confirmed cancelled expired]")
	}
	return result
}
