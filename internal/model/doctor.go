package model

import (
	"time"
)

type ServiceType string

const (
	ServiceTypeGP     ServiceType = "GP"
	ServiceTypeDental ServiceType = "DENTAL"
)

// ServiceTypes lists every supported service type, in display order.
func ServiceTypes() []ServiceType {
	return []ServiceType{ServiceTypeGP, ServiceTypeDental}
}

func (s ServiceType) Valid() bool {
	return s == ServiceTypeGP || s == ServiceTypeDental
}

type DoctorStatus string

const (
	DoctorStatusActive   DoctorStatus = "active"
	DoctorStatusBreak    DoctorStatus = "break"
	DoctorStatusDisabled DoctorStatus = "disabled"
)

func (s DoctorStatus) Valid() bool {
	return s == DoctorStatusActive || s == DoctorStatusBreak || s == DoctorStatusDisabled
}

// Doctor is one member of the fixed roster. BreakEndTime is set if and only
// if Status is break; CurrentToken holds the token number the doctor is
// presently calling, if any.
type Doctor struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	CabinNumber  string       `json:"cabin_number"`
	ServiceType  ServiceType  `json:"service_type"`
	Status       DoctorStatus `json:"status"`
	BreakEndTime *time.Time   `json:"break_end_time,omitempty"`
	CurrentToken string       `json:"current_token,omitempty"`
}

type UpdateDoctorStatusRequest struct {
	Status               DoctorStatus `json:"status" binding:"required,doctorstatus"`
	BreakDurationMinutes int          `json:"break_duration_minutes" binding:"omitempty,gt=0"`
}
