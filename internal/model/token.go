package model

import (
	"time"
)

type TokenStatus string

const (
	TokenStatusWaiting TokenStatus = "waiting"
	TokenStatusCalling TokenStatus = "calling"
	TokenStatusVisited TokenStatus = "visited"
	TokenStatusHalted  TokenStatus = "halted"
)

// QueuePlacement controls where a re-queued token lands in the shared queue.
type QueuePlacement string

const (
	PlacementFront QueuePlacement = "front"
	PlacementBack  QueuePlacement = "back"
)

// Token is one patient's visit request. An empty AssignedDoctorID means the
// token sits in the shared queue for its service type. IsSpecificDoctor is
// true only when the patient (or receptionist on re-queue) explicitly asked
// for that doctor, which gives the token priority once the doctor is free.
type Token struct {
	ID               string      `json:"id"`
	TokenNumber      string      `json:"token_number"`
	PatientName      string      `json:"patient_name"`
	PatientID        string      `json:"patient_id"`
	ServiceType      ServiceType `json:"service_type"`
	Status           TokenStatus `json:"status"`
	AssignedDoctorID string      `json:"assigned_doctor_id,omitempty"`
	IsSpecificDoctor bool        `json:"is_specific_doctor"`
	CreatedAt        time.Time   `json:"created_at"`
	CalledAt         *time.Time  `json:"called_at,omitempty"`
	VisitedAt        *time.Time  `json:"visited_at,omitempty"`
}

type CreateTokenRequest struct {
	PatientName      string      `json:"patient_name" binding:"required"`
	PatientID        string      `json:"patient_id" binding:"required"`
	ServiceType      ServiceType `json:"service_type" binding:"required,servicetype"`
	SpecificDoctorID string      `json:"specific_doctor_id"`
}

type RequeueRequest struct {
	DoctorID string         `json:"doctor_id"`
	Position QueuePlacement `json:"position" binding:"omitempty,oneof=front back"`
}

// QueueStats is a derived projection over the token collection, recomputed
// on read. It is never stored.
type QueueStats struct {
	TotalWaiting  int `json:"total_waiting"`
	GPWaiting     int `json:"gp_waiting"`
	DentalWaiting int `json:"dental_waiting"`
}
