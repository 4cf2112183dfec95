// Package model defines the types shared by the inspection engine.
package model

import "time"

type InspectionType string

const (
	InspectionAutomatic InspectionType = "automatic"
	InspectionManual    InspectionType = "manual"
)

func (t InspectionType) Valid() bool {
	return t == InspectionAutomatic || t == InspectionManual
}

// Menu is a named sub-path probed under a system's base URL.
type Menu struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

type System struct {
	ID          string    `json:"id"`
	EnglishName string    `json:"eng_name"`
	KoreanName  string    `json:"kor_name"`
	BaseURL     string    `json:"url"`
	Menus       []Menu    `json:"menus"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedBy   string    `json:"created_by,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
	UpdatedBy   string    `json:"updated_by,omitempty"`
}

// DisplayName prefers the Korean name, then the English name, then the id.
func (s System) DisplayName() string {
	if s.KoreanName != "" {
		return s.KoreanName
	}
	if s.EnglishName != "" {
		return s.EnglishName
	}
	return s.ID
}

// MenuProbeResult is the outcome of a single probe. StatusCode 0 marks an
// unclassified transport error and 408 a timeout.
type MenuProbeResult struct {
	MenuName       string            `json:"menu_name"`
	Path           string            `json:"path"`
	StatusCode     int               `json:"status_code"`
	StatusLabel    string            `json:"status_text"`
	ResponseTimeMs float64           `json:"response_time"`
	Headers        map[string]string `json:"headers"`
}

func (r MenuProbeResult) IsError() bool {
	return r.StatusCode < 200 || r.StatusCode >= 400
}

type InspectionRecord struct {
	ID                string            `json:"id"`
	SystemID          string            `json:"system_id"`
	SystemEnglishName string            `json:"system_eng_name"`
	SystemKoreanName  string            `json:"system_kor_name"`
	SystemURL         string            `json:"system_url"`
	InspectionType    InspectionType    `json:"inspection_type"`
	CreatedBy         string            `json:"created_by"`
	StartedAt         time.Time         `json:"inspection_start"`
	EndedAt           time.Time         `json:"inspection_end"`
	Results           []MenuProbeResult `json:"inspection_results"`

	// ResultsMissing is set when a stored record carried no results field at all.
	ResultsMissing bool `json:"-"`
}

func (r InspectionRecord) HasError() bool {
	for _, res := range r.Results {
		if res.IsError() {
			return true
		}
	}
	return false
}

// Counts tallies successful and failed menu probes.
func (r InspectionRecord) Counts() (success, failed int) {
	for _, res := range r.Results {
		if res.IsError() {
			failed++
		} else {
			success++
		}
	}
	return success, failed
}

// InspectedAt returns the end time, falling back to the start time.
func (r InspectionRecord) InspectedAt() time.Time {
	if !r.EndedAt.IsZero() {
		return r.EndedAt
	}
	return r.StartedAt
}

// SkippedSystem names a system that could not be inspected during a sweep.
type SkippedSystem struct {
	SystemID string `json:"system_id"`
	Reason   string `json:"reason"`
}

// Sweep is one orchestration run across systems, stored as a single document.
type Sweep struct {
	ID        string             `json:"id"`
	Systems   []InspectionRecord `json:"inspection_systems"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	Skipped   []SkippedSystem    `json:"skipped,omitempty"`

	// Legacy is true when the sweep was decoded from the flat single-system shape.
	Legacy bool `json:"-"`
}
