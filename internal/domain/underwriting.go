package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Underwriting is the domain-specific data collected for a quote. The set of
// implementations is closed: LifeData, HomeData and VehicleData, held by
// value. Pointers to them satisfy the interface but are rejected by
// CheckUnderwriting.
type Underwriting interface {
	Domain() InsuranceDomain
	Validate() error
	sealed()
}

type LifeData struct {
	CertPresented bool
	// CertData is the medical certificate as a JSON document.
	CertData string
}

func (LifeData) Domain() InsuranceDomain { return DomainLife }
func (LifeData) sealed()                 {}

func (d LifeData) Validate() error {
	data := strings.TrimSpace(d.CertData)
	if !d.CertPresented {
		if data != "" {
			return FieldError("cert_data", "certificate data given but no certificate was presented")
		}
		return nil
	}
	if data == "" {
		return FieldError("cert_data", "certificate data is required when a certificate is presented")
	}
	if !json.Valid([]byte(data)) {
		return FieldError("cert_data", "certificate data must be a JSON document")
	}
	return nil
}

type HomeData struct {
	ConstructionType ConstructionType
	BuildingAge      int
	City             string
	Neighborhood     string
}

func (HomeData) Domain() InsuranceDomain { return DomainHome }
func (HomeData) sealed()                 {}

const maxBuildingAge = 500

func (d HomeData) Validate() error {
	if !d.ConstructionType.Valid() {
		return FieldError("construction_type", fmt.Sprintf("unknown construction type %q", d.ConstructionType))
	}
	if d.BuildingAge < 0 || d.BuildingAge > maxBuildingAge {
		return FieldError("building_age", fmt.Sprintf("building age must be between 0 and %d", maxBuildingAge))
	}
	if strings.TrimSpace(d.City) == "" {
		return FieldError("city", "city is required")
	}
	if strings.TrimSpace(d.Neighborhood) == "" {
		return FieldError("neighborhood", "neighborhood is required")
	}
	return nil
}

type VehicleData struct {
	Year       int
	Model      string
	TheftRisk  TheftRisk
	Violations int
}

func (VehicleData) Domain() InsuranceDomain { return DomainVehicle }
func (VehicleData) sealed()                 {}

const minVehicleYear = 1900

func (d VehicleData) Validate() error {
	maxYear := time.Now().Year() + 1
	if d.Year < minVehicleYear || d.Year > maxYear {
		return FieldError("year", fmt.Sprintf("vehicle year must be between %d and %d", minVehicleYear, maxYear))
	}
	if strings.TrimSpace(d.Model) == "" {
		return FieldError("model", "vehicle model is required")
	}
	if !d.TheftRisk.Valid() {
		return FieldError("theft_risk", fmt.Sprintf("unknown theft risk %q", d.TheftRisk))
	}
	if d.Violations < 0 {
		return FieldError("violations", "violation count must not be negative")
	}
	return nil
}

// CheckUnderwriting verifies data is present, one of the value types, tagged
// with dom and internally valid.
func CheckUnderwriting(dom InsuranceDomain, data Underwriting) error {
	if data == nil {
		return FieldError("", fmt.Sprintf("%s underwriting data is required", dom))
	}
	switch data.(type) {
	case LifeData, HomeData, VehicleData:
	default:
		return FieldError("", fmt.Sprintf("unsupported %s underwriting data %T", dom, data))
	}
	if data.Domain() != dom {
		return FieldError("", fmt.Sprintf("%s data supplied for a %s quote", data.Domain(), dom))
	}
	return data.Validate()
}
