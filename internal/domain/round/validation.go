package round

import (
	"github.com/rpggio/patrol/internal/spatial"
	"github.com/rpggio/patrol/internal/storage"
)

// ValidateTransition validates a requested lifecycle transition.
func ValidateTransition(from, to Status) error {
	valid := false
	switch from {
	case StatusPending:
		valid = to == StatusActive
	case StatusActive:
		valid = to == StatusCompleted || to == StatusIncident
	case StatusIncident:
		valid = to == StatusActive
	}

	if !valid {
		return ErrIllegalTransition
	}
	return nil
}

// AcceptsVisits reports whether checkpoints may be visited in status s.
// Rounds under incident keep operating until resumed or completed.
func AcceptsVisits(s Status) bool {
	return s == StatusActive || s == StatusIncident
}

// ValidateStart checks the activation inputs before any write. The
// odometer photo must be an odometer upload of tenantID.
func ValidateStart(tenantID string, req StartRequest, policy Policy) error {
	verr := &ValidationError{}
	if req.OperatorID == "" {
		verr.add("operator_id", "required")
	}
	if !req.Vehicle.Mode.Valid() {
		verr.add("vehicle.mode", "must be car, motorcycle or on_foot")
	}
	if req.Vehicle.Mode.UsesVehicle() {
		if req.Vehicle.VehicleID == "" {
			verr.add("vehicle.vehicle_id", "required for vehicle modes")
		}
		if req.StartOdometer == nil {
			verr.add("start_odometer", "required for vehicle modes")
		} else if *req.StartOdometer < 0 {
			verr.add("start_odometer", "must not be negative")
		}
		switch {
		case req.StartOdometerPhoto == nil || *req.StartOdometerPhoto == "":
			verr.add("start_odometer_photo", "required for vehicle modes")
		case !storage.OwnsRef(tenantID, storage.KindOdometer, *req.StartOdometerPhoto):
			verr.add("start_odometer_photo", "must be an odometer upload reference")
		}
	}
	validateLocation(verr, "start_location", req.StartLocation, policy.RequireStartLocation)
	return verr.orNil()
}

// ValidateComplete checks completion inputs against the round's start readings.
func ValidateComplete(r *Round, req CompleteRequest, policy Policy) error {
	verr := &ValidationError{}
	if r.Vehicle != nil && r.Vehicle.Mode.UsesVehicle() {
		switch {
		case req.EndOdometer == nil:
			verr.add("end_odometer", "required for vehicle modes")
		case r.StartOdometer != nil && *req.EndOdometer < *r.StartOdometer:
			verr.add("end_odometer", "must not be lower than start odometer")
		}
		validateLocation(verr, "end_location", req.EndLocation, policy.RequireVehicleEndLocation)
	} else {
		validateLocation(verr, "end_location", req.EndLocation, false)
	}
	return verr.orNil()
}

func validateLocation(verr *ValidationError, field string, p *spatial.Point, required bool) {
	if p == nil {
		if required {
			verr.add(field, "required")
		}
		return
	}
	if err := p.Validate(); err != nil {
		verr.add(field, "invalid coordinates")
	}
}
