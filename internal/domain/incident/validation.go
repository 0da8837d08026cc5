package incident

import "strings"

// ValidateReportInput validates fields required to report an incident.
func ValidateReportInput(req ReportRequest) error {
	switch req.Severity {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
	default:
		return ErrInvalidInput
	}
	if strings.TrimSpace(req.Description) == "" || strings.TrimSpace(req.ReportedBy) == "" {
		return ErrInvalidInput
	}
	if req.Location != nil && req.Location.Validate() != nil {
		return ErrInvalidInput
	}
	return nil
}

// ValidateTransition validates a requested status transition.
func ValidateTransition(from, to Status) error {
	switch from {
	case StatusOpen:
		if to == StatusInvestigating || to == StatusResolved {
			return nil
		}
	case StatusInvestigating:
		if to == StatusResolved {
			return nil
		}
	}
	return ErrInvalidTransition
}

