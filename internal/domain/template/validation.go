package template

import "strings"

// ValidateCreateInput validates fields required to create a template.
func ValidateCreateInput(req CreateRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return ErrInvalidInput
	}
	switch req.ShiftType {
	case ShiftDay, ShiftNight, ShiftFull:
	default:
		return ErrInvalidInput
	}
	return validateClients(req.ClientIDs)
}

func validateClients(clientIDs []string) error {
	if len(clientIDs) == 0 {
		return ErrInvalidInput
	}
	seen := make(map[string]struct{}, len(clientIDs))
	for _, id := range clientIDs {
		if strings.TrimSpace(id) == "" {
			return ErrInvalidInput
		}
		if _, dup := seen[id]; dup {
			return ErrInvalidInput
		}
		seen[id] = struct{}{}
	}
	return nil
}
