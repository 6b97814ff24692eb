package validation

import (
	"strings"

	"fieldgate_backend/internal/gates/domain"
	"fieldgate_backend/platform/phone"
	"fieldgate_backend/platform/validator"
)

const (
	errCustomerNameRequired    = "Customer name is required"
	errCustomerContactRequired = "A valid customer phone number or email address is required"
	errLossTypeRequired        = "Loss type is required"
	errAffectedAreaRequired    = "At least one affected area with a damage type is required"
	errEquipmentRequired       = "At least one piece of equipment must be selected"
	errSignoffProofRequired    = "A customer signature, claim number or customer-pay confirmation is required"
	errNextStepsRequired       = "Next steps must be selected"
	errEquipmentStatusRequired = "Equipment status is required"
	errJobStatusRequired       = "A valid job status must be selected"
)

var fieldValidator = validator.New()

// RequiredFields returns the field-presence errors of the form-driven stages
// (Intake, Moisture/Equipment, Sign-offs, Departure). Intake phone numbers
// are read with phones. Gates flagged for exception and other stages have
// no required fields.
func RequiredFields(g *domain.Gate, phones phone.Numbers) []string {
	if g.RequiresException {
		return nil
	}

	metadata := g.Metadata
	if metadata == nil {
		metadata = domain.NewMetadata(g.Stage)
	}

	switch m := metadata.(type) {
	case *domain.IntakeMetadata:
		return intakeFields(m, phones)
	case *domain.MoistureEquipmentMetadata:
		return moistureFields(m)
	case *domain.SignoffsMetadata:
		return signoffFields(m)
	case *domain.DepartureMetadata:
		return departureFields(m)
	default:
		return nil
	}
}

func intakeFields(m *domain.IntakeMetadata, phones phone.Numbers) []string {
	var errs []string
	if blank(m.CustomerName) {
		errs = append(errs, errCustomerNameRequired)
	}
	if !phones.IsValid(m.CustomerPhone) && !isEmail(m.CustomerEmail) {
		errs = append(errs, errCustomerContactRequired)
	}
	if blank(m.LossType) {
		errs = append(errs, errLossTypeRequired)
	}
	hasArea := false
	for _, area := range m.AffectedAreas {
		if blank(area.Name) {
			continue
		}
		for _, damage := range area.DamageTypes {
			if !blank(damage) {
				hasArea = true
			}
		}
	}
	if !hasArea {
		errs = append(errs, errAffectedAreaRequired)
	}
	return errs
}

func moistureFields(m *domain.MoistureEquipmentMetadata) []string {
	for _, e := range m.Equipment {
		if !blank(e.Type) {
			return nil
		}
	}
	return []string{errEquipmentRequired}
}

func signoffFields(m *domain.SignoffsMetadata) []string {
	var errs []string
	if blank(m.Signature) && blank(m.ClaimNumber) && !m.CustomerPay {
		errs = append(errs, errSignoffProofRequired)
	}
	if blank(m.NextSteps) {
		errs = append(errs, errNextStepsRequired)
	}
	return errs
}

func departureFields(m *domain.DepartureMetadata) []string {
	var errs []string
	if blank(m.EquipmentStatus) {
		errs = append(errs, errEquipmentStatusRequired)
	}
	if _, err := domain.ParseJobStatus(m.JobStatus); err != nil {
		errs = append(errs, errJobStatusRequired)
	}
	return errs
}

func isEmail(value string) bool {
	trimmedValue := strings.TrimSpace(value)
	return trimmedValue != "" && fieldValidator.Var(trimmedValue, "email") == nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
