package domain

import "fmt"

// BloodType is one of the eight ABO/Rh blood groups.
type BloodType string

const (
	APositive  BloodType = "A+"
	ANegative  BloodType = "A-"
	BPositive  BloodType = "B+"
	BNegative  BloodType = "B-"
	ABPositive BloodType = "AB+"
	ABNegative BloodType = "AB-"
	OPositive  BloodType = "O+"
	ONegative  BloodType = "O-"
)

// AllBloodTypes lists every valid blood type.
var AllBloodTypes = []BloodType{
	APositive, ANegative,
	BPositive, BNegative,
	ABPositive, ABNegative,
	OPositive, ONegative,
}

// canDonateTo is the canonical compatibility table: for each donor type, the
// recipient types it may be transfused into. This is the single source of
// truth; the receive-from direction is derived from it below, never
// hand-maintained as a second table.
var canDonateTo = map[BloodType][]BloodType{
	ONegative:  {ONegative, OPositive, ANegative, APositive, BNegative, BPositive, ABNegative, ABPositive},
	OPositive:  {OPositive, APositive, BPositive, ABPositive},
	ANegative:  {ANegative, APositive, ABNegative, ABPositive},
	APositive:  {APositive, ABPositive},
	BNegative:  {BNegative, BPositive, ABNegative, ABPositive},
	BPositive:  {BPositive, ABPositive},
	ABNegative: {ABNegative, ABPositive},
	ABPositive: {ABPositive},
}

// canReceiveFrom is the inverted table, built once at package init.
var canReceiveFrom = invertCompatibility()

func invertCompatibility() map[BloodType][]BloodType {
	inverted := make(map[BloodType][]BloodType, len(canDonateTo))
	// Iterate donors in declaration order so the derived sets are stable.
	for _, donor := range AllBloodTypes {
		for _, recipient := range canDonateTo[donor] {
			inverted[recipient] = append(inverted[recipient], donor)
		}
	}
	return inverted
}

// ParseBloodType validates a raw string against the closed set of blood types.
func ParseBloodType(s string) (BloodType, error) {
	bt := BloodType(s)
	if _, ok := canDonateTo[bt]; !ok {
		return "", fmt.Errorf("invalid blood type %q", s)
	}
	return bt, nil
}

// CanDonate reports whether a donor of the given type may donate to a
// recipient of the required type.
func CanDonate(donor, recipient BloodType) bool {
	for _, r := range canDonateTo[donor] {
		if r == recipient {
			return true
		}
	}
	return false
}

// DonatableTypes returns the recipient types a donor of the given type may
// donate to. The returned slice must not be modified.
func DonatableTypes(donor BloodType) []BloodType {
	return canDonateTo[donor]
}

// CompatibleDonorTypes returns every donor type that may donate to a
// recipient of the required type. The returned slice must not be modified.
func CompatibleDonorTypes(required BloodType) []BloodType {
	return canReceiveFrom[required]
}
