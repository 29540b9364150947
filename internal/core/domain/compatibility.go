package domain

// Compatibility lists the ABO/Rh donor and receiver rules for one type.
// A nil slice means every type.
type Compatibility struct {
	DonatesTo    []BloodType
	ReceivesFrom []BloodType
}

var compatibility = [TypeCount]Compatibility{
	OPositive:  {DonatesTo: []BloodType{OPositive, APositive, BPositive, ABPositive}, ReceivesFrom: []BloodType{OPositive, ONegative}},
	ONegative:  {DonatesTo: nil, ReceivesFrom: []BloodType{ONegative}},
	APositive:  {DonatesTo: []BloodType{APositive, ABPositive}, ReceivesFrom: []BloodType{OPositive, ONegative, APositive, ANegative}},
	ANegative:  {DonatesTo: []BloodType{APositive, ANegative, ABPositive, ABNegative}, ReceivesFrom: []BloodType{ONegative, ANegative}},
	BPositive:  {DonatesTo: []BloodType{BPositive, ABPositive}, ReceivesFrom: []BloodType{OPositive, ONegative, BPositive, BNegative}},
	BNegative:  {DonatesTo: []BloodType{BPositive, BNegative, ABPositive, ABNegative}, ReceivesFrom: []BloodType{ONegative, BNegative}},
	ABPositive: {DonatesTo: []BloodType{ABPositive}, ReceivesFrom: nil},
	ABNegative: {DonatesTo: []BloodType{ABPositive, ABNegative}, ReceivesFrom: []BloodType{ONegative, ANegative, BNegative, ABNegative}},
}

func CompatibilityOf(t BloodType) Compatibility {
	return compatibility[t]
}

// CanDonate reports whether blood of type donor can be given to recipient.
func CanDonate(donor, recipient BloodType) bool {
	targets := compatibility[donor].DonatesTo
	if targets == nil {
		return true
	}
	for _, t := range targets {
		if t == recipient {
			return true
		}
	}
	return false
}
