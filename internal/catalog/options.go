package catalog

// OtherOption is the listed value that switches a selection to free text.
const OtherOption = "Other"

const DefaultCountry = "India"

var (
	MedicalProblems = []string{
		"Fever", "Cold", "Headache", "Body Pain", "Viral Fever", "Food Poisoning",
		"Migraine", "Back Pain", "Stomach Upset", "Weakness", OtherOption,
	}

	LeaveDurations = []string{
		"1 day", "2 days", "3 days", "4 days", "5 days", "6 days",
		"1 week", "2 weeks", OtherOption,
	}

	GuardianRelationships = []string{
		"Father", "Husband", "Mother", "Wife", "Son", "Daughter", OtherOption,
	}

	CaretakerRelationships = []string{"Parent", "Wife", "Husband", OtherOption}

	Genders = []string{"Female", "Male", OtherOption}
)

// Contains reports whether value is one of the listed options.
func Contains(options []string, value string) bool {
	for _, o := range options {
		if o == value {
			return true
		}
	}
	return false
}
