package domain

// ContactType is the channel of a customer contact.
type ContactType string

const (
	ContactTypePhone ContactType = "PHONE"
	ContactTypeEmail ContactType = "EMAIL"
)

// Address locates a customer.
type Address struct {
	ID      *int64 `json:"id,omitempty"`
	City    string `json:"city"`
	Region  string `json:"region"`
	Country string `json:"country"`
}

// CustomerContact is one way of reaching a customer.
type CustomerContact struct {
	ID                    *int64      `json:"id,omitempty"`
	ContactType           ContactType `json:"contactType"`
	ContactValue          string      `json:"contactValue"`
	IsPreferentialContact bool        `json:"isPreferentialContact"`
}

// Language is a catalog entry.
type Language struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// CustomerLanguage links a customer to a spoken language.
type CustomerLanguage struct {
	LanguageID string    `json:"languageId"`
	Language   *Language `json:"language,omitempty"`
}

// CustomerInterestArea links a customer to an interest area.
type CustomerInterestArea struct {
	ID             *int64 `json:"id,omitempty"`
	InterestAreaID int64  `json:"interestAreaId"`
}

// Profile is the customer record kept by the gateway under /mmc/customers/{userId}.
type Profile struct {
	ID                      *int64                 `json:"id,omitempty"`
	UserID                  int64                  `json:"userId"`
	Name                    string                 `json:"name"`
	Age                     int                    `json:"age"`
	Gender                  string                 `json:"gender"`
	Languages               []CustomerLanguage     `json:"languages"`
	Profession              string                 `json:"profession"`
	Generation              string                 `json:"generation"`
	Contacts                []CustomerContact      `json:"contacts"`
	Address                 Address                `json:"address"`
	HasRuralTraining        bool                   `json:"hasRuralTraining"`
	Expectations            string                 `json:"expectations"`
	InterestAreas           []CustomerInterestArea `json:"interestAreas"`
	IsGraduated             bool                   `json:"isGraduated"`
	HasMentorshipTraining   bool                   `json:"hasMentorshipTraining"`
	HasMentorshipExperience bool                   `json:"hasMentorshipExperience"`
}

// PreferredContact returns the contact marked preferential, if any.
func (p Profile) PreferredContact() (CustomerContact, bool) {
	for _, c := range p.Contacts {
		if c.IsPreferentialContact {
			return c, true
		}
	}
	return CustomerContact{}, false
}
