package core

import "slices"

// PrivacyLevel controls how contributor details flow into stored and shared structures.
type PrivacyLevel string

const (
	// PrivacyAttributed persists the contributor's declared name.
	PrivacyAttributed PrivacyLevel = "attributed"
	// PrivacyAnonymous omits the display name but keeps role and gift tags.
	PrivacyAnonymous PrivacyLevel = "anonymous"
	// PrivacyPrivate never writes contributor details into shared structures.
	PrivacyPrivate PrivacyLevel = "private"
)

// ContributorAttribution is the provenance and privacy policy attached to a job.
type ContributorAttribution struct {
	OwnerID             string       `json:"ownerId"`
	DisplayName         string       `json:"displayName,omitempty"`
	Role                string       `json:"role,omitempty"`
	Gifts               []string     `json:"gifts,omitempty"`
	PrivacyLevel        PrivacyLevel `json:"privacyLevel"`
	ConsentToCollective bool         `json:"consentToCollective"`
}

// Contributor is the projection of an attribution that may appear in shared
// structures such as graph nodes and concept bridges.
type Contributor struct {
	ID          string
	DisplayName string
	Role        string
	Gifts       []string
}

// SharedContributor returns the contributor details allowed in shared structures.
// Private attributions return nil.
func (a ContributorAttribution) SharedContributor() *Contributor {
	switch a.PrivacyLevel {
	case PrivacyAttributed:
		return &Contributor{
			ID:          a.OwnerID,
			DisplayName: a.DisplayName,
			Role:        a.Role,
			Gifts:       slices.Clone(a.Gifts),
		}
	case PrivacyAnonymous:
		if a.Role == "" && len(a.Gifts) == 0 {
			return nil
		}
		return &Contributor{
			Role:  a.Role,
			Gifts: slices.Clone(a.Gifts),
		}
	default:
		return nil
	}
}

// Redacted returns the attribution as it is stored on a Document record.
func (a ContributorAttribution) Redacted() ContributorAttribution {
	switch a.PrivacyLevel {
	case PrivacyAttributed:
		a.Gifts = slices.Clone(a.Gifts)
		return a
	case PrivacyAnonymous:
		return ContributorAttribution{
			Role:                a.Role,
			Gifts:               slices.Clone(a.Gifts),
			PrivacyLevel:        a.PrivacyLevel,
			ConsentToCollective: a.ConsentToCollective,
		}
	default:
		return ContributorAttribution{
			PrivacyLevel:        PrivacyPrivate,
			ConsentToCollective: a.ConsentToCollective,
		}
	}
}
