package common

import "strings"

// RelatedTO is the fallback relation used when no taxonomy type matches.
const RelatedTO = "RELATED_TO"

// The closed relationship taxonomy, keyed by the (source, target) entity
// type pair. Company→person relations are invalid except as the inverse of
// a person→company relation (e.g. Employs).
var (
	personPersonTypes = map[string]bool{
		"Related_TO":              true,
		"Provided_Fund_FOR":       true,
		"Provided_Guarantees_FOR": true,
		"Had_Transactions_WITH":   true,
		"reports_to":              true,
		"manages":                 true,
		"colleague_of":            true,
		"friend_of":               true,
		"family_of":               true,
		"mentor_of":               true,
		"mentored_by":             true,
	}

	personCompanyTypes = map[string]bool{
		"Company_Secretary_OF": true,
		"Executive_OF":         true,
		"Shareholder_OF":       true,
		"Employee_OF":          true,
		"Owns":                 true,
		"employed_by":          true,
		"director_of":          true,
		"founder_of":           true,
		"investor_in":          true,
		"consultant_to":        true,

		"Chairman_AND_President_AND_Executive_Director_OF": true,
		"ViceChairperson_AND_Non_Executive_Director_OF":    true,
		"Independent_Non_Executive_Director_OF":            true,
		"Non_Executive_Director_OF":                        true,
		"Executive_Director_OF":                            true,
	}

	companyCompanyTypes = map[string]bool{
		"Shareholder_OF": true,
		"List_Bonds_ON":  true,
		"Subsidiary_OF":  true,
		"Agented_BY":     true,
		"Underwriter_OF": true,
		"Owns":           true,
		"Owned_BY":       true,
		"parent_of":      true,
		"partner_with":   true,
		"competitor_of":  true,
		"supplier_to":    true,
		"customer_of":    true,
		"acquired_by":    true,
		"merged_with":    true,

		"Provided_Guarantee_TO":              true,
		"Had_Purchase_Agreement_WITH":        true,
		"Had_Facility_Agreement_WITH":        true,
		"Had_Loan_Transfer_Agreement_WITH":   true,
		"Had_Equity_Transfer_Agreement_WITH": true,
	}

	// Inverse person←company relations allowed in the company→person direction.
	companyPersonInverseTypes = map[string]bool{
		"Employs": true,
	}
)

// ValidRelationship reports whether relType is valid for the given
// (source, target) entity type pair under the closed taxonomy.
func ValidRelationship(sourceType, targetType EntityType, relType string) bool {
	if relType == RelatedTO {
		return true
	}
	switch {
	case sourceType == EntityTypePerson && targetType == EntityTypePerson:
		return personPersonTypes[relType]
	case sourceType == EntityTypePerson && targetType == EntityTypeCompany:
		return personCompanyTypes[relType]
	case sourceType == EntityTypeCompany && targetType == EntityTypeCompany:
		return companyCompanyTypes[relType]
	case sourceType == EntityTypeCompany && targetType == EntityTypePerson:
		return companyPersonInverseTypes[relType]
	}
	return false
}

// KnownRelationType reports whether relType appears anywhere in the
// taxonomy, regardless of entity types.
func KnownRelationType(relType string) bool {
	if relType == RelatedTO {
		return true
	}
	return personPersonTypes[relType] ||
		personCompanyTypes[relType] ||
		companyCompanyTypes[relType] ||
		companyPersonInverseTypes[relType]
}

// NormalizeRelationType maps a free-form relation token onto its canonical
// taxonomy spelling where one exists, comparing case-insensitively.
func NormalizeRelationType(relType string) string {
	needle := strings.ToLower(strings.TrimSpace(relType))
	if needle == "" {
		return RelatedTO
	}
	for _, set := range []map[string]bool{
		personPersonTypes,
		personCompanyTypes,
		companyCompanyTypes,
		companyPersonInverseTypes,
	} {
		for canonical := range set {
			if strings.ToLower(canonical) == needle {
				return canonical
			}
		}
	}
	if strings.ToLower(RelatedTO) == needle {
		return RelatedTO
	}
	return relType
}
