package catalog

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a canonical slug from a program name.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugPattern.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// canonicalSet trims, deduplicates, and sorts a token list. Used for all
// eligibility sets so stored representations compare uniformly.
func canonicalSet(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// canonicalRegions uppercases region codes before canonicalizing.
func canonicalRegions(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.ToUpper(v))
	}
	return canonicalSet(out)
}

func validateLender(cmd *LenderCommand) error {
	if strings.TrimSpace(cmd.DisplayName) == "" {
		return fmt.Errorf("%w: display_name required", ErrValidation)
	}
	return nil
}

func validateProgramType(cmd *ProgramTypeCommand) error {
	if strings.TrimSpace(cmd.Name) == "" {
		return fmt.Errorf("%w: name required", ErrValidation)
	}
	if cmd.Slug == "" {
		cmd.Slug = Slugify(cmd.Name)
	}
	if !slices.Contains(categories, cmd.Category) {
		return fmt.Errorf("%w: unknown category %q", ErrValidation, cmd.Category)
	}
	if cmd.BaseMinFICO < 300 || cmd.BaseMinFICO > 850 {
		return fmt.Errorf("%w: base_min_fico %d outside [300, 850]", ErrValidation, cmd.BaseMinFICO)
	}
	if cmd.BaseMaxLTV < 0 || cmd.BaseMaxLTV > 100 {
		return fmt.Errorf("%w: base_max_ltv %.2f outside [0, 100]", ErrValidation, cmd.BaseMaxLTV)
	}
	if cmd.BaseMinDSCR != nil && *cmd.BaseMinDSCR < 0 {
		return fmt.Errorf("%w: base_min_dscr must not be negative", ErrValidation)
	}
	return nil
}

// validateOffering enforces the overlay-tightens-envelope invariant: an
// offering may narrow its program type's eligibility but never widen it.
func validateOffering(cmd *OfferingCommand, pt *ProgramType) error {
	if cmd.MinRate > cmd.MaxRate {
		return fmt.Errorf("%w: min_rate %.3f exceeds max_rate %.3f", ErrValidation, cmd.MinRate, cmd.MaxRate)
	}
	if cmd.MinLoan > cmd.MaxLoan {
		return fmt.Errorf("%w: min_loan %.0f exceeds max_loan %.0f", ErrValidation, cmd.MinLoan, cmd.MaxLoan)
	}
	if cmd.MinFICO < pt.BaseMinFICO {
		return fmt.Errorf(
			"%w: min_fico %d loosens program envelope (base %d)",
			ErrValidation, cmd.MinFICO, pt.BaseMinFICO,
		)
	}
	if cmd.MaxLTV > pt.BaseMaxLTV {
		return fmt.Errorf(
			"%w: max_ltv %.2f loosens program envelope (base %.2f)",
			ErrValidation, cmd.MaxLTV, pt.BaseMaxLTV,
		)
	}
	if pt.BaseMinDSCR != nil {
		if cmd.MinDSCR == nil {
			// inherit the envelope floor rather than loosening it
			cmd.MinDSCR = pt.BaseMinDSCR
		} else if *cmd.MinDSCR < *pt.BaseMinDSCR {
			return fmt.Errorf(
				"%w: min_dscr %.3f loosens program envelope (base %.3f)",
				ErrValidation, *cmd.MinDSCR, *pt.BaseMinDSCR,
			)
		}
	}
	return nil
}

func validateQualifying(cmd *QualifyingInfoCommand) error {
	if cmd.FICO < 300 || cmd.FICO > 850 {
		return fmt.Errorf("%w: fico %d outside [300, 850]", ErrValidation, cmd.FICO)
	}
	if cmd.LTV < 0 || cmd.LTV > 100 {
		return fmt.Errorf("%w: ltv %.2f outside [0, 100]", ErrValidation, cmd.LTV)
	}
	if cmd.LoanAmount <= 0 {
		return fmt.Errorf("%w: loan_amount must be positive", ErrValidation)
	}
	for field, v := range map[string]string{
		"property_type": cmd.PropertyType,
		"occupancy":     cmd.Occupancy,
		"region":        cmd.Region,
		"purpose":       cmd.Purpose,
		"entity_type":   cmd.EntityType,
	} {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: %s required", ErrValidation, field)
		}
	}
	cmd.Region = strings.ToUpper(cmd.Region)
	return nil
}
