package bec

import (
	"fmt"
	"strings"

	"github.com/aegismail/threat-engine/internal/domain"
)

// CompoundResult classifies co-occurring pattern categories that are far
// more dangerous together than the sum of their parts
type CompoundResult struct {
	IsCompound  bool             `json:"is_compound"`
	RiskLevel   domain.RiskLevel `json:"risk_level,omitempty"`
	Combination string           `json:"combination,omitempty"`
}

// criticalPairs are combinations that always classify as critical
var criticalPairs = [][2]Category{
	{CategoryWireTransfer, CategoryUrgency},
	{CategoryWireTransfer, CategoryExecutiveSpoof},
	{CategoryGiftCard, CategoryExecutiveSpoof},
	{CategoryInvoiceFraud, CategoryUrgency},
}

var financialCategories = []Category{
	CategoryWireTransfer, CategoryGiftCard, CategoryInvoiceFraud, CategoryPayrollDiversion,
}

var pressureCategories = []Category{
	CategoryUrgency, CategorySecrecy, CategoryAuthority,
}

// DetectCompound classifies the set of fired categories. The impersonation
// detector contributes CategoryExecutiveSpoof to the set when it fires.
func DetectCompound(fired map[Category]bool) CompoundResult {
	for _, pair := range criticalPairs {
		if fired[pair[0]] && fired[pair[1]] {
			return CompoundResult{
				IsCompound:  true,
				RiskLevel:   domain.RiskCritical,
				Combination: fmt.Sprintf("%s + %s", pair[0], pair[1]),
			}
		}
	}

	for _, financial := range financialCategories {
		if !fired[financial] {
			continue
		}
		for _, pressure := range pressureCategories {
			if fired[pressure] {
				return CompoundResult{
					IsCompound:  true,
					RiskLevel:   domain.RiskHigh,
					Combination: fmt.Sprintf("%s + %s", financial, pressure),
				}
			}
		}
	}

	if len(fired) >= 3 {
		var names []string
		for category := range fired {
			names = append(names, string(category))
		}
		return CompoundResult{
			IsCompound:  true,
			RiskLevel:   domain.RiskMedium,
			Combination: fmt.Sprintf("%d distinct patterns (%s)", len(fired), strings.Join(names, ", ")),
		}
	}

	return CompoundResult{}
}
