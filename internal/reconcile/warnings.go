package reconcile

import (
	"fmt"
	"strings"

	"github.com/sells-group/tariff-cli/internal/catalog"
	"github.com/sells-group/tariff-cli/internal/model"
)

// goodsTransportHeading is the HS heading for motor vehicles for the
// transport of goods. Selecting it for a passenger vehicle description is a
// classic misclassification.
const goodsTransportHeading = "8704"

var passengerVehicleTerms = []string{
	"passenger",
	"sedan",
	"hatchback",
	"suv",
	"car ",
	" car",
	"minivan",
	"coupe",
}

// deriveWarnings appends per-result warnings after a successful selection.
func deriveWarnings(result *model.ReconciliationResult, selected *model.ReconciliationOption, product string) {
	if strings.HasPrefix(catalog.Normalize(selected.FormattedCode), goodsTransportHeading) && looksLikePassengerVehicle(product) {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"heading mismatch: goods-transport heading %s selected for a passenger vehicle description",
			goodsTransportHeading,
		))
	}

	if result.MatchScore < 0.5 {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"low confidence selection for code %s (score %.2f)", result.InputCode, result.MatchScore))
	}

	if selected.MatchType == model.MatchHeading {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"selected option came from a heading-level fallback search, not an exact match for %s", result.InputCode))
	}
}

func looksLikePassengerVehicle(product string) bool {
	lower := " " + strings.ToLower(product) + " "
	for _, term := range passengerVehicleTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}
