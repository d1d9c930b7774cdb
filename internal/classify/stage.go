package classify

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/sells-group/missedcall/internal/model"
	"github.com/sells-group/missedcall/pkg/zoho"
)

// normalizeStage collapses internal whitespace and case-folds, so
// "Plan  Delivered" and "plan delivered" compare equal. A Caser is stateful,
// so each call gets its own.
func normalizeStage(s string) string {
	return cases.Fold().String(strings.Join(strings.Fields(s), " "))
}

var (
	stagePlanShipped      = normalizeStage("Plan Shipped")
	stageConsultationDone = normalizeStage("Consultation Done")
	stagePlanDelivered    = normalizeStage("Plan Delivered")
)

// dealOutcome maps a deal's stage to an outcome. ok is false for stages that
// carry no classification.
func dealOutcome(rec zoho.Record) (model.Outcome, bool) {
	switch normalizeStage(rec.Stage) {
	case stagePlanShipped:
		return model.PlanShipped(), true
	case stageConsultationDone:
		return model.ConsultationDone(), true
	case stagePlanDelivered:
		return model.PlanDelivered(strings.TrimSpace(rec.RaazMitra)), true
	default:
		return model.Unknown(), false
	}
}
