package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/missedcall/internal/model"
	"github.com/sells-group/missedcall/pkg/zoho"
)

func TestDealOutcome(t *testing.T) {
	tests := []struct {
		stage string
		raaz  string
		want  model.Outcome
		ok    bool
	}{
		{"Plan Shipped", "", model.PlanShipped(), true},
		{"plan   shipped", "", model.PlanShipped(), true},
		{" Consultation Done ", "", model.ConsultationDone(), true},
		{"CONSULTATION DONE", "", model.ConsultationDone(), true},
		{"Plan  Delivered", "Meena", model.PlanDelivered("Meena"), true},
		{"Plan Delivered", "  ", model.PlanDelivered(""), true},
		{"Closed Lost", "", model.Unknown(), false},
		{"", "", model.Unknown(), false},
	}
	for _, tt := range tests {
		t.Run(tt.stage, func(t *testing.T) {
			got, ok := dealOutcome(zoho.Record{Stage: tt.stage, RaazMitra: tt.raaz})
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPhoneMatcher(t *testing.T) {
	m := newPhoneMatcher([]string{"919811111111", "9822222222"})

	assert.Equal(t, []string{"919811111111"}, m.match(zoho.Record{Phone: "+91-98111-11111"}))
	assert.Equal(t, []string{"919811111111"}, m.match(zoho.Record{Phone: "9811111111"}))
	assert.Equal(t, []string{"9822222222"}, m.match(zoho.Record{Mobile: "+919822222222"}))
	assert.Equal(t, []string{"919811111111", "9822222222"},
		m.match(zoho.Record{Phone: "919811111111", Mobile: "9822222222"}))
	assert.Empty(t, m.match(zoho.Record{Phone: "12345"}))
	assert.Empty(t, m.match(zoho.Record{}))
}
