package monitor

import (
	"testing"

	"fieldgate_backend/internal/gates/domain"
)

func gatesWithExceptions(n int) []domain.Gate {
	gates := make([]domain.Gate, 0, 7)
	for i, stage := range domain.Stages() {
		gates = append(gates, domain.Gate{Stage: stage, RequiresException: i < n})
	}
	return gates
}

func TestEvaluateDefaultThreshold(t *testing.T) {
	m := New(DefaultThreshold)
	tests := []struct {
		exceptions  int
		needsReview bool
	}{
		{0, false},
		{2, false},
		{3, true},
		{7, true},
	}
	for _, tt := range tests {
		report := m.Evaluate(gatesWithExceptions(tt.exceptions))
		if report.ExceptionCount != tt.exceptions || report.NeedsReview != tt.needsReview {
			t.Errorf("%d exceptions: got %+v", tt.exceptions, report)
		}
	}
}

func TestEvaluateListsStages(t *testing.T) {
	report := New(DefaultThreshold).Evaluate(gatesWithExceptions(3))
	want := []domain.Stage{domain.StageArrival, domain.StageIntake, domain.StagePhotos}
	if len(report.Stages) != len(want) {
		t.Fatalf("unexpected stages %v", report.Stages)
	}
	for i := range want {
		if report.Stages[i] != want[i] {
			t.Fatalf("unexpected stages %v", report.Stages)
		}
	}
}

func TestConfigurableThreshold(t *testing.T) {
	if !New(0).Evaluate(gatesWithExceptions(1)).NeedsReview {
		t.Fatal("threshold 0 should flag a single exception")
	}
	if New(5).Evaluate(gatesWithExceptions(5)).NeedsReview {
		t.Fatal("threshold 5 should not flag five exceptions")
	}
	if New(-3).Threshold() != 0 {
		t.Fatal("negative threshold should clamp to zero")
	}
}
