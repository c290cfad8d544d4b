package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to RecordStatus
		allowed  bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusFailed, true},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusPending, false},
		{StatusProcessing, StatusProcessing, false},
		{StatusFailed, StatusProcessing, true},
		{StatusFailed, StatusCompleted, false},
		{StatusCompleted, StatusCompleted, true},
		{StatusCompleted, StatusProcessing, false},
		{StatusCompleted, StatusPending, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestRecordTransition(t *testing.T) {
	r := GenomicRecord{Status: StatusPending}

	assert.NoError(t, r.Transition(StatusProcessing))
	assert.Equal(t, StatusProcessing, r.Status)

	err := r.Transition(StatusPending)
	assert.Error(t, err)
	assert.Equal(t, StatusProcessing, r.Status, "status unchanged on rejected transition")
}

func TestRiskAssessmentValidate(t *testing.T) {
	valid := RiskAssessment{RiskLabel: RiskHigh, ConfidenceScore: 0.87, Severity: SeveritySevere}
	assert.NoError(t, valid.Validate())

	badLabel := valid
	badLabel.RiskLabel = "extreme"
	assert.Error(t, badLabel.Validate())

	badSeverity := valid
	badSeverity.Severity = "fatal"
	assert.Error(t, badSeverity.Validate())

	badScore := valid
	badScore.ConfidenceScore = 1.2
	assert.Error(t, badScore.Validate())

	negScore := valid
	negScore.ConfidenceScore = -0.1
	assert.Error(t, negScore.Validate())
}

func TestDrugResultsValidate(t *testing.T) {
	results := DrugResults{
		{
			Drug: "warfarin",
			RiskAssessment: RiskAssessment{
				RiskLabel: RiskVeryHigh, ConfidenceScore: 0.95, Severity: SeverityCritical,
			},
		},
	}
	assert.NoError(t, results.Validate())

	results = append(results, DrugResult{Drug: ""})
	assert.Error(t, results.Validate())
}

func TestUserClearResetFields(t *testing.T) {
	now := time.Now()
	u := User{
		ResetOTPHash:        "hash",
		ResetOTPExpiry:      &now,
		ResetVerifiedToken:  "token",
		ResetVerifiedExpiry: &now,
	}

	u.ClearResetFields()

	assert.Empty(t, u.ResetOTPHash)
	assert.Nil(t, u.ResetOTPExpiry)
	assert.Empty(t, u.ResetVerifiedToken)
	assert.Nil(t, u.ResetVerifiedExpiry)
}

func TestUserPublicOmitsCredentials(t *testing.T) {
	u := User{ID: 1, Email: "a@b.c", Password: "hash", Name: "A"}
	p := u.Public()

	assert.Equal(t, "a@b.c", p.Email)
	assert.Equal(t, uint(1), p.ID)
}
