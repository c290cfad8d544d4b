// internal/models/models.go
package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID         uint           `gorm:"primarykey" json:"id"`
	Email      string         `gorm:"uniqueIndex;not null" json:"email"`
	Password   string         `json:"-"` // empty for Google-only accounts
	GoogleID   *string        `gorm:"uniqueIndex" json:"-"`
	Name       string         `json:"name"`
	Phone      string         `json:"phone"`
	ProfilePic string         `json:"profile_pic"`
	Role       string         `gorm:"default:'user'" json:"role"` // user, admin
	IsVerified bool           `json:"is_verified"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	ResetOTPHash        string     `json:"-"`
	ResetOTPExpiry      *time.Time `json:"-"`
	ResetVerifiedToken  string     `json:"-"`
	ResetVerifiedExpiry *time.Time `json:"-"`
	GoogleRefreshToken  string     `json:"-"`
}

// PublicProfile is the projection returned to clients. It never carries
// credential material.
type PublicProfile struct {
	ID         uint   `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	ProfilePic string `json:"profile_pic"`
	Role       string `json:"role"`
	IsVerified bool   `json:"is_verified"`
}

func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		Phone:      u.Phone,
		ProfilePic: u.ProfilePic,
		Role:       u.Role,
		IsVerified: u.IsVerified,
	}
}

// ClearResetFields drops both the OTP and the verified-token state. The two
// are mutually exclusive in time: issuing one clears the other.
func (u *User) ClearResetFields() {
	u.ResetOTPHash = ""
	u.ResetOTPExpiry = nil
	u.ResetVerifiedToken = ""
	u.ResetVerifiedExpiry = nil
}

type RecordStatus string

const (
	StatusPending    RecordStatus = "pending"
	StatusProcessing RecordStatus = "processing"
	StatusCompleted  RecordStatus = "completed"
	StatusFailed     RecordStatus = "failed"
)

// recordTransitions lists the legal status moves. completed -> completed
// allows a later results ingestion to replace the result set wholesale;
// failed -> processing allows an analysis retry.
var recordTransitions = map[RecordStatus][]RecordStatus{
	StatusPending:    {StatusProcessing, StatusCompleted, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusFailed:     {StatusProcessing},
	StatusCompleted:  {StatusCompleted},
}

func (s RecordStatus) CanTransition(to RecordStatus) bool {
	for _, next := range recordTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// MaxVCFSize caps uploaded payloads at 5 MiB.
const MaxVCFSize = 5 * 1024 * 1024

type GenomicRecord struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	PatientID       string         `gorm:"uniqueIndex;not null" json:"patient_id"`
	VCFData         []byte         `json:"-"`
	FileName        string         `json:"file_name"`
	FileSize        int64          `json:"file_size"`
	UploadTimestamp time.Time      `json:"upload_timestamp"`
	Status          RecordStatus   `gorm:"default:'pending'" json:"status"`
	ErrorMessage    string         `json:"error_message,omitempty"`
	Results         DrugResults    `gorm:"serializer:json" json:"results"`
	ArchiveObject   string         `json:"-"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// Transition moves the record to the requested status, rejecting moves the
// status machine does not allow.
func (r *GenomicRecord) Transition(to RecordStatus) error {
	if !r.Status.CanTransition(to) {
		return fmt.Errorf("illegal status transition %s -> %s", r.Status, to)
	}
	r.Status = to
	return nil
}

type RiskLabel string

const (
	RiskLow      RiskLabel = "low"
	RiskModerate RiskLabel = "moderate"
	RiskHigh     RiskLabel = "high"
	RiskVeryHigh RiskLabel = "very_high"
)

type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
	SeverityCritical Severity = "critical"
)

type DetectedVariant struct {
	RSID     string `json:"rsid"`
	Genotype string `json:"genotype"`
	Impact   string `json:"impact"`
}

type PharmacogenomicProfile struct {
	PrimaryGene      string            `json:"primary_gene"`
	Diplotype        string            `json:"diplotype"`
	Phenotype        string            `json:"phenotype"`
	DetectedVariants []DetectedVariant `json:"detected_variants"`
}

type RiskAssessment struct {
	RiskLabel       RiskLabel `json:"risk_label"`
	ConfidenceScore float64   `json:"confidence_score"`
	Severity        Severity  `json:"severity"`
}

type DrugResult struct {
	Drug                   string                 `json:"drug"`
	RiskAssessment         RiskAssessment         `json:"risk_assessment"`
	PharmacogenomicProfile PharmacogenomicProfile `json:"pharmacogenomic_profile"`
	Explanation            string                 `json:"llm_generated_explanation"`
}

type DrugResults []DrugResult

func (a RiskAssessment) Validate() error {
	switch a.RiskLabel {
	case RiskLow, RiskModerate, RiskHigh, RiskVeryHigh:
	default:
		return fmt.Errorf("invalid risk label %q", a.RiskLabel)
	}
	switch a.Severity {
	case SeverityMild, SeverityModerate, SeveritySevere, SeverityCritical:
	default:
		return fmt.Errorf("invalid severity %q", a.Severity)
	}
	if a.ConfidenceScore < 0 || a.ConfidenceScore > 1 {
		return fmt.Errorf("confidence score %v out of range [0,1]", a.ConfidenceScore)
	}
	return nil
}

func (r DrugResult) Validate() error {
	if r.Drug == "" {
		return fmt.Errorf("drug name is required")
	}
	if err := r.RiskAssessment.Validate(); err != nil {
		return fmt.Errorf("drug %s: %w", r.Drug, err)
	}
	return nil
}

func (rs DrugResults) Validate() error {
	for _, r := range rs {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}
