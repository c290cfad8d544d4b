// internal/handlers/records.go
package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"pharmaguard-back/internal/analysis"
	"pharmaguard-back/internal/models"
	"pharmaguard-back/internal/storage"
	"pharmaguard-back/pkg/vcf"
)

// readVCFUpload pulls the uploaded file out of the multipart form and
// enforces the type and size restrictions before any bytes are persisted.
func readVCFUpload(c *gin.Context) (filename string, data []byte, err error) {
	file, err := c.FormFile("vcfFile")
	if err != nil {
		return "", nil, fmt.Errorf("no VCF file uploaded")
	}

	contentType := file.Header.Get("Content-Type")
	if filepath.Ext(file.Filename) != ".vcf" && contentType != "text/plain" {
		return "", nil, fmt.Errorf("only VCF files are allowed")
	}

	if file.Size > models.MaxVCFSize {
		return "", nil, fmt.Errorf("file size exceeds 5MB limit")
	}

	f, err := file.Open()
	if err != nil {
		return "", nil, fmt.Errorf("failed to read uploaded file")
	}
	defer f.Close()

	// LimitReader backstops a lying Content-Length.
	data, err = io.ReadAll(io.LimitReader(f, models.MaxVCFSize+1))
	if err != nil {
		return "", nil, fmt.Errorf("failed to read uploaded file")
	}
	if len(data) > models.MaxVCFSize {
		return "", nil, fmt.Errorf("file size exceeds 5MB limit")
	}

	return file.Filename, data, nil
}

// createRecord inserts the record, relying on the unique index on
// patient_id for conflict detection instead of a check-then-create.
func createRecord(c *gin.Context, db *gorm.DB, archive *storage.Archive, logger *slog.Logger) (*models.GenomicRecord, bool) {
	patientID := c.PostForm("patientId")
	if patientID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Patient ID is required"})
		return nil, false
	}

	filename, data, err := readVCFUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	record := models.GenomicRecord{
		PatientID:       patientID,
		VCFData:         data,
		FileName:        filename,
		FileSize:        int64(len(data)),
		UploadTimestamp: time.Now(),
		Status:          models.StatusPending,
	}

	if err := db.Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "Record already exists for this patient ID"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload VCF file"})
		return nil, false
	}

	if archive != nil {
		objectName, err := archive.StoreVCF(c.Request.Context(), patientID, filename, data)
		if err != nil {
			// The record row is authoritative; a failed archive copy is
			// logged, not surfaced.
			logger.Warn("failed to archive VCF", slog.String("patient_id", patientID), slog.String("error", err.Error()))
		} else {
			record.ArchiveObject = objectName
			db.Model(&record).Update("archive_object", objectName)
		}
	}

	return &record, true
}

func recordSummary(record *models.GenomicRecord) gin.H {
	return gin.H{
		"recordId":         record.ID,
		"patientId":        record.PatientID,
		"fileName":         record.FileName,
		"fileSize":         record.FileSize,
		"uploadTimestamp":  record.UploadTimestamp,
		"processingStatus": record.Status,
	}
}

func UploadVCF(db *gorm.DB, archive *storage.Archive, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		record, ok := createRecord(c, db, archive, logger)
		if !ok {
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": "VCF file uploaded successfully",
			"data":    recordSummary(record),
		})
	}
}

func GetAllRecords(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
		if err != nil || limit <= 0 {
			limit = 10
		}

		var records []models.GenomicRecord
		if err := db.Omit("vcf_data").Order("upload_timestamp DESC").Limit(limit).Find(&records).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch records"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"count":   len(records),
			"data":    records,
		})
	}
}

func GetRecordByPatientID(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		patientID := c.Param("id")

		var record models.GenomicRecord
		if err := db.Omit("vcf_data").Where("patient_id = ?", patientID).First(&record).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Record not found for this patient ID"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "data": record})
	}
}

func GetRecordByID(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		recordID := c.Param("id")

		var record models.GenomicRecord
		if err := db.Omit("vcf_data").Where("id = ?", recordID).First(&record).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "data": record})
	}
}

// GetProcessingStatus is the minimal polling surface for clients waiting
// on asynchronous analysis.
func GetProcessingStatus(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		recordID := c.Param("id")

		var record models.GenomicRecord
		if err := db.Select("id, patient_id, status, error_message, upload_timestamp").
			Where("id = ?", recordID).First(&record).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"recordId":         record.ID,
				"patientId":        record.PatientID,
				"processingStatus": record.Status,
				"errorMessage":     record.ErrorMessage,
				"uploadTimestamp":  record.UploadTimestamp,
			},
		})
	}
}

type UpdateResultsRequest struct {
	Results models.DrugResults `json:"results" binding:"required"`
}

// UpdateResults replaces the record's result set wholesale and completes
// it. The latest call wins; there is no partial merge.
func UpdateResults(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		recordID := c.Param("id")

		var req UpdateResultsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Results array is required"})
			return
		}

		if err := req.Results.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var record models.GenomicRecord
		if err := db.Where("id = ?", recordID).First(&record).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
			return
		}

		if err := record.Transition(models.StatusCompleted); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		record.Results = req.Results
		record.ErrorMessage = ""

		if err := db.Save(&record).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update results"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Results updated successfully",
			"data": gin.H{
				"recordId":         record.ID,
				"patientId":        record.PatientID,
				"resultsCount":     len(record.Results),
				"processingStatus": record.Status,
			},
		})
	}
}

func loadRecordContent(c *gin.Context, db *gorm.DB, archive *storage.Archive) (*models.GenomicRecord, string, bool) {
	patientID := c.Param("id")

	var record models.GenomicRecord
	if err := db.Where("patient_id = ?", patientID).First(&record).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found for this patient ID"})
		return nil, "", false
	}

	// The row is authoritative, but an archived copy can restore a payload
	// that was stripped from the database.
	if len(record.VCFData) == 0 && archive != nil && record.ArchiveObject != "" {
		obj, err := archive.FetchVCF(c.Request.Context(), record.ArchiveObject)
		if err == nil {
			data, readErr := io.ReadAll(io.LimitReader(obj, models.MaxVCFSize+1))
			obj.Close()
			if readErr == nil && len(data) <= models.MaxVCFSize {
				record.VCFData = data
			}
		}
	}

	content, err := vcf.Decode(record.VCFData)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode VCF content"})
		return nil, "", false
	}

	if !vcf.IsValid(content) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Stored content is not a valid VCF file"})
		return nil, "", false
	}

	return &record, content, true
}

// DownloadVCF streams the stored file back as an attachment.
func DownloadVCF(db *gorm.DB, archive *storage.Archive) gin.HandlerFunc {
	return func(c *gin.Context) {
		record, content, ok := loadRecordContent(c, db, archive)
		if !ok {
			return
		}

		filename := record.FileName
		if filename == "" {
			filename = record.PatientID + ".vcf"
		}

		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Data(http.StatusOK, "text/plain", []byte(content))
	}
}

// previewLineCount bounds the JSON preview.
const previewLineCount = 50

func PreviewVCF(db *gorm.DB, archive *storage.Archive) gin.HandlerFunc {
	return func(c *gin.Context) {
		record, content, ok := loadRecordContent(c, db, archive)
		if !ok {
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"patientId": record.PatientID,
				"fileName":  record.FileName,
				"preview":   vcf.Preview(content, previewLineCount),
				"stats":     vcf.ComputeStats(content),
			},
		})
	}
}

func GetVCFStats(db *gorm.DB, archive *storage.Archive) gin.HandlerFunc {
	return func(c *gin.Context) {
		record, content, ok := loadRecordContent(c, db, archive)
		if !ok {
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"patientId": record.PatientID,
				"stats":     vcf.ComputeStats(content),
			},
		})
	}
}

// DeleteRecord removes a patient's record along with its archived copy.
// The delete is a hard delete so the patient ID can be re-uploaded.
func DeleteRecord(db *gorm.DB, archive *storage.Archive, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		patientID := c.Param("id")

		var record models.GenomicRecord
		if err := db.Where("patient_id = ?", patientID).First(&record).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Record not found for this patient ID"})
			return
		}

		if archive != nil && record.ArchiveObject != "" {
			if err := archive.RemoveVCF(c.Request.Context(), record.ArchiveObject); err != nil {
				logger.Warn("failed to remove archived VCF",
					slog.String("patient_id", patientID), slog.String("error", err.Error()))
			}
		}

		if err := db.Unscoped().Delete(&record).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete record"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Record deleted successfully",
		})
	}
}

type TriggerAnalysisRequest struct {
	Drugs []string `json:"drugs" binding:"required,min=1"`
}

// runAnalysis drives the record through processing and lands it in
// completed or failed. The delegated call is synchronous and bounded by
// the client's timeout; a failed attempt is reported, never retried.
func runAnalysis(c *gin.Context, db *gorm.DB, client *analysis.Client, logger *slog.Logger, record *models.GenomicRecord, drugs []string) {
	if err := record.Transition(models.StatusProcessing); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := db.Save(record).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update record"})
		return
	}

	content, err := vcf.Decode(record.VCFData)
	if err != nil {
		failRecord(db, logger, record, "stored VCF content could not be decoded")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode VCF content"})
		return
	}

	results, err := client.Analyze(c.Request.Context(), analysis.Request{
		PatientID:  record.PatientID,
		Drugs:      drugs,
		VCFContent: content,
		RecordID:   strconv.FormatUint(uint64(record.ID), 10),
	})
	if err != nil {
		failRecord(db, logger, record, err.Error())

		var upstream *analysis.UpstreamError
		switch {
		case errors.As(err, &upstream):
			c.JSON(http.StatusBadGateway, gin.H{
				"error":      "Analysis failed",
				"message":    upstream.Message,
				"statusCode": upstream.StatusCode,
			})
		case errors.Is(err, analysis.ErrUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":   "Analysis service unavailable",
				"message": "Could not connect to analysis service. Please try again later.",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to run analysis"})
		}
		return
	}

	record.Results = results
	record.ErrorMessage = ""
	if err := record.Transition(models.StatusCompleted); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update record"})
		return
	}
	if err := db.Save(record).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Analysis completed successfully",
		"data": gin.H{
			"recordId":         record.ID,
			"patientId":        record.PatientID,
			"resultsCount":     len(record.Results),
			"processingStatus": record.Status,
			"results":          record.Results,
		},
	})
}

func failRecord(db *gorm.DB, logger *slog.Logger, record *models.GenomicRecord, msg string) {
	if record.Status.CanTransition(models.StatusFailed) {
		record.Status = models.StatusFailed
	}
	record.ErrorMessage = msg
	if err := db.Save(record).Error; err != nil {
		logger.Error("failed to persist failed record status",
			slog.String("patient_id", record.PatientID), slog.String("error", err.Error()))
	}
}

// TriggerAnalysis runs delegated analysis for an existing record.
func TriggerAnalysis(db *gorm.DB, client *analysis.Client, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		recordID := c.Param("id")

		var req TriggerAnalysisRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Drugs list is required"})
			return
		}

		var record models.GenomicRecord
		if err := db.Where("id = ?", recordID).First(&record).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
			return
		}

		runAnalysis(c, db, client, logger, &record, req.Drugs)
	}
}

// UploadAndAnalyze combines upload with an immediate analysis trigger.
// Drugs arrive as a comma-separated form value alongside the file.
func UploadAndAnalyze(db *gorm.DB, archive *storage.Archive, client *analysis.Client, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		drugs := splitDrugs(c.PostForm("drugs"))
		if len(drugs) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Drugs list is required"})
			return
		}

		record, ok := createRecord(c, db, archive, logger)
		if !ok {
			return
		}

		runAnalysis(c, db, client, logger, record, drugs)
	}
}

func splitDrugs(raw string) []string {
	var drugs []string
	for _, d := range strings.Split(raw, ",") {
		if d = strings.TrimSpace(d); d != "" {
			drugs = append(drugs, d)
		}
	}
	return drugs
}
