package handlers

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pharmaguard-back/internal/analysis"
	"pharmaguard-back/internal/auth"
	"pharmaguard-back/internal/config"
	"pharmaguard-back/internal/middleware"
	"pharmaguard-back/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const sampleVCF = `##fileformat=VCFv4.2
##source=TestData
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO
1	97450058	rs3918290	C	T	50	PASS	GENE=DPYD
10	94761900	rs1799853	C	T	50	PASS	GENE=CYP2C9
19	15990431	rs4244285	G	A	50	PASS	GENE=CYP2C19`

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.GenomicRecord{}))
	return db
}

func newTestConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		JWTSecret:   "test-secret",
		JWTExpiry:   time.Hour,
		FrontendURL: "http://localhost:5173",
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRouter wires the full route table the way main does, against an
// in-memory database.
func newTestRouter(t *testing.T, db *gorm.DB, cfg *config.Config, client *analysis.Client) *gin.Engine {
	t.Helper()

	r := gin.New()
	secret := []byte(cfg.JWTSecret)
	log := testLogger()

	users := r.Group("/api/v1/users")
	{
		users.POST("/register", Register(db))
		users.POST("/login", Login(db, cfg))
		users.POST("/forgot-password", ForgotPassword(db, cfg, nil, log))
		users.POST("/verify-reset-otp", VerifyResetOTP(db))
		users.POST("/reset-password", ResetPassword(db))
	}

	usersAuth := r.Group("/api/v1/users")
	usersAuth.Use(middleware.AuthMiddleware(secret))
	{
		usersAuth.GET("/get-profile", GetProfile(db))
		usersAuth.PUT("/update-profile", UpdateProfile(db))
		usersAuth.POST("/logout", Logout(cfg))
	}

	records := r.Group("/api/v1")
	records.Use(middleware.AuthMiddleware(secret))
	{
		records.POST("/upload", UploadVCF(db, nil, log))
		records.GET("/records", GetAllRecords(db))
		records.GET("/record/:id", GetRecordByID(db))
		records.GET("/records/:id", GetRecordByPatientID(db))
		records.DELETE("/records/:id", DeleteRecord(db, nil, log))
		records.GET("/records/:id/download", DownloadVCF(db, nil))
		records.GET("/records/:id/preview", PreviewVCF(db, nil))
		records.GET("/records/:id/vcf-stats", GetVCFStats(db, nil))
		records.GET("/records/:id/status", GetProcessingStatus(db))
		records.PUT("/records/:id/results", UpdateResults(db))
		if client != nil {
			records.POST("/analyze", UploadAndAnalyze(db, nil, client, log))
			records.POST("/records/:id/analyze", TriggerAnalysis(db, client, log))
		}
	}

	return r
}

func createTestUser(t *testing.T, db *gorm.DB, email, password string) models.User {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{Email: email, Password: string(hashed), Name: "Test User"}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func sessionToken(t *testing.T, cfg *config.Config, userID uint) string {
	t.Helper()

	token, err := auth.GenerateToken(userID, []byte(cfg.JWTSecret), cfg.JWTExpiry)
	require.NoError(t, err)
	return token
}

func doJSON(r *gin.Engine, method, path, token string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// uploadVCFRequest builds a multipart upload with the given file content.
func uploadVCFRequest(t *testing.T, path, token, patientID, filename, content string, extra map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("patientId", patientID))
	for k, v := range extra {
		require.NoError(t, mw.WriteField(k, v))
	}

	part, err := mw.CreateFormFile("vcfFile", filename)
	require.NoError(t, err)
	_, err = io.WriteString(part, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func uploadVCF(t *testing.T, r *gin.Engine, token, patientID string) *httptest.ResponseRecorder {
	t.Helper()

	req := uploadVCFRequest(t, "/api/v1/upload", token, patientID, fmt.Sprintf("%s.vcf", patientID), sampleVCF, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
