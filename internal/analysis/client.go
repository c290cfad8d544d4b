// internal/analysis/client.go
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"pharmaguard-back/internal/models"
)

// ErrUnavailable means the analysis service could not be reached at all,
// as opposed to the service answering with an error status.
var ErrUnavailable = errors.New("analysis service unavailable")

// UpstreamError carries an error status returned by the analysis service.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("analysis service returned %d: %s", e.StatusCode, e.Message)
}

// Request is the delegated analysis payload.
type Request struct {
	PatientID  string   `json:"patient_id"`
	Drugs      []string `json:"drugs"`
	VCFContent string   `json:"vcf_content"`
	RecordID   string   `json:"record_id"`
}

// Explanation accepts either a plain string or a structured object with
// summary and mechanism fields, normalizing both to text.
type Explanation string

func (e *Explanation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*e = Explanation(s)
		return nil
	}

	var obj struct {
		Summary   string `json:"summary"`
		Mechanism string `json:"mechanism"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("unexpected explanation shape: %w", err)
	}
	*e = Explanation(obj.Summary + "\n\n" + obj.Mechanism)
	return nil
}

type resultPayload struct {
	Drug                   string                        `json:"drug"`
	RiskAssessment         models.RiskAssessment         `json:"risk_assessment"`
	PharmacogenomicProfile models.PharmacogenomicProfile `json:"pharmacogenomic_profile"`
	Explanation            Explanation                   `json:"llm_generated_explanation"`
}

type response struct {
	Results []resultPayload `json:"results"`
}

// Client talks to the external pharmacogenomic analysis service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// requestTimeout bounds a single delegated analysis call.
const requestTimeout = 60 * time.Second

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// Analyze delegates scoring of the given VCF content and returns the
// transformed result set. Failures are classified three ways: a local
// error building the request, ErrUnavailable when the service cannot be
// reached, or an *UpstreamError when the service answers with an error
// status.
func (c *Client) Analyze(ctx context.Context, req Request) (models.DrugResults, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to build analysis request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build analysis request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody struct {
			Detail string `json:"detail"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		msg := errBody.Detail
		if msg == "" {
			msg = resp.Status
		}
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: msg}
	}

	var parsed response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode analysis response: %w", err)
	}

	return transform(parsed), nil
}

// Health probes the analysis service liveness endpoint.
func (c *Client) Health(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func transform(resp response) models.DrugResults {
	results := make(models.DrugResults, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, models.DrugResult{
			Drug:                   r.Drug,
			RiskAssessment:         r.RiskAssessment,
			PharmacogenomicProfile: r.PharmacogenomicProfile,
			Explanation:            string(r.Explanation),
		})
	}
	return results
}
