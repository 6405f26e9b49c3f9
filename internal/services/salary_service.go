package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pathwise/pathwise-backend/internal/apperr"
	"github.com/pathwise/pathwise-backend/internal/logger"
	"github.com/pathwise/pathwise-backend/internal/models"
	"github.com/pathwise/pathwise-backend/internal/stats"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const salaryCacheTTL = 7 * 24 * time.Hour

// SalarySample is one observation from the external salary API.
type SalarySample struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median,omitempty"`
	Source string  `json:"source"`
}

// SalaryReport is the derived distribution plus provenance.
type SalaryReport struct {
	Role         string             `json:"role"`
	Location     string             `json:"location"`
	Distribution stats.Distribution `json:"distribution"`
	Fallback     bool               `json:"fallback"`
	FetchedAt    time.Time          `json:"fetched_at"`
}

// SampleSource abstracts the external salary API so tests can stub it.
type SampleSource interface {
	Search(ctx context.Context, role, location string) ([]SalarySample, error)
}

// restySampleSource talks to the hosted salary benchmark API.
type restySampleSource struct {
	client *resty.Client
}

func NewSampleSource(baseURL, apiKey string, timeout time.Duration) SampleSource {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &restySampleSource{client: client}
}

func (r *restySampleSource) Search(ctx context.Context, role, location string) ([]SalarySample, error) {
	var out struct {
		Samples []SalarySample `json:"samples"`
	}
	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParam("role", role).
		SetQueryParam("location", location).
		SetResult(&out).
		Get("/v1/salaries/search")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("salary api status %d", resp.StatusCode())
	}
	return out.Samples, nil
}

// fallbackRanges backs the zero-sample case with coarse role defaults.
// Keys are normalized role words; lookup is contains-based.
var fallbackRanges = map[string][2]float64{
	"engineer":  {85000, 160000},
	"developer": {80000, 150000},
	"designer":  {65000, 125000},
	"manager":   {90000, 170000},
	"analyst":   {60000, 115000},
	"scientist": {95000, 175000},
}

var defaultRange = [2]float64{55000, 110000}

type SalaryService struct {
	db     *gorm.DB
	log    *logger.Logger
	source SampleSource
}

func NewSalaryService(db *gorm.DB, log *logger.Logger, source SampleSource) *SalaryService {
	return &SalaryService{db: db, log: log.With("service", "salary"), source: source}
}

// Distribution returns the percentile summary for a role/location, serving
// from the snapshot cache within its freshness window. The second return
// reports a cache hit so callers can decide whether the lookup counts
// against a quota. Zero samples from the API fall back to the static range
// table; that is a documented degradation, not an error. API transport
// failures surface as upstream_unavailable.
func (s *SalaryService) Distribution(ctx context.Context, role, location string) (*SalaryReport, bool, error) {
	role = strings.TrimSpace(role)
	location = strings.TrimSpace(location)
	if role == "" {
		return nil, false, apperr.New(apperr.InvalidInput, "role is required")
	}

	if cached := s.cachedReport(ctx, role, location); cached != nil {
		return cached, true, nil
	}

	samples, err := s.source.Search(ctx, role, location)
	if err != nil {
		return nil, false, apperr.Wrap(apperr.UpstreamUnavailable, "salary api", err)
	}

	report := &SalaryReport{
		Role:      role,
		Location:  location,
		FetchedAt: time.Now().UTC(),
	}
	if len(samples) == 0 {
		s.log.Warn("salary api returned no samples, using fallback table", "role", role, "location", location)
		report.Fallback = true
		report.Distribution = fallbackDistribution(role)
	} else {
		report.Distribution = stats.Describe(sampleMidpoints(samples))
	}

	s.storeSnapshot(ctx, report)
	return report, false, nil
}

// sampleMidpoints collapses each sample to a single point estimate: the
// stated median when present, otherwise the middle of the min/max range.
func sampleMidpoints(samples []SalarySample) []float64 {
	points := make([]float64, 0, len(samples))
	for _, sm := range samples {
		switch {
		case sm.Median > 0:
			points = append(points, sm.Median)
		case sm.Min > 0 || sm.Max > 0:
			points = append(points, (sm.Min+sm.Max)/2)
		}
	}
	return points
}

func fallbackDistribution(role string) stats.Distribution {
	rng := defaultRange
	roleLower := strings.ToLower(role)
	for key, r := range fallbackRanges {
		if strings.Contains(roleLower, key) {
			rng = r
			break
		}
	}
	mid := (rng[0] + rng[1]) / 2
	// A synthetic three-point spread; sample size 0 pins the tier to 60.
	d := stats.Describe([]float64{rng[0], mid, rng[1]})
	d.SampleSize = 0
	d.ConfidenceTier = stats.ConfidenceTier(0)
	return d
}

// cachedReport returns a fresh snapshot or nil. Cache read failures degrade
// to a regeneration rather than failing the request.
func (s *SalaryService) cachedReport(ctx context.Context, role, location string) *SalaryReport {
	var snap models.SalarySnapshot
	err := s.db.WithContext(ctx).
		Where("role = ? AND location = ?", role, location).
		First(&snap).Error
	if err != nil {
		return nil
	}
	if time.Since(snap.FetchedAt) > salaryCacheTTL {
		return nil
	}
	var report SalaryReport
	if err := json.Unmarshal(snap.Payload, &report); err != nil {
		s.log.Warn("corrupt salary snapshot, regenerating", "role", role, "err", err)
		return nil
	}
	return &report
}

func (s *SalaryService) storeSnapshot(ctx context.Context, report *SalaryReport) {
	payload, err := json.Marshal(report)
	if err != nil {
		return
	}
	snap := models.SalarySnapshot{
		Role:      report.Role,
		Location:  report.Location,
		Payload:   datatypes.JSON(payload),
		FetchedAt: report.FetchedAt,
	}
	err = s.db.WithContext(ctx).
		Where("role = ? AND location = ?", report.Role, report.Location).
		Assign(models.SalarySnapshot{Payload: snap.Payload, FetchedAt: snap.FetchedAt}).
		FirstOrCreate(&snap).Error
	if err != nil {
		s.log.Warn("salary snapshot write failed", "role", report.Role, "err", err)
	}
}
