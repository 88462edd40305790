package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/Irehund/jobtrack/internal/model"
)

const (
	jsearchBaseURL = "https://jsearch.p.rapidapi.com/search"
	jsearchHost    = "jsearch.p.rapidapi.com"
)

// JSearch is the shared adapter behind the Indeed, LinkedIn and Glassdoor
// sources. All three front the same RapidAPI JSearch endpoint with the
// same wire format; only the source identity differs.
type JSearch struct {
	id      string
	name    string
	apiKey  string
	client  *http.Client
	baseURL string
}

func NewJSearch(id, name, apiKey string) *JSearch {
	return &JSearch{
		id:      id,
		name:    name,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: httpTimeout},
		baseURL: jsearchBaseURL,
	}
}

func (j *JSearch) ID() string   { return j.id }
func (j *JSearch) Name() string { return j.name }

type jsearchResponse struct {
	Data []json.RawMessage `json:"data"`
}

type jsearchJob struct {
	JobID          string   `json:"job_id"`
	JobTitle       string   `json:"job_title"`
	EmployerName   string   `json:"employer_name"`
	JobCity        string   `json:"job_city"`
	JobState       string   `json:"job_state"`
	JobApplyLink   string   `json:"job_apply_link"`
	JobDescription string   `json:"job_description"`
	JobIsRemote    bool     `json:"job_is_remote"`
	JobMinSalary   *float64 `json:"job_min_salary"`
	JobMaxSalary   *float64 `json:"job_max_salary"`
	JobSalary      string   `json:"job_salary_period"`
	JobPostedAt    string   `json:"job_posted_at_datetime_utc"`
	JobPublisher   string   `json:"job_publisher"`
	JobLatitude    *float64 `json:"job_latitude"`
	JobLongitude   *float64 `json:"job_longitude"`
	JobEmployment  string   `json:"job_employment_type"`
}

func (j *JSearch) Search(ctx context.Context, c Criteria) ([]model.Listing, error) {
	query := c.Query()
	if c.Location != "" {
		query += " in " + c.Location
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("num_pages", "1")

	body, err := doGET(ctx, j.client, j.id, j.baseURL+"?"+params.Encode(), j.header())
	if err != nil {
		return nil, err
	}

	var resp jsearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &Failure{SourceID: j.id, Message: fmt.Sprintf("decode response: %v", err)}
	}

	listings := make([]model.Listing, 0, len(resp.Data))
	for _, raw := range resp.Data {
		var job jsearchJob
		if err := json.Unmarshal(raw, &job); err != nil {
			slog.Warn("skipping malformed result", "source", j.id, "err", err)
			continue
		}
		if job.JobID == "" && job.JobTitle == "" {
			slog.Warn("skipping malformed result", "source", j.id, "err", "result has no id or title")
			continue
		}
		listings = append(listings, j.normalize(job, raw))
		if len(listings) >= c.Limit() {
			break
		}
	}
	return listings, nil
}

func (j *JSearch) normalize(job jsearchJob, raw json.RawMessage) model.Listing {
	l := model.Listing{
		ID:          j.id + "_" + job.JobID,
		Source:      j.id,
		Title:       job.JobTitle,
		Company:     job.EmployerName,
		City:        job.JobCity,
		State:       job.JobState,
		Location:    joinLocation(job.JobCity, job.JobState),
		PostingURL:  job.JobApplyLink,
		Description: job.JobDescription,
		IsRemote:    job.JobIsRemote,
		DatePosted:  parseTime(job.JobPostedAt),
		Latitude:    job.JobLatitude,
		Longitude:   job.JobLongitude,
		SalaryMin:   job.JobMinSalary,
		SalaryMax:   job.JobMaxSalary,
		Raw:         raw,
	}

	if l.SalaryMin != nil || l.SalaryMax != nil {
		switch job.JobSalary {
		case "HOUR":
			l.SalaryInterval = "hourly"
		default:
			l.SalaryInterval = "annual"
		}
		l.SalaryCurrency = "USD"
	}

	if job.JobEmployment != "" {
		l.EmploymentType = strings.ReplaceAll(strings.ToLower(job.JobEmployment), "_", " ")
	}

	l.ExperienceLevel = inferExperience(job.JobTitle)

	return l
}

func (j *JSearch) ValidateCredential(ctx context.Context) (bool, string) {
	params := url.Values{}
	params.Set("query", "analyst")
	params.Set("num_pages", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return false, fmt.Sprintf("build request: %v", err)
	}
	req.Header = j.header()

	resp, err := j.client.Do(req)
	if err != nil {
		return credentialMessage(j.name, 0, err)
	}
	defer resp.Body.Close()
	return credentialMessage(j.name, resp.StatusCode, nil)
}

func (j *JSearch) header() http.Header {
	h := http.Header{}
	h.Set("X-RapidAPI-Key", j.apiKey)
	h.Set("X-RapidAPI-Host", jsearchHost)
	return h
}
