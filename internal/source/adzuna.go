package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Irehund/jobtrack/internal/model"
)

const (
	adzunaBaseURL  = "https://api.adzuna.com/v1/api/jobs"
	adzunaPageSize = 50
	adzunaMaxPages = 3
)

// Adzuna is the adapter for the Adzuna aggregator. The credential is the
// composite "app_id:app_key" pair Adzuna issues; everything after the
// first colon belongs to the key.
type Adzuna struct {
	appID   string
	appKey  string
	country string
	client  *http.Client
	baseURL string
}

func NewAdzuna(creds, country string) *Adzuna {
	appID, appKey, _ := strings.Cut(creds, ":")
	return &Adzuna{
		appID:   appID,
		appKey:  appKey,
		country: country,
		client:  &http.Client{Timeout: httpTimeout},
		baseURL: adzunaBaseURL,
	}
}

func (a *Adzuna) ID() string   { return "adzuna" }
func (a *Adzuna) Name() string { return "Adzuna" }

type adzunaResponse struct {
	Results []json.RawMessage `json:"results"`
	Count   int               `json:"count"`
}

type adzunaResult struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Company struct {
		DisplayName string `json:"display_name"`
	} `json:"company"`
	Location struct {
		DisplayName string   `json:"display_name"`
		Area        []string `json:"area"`
	} `json:"location"`
	Description string   `json:"description"`
	RedirectURL string   `json:"redirect_url"`
	Created     string   `json:"created"`
	SalaryMin   *float64 `json:"salary_min"`
	SalaryMax   *float64 `json:"salary_max"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Category    struct {
		Label string `json:"label"`
	} `json:"category"`
	ContractTime string `json:"contract_time"`
	ContractType string `json:"contract_type"`
}

func (a *Adzuna) Search(ctx context.Context, c Criteria) ([]model.Listing, error) {
	listings := make([]model.Listing, 0, c.Limit())

	for page := 1; page <= adzunaMaxPages; page++ {
		batch, err := a.fetchPage(ctx, c, page)
		if err != nil {
			// Page 1 failing means the source failed; a later page failing
			// just ends pagination early with what we have.
			if page == 1 {
				return nil, err
			}
			slog.Warn("pagination stopped early", "source", a.ID(), "page", page, "err", err)
			break
		}

		for _, l := range batch {
			listings = append(listings, l)
			if len(listings) >= c.Limit() {
				return listings, nil
			}
		}
		if len(batch) < adzunaPageSize {
			break
		}
	}
	return listings, nil
}

func (a *Adzuna) fetchPage(ctx context.Context, c Criteria, page int) ([]model.Listing, error) {
	params := url.Values{}
	params.Set("app_id", a.appID)
	params.Set("app_key", a.appKey)
	params.Set("results_per_page", strconv.Itoa(adzunaPageSize))
	params.Set("what", c.Query())
	if c.Location != "" {
		params.Set("where", c.Location)
	}
	params.Set("sort_by", "date")

	reqURL := fmt.Sprintf("%s/%s/search/%d?%s", a.baseURL, a.country, page, params.Encode())
	body, err := doGET(ctx, a.client, a.ID(), reqURL, nil)
	if err != nil {
		return nil, err
	}

	var resp adzunaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &Failure{SourceID: a.ID(), Message: fmt.Sprintf("decode response: %v", err)}
	}

	listings := make([]model.Listing, 0, len(resp.Results))
	for _, raw := range resp.Results {
		var r adzunaResult
		if err := json.Unmarshal(raw, &r); err != nil {
			slog.Warn("skipping malformed result", "source", a.ID(), "err", err)
			continue
		}
		if r.ID == "" && r.Title == "" {
			slog.Warn("skipping malformed result", "source", a.ID(), "err", "result has no id or title")
			continue
		}
		listings = append(listings, a.normalize(r, raw))
	}
	return listings, nil
}

func (a *Adzuna) normalize(r adzunaResult, raw json.RawMessage) model.Listing {
	l := model.Listing{
		ID:          "adzuna_" + r.ID,
		Source:      a.ID(),
		Title:       r.Title,
		Company:     r.Company.DisplayName,
		Location:    r.Location.DisplayName,
		PostingURL:  r.RedirectURL,
		Description: r.Description,
		DatePosted:  parseTime(r.Created),
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		SalaryMin:   r.SalaryMin,
		SalaryMax:   r.SalaryMax,
		Raw:         raw,
	}

	// Adzuna's area array runs broad to narrow (country, state, county,
	// city). The first two-letter uppercase element that is not the
	// country code is the state; the last element is the city.
	if n := len(r.Location.Area); n > 0 {
		l.City = r.Location.Area[n-1]
		for _, part := range r.Location.Area {
			if part == strings.ToUpper(a.country) {
				continue
			}
			if len(part) == 2 && part == strings.ToUpper(part) {
				l.State = part
				break
			}
		}
	}

	if l.SalaryMin != nil || l.SalaryMax != nil {
		l.SalaryInterval = "annual"
	}

	if strings.Contains(r.Category.Label, "Remote") ||
		strings.Contains(strings.ToLower(r.Description), "remote") {
		l.IsRemote = true
	}

	if r.ContractTime != "" {
		l.EmploymentType = strings.ReplaceAll(r.ContractTime, "_", " ")
	} else if r.ContractType != "" {
		l.EmploymentType = strings.ReplaceAll(r.ContractType, "_", " ")
	}

	l.ExperienceLevel = inferExperience(r.Title)

	return l
}

func (a *Adzuna) ValidateCredential(ctx context.Context) (bool, string) {
	params := url.Values{}
	params.Set("app_id", a.appID)
	params.Set("app_key", a.appKey)
	params.Set("results_per_page", "1")

	reqURL := fmt.Sprintf("%s/%s/search/1?%s", a.baseURL, a.country, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return false, fmt.Sprintf("build request: %v", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return credentialMessage(a.Name(), 0, err)
	}
	defer resp.Body.Close()
	return credentialMessage(a.Name(), resp.StatusCode, nil)
}
