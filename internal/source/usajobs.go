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

const usajobsBaseURL = "https://data.usajobs.gov/api/search"

// USAJobs is the adapter for the US federal government job board. The API
// wants the key in Authorization-Key and the registered email as the
// User-Agent.
type USAJobs struct {
	apiKey  string
	email   string
	client  *http.Client
	baseURL string
}

func NewUSAJobs(apiKey, email string) *USAJobs {
	return &USAJobs{
		apiKey:  apiKey,
		email:   email,
		client:  &http.Client{Timeout: httpTimeout},
		baseURL: usajobsBaseURL,
	}
}

func (u *USAJobs) ID() string   { return "usajobs" }
func (u *USAJobs) Name() string { return "USAJobs (Federal)" }

// ── Wire format ──
// Coordinates and salary bounds arrive as strings; dates carry seven
// fractional digits. Everything below mirrors the response verbatim.

type usajobsResponse struct {
	SearchResult struct {
		SearchResultItems []json.RawMessage `json:"SearchResultItems"`
	} `json:"SearchResult"`
}

type usajobsItem struct {
	MatchedObjectID         string            `json:"MatchedObjectId"`
	MatchedObjectDescriptor usajobsDescriptor `json:"MatchedObjectDescriptor"`
}

type usajobsDescriptor struct {
	PositionID           string                `json:"PositionID"`
	PositionTitle        string                `json:"PositionTitle"`
	OrganizationName     string                `json:"OrganizationName"`
	DepartmentName       string                `json:"DepartmentName"`
	PositionURI          string                `json:"PositionURI"`
	PublicationStartDate string                `json:"PublicationStartDate"`
	ApplicationCloseDate string                `json:"ApplicationCloseDate"`
	PositionLocation     []usajobsLocation     `json:"PositionLocation"`
	PositionRemuneration []usajobsRemuneration `json:"PositionRemuneration"`
	PositionSchedule     []usajobsCodeName     `json:"PositionSchedule"`
	TeleworkSchedule     []usajobsCodeName     `json:"TeleworkSchedule"`
	JobGrade             []usajobsCodeName     `json:"JobGrade"`
	UserArea             struct {
		Details struct {
			JobSummary string `json:"JobSummary"`
		} `json:"Details"`
	} `json:"UserArea"`
}

type usajobsLocation struct {
	CityName               string `json:"CityName"`
	CountrySubDivisionCode string `json:"CountrySubDivisionCode"`
	CountryCode            string `json:"CountryCode"`
	Latitude               string `json:"Latitude"`
	Longitude              string `json:"Longitude"`
}

type usajobsRemuneration struct {
	MinimumRange     string `json:"MinimumRange"`
	MaximumRange     string `json:"MaximumRange"`
	RateIntervalCode string `json:"RateIntervalCode"`
}

type usajobsCodeName struct {
	Code string `json:"Code"`
	Name string `json:"Name"`
}

func (u *USAJobs) Search(ctx context.Context, c Criteria) ([]model.Listing, error) {
	params := url.Values{}
	params.Set("Keyword", c.Query())
	if c.Location != "" {
		params.Set("LocationName", c.Location)
	}
	if c.RadiusMiles > 0 {
		params.Set("Radius", strconv.Itoa(c.RadiusMiles))
	}
	params.Set("ResultsPerPage", strconv.Itoa(min(c.Limit(), 500)))
	params.Set("Fields", "Full")

	body, err := doGET(ctx, u.client, u.ID(), u.baseURL+"?"+params.Encode(), u.header())
	if err != nil {
		return nil, err
	}

	var resp usajobsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &Failure{SourceID: u.ID(), Message: fmt.Sprintf("decode response: %v", err)}
	}

	listings := make([]model.Listing, 0, len(resp.SearchResult.SearchResultItems))
	for _, raw := range resp.SearchResult.SearchResultItems {
		var item usajobsItem
		if err := json.Unmarshal(raw, &item); err != nil {
			slog.Warn("skipping malformed result", "source", u.ID(), "err", err)
			continue
		}
		l, err := u.normalize(item, raw)
		if err != nil {
			slog.Warn("skipping malformed result", "source", u.ID(), "err", err)
			continue
		}
		listings = append(listings, l)
		if len(listings) >= c.Limit() {
			break
		}
	}
	return listings, nil
}

func (u *USAJobs) normalize(item usajobsItem, raw json.RawMessage) (model.Listing, error) {
	d := item.MatchedObjectDescriptor
	if d.PositionID == "" && d.PositionTitle == "" {
		return model.Listing{}, fmt.Errorf("result has no position data")
	}

	l := model.Listing{
		ID:          "usajobs_" + d.PositionID,
		Source:      u.ID(),
		Title:       d.PositionTitle,
		Company:     d.OrganizationName,
		PostingURL:  d.PositionURI,
		Description: d.UserArea.Details.JobSummary,
		DatePosted:  parseTime(d.PublicationStartDate),
		ClosingDate: parseTime(d.ApplicationCloseDate),
		Raw:         raw,
	}
	if l.Company == "" {
		l.Company = d.DepartmentName
	}

	if len(d.PositionLocation) > 0 {
		loc := d.PositionLocation[0]
		l.City = loc.CityName
		l.State = loc.CountrySubDivisionCode
		l.Location = joinLocation(loc.CityName, loc.CountrySubDivisionCode)
		if extra := len(d.PositionLocation) - 1; extra > 0 {
			l.Location = fmt.Sprintf("%s +%d locations", l.Location, extra)
		}
		if lat, err := strconv.ParseFloat(loc.Latitude, 64); err == nil {
			if lon, err := strconv.ParseFloat(loc.Longitude, 64); err == nil {
				l.Latitude, l.Longitude = floatPtr(lat), floatPtr(lon)
			}
		}
	}

	if len(d.PositionRemuneration) > 0 {
		rem := d.PositionRemuneration[0]
		l.SalaryMin, l.SalaryMax, l.SalaryInterval = usajobsSalary(rem)
		l.SalaryCurrency = "USD"
	}

	if len(d.PositionSchedule) > 0 {
		if d.PositionSchedule[0].Name != "" {
			l.EmploymentType = d.PositionSchedule[0].Name
		} else {
			l.EmploymentType = d.PositionSchedule[0].Code
		}
	}

	for _, tw := range d.TeleworkSchedule {
		switch tw.Code {
		case "01":
			l.IsRemote = true
		case "03":
			l.IsHybrid = true
		}
	}
	if strings.Contains(strings.ToLower(d.PositionTitle), "remote") {
		l.IsRemote = true
	}

	l.ExperienceLevel = gradeExperience(d.JobGrade)

	return l, nil
}

// usajobsSalary converts one remuneration entry. PA is already annual, BW
// is biweekly so 26 pay periods make a year, anything else is hourly.
func usajobsSalary(rem usajobsRemuneration) (min, max *float64, interval string) {
	lo, loErr := strconv.ParseFloat(rem.MinimumRange, 64)
	hi, hiErr := strconv.ParseFloat(rem.MaximumRange, 64)

	factor := 1.0
	interval = "annual"
	switch rem.RateIntervalCode {
	case "PA":
	case "BW":
		factor = 26
	default:
		interval = "hourly"
	}

	if loErr == nil && lo > 0 {
		min = floatPtr(lo * factor)
	}
	if hiErr == nil && hi > 0 {
		max = floatPtr(hi * factor)
	}
	if min == nil && max == nil {
		return nil, nil, ""
	}
	return min, max, interval
}

// gradeExperience maps a GS pay grade to an experience level:
// GS-7 and below entry, GS-8 through GS-12 mid, GS-13 and up senior.
func gradeExperience(grades []usajobsCodeName) string {
	for _, g := range grades {
		code := strings.ToUpper(g.Code)
		rest, found := strings.CutPrefix(code, "GS-")
		if !found {
			rest, found = strings.CutPrefix(code, "GS")
		}
		if !found {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil {
			continue
		}
		switch {
		case n <= 7:
			return "entry"
		case n <= 12:
			return "mid"
		default:
			return "senior"
		}
	}
	return ""
}

func (u *USAJobs) ValidateCredential(ctx context.Context) (bool, string) {
	params := url.Values{}
	params.Set("ResultsPerPage", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return false, fmt.Sprintf("build request: %v", err)
	}
	req.Header = u.header()

	resp, err := u.client.Do(req)
	if err != nil {
		return credentialMessage(u.Name(), 0, err)
	}
	defer resp.Body.Close()
	return credentialMessage(u.Name(), resp.StatusCode, nil)
}

func (u *USAJobs) header() http.Header {
	h := http.Header{}
	h.Set("Authorization-Key", u.apiKey)
	h.Set("User-Agent", u.email)
	return h
}

func joinLocation(city, state string) string {
	switch {
	case city != "" && state != "":
		return city + ", " + state
	case city != "":
		return city
	default:
		return state
	}
}
