// Command jobtrack is the terminal client: a one-shot search across every
// configured job board, merged, filtered and printed newest-first.
//
//	jobtrack -keywords "soc analyst" -location "Dallas, TX" -radius 25
//	jobtrack -keywords "security engineer" -work remote -json
//	jobtrack -validate
//
// Credentials come from the environment (or a .env file in the working
// directory); sources with no credential are silently left out.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/pterm/pterm"

	"github.com/Irehund/jobtrack/internal/commute"
	"github.com/Irehund/jobtrack/internal/config"
	"github.com/Irehund/jobtrack/internal/fetch"
	"github.com/Irehund/jobtrack/internal/filter"
	"github.com/Irehund/jobtrack/internal/model"
	"github.com/Irehund/jobtrack/internal/source"
)

const barTemplate = `{{counters . }} {{bar . }} {{percent . }} {{string . "status"}}`

func main() {
	keywords := flag.String("keywords", "", "Comma-separated search terms (required)")
	location := flag.String("location", "", "City/state or ZIP to search around")
	radius := flag.Int("radius", 50, "Search radius in miles")
	work := flag.String("work", "any", "Work arrangement: any, remote, hybrid, onsite")
	experience := flag.String("experience", "any", "Experience level: any, entry, mid, senior")
	sources := flag.String("sources", "", "Comma-separated source ids (default: every configured source)")
	maxResults := flag.Int("max", 0, "Max results per source (default 50)")
	home := flag.String("home", "", "Home coordinates as \"lat,lon\", enables distance checks")
	withCommute := flag.Bool("commute", false, "Estimate driving time to each listing (needs -home and ORS_API_KEY)")
	jsonOut := flag.Bool("json", false, "Emit results as JSON on stdout")
	quiet := flag.Bool("quiet", false, "Suppress the progress bar")
	validate := flag.Bool("validate", false, "Check each configured credential and exit")
	debug := flag.Bool("debug", false, "Verbose logging")

	flag.Usage = printUsage
	flag.Parse()

	level := slog.LevelWarn
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})))

	_ = godotenv.Load()
	cfg := config.LoadLocal()
	registry := source.NewRegistry(cfg.Credentials(), cfg.Country)

	if *validate {
		validateCredentials(registry)
		return
	}

	if *keywords == "" {
		flag.Usage()
		log.Fatal("at least one -keywords term is required")
	}

	wt, err := model.ParseWorkType(*work)
	if err != nil {
		log.Fatalf("-work: %v", err)
	}
	exp, err := model.ParseExperience(*experience)
	if err != nil {
		log.Fatalf("-experience: %v", err)
	}

	var homeLat, homeLon *float64
	if *home != "" {
		lat, lon, err := parseHome(*home)
		if err != nil {
			log.Fatalf("-home: %v", err)
		}
		homeLat, homeLon = &lat, &lon
	}
	if *withCommute && *home == "" {
		log.Fatal("-commute needs -home to know where the drive starts")
	}

	var adapters []source.Adapter
	if *sources == "" {
		adapters = registry.Available()
	} else {
		adapters = registry.Resolve(splitList(*sources))
	}
	if len(adapters) == 0 {
		log.Fatal("no sources available, set at least one credential (USAJOBS_API_KEY+USAJOBS_EMAIL, ADZUNA_APP_ID+ADZUNA_APP_KEY or RAPIDAPI_KEY)")
	}

	criteria := source.Criteria{
		Keywords:    splitList(*keywords),
		Location:    *location,
		RadiusMiles: *radius,
		MaxResults:  *maxResults,
	}
	fc := filter.Config{
		HomeLat:     homeLat,
		HomeLon:     homeLon,
		RadiusMiles: float64(*radius),
		WorkType:    wt,
		Experience:  exp,
		Keywords:    criteria.Keywords,
	}

	var bar *pb.ProgressBar
	if !*quiet && !*jsonOut {
		bar = pb.ProgressBarTemplate(barTemplate).New(len(adapters))
		bar.Start()
	}

	var failed []string
	onProgress := func(p fetch.Progress) {
		failed = p.FailedSources
		if bar != nil {
			bar.SetCurrent(int64(p.CompletedSources))
			bar.Set("status", p.StatusMessage())
		}
	}

	ctx := context.Background()
	results := fetch.New().FetchAndFilter(ctx, criteria, fc, adapters, onProgress)
	if bar != nil {
		bar.Finish()
	}

	if *withCommute {
		est := commute.New(cfg.ORSKey, commute.Coord{Lat: *homeLat, Lon: *homeLon})
		if err := est.EstimateBatch(ctx, results); err != nil {
			slog.Warn("commute estimates unavailable", "err", err)
		}
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			log.Fatalf("encode results: %v", err)
		}
		return
	}

	printResults(results)

	for _, id := range failed {
		fmt.Fprintln(os.Stderr, pterm.Yellow("warning: "+id+" was skipped after repeated failures"))
	}
	fmt.Printf("\nFound %d matching jobs across %d sources\n", len(results), len(adapters))
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: jobtrack -keywords <terms> [options]\n\nOptions:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  jobtrack -keywords "soc analyst" -location "Dallas, TX" -radius 25
  jobtrack -keywords "security engineer,detection" -work remote -json
  jobtrack -keywords devops -home "32.7767,-96.7970" -commute
  jobtrack -sources usajobs,adzuna -keywords "incident response" -experience entry
  jobtrack -validate
`)
}

// validateCredentials probes every configured source once and reports the
// outcome. Exits non-zero if any credential is rejected.
func validateCredentials(registry *source.Registry) {
	adapters := registry.Available()
	if len(adapters) == 0 {
		fmt.Println("No sources configured. Set USAJOBS_API_KEY+USAJOBS_EMAIL, ADZUNA_APP_ID+ADZUNA_APP_KEY or RAPIDAPI_KEY.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	bad := 0
	for _, a := range adapters {
		ok, msg := a.ValidateCredential(ctx)
		if ok {
			fmt.Printf("%s %s\n", pterm.Green("✓"), msg)
		} else {
			fmt.Printf("%s %s\n", pterm.Red("✗"), msg)
			bad++
		}
	}
	if bad > 0 {
		os.Exit(1)
	}
}

func printResults(listings []model.Listing) {
	fmt.Println()
	for _, l := range listings {
		fmt.Printf("Title: %s\n", l.Title)
		fmt.Printf("Company: %s\n", l.Company)
		fmt.Printf("Location: %s\n", locationLine(l))
		fmt.Printf("Salary: %s\n", colorizeSalary(l))
		if l.DatePosted != nil {
			fmt.Printf("Posted: %s\n", humanize.Time(*l.DatePosted))
		}
		if l.DistanceMiles != nil {
			fmt.Printf("Distance: %s miles\n", humanize.CommafWithDigits(*l.DistanceMiles, 0))
		}
		if l.CommuteMinutes != nil {
			fmt.Printf("Commute: %d min drive\n", *l.CommuteMinutes)
		}
		fmt.Printf("URL: %s\n", l.PostingURL)
		fmt.Printf("Source: %s\n", l.Source)
		fmt.Println(strings.Repeat("-", 80))
	}
}

func locationLine(l model.Listing) string {
	loc := l.Location
	if loc == "" {
		if l.IsRemote {
			return "Remote"
		}
		return "Not specified"
	}
	if l.IsRemote && !strings.Contains(strings.ToLower(loc), "remote") {
		loc += " (remote)"
	} else if l.IsHybrid {
		loc += " (hybrid)"
	}
	return loc
}

// colorizeSalary colors the formatted salary by its upper bound, hourly
// rates annualised at 2080 hours so the bands line up.
func colorizeSalary(l model.Listing) string {
	text := model.FormatSalary(l)
	if l.SalaryMin == nil && l.SalaryMax == nil {
		return pterm.Red(text)
	}

	top := 0.0
	if l.SalaryMax != nil {
		top = *l.SalaryMax
	} else {
		top = *l.SalaryMin
	}
	if l.SalaryInterval == "hourly" {
		top *= 2080
	}

	switch {
	case top >= 200000:
		return pterm.Green(text)
	case top >= 120000:
		return pterm.LightGreen(text)
	case top >= 70000:
		return pterm.Yellow(text)
	default:
		return pterm.Red(text)
	}
}

// splitList splits a comma-separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseHome parses "lat,lon" into coordinates.
func parseHome(s string) (float64, float64, error) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, fmt.Errorf("expected \"lat,lon\", got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad latitude %q", latStr)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad longitude %q", lonStr)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, fmt.Errorf("coordinates out of range: %s", s)
	}
	return lat, lon, nil
}
