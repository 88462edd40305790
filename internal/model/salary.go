package model

import (
	"math"

	"github.com/dustin/go-humanize"
)

// FormatSalary renders a listing's salary range for display.
//
//	both bounds:  "$80,000 – $100,000 / year"
//	min only:     "$90,000+ / year"
//	max only:     "Up to $95 / hour"
//	neither:      "Salary not listed"
func FormatSalary(l Listing) string {
	if l.SalaryMin == nil && l.SalaryMax == nil {
		return "Salary not listed"
	}

	symbol := "$"
	if l.SalaryCurrency != "" && l.SalaryCurrency != "USD" {
		symbol = l.SalaryCurrency + " "
	}

	period := "/ year"
	if l.SalaryInterval == "hourly" {
		period = "/ hour"
	}

	fmtAmount := func(n float64) string {
		if l.SalaryInterval == "hourly" {
			// Hourly rates keep cents when present: "$27.25", "$30"
			return symbol + humanize.CommafWithDigits(n, 2)
		}
		return symbol + humanize.Comma(int64(math.Round(n)))
	}

	switch {
	case l.SalaryMin != nil && l.SalaryMax != nil:
		return fmtAmount(*l.SalaryMin) + " – " + fmtAmount(*l.SalaryMax) + " " + period
	case l.SalaryMin != nil:
		return fmtAmount(*l.SalaryMin) + "+ " + period
	default:
		return "Up to " + fmtAmount(*l.SalaryMax) + " " + period
	}
}
