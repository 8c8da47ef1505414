package parser

import (
	"errors"
	"regexp"
	"strconv"
	"time"

	"github.com/jgoulah/billscraper/pkg/models"
)

// ws matches a single whitespace character: ASCII \t-\r, the \x1c-\x1f
// separators, space, NEL and every Unicode space/line/paragraph separator
// (NBSP included, which RE2's \s does not match).
const ws = `[\t-\r\x{1c}-\x{20}\x{85}\p{Z}]`

const periodLayout = "02/01/2006"

var (
	// Only the first match is used
	consumptionRe = regexp.MustCompile(`(?i)Consumption` + ws + `+(\d+\.\d+)` + ws + `+kWh`)

	// Every non-overlapping match is a tier, e.g. "(1) 670.6850 kWh @ R 2.9870"
	tierRe = regexp.MustCompile(`(?i)\(\d+\)` + ws + `+(\d+\.\d+)` + ws + `+kWh` + ws + `+@` + ws + `+R` + ws + `+(\d+\.\d+)`)

	dailyAverageRe = regexp.MustCompile(`(?i)Daily average` + ws + `+([\d.]+)` + ws + `+kWh`)

	// Case sensitive, trailing space included
	totalChargeRe = regexp.MustCompile(`(\d+(?:\.\d+)?)` + ws + `*&` + ws + `+Home User Charge `)

	// Longest leading decimal of a daily average capture like "1.2.3"
	leadingNumberRe = regexp.MustCompile(`^\d*\.?\d*`)

	periodRe = regexp.MustCompile(`(?i)ELECTRICITY` + ws + `*\(` + ws + `*Period` + ws + `+(\d{2}/\d{2}/\d{4})` + ws + `+to` + ws + `+(\d{2}/\d{2}/\d{4})`)
)

// ParsedFields holds everything recognised in one statement's text. The zero
// value means nothing was found.
type ParsedFields struct {
	TotalConsumptionKWh *float64
	RateTiers           []models.RateTier
	DailyAverageKWh     *float64
	TotalCharge         *float64
	Period              *models.BillingPeriod
}

// Parse extracts billing fields from the concatenated page text of a
// statement. It never fails; text without any recognised label yields the
// zero ParsedFields.
func Parse(text string) ParsedFields {
	var fields ParsedFields

	if m := consumptionRe.FindStringSubmatch(text); m != nil {
		if v, ok := parseNumber(m[1]); ok {
			fields.TotalConsumptionKWh = &v
		}
	}

	for _, m := range tierRe.FindAllStringSubmatch(text, -1) {
		kwh, ok := parseNumber(m[1])
		if !ok {
			continue
		}
		rate, ok := parseNumber(m[2])
		if !ok {
			continue
		}
		fields.RateTiers = append(fields.RateTiers, models.RateTier{KWh: kwh, RatePerKWh: rate})
	}

	if m := dailyAverageRe.FindStringSubmatch(text); m != nil {
		if v, ok := parseLeadingNumber(m[1]); ok {
			fields.DailyAverageKWh = &v
		}
	}

	if m := totalChargeRe.FindStringSubmatch(text); m != nil {
		if v, ok := parseNumber(m[1]); ok {
			fields.TotalCharge = &v
		}
	}

	if m := periodRe.FindStringSubmatch(text); m != nil {
		start, errStart := time.Parse(periodLayout, m[1])
		end, errEnd := time.Parse(periodLayout, m[2])
		if errStart == nil && errEnd == nil {
			fields.Period = &models.BillingPeriod{Start: start, End: end}
		}
	}

	return fields
}

// ParseRecord runs Parse and Validate for one statement
func ParseRecord(id, text string) (models.MunicipalRecord, error) {
	return Validate(id, Parse(text))
}

// parseNumber converts a captured decimal. Values too large for a float64
// come back as +Inf rather than being dropped.
func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return v, true
		}
		return 0, false
	}
	return v, true
}

// parseLeadingNumber converts the longest decimal prefix of s, so "1.2.3"
// reads as 1.2. A capture with no digits before its second dot is rejected.
func parseLeadingNumber(s string) (float64, bool) {
	prefix := leadingNumberRe.FindString(s)
	if prefix == "" || prefix == "." {
		return 0, false
	}
	return parseNumber(prefix)
}
