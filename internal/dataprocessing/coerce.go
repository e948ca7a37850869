package dataprocessing

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"campaignpulse/pkg/contracts/domain"
)

// dateLayouts are tried in order. Slash dates are month-first; a slash date
// that cannot be month-first falls through to dayFirstLayouts.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"02-Jan-2006",
	"2-Jan-2006",
	"2 Jan 2006",
	"02 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

var dayFirstLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02/01/2006 15:04:05",
	"02-01-2006",
	"02.01.2006",
}

// Excel serials outside this window are not treated as dates.
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465 // 9999-12-31
)

var currencyReplacer = strings.NewReplacer(
	",", "",
	"₹", "",
	"$", "",
	"€", "",
	"£", "",
	" ", "",
)

// parseDate coerces a cell to a calendar date. Bare numbers are read as
// Excel serials only when serials is set, i.e. for raw workbook cells.
// ok is false for unknown dates.
func parseDate(raw string, serials bool) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	for _, layouts := range [][]string{dateLayouts, dayFirstLayouts} {
		for _, layout := range layouts {
			if t, err := time.Parse(layout, s); err == nil {
				return dayOf(t), true
			}
		}
	}

	if !serials {
		return time.Time{}, false
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial < minExcelSerial || serial > maxExcelSerial {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, false
		}
		return dayOf(t), true
	}

	return time.Time{}, false
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseAmount reads a money cell, stripping thousands separators and
// currency symbols. Blank cells are zero and valid.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	s := currencyReplacer.Replace(strings.TrimSpace(raw))
	if s == "" {
		return decimal.Zero, true
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// parseCount reads an optional non-negative integer cell.
// Whole-valued decimals such as "1200.0" are accepted.
func parseCount(raw string) (domain.OptionalInt, bool) {
	s := currencyReplacer.Replace(strings.TrimSpace(raw))
	if s == "" {
		return domain.OptionalInt{}, true
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() || !d.Equal(d.Truncate(0)) {
		return domain.OptionalInt{}, false
	}
	return domain.IntOf(d.IntPart()), true
}

// parseRatio reads a supplied ratio cell such as ROI. Blank is not available.
func parseRatio(raw string) (domain.Ratio, bool) {
	s := currencyReplacer.Replace(strings.TrimSpace(raw))
	if s == "" {
		return domain.NotAvailable(), true
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return domain.NotAvailable(), false
	}
	return domain.RatioOf(d.InexactFloat64()), true
}
