package source

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"ukatrack/internal/model"
)

// topEntityCount bounds the reshape to the workbook's headline entities.
const topEntityCount = 10

// AllocationsLoader reads the UK ETS free-allocation workbook and
// reshapes its wide layout (one column per year) into long-form records.
type AllocationsLoader struct {
	path          string
	companySheet  string
	industrySheet string
}

func NewAllocationsLoader(path, companySheet, industrySheet string) *AllocationsLoader {
	return &AllocationsLoader{path: path, companySheet: companySheet, industrySheet: industrySheet}
}

// Load returns the company and industry allocation timeseries.
func (l *AllocationsLoader) Load() (companies, industries []model.AllocationRecord, err error) {
	f, err := excelize.OpenFile(l.path)
	if err != nil {
		return nil, nil, fmt.Errorf("open allocations workbook: %w", err)
	}
	defer f.Close()

	companies, err = reshapeSheet(f, l.companySheet)
	if err != nil {
		return nil, nil, err
	}
	industries, err = reshapeSheet(f, l.industrySheet)
	if err != nil {
		return nil, nil, err
	}
	return companies, industries, nil
}

// reshapeSheet melts a wide sheet into (entity, year, allocation) rows.
// The first header cell names the entity column; every all-digit header
// is a year column. Only the top rows with a non-empty entity name are
// kept, matching how the workbook places headline entities first.
func reshapeSheet(f *excelize.File, sheet string) ([]model.AllocationRecord, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: sheet %q has no data rows", ErrParse, sheet)
	}

	header := rows[0]
	type yearCol struct {
		col  int
		year int
	}
	var years []yearCol
	for i, cell := range header {
		name := strings.TrimSpace(cell)
		if name == "" || i == 0 {
			continue
		}
		if year, err := strconv.Atoi(name); err == nil {
			years = append(years, yearCol{col: i, year: year})
		}
	}
	if len(years) == 0 {
		return nil, fmt.Errorf("%w: sheet %q has no year columns", ErrParse, sheet)
	}

	var records []model.AllocationRecord
	entities := 0
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		entity := strings.TrimSpace(row[0])
		if entity == "" {
			continue
		}
		if entities++; entities > topEntityCount {
			break
		}
		for _, yc := range years {
			if yc.col >= len(row) {
				continue
			}
			cell := strings.ReplaceAll(strings.TrimSpace(row[yc.col]), ",", "")
			if cell == "" {
				continue
			}
			amount, err := decimal.NewFromString(cell)
			if err != nil {
				continue // non-numeric cell, skip
			}
			records = append(records, model.AllocationRecord{
				Entity:     entity,
				Year:       yc.year,
				Allocation: amount,
			})
		}
	}
	return records, nil
}
