// Package report renders admin spreadsheets.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mroshb/scrim_bot/internal/models"
)

const (
	MatchesSheet = "Matches"
	SummarySheet = "Summary"
)

var matchHeaders = []interface{}{
	"ID", "Status", "Match Type", "Time Slot", "Timezone",
	"Captain 1", "Captain 2", "Captain 1 Approved", "Captain 2 Approved",
	"Declined By", "Created At (UTC)", "Matched At (UTC)",
}

// MatchesWorkbook writes one row per match plus a per-status summary sheet.
func MatchesWorkbook(matches []models.ScrimMatch) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", MatchesSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	if err := f.SetSheetRow(MatchesSheet, "A1", &matchHeaders); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	if err := f.SetPanes(MatchesSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze header: %w", err)
	}

	counts := make(map[string]int)
	for i, m := range matches {
		counts[m.Status]++

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{
			m.ID, m.Status, m.MatchType, m.TimeSlot, m.Timezone,
			m.Captain1ID, m.Captain2ID, m.Captain1Approved, m.Captain2Approved,
			optionalID(m.DeclinedBy), m.CreatedAt.UTC().Format(time.RFC3339), optionalTime(m.MatchedAt),
		}
		if err := f.SetSheetRow(MatchesSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write match %d: %w", m.ID, err)
		}
	}

	if err := writeSummary(f, counts, len(matches)); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode workbook: %w", err)
	}
	return buf, nil
}

func writeSummary(f *excelize.File, counts map[string]int, total int) error {
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	statuses := make([]string, 0, len(counts))
	for status := range counts {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)

	rows := [][]interface{}{{"Status", "Matches"}}
	for _, status := range statuses {
		rows = append(rows, []interface{}{status, counts[status]})
	}
	rows = append(rows, []interface{}{"total", total})

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}
	return nil
}

func optionalID(id *int64) interface{} {
	if id == nil {
		return ""
	}
	return *id
}

func optionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
