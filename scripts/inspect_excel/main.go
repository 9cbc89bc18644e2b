// Command inspect_excel prints the summary and first rows of a /export workbook.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/xuri/excelize/v2"

	"github.com/mroshb/scrim_bot/internal/report"
)

func main() {
	rowsToShow := flag.Int("rows", 5, "number of match rows to print")
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatal("usage: inspect_excel [-rows N] scrims.xlsx")
	}

	f, err := excelize.OpenFile(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	fmt.Printf("Sheets: %v\n", f.GetSheetList())

	summary, err := f.GetRows(report.SummarySheet)
	if err != nil {
		log.Fatalf("read %s: %v", report.SummarySheet, err)
	}
	for _, row := range summary {
		fmt.Printf("  %v\n", row)
	}

	rows, err := f.GetRows(report.MatchesSheet)
	if err != nil {
		log.Fatalf("read %s: %v", report.MatchesSheet, err)
	}
	for i, row := range rows {
		if i > *rowsToShow {
			break
		}
		fmt.Printf("Row %d: %v\n", i, row)
	}
}
