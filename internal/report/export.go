// Package report exports run reports for downstream consumption: JSON
// for machines, XLSX for the network management teams that review runs
// in spreadsheets.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/caretide/provdir/internal/model"
)

// WriteJSON writes the full run report as indented JSON.
func WriteJSON(w io.Writer, report *model.RunReport) error {
	if report == nil {
		return eris.New("report: nil run report")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(report), "report: encode json")
}

// WriteJSONList writes a run listing as indented JSON.
func WriteJSONList(w io.Writer, reports []model.RunReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(reports), "report: encode json list")
}

// outcomeHeader is the column layout of the Outcomes sheet.
var outcomeHeader = []string{
	"Provider ID", "NPI", "Name", "Score", "Disposition",
	"Discrepancies", "Ticket ID", "Updated", "Error",
}

// WriteXLSX writes the run report as a two-sheet workbook: a summary
// sheet with the run aggregates and an outcome sheet with one row per
// record.
func WriteXLSX(path string, report *model.RunReport) error {
	if report == nil {
		return eris.New("report: nil run report")
	}

	f := xlsx.NewFile()

	summary, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}
	addRow(summary, "Run ID", report.RunID)
	addRow(summary, "Started", report.StartedAt.Format("2006-01-02 15:04:05"))
	addRow(summary, "Completed", report.CompletedAt.Format("2006-01-02 15:04:05"))
	addRow(summary, "Total Records", strconv.Itoa(report.Total))
	addRow(summary, "Auto-Updated", strconv.Itoa(report.AutoUpdated))
	addRow(summary, "Needs Review", strconv.Itoa(report.NeedsReview))
	addRow(summary, "Urgent", strconv.Itoa(report.Urgent))
	addRow(summary, "Cancelled", strconv.FormatBool(report.Cancelled))
	addRow(summary, "Average Confidence", fmt.Sprintf("%.1f", report.AverageConfidence))
	for kind, count := range report.DiscrepancyCounts {
		addRow(summary, "Discrepancies: "+string(kind), strconv.Itoa(count))
	}

	outcomes, err := f.AddSheet("Outcomes")
	if err != nil {
		return eris.Wrap(err, "report: add outcomes sheet")
	}
	addRow(outcomes, outcomeHeader...)
	for _, out := range report.Outcomes {
		addRow(outcomes,
			out.ProviderID,
			out.NPI,
			out.Name,
			fmt.Sprintf("%.1f", out.Score),
			string(out.Disposition),
			discrepancySummary(out.Discrepancies),
			out.TicketID,
			strconv.FormatBool(out.Updated),
			out.Err,
		)
	}

	return eris.Wrapf(f.Save(path), "report: save %s", path)
}

func addRow(sheet *xlsx.Sheet, cells ...string) {
	row := sheet.AddRow()
	for _, value := range cells {
		row.AddCell().SetString(value)
	}
}

func discrepancySummary(discrepancies []model.Discrepancy) string {
	if len(discrepancies) == 0 {
		return ""
	}
	out := ""
	for i, d := range discrepancies {
		if i > 0 {
			out += "; "
		}
		out += string(d.Kind)
	}
	return out
}
