package stimulus

import (
	"fmt"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Dimension limits for a stimulus table. Anything larger will not fit a
// rendered exam page.
const (
	maxTableColumns = 8
	maxTableRows    = 20
)

// ParseTable splits a strict pipe-delimited table into a header row and
// data rows. The second line must be a dashed separator, every row must
// have the same number of columns, and the table must fit the dimension
// limits.
func ParseTable(content string) (header []string, rows [][]string, err error) {
	lines := nonEmptyLines(content)
	if len(lines) < 3 {
		return nil, nil, fmt.Errorf("table needs a header, a separator, and at least one data row")
	}
	if dataRows := len(lines) - 2; dataRows > maxTableRows {
		return nil, nil, fmt.Errorf("table has %d rows, limit is %d", dataRows, maxTableRows)
	}

	header = splitRow(lines[0])
	if len(header) == 0 {
		return nil, nil, fmt.Errorf("table header is empty")
	}
	if len(header) > maxTableColumns {
		return nil, nil, fmt.Errorf("table has %d columns, limit is %d", len(header), maxTableColumns)
	}

	sep := splitRow(lines[1])
	if len(sep) != len(header) {
		return nil, nil, fmt.Errorf("separator row has %d columns, header has %d", len(sep), len(header))
	}
	for _, cell := range sep {
		if strings.Trim(cell, "-: ") != "" {
			return nil, nil, fmt.Errorf("separator row cell %q is not dashes", cell)
		}
	}

	for i, line := range lines[2:] {
		row := splitRow(line)
		if len(row) != len(header) {
			return nil, nil, fmt.Errorf("row %d has %d columns, header has %d", i+1, len(row), len(header))
		}
		rows = append(rows, row)
	}

	return header, rows, nil
}

// RenderTableHTML converts a pipe table to an HTML table and verifies
// the rendered markup has the same dimensions as the source.
func RenderTableHTML(content string) (string, error) {
	header, rows, err := ParseTable(content)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("<table>\n<thead>\n<tr>")
	for _, cell := range header {
		sb.WriteString("<th>")
		sb.WriteString(html.EscapeString(cell))
		sb.WriteString("</th>")
	}
	sb.WriteString("</tr>\n</thead>\n<tbody>\n")
	for _, row := range rows {
		sb.WriteString("<tr>")
		for _, cell := range row {
			sb.WriteString("<td>")
			sb.WriteString(html.EscapeString(cell))
			sb.WriteString("</td>")
		}
		sb.WriteString("</tr>\n")
	}
	sb.WriteString("</tbody>\n</table>")

	rendered := sb.String()
	if err := verifyTableHTML(rendered, len(header), len(rows)); err != nil {
		return "", err
	}
	return rendered, nil
}

// verifyTableHTML re-parses the rendered markup and checks the cell
// counts match the parsed table.
func verifyTableHTML(rendered string, cols, dataRows int) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rendered))
	if err != nil {
		return fmt.Errorf("rendered table failed to parse: %w", err)
	}

	if got := doc.Find("thead th").Length(); got != cols {
		return fmt.Errorf("rendered table has %d header cells, want %d", got, cols)
	}
	if got := doc.Find("tbody tr").Length(); got != dataRows {
		return fmt.Errorf("rendered table has %d data rows, want %d", got, dataRows)
	}
	if got := doc.Find("tbody td").Length(); got != cols*dataRows {
		return fmt.Errorf("rendered table has %d data cells, want %d", got, cols*dataRows)
	}
	return nil
}

func nonEmptyLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func splitRow(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	cells := strings.Split(line, "|")
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.TrimSpace(c)
	}
	return out
}
