package flex

import (
	"strconv"
	"strings"
)

// Table colors. Data rows alternate by index parity.
const (
	tableHeaderColor  = "#E8E8E8"
	tableEvenRowColor = "#FFFFFF"
	tableOddRowColor  = "#F5F5F5"
	tableBorderColor  = "#DDDDDD"
)

// blankCell stands in for missing cells; the client rejects empty text.
const blankCell = " "

// tableBlock is a run of consecutive pipe lines, identified by the index
// of its first line in the source.
type tableBlock struct {
	start int
	lines []string
}

// ExtractTables converts every pipe-delimited block of two or more lines
// in md into a grid Box and returns the grids together with the text that
// remains once the table lines are removed.
//
// By default only the lines of rendered blocks are removed. With
// opts.ExactLineRemoval every line equal to some table line is removed,
// wherever it appears in the document.
func ExtractTables(md string, opts Options) ([]*Box, string) {
	lines := strings.Split(md, "\n")

	var tables []*Box
	tagged := make([]bool, len(lines))
	removed := make(map[string]struct{})

	for _, block := range scanTableBlocks(lines) {
		grid := buildTable(block.lines)
		if grid == nil {
			continue
		}
		tables = append(tables, grid)
		for i, line := range block.lines {
			tagged[block.start+i] = true
			removed[line] = struct{}{}
		}
	}
	if len(tables) == 0 {
		return nil, md
	}

	kept := make([]string, 0, len(lines))
	for i, line := range lines {
		if opts.ExactLineRemoval {
			if _, ok := removed[line]; ok {
				continue
			}
		} else if tagged[i] {
			continue
		}
		kept = append(kept, line)
	}
	return tables, strings.Join(kept, "\n")
}

// HasTable reports whether md holds a pipe block ExtractTables would consider.
func HasTable(md string) bool {
	return len(scanTableBlocks(strings.Split(md, "\n"))) > 0
}

// scanTableBlocks finds the runs of table lines in one pass. Runs shorter
// than two lines cannot hold a header and a body and are dropped.
func scanTableBlocks(lines []string) []tableBlock {
	var blocks []tableBlock
	var cur *tableBlock

	commit := func() {
		if cur != nil && len(cur.lines) >= 2 {
			blocks = append(blocks, *cur)
		}
		cur = nil
	}

	for i, line := range lines {
		if !isTableLine(line) {
			commit()
			continue
		}
		if cur == nil {
			cur = &tableBlock{start: i}
		}
		cur.lines = append(cur.lines, line)
	}
	commit()
	return blocks
}

// isTableLine reports whether line can be part of a table block.
func isTableLine(line string) bool {
	return strings.Contains(line, "|") && !isFenceLine(line)
}

func isFenceLine(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "```")
}

// buildTable renders one block. It returns nil when the header has no cells.
func buildTable(lines []string) *Box {
	header := headerCells(lines[0])
	if len(header) == 0 {
		return nil
	}
	width := columnWidth(len(header))

	headerRow := &Box{
		Layout:          LayoutHorizontal,
		BackgroundColor: tableHeaderColor,
	}
	for _, cell := range header {
		headerRow.Contents = append(headerRow.Contents, cellBox(StripBold(cell), true, width))
	}

	grid := &Box{
		Layout:       LayoutVertical,
		BorderColor:  tableBorderColor,
		BorderWidth:  "light",
		CornerRadius: SizeMD,
		Contents:     []Component{headerRow},
	}

	first := 1
	if len(lines) > 1 && isSeparatorRow(lines[1]) {
		first = 2
	}
	for i, line := range lines[first:] {
		cells := normalizeRow(rowCells(line), len(header))
		row := &Box{
			Layout:          LayoutHorizontal,
			BackgroundColor: rowColor(i),
		}
		for _, cell := range cells {
			row.Contents = append(row.Contents, cellBox(StripBold(cell), HasBold(cell), width))
		}
		grid.Contents = append(grid.Contents, row)
	}
	return grid
}

// headerCells splits a header line on pipes, dropping empty cells.
func headerCells(line string) []string {
	var cells []string
	for _, part := range strings.Split(line, "|") {
		if cell := strings.TrimSpace(part); cell != "" {
			cells = append(cells, cell)
		}
	}
	return cells
}

// rowCells splits a data line on pipes. Interior empty cells keep their
// position; only the outer pipes are discarded.
func rowCells(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	parts := strings.Split(line, "|")
	cells := make([]string, len(parts))
	for i, part := range parts {
		cells[i] = strings.TrimSpace(part)
	}
	return cells
}

// isSeparatorRow reports whether every non-empty cell in line is made of
// dashes only. A line with no cells at all is not a separator.
func isSeparatorRow(line string) bool {
	cells := headerCells(line)
	if len(cells) == 0 {
		return false
	}
	for _, cell := range cells {
		if strings.Trim(cell, "-") != "" {
			return false
		}
	}
	return true
}

// normalizeRow pads or truncates cells to exactly n entries.
func normalizeRow(cells []string, n int) []string {
	if len(cells) > n {
		return cells[:n]
	}
	for len(cells) < n {
		cells = append(cells, "")
	}
	return cells
}

func rowColor(i int) string {
	if i%2 == 0 {
		return tableEvenRowColor
	}
	return tableOddRowColor
}

// columnWidth returns 100/n as a percentage with at most two decimals.
func columnWidth(n int) string {
	w := strconv.FormatFloat(100/float64(n), 'f', 2, 64)
	w = strings.TrimRight(w, "0")
	w = strings.TrimSuffix(w, ".")
	return w + "%"
}

func cellBox(text string, bold bool, width string) *Box {
	if text == "" {
		text = blankCell
	}
	weight := WeightRegular
	if bold {
		weight = WeightBold
	}
	return &Box{
		Layout:     LayoutVertical,
		Width:      width,
		PaddingAll: SizeXS,
		Contents: []Component{&Text{
			Text:   text,
			Weight: weight,
			Size:   SizeSM,
			Wrap:   true,
		}},
	}
}
