package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// KeyValueBlock
// ---------------------------------------------------------------------------

func TestKeyValueBlockContainsTitleAndPairs(t *testing.T) {
	result := KeyValueBlock("My Title", [][2]string{
		{"Agent", "Momentum Hunter"},
		{"Copiers", "12"},
	})
	assert.Contains(t, result, "My Title")
	assert.Contains(t, result, "Agent")
	assert.Contains(t, result, "Momentum Hunter")
	assert.Contains(t, result, "Copiers")
	assert.Contains(t, result, "12")
}

func TestKeyValueBlockEmptyTitle(t *testing.T) {
	result := KeyValueBlock("", [][2]string{
		{"Key", "Value"},
	})
	assert.Contains(t, result, "Key")
	assert.Contains(t, result, "Value")
}

func TestKeyValueBlockNoPairs(t *testing.T) {
	result := KeyValueBlock("Empty Block", [][2]string{})
	assert.Contains(t, result, "Empty Block")
	assert.NotEmpty(t, result)
}

func TestKeyValueBlockSinglePair(t *testing.T) {
	result := KeyValueBlock("Single", [][2]string{
		{"OnlyKey", "OnlyVal"},
	})
	assert.Contains(t, result, "Single")
	assert.Contains(t, result, "OnlyKey")
	assert.Contains(t, result, "OnlyVal")
}

func TestKeyValueBlockMultiplePairsPreservesOrder(t *testing.T) {
	result := KeyValueBlock("Config", [][2]string{
		{"First", "AAA"},
		{"Second", "BBB"},
		{"Third", "CCC"},
	})
	idxFirst := strings.Index(result, "First")
	idxSecond := strings.Index(result, "Second")
	idxThird := strings.Index(result, "Third")
	require.Greater(t, idxFirst, -1)
	require.Greater(t, idxSecond, -1)
	require.Greater(t, idxThird, -1)
	assert.Less(t, idxFirst, idxSecond, "First should appear before Second")
	assert.Less(t, idxSecond, idxThird, "Second should appear before Third")
}

func TestKeyValueBlockHasBorder(t *testing.T) {
	result := KeyValueBlock("Bordered", [][2]string{
		{"Key", "Val"},
	})
	// lipgloss RoundedBorder uses ╭ and ╰ for corners.
	assert.Contains(t, result, "╭", "should have top-left rounded border")
	assert.Contains(t, result, "╰", "should have bottom-left rounded border")
}

// ---------------------------------------------------------------------------
// Table
// ---------------------------------------------------------------------------

func TestNewTableCreatesEmptyTable(t *testing.T) {
	cols := []Column{
		{Title: "Name", Width: 10},
		{Title: "Value", Width: 20},
	}
	tbl := NewTable(cols)
	assert.Len(t, tbl.Columns, 2)
	assert.Empty(t, tbl.Rows)
	assert.Equal(t, -1, tbl.SelIdx)
}

func TestTableAddRow(t *testing.T) {
	tbl := NewTable([]Column{{Title: "A", Width: 5}})
	tbl.AddRow(Row{"Grinder"})
	tbl.AddRow(Row{"Hunter"})
	assert.Len(t, tbl.Rows, 2)
}

func TestTableRenderContainsHeaders(t *testing.T) {
	tbl := NewTable([]Column{
		{Title: "Name", Width: 10},
		{Title: "Copiers", Width: 12},
	})
	result := tbl.Render()
	assert.Contains(t, result, "Name")
	assert.Contains(t, result, "Copiers")
}

func TestTableRenderContainsRowData(t *testing.T) {
	tbl := NewTable([]Column{
		{Title: "Agent", Width: 10},
		{Title: "Status", Width: 10},
	})
	tbl.AddRow(Row{"Momentum", "active"})
	tbl.AddRow(Row{"Reverter", "idle"})

	result := tbl.Render()
	assert.Contains(t, result, "Momentum")
	assert.Contains(t, result, "active")
	assert.Contains(t, result, "Reverter")
	assert.Contains(t, result, "idle")
}

func TestTableRenderHasDivider(t *testing.T) {
	tbl := NewTable([]Column{{Title: "Agent", Width: 8}})
	result := tbl.Render()
	assert.Contains(t, result, "────────")
}

func TestTableRenderEmptyRows(t *testing.T) {
	tbl := NewTable([]Column{
		{Title: "Header", Width: 10},
	})
	result := tbl.Render()
	assert.Contains(t, result, "Header")
	assert.NotEmpty(t, result)
}

func TestTableRenderRowShorterThanColumns(t *testing.T) {
	tbl := NewTable([]Column{
		{Title: "A", Width: 5},
		{Title: "B", Width: 5},
		{Title: "C", Width: 5},
	})
	tbl.AddRow(Row{"#3"})
	// Should not panic; missing cells render as empty.
	result := tbl.Render()
	assert.Contains(t, result, "#3")
}

func TestTableRenderPreservesRowOrder(t *testing.T) {
	tbl := NewTable([]Column{{Title: "Rank", Width: 10}})
	tbl.AddRow(Row{"🥇"})
	tbl.AddRow(Row{"🥈"})
	tbl.AddRow(Row{"🥉"})

	result := tbl.Render()
	idxFirst := strings.Index(result, "🥇")
	idxSecond := strings.Index(result, "🥈")
	idxThird := strings.Index(result, "🥉")
	assert.Less(t, idxFirst, idxSecond)
	assert.Less(t, idxSecond, idxThird)
}

func TestTableRenderSelectedRow(t *testing.T) {
	tbl := NewTable([]Column{{Title: "Name", Width: 10}})
	tbl.AddRow(Row{"Grinder"})
	tbl.AddRow(Row{"Hunter"})
	tbl.SelIdx = 1

	result := tbl.Render()
	assert.Contains(t, result, "Grinder")
	assert.Contains(t, result, "Hunter")
}

func TestTableMultipleColumns(t *testing.T) {
	tbl := NewTable([]Column{
		{Title: "Tx", Width: 14},
		{Title: "From", Width: 14},
		{Title: "Value", Width: 12},
	})
	tbl.AddRow(Row{"#2", "0x7099...79C8", "0.2500 ETH"})
	result := tbl.Render()
	assert.Contains(t, result, "Tx")
	assert.Contains(t, result, "From")
	assert.Contains(t, result, "Value")
	assert.Contains(t, result, "0.2500 ETH")
	assert.Contains(t, result, "0x7099...79C8")
}

// ---------------------------------------------------------------------------
// pad
// ---------------------------------------------------------------------------

func TestPadFillsToWidth(t *testing.T) {
	assert.Equal(t, "abc  ", pad("abc", 5))
	assert.Equal(t, "abc", pad("abc", 3))
}

func TestPadTruncatesWithEllipsis(t *testing.T) {
	out := pad("Momentum Hunter", 8)
	assert.Equal(t, "Momentu…", out)
	assert.Equal(t, 8, lipgloss.Width(out))
}

func TestPadCountsWideGlyphs(t *testing.T) {
	out := pad("🥇", 5)
	assert.Equal(t, 5, lipgloss.Width(out))
}

func TestTableDimRowStillRendered(t *testing.T) {
	tbl := NewTable([]Column{{Title: "Agent", Width: 10}})
	tbl.AddRow(Row{"busy"})
	tbl.Dim[0] = true
	assert.Contains(t, tbl.Render(), "busy")
}
