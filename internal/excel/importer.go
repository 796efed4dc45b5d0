package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"
	"github.com/xuri/excelize/v2"

	"github.com/example/lawstudy/internal/content"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath         string // Path to the Excel or CSV file
	SubjectColumn    string // Column with the subject id
	CategoryColumn   string // Column with the category label
	ParentColumn     string // Column with the parent topic id, empty for top level topics
	IDColumn         string // Column with the topic id
	TitleColumn      string // Column with the title
	RuleColumn       string // Column with the black letter rule
	ElementsColumn   string // Column with the elements, separated by ElementSeparator
	MnemonicColumn   string // Column with the mnemonic
	DifficultyColumn string // Column with the difficulty (1-3)
	ElementSeparator string
	SheetName        string // Name of the sheet to import
	StartRow         int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		SubjectColumn:    "A",
		CategoryColumn:   "B",
		ParentColumn:     "C",
		IDColumn:         "D",
		TitleColumn:      "E",
		RuleColumn:       "F",
		ElementsColumn:   "G",
		MnemonicColumn:   "H",
		DifficultyColumn: "I",
		ElementSeparator: ";",
		SheetName:        "Sheet1",
		StartRow:         2, // By default, start from the second row (skip header)
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed  int
	SubjectsCreated int
	Created         int
	Skipped         int
	Errors          []string
}

// TopicRow is one topic as it appears in a spreadsheet
type TopicRow struct {
	Row        int
	Subject    string
	Category   string
	ParentID   string
	ID         string
	Title      string
	Rule       string
	Elements   []string
	Mnemonic   string
	Difficulty int
}

// ImportContent reads topics from an Excel or CSV file and assembles them
// into a content tree. Rows that cannot be placed are reported in the result
// and left out of the tree.
func ImportContent(config ImportConfig) (content.Content, *ImportResult, error) {
	var (
		rows [][]string
		err  error
	)
	if strings.ToLower(filepath.Ext(config.FilePath)) == ".csv" {
		rows, err = readCSV(config.FilePath)
	} else {
		rows, err = readExcel(config.FilePath, config.SheetName)
	}
	if err != nil {
		return content.Content{}, nil, err
	}

	cols, err := resolveColumns(config)
	if err != nil {
		return content.Content{}, nil, err
	}

	result := &ImportResult{Errors: make([]string, 0)}
	var parsed []TopicRow
	for i, row := range rows {
		// Skip header rows
		if i < config.StartRow-1 {
			continue
		}
		if isBlank(row) {
			continue
		}
		result.TotalProcessed++

		topic, err := parseRow(row, cols, config.ElementSeparator, i+1)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}
		parsed = append(parsed, topic)
	}

	return Build(parsed, result), result, nil
}

// readExcel returns every row of the sheet
func readExcel(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %v", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %v", err)
	}
	return rows, nil
}

// readCSV returns every record of the file
func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %v", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %v", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

type columns struct {
	subject, category, parent, id, title, rule, elements, mnemonic, difficulty int
}

// resolveColumns turns column letters into zero-based indexes. An empty
// letter maps to -1.
func resolveColumns(config ImportConfig) (columns, error) {
	index := func(letter string) (int, error) {
		if strings.TrimSpace(letter) == "" {
			return -1, nil
		}
		n, err := excelize.ColumnNameToNumber(strings.TrimSpace(letter))
		if err != nil {
			return 0, fmt.Errorf("invalid column %q: %w", letter, err)
		}
		return n - 1, nil
	}

	var c columns
	targets := []struct {
		letter string
		dst    *int
	}{
		{config.SubjectColumn, &c.subject},
		{config.CategoryColumn, &c.category},
		{config.ParentColumn, &c.parent},
		{config.IDColumn, &c.id},
		{config.TitleColumn, &c.title},
		{config.RuleColumn, &c.rule},
		{config.ElementsColumn, &c.elements},
		{config.MnemonicColumn, &c.mnemonic},
		{config.DifficultyColumn, &c.difficulty},
	}
	for _, t := range targets {
		idx, err := index(t.letter)
		if err != nil {
			return columns{}, err
		}
		*t.dst = idx
	}
	if c.subject < 0 || c.id < 0 || c.title < 0 {
		return columns{}, fmt.Errorf("subject, id and title columns are required")
	}
	return c, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// parseRow extracts a single topic
func parseRow(row []string, cols columns, sep string, rowNum int) (TopicRow, error) {
	topic := TopicRow{
		Row:        rowNum,
		Subject:    strings.ToLower(cell(row, cols.subject)),
		Category:   cell(row, cols.category),
		ParentID:   cell(row, cols.parent),
		ID:         cell(row, cols.id),
		Title:      cell(row, cols.title),
		Rule:       cell(row, cols.rule),
		Elements:   splitElements(cell(row, cols.elements), sep),
		Mnemonic:   cell(row, cols.mnemonic),
		Difficulty: parseIntOrDefault(cell(row, cols.difficulty), 1, 3, 2),
	}

	if topic.Subject == "" {
		return TopicRow{}, fmt.Errorf("subject cannot be empty")
	}
	if topic.ID == "" {
		return TopicRow{}, fmt.Errorf("id cannot be empty")
	}
	if topic.Title == "" {
		return TopicRow{}, fmt.Errorf("title cannot be empty")
	}
	if topic.ParentID == "" && topic.Category == "" {
		return TopicRow{}, fmt.Errorf("top level topic %q needs a category", topic.ID)
	}
	return topic, nil
}

func splitElements(s, sep string) []string {
	if s == "" {
		return nil
	}
	if sep == "" {
		sep = ";"
	}
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Helper function to parse integer with default value
func parseIntOrDefault(s string, min, max, defaultVal int) int {
	val, err := cast.ToIntE(s)
	if err != nil || s == "" {
		return defaultVal
	}
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

type node struct {
	row      TopicRow
	children []*node
}

type category struct {
	label string
	nodes []*node
}

type subject struct {
	id         string
	categories []*category
	byLabel    map[string]*category
}

// Build arranges rows into a tree in row order. Children may appear before
// their parents. Duplicate ids, unknown parents and parents from another
// subject are recorded in result and skipped.
func Build(rows []TopicRow, result *ImportResult) content.Content {
	if result == nil {
		result = &ImportResult{}
	}
	nodes := make(map[string]*node, len(rows))
	var ordered []*node
	for _, r := range rows {
		if _, dup := nodes[r.ID]; dup {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: duplicate id %q", r.Row, r.ID))
			continue
		}
		n := &node{row: r}
		nodes[r.ID] = n
		ordered = append(ordered, n)
	}

	var subjects []*subject
	bySubject := make(map[string]*subject)
	subjectFor := func(id string) *subject {
		s, ok := bySubject[id]
		if !ok {
			s = &subject{id: id, byLabel: make(map[string]*category)}
			bySubject[id] = s
			subjects = append(subjects, s)
			result.SubjectsCreated++
		}
		return s
	}

	rejected := make(map[*node]bool)
	for _, n := range ordered {
		if n.row.ParentID == "" {
			s := subjectFor(n.row.Subject)
			c, ok := s.byLabel[n.row.Category]
			if !ok {
				c = &category{label: n.row.Category}
				s.byLabel[n.row.Category] = c
				s.categories = append(s.categories, c)
			}
			c.nodes = append(c.nodes, n)
			continue
		}

		parent, ok := nodes[n.row.ParentID]
		rejected[n] = true
		switch {
		case !ok:
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: unknown parent %q", n.row.Row, n.row.ParentID))
			continue
		case parent.row.Subject != n.row.Subject:
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: parent %q belongs to %s", n.row.Row, n.row.ParentID, parent.row.Subject))
			continue
		case parent == n:
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: topic is its own parent", n.row.Row))
			continue
		}
		delete(rejected, n)
		parent.children = append(parent.children, n)
	}

	placed := make(map[*node]bool, len(ordered))
	var out content.Content
	for _, s := range subjects {
		subj := content.Subject{ID: s.id, Name: subjectName(s.id)}
		for _, c := range s.categories {
			cat := content.Category{Key: slug(c.label), Name: c.label, Label: c.label}
			for _, n := range c.nodes {
				cat.Topics = append(cat.Topics, toNode(n, s.id, placed))
			}
			subj.Categories = append(subj.Categories, cat)
		}
		out.Subjects = append(out.Subjects, subj)
	}

	for _, n := range ordered {
		if placed[n] {
			result.Created++
			continue
		}
		if !rejected[n] {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %q never reaches a top level topic", n.row.Row, n.row.ID))
		}
	}
	return out
}

// toNode converts a subtree and marks every node it places
func toNode(n *node, subjectID string, placed map[*node]bool) content.Node {
	placed[n] = true
	out := content.Node{
		Key:        strings.TrimPrefix(n.row.ID, subjectID+"_"),
		ID:         n.row.ID,
		Title:      n.row.Title,
		Rule:       n.row.Rule,
		Elements:   n.row.Elements,
		Mnemonic:   n.row.Mnemonic,
		Difficulty: n.row.Difficulty,
	}
	for _, child := range n.children {
		out.Subtopics = append(out.Subtopics, toNode(child, subjectID, placed))
	}
	return out
}

func subjectName(id string) string {
	words := strings.FieldsFunc(id, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func slug(label string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(label) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			underscore = false
		case b.Len() > 0 && !underscore:
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
