package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"gmark/internal/query"
)

// FormatStats renders workload statistics and label coverage as markdown
// tables.
func FormatStats(name string, st query.Stats, coverage []query.LabelUse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### %s\n\n", name)
	fmt.Fprintf(&b, "_%d queries, %d conjuncts (%d starred), diameter avg %.2f max %d_\n\n",
		st.Queries, st.Conjuncts, st.Starred, st.AvgDiameter, st.MaxDiameter)

	var rows [][]string
	for _, k := range query.SortedKeys(st.ByShape) {
		rows = append(rows, []string{"shape", k, strconv.Itoa(st.ByShape[k])})
	}
	for _, k := range query.SortedKeys(st.BySelectivity) {
		rows = append(rows, []string{"selectivity", k, strconv.Itoa(st.BySelectivity[k])})
	}
	for _, k := range query.SortedKeys(st.ByArity) {
		rows = append(rows, []string{"arity", strconv.Itoa(k), strconv.Itoa(st.ByArity[k])})
	}
	for _, k := range query.SortedKeys(st.ByConjuncts) {
		rows = append(rows, []string{"conjuncts", strconv.Itoa(k), strconv.Itoa(st.ByConjuncts[k])})
	}
	writeTable(&b, []string{"dimension", "value", "queries"}, rows)

	if len(coverage) > 0 {
		b.WriteString("\n")
		rows = rows[:0]
		for _, u := range coverage {
			rows = append(rows, []string{u.Alias, strconv.Itoa(u.Forward), strconv.Itoa(u.Inverse)})
		}
		writeTable(&b, []string{"label", "forward", "inverse"}, rows)
	}
	return b.String()
}

func writeTable(b *strings.Builder, header []string, rows [][]string) {
	alignment := make([]tw.Align, len(header))
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}
	table := tablewriter.NewTable(b,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header(header)
	for _, row := range rows {
		table.Append(row)
	}
	table.Render()
}

// FormatRun renders one row per workload summary.
func FormatRun(summaries []Summary) string {
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		status := "ok"
		if s.Error != "" {
			status = s.Error
		}
		v := s.Verification
		rows = append(rows, []string{
			s.Workload,
			s.Language,
			fmt.Sprintf("%d/%d", s.Generated, s.Requested),
			strconv.FormatInt(s.Builder.Attempts, 10),
			fmt.Sprintf("%d/%d", v.Parsed-v.ParseFailed, v.Parsed),
			fmt.Sprintf("%d/%d", v.Explained-v.ExplainFailed, v.Explained),
			strconv.FormatInt(s.ElapsedMs, 10),
			status,
		})
	}
	var b strings.Builder
	writeTable(&b, []string{"workload", "language", "generated", "attempts", "parsed", "explained", "ms", "status"}, rows)
	return b.String()
}
