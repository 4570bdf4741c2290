package batch

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// maxListedFailures bounds the per-category failure ids printed in the
// final summary; the full lists live in the JSON report.
const maxListedFailures = 10

var (
	sumTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	sumOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	sumFailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	sumMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// RenderSummary formats the end-of-run report. With styled=false (logs,
// redirected output) the same text is emitted without ANSI sequences.
func RenderSummary(report RunReport, styled bool) string {
	title := func(s string) string { return s }
	ok := title
	fail := title
	muted := title
	if styled {
		title = func(s string) string { return sumTitleStyle.Render(s) }
		ok = func(s string) string { return sumOKStyle.Render(s) }
		fail = func(s string) string { return sumFailStyle.Render(s) }
		muted = func(s string) string { return sumMutedStyle.Render(s) }
	}

	succeeded, skipped, failedDL, failedProc := report.Totals()
	processed := succeeded + skipped + failedDL + failedProc
	elapsed := report.FinishedAt.Sub(report.StartedAt)

	var b strings.Builder
	b.WriteString(title("run summary"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  total time      %s\n", elapsed.Round(time.Second)))
	b.WriteString(fmt.Sprintf("  processed       %d\n", processed))
	b.WriteString(fmt.Sprintf("  %s       %d\n", ok("succeeded"), succeeded))
	b.WriteString(fmt.Sprintf("  skipped         %d\n", skipped))
	b.WriteString(fmt.Sprintf("  %s %d download, %d processing\n", fail("failed         "), failedDL, failedProc))

	if processed > 0 {
		rate := float64(succeeded+skipped) / float64(processed) * 100
		b.WriteString(fmt.Sprintf("  success rate    %.1f%%\n", rate))
		b.WriteString(fmt.Sprintf("  avg per scene   %.1fs\n", elapsed.Seconds()/float64(processed)))
	}

	var dlFails, procFails []string
	for _, w := range report.Waves {
		dlFails = append(dlFails, w.FailedDownloads...)
		procFails = append(procFails, w.FailedProcessing...)
	}
	writeFailureList(&b, "download failures", dlFails, fail)
	writeFailureList(&b, "processing failures", procFails, fail)

	if len(report.RemovedPermanently) > 0 {
		b.WriteString(fmt.Sprintf("  removed from disk: %s\n", strings.Join(truncateList(report.RemovedPermanently), ", ")))
	}
	if report.Interrupted {
		b.WriteString(muted("  interrupted: re-run the same command to resume; completed scenes will be skipped\n"))
	}
	if report.ReportPath != "" {
		b.WriteString(muted(fmt.Sprintf("  full report: %s\n", report.ReportPath)))
	}
	return b.String()
}

func writeFailureList(b *strings.Builder, label string, ids []string, style func(string) string) {
	if len(ids) == 0 {
		return
	}
	b.WriteString(fmt.Sprintf("  %s: %s\n", style(label), strings.Join(truncateList(ids), ", ")))
}

func truncateList(ids []string) []string {
	if len(ids) <= maxListedFailures {
		return ids
	}
	out := append([]string(nil), ids[:maxListedFailures]...)
	return append(out, fmt.Sprintf("+%d more", len(ids)-maxListedFailures))
}
