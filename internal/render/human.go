package render

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/membrowse/membrowse/internal/analysis"
)

// Human renders a report as a terminal memory-layout summary: one line per
// region with range, size, usage and utilization, followed by unmapped
// sections and any collected warnings.
func Human(report *analysis.Report, elfPath string) string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Memory Layout"))
	b.WriteString("\n")
	b.WriteString(SubtitleStyle.Render(fmt.Sprintf("%s (%s)", elfPath, report.Architecture)))
	b.WriteString("\n\n")

	nameWidth := 10
	for _, usage := range report.Regions {
		if len(usage.Region.Name) > nameWidth {
			nameWidth = len(usage.Region.Name)
		}
	}

	for _, usage := range report.Regions {
		region := usage.Region
		if region.Name == analysis.UnmappedRegion {
			continue
		}

		line := fmt.Sprintf("  %-*s  0x%08x - 0x%08x  %10s  used %10s  ",
			nameWidth, region.Name,
			region.Origin, region.End()-1,
			humanize.IBytes(region.Length),
			humanize.IBytes(usage.Used))
		b.WriteString(RegionNameStyle.Render(fmt.Sprintf("  %-*s", nameWidth, region.Name)))
		b.WriteString(line[2+nameWidth:])
		b.WriteString(UtilizationStyle(usage.Utilization).Render(
			fmt.Sprintf("%6.2f%%", usage.Utilization)))
		if region.Parent != "" {
			b.WriteString(MutedStyle.Render(fmt.Sprintf("  (in %s)", region.Parent)))
		}
		if region.Auto {
			b.WriteString(MutedStyle.Render("  (auto)"))
		}
		b.WriteString("\n")

		for _, name := range usage.Sections {
			b.WriteString(MutedStyle.Render(fmt.Sprintf("  %-*s    %s", nameWidth, "", name)))
			b.WriteString("\n")
		}
	}

	if unmapped := unmappedUsage(report); unmapped != nil {
		b.WriteString("\n")
		b.WriteString(WarningStyle.Render("Unmapped sections:"))
		b.WriteString("\n")
		for _, name := range unmapped.Sections {
			b.WriteString(fmt.Sprintf("  %s\n", name))
		}
	}

	if len(report.Warnings) > 0 {
		b.WriteString("\n")
		b.WriteString(WarningStyle.Render(fmt.Sprintf("%d warning(s):", len(report.Warnings))))
		b.WriteString("\n")
		for _, w := range report.Warnings {
			b.WriteString(fmt.Sprintf("  %s\n", w))
		}
	}

	return b.String()
}

func unmappedUsage(report *analysis.Report) *analysis.RegionUsage {
	for _, usage := range report.Regions {
		if usage.Region.Name == analysis.UnmappedRegion {
			return usage
		}
	}
	return nil
}
