package review

import (
	"fmt"
	"sort"
	"strings"
)

func sorted(files []string) []string {
	out := append([]string(nil), files...)
	sort.Strings(out)
	return out
}

// Markdown renders the report for human consumption.
func (rep *Report) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Impact Analysis: %s -> %s\n\n", rep.Source, rep.Target)
	fmt.Fprintf(&b, "**Size tier:** %s | **Files:** %d | **+%d/-%d** | **%d bytes**\n\n",
		rep.Tier, rep.Stats.FilesChanged, rep.Stats.Additions, rep.Stats.Deletions, rep.Stats.ByteSize)

	if len(rep.Results) == 0 {
		b.WriteString("No changes to review.\n")
		return b.String()
	}

	if rep.HasCriticalIssues() {
		b.WriteString("## Verdict: CRITICAL ISSUES FOUND\n\n")
	} else {
		b.WriteString("## Verdict: no critical issues\n\n")
	}

	for i, res := range rep.Results {
		if len(rep.Results) > 1 {
			fmt.Fprintf(&b, "## Unit %d: %s\n\n", i+1, res.Unit.Title)
		} else {
			fmt.Fprintf(&b, "## %s\n\n", res.Unit.Title)
		}

		fmt.Fprintf(&b, "Files: %s\n", strings.Join(res.Unit.Files, ", "))
		if res.Unit.IsDependencyGroup {
			b.WriteString("These files reference each other's changed definitions and were reviewed together.\n")
		}
		b.WriteString("\n")

		c := res.Conclusion
		if len(c.CriticalIssues) > 0 {
			b.WriteString("### Critical issues\n")
			for _, issue := range c.CriticalIssues {
				fmt.Fprintf(&b, "- %s\n", issue)
			}
			b.WriteString("\n")
		}
		if len(c.PotentialRisks) > 0 {
			b.WriteString("### Potential risks\n")
			for _, risk := range c.PotentialRisks {
				fmt.Fprintf(&b, "- %s\n", risk)
			}
			b.WriteString("\n")
		}
		if len(c.ImpactChains) > 0 {
			b.WriteString("### Impact chains\n")
			for _, chain := range c.ImpactChains {
				fmt.Fprintf(&b, "- %s\n", chain)
			}
			b.WriteString("\n")
		}
		if len(c.AffectedFeatures) > 0 {
			fmt.Fprintf(&b, "Affected features: %s\n\n", strings.Join(c.AffectedFeatures, ", "))
		}
		if c.Summary != "" {
			fmt.Fprintf(&b, "%s\n\n", c.Summary)
		}
		fmt.Fprintf(&b, "_Analysis rounds: %d_\n\n", c.TotalIterations)
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}
