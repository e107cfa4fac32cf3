package partition

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"diffscope/internal/search"
	"diffscope/internal/types"
)

// Partitioner groups a diff's changed files into independently reviewable
// submission units. Files whose changed definitions reference each other
// always land in the same unit; everything else is balanced by size.
type Partitioner struct {
	targetUnitSize int
	chunkSize      int
	log            *slog.Logger
}

func New(targetUnitSize, chunkSize int, log *slog.Logger) *Partitioner {
	if targetUnitSize <= 0 {
		targetUnitSize = 50000
	}
	if chunkSize <= 0 {
		chunkSize = 5
	}
	if log == nil {
		log = slog.Default()
	}
	return &Partitioner{targetUnitSize: targetUnitSize, chunkSize: chunkSize, log: log}
}

// changedDef is a definition whose declaration appears on an added or
// deleted diff line.
type changedDef struct {
	Name string
	Kind string
}

// Declaration shapes across the supported languages. First group is the
// definition name.
var declPatterns = []struct {
	re   *regexp.Regexp
	kind string
}{
	{regexp.MustCompile(`^\s*func\s+(?:\([^)]*\)\s*)?([A-Za-z_]\w*)\s*[(\[]`), "function"},
	{regexp.MustCompile(`^\s*(?:async\s+)?def\s+([A-Za-z_]\w*)\s*\(`), "function"},
	{regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+([A-Za-z_]\w*)`), "class"},
	{regexp.MustCompile(`^\s*(?:export\s+)?interface\s+([A-Za-z_]\w*)`), "interface"},
	{regexp.MustCompile(`^\s*(?:typedef\s+)?struct\s+([A-Za-z_]\w*)\b`), "struct"},
	{regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?function\s*\*?\s*([A-Za-z_]\w*)\s*\(`), "function"},
	{regexp.MustCompile(`^\s*(?:public|private|protected)\s+(?:static\s+)?(?:final\s+)?[\w<>\[\],\s]+\s+([A-Za-z_]\w*)\s*\(`), "method"},
	{regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+([A-Za-z_]\w*)\s*=\s*(?:async\s+)?(?:function\b|\()`), "function"},
}

// Control-flow keywords the declaration regexes can false-positive on.
var declKeywords = map[string]bool{
	"if": true, "else": true, "for": true, "while": true, "switch": true,
	"catch": true, "return": true, "do": true, "try": true, "with": true,
}

// Partition splits the per-file diffs into submission units. It always
// returns a valid partition of the changed files; degenerate groupings
// cascade through directory grouping and fixed-size chunking.
func (p *Partitioner) Partition(perFileDiff map[string]string) []types.SubmissionUnit {
	files := make([]string, 0, len(perFileDiff))
	for f := range perFileDiff {
		files = append(files, f)
	}
	sort.Strings(files)

	if len(files) == 0 {
		return nil
	}
	if len(files) == 1 {
		return []types.SubmissionUnit{p.makeUnit(titleFor(files), files, perFileDiff, false)}
	}

	groups := p.dependencyGroups(files, perFileDiff)

	// A single component covering every file cannot be split further.
	if len(groups) == 1 {
		g := groups[0]
		return []types.SubmissionUnit{p.makeUnit(titleFor(g), g, perFileDiff, len(g) > 1)}
	}

	units := p.packGroups(groups, perFileDiff)
	if len(units) > 1 {
		return units
	}

	p.log.Debug("partition collapsed to one unit, retrying by directory")
	units = p.byDirectory(groups, perFileDiff)
	if len(units) > 1 {
		return units
	}

	p.log.Debug("directory grouping collapsed, falling back to chunking")
	return p.chunk(groups, perFileDiff)
}

// dependencyGroups connects files whose added lines reference another
// file's changed definitions, then returns the connected components.
func (p *Partitioner) dependencyGroups(files []string, perFileDiff map[string]string) [][]string {
	defsByFile := make(map[string][]changedDef, len(files))
	addedByFile := make(map[string][]string, len(files))
	for _, f := range files {
		defsByFile[f] = changedDefinitions(perFileDiff[f])
		addedByFile[f] = addedLines(perFileDiff[f])
	}

	uf := newUnionFind(files)
	for _, a := range files {
		for _, def := range defsByFile[a] {
			res := compilePatterns(def)
			for _, b := range files {
				if b == a {
					continue
				}
				if matchesAny(res, addedByFile[b]) {
					p.log.Debug("dependency edge",
						"definition", def.Name, "declared_in", a, "referenced_by", b)
					uf.Union(a, b)
				}
			}
		}
	}
	return uf.Groups()
}

// changedDefinitions scans added and deleted diff lines for declaration
// shapes. Each name is reported once per file.
func changedDefinitions(diffText string) []changedDef {
	seen := make(map[string]bool)
	var defs []changedDef

	for _, line := range strings.Split(diffText, "\n") {
		if len(line) == 0 || (line[0] != '+' && line[0] != '-') {
			continue
		}
		if strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---") {
			continue
		}
		content := line[1:]
		for _, dp := range declPatterns {
			m := dp.re.FindStringSubmatch(content)
			if m == nil {
				continue
			}
			name := m[1]
			if declKeywords[name] || seen[name] {
				break
			}
			seen[name] = true
			defs = append(defs, changedDef{Name: name, Kind: dp.kind})
			break
		}
	}
	return defs
}

func addedLines(diffText string) []string {
	var lines []string
	for _, line := range strings.Split(diffText, "\n") {
		if strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++") {
			lines = append(lines, line[1:])
		}
	}
	return lines
}

func compilePatterns(def changedDef) []*regexp.Regexp {
	var res []*regexp.Regexp
	for _, pat := range search.Patterns(types.SymbolQuery{Name: def.Name, Kind: def.Kind}) {
		re, err := regexp.Compile(pat)
		if err != nil {
			continue
		}
		res = append(res, re)
	}
	return res
}

func matchesAny(res []*regexp.Regexp, lines []string) bool {
	for _, line := range lines {
		for _, re := range res {
			if re.MatchString(line) {
				return true
			}
		}
	}
	return false
}

// packGroups turns components into units: multi-file components verbatim,
// singletons merged or first-fit-decreasing packed under the target size.
func (p *Partitioner) packGroups(groups [][]string, perFileDiff map[string]string) []types.SubmissionUnit {
	var units []types.SubmissionUnit
	var singletons []string

	for _, g := range groups {
		if len(g) > 1 {
			units = append(units, p.makeUnit(titleFor(g), g, perFileDiff, true))
		} else {
			singletons = append(singletons, g[0])
		}
	}

	if len(singletons) == 0 {
		return units
	}

	total := 0
	for _, f := range singletons {
		total += len(perFileDiff[f])
	}
	if total <= p.targetUnitSize {
		return append(units, p.makeUnit(titleFor(singletons), singletons, perFileDiff, false))
	}

	return append(units, p.binPack(singletons, perFileDiff)...)
}

// binPack places singleton files first-fit-decreasing into units with
// headroom under the target byte size.
func (p *Partitioner) binPack(files []string, perFileDiff map[string]string) []types.SubmissionUnit {
	sorted := append([]string(nil), files...)
	sort.Slice(sorted, func(i, j int) bool {
		si, sj := len(perFileDiff[sorted[i]]), len(perFileDiff[sorted[j]])
		if si != sj {
			return si > sj
		}
		return sorted[i] < sorted[j]
	})

	var bins [][]string
	var binSizes []int
	for _, f := range sorted {
		size := len(perFileDiff[f])
		placed := false
		for i := range bins {
			if binSizes[i]+size <= p.targetUnitSize {
				bins[i] = append(bins[i], f)
				binSizes[i] += size
				placed = true
				break
			}
		}
		if !placed {
			bins = append(bins, []string{f})
			binSizes = append(binSizes, size)
		}
	}

	units := make([]types.SubmissionUnit, 0, len(bins))
	for _, bin := range bins {
		sort.Strings(bin)
		units = append(units, p.makeUnit(titleFor(bin), bin, perFileDiff, false))
	}
	return units
}

// byDirectory regroups by directory: a multi-file component joins the
// directory holding most of its files and is never split; singletons join
// their own directory.
func (p *Partitioner) byDirectory(groups [][]string, perFileDiff map[string]string) []types.SubmissionUnit {
	type dirGroup struct {
		files    []string
		depGroup bool
	}
	byDir := make(map[string]*dirGroup)

	place := func(dir string, files []string, dep bool) {
		dg, ok := byDir[dir]
		if !ok {
			dg = &dirGroup{}
			byDir[dir] = dg
		}
		dg.files = append(dg.files, files...)
		dg.depGroup = dg.depGroup || dep
	}

	for _, g := range groups {
		if len(g) == 1 {
			place(filepath.Dir(g[0]), g, false)
			continue
		}
		place(majorityDir(g), g, true)
	}

	dirs := make([]string, 0, len(byDir))
	for d := range byDir {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	units := make([]types.SubmissionUnit, 0, len(dirs))
	for _, d := range dirs {
		dg := byDir[d]
		sort.Strings(dg.files)
		title := fmt.Sprintf("Directory %s (%d files)", d, len(dg.files))
		units = append(units, p.makeUnit(title, dg.files, perFileDiff, dg.depGroup))
	}
	return units
}

func majorityDir(files []string) string {
	counts := make(map[string]int)
	for _, f := range files {
		counts[filepath.Dir(f)]++
	}
	best, bestCount := "", -1
	for d, c := range counts {
		if c > bestCount || (c == bestCount && d < best) {
			best, bestCount = d, c
		}
	}
	return best
}

// chunk is the final resort: fixed-size chunks of files, with multi-file
// components kept whole as single atoms.
func (p *Partitioner) chunk(groups [][]string, perFileDiff map[string]string) []types.SubmissionUnit {
	var units []types.SubmissionUnit
	var current []string
	currentDep := false
	n := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		sort.Strings(current)
		n++
		title := fmt.Sprintf("Chunk %d (%d files)", n, len(current))
		units = append(units, p.makeUnit(title, current, perFileDiff, currentDep))
		current = nil
		currentDep = false
	}

	for _, g := range groups {
		if len(current) > 0 && len(current)+len(g) > p.chunkSize {
			flush()
		}
		current = append(current, g...)
		currentDep = currentDep || len(g) > 1
	}
	flush()

	return units
}

func (p *Partitioner) makeUnit(title string, files []string, perFileDiff map[string]string, depGroup bool) types.SubmissionUnit {
	sorted := append([]string(nil), files...)
	sort.Strings(sorted)

	var b strings.Builder
	for _, f := range sorted {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(perFileDiff[f])
	}
	text := b.String()

	return types.SubmissionUnit{
		Title:             title,
		Files:             sorted,
		DiffText:          text,
		ByteSize:          len(text),
		IsDependencyGroup: depGroup,
	}
}

func titleFor(files []string) string {
	if len(files) == 1 {
		return filepath.Base(files[0])
	}
	if len(files) <= 3 {
		bases := make([]string, len(files))
		for i, f := range files {
			bases[i] = filepath.Base(f)
		}
		return strings.Join(bases, ", ")
	}
	return fmt.Sprintf("%s and %d more", filepath.Base(files[0]), len(files)-1)
}
