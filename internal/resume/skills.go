package resume

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

// FilterSkills keeps the skills that fuzzy-match query, dropping categories left
// empty. A category whose name matches keeps all of its skills. A blank query
// returns every category unchanged.
func (r *Resume) FilterSkills(query string) []SkillCategory {
	query = strings.TrimSpace(query)
	if query == "" {
		return r.Skills
	}

	var out []SkillCategory
	for _, cat := range r.Skills {
		if len(fuzzy.Find(query, []string{cat.Name})) > 0 {
			out = append(out, cat)
			continue
		}
		matches := fuzzy.Find(query, cat.Skills)
		if len(matches) == 0 {
			continue
		}
		// keep document order rather than score order
		sort.Slice(matches, func(i, j int) bool { return matches[i].Index < matches[j].Index })
		kept := make([]string, len(matches))
		for i, m := range matches {
			kept[i] = cat.Skills[m.Index]
		}
		out = append(out, SkillCategory{Name: cat.Name, Skills: kept})
	}
	return out
}

// SkillCount is the number of skills across all categories.
func (r *Resume) SkillCount() int { return CountSkills(r.Skills) }

func CountSkills(cats []SkillCategory) int {
	n := 0
	for _, cat := range cats {
		n += len(cat.Skills)
	}
	return n
}
