package persistence

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gastos/internal/core"
)

// SeedFile is the file name LoadCategorySeed looks for.
const SeedFile = "seed_categories.txt"

// LoadCategorySeed reads the category set new users start with from
// dir/seed_categories.txt. Each line is "name|color|icon"; color and icon are
// optional, blank lines and lines starting with # are skipped and repeated
// names (case-insensitive) keep the first occurrence. When dir is empty, the
// file is missing or yields nothing, the built-in defaults are returned.
func LoadCategorySeed(dir string) []core.Category {
	if dir == "" {
		return core.DefaultCategories()
	}
	f, err := os.Open(filepath.Join(dir, SeedFile))
	if err != nil {
		return core.DefaultCategories()
	}
	defer f.Close()

	var out []core.Category
	seen := map[string]struct{}{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "|", 3)
		name := strings.TrimSpace(parts[0])
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		c := core.Category{ID: strconv.Itoa(len(out) + 1), Name: name, Color: "#64748B"}
		if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
			c.Color = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 {
			c.Icon = strings.TrimSpace(parts[2])
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return core.DefaultCategories()
	}
	return out
}
