package theme

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// importRegex matches @import "file.css"; @import 'file.css'; and @import url("file.css");
var importRegex = regexp.MustCompile(`@import\s+(?:url\s*\(\s*)?["']([^"']+)["']\s*\)?;?`)

// Theme is a resolved stylesheet for the bar.
type Theme struct {
	Name    string    // Theme name (without .css extension)
	Path    string    // File the theme was read from, empty when bundled
	CSS     string    // CSS with imports inlined
	ModTime time.Time // Modification time of Path at last read
	Bundled bool
}

// ThemesDir returns the user's themes directory.
func ThemesDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "overbar", "themes"), nil
}

// NewTheme reads a theme file and inlines its imports.
func NewTheme(name, path string) (*Theme, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	css, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return &Theme{
		Name:    name,
		Path:    path,
		CSS:     ProcessImports(string(css), filepath.Dir(path), nil),
		ModTime: info.ModTime(),
	}, nil
}

// NewBundledTheme resolves an embedded theme. The second result is false
// when no bundled theme has that name.
func NewBundledTheme(name string) (*Theme, bool) {
	css, ok := GetEmbeddedTheme(name)
	if !ok {
		return nil, false
	}
	return &Theme{
		Name:    name,
		CSS:     ProcessImports(css, "", nil),
		Bundled: true,
	}, true
}

// ProcessImports inlines @import statements, resolving relative paths
// against baseDir. Files missing on disk fall back to bundled partials and
// themes. seen guards against import cycles.
func ProcessImports(css string, baseDir string, seen map[string]bool) string {
	if seen == nil {
		seen = make(map[string]bool)
	}

	return importRegex.ReplaceAllStringFunc(css, func(match string) string {
		submatch := importRegex.FindStringSubmatch(match)
		if len(submatch) < 2 {
			return match
		}
		importPath := submatch[1]

		fullPath := importPath
		if !filepath.IsAbs(importPath) {
			fullPath = filepath.Join(baseDir, importPath)
		}

		if seen[fullPath] {
			return "/* circular import prevented: " + importPath + " */"
		}
		seen[fullPath] = true

		imported, err := os.ReadFile(fullPath)
		if err != nil {
			if embedded, ok := embeddedImport(importPath); ok {
				return "/* imported (embedded): " + importPath + " */\n" + embedded
			}
			return "/* import failed: " + importPath + " - " + err.Error() + " */"
		}

		processed := ProcessImports(string(imported), filepath.Dir(fullPath), seen)
		return "/* imported: " + importPath + " */\n" + processed
	})
}

func embeddedImport(importPath string) (string, bool) {
	base := filepath.Base(importPath)
	if strings.HasPrefix(base, "_") {
		if css, ok := GetEmbeddedPartial(base); ok {
			return css, true
		}
	}
	return GetEmbeddedTheme(strings.TrimSuffix(base, ".css"))
}

// Reload re-reads the theme file if it was modified since the last read.
// Returns true if the resolved CSS changed.
func (t *Theme) Reload() (bool, error) {
	if t.Bundled || t.Path == "" {
		return false, nil
	}

	info, err := os.Stat(t.Path)
	if err != nil {
		return false, err
	}
	if !info.ModTime().After(t.ModTime) {
		return false, nil
	}

	css, err := os.ReadFile(t.Path)
	if err != nil {
		return false, err
	}

	processed := ProcessImports(string(css), filepath.Dir(t.Path), nil)
	changed := processed != t.CSS
	t.CSS = processed
	t.ModTime = info.ModTime()
	return changed, nil
}

// Info describes an available theme.
type Info struct {
	Name    string
	Path    string
	Bundled bool
}

// ListAvailableThemes lists bundled themes followed by themes found in dir.
// A user theme shadowing a bundled one is listed once, with its path.
func ListAvailableThemes(dir string) ([]Info, error) {
	var themes []Info
	index := make(map[string]int)

	for _, name := range ListEmbeddedThemes() {
		index[name] = len(themes)
		themes = append(themes, Info{Name: name, Bundled: true})
	}

	if dir == "" {
		return themes, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return themes, nil
		}
		return themes, err
	}

	for _, entry := range entries {
		file := entry.Name()
		if entry.IsDir() || strings.HasPrefix(file, "_") || filepath.Ext(file) != ".css" {
			continue
		}
		name := strings.TrimSuffix(file, ".css")
		path := filepath.Join(dir, file)
		if i, ok := index[name]; ok {
			themes[i].Path = path
			continue
		}
		index[name] = len(themes)
		themes = append(themes, Info{Name: name, Path: path})
	}

	return themes, nil
}
