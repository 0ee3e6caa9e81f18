package apps

import (
	"bufio"
	"io"
	"strings"
)

// entry is the subset of a desktop entry the catalog looks at.
type entry struct {
	Type       string
	Name       string
	Exec       string
	Icon       string
	Categories []string
	NoDisplay  bool
	Hidden     bool
}

// launchable reports whether e is a visible application that can be run.
func (e entry) launchable() bool {
	return e.Type == "Application" && !e.NoDisplay && !e.Hidden && e.Exec != "" && e.Name != ""
}

func (e entry) hasCategory(c string) bool {
	for _, have := range e.Categories {
		if have == c {
			return true
		}
	}
	return false
}

// parseEntry reads the [Desktop Entry] group. Other groups, localized keys
// and comments are ignored.
func parseEntry(r io.Reader) (entry, error) {
	var e entry
	inGroup := false

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			inGroup = line == "[Desktop Entry]"
			continue
		}
		if !inGroup {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "Type":
			e.Type = value
		case "Name":
			e.Name = value
		case "Exec":
			e.Exec = value
		case "Icon":
			e.Icon = value
		case "Categories":
			for _, c := range strings.Split(value, ";") {
				if c = strings.TrimSpace(c); c != "" {
					e.Categories = append(e.Categories, c)
				}
			}
		case "NoDisplay":
			e.NoDisplay = value == "true"
		case "Hidden":
			e.Hidden = value == "true"
		}
	}
	return e, sc.Err()
}
