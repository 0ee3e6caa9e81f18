package apps

import (
	"os"
	"path/filepath"
	"strings"
)

// iconSizes are tried largest first so downscaling to 96px keeps detail.
var iconSizes = []string{"256x256", "192x192", "128x128", "96x96", "64x64", "48x48", "32x32"}

// iconResolver finds raster icon files in the themes under dataDirs. SVG
// icons are not rasterised; those apps get a placeholder.
type iconResolver struct {
	themes   []string
	dataDirs []string
}

func newIconResolver(theme string, dataDirs []string) *iconResolver {
	themes := []string{"hicolor"}
	if theme != "" && theme != "hicolor" {
		themes = append([]string{theme}, themes...)
	}
	return &iconResolver{themes: themes, dataDirs: dataDirs}
}

func (r *iconResolver) lookup(name string) string {
	if name == "" {
		return ""
	}
	if filepath.IsAbs(name) {
		if raster(name) && exists(name) {
			return name
		}
		return ""
	}

	for _, base := range r.dataDirs {
		for _, theme := range r.themes {
			for _, size := range iconSizes {
				p := filepath.Join(base, "icons", theme, size, "apps", name+".png")
				if exists(p) {
					return p
				}
			}
		}
	}
	for _, base := range r.dataDirs {
		p := filepath.Join(base, "pixmaps", name+".png")
		if exists(p) {
			return p
		}
	}
	return ""
}

func raster(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

func exists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
