package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"blac/config"
	"blac/model"
	"blac/ocr"
)

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true, ".webp": true,
}

// imageSuggestions lists image files in the directory of the typed path,
// best fuzzy matches of the typed file name first.
func imageSuggestions(input string, limit int) []string {
	raw := strings.TrimSpace(input)
	input = config.ExpandPath(raw)
	if strings.HasSuffix(raw, "/") && !strings.HasSuffix(input, "/") {
		input += "/"
	}
	dir, base := filepath.Split(input)
	if dir == "" {
		dir = "."
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var picked []string
	if base == "" {
		picked = names
	} else {
		for _, m := range fuzzy.Find(base, names) {
			picked = append(picked, m.Str)
		}
	}
	if limit > 0 && len(picked) > limit {
		picked = picked[:limit]
	}

	out := make([]string, len(picked))
	for i, name := range picked {
		if dir == "." {
			out[i] = name
		} else {
			out[i] = filepath.Join(dir, name)
		}
	}
	return out
}

// loadAttachment decodes an image file into an attachment carrying pixels.
func loadAttachment(path string) (model.ImageAttachment, error) {
	path = config.ExpandPath(strings.TrimSpace(path))
	if path == "" {
		return model.ImageAttachment{}, fmt.Errorf("no file given")
	}
	img, err := ocr.LoadImage(path)
	if err != nil {
		return model.ImageAttachment{}, err
	}
	return model.ImageAttachment{Source: path, Pixels: img}, nil
}
