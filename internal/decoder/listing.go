package decoder

import (
	"html"
	"strings"

	"github.com/MichalMitros/evend-publisher/internal/platform/models"
)

// columnSetters maps normalized CSV header names to listing fields.
// image_url is the column written by eBay exports.
var columnSetters = map[string]func(l *models.Listing, value string){
	"sku":          func(l *models.Listing, v string) { l.SKU = v },
	"type_annonce": func(l *models.Listing, v string) { l.AdType = v },
	"categorie":    func(l *models.Listing, v string) { l.Category = html.UnescapeString(v) },
	"titre":        func(l *models.Listing, v string) { l.Title = html.UnescapeString(v) },
	"description":  func(l *models.Listing, v string) { l.Description = html.UnescapeString(v) },
	"condition":    func(l *models.Listing, v string) { l.Condition = v },
	"retour":       func(l *models.Listing, v string) { l.Returns = v },
	"garantie":     func(l *models.Listing, v string) { l.Warranty = v },
	"prix":         func(l *models.Listing, v string) { l.Price = v },
	"stock":        func(l *models.Listing, v string) { l.Stock = v },
	"photo_defaut": func(l *models.Listing, v string) { l.ImageURLs = splitImageURLs(v) },
}

// header maps column indexes to setters.
type header map[int]func(l *models.Listing, value string)

func newHeader(record []string) header {
	h := make(header)
	hasPhoto := false
	imageURLColumn := -1

	for ix, name := range record {
		name = normalizeColumn(name)
		if name == "image_url" {
			imageURLColumn = ix
			continue
		}
		if setter, ok := columnSetters[name]; ok {
			h[ix] = setter
			hasPhoto = hasPhoto || name == "photo_defaut"
		}
	}

	if !hasPhoto && imageURLColumn >= 0 {
		h[imageURLColumn] = columnSetters["photo_defaut"]
	}

	return h
}

func (h header) toListing(index int, record []string) models.Listing {
	listing := models.Listing{Index: index}
	for ix, setter := range h {
		if ix < len(record) {
			setter(&listing, strings.TrimSpace(record[ix]))
		}
	}

	return listing
}

func normalizeColumn(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	return strings.ToLower(strings.TrimSpace(name))
}

// splitImageURLs splits a cell holding image URLs separated by commas or semicolons.
func splitImageURLs(cell string) []string {
	fields := strings.FieldsFunc(cell, func(r rune) bool { return r == ',' || r == ';' })

	urls := make([]string, 0, len(fields))
	for _, field := range fields {
		if field = strings.TrimSpace(field); field != "" {
			urls = append(urls, field)
		}
	}

	if len(urls) == 0 {
		return nil
	}

	return urls
}
