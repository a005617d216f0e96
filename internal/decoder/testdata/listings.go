package testdata

import "github.com/MichalMitros/evend-publisher/internal/platform/models"

// Listings are listings decoded from listings.csv.
var Listings = []models.Listing{
	{
		Index:       0,
		AdType:      "Vente classique",
		Category:    "Électronique",
		Title:       "Casque audio",
		Description: "Casque sans fil, très bon son",
		Condition:   "Neuf",
		Returns:     "Oui",
		Warranty:    "Non",
		Price:       "49.99",
		Stock:       "3",
		ImageURLs:   []string{"https://img.example.com/a.jpg", "https://img.example.com/b.jpg"},
	},
	{
		Index:       1,
		AdType:      "Vente classique",
		Category:    "Maison & Jardin",
		Title:       "Lampe",
		Description: "Lampe de bureau",
		Condition:   "Usagé",
		Returns:     "Non",
		Warranty:    "Non",
		Price:       "12",
	},
	{
		Index:     2,
		Title:     "Sans catégorie",
		Price:     "abc",
		Stock:     "-2",
		ImageURLs: []string{"https://img.example.com/c.jpg"},
	},
}

// EbayListings are listings decoded from ebay.csv.
var EbayListings = []models.Listing{
	{
		Index:       0,
		SKU:         "EB-1",
		Category:    "Bijoux",
		Title:       "Montre",
		Description: "Montre vintage",
		Condition:   "Usagé",
		Price:       "120.5",
		Stock:       "1",
		ImageURLs:   []string{"https://i.ebayimg.com/1.jpg"},
	},
}
