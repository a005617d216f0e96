package publisher

import (
	"math"
	"strconv"
	"strings"

	"github.com/MichalMitros/evend-publisher/internal/platform/models"
)

// fallbacks are values of blank listing fields without a tenant default.
var fallbacks = map[string]string{
	FieldAdType:      "Vente classique",
	FieldCategory:    "Autre",
	FieldTitle:       "Titre manquant",
	FieldDescription: "Description non disponible",
	FieldCondition:   "Non spécifié",
	FieldReturns:     "Non",
	FieldWarranty:    "Non",
	FieldPrice:       "0",
	FieldStock:       "1",
}

// FormField is a single filled form field.
type FormField struct {
	ID    string
	Value string
	// Clear empties the field before typing, for fields prefilled by the form.
	Clear bool
}

// Form holds values typed into the listing form for one listing.
type Form struct {
	Title          string
	Price          float64
	Stock          int
	Fields         []FormField
	ShippingType   string
	PickupLocation string
	ImageURLs      []string
}

// NewForm computes form values of listing. Blank fields take tenant defaults, then built-in fallbacks.
// Malformed prices become 0 and malformed or non-positive stocks become 1.
func NewForm(listing models.Listing, config models.JobConfig) Form {
	value := func(id, raw string) string {
		if v := strings.TrimSpace(raw); v != "" {
			return v
		}
		if v := strings.TrimSpace(config.Defaults[id]); v != "" {
			return v
		}
		return fallbacks[id]
	}

	price := parsePrice(value(FieldPrice, listing.Price))
	stock := parseStock(value(FieldStock, listing.Stock))
	title := value(FieldTitle, listing.Title)

	form := Form{
		Title:     title,
		Price:     price,
		Stock:     stock,
		ImageURLs: listing.ImageURLs,
		Fields: []FormField{
			{ID: FieldAdType, Value: value(FieldAdType, listing.AdType)},
			{ID: FieldCategory, Value: value(FieldCategory, listing.Category)},
			{ID: FieldTitle, Value: title},
			{ID: FieldDescription, Value: value(FieldDescription, listing.Description)},
			{ID: FieldCondition, Value: value(FieldCondition, listing.Condition)},
			{ID: FieldReturns, Value: value(FieldReturns, listing.Returns)},
			{ID: FieldWarranty, Value: value(FieldWarranty, listing.Warranty)},
			{ID: FieldPrice, Value: formatAmount(price), Clear: true},
			{ID: FieldStock, Value: strconv.Itoa(stock), Clear: true},
			{ID: FieldPerItemFee, Value: formatAmount(config.Shipping.PerItemFee), Clear: true},
			{ID: FieldExtraFee, Value: formatAmount(config.Shipping.ExtraFee), Clear: true},
		},
		ShippingType: ShippingDelivery,
	}

	if config.Shipping.PickupEnabled {
		form.ShippingType = ShippingPickup
		form.PickupLocation = strings.TrimSpace(config.Shipping.PickupLocation)
	}

	return form
}

// Value returns value of field with id.
func (f Form) Value(id string) (string, bool) {
	for _, field := range f.Fields {
		if field.ID == id {
			return field.Value, true
		}
	}

	return "", false
}

// parsePrice accepts dot and comma decimals and an optional currency sign.
func parsePrice(raw string) float64 {
	raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(raw), "$"), "$"))
	raw = strings.ReplaceAll(raw, " ", "")
	if strings.Count(raw, ",") == 1 && !strings.Contains(raw, ".") {
		raw = strings.Replace(raw, ",", ".", 1)
	}

	price, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return 0
	}

	return price
}

// parseStock accepts integers written as floats by spreadsheet exports.
func parseStock(raw string) int {
	stock, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(stock) || stock < 1 || stock > math.MaxInt32 {
		return 1
	}

	return int(stock)
}

func formatAmount(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		amount = 0
	}

	return strconv.FormatFloat(amount, 'f', 2, 64)
}
