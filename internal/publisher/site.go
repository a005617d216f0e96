package publisher

// Form field IDs of the e-Vend listing form.
const (
	FieldAdType      = "type_annonce"
	FieldCategory    = "categorie"
	FieldTitle       = "titre"
	FieldDescription = "description"
	FieldCondition   = "condition"
	FieldReturns     = "retour"
	FieldWarranty    = "garantie"
	FieldPrice       = "prix"
	FieldStock       = "stock"
	FieldPerItemFee  = "frais_port_article"
	FieldExtraFee    = "frais_port_sup"
)

// Shipping radio values.
const (
	ShippingPickup   = "Ramassage"
	ShippingDelivery = "Expédition"
)

// Site describes e-Vend pages used for publishing.
type Site struct {
	LoginURL      string    `yaml:"login_url"`
	NewListingURL string    `yaml:"new_listing_url"`
	Selectors     Selectors `yaml:"selectors"`
}

// Selectors are CSS selectors of e-Vend page elements.
type Selectors struct {
	LoginEmail    string `yaml:"login_email"`
	LoginPassword string `yaml:"login_password"`
	LoginSubmit   string `yaml:"login_submit"`
	Dashboard     string `yaml:"dashboard"`
	FormReady     string `yaml:"form_ready"`
	FileInput     string `yaml:"file_input"`
	Submit        string `yaml:"submit"`
	Success       string `yaml:"success"`
	// ShippingRadio is the name attribute of shipping method radios.
	ShippingRadio  string `yaml:"shipping_radio"`
	PickupLocation string `yaml:"pickup_location"`
	// Fields overrides selectors of form fields, keyed by field ID.
	Fields map[string]string `yaml:"fields"`
}

// Field returns selector of form field with id.
func (s Selectors) Field(id string) string {
	if sel, ok := s.Fields[id]; ok && sel != "" {
		return sel
	}

	return "#" + id
}

// DefaultSite returns the production e-Vend site.
func DefaultSite() Site {
	return Site{
		LoginURL:      "https://www.e-vend.ca/login",
		NewListingURL: "https://www.e-vend.ca/l/draft/00000000-0000-0000-0000-000000000000/new/details",
		Selectors: Selectors{
			LoginEmail:     "#email",
			LoginPassword:  "#password",
			LoginSubmit:    "#loginBtn",
			Dashboard:      "#dashboard",
			FormReady:      "#" + FieldAdType,
			FileInput:      "input[type='file']",
			Submit:         "#submitBtn",
			Success:        ".success-message, .alert-success",
			ShippingRadio:  "livraison_type",
			PickupLocation: "#livraison_ramassage",
		},
	}
}
