package commander

// PublishCommand asks the publisher to publish a listings file of a tenant.
type PublishCommand struct {
	TenantID string `json:"tenantId"`
	// FilePath is a path of the CSV file readable by the publisher.
	FilePath string `json:"filePath"`
	// RemoveFile hands the file over to the publisher, which deletes it once the job ends.
	RemoveFile  bool              `json:"removeFile,omitempty"`
	Credentials Credentials       `json:"credentials"`
	Shipping    Shipping          `json:"shipping"`
	Defaults    map[string]string `json:"defaults,omitempty"`
}

// Credentials are e-Vend account credentials.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Shipping is tenant's shipping configuration.
type Shipping struct {
	PickupEnabled  bool    `json:"pickupEnabled"`
	PickupLocation string  `json:"pickupLocation"`
	PerItemFee     float64 `json:"perItemFee"`
	ExtraFee       float64 `json:"extraFee"`
}
