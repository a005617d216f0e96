package models

import (
	"strings"
	"time"

	"github.com/MichalMitros/evend-publisher/internal/platform"
)

// Listing is a single row of a listings file.
type Listing struct {
	// Index is a zero-based row index within the file.
	Index       int
	SKU         string
	AdType      string
	Category    string
	Title       string
	Description string
	Condition   string
	Returns     string
	Warranty    string
	Price       string
	Stock       string
	ImageURLs   []string
}

// ListingSource is an ordered, random-access source of listings decoded from one file.
type ListingSource struct {
	listings []Listing
	digest   string
}

// NewListingSource returns new ListingSource. Digest identifies the file content.
func NewListingSource(listings []Listing, digest string) *ListingSource {
	return &ListingSource{listings: listings, digest: digest}
}

// Count returns number of listings.
func (s *ListingSource) Count() int {
	return len(s.listings)
}

// RowAt returns listing at index i.
func (s *ListingSource) RowAt(i int) Listing {
	return s.listings[i]
}

// Listings returns all listings in file order.
func (s *ListingSource) Listings() []Listing {
	return s.listings
}

// Digest returns content digest of the source file.
func (s *ListingSource) Digest() string {
	return s.digest
}

// Credentials are e-Vend account credentials.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Shipping is tenant's shipping configuration applied to every listing.
type Shipping struct {
	PickupEnabled  bool    `json:"pickupEnabled"`
	PickupLocation string  `json:"pickupLocation"`
	PerItemFee     float64 `json:"perItemFee"`
	ExtraFee       float64 `json:"extraFee"`
}

// JobConfig is tenant configuration of a publishing job.
type JobConfig struct {
	Credentials Credentials `json:"credentials"`
	Shipping    Shipping    `json:"shipping"`
	// Defaults overrides built-in fallbacks of blank listing fields, keyed by form field ID.
	Defaults map[string]string `json:"defaults,omitempty"`
}

// Validate checks that config can be used for publishing.
func (c JobConfig) Validate() error {
	if strings.TrimSpace(c.Credentials.Email) == "" || c.Credentials.Password == "" {
		return platform.ErrMissingCredentials
	}

	return nil
}

// Job is a single publishing job of one tenant.
type Job struct {
	// ID identifies the job. It is the tenant ID, at most one job runs per tenant.
	ID       string
	FilePath string
	Config   JobConfig
	// RemoveFile deletes the file at FilePath once the job ends.
	RemoveFile bool
}

// QueueEntry is an admission queue entry.
type QueueEntry struct {
	ID         string    `json:"id"`
	Articles   int       `json:"articles"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// QueuedJob is an admission queue entry with its place in line.
type QueuedJob struct {
	QueueEntry
	Position      int           `json:"position"`
	EstimatedWait time.Duration `json:"estimated_wait"`
}

// EstimateWait returns estimated wait of the entry at position: articles of all entries ahead times articleCost.
func EstimateWait(entries []QueueEntry, position int, articleCost time.Duration) time.Duration {
	if position <= 0 {
		return 0
	}
	position = min(position, len(entries))

	articles := 0
	for _, entry := range entries[:position] {
		articles += entry.Articles
	}

	return time.Duration(articles) * articleCost
}

// Position is a publishing checkpoint: the last attempted row within a batch.
type Position struct {
	Batch int
	Row   int
}

// StartPosition is the checkpoint of a job with no attempted rows.
var StartPosition = Position{Batch: 0, Row: -1}

// Covers reports whether row of batch was already attempted.
func (p Position) Covers(batch, row int) bool {
	return batch < p.Batch || (batch == p.Batch && row <= p.Row)
}

// Before reports whether p is earlier than o.
func (p Position) Before(o Position) bool {
	return p.Batch < o.Batch || (p.Batch == o.Batch && p.Row < o.Row)
}

// Cookie is a browser cookie.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	Secure   bool    `json:"secure"`
	HTTPOnly bool    `json:"httpOnly"`
}

// Session is a persisted authenticated browser session.
type Session struct {
	Timestamp time.Time `json:"timestamp"`
	Cookies   []Cookie  `json:"cookies"`
}

// Run is publishing job run model.
type Run struct {
	ID                  int
	TenantID            string
	CreatedAt           time.Time
	FinishedAt          *time.Time
	IsSuccess           *bool
	StatusMessage       *string
	TotalListings       int32
	PublishedListings   *int32
	UnconfirmedListings *int32
	FailedListings      *int32
	SkippedListings     *int32
}
