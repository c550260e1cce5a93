package domain

import "time"

// Domain contains core models shared across packages.

// Shop identifies a single Shopify store account. Credentials are supplied
// per call and never persisted, except for the active shop the auto-blog
// scheduler keeps in its durable config.
type Shop struct {
	Domain      string `json:"domain"`
	AccessToken string `json:"access_token"`
}

// Configured reports whether both credential halves are present.
func (s Shop) Configured() bool {
	return s.Domain != "" && s.AccessToken != ""
}

// Image is a product image reference.
type Image struct {
	ID  int64  `json:"id"`
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// Variant is a sellable product variant.
type Variant struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Price string `json:"price"`
}

// Product is a catalog item owned by the Shopify platform. Only title,
// body HTML, handle and the tag set are ever rewritten here.
type Product struct {
	ID       int64     `json:"id"`
	Title    string    `json:"title"`
	BodyHTML string    `json:"body_html"`
	Handle   string    `json:"handle"`
	Tags     []string  `json:"tags"`
	Images   []Image   `json:"images"`
	Variants []Variant `json:"variants"`
}

// HasTag reports whether the product carries the given tag.
func (p Product) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Collection groups products. Membership is resolved via a separate lookup.
type Collection struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Handle string `json:"handle"`
}

// Blog is a store blog; articles belong to exactly one blog.
type Blog struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Handle string `json:"handle"`
}

// Article is a published blog post.
type Article struct {
	ID          int64      `json:"id"`
	BlogID      int64      `json:"blog_id"`
	Title       string     `json:"title"`
	Handle      string     `json:"handle"`
	BodyHTML    string     `json:"body_html"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// ScheduleConfig is the single durable record driving the auto-blog
// publisher. It is always read and written as a whole.
type ScheduleConfig struct {
	Enabled        bool       `json:"enabled"`
	TimeOfDay      string     `json:"time_of_day"`
	Shop           *Shop      `json:"shop,omitempty"`
	RotationCursor int        `json:"rotation_cursor"`
	LastRunAt      *time.Time `json:"last_run_at,omitempty"`
}

// DefaultTimeOfDay is applied when a schedule record is created on first use.
const DefaultTimeOfDay = "09:00"

// DefaultScheduleConfig returns the record stored before any Start call.
func DefaultScheduleConfig() ScheduleConfig {
	return ScheduleConfig{
		Enabled:   false,
		TimeOfDay: DefaultTimeOfDay,
	}
}
