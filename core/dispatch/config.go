package dispatch

// Config defines dispatch-related settings.
type Config struct {
	// OfferTimeoutSeconds is how long a driver may take to answer an offer
	// before it is treated as an implicit rejection.
	OfferTimeoutSeconds int `json:"offer_timeout_seconds"`
	// RetentionDays is how long delivered and cancelled orders are kept
	// before the cleanup job purges them.
	RetentionDays int `json:"retention_days"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.OfferTimeoutSeconds <= 0 {
		c.OfferTimeoutSeconds = 60
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = 30
	}
}
