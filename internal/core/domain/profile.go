package domain

// Profile is one monitored search: a named OLX category page whose listings
// get scanned on every run.
type Profile struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}
