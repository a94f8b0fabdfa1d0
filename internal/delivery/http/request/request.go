package request

// RunDigestRequest overrides the configured defaults for a single digest
// run. Every field is optional; zero values fall back to configuration.
type RunDigestRequest struct {
	QueryTerm    string `json:"query_term"`
	LanguageCode string `json:"language_code"`
	CountryCode  string `json:"country_code"`
	DaysBack     *int   `json:"days_back"`
}
