package server

// HTTPError is a generic error envelope returned by the server.
type HTTPError struct {
	Error string `json:"error"`
}

// TokenResponse carries a bearer token.
type TokenResponse struct {
	Token string `json:"token"`
}

// AuthSignupRequest represents the signup payload.
type AuthSignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthLoginRequest represents the login payload.
type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CollectRequest triggers a collection run.
type CollectRequest struct {
	Query        string `json:"query"`
	MaxPerSource int    `json:"max_per_source"`
}

// ScoreRequest scores the items collected for a query, or a single inline text.
type ScoreRequest struct {
	Query        string `json:"query,omitempty"`
	Text         string `json:"text,omitempty"`
	SourceID     string `json:"source_id,omitempty"`
	MaxPerSource int    `json:"max_per_source,omitempty"`
}

// PredictRequest drives the support and policy forecasts.
type PredictRequest struct {
	Query       string  `json:"query"`
	Baseline    float64 `json:"baseline"`
	HorizonDays int     `json:"horizon_days"`
}

// ElectionRequest drives the seat projection. Shares default to the stored
// baselines when omitted.
type ElectionRequest struct {
	Query       string             `json:"query"`
	Shares      map[string]float64 `json:"shares,omitempty"`
	HorizonDays int                `json:"horizon_days"`
}

// ScandalRequest drives the scandal-impact forecast.
type ScandalRequest struct {
	Query       string  `json:"query"`
	Baseline    float64 `json:"baseline"`
	HorizonDays int     `json:"horizon_days"`
	Severity    float64 `json:"severity"`
}

// AnalyzeRequest drives the comprehensive analysis.
type AnalyzeRequest struct {
	Query           string             `json:"query"`
	BaselineSupport float64            `json:"baseline_support"`
	Shares          map[string]float64 `json:"shares,omitempty"`
	HorizonDays     int                `json:"horizon_days"`
	ScandalSeverity float64            `json:"scandal_severity,omitempty"`
	PolicyBaseline  float64            `json:"policy_baseline,omitempty"`
}
