package llm

// ConfigResponse is the response for GET /llm/config.
type ConfigResponse struct {
	Provider string `json:"provider" example:"gemini"`
	Model    string `json:"model" example:"gemini-2.5-flash"`
	KeyCount int    `json:"key_count" example:"3"`
}

// KeyStatus is the heartbeat result for one pooled key.
type KeyStatus struct {
	Key     string `json:"key" example:"AIzaSyAB...xyz123"`
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty" example:"connected"`
}

// TestResponse is the response for POST /llm/test.
type TestResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Model   string      `json:"model,omitempty"`
	Models  []string    `json:"models,omitempty"`
	Keys    []KeyStatus `json:"keys"`
}
