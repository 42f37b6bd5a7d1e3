package settings

// AppConfig is the operator-controlled runtime configuration.
type AppConfig struct {
	MaintenanceMode bool     `json:"maintenance_mode"`
	FeatureVoice    bool     `json:"feature_voice"`
	FeatureImage    bool     `json:"feature_image"`
	GeminiKeys      []string `json:"gemini_keys"`
}

// DefaultAppConfig returns the configuration used before anything is saved.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		FeatureImage: true,
		GeminiKeys:   []string{},
	}
}

// Features returns the flags that are safe to show to anyone.
func (c AppConfig) Features() Features {
	return Features{
		MaintenanceMode: c.MaintenanceMode,
		FeatureVoice:    c.FeatureVoice,
		FeatureImage:    c.FeatureImage,
	}
}

// Clone returns a deep copy of c.
func (c AppConfig) Clone() AppConfig {
	c.GeminiKeys = append([]string{}, c.GeminiKeys...)
	return c
}

// Features is the public subset of AppConfig.
type Features struct {
	MaintenanceMode bool `json:"maintenance_mode"`
	FeatureVoice    bool `json:"feature_voice"`
	FeatureImage    bool `json:"feature_image"`
}

// FlagsUpdate carries a partial flag change; nil leaves a flag unchanged.
type FlagsUpdate struct {
	MaintenanceMode *bool `json:"maintenance_mode,omitempty"`
	FeatureVoice    *bool `json:"feature_voice,omitempty"`
	FeatureImage    *bool `json:"feature_image,omitempty"`
}

// AppConfigView is AppConfig as returned to the admin console.
type AppConfigView struct {
	Features
	GeminiKeys []string `json:"gemini_keys" example:"AIzaSyA1...Xk9zQw"`
	KeyCount   int      `json:"key_count" example:"3"`
	Encrypted  bool     `json:"encrypted"`
}

// MaskKey shortens a credential to its first 8 and last 6 characters.
func MaskKey(key string) string {
	if len(key) <= 14 {
		return "****"
	}
	return key[:8] + "..." + key[len(key)-6:]
}
