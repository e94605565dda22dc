package config

import "fmt"

type Config struct {
	Env                        string
	HTTPAddr                   string
	DatabaseURL                string
	GoogleCloudProjectID       string
	GoogleCloudCredentialsJSON string
	GoogleCloudSpeechLocation  string
	GoogleCloudSpeechModel     string
	TranscribeLanguage         string
	AudioSampleRateHertz       int
	GeminiAPIKey               string
	GeminiModel                string
	SummarizeIntervalSec       int
	NotesWebhookURL            string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if c.AudioSampleRateHertz <= 0 {
		return fmt.Errorf("AUDIO_SAMPLE_RATE_HERTZ must be positive, got %d", c.AudioSampleRateHertz)
	}
	if c.SummarizeIntervalSec <= 0 {
		return fmt.Errorf("SUMMARIZE_INTERVAL_SEC must be positive, got %d", c.SummarizeIntervalSec)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "DATABASE_URL", value: c.DatabaseURL},
		{name: "GOOGLE_CLOUD_PROJECT_ID", value: c.GoogleCloudProjectID},
		{name: "GOOGLE_CLOUD_CREDENTIALS_JSON", value: c.GoogleCloudCredentialsJSON},
		{name: "TRANSCRIBE_LANGUAGE", value: c.TranscribeLanguage},
		{name: "GEMINI_API_KEY", value: c.GeminiAPIKey},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
