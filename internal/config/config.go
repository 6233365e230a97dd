package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type WebConfig struct {
	Port      string `envconfig:"PORT" default:"8080"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	// signs the flash cookie
	AppKey string `envconfig:"APP_KEY" required:"true"`

	// Twilio
	TwilioAccountSID   string        `envconfig:"TWILIO_ACCOUNT_SID" required:"true"`
	TwilioAuthToken    string        `envconfig:"TWILIO_AUTH_TOKEN" required:"true"`
	TwilioWhatsAppFrom string        `envconfig:"TWILIO_WHATSAPP_FROM" required:"true"` // international format, no "whatsapp:" prefix
	TwilioTransport    string        `envconfig:"TWILIO_TRANSPORT" default:"rest"`
	TwilioBaseURL      string        `envconfig:"TWILIO_BASE_URL" default:"https://api.twilio.com"`
	TwilioHTTPTimeout  time.Duration `envconfig:"TWILIO_HTTP_TIMEOUT" default:"10s"`

	RecipientStrict bool `envconfig:"RECIPIENT_STRICT" default:"false"`

	// local guards, off unless set; <= 0 disables
	SendRPS            float64       `envconfig:"SEND_RPS" default:"0"`
	SendBurst          int           `envconfig:"SEND_BURST" default:"10"`
	BreakerFailures    uint32        `envconfig:"BREAKER_FAILURES" default:"0"`
	BreakerOpenTimeout time.Duration `envconfig:"BREAKER_OPEN_TIMEOUT" default:"20s"`
}

type MockProviderConfig struct {
	Port        string `envconfig:"PORT" default:"8081"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`
	AccountSID  string `envconfig:"TWILIO_ACCOUNT_SID" default:"mock_sid"`
	AuthToken   string `envconfig:"TWILIO_AUTH_TOKEN" default:"mock_token"`
	OutcomeMode string `envconfig:"MOCK_OUTCOME_MODE" default:"fixed"`
	OutcomesRaw string `envconfig:"MOCK_OUTCOMES" default:"ok"`
	DelayMs     int    `envconfig:"MOCK_DELAY_MS" default:"0"`
}

// loadDotEnv reads .env from the working directory. Values already present in
// the environment win; a missing file is not an error.
func loadDotEnv() {
	_ = godotenv.Load()
}

func Web() (WebConfig, error) {
	loadDotEnv()
	var cfg WebConfig
	err := envconfig.Process("", &cfg)
	return cfg, err
}

func LoadWeb() WebConfig {
	cfg, err := Web()
	if err != nil {
		panic(err)
	}
	return cfg
}

func LoadMockProvider() MockProviderConfig {
	loadDotEnv()
	var cfg MockProviderConfig
	if err := envconfig.Process("", &cfg); err != nil {
		panic(err)
	}
	return cfg
}
