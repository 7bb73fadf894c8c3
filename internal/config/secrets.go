package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields replaced
// by the redaction placeholder "***". Use this when logging or printing the
// active configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	redact(&out.Fyers.SecretKey)
	redact(&out.Fyers.TOTPSecret)
	redact(&out.Fyers.PIN)

	redact(&out.Telegram.BotToken)

	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)

	redact(&out.Redis.Password)

	return out
}

func redact(s *string) {
	if *s != "" {
		*s = "***"
	}
}
