// Package config loads nasbridge configuration from two sources.
//
// # Environment (.env)
//
// Secrets and notifier settings come from the process environment, which
// LoadEnv populates from a .env file (godotenv syntax: KEY=VALUE lines,
// # comments). Values already present in the environment are never
// overridden by the file.
//
//	TELEGRAM_BOT_TOKEN=123456:ABC
//	TELEGRAM_USER_IDS=11111111,22222222
//	SMTP_SERVER=smtp.example.com
//	SMTP_PORT=587
//	SMTP_USERNAME=bot@example.com
//	SMTP_PASSWORD=secret
//	EMAIL_SENDER=bot@example.com
//	EMAIL_RECEIVERS=ops@example.com,oncall@example.com
//	LOG_DIR=/var/log/nasbridge
//
// Each dispatch path has a fixed list of required keys (TelegramKeys,
// EmailKeys). TelegramFromEnv and EmailFromEnv report every missing key in a
// single MISSING_CONFIG error before anything touches the network.
//
// # Profile (YAML)
//
// Non-secret settings for certificate renewal, sync, expiry checks and the
// scheduler live in ~/.config/nasbridge/config.yaml (or --config):
//
//	acme:
//	  container: acme.sh
//	  backend: cli
//	  domains: [example.com]
//	  ecc: true
//	sync:
//	  host: root@10.147.17.2
//	  port: 22
//	  identity: /root/.ssh/id_ed25519
//	  source: /root/acme.sh/example.com_ecc/
//	  dest: /etc/nginx/ssl/example.com/
//	  reload: systemctl reload nginx
//	check:
//	  targets: [example.com, nas.example.com:8443]
//	  warn_days: 10
//	  status_file: log/ssl_check.log
//	  channels: [telegram, email]
//	schedule:
//	  check: "0 9 * * *"
//	  renew: "0 3 * * 1"
//
// A missing profile yields New() defaults.
//
// # Thread Safety
//
// Config values are built once per invocation and never mutated afterwards.
package config
