package template

import (
	"embed"
	"fmt"
)

//go:embed email/*.tmpl
var emailTemplates embed.FS

//go:embed telegram/*.tmpl
var telegramTemplates embed.FS

// getTemplateFS returns the embed.FS for the given channel
func getTemplateFS(channel string) (embed.FS, error) {
	switch channel {
	case "email":
		return emailTemplates, nil
	case "telegram":
		return telegramTemplates, nil
	default:
		return embed.FS{}, fmt.Errorf("unknown channel: %s", channel)
	}
}
