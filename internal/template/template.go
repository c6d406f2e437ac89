package template

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	"text/template"
)

// Template names shared by every channel
const (
	NameMessage = "message"
	NameLog     = "log"
)

// LogEntry is one log file included in a digest
type LogEntry struct {
	Name    string
	Content string
}

// MessageData is rendered by the message templates
type MessageData struct {
	Text string
}

// LogData is rendered by the log templates
type LogData struct {
	Date string
	Logs []LogEntry
}

// Render renders the named template for a channel.
// Email templates go through html/template and escape their data; Telegram
// templates are plain text.
func Render(channel, name string, data interface{}) (string, error) {
	tmplPath := fmt.Sprintf("%s/%s.tmpl", channel, name)

	fs, err := getTemplateFS(channel)
	if err != nil {
		return "", err
	}

	content, err := fs.ReadFile(tmplPath)
	if err != nil {
		return "", fmt.Errorf("template not found: %s/%s", channel, name)
	}

	var buf bytes.Buffer
	if channel == "email" {
		tmpl, err := htmltemplate.New(name).Funcs(htmlFuncs).Parse(string(content))
		if err != nil {
			return "", fmt.Errorf("failed to parse template: %w", err)
		}
		if err := tmpl.Execute(&buf, data); err != nil {
			return "", fmt.Errorf("failed to render template: %w", err)
		}
		return buf.String(), nil
	}

	tmpl, err := template.New(name).Funcs(textFuncs).Parse(string(content))
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}

var textFuncs = template.FuncMap{
	"trim": strings.TrimSpace,
}

var htmlFuncs = htmltemplate.FuncMap{
	"trim": strings.TrimSpace,
	// Literal messages are operator-authored HTML, so only line breaks change.
	"breaklines": func(s string) htmltemplate.HTML {
		return htmltemplate.HTML(strings.ReplaceAll(s, "\n", "<br />"))
	},
}

// EmailMessage renders a literal message as an HTML email body
func EmailMessage(text string) (string, error) {
	return Render("email", NameMessage, MessageData{Text: text})
}

// EmailLogs renders log files as an HTML email body with escaped content
func EmailLogs(date string, logs ...LogEntry) (string, error) {
	return Render("email", NameLog, LogData{Date: date, Logs: logs})
}

// TelegramLogs renders log files as a plain text digest
func TelegramLogs(date string, logs ...LogEntry) (string, error) {
	return Render("telegram", NameLog, LogData{Date: date, Logs: logs})
}

// Available returns the template names for a channel
func Available(channel string) []string {
	fs, err := getTemplateFS(channel)
	if err != nil {
		return nil
	}
	entries, err := fs.ReadDir(channel)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".tmpl"))
	}
	return names
}
