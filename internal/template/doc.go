// Package template renders notification bodies from embedded Go templates.
//
// Templates are embedded in the binary with go:embed and organized by
// channel:
//
//	email/message.tmpl   literal message as HTML, newlines become <br />
//	email/log.tmpl       each log as <h3>name</h3><pre>content</pre>
//	telegram/log.tmpl    each log as "=== name ===" followed by its content
//
// Email templates are executed with html/template, so log content is escaped
// inside <pre>. A literal message is treated as operator-written HTML and is
// not escaped. Telegram templates use text/template and produce plain text.
//
// # Rendering
//
//	body, err := template.EmailLogs("2024-03-20", template.LogEntry{
//	    Name:    "backup-2024-03-20.log",
//	    Content: string(content),
//	})
//
// # Custom Functions
//
//   - trim: strings.TrimSpace
//   - breaklines: newline to <br /> (email only)
package template
