package webhook

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Context is the exhaustive vocabulary available to payload templates.
// All values are strings; days_left is a signed integer rendered as text.
type Context struct {
	Name            string `json:"name"`
	Price           string `json:"price"`
	Currency        string `json:"currency"`
	DisplayPrice    string `json:"display_price"`
	DisplayCurrency string `json:"display_currency"`
	DaysLeft        string `json:"days_left"`
	DueDate         string `json:"due_date"`
	Now             string `json:"now"`
}

// field resolves a template identifier. Unknown identifiers resolve to
// the empty string rather than an error, matching the forgiving contract
// channel authors rely on.
func (c *Context) field(name string) string {
	switch name {
	case "name":
		return c.Name
	case "price":
		return c.Price
	case "currency":
		return c.Currency
	case "display_price":
		return c.DisplayPrice
	case "display_currency":
		return c.DisplayCurrency
	case "days_left":
		return c.DaysLeft
	case "due_date":
		return c.DueDate
	case "now":
		return c.Now
	default:
		return ""
	}
}

// TemplateError means a template did not render to valid JSON. It carries
// the parser's message so the channel author can see what broke.
type TemplateError struct {
	cause error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template is not valid JSON after rendering: %v", e.cause)
}

func (e *TemplateError) Unwrap() error { return e.cause }

var tokenRe = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// Render substitutes {{identifier}} tokens with context values. Every
// substituted value is escaped for embedding inside a JSON string literal,
// so a subscription named `A"B` cannot break the surrounding document.
func Render(template string, ctx *Context) string {
	return tokenRe.ReplaceAllStringFunc(template, func(m string) string {
		key := tokenRe.FindStringSubmatch(m)[1]
		return escapeJSONString(ctx.field(key))
	})
}

// escapeJSONString escapes exactly backslash, double quote, newline,
// carriage return and tab. Other control characters pass through.
func escapeJSONString(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateTemplate renders the template against ctx and verifies the
// result parses as JSON. Used both when a channel is saved and right
// before every templated send.
func ValidateTemplate(template string, ctx *Context) error {
	rendered := Render(template, ctx)
	var v any
	if err := json.Unmarshal([]byte(rendered), &v); err != nil {
		return &TemplateError{cause: err}
	}
	return nil
}
