/*
Package notify renders scan reports for the console, files and e-mail, and
delivers them over SMTP.
*/
package notify

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"gopkg.in/yaml.v3"

	"github.com/shanehull/dlvscan/internal/types"
)

type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
)

var Formats = []Format{FormatText, FormatJSON, FormatYAML, FormatHTML, FormatMarkdown}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "":
		return FormatText, nil
	case "md":
		return FormatMarkdown, nil
	case "yml":
		return FormatYAML, nil
	}
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

// Composer turns a report into its rendered forms.
type Composer struct {
	html *HTMLEmailRenderer
}

func NewComposer(loc *time.Location) *Composer {
	return &Composer{html: NewHTMLEmailRenderer(loc)}
}

// Message renders the report as an e-mail.
func (c *Composer) Message(report *types.Report) (*RenderedMessage, error) {
	return c.html.Render(report)
}

// Write renders the report to w in the given format.
func (c *Composer) Write(w io.Writer, report *types.Report, f Format) error {
	switch f {
	case FormatText, "":
		_, err := io.WriteString(w, renderPlainText(report, c.html.date(report)))
		return err

	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)

	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to encode yaml report: %w", err)
		}
		return enc.Close()

	case FormatHTML:
		msg, err := c.html.Render(report)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, msg.HTML)
		return err

	case FormatMarkdown:
		body, err := c.html.renderBody(report)
		if err != nil {
			return err
		}
		converter := md.NewConverter("", true, nil)
		converter.Use(plugin.GitHubFlavored())
		markdown, err := converter.ConvertString(body)
		if err != nil {
			return fmt.Errorf("failed to convert report to markdown: %w", err)
		}
		_, err = io.WriteString(w, markdown+"\n")
		return err
	}

	return fmt.Errorf("unknown report format %q", f)
}
