package elonet_archiver

import (
	"errors"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/alanbriolat/elonet-archiver/util"
)

const DefaultTargetTemplate = "{{.Title}}"

var ErrEmptyTargetPath = errors.New("target file name is empty")

// TargetConfig decides where a downloaded video is written.
type TargetConfig struct {
	TargetDir          string
	TargetFileTemplate *template.Template
	// OutputPath, if set, is used as-is and the template is ignored.
	OutputPath string
}

func NewTargetConfig() *TargetConfig {
	return &TargetConfig{
		TargetDir:          ".",
		TargetFileTemplate: template.Must(ParseTargetTemplate(DefaultTargetTemplate)),
	}
}

// ParseTargetTemplate parses a file name template. The fields available are those of TargetFileTemplateArgs.
func ParseTargetTemplate(text string) (*template.Template, error) {
	return template.New("target_file").Option("missingkey=error").Parse(text)
}

// GetTargetPath renders the output path for a video found by a match.
func (c *TargetConfig) GetTargetPath(match *Match, video VideoSource) (string, error) {
	if c.OutputPath != "" {
		return c.OutputPath, nil
	}
	args := TargetFileTemplateArgs{
		ProviderName: match.ProviderName,
		Site:         match.Page.Site,
		Title:        video.Title,
		Name:         strings.TrimSuffix(video.Title, filepath.Ext(video.Title)),
		Ext:          strings.TrimPrefix(filepath.Ext(video.Title), "."),
	}
	builder := strings.Builder{}
	if err := c.TargetFileTemplate.Execute(&builder, &args); err != nil {
		return "", err
	}
	name := strings.TrimSpace(builder.String())
	if name == "" {
		return "", ErrEmptyTargetPath
	}
	return filepath.Join(c.TargetDir, name), nil
}

type TargetFileTemplateArgs struct {
	ProviderName string
	Site         SiteKind
	// Sanitized title, including extension.
	Title string
	Name  string
	Ext   string
}

// SanitizeTitle turns a page title into a safe file name with the .mp4 extension, or returns fallback if the title is
// empty.
func SanitizeTitle(title string, fallback string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return fallback
	}
	return util.SanitizeFilename(title) + ".mp4"
}
