package config

import (
	"fmt"
	"strings"

	"github.com/Sriram-PR/doc-toc/pkg/anchor"
	"github.com/Sriram-PR/doc-toc/pkg/utils"
)

var (
	defaultFieldTypes     = []string{"text_long", "text_with_summary"}
	defaultNodeBundles    = []string{"page", "article"}
	defaultTopLevelTypes  = []string{"node"}
	defaultSubEntityTypes = []string{"paragraph"}
)

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	// NumWorkers
	if c.NumWorkers <= 0 {
		warnings = append(warnings, "num_workers should be > 0, defaulting to 4")
		c.NumWorkers = 4
	}

	// ViewMode
	if c.ViewMode == "" {
		c.ViewMode = "full"
	}

	// LogLevel
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	// BaseURL
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	// MCP transport
	switch c.MCP.Transport {
	case "":
		c.MCP.Transport = "stdio"
	case "stdio", "sse":
	default:
		return warnings, fmt.Errorf("%w: mcp.transport must be 'stdio' or 'sse', got '%s'",
			utils.ErrConfigValidation, c.MCP.Transport)
	}
	if c.MCP.Port <= 0 {
		c.MCP.Port = 8080
	}
	if c.MCP.Port > 65535 {
		return warnings, fmt.Errorf("%w: mcp.port %d out of range", utils.ErrConfigValidation, c.MCP.Port)
	}

	// HTTP API
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8090
	}
	if c.HTTP.Port > 65535 {
		return warnings, fmt.Errorf("%w: http.port %d out of range", utils.ErrConfigValidation, c.HTTP.Port)
	}
	if c.HTTP.Port == c.MCP.Port && c.MCP.Transport == "sse" {
		warnings = append(warnings, fmt.Sprintf("http.port and mcp.port are both %d", c.HTTP.Port))
	}

	tocWarnings, err := c.ToC.Validate()
	for _, w := range tocWarnings {
		warnings = append(warnings, "toc: "+w)
	}
	if err != nil {
		return warnings, err
	}

	return warnings, nil
}

// Validate checks ToCConfig fields and applies defaults.
// Modifies receiver in place to apply defaults.
func (c *ToCConfig) Validate() (warnings []string, err error) {
	// FieldTypes
	if c.FieldTypes == nil {
		c.FieldTypes = append([]string(nil), defaultFieldTypes...)
	} else if len(c.FieldTypes) == 0 {
		warnings = append(warnings, "field_types is empty, no HTML fields will be scanned")
	}

	// NodeBundles: nil means the default list, an explicit empty list allows all bundles
	if c.NodeBundles == nil {
		c.NodeBundles = append([]string(nil), defaultNodeBundles...)
	}

	if len(c.TopLevelTypes) == 0 {
		c.TopLevelTypes = append([]string(nil), defaultTopLevelTypes...)
	}

	if c.SubEntityTypes == nil {
		c.SubEntityTypes = append([]string(nil), defaultSubEntityTypes...)
	}
	if !GetEffectiveScanParagraphs(*c) && len(c.SubEntityTypes) > 0 {
		warnings = append(warnings, "sub_entity_types set but scan_paragraphs is false, sub-entities will not be walked")
	}

	// HeadingFields
	if _, err := ParseHeadingFields(c.HeadingFields); err != nil {
		return warnings, fmt.Errorf("%w: heading_fields: %w", utils.ErrConfigValidation, err)
	}

	// AnchorStyle
	if c.AnchorStyle == "" {
		c.AnchorStyle = string(anchor.StylePattern)
	} else if !anchor.Style(c.AnchorStyle).IsValid() {
		return warnings, fmt.Errorf("%w: anchor_style must be 'pattern' or 'slug', got '%s'",
			utils.ErrConfigValidation, c.AnchorStyle)
	}

	// HeadingMarker
	switch c.HeadingMarker {
	case "":
		c.HeadingMarker = "anchor"
	case "anchor", "unmodified", "hidden":
	default:
		return warnings, fmt.Errorf("%w: heading_marker must be 'anchor', 'unmodified' or 'hidden', got '%s'",
			utils.ErrConfigValidation, c.HeadingMarker)
	}

	// Heading levels
	if c.MinHeadingLevel == 0 {
		c.MinHeadingLevel = 2
	}
	if c.MaxHeadingLevel == 0 {
		c.MaxHeadingLevel = 4
	}
	if c.MinHeadingLevel < 1 || c.MinHeadingLevel > 6 {
		return warnings, fmt.Errorf("%w: min_heading_level must be within 1..6, got %d",
			utils.ErrConfigValidation, c.MinHeadingLevel)
	}
	if c.MaxHeadingLevel < 1 || c.MaxHeadingLevel > 6 {
		return warnings, fmt.Errorf("%w: max_heading_level must be within 1..6, got %d",
			utils.ErrConfigValidation, c.MaxHeadingLevel)
	}
	if c.MinHeadingLevel > c.MaxHeadingLevel {
		warnings = append(warnings, fmt.Sprintf(
			"min_heading_level (%d) > max_heading_level (%d), swapping",
			c.MinHeadingLevel, c.MaxHeadingLevel))
		c.MinHeadingLevel, c.MaxHeadingLevel = c.MaxHeadingLevel, c.MinHeadingLevel
	}

	return warnings, nil
}
