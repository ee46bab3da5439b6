package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/doc-toc/pkg/models"
	"github.com/Sriram-PR/doc-toc/pkg/utils"
)

// ToCConfig holds the settings that shape table of contents generation
type ToCConfig struct {
	FieldTypes         []string `yaml:"field_types,omitempty"`         // Field types scanned as HTML
	HeadingFields      []string `yaml:"heading_fields,omitempty"`      // "entityType:bundle:fieldName" pure heading fields
	NodeBundles        []string `yaml:"node_bundles,omitempty"`        // Allowed top-level bundles; explicit empty list allows all
	TopLevelTypes      []string `yaml:"top_level_types,omitempty"`     // Entity types a ToC may be generated for
	SubEntityTypes     []string `yaml:"sub_entity_types,omitempty"`    // Referenced entity types walked recursively
	ScanParagraphs     *bool    `yaml:"scan_paragraphs,omitempty"`     // Recurse into sub-entities (nil = true)
	IsRelative         bool     `yaml:"is_relative,omitempty"`         // Fragment-only links
	AnchorStyle        string   `yaml:"anchor_style,omitempty"`        // "pattern" or "slug"
	DeduplicateAnchors *bool    `yaml:"deduplicate_anchors,omitempty"` // Suffix colliding synthesized ids (nil = true)
	HeadingMarker      string   `yaml:"heading_marker,omitempty"`      // "anchor", "unmodified" or "hidden"
	MinHeadingLevel    int      `yaml:"min_heading_level,omitempty"`
	MaxHeadingLevel    int      `yaml:"max_heading_level,omitempty"`
}

// MCPConfig holds settings for the MCP server
type MCPConfig struct {
	Transport string `yaml:"transport,omitempty"` // "stdio" or "sse"
	Port      int    `yaml:"port,omitempty"`
}

// HTTPConfig holds settings for the HTTP API server
type HTTPConfig struct {
	Port  int  `yaml:"port,omitempty"`
	Watch bool `yaml:"watch,omitempty"` // Reload the documents file when it changes
}

// AppConfig holds the global application configuration
type AppConfig struct {
	DocumentsFile string     `yaml:"documents_file"`
	BaseURL       string     `yaml:"base_url,omitempty"`  // Prefix for absolute entity links
	ViewMode      string     `yaml:"view_mode,omitempty"` // View mode passed to field rendering
	NumWorkers    int        `yaml:"num_workers,omitempty"`
	LogLevel      string     `yaml:"log_level,omitempty"`
	ToC           ToCConfig  `yaml:"toc"`
	MCP           MCPConfig  `yaml:"mcp,omitempty"`
	HTTP          HTTPConfig `yaml:"http,omitempty"`
}

// Load reads and parses a YAML config file. Defaults are not applied; call Validate.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read config '%s': %w", utils.ErrFilesystem, path, err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: YAML config '%s': %w", utils.ErrParsing, path, err)
	}
	return &cfg, nil
}

// GetEffectiveScanParagraphs determines whether sub-entities are walked
func GetEffectiveScanParagraphs(c ToCConfig) bool {
	if c.ScanParagraphs != nil {
		return *c.ScanParagraphs
	}
	return true
}

// GetEffectiveDeduplicateAnchors determines whether colliding synthesized ids get suffixes
func GetEffectiveDeduplicateAnchors(c ToCConfig) bool {
	if c.DeduplicateAnchors != nil {
		return *c.DeduplicateAnchors
	}
	return true
}

// ParseHeadingFields converts "entityType:bundle:fieldName" strings into field refs
func ParseHeadingFields(reprs []string) ([]models.FieldRef, error) {
	refs := make([]models.FieldRef, 0, len(reprs))
	for _, repr := range reprs {
		if strings.TrimSpace(repr) == "" {
			continue
		}
		ref, err := models.ParseFieldRef(repr)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", utils.ErrInvalidFieldRef, err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

var lineBreaks = regexp.MustCompile(`(\r\n|\r|\n)+`)

// SplitMultiline converts a multi-line settings value into its trimmed, non-empty lines
func SplitMultiline(s string) []string {
	var lines []string
	for _, line := range lineBreaks.Split(s, -1) {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
