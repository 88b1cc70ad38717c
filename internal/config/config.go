package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL        = "https://blackclover.com.lv/"
	DefaultDocumentFolder = "Black_Clover_Manga"
)

type Config struct {
	BaseURL      string `yaml:"base_url"`
	Mode         string `yaml:"mode"`
	Output       string `yaml:"output"`
	MetadataFile string `yaml:"metadata_file"`

	ChapterMarker  string   `yaml:"chapter_marker"`
	ChapterPattern string   `yaml:"chapter_pattern"`
	ImageMatch     []string `yaml:"image_match"`
	TitleSelector  string   `yaml:"title_selector"`

	Limit        int           `yaml:"limit"`
	ImageDelay   time.Duration `yaml:"image_delay"`
	ChapterDelay time.Duration `yaml:"chapter_delay"`
	Timeout      time.Duration `yaml:"timeout"`
	Retries      int           `yaml:"retries"`

	Cookie           string `yaml:"cookie"`
	CookieFile       string `yaml:"cookie_file"`
	UserAgent        string `yaml:"user_agent"`
	CloudflareBypass bool   `yaml:"cloudflare_bypass"`

	Debug bool `yaml:"debug"`
}

// Options carries CLI overrides. Empty strings and nil pointers leave the
// profile untouched; a pointer to zero sets zero.
type Options struct {
	IgnoreConfig     bool
	Debug            bool
	BaseURL          string
	Mode             string
	Output           string
	Limit            *int
	ImageDelay       *time.Duration
	ChapterDelay     *time.Duration
	Retries          *int
	Cookie           string
	CookieFile       string
	UserAgent        string
	CloudflareBypass bool
}

func DefaultConfig() *Config {
	return &Config{
		BaseURL:        DefaultBaseURL,
		Mode:           "pdf",
		Output:         "",
		MetadataFile:   "manga_metadata.json",
		ChapterMarker:  "/manga/black-clover-chapter-",
		ChapterPattern: `chapter-(\d+)`,
		ImageMatch:     []string{"planeptune.us/manga/Black-Clover/"},
		TitleSelector:  "h1",
		ImageDelay:     500 * time.Millisecond,
		ChapterDelay:   time.Second,
		Timeout:        30 * time.Second,
		Retries:        1,
	}
}

func SaveYAML(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func loadYAML(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// keys missing from the file keep their defaults
	c := DefaultConfig()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}

	return c, nil
}

// LoadMerged returns the active profile (or the defaults) with opts applied,
// and a description of where it came from.
func LoadMerged(opts Options) (*Config, string, error) {
	if opts.IgnoreConfig {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		return cfg, "(ignored config)", normalize(cfg)
	}

	activePath, err := ActiveConfigPath()
	if err == ErrNoConfig || activePath == "" {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		return cfg, "(default config in memory)\nRun `chapterdl config init` to create an actual config", normalize(cfg)
	}
	if err != nil {
		return nil, "", err
	}

	cfg, err := loadYAML(activePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config %s: %w", activePath, err)
	}

	mergeConfig(cfg, opts)
	return cfg, activePath, normalize(cfg)
}

func mergeConfig(c *Config, o Options) {
	if o.Debug {
		c.Debug = true
	}
	if o.BaseURL != "" {
		c.BaseURL = o.BaseURL
	}
	if o.Mode != "" {
		c.Mode = o.Mode
	}
	if o.Output != "" {
		c.Output = o.Output
	}
	if o.Limit != nil {
		c.Limit = *o.Limit
	}
	if o.ImageDelay != nil {
		c.ImageDelay = *o.ImageDelay
	}
	if o.ChapterDelay != nil {
		c.ChapterDelay = *o.ChapterDelay
	}
	if o.Retries != nil {
		c.Retries = *o.Retries
	}
	if o.Cookie != "" {
		c.Cookie = o.Cookie
	}
	if o.CookieFile != "" {
		c.CookieFile = o.CookieFile
	}
	if o.UserAgent != "" {
		c.UserAgent = o.UserAgent
	}
	if o.CloudflareBypass {
		c.CloudflareBypass = true
	}
}

func normalize(c *Config) error {
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	if c.Mode == "" {
		c.Mode = "pdf"
	}
	switch c.Mode {
	case "flat", "pdf", "cbz", "epub":
	default:
		return fmt.Errorf("invalid mode %q (want flat, pdf, cbz or epub)", c.Mode)
	}

	if c.Output == "" {
		c.Output = DefaultOutput(c.Mode)
	}
	if c.MetadataFile == "" {
		c.MetadataFile = "manga_metadata.json"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Retries < 1 {
		c.Retries = 1
	}
	if c.Limit < 0 {
		c.Limit = 0
	}
	if c.ImageDelay < 0 {
		c.ImageDelay = 0
	}
	if c.ChapterDelay < 0 {
		c.ChapterDelay = 0
	}

	return nil
}

// DefaultOutput keeps loose pages next to the metadata file in the
// working directory and documents in their own folder.
func DefaultOutput(mode string) string {
	if mode == "flat" {
		return "."
	}
	return DefaultDocumentFolder
}

func (c *Config) Print() {
	fmt.Printf(" -base_url: %s\n", c.BaseURL)
	fmt.Printf(" -mode: %s\n", c.Mode)
	if c.Output != "" {
		fmt.Printf(" -output: %s\n", c.Output)
	}
	if c.Mode == "flat" {
		fmt.Printf(" -metadata_file: %s\n", c.MetadataFile)
	}
	fmt.Printf(" -chapter_marker: %s\n", c.ChapterMarker)
	fmt.Printf(" -chapter_pattern: %s\n", c.ChapterPattern)
	fmt.Printf(" -image_match: %s\n", strings.Join(c.ImageMatch, ", "))
	fmt.Printf(" -title_selector: %s\n", c.TitleSelector)
	if c.Limit > 0 {
		fmt.Printf(" -limit: %d\n", c.Limit)
	}
	fmt.Printf(" -image_delay: %s\n", c.ImageDelay)
	fmt.Printf(" -chapter_delay: %s\n", c.ChapterDelay)
	fmt.Printf(" -timeout: %s\n", c.Timeout)
	if c.Retries > 1 {
		fmt.Printf(" -retries: %d\n", c.Retries)
	}
	if c.CookieFile != "" {
		fmt.Printf(" -cookie_file: %s\n", c.CookieFile)
	}
	if c.UserAgent != "" {
		fmt.Printf(" -user_agent: %s\n", c.UserAgent)
	}
	if c.CloudflareBypass {
		fmt.Printf(" -cloudflare_bypass: %t\n", c.CloudflareBypass)
	}
	if c.Debug {
		fmt.Printf(" -debug: %t\n", c.Debug)
	}
}
