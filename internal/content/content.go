// Package content holds the static display data of the portfolio page.
package content

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"strings"

	"github.com/OxMxDev/portfolio/internal/section"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"gopkg.in/yaml.v3"
)

//go:embed portfolio.yml
var defaultDocument []byte

type Link struct {
	Label string `yaml:"label" json:"label"`
	Href  string `yaml:"href" json:"href"`
	Icon  string `yaml:"icon" json:"icon"`
}

type Profile struct {
	Name      string     `yaml:"name" json:"name"`
	Brand     string     `yaml:"brand" json:"brand"`
	Role      string     `yaml:"role" json:"role"`
	HeroLines [][]string `yaml:"hero_lines" json:"hero_lines"`
	Tagline   string     `yaml:"tagline" json:"tagline"`
	Socials   []Link     `yaml:"socials" json:"socials"`
}

type Stat struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

type About struct {
	Markdown string        `yaml:"markdown" json:"-"`
	HTML     template.HTML `yaml:"-" json:"html"`
	Stats    []Stat        `yaml:"stats" json:"stats"`
}

type Project struct {
	ID         int      `yaml:"id" json:"id"`
	Title      string   `yaml:"title" json:"title"`
	Subtitle   string   `yaml:"subtitle" json:"subtitle"`
	Tech       []string `yaml:"tech" json:"tech"`
	BrandColor string   `yaml:"brand_color" json:"brand_color"`
	Highlights []string `yaml:"highlights" json:"highlights"`
	GitHub     string   `yaml:"github" json:"github"`
	Live       string   `yaml:"live" json:"live,omitempty"`
	Layout     string   `yaml:"layout" json:"layout"`
	Image      string   `yaml:"image" json:"image,omitempty"`
}

type Skill struct {
	Name  string `yaml:"name" json:"name"`
	Icon  string `yaml:"icon" json:"icon"`
	Color string `yaml:"color" json:"color"`
	Desc  string `yaml:"desc" json:"desc"`
}

type ContactCard struct {
	Title string `yaml:"title" json:"title"`
	Value string `yaml:"value" json:"value"`
	Href  string `yaml:"href" json:"href"`
	Icon  string `yaml:"icon" json:"icon"`
}

type BootLine struct {
	Text    string `yaml:"text" json:"text"`
	DelayMS int    `yaml:"delay_ms" json:"delay_ms"`
}

// Preloader is the terminal-style boot sequence shown before the page.
type Preloader struct {
	ReadyMS int        `yaml:"ready_ms" json:"ready_ms"`
	ExitMS  int        `yaml:"exit_ms" json:"exit_ms"`
	Lines   []BootLine `yaml:"lines" json:"lines"`
}

type NavItem struct {
	ID    section.ID `json:"id"`
	Label string     `json:"label"`
}

// Portfolio is everything the page displays.
type Portfolio struct {
	Profile   Profile       `yaml:"profile" json:"profile"`
	About     About         `yaml:"about" json:"about"`
	Projects  []Project     `yaml:"projects" json:"projects"`
	Skills    []Skill       `yaml:"skills" json:"skills"`
	Contacts  []ContactCard `yaml:"contacts" json:"contacts"`
	Preloader Preloader     `yaml:"preloader" json:"preloader"`
	Footer    string        `yaml:"footer" json:"footer"`
	Nav       []NavItem     `yaml:"-" json:"nav"`
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Typographer, extension.Linkify),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// Default returns the embedded portfolio.
func Default() (*Portfolio, error) {
	return Parse(defaultDocument)
}

// Load reads a portfolio document from path, or the embedded one when path
// is empty.
func Load(path string) (*Portfolio, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading content %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes, checks and renders a portfolio document.
func Parse(data []byte) (*Portfolio, error) {
	var p Portfolio
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing content: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(p.About.Markdown), &buf); err != nil {
		return nil, fmt.Errorf("rendering about: %w", err)
	}
	p.About.HTML = template.HTML(buf.String())

	for _, id := range section.DefaultIDs {
		p.Nav = append(p.Nav, NavItem{ID: id, Label: strings.ToUpper(string(id[:1])) + string(id[1:])})
	}
	return &p, nil
}

func (p *Portfolio) validate() error {
	if strings.TrimSpace(p.Profile.Name) == "" {
		return fmt.Errorf("content: profile.name is required")
	}
	seen := make(map[int]bool, len(p.Projects))
	for i, pr := range p.Projects {
		if strings.TrimSpace(pr.Title) == "" {
			return fmt.Errorf("content: projects[%d].title is required", i)
		}
		if seen[pr.ID] {
			return fmt.Errorf("content: duplicate project id %d", pr.ID)
		}
		seen[pr.ID] = true
	}
	last := -1
	for i, l := range p.Preloader.Lines {
		if l.DelayMS < last {
			return fmt.Errorf("content: preloader.lines[%d] delay goes backwards", i)
		}
		last = l.DelayMS
	}
	if p.Preloader.ReadyMS < last || p.Preloader.ExitMS < p.Preloader.ReadyMS {
		return fmt.Errorf("content: preloader ready/exit must follow the last line")
	}
	return nil
}

// Project returns the project with the given id.
func (p *Portfolio) Project(id int) (Project, bool) {
	for _, pr := range p.Projects {
		if pr.ID == id {
			return pr, true
		}
	}
	return Project{}, false
}
