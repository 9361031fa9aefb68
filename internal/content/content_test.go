package content

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/OxMxDev/portfolio/internal/section"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	p, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "Om Dwivedi", p.Profile.Name)
	assert.Len(t, p.Projects, 3)
	assert.Len(t, p.Skills, 10)
	assert.Len(t, p.Preloader.Lines, 8)
	assert.Equal(t, 1850, p.Preloader.ReadyMS)
	assert.Contains(t, string(p.About.HTML), "<strong>Om Dwivedi</strong>")

	require.Len(t, p.Nav, len(section.DefaultIDs))
	assert.Equal(t, NavItem{ID: section.Home, Label: "Home"}, p.Nav[0])
	assert.Equal(t, NavItem{ID: section.Contact, Label: "Contact"}, p.Nav[4])
}

func TestProjectLookup(t *testing.T) {
	p, err := Default()
	require.NoError(t, err)

	pr, ok := p.Project(3)
	require.True(t, ok)
	assert.Equal(t, "JobPortal", pr.Title)

	_, ok = p.Project(42)
	assert.False(t, ok)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
profile:
  name: Jane
about:
  markdown: "Hello *there*"
projects:
  - id: 1
    title: One
`), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Jane", p.Profile.Name)
	assert.Contains(t, string(p.About.HTML), "<em>there</em>")
}

func TestParseRejectsBadDocuments(t *testing.T) {
	cases := map[string]string{
		"no name":       "profile: {}\n",
		"duplicate ids": "profile: {name: x}\nprojects: [{id: 1, title: a}, {id: 1, title: b}]\n",
		"untitled":      "profile: {name: x}\nprojects: [{id: 1}]\n",
		"boot order":    "profile: {name: x}\npreloader: {ready_ms: 10, exit_ms: 20, lines: [{delay_ms: 5}, {delay_ms: 1}]}\n",
		"ready early":   "profile: {name: x}\npreloader: {ready_ms: 1, exit_ms: 20, lines: [{delay_ms: 5}]}\n",
		"not yaml":      "profile: [\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}
