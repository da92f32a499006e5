// Package resume loads the static resume document the site pages render.
package resume

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultDocument []byte

type Resume struct {
	Personal       Personal        `yaml:"personal"`
	Languages      []string        `yaml:"languages"`
	Education      []Education     `yaml:"education"`
	Skills         []SkillCategory `yaml:"skills"`
	Experience     []Job           `yaml:"experience"`
	Internships    []Job           `yaml:"internships"`
	Projects       []Project       `yaml:"projects"`
	Activities     []Activity      `yaml:"co_curricular"`
	Certifications []string        `yaml:"certifications"`
}

type Personal struct {
	Name    string  `yaml:"name"`
	Title   string  `yaml:"title"`
	Summary string  `yaml:"summary"`
	About   string  `yaml:"about"`
	Contact Contact `yaml:"contact"`
	Social  Social  `yaml:"social"`
}

type Contact struct {
	Phone    string `yaml:"phone"`
	Email    string `yaml:"email"`
	Location string `yaml:"location"`
}

type Social struct {
	LinkedIn string `yaml:"linkedin"`
	GitHub   string `yaml:"github"`
}

type Education struct {
	Institution string `yaml:"institution"`
	Degree      string `yaml:"degree"`
	Location    string `yaml:"location"`
	Duration    string `yaml:"duration"`
}

// SkillCategory is a named group of skills. Categories keep their document order.
type SkillCategory struct {
	Name   string   `yaml:"name"`
	Skills []string `yaml:"skills"`
}

// Job is a position. Consultancy roles list their engagements under Clients.
type Job struct {
	Company          string   `yaml:"company"`
	Role             string   `yaml:"role"`
	Duration         string   `yaml:"duration"`
	Responsibilities []string `yaml:"responsibilities"`
	Clients          []Client `yaml:"clients"`
}

type Client struct {
	Name             string   `yaml:"name"`
	Duration         string   `yaml:"duration"`
	Responsibilities []string `yaml:"responsibilities"`
}

type Project struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Link        string `yaml:"link"`
}

type Activity struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Duration    string `yaml:"duration"`
}

// Load reads a resume from path, or the built-in document when path is empty.
func Load(path string) (*Resume, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read resume: %w", err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Parse decodes a YAML resume. Unknown keys are rejected so typos surface at startup.
func Parse(data []byte) (*Resume, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var r Resume
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("parse resume: %w", err)
	}
	if strings.TrimSpace(r.Personal.Name) == "" {
		return nil, errors.New("parse resume: personal.name is required")
	}
	return &r, nil
}

// Default returns the built-in resume. It panics if the embedded document is broken.
func Default() *Resume {
	r, err := Parse(defaultDocument)
	if err != nil {
		panic(err)
	}
	return r
}

// Initials returns the upper-cased first letter of every word in name.
func (r *Resume) Initials() string {
	return Initials(r.Personal.Name)
}

func Initials(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		first, _ := utf8.DecodeRuneInString(word)
		b.WriteRune(unicode.ToUpper(first))
	}
	return b.String()
}

// Language is a spoken language and the speaker's level.
type Language struct {
	Name  string
	Level string
}

// SplitLanguage turns "English (Fluent)" into its name and level.
// A value without a parenthesised level keeps an empty Level.
func SplitLanguage(s string) Language {
	s = strings.TrimSpace(s)
	open := strings.LastIndex(s, "(")
	if open < 0 || !strings.HasSuffix(s, ")") {
		return Language{Name: s}
	}
	return Language{
		Name:  strings.TrimSpace(s[:open]),
		Level: strings.TrimSpace(s[open+1 : len(s)-1]),
	}
}

func (r *Resume) SpokenLanguages() []Language {
	out := make([]Language, 0, len(r.Languages))
	for _, l := range r.Languages {
		out = append(out, SplitLanguage(l))
	}
	return out
}
