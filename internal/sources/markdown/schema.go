package markdown

import "time"

// FrontMatter is the YAML header at the top of an article file:
//
//	---
//	title: Reading notes
//	date: 2026-02-01
//	summary: What I read this month
//	---
type FrontMatter struct {
	Title   string    `yaml:"title"`
	Slug    string    `yaml:"slug,omitempty"`
	Date    time.Time `yaml:"date,omitempty"`
	Summary string    `yaml:"summary,omitempty"`
	Draft   bool      `yaml:"draft,omitempty"`
}

// File is one parsed article file before rendering.
type File struct {
	Path   string
	Header FrontMatter
	Body   []byte
}
