package domain

import "time"

// Article is one piece of writing loaded from the content directory.
//
// HTML is the rendered body: the tree every offset is relative to.
type Article struct {
	Slug     string
	Title    string
	Date     time.Time
	Summary  string
	Markdown string
	HTML     string

	// SourcePath is the file the article was loaded from.
	SourcePath string

	// LoadedAt is when the current rendered body was first seen; reloads that
	// render the same body keep it.
	LoadedAt time.Time
}
