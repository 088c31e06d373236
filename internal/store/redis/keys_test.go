package redis

import "testing"

func TestKeys(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"annotation", AnnotationKey(42), "annotate:annotation:42"},
		{"article index", ArticleAnnotationsKey("my-post"), "annotate:article:my-post:annotations"},
		{"share", ShareKey("abc"), "annotate:share:abc"},
		{"render", RenderKey("my-post|1|2|3"), "annotate:render:my-post|1|2|3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

