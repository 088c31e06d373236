package redis

import "strconv"

const (
	// KeyPrefixAnnotation is the prefix for annotation records
	KeyPrefixAnnotation = "annotate:annotation:"
	// KeyPrefixArticle is the prefix for the per-article annotation index
	KeyPrefixArticle = "annotate:article:"
	// KeyAnnotationSeq is the counter annotation ids are drawn from
	KeyAnnotationSeq = "annotate:annotations:seq"
	// KeyAnnotatedArticles is the set of slugs with at least one annotation
	KeyAnnotatedArticles = "annotate:articles:annotated"
	// KeyPrefixShare is the prefix for shared snippet records
	KeyPrefixShare = "annotate:share:"
	// KeyAllShares is the set of all share ids
	KeyAllShares = "annotate:shares:all"
	// KeyPrefixRender is the prefix for cached annotated renders
	KeyPrefixRender = "annotate:render:"
)

// AnnotationKey returns the Redis key for an annotation by ID
func AnnotationKey(id int64) string {
	return KeyPrefixAnnotation + strconv.FormatInt(id, 10)
}

// ArticleAnnotationsKey returns the sorted set of an article's annotation
// ids, scored by creation time
func ArticleAnnotationsKey(slug string) string {
	return KeyPrefixArticle + slug + ":annotations"
}

// ShareKey returns the Redis key for a shared snippet
func ShareKey(id string) string {
	return KeyPrefixShare + id
}

// RenderKey returns the Redis key for a cached render
func RenderKey(key string) string {
	return KeyPrefixRender + key
}
