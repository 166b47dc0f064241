package models

// PostStateKind tags the variant held by a PostState
type PostStateKind string

const (
	PostLoading  PostStateKind = "loading"
	PostReady    PostStateKind = "ready"
	PostNotFound PostStateKind = "not_found"
	PostFailed   PostStateKind = "failed"
)

// PostState is what a post page shows at a given moment. Article is only set
// for PostReady and Reason only for PostFailed.
type PostState struct {
	Kind    PostStateKind
	UID     string
	Article *ArticleDetail
	Reason  string
}

// Loading is the placeholder state of a post that is being generated
func Loading(uid string) PostState {
	return PostState{Kind: PostLoading, UID: uid}
}

// Ready wraps a resolved article
func Ready(article ArticleDetail) PostState {
	return PostState{Kind: PostReady, UID: article.UID, Article: &article}
}

// NotFound is the state of an identifier unknown to the content service
func NotFound(uid string) PostState {
	return PostState{Kind: PostNotFound, UID: uid}
}

// Failed is the state of a post whose fetch failed
func Failed(uid, reason string) PostState {
	return PostState{Kind: PostFailed, UID: uid, Reason: reason}
}
