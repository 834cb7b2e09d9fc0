package dynamo

// Attribute names used in key, condition and update expressions.
const (
	attrUserID       = "user_id"
	attrEmail        = "email"
	attrType         = "type"
	attrPostID       = "post_id"
	attrCommentID    = "comment_id"
	attrTag          = "tag"
	attrSortKey      = "sk"
	attrCreatedAt    = "created_at"
	attrUpdatedAt    = "updated_at"
	attrSavedAt      = "saved_at"
	attrExpiresAt    = "expires_at"
	attrLikeCount    = "like_count"
	attrCommentCount = "comment_count"
	attrContent      = "content"

	indexEmail           = "email-index"
	indexCommentsByPost  = "post_id-created_at-index"
	indexSavedByUserTime = "user_id-saved_at-index"
)
