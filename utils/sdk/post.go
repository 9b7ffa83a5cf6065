package sdk

import "context"

// CreatePost 发布内容,返回条目哈希
func (c *Client) CreatePost(ctx context.Context, post NewPost) (string, error) {
	payload := struct {
		Text        *string       `json:"text"`
		ImageHashes []string      `json:"image_hashes"`
		VideoHash   *string       `json:"video_hash"`
		StickerData []StickerData `json:"sticker_data"`
		Location    *PostLocation `json:"location"`
	}{
		Text:        nullable(post.Text),
		ImageHashes: post.ImageHashes,
		VideoHash:   nullable(post.VideoHash),
		StickerData: post.StickerData,
		Location:    post.Location,
	}
	if payload.ImageHashes == nil {
		payload.ImageHashes = []string{}
	}
	if payload.StickerData == nil {
		payload.StickerData = []StickerData{}
	}
	var hash string
	if err := c.call(ctx, "create_post", payload, &hash); err != nil {
		return "", err
	}
	return hash, nil
}

// limitPayload limit小于等于0时以null发送
func limitPayload(limit int) interface{} {
	if limit <= 0 {
		return nil
	}
	return limit
}

func (c *Client) GetFeed(ctx context.Context, limit int) ([]Post, error) {
	var posts []Post
	if err := c.call(ctx, "get_feed", limitPayload(limit), &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) GetUserPosts(ctx context.Context, userID string, limit int) ([]Post, error) {
	payload := map[string]interface{}{"user_id": userID, "limit": limitPayload(limit)}
	var posts []Post
	if err := c.call(ctx, "get_user_posts", payload, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) GetMyPosts(ctx context.Context, limit int) ([]Post, error) {
	var posts []Post
	if err := c.call(ctx, "get_my_posts", limitPayload(limit), &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) ClapPost(ctx context.Context, postHash string, count int) (string, error) {
	var hash string
	if err := c.call(ctx, "clap_post", map[string]interface{}{"post_hash": postHash, "count": count}, &hash); err != nil {
		return "", err
	}
	return hash, nil
}

func (c *Client) GetPostClaps(ctx context.Context, postHash string) (int64, error) {
	var n int64
	if err := c.call(ctx, "get_post_claps", postHash, &n); err != nil {
		return 0, err
	}
	return n, nil
}

func (c *Client) LikePost(ctx context.Context, postHash string) (string, error) {
	var hash string
	if err := c.call(ctx, "like_post", postHash, &hash); err != nil {
		return "", err
	}
	return hash, nil
}

func (c *Client) UnlikePost(ctx context.Context, postHash string) error {
	return c.call(ctx, "unlike_post", postHash, nil)
}

func (c *Client) GetPostLikes(ctx context.Context, postHash string) (int64, error) {
	var n int64
	if err := c.call(ctx, "get_post_likes", postHash, &n); err != nil {
		return 0, err
	}
	return n, nil
}

func (c *Client) HasUserLikedPost(ctx context.Context, postHash string) (bool, error) {
	var liked bool
	if err := c.call(ctx, "has_user_liked_post", postHash, &liked); err != nil {
		return false, err
	}
	return liked, nil
}

// CommentPost 评论内容,parentCommentHash为空表示顶层评论
func (c *Client) CommentPost(ctx context.Context, postHash, text, parentCommentHash string) (string, error) {
	payload := map[string]*string{
		"post_hash":           &postHash,
		"text":                &text,
		"parent_comment_hash": nullable(parentCommentHash),
	}
	var hash string
	if err := c.call(ctx, "comment_post", payload, &hash); err != nil {
		return "", err
	}
	return hash, nil
}

func (c *Client) GetPostComments(ctx context.Context, postHash string) ([]Record, error) {
	var comments []Record
	if err := c.call(ctx, "get_post_comments", postHash, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (c *Client) GetCommentReplies(ctx context.Context, commentHash string) ([]Record, error) {
	var replies []Record
	if err := c.call(ctx, "get_comment_replies", commentHash, &replies); err != nil {
		return nil, err
	}
	return replies, nil
}

func (c *Client) ReportPost(ctx context.Context, postHash, reason, description string) (string, error) {
	payload := map[string]*string{
		"post_hash":   &postHash,
		"reason":      &reason,
		"description": nullable(description),
	}
	var hash string
	if err := c.call(ctx, "report_post", payload, &hash); err != nil {
		return "", err
	}
	return hash, nil
}
