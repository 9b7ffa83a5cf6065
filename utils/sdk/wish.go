package sdk

import "context"

// CreateWish 发布心愿,图片与视频哈希可为空,返回心愿条目哈希
func (c *Client) CreateWish(ctx context.Context, text, imageHash, videoHash string) (string, error) {
	payload := map[string]*string{
		"text":       &text,
		"image_hash": nullable(imageHash),
		"video_hash": nullable(videoHash),
	}
	var hash string
	if err := c.call(ctx, "create_wish", payload, &hash); err != nil {
		return "", err
	}
	return hash, nil
}

// GetWishes 全部心愿
func (c *Client) GetWishes(ctx context.Context) ([]Record, error) {
	var wishes []Record
	if err := c.call(ctx, "get_wishes", empty, &wishes); err != nil {
		return nil, err
	}
	return wishes, nil
}

func (c *Client) GetUserWishes(ctx context.Context, userID string) ([]Record, error) {
	var wishes []Record
	if err := c.call(ctx, "get_user_wishes", userID, &wishes); err != nil {
		return nil, err
	}
	return wishes, nil
}

// HelpWish 响应他人心愿,message为空时以null发送
func (c *Client) HelpWish(ctx context.Context, wishID, message string) (string, error) {
	payload := map[string]*string{"wish_id": &wishID, "message": nullable(message)}
	var hash string
	if err := c.call(ctx, "help_wish", payload, &hash); err != nil {
		return "", err
	}
	return hash, nil
}

func (c *Client) GetWishHelpers(ctx context.Context, wishID string) ([]Record, error) {
	var helpers []Record
	if err := c.call(ctx, "get_wish_helpers", wishID, &helpers); err != nil {
		return nil, err
	}
	return helpers, nil
}

// MarkWishFulfilled 将心愿标记为已实现,返回更新后的心愿
func (c *Client) MarkWishFulfilled(ctx context.Context, wishID string) (Record, error) {
	var wish Record
	if err := c.call(ctx, "mark_wish_fulfilled", wishID, &wish); err != nil {
		return nil, err
	}
	return wish, nil
}
