package sdk

import (
	"context"

	"github.com/redlibre/grip/codec"
	"github.com/redlibre/grip/ex"
)

// UploadImage 上传图片,返回图片哈希
func (c *Client) UploadImage(ctx context.Context, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", ex.Throw{Code: ex.BIZ, Msg: "image bytes is nil"}
	}
	payload := struct {
		Bytes    codec.Bytes `json:"bytes"`
		MimeType string      `json:"mime_type"`
	}{Bytes: data, MimeType: mimeType}
	var hash string
	if err := c.call(ctx, "upload_image", payload, &hash); err != nil {
		return "", err
	}
	return hash, nil
}

// GetImage 查询图片,不存在时返回nil
func (c *Client) GetImage(ctx context.Context, hash string) (*Image, error) {
	var img *Image
	if err := c.call(ctx, "get_image", hash, &img); err != nil {
		return nil, err
	}
	return img, nil
}

func (c *Client) SetProfileImage(ctx context.Context, imageHash string) (*User, error) {
	user := &User{}
	if err := c.call(ctx, "set_profile_image", imageHash, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetProfileCover 设置档案封面,coverType为tamagochi、image或video
func (c *Client) SetProfileCover(ctx context.Context, coverType, imageHash, videoHash string) (string, error) {
	payload := map[string]*string{
		"cover_type": &coverType,
		"image_hash": nullable(imageHash),
		"video_hash": nullable(videoHash),
	}
	var hash string
	if err := c.call(ctx, "set_profile_cover", payload, &hash); err != nil {
		return "", err
	}
	return hash, nil
}

func (c *Client) GetProfileCover(ctx context.Context, userID string) (Record, error) {
	var cover Record
	if err := c.call(ctx, "get_profile_cover", userID, &cover); err != nil {
		return nil, err
	}
	return cover, nil
}
