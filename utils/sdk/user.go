package sdk

import (
	"context"

	"github.com/redlibre/grip/ex"
)

// RegisterUser 注册账号,返回并记录当前用户agent标识
func (c *Client) RegisterUser(ctx context.Context, email, password, name string) (string, error) {
	var agent string
	if err := c.call(ctx, "register_user", map[string]string{"email": email, "password": password, "name": name}, &agent); err != nil {
		return "", err
	}
	c.SetSelf(agent)
	return agent, nil
}

// Login 登录,返回并记录当前用户agent标识
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var agent string
	if err := c.call(ctx, "login", map[string]string{"email": email, "password": password}, &agent); err != nil {
		return "", err
	}
	if len(agent) == 0 {
		return "", ex.Throw{Code: ex.REMOTE, Msg: "login returned empty agent id"}
	}
	c.SetSelf(agent)
	return agent, nil
}

// GetUserProfile 查询用户档案,userID为空时查询当前用户;不存在时返回nil
func (c *Client) GetUserProfile(ctx context.Context, userID string) (*User, error) {
	var payload interface{} = empty
	if len(userID) > 0 {
		payload = userID
	}
	var user *User
	if err := c.call(ctx, "get_user_profile", payload, &user); err != nil {
		return nil, err
	}
	return user, nil
}

func (c *Client) UpdateUserProfile(ctx context.Context, update ProfileUpdate) (*User, error) {
	user := &User{}
	if err := c.call(ctx, "update_user_profile", update, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (c *Client) VerifyUser(ctx context.Context, rut, idCardImageHash string) (*User, error) {
	user := &User{}
	if err := c.call(ctx, "verify_user", map[string]string{"rut": rut, "id_card_image_hash": idCardImageHash}, user); err != nil {
		return nil, err
	}
	return user, nil
}

// RequestPasswordReset 申请重置密码,返回重置令牌
func (c *Client) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	var token string
	if err := c.call(ctx, "request_password_reset", email, &token); err != nil {
		return "", err
	}
	return token, nil
}

func (c *Client) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	return c.call(ctx, "reset_password", map[string]string{"email": email, "token": token, "new_password": newPassword}, nil)
}

func (c *Client) SetGhostMode(ctx context.Context, enabled bool) (*User, error) {
	user := &User{}
	if err := c.call(ctx, "set_ghost_mode", enabled, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (c *Client) UpdateLastSeen(ctx context.Context) error {
	return c.call(ctx, "update_last_seen", empty, nil)
}

func (c *Client) GetUserPreferences(ctx context.Context) (Record, error) {
	var prefs Record
	if err := c.call(ctx, "get_user_preferences", empty, &prefs); err != nil {
		return nil, err
	}
	return prefs, nil
}

func (c *Client) UpdateUserPreferences(ctx context.Context, prefs Preferences) (Record, error) {
	var result Record
	if err := c.call(ctx, "update_user_preferences", prefs, &result); err != nil {
		return nil, err
	}
	return result, nil
}
