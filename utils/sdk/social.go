package sdk

import "context"

func (c *Client) BlockUser(ctx context.Context, userID string) (string, error) {
	var hash string
	if err := c.call(ctx, "block_user", userID, &hash); err != nil {
		return "", err
	}
	return hash, nil
}

func (c *Client) UnblockUser(ctx context.Context, userID string) error {
	return c.call(ctx, "unblock_user", userID, nil)
}

func (c *Client) IsUserBlocked(ctx context.Context, userID string) (bool, error) {
	var blocked bool
	if err := c.call(ctx, "is_user_blocked", userID, &blocked); err != nil {
		return false, err
	}
	return blocked, nil
}

func (c *Client) GetBlockedUsers(ctx context.Context) ([]string, error) {
	var users []string
	if err := c.call(ctx, "get_blocked_users", empty, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) AddFriend(ctx context.Context, friendID string) (string, error) {
	var hash string
	if err := c.call(ctx, "add_friend", friendID, &hash); err != nil {
		return "", err
	}
	return hash, nil
}

func (c *Client) RemoveFriend(ctx context.Context, friendID string) (string, error) {
	var hash string
	if err := c.call(ctx, "remove_friend", friendID, &hash); err != nil {
		return "", err
	}
	return hash, nil
}

func (c *Client) GetFriends(ctx context.Context) ([]string, error) {
	var friends []string
	if err := c.call(ctx, "get_friends", empty, &friends); err != nil {
		return nil, err
	}
	return friends, nil
}

func (c *Client) IsFriend(ctx context.Context, userID string) (bool, error) {
	var friend bool
	if err := c.call(ctx, "is_friend", userID, &friend); err != nil {
		return false, err
	}
	return friend, nil
}
