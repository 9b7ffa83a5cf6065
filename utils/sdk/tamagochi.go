package sdk

import "context"

// 电子宠物
//
// 每个用户最多拥有一只宠物,状态由远端维护:
//
//	stage: egg -> baby -> child -> teen -> adult,经验值达到阈值后进化
//	hunger/hygiene/happiness 取值0-100,随时间衰减,update_tamagochi_state 按流逝时间结算
//	死亡记录保存死亡原因(starvation/neglect/old_age/killed)
//
// 喂食、清洁、玩耍等操作均以当前登录用户为宠物主人,返回操作后的最新状态,
// 调用方可直接用返回值刷新界面,无需再次查询。

// CreateTamagochi 为当前用户领养宠物,返回宠物条目哈希;已有宠物时远端返回错误
func (c *Client) CreateTamagochi(ctx context.Context, name string) (string, error) {
	var hash string
	if err := c.call(ctx, "create_tamagochi", map[string]string{"name": name}, &hash); err != nil {
		return "", err
	}
	return hash, nil
}

// tamagochi 无参数的宠物操作,返回最新状态
func (c *Client) tamagochi(ctx context.Context, function string) (Record, error) {
	var state Record
	if err := c.call(ctx, function, empty, &state); err != nil {
		return nil, err
	}
	return state, nil
}

// GetTamagochi 当前用户的宠物,没有时返回nil
func (c *Client) GetTamagochi(ctx context.Context) (Record, error) {
	return c.tamagochi(ctx, "get_tamagochi")
}

// FeedTamagochi 喂食,提升hunger(100为饱)
func (c *Client) FeedTamagochi(ctx context.Context) (Record, error) {
	return c.tamagochi(ctx, "feed_tamagochi")
}

// CleanTamagochi 清洁,提升hygiene
func (c *Client) CleanTamagochi(ctx context.Context) (Record, error) {
	return c.tamagochi(ctx, "clean_tamagochi")
}

// PlayWithTamagochi 玩耍,提升快乐度与经验
func (c *Client) PlayWithTamagochi(ctx context.Context) (Record, error) {
	return c.tamagochi(ctx, "play_with_tamagochi")
}

// UpdateTamagochiState 按上次更新以来的时间结算衰减,可能触发死亡
func (c *Client) UpdateTamagochiState(ctx context.Context) (Record, error) {
	return c.tamagochi(ctx, "update_tamagochi_state")
}

// AutoGrowTamagochi 按存活时间自动增长经验并检查进化
func (c *Client) AutoGrowTamagochi(ctx context.Context) (Record, error) {
	return c.tamagochi(ctx, "auto_grow_tamagochi")
}

// KillTamagochi 主动结束宠物,返回死亡记录的条目哈希
func (c *Client) KillTamagochi(ctx context.Context) (string, error) {
	var hash string
	if err := c.call(ctx, "kill_tamagochi", empty, &hash); err != nil {
		return "", err
	}
	return hash, nil
}

// GetTamagochiDeaths 当前用户的宠物死亡记录
func (c *Client) GetTamagochiDeaths(ctx context.Context) ([]Record, error) {
	var deaths []Record
	if err := c.call(ctx, "get_tamagochi_deaths", empty, &deaths); err != nil {
		return nil, err
	}
	return deaths, nil
}

// VisitTamagochi 拜访他人的宠物,可附留言,返回拜访条目哈希
func (c *Client) VisitTamagochi(ctx context.Context, ownerID, message string) (string, error) {
	payload := map[string]*string{"owner_id": &ownerID, "message": nullable(message)}
	var hash string
	if err := c.call(ctx, "visit_tamagochi", payload, &hash); err != nil {
		return "", err
	}
	return hash, nil
}

func (c *Client) GetTamagochiVisits(ctx context.Context, ownerID string) ([]Record, error) {
	var visits []Record
	if err := c.call(ctx, "get_tamagochi_visits", ownerID, &visits); err != nil {
		return nil, err
	}
	return visits, nil
}

// GetTamagochiForUser 查看指定用户的宠物,没有时返回nil
func (c *Client) GetTamagochiForUser(ctx context.Context, userID string) (Record, error) {
	var state Record
	if err := c.call(ctx, "get_tamagochi_for_user", userID, &state); err != nil {
		return nil, err
	}
	return state, nil
}
