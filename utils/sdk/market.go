package sdk

import "context"

func (c *Client) CreateProduct(ctx context.Context, product NewProduct) (string, error) {
	if product.ImageHashes == nil {
		product.ImageHashes = []string{}
	}
	var hash string
	if err := c.call(ctx, "create_product", product, &hash); err != nil {
		return "", err
	}
	return hash, nil
}

// GetProducts 查询商品,sellerID为空时查询全部
func (c *Client) GetProducts(ctx context.Context, sellerID string) ([]Product, error) {
	var products []Product
	if err := c.call(ctx, "get_products", nullable(sellerID), &products); err != nil {
		return nil, err
	}
	return products, nil
}

// CommentOnProduct 商品评论,载荷为 [product_id, text, parent_comment_hash]
func (c *Client) CommentOnProduct(ctx context.Context, productID, text, parentCommentHash string) (string, error) {
	payload := []interface{}{productID, text, nullable(parentCommentHash)}
	var hash string
	if err := c.call(ctx, "comment_on_product", payload, &hash); err != nil {
		return "", err
	}
	return hash, nil
}

func (c *Client) GetProductComments(ctx context.Context, productID string) ([]Record, error) {
	var comments []Record
	if err := c.call(ctx, "get_product_comments", productID, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (c *Client) CreateService(ctx context.Context, service NewService) (string, error) {
	if service.ImageHashes == nil {
		service.ImageHashes = []string{}
	}
	if service.Amenities == nil {
		service.Amenities = []string{}
	}
	var hash string
	if err := c.call(ctx, "create_service", service, &hash); err != nil {
		return "", err
	}
	return hash, nil
}

// GetServices 按类型查询服务,serviceType为空时查询全部
func (c *Client) GetServices(ctx context.Context, serviceType string) ([]Service, error) {
	var services []Service
	if err := c.call(ctx, "get_services", nullable(serviceType), &services); err != nil {
		return nil, err
	}
	return services, nil
}

func (c *Client) GetActiveBanners(ctx context.Context) ([]Record, error) {
	var banners []Record
	if err := c.call(ctx, "get_active_banners", empty, &banners); err != nil {
		return nil, err
	}
	return banners, nil
}

func (c *Client) RecordBannerImpression(ctx context.Context, bannerHash string) error {
	return c.call(ctx, "record_banner_impression", bannerHash, nil)
}

func (c *Client) RecordBannerClick(ctx context.Context, bannerHash string) error {
	return c.call(ctx, "record_banner_click", bannerHash, nil)
}
