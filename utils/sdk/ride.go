package sdk

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/redlibre/grip/ex"
	"github.com/redlibre/grip/utils"
	"github.com/redlibre/grip/zlog"
)

const DEFAULT_CURRENCY = "CLP"

// toFloat 元组中的数值,json解码为json.Number,cbor解码为原生数值
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return utils.AnyToStr(v)
}

// location 解析 [lat, lon],其他形态视为无位置
func (c *Client) location(ctx context.Context, function, id string) (*Location, error) {
	var tuple []interface{}
	if err := c.call(ctx, function, id, &tuple); err != nil {
		return nil, err
	}
	if len(tuple) != 2 {
		return nil, nil
	}
	lat, ok1 := toFloat(tuple[0])
	lon, ok2 := toFloat(tuple[1])
	if !ok1 || !ok2 {
		return nil, ex.Throw{Code: ex.DATA, Msg: "location tuple is not numeric", Url: function}
	}
	return &Location{Lat: lat, Lon: lon}, nil
}

func (c *Client) GetUserLocation(ctx context.Context, userID string) (*Location, error) {
	return c.location(ctx, "get_user_location", userID)
}

func (c *Client) GetSharedLocation(ctx context.Context, userID string) (*Location, error) {
	return c.location(ctx, "get_shared_location", userID)
}

func (c *Client) GetDriverLocation(ctx context.Context, driverID string) (*Location, error) {
	return c.location(ctx, "get_driver_location", driverID)
}

func (c *Client) ShareLocation(ctx context.Context, lat, lon float64, shareWith string) (string, error) {
	payload := map[string]interface{}{"lat": lat, "lon": lon, "share_with": shareWith}
	var hash string
	if err := c.call(ctx, "share_location", payload, &hash); err != nil {
		return "", err
	}
	return hash, nil
}

// RegisterAsDriver 注册为司机,currency为空时使用CLP
func (c *Client) RegisterAsDriver(ctx context.Context, vehicle VehicleInfo, pricePerKm, basePrice *float64, currency string) (*User, error) {
	if len(currency) == 0 {
		currency = DEFAULT_CURRENCY
	}
	payload := map[string]interface{}{
		"vehicle_info": vehicle,
		"price_per_km": pricePerKm,
		"base_price":   basePrice,
		"currency":     currency,
	}
	user := &User{}
	if err := c.call(ctx, "register_as_driver", payload, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateDriverPricing 更新计价,nil字段以null发送
func (c *Client) UpdateDriverPricing(ctx context.Context, pricePerKm, basePrice *float64, currency string) (*User, error) {
	payload := map[string]interface{}{
		"price_per_km": pricePerKm,
		"base_price":   basePrice,
		"currency":     nullable(currency),
	}
	user := &User{}
	if err := c.call(ctx, "update_driver_pricing", payload, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateDriverStatus 更新司机状态: available、busy或offline
func (c *Client) UpdateDriverStatus(ctx context.Context, status string, lat, lon *float64) (*User, error) {
	payload := map[string]interface{}{"status": status, "lat": lat, "lon": lon}
	user := &User{}
	if err := c.call(ctx, "update_driver_status", payload, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetDriverInfo 由当前用户档案推导司机信息,非司机返回nil
func (c *Client) GetDriverInfo(ctx context.Context) (*DriverInfo, error) {
	user, err := c.GetUserProfile(ctx, "")
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsDriver {
		return nil, nil
	}
	info := &DriverInfo{Status: user.DriverStatus, VehicleInfo: user.VehicleInfo}
	if len(info.Status) == 0 {
		info.Status = "offline"
	}
	return info, nil
}

func (c *Client) GetAvailableDrivers(ctx context.Context) ([]DriverPosition, error) {
	var tuples [][]interface{}
	if err := c.call(ctx, "get_available_drivers", empty, &tuples); err != nil {
		return nil, err
	}
	result := make([]DriverPosition, 0, len(tuples))
	for _, t := range tuples {
		if len(t) < 3 {
			zlog.Warn("driver tuple dropped", 0, zlog.Int("size", len(t)))
			continue
		}
		lat, _ := toFloat(t[1])
		lon, _ := toFloat(t[2])
		result = append(result, DriverPosition{DriverID: toString(t[0]), Lat: lat, Lon: lon})
	}
	return result, nil
}

// parseVehicleInfo vehicle_info 以JSON文本传输
func parseVehicleInfo(s string) *VehicleInfo {
	if len(s) == 0 {
		return nil
	}
	info := &VehicleInfo{}
	if err := utils.JsonUnmarshal(utils.Str2Bytes(s), info); err != nil {
		zlog.Warn("vehicle info is not valid JSON", 0, zlog.AddError(err))
		return nil
	}
	return info
}

func (c *Client) GetAllDrivers(ctx context.Context) ([]DriverSummary, error) {
	var tuples [][]interface{}
	if err := c.call(ctx, "get_all_drivers", empty, &tuples); err != nil {
		return nil, err
	}
	result := make([]DriverSummary, 0, len(tuples))
	for _, t := range tuples {
		if len(t) < 2 {
			zlog.Warn("driver tuple dropped", 0, zlog.Int("size", len(t)))
			continue
		}
		d := DriverSummary{DriverID: toString(t[0]), Status: toString(t[1])}
		if len(t) > 3 {
			if lat, ok := toFloat(t[2]); ok {
				d.Lat = &lat
			}
			if lon, ok := toFloat(t[3]); ok {
				d.Lon = &lon
			}
		}
		if len(t) > 4 {
			d.VehicleInfo = parseVehicleInfo(toString(t[4]))
		}
		result = append(result, d)
	}
	return result, nil
}

// QuoteRide 按行程向可用司机询价
func (c *Client) QuoteRide(ctx context.Context, pickup, dropoff Location) ([]RideQuote, error) {
	payload := map[string]float64{
		"pickup_lat":  pickup.Lat,
		"pickup_lon":  pickup.Lon,
		"dropoff_lat": dropoff.Lat,
		"dropoff_lon": dropoff.Lon,
	}
	var quotes []RideQuote
	if err := c.call(ctx, "quote_ride", payload, &quotes); err != nil {
		return nil, err
	}
	for i := range quotes {
		quotes[i].VehicleInfo = parseVehicleInfo(quotes[i].VehicleInfoJson)
	}
	return quotes, nil
}
