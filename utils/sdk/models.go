package sdk

import "github.com/redlibre/grip/codec"

// User 用户档案
type User struct {
	Email        string       `json:"email"`
	PasswordHash string       `json:"password_hash,omitempty"`
	Name         string       `json:"name"`
	Rut          string       `json:"rut,omitempty"`
	ProfileImage string       `json:"profile_image_hash,omitempty"`
	IdCardImage  string       `json:"id_card_image_hash,omitempty"`
	IsVerified   bool         `json:"is_verified"`
	Lat          *float64     `json:"lat,omitempty"`
	Lon          *float64     `json:"lon,omitempty"`
	CreatedAt    int64        `json:"created_at"`
	GhostMode    bool         `json:"ghost_mode,omitempty"`
	LastSeen     int64        `json:"last_seen,omitempty"`
	IsDriver     bool         `json:"is_driver,omitempty"`
	DriverStatus string       `json:"driver_status,omitempty"`
	VehicleInfo  *VehicleInfo `json:"vehicle_info,omitempty"`
}

// ProfileUpdate 档案更新,nil字段不修改
type ProfileUpdate struct {
	Name *string  `json:"name,omitempty"`
	Rut  *string  `json:"rut,omitempty"`
	Lat  *float64 `json:"lat,omitempty"`
	Lon  *float64 `json:"lon,omitempty"`
}

// Image 远端存储的图片,bytes兼容base64与数字数组两种编码
type Image struct {
	Hash      string      `json:"hash"`
	Bytes     codec.Bytes `json:"bytes"`
	MimeType  string      `json:"mime_type"`
	CreatedAt int64       `json:"created_at"`
}

type StickerData struct {
	StickerType string  `json:"sticker_type"`
	Content     string  `json:"content"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Scale       float64 `json:"scale"`
	Rotation    float64 `json:"rotation"`
}

type PostLocation struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Address string  `json:"address,omitempty"`
}

type Post struct {
	AuthorID    string        `json:"author_id"`
	Text        string        `json:"text,omitempty"`
	ImageHashes []string      `json:"image_hashes"`
	VideoHash   string        `json:"video_hash,omitempty"`
	StickerData []StickerData `json:"sticker_data"`
	CreatedAt   int64         `json:"created_at"`
	Location    *PostLocation `json:"location,omitempty"`
}

// NewPost 发布内容,空字段以null发送
type NewPost struct {
	Text        string
	ImageHashes []string
	VideoHash   string
	StickerData []StickerData
	Location    *PostLocation
}

type Product struct {
	SellerID    string   `json:"seller_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Currency    string   `json:"currency"`
	ImageHashes []string `json:"image_hashes"`
	Lat         *float64 `json:"lat,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`
	CreatedAt   int64    `json:"created_at"`
	Sold        bool     `json:"sold"`
}

type NewProduct struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Currency    string   `json:"currency"`
	ImageHashes []string `json:"image_hashes"`
	Lat         *float64 `json:"lat,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`
}

type Service struct {
	ProviderID           string   `json:"provider_id"`
	ServiceType          string   `json:"service_type"`
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	PricePerKm           *float64 `json:"price_per_km,omitempty"`
	BasePrice            *float64 `json:"base_price,omitempty"`
	PricePerNight        *float64 `json:"price_per_night,omitempty"`
	PricePerHour         *float64 `json:"price_per_hour,omitempty"`
	Currency             string   `json:"currency"`
	ImageHashes          []string `json:"image_hashes"`
	Lat                  *float64 `json:"lat,omitempty"`
	Lon                  *float64 `json:"lon,omitempty"`
	Available            bool     `json:"available"`
	CreatedAt            int64    `json:"created_at"`
	RoomCapacity         *int     `json:"room_capacity,omitempty"`
	Amenities            []string `json:"amenities"`
	ProfessionalCategory string   `json:"professional_category,omitempty"`
}

type NewService struct {
	ServiceType          string   `json:"service_type"`
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	PricePerKm           *float64 `json:"price_per_km,omitempty"`
	BasePrice            *float64 `json:"base_price,omitempty"`
	PricePerNight        *float64 `json:"price_per_night,omitempty"`
	PricePerHour         *float64 `json:"price_per_hour,omitempty"`
	Currency             string   `json:"currency"`
	ImageHashes          []string `json:"image_hashes"`
	Lat                  *float64 `json:"lat,omitempty"`
	Lon                  *float64 `json:"lon,omitempty"`
	RoomCapacity         *int     `json:"room_capacity,omitempty"`
	Amenities            []string `json:"amenities"`
	ProfessionalCategory string   `json:"professional_category,omitempty"`
}

// Preferences 用户偏好,更新时nil字段不修改
type Preferences struct {
	AppColor               *string `json:"app_color,omitempty"`
	TamagochiEnabled       *bool   `json:"tamagochi_enabled,omitempty"`
	LocationSharingEnabled *bool   `json:"location_sharing_enabled,omitempty"`
}

type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// VehicleInfo 司机车辆信息
type VehicleInfo struct {
	Make         string   `json:"make"`
	Model        string   `json:"model"`
	Year         *int     `json:"year"`
	Color        *string  `json:"color"`
	LicensePlate *string  `json:"license_plate"`
	Capacity     int      `json:"capacity"`
	PricePerKm   *float64 `json:"price_per_km,omitempty"`
	BasePrice    *float64 `json:"base_price,omitempty"`
	Currency     string   `json:"currency,omitempty"`
}

// DriverInfo 由用户档案推导的司机状态
type DriverInfo struct {
	Status      string
	VehicleInfo *VehicleInfo
}

// DriverPosition get_available_drivers 返回的 [id, lat, lon]
type DriverPosition struct {
	DriverID string
	Lat      float64
	Lon      float64
}

// DriverSummary get_all_drivers 返回的 [id, status, lat, lon, vehicle_info]
type DriverSummary struct {
	DriverID    string
	Status      string
	Lat         *float64
	Lon         *float64
	VehicleInfo *VehicleInfo
}

type RideQuote struct {
	DriverID                 string       `json:"driver_id"`
	DriverName               string       `json:"driver_name"`
	DistanceKm               float64      `json:"distance_km"`
	EstimatedPrice           float64      `json:"estimated_price"`
	Currency                 string       `json:"currency"`
	VehicleInfoJson          string       `json:"vehicle_info,omitempty"`
	EstimatedDurationMinutes *int         `json:"estimated_duration_minutes,omitempty"`
	VehicleInfo              *VehicleInfo `json:"-"`
}

// Record 未建模的远端结构
type Record map[string]interface{}
