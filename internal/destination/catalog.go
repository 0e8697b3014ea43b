package destination

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/models"
)

// 固定设施 ID
const (
	FacilityEntrance     = "entrance"
	FacilityRegistration = "registration_desk"
	FacilityPayment      = "payment_desk"
	FacilityExit         = "exit"
)

// Catalog 固定设施目录（入口、挂号处、缴费处、出口）
type Catalog struct {
	facilities map[string]models.Destination
}

// DefaultCatalog 默认设施数据（本院区主楼一层）
func DefaultCatalog() *Catalog {
	return NewCatalog([]models.Destination{
		{
			ID: FacilityEntrance, Title: "Main Entrance", Building: "main", Floor: "1F", Room: "lobby",
			Coordinates: &models.Point{X: 120, Y: 640}, LocationTagRef: "TAG-MAIN-1F-ENTRANCE",
			Description: "Main building entrance",
		},
		{
			ID: FacilityRegistration, Title: "Registration Desk", Building: "main", Floor: "1F", Room: "reception",
			Coordinates: &models.Point{X: 260, Y: 520}, LocationTagRef: "TAG-MAIN-1F-RECEPTION",
			Description: "Check in and registration",
		},
		{
			ID: FacilityPayment, Title: "Payment Desk", Building: "main", Floor: "1F", Room: "billing",
			Coordinates: &models.Point{X: 420, Y: 520}, LocationTagRef: "TAG-MAIN-1F-BILLING",
			Description: "Payment and prescriptions",
		},
		{
			ID: FacilityExit, Title: "Exit", Building: "main", Floor: "1F", Room: "lobby",
			Coordinates: &models.Point{X: 120, Y: 660}, LocationTagRef: "TAG-MAIN-1F-EXIT",
			Description: "Main building exit",
		},
	})
}

// NewCatalog 由设施列表构建目录
func NewCatalog(facilities []models.Destination) *Catalog {
	c := &Catalog{facilities: make(map[string]models.Destination, len(facilities))}
	for _, f := range facilities {
		c.facilities[f.ID] = f
	}
	return c
}

// LoadCatalog 从 JSON 文件加载设施目录，覆盖默认值中的同名设施
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read facility catalog: %w", err)
	}
	var facilities []models.Destination
	if err := json.Unmarshal(data, &facilities); err != nil {
		return nil, fmt.Errorf("failed to parse facility catalog: %w", err)
	}
	c := DefaultCatalog()
	for _, f := range facilities {
		c.facilities[f.ID] = f
	}
	return c, nil
}

// Lookup 按 ID 查找设施；缺少定位标签的设施视为不可导航
func (c *Catalog) Lookup(id string) *models.Destination {
	f, ok := c.facilities[id]
	if !ok || f.LocationTagRef == "" {
		return nil
	}
	if f.Coordinates != nil {
		p := *f.Coordinates
		f.Coordinates = &p
	}
	return &f
}
