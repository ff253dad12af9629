package models

// ContentItem is one editable piece of site content, addressed by section+key.
type ContentItem struct {
	BaseModel
	Section   string      `json:"section" gorm:"type:varchar(100);not null;index;uniqueIndex:idx_section_key"`
	Key       string      `json:"key" gorm:"type:varchar(100);not null;uniqueIndex:idx_section_key"`
	Value     interface{} `json:"value" gorm:"type:jsonb;serializer:json"`
	Type      string      `json:"type" gorm:"type:varchar(20);not null;default:'text'"` // text, html, rich, image, array, object
	Order     int         `json:"order" gorm:"column:item_order;not null;default:0"`
	IsActive  bool        `json:"isActive" gorm:"not null;index"`
	UpdatedBy string      `json:"updatedBy,omitempty" gorm:"type:varchar(255)"`
}
