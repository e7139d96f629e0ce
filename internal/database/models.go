package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User 表示可登录证书后台的管理员账号。
type User struct {
	gorm.Model
	Username     string `gorm:"uniqueIndex;size:64"`
	PasswordHash string `gorm:"size:255"`
}

// Template 表示证书底版：一张背景图加一组可放置字段。
// Fields 以 JSONB 整体存储，保存采用全量替换语义（last writer wins）。
type Template struct {
	gorm.Model
	Name          string         `gorm:"size:255"`
	ImageURL      string         `gorm:"size:512"` // 背景图公开 URL，可为空（未设置底图）
	ImageKey      string         `gorm:"size:512"` // 背景图对象键
	Fields        datatypes.JSON `gorm:"type:jsonb"`
	Certificates  []Certificate  `gorm:"foreignKey:TemplateID"`
}

// Certificate 是一次成功生成的存档记录（Generation Record）。
// 主键即校验 ID（UUID），写入发生在 PDF 成功上传之后，此后不再变更。
type Certificate struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	RecipientName  string `gorm:"size:255"`
	RecipientEmail string `gorm:"size:255"`
	RecipientPhone string `gorm:"size:64"`
	TemplateID     uint   `gorm:"index"`
	Template       Template
	Category       string         `gorm:"size:128"`
	FileURL        string         `gorm:"size:512"`
	FileKey        string         `gorm:"size:512"`
	Metadata       datatypes.JSON `gorm:"type:jsonb"` // 生成时刻的字段取值快照
	CreatedAt      time.Time
}
