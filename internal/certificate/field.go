package certificate

// FieldKind 区分字段变体，创建后不可变。
// 渲染与持久化层只依赖这里的谓词，不做字符串比较。
type FieldKind string

const (
	KindText      FieldKind = "text"
	KindSignature FieldKind = "signature"
	KindLogo      FieldKind = "logo"
	KindQR        FieldKind = "qr"
)

// IsImage 报告该变体是否渲染为上传的图片资产。
func (k FieldKind) IsImage() bool {
	return k == KindSignature || k == KindLogo
}

// IsQR 报告该变体是否渲染为校验二维码。
func (k FieldKind) IsQR() bool {
	return k == KindQR
}

// Valid 报告 k 是否为已知变体。
func (k FieldKind) Valid() bool {
	switch k {
	case KindText, KindSignature, KindLogo, KindQR:
		return true
	}
	return false
}

// 几何与字号约束。
const (
	MinFontSize = 8
	minPercent  = 0.0
	maxPercent  = 100.0
)

// Field 是模板上一个可放置元素。
// X/Y 是相对底版宽高的百分比（0-100），锚点为元素中心；
// FontSize 以 pt 计，图片类字段以其作为像素高度。
type Field struct {
	ID         string    `json:"id"`
	Kind       FieldKind `json:"kind"`
	Label      string    `json:"label"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	FontSize   int       `json:"fontSize"`
	FontWeight string    `json:"fontWeight"`
	Color      string    `json:"color"`
	FontFamily string    `json:"fontFamily"`
	// AssetKey 仅对 signature/logo 有意义，指向已上传资产的对象键。
	AssetKey string `json:"assetKey,omitempty"`
	// AssetURL 是资产的公开访问地址，渲染时使用。
	AssetURL string `json:"assetUrl,omitempty"`
}

// Patch 描述对字段的部分更新；nil 表示该属性不变。
// Kind 与 Label 不在其中：变体不可变，标签是模板内的映射键。
type Patch struct {
	X          *float64 `json:"x"`
	Y          *float64 `json:"y"`
	FontSize   *int     `json:"fontSize"`
	FontWeight *string  `json:"fontWeight"`
	Color      *string  `json:"color"`
	FontFamily *string  `json:"fontFamily"`
}

// ClampPercent 把百分比坐标收敛到 [0,100]。
func ClampPercent(v float64) float64 {
	if v < minPercent {
		return minPercent
	}
	if v > maxPercent {
		return maxPercent
	}
	return v
}

// ClampFontSize 把字号收敛到下限 8pt。
func ClampFontSize(size int) int {
	if size < MinFontSize {
		return MinFontSize
	}
	return size
}

// Apply 将补丁应用到字段，所有数值都先经过收敛。
func (f *Field) Apply(p Patch) {
	if p.X != nil {
		f.X = ClampPercent(*p.X)
	}
	if p.Y != nil {
		f.Y = ClampPercent(*p.Y)
	}
	if p.FontSize != nil {
		f.FontSize = ClampFontSize(*p.FontSize)
	}
	if p.FontWeight != nil {
		f.FontWeight = *p.FontWeight
	}
	if p.Color != nil {
		f.Color = *p.Color
	}
	if p.FontFamily != nil {
		f.FontFamily = *p.FontFamily
	}
}
