package certificate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// QRLabel 是校验二维码字段的固定标签。
const QRLabel = "Verification QR"

// StandardLabels 是编辑器侧边栏提供的文本字段标签集合。
var StandardLabels = []string{
	"Recipient Name",
	"Affiliation",
	"Paper Title",
	"Conference Name",
	"Date",
	"Venue",
	"Category",
	"Cert No",
	QRLabel,
}

var (
	// ErrDuplicateLabel 表示模板中已存在同名标签；标签是后续取值映射的键，必须唯一。
	ErrDuplicateLabel = errors.New("field label already exists on template")
	// ErrFieldNotFound 表示目标字段不在列表中。
	ErrFieldNotFound = errors.New("field not found")
	// ErrInvalidKind 表示资产字段只接受 signature/logo 变体。
	ErrInvalidKind = errors.New("invalid asset field kind")
)

// FieldList 是模板的有序字段集合，渲染按数组顺序，后者覆盖前者。
type FieldList []Field

// Add 按标签新增一个文本或二维码字段。
// 标签重复时拒绝并保持列表不变（幂等拒绝语义）。
func (l FieldList) Add(templateName, label string) (FieldList, Field, error) {
	if l.HasLabel(label) {
		return l, Field{}, ErrDuplicateLabel
	}

	kind := KindText
	fontSize := 22
	color := "#333333"
	if label == QRLabel {
		kind = KindQR
		fontSize = 80
		color = "#000000"
	}

	f := Field{
		ID:         fmt.Sprintf("field-%s", uuid.NewString()),
		Kind:       kind,
		Label:      label,
		X:          40,
		Y:          45,
		FontSize:   fontSize,
		FontWeight: "700",
		Color:      color,
		FontFamily: SuggestFont(templateName, label),
	}
	return append(l, f), f, nil
}

// AddAsset 新增签名或 Logo 图片字段，资产已上传完毕。
func (l FieldList) AddAsset(templateName string, kind FieldKind, assetKey, assetURL string) (FieldList, Field, error) {
	if !kind.IsImage() {
		return l, Field{}, ErrInvalidKind
	}

	label := strings.ToUpper(string(kind[:1])) + string(kind[1:])
	fontSize := 60
	if kind == KindLogo {
		fontSize = 80
	}

	f := Field{
		ID:         fmt.Sprintf("%s-%s", kind, uuid.NewString()),
		Kind:       kind,
		Label:      label,
		X:          50,
		Y:          50,
		FontSize:   fontSize,
		FontWeight: "400",
		Color:      "#ffffff",
		FontFamily: SuggestFont(templateName, label),
		AssetKey:   assetKey,
		AssetURL:   assetURL,
	}
	return append(l, f), f, nil
}

// Update 对指定字段应用补丁。
func (l FieldList) Update(fieldID string, p Patch) error {
	for i := range l {
		if l[i].ID == fieldID {
			l[i].Apply(p)
			return nil
		}
	}
	return ErrFieldNotFound
}

// Remove 删除指定字段并返回新列表；字段不存在时返回 ErrFieldNotFound。
func (l FieldList) Remove(fieldID string) (FieldList, error) {
	for i := range l {
		if l[i].ID == fieldID {
			out := make(FieldList, 0, len(l)-1)
			out = append(out, l[:i]...)
			return append(out, l[i+1:]...), nil
		}
	}
	return l, ErrFieldNotFound
}

// HasLabel 报告列表中是否已有该标签（精确匹配）。
func (l FieldList) HasLabel(label string) bool {
	for _, f := range l {
		if f.Label == label {
			return true
		}
	}
	return false
}

// ByID 返回指定字段。
func (l FieldList) ByID(fieldID string) (Field, bool) {
	for _, f := range l {
		if f.ID == fieldID {
			return f, true
		}
	}
	return Field{}, false
}

// MarshalJSONB 序列化为 JSONB 列内容；空列表写出 []，避免 NULL。
func (l FieldList) MarshalJSONB() ([]byte, error) {
	if l == nil {
		l = FieldList{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal field list: %w", err)
	}
	return data, nil
}

// ParseFieldList 从 JSONB 列内容还原字段列表。
func ParseFieldList(data []byte) (FieldList, error) {
	if len(data) == 0 {
		return FieldList{}, nil
	}
	var l FieldList
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("unmarshal field list: %w", err)
	}
	return l, nil
}
