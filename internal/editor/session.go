package editor

import (
	"certengine/internal/certificate"
)

// Session 承载一次模板编辑：字段副本、单选状态与进行中的手势。
// 保存是全量替换语义，Session 不做并发编辑合并。
type Session struct {
	TemplateName string
	Fields       certificate.FieldList

	selectedID string
	drag       *DragGesture
	resize     *ResizeGesture
}

// NewSession 以模板当前字段列表开启编辑。
func NewSession(templateName string, fields certificate.FieldList) *Session {
	return &Session{TemplateName: templateName, Fields: fields}
}

// Selected 返回当前选中的字段 ID，空串表示无选中。
func (s *Session) Selected() string {
	return s.selectedID
}

// Select 设置单字段选中；点击空白画布不会走到这里，选中保持。
func (s *Session) Select(fieldID string) bool {
	if _, ok := s.Fields.ByID(fieldID); !ok {
		return false
	}
	s.selectedID = fieldID
	return true
}

// PointerDown 在字段上按下指针：先选中，再开始拖拽。
func (s *Session) PointerDown(canvas Canvas, fieldID string, pointerX, pointerY float64) bool {
	f, ok := s.Fields.ByID(fieldID)
	if !ok {
		return false
	}
	s.selectedID = fieldID
	s.drag = BeginDrag(canvas, f, pointerX, pointerY)
	return true
}

// PointerMove 推进拖拽，字段就地更新，无中间撤销点。
func (s *Session) PointerMove(pointerX, pointerY float64) {
	if s.drag == nil {
		return
	}
	x, y := s.drag.Move(pointerX, pointerY)
	_ = s.Fields.Update(s.selectedID, certificate.Patch{X: &x, Y: &y})
}

// PointerUp 结束拖拽。
func (s *Session) PointerUp() {
	s.drag = nil
}

// ResizeDown 在缩放手柄上按下指针；缩放是独立于拖拽的并行手势。
func (s *Session) ResizeDown(fieldID string, pointerY float64) bool {
	f, ok := s.Fields.ByID(fieldID)
	if !ok {
		return false
	}
	s.resize = BeginResize(f, pointerY)
	s.selectedID = fieldID
	return true
}

// ResizeMove 推进缩放。
func (s *Session) ResizeMove(pointerY float64) {
	if s.resize == nil {
		return
	}
	size := s.resize.Move(pointerY)
	_ = s.Fields.Update(s.selectedID, certificate.Patch{FontSize: &size})
}

// ResizeUp 结束缩放。
func (s *Session) ResizeUp() {
	s.resize = nil
}

// AddField 新增文本/二维码字段并选中它。
func (s *Session) AddField(label string) (certificate.Field, error) {
	fields, f, err := s.Fields.Add(s.TemplateName, label)
	if err != nil {
		return certificate.Field{}, err
	}
	s.Fields = fields
	s.selectedID = f.ID
	return f, nil
}

// AddAssetField 新增图片字段并选中它。
func (s *Session) AddAssetField(kind certificate.FieldKind, assetKey, assetURL string) (certificate.Field, error) {
	fields, f, err := s.Fields.AddAsset(s.TemplateName, kind, assetKey, assetURL)
	if err != nil {
		return certificate.Field{}, err
	}
	s.Fields = fields
	s.selectedID = f.ID
	return f, nil
}

// RemoveField 删除字段；若删除的是选中字段则清空选中。
func (s *Session) RemoveField(fieldID string) error {
	fields, err := s.Fields.Remove(fieldID)
	if err != nil {
		return err
	}
	s.Fields = fields
	if s.selectedID == fieldID {
		s.selectedID = ""
	}
	return nil
}
