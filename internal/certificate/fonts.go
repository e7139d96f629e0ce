package certificate

import "strings"

// FontPalette 是字段可选的字体集合，与渲染端预载的 WebFont 一致。
var FontPalette = []string{
	// Serif (classic)
	"Playfair Display",
	"Lora",
	"Cinzel",
	"Bodoni Moda",
	"Times New Roman",
	// Sans-serif (modern)
	"Montserrat",
	"Open Sans",
	"Raleway",
	"Inter",
	"DM Sans",
	// QR neutral
	"Arial",
}

// SuggestFont 根据模板名与字段标签给出默认字体。
// 纯字符串启发式，仅作为初始值，用户可逐字段覆盖。
func SuggestFont(templateName, fieldLabel string) string {
	if fieldLabel == QRLabel {
		return "Arial"
	}
	name := strings.ToLower(templateName)
	if strings.Contains(name, "award") || strings.Contains(name, "appreciation") || strings.Contains(name, "diploma") {
		if fieldLabel == "Recipient Name" {
			return "Playfair Display"
		}
		return "Lora"
	}
	if strings.Contains(name, "modern") || strings.Contains(name, "tech") || strings.Contains(name, "startup") {
		return "Montserrat"
	}
	return "Playfair Display"
}
