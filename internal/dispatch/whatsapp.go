package dispatch

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNoPhone 表示记录中没有可用的电话号码，派发前置检查失败。
var ErrNoPhone = errors.New("no phone number recorded")

// NormalizePhone 去掉电话号码中的所有非数字字符。
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// WhatsAppShareLink 构造带预填消息的 wa.me 深链。
// 发后不理：打开链接即完成派发，没有送达确认。
func WhatsAppShareLink(phone, recipientName, category, verifyURL string) (string, error) {
	digits := NormalizePhone(phone)
	if digits == "" {
		return "", ErrNoPhone
	}
	message := fmt.Sprintf(
		"Hello %s, your certificate for %s is ready! You can verify and download it here: %s",
		recipientName, category, verifyURL,
	)
	return fmt.Sprintf("https://wa.me/%s?text=%s", digits, url.QueryEscape(message)), nil
}
