package worker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"certengine/internal/render"
)

// Renderer 把合成后的 HTML 栅格化为 PNG 位图。
type Renderer interface {
	RenderPNG(html string) ([]byte, error)
}

// PageRenderer 使用无头 Chromium 渲染证书画布并截图。
// 截图按 4 倍设备像素比采集，嵌入 PDF 时再缩回设计尺寸。
type PageRenderer struct {
	logger *slog.Logger
}

func NewPageRenderer(logger *slog.Logger) *PageRenderer {
	return &PageRenderer{logger: logger}
}

// RenderPNG 实现 Renderer。
func (r *PageRenderer) RenderPNG(html string) (_ []byte, err error) {
	log := r.logger

	launch := launcher.New().
		Headless(true).
		NoSandbox(true)
	defer func() {
		if err != nil {
			launch.Cleanup()
		}
	}()

	if path, ok := launcher.LookPath(); ok {
		launch = launch.Bin(path)
	}

	browserURL, err := launch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	browser := rod.New().ControlURL(browserURL).Timeout(90 * time.Second)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("open blank page: %w", err)
	}
	defer func() {
		_ = page.Close()
		_ = browser.Close()
		launch.Cleanup()
	}()

	if err := page.SetDocumentContent(html); err != nil {
		return nil, fmt.Errorf("set document content: %w", err)
	}

	// 背景图与二维码都来自远端 URL，必须等位图解码完成再截图，
	// 否则空白背景会被原样写入证书。
	time.Sleep(200 * time.Millisecond)

	log.Info("Worker: Waiting for image resources to decode...")
	if _, evalErr := page.Timeout(30 * time.Second).Eval(`() => {
	  const imgs = Array.from(document.images);
	  return Promise.all(imgs.map(img => {
	    if (img.complete && img.naturalWidth > 0) return Promise.resolve(true);
	    return new Promise((resolve) => {
	      img.addEventListener('load', () => resolve(true), { once: true });
	      img.addEventListener('error', () => resolve(true), { once: true });
	      setTimeout(() => resolve(true), 15000);
	    });
	  }));
	}`); evalErr != nil {
		log.Warn("Worker: image decode wait failed, continue", slog.Any("error", evalErr))
	}

	time.Sleep(300 * time.Millisecond)

	// 额外等待 WebFont/系统字体就绪，避免回退字体度量导致排版差异
	log.Info("Worker: Waiting for document.fonts.ready...")
	if _, evalErr := page.Timeout(5 * time.Second).Eval(`() => {
	  if (document && document.fonts && document.fonts.ready) {
	    return Promise.race([
	      document.fonts.ready.then(() => true),
	      new Promise((resolve) => setTimeout(() => resolve(true), 3000))
	    ]);
	  }
	  return true;
	}`); evalErr != nil {
		log.Warn("Worker: document.fonts.ready wait failed, continue", slog.Any("error", evalErr))
	}

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             render.CanvasWidth,
		Height:            render.CanvasHeight,
		DeviceScaleFactor: render.CaptureScale,
	}).Call(page); err != nil {
		return nil, fmt.Errorf("set device metrics: %w", err)
	}

	element, err := page.Timeout(10 * time.Second).Element("#capture-root")
	if err != nil {
		return nil, fmt.Errorf("locate capture root: %w", err)
	}

	data, err := element.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return data, nil
}
