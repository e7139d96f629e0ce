package render

// certificateTemplateString 是证书合成缓冲的 HTML 模板。
// 它必须与交互式预览的布局规则完全一致：
// 背景 object-fit: fill，字段以 (x%, y%) 为中心锚点，字号按 1.25px/pt 放大。
const certificateTemplateString = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <link href="https://fonts.googleapis.com/css2?family=Playfair+Display:wght@400;700;800&family=Montserrat:wght@400;600;700&family=Lora:wght@400;700&family=Cinzel:wght@400;700&family=Bodoni+Moda:wght@400;700&family=Open+Sans:wght@400;700&family=Raleway:wght@400;700&family=DM+Sans:wght@400;700&display=swap" rel="stylesheet">
    <style>
        html, body {
            margin: 0;
            padding: 0;
            background: #ffffff;
        }
        #capture-root {
            width: {{.Width}}px;
            height: {{.Height}}px;
            position: relative;
            background: #ffffff;
            overflow: hidden;
            -webkit-font-smoothing: antialiased;
        }
        #capture-root > img.background {
            width: 100%;
            height: 100%;
            object-fit: fill;
            display: block;
        }
        .field {
            position: absolute;
            transform: translate(-50%, -50%);
            white-space: pre;
            line-height: 1;
            display: flex;
            align-items: center;
            justify-content: center;
            text-align: center;
        }
    </style>
</head>
<body>
    <div id="capture-root">
        {{if .BackgroundURL}}<img class="background" src="{{.BackgroundURL}}">{{end}}
        {{range .Fields}}
        <div class="field" style="top: {{.Y}}%; left: {{.X}}%; font-size: {{.FontPx}}px; font-weight: {{.FontWeight}}; color: {{.Color}}; font-family: '{{.FontFamily}}', serif;">
            {{- if .ImageURL}}
            <img src="{{.ImageURL}}" style="height: {{.FontPx}}px;">
            {{- else if .QRURL}}
            <img src="{{.QRURL}}" style="width: {{.FontPx}}px; height: {{.FontPx}}px;">
            {{- else}}{{.Text}}{{end}}
        </div>
        {{end}}
    </div>
</body>
</html>
`
