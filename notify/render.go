// Package notify renders sweep reports as HTML email and delivers them.
package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"uptime-inspector/model"
)

const (
	unknownSystem = "알 수 없는 시스템"
	unknownTime   = "알 수 없음"
)

var reportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"statusClass": StatusClass,
	"systemName":  systemName,
	"inspectedAt": inspectedAt,
}).Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; }
        .container { max-width: 800px; margin: 0 auto; padding: 20px; }
        h1 { color: #333; border-bottom: 1px solid #ddd; padding-bottom: 10px; }
        h2 { color: #444; margin-top: 20px; }
        table { border-collapse: collapse; width: 100%; margin-bottom: 20px; }
        th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
        th { background-color: #f2f2f2; }
        .success { color: green; }
        .error { color: red; }
        .warning { color: orange; }
    </style>
</head>
<body>
    <div class="container">
        <h1>시스템 점검 결과</h1>
        <p>아래는 자동화된 시스템 점검 결과입니다.</p>
{{- range .Systems}}
        <h2>{{systemName .}}</h2>
        <p><strong>URL:</strong> <a href="{{.SystemURL}}" target="_blank">{{.SystemURL}}</a></p>
        <p><strong>점검 시간:</strong> {{inspectedAt .StartedAt}}</p>
        <table>
            <tr>
                <th>메뉴</th>
                <th>경로</th>
                <th>상태 코드</th>
                <th>상태</th>
                <th>응답 시간(ms)</th>
            </tr>
{{- range .Results}}
            <tr>
                <td>{{.MenuName}}</td>
                <td>{{.Path}}</td>
                <td>{{.StatusCode}}</td>
                <td class="{{statusClass .StatusCode}}">{{.StatusLabel}}</td>
                <td>{{.ResponseTimeMs}}</td>
            </tr>
{{- end}}
        </table>
{{- end}}
        <p>이 이메일은 자동으로 생성되었습니다. 문의사항이 있으시면 관리자에게 연락해주세요.</p>
    </div>
</body>
</html>
`))

// Render builds the HTML report for a sweep. It does not touch the network.
func Render(sw model.Sweep) (string, error) {
	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, sw); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

// Subject is the mail subject for a report sent at t.
func Subject(t time.Time) string {
	return fmt.Sprintf("[URL Check Web] 시스템 점검 결과 (%s)", t.Format("2006-01-02 15:04"))
}

// StatusClass maps a status code to the report's CSS class.
func StatusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "success"
	case code >= 400:
		return "error"
	}
	return "warning"
}

func systemName(r model.InspectionRecord) string {
	if r.SystemKoreanName != "" {
		return r.SystemKoreanName
	}
	return unknownSystem
}

func inspectedAt(t time.Time) string {
	if t.IsZero() {
		return unknownTime
	}
	return t.Format("2006-01-02 15:04:05")
}
