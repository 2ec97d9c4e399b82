package notification

import (
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/nao1215/webconf/pkg/event"
)

// recordingFailedStatus は録画失敗を表すRECORDING_STATUSの値。
const recordingFailedStatus = "failed"

// ErrUnknownPlugin は登録されていない通知プラグインが指定されたことを表す。
var ErrUnknownPlugin = errors.New("未登録の通知プラグインです")

// renderer は属性から通知のタイトルとメッセージを生成する。
type renderer func(attrs map[string]any) (title, message string, err error)

// renderers はプラグインIDごとのrenderer。
// AVATARやCALL_PARTICIPANTSなどの属性はテンプレートでは使わず、保存した属性からフロントエンドが表示に使う。
var renderers = map[string]renderer{
	event.CallRecordingPluginID: renderCallRecording,
}

// renderMessage はプラグインのテンプレートで通知のタイトルとメッセージを生成する。
func renderMessage(pluginID string, attrs map[string]any) (string, string, error) {
	r, ok := renderers[pluginID]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownPlugin, pluginID)
	}
	return r(attrs)
}

// callRecordingView は録画通知テンプレートに渡す値。
type callRecordingView struct {
	Status   string
	FileName string
	FileURL  string
	Owner    string
}

var (
	callRecordingTitle = template.Must(template.New("title").Parse(
		`{{if .Owner}}{{.Owner}}の{{end}}通話録画`))

	callRecordingMessage = template.Must(template.New("message").Parse(
		`{{if eq .Status "` + recordingFailedStatus + `"}}通話の録画に失敗しました` +
			`{{else}}録画ファイル{{with .FileName}}「{{.}}」{{end}}の準備ができました{{with .FileURL}}: {{.}}{{end}}{{end}}`))
)

// renderCallRecording は録画通知のタイトルとメッセージを生成する。
func renderCallRecording(attrs map[string]any) (string, string, error) {
	view := callRecordingView{
		Status:   attrString(attrs, event.AttrRecordingStatus),
		FileName: attrString(attrs, event.AttrFileName),
		FileURL:  attrString(attrs, event.AttrRecordedFileURL),
		Owner:    attrString(attrs, event.AttrCallOwner),
	}

	var title, message strings.Builder
	if err := callRecordingTitle.Execute(&title, view); err != nil {
		return "", "", fmt.Errorf("タイトルの生成に失敗: %w", err)
	}
	if err := callRecordingMessage.Execute(&message, view); err != nil {
		return "", "", fmt.Errorf("メッセージの生成に失敗: %w", err)
	}
	return title.String(), message.String(), nil
}

// attrString は文字列の属性を返す。無いか文字列でなければ空文字。
func attrString(attrs map[string]any, key string) string {
	s, _ := attrs[key].(string)
	return s
}
