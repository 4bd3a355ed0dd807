package bot

import (
	"strings"

	"linebot-assistant/internal/models"
)

// The two image commands also appear as quick-reply actions, so the exact
// strings are shared.
const (
	cmdAnalyzeImage = "[指令]圖片分析"
	cmdRedrawImage  = "[指令]以圖生圖"
)

// RoutingTable holds the deterministic text rules: exact keywords checked
// first, then prefix rules in declaration order. It is built once at startup
// and read concurrently without locking.
type RoutingTable struct {
	keywords map[string]models.IntentKind
	prefixes []prefixRule
}

type prefixRule struct {
	prefix string
	kind   models.IntentKind
}

// DefaultRoutingTable builds the production rule set. Latin triggers are
// matched case-insensitively.
func DefaultRoutingTable() *RoutingTable {
	t := &RoutingTable{keywords: make(map[string]models.IntentKind)}

	t.keyword(models.IntentHelp, "功能說明", "help", "幫助", "指令")
	t.keyword(models.IntentClearMemory, "清除對話", "忘記對話", "清除記憶")
	t.keyword(models.IntentTodoList, "待辦清單", "我的待辦", "todo list")
	t.keyword(models.IntentImageOptions, "圖片功能")
	t.keyword(models.IntentWeatherNewsOptions, "資訊查詢", "天氣新聞")
	t.keyword(models.IntentAnalyzeMode, cmdAnalyzeImage)
	t.keyword(models.IntentRedrawMode, cmdRedrawImage)

	// Order matters: "畫" is greedy, so the todo prefixes come first.
	t.prefix(models.IntentTodoAdd, "新增待辦")
	t.prefix(models.IntentTodoAdd, "todo ")
	t.prefix(models.IntentTodoComplete, "完成待辦")
	t.prefix(models.IntentTodoComplete, "done ")
	t.prefix(models.IntentDraw, "畫")

	return t
}

func (t *RoutingTable) keyword(kind models.IntentKind, words ...string) {
	for _, w := range words {
		t.keywords[strings.ToLower(w)] = kind
	}
}

func (t *RoutingTable) prefix(kind models.IntentKind, p string) {
	t.prefixes = append(t.prefixes, prefixRule{prefix: p, kind: kind})
}

// Match resolves text against the table. For prefix rules the remainder
// after the prefix, trimmed, is returned as the argument; a prefix with an
// empty remainder does not match, so the text can still fall through to the
// classifier.
func (t *RoutingTable) Match(text string) (models.IntentKind, string, bool) {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	if kind, ok := t.keywords[lower]; ok {
		return kind, "", true
	}
	for _, rule := range t.prefixes {
		if strings.HasPrefix(lower, rule.prefix) {
			arg := strings.TrimSpace(trimmed[len(rule.prefix):])
			if arg != "" {
				return rule.kind, arg, true
			}
		}
	}
	return "", "", false
}
