package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"linebot-assistant/internal/models"
)

func TestRoutingTableKeywords(t *testing.T) {
	table := DefaultRoutingTable()

	cases := []struct {
		text string
		kind models.IntentKind
	}{
		{"功能說明", models.IntentHelp},
		{"HELP", models.IntentHelp},
		{"  幫助  ", models.IntentHelp},
		{"清除對話", models.IntentClearMemory},
		{"待辦清單", models.IntentTodoList},
		{"Todo List", models.IntentTodoList},
		{"圖片功能", models.IntentImageOptions},
		{"資訊查詢", models.IntentWeatherNewsOptions},
		{"天氣新聞", models.IntentWeatherNewsOptions},
		{"[指令]圖片分析", models.IntentAnalyzeMode},
		{"[指令]以圖生圖", models.IntentRedrawMode},
	}
	for _, tc := range cases {
		kind, arg, ok := table.Match(tc.text)
		assert.True(t, ok, "expected %q to match", tc.text)
		assert.Equal(t, tc.kind, kind, "text %q", tc.text)
		assert.Empty(t, arg)
	}
}

func TestRoutingTablePrefixes(t *testing.T) {
	table := DefaultRoutingTable()

	kind, arg, ok := table.Match("新增待辦 買牛奶")
	assert.True(t, ok)
	assert.Equal(t, models.IntentTodoAdd, kind)
	assert.Equal(t, "買牛奶", arg)

	kind, arg, ok = table.Match("完成待辦 2")
	assert.True(t, ok)
	assert.Equal(t, models.IntentTodoComplete, kind)
	assert.Equal(t, "2", arg)

	kind, arg, ok = table.Match("done 買牛奶")
	assert.True(t, ok)
	assert.Equal(t, models.IntentTodoComplete, kind)
	assert.Equal(t, "買牛奶", arg)

	kind, arg, ok = table.Match("畫 一隻太空貓")
	assert.True(t, ok)
	assert.Equal(t, models.IntentDraw, kind)
	assert.Equal(t, "一隻太空貓", arg)
}

func TestRoutingTablePrefixNeedsArgument(t *testing.T) {
	table := DefaultRoutingTable()

	_, _, ok := table.Match("畫")
	assert.False(t, ok)

	_, _, ok = table.Match("新增待辦   ")
	assert.False(t, ok)
}

func TestRoutingTableUnmatchedTextFallsThrough(t *testing.T) {
	table := DefaultRoutingTable()

	_, _, ok := table.Match("今天過得好嗎")
	assert.False(t, ok)

	_, _, ok = table.Match("")
	assert.False(t, ok)
}

func TestRoutingTablePrefixOrder(t *testing.T) {
	table := DefaultRoutingTable()

	// 新增待辦 must win even though another rule could also prefix-match
	// part of the text.
	kind, arg, ok := table.Match("新增待辦 畫畫課報名")
	assert.True(t, ok)
	assert.Equal(t, models.IntentTodoAdd, kind)
	assert.Equal(t, "畫畫課報名", arg)
}
