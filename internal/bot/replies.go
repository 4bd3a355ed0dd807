package bot

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"linebot-assistant/internal/models"
	"linebot-assistant/internal/services"
)

const (
	busyReply = "目前請求較多，請稍後再試 🙏"

	stateUnavailableReply = "抱歉，暫時無法存取您的資料，請稍後再試。"

	chatErrorReply = "抱歉，AI 對話時發生錯誤，請稍後再試。"

	clearDoneReply   = "好的，我已經將我們先前的對話紀錄都忘記了。"
	clearFailedReply = "清除對話記錄時發生錯誤。"

	analyzeModeReply = "好的，請傳送您想分析的圖片 📷"
	redrawModeReply  = "好的，請傳送您想重新繪製的圖片 🎨"

	imageReceivedAnalyzeReply = "收到您的圖片了，正在進行分析..."
	imageReceivedRedrawReply  = "收到您的圖片了，正在重新繪製..."
	imageNoModeReply          = "想對這張圖片做什麼呢？請先從選單選擇功能再傳一次圖片 👇"

	urlAckReply         = "收到連結，正在為您閱讀整理中，請稍候..."
	youtubeReply        = "抱歉，目前不支援 YouTube 影片摘要，請傳送文章連結 🙏"
	pageUnreadableReply = "抱歉，無法讀取這個網頁的內容。"

	newsEmptyReply = "抱歉，目前找不到任何新聞頭條。"

	todoEmptyReply = "目前沒有待辦事項喔！輸入「新增待辦 買牛奶」就能加入第一項。"

	calendarUnclearReply = "抱歉，我無法理解您的行程安排，可以說得更清楚一點嗎？"

	stockAuthDownReply = "抱歉，股市查詢功能目前暫停服務，可能是因為 API 金鑰設定有誤。"

	helpText = `我是您的 LINE 智慧助理，可以幫您：

💬 聊天：直接輸入訊息
🌤️ 天氣：例如「台北今天天氣如何」
📰 新聞：例如「今天有什麼新聞」
📈 股價：例如「蘋果的股價」
💱 匯率：例如「100 美金換台幣」
🌐 翻譯：例如「幫我把你好翻成日文」
📍 找地點：例如「附近有咖啡廳嗎」
📅 行程：例如「明天下午三點跟客戶開會」
🎨 畫圖：輸入「畫 一隻太空貓」
🖼️ 圖片：傳圖片給我，或輸入「圖片功能」
📝 待辦：輸入「新增待辦 ...」、「待辦清單」、「完成待辦 1」
🔗 網頁摘要：直接貼上文章連結

輸入「清除對話」可以讓我忘記聊天內容。`
)

const (
	drawAckFormat       = "好的，收到繪圖指令：「%s」。\n正在翻譯並生成圖片..."
	analyzeResultFormat = "圖片分析結果：\n%s"
	redrawDoneReply     = "重新繪製完成，請看看這個版本！"

	todoAddedFormat    = "已新增待辦事項：「%s」\n目前共有 %d 項待辦。"
	todoDoneFormat     = "已完成待辦：「%s」，做得好！"
	todoMissingFormat  = "找不到這項待辦：「%s」，輸入「待辦清單」看看編號。"
	cityNotFoundFormat = "抱歉，找不到「%s」這個地點的資訊。"
	stockMissingFormat = "抱歉，找不到股票代碼為「%s」的相關資訊。"
	placeAskFormat     = "好的，要搜尋您附近的「%s」，請點擊左下角的「+」按鈕，分享您的位置給我喔！"
	placeEmptyFormat   = "抱歉，在您附近找不到關於「%s」的地點。"
	locationAckFormat  = "收到您的位置！正在搜尋附近的「%s」，請稍候..."

	currencyUnknownFormat = "抱歉，查不到 %s 或 %s 的匯率資料，請確認貨幣代碼。"
	currencyFormat        = "💱 %.2f %s 約為 %.2f %s\n（匯率：1 %s = %.4f %s）"

	summaryFormat  = "📄 網頁摘要：\n%s"
	calendarFormat = "好的，我為您準備好日曆連結了！\n\n標題：%s\n時間：%s\n\n請點擊下方連結將它加入您的 Google 日曆：\n%s"

	weatherNowFormat = "「%s」目前的天氣資訊：\n天氣狀況：%s\n溫度：%.1f°C\n體感溫度：%.1f°C\n濕度：%d%%\n風速：%.1f m/s"
)

func quickReplyItems(labelsAndTexts ...string) *messaging_api.QuickReply {
	items := make([]messaging_api.QuickReplyItem, 0, len(labelsAndTexts)/2)
	for i := 0; i+1 < len(labelsAndTexts); i += 2 {
		items = append(items, messaging_api.QuickReplyItem{
			Action: messaging_api.MessageAction{Label: labelsAndTexts[i], Text: labelsAndTexts[i+1]},
		})
	}
	return &messaging_api.QuickReply{Items: items}
}

func helpMessage() messaging_api.TextMessage {
	return messaging_api.TextMessage{
		Text: helpText,
		QuickReply: quickReplyItems(
			"資訊查詢", "資訊查詢",
			"圖片功能", "圖片功能",
			"待辦清單", "待辦清單",
		),
	}
}

func imageOptionsMessage() messaging_api.TextMessage {
	return messaging_api.TextMessage{
		Text: "想用哪個圖片功能呢？",
		QuickReply: quickReplyItems(
			"圖片分析", cmdAnalyzeImage,
			"以圖生圖", cmdRedrawImage,
		),
	}
}

func imageNoModePrompt() messaging_api.TextMessage {
	return messaging_api.TextMessage{
		Text: imageNoModeReply,
		QuickReply: quickReplyItems(
			"圖片分析", cmdAnalyzeImage,
			"以圖生圖", cmdRedrawImage,
		),
	}
}

func infoOptionsMessage() messaging_api.TextMessage {
	return messaging_api.TextMessage{
		Text: "想查詢什麼資訊呢？",
		QuickReply: quickReplyItems(
			"台北天氣", "台北今天天氣如何",
			"未來天氣", "台北未來幾天天氣如何",
			"今日新聞", "今天有什麼新聞",
			"美股股價", "蘋果的股價",
		),
	}
}

func askLocationMessage(query string) messaging_api.TextMessage {
	return messaging_api.TextMessage{
		Text: fmt.Sprintf(placeAskFormat, query),
		QuickReply: &messaging_api.QuickReply{
			Items: []messaging_api.QuickReplyItem{
				{Action: messaging_api.LocationAction{Label: "分享位置"}},
			},
		},
	}
}

// placesCarousel renders search suggestions as a carousel, one column per
// place, each linking into Google Maps.
func placesCarousel(query string, places []models.Place) messaging_api.TemplateMessage {
	columns := make([]messaging_api.CarouselColumn, 0, len(places))
	for _, place := range places {
		mapsURL := "https://www.google.com/maps/search/?api=1&query=" +
			url.QueryEscape(place.Name+" "+place.Address)
		text := place.Address
		if place.Description != "" {
			text += "\n" + place.Description
		}
		columns = append(columns, messaging_api.CarouselColumn{
			Title: trimRunes(place.Name, 40),
			Text:  trimRunes(text, 118),
			Actions: []messaging_api.ActionInterface{
				messaging_api.UriAction{Label: "在地圖上打開", Uri: mapsURL},
			},
		})
	}
	return messaging_api.TemplateMessage{
		AltText:  fmt.Sprintf("為您找到附近的「%s」", query),
		Template: messaging_api.CarouselTemplate{Columns: columns},
	}
}

var weekdayNames = [...]string{"日", "一", "二", "三", "四", "五", "六"}

// forecastCarousel renders the daily outlook, one column per day with the
// OpenWeatherMap icon as thumbnail.
func forecastCarousel(city string, days []services.DailyForecast) messaging_api.TemplateMessage {
	columns := make([]messaging_api.CarouselColumn, 0, len(days))
	for _, day := range days {
		title := fmt.Sprintf("%s (%s)", day.Date.Format("01/02"), weekdayNames[day.Date.Weekday()])
		text := fmt.Sprintf("%s\n溫度：%.0f°C - %.0f°C", day.Description, day.MinTemp, day.MaxTemp)
		columns = append(columns, messaging_api.CarouselColumn{
			ThumbnailImageUrl: day.IconURL(),
			Title:             title,
			Text:              trimRunes(text, 58),
			Actions: []messaging_api.ActionInterface{
				messaging_api.MessageAction{Label: "查即時天氣", Text: city + "現在天氣如何"},
			},
		})
	}
	return messaging_api.TemplateMessage{
		AltText:  fmt.Sprintf("「%s」未來天氣預報", city),
		Template: messaging_api.CarouselTemplate{Columns: columns},
	}
}

func formatHeadlines(headlines []services.Headline) string {
	var sb strings.Builder
	sb.WriteString("為您帶來最新的台灣頭條新聞：\n")
	for i, h := range headlines {
		sb.WriteString(fmt.Sprintf("\n%d. %s", i+1, h.Title))
		if h.URL != "" {
			sb.WriteString("\n" + h.URL)
		}
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatQuote(quote *services.StockQuote) string {
	trend := "📊"
	switch {
	case quote.Change > 0:
		trend = "📈"
	case quote.Change < 0:
		trend = "📉"
	}
	name := quote.Name
	if name == "" {
		name = quote.Symbol
	}
	currency := quote.Currency
	if currency == "" {
		currency = "USD"
	}
	return fmt.Sprintf("%s %s (%s) 的即時股價：\n\n目前價格：%.2f %s\n漲跌：%+.2f (%+.2f%%)\n--------------------\n開盤價：%.2f\n最高價：%.2f\n最低價：%.2f\n昨收價：%.2f",
		trend, name, quote.Symbol, quote.Current, currency, quote.Change, quote.ChangePercent,
		quote.Open, quote.High, quote.Low, quote.PrevClose)
}

func formatTodoList(items []string) string {
	var sb strings.Builder
	sb.WriteString("您的待辦清單：")
	for i, item := range items {
		sb.WriteString(fmt.Sprintf("\n%d. %s", i+1, item))
	}
	sb.WriteString("\n\n輸入「完成待辦 編號」來完成項目。")
	return sb.String()
}

func trimRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
