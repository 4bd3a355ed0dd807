package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"linebot-assistant/internal/models"
)

type jsonGenerator interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// ParsingService turns free text into structured intents and place
// suggestions by running the model in JSON mode.
type ParsingService struct {
	model      jsonGenerator
	maxResults int
	now        func() time.Time
	loc        *time.Location
}

// NewParsingService builds the classifier. maxResults caps nearby-search
// suggestions.
func NewParsingService(model jsonGenerator, maxResults int) *ParsingService {
	loc, err := time.LoadLocation("Asia/Taipei")
	if err != nil {
		loc = time.FixedZone("CST", 8*60*60)
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	return &ParsingService{model: model, maxResults: maxResults, now: time.Now, loc: loc}
}

// intentEnvelope is the JSON shape the classification prompt asks for.
type intentEnvelope struct {
	Intent      string  `json:"intent"`
	City        string  `json:"city"`
	Forecast    bool    `json:"forecast"`
	Symbol      string  `json:"symbol"`
	Title       string  `json:"title"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	Description string  `json:"description"`
	Text        string  `json:"text"`
	Target      string  `json:"target_language"`
	Query       string  `json:"query"`
	Amount      float64 `json:"amount"`
	From        string  `json:"from_currency"`
	To          string  `json:"to_currency"`
}

const classifyPromptFormat = `現在時間是 %s（台北時間）。
你是訊息分類器。判斷使用者訊息的意圖，只輸出一個 JSON 物件，不要任何其他文字。

可用的 intent 與對應欄位：
- "weather"：查天氣。city（城市名）、forecast（是否問未來幾天，布林值）
- "stock"：查股價。symbol（股票代號，例如 AAPL、2330.TW）
- "news"：看新聞頭條。
- "calendar"：建立行程。title、start_time、end_time（RFC3339 格式，台北時區）、description。未提到結束時間時 end_time 為 start_time 加一小時；只提到日期時 start_time 用當天 09:00
- "translation"：翻譯。text（原文）、target_language（目標語言，未指定時留空）
- "nearby_search"：找附近地點。query（地點類型，例如 咖啡廳）
- "currency"：匯率換算。amount（數字）、from_currency、to_currency（ISO 4217 代碼）
- "image_options"：詢問有哪些圖片功能、想對圖片做點什麼但沒說清楚。
- "weather_news_options"：想看天氣或新聞，但看不出是哪一種。
- "general_chat"：以上皆非。

使用者訊息：「%s」`

// ClassifyIntent asks the model which operation the text wants. It never
// fails: malformed output, unknown intents, or missing required fields all
// fall back to general chat.
func (s *ParsingService) ClassifyIntent(ctx context.Context, text string) models.Intent {
	prompt := fmt.Sprintf(classifyPromptFormat, s.now().In(s.loc).Format("2006-01-02 15:04:05"), text)

	raw, err := s.model.GenerateJSON(ctx, prompt)
	if err != nil {
		log.Printf("⚠️ Intent classification failed, falling back to chat: %v", err)
		return models.GeneralChat(text)
	}

	var env intentEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		log.Printf("⚠️ Intent response is not valid JSON, falling back to chat: %v", err)
		return models.GeneralChat(text)
	}
	return s.intentFromEnvelope(env, text)
}

// intentFromEnvelope validates the envelope per intent. Anything incomplete
// degrades to general chat instead of guessing.
func (s *ParsingService) intentFromEnvelope(env intentEnvelope, text string) models.Intent {
	switch env.Intent {
	case "weather":
		city := strings.TrimSpace(env.City)
		if city == "" {
			return models.GeneralChat(text)
		}
		return models.Intent{Kind: models.IntentWeather, Weather: &models.WeatherQuery{City: city, Forecast: env.Forecast}}
	case "stock":
		symbol := strings.ToUpper(strings.TrimSpace(env.Symbol))
		if symbol == "" {
			return models.GeneralChat(text)
		}
		return models.Intent{Kind: models.IntentStock, Stock: &models.StockQuery{Symbol: symbol}}
	case "news":
		return models.Intent{Kind: models.IntentNews}
	case "calendar":
		draft, ok := s.eventFromEnvelope(env)
		if !ok {
			return models.GeneralChat(text)
		}
		return models.Intent{Kind: models.IntentCalendar, Event: draft}
	case "translation":
		src := strings.TrimSpace(env.Text)
		if src == "" {
			return models.GeneralChat(text)
		}
		return models.Intent{Kind: models.IntentTranslation, Translation: &models.TranslationRequest{Text: src, Target: strings.TrimSpace(env.Target)}}
	case "nearby_search":
		query := strings.TrimSpace(env.Query)
		if query == "" {
			return models.GeneralChat(text)
		}
		return models.Intent{Kind: models.IntentNearbySearch, Nearby: &models.NearbyQuery{Query: query}}
	case "currency":
		from := strings.ToUpper(strings.TrimSpace(env.From))
		to := strings.ToUpper(strings.TrimSpace(env.To))
		if env.Amount <= 0 || from == "" || to == "" {
			return models.GeneralChat(text)
		}
		return models.Intent{Kind: models.IntentCurrency, Currency: &models.CurrencyQuery{Amount: env.Amount, From: from, To: to}}
	case "image_options":
		return models.Intent{Kind: models.IntentImageOptions}
	case "weather_news_options":
		return models.Intent{Kind: models.IntentWeatherNewsOptions}
	default:
		return models.GeneralChat(text)
	}
}

func (s *ParsingService) eventFromEnvelope(env intentEnvelope) (*models.EventDraft, bool) {
	title := strings.TrimSpace(env.Title)
	if title == "" || env.StartTime == "" {
		return nil, false
	}
	start, err := s.parseEventTime(env.StartTime)
	if err != nil {
		return nil, false
	}
	end := start.Add(time.Hour)
	if env.EndTime != "" {
		if parsed, err := s.parseEventTime(env.EndTime); err == nil && parsed.After(start) {
			end = parsed
		}
	}
	return &models.EventDraft{Title: title, Start: start, End: end, Description: strings.TrimSpace(env.Description)}, true
}

// parseEventTime accepts RFC3339 with or without an offset; bare timestamps
// are read as Taipei time, and a plain date starts the working day at 09:00.
func (s *ParsingService) parseEventTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", value, s.loc); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, s.loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.Add(9 * time.Hour), nil
}

const placesPromptFormat = `使用者位於緯度 %.5f、經度 %.5f（%s）。
請推薦這個位置附近最多 %d 間真實存在的「%s」，只輸出 JSON 陣列，不要其他文字。
每個元素包含：name（店名）、address（地址）、description（一句話介紹，繁體中文）。
若不確定有哪些店家，輸出空陣列 []。`

// SearchPlaces asks the model for up to maxResults real places matching
// query near the coordinates.
func (s *ParsingService) SearchPlaces(ctx context.Context, query string, lat, lng float64, address string) ([]models.Place, error) {
	if address == "" {
		address = "地址未知"
	}
	prompt := fmt.Sprintf(placesPromptFormat, lat, lng, address, s.maxResults, query)

	raw, err := s.model.GenerateJSON(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("search places: %w", err)
	}
	var places []models.Place
	if err := json.Unmarshal([]byte(raw), &places); err != nil {
		return nil, fmt.Errorf("search places: decode response: %w", err)
	}
	if len(places) > s.maxResults {
		places = places[:s.maxResults]
	}
	return places, nil
}
