package models

import "time"

// IntentKind enumerates every operation the bot can dispatch.
type IntentKind string

const (
	IntentWeather            IntentKind = "weather"
	IntentStock              IntentKind = "stock"
	IntentNews               IntentKind = "news"
	IntentCalendar           IntentKind = "calendar"
	IntentTranslation        IntentKind = "translation"
	IntentNearbySearch       IntentKind = "nearby_search"
	IntentCurrency           IntentKind = "currency"
	IntentHelp               IntentKind = "help"
	IntentDraw               IntentKind = "draw"
	IntentClearMemory        IntentKind = "clear_memory"
	IntentImageOptions       IntentKind = "image_options"
	IntentWeatherNewsOptions IntentKind = "weather_news_options"
	IntentAnalyzeMode        IntentKind = "analyze_mode"
	IntentRedrawMode         IntentKind = "redraw_mode"
	IntentTodoAdd            IntentKind = "todo_add"
	IntentTodoList           IntentKind = "todo_list"
	IntentTodoComplete       IntentKind = "todo_complete"
	IntentSummarizeURL       IntentKind = "summarize_url"
	IntentGeneralChat        IntentKind = "general_chat"
)

// WeatherQuery asks for conditions in one city.
type WeatherQuery struct {
	City     string
	Forecast bool
}

// StockQuery asks for one ticker quote.
type StockQuery struct {
	Symbol string
}

// EventDraft is a calendar event extracted from free text.
type EventDraft struct {
	Title       string
	Start       time.Time
	End         time.Time
	Description string
}

// TranslationRequest carries the text to translate and the target language.
type TranslationRequest struct {
	Text   string
	Target string
}

// NearbyQuery is a place-search term, resolved against the user's stored
// location.
type NearbyQuery struct {
	Query string
}

// CurrencyQuery converts Amount from one ISO currency code to another.
type CurrencyQuery struct {
	Amount float64
	From   string
	To     string
}

// Intent is the tagged routing decision for one inbound message. Exactly the
// payload matching Kind is set; everything else stays zero.
type Intent struct {
	Kind        IntentKind
	Weather     *WeatherQuery
	Stock       *StockQuery
	Event       *EventDraft
	Translation *TranslationRequest
	Nearby      *NearbyQuery
	Currency    *CurrencyQuery

	// Prompt carries the draw argument, URL the detected link, Todo the
	// todo add/complete argument, Text the chat passthrough.
	Prompt string
	URL    string
	Todo   string
	Text   string
}

// GeneralChat builds the safe fallback intent carrying the raw text.
func GeneralChat(text string) Intent {
	return Intent{Kind: IntentGeneralChat, Text: text}
}
