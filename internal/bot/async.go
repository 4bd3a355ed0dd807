package bot

import (
	"context"
	"fmt"
	"log"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"linebot-assistant/internal/models"
	"linebot-assistant/internal/services"
)

// The handlers in this file queue their slow work on the executor and
// deliver results by push. Closures push their own success and not-found
// messages; any error they return makes the executor send the one generic
// failure notice instead.

const translateTextPromptFormat = "請將以下內容翻譯成%s，只輸出譯文，不要任何說明：\n%s"

const summarizePromptFormat = "請用繁體中文將以下網頁內容整理成三到五點重點摘要，每點一行並以「•」開頭：\n\n%s"

func (b *Bot) handleWeather(msg models.InboundMessage, query *models.WeatherQuery) Outcome {
	if query == nil {
		return b.handleChat(msg, msg.Text)
	}
	q := *query
	return b.submit(msg, "weather", func(ctx context.Context) (string, error) {
		if q.Forecast {
			return b.runForecast(ctx, msg.UserID, q.City)
		}
		return b.runCurrentWeather(ctx, msg.UserID, q.City)
	})
}

func (b *Bot) runCurrentWeather(ctx context.Context, userID, city string) (string, error) {
	var report *services.WeatherReport
	err := services.WithRetry(ctx, "weather lookup", func() error {
		var callErr error
		report, callErr = b.weather.Current(ctx, city)
		return callErr
	})
	if services.IsNotFound(err) {
		return "city not found: " + city, b.messenger.PushText(userID, fmt.Sprintf(cityNotFoundFormat, city))
	}
	if err != nil {
		return "", err
	}

	text := fmt.Sprintf(weatherNowFormat, report.City, report.Description, report.Temp, report.FeelsLike, report.Humidity, report.WindSpeed)
	if err := b.messenger.PushText(userID, text); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s %.1f°C", report.City, report.Description, report.Temp), nil
}

func (b *Bot) runForecast(ctx context.Context, userID, city string) (string, error) {
	var resolved string
	var days []services.DailyForecast
	err := services.WithRetry(ctx, "forecast lookup", func() error {
		var callErr error
		resolved, days, callErr = b.weather.Forecast(ctx, city)
		return callErr
	})
	if services.IsNotFound(err) {
		return "city not found: " + city, b.messenger.PushText(userID, fmt.Sprintf(cityNotFoundFormat, city))
	}
	if err != nil {
		return "", err
	}
	if len(days) == 0 {
		return "no forecast for " + city, b.messenger.PushText(userID, fmt.Sprintf(cityNotFoundFormat, city))
	}

	if err := b.messenger.Push(userID, forecastCarousel(resolved, days)); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d day forecast for %s", len(days), resolved), nil
}

func (b *Bot) handleStock(msg models.InboundMessage, query *models.StockQuery) Outcome {
	if query == nil {
		return b.handleChat(msg, msg.Text)
	}
	symbol := query.Symbol
	return b.submit(msg, "stock", func(ctx context.Context) (string, error) {
		var quote *services.StockQuote
		err := services.WithRetry(ctx, "stock quote", func() error {
			var callErr error
			quote, callErr = b.stocks.Quote(ctx, symbol)
			return callErr
		})
		if services.IsNotFound(err) {
			return "symbol not found: " + symbol, b.messenger.PushText(msg.UserID, fmt.Sprintf(stockMissingFormat, symbol))
		}
		if code := services.HTTPStatusCode(err); code == 401 || code == 403 {
			return "stock api key rejected", b.messenger.PushText(msg.UserID, stockAuthDownReply)
		}
		if err != nil {
			return "", err
		}

		if err := b.messenger.PushText(msg.UserID, formatQuote(quote)); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s $%.2f", quote.Symbol, quote.Current), nil
	})
}

func (b *Bot) handleNews(msg models.InboundMessage) Outcome {
	return b.submit(msg, "news", func(ctx context.Context) (string, error) {
		var headlines []services.Headline
		err := services.WithRetry(ctx, "headlines", func() error {
			var callErr error
			headlines, callErr = b.news.TopHeadlines(ctx)
			return callErr
		})
		if err != nil {
			return "", err
		}
		if len(headlines) == 0 {
			return "no headlines", b.messenger.PushText(msg.UserID, newsEmptyReply)
		}

		if err := b.messenger.PushText(msg.UserID, formatHeadlines(headlines)); err != nil {
			return "", err
		}
		return fmt.Sprintf("%d headlines", len(headlines)), nil
	})
}

func (b *Bot) handleCurrency(msg models.InboundMessage, query *models.CurrencyQuery) Outcome {
	if query == nil {
		return b.handleChat(msg, msg.Text)
	}
	q := *query
	return b.submit(msg, "currency", func(ctx context.Context) (string, error) {
		var converted, rate float64
		err := services.WithRetry(ctx, "currency rates", func() error {
			var callErr error
			converted, rate, callErr = b.currency.Convert(ctx, q.Amount, q.From, q.To)
			return callErr
		})
		if services.IsNotFound(err) {
			return "unknown currency", b.messenger.PushText(msg.UserID, fmt.Sprintf(currencyUnknownFormat, q.From, q.To))
		}
		if err != nil {
			return "", err
		}

		text := fmt.Sprintf(currencyFormat, q.Amount, q.From, converted, q.To, q.From, rate, q.To)
		if err := b.messenger.PushText(msg.UserID, text); err != nil {
			return "", err
		}
		return fmt.Sprintf("%.2f %s = %.2f %s", q.Amount, q.From, converted, q.To), nil
	})
}

func (b *Bot) handleTranslation(msg models.InboundMessage, req *models.TranslationRequest) Outcome {
	if req == nil {
		return b.handleChat(msg, msg.Text)
	}
	r := *req
	if r.Target == "" {
		r.Target = "繁體中文"
	}
	return b.submit(msg, "translation", func(ctx context.Context) (string, error) {
		var translated string
		err := services.WithRetry(ctx, "translation", func() error {
			var callErr error
			translated, callErr = b.chatter.GenerateText(ctx, fmt.Sprintf(translateTextPromptFormat, r.Target, r.Text))
			return callErr
		})
		if err != nil {
			return "", err
		}

		if err := b.messenger.PushText(msg.UserID, translated); err != nil {
			return "", err
		}
		return trimRunes(translated, 100), nil
	})
}

func (b *Bot) handleNearbySearch(msg models.InboundMessage, query *models.NearbyQuery) Outcome {
	if query == nil {
		return b.handleChat(msg, msg.Text)
	}

	loc, err := b.store.Location(msg.UserID)
	if err != nil {
		log.Printf("❌ Could not load location for %s: %v", msg.UserID, err)
		b.replyText(msg.ReplyToken, stateUnavailableReply)
		return Outcome{}
	}
	if loc == nil {
		// No stored position: stage the query and ask for one. The next
		// location share resumes the search.
		if err := b.store.SetPendingQuery(msg.UserID, query.Query); err != nil {
			log.Printf("❌ Could not stage query for %s: %v", msg.UserID, err)
			b.replyText(msg.ReplyToken, stateUnavailableReply)
			return Outcome{}
		}
		b.reply(msg.ReplyToken, askLocationMessage(query.Query))
		return Outcome{}
	}
	return b.submitNearbySearch(msg, query.Query, *loc)
}

func (b *Bot) submitNearbySearch(msg models.InboundMessage, query string, loc models.StoredLocation) Outcome {
	return b.submit(msg, "nearby_search", func(ctx context.Context) (string, error) {
		var places []models.Place
		err := services.WithRetry(ctx, "place search", func() error {
			var callErr error
			places, callErr = b.classifier.SearchPlaces(ctx, query, loc.Latitude, loc.Longitude, loc.Address)
			return callErr
		})
		if err != nil {
			return "", err
		}
		if len(places) == 0 {
			return "no places for " + query, b.messenger.PushText(msg.UserID, fmt.Sprintf(placeEmptyFormat, query))
		}

		if err := b.messenger.Push(msg.UserID, placesCarousel(query, places)); err != nil {
			return "", err
		}
		return fmt.Sprintf("%d places for %s", len(places), query), nil
	})
}

func (b *Bot) handleDraw(msg models.InboundMessage, prompt string) Outcome {
	outcome := b.submit(msg, "draw", func(ctx context.Context) (string, error) {
		imageURL, err := b.images.Generate(ctx, prompt)
		if err != nil {
			return "", err
		}
		err = b.messenger.Push(msg.UserID,
			messaging_api.ImageMessage{OriginalContentUrl: imageURL, PreviewImageUrl: imageURL},
		)
		if err != nil {
			return "", err
		}
		return imageURL, nil
	})
	if outcome.Async {
		b.replyText(msg.ReplyToken, fmt.Sprintf(drawAckFormat, prompt))
	}
	return outcome
}

func (b *Bot) handleSummarizeURL(msg models.InboundMessage, link string) Outcome {
	if services.IsYouTubeURL(link) {
		b.replyText(msg.ReplyToken, youtubeReply)
		return Outcome{}
	}

	outcome := b.submit(msg, "summarize_url", func(ctx context.Context) (string, error) {
		var pageText string
		err := services.WithRetry(ctx, "page fetch", func() error {
			var callErr error
			pageText, callErr = b.pages.FetchReadable(ctx, link)
			return callErr
		})
		if err != nil {
			if services.IsNotFound(err) || (services.HTTPStatusCode(err) != 0 && !services.IsTransient(err)) {
				return "page unreadable: " + link, b.messenger.PushText(msg.UserID, pageUnreadableReply)
			}
			return "", err
		}

		var summary string
		err = services.WithRetry(ctx, "page summary", func() error {
			var callErr error
			summary, callErr = b.chatter.GenerateText(ctx, fmt.Sprintf(summarizePromptFormat, pageText))
			return callErr
		})
		if err != nil {
			return "", err
		}

		if err := b.messenger.PushText(msg.UserID, fmt.Sprintf(summaryFormat, summary)); err != nil {
			return "", err
		}
		return "summarized " + link, nil
	})
	if outcome.Async {
		b.replyText(msg.ReplyToken, urlAckReply)
	}
	return outcome
}

func (b *Bot) handleChat(msg models.InboundMessage, text string) Outcome {
	if text == "" {
		text = msg.Text
	}
	return b.submit(msg, "chat", func(ctx context.Context) (string, error) {
		history, err := b.store.History(msg.UserID)
		if err != nil {
			log.Printf("⚠️ Could not load history for %s: %v", msg.UserID, err)
		}

		var answer string
		chatErr := services.WithRetry(ctx, "chat completion", func() error {
			var callErr error
			answer, callErr = b.chatter.Chat(ctx, history, text)
			return callErr
		})
		if chatErr != nil {
			log.Printf("❌ Chat failed for %s: %v", msg.UserID, chatErr)
			return "chat failed", b.messenger.PushText(msg.UserID, chatErrorReply)
		}

		if err := b.messenger.PushText(msg.UserID, answer); err != nil {
			return "", err
		}
		if err := b.store.AppendHistory(msg.UserID,
			models.ChatTurn{Role: models.RoleUser, Text: text},
			models.ChatTurn{Role: models.RoleModel, Text: answer},
		); err != nil {
			log.Printf("⚠️ Could not append history for %s: %v", msg.UserID, err)
		}
		return trimRunes(answer, 100), nil
	})
}

func (b *Bot) handleAnalyzeImage(msg models.InboundMessage) Outcome {
	messageID := msg.MessageID
	outcome := b.submit(msg, "image_analysis", func(ctx context.Context) (string, error) {
		data, err := b.messenger.MessageContent(messageID)
		if err != nil {
			return "", err
		}
		description, err := b.images.Analyze(ctx, data)
		if err != nil {
			return "", err
		}

		if err := b.messenger.PushText(msg.UserID, fmt.Sprintf(analyzeResultFormat, description)); err != nil {
			return "", err
		}
		return trimRunes(description, 100), nil
	})
	if outcome.Async {
		b.replyText(msg.ReplyToken, imageReceivedAnalyzeReply)
	}
	return outcome
}

func (b *Bot) handleRedrawImage(msg models.InboundMessage) Outcome {
	messageID := msg.MessageID
	outcome := b.submit(msg, "image_redraw", func(ctx context.Context) (string, error) {
		data, err := b.messenger.MessageContent(messageID)
		if err != nil {
			return "", err
		}
		imageURL, err := b.images.Redraw(ctx, data)
		if err != nil {
			return "", err
		}

		err = b.messenger.Push(msg.UserID,
			messaging_api.TextMessage{Text: redrawDoneReply},
			messaging_api.ImageMessage{OriginalContentUrl: imageURL, PreviewImageUrl: imageURL},
		)
		if err != nil {
			return "", err
		}
		return imageURL, nil
	})
	if outcome.Async {
		b.replyText(msg.ReplyToken, imageReceivedRedrawReply)
	}
	return outcome
}
