package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// flexFloat decodes a JSON number that may arrive either quoted or bare; the
// upstream feed is inconsistent about this.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("parsing number %q: %w", b, err)
	}
	*f = flexFloat(v)
	return nil
}

// KlineUpdate is one partial "current bar" update from a kline topic. The bar
// is not yet closed; the merge layer reconciles it by timestamp.
type KlineUpdate struct {
	Start int64 // bar open, Unix seconds
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// TickerUpdate carries the latest traded price from a ticker topic.
type TickerUpdate struct {
	LastPrice float64
}

// Message is one parsed feed message, delivered on the topic's channel.
// Exactly one of Kline and Ticker is set.
type Message struct {
	Topic  string
	Kline  *KlineUpdate
	Ticker *TickerUpdate
}

// KlineTopic returns the topic string for a (symbol, interval) kline stream.
func KlineTopic(interval, symbol string) string {
	return "kline." + interval + "." + symbol
}

// TickerTopic returns the topic string for a symbol's ticker stream.
func TickerTopic(symbol string) string {
	return "tickers." + symbol
}

// envelope is the upstream push frame. Kline topics carry a data array;
// ticker topics carry a single object.
type envelope struct {
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

type rawKline struct {
	Start flexFloat `json:"start"`
	Open  flexFloat `json:"open"`
	High  flexFloat `json:"high"`
	Low   flexFloat `json:"low"`
	Close flexFloat `json:"close"`
}

type rawTicker struct {
	LastPrice *flexFloat `json:"lastPrice"`
	Last      *flexFloat `json:"last"`
	Price     *flexFloat `json:"price"`
}

// decodeFrame parses one push frame into topic messages. Frames without a
// topic (subscription acks, pong replies) decode to an empty slice. Malformed
// payloads on a known topic shape are an error; they never reach a consumer.
func decodeFrame(raw []byte) ([]Message, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decoding frame: %w", err)
	}
	if env.Topic == "" || len(env.Data) == 0 {
		return nil, nil
	}

	switch {
	case strings.HasPrefix(env.Topic, "kline."):
		var rows []rawKline
		if err := json.Unmarshal(env.Data, &rows); err != nil {
			return nil, fmt.Errorf("decoding kline data for %s: %w", env.Topic, err)
		}
		out := make([]Message, 0, len(rows))
		for _, r := range rows {
			startSec := int64(r.Start)
			if startSec > 1_000_000_000_000 {
				// Upstream sends milliseconds.
				startSec /= 1000
			}
			out = append(out, Message{
				Topic: env.Topic,
				Kline: &KlineUpdate{
					Start: startSec,
					Open:  float64(r.Open),
					High:  float64(r.High),
					Low:   float64(r.Low),
					Close: float64(r.Close),
				},
			})
		}
		return out, nil

	case strings.HasPrefix(env.Topic, "tickers."):
		var t rawTicker
		if err := json.Unmarshal(env.Data, &t); err != nil {
			return nil, fmt.Errorf("decoding ticker data for %s: %w", env.Topic, err)
		}
		var price float64
		switch {
		case t.LastPrice != nil:
			price = float64(*t.LastPrice)
		case t.Last != nil:
			price = float64(*t.Last)
		case t.Price != nil:
			price = float64(*t.Price)
		}
		return []Message{{Topic: env.Topic, Ticker: &TickerUpdate{LastPrice: price}}}, nil
	}

	// Unknown topic family: ignore rather than fail the connection.
	return nil, nil
}
