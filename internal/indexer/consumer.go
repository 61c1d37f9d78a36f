package indexer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/concord-index/concord/pkg/kafka"
)

// LineMessage is the Kafka wire format for a single line of text to index.
// Line numbers are assigned by the producer and must be 1-indexed within
// their source.
type LineMessage struct {
	Source     string `json:"source"`
	LineNumber int    `json:"line_number"`
	Text       string `json:"text"`
}

// HandleLineMessage returns a Kafka MessageHandler that indexes every
// incoming line into the engine. Undecodable messages are logged and
// skipped rather than retried.
func HandleLineMessage(engine *Engine) kafka.MessageHandler {
	logger := slog.Default().With("component", "line-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		msg, err := kafka.DecodeJSON[LineMessage](value)
		if err != nil {
			logger.Error("failed to decode line message",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		words, err := engine.IndexLine(msg.Text, msg.LineNumber)
		if err != nil {
			return fmt.Errorf("indexing line %d of %s: %w", msg.LineNumber, msg.Source, err)
		}
		logger.Debug("line indexed",
			"source", msg.Source,
			"line", msg.LineNumber,
			"words", words,
		)
		return nil
	}
}
