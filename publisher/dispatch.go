package publisher

import (
	"context"

	"newsletter_copilot/generator"
	"newsletter_copilot/logging"
)

const previewRunes = 100

// Delivery is one piece of content due to go out.
type Delivery struct {
	Topic       string
	ContentType string
	Content     string
}

// Dispatcher is the delivery step. It only records intent; nothing is sent
// to subscribers or social platforms.
type Dispatcher struct {
	logger logging.Logger
}

func NewDispatcher(logger logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dispatcher{logger: logger}
}

// Send logs the delivery with a short preview of the content.
func (d *Dispatcher) Send(_ context.Context, del Delivery) error {
	d.logger.Info("sending "+del.ContentType+" about "+del.Topic,
		logging.String("topic", del.Topic),
		logging.String("type", del.ContentType),
		logging.String("preview", generator.Excerpt(del.Content, previewRunes)+"..."),
	)
	return nil
}
