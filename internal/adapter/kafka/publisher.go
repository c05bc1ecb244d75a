// Package kafka publishes per-balloon refresh summaries to a sink topic for
// downstream consumers. The sink is optional; when disabled the refresher
// simply runs without a publisher.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/skydrift/balloon-track/internal/config"
	"github.com/skydrift/balloon-track/internal/domain"
	"github.com/skydrift/balloon-track/internal/tracker"
)

// Publisher writes refresh summaries to Kafka. It implements
// tracker.SummaryPublisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a producer for the configured summary topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSummaryTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishSummary emits one message per balloon from the completed refresh in
// a single WriteMessages call. alerts may be nil when no alert cycle has run
// yet.
func (p *Publisher) PublishSummary(ctx context.Context, tracks *tracker.TrackSnapshot, alerts *tracker.AlertSnapshot) error {
	msgs := buildMessages(tracks, alerts)
	if len(msgs) == 0 {
		return nil
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish refresh summary: %w", err)
	}
	p.logger.Debug("refresh summary published", "messages", len(msgs))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// balloonSummary is the wire form of one balloon's refresh result.
type balloonSummary struct {
	ID              string           `json:"id"`
	TotalDistanceKm float64          `json:"total_distance_km"`
	Rank            float64          `json:"rank"`
	Direction       domain.Direction `json:"direction"`
	Current         *domain.Position `json:"current,omitempty"`
	AlertCount      int              `json:"alert_count"`
	RefreshedAt     time.Time        `json:"refreshed_at"`
}

func buildMessages(tracks *tracker.TrackSnapshot, alerts *tracker.AlertSnapshot) []kafkago.Message {
	if tracks == nil {
		return nil
	}

	msgs := make([]kafkago.Message, 0, len(tracks.Histories))
	for id, hist := range tracks.Histories {
		c := tracks.Classifications[id]
		summary := balloonSummary{
			ID:              id,
			TotalDistanceKm: hist.TotalDistanceKm,
			Rank:            c.Rank,
			Direction:       c.Direction,
			Current:         hist.Current,
			RefreshedAt:     tracks.RefreshedAt,
		}
		if alerts != nil {
			summary.AlertCount = len(alerts.Matches[id])
		}

		// Summaries are plain structs; marshalling cannot fail.
		value, _ := json.Marshal(summary)
		msgs = append(msgs, kafkago.Message{
			Key:   []byte(id),
			Value: value,
			Headers: []kafkago.Header{
				{Key: "refreshed_at", Value: []byte(tracks.RefreshedAt.Format(time.RFC3339))},
			},
		})
	}
	return msgs
}
