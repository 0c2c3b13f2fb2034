package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/beanlab/bean-curator/internal/adapter"
	"github.com/beanlab/bean-curator/internal/logger"
)

// msgIDHashLength is how many hex characters of the content hash go into the message ID
const msgIDHashLength = 16

// Publisher pushes artifacts to the publish sink. Publishing the same
// (date, language) twice is an update, not an error.
//
//go:generate mockgen -source=publisher.go -destination=../mocks/report_publisher.go -package=mocks -mock_names=Publisher=MockPublisher
type Publisher interface {
	Publish(ctx context.Context, artifact Artifact) error
	Close()
}

// PublisherConfig holds the configuration for the NATS JetStream sink
type PublisherConfig struct {
	URL            string
	StreamName     string
	SubjectPrefix  string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
	// DuplicateWindow is how long JetStream remembers message IDs
	DuplicateWindow time.Duration
	// MaxElapsedTime bounds publish retries
	MaxElapsedTime time.Duration
}

type natsPublisher struct {
	nc   adapter.NatsConn
	js   adapter.JetStream
	cfg  PublisherConfig
	json adapter.JSON
	jcs  adapter.JCS
}

// NewNATSPublisher connects to NATS and makes sure the report stream exists. The
// stream keeps only the latest message per subject, so a republished
// (date, language) replaces the earlier artifact.
func NewNATSPublisher(ctx context.Context, cfg PublisherConfig, natsJS adapter.NatsJetStream, jsonAdapter adapter.JSON, jcs adapter.JCS) (Publisher, error) {
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "reports"
	}
	if cfg.DuplicateWindow <= 0 {
		cfg.DuplicateWindow = 7 * 24 * time.Hour
	}
	if cfg.MaxElapsedTime <= 0 {
		cfg.MaxElapsedTime = 30 * time.Second
	}

	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error(err, zap.String("message", "Disconnected from NATS"))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, js, err := natsJS.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS and create JetStream: %w", err)
	}

	err = js.EnsureStream(ctx, jetstream.StreamConfig{
		Name:              cfg.StreamName,
		Subjects:          []string{cfg.SubjectPrefix + ".>"},
		MaxMsgsPerSubject: 1,
		Duplicates:        cfg.DuplicateWindow,
		Storage:           jetstream.FileStorage,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream %s: %w", cfg.StreamName, err)
	}

	return &natsPublisher{
		nc:   nc,
		js:   js,
		cfg:  cfg,
		json: jsonAdapter,
		jcs:  jcs,
	}, nil
}

// Publish sends an artifact to {prefix}.{language}.{date}. The message ID carries a
// hash of the content, so an identical republish is dropped by JetStream and a
// changed one lands as the new latest message on the subject.
func (p *natsPublisher) Publish(ctx context.Context, artifact Artifact) error {
	if artifact.Date == "" || artifact.Language == "" {
		return fmt.Errorf("artifact is missing date or language")
	}

	data, err := p.json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}

	hash, err := p.contentHash(artifact)
	if err != nil {
		return err
	}

	subject := BuildSubject(p.cfg.SubjectPrefix, artifact.Language, artifact.Date)
	msgID := BuildMsgID(artifact.Date, artifact.Language, hash)

	logger.DebugCtx(ctx, "Publishing report artifact",
		zap.String("subject", subject),
		zap.String("msg_id", msgID))

	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set(jetstream.MsgIDHeader, msgID)

	operation := func() error {
		ack, err := p.js.PublishMsg(ctx, msg)
		if err != nil {
			return err
		}
		if ack != nil && ack.Duplicate {
			logger.InfoCtx(ctx, "Artifact already published, skipped as duplicate",
				zap.String("subject", subject),
				zap.String("msg_id", msgID))
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = p.cfg.MaxElapsedTime

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return fmt.Errorf("failed to publish artifact %s: %w", msgID, err)
	}

	return nil
}

// contentHash hashes only what readers see, so run metadata does not defeat dedup
func (p *natsPublisher) contentHash(artifact Artifact) (string, error) {
	content, err := p.json.Marshal(map[string]string{
		"date":     artifact.Date,
		"language": artifact.Language,
		"title":    artifact.Title,
		"body":     artifact.Body,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal artifact content: %w", err)
	}
	return adapter.ContentHash(p.jcs, content)
}

// BuildSubject constructs the NATS subject of an artifact
func BuildSubject(prefix, language, date string) string {
	// Format: {prefix}.{language}.{date}
	// e.g., reports.en.2026-10-18
	return fmt.Sprintf("%s.%s.%s", prefix, subjectToken(language), date)
}

// BuildMsgID constructs the JetStream message ID of an artifact
func BuildMsgID(date, language, hash string) string {
	if len(hash) > msgIDHashLength {
		hash = hash[:msgIDHashLength]
	}
	return fmt.Sprintf("%s-%s-%s", date, language, hash)
}

// subjectToken strips characters that have meaning in NATS subjects
func subjectToken(s string) string {
	return strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(strings.ToLower(s))
}

// Close closes the NATS connection
func (p *natsPublisher) Close() {
	if p.nc == nil {
		return
	}

	p.nc.Close()
}
