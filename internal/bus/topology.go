package bus

import (
	amqp "github.com/rabbitmq/amqp091-go"

	"psychsessions/internal/event"
)

const (
	// Exchange is the topic exchange every stage-completion event is
	// published to.
	Exchange = "events"
	// DeadLetterExchange receives messages that exhausted their delivery
	// limit, routed per-stage by the dead-letter routing key.
	DeadLetterExchange = "dead_letter_exchange"

	// DefaultMaxDeliveryCount bounds redelivery before a message is
	// dead-lettered. The broker counter is the single give-up authority;
	// workers never count attempts themselves.
	DefaultMaxDeliveryCount = 3
)

// RetryPolicy is the explicit retry/dead-letter policy applied to one
// stage queue.
type RetryPolicy struct {
	MaxDeliveryCount     int
	DeadLetterExchange   string
	DeadLetterRoutingKey string
}

// Args renders the policy as quorum-queue declaration arguments.
func (p RetryPolicy) Args() amqp.Table {
	return amqp.Table{
		"x-queue-type":              "quorum",
		"x-delivery-limit":          int32(p.MaxDeliveryCount),
		"x-dead-letter-exchange":    p.DeadLetterExchange,
		"x-dead-letter-routing-key": p.DeadLetterRoutingKey,
	}
}

// QueueSpec describes one stage's queue: its binding on the topic
// exchange, its dead-letter queue, and the retry policy connecting them.
type QueueSpec struct {
	Name       string
	BindingKey string
	DLQName    string
	Retry      RetryPolicy
}

func stageQueue(name, bindingKey, dlqName, dlRoutingKey string, maxDeliveries int) QueueSpec {
	if maxDeliveries <= 0 {
		maxDeliveries = DefaultMaxDeliveryCount
	}
	return QueueSpec{
		Name:       name,
		BindingKey: bindingKey,
		DLQName:    dlqName,
		Retry: RetryPolicy{
			MaxDeliveryCount:     maxDeliveries,
			DeadLetterExchange:   DeadLetterExchange,
			DeadLetterRoutingKey: dlRoutingKey,
		},
	}
}

// ExtractionQueue is the topology for the audio-extraction stage.
func ExtractionQueue(maxDeliveries int) QueueSpec {
	return stageQueue("audio_extraction_queue",
		event.VideoUploadCompleted,
		"dlq_audio_extraction",
		event.AudioExtractionFailed,
		maxDeliveries)
}

// TranscriptionQueue is the topology for the transcription stage.
func TranscriptionQueue(maxDeliveries int) QueueSpec {
	return stageQueue("audio_transcription_queue",
		event.AudioExtractionCompleted,
		"dlq_audio_transcription",
		event.AudioTranscriptionFailed,
		maxDeliveries)
}

// AnalysisQueue is the topology for the transcript-analysis stage.
func AnalysisQueue(maxDeliveries int) QueueSpec {
	return stageQueue("transcript_analysis_queue",
		event.AudioTranscriptionCompleted,
		"dlq_transcript_analysis",
		event.AnalysisFailed,
		maxDeliveries)
}
