package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"psychsessions/internal/event"
)

func TestRetryPolicyArgs(t *testing.T) {
	policy := RetryPolicy{
		MaxDeliveryCount:     3,
		DeadLetterExchange:   DeadLetterExchange,
		DeadLetterRoutingKey: event.AudioExtractionFailed,
	}

	args := policy.Args()
	assert.Equal(t, "quorum", args["x-queue-type"])
	assert.Equal(t, int32(3), args["x-delivery-limit"])
	assert.Equal(t, "dead_letter_exchange", args["x-dead-letter-exchange"])
	assert.Equal(t, "audio.extraction.failed", args["x-dead-letter-routing-key"])
}

func TestStageQueueSpecs(t *testing.T) {
	tests := []struct {
		name       string
		spec       QueueSpec
		queue      string
		bindingKey string
		dlq        string
		dlKey      string
	}{
		{
			name:       "extraction",
			spec:       ExtractionQueue(3),
			queue:      "audio_extraction_queue",
			bindingKey: event.VideoUploadCompleted,
			dlq:        "dlq_audio_extraction",
			dlKey:      event.AudioExtractionFailed,
		},
		{
			name:       "transcription",
			spec:       TranscriptionQueue(3),
			queue:      "audio_transcription_queue",
			bindingKey: event.AudioExtractionCompleted,
			dlq:        "dlq_audio_transcription",
			dlKey:      event.AudioTranscriptionFailed,
		},
		{
			name:       "analysis",
			spec:       AnalysisQueue(3),
			queue:      "transcript_analysis_queue",
			bindingKey: event.AudioTranscriptionCompleted,
			dlq:        "dlq_transcript_analysis",
			dlKey:      event.AnalysisFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.queue, tt.spec.Name)
			assert.Equal(t, tt.bindingKey, tt.spec.BindingKey)
			assert.Equal(t, tt.dlq, tt.spec.DLQName)
			assert.Equal(t, tt.dlKey, tt.spec.Retry.DeadLetterRoutingKey)
			assert.Equal(t, 3, tt.spec.Retry.MaxDeliveryCount)
			assert.Equal(t, DeadLetterExchange, tt.spec.Retry.DeadLetterExchange)
		})
	}
}

func TestStageQueueDefaultsDeliveryLimit(t *testing.T) {
	spec := ExtractionQueue(0)
	assert.Equal(t, DefaultMaxDeliveryCount, spec.Retry.MaxDeliveryCount)

	spec = ExtractionQueue(5)
	assert.Equal(t, 5, spec.Retry.MaxDeliveryCount)
}
