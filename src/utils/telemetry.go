package utils

import (
	"go.opentelemetry.io/otel/trace"
)

type TraceContextDTO struct {
	TraceID    string `json:"trace_id"`
	SpanID     string `json:"span_id"`
	TraceFlags byte   `json:"trace_flags"`
	TraceState string `json:"trace_state,omitempty"`
	IsRemote   bool   `json:"is_remote"`
}

// NewTraceContextDTO returns nil for an invalid span context so callers can omit it.
func NewTraceContextDTO(sc trace.SpanContext) *TraceContextDTO {
	if !sc.IsValid() {
		return nil
	}

	return &TraceContextDTO{
		TraceID:    sc.TraceID().String(),
		SpanID:     sc.SpanID().String(),
		TraceFlags: byte(sc.TraceFlags()),
		TraceState: sc.TraceState().String(),
		IsRemote:   sc.IsRemote(),
	}
}

func (dto *TraceContextDTO) ToSpanContext() (trace.SpanContext, error) {
	traceID, err := trace.TraceIDFromHex(dto.TraceID)
	if err != nil {
		return trace.SpanContext{}, err
	}

	spanID, err := trace.SpanIDFromHex(dto.SpanID)
	if err != nil {
		return trace.SpanContext{}, err
	}

	traceState, err := trace.ParseTraceState(dto.TraceState)
	if err != nil {
		return trace.SpanContext{}, err
	}

	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.TraceFlags(dto.TraceFlags),
		TraceState: traceState,
		Remote:     dto.IsRemote,
	}), nil
}
