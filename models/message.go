package models

import "encoding/json"

// MessageType names a message kind exchanged between UI surfaces and the
// background coordinator.
type MessageType string

const (
	MsgPageContent        MessageType = "PAGE_CONTENT"
	MsgRequestPageContent MessageType = "REQUEST_PAGE_CONTENT"
	MsgRunAnalysis        MessageType = "RUN_ANALYSIS"
	MsgHighlightLanguage  MessageType = "HIGHLIGHT_LANGUAGE"
	MsgAnalyseWebpage     MessageType = "ANALYSE_WEBPAGE"
	MsgRunProofreader     MessageType = "RUN_PROOFREADER"
	MsgSettingsChanged    MessageType = "SETTINGS_CHANGED"
	MsgRunRewriter        MessageType = "RUN_REWRITER"
	MsgExtractCalendar    MessageType = "EXTRACT_CALENDAR_EVENTS"
	MsgAnalyseImage       MessageType = "ANALYSE_IMAGE"
	MsgAskWebpage         MessageType = "ASK_WEBPAGE"
	MsgGetSettings        MessageType = "GET_SETTINGS"
	MsgUpdateSetting      MessageType = "UPDATE_SETTING"
	MsgResetSettings      MessageType = "RESET_SETTINGS"
)

// Message is a request from a UI surface. Payload is decoded by the handler
// registered for Type.
type Message struct {
	Type      MessageType     `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewMessage builds a message with a JSON-encoded payload. A nil payload
// leaves Payload empty.
func NewMessage(t MessageType, payload any) (Message, error) {
	msg := Message{Type: t}
	if payload == nil {
		return msg, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return msg, err
	}
	msg.Payload = raw
	return msg, nil
}

// Response is the envelope of every asynchronous reply:
// {ok: true, data} or {ok: false, error}.
type Response struct {
	OK        bool   `json:"ok" yaml:"ok"`
	Data      any    `json:"data,omitempty" yaml:"data,omitempty"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
	RequestID string `json:"requestId,omitempty" yaml:"request_id,omitempty"`
}

// OKResponse wraps successful data.
func OKResponse(data any) Response {
	return Response{OK: true, Data: data}
}

// ErrorResponse wraps an error message.
func ErrorResponse(msg string) Response {
	return Response{OK: false, Error: msg}
}

// SettingUpdate is the UPDATE_SETTING payload.
type SettingUpdate struct {
	Key   string `json:"key"`
	Value bool   `json:"value"`
}

// AnalysisKind names an analysis an AnalysisRequest asks for.
type AnalysisKind string

const (
	KindSummary         AnalysisKind = "Summary"
	KindBiases          AnalysisKind = "Biases"
	KindClaims          AnalysisKind = "Claims"
	KindHighlight       AnalysisKind = "Highlight"
	KindProofread       AnalysisKind = "Proofread"
	KindRewrite         AnalysisKind = "Rewrite"
	KindWebpageQA       AnalysisKind = "WebpageQA"
	KindImageAnalysis   AnalysisKind = "ImageAnalysis"
	KindCalendarExtract AnalysisKind = "CalendarExtract"
)

// AnalysisRequest is the ephemeral record the coordinator logs and
// dispatches for each user action or automatic trigger.
type AnalysisRequest struct {
	Kind      AnalysisKind `json:"kind"`
	RequestID string       `json:"requestId"`
	Page      *PageContent `json:"page,omitempty"`
	Text      string       `json:"text,omitempty"`
	ImageURL  string       `json:"imageUrl,omitempty"`
}
