package dto

// InboundAttachment is one media item carried by an inbound message.
// The URL is fetchable for a limited time and must be rehosted.
type InboundAttachment struct {
	URL         string `json:"url" validate:"required,url"`
	ContentType string `json:"content_type" validate:"omitempty"`
}

// InboundMessageRequest is the webhook payload for an inbound SMS/MMS
type InboundMessageRequest struct {
	From        string              `json:"from" validate:"required"`
	Body        string              `json:"body" validate:"omitempty"`
	Attachments []InboundAttachment `json:"attachments" validate:"omitempty,dive"`
}

// InboundMessageResponse acknowledges webhook receipt; processing is async
type InboundMessageResponse struct {
	Accepted bool `json:"accepted"`
}
