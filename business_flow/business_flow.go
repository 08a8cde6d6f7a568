package businessflow

// ClientMetadata holds the request facts that flows log and journal
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// ip, userAgent and requestID are nil-safe accessors used when journaling
func (cm *ClientMetadata) ip() string {
	if cm == nil {
		return ""
	}
	return cm.IPAddress
}

func (cm *ClientMetadata) userAgent() string {
	if cm == nil {
		return ""
	}
	return cm.UserAgent
}

func (cm *ClientMetadata) requestID() string {
	if cm == nil {
		return ""
	}
	return cm.RequestID
}
