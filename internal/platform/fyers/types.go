package fyers

// WSCommand is the JSON command envelope sent on the data socket.
type WSCommand struct {
	Type     string   `json:"type"`
	DataType string   `json:"data_type,omitempty"`
	Symbols  []string `json:"symbols,omitempty"`
}

// Control frame types the stream sends around data frames. Frames with
// one of these types carry no market data.
const (
	frameConnAck = "cn"  // connection acknowledged
	frameSubAck  = "sub" // subscription acknowledged
	frameFull    = "ful" // full-mode acknowledged
)

// IsControlFrame reports whether a frame type marks a connection or
// subscription acknowledgement rather than a data update.
func IsControlFrame(frameType string) bool {
	switch frameType {
	case frameConnAck, frameSubAck, frameFull:
		return true
	}
	return false
}

// sendOTPRequest starts the login flow for an API user.
type sendOTPRequest struct {
	FyID  string `json:"fy_id"`
	AppID string `json:"app_id"`
}

// verifyOTPRequest answers the login OTP with a TOTP code.
type verifyOTPRequest struct {
	RequestKey string `json:"request_key"`
	OTP        string `json:"otp"`
}

// verifyPINRequest confirms the trading PIN.
type verifyPINRequest struct {
	RequestKey string `json:"request_key"`
	Identity   string `json:"identity_type"`
	Identifier string `json:"identifier"`
}

// tokenRequest exchanges the verified session for an API auth code.
type tokenRequest struct {
	FyID         string `json:"fy_id"`
	AppID        string `json:"app_id"`
	RedirectURI  string `json:"redirect_uri"`
	ResponseType string `json:"response_type"`
	Scope        string `json:"scope"`
	State        string `json:"state"`
}

// authResponse is the envelope every auth endpoint answers with. Only the
// fields the flow needs are decoded.
type authResponse struct {
	Status      string `json:"s"`
	Code        int    `json:"code"`
	Message     string `json:"message"`
	RequestKey  string `json:"request_key"`
	AccessToken string `json:"access_token"`
	URL         string `json:"Url"`
}
