package apimodel

// FrameWriteResult is returned once a frame has been handed to the scanner.
type FrameWriteResult struct {
	Consumed int `json:"consumed"`
}

type FrameAck struct {
	Message string `json:"message"`
}

type Message struct {
	Text string `json:"text"`
}

// WsReply answers every frame sent over the websocket.
type WsReply struct {
	Consumed int           `json:"consumed,omitempty"`
	Message  string        `json:"message,omitempty"`
	Error    *ErrorMessage `json:"error,omitempty"`
}
