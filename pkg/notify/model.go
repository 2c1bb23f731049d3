package notify

type PushNotifyRequest struct {
	Recipient string `json:"recipient"`
	Type      string `json:"type"`
	Activity  string `json:"activity"`
	Author    string `json:"author"`
	CreatedOn int64  `json:"created_on"`
}

type BaseResponse struct {
	Code    int      `json:"code"`
	Msg     string   `json:"msg"`
	Details []string `json:"details,omitempty"`
}
