package models

// Chat roles as the generative backend expects them.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ChatTurn is a single entry in a user's conversation history.
type ChatTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// StoredLocation is the user's last shared position.
type StoredLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// Input modes set by 指令 commands and consumed by the next image upload.
const (
	ModeAwaitingAnalysisImage = "waiting_for_analysis_image"
	ModeAwaitingBaseImage     = "waiting_for_i2i_image"
)
